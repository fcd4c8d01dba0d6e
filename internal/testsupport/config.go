package testsupport

import (
	"path/filepath"
	"testing"

	"quickscribe/internal/config"
)

// NewConfig returns a validated config rooted in the test's temp
// directory, using the local storage backend so no external services
// are touched.
func NewConfig(t *testing.T) *config.Config {
	t.Helper()

	root := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(root, "data")
	cfg.Paths.LogDir = filepath.Join(root, "logs")
	cfg.Storage.Backend = config.StorageBackendLocal
	cfg.Storage.LocalDir = filepath.Join(root, "objects")
	cfg.Worker.URL = "http://worker.test:9000"

	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate test config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}
