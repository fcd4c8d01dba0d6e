package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalS3 = `
[storage]
backend = "s3"
bucket = "quickscribe-uploads"
access_key = "AKIA"
secret_key = "secret"

[worker]
url = "http://gpu-worker:9000"
`

func TestLoadMinimal(t *testing.T) {
	path := writeConfig(t, minimalS3)
	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !exists || resolved != path {
		t.Errorf("resolved = %q exists = %v", resolved, exists)
	}
	if cfg.Paths.APIBind != defaultAPIBind {
		t.Errorf("api bind = %q", cfg.Paths.APIBind)
	}
	if cfg.Storage.Region != defaultStorageRegion {
		t.Errorf("region = %q", cfg.Storage.Region)
	}
	if cfg.Worker.DispatchAttempts != defaultDispatchAttempts {
		t.Errorf("attempts = %d", cfg.Worker.DispatchAttempts)
	}
}

func TestCallbackURLDefaultsToBind(t *testing.T) {
	cfg, _, _, err := Load(writeConfig(t, minimalS3))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Worker.CallbackURL != "http://"+cfg.Paths.APIBind {
		t.Errorf("callback url = %q", cfg.Worker.CallbackURL)
	}
}

func TestS3RequiresCredentials(t *testing.T) {
	content := `
[storage]
backend = "s3"
bucket = "b"

[worker]
url = "http://w:9000"
`
	// Make sure ambient AWS variables don't satisfy the check.
	t.Setenv("AWS_ACCESS_KEY", "")
	t.Setenv("AWS_ACCESS_KEY_ID", "")
	t.Setenv("AWS_SECRET_KEY", "")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "")

	_, _, _, err := Load(writeConfig(t, content))
	if err == nil || !strings.Contains(err.Error(), "credentials") {
		t.Fatalf("err = %v, want credentials error", err)
	}
}

func TestCredentialsFromEnv(t *testing.T) {
	content := `
[storage]
backend = "s3"
bucket = "b"

[worker]
url = "http://w:9000"
`
	t.Setenv("AWS_ACCESS_KEY", "AKIA")
	t.Setenv("AWS_SECRET_KEY", "shh")

	cfg, _, _, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.AccessKey != "AKIA" || cfg.Storage.SecretKey != "shh" {
		t.Errorf("creds = %q/%q", cfg.Storage.AccessKey, cfg.Storage.SecretKey)
	}
}

func TestWorkerURLRequired(t *testing.T) {
	content := `
[storage]
backend = "local"
local_dir = "/tmp/objects"
`
	_, _, _, err := Load(writeConfig(t, content))
	if err == nil || !strings.Contains(err.Error(), "worker.url") {
		t.Fatalf("err = %v, want worker.url error", err)
	}
}

func TestRejectsRelativeWorkerURL(t *testing.T) {
	content := `
[storage]
backend = "local"
local_dir = "/tmp/objects"

[worker]
url = "gpu-worker"
`
	_, _, _, err := Load(writeConfig(t, content))
	if err == nil {
		t.Fatal("expected error for relative worker url")
	}
}

func TestRejectsUnknownBackend(t *testing.T) {
	content := `
[storage]
backend = "ftp"

[worker]
url = "http://w:9000"
`
	_, _, _, err := Load(writeConfig(t, content))
	if err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestDurationAccessors(t *testing.T) {
	cfg := Default()
	if cfg.Retention().Hours() != float64(defaultRetentionHours) {
		t.Errorf("retention = %v", cfg.Retention())
	}
	if cfg.MaxUploadBytes() != int64(defaultMaxUploadMiB)<<20 {
		t.Errorf("max upload = %d", cfg.MaxUploadBytes())
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("create sample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[worker]") {
		t.Error("sample missing worker section")
	}
}
