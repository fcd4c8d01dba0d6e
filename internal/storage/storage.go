package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"quickscribe/internal/config"
)

// ErrPresignUnsupported is returned by backends that cannot mint
// direct-upload URLs; callers fall back to relay-mediated uploads.
var ErrPresignUnsupported = errors.New("storage: presigned URLs not supported by backend")

// ObjectStore abstracts the audio object backend.
type ObjectStore interface {
	// Put streams an object into the store. size may be -1 when unknown.
	Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	// PresignPut mints a time-limited URL a client can PUT the object to.
	PresignPut(ctx context.Context, key, contentType string, expiry time.Duration) (string, error)
	// PresignGet mints a time-limited download URL for a stored object.
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// New selects a backend from configuration.
func New(cfg *config.Config) (ObjectStore, error) {
	switch cfg.Storage.Backend {
	case config.StorageBackendS3:
		return newS3Store(cfg)
	case config.StorageBackendLocal:
		return newLocalStore(cfg.Storage.LocalDir)
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", cfg.Storage.Backend)
	}
}

// ObjectKey builds the canonical upload key for a job's source file.
// Layout: input/{jobID}/{filename}.
func ObjectKey(jobID, filename string) string {
	return path.Join("input", jobID, SanitizeFilename(filename))
}

// SanitizeFilename strips path components and characters that are
// awkward in object keys. An empty or fully-stripped name becomes
// "upload".
func SanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	cleaned := strings.Trim(b.String(), "._")
	if cleaned == "" {
		return "upload"
	}
	return cleaned
}
