package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// localStore keeps objects under a directory on disk. Used for tests
// and single-box deployments where the worker shares the filesystem.
type localStore struct {
	root string
}

func newLocalStore(root string) (*localStore, error) {
	if root == "" {
		return nil, fmt.Errorf("storage: local root directory not set")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure local root: %w", err)
	}
	return &localStore{root: root}, nil
}

func (l *localStore) Put(ctx context.Context, key string, reader io.Reader, _ int64, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target, err := l.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("storage: ensure object dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return fmt.Errorf("storage: create temp object: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := io.Copy(tmp, reader); err != nil {
		tmp.Close()
		return fmt.Errorf("storage: write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("storage: finalize %s: %w", key, err)
	}
	return nil
}

func (l *localStore) PresignPut(context.Context, string, string, time.Duration) (string, error) {
	return "", ErrPresignUnsupported
}

func (l *localStore) PresignGet(context.Context, string, time.Duration) (string, error) {
	return "", ErrPresignUnsupported
}

func (l *localStore) resolve(key string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(key))
	if cleaned == "." || strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: invalid object key %q", key)
	}
	return filepath.Join(l.root, cleaned), nil
}
