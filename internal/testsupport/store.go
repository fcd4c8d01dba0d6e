package testsupport

import (
	"testing"

	"quickscribe/internal/jobs"
)

// MustOpenStore opens a job store in a temp directory and closes it
// when the test finishes.
func MustOpenStore(t *testing.T) *jobs.Store {
	t.Helper()

	store, err := jobs.Open(NewConfig(t))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return store
}
