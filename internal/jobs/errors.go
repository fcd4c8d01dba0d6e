package jobs

import (
	"errors"
	"strings"
)

// ErrNotFound indicates the job id has never been seen by this store.
var ErrNotFound = errors.New("job not found")

// ErrJobExists indicates a duplicate create for a job id.
var ErrJobExists = errors.New("job already exists")

// ErrResultMismatch indicates a re-delivered result diverges from the payload
// already stored for the job. Stored results are immutable.
var ErrResultMismatch = errors.New("result payload diverges from stored result")

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
