// Package retry implements fixed-interval retry with a permanent-error
// escape hatch.
package retry
