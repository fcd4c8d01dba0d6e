// Package worker is the HTTP client for the external GPU transcription
// worker: job dispatch with retry, and existence probes used to
// reconcile ambiguous dispatch failures.
package worker
