// Package api defines wire-format types shared by the HTTP server, the
// WebSocket push channel, the worker callback, and the CLI client.
//
// DTOs use camelCase JSON tags for JavaScript consumers. Internal enums
// (jobs.Status, jobs.Task) are exposed as lowercase strings. Timestamps use
// RFC3339 with milliseconds. Stored result payloads are passed through as
// json.RawMessage to avoid double-encoding.
//
// JobUpdate is deliberately the same shape on the callback ingress and the
// live channel so clients can reuse one decoder for pushed and polled data.
package api
