// Package jobs persists transcription jobs in SQLite and exposes the
// lifecycle operations the rest of the relay builds on.
//
// The Store manages database connections, embedded migrations, single-key
// reads and writes, grouped stats, and retention of terminal entries. A job
// id is created exactly once at submission time; result payloads are
// immutable once written, so re-delivered callbacks with identical payloads
// are no-ops and divergent payloads are rejected.
//
// The database is transient storage for in-flight and recently finished jobs
// rather than a long-term archive; the RetentionSweeper evicts terminal
// entries after a configurable window.
//
// Treat this package as the single source of truth for job semantics; when
// you add statuses or fields, add a migration under migrations/.
package jobs
