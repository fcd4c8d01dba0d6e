// Package logging builds the process-wide slog logger.
//
// Two output formats are supported: a human-oriented console format and
// JSON for log shippers. NewFromConfig mirrors output to stdout and a
// rotating-friendly append-only file under the configured log directory.
// Components obtain scoped loggers via NewComponentLogger.
package logging
