// Package logger provides structured logging for the storefront client.
//
// It wraps log/slog behind the Logger interface:
//
//   - logger.go: handler construction, dynamic level, package-level default
//   - context.go: logger and request ID propagation through context
//   - redact.go: masking of credentials before they reach any output
//
// The CLI logs to stderr in text format at warn level by default, so command
// output on stdout stays machine readable.
package logger
