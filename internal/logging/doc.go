// Package logging constructs slog loggers for the triage daemon and CLI.
//
// Loggers write to stdout/stderr plus an optional log file, in either a
// console or JSON format. The package also exposes small attribute helpers
// so call sites do not import log/slog directly for common cases.
package logging
