// Package logging assembles structured slog loggers and formatting helpers used
// across subalign.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so request handlers and the
// alignment engine tag log lines with request IDs and stages automatically.
// The package also provides a no-op logger for tests and wiring code that
// cannot fail.
package logging
