// Package services defines shared utilities consumed by the alignment pipeline
// and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp request identifiers and pipeline stage names
//     for logging and tracing.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent caller-facing classes (bad input, provider outage,
//     resource limit).
//
// Use these helpers when wiring new pipeline code so error handling and
// observability stay uniform between the HTTP server and the CLI.
package services
