// Command subalign aligns two SRT subtitle tracks in different languages.
//
// `subalign align` runs one alignment offline and prints a confidence table,
// JSON records, or a merged bilingual SRT. `subalign serve` exposes the same
// engine over HTTP. `subalign feedback list` shows reviewer feedback captured
// by the server, and `subalign config` creates, validates, and prints the
// TOML configuration.
package main
