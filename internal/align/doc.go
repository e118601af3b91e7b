// Package align computes a monotonic, confidence-scored correspondence
// between a source and a target subtitle track.
//
// The Scorer blends temporal overlap with embedding similarity into one
// combined score per cue pair. Solve runs a global sequence alignment over
// those scores with skip penalties, so cue counts may differ and poor matches
// are left unmatched rather than forced. The Classifier turns each score into
// a Status tier. Engine wires the three together with an embedding provider
// and produces one AlignedPair per source cue, in source order.
//
// Time and memory are O(len(source) * len(target)); inputs whose product
// exceeds the configured cell budget are rejected with a ResourceLimitError
// before any table is allocated.
package align
