// Package subtitles holds the cue model and the SRT format contract.
//
// ParseSRT turns SRT text into validated, start-ordered cues. CleanText strips
// speaker labels, sound-effect brackets, and markup so that embedding input
// carries only spoken content. WriteMerged renders bilingual blocks with the
// target line on top, and ParseMerged reads them back for round-trip checks.
package subtitles
