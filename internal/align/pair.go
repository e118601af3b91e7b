package align

import "time"

// AlignedPair is one output row. There is exactly one per source cue, in
// source order. Unmatched rows carry an empty TargetText, zero Confidence,
// and StatusMisaligned.
type AlignedPair struct {
	Sequence     int
	SourceText   string
	TargetText   string
	SourceStart  time.Duration
	SourceEnd    time.Duration
	TargetStart  time.Duration
	TargetEnd    time.Duration
	Confidence   float64
	Status       Status
	QualityLabel string
	Matched      bool
	// TargetIndex is the position of the matched cue in the target track, or
	// -1 when unmatched.
	TargetIndex int
	// Shared marks a target cue also matched by a neighbouring source cue.
	Shared   bool
	Temporal float64
	Semantic float64
}

// Summary counts the pairs per tier.
type Summary struct {
	TotalSource      int `json:"total_source"`
	TotalTarget      int `json:"total_target"`
	AlignedCount     int `json:"aligned_count"`
	ReviewCount      int `json:"review_count"`
	MisalignedCount  int `json:"misaligned_count"`
	UnmatchedTargets int `json:"unmatched_targets"`
}

// Result is the output of one alignment run.
type Result struct {
	Pairs   []AlignedPair
	Summary Summary
	// TemporalOnly is set when the provider failed and the run fell back to
	// timing alone.
	TemporalOnly bool
}

// Summarize counts tiers. totalTarget is the size of the target track.
func Summarize(pairs []AlignedPair, totalTarget int) Summary {
	summary := Summary{TotalSource: len(pairs), TotalTarget: totalTarget}
	used := make(map[int]struct{})
	for _, pair := range pairs {
		switch pair.Status {
		case StatusAligned:
			summary.AlignedCount++
		case StatusReview:
			summary.ReviewCount++
		case StatusMisaligned:
			summary.MisalignedCount++
		}
		if pair.Matched && pair.TargetIndex >= 0 {
			used[pair.TargetIndex] = struct{}{}
		}
	}
	summary.UnmatchedTargets = max(0, totalTarget-len(used))
	return summary
}
