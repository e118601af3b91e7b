package align

import (
	"math"
	"time"

	"subalign/internal/embedding"
	"subalign/internal/subtitles"
	"subalign/internal/textutil"
)

// MatchCandidate holds the scores of one (source, target) cue pair.
type MatchCandidate struct {
	SourceIdx int
	TargetIdx int
	Temporal  float64
	Semantic  float64
	Combined  float64
}

// Scorer combines temporal and semantic similarity.
type Scorer struct {
	TemporalWeight float64
	SemanticWeight float64
	// ToleranceWindow is the gap at which a non-overlapping pair stops
	// earning any temporal credit.
	ToleranceWindow time.Duration
	// NearMissWeight caps the temporal score of pairs that do not overlap.
	NearMissWeight float64
}

// DefaultScorer weights meaning over timing, 0.7 to 0.3.
func DefaultScorer() Scorer {
	return Scorer{
		TemporalWeight:  0.3,
		SemanticWeight:  0.7,
		ToleranceWindow: 5 * time.Second,
		NearMissWeight:  0.5,
	}
}

// Temporal scores interval agreement in [0, 1]. Overlapping intervals score
// overlap / max(duration). Disjoint intervals decay linearly with the gap,
// scaled by NearMissWeight, reaching zero at ToleranceWindow.
func (s Scorer) Temporal(src, tgt subtitles.Cue) float64 {
	overlap := min(src.End, tgt.End) - max(src.Start, tgt.Start)
	longest := max(src.Duration(), tgt.Duration())
	if overlap > 0 && longest > 0 {
		return clamp01(float64(overlap) / float64(longest))
	}
	if longest == 0 && src.Start == tgt.Start {
		return 1
	}
	gap := -overlap
	if s.ToleranceWindow <= 0 {
		return 0
	}
	decay := 1 - float64(gap)/float64(s.ToleranceWindow)
	return clamp01(s.NearMissWeight * math.Max(0, decay))
}

// Combine applies the weights.
func (s Scorer) Combine(temporal, semantic float64) float64 {
	return clamp01(s.TemporalWeight*temporal + s.SemanticWeight*semantic)
}

// Pair scores src against tgt. vs and vt must be unit vectors of equal
// length (see textutil.Normalize), so their dot product is the cosine,
// rescaled from [-1, 1] to [0, 1]. A zero vector or a length mismatch
// scores 0.5. When either
// vector is nil the pair is scored on timing alone and Combined equals
// Temporal.
func (s Scorer) Pair(src, tgt subtitles.Cue, vs, vt embedding.Vector) MatchCandidate {
	c := MatchCandidate{Temporal: s.Temporal(src, tgt)}
	if vs == nil || vt == nil {
		c.Combined = c.Temporal
		return c
	}
	c.Semantic = clamp01((textutil.Dot(vs, vt) + 1) / 2)
	c.Combined = s.Combine(c.Temporal, c.Semantic)
	return c
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
