package align

import (
	"math"
	"testing"
	"time"

	"subalign/internal/embedding"
	"subalign/internal/subtitles"
)

func cue(seq int, start, end float64, text string) subtitles.Cue {
	return subtitles.Cue{
		Sequence: seq,
		Start:    time.Duration(start * float64(time.Second)),
		End:      time.Duration(end * float64(time.Second)),
		Text:     text,
	}
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestTemporalScore(t *testing.T) {
	s := DefaultScorer()
	tests := []struct {
		name     string
		src, tgt subtitles.Cue
		want     float64
	}{
		{"identical", cue(1, 0, 2, "a"), cue(1, 0, 2, "b"), 1},
		{"shifted", cue(1, 0, 2, "a"), cue(1, 0.1, 2.1, "b"), 0.95},
		{"contained", cue(1, 0, 4, "a"), cue(1, 1, 2, "b"), 0.25},
		{"touching", cue(1, 0, 2, "a"), cue(1, 2, 3, "b"), 0.5},
		{"near miss", cue(1, 0, 2, "a"), cue(1, 4.5, 6, "b"), 0.5 * 0.5},
		{"beyond window", cue(1, 0, 2, "a"), cue(1, 8, 9, "b"), 0},
		{"coinciding points", cue(1, 3, 3, "a"), cue(1, 3, 3, "b"), 1},
		{"reversed gap", cue(1, 10, 12, "a"), cue(1, 7, 9, "b"), 0.5 * 0.8},
	}
	for _, tc := range tests {
		if got := s.Temporal(tc.src, tc.tgt); !approx(got, tc.want) {
			t.Errorf("%s: Temporal = %v, want %v", tc.name, got, tc.want)
		}
		if got, back := s.Temporal(tc.src, tc.tgt), s.Temporal(tc.tgt, tc.src); !approx(got, back) {
			t.Errorf("%s: Temporal not symmetric (%v vs %v)", tc.name, got, back)
		}
	}
}

func TestPairSemanticScore(t *testing.T) {
	s := DefaultScorer()
	src, tgt := cue(1, 0, 2, "a"), cue(1, 0, 2, "b")
	tests := []struct {
		name string
		a, b embedding.Vector
		want float64
	}{
		{"identical", embedding.Vector{1, 2}, embedding.Vector{2, 4}, 1},
		{"opposite", embedding.Vector{1, 0}, embedding.Vector{-1, 0}, 0},
		{"orthogonal", embedding.Vector{1, 0}, embedding.Vector{0, 1}, 0.5},
		{"zero", embedding.Vector{0, 0}, embedding.Vector{0, 1}, 0.5},
	}
	for _, tc := range tests {
		got := s.Pair(src, tgt, unit(tc.a), unit(tc.b))
		if math.Abs(got.Semantic-tc.want) > 1e-6 {
			t.Errorf("%s: Semantic = %v, want %v", tc.name, got.Semantic, tc.want)
		}
		if want := s.Combine(1, got.Semantic); !approx(got.Combined, want) {
			t.Errorf("%s: Combined = %v, want %v", tc.name, got.Combined, want)
		}
	}
}

func unit(v embedding.Vector) embedding.Vector {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make(embedding.Vector, len(v))
	if sum == 0 {
		return out
	}
	for i, x := range v {
		out[i] = float32(float64(x) / math.Sqrt(sum))
	}
	return out
}

func TestPairCombinedScore(t *testing.T) {
	s := DefaultScorer()
	got := s.Pair(cue(1, 0, 2, "a"), cue(1, 0, 2, "b"), embedding.Vector{1, 0}, embedding.Vector{0, 1})
	// Perfect overlap, unrelated meaning: 0.3*1 + 0.7*0.5.
	if !approx(got.Combined, 0.65) || got.Temporal != 1 || got.Semantic != 0.5 {
		t.Fatalf("Pair = %+v, want combined 0.65", got)
	}
	if status, _ := DefaultClassifier().Classify(got.Combined); status != StatusReview {
		t.Fatalf("expected REVIEW for overlapping unrelated text, got %s", status)
	}
	if c := s.Combine(2, 2); c != 1 {
		t.Fatalf("Combine should clamp to 1, got %v", c)
	}
}

func TestPairWithoutVectorsUsesTiming(t *testing.T) {
	s := DefaultScorer()
	got := s.Pair(cue(1, 0, 2, "a"), cue(1, 0.1, 2.1, "b"), nil, nil)
	if !approx(got.Combined, got.Temporal) || !approx(got.Temporal, 0.95) || got.Semantic != 0 {
		t.Fatalf("timing-only Pair = %+v", got)
	}
}
