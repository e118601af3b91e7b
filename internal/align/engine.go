package align

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"subalign/internal/config"
	"subalign/internal/embedding"
	"subalign/internal/logging"
	"subalign/internal/services"
	"subalign/internal/subtitles"
	"subalign/internal/textutil"
)

// Options bundles the tunables of an Engine.
type Options struct {
	Scorer     Scorer
	Solver     Solver
	Classifier Classifier
	// BatchSize bounds texts per provider call; 0 sends all at once.
	BatchSize int
	// AllowTemporalOnly continues on timing alone when embedding fails.
	AllowTemporalOnly bool
}

// DefaultOptions returns the built-in defaults.
func DefaultOptions() Options {
	return Options{
		Scorer:     DefaultScorer(),
		Solver:     DefaultSolver(),
		Classifier: DefaultClassifier(),
	}
}

// OptionsFromConfig maps the [alignment] and [embedding] sections.
func OptionsFromConfig(cfg *config.Config) Options {
	a := cfg.Alignment
	return Options{
		Scorer: Scorer{
			TemporalWeight:  a.TemporalWeight,
			SemanticWeight:  a.SemanticWeight,
			ToleranceWindow: time.Duration(a.ToleranceWindowSeconds * float64(time.Second)),
			NearMissWeight:  a.NearMissWeight,
		},
		Solver: Solver{
			SkipPenalty:    a.SkipPenalty,
			MinMatchScore:  a.MinMatchScore,
			ShareTolerance: a.ShareTolerance,
			MaxCells:       a.MaxCells,
		},
		Classifier: Classifier{
			AlignedThreshold: a.AlignedThreshold,
			ReviewThreshold:  a.ReviewThreshold,
		},
		BatchSize:         cfg.Embedding.BatchSize,
		AllowTemporalOnly: a.AllowTemporalOnly,
	}
}

// Engine runs the alignment pipeline. It holds no per-request state and is
// safe for concurrent use when its provider is.
type Engine struct {
	provider embedding.Provider
	opts     Options
	logger   *slog.Logger
}

// NewEngine constructs an Engine.
func NewEngine(provider embedding.Provider, opts Options, logger *slog.Logger) *Engine {
	return &Engine{
		provider: provider,
		opts:     opts,
		logger:   logging.NewComponentLogger(logger, "aligner"),
	}
}

// Align pairs every source cue with at most one target cue.
//
// An empty source track, or any cue violating the model, fails with
// services.ErrInput. An empty target track is not an error: every source cue
// comes back MISALIGNED. Oversized inputs fail with *ResourceLimitError before
// any embedding work, and provider failures fail with
// services.ErrEmbeddingUnavailable unless temporal-only fallback is enabled.
func (e *Engine) Align(ctx context.Context, source, target []subtitles.Cue) (*Result, error) {
	ctx = services.WithStage(ctx, "align")
	logger := logging.WithContext(ctx, e.logger)
	started := time.Now()

	if len(source) == 0 {
		return nil, services.Wrap(services.ErrInput, "align", "validate", "source track has no cues", nil)
	}
	if err := subtitles.ValidateTrack("source", source); err != nil {
		return nil, err
	}
	if err := subtitles.ValidateTrack("target", target); err != nil {
		return nil, err
	}

	if len(target) == 0 {
		pairs := make([]AlignedPair, len(source))
		for i, cue := range source {
			pairs[i] = e.unmatchedPair(i, cue)
		}
		logger.Info("target track empty; all source cues unmatched", logging.Int("source_cues", len(source)))
		return &Result{Pairs: pairs, Summary: Summarize(pairs, 0)}, nil
	}

	if err := checkCells(len(source), len(target), e.opts.Solver.MaxCells); err != nil {
		logger.Warn("alignment rejected", logging.Error(err))
		return nil, err
	}

	sourceVecs, targetVecs, temporalOnly, err := e.embedTracks(ctx, logger, source, target)
	if err != nil {
		return nil, err
	}

	scorer := e.opts.Scorer
	candidate := func(i, j int) MatchCandidate {
		var vs, vt embedding.Vector
		if !temporalOnly {
			vs, vt = sourceVecs[i], targetVecs[j]
		}
		c := scorer.Pair(source[i], target[j], vs, vt)
		c.SourceIdx, c.TargetIdx = i, j
		return c
	}

	assignment, err := e.opts.Solver.Solve(len(source), len(target), func(i, j int) float64 {
		return candidate(i, j).Combined
	})
	if err != nil {
		return nil, err
	}

	pairs := make([]AlignedPair, len(source))
	for i, cue := range source {
		j := assignment.Match[i]
		if j < 0 {
			pairs[i] = e.unmatchedPair(i, cue)
			continue
		}
		c := candidate(i, j)
		status, label := e.opts.Classifier.Classify(c.Combined)
		pairs[i] = AlignedPair{
			Sequence:     i + 1,
			SourceText:   cue.Text,
			TargetText:   target[j].Text,
			SourceStart:  cue.Start,
			SourceEnd:    cue.End,
			TargetStart:  target[j].Start,
			TargetEnd:    target[j].End,
			Confidence:   c.Combined,
			Status:       status,
			QualityLabel: label,
			Matched:      true,
			TargetIndex:  j,
			Shared:       assignment.Shared[i],
			Temporal:     c.Temporal,
			Semantic:     c.Semantic,
		}
	}

	result := &Result{Pairs: pairs, Summary: Summarize(pairs, len(target)), TemporalOnly: temporalOnly}
	logger.Info("alignment complete",
		logging.Int("source_cues", len(source)),
		logging.Int("target_cues", len(target)),
		logging.Int("aligned", result.Summary.AlignedCount),
		logging.Int("review", result.Summary.ReviewCount),
		logging.Int("misaligned", result.Summary.MisalignedCount),
		logging.Bool("temporal_only", temporalOnly),
		logging.Duration("elapsed", time.Since(started)),
	)
	return result, nil
}

func (e *Engine) unmatchedPair(i int, cue subtitles.Cue) AlignedPair {
	return AlignedPair{
		Sequence:     i + 1,
		SourceText:   cue.Text,
		SourceStart:  cue.Start,
		SourceEnd:    cue.End,
		Status:       StatusMisaligned,
		QualityLabel: QualityLabel(StatusMisaligned),
		TargetIndex:  -1,
	}
}

// embedTracks resolves one unit vector per cue from a request-scoped set.
func (e *Engine) embedTracks(ctx context.Context, logger *slog.Logger, source, target []subtitles.Cue) ([]embedding.Vector, []embedding.Vector, bool, error) {
	ctx = services.WithStage(ctx, "embed")
	cleanedSource := cleanTexts(source)
	cleanedTarget := cleanTexts(target)

	if e.provider == nil {
		err := services.Wrap(services.ErrEmbeddingUnavailable, "embed", "resolve", "no embedding provider configured", nil)
		return e.fallback(logger, err)
	}

	texts := make([]string, 0, len(source)+len(target))
	texts = append(texts, cleanedSource...)
	texts = append(texts, cleanedTarget...)
	set, err := embedding.Build(ctx, e.provider, texts, e.opts.BatchSize)
	if err != nil {
		return e.fallback(logger, err)
	}
	logger.Debug("embeddings resolved",
		logging.Int("unique_texts", set.Len()),
		logging.Int("dimensions", set.Dim()),
		logging.String("provider", e.provider.Name()),
	)
	return unitVectors(set, cleanedSource), unitVectors(set, cleanedTarget), false, nil
}

func (e *Engine) fallback(logger *slog.Logger, err error) ([]embedding.Vector, []embedding.Vector, bool, error) {
	if !e.opts.AllowTemporalOnly || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		logging.ErrorWithContext(logger, "embedding failed", "embedding_unavailable",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the embedding provider; set alignment.allow_temporal_only to align on timing alone"),
		)
		return nil, nil, false, err
	}
	logging.WarnWithContext(logger, "embedding failed; aligning on timing only", "embedding_fallback",
		logging.Error(err),
		logging.String(logging.FieldImpact, "scores ignore meaning and confidence is lower"),
		logging.String(logging.FieldErrorHint, "check the embedding provider"),
	)
	return nil, nil, true, nil
}

func cleanTexts(cues []subtitles.Cue) []string {
	out := make([]string, len(cues))
	for i, cue := range cues {
		out[i] = subtitles.CleanText(cue.Text)
	}
	return out
}

func unitVectors(set *embedding.Set, texts []string) []embedding.Vector {
	out := make([]embedding.Vector, len(texts))
	for i, text := range texts {
		vec, _ := set.Lookup(text)
		unit := make(embedding.Vector, len(vec))
		copy(unit, vec)
		textutil.Normalize(unit)
		out[i] = unit
	}
	return out
}
