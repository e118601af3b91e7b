package align_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"subalign/internal/align"
	"subalign/internal/embedding"
	"subalign/internal/services"
	"subalign/internal/subtitles"
)

type tableProvider struct {
	mu      sync.Mutex
	vectors map[string]embedding.Vector
	calls   int
	seen    []string
	err     error
}

func (p *tableProvider) Name() string { return "table" }

func (p *tableProvider) Embed(_ context.Context, texts []string) ([]embedding.Vector, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.seen = append(p.seen, texts...)
	if p.err != nil {
		return nil, p.err
	}
	out := make([]embedding.Vector, len(texts))
	for i, text := range texts {
		vec, ok := p.vectors[text]
		if !ok {
			vec = embedding.Vector{0, 0, 0, 1}
		}
		out[i] = vec
	}
	return out, nil
}

func cue(seq int, start, end float64, text string) subtitles.Cue {
	return subtitles.Cue{
		Sequence: seq,
		Start:    time.Duration(start * float64(time.Second)),
		End:      time.Duration(end * float64(time.Second)),
		Text:     text,
	}
}

func helloProvider() *tableProvider {
	return &tableProvider{vectors: map[string]embedding.Vector{
		"Hello":   {1, 0, 0, 0},
		"你好":      {0.99, 0.05, 0, 0},
		"Goodbye": {0, 1, 0, 0},
		"再见":      {0.05, 0.99, 0, 0},
	}}
}

func TestAlignHelloGoodbyeScenario(t *testing.T) {
	source := []subtitles.Cue{cue(1, 0, 2, "Hello"), cue(2, 2, 4, "Goodbye")}
	target := []subtitles.Cue{cue(1, 0.1, 2.1, "你好"), cue(2, 2.1, 4.1, "再见")}

	engine := align.NewEngine(helloProvider(), align.DefaultOptions(), nil)
	result, err := engine.Align(context.Background(), source, target)
	if err != nil {
		t.Fatalf("Align: %v", err)
	}
	if len(result.Pairs) != 2 {
		t.Fatalf("expected 2 pairs, got %d", len(result.Pairs))
	}
	wantTargets := []string{"你好", "再见"}
	for i, pair := range result.Pairs {
		if pair.Status != align.StatusAligned {
			t.Errorf("pair %d status = %s, want ALIGNED", i, pair.Status)
		}
		if pair.Confidence <= 0.7 {
			t.Errorf("pair %d confidence = %v, want > 0.7", i, pair.Confidence)
		}
		if pair.TargetText != wantTargets[i] {
			t.Errorf("pair %d target = %q, want %q", i, pair.TargetText, wantTargets[i])
		}
		if pair.Sequence != i+1 {
			t.Errorf("pair %d sequence = %d", i, pair.Sequence)
		}
	}
	if result.Summary.AlignedCount != 2 || result.Summary.TotalSource != 2 || result.Summary.UnmatchedTargets != 0 {
		t.Fatalf("unexpected summary: %+v", result.Summary)
	}
}

func TestAlignEmptyTargetScenario(t *testing.T) {
	provider := helloProvider()
	source := []subtitles.Cue{cue(1, 0, 2, "Hello"), cue(2, 2, 4, "Goodbye")}

	result, err := align.NewEngine(provider, align.DefaultOptions(), nil).Align(context.Background(), source, nil)
	if err != nil {
		t.Fatalf("Align: %v", err)
	}
	if len(result.Pairs) != 2 {
		t.Fatalf("expected 2 pairs, got %d", len(result.Pairs))
	}
	for i, pair := range result.Pairs {
		if pair.Status != align.StatusMisaligned || pair.TargetText != "" || pair.Confidence != 0 || pair.Matched {
			t.Errorf("pair %d = %+v, want unmatched MISALIGNED", i, pair)
		}
	}
	if result.Summary.MisalignedCount != 2 {
		t.Fatalf("unexpected summary: %+v", result.Summary)
	}
	if provider.calls != 0 {
		t.Fatalf("provider should not be called for an empty target track")
	}
}

func TestAlignUnrelatedOverlapLandsInReview(t *testing.T) {
	provider := &tableProvider{vectors: map[string]embedding.Vector{
		"The train leaves at noon": {1, 0, 0, 0},
		"我喜欢猫":                     {0, 1, 0, 0},
	}}
	source := []subtitles.Cue{cue(1, 0, 2, "The train leaves at noon")}
	target := []subtitles.Cue{cue(1, 0, 2, "我喜欢猫")}

	result, err := align.NewEngine(provider, align.DefaultOptions(), nil).Align(context.Background(), source, target)
	if err != nil {
		t.Fatalf("Align: %v", err)
	}
	pair := result.Pairs[0]
	if pair.Status != align.StatusReview {
		t.Fatalf("status = %s (confidence %v), want REVIEW", pair.Status, pair.Confidence)
	}
	if pair.Temporal != 1 || pair.Semantic != 0.5 {
		t.Fatalf("unexpected component scores: temporal=%v semantic=%v", pair.Temporal, pair.Semantic)
	}
}

func TestAlignRejectsInvalidInput(t *testing.T) {
	engine := align.NewEngine(helloProvider(), align.DefaultOptions(), nil)
	tests := map[string][2][]subtitles.Cue{
		"empty source":    {nil, {cue(1, 0, 1, "你好")}},
		"unsorted source": {{cue(1, 3, 4, "Hello"), cue(2, 0, 1, "Goodbye")}, {cue(1, 0, 1, "你好")}},
		"blank target":    {{cue(1, 0, 1, "Hello")}, {cue(1, 0, 1, " ")}},
		"end before":      {{cue(1, 2, 1, "Hello")}, {cue(1, 0, 1, "你好")}},
	}
	for name, tracks := range tests {
		_, err := engine.Align(context.Background(), tracks[0], tracks[1])
		if !errors.Is(err, services.ErrInput) {
			t.Errorf("%s: expected ErrInput, got %v", name, err)
		}
	}
}

func TestAlignProviderFailure(t *testing.T) {
	provider := &tableProvider{err: errors.New("connection refused")}
	source := []subtitles.Cue{cue(1, 0, 2, "Hello")}
	target := []subtitles.Cue{cue(1, 0, 2, "你好")}

	_, err := align.NewEngine(provider, align.DefaultOptions(), nil).Align(context.Background(), source, target)
	if !errors.Is(err, services.ErrEmbeddingUnavailable) {
		t.Fatalf("expected ErrEmbeddingUnavailable, got %v", err)
	}

	opts := align.DefaultOptions()
	opts.AllowTemporalOnly = true
	result, err := align.NewEngine(provider, opts, nil).Align(context.Background(), source, target)
	if err != nil {
		t.Fatalf("temporal-only fallback should succeed: %v", err)
	}
	if !result.TemporalOnly {
		t.Fatal("expected TemporalOnly flag")
	}
	if result.Pairs[0].TargetText != "你好" || result.Pairs[0].Confidence != 1 {
		t.Fatalf("unexpected fallback pair: %+v", result.Pairs[0])
	}
}

func TestAlignResourceLimitFailsBeforeEmbedding(t *testing.T) {
	provider := helloProvider()
	opts := align.DefaultOptions()
	opts.Solver.MaxCells = 3
	source := []subtitles.Cue{cue(1, 0, 1, "Hello"), cue(2, 1, 2, "Goodbye")}
	target := []subtitles.Cue{cue(1, 0, 1, "你好"), cue(2, 1, 2, "再见")}

	_, err := align.NewEngine(provider, opts, nil).Align(context.Background(), source, target)
	var limit *align.ResourceLimitError
	if !errors.As(err, &limit) || limit.Source != 2 || limit.Target != 2 {
		t.Fatalf("expected ResourceLimitError with dimensions, got %v", err)
	}
	if services.HTTPStatus(err) != 413 {
		t.Fatalf("expected 413 mapping, got %d", services.HTTPStatus(err))
	}
	if provider.calls != 0 {
		t.Fatal("provider must not be called for oversized input")
	}
}

func TestAlignEmbedsEachDistinctTextOnce(t *testing.T) {
	provider := helloProvider()
	source := []subtitles.Cue{cue(1, 0, 1, "Hello"), cue(2, 1, 2, "Hello"), cue(3, 2, 3, "Goodbye")}
	target := []subtitles.Cue{cue(1, 0, 1, "你好"), cue(2, 2, 3, "再见"), cue(3, 3, 4, "你好")}

	if _, err := align.NewEngine(provider, align.DefaultOptions(), nil).Align(context.Background(), source, target); err != nil {
		t.Fatalf("Align: %v", err)
	}
	counts := map[string]int{}
	for _, text := range provider.seen {
		counts[text]++
	}
	for text, n := range counts {
		if n != 1 {
			t.Errorf("%q embedded %d times", text, n)
		}
	}
	if len(counts) != 4 {
		t.Fatalf("expected 4 distinct texts, got %v", counts)
	}
}

func TestAlignEmbedsCleanedText(t *testing.T) {
	provider := helloProvider()
	source := []subtitles.Cue{cue(1, 0, 2, "OMAR: (sighs) Hello")}
	target := []subtitles.Cue{cue(1, 0, 2, "<i>你好</i>")}

	result, err := align.NewEngine(provider, align.DefaultOptions(), nil).Align(context.Background(), source, target)
	if err != nil {
		t.Fatalf("Align: %v", err)
	}
	if strings.Join(provider.seen, "|") != "Hello|你好" {
		t.Fatalf("provider saw %v", provider.seen)
	}
	if result.Pairs[0].SourceText != "OMAR: (sighs) Hello" {
		t.Fatalf("output must keep original text, got %q", result.Pairs[0].SourceText)
	}
}

func TestAlignPropertiesAndIdempotence(t *testing.T) {
	source := []subtitles.Cue{
		cue(1, 0, 2, "Hello"), cue(2, 2, 4, "Goodbye"), cue(3, 4, 5, "Hello"),
		cue(4, 5, 7, "Goodbye"), cue(5, 30, 31, "Hello"),
	}
	target := []subtitles.Cue{
		cue(1, 0.2, 2.1, "你好"), cue(2, 2.5, 3.9, "再见"), cue(3, 5.2, 7, "再见"),
	}
	engine := align.NewEngine(helloProvider(), align.DefaultOptions(), nil)

	first, err := engine.Align(context.Background(), source, target)
	if err != nil {
		t.Fatalf("Align: %v", err)
	}
	second, err := engine.Align(context.Background(), source, target)
	if err != nil {
		t.Fatalf("Align: %v", err)
	}
	if len(first.Pairs) != len(source) {
		t.Fatalf("expected %d pairs, got %d", len(source), len(first.Pairs))
	}
	last := -1
	for i, pair := range first.Pairs {
		if pair != second.Pairs[i] {
			t.Fatalf("pair %d differs between runs: %+v vs %+v", i, pair, second.Pairs[i])
		}
		if pair.Sequence != i+1 || pair.SourceText != source[i].Text || pair.SourceStart != source[i].Start {
			t.Fatalf("pair %d out of source order: %+v", i, pair)
		}
		if pair.Matched {
			if pair.TargetIndex < last {
				t.Fatalf("pair %d crosses an earlier match", i)
			}
			last = pair.TargetIndex
		} else if pair.Status != align.StatusMisaligned || pair.Confidence != 0 {
			t.Fatalf("unmatched pair %d must be MISALIGNED with zero confidence", i)
		}
	}
	if first.Pairs[4].Matched {
		t.Fatalf("cue far outside every target should stay unmatched: %+v", first.Pairs[4])
	}
}

func TestRenderMergedRoundTrip(t *testing.T) {
	source := []subtitles.Cue{cue(1, 0, 2, "Hello"), cue(2, 2, 4, "Goodbye"), cue(3, 60, 61, "Hello")}
	target := []subtitles.Cue{cue(1, 0.1, 2.1, "你好"), cue(2, 2.1, 4.1, "再见")}
	opts := align.DefaultOptions()
	opts.Solver.ShareTolerance = 0
	result, err := align.NewEngine(helloProvider(), opts, nil).Align(context.Background(), source, target)
	if err != nil {
		t.Fatalf("Align: %v", err)
	}

	var sb strings.Builder
	n, err := align.RenderMerged(&sb, result.Pairs, align.RenderOptions{})
	if err != nil {
		t.Fatalf("RenderMerged: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 blocks, got %d", n)
	}
	blocks, err := subtitles.ParseMerged([]byte(sb.String()))
	if err != nil {
		t.Fatalf("ParseMerged: %v", err)
	}
	for i, pair := range result.Pairs {
		b := blocks[i]
		if b.Start != pair.SourceStart || b.End != pair.SourceEnd || b.Source != pair.SourceText || b.Target != pair.TargetText {
			t.Errorf("block %d = %+v does not round-trip pair %+v", i, b, pair)
		}
	}

	sb.Reset()
	n, err = align.RenderMerged(&sb, result.Pairs, align.RenderOptions{OmitMisaligned: true})
	if err != nil {
		t.Fatalf("RenderMerged: %v", err)
	}
	if n != 2 || strings.Contains(sb.String(), "\n3\n") {
		t.Fatalf("expected misaligned pair omitted and numbering sequential, got %d blocks:\n%s", n, sb.String())
	}
}

func TestRenderMergedRoundTripsParsedWhitespace(t *testing.T) {
	source := subtitles.ParseSRT([]byte("1\n00:00:00,000 --> 00:00:02,000\nWait  -  what?\n\n2\n00:00:02,000 --> 00:00:04,000\n  Hello \n\tthere\n"))
	target := subtitles.ParseSRT([]byte("1\n00:00:00,100 --> 00:00:02,100\n等  一下\n"))
	if len(source) != 2 || len(target) != 1 {
		t.Fatalf("unexpected parse: %d source, %d target", len(source), len(target))
	}
	if source[0].Text != "Wait - what?" || source[1].Text != "Hello there" || target[0].Text != "等 一下" {
		t.Fatalf("expected canonical cue text, got %q %q %q", source[0].Text, source[1].Text, target[0].Text)
	}

	result, err := align.NewEngine(embedding.NewLexical(64), align.DefaultOptions(), nil).Align(context.Background(), source, target)
	if err != nil {
		t.Fatalf("Align: %v", err)
	}
	var sb strings.Builder
	if _, err := align.RenderMerged(&sb, result.Pairs, align.RenderOptions{}); err != nil {
		t.Fatalf("RenderMerged: %v", err)
	}
	blocks, err := subtitles.ParseMerged([]byte(sb.String()))
	if err != nil {
		t.Fatalf("ParseMerged: %v", err)
	}
	if len(blocks) != len(result.Pairs) {
		t.Fatalf("expected %d blocks, got %d", len(result.Pairs), len(blocks))
	}
	for i, pair := range result.Pairs {
		b := blocks[i]
		if b.Source != pair.SourceText || b.Target != pair.TargetText || b.Start != pair.SourceStart || b.End != pair.SourceEnd {
			t.Errorf("block %d = %+v does not round-trip pair %+v", i, b, pair)
		}
	}
}

func TestRecordsRoundTrip(t *testing.T) {
	source := []subtitles.Cue{cue(1, 0, 2, "Hello"), cue(2, 50, 52, "Goodbye")}
	target := []subtitles.Cue{cue(1, 0.1, 2.1, "你好")}
	result, err := align.NewEngine(helloProvider(), align.DefaultOptions(), nil).Align(context.Background(), source, target)
	if err != nil {
		t.Fatalf("Align: %v", err)
	}
	pairs, err := align.PairsFromRecords(align.Records(result.Pairs))
	if err != nil {
		t.Fatalf("PairsFromRecords: %v", err)
	}
	for i := range pairs {
		got, want := pairs[i], result.Pairs[i]
		if got.SourceStart != want.SourceStart || got.SourceEnd != want.SourceEnd ||
			got.TargetText != want.TargetText || got.Status != want.Status || got.Matched != want.Matched {
			t.Errorf("record %d did not round-trip: %+v vs %+v", i, got, want)
		}
	}
	if _, err := align.PairsFromRecords([]align.PairRecord{{SourceStart: "bad", SourceEnd: "00:00:01,000"}}); err == nil {
		t.Fatal("expected error for malformed timestamp")
	}
}
