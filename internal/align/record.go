package align

import (
	"fmt"
	"strings"

	"subalign/internal/subtitles"
)

// PairRecord is the JSON form of an AlignedPair, with SRT-style timestamps.
type PairRecord struct {
	Sequence      int     `json:"sequence"`
	SourceText    string  `json:"source_text"`
	TargetText    string  `json:"target_text"`
	SourceStart   string  `json:"source_start"`
	SourceEnd     string  `json:"source_end"`
	TargetStart   string  `json:"target_start,omitempty"`
	TargetEnd     string  `json:"target_end,omitempty"`
	Confidence    float64 `json:"confidence"`
	Status        Status  `json:"status"`
	QualityLabel  string  `json:"quality_label"`
	Matched       bool    `json:"matched"`
	Shared        bool    `json:"shared,omitempty"`
	TemporalScore float64 `json:"temporal_score"`
	SemanticScore float64 `json:"semantic_score"`
}

// Records converts pairs for serialization.
func Records(pairs []AlignedPair) []PairRecord {
	out := make([]PairRecord, len(pairs))
	for i, pair := range pairs {
		rec := PairRecord{
			Sequence:      pair.Sequence,
			SourceText:    pair.SourceText,
			TargetText:    pair.TargetText,
			SourceStart:   subtitles.FormatTimestamp(pair.SourceStart),
			SourceEnd:     subtitles.FormatTimestamp(pair.SourceEnd),
			Confidence:    pair.Confidence,
			Status:        pair.Status,
			QualityLabel:  pair.QualityLabel,
			Matched:       pair.Matched,
			Shared:        pair.Shared,
			TemporalScore: pair.Temporal,
			SemanticScore: pair.Semantic,
		}
		if pair.Matched {
			rec.TargetStart = subtitles.FormatTimestamp(pair.TargetStart)
			rec.TargetEnd = subtitles.FormatTimestamp(pair.TargetEnd)
		}
		out[i] = rec
	}
	return out
}

// PairsFromRecords parses records produced by Records, typically edited by a
// reviewer before merging. Only source timing is required.
func PairsFromRecords(records []PairRecord) ([]AlignedPair, error) {
	out := make([]AlignedPair, len(records))
	for i, rec := range records {
		start, err := subtitles.ParseTimestamp(rec.SourceStart)
		if err != nil {
			return nil, fmt.Errorf("pair %d: source_start: %w", i+1, err)
		}
		end, err := subtitles.ParseTimestamp(rec.SourceEnd)
		if err != nil {
			return nil, fmt.Errorf("pair %d: source_end: %w", i+1, err)
		}
		if end < start {
			return nil, fmt.Errorf("pair %d: source_end before source_start", i+1)
		}
		pair := AlignedPair{
			Sequence:     rec.Sequence,
			SourceText:   rec.SourceText,
			TargetText:   rec.TargetText,
			SourceStart:  start,
			SourceEnd:    end,
			Confidence:   rec.Confidence,
			Status:       rec.Status,
			QualityLabel: rec.QualityLabel,
			Matched:      rec.Matched || strings.TrimSpace(rec.TargetText) != "",
			Shared:       rec.Shared,
			TargetIndex:  -1,
			Temporal:     rec.TemporalScore,
			Semantic:     rec.SemanticScore,
		}
		if rec.TargetStart != "" {
			if pair.TargetStart, err = subtitles.ParseTimestamp(rec.TargetStart); err != nil {
				return nil, fmt.Errorf("pair %d: target_start: %w", i+1, err)
			}
		}
		if rec.TargetEnd != "" {
			if pair.TargetEnd, err = subtitles.ParseTimestamp(rec.TargetEnd); err != nil {
				return nil, fmt.Errorf("pair %d: target_end: %w", i+1, err)
			}
		}
		out[i] = pair
	}
	return out, nil
}
