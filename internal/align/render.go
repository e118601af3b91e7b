package align

import (
	"io"

	"subalign/internal/subtitles"
)

// RenderOptions controls merged output.
type RenderOptions struct {
	// OmitMisaligned drops MISALIGNED pairs; numbering stays sequential.
	OmitMisaligned bool
}

// RenderMerged writes pairs as a bilingual SRT document using source timing,
// target text above source text. It returns the number of blocks written.
func RenderMerged(w io.Writer, pairs []AlignedPair, opts RenderOptions) (int, error) {
	blocks := make([]subtitles.MergedBlock, 0, len(pairs))
	for _, pair := range pairs {
		if opts.OmitMisaligned && pair.Status == StatusMisaligned {
			continue
		}
		blocks = append(blocks, subtitles.MergedBlock{
			Start:  pair.SourceStart,
			End:    pair.SourceEnd,
			Target: pair.TargetText,
			Source: pair.SourceText,
		})
	}
	if err := subtitles.WriteMerged(w, blocks); err != nil {
		return 0, err
	}
	return len(blocks), nil
}
