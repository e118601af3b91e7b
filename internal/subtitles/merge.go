package subtitles

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// MergedBlock is one bilingual output block. Target renders above Source.
type MergedBlock struct {
	Start  time.Duration
	End    time.Duration
	Target string
	Source string
}

// WriteMerged renders blocks as a bilingual SRT document with LF line endings.
// Blocks are numbered from 1 in slice order. An empty Target or Source line is
// omitted rather than written blank, since a blank line ends an SRT block.
func WriteMerged(w io.Writer, blocks []MergedBlock) error {
	var sb strings.Builder
	for i, block := range blocks {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(strconv.Itoa(i + 1))
		sb.WriteByte('\n')
		sb.WriteString(FormatTimestamp(block.Start))
		sb.WriteString(" --> ")
		sb.WriteString(FormatTimestamp(block.End))
		sb.WriteByte('\n')
		wrote := false
		for _, line := range []string{block.Target, block.Source} {
			line = singleLine(line)
			if line == "" {
				continue
			}
			sb.WriteString(line)
			sb.WriteByte('\n')
			wrote = true
		}
		if !wrote {
			sb.WriteString("...\n")
		}
	}
	if _, err := io.WriteString(w, sb.String()); err != nil {
		return fmt.Errorf("write merged srt: %w", err)
	}
	return nil
}

// ParseMerged reads a document produced by WriteMerged. A block with two text
// lines yields Target then Source; a block with a single text line is treated
// as source-only.
func ParseMerged(data []byte) ([]MergedBlock, error) {
	content := normalizeNewlines(string(data))
	var blocks []MergedBlock
	for n, lines := range splitBlocks(content) {
		if len(lines) < 3 {
			return nil, fmt.Errorf("block %d: expected index, timing, and text lines", n+1)
		}
		if _, err := strconv.Atoi(strings.TrimSpace(lines[0])); err != nil {
			return nil, fmt.Errorf("block %d: invalid index %q", n+1, lines[0])
		}
		start, end, err := ParseTimingLine(lines[1])
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", n+1, err)
		}
		block := MergedBlock{Start: start, End: end}
		text := lines[2:]
		switch len(text) {
		case 1:
			block.Source = joinText(text)
		default:
			block.Target = joinText(text[:1])
			block.Source = joinText(text[1:])
		}
		blocks = append(blocks, block)
	}
	return blocks, nil
}

func singleLine(text string) string {
	return joinText([]string{text})
}
