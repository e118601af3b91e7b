package subtitles

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ParseSRT reads SRT text. CRLF line endings and a leading BOM are accepted,
// multi-line cue text is joined with a single space, and blocks without a
// usable index, timing line, or text are skipped. The result is stably sorted
// by start time.
func ParseSRT(data []byte) []Cue {
	content := normalizeNewlines(string(data))
	var cues []Cue
	for _, block := range splitBlocks(content) {
		cue, ok := parseBlock(block)
		if !ok {
			continue
		}
		cues = append(cues, cue)
	}
	sort.SliceStable(cues, func(i, j int) bool { return cues[i].Start < cues[j].Start })
	return cues
}

func normalizeNewlines(content string) string {
	content = strings.TrimPrefix(content, "\ufeff")
	content = strings.ReplaceAll(content, "\r\n", "\n")
	return strings.ReplaceAll(content, "\r", "\n")
}

// splitBlocks separates cue blocks on blank lines. Lines holding only
// whitespace count as blank.
func splitBlocks(content string) [][]string {
	var blocks [][]string
	var current []string
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" {
			if len(current) > 0 {
				blocks = append(blocks, current)
				current = nil
			}
			continue
		}
		current = append(current, strings.TrimRight(line, " \t"))
	}
	if len(current) > 0 {
		blocks = append(blocks, current)
	}
	return blocks
}

func parseBlock(lines []string) (Cue, bool) {
	if len(lines) < 3 {
		return Cue{}, false
	}
	index, err := strconv.Atoi(strings.TrimSpace(lines[0]))
	if err != nil || index < 1 {
		return Cue{}, false
	}
	start, end, err := ParseTimingLine(lines[1])
	if err != nil || end < start {
		return Cue{}, false
	}
	text := joinText(lines[2:])
	if text == "" {
		return Cue{}, false
	}
	return Cue{Sequence: index, Start: start, End: end, Text: text}, true
}

// joinText folds cue lines into one line with single spaces between words.
// This is the canonical cue text; WriteMerged emits it unchanged.
func joinText(lines []string) string {
	var words []string
	for _, line := range lines {
		words = append(words, strings.Fields(line)...)
	}
	return strings.Join(words, " ")
}

// ParseTimingLine parses "HH:MM:SS,mmm --> HH:MM:SS,mmm". Anything after the
// end timestamp (position hints) is ignored.
func ParseTimingLine(line string) (time.Duration, time.Duration, error) {
	left, right, ok := strings.Cut(line, "-->")
	if !ok {
		return 0, 0, fmt.Errorf("timing line %q: missing -->", line)
	}
	start, err := ParseTimestamp(left)
	if err != nil {
		return 0, 0, err
	}
	fields := strings.Fields(right)
	if len(fields) == 0 {
		return 0, 0, fmt.Errorf("timing line %q: missing end", line)
	}
	end, err := ParseTimestamp(fields[0])
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// ParseTimestamp parses an SRT timestamp. A period is accepted in place of the
// comma, and fractions shorter than three digits are scaled.
func ParseTimestamp(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	value = strings.ReplaceAll(value, ".", ",")
	clock, fraction, _ := strings.Cut(value, ",")
	hms := strings.Split(clock, ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	if errH != nil || errM != nil || errS != nil || hours < 0 || minutes < 0 || minutes > 59 || seconds < 0 || seconds > 59 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	millis := 0
	if fraction != "" {
		if len(fraction) > 3 {
			fraction = fraction[:3]
		}
		parsed, err := strconv.Atoi(fraction)
		if err != nil || parsed < 0 {
			return 0, fmt.Errorf("invalid timestamp %q", value)
		}
		for i := len(fraction); i < 3; i++ {
			parsed *= 10
		}
		millis = parsed
	}
	total := time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		time.Duration(millis)*time.Millisecond
	return total, nil
}

// FormatTimestamp renders d as HH:MM:SS,mmm, truncating below a millisecond.
func FormatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	totalMillis := int64(d / time.Millisecond)
	hours := totalMillis / 3_600_000
	minutes := (totalMillis / 60_000) % 60
	seconds := (totalMillis / 1000) % 60
	millis := totalMillis % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, seconds, millis)
}
