package subtitles

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	speakerLabelPattern = regexp.MustCompile(`^[A-Z][A-Z0-9 .'-]*:\s*`)
	soundEffectPattern  = regexp.MustCompile(`\([^)]*\)|\[[^\]]*\]|（[^）]*）|【[^】]*】`)
	markupPattern       = regexp.MustCompile(`<[^>]*>|\{\\[^}]*\}`)
	musicPattern        = regexp.MustCompile(`[♪♫]+`)
	dialogueDashPattern = regexp.MustCompile(`^-\s*`)
)

// CleanText prepares cue text for embedding. It applies NFKC normalization,
// drops HTML and ASS override tags, bracketed sound effects, music markers,
// leading speaker labels ("OMAR: "), and dialogue dashes, then collapses
// whitespace. When nothing survives, the trimmed original is returned so every
// cue still has comparable text.
func CleanText(text string) string {
	original := strings.Join(strings.Fields(text), " ")
	cleaned := norm.NFKC.String(text)
	cleaned = markupPattern.ReplaceAllString(cleaned, "")
	cleaned = soundEffectPattern.ReplaceAllString(cleaned, " ")
	cleaned = musicPattern.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(cleaned)
	cleaned = speakerLabelPattern.ReplaceAllString(cleaned, "")
	cleaned = dialogueDashPattern.ReplaceAllString(cleaned, "")
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	if cleaned == "" {
		return original
	}
	return cleaned
}
