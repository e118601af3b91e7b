package subtitles

import (
	"fmt"
	"strings"
	"time"

	"subalign/internal/services"
)

// Cue is one timed subtitle entry. Cues are treated as immutable once parsed.
type Cue struct {
	Sequence int           `json:"sequence"`
	Start    time.Duration `json:"start"`
	End      time.Duration `json:"end"`
	Text     string        `json:"text"`
}

// Duration returns End - Start.
func (c Cue) Duration() time.Duration {
	return c.End - c.Start
}

// Validate reports whether the cue satisfies the model constraints.
func (c Cue) Validate() error {
	if c.Sequence < 1 {
		return fmt.Errorf("sequence %d must be >= 1", c.Sequence)
	}
	if c.Start < 0 {
		return fmt.Errorf("cue %d: negative start %s", c.Sequence, c.Start)
	}
	if c.End < c.Start {
		return fmt.Errorf("cue %d: end %s before start %s", c.Sequence, FormatTimestamp(c.End), FormatTimestamp(c.Start))
	}
	if strings.TrimSpace(c.Text) == "" {
		return fmt.Errorf("cue %d: empty text", c.Sequence)
	}
	return nil
}

// ValidateTrack checks every cue and the start-ascending order of the track.
// Failures are wrapped with services.ErrInput.
func ValidateTrack(name string, cues []Cue) error {
	for i, cue := range cues {
		if err := cue.Validate(); err != nil {
			return services.Wrap(services.ErrInput, "parse", "validate "+name, "invalid cue", err)
		}
		if i > 0 && cue.Start < cues[i-1].Start {
			return services.Wrap(services.ErrInput, "parse", "validate "+name, "cues out of order",
				fmt.Errorf("cue %d starts at %s before previous cue at %s", cue.Sequence, FormatTimestamp(cue.Start), FormatTimestamp(cues[i-1].Start)))
		}
	}
	return nil
}
