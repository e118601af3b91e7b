package align

import "fmt"

// Status is the confidence tier of an aligned pair.
type Status uint8

const (
	StatusMisaligned Status = iota
	StatusReview
	StatusAligned
)

func (s Status) String() string {
	switch s {
	case StatusAligned:
		return "ALIGNED"
	case StatusReview:
		return "REVIEW"
	case StatusMisaligned:
		return "MISALIGNED"
	default:
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
}

// ParseStatus is the inverse of String.
func ParseStatus(value string) (Status, error) {
	switch value {
	case "ALIGNED":
		return StatusAligned, nil
	case "REVIEW":
		return StatusReview, nil
	case "MISALIGNED":
		return StatusMisaligned, nil
	default:
		return StatusMisaligned, fmt.Errorf("unknown status %q", value)
	}
}

func (s Status) MarshalText() ([]byte, error) {
	switch s {
	case StatusAligned, StatusReview, StatusMisaligned:
		return []byte(s.String()), nil
	default:
		return nil, fmt.Errorf("cannot marshal %s", s)
	}
}

func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
