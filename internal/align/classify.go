package align

const (
	labelAligned    = "High confidence match"
	labelReview     = "Possible match, please verify"
	labelMisaligned = "Low confidence — manual review required"
)

// Classifier maps a combined score to a tier. A score strictly above
// AlignedThreshold is ALIGNED, strictly above ReviewThreshold is REVIEW, and
// anything else is MISALIGNED.
type Classifier struct {
	AlignedThreshold float64
	ReviewThreshold  float64
}

// DefaultClassifier uses the 0.7 / 0.4 thresholds.
func DefaultClassifier() Classifier {
	return Classifier{AlignedThreshold: 0.7, ReviewThreshold: 0.4}
}

// Classify returns the tier and its quality label.
func (c Classifier) Classify(score float64) (Status, string) {
	switch {
	case score > c.AlignedThreshold:
		return StatusAligned, labelAligned
	case score > c.ReviewThreshold:
		return StatusReview, labelReview
	default:
		return StatusMisaligned, labelMisaligned
	}
}

// QualityLabel returns the fixed label for a status.
func QualityLabel(s Status) string {
	switch s {
	case StatusAligned:
		return labelAligned
	case StatusReview:
		return labelReview
	case StatusMisaligned:
		return labelMisaligned
	default:
		return ""
	}
}
