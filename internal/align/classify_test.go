package align

import (
	"encoding/json"
	"testing"
)

func TestClassifyBoundaries(t *testing.T) {
	c := DefaultClassifier()
	tests := []struct {
		score float64
		want  Status
		label string
	}{
		{1.0, StatusAligned, "High confidence match"},
		{0.7000001, StatusAligned, "High confidence match"},
		{0.7, StatusReview, "Possible match, please verify"},
		{0.5, StatusReview, "Possible match, please verify"},
		{0.4000001, StatusReview, "Possible match, please verify"},
		{0.4, StatusMisaligned, "Low confidence — manual review required"},
		{0, StatusMisaligned, "Low confidence — manual review required"},
	}
	for _, tc := range tests {
		status, label := c.Classify(tc.score)
		if status != tc.want || label != tc.label {
			t.Errorf("Classify(%v) = (%s, %q), want (%s, %q)", tc.score, status, label, tc.want, tc.label)
		}
		if QualityLabel(status) != label {
			t.Errorf("QualityLabel(%s) = %q, want %q", status, QualityLabel(status), label)
		}
	}
}

func TestClassifyCustomThresholds(t *testing.T) {
	c := Classifier{AlignedThreshold: 0.9, ReviewThreshold: 0.5}
	if status, _ := c.Classify(0.8); status != StatusReview {
		t.Fatalf("expected REVIEW under custom thresholds, got %s", status)
	}
	if status, _ := c.Classify(0.5); status != StatusMisaligned {
		t.Fatalf("expected MISALIGNED at custom review boundary, got %s", status)
	}
}

func TestStatusJSON(t *testing.T) {
	for _, status := range []Status{StatusAligned, StatusReview, StatusMisaligned} {
		data, err := json.Marshal(status)
		if err != nil {
			t.Fatalf("marshal %s: %v", status, err)
		}
		if string(data) != `"`+status.String()+`"` {
			t.Fatalf("unexpected encoding %s", data)
		}
		var decoded Status
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("unmarshal %s: %v", data, err)
		}
		if decoded != status {
			t.Fatalf("decoded %s, want %s", decoded, status)
		}
	}
	var s Status
	if err := json.Unmarshal([]byte(`"MAYBE"`), &s); err == nil {
		t.Fatal("expected error for unknown status")
	}
	if _, err := json.Marshal(Status(9)); err == nil {
		t.Fatal("expected error marshaling out-of-range status")
	}
}

func TestQualityLabelUnknownStatusIsEmpty(t *testing.T) {
	if got := QualityLabel(Status(9)); got != "" {
		t.Fatalf("QualityLabel(unknown) = %q, want empty", got)
	}
}
