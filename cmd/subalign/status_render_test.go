package main

import (
	"bytes"
	"testing"

	"subalign/internal/align"
)

func TestRenderStatusColorsEveryTier(t *testing.T) {
	tests := []struct {
		status align.Status
		color  string
	}{
		{align.StatusAligned, ansiGreen},
		{align.StatusReview, ansiYellow},
		{align.StatusMisaligned, ansiRed},
	}
	for _, tc := range tests {
		want := tc.color + tc.status.String() + ansiReset
		if got := renderStatus(tc.status, true); got != want {
			t.Errorf("renderStatus(%s, true) = %q, want %q", tc.status, got, want)
		}
		if got := renderStatus(tc.status, false); got != tc.status.String() {
			t.Errorf("renderStatus(%s, false) = %q", tc.status, got)
		}
	}
}

func TestRenderStatusLeavesUnknownStatusPlain(t *testing.T) {
	unknown := align.Status(9)
	if got := renderStatus(unknown, true); got != "Status(9)" {
		t.Fatalf("renderStatus(unknown) = %q", got)
	}
}

func TestShouldColorizeRejectsNonTerminals(t *testing.T) {
	if shouldColorize(&bytes.Buffer{}) {
		t.Fatal("buffers are never terminals")
	}
}
