package main

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"subalign/internal/align"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
)

func statusColor(status align.Status) string {
	switch status {
	case align.StatusAligned:
		return ansiGreen
	case align.StatusReview:
		return ansiYellow
	case align.StatusMisaligned:
		return ansiRed
	default:
		return ""
	}
}

func renderStatus(status align.Status, colorize bool) string {
	label := status.String()
	color := statusColor(status)
	if !colorize || color == "" {
		return label
	}
	return color + label + ansiReset
}

func shouldColorize(writer io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
