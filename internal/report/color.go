package report

import (
	"os"

	"github.com/mattn/go-isatty"
)

// ANSI escape codes.
const (
	reset = "\033[0m"
	bold  = "\033[1m"
	dim   = "\033[2m"

	red    = "\033[31m"
	green  = "\033[32m"
	yellow = "\033[33m"
	cyan   = "\033[36m"
	white  = "\033[37m"

	brightRed   = "\033[91m"
	brightGreen = "\033[92m"
	brightWhite = "\033[97m"
)

// styler wraps text in ANSI codes when enabled.
type styler struct {
	enabled bool
}

func (s styler) c(style, text string) string {
	if !s.enabled {
		return text
	}
	return style + text + reset
}

func (s styler) cb(style, text string) string {
	if !s.enabled {
		return text
	}
	return bold + style + text + reset
}

// ColorWanted reports whether colored output should go to f. NO_COLOR wins
// over terminal detection.
func ColorWanted(f *os.File) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
