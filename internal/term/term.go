// Package term resolves the color mode and detects terminals.
//
// Only stderr is ever colored: stdout may carry the JSON document and must
// stay byte-clean.
package term

import (
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/backmassage/dicomharvest/internal/config"
)

// Enabled reports whether output to w should be colored under mode.
// Auto mode requires a TTY, an unset NO_COLOR (https://no-color.org) and a
// TERM other than "dumb".
func Enabled(mode config.ColorMode, w io.Writer) bool {
	switch mode {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	default: // ColorAuto
		return IsTerminal(w) &&
			os.Getenv("NO_COLOR") == "" &&
			strings.ToLower(os.Getenv("TERM")) != "dumb"
	}
}

// IsTerminal reports whether w is an *os.File attached to a TTY.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
