package display

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

const banner = `     _ _                      _
  __| (_) ___ ___  _ __ ___  | |__   __ _ _ ____   _____  ___| |_
 / _` + "`" + ` | |/ __/ _ \| '_ ` + "`" + ` _ \ | '_ \ / _` + "`" + ` | '__\ \ / / _ \/ __| __|
| (_| | | (_| (_) | | | | | || | | | (_| | |   \ V /  __/\__ \ |_
 \__,_|_|\___\___/|_| |_| |_||_| |_|\__,_|_|    \_/ \___||___/\__|
`

// PrintBanner writes the ASCII art banner to w, in bright magenta when
// colored is true.
func PrintBanner(w io.Writer, colored bool) {
	c := color.New(color.FgHiMagenta, color.Bold)
	if colored {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	fmt.Fprint(w, c.Sprint(banner))
}
