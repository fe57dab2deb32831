package render

import (
	"os"

	"github.com/mattn/go-isatty"
	"golang.org/x/sys/unix"
)

// Fallback surface size when the terminal does not report pixel dimensions
const (
	DefaultWidth  = 960
	DefaultHeight = 540
)

// Surface is the terminal area frames are drawn into.
type Surface struct {
	Cols     int
	Rows     int
	WidthPx  int
	HeightPx int
}

// IsTerminal reports whether f is attached to a terminal
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// GetTerminalSize returns terminal dimensions (cols, rows, widthPx, heightPx)
func GetTerminalSize() (cols, rows, widthPx, heightPx int, err error) {
	ws, err := unix.IoctlGetWinsize(int(os.Stdout.Fd()), unix.TIOCGWINSZ)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	return int(ws.Col), int(ws.Row), int(ws.Xpixel), int(ws.Ypixel), nil
}

// CaptureSurface reads the terminal size once. Missing pixel dimensions fall
// back to DefaultWidth x DefaultHeight.
func CaptureSurface() (Surface, error) {
	cols, rows, w, h, err := GetTerminalSize()
	if err != nil {
		return Surface{}, err
	}
	return surfaceFrom(cols, rows, w, h), nil
}

func surfaceFrom(cols, rows, w, h int) Surface {
	if w <= 0 || h <= 0 {
		w, h = DefaultWidth, DefaultHeight
	}
	return Surface{Cols: cols, Rows: rows, WidthPx: w, HeightPx: h}
}
