package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// View renders the UI. Frames are drawn below the text layer, so everything
// except the bottom status line is left blank.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	var status string
	switch {
	case m.err != nil:
		status = errorStyle.Render("Error: " + m.err.Error())
	case m.state == stateStarting:
		status = m.spinner.View() + " " + statusStyle.Render("Opening ") + sourceStyle.Render(filepath.Base(m.source))
	case m.state == stateStopping || m.state == stateStopped:
		status = statusStyle.Render("Stopping...")
	default:
		status = m.viewStats()
	}

	var b strings.Builder
	for range m.height - 1 {
		b.WriteString("\n")
	}
	b.WriteString(truncate(status+"  "+navStyle.Render("q: quit"), m.width))
	return b.String()
}

func (m Model) viewStats() string {
	s := m.stats
	stream := m.loop.Stream()

	line := sourceStyle.Render(filepath.Base(m.source)) + statusStyle.Render(fmt.Sprintf(
		"  %dx%d %s @ %s fps  frames %s  loops %d",
		stream.Width, stream.Height, stream.CodecName, formatRate(stream.FrameRate.Float64()),
		formatCount(s.FramesPresented), s.Loops,
	))

	errs := s.ReadErrors + s.DecodeErrors + s.ConvertErrors + s.PresentErrors
	if errs > 0 {
		line += "  " + warnStyle.Render(fmt.Sprintf("errors %d", errs))
	}
	return line
}

func formatRate(fps float64) string {
	if fps <= 0 {
		return "?"
	}
	if fps == float64(int(fps)) {
		return fmt.Sprintf("%d", int(fps))
	}
	return fmt.Sprintf("%.2f", fps)
}

func formatCount(count uint64) string {
	if count >= 1000000 {
		return fmt.Sprintf("%.1fM", float64(count)/1000000)
	}
	if count >= 1000 {
		return fmt.Sprintf("%.1fK", float64(count)/1000)
	}
	return fmt.Sprintf("%d", count)
}

// truncate cuts styled text that would wrap past the last column. Wrapping
// would scroll the screen and shift the image.
func truncate(s string, width int) string {
	if width <= 0 {
		return s
	}
	return lipgloss.NewStyle().MaxWidth(width).Render(s)
}
