package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/reflow/wordwrap"

	"github.com/voslin/gantry/internal/engine"
)

// maxLogLines bounds the retained engine output tail.
const maxLogLines = 500

// LogTail shows the most recent engine output lines in a scrollable pane.
type LogTail struct {
	vp    viewport.Model
	lines []engine.OutputLine
	width int

	// pinned is true while the view follows the newest line.
	pinned bool
}

// NewLogTail creates an empty log tail.
func NewLogTail() LogTail {
	return LogTail{
		vp:     viewport.New(0, 0),
		pinned: true,
	}
}

// SetSize resizes the pane.
func (l *LogTail) SetSize(width, height int) {
	l.width = width
	l.vp.Width = width
	l.vp.Height = height
	l.refresh()
}

// Append adds one output line, evicting the oldest beyond the cap.
func (l *LogTail) Append(line engine.OutputLine) {
	l.lines = append(l.lines, line)
	if len(l.lines) > maxLogLines {
		l.lines = l.lines[len(l.lines)-maxLogLines:]
	}
	l.refresh()
}

// Update forwards navigation messages to the viewport.
func (l *LogTail) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	l.vp, cmd = l.vp.Update(msg)
	l.pinned = l.vp.AtBottom()
	return cmd
}

// Empty reports whether any output has arrived.
func (l *LogTail) Empty() bool {
	return len(l.lines) == 0
}

// Tail returns the last n lines of output for inline display.
func (l *LogTail) Tail(n int) []engine.OutputLine {
	if len(l.lines) <= n {
		return l.lines
	}
	return l.lines[len(l.lines)-n:]
}

// View renders the scrollable pane.
func (l LogTail) View() string {
	return logBorderStyle.Render(l.vp.View())
}

func (l *LogTail) refresh() {
	wrapWidth := l.width - 2
	if wrapWidth <= 0 {
		wrapWidth = 80
	}

	var b strings.Builder
	for _, line := range l.lines {
		style := logLineStyle
		if line.Stream == "stderr" {
			style = logErrLineStyle
		}
		b.WriteString(style.Render(wordwrap.String(line.Text, wrapWidth)))
		b.WriteByte('\n')
	}
	l.vp.SetContent(b.String())
	if l.pinned {
		l.vp.GotoBottom()
	}
}
