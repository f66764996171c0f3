package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"

	"github.com/voslin/gantry/internal/lifecycle"
)

// HelpBar displays context-sensitive keyboard shortcuts at the bottom of the
// shell.
type HelpBar struct {
	width int
	keys  KeyBindings

	phase  lifecycle.Phase
	notice string
}

// NewHelpBar creates a new help bar component.
func NewHelpBar() HelpBar {
	return HelpBar{keys: DefaultKeyBindings()}
}

// SetWidth updates the help bar width.
func (h *HelpBar) SetWidth(width int) {
	h.width = width
}

// SetPhase updates the phase used to pick relevant shortcuts.
func (h *HelpBar) SetPhase(p lifecycle.Phase) {
	h.phase = p
}

// SetNotice sets a transient notice shown instead of the shortcuts.
func (h *HelpBar) SetNotice(msg string) {
	h.notice = msg
}

// ClearNotice clears the transient notice.
func (h *HelpBar) ClearNotice() {
	h.notice = ""
}

// View renders the help bar.
func (h HelpBar) View() string {
	if h.notice != "" {
		return noticeStyle.Width(h.width).Render(h.notice)
	}

	var bindings []key.Binding
	switch h.phase {
	case lifecycle.PhaseReady:
		bindings = []key.Binding{h.keys.OpenDashboard, h.keys.ToggleLogs, h.keys.Quit}
	case lifecycle.PhaseFailed:
		bindings = []key.Binding{h.keys.ToggleLogs, h.keys.Up, h.keys.Down, h.keys.Quit}
	case lifecycle.PhaseShuttingDown:
		bindings = nil
	default:
		bindings = []key.Binding{h.keys.Quit}
	}

	return statusStyle.Width(h.width).Render(formatHelp(bindings))
}

// formatHelp formats a list of key bindings as help text.
func formatHelp(bindings []key.Binding) string {
	var parts []string
	for _, b := range bindings {
		help := b.Help()
		parts = append(parts, help.Key+": "+help.Desc)
	}
	return strings.Join(parts, "  ")
}
