package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/voslin/gantry/internal/lifecycle"
)

// Header displays the gantry shell header with branding and engine status.
type Header struct {
	width int

	phase     lifecycle.Phase
	enginePID int
}

// NewHeader creates a new header component.
func NewHeader() Header {
	return Header{phase: lifecycle.PhaseIdle}
}

// SetWidth updates the header width.
func (h *Header) SetWidth(width int) {
	h.width = width
}

// SetPhase updates the displayed lifecycle phase.
func (h *Header) SetPhase(p lifecycle.Phase) {
	h.phase = p
}

// SetEnginePID updates the displayed engine PID.
func (h *Header) SetEnginePID(pid int) {
	h.enginePID = pid
}

// View renders the header.
func (h Header) View() string {
	brand := headerBrandStyle.Render("⛭ gantry")

	var stats string
	switch h.phase {
	case lifecycle.PhaseReady:
		stats = headerStatsStyle.Render(fmt.Sprintf("engine running (pid %d)", h.enginePID))
	case lifecycle.PhaseFailed:
		stats = headerStatsStyle.Render("engine failed")
	case lifecycle.PhaseShuttingDown:
		stats = headerStatsStyle.Render("shutting down")
	default:
		stats = headerStatsStyle.Render("starting")
	}

	spacerWidth := h.width - lipgloss.Width(brand) - lipgloss.Width(stats)
	if spacerWidth < 0 {
		spacerWidth = 0
	}
	spacer := headerContainerStyle.Width(spacerWidth).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Top, brand, spacer, stats)
}
