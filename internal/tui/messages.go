package tui

import (
	"github.com/voslin/gantry/internal/engine"
	"github.com/voslin/gantry/internal/lifecycle"
)

// phaseMsg wraps a lifecycle phase notification for Bubble Tea.
type phaseMsg lifecycle.PhaseChange

// engineLineMsg carries one forwarded engine output line.
type engineLineMsg engine.OutputLine

// surfaceMsg means another launch attempt asked this instance to surface.
type surfaceMsg struct{}

// quitRequestedMsg means an external stop request arrived on the instance
// socket.
type quitRequestedMsg struct{}

// clearNoticeMsg clears the transient notice after a timeout.
type clearNoticeMsg struct{}

// shutdownDeadlineMsg fires when the host fallback deadline elapses with the
// shutdown sequence still unconfirmed.
type shutdownDeadlineMsg struct{}

// openResultMsg is the result of launching the browser.
type openResultMsg struct {
	Err error
}
