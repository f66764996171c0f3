// Package shutdown drives the engine's escalating termination sequence.
package shutdown

import (
	"log/slog"
	"os"
	"sync"
	"syscall"
	"time"
)

// Phase is the coordinator's position in the termination sequence.
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseSignalSent  Phase = "signal-sent"
	PhaseGracePeriod Phase = "grace-period"
	PhaseForceSent   Phase = "force-sent"
	PhaseConfirmed   Phase = "confirmed"
)

// Target is the narrow command surface the coordinator drives. Satisfied by
// the engine supervisor.
type Target interface {
	// Running reports whether a child process is currently alive.
	Running() bool
	// Signal delivers sig to the child; a no-op if none is running.
	Signal(sig os.Signal) error
}

// Outcome summarizes a completed shutdown.
type Outcome struct {
	// Forced is true if the forceful signal was sent.
	Forced bool
	// TimedOut is true if no exit was observed even after the forceful
	// signal's own deadline. Logged as an anomaly; the host proceeds anyway.
	TimedOut bool
	// Elapsed is the total time the sequence took.
	Elapsed time.Duration
}

// Coordinator walks Idle → SignalSent → GracePeriod → ForceSent → Confirmed.
// The cooperative signal always precedes the forceful one, and escalation is
// skipped entirely when the exit is observed first.
type Coordinator struct {
	gracePeriod    time.Duration
	hardStopMargin time.Duration

	graceful os.Signal
	forceful os.Signal

	mu sync.Mutex
	// +checklocks:mu
	phase Phase
	// +checklocks:mu
	transitions []Phase
}

// New creates a coordinator. gracePeriod bounds the cooperative wait;
// hardStopMargin bounds the wait after the forceful signal.
func New(gracePeriod, hardStopMargin time.Duration) *Coordinator {
	return &Coordinator{
		gracePeriod:    gracePeriod,
		hardStopMargin: hardStopMargin,
		graceful:       syscall.SIGTERM,
		forceful:       syscall.SIGKILL,
		phase:          PhaseIdle,
	}
}

// Phase returns the current phase.
func (c *Coordinator) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Transitions returns the phases entered so far, in order.
func (c *Coordinator) Transitions() []Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Phase, len(c.transitions))
	copy(out, c.transitions)
	return out
}

// HostDeadline returns the absolute bound on the whole sequence, strictly
// longer than grace period plus the hard-stop margin. The host's own exit is
// deferred no longer than this even if the child is wedged.
func (c *Coordinator) HostDeadline() time.Duration {
	return c.gracePeriod + 2*c.hardStopMargin
}

func (c *Coordinator) transition(p Phase) {
	c.mu.Lock()
	c.phase = p
	c.transitions = append(c.transitions, p)
	c.mu.Unlock()
	slog.Debug("shutdown phase", "phase", p)
}

// Shutdown terminates the target. exited must close when the child's exit
// has been observed; it is the coordinator's only exit signal, so a nil or
// never-closing channel degrades to the timed escalation path.
//
// Always reaches Confirmed within HostDeadline: a well-behaved child gets
// the whole grace period to exit cleanly, a wedged one is killed, and an
// unkillable one is abandoned with TimedOut set.
func (c *Coordinator) Shutdown(target Target, exited <-chan struct{}) Outcome {
	start := time.Now()

	if !target.Running() {
		c.transition(PhaseConfirmed)
		return Outcome{Elapsed: time.Since(start)}
	}

	slog.Info("shutting down engine", "grace_period", c.gracePeriod)
	_ = target.Signal(c.graceful)
	c.transition(PhaseSignalSent)

	graceTimer := time.NewTimer(c.gracePeriod)
	defer graceTimer.Stop()
	c.transition(PhaseGracePeriod)

	select {
	case <-exited:
		// Exit observed first: the grace timer is cancelled and the
		// forceful signal is never sent.
		c.transition(PhaseConfirmed)
		return Outcome{Elapsed: time.Since(start)}
	case <-graceTimer.C:
	}

	slog.Warn("engine did not exit within grace period, forcing", "grace_period", c.gracePeriod)
	_ = target.Signal(c.forceful)
	c.transition(PhaseForceSent)

	hardTimer := time.NewTimer(c.hardStopMargin)
	defer hardTimer.Stop()

	outcome := Outcome{Forced: true}
	select {
	case <-exited:
	case <-hardTimer.C:
		// The host must make forward progress even with no confirmation.
		slog.Error("engine unresponsive to forceful signal, abandoning",
			"waited", c.gracePeriod+c.hardStopMargin)
		outcome.TimedOut = true
	}

	c.transition(PhaseConfirmed)
	outcome.Elapsed = time.Since(start)
	return outcome
}
