package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/voslin/gantry/internal/config"
	"github.com/voslin/gantry/internal/engine"
	"github.com/voslin/gantry/internal/event"
	"github.com/voslin/gantry/internal/health"
	"github.com/voslin/gantry/internal/instance"
	"github.com/voslin/gantry/internal/logging"
	"github.com/voslin/gantry/internal/shutdown"
)

// ErrLockUnavailable indicates another instance owns the singleton lock.
// The caller must exit immediately without any further initialization.
var ErrLockUnavailable = errors.New("instance lock unavailable")

// Options configure a Controller.
type Options struct {
	Config      *config.Config
	Supervisor  *engine.Supervisor
	Coordinator *shutdown.Coordinator

	// Resolve returns the engine binary path for this launch attempt.
	Resolve func() string

	// Lock is an instance lock the caller already acquired, adopted by the
	// controller and released when shutdown confirms. When nil the caller
	// must invoke AcquireLock before Launch.
	Lock *instance.Lock

	// LockPath overrides the instance lock file path (tests).
	LockPath string

	// HealthEndpoint overrides the probed URL (tests). Defaults to the
	// config's health URL.
	HealthEndpoint string
}

// Controller owns the authoritative lifecycle phase and drives one launch
// attempt as a linear sequence: lock → resolve → spawn → health → ready,
// with every failure absorbed into a user-facing phase message. It is the
// only writer of the phase; everything else observes.
type Controller struct {
	cfg         *config.Config
	supervisor  *engine.Supervisor
	coordinator *shutdown.Coordinator
	resolve     func() string
	lockPath    string
	endpoint    string

	phaseChanged event.Emitter[PhaseChange]

	mu sync.Mutex
	// +checklocks:mu
	phase Phase
	// +checklocks:mu
	failure *Failure
	// +checklocks:mu
	lock *instance.Lock
	// +checklocks:mu
	launchCancel context.CancelFunc

	// exitObserved closes once when the engine's exit is reaped.
	exitObserved chan struct{}
	exitOnce     sync.Once

	quitOnce sync.Once
	// done closes once the shutdown sequence has confirmed and the host may
	// exit.
	done chan struct{}
}

// New creates a controller in the Idle phase.
func New(opts Options) *Controller {
	endpoint := opts.HealthEndpoint
	if endpoint == "" {
		endpoint = opts.Config.HealthURL()
	}
	return &Controller{
		cfg:          opts.Config,
		supervisor:   opts.Supervisor,
		coordinator:  opts.Coordinator,
		resolve:      opts.Resolve,
		lockPath:     opts.LockPath,
		endpoint:     endpoint,
		lock:         opts.Lock,
		phase:        PhaseIdle,
		exitObserved: make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// OnPhaseChange registers a one-way status observer. Handlers fire on the
// controller's goroutines and must hand off to the UI rather than block.
func (c *Controller) OnPhaseChange(fn func(PhaseChange)) {
	c.phaseChanged.OnEvent(fn)
}

// Phase returns the current authoritative phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Failure returns the launch failure, or nil.
func (c *Controller) Failure() *Failure {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failure
}

// Done closes once shutdown has confirmed and the host may exit.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// setPhase advances the phase and notifies observers. Regressions are
// rejected: transitions are monotonic within an attempt.
func (c *Controller) setPhase(p Phase, message string) bool {
	c.mu.Lock()
	if phaseRank[p] <= phaseRank[c.phase] {
		current := c.phase
		c.mu.Unlock()
		slog.Debug("phase transition rejected", "from", current, "to", p)
		return false
	}
	c.phase = p
	c.mu.Unlock()

	slog.Info("lifecycle phase", "phase", p, "message", message)
	c.phaseChanged.Emit(PhaseChange{Phase: p, Message: message})
	return true
}

// fail records the failure and enters the Failed phase.
func (c *Controller) fail(f Failure) {
	c.mu.Lock()
	if c.failure == nil {
		c.failure = &f
	}
	c.mu.Unlock()
	c.setPhase(PhaseFailed, f.Message)
}

// AcquireLock claims the singleton lock for controllers constructed without
// an adopted one. It must run before Launch and before the window shell or
// any other component initializes. On ErrLockUnavailable the existing owner
// has been asked to surface itself and the caller must terminate without
// further side effects.
func (c *Controller) AcquireLock() error {
	c.setPhase(PhaseAcquiringLock, "Starting…")

	lock, err := instance.Acquire(c.lockPath)
	if err != nil {
		// Ask the owner to bring its window to the foreground. Best effort:
		// the owner may be mid-startup and not listening yet.
		if nerr := instance.Notify(c.socketPathForLock(), instance.MsgSurface); nerr != nil {
			slog.Debug("surface notification failed", "error", nerr)
		}
		return fmt.Errorf("%w: %v", ErrLockUnavailable, err)
	}

	c.mu.Lock()
	c.lock = lock
	c.mu.Unlock()
	return nil
}

// socketPathForLock derives the instance socket path. An explicit lock path
// (tests) keeps the socket alongside it; otherwise defaults apply.
func (c *Controller) socketPathForLock() string {
	if c.lockPath != "" {
		return c.lockPath + ".sock"
	}
	return instance.DefaultSocketPath()
}

// SocketPath returns the instance socket path the shell should listen on.
func (c *Controller) SocketPath() string {
	return c.socketPathForLock()
}

// Launch drives one attempt from binary resolution to Ready or Failed.
// Blocking; run on its own goroutine after the window shell is up. All
// failures are absorbed into phase messages, never propagated.
func (c *Controller) Launch(ctx context.Context) {
	defer logging.LogPanic("lifecycle-launch", nil)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.mu.Lock()
	c.launchCancel = cancel
	c.mu.Unlock()

	c.setPhase(PhaseResolvingBinary, "Starting backend services…")
	path := c.resolve()

	// Observe the exit before spawning so a child that dies instantly is
	// never missed.
	c.supervisor.OnExit(c.handleExit)

	if !c.setPhase(PhaseSpawning, "Starting backend services…") {
		return // quit arrived before spawn
	}
	if err := c.supervisor.Start(path); err != nil {
		if errors.Is(err, engine.ErrBinaryNotFound) {
			c.fail(Failure{
				Kind:    FailBinaryNotFound,
				Message: fmt.Sprintf("Backend binary not found at %s. Please check logs.", path),
			})
		} else {
			c.fail(Failure{
				Kind:    FailSpawn,
				Message: fmt.Sprintf("Backend failed to start. Please check logs. (%v)", err),
			})
		}
		return
	}

	if !c.setPhase(PhaseWaitingForHealth, "Waiting for backend…") {
		return
	}

	probe := health.New(c.endpoint, c.cfg.Probe.RequestTimeout.Std())
	ready, err := probe.WaitUntilReady(ctx, c.cfg.Probe.Interval.Std(), c.cfg.Probe.MaxWait.Std())
	if err != nil {
		// Cancelled: either the child exited (handleExit already failed the
		// attempt) or the application is quitting. Either way the
		// cancellation reason owns the outcome.
		return
	}
	if !ready {
		c.fail(Failure{
			Kind:    FailHealthTimeout,
			Message: "Backend did not become ready in time. Please check logs.",
		})
		return
	}

	c.setPhase(PhaseReady, "Backend ready")
}

// handleExit reacts to the engine's exit. During shutdown any exit is the
// confirmation the coordinator waits for; at any other time it is an
// unexpected crash and fails the attempt immediately instead of waiting out
// the health deadline.
func (c *Controller) handleExit(ev engine.ExitEvent) {
	c.exitOnce.Do(func() { close(c.exitObserved) })

	c.mu.Lock()
	phase := c.phase
	cancel := c.launchCancel
	c.mu.Unlock()

	if phase == PhaseShuttingDown || phase == PhaseTerminated {
		return
	}

	if cancel != nil {
		cancel()
	}
	c.fail(Failure{
		Kind:     FailUnexpectedExit,
		Message:  fmt.Sprintf("Backend process exited unexpectedly (code: %d)", ev.Code),
		ExitCode: ev.Code,
	})
}

// Quit begins the shutdown sequence. Idempotent and non-blocking; the host
// may exit once Done closes or HostDeadline elapses, whichever comes first.
func (c *Controller) Quit() {
	c.quitOnce.Do(func() {
		go func() {
			defer logging.LogPanic("lifecycle-quit", nil)

			c.setPhase(PhaseShuttingDown, "Shutting down…")

			c.mu.Lock()
			cancel := c.launchCancel
			c.mu.Unlock()
			if cancel != nil {
				cancel()
			}

			outcome := c.coordinator.Shutdown(c.supervisor, c.exitObserved)
			if outcome.TimedOut {
				slog.Error("engine shutdown timed out", "elapsed", outcome.Elapsed)
			}

			c.mu.Lock()
			lock := c.lock
			c.lock = nil
			c.mu.Unlock()
			if lock != nil {
				if err := lock.Release(); err != nil {
					slog.Warn("lock release failed", "error", err)
				}
			}

			c.setPhase(PhaseTerminated, "Goodbye")
			close(c.done)
		}()
	})
}

// HostDeadline is the absolute bound on how long the host defers its own
// exit after Quit, even if the shutdown goroutine is wedged.
func (c *Controller) HostDeadline() time.Duration {
	return c.coordinator.HostDeadline()
}
