package engine

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/voslin/gantry/internal/event"
	"github.com/voslin/gantry/internal/logging"
)

// Errors returned by supervisor operations.
var (
	ErrAlreadyRunning = errors.New("engine process is already running")
	ErrBinaryNotFound = errors.New("engine binary not found")
)

// TraceEnv is set in the child environment to enable verbose failure traces
// from the engine.
const TraceEnv = "ENGINE_TRACE=1"

// maxLineSize caps a single forwarded output line.
const maxLineSize = 256 * 1024

// State represents the managed process state.
type State string

const (
	StateNotStarted State = "not-started"
	StateRunning    State = "running"
	StateExited     State = "exited"
)

// OutputLine is one line of child output, tagged by stream.
type OutputLine struct {
	// Stream is "stdout" or "stderr".
	Stream string
	Text   string
}

// ExitEvent reports the termination of the engine process.
type ExitEvent struct {
	// Code is the exit code, or -1 if the process was signaled.
	Code int
	// Signal is the terminating signal name, empty for a plain exit.
	Signal string
	// ObservedAt is when the exit was reaped.
	ObservedAt time.Time
}

// Clean reports whether the exit is a valid outcome of a requested shutdown:
// exit code 0 or death by any termination signal.
func (e ExitEvent) Clean() bool {
	return e.Code == 0 || e.Signal != ""
}

// Supervisor spawns the engine binary, forwards its output streams to the
// diagnostic log, and reports its exit exactly once. At most one live child
// exists at any time; all mutation of the managed process goes through the
// supervisor's narrow interface.
type Supervisor struct {
	mu sync.RWMutex

	// +checklocks:mu
	state State
	// +checklocks:mu
	cmd *exec.Cmd
	// +checklocks:mu
	pid int
	// +checklocks:mu
	spawnedAt time.Time
	// +checklocks:mu
	lastExit *ExitEvent

	exited event.Emitter[ExitEvent]
	output event.Emitter[OutputLine]
}

// NewSupervisor creates a supervisor with no managed process.
func NewSupervisor() *Supervisor {
	return &Supervisor{state: StateNotStarted}
}

// State returns the managed process state.
func (s *Supervisor) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Running reports whether a child process is currently alive.
func (s *Supervisor) Running() bool {
	return s.State() == StateRunning
}

// Pid returns the child PID, or 0 if no process has been spawned.
func (s *Supervisor) Pid() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pid
}

// LastExit returns the most recent exit event, or nil if the process has
// not exited.
func (s *Supervisor) LastExit() *ExitEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastExit
}

// OnExit registers a handler for the process exit event. The handler fires
// once per spawned process, on the reaper goroutine.
func (s *Supervisor) OnExit(fn func(ExitEvent)) {
	s.exited.OnEvent(fn)
}

// OnOutput registers a handler for forwarded child output lines. Handlers
// fire on the stream goroutines and must not block.
func (s *Supervisor) OnOutput(fn func(OutputLine)) {
	s.output.OnEvent(fn)
}

// Start verifies the binary exists and spawns it with captured output
// streams. A second Start while a process is running is a programming error
// and returns ErrAlreadyRunning.
func (s *Supervisor) Start(path string) error {
	s.mu.Lock()

	if s.state == StateRunning {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}

	// Check existence before spawning so a missing binary is reported as a
	// structured failure, not a raw spawn error. A bare name (debug override)
	// is resolved against PATH instead.
	resolved, err := lookupBinary(path)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrBinaryNotFound, path)
	}

	cmd := exec.Command(resolved)
	cmd.Env = append(os.Environ(), TraceEnv)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		stdout.Close()
		s.mu.Unlock()
		return fmt.Errorf("stderr pipe: %w", err)
	}

	slog.Debug("Supervisor.Start: spawning engine", "path", resolved)
	if err := cmd.Start(); err != nil {
		stdout.Close()
		stderr.Close()
		s.mu.Unlock()
		return fmt.Errorf("spawn engine: %w", err)
	}

	s.cmd = cmd
	s.pid = cmd.Process.Pid
	s.spawnedAt = time.Now()
	s.lastExit = nil
	s.state = StateRunning
	s.mu.Unlock()

	go s.forwardStream("stdout", stdout)
	go s.forwardStream("stderr", stderr)
	go s.reap(cmd)

	slog.Info("engine started", "pid", cmd.Process.Pid, "path", resolved)
	return nil
}

// Signal sends sig to the managed process. Idempotent: a no-op without error
// if no process is running (the race against a concurrent exit is harmless).
func (s *Supervisor) Signal(sig os.Signal) error {
	s.mu.RLock()
	cmd := s.cmd
	running := s.state == StateRunning
	s.mu.RUnlock()

	if !running || cmd == nil || cmd.Process == nil {
		return nil
	}

	slog.Debug("signaling engine", "signal", sig.String(), "pid", cmd.Process.Pid)
	if err := cmd.Process.Signal(sig); err != nil {
		// Process may have exited between the state check and the signal.
		if errors.Is(err, os.ErrProcessDone) {
			return nil
		}
		return fmt.Errorf("signal engine: %w", err)
	}
	return nil
}

// forwardStream copies child output lines into the diagnostic log, tagged by
// stream. Oversized lines are truncated at maxLineSize and the stream keeps
// flowing; one pathological line must not silence the rest of the output.
func (s *Supervisor) forwardStream(stream string, r io.ReadCloser) {
	defer logging.LogPanic("engine-"+stream, nil)

	reader := bufio.NewReaderSize(r, 64*1024)
	log := slog.With("component", "engine", "stream", stream)
	for {
		line, truncated, err := readBoundedLine(reader, maxLineSize)
		if truncated {
			log.Warn("output line truncated", "limit", maxLineSize)
		}
		if line != "" {
			if stream == "stderr" {
				log.Warn(line)
			} else {
				log.Info(line)
			}
			s.output.Emit(OutputLine{Stream: stream, Text: line})
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
				log.Debug("stream closed", "error", err)
			}
			return
		}
	}
}

// readBoundedLine reads one newline-terminated line, keeping at most limit
// bytes. The overflow of an oversized line is consumed and discarded so the
// reader still advances to the next line.
func readBoundedLine(r *bufio.Reader, limit int) (string, bool, error) {
	var b strings.Builder
	truncated := false
	for {
		chunk, err := r.ReadSlice('\n')
		if err == nil {
			chunk = chunk[:len(chunk)-1]
		}
		if room := limit - b.Len(); room > 0 {
			if len(chunk) > room {
				chunk = chunk[:room]
				truncated = true
			}
			b.Write(chunk)
		} else if len(chunk) > 0 {
			truncated = true
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return strings.TrimSuffix(b.String(), "\r"), truncated, err
	}
}

// reap waits for the child and publishes its exit exactly once.
func (s *Supervisor) reap(cmd *exec.Cmd) {
	defer logging.LogPanic("engine-reaper", nil)

	waitErr := cmd.Wait()

	ev := ExitEvent{Code: -1, ObservedAt: time.Now()}
	if ps := cmd.ProcessState; ps != nil {
		ev.Code = ps.ExitCode()
		if ws, ok := ps.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			ev.Signal = ws.Signal().String()
		}
	}

	s.mu.Lock()
	s.state = StateExited
	s.lastExit = &ev
	s.cmd = nil
	uptime := ev.ObservedAt.Sub(s.spawnedAt).Truncate(time.Millisecond)
	s.mu.Unlock()

	slog.Info("engine exited",
		"code", ev.Code,
		"signal", ev.Signal,
		"uptime", uptime,
		"wait_error", waitErr,
	)

	s.exited.Emit(ev)
}

// lookupBinary stats an explicit path, or resolves a bare name via PATH.
func lookupBinary(path string) (string, error) {
	if isBareName(path) {
		return exec.LookPath(path)
	}
	if _, err := os.Stat(path); err != nil {
		return "", err
	}
	return path, nil
}

// isBareName reports whether path has no directory component.
func isBareName(path string) bool {
	for i := 0; i < len(path); i++ {
		if os.IsPathSeparator(path[i]) {
			return false
		}
	}
	return true
}
