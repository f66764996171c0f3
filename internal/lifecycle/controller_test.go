package lifecycle

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/voslin/gantry/internal/config"
	"github.com/voslin/gantry/internal/engine"
	"github.com/voslin/gantry/internal/instance"
	"github.com/voslin/gantry/internal/shutdown"
)

// phaseRecorder captures phase notifications in order.
type phaseRecorder struct {
	mu      sync.Mutex
	changes []PhaseChange
}

func (r *phaseRecorder) record(pc PhaseChange) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, pc)
}

func (r *phaseRecorder) phases() []Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Phase, len(r.changes))
	for i, c := range r.changes {
		out[i] = c.Phase
	}
	return out
}

func (r *phaseRecorder) messageFor(p Phase) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.changes {
		if c.Phase == p {
			return c.Message
		}
	}
	return ""
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "engined")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Probe.Interval = config.Duration(20 * time.Millisecond)
	cfg.Probe.MaxWait = config.Duration(2 * time.Second)
	cfg.Probe.RequestTimeout = config.Duration(time.Second)
	cfg.Shutdown.GracePeriod = config.Duration(200 * time.Millisecond)
	cfg.Shutdown.HardStopMargin = config.Duration(200 * time.Millisecond)
	return cfg
}

func newController(t *testing.T, cfg *config.Config, binary, endpoint string) (*Controller, *phaseRecorder) {
	t.Helper()
	c := New(Options{
		Config:      cfg,
		Supervisor:  engine.NewSupervisor(),
		Coordinator: shutdown.New(cfg.Shutdown.GracePeriod.Std(), cfg.Shutdown.HardStopMargin.Std()),
		Resolve:     func() string { return binary },
		LockPath:    filepath.Join(t.TempDir(), "gantry.lock"),
		HealthEndpoint: endpoint,
	})
	rec := &phaseRecorder{}
	c.OnPhaseChange(rec.record)
	return c, rec
}

func waitPhase(t *testing.T, c *Controller, want Phase, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if c.Phase() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("phase = %v, want %v after %v", c.Phase(), want, timeout)
}

func TestLaunch_HealthyStart(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	binary := writeScript(t, "sleep 30")
	c, rec := newController(t, testConfig(), binary, srv.URL)

	if err := c.AcquireLock(); err != nil {
		t.Fatalf("AcquireLock() error = %v", err)
	}
	c.Launch(context.Background())

	want := []Phase{PhaseAcquiringLock, PhaseResolvingBinary, PhaseSpawning, PhaseWaitingForHealth, PhaseReady}
	if got := rec.phases(); !equalPhases(got, want) {
		t.Errorf("phase sequence = %v, want %v", got, want)
	}
	if c.Failure() != nil {
		t.Errorf("Failure() = %+v, want nil", c.Failure())
	}

	c.Quit()
	waitForDone(t, c)
}

func TestLaunch_MissingBinary(t *testing.T) {
	var probed atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		probed.Add(1)
	}))
	defer srv.Close()

	missing := filepath.Join(t.TempDir(), "engined")
	c, rec := newController(t, testConfig(), missing, srv.URL)

	if err := c.AcquireLock(); err != nil {
		t.Fatalf("AcquireLock() error = %v", err)
	}
	c.Launch(context.Background())

	want := []Phase{PhaseAcquiringLock, PhaseResolvingBinary, PhaseSpawning, PhaseFailed}
	if got := rec.phases(); !equalPhases(got, want) {
		t.Errorf("phase sequence = %v, want %v", got, want)
	}

	f := c.Failure()
	if f == nil || f.Kind != FailBinaryNotFound {
		t.Fatalf("Failure() = %+v, want BinaryNotFound", f)
	}
	if !strings.Contains(f.Message, "not found") {
		t.Errorf("failure message %q does not contain %q", f.Message, "not found")
	}
	if probed.Load() != 0 {
		t.Errorf("health endpoint probed %d times, want 0", probed.Load())
	}

	c.Quit()
	waitForDone(t, c)
}

func TestLaunch_CrashDuringHealthWait(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable) // never ready
	}))
	defer srv.Close()

	// Engine dies with code 1 shortly into the health wait.
	binary := writeScript(t, "sleep 0.3; exit 1")

	cfg := testConfig()
	cfg.Probe.MaxWait = config.Duration(30 * time.Second) // crash must beat this
	c, rec := newController(t, cfg, binary, srv.URL)

	if err := c.AcquireLock(); err != nil {
		t.Fatalf("AcquireLock() error = %v", err)
	}

	start := time.Now()
	c.Launch(context.Background())
	waitPhase(t, c, PhaseFailed, 5*time.Second)
	elapsed := time.Since(start)

	f := c.Failure()
	if f == nil || f.Kind != FailUnexpectedExit {
		t.Fatalf("Failure() = %+v, want UnexpectedExit", f)
	}
	if f.ExitCode != 1 {
		t.Errorf("ExitCode = %d, want 1", f.ExitCode)
	}
	if !strings.Contains(f.Message, "code: 1") {
		t.Errorf("failure message %q does not contain exit code", f.Message)
	}
	if elapsed > 5*time.Second {
		t.Errorf("failed after %v, want close to the crash, not the probe deadline", elapsed)
	}
	if msg := rec.messageFor(PhaseFailed); msg != "" && !strings.Contains(msg, "unexpectedly") {
		t.Errorf("Failed message = %q, want crash wording", msg)
	}

	c.Quit()
	waitForDone(t, c)
}

func TestLaunch_HealthTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	binary := writeScript(t, "sleep 30")

	cfg := testConfig()
	cfg.Probe.MaxWait = config.Duration(200 * time.Millisecond)
	c, _ := newController(t, cfg, binary, srv.URL)

	if err := c.AcquireLock(); err != nil {
		t.Fatalf("AcquireLock() error = %v", err)
	}
	c.Launch(context.Background())

	f := c.Failure()
	if f == nil || f.Kind != FailHealthTimeout {
		t.Fatalf("Failure() = %+v, want HealthTimeout", f)
	}
	if !strings.Contains(f.Message, "did not become ready") {
		t.Errorf("failure message %q not actionable", f.Message)
	}

	c.Quit()
	waitForDone(t, c)
}

func TestAcquireLock_SecondInstanceRejected(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "gantry.lock")

	opts := Options{
		Config:      testConfig(),
		Supervisor:  engine.NewSupervisor(),
		Coordinator: shutdown.New(time.Second, time.Second),
		Resolve:     func() string { return "engined" },
		LockPath:    lockPath,
	}

	first := New(opts)
	if err := first.AcquireLock(); err != nil {
		t.Fatalf("first AcquireLock() error = %v", err)
	}

	second := New(opts)
	err := second.AcquireLock()
	if !errors.Is(err, ErrLockUnavailable) {
		t.Fatalf("second AcquireLock() error = %v, want ErrLockUnavailable", err)
	}
	// The loser must not have advanced past lock acquisition.
	if second.Phase() != PhaseAcquiringLock {
		t.Errorf("loser phase = %v, want AcquiringLock", second.Phase())
	}

	first.Quit()
	waitForDone(t, first)
}

func TestQuit_DuringHealthWait(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	binary := writeScript(t, "trap 'exit 0' TERM; while true; do sleep 0.1; done")

	cfg := testConfig()
	cfg.Probe.MaxWait = config.Duration(30 * time.Second)
	c, _ := newController(t, cfg, binary, srv.URL)

	if err := c.AcquireLock(); err != nil {
		t.Fatalf("AcquireLock() error = %v", err)
	}

	launchDone := make(chan struct{})
	go func() {
		defer close(launchDone)
		c.Launch(context.Background())
	}()

	waitPhase(t, c, PhaseWaitingForHealth, 5*time.Second)
	c.Quit()

	select {
	case <-launchDone:
	case <-time.After(2 * time.Second):
		t.Fatal("Launch did not return after Quit cancelled the probe")
	}

	waitForDone(t, c)
	if c.Phase() != PhaseTerminated {
		t.Errorf("phase = %v, want Terminated", c.Phase())
	}
}

func TestQuit_Idempotent(t *testing.T) {
	c, _ := newController(t, testConfig(), "engined", "http://127.0.0.1:1/ping")

	if err := c.AcquireLock(); err != nil {
		t.Fatalf("AcquireLock() error = %v", err)
	}

	c.Quit()
	c.Quit()
	c.Quit()
	waitForDone(t, c)

	if c.Phase() != PhaseTerminated {
		t.Errorf("phase = %v, want Terminated", c.Phase())
	}
}

func waitForDone(t *testing.T, c *Controller) {
	t.Helper()
	select {
	case <-c.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("controller did not reach Terminated within 10s")
	}
}

func equalPhases(got, want []Phase) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestQuit_ReleasesAdoptedLock(t *testing.T) {
	cfg := testConfig()
	lockPath := filepath.Join(t.TempDir(), "gantry.lock")

	lock, err := instance.Acquire(lockPath)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	c := New(Options{
		Config:         cfg,
		Supervisor:     engine.NewSupervisor(),
		Coordinator:    shutdown.New(cfg.Shutdown.GracePeriod.Std(), cfg.Shutdown.HardStopMargin.Std()),
		Resolve:        func() string { return "unused" },
		LockPath:       lockPath,
		HealthEndpoint: "http://127.0.0.1:0/",
		Lock:           lock,
	})

	c.Quit()
	select {
	case <-c.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("Quit() did not complete")
	}

	// The adopted lock must be released on shutdown, so a fresh instance
	// can claim it.
	reacquired, err := instance.Acquire(lockPath)
	if err != nil {
		t.Fatalf("lock not released after Quit: %v", err)
	}
	reacquired.Release()
}
