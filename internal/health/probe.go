// Package health polls the engine's readiness endpoint.
package health

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// DefaultRequestTimeout bounds each individual readiness request,
// independent of the overall deadline.
const DefaultRequestTimeout = 2 * time.Second

// logEvery throttles the waiting log line so long waits are observable
// without flooding the log.
const logEvery = 10

// Result is one probe observation.
type Result struct {
	Reachable  bool
	StatusCode int
	ObservedAt time.Time
}

// Ready reports whether the observation counts as ready: any 2xx status.
func (r Result) Ready() bool {
	return r.Reachable && r.StatusCode >= 200 && r.StatusCode < 300
}

// Probe issues strictly sequential readiness checks against a fixed local
// endpoint. A Probe is not safe for concurrent WaitUntilReady calls; the
// lifecycle controller runs at most one per launch attempt.
type Probe struct {
	endpoint string
	client   *http.Client

	// attempts counts checks issued, for tests and log throttling.
	attempts int
}

// New creates a probe for the given endpoint URL.
func New(endpoint string, requestTimeout time.Duration) *Probe {
	if requestTimeout <= 0 {
		requestTimeout = DefaultRequestTimeout
	}
	return &Probe{
		endpoint: endpoint,
		client:   &http.Client{Timeout: requestTimeout},
	}
}

// Attempts returns how many checks have been issued.
func (p *Probe) Attempts() int {
	return p.attempts
}

// Check issues a single bounded-timeout GET. Network errors and timeouts
// produce an unreachable Result, not an error: "not yet ready" is an
// expected observation during startup.
func (p *Probe) Check(ctx context.Context) Result {
	p.attempts++

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint, nil)
	if err != nil {
		return Result{ObservedAt: time.Now()}
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return Result{ObservedAt: time.Now()}
	}
	defer resp.Body.Close()

	return Result{
		Reachable:  true,
		StatusCode: resp.StatusCode,
		ObservedAt: time.Now(),
	}
}

// WaitUntilReady polls the endpoint until it answers with a successful
// status, the overall deadline elapses, or ctx is cancelled.
//
// Returns (true, nil) on readiness, (false, nil) once maxWait has elapsed,
// and (false, ctx.Err()) on cancellation — the caller uses the cancellation
// reason instead of a verdict. Checks never overlap: each request completes
// or times out before the next is issued.
func (p *Probe) WaitUntilReady(ctx context.Context, interval, maxWait time.Duration) (bool, error) {
	deadline := time.Now().Add(maxWait)
	log := slog.With("component", "health", "endpoint", p.endpoint)

	for {
		if err := ctx.Err(); err != nil {
			log.Debug("probe cancelled", "attempts", p.attempts)
			return false, err
		}

		res := p.Check(ctx)
		if res.Ready() {
			log.Info("engine ready", "attempts", p.attempts, "status", res.StatusCode)
			return true, nil
		}

		// Cancellation surfaces through the request error path too; check
		// again so a cancelled in-flight request is not misread as a failed
		// attempt.
		if err := ctx.Err(); err != nil {
			log.Debug("probe cancelled", "attempts", p.attempts)
			return false, err
		}

		if p.attempts == 1 || p.attempts%logEvery == 0 {
			log.Info("waiting for engine",
				"attempts", p.attempts,
				"reachable", res.Reachable,
				"status", res.StatusCode,
			)
		}

		if time.Now().After(deadline) {
			log.Warn("engine did not become ready", "attempts", p.attempts, "max_wait", maxWait)
			return false, nil
		}

		select {
		case <-ctx.Done():
			log.Debug("probe cancelled", "attempts", p.attempts)
			return false, ctx.Err()
		case <-time.After(interval):
		}
	}
}

// Endpoint returns the probed URL.
func (p *Probe) Endpoint() string {
	return p.endpoint
}

// String implements fmt.Stringer for diagnostics.
func (p *Probe) String() string {
	return fmt.Sprintf("health.Probe(%s)", p.endpoint)
}
