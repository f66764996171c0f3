// Package lifecycle orchestrates the gantry launch and shutdown sequence.
package lifecycle

// Phase is a discrete, ordered stage of the shell's startup/shutdown
// sequence, reported to the UI.
type Phase string

const (
	PhaseIdle             Phase = "idle"
	PhaseAcquiringLock    Phase = "acquiring-lock"
	PhaseResolvingBinary  Phase = "resolving-binary"
	PhaseSpawning         Phase = "spawning"
	PhaseWaitingForHealth Phase = "waiting-for-health"
	PhaseReady            Phase = "ready"
	PhaseFailed           Phase = "failed"
	PhaseShuttingDown     Phase = "shutting-down"
	PhaseTerminated       Phase = "terminated"
)

// phaseRank orders phases. Transitions are monotonic within a launch
// attempt: a phase can only be entered from a lower-ranked one, which makes
// Ready and Failed terminal for the attempt (only shutdown follows them).
var phaseRank = map[Phase]int{
	PhaseIdle:             0,
	PhaseAcquiringLock:    1,
	PhaseResolvingBinary:  2,
	PhaseSpawning:         3,
	PhaseWaitingForHealth: 4,
	PhaseReady:            5,
	PhaseFailed:           6,
	PhaseShuttingDown:     7,
	PhaseTerminated:       8,
}

// Terminal reports whether the phase ends a launch attempt.
func (p Phase) Terminal() bool {
	return p == PhaseReady || p == PhaseFailed
}

// PhaseChange is the one-way status notification sent to the UI shell.
// The message is human-readable; the UI has no channel back.
type PhaseChange struct {
	Phase   Phase
	Message string
}

// FailureKind classifies launch failures so the UI can render distinct,
// actionable messages.
type FailureKind string

const (
	FailBinaryNotFound FailureKind = "binary-not-found"
	FailSpawn          FailureKind = "spawn-failed"
	FailHealthTimeout  FailureKind = "health-timeout"
	FailUnexpectedExit FailureKind = "unexpected-exit"
)

// Failure describes why a launch attempt failed.
type Failure struct {
	Kind    FailureKind
	Message string
	// ExitCode is set for FailUnexpectedExit.
	ExitCode int
}
