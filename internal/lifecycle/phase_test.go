package lifecycle

import "testing"

func TestPhaseTerminal(t *testing.T) {
	tests := []struct {
		phase Phase
		want  bool
	}{
		{PhaseIdle, false},
		{PhaseAcquiringLock, false},
		{PhaseResolvingBinary, false},
		{PhaseSpawning, false},
		{PhaseWaitingForHealth, false},
		{PhaseReady, true},
		{PhaseFailed, true},
		{PhaseShuttingDown, false},
		{PhaseTerminated, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.phase), func(t *testing.T) {
			if got := tt.phase.Terminal(); got != tt.want {
				t.Errorf("Terminal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPhaseRankCoversAllPhases(t *testing.T) {
	phases := []Phase{
		PhaseIdle, PhaseAcquiringLock, PhaseResolvingBinary, PhaseSpawning,
		PhaseWaitingForHealth, PhaseReady, PhaseFailed, PhaseShuttingDown,
		PhaseTerminated,
	}
	for i, p := range phases {
		rank, ok := phaseRank[p]
		if !ok {
			t.Errorf("phase %s has no rank", p)
			continue
		}
		if rank != i {
			t.Errorf("phase %s rank = %d, want %d", p, rank, i)
		}
	}
}
