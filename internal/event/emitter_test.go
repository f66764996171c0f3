package event_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/voslin/gantry/internal/engine"
	"github.com/voslin/gantry/internal/event"
	"github.com/voslin/gantry/internal/lifecycle"
)

func TestEmitterDeliversPhaseChangesInOrder(t *testing.T) {
	var em event.Emitter[lifecycle.PhaseChange]

	var got []lifecycle.Phase
	em.OnEvent(func(pc lifecycle.PhaseChange) {
		got = append(got, pc.Phase)
	})

	want := []lifecycle.Phase{
		lifecycle.PhaseSpawning,
		lifecycle.PhaseWaitingForHealth,
		lifecycle.PhaseReady,
	}
	for _, p := range want {
		em.Emit(lifecycle.PhaseChange{Phase: p})
	}

	if len(got) != len(want) {
		t.Fatalf("received %d events, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestEmitterDeliversToAllHandlers(t *testing.T) {
	var em event.Emitter[engine.ExitEvent]

	var first, second *engine.ExitEvent
	em.OnEvent(func(ev engine.ExitEvent) { first = &ev })
	em.OnEvent(func(ev engine.ExitEvent) { second = &ev })

	em.Emit(engine.ExitEvent{Code: 3})

	if first == nil || first.Code != 3 {
		t.Errorf("first handler got %+v, want Code 3", first)
	}
	if second == nil || second.Code != 3 {
		t.Errorf("second handler got %+v, want Code 3", second)
	}
}

func TestEmitterNoHandlers(t *testing.T) {
	var em event.Emitter[engine.ExitEvent]

	// Must not panic with nothing registered.
	em.Emit(engine.ExitEvent{Code: 1})
}

func TestEmitterRegisterDuringEmit(t *testing.T) {
	var em event.Emitter[lifecycle.PhaseChange]

	var late []lifecycle.Phase
	em.OnEvent(func(pc lifecycle.PhaseChange) {
		if pc.Phase == lifecycle.PhaseSpawning {
			em.OnEvent(func(pc lifecycle.PhaseChange) {
				late = append(late, pc.Phase)
			})
		}
	})

	em.Emit(lifecycle.PhaseChange{Phase: lifecycle.PhaseSpawning})
	if len(late) != 0 {
		t.Errorf("handler registered mid-emit saw the triggering event: %v", late)
	}

	em.Emit(lifecycle.PhaseChange{Phase: lifecycle.PhaseReady})
	if len(late) != 1 || late[0] != lifecycle.PhaseReady {
		t.Errorf("late handler events = %v, want [ready]", late)
	}
}

func TestEmitterConcurrentEmit(t *testing.T) {
	var em event.Emitter[engine.ExitEvent]

	var count atomic.Int64
	em.OnEvent(func(engine.ExitEvent) { count.Add(1) })

	const goroutines = 8
	const emitsPer = 50

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < emitsPer; j++ {
				em.Emit(engine.ExitEvent{Code: 0})
			}
		}()
	}
	wg.Wait()

	if got := count.Load(); got != goroutines*emitsPer {
		t.Errorf("handler ran %d times, want %d", got, goroutines*emitsPer)
	}
}
