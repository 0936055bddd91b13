package pool

import "time"

// Instrumentation is an optional hook a Pool reports acquire/release
// lifecycle events to. A nil Instrumentation is a fully valid no-op —
// the core never requires one, keeping the hard dependency surface of
// the pool itself free of any metrics/logging library (the Non-goal on
// logging in SPEC_FULL §1 applies to the core; this hook is how an
// embedder layers observability on top without touching pool internals,
// the way internal/metrics wires Prometheus collectors into it).
type Instrumentation interface {
	// OnAcquireStart fires when Acquire begins.
	OnAcquireStart()

	// OnAcquireDone fires when Acquire resolves, successfully or not.
	// blocked reports whether the caller had to wait for a release
	// (as opposed to an idle hit or a fresh connect).
	OnAcquireDone(blocked bool, dur time.Duration, err error)

	// OnRelease fires once per Handle.Release, reporting whether the
	// session was found broken.
	OnRelease(broken bool)

	// OnGauge fires after any operation that changes pool occupancy,
	// reporting the current total/idle/waiter counts.
	OnGauge(total, idleCount, waiters int)
}

// noopInstrumentation satisfies Instrumentation without doing anything,
// used internally when the embedder passes nil.
type noopInstrumentation struct{}

func (noopInstrumentation) OnAcquireStart()                                   {}
func (noopInstrumentation) OnAcquireDone(blocked bool, dur time.Duration, err error) {}
func (noopInstrumentation) OnRelease(broken bool)                             {}
func (noopInstrumentation) OnGauge(total, idleCount, waiters int)             {}
