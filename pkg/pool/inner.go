package pool

import (
	"context"
	"sync"
)

// waiter is a one-shot delivery endpoint for a caller that found the
// pool at capacity. It carries a live session once one becomes
// available. The channel has capacity 1, so a releaser's send never
// blocks; a caller whose ctx is cancelled removes its waiter from the
// FIFO, or, if a releaser already popped it, drains the delivered
// session and releases it again.
type waiter[S any] chan live[S]

// innerPool owns the queue, the manager, the static configuration, and
// the FIFO waiter list. coord is the single mutex serializing the
// acquire decision (idle-then-reserve-then-enroll) and the release
// decision's FIFO manipulation, exactly as SPEC_FULL §4.2/§5 require.
type innerPool[S any] struct {
	q       *queue[S]
	manager Manager[S]

	minSize int
	maxSize int

	coord   sync.Mutex
	waiters []waiter[S]

	instrumentation Instrumentation
}

func newInnerPool[S any](manager Manager[S], minSize, maxSize int, instr Instrumentation) *innerPool[S] {
	return &innerPool[S]{
		q:               newQueue[S](),
		manager:         manager,
		minSize:         minSize,
		maxSize:         maxSize,
		instrumentation: instr,
	}
}

// connect delegates session creation to the Manager. On error the
// caller is responsible for undoing any prior reserve() via q.decrement.
func (p *innerPool[S]) connect(ctx context.Context) (S, error) {
	return p.manager.Connect(ctx)
}

// hasBroken delegates the cheap liveness check to the Manager.
func (p *innerPool[S]) hasBroken(s S) bool {
	return p.manager.HasBroken(s)
}

// notifyOfConnection enrolls a waiter at the tail of the FIFO. Caller
// must hold coord.
func (p *innerPool[S]) notifyOfConnection(w waiter[S]) {
	p.waiters = append(p.waiters, w)
}

// tryWaiting pops the head of the waiter FIFO, or returns false if
// empty. Caller must hold coord.
func (p *innerPool[S]) tryWaiting() (waiter[S], bool) {
	if len(p.waiters) == 0 {
		return nil, false
	}
	w := p.waiters[0]
	p.waiters = p.waiters[1:]
	return w, true
}

// removeWaiter drops a specific waiter from the FIFO, used when a
// caller abandons Acquire while enrolled (its ctx was cancelled).
// Reports whether the waiter was still enrolled to remove: if it
// already isn't, a release concurrently popped it and may have
// delivered a session into it before the caller's ctx lost the race
// in select, and the caller must drain that delivery rather than
// assume removal means nothing was sent. Caller must hold coord.
func (p *innerPool[S]) removeWaiter(target waiter[S]) bool {
	for i, w := range p.waiters {
		if w == target {
			p.waiters = append(p.waiters[:i], p.waiters[i+1:]...)
			return true
		}
	}
	return false
}

// waiterCount reads len(waiters), acquiring coord itself. For a read
// already holding coord, use waiterCountLocked.
func (p *innerPool[S]) waiterCount() int {
	p.coord.Lock()
	defer p.coord.Unlock()
	return len(p.waiters)
}

func (p *innerPool[S]) waiterCountLocked() int {
	return len(p.waiters)
}
