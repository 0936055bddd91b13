// Package pool implements a generic, bounded, lazily-populated,
// fair-waiter asynchronous connection pool. It multiplexes access to
// expensive, long-lived client sessions — database clients, RPC
// clients, anything an embedder's Manager knows how to create and
// probe — over many concurrent goroutines.
//
// The pool is deliberately opaque about the session type S: it never
// inspects a session except through the Manager capability the
// embedder supplies. Query execution, transport selection, retry
// policy, and logging all live outside this package.
package pool

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Config is the pool's static configuration. MinSize sessions are
// created synchronously at construction; MaxSize bounds the number of
// live sessions (idle + checked-out) for the pool's lifetime — there
// is no dynamic resizing after New returns.
type Config struct {
	MinSize int
	MaxSize int
}

// DefaultConfig mirrors the spec's defaults: a small warm pool that
// can grow to a modest ceiling under load.
func DefaultConfig() Config {
	return Config{MinSize: 1, MaxSize: 10}
}

// Option customizes a Pool at construction time.
type Option func(*options)

type options struct {
	instrumentation Instrumentation
	reaperInterval  time.Duration
	reaperMaxIdle   time.Duration
}

// WithInstrumentation wires an Instrumentation hook into the pool.
func WithInstrumentation(i Instrumentation) Option {
	return func(o *options) { o.instrumentation = i }
}

// WithReaper opts into a periodic idle reaper: every interval, idle
// sessions older than maxIdleAge are dropped (their total-count slot
// freed, never the idle store underflowing or a checked-out session
// touched), so long as doing so would not take total below MinSize.
// This is the optional eviction policy SPEC_FULL §9 explicitly allows
// on top of the core contract.
func WithReaper(maxIdleAge, interval time.Duration) Option {
	return func(o *options) {
		o.reaperMaxIdle = maxIdleAge
		o.reaperInterval = interval
	}
}

// Pool is a cheaply-cloneable shared reference to the pool's state. A
// Clone is a new reference to the same underlying inner pool — exactly
// like cloning an Arc in the distilled source.
type Pool[S any] struct {
	inner *innerPool[S]

	closeOnce sync.Once
	stopReap  chan struct{}
	reapDone  chan struct{}
}

// New constructs a Pool, synchronously creating exactly cfg.MinSize
// sessions via concurrent Manager.Connect calls. If any of those calls
// fails, New fails as a whole (first error wins, by goroutine index)
// and every session successfully created so far is discarded via the
// Manager's own destructor — there is no partial success, matching
// SPEC_FULL §9's resolved Open Question.
func New[S any](ctx context.Context, manager Manager[S], cfg Config, opts ...Option) (*Pool[S], *Error) {
	if cfg.MinSize < 0 || cfg.MaxSize < 0 {
		return nil, internalErr(newInternalError("invalid config: sizes must be >= 0"))
	}
	if cfg.MaxSize < cfg.MinSize {
		return nil, internalErr(newInternalError(
			"invalid config: max_size (%d) must be >= min_size (%d)", cfg.MaxSize, cfg.MinSize))
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	instr := o.instrumentation
	if instr == nil {
		instr = noopInstrumentation{}
	}

	inner := newInnerPool[S](manager, cfg.MinSize, cfg.MaxSize, instr)

	type created struct {
		rec live[S]
		err error
	}
	results := make([]created, cfg.MinSize)
	var wg sync.WaitGroup
	for i := 0; i < cfg.MinSize; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			s, err := manager.Connect(ctx)
			if err != nil {
				results[idx] = created{err: err}
				return
			}
			results[idx] = created{rec: newLive(s)}
		}(i)
	}
	wg.Wait()

	var firstErr error
	for _, r := range results {
		if r.err != nil {
			firstErr = r.err
			break
		}
	}
	if firstErr != nil {
		return nil, externalErr(firstErr)
	}

	for _, r := range results {
		inner.q.pushNew(r.rec)
	}
	instr.OnGauge(inner.q.total(), inner.q.idleLen(), 0)

	p := &Pool[S]{inner: inner}

	if o.reaperInterval > 0 {
		p.stopReap = make(chan struct{})
		p.reapDone = make(chan struct{})
		go p.reapLoop(o.reaperMaxIdle, o.reaperInterval)
	}

	return p, nil
}

// Clone returns a new Pool referencing the same shared state.
func (p *Pool[S]) Clone() *Pool[S] {
	return &Pool[S]{inner: p.inner}
}

// TotalConns returns the number of live sessions (idle + checked-out).
func (p *Pool[S]) TotalConns() int {
	return p.inner.q.total()
}

// IdleConns returns the number of sessions currently in the idle
// store.
func (p *Pool[S]) IdleConns() int {
	return p.inner.q.idleLen()
}

// WaiterCount returns the number of callers currently enrolled as
// waiters. Observability only — it plays no part in the acquire
// decision.
func (p *Pool[S]) WaiterCount() int {
	return p.inner.waiterCount()
}

// Acquire is the central algorithm. It returns a Handle wrapping a
// session, or a tagged Error. The coord mutex is held across the
// idle-then-reserve-then-enroll decision so that a concurrent Release
// cannot race a not-yet-enrolled Acquire into a stall (SPEC_FULL §4.3).
func (p *Pool[S]) Acquire(ctx context.Context) (*Handle[S], *Error) {
	start := time.Now()
	p.inner.instrumentation.OnAcquireStart()

	p.inner.coord.Lock()

	// Fast path: an idle session is ready to go.
	if rec, ok := p.inner.q.take(); ok {
		p.inner.coord.Unlock()
		p.inner.instrumentation.OnGauge(p.inner.q.total(), p.inner.q.idleLen(), p.inner.waiterCount())
		p.inner.instrumentation.OnAcquireDone(false, time.Since(start), nil)
		return &Handle[S]{live: &rec.live, pool: p}, nil
	}

	// Admission path: try to reserve a new slot under max_size.
	if p.inner.q.reserve(p.inner.maxSize) {
		p.inner.coord.Unlock()

		s, err := p.inner.connect(ctx)
		if err != nil {
			p.inner.q.decrement()
			p.inner.instrumentation.OnAcquireDone(false, time.Since(start), err)
			return nil, externalErr(err)
		}
		rec := newLive(s)
		p.inner.instrumentation.OnGauge(p.inner.q.total(), p.inner.q.idleLen(), p.inner.waiterCount())
		p.inner.instrumentation.OnAcquireDone(false, time.Since(start), nil)
		return &Handle[S]{live: &rec, pool: p}, nil
	}

	// Wait path: pool is at capacity. Enroll as a waiter and release
	// coord before blocking, so releasers can make progress.
	w := make(waiter[S], 1)
	p.inner.notifyOfConnection(w)
	p.inner.instrumentation.OnGauge(p.inner.q.total(), p.inner.q.idleLen(), p.inner.waiterCountLocked())
	p.inner.coord.Unlock()

	select {
	case rec, ok := <-w:
		if !ok {
			return nil, internalErr(newInternalError("waiter cancelled"))
		}
		p.inner.instrumentation.OnAcquireDone(true, time.Since(start), nil)
		return &Handle[S]{live: &rec, pool: p}, nil

	case <-ctx.Done():
		p.inner.coord.Lock()
		removed := p.inner.removeWaiter(w)
		p.inner.coord.Unlock()

		if !removed {
			// A release already popped this waiter and may have
			// raced ctx.Done() in the select above — Go gives no
			// priority to the channel case, so a delivered session
			// can lose that race even though it's sitting in the
			// buffer. It was already removed from the FIFO, so this
			// receive is guaranteed non-blocking; don't let the
			// session leak, hand it back through the normal release
			// path instead of discarding it.
			if rec, ok := <-w; ok {
				p.release(rec)
			}
		}

		p.inner.instrumentation.OnAcquireDone(true, time.Since(start), ctx.Err())
		return nil, internalErr(newInternalError("acquire cancelled: %v", ctx.Err()))
	}
}

// release is invoked by Handle.Release. It probes brokenness outside
// coord (HasBroken is cheap and non-suspending per the Manager
// contract), then — holding coord — either drops a broken session
// (decrementing total only, leaving idle untouched — the source's
// underflow bug, fixed per SPEC_FULL §9), hands a healthy one to the
// head waiter, or stores it back in the idle pool. It never calls
// Manager.Connect and never mutates total in the non-broken branch.
func (p *Pool[S]) release(rec live[S]) {
	broken := p.inner.hasBroken(rec.session)

	p.inner.coord.Lock()
	if broken {
		p.inner.q.decrement()
		p.inner.coord.Unlock()
		p.inner.instrumentation.OnRelease(true)
		p.inner.instrumentation.OnGauge(p.inner.q.total(), p.inner.q.idleLen(), p.inner.waiterCount())
		return
	}

	for {
		w, ok := p.inner.tryWaiting()
		if !ok {
			break
		}
		select {
		case w <- rec:
			p.inner.coord.Unlock()
			p.inner.instrumentation.OnRelease(false)
			return
		default:
			// The waiter's buffer is already full. Each waiter
			// is popped before its one send, so this is not
			// reached in practice: a cancelled Acquire removes
			// its own waiter, or drains and re-releases a
			// session delivered into it. Move on to the next
			// waiter.
			continue
		}
	}

	p.inner.q.store(rec)
	p.inner.coord.Unlock()
	p.inner.instrumentation.OnRelease(false)
	p.inner.instrumentation.OnGauge(p.inner.q.total(), p.inner.q.idleLen(), p.inner.waiterCount())
}

// Close stops the optional background reaper, if one was started with
// WithReaper. It does not close any sessions itself: outstanding
// Handles must still be released by their callers, and idle sessions
// are reclaimed by the Manager's own destructor when the embedder
// drains them — the pool never calls a session-close operation itself.
func (p *Pool[S]) Close() {
	p.closeOnce.Do(func() {
		if p.stopReap != nil {
			close(p.stopReap)
			<-p.reapDone
		}
	})
}

func (p *Pool[S]) reapLoop(maxIdleAge, interval time.Duration) {
	defer close(p.reapDone)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-p.stopReap:
			return
		case <-ticker.C:
			p.reapOnce(maxIdleAge)
		}
	}
}

// reapOnce evicts sessions that have sat idle longer than maxIdleAge
// (by idleSince, not by when they were first created), never letting
// total fall below minSize and never touching a checked-out session
// (it only ever looks at the idle store). It drains the whole idle
// store and requeues anything not evicted, preserving each kept
// record's original idleSince so a session that survives one reap
// isn't granted a fresh idle clock by the act of being requeued.
func (p *Pool[S]) reapOnce(maxIdleAge time.Duration) {
	evicted := 0

	p.inner.coord.Lock()
	var keep []idle[S]
	for {
		if p.inner.q.total() <= p.inner.minSize {
			break
		}
		rec, ok := p.inner.q.take()
		if !ok {
			break
		}
		if !rec.idleSince.IsZero() && time.Since(rec.idleSince) > maxIdleAge {
			p.inner.q.decrement()
			evicted++
			continue
		}
		keep = append(keep, rec)
	}
	for _, rec := range keep {
		p.inner.q.requeue(rec)
	}
	total, idleCount := p.inner.q.total(), p.inner.q.idleLen()
	p.inner.coord.Unlock()

	if evicted > 0 {
		p.inner.instrumentation.OnGauge(total, idleCount, p.inner.waiterCount())
	}
}

// String renders the pool's point-in-time occupancy, handy for log
// lines around the pool (the pool itself stays logging-free).
func (p *Pool[S]) String() string {
	return fmt.Sprintf("pool{total=%d idle=%d waiters=%d}", p.TotalConns(), p.IdleConns(), p.WaiterCount())
}
