package pool

import "sync"

// Handle is the caller's exclusive lease on a checked-out session. Go
// has no borrow checker to make a second Release a compile error the
// way the distilled source's Drop-based guard does, so Handle guards
// itself with a sync.Once: every call past the first is a safe no-op.
//
// A Handle must not be shared across goroutines without external
// synchronization — exactly one goroutine owns the session it wraps
// until Release is called.
type Handle[S any] struct {
	live *live[S]
	pool *Pool[S]

	once sync.Once
}

// Session returns the underlying session. Valid until Release is
// called; using it afterwards is a caller bug the pool cannot detect,
// since by then the session may already be handed to someone else.
func (h *Handle[S]) Session() S {
	return h.live.session
}

// Release returns the session to the pool: to the head waiter if one
// is enrolled, to the idle store otherwise, or drops it entirely if
// the Manager reports it broken. Safe to call more than once; only
// the first call has any effect.
func (h *Handle[S]) Release() {
	h.once.Do(func() {
		h.pool.release(*h.live)
	})
}

// Close satisfies io.Closer so a Handle can be used with defer h.Close()
// the way callers already defer-close everything else that holds a
// resource. It always returns nil — releasing a session back to the
// pool cannot itself fail.
func (h *Handle[S]) Close() error {
	h.Release()
	return nil
}
