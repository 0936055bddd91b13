// Package registry manages named pool.Pool instances, one per
// configured backend, the way the teacher's internal/pool.Manager
// manages one BucketPool per configured bucket — generalized here to
// the pool package's generic Pool[S] rather than a single hard-coded
// *sql.DB-backed BucketPool.
package registry

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/joao-brasil/go-connection-pool/pkg/pool"
)

// Registry holds one named pool.Pool[S] per backend this service
// manages.
type Registry[S any] struct {
	mu    sync.RWMutex
	pools map[string]*pool.Pool[S]
}

// New constructs a Registry, calling build once per name to obtain
// that pool's Manager and Config. If any build fails, every pool
// already constructed is closed before the error is returned — the
// same all-or-nothing guarantee pool.New itself offers for a single
// pool's warmup.
func New[S any](ctx context.Context, names []string, build func(name string) (pool.Manager[S], pool.Config, []pool.Option, error)) (*Registry[S], error) {
	r := &Registry[S]{pools: make(map[string]*pool.Pool[S], len(names))}

	for _, name := range names {
		manager, cfg, opts, err := build(name)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("building manager for pool %s: %w", name, err)
		}
		p, perr := pool.New[S](ctx, manager, cfg, opts...)
		if perr != nil {
			r.Close()
			return nil, fmt.Errorf("initializing pool %s: %w", name, perr)
		}
		r.pools[name] = p
	}

	log.Printf("[registry] initialized %d pools", len(r.pools))
	return r, nil
}

// Acquire obtains a handle from the named pool. Unlike pool.Pool's own
// Acquire, this returns a plain error: "no such pool" is a registry-
// level concern, not one of the two tagged pool.Error cases.
func (r *Registry[S]) Acquire(ctx context.Context, name string) (*pool.Handle[S], error) {
	r.mu.RLock()
	p, ok := r.pools[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("registry: no such pool %q", name)
	}
	h, perr := p.Acquire(ctx)
	if perr != nil {
		return nil, perr
	}
	return h, nil
}

// Pool returns the named pool, if any.
func (r *Registry[S]) Pool(name string) (*pool.Pool[S], bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.pools[name]
	return p, ok
}

// Names returns the names of every registered pool.
func (r *Registry[S]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.pools))
	for name := range r.pools {
		names = append(names, name)
	}
	return names
}

// Close shuts every registered pool's background reaper down. It does
// not close any checked-out or idle sessions — that remains the
// Manager's own responsibility, exactly as for a single pool.Pool.
func (r *Registry[S]) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, p := range r.pools {
		p.Close()
		log.Printf("[registry] pool %s closed", name)
	}
	r.pools = nil
}
