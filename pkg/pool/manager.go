package pool

import "context"

// Manager is the capability an embedder supplies to let the pool
// manage sessions of type S without the pool ever inspecting them. It
// is the external collaborator described by the spec's "manage
// connection" contract — the Go analogue of the distilled source's
// ManageConnection trait and of the teacher's SQL Server adapter,
// generalized to any session type.
type Manager[S any] interface {
	// Connect produces a fresh, usable session. May be called
	// concurrently from multiple goroutines.
	Connect(ctx context.Context) (S, error)

	// IsValid probes the session. A nil error means the session is
	// still usable. Never called by Acquire itself (SPEC_FULL §9) —
	// available for an embedder's own health-check loop.
	IsValid(ctx context.Context, session S) error

	// HasBroken is a cheap, non-suspending liveness check. It must
	// not block or perform I/O. False negatives are acceptable; false
	// positives only cost an extra reconnect.
	HasBroken(session S) bool

	// TimedOut constructs the canonical timeout error. Reserved: the
	// core never invokes this, since Acquire has no deadline of its
	// own — composed externally by the caller.
	TimedOut() error
}
