package reservoir

import "context"

// Worker is a live, independently scheduled task produced by a Factory. It
// is usable for exactly one job after it has been dispensed to a caller.
//
// Worker implementations decide their own identity and lifetime; the core
// never inspects a Worker beyond calling ID() for link bookkeeping and
// logging, and Release() (if implemented) when the core tears down while
// the worker is still idle.
type Worker interface {
	// ID returns a stable identity for this worker. It is used only for
	// link bookkeeping and log correlation, never for ordering or for any
	// dispense decision.
	ID() string
}

// Releasable is implemented by workers that hold resources which must be
// torn down if the reservoir terminates while they are still idle. Workers
// that have already been dispensed are the caller's concern, not the
// core's, and are never Release()'d by the core.
type Releasable interface {
	Release()
}

// CoreRef is the back-reference a Factory's SpawnOne receives so it can
// link a freshly spawned worker's lifetime to the reservoir that owns it.
// It is a lookup/registration handle, not an owning reference: the core
// retains no typed pointer to the worker beyond this link table entry.
type CoreRef interface {
	// Link registers w as owned by the core. If the core terminates while
	// w is still resident (never dispensed) and w implements Releasable,
	// w.Release() is called during teardown.
	Link(w Worker)

	// Unlink removes the link registered by Link. The core performs this
	// removal itself, exactly once per worker, immediately before that
	// worker is handed to a caller in a dispense reply.
	Unlink(w Worker)
}

// Factory is the sole collaborator the reservoir core invokes to produce
// and use workers. It is supplied by the caller; the core only ever calls
// it, it never implements it.
type Factory interface {
	// SpawnOne produces one live worker owned by the reservoir. Implementers
	// must call ref.Link(w) before returning w. Returning anything other
	// than a live, linked worker is a fatal programming error: the
	// allocator that called SpawnOne treats a returned error (other than
	// its context's cancellation) or a nil worker as an invariant breach.
	// Whether a non-nil worker was actually linked is not checked.
	SpawnOne(ctx context.Context, ref CoreRef) (Worker, error)

	// Deliver hands msg to w, transferring ownership away from the
	// reservoir. An error is captured per-worker by TaskMany and never
	// aborts delivery to the rest of a batch.
	Deliver(ctx context.Context, w Worker, msg any) (Worker, error)
}

// TaskResult pairs a dispensed Worker with the outcome of delivering its
// message. Exactly one of Worker/Err is meaningful: Err is set only when
// Deliver failed for that slot.
type TaskResult struct {
	Worker Worker
	Err    error
}
