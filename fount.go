// Package fount implements a pre-allocated worker reservoir: a state
// machine that keeps a stack of fixed-size worker slabs plus a partial top
// (the "fount") ready to dispense, refilling itself from background
// allocators so synchronous request paths never wait on worker creation.
package fount

import (
	"context"

	"github.com/fountkit/fount/internal/reservoir"
)

// Fount is a thin, synchronous facade over the reservoir core: every
// method is a request/reply round trip, and the underlying state machine
// runs on its own goroutine regardless of how many callers share this
// Fount concurrently.
type Fount struct {
	core *reservoir.Core
	name string
}

// New constructs a Fount backed by factory, with slab-size workers per
// slab and depth total slabs (including the fount) at steady state.
// slab-size must be >= 1 and depth must be >= 2. Allocators to fill it
// from EMPTY to FULL are scheduled immediately, in the background.
func New(factory Factory, slabSize, depth int, opts ...Option) (*Fount, error) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	core, err := reservoir.NewCore(factory, slabSize, depth, cfg.toCoreConfig())
	if err != nil {
		return nil, err
	}

	f := &Fount{core: core, name: cfg.name}
	if cfg.name != "" {
		if err := registerNamed(cfg.name, f); err != nil {
			_ = core.Close(context.Background())
			return nil, err
		}
	}
	return f, nil
}

// GetOne dispenses a single worker. The returned slice has length 1, or is
// empty if the reservoir was empty (refusal).
func (f *Fount) GetOne(ctx context.Context) ([]Worker, error) {
	return f.core.GetPids(ctx, 1)
}

// GetMany dispenses up to n workers. The reply has length n, or is empty
// if n exceeds current inventory (refusal).
func (f *Fount) GetMany(ctx context.Context, n int) ([]Worker, error) {
	return f.core.GetPids(ctx, n)
}

// TaskOne dispenses a single worker and delivers msg to it.
func (f *Fount) TaskOne(ctx context.Context, msg any) ([]TaskResult, error) {
	return f.core.TaskPids(ctx, []any{msg})
}

// TaskMany dispenses len(msgs) workers and delivers msgs[i] to the i-th
// dispensed worker. One faulty deliver does not abort the rest of the
// batch; its TaskResult carries a non-nil Err instead of a Worker.
func (f *Fount) TaskMany(ctx context.Context, msgs []any) ([]TaskResult, error) {
	return f.core.TaskPids(ctx, msgs)
}

// Status returns a snapshot of current content.
func (f *Fount) Status(ctx context.Context) (Status, error) {
	return f.core.Status(ctx)
}

// SpawnRatePerSlab returns the average elapsed microseconds across every
// slab currently held, including the fount's elapsed time iff the fount
// is non-empty.
func (f *Fount) SpawnRatePerSlab(ctx context.Context) (float64, error) {
	return f.core.RatePerSlab(ctx)
}

// SpawnRatePerProcess returns total elapsed microseconds divided by total
// workers currently held.
func (f *Fount) SpawnRatePerProcess(ctx context.Context) (float64, error) {
	return f.core.RatePerProcess(ctx)
}

// Err returns the invariant breach that killed this Fount, or nil if it is
// alive or was closed gracefully.
func (f *Fount) Err() error {
	return f.core.Err()
}

// Close cancels the reservoir's lifetime, lets outstanding allocators
// observe cancellation and exit, and releases any resident workers that
// implement Releasable. Close is idempotent.
func (f *Fount) Close(ctx context.Context) error {
	if f.name != "" {
		unregisterNamed(f.name)
	}
	return f.core.Close(ctx)
}

// Dump renders internal content for diagnostics.
func (f *Fount) Dump(ctx context.Context) (string, error) {
	return f.core.Dump(ctx)
}
