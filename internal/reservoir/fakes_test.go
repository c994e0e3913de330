package reservoir

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type fakeWorker struct {
	id string
}

func (w *fakeWorker) ID() string { return w.id }

// fakeFactory is a deterministic Factory. When gate is non-nil, every
// spawn-one call blocks until a token is available on it, letting tests
// control exactly when background allocators are allowed to complete.
type fakeFactory struct {
	mu      sync.Mutex
	counter int
	gate    chan struct{}

	delivered map[string]any
}

func newFakeFactory(gated bool) *fakeFactory {
	f := &fakeFactory{delivered: make(map[string]any)}
	if gated {
		f.gate = make(chan struct{}, 4096)
	}
	return f
}

// openGate admits n more spawn-one calls to proceed.
func (f *fakeFactory) openGate(n int) {
	for i := 0; i < n; i++ {
		f.gate <- struct{}{}
	}
}

func (f *fakeFactory) SpawnOne(ctx context.Context, ref CoreRef) (Worker, error) {
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	f.counter++
	id := fmt.Sprintf("w-%d", f.counter)
	f.mu.Unlock()

	w := &fakeWorker{id: id}
	ref.Link(w)
	return w, nil
}

func (f *fakeFactory) Deliver(ctx context.Context, w Worker, msg any) (Worker, error) {
	f.mu.Lock()
	f.delivered[w.ID()] = msg
	f.mu.Unlock()
	return w, nil
}

// makeWorkers returns n distinct fake workers with ids prefixed by label.
func makeWorkers(label string, n int) []Worker {
	workers := make([]Worker, n)
	for i := range workers {
		workers[i] = &fakeWorker{id: fmt.Sprintf("%s-%d", label, i)}
	}
	return workers
}

func makeSlab(label string, n int, elapsed float64) Slab {
	return Slab{ID: uuid.New(), Workers: makeWorkers(label, n), ElapsedMicros: elapsed}
}

// newBareCore builds a Core with no running event loop, for tests that
// call dispense() directly and inspect the resulting fields. launchAllocator
// still works against it (it starts a real, harmless goroutine against a
// buffered inbox nobody drains), so the outstanding-allocator bookkeeping
// under test behaves exactly as it would in a live core.
func newBareCore(t *testing.T, slabSize, depth int) *Core {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	eg, egCtx := errgroup.WithContext(ctx)
	c := &Core{
		factory:  newFakeFactory(false),
		slabSize: slabSize,
		depth:    depth,
		links:    make(map[string]Worker),
		inbox:    make(chan any, 4096),
		runCtx:   ctx,
		cancel:   cancel,
		eg:       eg,
		egCtx:    egCtx,
		log:      zap.NewNop(),
		allocLog: zap.NewNop(),
	}
	t.Cleanup(cancel)
	return c
}

func ids(workers []Worker) []string {
	out := make([]string, len(workers))
	for i, w := range workers {
		out[i] = w.ID()
	}
	return out
}

func idsEqual(a, b []Worker) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID() != b[i].ID() {
			return false
		}
	}
	return true
}
