package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/fountkit/fount"
)

// demoWorker is a toy worker: a goroutine parked waiting for exactly one
// message, or for Release if it is torn down while still idle.
type demoWorker struct {
	id   string
	msgs chan any
	stop chan struct{}
	once sync.Once
}

func (w *demoWorker) ID() string { return w.id }

// Release satisfies fount.Releasable: it is called by a Fount during Close
// for any worker still resident (never dispensed) at shutdown time.
func (w *demoWorker) Release() {
	w.once.Do(func() { close(w.stop) })
}

func (w *demoWorker) run() {
	select {
	case msg := <-w.msgs:
		fmt.Printf("worker %s handling %v\n", w.id, msg)
	case <-w.stop:
	}
}

// demoFactory implements fount.Factory with workers that do nothing useful
// beyond printing what they were asked to do; it exists to exercise the
// reservoir's lifecycle, not to demonstrate real work.
type demoFactory struct{}

func (demoFactory) SpawnOne(ctx context.Context, ref fount.CoreRef) (fount.Worker, error) {
	w := &demoWorker{
		id:   uuid.New().String(),
		msgs: make(chan any, 1),
		stop: make(chan struct{}),
	}
	ref.Link(w)
	go w.run()
	return w, nil
}

func (demoFactory) Deliver(ctx context.Context, w fount.Worker, msg any) (fount.Worker, error) {
	dw, ok := w.(*demoWorker)
	if !ok {
		return nil, fmt.Errorf("demo: unexpected worker type %T", w)
	}
	select {
	case dw.msgs <- msg:
		return dw, nil
	default:
		return nil, fmt.Errorf("demo: worker %s already has a pending message", dw.id)
	}
}
