package fount

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

// testWorker and testFactory are a minimal black-box Factory exercised
// only through the public API, since this package never sees
// internal/reservoir's own fakes.
type testWorker struct {
	id string
}

func (w *testWorker) ID() string { return w.id }

type testFactory struct {
	mu        sync.Mutex
	counter   int
	delivered map[string]any
}

func newTestFactory() *testFactory {
	return &testFactory{delivered: make(map[string]any)}
}

func (f *testFactory) SpawnOne(ctx context.Context, ref CoreRef) (Worker, error) {
	f.mu.Lock()
	f.counter++
	id := fmt.Sprintf("w-%d", f.counter)
	f.mu.Unlock()

	w := &testWorker{id: id}
	ref.Link(w)
	return w, nil
}

func (f *testFactory) Deliver(ctx context.Context, w Worker, msg any) (Worker, error) {
	f.mu.Lock()
	f.delivered[w.ID()] = msg
	f.mu.Unlock()
	return w, nil
}

func waitFullyStocked(t *testing.T, f *Fount, maxPids int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		status, err := f.Status(context.Background())
		if err != nil {
			t.Fatalf("Status: %v", err)
		}
		if status.PidCount == maxPids {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for pid-count %d, last status %+v", maxPids, status)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestNewValidatesArguments(t *testing.T) {
	if _, err := New(newTestFactory(), 0, 5); err == nil {
		t.Fatal("New with slab-size 0 should fail")
	}
	if _, err := New(newTestFactory(), 10, 1); err == nil {
		t.Fatal("New with depth 1 should fail")
	}
	if _, err := New(nil, 10, 5); err == nil {
		t.Fatal("New with nil factory should fail")
	}
}

func TestGetOneAndTaskOne(t *testing.T) {
	f, err := New(newTestFactory(), 5, 3)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer f.Close(context.Background())

	waitFullyStocked(t, f, 15)

	workers, err := f.GetOne(context.Background())
	if err != nil {
		t.Fatalf("GetOne: %v", err)
	}
	if len(workers) != 1 {
		t.Fatalf("GetOne reply length = %d, want 1", len(workers))
	}

	results, err := f.TaskOne(context.Background(), "hello")
	if err != nil {
		t.Fatalf("TaskOne: %v", err)
	}
	if len(results) != 1 || results[0].Err != nil || results[0].Worker == nil {
		t.Fatalf("TaskOne result = %+v", results)
	}
}

func TestGetManyRefusesOverInventory(t *testing.T) {
	f, err := New(newTestFactory(), 5, 3)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer f.Close(context.Background())

	workers, err := f.GetMany(context.Background(), 1000)
	if err != nil {
		t.Fatalf("GetMany: %v", err)
	}
	if len(workers) != 0 {
		t.Fatalf("GetMany(1000) reply length = %d, want 0 (refused)", len(workers))
	}
}

func TestWithNameRegistersAndUnregistersOnClose(t *testing.T) {
	f, err := New(newTestFactory(), 5, 3, WithName("test-fount-registry"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got, ok := Lookup("test-fount-registry")
	if !ok || got != f {
		t.Fatalf("Lookup after New: got=%v ok=%v, want this Fount", got, ok)
	}

	if err := f.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, ok := Lookup("test-fount-registry"); ok {
		t.Fatalf("Lookup after Close: still registered")
	}
}

func TestWithNameCollisionIsRejected(t *testing.T) {
	f1, err := New(newTestFactory(), 5, 3, WithName("dup-name"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer f1.Close(context.Background())

	if _, err := New(newTestFactory(), 5, 3, WithName("dup-name")); err == nil {
		t.Fatal("second New with the same name should fail")
	}
}

func TestCloseThenOperationsReturnErrCoreClosed(t *testing.T) {
	f, err := New(newTestFactory(), 5, 3)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := f.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, err := f.GetOne(context.Background()); !errors.Is(err, ErrCoreClosed) {
		t.Fatalf("GetOne after Close = %v, want ErrCoreClosed", err)
	}
}
