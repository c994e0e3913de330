package fount

import "github.com/fountkit/fount/internal/reservoir"

// Worker is a live, independently scheduled task produced by a Factory.
// It is usable for exactly one job after it has been dispensed by a Fount.
type Worker = reservoir.Worker

// Releasable is implemented by workers holding resources that must be torn
// down if a Fount terminates while they are still idle and never dispensed.
type Releasable = reservoir.Releasable

// CoreRef is the back-reference a Factory's SpawnOne receives so it can
// link a freshly spawned worker's lifetime to the Fount that owns it.
type CoreRef = reservoir.CoreRef

// Factory is the sole collaborator a Fount invokes to produce and use
// workers. Callers supply an implementation; a Fount only ever calls it.
type Factory = reservoir.Factory

// TaskResult pairs a dispensed Worker with the outcome of delivering its
// message, as returned by TaskOne/TaskMany.
type TaskResult = reservoir.TaskResult

// State is one of EmptyState/LowState/FullState.
type State = reservoir.State

const (
	EmptyState = reservoir.StateEmpty
	LowState   = reservoir.StateLow
	FullState  = reservoir.StateFull
)

// Status is a read-only snapshot of a Fount's current content.
type Status = reservoir.Status
