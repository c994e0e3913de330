package reservoir

import "github.com/google/uuid"

// Slab is an immutable, fixed-size group of workers produced atomically by
// one allocator run. Once it reaches the core it is consumed whole or
// peeled from the front; it is never mutated in place.
type Slab struct {
	ID            uuid.UUID
	Workers       []Worker
	ElapsedMicros float64
}

// combineFount reconstructs a fount from its current content and the
// remainder of a popped slab. The result is always fount-then-remainder;
// the capacity is pre-sized to the combined length regardless of which side
// is longer, so reconstruction never costs more than one allocation.
func combineFount(fount, remainder []Worker) []Worker {
	out := make([]Worker, 0, len(fount)+len(remainder))
	out = append(out, fount...)
	return append(out, remainder...)
}
