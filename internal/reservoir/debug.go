package reservoir

import "github.com/davecgh/go-spew/spew"

// dump renders the core's internal content for diagnostics. It is only
// ever called from the core's own goroutine, via a dumpRequest round trip,
// so it never races with the mutations in dispense.go/core.go.
func (c *Core) dump() string {
	return spew.Sdump(struct {
		State                 State
		FountCount            int
		FountElapsedMicros    float64
		NumSlabs              int
		OutstandingAllocators int
	}{
		State:                 c.state,
		FountCount:            len(c.fount),
		FountElapsedMicros:    c.fountElapsed,
		NumSlabs:              len(c.reservoir),
		OutstandingAllocators: c.outstandingAllocators,
	})
}
