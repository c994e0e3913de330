package reservoir

import "math"

// Status is a read-only snapshot of the reservoir's content.
type Status struct {
	State      State
	Factory    Factory
	FountCount int
	NumSlabs   int
	SlabSize   int
	Depth      int
	MaxPids    int
	PidCount   int
}

func roundHundredths(v float64) float64 {
	return math.Round(v*100) / 100
}
