package reservoir

import "testing"

func TestDeriveState(t *testing.T) {
	const slabSize, depth = 10, 5

	tests := []struct {
		name       string
		fountCount int
		numSlabs   int
		want       State
	}{
		{"empty", 0, 0, StateEmpty},
		{"single worker in fount", 1, 0, StateLow},
		{"full fount, no slabs", 10, 0, StateLow},
		{"full fount, depth-2 slabs", 10, 3, StateLow},
		{"full fount, depth-1 slabs is FULL", 10, 4, StateFull},
		{"overfull fount, depth-1 slabs still FULL", 15, 4, StateFull},
		{"depth-1 slabs but fount short of slab-size is LOW", 9, 4, StateLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := deriveState(tt.fountCount, tt.numSlabs, slabSize, depth)
			if got != tt.want {
				t.Errorf("deriveState(%d, %d, %d, %d) = %s, want %s",
					tt.fountCount, tt.numSlabs, slabSize, depth, got, tt.want)
			}
		})
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		s    State
		want string
	}{
		{StateEmpty, "EMPTY"},
		{StateLow, "LOW"},
		{StateFull, "FULL"},
		{State(99), "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.s, got, tt.want)
		}
	}
}
