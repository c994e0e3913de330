package fount

import "github.com/fountkit/fount/internal/reservoir"

// ErrCoreDead is returned by every operation once a Fount has terminated
// because of an invariant breach. Call Err() to see what broke it.
var ErrCoreDead = reservoir.ErrCoreDead

// ErrCoreClosed is returned by every operation once Close has completed.
var ErrCoreClosed = reservoir.ErrCoreClosed

// InvariantError marks a condition this package treats as a programmer
// bug rather than a runtime condition: an overfull reservoir, or a
// Factory returning something other than a live, linked Worker.
type InvariantError = reservoir.InvariantError
