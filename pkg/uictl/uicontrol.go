// Package uictl defines read-only controls the UI polls for live values.
package uictl

import "golang.org/x/exp/constraints"

type Number interface {
	constraints.Integer | constraints.Float
}

// Dial is a control that can read some value.
type Dial[N Number] interface {
	Read() N
}

// DialFunc adapts a function to a Dial.
type DialFunc[N Number] func() N

// Read calls f.
func (f DialFunc[N]) Read() N {
	return f()
}

// Levels is a control that can read multiple levels.
type Levels[N Number] interface {
	Read() []N
}
