// Package vector holds the vector index value types.
package vector

import (
	"fmt"
	"math"
)

// Entry is one vector with its flat metadata.
type Entry struct {
	ID       string
	Values   []float32
	Metadata map[string]string
}

// Validate checks that the entry can be written to an index of dim dimensions.
func (e *Entry) Validate(dim int) error {
	if e.ID == "" {
		return fmt.Errorf("vector id is required")
	}
	if len(e.Values) == 0 {
		return fmt.Errorf("vector %q is empty", e.ID)
	}
	if dim > 0 && len(e.Values) != dim {
		return fmt.Errorf("vector %q has %d dimensions, index expects %d", e.ID, len(e.Values), dim)
	}
	for _, v := range e.Values {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("vector %q contains non-finite values", e.ID)
		}
	}
	return nil
}

// Match is one query hit. Score is a similarity in [0,1], higher is closer.
type Match struct {
	ID       string
	Score    float64
	Metadata map[string]string
}

// ScoreFromCosineDistance maps a cosine distance in [0,2] to a similarity in [0,1].
func ScoreFromCosineDistance(d float64) float64 {
	return Clamp01(1 - d)
}

// Clamp01 clamps s to [0,1].
func Clamp01(s float64) float64 {
	switch {
	case s < 0 || math.IsNaN(s):
		return 0
	case s > 1:
		return 1
	}
	return s
}
