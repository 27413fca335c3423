// Package simulator converts a station's weighted rating history into a
// target feature vector, one damped particle simulation per dimension.
package simulator

import (
	"fmt"
	"math"

	"github.com/line72/boldaric/model"
)

// Sample is one historical observation of a single feature dimension: the
// dimension's value in a rated track and the rating acting as its weight.
// Positive weights attract the particle, negative weights repel it.
type Sample struct {
	Value  float64
	Weight float64
}

// History holds the per-dimension sample lists for one recommendation
// request. It is built fresh from persisted rating events and discarded
// after the request.
type History [][]Sample

// NewHistory creates an empty history with one sample list per dimension.
func NewHistory(dimensions int) History {
	return make(History, dimensions)
}

// Add appends one rated embedding to the history. The embedding must match
// the history's dimensionality; NaN or infinite values are skipped so they
// cannot poison the simulation.
func (h History) Add(values []float64, rating int) error {
	if len(values) != len(h) {
		return fmt.Errorf("%w: history has %d dimensions, embedding has %d",
			model.ErrDimensionMismatch, len(h), len(values))
	}
	w := float64(rating)
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		h[i] = append(h[i], Sample{Value: v, Weight: w})
	}
	return nil
}

// Empty reports whether no samples were recorded in any dimension.
func (h History) Empty() bool {
	for _, dim := range h {
		if len(dim) > 0 {
			return false
		}
	}
	return true
}
