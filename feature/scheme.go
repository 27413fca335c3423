// Package feature converts raw track attributes into fixed-length embedding
// vectors. Each scheme is a pure function of (attributes, frozen tables):
// two processes holding the same table version compute bit-identical vectors
// for the same track.
package feature

import (
	"fmt"

	"github.com/line72/boldaric/index"
	"github.com/line72/boldaric/model"
)

// Scheme is one named embedding policy. Dimensions and Metric are static
// capability metadata the similarity index self-configures from.
type Scheme interface {
	Name() string
	Dimensions() int
	Metric() index.Metric
	Embed(attrs model.TrackAttributes) (model.Embedding, error)
}

// Tables bundles the frozen coefficient tables loaded at startup. They are
// passed explicitly into schemes so embedding stays a pure function; there
// is no hidden global state.
type Tables struct {
	Normalization Normalization
	MoodWeights   FisherWeights
}

// DefaultTables returns the built-in frozen tables.
func DefaultTables() Tables {
	return Tables{
		Normalization: DefaultNormalization(),
		MoodWeights:   DefaultMoodWeights(),
	}
}

// ForCategory returns the scheme for a station category.
func ForCategory(cat model.Category, tables Tables) (Scheme, error) {
	switch cat {
	case model.CategoryGeneral:
		return NewGeneral(tables.Normalization), nil
	case model.CategoryMood:
		return NewMood(tables.Normalization, tables.MoodWeights), nil
	case model.CategoryGenre:
		return NewGenre(tables.Normalization), nil
	case model.CategoryLegacy:
		return NewLegacy(), nil
	default:
		return nil, fmt.Errorf("unknown category %q", cat)
	}
}

// AllSchemes returns every scheme that new tracks are indexed under. Legacy
// is included only for searching previously indexed data; IndexLegacy
// controls whether new embeddings are still produced for it.
func AllSchemes(tables Tables, includeLegacy bool) []Scheme {
	schemes := []Scheme{
		NewGeneral(tables.Normalization),
		NewMood(tables.Normalization, tables.MoodWeights),
		NewGenre(tables.Normalization),
	}
	if includeLegacy {
		schemes = append(schemes, NewLegacy())
	}
	return schemes
}

// CheckDimensions rejects embeddings whose length does not match the
// scheme's declared dimensionality.
func CheckDimensions(s Scheme, emb model.Embedding) error {
	if len(emb.Values) != s.Dimensions() {
		return fmt.Errorf("%w: scheme %s expects %d, got %d",
			model.ErrDimensionMismatch, s.Name(), s.Dimensions(), len(emb.Values))
	}
	return nil
}
