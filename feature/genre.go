package feature

import (
	"github.com/line72/boldaric/index"
	"github.com/line72/boldaric/model"
)

// Genre is the genre-only scheme: the first 128 dimensions of the general
// layout, no scalar features. Genre sub-vectors are unit-normalized, so L2
// and cosine rank identically; L2 is declared because it is cheaper with
// the index structure in use.
type Genre struct {
	general *General
}

// NewGenre creates the genre scheme.
func NewGenre(norm Normalization) *Genre {
	return &Genre{general: NewGeneral(norm)}
}

func (g *Genre) Name() string         { return string(model.CategoryGenre) }
func (g *Genre) Dimensions() int      { return GenreDimensions }
func (g *Genre) Metric() index.Metric { return index.MetricL2 }

// Embed converts attributes into the genre embedding.
func (g *Genre) Embed(attrs model.TrackAttributes) (model.Embedding, error) {
	base, err := g.general.Embed(attrs)
	if err != nil {
		return model.Embedding{}, err
	}
	return model.Embedding{
		Scheme: model.CategoryGenre,
		Values: base.Values[genreStart:genreEnd],
	}, nil
}
