package feature

import (
	"github.com/line72/boldaric/index"
	"github.com/line72/boldaric/model"
)

// Mood is the general scheme reweighted element-wise by the frozen mood
// Fisher weights. The declared metric is inner product rather than cosine:
// the weighting already encodes relative importance, and the near-zero
// irrelevant dimensions must not distort a unit-norm comparison.
type Mood struct {
	general *General
	weights FisherWeights
}

// NewMood creates the mood scheme bound to the frozen tables.
func NewMood(norm Normalization, weights FisherWeights) *Mood {
	return &Mood{general: NewGeneral(norm), weights: weights}
}

func (m *Mood) Name() string         { return string(model.CategoryMood) }
func (m *Mood) Dimensions() int      { return GeneralDimensions }
func (m *Mood) Metric() index.Metric { return index.MetricInnerProduct }

// Embed converts attributes into the mood embedding.
func (m *Mood) Embed(attrs model.TrackAttributes) (model.Embedding, error) {
	base, err := m.general.Embed(attrs)
	if err != nil {
		return model.Embedding{}, err
	}
	return model.Embedding{
		Scheme: model.CategoryMood,
		Values: m.weights.apply(base.Values),
	}, nil
}
