package feature

import (
	"github.com/line72/boldaric/index"
	"github.com/line72/boldaric/model"
)

// Legacy layout boundaries.
const (
	legacyGrooveStart = 141
	legacyGrooveEnd   = 143
	legacyMoodStart   = 143
	legacyMoodEnd     = 148
)

// Legacy is the older 148-D scheme: L2-normalized genre block, MFCC means
// normalized as one block (not per dimension), two clamped groove scalars
// and the five mood probabilities squashed through a logistic, with the
// WHOLE concatenated vector L2-normalized at the end. The whole-vector
// normalization differs from the general scheme on purpose: previously
// indexed data depends on this exact shape. New code must not produce
// legacy embeddings for fresh tracks.
type Legacy struct{}

// NewLegacy creates the legacy scheme.
func NewLegacy() *Legacy { return &Legacy{} }

func (l *Legacy) Name() string         { return string(model.CategoryLegacy) }
func (l *Legacy) Dimensions() int      { return LegacyDimensions }
func (l *Legacy) Metric() index.Metric { return index.MetricCosine }

// Embed converts attributes into the legacy embedding.
func (l *Legacy) Embed(attrs model.TrackAttributes) (model.Embedding, error) {
	out := make([]float64, 0, LegacyDimensions)

	genre := fitLength(attrs.GenreEmbedding, genreEnd-genreStart)
	l2Normalize(genre)
	out = append(out, genre...)

	mfcc := fitLength(attrs.MFCCMean, mfccEnd-mfccStart)
	l2Normalize(mfcc)
	out = append(out, mfcc...)

	out = append(out,
		clamp01(sanitize(model.Scalar(attrs.GrooveDanceability, 0.5), 0.5)),
		clamp01(sanitize(model.Scalar(attrs.GrooveTempoStability, 0.5), 0.5)),
	)

	for _, p := range []*float64{
		attrs.MoodAggressiveness,
		attrs.MoodHappiness,
		attrs.MoodPartiness,
		attrs.MoodRelaxedness,
		attrs.MoodSadness,
	} {
		out = append(out, sigmoid(sanitize(model.Scalar(p, 0.5), 0.5)))
	}

	l2Normalize(out)
	return model.Embedding{Scheme: model.CategoryLegacy, Values: out}, nil
}
