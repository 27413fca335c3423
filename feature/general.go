package feature

import (
	"github.com/line72/boldaric/index"
	"github.com/line72/boldaric/model"
)

// General is the 163-D normalized scheme: an L2-normalized genre block,
// then MFCC means and the scalar descriptors, all 35 non-genre dimensions
// standardized against the frozen table. The full vector is intentionally
// NOT renormalized (unlike the legacy scheme).
type General struct {
	norm Normalization
}

// NewGeneral creates the general scheme bound to a frozen table.
func NewGeneral(norm Normalization) *General {
	return &General{norm: norm}
}

func (g *General) Name() string         { return string(model.CategoryGeneral) }
func (g *General) Dimensions() int      { return GeneralDimensions }
func (g *General) Metric() index.Metric { return index.MetricCosine }

// Embed converts attributes into the general embedding. Missing attributes
// fall back to neutral defaults; a track always produces some vector.
func (g *General) Embed(attrs model.TrackAttributes) (model.Embedding, error) {
	raw := rawGeneral(attrs)
	for dim := mfccStart; dim < GeneralDimensions; dim++ {
		v := raw[dim]
		if logTransformed(dim) {
			v = applyLog1p(v)
		}
		raw[dim] = g.norm.standardize(dim, v)
	}
	return model.Embedding{Scheme: model.CategoryGeneral, Values: raw}, nil
}

// rawGeneral builds the un-standardized 163-D vector: genre (unit norm),
// raw MFCC means and raw scalars with neutral defaults substituted.
func rawGeneral(attrs model.TrackAttributes) []float64 {
	out := make([]float64, GeneralDimensions)

	genre := fitLength(attrs.GenreEmbedding, genreEnd-genreStart)
	l2Normalize(genre)
	copy(out[genreStart:genreEnd], genre)

	copy(out[mfccStart:mfccEnd], fitLength(attrs.MFCCMean, mfccEnd-mfccStart))

	for i, s := range generalScalars {
		out[scalarStart+i] = sanitize(model.Scalar(s.value(attrs), s.neutral), s.neutral)
	}
	return out
}

// generalScalars lists the 22 scalar descriptors in layout order. The
// neutral default is 0.5 for [0,1]-bounded features and 0 for the rest.
var generalScalars = []struct {
	name    string
	neutral float64
	value   func(model.TrackAttributes) *float64
}{
	{"bpm", 0, func(a model.TrackAttributes) *float64 { return a.BPM }},
	{"loudness", 0, func(a model.TrackAttributes) *float64 { return a.Loudness }},
	{"dynamic_complexity", 0, func(a model.TrackAttributes) *float64 { return a.DynamicComplexity }},
	{"energy_curve_mean", 0, func(a model.TrackAttributes) *float64 { return a.EnergyCurveMean }},
	{"energy_curve_std", 0, func(a model.TrackAttributes) *float64 { return a.EnergyCurveStd }},
	{"energy_curve_peak_count", 0, func(a model.TrackAttributes) *float64 { return a.EnergyCurvePeakCount }},
	{"chord_unique_chords", 0, func(a model.TrackAttributes) *float64 { return a.ChordUniqueChords }},
	{"chord_change_rate", 0, func(a model.TrackAttributes) *float64 { return a.ChordChangeRate }},
	{"vocal_pitch_presence_ratio", 0.5, func(a model.TrackAttributes) *float64 { return a.VocalPitchPresenceRatio }},
	{"vocal_pitch_segment_count", 0, func(a model.TrackAttributes) *float64 { return a.VocalPitchSegmentCount }},
	{"vocal_avg_pitch_duration", 0, func(a model.TrackAttributes) *float64 { return a.VocalAvgPitchDuration }},
	{"groove_danceability", 0.5, func(a model.TrackAttributes) *float64 { return a.GrooveDanceability }},
	{"groove_syncopation", 0, func(a model.TrackAttributes) *float64 { return a.GrooveSyncopation }},
	{"groove_tempo_stability", 0.5, func(a model.TrackAttributes) *float64 { return a.GrooveTempoStability }},
	{"mood_aggressiveness", 0.5, func(a model.TrackAttributes) *float64 { return a.MoodAggressiveness }},
	{"mood_happiness", 0.5, func(a model.TrackAttributes) *float64 { return a.MoodHappiness }},
	{"mood_partiness", 0.5, func(a model.TrackAttributes) *float64 { return a.MoodPartiness }},
	{"mood_relaxedness", 0.5, func(a model.TrackAttributes) *float64 { return a.MoodRelaxedness }},
	{"mood_sadness", 0.5, func(a model.TrackAttributes) *float64 { return a.MoodSadness }},
	{"spectral_character_brightness", 0, func(a model.TrackAttributes) *float64 { return a.SpectralBrightness }},
	{"spectral_character_contrast_mean", 0, func(a model.TrackAttributes) *float64 { return a.SpectralContrastMean }},
	{"spectral_character_valley_std", 0, func(a model.TrackAttributes) *float64 { return a.SpectralValleyStd }},
}
