package feature

import "math"

// Vector layout shared by the general, mood and genre schemes:
// genre embedding, MFCC means, then the scalar descriptors in a fixed order.
const (
	genreStart  = 0
	genreEnd    = 128
	mfccStart   = genreEnd
	mfccEnd     = mfccStart + 13
	scalarStart = mfccEnd

	// GeneralDimensions is the full 163-D layout.
	GeneralDimensions = 163
	// GenreDimensions is the genre-only prefix of the general layout.
	GenreDimensions = 128
	// LegacyDimensions is the older, smaller layout retained for
	// previously indexed data.
	LegacyDimensions = 148

	scalarCount = GeneralDimensions - scalarStart // 22
	// normalizedCount covers every non-genre dimension (MFCC + scalars).
	normalizedCount = GeneralDimensions - mfccStart // 35
)

// Absolute indices of the three heavy-tailed dimensions that get a log1p
// transform before standardization.
const (
	dimBPM                   = 141
	dimChordUniqueChords     = 147
	dimVocalAvgPitchDuration = 151
)

// Scalar block indices, relative to scalarStart. The order matches the
// original extraction layout and must never change without a table version
// bump.
const (
	scalarBPM = iota
	scalarLoudness
	scalarDynamicComplexity
	scalarEnergyCurveMean
	scalarEnergyCurveStd
	scalarEnergyCurvePeakCount
	scalarChordUniqueChords
	scalarChordChangeRate
	scalarVocalPitchPresenceRatio
	scalarVocalPitchSegmentCount
	scalarVocalAvgPitchDuration
	scalarGrooveDanceability
	scalarGrooveSyncopation
	scalarGrooveTempoStability
	scalarMoodAggressiveness
	scalarMoodHappiness
	scalarMoodPartiness
	scalarMoodRelaxedness
	scalarMoodSadness
	scalarSpectralBrightness
	scalarSpectralContrastMean
	scalarSpectralValleyStd
)

// sanitize clamps NaN and infinities to the neutral default. A single NaN
// dimension would poison every cosine or inner-product comparison later.
func sanitize(v, def float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}
	return v
}

// clamp01 bounds v to [0, 1].
func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// sigmoid is the logistic squashing used by the legacy mood block.
func sigmoid(v float64) float64 {
	return 1.0 / (1.0 + math.Exp(-v))
}

// l2Normalize scales v to unit norm in place. A near-zero vector is left
// untouched rather than divided by ~0.
func l2Normalize(v []float64) {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	norm := math.Sqrt(sum)
	if norm <= 1e-9 {
		return
	}
	for i := range v {
		v[i] /= norm
	}
}

// fitLength pads with zeros or truncates src to n entries.
func fitLength(src []float64, n int) []float64 {
	out := make([]float64, n)
	copy(out, src)
	return out
}
