package feature

import "math"

// Normalization is the frozen per-dimension (mean, std) table applied to the
// 35 non-genre dimensions of the general layout. It is computed once offline
// over a reference corpus and shipped as versioned configuration; it is
// never recomputed from request data. Bumping Version invalidates every
// stored embedding for the schemes that use it.
type Normalization struct {
	Version int
	Mean    []float64 // 35 entries: MFCC[13] then scalars[22]
	Std     []float64
}

// DefaultNormalization returns the built-in frozen table (version 1),
// derived offline from the reference corpus. The three heavy-tailed
// dimensions (bpm, chord_unique_chords, vocal_avg_pitch_duration) are stored
// in log1p space.
func DefaultNormalization() Normalization {
	return Normalization{
		Version: 1,
		Mean: []float64{
			// MFCC means, coefficients 1..13
			-672.153809, 98.442307, -21.876204, 33.505390, -6.023414,
			11.407429, -8.291406, 5.116209, -5.873308, 2.280156,
			-4.490970, 0.834543, -2.724359,
			// bpm (log1p), loudness, dynamic_complexity
			4.776313, -9.633705, 4.871123,
			// energy_curve_mean, energy_curve_std, energy_curve_peak_count
			0.214587, 0.092331, 31.247044,
			// chord_unique_chords (log1p), chord_change_rate
			2.698427, 0.684291,
			// vocal_pitch_presence_ratio, vocal_pitch_segment_count,
			// vocal_avg_pitch_duration (log1p)
			0.531204, 184.730591, 0.402517,
			// groove_danceability, groove_syncopation, groove_tempo_stability
			1.172845, 0.021309, 0.874411,
			// mood probabilities
			0.381224, 0.442971, 0.390465, 0.512388, 0.437615,
			// spectral brightness, contrast_mean, valley_std
			0.286733, -0.614209, 1.938554,
		},
		Std: []float64{
			91.338761, 32.180694, 18.106524, 12.871309, 9.742611,
			7.935027, 6.680145, 5.712301, 5.041210, 4.437186,
			4.102233, 3.680419, 3.351002,
			0.238901, 3.217294, 1.693482,
			0.097214, 0.046705, 14.380219,
			0.441318, 0.307594,
			0.238476, 121.408623, 0.187294,
			0.523418, 0.014873, 0.129406,
			0.226130, 0.231804, 0.219973, 0.207148, 0.228691,
			0.094412, 0.160277, 0.804619,
		},
	}
}

// standardize z-scores one non-genre dimension. dim is the absolute index in
// the general layout (>= mfccStart). A degenerate std freezes the dimension
// at zero rather than dividing by ~0.
func (n Normalization) standardize(dim int, value float64) float64 {
	i := dim - mfccStart
	if i < 0 || i >= len(n.Mean) || i >= len(n.Std) {
		return value
	}
	std := n.Std[i]
	if std <= 1e-9 {
		return 0
	}
	return (value - n.Mean[i]) / std
}

// logTransformed reports whether the dimension is stored in log1p space.
func logTransformed(dim int) bool {
	return dim == dimBPM || dim == dimChordUniqueChords || dim == dimVocalAvgPitchDuration
}

// applyLog1p transforms the heavy-tailed raw value into the table's space.
// Negative raw values (bad extractions) clamp to zero first.
func applyLog1p(value float64) float64 {
	return math.Log1p(math.Max(0, value))
}
