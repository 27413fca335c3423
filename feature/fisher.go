package feature

// FisherWeights is a frozen per-dimension weight vector measuring how well
// each dimension discriminates a target category from non-members:
//
//	w_i ~ (mu_pos[i] - mu_neg[i])^2 / (var_pos[i] + var_neg[i])
//
// normalized so the peak weight is 1.0. Computed offline from curated
// positive/negative example sets and shipped as versioned configuration.
type FisherWeights struct {
	Version int
	Weights []float64
}

// apply scales v element-wise by the weights. Vectors shorter than the
// weight table keep their length; extra weights are ignored.
func (f FisherWeights) apply(v []float64) []float64 {
	out := make([]float64, len(v))
	for i := range v {
		w := 0.0
		if i < len(f.Weights) {
			w = f.Weights[i]
		}
		out[i] = v[i] * w
	}
	return out
}

// genreOnlyWeights is the degenerate weight vector of the genre scheme:
// the 128 genre dimensions at 1.0, every scalar dimension zeroed.
func genreOnlyWeights() FisherWeights {
	w := make([]float64, GeneralDimensions)
	for i := genreStart; i < genreEnd; i++ {
		w[i] = 1.0
	}
	return FisherWeights{Version: 1, Weights: w}
}

// DefaultMoodWeights returns the built-in frozen mood weights (version 1),
// derived offline from mood-labelled positive/negative sets. The mood
// probability dimensions carry the discriminative mass, with mood_sadness
// as the peak.
func DefaultMoodWeights() FisherWeights {
	return FisherWeights{Version: 1, Weights: []float64{
		0.046951, 0.269249, 0.291509, 0.199915, 0.175918, 0.41467, 0.051707,
		0.101689, 0.262948, 0.035337, 0.330157, 0.050111, 0.151365, 0.108551,
		0.355415, 0.074155, 0.26496, 0.254011, 0.055007, 0.087649, 0.049652,
		0.028525, 0.026864, 0.023994, 0.296126, 0.28055, 0.239305, 0.090725,
		0.197413, 0.174358, 0.160771, 0.182381, 0.288979, 0.072437, 0.166707,
		0.202616, 0.217879, 0.054615, 0.227504, 0.127636, 0.090868, 0.147894,
		0.299977, 0.069232, 0.382132, 0.105816, 0.332109, 0.049001, 0.148451,
		0.137463, 0.354583, 0.260847, 0.152023, 0.163683, 0.061792, 0.068817,
		0.071081, 0.011268, 0.280144, 0.219795, 0.40297, 0.500013, 0.107453,
		0.145235, 0.076437, 0.218005, 0.037942, 0.025397, 0.258984, 0.336704,
		0.168556, 0.271149, 0.190613, 0.172076, 0.071109, 0.215948, 0.203672,
		0.066948, 0.30104, 0.364376, 0.118896, 0.17041, 0.44368, 0.046653,
		0.179833, 0.176915, 0.105142, 0.037772, 0.123686, 0.268425, 0.039124,
		0.355813, 0.317533, 0.077449, 0.087925, 0.172781, 0.390631, 0.162098,
		0.050162, 0.165755, 0.227473, 0.062404, 0.121588, 0.201026, 0.210725,
		0.14928, 0.10108, 0.091518, 0.333444, 0.136137, 0.18474, 0.12705,
		0.093058, 0.304063, 0.133446, 0.085687, 0.051772, 0.079536, 0.170851,
		0.267278, 0.05225, 0.129833, 0.048446, 0.15509, 0.324237, 0.285916,
		0.329153, 0.00973, 0.24227, 0.077662, 0.298079, 0.064471, 0.415749,
		0.243368, 0.507108, 0.239454, 0.348555, 0.224613, 0.133374, 0.090256,
		0.391101, 0.041, 0.112, 0.187, 0.203, 0.156, 0.088,
		0.064, 0.097, 0.135, 0.059, 0.071, 0.412, 0.308,
		0.264, 0.942, 0.815, 0.773, 0.881, 1, 0.331,
		0.276, 0.198,
	}}
}
