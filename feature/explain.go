package feature

import "math"

// ComponentSimilarity quantifies how one sub-vector (genre, MFCC, groove,
// mood) contributed to a match, since the embedding layout is known.
type ComponentSimilarity struct {
	Name string
	// Similarity is the cosine similarity of this sub-vector pair.
	Similarity float64
	// Contribution is the share of the total similarity attributable to
	// this component, in percent.
	Contribution float64
}

type componentRange struct {
	name       string
	start, end int
}

// Component boundaries per layout. The legacy boundaries are the original
// 148-D ones; the 163-D layout reports its groove and mood scalar blocks.
var (
	legacyComponents = []componentRange{
		{"genre", genreStart, genreEnd},
		{"mfcc", mfccStart, mfccEnd},
		{"groove", legacyGrooveStart, legacyGrooveEnd},
		{"mood", legacyMoodStart, legacyMoodEnd},
	}
	generalComponents = []componentRange{
		{"genre", genreStart, genreEnd},
		{"mfcc", mfccStart, mfccEnd},
		{"groove", scalarStart + scalarGrooveDanceability, scalarStart + scalarGrooveTempoStability + 1},
		{"mood", scalarStart + scalarMoodAggressiveness, scalarStart + scalarMoodSadness + 1},
	}
)

// Explain computes per-component cosine similarities between a query and a
// result embedding, and each component's proportional contribution to the
// given total similarity. Vectors of unknown or mismatched length yield nil.
func Explain(query, result []float64, totalSimilarity float64) []ComponentSimilarity {
	if len(query) != len(result) {
		return nil
	}

	var components []componentRange
	var total int
	switch len(query) {
	case LegacyDimensions:
		components, total = legacyComponents, LegacyDimensions
	case GeneralDimensions:
		components, total = generalComponents, GeneralDimensions
	case GenreDimensions:
		components = []componentRange{{"genre", genreStart, genreEnd}}
		total = GenreDimensions
	default:
		return nil
	}

	out := make([]ComponentSimilarity, 0, len(components))
	for _, c := range components {
		sim := cosine(query[c.start:c.end], result[c.start:c.end])
		contribution := 0.0
		if totalSimilarity > 0 {
			contribution = sim * float64(c.end-c.start) / float64(total) / totalSimilarity * 100
		}
		out = append(out, ComponentSimilarity{
			Name:         c.name,
			Similarity:   sim,
			Contribution: contribution,
		})
	}
	return out
}

// cosine computes the cosine similarity of two equal-length vectors.
func cosine(a, b []float64) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
