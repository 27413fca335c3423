// Package engine turns a target vector into a ranked, filtered, sampled list
// of track recommendations.
package engine

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/line72/boldaric/feature"
	"github.com/line72/boldaric/index"
	"github.com/line72/boldaric/log"
	"github.com/line72/boldaric/model"
)

// Config holds recommendation engine configuration.
type Config struct {
	// Oversample is the multiplier applied to the requested count when
	// querying the index, so that exclusion filtering still leaves enough
	// candidates to sample from.
	Oversample int
	// DefaultCount is the number of recommendations returned when the
	// request does not say.
	DefaultCount int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Oversample:   3,
		DefaultCount: 5,
	}
}

// Request holds the parameters of one recommendation call.
type Request struct {
	// Collection is the index collection to search, one per embedding
	// scheme.
	Collection string
	// Target is the taste vector to search around.
	Target []float64
	// Exclude lists (artist, title) pairs that must never be returned:
	// thumbs-downed tracks plus the station's replay cooldown window.
	Exclude []model.TrackRef
	// RecentArtists are the artists of the most recently played tracks,
	// newest first. Candidates by these artists are downranked, not
	// dropped.
	RecentArtists []string
	// DownrankFactor multiplies the similarity of recent-artist
	// candidates. Values in (0, 1]; 1 disables the penalty.
	DownrankFactor float64
	// IgnoreLive drops candidates whose title marks a live recording.
	IgnoreLive bool
	// Count is the number of recommendations to return.
	Count int
}

// Candidate is one recommended track, in sampled order.
type Candidate struct {
	ID     string
	Artist string
	Title  string
	Album  string
	// Similarity is the adjusted similarity used for sampling, after any
	// artist downranking.
	Similarity float64
	// RawSimilarity is the unadjusted similarity under the collection's
	// metric.
	RawSimilarity float64
	// Components breaks the raw similarity down by embedding sub-vector,
	// for diagnostic consumers.
	Components []feature.ComponentSimilarity
}

// Selector picks the next tracks for a station from the similarity index.
// Safe for concurrent use.
type Selector struct {
	config Config
	store  index.Store
	metric map[string]index.Metric

	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures a Selector.
type Option func(*Selector)

// WithRand replaces the sampling randomness source. Tests use this to make
// the weighted sampling deterministic.
func WithRand(rng *rand.Rand) Option {
	return func(s *Selector) { s.rng = rng }
}

// New creates a Selector over the given store. The specs declare the metric
// each collection is searched under, which drives distance-to-similarity
// conversion.
func New(cfg Config, store index.Store, specs []index.CollectionSpec, opts ...Option) *Selector {
	if cfg.Oversample <= 0 {
		cfg.Oversample = 3
	}
	if cfg.DefaultCount <= 0 {
		cfg.DefaultCount = 5
	}

	s := &Selector{
		config: cfg,
		store:  store,
		metric: make(map[string]index.Metric, len(specs)),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, spec := range specs {
		s.metric[spec.Name] = spec.Metric
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// scoredCandidate is a candidate mid-pipeline, before sampling.
type scoredCandidate struct {
	Candidate
}

// Next returns up to req.Count recommendations. An empty result after
// filtering is a normal outcome, not an error.
func (s *Selector) Next(ctx context.Context, req Request) ([]Candidate, error) {
	metric, ok := s.metric[req.Collection]
	if !ok {
		return nil, fmt.Errorf("unknown collection %q", req.Collection)
	}
	count := req.Count
	if count <= 0 {
		count = s.config.DefaultCount
	}
	downrank := req.DownrankFactor
	if downrank <= 0 || downrank > 1 {
		downrank = 1
	}

	// Oversample beyond the exclusion list so filtering can't starve the
	// sampler.
	k := count*s.config.Oversample + len(req.Exclude)

	hits, err := s.store.Query(ctx, req.Collection, req.Target, k)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", req.Collection, err)
	}

	excluded := make(map[string]bool, len(req.Exclude))
	for _, ref := range req.Exclude {
		excluded[ref.Key()] = true
	}
	recent := make(map[string]bool, len(req.RecentArtists))
	for _, artist := range req.RecentArtists {
		recent[artist] = true
	}

	var survivors []scoredCandidate
	for _, hit := range hits {
		if excluded[(model.TrackRef{Artist: hit.Artist, Title: hit.Title}).Key()] {
			continue
		}
		if req.IgnoreLive && isLiveTitle(hit.Title) {
			continue
		}

		raw := index.Similarity(metric, hit.Distance)
		adjusted := raw
		if recent[hit.Artist] {
			adjusted *= downrank
		}

		survivors = append(survivors, scoredCandidate{Candidate{
			ID:            hit.ID,
			Artist:        hit.Artist,
			Title:         hit.Title,
			Album:         hit.Album,
			Similarity:    adjusted,
			RawSimilarity: raw,
			Components:    feature.Explain(req.Target, hit.Embedding, raw),
		}})
	}

	sort.SliceStable(survivors, func(i, j int) bool {
		return survivors[i].Similarity > survivors[j].Similarity
	})

	picked := s.sample(survivors, count)

	log.Debug(ctx, "Selected recommendations",
		"collection", req.Collection,
		"candidates", len(hits),
		"survivors", len(survivors),
		"picked", len(picked),
	)

	out := make([]Candidate, len(picked))
	for i, c := range picked {
		out[i] = c.Candidate
	}
	return out, nil
}

// sample draws up to count candidates without replacement, each candidate
// weighted by its adjusted similarity. Non-positive weights never win a draw
// while a positive-weight candidate remains; once only non-positive weights
// are left, the best-ranked remaining candidate is taken.
func (s *Selector) sample(candidates []scoredCandidate, count int) []scoredCandidate {
	s.mu.Lock()
	defer s.mu.Unlock()

	remaining := make([]scoredCandidate, len(candidates))
	copy(remaining, candidates)

	if count > len(remaining) {
		count = len(remaining)
	}

	picked := make([]scoredCandidate, 0, count)
	for len(picked) < count {
		var total float64
		for _, c := range remaining {
			if c.Similarity > 0 {
				total += c.Similarity
			}
		}

		idx := 0
		if total > 0 {
			r := s.rng.Float64() * total
			for i, c := range remaining {
				if c.Similarity <= 0 {
					continue
				}
				r -= c.Similarity
				if r < 0 {
					idx = i
					break
				}
			}
		}

		picked = append(picked, remaining[idx])
		remaining = append(remaining[:idx], remaining[idx+1:]...)
	}
	return picked
}
