// Package memory provides an in-process index.Store. It backs tests and
// single-node development setups where running Milvus is overkill; the
// semantics (per-collection metric, deterministic tie-breaks, generational
// rebuild) match the Milvus store.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/line72/boldaric/index"
	"github.com/line72/boldaric/model"
)

type record struct {
	index.Record
	seq int64 // insertion order, the deterministic tie-break
}

type collection struct {
	spec    index.CollectionSpec
	records map[string]*record
	nextSeq int64
}

func newCollection(spec index.CollectionSpec) *collection {
	return &collection{
		spec:    spec,
		records: make(map[string]*record),
	}
}

func (c *collection) upsert(records []index.Record) error {
	for _, r := range records {
		if len(r.Embedding) != c.spec.Dimensions {
			return fmt.Errorf("%w: collection %s expects %d, got %d for %s",
				model.ErrDimensionMismatch, c.spec.Name, c.spec.Dimensions, len(r.Embedding), r.ID)
		}
		if existing, ok := c.records[r.ID]; ok {
			// Replacement keeps the original insertion order.
			existing.Record = r
			continue
		}
		c.records[r.ID] = &record{Record: r, seq: c.nextSeq}
		c.nextSeq++
	}
	return nil
}

// Store is an in-memory vector store with one collection per embedding
// scheme. Reads take a shared lock; a rebuild assembles a complete new
// generation off to the side and swaps it in under the write lock, so
// concurrent readers observe either the old or the new generation.
type Store struct {
	specs []index.CollectionSpec

	mu          sync.RWMutex
	collections map[string]*collection

	rebuildMu sync.Mutex // serializes rebuilds against each other
}

// New creates a Store with one empty collection per spec.
func New(specs ...index.CollectionSpec) *Store {
	s := &Store{specs: specs, collections: make(map[string]*collection)}
	for _, spec := range specs {
		s.collections[spec.Name] = newCollection(spec)
	}
	return s
}

func (s *Store) collection(name string) (*collection, error) {
	c, ok := s.collections[name]
	if !ok {
		return nil, fmt.Errorf("unknown collection %q", name)
	}
	return c, nil
}

// Upsert inserts or replaces records; idempotent on id.
func (s *Store) Upsert(_ context.Context, name string, records []index.Record) error {
	if len(records) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.collection(name)
	if err != nil {
		return err
	}
	return c.upsert(records)
}

// Delete removes the given ids; missing ids are ignored.
func (s *Store) Delete(_ context.Context, name string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.collection(name)
	if err != nil {
		return err
	}
	for _, id := range ids {
		delete(c.records, id)
	}
	return nil
}

// DeleteAll empties a collection.
func (s *Store) DeleteAll(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.collection(name); err != nil {
		return err
	}
	s.collections[name] = newCollection(s.collections[name].spec)
	return nil
}

// Query returns the k nearest records, best-first under the collection's
// metric, ties broken by insertion order.
func (s *Store) Query(_ context.Context, name string, target []float64, k int) ([]index.Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, err := s.collection(name)
	if err != nil {
		return nil, err
	}
	if len(target) != c.spec.Dimensions {
		return nil, fmt.Errorf("%w: query against %s expects %d, got %d",
			model.ErrDimensionMismatch, name, c.spec.Dimensions, len(target))
	}
	if k <= 0 {
		return nil, nil
	}

	type scored struct {
		rec  *record
		dist float64
	}
	all := make([]scored, 0, len(c.records))
	for _, r := range c.records {
		all = append(all, scored{rec: r, dist: distance(c.spec.Metric, target, r.Embedding)})
	}

	betterFirst := func(i, j int) bool {
		di, dj := all[i].dist, all[j].dist
		if di != dj {
			if c.spec.Metric == index.MetricInnerProduct {
				return di > dj // higher inner product is closer
			}
			return di < dj
		}
		return all[i].rec.seq < all[j].rec.seq
	}
	sort.Slice(all, betterFirst)

	if k > len(all) {
		k = len(all)
	}
	hits := make([]index.Hit, 0, k)
	for _, s := range all[:k] {
		emb := make([]float64, len(s.rec.Embedding))
		copy(emb, s.rec.Embedding)
		hits = append(hits, index.Hit{
			ID:        s.rec.ID,
			Distance:  s.dist,
			Embedding: emb,
			Artist:    s.rec.Artist,
			Title:     s.rec.Title,
			Album:     s.rec.Album,
		})
	}
	return hits, nil
}

// Get returns the record with the given id, or nil.
func (s *Store) Get(_ context.Context, name string, id string) (*index.Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, err := s.collection(name)
	if err != nil {
		return nil, err
	}
	r, ok := c.records[id]
	if !ok {
		return nil, nil
	}
	emb := make([]float64, len(r.Embedding))
	copy(emb, r.Embedding)
	return &index.Hit{
		ID:        r.ID,
		Embedding: emb,
		Artist:    r.Artist,
		Title:     r.Title,
		Album:     r.Album,
	}, nil
}

// Exists reports whether the id is present.
func (s *Store) Exists(ctx context.Context, name string, id string) (bool, error) {
	hit, err := s.Get(ctx, name, id)
	if err != nil {
		return false, err
	}
	return hit != nil, nil
}

// Count returns the number of records in a collection.
func (s *Store) Count(_ context.Context, name string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, err := s.collection(name)
	if err != nil {
		return 0, err
	}
	return int64(len(c.records)), nil
}

// staging is the Writer handed to Rebuild's fill callback. It owns its own
// lock so fill may upsert from multiple goroutines.
type staging struct {
	mu          sync.Mutex
	collections map[string]*collection
}

func (st *staging) Upsert(_ context.Context, name string, records []index.Record) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	c, ok := st.collections[name]
	if !ok {
		return fmt.Errorf("unknown collection %q", name)
	}
	return c.upsert(records)
}

// Rebuild assembles a complete new generation and swaps it in atomically.
// Readers mid-query see the prior generation until the swap.
func (s *Store) Rebuild(ctx context.Context, fill func(ctx context.Context, w index.Writer) error) error {
	s.rebuildMu.Lock()
	defer s.rebuildMu.Unlock()

	st := &staging{collections: make(map[string]*collection, len(s.specs))}
	for _, spec := range s.specs {
		st.collections[spec.Name] = newCollection(spec)
	}

	if err := fill(ctx, st); err != nil {
		return fmt.Errorf("rebuild fill: %w", err)
	}

	s.mu.Lock()
	s.collections = st.collections
	s.mu.Unlock()
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error { return nil }

// distance computes the metric-specific distance between two vectors. For
// inner product the "distance" is the raw inner product, where larger means
// closer.
func distance(metric index.Metric, a, b []float64) float64 {
	switch metric {
	case index.MetricL2:
		var sum float64
		for i := range a {
			d := a[i] - b[i]
			sum += d * d
		}
		return math.Sqrt(sum)
	case index.MetricInnerProduct:
		var dot float64
		for i := range a {
			dot += a[i] * b[i]
		}
		return dot
	default: // cosine distance
		var dot, normA, normB float64
		for i := range a {
			dot += a[i] * b[i]
			normA += a[i] * a[i]
			normB += b[i] * b[i]
		}
		if normA == 0 || normB == 0 {
			return 1
		}
		return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
	}
}
