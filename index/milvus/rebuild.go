package milvus

import (
	"context"
	"fmt"

	"github.com/line72/boldaric/index"
	"github.com/line72/boldaric/log"
)

// generationWriter routes upserts into the physical collections of the
// generation being built, bypassing the active mapping.
type generationWriter struct {
	store    *Store
	physical map[string]string // logical name -> staged physical collection
}

func (w *generationWriter) Upsert(ctx context.Context, collection string, records []index.Record) error {
	phys, ok := w.physical[collection]
	if !ok {
		return fmt.Errorf("unknown collection %q", collection)
	}
	spec, err := w.store.spec(collection)
	if err != nil {
		return err
	}
	return w.store.upsertPhysical(ctx, spec, phys, records)
}

// Rebuild creates a fresh generation of every collection, lets fill populate
// it, then flips the active mapping and drops the previous generation.
// Readers keep hitting the old collections until the flip; a failed fill
// leaves the old generation active and cleans up the staged collections.
func (s *Store) Rebuild(ctx context.Context, fill func(ctx context.Context, w index.Writer) error) error {
	s.rebuildMu.Lock()
	defer s.rebuildMu.Unlock()

	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	log.Info(ctx, "Starting index rebuild", "generation", gen)

	staged := make(map[string]string, len(s.specs))
	for _, spec := range s.specs {
		phys := physicalName(spec.Name, gen)
		if err := s.createCollection(ctx, spec, phys); err != nil {
			s.discardStaged(ctx, staged)
			return err
		}
		staged[spec.Name] = phys
	}

	if err := fill(ctx, &generationWriter{store: s, physical: staged}); err != nil {
		s.discardStaged(ctx, staged)
		return fmt.Errorf("rebuild fill: %w", err)
	}

	s.mu.Lock()
	previous := s.active
	s.active = staged
	s.mu.Unlock()

	for _, phys := range previous {
		if err := s.dropCollection(ctx, phys); err != nil {
			// The flip already happened; a leftover collection is an
			// operational nuisance, not a correctness problem.
			log.Warn(ctx, "Could not drop previous generation", "collection", phys, "error", err)
		}
	}

	log.Info(ctx, "Index rebuild complete", "generation", gen)
	return nil
}

// discardStaged drops the partially built collections of a failed rebuild.
func (s *Store) discardStaged(ctx context.Context, staged map[string]string) {
	for _, phys := range staged {
		if err := s.dropCollection(ctx, phys); err != nil {
			log.Warn(ctx, "Could not drop staged collection", "collection", phys, "error", err)
		}
	}
}
