// Package indexer maintains the similarity index: it embeds catalog tracks
// under every active scheme and keeps the per-scheme collections in sync
// with the catalog.
package indexer

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/line72/boldaric/feature"
	"github.com/line72/boldaric/index"
	"github.com/line72/boldaric/log"
	"github.com/line72/boldaric/model"
)

// rebuildBatchSize is the number of tracks buffered before a rebuild flushes
// them to the index.
const rebuildBatchSize = 256

// Catalog streams the tracks to index. Implemented by the station store.
type Catalog interface {
	ForEachTrack(ctx context.Context, fn func(track model.Track) error) error
}

// Indexer embeds tracks and writes them to the similarity index, one
// collection per scheme.
type Indexer struct {
	store   index.Store
	schemes []feature.Scheme
	catalog Catalog
}

// CollectionSpecs derives the index collection layout from a set of schemes.
func CollectionSpecs(schemes []feature.Scheme) []index.CollectionSpec {
	specs := make([]index.CollectionSpec, len(schemes))
	for i, s := range schemes {
		specs[i] = index.CollectionSpec{
			Name:       s.Name(),
			Dimensions: s.Dimensions(),
			Metric:     s.Metric(),
		}
	}
	return specs
}

// New creates an Indexer over the given store and schemes.
func New(store index.Store, schemes []feature.Scheme, catalog Catalog) *Indexer {
	return &Indexer{
		store:   store,
		schemes: schemes,
		catalog: catalog,
	}
}

// record embeds one track under one scheme.
func record(s feature.Scheme, track model.Track) (index.Record, error) {
	emb, err := s.Embed(track.Attributes)
	if err != nil {
		return index.Record{}, fmt.Errorf("embed %s under %s: %w", track.ID, s.Name(), err)
	}
	return index.Record{
		ID:        track.ID,
		Embedding: emb.Values,
		Artist:    track.Artist,
		Title:     track.Title,
		Album:     track.Album,
	}, nil
}

// IndexTrack embeds a track under every scheme and upserts it into the
// matching collections.
func (ix *Indexer) IndexTrack(ctx context.Context, track model.Track) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, s := range ix.schemes {
		s := s
		g.Go(func() error {
			rec, err := record(s, track)
			if err != nil {
				return err
			}
			return ix.store.Upsert(ctx, s.Name(), []index.Record{rec})
		})
	}
	return g.Wait()
}

// RemoveTracks deletes the given track ids from every collection.
func (ix *Indexer) RemoveTracks(ctx context.Context, ids []string) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, s := range ix.schemes {
		s := s
		g.Go(func() error {
			return ix.store.Delete(ctx, s.Name(), ids)
		})
	}
	return g.Wait()
}

// RebuildAll re-embeds the whole catalog into a fresh index generation. The
// swap is atomic: searches keep hitting the old generation until the rebuild
// finishes, and a failed rebuild leaves it untouched.
func (ix *Indexer) RebuildAll(ctx context.Context) error {
	log.Info(ctx, "Rebuilding similarity index", "schemes", len(ix.schemes))

	var indexed int
	err := ix.store.Rebuild(ctx, func(ctx context.Context, w index.Writer) error {
		batch := make([]model.Track, 0, rebuildBatchSize)

		flush := func() error {
			if len(batch) == 0 {
				return nil
			}
			if err := ix.writeBatch(ctx, w, batch); err != nil {
				return err
			}
			indexed += len(batch)
			batch = batch[:0]
			return nil
		}

		err := ix.catalog.ForEachTrack(ctx, func(track model.Track) error {
			batch = append(batch, track)
			if len(batch) >= rebuildBatchSize {
				return flush()
			}
			return nil
		})
		if err != nil {
			return err
		}
		return flush()
	})
	if err != nil {
		return fmt.Errorf("rebuild index: %w", err)
	}

	log.Info(ctx, "Similarity index rebuilt", "tracks", indexed)
	return nil
}

// writeBatch embeds a batch under every scheme in parallel and upserts each
// scheme's records into the staged generation.
func (ix *Indexer) writeBatch(ctx context.Context, w index.Writer, batch []model.Track) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, s := range ix.schemes {
		s := s
		g.Go(func() error {
			records := make([]index.Record, 0, len(batch))
			for _, track := range batch {
				rec, err := record(s, track)
				if err != nil {
					return err
				}
				records = append(records, rec)
			}
			return w.Upsert(ctx, s.Name(), records)
		})
	}
	return g.Wait()
}
