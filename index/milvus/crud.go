package milvus

import (
	"context"
	"fmt"
	"strings"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/line72/boldaric/index"
	"github.com/line72/boldaric/log"
	"github.com/line72/boldaric/model"
)

// Upsert inserts or replaces records in the active generation of a
// collection.
func (s *Store) Upsert(ctx context.Context, collection string, records []index.Record) error {
	if len(records) == 0 {
		return nil
	}
	spec, err := s.spec(collection)
	if err != nil {
		return err
	}
	phys, err := s.physical(collection)
	if err != nil {
		return err
	}
	return s.upsertPhysical(ctx, spec, phys, records)
}

// upsertPhysical writes records into a specific physical collection. Used by
// both ordinary upserts and rebuild staging writers.
func (s *Store) upsertPhysical(ctx context.Context, spec index.CollectionSpec, physical string, records []index.Record) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.loadCollection(ctx, physical); err != nil {
		return err
	}

	ids := make([]string, len(records))
	embeddings := make([][]float32, len(records))
	artists := make([]string, len(records))
	titles := make([]string, len(records))
	albums := make([]string, len(records))

	for i, r := range records {
		if len(r.Embedding) != spec.Dimensions {
			return fmt.Errorf("%w: collection %s expects %d, got %d for %s",
				model.ErrDimensionMismatch, spec.Name, spec.Dimensions, len(r.Embedding), r.ID)
		}
		ids[i] = r.ID
		embeddings[i] = float64sToFloat32s(r.Embedding)
		artists[i] = r.Artist
		titles[i] = r.Title
		albums[i] = r.Album
	}

	columns := []entity.Column{
		entity.NewColumnVarChar("id", ids),
		entity.NewColumnFloatVector("embedding", spec.Dimensions, embeddings),
		entity.NewColumnVarChar("artist", artists),
		entity.NewColumnVarChar("title", titles),
		entity.NewColumnVarChar("album", albums),
	}

	log.Debug(ctx, "Upserting embeddings", "collection", physical, "count", len(records))

	if _, err := s.milvusClient.Upsert(ctx, physical, "", columns...); err != nil {
		return fmt.Errorf("upsert to %s: %w", physical, err)
	}

	return s.flush(ctx, physical)
}

// Delete removes the given ids from a collection. Missing ids are ignored.
func (s *Store) Delete(ctx context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	phys, err := s.physical(collection)
	if err != nil {
		return err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.loadCollection(ctx, phys); err != nil {
		return err
	}

	filter := buildInFilter("id", ids)

	log.Debug(ctx, "Deleting embeddings", "collection", phys, "count", len(ids))

	if err := s.milvusClient.Delete(ctx, phys, "", filter); err != nil {
		return fmt.Errorf("delete from %s: %w", phys, err)
	}

	return s.flush(ctx, phys)
}

// DeleteAll drops and recreates the active physical collection.
func (s *Store) DeleteAll(ctx context.Context, collection string) error {
	spec, err := s.spec(collection)
	if err != nil {
		return err
	}
	phys, err := s.physical(collection)
	if err != nil {
		return err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.dropCollection(ctx, phys); err != nil {
		return err
	}
	return s.createCollection(ctx, spec, phys)
}

// Get returns the record with the given id, or nil when absent.
func (s *Store) Get(ctx context.Context, collection string, id string) (*index.Hit, error) {
	hits, err := s.getByIDs(ctx, collection, []string{id})
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, nil
	}
	hit := hits[0]
	return &hit, nil
}

// Exists reports whether the id is present in the collection.
func (s *Store) Exists(ctx context.Context, collection string, id string) (bool, error) {
	hits, err := s.getByIDs(ctx, collection, []string{id})
	if err != nil {
		return false, err
	}
	return len(hits) > 0, nil
}

// getByIDs fetches full records for the given ids.
func (s *Store) getByIDs(ctx context.Context, collection string, ids []string) ([]index.Hit, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	phys, err := s.physical(collection)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.loadCollection(ctx, phys); err != nil {
		return nil, err
	}

	filter := buildInFilter("id", ids)
	outputFields := []string{"id", "embedding", "artist", "title", "album"}

	results, err := s.milvusClient.Query(ctx, phys, nil, filter, outputFields)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", phys, err)
	}

	return columnsToHits(results)
}

// Count returns the number of records in a collection's active generation.
func (s *Store) Count(ctx context.Context, collection string) (int64, error) {
	phys, err := s.physical(collection)
	if err != nil {
		return 0, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	stats, err := s.milvusClient.GetCollectionStatistics(ctx, phys)
	if err != nil {
		return 0, fmt.Errorf("get collection stats: %w", err)
	}

	countStr, ok := stats["row_count"]
	if !ok {
		return 0, nil
	}

	var count int64
	fmt.Sscanf(countStr, "%d", &count)
	return count, nil
}

// columnsToHits converts Milvus query result columns into hits.
func columnsToHits(results []entity.Column) ([]index.Hit, error) {
	var (
		idCol     *entity.ColumnVarChar
		embCol    *entity.ColumnFloatVector
		artistCol *entity.ColumnVarChar
		titleCol  *entity.ColumnVarChar
		albumCol  *entity.ColumnVarChar
	)
	for _, col := range results {
		switch col.Name() {
		case "id":
			idCol = col.(*entity.ColumnVarChar)
		case "embedding":
			embCol = col.(*entity.ColumnFloatVector)
		case "artist":
			artistCol = col.(*entity.ColumnVarChar)
		case "title":
			titleCol = col.(*entity.ColumnVarChar)
		case "album":
			albumCol = col.(*entity.ColumnVarChar)
		}
	}
	if idCol == nil {
		return nil, nil
	}

	varChar := func(col *entity.ColumnVarChar, i int) string {
		if col == nil {
			return ""
		}
		v, _ := col.ValueByIdx(i)
		return v
	}

	hits := make([]index.Hit, 0, idCol.Len())
	for i := 0; i < idCol.Len(); i++ {
		hit := index.Hit{
			ID:     varChar(idCol, i),
			Artist: varChar(artistCol, i),
			Title:  varChar(titleCol, i),
			Album:  varChar(albumCol, i),
		}
		if embCol != nil {
			hit.Embedding = float32sToFloat64s(embCol.Data()[i])
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// buildInFilter creates a filter expression for matching values.
func buildInFilter(field string, values []string) string {
	if len(values) == 0 {
		return ""
	}

	quoted := make([]string, len(values))
	for i, v := range values {
		// Escape single quotes
		escaped := strings.ReplaceAll(v, "'", "\\'")
		quoted[i] = fmt.Sprintf("'%s'", escaped)
	}

	return fmt.Sprintf("%s in [%s]", field, strings.Join(quoted, ", "))
}

// float64sToFloat32s converts a slice of float64 to float32.
func float64sToFloat32s(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v)
	}
	return out
}

// float32sToFloat64s converts a slice of float32 to float64.
func float32sToFloat64s(in []float32) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}
