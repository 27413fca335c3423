package milvus

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/line72/boldaric/index"
	"github.com/line72/boldaric/log"
)

// physicalName builds the generation-suffixed collection name for a logical
// collection.
func physicalName(logical string, generation uint64) string {
	return fmt.Sprintf("%s_g%d", logical, generation)
}

// parsePhysicalName splits a physical collection name back into its logical
// name and generation. Returns false for names that don't follow the scheme.
func parsePhysicalName(physical string) (logical string, generation uint64, ok bool) {
	i := strings.LastIndex(physical, "_g")
	if i <= 0 {
		return "", 0, false
	}
	gen, err := strconv.ParseUint(physical[i+2:], 10, 64)
	if err != nil {
		return "", 0, false
	}
	return physical[:i], gen, true
}

// milvusMetric maps an index metric to the Milvus metric type.
func milvusMetric(m index.Metric) entity.MetricType {
	switch m {
	case index.MetricL2:
		return entity.L2
	case index.MetricInnerProduct:
		return entity.IP
	default:
		return entity.COSINE
	}
}

// ensureCollections adopts the newest existing generation of each logical
// collection, creating generation 1 where none exists, and drops stale
// generations left behind by interrupted rebuilds.
func (s *Store) ensureCollections(ctx context.Context) error {
	existing, err := s.milvusClient.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}

	newest := make(map[string]uint64)
	stale := make(map[string][]string)
	for _, col := range existing {
		logical, gen, ok := parsePhysicalName(col.Name)
		if !ok {
			continue
		}
		if _, known := s.byName[logical]; !known {
			continue
		}
		if gen > newest[logical] {
			if newest[logical] > 0 {
				stale[logical] = append(stale[logical], physicalName(logical, newest[logical]))
			}
			newest[logical] = gen
		} else {
			stale[logical] = append(stale[logical], col.Name)
		}
	}

	var maxGen uint64
	for _, spec := range s.specs {
		gen := newest[spec.Name]
		if gen == 0 {
			gen = 1
			if err := s.createCollection(ctx, spec, physicalName(spec.Name, gen)); err != nil {
				return err
			}
		}
		if gen > maxGen {
			maxGen = gen
		}
		s.active[spec.Name] = physicalName(spec.Name, gen)

		for _, old := range stale[spec.Name] {
			log.Warn(ctx, "Dropping stale collection generation", "collection", old)
			if err := s.dropCollection(ctx, old); err != nil {
				return err
			}
		}
	}
	s.generation = maxGen

	return nil
}

// createCollection creates a physical collection with the schema and HNSW
// index for its spec.
func (s *Store) createCollection(ctx context.Context, spec index.CollectionSpec, physical string) error {
	exists, err := s.milvusClient.HasCollection(ctx, physical)
	if err != nil {
		return fmt.Errorf("check collection %s: %w", physical, err)
	}
	if exists {
		log.Debug(ctx, "Collection already exists", "collection", physical)
		return nil
	}

	log.Info(ctx, "Creating collection",
		"collection", physical,
		"dimensions", spec.Dimensions,
		"metric", spec.Metric,
	)

	schema := buildSchema(physical, spec.Dimensions)
	if err := s.milvusClient.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
		return fmt.Errorf("create collection %s: %w", physical, err)
	}

	if err := s.createIndex(ctx, spec, physical); err != nil {
		return fmt.Errorf("create index for %s: %w", physical, err)
	}

	return nil
}

// buildSchema constructs the schema for a collection.
func buildSchema(physical string, dim int) *entity.Schema {
	return &entity.Schema{
		CollectionName: physical,
		AutoID:         false,
		Fields: []*entity.Field{
			{
				Name:       "id",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				TypeParams: map[string]string{
					"max_length": "512",
				},
			},
			{
				Name:     "embedding",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": fmt.Sprintf("%d", dim),
				},
			},
			{
				Name:     "artist",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "512",
				},
			},
			{
				Name:     "title",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "512",
				},
			},
			{
				Name:     "album",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "512",
				},
			},
		},
	}
}

// createIndex creates an HNSW index on the embedding field, built for the
// collection's metric.
func (s *Store) createIndex(ctx context.Context, spec index.CollectionSpec, physical string) error {
	idx, err := entity.NewIndexHNSW(milvusMetric(spec.Metric), 50, 250)
	if err != nil {
		return fmt.Errorf("create HNSW index params: %w", err)
	}

	log.Debug(ctx, "Creating HNSW index", "collection", physical, "metric", spec.Metric)
	if err := s.milvusClient.CreateIndex(ctx, physical, "embedding", idx, false); err != nil {
		return fmt.Errorf("create index on %s.embedding: %w", physical, err)
	}

	// Inverted index on artist speeds up the exclusion filters.
	artistIdx := entity.NewScalarIndexWithType(entity.Inverted)
	if err := s.milvusClient.CreateIndex(ctx, physical, "artist", artistIdx, false); err != nil {
		// Non-fatal: some Milvus versions don't support scalar indexes
		log.Warn(ctx, "Could not create scalar index on artist field", "collection", physical, "error", err)
	}

	return nil
}

// dropCollection removes a physical collection and all its data.
func (s *Store) dropCollection(ctx context.Context, physical string) error {
	exists, err := s.milvusClient.HasCollection(ctx, physical)
	if err != nil {
		return fmt.Errorf("check collection %s: %w", physical, err)
	}
	if !exists {
		return nil
	}

	log.Info(ctx, "Dropping collection", "collection", physical)
	if err := s.milvusClient.DropCollection(ctx, physical); err != nil {
		return fmt.Errorf("drop collection %s: %w", physical, err)
	}

	s.mu.Lock()
	delete(s.loaded, physical)
	s.mu.Unlock()

	return nil
}

// CollectionStats returns statistics about a logical collection's active
// generation, keys sorted for stable logging.
func (s *Store) CollectionStats(ctx context.Context, name string) (map[string]string, []string, error) {
	phys, err := s.physical(name)
	if err != nil {
		return nil, nil, err
	}
	stats, err := s.milvusClient.GetCollectionStatistics(ctx, phys)
	if err != nil {
		return nil, nil, fmt.Errorf("get stats for %s: %w", phys, err)
	}
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return stats, keys, nil
}
