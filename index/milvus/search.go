package milvus

import (
	"context"
	"fmt"
	"math"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/line72/boldaric/index"
	"github.com/line72/boldaric/log"
	"github.com/line72/boldaric/model"
)

// Query performs ANN search on a collection's active generation and returns
// the k nearest records best-first, with distances normalized to the
// contract of index.Store.
func (s *Store) Query(ctx context.Context, collection string, target []float64, k int) ([]index.Hit, error) {
	spec, err := s.spec(collection)
	if err != nil {
		return nil, err
	}
	if len(target) != spec.Dimensions {
		return nil, fmt.Errorf("%w: query against %s expects %d, got %d",
			model.ErrDimensionMismatch, collection, spec.Dimensions, len(target))
	}
	if k <= 0 {
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

	// ef should be >= topK for good recall
	ef := max(64, k*2)
	sp, err := entity.NewIndexHNSWSearchParam(ef)
	if err != nil {
		return nil, fmt.Errorf("create search params: %w", err)
	}

	vectors := []entity.Vector{entity.FloatVector(float64sToFloat32s(target))}

	log.Debug(ctx, "Searching collection",
		"collection", phys,
		"topK", k,
		"metric", spec.Metric,
	)

	results, err := s.milvusClient.Search(
		ctx,
		phys,
		nil, // partitions
		"",  // filter
		[]string{"id", "artist", "title", "album"},
		vectors,
		"embedding",
		milvusMetric(spec.Metric),
		k,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: search %s: %v", model.ErrIndexUnavailable, phys, err)
	}

	var hits []index.Hit
	var ids []string
	for _, result := range results {
		var (
			idCol     *entity.ColumnVarChar
			artistCol *entity.ColumnVarChar
			titleCol  *entity.ColumnVarChar
			albumCol  *entity.ColumnVarChar
		)
		for _, field := range result.Fields {
			switch field.Name() {
			case "id":
				idCol = field.(*entity.ColumnVarChar)
			case "artist":
				artistCol = field.(*entity.ColumnVarChar)
			case "title":
				titleCol = field.(*entity.ColumnVarChar)
			case "album":
				albumCol = field.(*entity.ColumnVarChar)
			}
		}
		if idCol == nil {
			continue
		}
		for i := 0; i < result.ResultCount; i++ {
			id, _ := idCol.ValueByIdx(i)
			hit := index.Hit{
				ID:       id,
				Distance: scoreToDistance(spec.Metric, float64(result.Scores[i])),
			}
			if artistCol != nil {
				hit.Artist, _ = artistCol.ValueByIdx(i)
			}
			if titleCol != nil {
				hit.Title, _ = titleCol.ValueByIdx(i)
			}
			if albumCol != nil {
				hit.Album, _ = albumCol.ValueByIdx(i)
			}
			hits = append(hits, hit)
			ids = append(ids, id)
		}
	}

	// Search results carry no vector payload; fetch embeddings separately so
	// callers can compute per-component breakdowns.
	full, err := s.getByIDs(ctx, collection, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string][]float64, len(full))
	for _, h := range full {
		byID[h.ID] = h.Embedding
	}
	for i := range hits {
		hits[i].Embedding = byID[hits[i].ID]
	}

	log.Debug(ctx, "Search complete", "collection", phys, "hits", len(hits))
	return hits, nil
}

// scoreToDistance converts a Milvus score into the distance semantics of
// index.Store: Milvus reports cosine as a similarity and L2 as a squared
// distance, while inner product passes through unchanged.
func scoreToDistance(metric index.Metric, score float64) float64 {
	switch metric {
	case index.MetricL2:
		if score < 0 {
			score = 0
		}
		return math.Sqrt(score)
	case index.MetricInnerProduct:
		return score
	default:
		return 1 - score
	}
}
