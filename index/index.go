// Package index defines the similarity-index contract shared by the Milvus
// and in-memory vector stores. Each named collection holds embeddings
// produced by exactly one scheme and is searched under that scheme's metric.
package index

import "context"

// Metric is the distance metric a collection is searched under.
type Metric string

const (
	MetricCosine       Metric = "cosine"
	MetricL2           Metric = "l2"
	MetricInnerProduct Metric = "ip"
)

// CollectionSpec describes one collection: its name matches the embedding
// scheme that feeds it, and the store self-configures dimension checks and
// search parameters from it.
type CollectionSpec struct {
	Name       string
	Dimensions int
	Metric     Metric
}

// Record is one (track, embedding) pair plus the minimal metadata needed
// for exclusion filtering and explainability.
type Record struct {
	ID        string
	Embedding []float64
	Artist    string
	Title     string
	Album     string
}

// Hit is a single search result, ordered best-first under the collection's
// metric. Distance semantics depend on the metric; use Similarity to
// convert to a comparable score.
type Hit struct {
	ID        string
	Distance  float64
	Embedding []float64
	Artist    string
	Title     string
	Album     string
}

// Writer accepts upserts during a rebuild, bound to the generation being
// built.
type Writer interface {
	Upsert(ctx context.Context, collection string, records []Record) error
}

// Store is a named collection of embedding vectors per scheme, supporting
// upsert, delete and k-nearest-neighbor queries.
type Store interface {
	Writer

	// Delete removes the given ids from a collection. Missing ids are
	// ignored.
	Delete(ctx context.Context, collection string, ids []string) error

	// DeleteAll removes every record from a collection.
	DeleteAll(ctx context.Context, collection string) error

	// Query returns the k nearest records to target, best-first under the
	// collection's metric. It returns at least min(k, collection size)
	// hits; ties break by insertion order.
	Query(ctx context.Context, collection string, target []float64, k int) ([]Hit, error)

	// Get returns the record with the given id, or nil when absent.
	Get(ctx context.Context, collection string, id string) (*Hit, error)

	// Exists reports whether the id is present in the collection.
	Exists(ctx context.Context, collection string, id string) (bool, error)

	// Count returns the number of records in a collection.
	Count(ctx context.Context, collection string) (int64, error)

	// Rebuild atomically replaces the contents of every collection. fill
	// is invoked with a Writer bound to a fresh generation; when it
	// returns successfully, readers are switched over and the previous
	// generation is discarded. A reader mid-query observes either the old
	// generation or the new one, never a partial state. Rebuilds are
	// serialized against each other, but NOT against ordinary writes: an
	// Upsert or Delete issued while fill runs lands in the old generation
	// and is dropped by the swap. Callers must quiesce their own writers
	// for the duration of a rebuild.
	Rebuild(ctx context.Context, fill func(ctx context.Context, w Writer) error) error

	// Close releases the store's resources.
	Close() error
}

// Similarity converts a metric-specific distance into a similarity score.
// Cosine and L2 map into (0, 1]; inner product is already a similarity and
// is returned unchanged (it may be negative).
func Similarity(metric Metric, distance float64) float64 {
	switch metric {
	case MetricL2:
		return 1.0 / (1.0 + distance)
	case MetricInnerProduct:
		return distance
	default: // cosine
		return 1.0 - distance
	}
}
