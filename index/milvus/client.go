// Package milvus implements index.Store on the Milvus vector database. Each
// embedding scheme gets its own collection with an HNSW index built for that
// scheme's metric. Rebuilds write into generation-suffixed collections and
// flip the active generation atomically, so readers never see a half-built
// index.
package milvus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"

	"github.com/line72/boldaric/index"
	"github.com/line72/boldaric/log"
	"github.com/line72/boldaric/model"
)

// Config holds Milvus connection settings.
type Config struct {
	URI        string        // Server URI or file path for Milvus Lite
	Timeout    time.Duration // Connection/operation timeout
	MaxRetries int           // Max retry attempts
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		URI:        "http://localhost:19530",
		Timeout:    30 * time.Second,
		MaxRetries: 3,
	}
}

// normalized fills unset fields with their defaults.
func (cfg Config) normalized() Config {
	def := DefaultConfig()
	if cfg.URI == "" {
		cfg.URI = def.URI
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	return cfg
}

// Store wraps the Milvus SDK client and manages one logical collection per
// embedding scheme. Logical names map to generation-suffixed physical
// collections; the mapping is swapped under the write lock when a rebuild
// completes.
type Store struct {
	config       Config
	milvusClient client.Client
	specs        []index.CollectionSpec
	byName       map[string]index.CollectionSpec

	mu         sync.RWMutex
	active     map[string]string // logical name -> physical collection
	loaded     map[string]bool   // physical collections loaded into memory
	generation uint64

	rebuildMu sync.Mutex // serializes rebuilds
}

// New connects to Milvus and ensures one collection per spec exists. If a
// previous run left generation-suffixed collections behind, the newest
// generation of each logical collection is adopted as active.
func New(ctx context.Context, cfg Config, specs ...index.CollectionSpec) (*Store, error) {
	cfg = cfg.normalized()

	log.Info(ctx, "Connecting to Milvus", "uri", cfg.URI)

	c, err := connect(ctx, cfg)
	if err != nil {
		return nil, err
	}

	s := &Store{
		config:       cfg,
		milvusClient: c,
		specs:        specs,
		byName:       make(map[string]index.CollectionSpec, len(specs)),
		active:       make(map[string]string, len(specs)),
		loaded:       make(map[string]bool),
	}
	for _, spec := range specs {
		s.byName[spec.Name] = spec
	}

	if err := s.ensureCollections(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	return s, nil
}

// connect dials Milvus, retrying up to MaxRetries attempts with a growing
// backoff. Each attempt is bounded by the configured timeout.
func connect(ctx context.Context, cfg Config) (client.Client, error) {
	var lastErr error
	for attempt := 1; attempt <= cfg.MaxRetries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		c, err := client.NewClient(attemptCtx, client.Config{
			Address: cfg.URI,
		})
		cancel()
		if err == nil {
			return c, nil
		}
		lastErr = err

		if attempt == cfg.MaxRetries {
			break
		}
		log.Warn(ctx, "Milvus connection failed, retrying",
			"attempt", attempt, "maxRetries", cfg.MaxRetries, err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * time.Second):
		}
	}
	return nil, fmt.Errorf("%w: connect to milvus at %s: %v", model.ErrIndexUnavailable, cfg.URI, lastErr)
}

// withTimeout bounds one Milvus operation by the configured timeout.
func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.config.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.config.Timeout)
}

// Close releases the Milvus connection.
func (s *Store) Close() error {
	if s.milvusClient != nil {
		return s.milvusClient.Close()
	}
	return nil
}

// spec returns the CollectionSpec for a logical name.
func (s *Store) spec(name string) (index.CollectionSpec, error) {
	spec, ok := s.byName[name]
	if !ok {
		return index.CollectionSpec{}, fmt.Errorf("unknown collection %q", name)
	}
	return spec, nil
}

// physical resolves a logical collection name to its active physical
// collection.
func (s *Store) physical(name string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	phys, ok := s.active[name]
	if !ok {
		return "", fmt.Errorf("unknown collection %q", name)
	}
	return phys, nil
}

// loadCollection loads a physical collection into memory if not already
// loaded.
func (s *Store) loadCollection(ctx context.Context, physical string) error {
	s.mu.RLock()
	loaded := s.loaded[physical]
	s.mu.RUnlock()

	if loaded {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring write lock
	if s.loaded[physical] {
		return nil
	}

	if err := s.milvusClient.LoadCollection(ctx, physical, false); err != nil {
		return fmt.Errorf("%w: load collection %s: %v", model.ErrIndexUnavailable, physical, err)
	}

	s.loaded[physical] = true
	return nil
}

// flush ensures data is persisted to disk.
func (s *Store) flush(ctx context.Context, physical string) error {
	if err := s.milvusClient.Flush(ctx, physical, false); err != nil {
		return fmt.Errorf("flush collection %s: %w", physical, err)
	}
	return nil
}

// Raw returns the underlying Milvus client for advanced operations.
func (s *Store) Raw() client.Client {
	return s.milvusClient
}
