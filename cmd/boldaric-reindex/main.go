// The boldaric-reindex command re-embeds every track in the station
// database and rebuilds the Milvus collections behind an atomic swap, so the
// running server keeps answering queries from the previous index until the
// rebuild completes.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/line72/boldaric/conf"
	"github.com/line72/boldaric/feature"
	"github.com/line72/boldaric/index/milvus"
	"github.com/line72/boldaric/indexer"
	"github.com/line72/boldaric/log"
	"github.com/line72/boldaric/station"
)

const version = "1.0.0"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nReceived interrupt signal, aborting rebuild...")
		cancel()
	}()

	cfg := parseFlags()
	log.SetLevel(cfg.Logging.Level)

	log.Info(ctx, "Boldaric Reindexer", "version", version)

	if err := cfg.Validate(); err != nil {
		log.Error(ctx, "Invalid configuration", err)
		os.Exit(2)
	}

	if err := run(ctx, cfg); err != nil {
		log.Error(ctx, "Rebuild failed", err)
		os.Exit(1)
	}
}

func parseFlags() conf.Config {
	cfg := conf.Default()
	// The reindexer never issues tokens, but Validate requires a salt.
	if cfg.Server.Salt == "" {
		cfg.Server.Salt = "reindex"
	}

	configFile := flag.String("config", "", "Path to TOML config file")

	flag.StringVar(&cfg.Database.DSN, "db", cfg.Database.DSN, "Station database path or connection string")
	flag.StringVar(&cfg.Milvus.URI, "milvus-uri", cfg.Milvus.URI, "Milvus connection URI")
	flag.StringVar(&cfg.Logging.Level, "log-level", cfg.Logging.Level, "Log level (debug, info, warn, error)")
	flag.BoolVar(&cfg.Indexing.IncludeLegacy, "include-legacy", cfg.Indexing.IncludeLegacy, "Rebuild the legacy embedding collection too")

	showVersion := flag.Bool("version", false, "Show version and exit")

	flag.Parse()

	if *showVersion {
		fmt.Printf("boldaric-reindex version %s\n", version)
		os.Exit(0)
	}

	if *configFile != "" {
		if err := conf.LoadFile(*configFile, &cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config file: %v\n", err)
			os.Exit(2)
		}
	}

	return cfg
}

func run(ctx context.Context, cfg conf.Config) error {
	log.Info(ctx, "Opening station database", "driver", cfg.Database.Driver, "dsn", cfg.Database.DSN)
	stations, err := station.Open(ctx, cfg.DatabaseConfig())
	if err != nil {
		return fmt.Errorf("failed to open station database: %w", err)
	}
	defer stations.Close()

	total, err := stations.CountTracks(ctx)
	if err != nil {
		return fmt.Errorf("failed to count tracks: %w", err)
	}
	if total == 0 {
		log.Info(ctx, "No tracks in the database, nothing to rebuild")
		return nil
	}

	tables := feature.DefaultTables()
	schemes := feature.AllSchemes(tables, cfg.Indexing.IncludeLegacy)
	specs := indexer.CollectionSpecs(schemes)

	log.Info(ctx, "Connecting to Milvus", "uri", cfg.Milvus.URI)
	vectors, err := milvus.New(ctx, cfg.MilvusConfig(), specs...)
	if err != nil {
		return fmt.Errorf("failed to connect to Milvus: %w", err)
	}
	defer vectors.Close()

	ix := indexer.New(vectors, schemes, stations)

	log.Info(ctx, "Rebuilding collections", "tracks", total, "schemes", len(schemes))
	start := time.Now()
	if err := ix.RebuildAll(ctx); err != nil {
		return fmt.Errorf("rebuild failed: %w", err)
	}

	log.Info(ctx, "Rebuild complete",
		"tracks", total,
		"elapsed", time.Since(start).Round(time.Second))
	return nil
}
