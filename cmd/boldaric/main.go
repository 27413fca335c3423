// The boldaric command runs the personalized radio server: it connects to
// the station database and the Milvus vector store and serves the HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/line72/boldaric"
	"github.com/line72/boldaric/conf"
	"github.com/line72/boldaric/engine"
	"github.com/line72/boldaric/feature"
	"github.com/line72/boldaric/index/milvus"
	"github.com/line72/boldaric/indexer"
	"github.com/line72/boldaric/log"
	"github.com/line72/boldaric/server"
	"github.com/line72/boldaric/simulator"
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
		fmt.Fprintln(os.Stderr, "\nReceived interrupt signal, shutting down gracefully...")
		cancel()
	}()

	cfg := parseFlags()
	initLogging(cfg.Logging)

	log.Info(ctx, "Boldaric", "version", version)

	if err := cfg.Validate(); err != nil {
		log.Error(ctx, "Invalid configuration", err)
		os.Exit(2)
	}

	if err := run(ctx, cfg); err != nil {
		log.Error(ctx, "Server failed", err)
		os.Exit(1)
	}

	log.Info(ctx, "Server stopped")
}

func parseFlags() conf.Config {
	cfg := conf.Default()

	configFile := flag.String("config", "", "Path to TOML config file")

	flag.StringVar(&cfg.Server.Address, "address", cfg.Server.Address, "HTTP listen address")
	flag.StringVar(&cfg.Database.DSN, "db", cfg.Database.DSN, "Station database path or connection string")
	flag.StringVar(&cfg.Milvus.URI, "milvus-uri", cfg.Milvus.URI, "Milvus connection URI")
	flag.StringVar(&cfg.Logging.Level, "log-level", cfg.Logging.Level, "Log level (debug, info, warn, error)")
	flag.StringVar(&cfg.Logging.File, "log-file", cfg.Logging.File, "Log file path (empty = stderr)")
	flag.BoolVar(&cfg.Indexing.IncludeLegacy, "include-legacy", cfg.Indexing.IncludeLegacy, "Keep the legacy embedding collection populated")

	showVersion := flag.Bool("version", false, "Show version and exit")

	flag.Parse()

	if *showVersion {
		fmt.Printf("boldaric version %s\n", version)
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

func initLogging(cfg conf.LoggingConfig) {
	log.SetLevel(cfg.Level)

	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
			os.Exit(2)
		}
		log.SetOutput(f)
	}
}

func run(ctx context.Context, cfg conf.Config) error {
	log.Info(ctx, "Opening station database", "driver", cfg.Database.Driver, "dsn", cfg.Database.DSN)
	stations, err := station.Open(ctx, cfg.DatabaseConfig())
	if err != nil {
		return fmt.Errorf("failed to open station database: %w", err)
	}
	defer stations.Close()

	tables := feature.DefaultTables()
	schemes := feature.AllSchemes(tables, cfg.Indexing.IncludeLegacy)
	specs := indexer.CollectionSpecs(schemes)

	log.Info(ctx, "Connecting to Milvus", "uri", cfg.Milvus.URI)
	vectors, err := milvus.New(ctx, cfg.MilvusConfig(), specs...)
	if err != nil {
		return fmt.Errorf("failed to connect to Milvus: %w", err)
	}
	defer vectors.Close()

	sim := simulator.New(cfg.SimulatorConfig())
	defer sim.Close()

	selector := engine.New(cfg.EngineConfig(), vectors, specs)
	radio := boldaric.NewRadio(tables, stations, sim, selector)

	srv := server.New(server.Config{
		Address: cfg.Server.Address,
		Salt:    cfg.Server.Salt,
	}, stations, radio)

	return srv.ListenAndServe(ctx)
}
