// Package conf loads the service configuration from a TOML file, merged
// over defaults and a few environment variables.
package conf

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/line72/boldaric/engine"
	"github.com/line72/boldaric/index/milvus"
	"github.com/line72/boldaric/simulator"
	"github.com/line72/boldaric/station"
)

// Config holds all configuration for the service.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	Milvus    MilvusConfig    `toml:"milvus"`
	Simulator SimulatorConfig `toml:"simulator"`
	Engine    EngineConfig    `toml:"engine"`
	Indexing  IndexingConfig  `toml:"indexing"`
	Logging   LoggingConfig   `toml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address string `toml:"address"` // listen address, host:port
	Salt    string `toml:"salt"`    // secret mixed into auth tokens
}

// DatabaseConfig holds station database settings.
type DatabaseConfig struct {
	Driver string `toml:"driver"` // "sqlite3" or "postgres"
	DSN    string `toml:"dsn"`    // file path or connection string
}

// MilvusConfig holds vector store connection settings.
type MilvusConfig struct {
	URI        string        `toml:"uri"`
	Timeout    time.Duration `toml:"timeout"`
	MaxRetries int           `toml:"max_retries"`
}

// SimulatorConfig holds taste simulator tuning. The defaults are empirically
// calibrated; see simulator.DefaultConfig.
type SimulatorConfig struct {
	TimeStep  float64 `toml:"time_step"`
	Damping   float64 `toml:"damping"`
	TotalTime float64 `toml:"total_time"`
	SigmaSq   float64 `toml:"sigma_sq"`
	Jitter    float64 `toml:"jitter"`
	Workers   int     `toml:"workers"` // 0 = one per CPU core
}

// EngineConfig holds recommendation selector settings.
type EngineConfig struct {
	Oversample   int `toml:"oversample"`
	DefaultCount int `toml:"default_count"`
}

// IndexingConfig controls which schemes new tracks are embedded under.
type IndexingConfig struct {
	// IncludeLegacy keeps producing 148-D legacy embeddings for new tracks
	// so stations pinned to the legacy scheme keep working.
	IncludeLegacy bool `toml:"include_legacy"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `toml:"level"` // debug, info, warn, error
	File  string `toml:"file"`  // log file path (empty = stderr)
}

// Default returns configuration with sensible defaults.
func Default() Config {
	sim := simulator.DefaultConfig()
	eng := engine.DefaultConfig()
	db := station.DefaultConfig()
	mv := milvus.DefaultConfig()

	return Config{
		Server: ServerConfig{
			Address: getEnvOrDefault("BOLDARIC_ADDRESS", ":8337"),
			Salt:    os.Getenv("BOLDARIC_SALT"),
		},
		Database: DatabaseConfig{
			Driver: db.Driver,
			DSN:    getEnvOrDefault("BOLDARIC_DBPATH", db.DSN),
		},
		Milvus: MilvusConfig{
			URI:        getEnvOrDefault("MILVUS_URI", mv.URI),
			Timeout:    mv.Timeout,
			MaxRetries: mv.MaxRetries,
		},
		Simulator: SimulatorConfig{
			TimeStep:  sim.TimeStep,
			Damping:   sim.Damping,
			TotalTime: sim.TotalTime,
			SigmaSq:   sim.SigmaSq,
			Jitter:    sim.Jitter,
			Workers:   sim.Workers,
		},
		Engine: EngineConfig{
			Oversample:   eng.Oversample,
			DefaultCount: eng.DefaultCount,
		},
		Indexing: IndexingConfig{
			IncludeLegacy: false,
		},
		Logging: LoggingConfig{
			Level: getEnvOrDefault("LOG_LEVEL", "info"),
			File:  "",
		},
	}
}

// LoadFile merges a TOML file over cfg. A missing file is not an error; the
// defaults apply.
func LoadFile(path string, cfg *Config) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	return nil
}

// Validate checks the configuration and fills in derivable fields.
func (c *Config) Validate() error {
	if c.Server.Salt == "" {
		return fmt.Errorf("server salt is required (set [server] salt or BOLDARIC_SALT)")
	}

	if c.Database.DSN == "" {
		return fmt.Errorf("database dsn is required")
	}
	if c.Database.Driver == "" {
		if isPostgresURI(c.Database.DSN) {
			c.Database.Driver = "postgres"
		} else {
			c.Database.Driver = "sqlite3"
		}
	}

	if c.Milvus.URI == "" {
		return fmt.Errorf("milvus uri is required")
	}

	if c.Simulator.TimeStep <= 0 {
		return fmt.Errorf("simulator time_step must be positive, got: %g", c.Simulator.TimeStep)
	}
	if c.Simulator.Damping <= 0 || c.Simulator.Damping > 1 {
		return fmt.Errorf("simulator damping must be in (0, 1], got: %g", c.Simulator.Damping)
	}

	if c.Engine.Oversample < 1 {
		return fmt.Errorf("engine oversample must be at least 1, got: %d", c.Engine.Oversample)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	return nil
}

// SimulatorConfig converts the TOML section into the simulator's own config
// type.
func (c *Config) SimulatorConfig() simulator.Config {
	return simulator.Config{
		TimeStep:  c.Simulator.TimeStep,
		Damping:   c.Simulator.Damping,
		TotalTime: c.Simulator.TotalTime,
		SigmaSq:   c.Simulator.SigmaSq,
		Jitter:    c.Simulator.Jitter,
		Workers:   c.Simulator.Workers,
	}
}

// EngineConfig converts the TOML section into the engine's own config type.
func (c *Config) EngineConfig() engine.Config {
	return engine.Config{
		Oversample:   c.Engine.Oversample,
		DefaultCount: c.Engine.DefaultCount,
	}
}

// MilvusConfig converts the TOML section into the milvus store's config
// type.
func (c *Config) MilvusConfig() milvus.Config {
	return milvus.Config{
		URI:        c.Milvus.URI,
		Timeout:    c.Milvus.Timeout,
		MaxRetries: c.Milvus.MaxRetries,
	}
}

// DatabaseConfig converts the TOML section into the station store's config
// type.
func (c *Config) DatabaseConfig() station.Config {
	return station.Config{
		Driver: c.Database.Driver,
		DSN:    c.Database.DSN,
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func isPostgresURI(s string) bool {
	return strings.HasPrefix(s, "postgres://") || strings.HasPrefix(s, "postgresql://")
}
