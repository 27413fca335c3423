package conf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	cfg := Default()
	cfg.Server.Salt = "s3cret"
	return cfg
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, ":8337", cfg.Server.Address)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, "http://localhost:19530", cfg.Milvus.URI)
	assert.Equal(t, 0.001, cfg.Simulator.TimeStep)
	assert.Equal(t, 0.99, cfg.Simulator.Damping)
	assert.Equal(t, 0.0025, cfg.Simulator.SigmaSq)
	assert.Equal(t, 3, cfg.Engine.Oversample)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Indexing.IncludeLegacy)
}

func TestLoadFileMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "boldaric.toml")
	content := `
[server]
address = ":9000"
salt = "pepper"

[database]
dsn = "postgres://boldaric@localhost/boldaric"

[simulator]
workers = 8

[logging]
level = "debug"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg := Default()
	require.NoError(t, LoadFile(path, &cfg))

	assert.Equal(t, ":9000", cfg.Server.Address)
	assert.Equal(t, "pepper", cfg.Server.Salt)
	assert.Equal(t, "postgres://boldaric@localhost/boldaric", cfg.Database.DSN)
	assert.Equal(t, 8, cfg.Simulator.Workers)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Untouched sections keep their defaults.
	assert.Equal(t, 0.99, cfg.Simulator.Damping)
}

func TestLoadFileMissingIsNotAnError(t *testing.T) {
	cfg := Default()
	assert.NoError(t, LoadFile("/does/not/exist.toml", &cfg))
}

func TestLoadFileMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("not [valid"), 0o600))

	cfg := Default()
	assert.Error(t, LoadFile(path, &cfg))
}

func TestValidateRequiresSalt(t *testing.T) {
	cfg := Default()
	cfg.Server.Salt = ""
	assert.Error(t, cfg.Validate())
}

func TestValidateAutoDetectsDriver(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Driver = ""
	cfg.Database.DSN = "postgres://u@h/db"
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "postgres", cfg.Database.Driver)

	cfg = validConfig()
	cfg.Database.Driver = ""
	cfg.Database.DSN = "/var/lib/boldaric/stations.db"
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero time step", func(c *Config) { c.Simulator.TimeStep = 0 }},
		{"damping above one", func(c *Config) { c.Simulator.Damping = 1.5 }},
		{"zero oversample", func(c *Config) { c.Engine.Oversample = 0 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"empty milvus uri", func(c *Config) { c.Milvus.URI = "" }},
		{"empty dsn", func(c *Config) { c.Database.DSN = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestConfigConversions(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())

	sim := cfg.SimulatorConfig()
	assert.Equal(t, 0.001, sim.TimeStep)
	assert.Equal(t, 0.0025, sim.SigmaSq)

	eng := cfg.EngineConfig()
	assert.Equal(t, 3, eng.Oversample)

	db := cfg.DatabaseConfig()
	assert.Equal(t, "sqlite3", db.Driver)

	mv := cfg.MilvusConfig()
	assert.Equal(t, cfg.Milvus.URI, mv.URI)
}
