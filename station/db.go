// Package station persists users, stations, catalog tracks and playback
// history. It is the collaborator feeding the taste simulator and the
// recommendation selector.
package station

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/line72/boldaric/log"
)

// Config holds database connection settings.
type Config struct {
	Driver string // "sqlite3" or "postgres"
	DSN    string // file path for sqlite3, connection string for postgres
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Driver: "sqlite3",
		DSN:    "boldaric.db",
	}
}

// Open connects to the database, applies the schema, and returns a Store.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	var placeholder squirrel.PlaceholderFormat
	switch cfg.Driver {
	case "sqlite3":
		placeholder = squirrel.Question
	case "postgres":
		placeholder = squirrel.Dollar
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if cfg.Driver == "sqlite3" && strings.Contains(cfg.DSN, ":memory:") {
		// Every pooled connection would get its own in-memory database.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(4)
		db.SetMaxIdleConns(2)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	log.Info(ctx, "Opened station database", "driver", cfg.Driver)

	s := NewStore(db, placeholder)
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// schema is portable across sqlite3 and postgres; every id is an
// application-generated UUID so neither dialect's autoincrement syntax is
// needed.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS stations (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		name TEXT NOT NULL,
		replay_song_cooldown INTEGER NOT NULL,
		replay_artist_downrank REAL NOT NULL,
		ignore_live BOOLEAN NOT NULL,
		category TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tracks (
		id TEXT PRIMARY KEY,
		artist TEXT NOT NULL,
		album TEXT NOT NULL,
		title TEXT NOT NULL,
		track_number INTEGER NOT NULL,
		genre TEXT NOT NULL,
		release_type TEXT NOT NULL,
		mbz_artist_id TEXT NOT NULL,
		mbz_album_id TEXT NOT NULL,
		mbz_track_id TEXT NOT NULL,
		attributes TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS track_history (
		id TEXT PRIMARY KEY,
		station_id TEXT NOT NULL REFERENCES stations(id),
		track_id TEXT NOT NULL REFERENCES tracks(id),
		rating INTEGER NOT NULL,
		is_thumbs_downed BOOLEAN NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_track_history_station
		ON track_history(station_id, updated_at)`,
	`CREATE INDEX IF NOT EXISTS idx_track_history_station_track
		ON track_history(station_id, track_id)`,
	`CREATE INDEX IF NOT EXISTS idx_stations_user ON stations(user_id)`,
}

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
