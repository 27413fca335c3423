// Package boldaric is the core of a personalized-radio service: it embeds
// catalog tracks into per-scheme vector spaces, simulates a station's taste
// from its rating history, and picks the next track from a similarity index.
package boldaric

import (
	"context"

	"github.com/line72/boldaric/engine"
	"github.com/line72/boldaric/model"
	"github.com/line72/boldaric/simulator"
)

// StationStore is the slice of the persistence layer the radio pipeline
// needs. Implemented by station.Store.
type StationStore interface {
	// GetTrack returns a catalog track by id.
	GetTrack(ctx context.Context, id string) (*model.Track, error)

	// RatedTracks returns a station's history joined with track
	// attributes, oldest-first.
	RatedTracks(ctx context.Context, stationID string) ([]model.RatedTrack, error)

	// ThumbsDowned returns every thumbs-downed (artist, title) for a
	// station.
	ThumbsDowned(ctx context.Context, stationID string) ([]model.TrackRef, error)

	// RecentlyPlayed returns the station's history newest-first, up to
	// limit entries.
	RecentlyPlayed(ctx context.Context, stationID string, limit int) ([]model.HistoryEntry, error)

	// UpsertHistory records a play/rating event, merging near-duplicate
	// events for the same (station, track).
	UpsertHistory(ctx context.Context, stationID, trackID string, rating int, thumbsDowned bool) (string, error)
}

// TasteSimulator converts a rating history into a target vector. Implemented
// by simulator.Simulator.
type TasteSimulator interface {
	Attract(ctx context.Context, history simulator.History) []float64
}

// Recommender ranks, filters and samples candidates around a target vector.
// Implemented by engine.Selector.
type Recommender interface {
	Next(ctx context.Context, req engine.Request) ([]engine.Candidate, error)
}
