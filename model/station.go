package model

import "time"

// Rating values recorded into the embedding history. The values double as
// the sample weights fed to the taste simulator, so a thumbs-down actively
// repels the target away from the track's features.
const (
	RatingSeed       = 8
	RatingThumbsUp   = 5
	RatingDefault    = 3
	RatingThumbsDown = -3
)

// Category selects the embedding scheme a station ranks candidates with.
type Category string

const (
	CategoryGeneral Category = "general"
	CategoryMood    Category = "mood"
	CategoryGenre   Category = "genre"
	CategoryLegacy  Category = "legacy"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryGeneral, CategoryMood, CategoryGenre, CategoryLegacy:
		return true
	}
	return false
}

// Embedding is a fixed-length feature vector tagged with the scheme that
// produced it. Values are never mutated after construction; a scheme
// version bump invalidates all stored embeddings for that scheme.
type Embedding struct {
	Scheme Category
	Values []float64
}

// StationOptions holds the per-station tuning knobs.
type StationOptions struct {
	// ReplaySongCooldown is the number of most recently played tracks
	// excluded outright from the next pick.
	ReplaySongCooldown int
	// ReplayArtistDownrank multiplies the similarity of candidates whose
	// artist was played recently. Must be in (0, 1].
	ReplayArtistDownrank float64
	// IgnoreLive filters out live recordings when picking candidates.
	IgnoreLive bool
	// Category selects the embedding scheme used for this station.
	Category Category
}

// DefaultStationOptions returns the options applied to new stations.
func DefaultStationOptions() StationOptions {
	return StationOptions{
		ReplaySongCooldown:   80,
		ReplayArtistDownrank: 0.995,
		IgnoreLive:           false,
		Category:             CategoryGeneral,
	}
}

// User is an account that owns stations.
type User struct {
	ID       string
	Username string
}

// Station is one personalized radio station.
type Station struct {
	ID      string
	UserID  string
	Name    string
	Options StationOptions
}

// HistoryEntry is one play/rating event in a station's history.
type HistoryEntry struct {
	ID           string
	StationID    string
	TrackID      string
	Artist       string
	Title        string
	Album        string
	Rating       int
	ThumbsDowned bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
