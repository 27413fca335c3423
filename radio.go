package boldaric

import (
	"context"
	"fmt"

	"github.com/line72/boldaric/engine"
	"github.com/line72/boldaric/feature"
	"github.com/line72/boldaric/log"
	"github.com/line72/boldaric/model"
	"github.com/line72/boldaric/simulator"
)

// recentArtistCount is how many of the most recently played tracks feed the
// artist downranking.
const recentArtistCount = 15

// Radio runs the end-to-end recommendation pipeline for a station: rebuild
// the rating history, simulate the taste target, query and sample
// candidates, then persist the pick so a later thumbs up/down merges into
// the same history entry.
type Radio struct {
	tables   feature.Tables
	store    StationStore
	sim      TasteSimulator
	selector Recommender
}

// NewRadio assembles the pipeline.
func NewRadio(tables feature.Tables, store StationStore, sim TasteSimulator, selector Recommender) *Radio {
	return &Radio{
		tables:   tables,
		store:    store,
		sim:      sim,
		selector: selector,
	}
}

// buildHistory embeds every rated track of the station under the scheme and
// feeds it to the simulator's history. Tracks whose attributes cannot be
// embedded are skipped, never fatal.
func (r *Radio) buildHistory(ctx context.Context, scheme feature.Scheme, rated []model.RatedTrack) simulator.History {
	history := simulator.NewHistory(scheme.Dimensions())
	for _, rt := range rated {
		emb, err := scheme.Embed(rt.Track.Attributes)
		if err != nil {
			log.Warn(ctx, "Skipping unembeddable track in history",
				"track", rt.Track.ID, "scheme", scheme.Name(), err)
			continue
		}
		if err := history.Add(emb.Values, rt.Rating); err != nil {
			log.Warn(ctx, "Skipping history entry", "track", rt.Track.ID, err)
		}
	}
	return history
}

// NextTrack picks the next track for a station and records it in the
// station's history with the default rating. Returns nil when no candidate
// survives filtering; the caller decides the fallback.
func (r *Radio) NextTrack(ctx context.Context, station *model.Station) (*engine.Candidate, error) {
	scheme, err := feature.ForCategory(station.Options.Category, r.tables)
	if err != nil {
		return nil, err
	}

	rated, err := r.store.RatedTracks(ctx, station.ID)
	if err != nil {
		return nil, fmt.Errorf("load rating history: %w", err)
	}
	history := r.buildHistory(ctx, scheme, rated)

	target := r.sim.Attract(ctx, history)

	thumbsDowned, err := r.store.ThumbsDowned(ctx, station.ID)
	if err != nil {
		return nil, fmt.Errorf("load thumbs-downed tracks: %w", err)
	}

	cooldown := station.Options.ReplaySongCooldown
	recentLimit := cooldown
	if recentLimit < recentArtistCount {
		recentLimit = recentArtistCount
	}
	played, err := r.store.RecentlyPlayed(ctx, station.ID, recentLimit)
	if err != nil {
		return nil, fmt.Errorf("load play history: %w", err)
	}

	exclude := thumbsDowned
	for i, entry := range played {
		if i >= cooldown {
			break
		}
		exclude = append(exclude, model.TrackRef{Artist: entry.Artist, Title: entry.Title})
	}

	var recentArtists []string
	for i, entry := range played {
		if i >= recentArtistCount {
			break
		}
		recentArtists = append(recentArtists, entry.Artist)
	}

	candidates, err := r.selector.Next(ctx, engine.Request{
		Collection:     scheme.Name(),
		Target:         target,
		Exclude:        exclude,
		RecentArtists:  recentArtists,
		DownrankFactor: station.Options.ReplayArtistDownrank,
		IgnoreLive:     station.Options.IgnoreLive,
		Count:          1,
	})
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		log.Info(ctx, "No candidates survived filtering", "station", station.ID)
		return nil, nil
	}
	pick := candidates[0]

	// Record the play now; a thumbs up/down on this track merges into the
	// same entry.
	if _, err := r.store.UpsertHistory(ctx, station.ID, pick.ID, model.RatingDefault, false); err != nil {
		return nil, fmt.Errorf("record play: %w", err)
	}

	log.Info(ctx, "Next track selected",
		"station", station.ID,
		"track", pick.ID,
		"artist", pick.Artist,
		"title", pick.Title,
		"similarity", pick.Similarity,
	)
	return &pick, nil
}

// Seed records a track as a station seed, the strongest positive rating.
func (r *Radio) Seed(ctx context.Context, stationID, trackID string) error {
	if _, err := r.store.GetTrack(ctx, trackID); err != nil {
		return err
	}
	_, err := r.store.UpsertHistory(ctx, stationID, trackID, model.RatingSeed, false)
	return err
}

// ThumbsUp upgrades the track's history entry to a thumbs-up rating.
func (r *Radio) ThumbsUp(ctx context.Context, stationID, trackID string) error {
	if _, err := r.store.GetTrack(ctx, trackID); err != nil {
		return err
	}
	_, err := r.store.UpsertHistory(ctx, stationID, trackID, model.RatingThumbsUp, false)
	return err
}

// ThumbsDown records a negative rating and flags the track so it is excluded
// from the station permanently.
func (r *Radio) ThumbsDown(ctx context.Context, stationID, trackID string) error {
	if _, err := r.store.GetTrack(ctx, trackID); err != nil {
		return err
	}
	_, err := r.store.UpsertHistory(ctx, stationID, trackID, model.RatingThumbsDown, true)
	return err
}
