package station

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/line72/boldaric/log"
	"github.com/line72/boldaric/model"
)

// UpsertHistory records one play/rating event. A repeated event for the same
// (station, track) within the lookback window updates the existing entry
// instead of appending, and the station's single most recent entry is always
// eligible for in-place update regardless of age. This keeps history growth
// bounded and prevents double-counting repeated plays in the simulator.
//
// A rating of 0 means "no new rating": the existing rating is kept on
// update. The thumbs-down flag only ever upgrades to true.
func (s *Store) UpsertHistory(ctx context.Context, stationID, trackID string, rating int, thumbsDowned bool) (string, error) {
	now := s.now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("upsert history: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Most recent entry for this (station, track).
	q := s.sq.Select("id", "rating", "is_thumbs_downed", "updated_at").
		From("track_history").
		Where(squirrel.Eq{"station_id": stationID, "track_id": trackID}).
		OrderBy("updated_at DESC").
		Limit(1)

	var (
		id           string
		prevRating   int
		prevDowned   bool
		prevUpdated  time.Time
		foundUpdated bool
	)
	err = q.RunWith(tx).QueryRowContext(ctx).Scan(&id, &prevRating, &prevDowned, &prevUpdated)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// fall through to insert
	case err != nil:
		return "", fmt.Errorf("upsert history: %w", err)
	default:
		if now.Sub(prevUpdated) <= historyLookback {
			foundUpdated = true
		} else {
			// Stale entry: still updatable if it is the station's single
			// most recent entry.
			latest, err := s.latestHistoryID(ctx, tx, stationID)
			if err != nil {
				return "", err
			}
			foundUpdated = latest == id
		}
	}

	if foundUpdated {
		newRating := prevRating
		if rating != 0 {
			newRating = rating
		}
		upd := s.sq.Update("track_history").
			Set("rating", newRating).
			Set("is_thumbs_downed", prevDowned || thumbsDowned).
			Set("updated_at", now).
			Where(squirrel.Eq{"id": id})
		if _, err := upd.RunWith(tx).ExecContext(ctx); err != nil {
			return "", fmt.Errorf("update history %s: %w", id, err)
		}
		log.Debug(ctx, "Updated history entry", "station", stationID, "track", trackID, "rating", newRating)
		return id, tx.Commit()
	}

	id = uuid.NewString()
	ins := s.sq.Insert("track_history").
		Columns("id", "station_id", "track_id", "rating", "is_thumbs_downed", "created_at", "updated_at").
		Values(id, stationID, trackID, rating, thumbsDowned, now, now)
	if _, err := ins.RunWith(tx).ExecContext(ctx); err != nil {
		return "", fmt.Errorf("insert history: %w", err)
	}
	log.Debug(ctx, "Added history entry", "station", stationID, "track", trackID, "rating", rating)
	return id, tx.Commit()
}

func (s *Store) latestHistoryID(ctx context.Context, tx *sql.Tx, stationID string) (string, error) {
	q := s.sq.Select("id").
		From("track_history").
		Where(squirrel.Eq{"station_id": stationID}).
		OrderBy("updated_at DESC").
		Limit(1)

	var id string
	err := q.RunWith(tx).QueryRowContext(ctx).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("latest history entry: %w", err)
	}
	return id, nil
}

var historyColumns = []string{
	"h.id", "h.station_id", "h.track_id", "h.rating", "h.is_thumbs_downed",
	"h.created_at", "h.updated_at",
	"t.artist", "t.title", "t.album",
}

func (s *Store) historyQuery(stationID string) squirrel.SelectBuilder {
	return s.sq.Select(historyColumns...).
		From("track_history h").
		Join("tracks t ON t.id = h.track_id").
		Where(squirrel.Eq{"h.station_id": stationID})
}

func scanHistory(rows *sql.Rows) (model.HistoryEntry, error) {
	var e model.HistoryEntry
	err := rows.Scan(&e.ID, &e.StationID, &e.TrackID, &e.Rating, &e.ThumbsDowned,
		&e.CreatedAt, &e.UpdatedAt,
		&e.Artist, &e.Title, &e.Album)
	return e, err
}

// RecentlyPlayed returns the station's history newest-first, up to limit
// entries. A limit of 0 returns everything.
func (s *Store) RecentlyPlayed(ctx context.Context, stationID string, limit int) ([]model.HistoryEntry, error) {
	q := s.historyQuery(stationID).OrderBy("h.updated_at DESC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}

	rows, err := q.RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("recently played: %w", err)
	}
	defer rows.Close()

	var entries []model.HistoryEntry
	for rows.Next() {
		e, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ThumbsDowned returns the (artist, title) of every thumbs-downed track for
// a station. These are excluded from recommendations forever.
func (s *Store) ThumbsDowned(ctx context.Context, stationID string) ([]model.TrackRef, error) {
	q := s.sq.Select("t.artist", "t.title").
		From("track_history h").
		Join("tracks t ON t.id = h.track_id").
		Where(squirrel.Eq{"h.station_id": stationID, "h.is_thumbs_downed": true}).
		OrderBy("h.updated_at")

	rows, err := q.RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("thumbs downed: %w", err)
	}
	defer rows.Close()

	var refs []model.TrackRef
	for rows.Next() {
		var ref model.TrackRef
		if err := rows.Scan(&ref.Artist, &ref.Title); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// RatedTracks returns the station's full history joined with track
// attributes, oldest-first, the input for rebuilding the simulator's rating
// history.
func (s *Store) RatedTracks(ctx context.Context, stationID string) ([]model.RatedTrack, error) {
	cols := append([]string{"h.rating"}, prefixed("t", trackColumns)...)
	q := s.sq.Select(cols...).
		From("track_history h").
		Join("tracks t ON t.id = h.track_id").
		Where(squirrel.Eq{"h.station_id": stationID}).
		OrderBy("h.updated_at")

	rows, err := q.RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("rated tracks: %w", err)
	}
	defer rows.Close()

	var rated []model.RatedTrack
	for rows.Next() {
		var r model.RatedTrack
		var attrs string
		err := rows.Scan(&r.Rating,
			&r.Track.ID, &r.Track.Artist, &r.Track.Album, &r.Track.Title,
			&r.Track.TrackNumber, &r.Track.Genre, &r.Track.ReleaseType,
			&r.Track.MusicBrainzArtistID, &r.Track.MusicBrainzAlbumID, &r.Track.MusicBrainzTrackID,
			&attrs)
		if err != nil {
			return nil, err
		}
		r.Track.Attributes, err = decodeAttributes(attrs)
		if err != nil {
			return nil, err
		}
		rated = append(rated, r)
	}
	return rated, rows.Err()
}

func prefixed(alias string, cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = alias + "." + c
	}
	return out
}
