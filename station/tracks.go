package station

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/line72/boldaric/model"
)

// Track attributes are stored as a JSON document rather than one column per
// feature; the attribute set changes with the extraction service and the
// database never queries individual features.
func encodeAttributes(attrs model.TrackAttributes) (string, error) {
	raw, err := json.Marshal(attrs)
	if err != nil {
		return "", fmt.Errorf("encode attributes: %w", err)
	}
	return string(raw), nil
}

func decodeAttributes(raw string) (model.TrackAttributes, error) {
	var attrs model.TrackAttributes
	if err := json.Unmarshal([]byte(raw), &attrs); err != nil {
		return attrs, fmt.Errorf("%w: decode attributes: %v", model.ErrInvalidAttributes, err)
	}
	return attrs, nil
}

var trackColumns = []string{
	"id", "artist", "album", "title", "track_number", "genre", "release_type",
	"mbz_artist_id", "mbz_album_id", "mbz_track_id", "attributes",
}

// SaveTrack inserts or replaces a catalog track.
func (s *Store) SaveTrack(ctx context.Context, track model.Track) error {
	attrs, err := encodeAttributes(track.Attributes)
	if err != nil {
		return err
	}

	// Portable upsert: delete-then-insert in one transaction.
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save track %s: %w", track.ID, err)
	}
	defer func() { _ = tx.Rollback() }()

	del := s.sq.Delete("tracks").Where(squirrel.Eq{"id": track.ID})
	if _, err := del.RunWith(tx).ExecContext(ctx); err != nil {
		return fmt.Errorf("save track %s: %w", track.ID, err)
	}

	ins := s.sq.Insert("tracks").
		Columns(trackColumns...).
		Values(track.ID, track.Artist, track.Album, track.Title,
			track.TrackNumber, track.Genre, track.ReleaseType,
			track.MusicBrainzArtistID, track.MusicBrainzAlbumID, track.MusicBrainzTrackID,
			attrs)
	if _, err := ins.RunWith(tx).ExecContext(ctx); err != nil {
		return fmt.Errorf("save track %s: %w", track.ID, err)
	}

	return tx.Commit()
}

func scanTrack(row squirrel.RowScanner) (*model.Track, error) {
	var t model.Track
	var attrs string
	err := row.Scan(&t.ID, &t.Artist, &t.Album, &t.Title,
		&t.TrackNumber, &t.Genre, &t.ReleaseType,
		&t.MusicBrainzArtistID, &t.MusicBrainzAlbumID, &t.MusicBrainzTrackID,
		&attrs)
	if err != nil {
		return nil, err
	}
	t.Attributes, err = decodeAttributes(attrs)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetTrack returns a catalog track by id.
func (s *Store) GetTrack(ctx context.Context, id string) (*model.Track, error) {
	q := s.sq.Select(trackColumns...).
		From("tracks").
		Where(squirrel.Eq{"id": id})

	t, err := scanTrack(q.RunWith(s.db).QueryRowContext(ctx))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrTrackNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get track %s: %w", id, err)
	}
	return t, nil
}

// DeleteTracks removes catalog tracks by id. Missing ids are ignored.
func (s *Store) DeleteTracks(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	q := s.sq.Delete("tracks").Where(squirrel.Eq{"id": ids})
	if _, err := q.RunWith(s.db).ExecContext(ctx); err != nil {
		return fmt.Errorf("delete tracks: %w", err)
	}
	return nil
}

// CountTracks returns the catalog size.
func (s *Store) CountTracks(ctx context.Context) (int64, error) {
	q := s.sq.Select("COUNT(*)").From("tracks")

	var count int64
	if err := q.RunWith(s.db).QueryRowContext(ctx).Scan(&count); err != nil {
		return 0, fmt.Errorf("count tracks: %w", err)
	}
	return count, nil
}

// ForEachTrack streams every catalog track through fn, ordered by id. Used
// by the reindexer to avoid loading the whole catalog into memory.
func (s *Store) ForEachTrack(ctx context.Context, fn func(track model.Track) error) error {
	q := s.sq.Select(trackColumns...).From("tracks").OrderBy("id")

	rows, err := q.RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return fmt.Errorf("list tracks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		t, err := scanTrack(rows)
		if err != nil {
			return err
		}
		if err := fn(*t); err != nil {
			return err
		}
	}
	return rows.Err()
}
