package station

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/line72/boldaric/model"
)

// historyLookback is the window in which a repeated rating event for the
// same (station, track) updates the existing history entry instead of
// appending a new one.
const historyLookback = 30 * time.Minute

// Store is the SQL-backed persistence layer. Safe for concurrent use; the
// history upsert runs in a transaction so racing writers for the same
// station merge rather than double-count.
type Store struct {
	db  *sql.DB
	sq  squirrel.StatementBuilderType
	now func() time.Time
}

// NewStore wraps an open database handle. Most callers use Open instead.
func NewStore(db *sql.DB, placeholder squirrel.PlaceholderFormat) *Store {
	return &Store{
		db:  db,
		sq:  squirrel.StatementBuilder.PlaceholderFormat(placeholder),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateUser creates a new user.
func (s *Store) CreateUser(ctx context.Context, username string) (*model.User, error) {
	user := &model.User{ID: uuid.NewString(), Username: username}

	q := s.sq.Insert("users").
		Columns("id", "username").
		Values(user.ID, user.Username)
	if _, err := q.RunWith(s.db).ExecContext(ctx); err != nil {
		return nil, fmt.Errorf("create user %s: %w", username, err)
	}
	return user, nil
}

// GetUser returns the user with the given username.
func (s *Store) GetUser(ctx context.Context, username string) (*model.User, error) {
	q := s.sq.Select("id", "username").
		From("users").
		Where(squirrel.Eq{"username": username})

	var user model.User
	err := q.RunWith(s.db).QueryRowContext(ctx).Scan(&user.ID, &user.Username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", username, err)
	}
	return &user, nil
}

// AllUsers returns every user, used to build the auth token table.
func (s *Store) AllUsers(ctx context.Context) ([]model.User, error) {
	q := s.sq.Select("id", "username").From("users").OrderBy("username")

	rows, err := q.RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Username); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// CreateStation creates a station with default options.
func (s *Store) CreateStation(ctx context.Context, userID, name string) (*model.Station, error) {
	st := &model.Station{
		ID:      uuid.NewString(),
		UserID:  userID,
		Name:    name,
		Options: model.DefaultStationOptions(),
	}

	q := s.sq.Insert("stations").
		Columns("id", "user_id", "name",
			"replay_song_cooldown", "replay_artist_downrank", "ignore_live", "category").
		Values(st.ID, st.UserID, st.Name,
			st.Options.ReplaySongCooldown, st.Options.ReplayArtistDownrank,
			st.Options.IgnoreLive, string(st.Options.Category))
	if _, err := q.RunWith(s.db).ExecContext(ctx); err != nil {
		return nil, fmt.Errorf("create station %s: %w", name, err)
	}
	return st, nil
}

func scanStation(row squirrel.RowScanner) (*model.Station, error) {
	var st model.Station
	var category string
	err := row.Scan(&st.ID, &st.UserID, &st.Name,
		&st.Options.ReplaySongCooldown, &st.Options.ReplayArtistDownrank,
		&st.Options.IgnoreLive, &category)
	if err != nil {
		return nil, err
	}
	st.Options.Category = model.Category(category)
	return &st, nil
}

var stationColumns = []string{
	"id", "user_id", "name",
	"replay_song_cooldown", "replay_artist_downrank", "ignore_live", "category",
}

// GetStation returns a station owned by userID.
func (s *Store) GetStation(ctx context.Context, userID, stationID string) (*model.Station, error) {
	q := s.sq.Select(stationColumns...).
		From("stations").
		Where(squirrel.Eq{"id": stationID, "user_id": userID})

	st, err := scanStation(q.RunWith(s.db).QueryRowContext(ctx))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrStationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get station %s: %w", stationID, err)
	}
	return st, nil
}

// StationsForUser returns all stations owned by a user.
func (s *Store) StationsForUser(ctx context.Context, userID string) ([]model.Station, error) {
	q := s.sq.Select(stationColumns...).
		From("stations").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("name")

	rows, err := q.RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stations: %w", err)
	}
	defer rows.Close()

	var stations []model.Station
	for rows.Next() {
		st, err := scanStation(rows)
		if err != nil {
			return nil, err
		}
		stations = append(stations, *st)
	}
	return stations, rows.Err()
}

// SetStationOptions replaces a station's options.
func (s *Store) SetStationOptions(ctx context.Context, stationID string, opts model.StationOptions) error {
	if !opts.Category.Valid() {
		return fmt.Errorf("invalid category %q", opts.Category)
	}

	q := s.sq.Update("stations").
		Set("replay_song_cooldown", opts.ReplaySongCooldown).
		Set("replay_artist_downrank", opts.ReplayArtistDownrank).
		Set("ignore_live", opts.IgnoreLive).
		Set("category", string(opts.Category)).
		Where(squirrel.Eq{"id": stationID})

	res, err := q.RunWith(s.db).ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("set station options: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return model.ErrStationNotFound
	}
	return nil
}
