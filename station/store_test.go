package station

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/line72/boldaric/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), Config{Driver: "sqlite3", DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testTrack(id, artist, title string) model.Track {
	return model.Track{
		ID:     id,
		Artist: artist,
		Album:  "Album",
		Title:  title,
		Attributes: model.TrackAttributes{
			GenreEmbedding: []float64{0.5, 0.5},
			MFCCMean:       []float64{1, 2, 3},
			BPM:            model.Float(120),
			MoodSadness:    model.Float(0.7),
		},
	}
}

func TestCreateAndGetUser(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	created, err := s.CreateUser(ctx, "alice")
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	got, err := s.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "alice", got.Username)

	_, err = s.GetUser(ctx, "nobody")
	assert.ErrorIs(t, err, model.ErrUserNotFound)
}

func TestDuplicateUsernameRejected(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.CreateUser(ctx, "alice")
	require.NoError(t, err)
	_, err = s.CreateUser(ctx, "alice")
	assert.Error(t, err)
}

func TestAllUsers(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.CreateUser(ctx, "bob")
	require.NoError(t, err)
	_, err = s.CreateUser(ctx, "alice")
	require.NoError(t, err)

	users, err := s.AllUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "alice", users[0].Username)
	assert.Equal(t, "bob", users[1].Username)
}

func TestCreateStationWithDefaults(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	user, err := s.CreateUser(ctx, "alice")
	require.NoError(t, err)

	st, err := s.CreateStation(ctx, user.ID, "My Station")
	require.NoError(t, err)
	assert.Equal(t, model.DefaultStationOptions(), st.Options)

	got, err := s.GetStation(ctx, user.ID, st.ID)
	require.NoError(t, err)
	assert.Equal(t, "My Station", got.Name)
	assert.Equal(t, 80, got.Options.ReplaySongCooldown)
	assert.Equal(t, 0.995, got.Options.ReplayArtistDownrank)
	assert.Equal(t, model.CategoryGeneral, got.Options.Category)
}

func TestGetStationWrongUser(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	alice, _ := s.CreateUser(ctx, "alice")
	bob, _ := s.CreateUser(ctx, "bob")
	st, err := s.CreateStation(ctx, alice.ID, "Private")
	require.NoError(t, err)

	_, err = s.GetStation(ctx, bob.ID, st.ID)
	assert.ErrorIs(t, err, model.ErrStationNotFound)
}

func TestSetStationOptions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	user, _ := s.CreateUser(ctx, "alice")
	st, err := s.CreateStation(ctx, user.ID, "Tuned")
	require.NoError(t, err)

	opts := model.StationOptions{
		ReplaySongCooldown:   50,
		ReplayArtistDownrank: 0.95,
		IgnoreLive:           true,
		Category:             model.CategoryMood,
	}
	require.NoError(t, s.SetStationOptions(ctx, st.ID, opts))

	got, err := s.GetStation(ctx, user.ID, st.ID)
	require.NoError(t, err)
	assert.Equal(t, opts, got.Options)
}

func TestSetStationOptionsInvalidCategory(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	err := s.SetStationOptions(ctx, "whatever", model.StationOptions{Category: "polka"})
	assert.Error(t, err)
}

func TestSetStationOptionsUnknownStation(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	err := s.SetStationOptions(ctx, "missing", model.DefaultStationOptions())
	assert.ErrorIs(t, err, model.ErrStationNotFound)
}

func TestSaveAndGetTrack(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	track := testTrack("t1", "Artist", "Title")
	require.NoError(t, s.SaveTrack(ctx, track))

	got, err := s.GetTrack(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, track.Artist, got.Artist)
	assert.Equal(t, track.Attributes.GenreEmbedding, got.Attributes.GenreEmbedding)
	assert.Equal(t, 120.0, model.Scalar(got.Attributes.BPM, 0))
	assert.Equal(t, 0.7, model.Scalar(got.Attributes.MoodSadness, 0))
	assert.Nil(t, got.Attributes.Loudness)

	_, err = s.GetTrack(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrTrackNotFound)
}

func TestSaveTrackReplaces(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.SaveTrack(ctx, testTrack("t1", "Artist", "Old")))
	require.NoError(t, s.SaveTrack(ctx, testTrack("t1", "Artist", "New")))

	got, err := s.GetTrack(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "New", got.Title)

	count, err := s.CountTracks(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestDeleteTracks(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.SaveTrack(ctx, testTrack("t1", "A", "One")))
	require.NoError(t, s.SaveTrack(ctx, testTrack("t2", "B", "Two")))
	require.NoError(t, s.DeleteTracks(ctx, []string{"t1", "missing"}))

	count, err := s.CountTracks(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestForEachTrack(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.SaveTrack(ctx, testTrack("b", "B", "Two")))
	require.NoError(t, s.SaveTrack(ctx, testTrack("a", "A", "One")))

	var ids []string
	err := s.ForEachTrack(ctx, func(track model.Track) error {
		ids = append(ids, track.ID)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)
}

func setupStationWithTrack(t *testing.T, s *Store) (string, string) {
	t.Helper()
	ctx := context.Background()
	user, err := s.CreateUser(ctx, "alice")
	require.NoError(t, err)
	st, err := s.CreateStation(ctx, user.ID, "Radio")
	require.NoError(t, err)
	require.NoError(t, s.SaveTrack(ctx, testTrack("t1", "Artist", "Title")))
	return st.ID, "t1"
}

func TestUpsertHistoryMergesWithinWindow(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	stationID, trackID := setupStationWithTrack(t, s)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	first, err := s.UpsertHistory(ctx, stationID, trackID, model.RatingDefault, false)
	require.NoError(t, err)

	// Same track 10 minutes later: update, not append.
	s.now = func() time.Time { return base.Add(10 * time.Minute) }
	second, err := s.UpsertHistory(ctx, stationID, trackID, model.RatingThumbsUp, false)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	entries, err := s.RecentlyPlayed(ctx, stationID, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, model.RatingThumbsUp, entries[0].Rating)
}

func TestUpsertHistoryAppendsAfterWindow(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	stationID, trackID := setupStationWithTrack(t, s)
	require.NoError(t, s.SaveTrack(ctx, testTrack("t2", "Other", "Song")))

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	first, err := s.UpsertHistory(ctx, stationID, trackID, model.RatingDefault, false)
	require.NoError(t, err)

	// Another track plays in between, so t1 is no longer the most recent
	// entry; an hour later its event must append.
	s.now = func() time.Time { return base.Add(30 * time.Minute) }
	_, err = s.UpsertHistory(ctx, stationID, "t2", model.RatingDefault, false)
	require.NoError(t, err)

	s.now = func() time.Time { return base.Add(2 * time.Hour) }
	third, err := s.UpsertHistory(ctx, stationID, trackID, model.RatingDefault, false)
	require.NoError(t, err)
	assert.NotEqual(t, first, third)

	entries, err := s.RecentlyPlayed(ctx, stationID, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestUpsertHistoryMostRecentAlwaysUpdatable(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	stationID, trackID := setupStationWithTrack(t, s)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	first, err := s.UpsertHistory(ctx, stationID, trackID, model.RatingDefault, false)
	require.NoError(t, err)

	// Days later, but still the station's single most recent entry.
	s.now = func() time.Time { return base.Add(72 * time.Hour) }
	second, err := s.UpsertHistory(ctx, stationID, trackID, model.RatingThumbsUp, false)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestUpsertHistoryZeroRatingKeepsExisting(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	stationID, trackID := setupStationWithTrack(t, s)

	_, err := s.UpsertHistory(ctx, stationID, trackID, model.RatingThumbsUp, false)
	require.NoError(t, err)
	_, err = s.UpsertHistory(ctx, stationID, trackID, 0, false)
	require.NoError(t, err)

	entries, err := s.RecentlyPlayed(ctx, stationID, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, model.RatingThumbsUp, entries[0].Rating)
}

func TestUpsertHistoryThumbsDownSticks(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	stationID, trackID := setupStationWithTrack(t, s)

	_, err := s.UpsertHistory(ctx, stationID, trackID, model.RatingThumbsDown, true)
	require.NoError(t, err)
	// A later plain play must not clear the flag.
	_, err = s.UpsertHistory(ctx, stationID, trackID, 0, false)
	require.NoError(t, err)

	refs, err := s.ThumbsDowned(ctx, stationID)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, model.TrackRef{Artist: "Artist", Title: "Title"}, refs[0])
}

func TestRecentlyPlayedOrderAndLimit(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	stationID, _ := setupStationWithTrack(t, s)
	require.NoError(t, s.SaveTrack(ctx, testTrack("t2", "B", "Two")))
	require.NoError(t, s.SaveTrack(ctx, testTrack("t3", "C", "Three")))

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"t1", "t2", "t3"} {
		i, id := i, id
		s.now = func() time.Time { return base.Add(time.Duration(i) * time.Hour) }
		_, err := s.UpsertHistory(ctx, stationID, id, model.RatingDefault, false)
		require.NoError(t, err)
	}

	entries, err := s.RecentlyPlayed(ctx, stationID, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "t3", entries[0].TrackID)
	assert.Equal(t, "t2", entries[1].TrackID)
	assert.Equal(t, "C", entries[0].Artist)
}

func TestRatedTracks(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	stationID, trackID := setupStationWithTrack(t, s)
	require.NoError(t, s.SaveTrack(ctx, testTrack("t2", "B", "Two")))

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }
	_, err := s.UpsertHistory(ctx, stationID, trackID, model.RatingSeed, false)
	require.NoError(t, err)
	s.now = func() time.Time { return base.Add(time.Hour) }
	_, err = s.UpsertHistory(ctx, stationID, "t2", model.RatingThumbsUp, false)
	require.NoError(t, err)

	rated, err := s.RatedTracks(ctx, stationID)
	require.NoError(t, err)
	require.Len(t, rated, 2)
	assert.Equal(t, model.RatingSeed, rated[0].Rating)
	assert.Equal(t, "t1", rated[0].Track.ID)
	assert.Equal(t, model.RatingThumbsUp, rated[1].Rating)
	assert.NotNil(t, rated[1].Track.Attributes.BPM)
}
