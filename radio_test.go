package boldaric

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/line72/boldaric/engine"
	"github.com/line72/boldaric/feature"
	"github.com/line72/boldaric/index"
	"github.com/line72/boldaric/index/memory"
	"github.com/line72/boldaric/indexer"
	"github.com/line72/boldaric/model"
	"github.com/line72/boldaric/simulator"
)

// fakeStore is an in-memory StationStore for pipeline tests.
type fakeStore struct {
	mu      sync.Mutex
	tracks  map[string]model.Track
	rated   map[string][]model.RatedTrack
	downed  map[string][]model.TrackRef
	played  map[string][]model.HistoryEntry
	upserts []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tracks: map[string]model.Track{},
		rated:  map[string][]model.RatedTrack{},
		downed: map[string][]model.TrackRef{},
		played: map[string][]model.HistoryEntry{},
	}
}

func (f *fakeStore) GetTrack(_ context.Context, id string) (*model.Track, error) {
	t, ok := f.tracks[id]
	if !ok {
		return nil, model.ErrTrackNotFound
	}
	return &t, nil
}

func (f *fakeStore) RatedTracks(_ context.Context, stationID string) ([]model.RatedTrack, error) {
	return f.rated[stationID], nil
}

func (f *fakeStore) ThumbsDowned(_ context.Context, stationID string) ([]model.TrackRef, error) {
	return f.downed[stationID], nil
}

func (f *fakeStore) RecentlyPlayed(_ context.Context, stationID string, limit int) ([]model.HistoryEntry, error) {
	entries := f.played[stationID]
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	return entries, nil
}

func (f *fakeStore) UpsertHistory(_ context.Context, stationID, trackID string, rating int, thumbsDowned bool) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts = append(f.upserts, fmt.Sprintf("%s:%s:%d:%t", stationID, trackID, rating, thumbsDowned))
	return trackID, nil
}

// pipelineTrack builds a track whose general embedding is dominated by one
// genre dimension, so similarity ordering is easy to reason about.
func pipelineTrack(id, artist, title string, genreDim int) model.Track {
	genre := make([]float64, model.GenreDimensions)
	genre[genreDim] = 1
	return model.Track{
		ID:     id,
		Artist: artist,
		Title:  title,
		Attributes: model.TrackAttributes{
			GenreEmbedding: genre,
			MFCCMean:       make([]float64, model.MFCCDimensions),
		},
	}
}

func newTestRadio(t *testing.T, store *fakeStore, catalog ...model.Track) *Radio {
	t.Helper()
	ctx := context.Background()

	tables := feature.DefaultTables()
	schemes := feature.AllSchemes(tables, true)
	specs := indexer.CollectionSpecs(schemes)
	vectors := memory.New(specs...)

	ix := indexer.New(vectors, schemes, nil)
	for _, track := range catalog {
		require.NoError(t, ix.IndexTrack(ctx, track))
		store.tracks[track.ID] = track
	}

	simCfg := simulator.DefaultConfig()
	simCfg.Jitter = 0
	simCfg.Workers = 2
	sim := simulator.New(simCfg)
	t.Cleanup(sim.Close)

	selector := engine.New(engine.DefaultConfig(), vectors, specs,
		engine.WithRand(rand.New(rand.NewSource(7))))

	return NewRadio(tables, store, sim, selector)
}

func testStation(id string) *model.Station {
	return &model.Station{
		ID:      id,
		UserID:  "u1",
		Name:    "Test",
		Options: model.DefaultStationOptions(),
	}
}

func TestNextTrackPicksAndRecords(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	seed := pipelineTrack("seed", "Seeder", "Seed Song", 3)
	match := pipelineTrack("match", "Matcher", "Match Song", 3)
	other := pipelineTrack("other", "Other", "Other Song", 90)
	radio := newTestRadio(t, store, seed, match, other)

	store.rated["st1"] = []model.RatedTrack{{Track: seed, Rating: model.RatingSeed}}
	// The seed itself was already played, so it is in the cooldown window,
	// and the unrelated track was thumbs-downed; only "match" survives.
	store.played["st1"] = []model.HistoryEntry{
		{TrackID: "seed", Artist: "Seeder", Title: "Seed Song"},
	}
	store.downed["st1"] = []model.TrackRef{{Artist: "Other", Title: "Other Song"}}

	pick, err := radio.NextTrack(ctx, testStation("st1"))
	require.NoError(t, err)
	require.NotNil(t, pick)
	assert.Equal(t, "match", pick.ID)

	require.Len(t, store.upserts, 1)
	assert.Equal(t, fmt.Sprintf("st1:match:%d:false", model.RatingDefault), store.upserts[0])
}

func TestNextTrackExcludesThumbsDowned(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	seed := pipelineTrack("seed", "Seeder", "Seed Song", 3)
	banned := pipelineTrack("banned", "Bad", "Bad Song", 3)
	radio := newTestRadio(t, store, seed, banned)

	store.rated["st1"] = []model.RatedTrack{{Track: seed, Rating: model.RatingSeed}}
	store.downed["st1"] = []model.TrackRef{
		{Artist: "Bad", Title: "Bad Song"},
		{Artist: "Seeder", Title: "Seed Song"},
	}

	pick, err := radio.NextTrack(ctx, testStation("st1"))
	require.NoError(t, err)
	assert.Nil(t, pick)
	assert.Empty(t, store.upserts)
}

func TestNextTrackEmptyHistoryStillWorks(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	track := pipelineTrack("t1", "A", "One", 5)
	radio := newTestRadio(t, store, track)

	pick, err := radio.NextTrack(ctx, testStation("fresh"))
	require.NoError(t, err)
	require.NotNil(t, pick)
	assert.Equal(t, "t1", pick.ID)
}

func TestNextTrackIndependentStations(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	seed := pipelineTrack("seed", "Seeder", "Seed Song", 3)
	match := pipelineTrack("match", "Matcher", "Match Song", 3)
	radio := newTestRadio(t, store, seed, match)

	rated := []model.RatedTrack{{Track: seed, Rating: model.RatingSeed}}
	store.rated["a"] = rated
	store.rated["b"] = rated

	done := make(chan *engine.Candidate, 2)
	for _, id := range []string{"a", "b"} {
		id := id
		go func() {
			pick, err := radio.NextTrack(ctx, testStation(id))
			assert.NoError(t, err)
			done <- pick
		}()
	}
	first, second := <-done, <-done
	require.NotNil(t, first)
	require.NotNil(t, second)
	for _, pick := range []*engine.Candidate{first, second} {
		assert.Contains(t, []string{"seed", "match"}, pick.ID)
	}
}

func TestSeedAndRatings(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	track := pipelineTrack("t1", "A", "One", 5)
	radio := newTestRadio(t, store, track)

	require.NoError(t, radio.Seed(ctx, "st1", "t1"))
	require.NoError(t, radio.ThumbsUp(ctx, "st1", "t1"))
	require.NoError(t, radio.ThumbsDown(ctx, "st1", "t1"))

	require.Len(t, store.upserts, 3)
	assert.Equal(t, fmt.Sprintf("st1:t1:%d:false", model.RatingSeed), store.upserts[0])
	assert.Equal(t, fmt.Sprintf("st1:t1:%d:false", model.RatingThumbsUp), store.upserts[1])
	assert.Equal(t, fmt.Sprintf("st1:t1:%d:true", model.RatingThumbsDown), store.upserts[2])
}

func TestRatingsUnknownTrack(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	radio := newTestRadio(t, store)

	assert.ErrorIs(t, radio.Seed(ctx, "st1", "nope"), model.ErrTrackNotFound)
	assert.ErrorIs(t, radio.ThumbsUp(ctx, "st1", "nope"), model.ErrTrackNotFound)
	assert.ErrorIs(t, radio.ThumbsDown(ctx, "st1", "nope"), model.ErrTrackNotFound)
}

var _ index.Store = (*memory.Store)(nil)
