package engine

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/line72/boldaric/index"
	"github.com/line72/boldaric/index/memory"
	"github.com/line72/boldaric/model"
)

var testSpecs = []index.CollectionSpec{
	{Name: "general", Dimensions: 3, Metric: index.MetricCosine},
}

func newTestSelector(t *testing.T, records ...index.Record) *Selector {
	t.Helper()
	store := memory.New(testSpecs...)
	require.NoError(t, store.Upsert(context.Background(), "general", records))
	return New(DefaultConfig(), store, testSpecs, WithRand(rand.New(rand.NewSource(1))))
}

func track(artist, title string, emb ...float64) index.Record {
	return index.Record{
		ID:        artist + " - " + title,
		Embedding: emb,
		Artist:    artist,
		Title:     title,
	}
}

func TestNextReturnsNearestTracks(t *testing.T) {
	s := newTestSelector(t,
		track("A", "close", 1, 0, 0),
		track("B", "far", 0, 1, 0),
	)

	got, err := s.Next(context.Background(), Request{
		Collection: "general",
		Target:     []float64{1, 0, 0},
		Count:      2,
	})
	require.NoError(t, err)
	require.Len(t, got, 2)

	byTitle := map[string]Candidate{}
	for _, c := range got {
		byTitle[c.Title] = c
	}
	assert.Greater(t, byTitle["close"].RawSimilarity, byTitle["far"].RawSimilarity)
	assert.InDelta(t, 1.0, byTitle["close"].RawSimilarity, 1e-9)
}

func TestNextExcludesByArtistTitle(t *testing.T) {
	s := newTestSelector(t,
		track("A", "banned", 1, 0, 0),
		track("B", "allowed", 0.9, 0.1, 0),
	)

	for _, k := range []int{1, 2, 10} {
		got, err := s.Next(context.Background(), Request{
			Collection: "general",
			Target:     []float64{1, 0, 0},
			Exclude:    []model.TrackRef{{Artist: "A", Title: "banned"}},
			Count:      k,
		})
		require.NoError(t, err)
		for _, c := range got {
			assert.NotEqual(t, "banned", c.Title)
		}
	}
}

func TestNextAllExcludedReturnsEmpty(t *testing.T) {
	s := newTestSelector(t,
		track("A", "one", 1, 0, 0),
		track("B", "two", 0, 1, 0),
	)

	got, err := s.Next(context.Background(), Request{
		Collection: "general",
		Target:     []float64{1, 0, 0},
		Exclude: []model.TrackRef{
			{Artist: "A", Title: "one"},
			{Artist: "B", Title: "two"},
		},
		Count: 3,
	})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestNextDownranksRecentArtists(t *testing.T) {
	// Two candidates with identical similarity; the recent artist must
	// never out-rank the fresh one.
	s := newTestSelector(t,
		track("Recent", "same", 1, 0, 0),
		track("Fresh", "same too", 1, 0, 0),
	)

	got, err := s.Next(context.Background(), Request{
		Collection:     "general",
		Target:         []float64{1, 0, 0},
		RecentArtists:  []string{"Recent"},
		DownrankFactor: 0.5,
		Count:          2,
	})
	require.NoError(t, err)
	require.Len(t, got, 2)

	var recent, fresh Candidate
	for _, c := range got {
		if c.Artist == "Recent" {
			recent = c
		} else {
			fresh = c
		}
	}
	assert.Equal(t, recent.RawSimilarity, fresh.RawSimilarity)
	assert.Less(t, recent.Similarity, fresh.Similarity)
	assert.InDelta(t, 0.5, recent.Similarity/fresh.Similarity, 1e-9)
}

func TestNextDownrankIsSoft(t *testing.T) {
	// A strongly matching recent artist still beats a weak fresh one.
	s := newTestSelector(t,
		track("Recent", "strong", 1, 0, 0),
		track("Fresh", "weak", 0, 1, 0),
	)

	got, err := s.Next(context.Background(), Request{
		Collection:     "general",
		Target:         []float64{1, 0, 0},
		RecentArtists:  []string{"Recent"},
		DownrankFactor: 0.995,
		Count:          1,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Recent", got[0].Artist)
}

func TestNextIgnoreLive(t *testing.T) {
	s := newTestSelector(t,
		track("A", "Song (Live at Wembley)", 1, 0, 0),
		track("B", "Song", 0.9, 0.1, 0),
	)

	got, err := s.Next(context.Background(), Request{
		Collection: "general",
		Target:     []float64{1, 0, 0},
		IgnoreLive: true,
		Count:      5,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Song", got[0].Title)
}

func TestNextSamplesWithoutReplacement(t *testing.T) {
	var records []index.Record
	for i := 0; i < 20; i++ {
		records = append(records, track(
			fmt.Sprintf("Artist%d", i),
			fmt.Sprintf("Track%d", i),
			1, float64(i)*0.01, 0,
		))
	}
	s := newTestSelector(t, records...)

	got, err := s.Next(context.Background(), Request{
		Collection: "general",
		Target:     []float64{1, 0, 0},
		Count:      10,
	})
	require.NoError(t, err)
	require.Len(t, got, 10)

	seen := map[string]bool{}
	for _, c := range got {
		assert.False(t, seen[c.ID], "duplicate candidate %s", c.ID)
		seen[c.ID] = true
	}
}

func TestNextFewerSurvivorsThanCount(t *testing.T) {
	s := newTestSelector(t, track("A", "only", 1, 0, 0))

	got, err := s.Next(context.Background(), Request{
		Collection: "general",
		Target:     []float64{1, 0, 0},
		Count:      5,
	})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestNextUnknownCollection(t *testing.T) {
	s := newTestSelector(t)

	_, err := s.Next(context.Background(), Request{
		Collection: "nope",
		Target:     []float64{1, 0, 0},
	})
	assert.Error(t, err)
}

func TestNextSamplingIsWeighted(t *testing.T) {
	// With one overwhelmingly similar candidate, the first pick should be
	// that candidate nearly always.
	s := newTestSelector(t,
		track("A", "match", 1, 0, 0),
		track("B", "noise", 0.01, 1, 0),
	)

	wins := 0
	for i := 0; i < 100; i++ {
		got, err := s.Next(context.Background(), Request{
			Collection: "general",
			Target:     []float64{1, 0, 0},
			Count:      1,
		})
		require.NoError(t, err)
		require.Len(t, got, 1)
		if got[0].Title == "match" {
			wins++
		}
	}
	assert.Greater(t, wins, 80)
}

func TestIsLiveTitle(t *testing.T) {
	tests := []struct {
		title string
		live  bool
	}{
		{"Song (Live at Wembley)", true},
		{"Song [Live]", true},
		{"Song - Live 1999", true},
		{"Song (live)", true},
		{"Live", false},
		{"Alive", false},
		{"Song", false},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.live, isLiveTitle(tt.title))
		})
	}
}
