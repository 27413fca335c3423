package simulator

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/line72/boldaric/model"
)

// newTestSimulator disables the start-position jitter so equilibrium
// positions are exact.
func newTestSimulator(t *testing.T) *Simulator {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Jitter = 0
	cfg.Workers = 2
	s := New(cfg)
	t.Cleanup(s.Close)
	return s
}

func TestAttractSingleSampleIsFixedPoint(t *testing.T) {
	s := newTestSimulator(t)

	history := History{{{Value: 0.42, Weight: 5}}}
	target := s.Attract(context.Background(), history)

	require.Len(t, target, 1)
	assert.Equal(t, 0.42, target[0])
}

func TestAttractMidpointOfEqualSamplesIsStable(t *testing.T) {
	s := newTestSimulator(t)

	// Equal weights at 0.2 and 0.8 pull symmetrically on a particle dropped
	// at their mean, so it never moves.
	history := History{{
		{Value: 0.2, Weight: 3},
		{Value: 0.8, Weight: 3},
	}}
	target := s.Attract(context.Background(), history)

	require.Len(t, target, 1)
	assert.InDelta(t, 0.5, target[0], 1e-9)
}

func TestAttractOpposingWeightsCancel(t *testing.T) {
	s := newTestSimulator(t)

	history := History{{
		{Value: 0.3, Weight: 5},
		{Value: 0.3, Weight: -5},
	}}
	target := s.Attract(context.Background(), history)

	require.Len(t, target, 1)
	assert.InDelta(t, 0.3, target[0], 1e-9)
}

func TestAttractPullsTowardHeavierCluster(t *testing.T) {
	s := newTestSimulator(t)

	history := History{{
		{Value: 0.0, Weight: 1},
		{Value: 0.2, Weight: 5},
	}}
	target := s.Attract(context.Background(), history)

	require.Len(t, target, 1)
	// The particle starts at the unweighted mean (0.1) and must drift toward
	// the heavier sample.
	assert.Greater(t, target[0], 0.1)
	assert.Less(t, target[0], 0.2)
}

func TestAttractNegativeWeightRepels(t *testing.T) {
	s := newTestSimulator(t)

	history := History{{
		{Value: 0.5, Weight: 3},
		{Value: 0.45, Weight: -3},
	}}
	target := s.Attract(context.Background(), history)

	require.Len(t, target, 1)
	// Both the attraction to 0.5 and the repulsion from 0.45 push the
	// particle upward from the mean.
	assert.Greater(t, target[0], 0.475)
}

func TestAttractEmptyDimensionsAreNeutral(t *testing.T) {
	s := newTestSimulator(t)

	history := NewHistory(4)
	history[2] = []Sample{{Value: 0.7, Weight: 5}}
	target := s.Attract(context.Background(), history)

	require.Len(t, target, 4)
	assert.Equal(t, 0.0, target[0])
	assert.Equal(t, 0.0, target[1])
	assert.Equal(t, 0.7, target[2])
	assert.Equal(t, 0.0, target[3])
}

func TestAttractEmptyHistory(t *testing.T) {
	s := newTestSimulator(t)

	target := s.Attract(context.Background(), History{})
	assert.Empty(t, target)
}

func TestAttractIsDeterministicWithoutJitter(t *testing.T) {
	s := newTestSimulator(t)

	history := NewHistory(8)
	for i := range history {
		history[i] = []Sample{
			{Value: float64(i) * 0.1, Weight: 5},
			{Value: float64(i)*0.1 + 0.3, Weight: 2},
		}
	}

	a := s.Attract(context.Background(), history)
	b := s.Attract(context.Background(), history)
	assert.Equal(t, a, b)
}

func TestAttractConcurrentRequests(t *testing.T) {
	s := newTestSimulator(t)

	history := History{{{Value: 0.42, Weight: 5}}}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			target := s.Attract(context.Background(), history)
			assert.Equal(t, []float64{0.42}, target)
		}()
	}
	wg.Wait()
}

func TestNewFallsBackToDefaults(t *testing.T) {
	s := New(Config{})
	defer s.Close()

	assert.Equal(t, DefaultConfig().TimeStep, s.config.TimeStep)
	assert.Greater(t, s.config.Workers, 0)
}

func TestHistoryAdd(t *testing.T) {
	h := NewHistory(3)
	require.NoError(t, h.Add([]float64{0.1, 0.2, 0.3}, 5))
	require.NoError(t, h.Add([]float64{0.4, 0.5, 0.6}, -3))

	require.Len(t, h[0], 2)
	assert.Equal(t, Sample{Value: 0.1, Weight: 5}, h[0][0])
	assert.Equal(t, Sample{Value: 0.4, Weight: -3}, h[0][1])
}

func TestHistoryAddDimensionMismatch(t *testing.T) {
	h := NewHistory(3)
	err := h.Add([]float64{0.1, 0.2}, 5)
	assert.ErrorIs(t, err, model.ErrDimensionMismatch)
}

func TestHistoryAddSkipsNonFinite(t *testing.T) {
	h := NewHistory(3)
	require.NoError(t, h.Add([]float64{0.1, math.NaN(), math.Inf(1)}, 5))

	assert.Len(t, h[0], 1)
	assert.Empty(t, h[1])
	assert.Empty(t, h[2])
}

func TestHistoryEmpty(t *testing.T) {
	h := NewHistory(3)
	assert.True(t, h.Empty())

	require.NoError(t, h.Add([]float64{0, 0, 0.1}, 3))
	assert.False(t, h.Empty())
}

func TestPoolRunsAllTasks(t *testing.T) {
	p := newPool(4)
	defer p.close()

	var count atomic.Int64
	tasks := make([]func(), 100)
	for i := range tasks {
		tasks[i] = func() { count.Add(1) }
	}
	p.wait(tasks)
	assert.Equal(t, int64(100), count.Load())
}

func TestPoolCloseIsIdempotent(t *testing.T) {
	p := newPool(2)
	p.close()
	p.close()
}
