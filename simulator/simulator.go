package simulator

import (
	"context"
	"math"
	"math/rand"
	"runtime"

	"github.com/line72/boldaric/log"
)

// Config holds the simulation constants. The defaults are empirically tuned
// and preserved exactly for behavioral compatibility; do not adjust them
// without re-validating station output.
type Config struct {
	TimeStep  float64 // integration step
	Damping   float64 // velocity decay per step
	TotalTime float64 // simulated horizon; TotalTime/TimeStep bounds the step count
	SigmaSq   float64 // sigma^2 of the Gaussian attraction kernel
	Jitter    float64 // amplitude of the uniform start-position perturbation
	Workers   int     // worker pool size; 0 means one per CPU core
}

// DefaultConfig returns the production constants.
func DefaultConfig() Config {
	return Config{
		TimeStep:  0.001,
		Damping:   0.99,
		TotalTime: 0.1,
		SigmaSq:   0.0025,
		Jitter:    0.01,
		Workers:   0,
	}
}

const convergenceEps = 1e-6

// Simulator owns a long-lived worker pool and runs the per-dimension
// particle simulations across it. Create one per service instance; pool
// startup is not free relative to per-request latency.
type Simulator struct {
	config Config
	pool   *pool
}

// New creates a Simulator and starts its worker pool.
func New(cfg Config) *Simulator {
	if cfg.TimeStep <= 0 {
		cfg = DefaultConfig()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	return &Simulator{
		config: cfg,
		pool:   newPool(cfg.Workers),
	}
}

// Close stops the worker pool.
func (s *Simulator) Close() {
	s.pool.close()
}

// Attract runs one simulation per dimension and returns the equilibrium
// position of each as the target vector. Dimensions are independent: each
// task reads only its own sample list and writes one float, so the fan-out
// is lock-free. Empty dimensions yield a neutral 0.0 target.
func (s *Simulator) Attract(ctx context.Context, history History) []float64 {
	target := make([]float64, len(history))
	if len(history) == 0 {
		return target
	}

	chunk := (len(history) + s.config.Workers - 1) / s.config.Workers

	var tasks []func()
	for start := 0; start < len(history); start += chunk {
		end := start + chunk
		if end > len(history) {
			end = len(history)
		}
		start, end := start, end
		tasks = append(tasks, func() {
			for i := start; i < end; i++ {
				target[i] = s.runSimulation(history[i])
			}
		})
	}
	s.pool.wait(tasks)

	log.Debug(ctx, "Taste simulation complete",
		"dimensions", len(history),
		"chunk", chunk,
		"workers", s.config.Workers,
	)
	return target
}

// runSimulation drops a particle near the mean of one dimension's samples
// and lets the weighted Gaussian attractions settle it. The step count is
// fixed, so latency is bounded regardless of history size.
func (s *Simulator) runSimulation(samples []Sample) float64 {
	if len(samples) == 0 {
		return 0.0
	}

	var mean float64
	for _, p := range samples {
		mean += p.Value
	}
	mean /= float64(len(samples))

	// A little randomness in the start position avoids deterministic ties
	// between equally attractive clusters.
	position := mean + (rand.Float64()*2-1)*s.config.Jitter
	velocity := 0.0

	iterations := int(s.config.TotalTime / s.config.TimeStep)
	prev := position

	for i := 0; i < iterations; i++ {
		force := s.force(samples, position)
		velocity = velocity*s.config.Damping + force*s.config.TimeStep
		position += velocity * s.config.TimeStep

		if math.Abs(position-prev) < convergenceEps && math.Abs(velocity) < convergenceEps {
			break
		}
		prev = position
	}
	return position
}

// force sums the Gaussian radial attraction of every sample on the
// particle. Positive weights pull toward the sample, negative weights push
// away.
func (s *Simulator) force(samples []Sample, position float64) float64 {
	twoSigmaSq := 2 * s.config.SigmaSq
	var total float64
	for _, p := range samples {
		d := p.Value - position
		if d == 0 {
			continue
		}
		total += p.Weight * sign(d) * math.Exp(-(d*d)/twoSigmaSq)
	}
	return total
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}
