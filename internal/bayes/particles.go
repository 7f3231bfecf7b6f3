// Package bayes provides the generic particle-container storage that
// concrete particle-based distributions build on: log-weighted particle
// sequences with numerically stable weight normalization and the
// storage-side hooks an external resampler needs. Resample scheduling
// itself lives with the filter loop, not here.
package bayes

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Sentinel errors surfaced to distribution-level callers.
var (
	// ErrEmptySet is returned when a weight computation is requested on
	// a set with zero particles.
	ErrEmptySet = errors.New("empty particle set")
	// ErrZeroWeights is returned when every particle carries zero
	// probability mass (log-weight of -Inf), so normalization is undefined.
	ErrZeroWeights = errors.New("all particle weights are zero")
)

// Particle pairs an application value with the natural logarithm of its
// unnormalized weight. Log-weights avoid underflow when weights span
// many orders of magnitude; -Inf represents zero probability mass.
type Particle[T any] struct {
	LogW float64
	Data T
}

// ParticleSet is an ordered sequence of weighted particles. Order is
// insertion order; it carries no probabilistic meaning but determines
// serialization index. The zero value is an empty, usable set.
type ParticleSet[T any] struct {
	Particles []Particle[T]
}

// Len returns the number of particles.
func (s *ParticleSet[T]) Len() int { return len(s.Particles) }

// Clear resets the set to zero particles, releasing storage.
func (s *ParticleSet[T]) Clear() { s.Particles = nil }

// SetSize replaces the particle sequence with n particles, each holding
// def and log-weight 0 (equal, unnormalized weight). Prior contents are
// discarded.
func (s *ParticleSet[T]) SetSize(n int, def T) {
	s.Particles = make([]Particle[T], n)
	for i := range s.Particles {
		s.Particles[i].Data = def
	}
}

// LogWeights returns a fresh slice of the particle log-weights in order.
func (s *ParticleSet[T]) LogWeights() []float64 {
	logw := make([]float64, len(s.Particles))
	for i, p := range s.Particles {
		logw[i] = p.LogW
	}
	return logw
}

// NormalizedWeights converts the log-weights to linear weights that sum
// to 1, using the max-shift (log-sum-exp) trick: each weight is computed
// as exp(logw_i - max logw) before normalizing, so no exp can overflow
// and the largest weight never underflows. Returns the weights and the
// linear-domain sum of the shifted weights.
func (s *ParticleSet[T]) NormalizedWeights() ([]float64, float64, error) {
	if len(s.Particles) == 0 {
		return nil, 0, ErrEmptySet
	}
	maxLogW := math.Inf(-1)
	for _, p := range s.Particles {
		if p.LogW > maxLogW {
			maxLogW = p.LogW
		}
	}
	if math.IsInf(maxLogW, -1) {
		return nil, 0, ErrZeroWeights
	}

	w := make([]float64, len(s.Particles))
	sum := 0.0
	for i, p := range s.Particles {
		w[i] = math.Exp(p.LogW - maxLogW)
		sum += w[i]
	}
	for i := range w {
		w[i] /= sum
	}
	return w, sum, nil
}

// NormalizeLogWeights shifts every log-weight so that the linear-domain
// weights sum to 1 (subtracts log Σ exp(logw_i)). Relative weights are
// unchanged.
func (s *ParticleSet[T]) NormalizeLogWeights() error {
	if len(s.Particles) == 0 {
		return ErrEmptySet
	}
	lse := LogSumExp(s.LogWeights())
	if math.IsInf(lse, -1) {
		return ErrZeroWeights
	}
	for i := range s.Particles {
		s.Particles[i].LogW -= lse
	}
	return nil
}

// ESS returns the effective sample size 1/Σ w_i² over the normalized
// weights, a standard degeneracy measure in [1, N].
func (s *ParticleSet[T]) ESS() (float64, error) {
	w, _, err := s.NormalizedWeights()
	if err != nil {
		return 0, err
	}
	sumSq := 0.0
	for _, wi := range w {
		sumSq += wi * wi
	}
	return 1.0 / sumSq, nil
}

// Substitute replaces the contents with the particles selected by
// indices (duplicates allowed), assigning uniform log-weight 0. This is
// the substitution step an external resampler performs after drawing
// ancestry indices.
func (s *ParticleSet[T]) Substitute(indices []int) {
	next := make([]Particle[T], len(indices))
	for i, idx := range indices {
		next[i] = Particle[T]{LogW: 0, Data: s.Particles[idx].Data}
	}
	s.Particles = next
}

// LogSumExp returns log Σ exp(v_i) computed stably. All-(-Inf) input
// yields -Inf rather than NaN.
func LogSumExp(v []float64) float64 {
	if len(v) == 0 {
		return math.Inf(-1)
	}
	if math.IsInf(floats.Max(v), -1) {
		return math.Inf(-1)
	}
	return floats.LogSumExp(v)
}
