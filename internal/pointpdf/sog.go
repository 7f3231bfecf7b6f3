package pointpdf

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/banshee-data/pointpdf/internal/bayes"
	"github.com/banshee-data/pointpdf/internal/geom"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
	"gonum.org/v1/gonum/stat/sampleuv"
)

// SOGMode is one log-weighted Gaussian component of a mixture.
type SOGMode struct {
	LogW  float64
	Mu    geom.Point3D
	Sigma *mat.SymDense
}

// SOGDist represents the distribution of a 3D point as a sum of
// Gaussians (a log-weighted mixture). It is the operand family for
// which fusion's Mahalanobis drop threshold has effect.
type SOGDist struct {
	Modes []SOGMode

	src rand.Source
}

var _ PointPDF = (*SOGDist)(nil)

// NewSOGDist creates a mixture from the given modes. Nil mode
// covariances are replaced with the identity. src feeds sampling; nil
// selects a fixed-seed source.
func NewSOGDist(modes []SOGMode, src rand.Source) *SOGDist {
	if src == nil {
		src = defaultSource()
	}
	for i := range modes {
		if modes[i].Sigma == nil {
			modes[i].Sigma = identityCov()
		}
	}
	return &SOGDist{Modes: modes, src: src}
}

// TypeName returns the SOGDist datatype tag.
func (s *SOGDist) TypeName() string { return SOGDistTypeName }

// normalizedModeWeights returns the linear mode weights, normalized to
// sum to 1 via log-sum-exp.
func (s *SOGDist) normalizedModeWeights() ([]float64, error) {
	if len(s.Modes) == 0 {
		return nil, fmt.Errorf("no mixture modes: %w", ErrEmptyDistribution)
	}
	logWs := make([]float64, len(s.Modes))
	for i, m := range s.Modes {
		logWs[i] = m.LogW
	}
	lse := bayes.LogSumExp(logWs)
	if math.IsInf(lse, -1) {
		return nil, fmt.Errorf("all mode weights zero: %w", ErrDegenerateWeights)
	}
	w := make([]float64, len(s.Modes))
	for i, lw := range logWs {
		w[i] = math.Exp(lw - lse)
	}
	return w, nil
}

// Mean returns the mixture mean Σ w_i·μ_i.
func (s *SOGDist) Mean() (geom.Point3D, error) {
	w, err := s.normalizedModeWeights()
	if err != nil {
		return geom.Point3D{}, err
	}
	var mean geom.Point3D
	for i, m := range s.Modes {
		mean = mean.Add(m.Mu.Scale(w[i]))
	}
	return mean, nil
}

// CovarianceAndMean returns the mixture moments by the law of total
// covariance: Σ = Σ w_i·(Σ_i + μ_iμ_iᵗ) − μμᵗ.
func (s *SOGDist) CovarianceAndMean() (*mat.SymDense, geom.Point3D, error) {
	w, err := s.normalizedModeWeights()
	if err != nil {
		return nil, geom.Point3D{}, err
	}
	var mean geom.Point3D
	for i, m := range s.Modes {
		mean = mean.Add(m.Mu.Scale(w[i]))
	}

	var c [3][3]float64
	for i, m := range s.Modes {
		mu := [3]float64{m.Mu.X, m.Mu.Y, m.Mu.Z}
		for r := 0; r < 3; r++ {
			for q := 0; q < 3; q++ {
				c[r][q] += w[i] * (m.Sigma.At(r, q) + mu[r]*mu[q])
			}
		}
	}
	mv := [3]float64{mean.X, mean.Y, mean.Z}
	for r := 0; r < 3; r++ {
		for q := 0; q < 3; q++ {
			c[r][q] -= mv[r] * mv[q]
		}
	}

	cov := mat.NewSymDense(3, nil)
	for r := 0; r < 3; r++ {
		for q := r; q < 3; q++ {
			cov.SetSym(r, q, 0.5*(c[r][q]+c[q][r]))
		}
	}
	return cov, mean, nil
}

// DrawSingleSample selects a mode with probability proportional to its
// normalized weight, then draws from that mode's Gaussian.
func (s *SOGDist) DrawSingleSample() (geom.Point3D, error) {
	w, err := s.normalizedModeWeights()
	if err != nil {
		return geom.Point3D{}, err
	}
	idx, ok := sampleuv.NewWeighted(w, s.src).Take()
	if !ok {
		return geom.Point3D{}, fmt.Errorf("mode draw failed: %w", ErrDegenerateWeights)
	}
	m := s.Modes[idx]
	normal, ok := distmv.NewNormal(m.Mu.Slice(), m.Sigma, s.src)
	if !ok {
		return geom.Point3D{}, fmt.Errorf("mode covariance not positive definite: %w", ErrIncompatibleFusionOperands)
	}
	x := normal.Rand(nil)
	return geom.Point3D{X: x[0], Y: x[1], Z: x[2]}, nil
}

// ChangeCoordinatesReference re-expresses every mode under the new
// reference frame; mode weights are unchanged.
func (s *SOGDist) ChangeCoordinatesReference(base geom.Pose3D) {
	for i := range s.Modes {
		s.Modes[i].Mu = base.Apply(s.Modes[i].Mu)
		s.Modes[i].Sigma = rotateCov(s.Modes[i].Sigma, base)
	}
}

// CopyFrom replaces the mixture with a conversion of other: a mixture
// source is deep-copied, anything else becomes a single mode from its
// mean/covariance reduction. The receiver is unmodified on failure.
func (s *SOGDist) CopyFrom(other PointPDF) error {
	if o, ok := other.(*SOGDist); ok {
		next := make([]SOGMode, len(o.Modes))
		for i, m := range o.Modes {
			cov := mat.NewSymDense(3, nil)
			cov.CopySym(m.Sigma)
			next[i] = SOGMode{LogW: m.LogW, Mu: m.Mu, Sigma: cov}
		}
		s.Modes = next
		return nil
	}

	cov, mean, err := other.CovarianceAndMean()
	if err != nil {
		return fmt.Errorf("reduce %s for copy: %w", other.TypeName(), err)
	}
	s.Modes = []SOGMode{{LogW: 0, Mu: mean, Sigma: cov}}
	return nil
}

// BayesianFusion replaces the mixture with the pairwise information-form
// fusion of p1's and p2's modes. With minMahalanobisDistToDrop > 0,
// fused modes far from the dominant mode are dropped. The receiver is
// unmodified on failure.
func (s *SOGDist) BayesianFusion(p1, p2 PointPDF, minMahalanobisDistToDrop float64) error {
	modes1, err := reduceToModes(p1)
	if err != nil {
		return err
	}
	modes2, err := reduceToModes(p2)
	if err != nil {
		return err
	}
	fused, err := fuseModes(modes1, modes2, minMahalanobisDistToDrop)
	if err != nil {
		return err
	}

	next := make([]SOGMode, len(fused))
	for i, m := range fused {
		next[i] = SOGMode{
			LogW:  m.logW,
			Mu:    geom.Point3D{X: m.mu[0], Y: m.mu[1], Z: m.mu[2]},
			Sigma: m.sigma,
		}
	}
	s.Modes = next
	return nil
}
