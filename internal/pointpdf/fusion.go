package pointpdf

import (
	"fmt"
	"math"

	"github.com/banshee-data/pointpdf/internal/bayes"
	"github.com/banshee-data/pointpdf/internal/geom"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/sampleuv"
)

// FusionConfig holds parameters for Bayesian fusion into a particle
// representation.
type FusionConfig struct {
	// SampleCount is the number of particles to materialize. Zero means
	// "keep the receiver's current size, or DefaultSampleCount if the
	// receiver is empty".
	SampleCount int
	// MinMahalanobisDistToDrop, when nonzero, drops fused mixture modes
	// whose Mahalanobis distance from the dominant mode exceeds it.
	// Single-mode operands are unaffected.
	MinMahalanobisDistToDrop float64
}

// DefaultFusionConfig returns the default fusion parameters.
func DefaultFusionConfig() FusionConfig {
	return FusionConfig{SampleCount: DefaultSampleCount}
}

// gaussMode is a log-weighted Gaussian component in the internal
// fusion pipeline. Every fusion operand reduces to one or more of
// these.
type gaussMode struct {
	logW  float64
	mu    []float64
	sigma *mat.SymDense
}

// reduceToModes converts a fusion operand into its Gaussian components:
// a mixture contributes one mode per component, anything else
// contributes its mean/covariance reduction as a single mode.
func reduceToModes(p PointPDF) ([]gaussMode, error) {
	if sog, ok := p.(*SOGDist); ok {
		if len(sog.Modes) == 0 {
			return nil, fmt.Errorf("operand %s has no modes: %w: %w", p.TypeName(), ErrIncompatibleFusionOperands, ErrEmptyDistribution)
		}
		modes := make([]gaussMode, len(sog.Modes))
		for i, m := range sog.Modes {
			cov := mat.NewSymDense(3, nil)
			cov.CopySym(m.Sigma)
			modes[i] = gaussMode{logW: m.LogW, mu: m.Mu.Slice(), sigma: cov}
		}
		return modes, nil
	}
	m, err := reduceToSingleMode(p)
	if err != nil {
		return nil, err
	}
	return []gaussMode{m}, nil
}

// reduceToSingleMode collapses an operand to one Gaussian via its
// mean/covariance reduction (mixtures collapse to their moments).
func reduceToSingleMode(p PointPDF) (gaussMode, error) {
	cov, mean, err := p.CovarianceAndMean()
	if err != nil {
		return gaussMode{}, fmt.Errorf("operand %s not reducible: %w: %w", p.TypeName(), ErrIncompatibleFusionOperands, err)
	}
	return gaussMode{logW: 0, mu: mean.Slice(), sigma: cov}, nil
}

// invertPD inverts a positive-definite covariance through its Cholesky
// factorization.
func invertPD(s *mat.SymDense) (*mat.SymDense, error) {
	var ch mat.Cholesky
	if ok := ch.Factorize(s); !ok {
		return nil, fmt.Errorf("covariance not positive definite: %w", ErrIncompatibleFusionOperands)
	}
	inv := mat.NewSymDense(3, nil)
	if err := ch.InverseTo(inv); err != nil {
		return nil, fmt.Errorf("invert covariance: %w: %v", ErrIncompatibleFusionOperands, err)
	}
	return inv, nil
}

// fuseGaussianPair combines two Gaussian modes in information form:
// Σ = (Σ1⁻¹ + Σ2⁻¹)⁻¹, μ = Σ·(Σ1⁻¹μ1 + Σ2⁻¹μ2). The fused log-weight
// is the sum of the operand log-weights.
func fuseGaussianPair(a, b gaussMode) (gaussMode, error) {
	invA, err := invertPD(a.sigma)
	if err != nil {
		return gaussMode{}, err
	}
	invB, err := invertPD(b.sigma)
	if err != nil {
		return gaussMode{}, err
	}

	info := mat.NewSymDense(3, nil)
	info.AddSym(invA, invB)
	fusedCov, err := invertPD(info)
	if err != nil {
		return gaussMode{}, err
	}

	var etaA, etaB, eta, muVec mat.VecDense
	etaA.MulVec(invA, mat.NewVecDense(3, a.mu))
	etaB.MulVec(invB, mat.NewVecDense(3, b.mu))
	eta.AddVec(&etaA, &etaB)
	muVec.MulVec(fusedCov, &eta)

	return gaussMode{
		logW:  a.logW + b.logW,
		mu:    []float64{muVec.AtVec(0), muVec.AtVec(1), muVec.AtVec(2)},
		sigma: fusedCov,
	}, nil
}

// fuseModes fuses every pair of modes across the two operand lists.
// With minMahalanobisDistToDrop > 0, fused modes whose Mahalanobis
// distance from the dominant (highest log-weight) mode exceeds the
// threshold are dropped; the dominant mode is always kept.
func fuseModes(a, b []gaussMode, minMahalanobisDistToDrop float64) ([]gaussMode, error) {
	fused := make([]gaussMode, 0, len(a)*len(b))
	for _, ma := range a {
		for _, mb := range b {
			m, err := fuseGaussianPair(ma, mb)
			if err != nil {
				return nil, err
			}
			fused = append(fused, m)
		}
	}

	if minMahalanobisDistToDrop <= 0 || len(fused) <= 1 {
		return fused, nil
	}

	dominant := 0
	for i, m := range fused {
		if m.logW > fused[dominant].logW {
			dominant = i
		}
	}
	var ch mat.Cholesky
	if ok := ch.Factorize(fused[dominant].sigma); !ok {
		return nil, fmt.Errorf("dominant mode covariance not positive definite: %w", ErrIncompatibleFusionOperands)
	}

	domMu := mat.NewVecDense(3, fused[dominant].mu)
	kept := fused[:0]
	for i, m := range fused {
		if i == dominant {
			kept = append(kept, m)
			continue
		}
		dist := stat.Mahalanobis(mat.NewVecDense(3, m.mu), domMu, &ch)
		if dist <= minMahalanobisDistToDrop {
			kept = append(kept, m)
		}
	}
	return kept, nil
}

// BayesianFusion replaces the particle set with samples from the
// product of p1 and p2, keeping the receiver's current particle count
// (or DefaultSampleCount when empty). See FuseWithConfig.
func (d *ParticleDist) BayesianFusion(p1, p2 PointPDF, minMahalanobisDistToDrop float64) error {
	return d.FuseWithConfig(p1, p2, FusionConfig{
		MinMahalanobisDistToDrop: minMahalanobisDistToDrop,
	})
}

// FuseWithConfig fuses p1 and p2 and materializes the result as a
// particle set: each operand is reduced to Gaussian modes, all mode
// pairs are combined in information form, negligible modes are
// optionally dropped by Mahalanobis distance, and cfg.SampleCount
// particles are drawn from the resulting mixture at uniform log-weight
// 0. The receiver is unmodified on failure.
func (d *ParticleDist) FuseWithConfig(p1, p2 PointPDF, cfg FusionConfig) error {
	modes1, err := reduceToModes(p1)
	if err != nil {
		return err
	}
	modes2, err := reduceToModes(p2)
	if err != nil {
		return err
	}
	fused, err := fuseModes(modes1, modes2, cfg.MinMahalanobisDistToDrop)
	if err != nil {
		return err
	}

	n := cfg.SampleCount
	if n == 0 {
		n = d.Size()
	}
	if n == 0 {
		n = DefaultSampleCount
	}

	next, err := d.sampleMixture(fused, n)
	if err != nil {
		return err
	}
	d.set.Particles = next
	return nil
}

// sampleMixture draws n particles from a log-weighted Gaussian mixture
// at uniform log-weight 0.
func (d *ParticleDist) sampleMixture(modes []gaussMode, n int) ([]bayes.Particle[geom.Point3D], error) {
	logWs := make([]float64, len(modes))
	for i, m := range modes {
		logWs[i] = m.logW
	}
	lse := bayes.LogSumExp(logWs)
	if math.IsInf(lse, -1) {
		return nil, fmt.Errorf("fused mixture has zero total weight: %w", ErrDegenerateWeights)
	}
	w := make([]float64, len(modes))
	for i, lw := range logWs {
		w[i] = math.Exp(lw - lse)
	}

	// Draw per-mode ancestry counts, then fill positions mode by mode.
	counts := make([]int, len(modes))
	for i := 0; i < n; i++ {
		idx, ok := sampleuv.NewWeighted(w, d.src).Take()
		if !ok {
			return nil, fmt.Errorf("mixture mode draw failed: %w", ErrDegenerateWeights)
		}
		counts[idx]++
	}

	out := make([]bayes.Particle[geom.Point3D], 0, n)
	for i, m := range modes {
		if counts[i] == 0 {
			continue
		}
		mean := geom.Point3D{X: m.mu[0], Y: m.mu[1], Z: m.mu[2]}
		samples, err := sampleGaussianParticles(mean, m.sigma, counts[i], d.src)
		if err != nil {
			return nil, err
		}
		out = append(out, samples...)
	}
	return out, nil
}
