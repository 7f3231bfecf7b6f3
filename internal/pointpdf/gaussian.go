package pointpdf

import (
	"fmt"
	"math/rand/v2"

	"github.com/banshee-data/pointpdf/internal/bayes"
	"github.com/banshee-data/pointpdf/internal/geom"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

// GaussianDist represents the distribution of a 3D point as a single
// Gaussian: a mean and a 3x3 covariance. It is the canonical operand
// form for Bayesian fusion: any PointPDF that can report
// CovarianceAndMean reduces to it.
type GaussianDist struct {
	Mu    geom.Point3D
	Sigma *mat.SymDense

	src rand.Source
}

var _ PointPDF = (*GaussianDist)(nil)

// NewGaussianDist creates a Gaussian point distribution. A nil cov
// installs the identity covariance. src feeds sampling; nil selects a
// fixed-seed source.
func NewGaussianDist(mean geom.Point3D, cov *mat.SymDense, src rand.Source) *GaussianDist {
	if cov == nil {
		cov = identityCov()
	}
	if src == nil {
		src = defaultSource()
	}
	return &GaussianDist{Mu: mean, Sigma: cov, src: src}
}

func identityCov() *mat.SymDense {
	c := mat.NewSymDense(3, nil)
	c.SetSym(0, 0, 1)
	c.SetSym(1, 1, 1)
	c.SetSym(2, 2, 1)
	return c
}

// TypeName returns the GaussianDist datatype tag.
func (g *GaussianDist) TypeName() string { return GaussianDistTypeName }

// Mean returns the Gaussian mean.
func (g *GaussianDist) Mean() (geom.Point3D, error) {
	return g.Mu, nil
}

// CovarianceAndMean returns a copy of the covariance and the mean.
func (g *GaussianDist) CovarianceAndMean() (*mat.SymDense, geom.Point3D, error) {
	cov := mat.NewSymDense(3, nil)
	cov.CopySym(g.Sigma)
	return cov, g.Mu, nil
}

// DrawSingleSample draws one point from the Gaussian. Fails if the
// covariance is not positive definite.
func (g *GaussianDist) DrawSingleSample() (geom.Point3D, error) {
	normal, ok := distmv.NewNormal(g.Mu.Slice(), g.Sigma, g.src)
	if !ok {
		return geom.Point3D{}, fmt.Errorf("covariance not positive definite: %w", ErrIncompatibleFusionOperands)
	}
	x := normal.Rand(nil)
	return geom.Point3D{X: x[0], Y: x[1], Z: x[2]}, nil
}

// ChangeCoordinatesReference re-expresses the Gaussian under a new
// reference frame: the mean is transformed directly and the covariance
// is conjugated, Σ' = R·Σ·Rᵀ.
func (g *GaussianDist) ChangeCoordinatesReference(base geom.Pose3D) {
	g.Mu = base.Apply(g.Mu)
	g.Sigma = rotateCov(g.Sigma, base)
}

// rotateCov returns R·Σ·Rᵀ for the rotation block of base, symmetrized
// against round-off.
func rotateCov(sigma *mat.SymDense, base geom.Pose3D) *mat.SymDense {
	rot := base.Rotation()
	r := mat.NewDense(3, 3, rot[:])

	var tmp, full mat.Dense
	tmp.Mul(r, sigma)
	full.Mul(&tmp, r.T())

	out := mat.NewSymDense(3, nil)
	for i := 0; i < 3; i++ {
		for j := i; j < 3; j++ {
			out.SetSym(i, j, 0.5*(full.At(i, j)+full.At(j, i)))
		}
	}
	return out
}

// CopyFrom replaces the mean and covariance with other's reduction to
// Gaussian form. The receiver is unmodified on failure.
func (g *GaussianDist) CopyFrom(other PointPDF) error {
	cov, mean, err := other.CovarianceAndMean()
	if err != nil {
		return fmt.Errorf("reduce %s for copy: %w", other.TypeName(), err)
	}
	g.Mu = mean
	g.Sigma = cov
	return nil
}

// BayesianFusion replaces the Gaussian with the information-form
// product of p1 and p2, each reduced to a single Gaussian first:
// Σ = (Σ1⁻¹ + Σ2⁻¹)⁻¹ and μ = Σ·(Σ1⁻¹μ1 + Σ2⁻¹μ2). Mixture operands
// are collapsed to their moments, so minMahalanobisDistToDrop has no
// effect here. The receiver is unmodified on failure.
func (g *GaussianDist) BayesianFusion(p1, p2 PointPDF, minMahalanobisDistToDrop float64) error {
	m1, err := reduceToSingleMode(p1)
	if err != nil {
		return err
	}
	m2, err := reduceToSingleMode(p2)
	if err != nil {
		return err
	}
	fused, err := fuseGaussianPair(m1, m2)
	if err != nil {
		return err
	}
	g.Mu = geom.Point3D{X: fused.mu[0], Y: fused.mu[1], Z: fused.mu[2]}
	g.Sigma = fused.sigma
	return nil
}

// sampleGaussianParticles draws n particles from N(mean, cov) at
// uniform log-weight 0.
func sampleGaussianParticles(mean geom.Point3D, cov *mat.SymDense, n int, src rand.Source) ([]bayes.Particle[geom.Point3D], error) {
	normal, ok := distmv.NewNormal(mean.Slice(), cov, src)
	if !ok {
		return nil, fmt.Errorf("covariance not positive definite: %w", ErrIncompatibleFusionOperands)
	}
	out := make([]bayes.Particle[geom.Point3D], n)
	x := make([]float64, 3)
	for i := range out {
		normal.Rand(x)
		out[i].Data = geom.Point3D{X: x[0], Y: x[1], Z: x[2]}
	}
	return out, nil
}
