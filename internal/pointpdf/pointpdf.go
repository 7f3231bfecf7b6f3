package pointpdf

import (
	"math/rand/v2"

	"github.com/banshee-data/pointpdf/internal/geom"
	"gonum.org/v1/gonum/mat"
)

// Datatype tags owned by each concrete distribution. Serialized data
// carries one of these and readers compare it directly against their
// own tag; no runtime type lookup is involved.
const (
	ParticleDistTypeName = "ParticleDist"
	GaussianDistTypeName = "GaussianDist"
	SOGDistTypeName      = "SOGDist"
)

// SchemaVersion is the structured-serialization schema version written
// by this package. Readers reject any other value.
const SchemaVersion = 1

// PointPDF is the capability set shared by every concrete distribution
// over a 3D point. Implementations are single-threaded value owners:
// callers needing concurrent access must serialize it externally.
type PointPDF interface {
	// TypeName returns the distribution's datatype tag.
	TypeName() string

	// Mean returns the expectation of the distribution.
	Mean() (geom.Point3D, error)

	// CovarianceAndMean returns the 3x3 covariance matrix and the mean,
	// both at once. The returned matrix is owned by the caller.
	CovarianceAndMean() (*mat.SymDense, geom.Point3D, error)

	// DrawSingleSample draws one point according to the distribution,
	// using the source injected at construction.
	DrawSingleSample() (geom.Point3D, error)

	// ChangeCoordinatesReference re-expresses the distribution under a
	// new reference frame: this = base ⊕ this.
	ChangeCoordinatesReference(base geom.Pose3D)

	// CopyFrom replaces this distribution's contents with a conversion
	// of other into this representation. On failure the receiver is
	// left unmodified.
	CopyFrom(other PointPDF) error

	// BayesianFusion replaces this distribution's contents with an
	// approximation of the product of p1 and p2. When
	// minMahalanobisDistToDrop is nonzero and the operands are
	// mixtures, fused modes further than that Mahalanobis distance from
	// the dominant mode are dropped. On failure the receiver is left
	// unmodified.
	BayesianFusion(p1, p2 PointPDF, minMahalanobisDistToDrop float64) error
}

// defaultSource returns the fixed-seed generator used when a
// constructor receives a nil source. The seed is arbitrary but
// constant, so behavior without an injected source is still
// deterministic.
func defaultSource() rand.Source {
	return rand.NewPCG(0x9e3779b97f4a7c15, 0xda942042e4dd58b5)
}
