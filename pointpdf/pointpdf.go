// Package pointpdf is the public surface of the point-distribution
// library. Types and constructors re-export the implementation in
// internal/pointpdf and internal/geom.
package pointpdf

import (
	"github.com/banshee-data/pointpdf/internal/fsutil"
	"github.com/banshee-data/pointpdf/internal/geom"
	"github.com/banshee-data/pointpdf/internal/pointpdf"
)

// Geometry value types.

// Point3D is a Cartesian 3D point.
type Point3D = geom.Point3D

// Pose3D is a rigid-body transform (rotation plus translation).
type Pose3D = geom.Pose3D

// NewPose builds a pose from a translation and ZYX Euler angles.
var NewPose = geom.NewPose

// IdentityPose returns the identity transform.
var IdentityPose = geom.IdentityPose

// Distribution types.

// PointPDF is the capability set shared by all point distributions.
type PointPDF = pointpdf.PointPDF

// ParticleDist represents a point distribution as a weighted particle set.
type ParticleDist = pointpdf.ParticleDist

// GaussianDist represents a point distribution as a single Gaussian.
type GaussianDist = pointpdf.GaussianDist

// SOGDist represents a point distribution as a sum of Gaussians.
type SOGDist = pointpdf.SOGDist

// SOGMode is one log-weighted Gaussian component of a SOGDist.
type SOGMode = pointpdf.SOGMode

// FusionConfig holds parameters for Bayesian fusion into particles.
type FusionConfig = pointpdf.FusionConfig

// Constructor and function re-exports.

// NewParticleDist creates a particle distribution.
var NewParticleDist = pointpdf.NewParticleDist

// NewGaussianDist creates a Gaussian point distribution.
var NewGaussianDist = pointpdf.NewGaussianDist

// NewSOGDist creates a sum-of-Gaussians point distribution.
var NewSOGDist = pointpdf.NewSOGDist

// DefaultFusionConfig returns the default fusion parameters.
var DefaultFusionConfig = pointpdf.DefaultFusionConfig

// Datatype tags and schema version.
const (
	ParticleDistTypeName = pointpdf.ParticleDistTypeName
	GaussianDistTypeName = pointpdf.GaussianDistTypeName
	SOGDistTypeName      = pointpdf.SOGDistTypeName
	SchemaVersion        = pointpdf.SchemaVersion
	DefaultSampleCount   = pointpdf.DefaultSampleCount
)

// Error kinds.
var (
	ErrEmptyDistribution          = pointpdf.ErrEmptyDistribution
	ErrDegenerateWeights          = pointpdf.ErrDegenerateWeights
	ErrTypeMismatch               = pointpdf.ErrTypeMismatch
	ErrUnsupportedSchemaVersion   = pointpdf.ErrUnsupportedSchemaVersion
	ErrIncompatibleFusionOperands = pointpdf.ErrIncompatibleFusionOperands
)

// FileSystem abstracts the file operations used by text-file I/O.
type FileSystem = fsutil.FileSystem

// OSFileSystem is the production FileSystem.
type OSFileSystem = fsutil.OSFileSystem
