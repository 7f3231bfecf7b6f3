// Package geom provides the small geometric value types shared by the
// point-distribution code: 3D points and rigid-body poses.
package geom

import "math"

// Point3D is a Cartesian point. Coordinate convention: X=right,
// Y=forward, Z=up (matches existing code).
type Point3D struct {
	X float64
	Y float64
	Z float64
}

// Add returns p + q component-wise.
func (p Point3D) Add(q Point3D) Point3D {
	return Point3D{p.X + q.X, p.Y + q.Y, p.Z + q.Z}
}

// Sub returns p - q component-wise.
func (p Point3D) Sub(q Point3D) Point3D {
	return Point3D{p.X - q.X, p.Y - q.Y, p.Z - q.Z}
}

// Scale returns p scaled by s.
func (p Point3D) Scale(s float64) Point3D {
	return Point3D{p.X * s, p.Y * s, p.Z * s}
}

// Norm returns the Euclidean length of p.
func (p Point3D) Norm() float64 {
	return math.Sqrt(p.X*p.X + p.Y*p.Y + p.Z*p.Z)
}

// Slice returns the coordinates as a []float64 in X, Y, Z order.
// Useful when handing points to gonum routines.
func (p Point3D) Slice() []float64 {
	return []float64{p.X, p.Y, p.Z}
}

// IsFinite reports whether all three coordinates are finite numbers.
func (p Point3D) IsFinite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) &&
		!math.IsNaN(p.Y) && !math.IsInf(p.Y, 0) &&
		!math.IsNaN(p.Z) && !math.IsInf(p.Z, 0)
}
