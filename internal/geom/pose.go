package geom

import "math"

// Pose3D is a rigid-body transform (rotation plus translation) stored as
// a 4x4 homogeneous matrix in row-major order: m00,m01,m02,m03, m10,...
// The bottom row is implicitly [0 0 0 1] and is kept only so the layout
// matches the row-major pose convention used elsewhere.
type Pose3D struct {
	T [16]float64
}

// IdentityPose returns the identity transform.
func IdentityPose() Pose3D {
	var p Pose3D
	p.T[0], p.T[5], p.T[10], p.T[15] = 1, 1, 1, 1
	return p
}

// NewPose builds a pose from a translation (x, y, z) and ZYX Euler
// angles in radians: yaw about Z, then pitch about Y, then roll about X.
func NewPose(x, y, z, yaw, pitch, roll float64) Pose3D {
	cy, sy := math.Cos(yaw), math.Sin(yaw)
	cp, sp := math.Cos(pitch), math.Sin(pitch)
	cr, sr := math.Cos(roll), math.Sin(roll)

	var p Pose3D
	p.T = [16]float64{
		cy * cp, cy*sp*sr - sy*cr, cy*sp*cr + sy*sr, x,
		sy * cp, sy*sp*sr + cy*cr, sy*sp*cr - cy*sr, y,
		-sp, cp * sr, cp * cr, z,
		0, 0, 0, 1,
	}
	return p
}

// Translation returns the translation component of the pose.
func (p Pose3D) Translation() Point3D {
	return Point3D{p.T[3], p.T[7], p.T[11]}
}

// Rotation returns the 3x3 rotation block in row-major order.
func (p Pose3D) Rotation() [9]float64 {
	return [9]float64{
		p.T[0], p.T[1], p.T[2],
		p.T[4], p.T[5], p.T[6],
		p.T[8], p.T[9], p.T[10],
	}
}

// Apply transforms point q into the frame described by p: rotate, then
// translate.
func (p Pose3D) Apply(q Point3D) Point3D {
	return Point3D{
		X: p.T[0]*q.X + p.T[1]*q.Y + p.T[2]*q.Z + p.T[3],
		Y: p.T[4]*q.X + p.T[5]*q.Y + p.T[6]*q.Z + p.T[7],
		Z: p.T[8]*q.X + p.T[9]*q.Y + p.T[10]*q.Z + p.T[11],
	}
}

// Compose returns the pose composition p ⊕ q: applying the result is
// equivalent to applying q first, then p.
func (p Pose3D) Compose(q Pose3D) Pose3D {
	var out Pose3D
	for i := 0; i < 3; i++ {
		for j := 0; j < 4; j++ {
			sum := 0.0
			for k := 0; k < 4; k++ {
				sum += p.T[i*4+k] * q.T[k*4+j]
			}
			out.T[i*4+j] = sum
		}
	}
	out.T[15] = 1
	return out
}

// Inverse returns the inverse transform. The rotation block is
// orthonormal so the inverse rotation is the transpose, and the inverse
// translation is -Rᵗ·t.
func (p Pose3D) Inverse() Pose3D {
	var out Pose3D
	// Transpose rotation block.
	out.T[0], out.T[1], out.T[2] = p.T[0], p.T[4], p.T[8]
	out.T[4], out.T[5], out.T[6] = p.T[1], p.T[5], p.T[9]
	out.T[8], out.T[9], out.T[10] = p.T[2], p.T[6], p.T[10]
	// t' = -Rᵗ·t
	tx, ty, tz := p.T[3], p.T[7], p.T[11]
	out.T[3] = -(out.T[0]*tx + out.T[1]*ty + out.T[2]*tz)
	out.T[7] = -(out.T[4]*tx + out.T[5]*ty + out.T[6]*tz)
	out.T[11] = -(out.T[8]*tx + out.T[9]*ty + out.T[10]*tz)
	out.T[15] = 1
	return out
}
