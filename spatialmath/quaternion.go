// Package spatialmath defines the vector and rotation math the solvers are built on.
// Vectors are r3.Vectors and rotations are unit quaternions; composition follows the Hamilton
// product, so quat.Mul(a, b) applies b first and then a.
package spatialmath

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

const radToDeg = 180 / math.Pi

// If two directions differ by less than this amount we treat them as parallel.
const angleEpsilon = 1e-9

// Forward, Up and Right are the axes a bone's rotation is measured against.
var (
	Forward = r3.Vector{X: 0, Y: 0, Z: 1}
	Up      = r3.Vector{X: 0, Y: 1, Z: 0}
	Right   = r3.Vector{X: 1, Y: 0, Z: 0}
)

// QuatIdentity returns the quaternion which signifies no rotation.
func QuatIdentity() quat.Number {
	return quat.Number{Real: 1}
}

// Norm returns the norm of the quaternion, i.e. the sqrt of the sum of the squares of the imaginary parts.
func Norm(q quat.Number) float64 {
	return math.Sqrt(q.Imag*q.Imag + q.Jmag*q.Jmag + q.Kmag*q.Kmag)
}

// Normalize scales q to unit length. A zero quaternion becomes the identity.
func Normalize(q quat.Number) quat.Number {
	n := quat.Abs(q)
	if n < 1e-12 || math.IsNaN(n) {
		return QuatIdentity()
	}
	return quat.Scale(1/n, q)
}

// Inverse returns the inverse of a unit quaternion.
func Inverse(q quat.Number) quat.Number {
	return quat.Conj(q)
}

// RotateVector rotates v by the unit quaternion q.
func RotateVector(q quat.Number, v r3.Vector) r3.Vector {
	p := quat.Mul(quat.Mul(q, quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}), quat.Conj(q))
	return r3.Vector{X: p.Imag, Y: p.Jmag, Z: p.Kmag}
}

// AngleAxis returns the rotation of angle radians around axis. A zero axis yields the identity.
func AngleAxis(angle float64, axis r3.Vector) quat.Number {
	n := axis.Norm()
	if n < angleEpsilon {
		return QuatIdentity()
	}
	axis = axis.Mul(1 / n)
	s := math.Sin(angle / 2)
	return quat.Number{Real: math.Cos(angle / 2), Imag: axis.X * s, Jmag: axis.Y * s, Kmag: axis.Z * s}
}

// ToAngleAxis decomposes q into an angle in [0, pi] and a unit axis.
func ToAngleAxis(q quat.Number) (float64, r3.Vector) {
	q = Normalize(q)
	if q.Real < 0 {
		q = quat.Scale(-1, q)
	}
	denom := Norm(q)
	angle := 2 * math.Atan2(denom, q.Real)
	if denom < 1e-12 {
		return 0, Right
	}
	return angle, r3.Vector{X: q.Imag / denom, Y: q.Jmag / denom, Z: q.Kmag / denom}
}

// FromToRotation returns the smallest rotation taking direction from onto direction to.
// Degenerate inputs are resolved deterministically: zero vectors give the identity, and
// opposite vectors rotate half a turn around an axis orthogonal to from.
func FromToRotation(from, to r3.Vector) quat.Number {
	from = from.Normalize()
	to = to.Normalize()
	if from.Norm2() == 0 || to.Norm2() == 0 {
		return QuatIdentity()
	}
	d := from.Dot(to)
	if 1+d < 1e-12 {
		return AngleAxis(math.Pi, from.Ortho())
	}
	c := from.Cross(to)
	return Normalize(quat.Number{Real: 1 + d, Imag: c.X, Jmag: c.Y, Kmag: c.Z})
}

// QuatAngle returns the angle in radians of the rotation between a and b.
func QuatAngle(a, b quat.Number) float64 {
	d := math.Abs(Dot(a, b))
	if d > 1 {
		d = 1
	}
	return 2 * math.Acos(d)
}

// Dot returns the four component dot product of two quaternions.
func Dot(a, b quat.Number) float64 {
	return a.Real*b.Real + a.Imag*b.Imag + a.Jmag*b.Jmag + a.Kmag*b.Kmag
}

// QuatAlmostEqual reports whether two quaternions describe the same rotation within tol.
func QuatAlmostEqual(a, b quat.Number, tol float64) bool {
	if Dot(a, b) < 0 {
		b = quat.Scale(-1, b)
	}
	return math.Abs(a.Real-b.Real) < tol &&
		math.Abs(a.Imag-b.Imag) < tol &&
		math.Abs(a.Jmag-b.Jmag) < tol &&
		math.Abs(a.Kmag-b.Kmag) < tol
}

// Slerp spherically interpolates from a to b along the shortest path. t is clamped to [0, 1].
func Slerp(a, b quat.Number, t float64) quat.Number {
	if t <= 0 {
		return a
	}
	if t >= 1 {
		return b
	}
	dot := Dot(a, b)
	if dot < 0 {
		b = quat.Scale(-1, b)
		dot = -dot
	}
	// Nearly identical rotations; fall back to nlerp to avoid dividing by sin(0).
	if dot > 0.9995 {
		return Normalize(quat.Add(a, quat.Scale(t, quat.Sub(b, a))))
	}
	theta0 := math.Acos(dot)
	theta := theta0 * t
	sinTheta0 := math.Sin(theta0)
	s0 := math.Cos(theta) - dot*math.Sin(theta)/sinTheta0
	s1 := math.Sin(theta) / sinTheta0
	return Normalize(quat.Add(quat.Scale(s0, a), quat.Scale(s1, b)))
}

// RotateTowards rotates from toward to by at most maxAngle radians.
func RotateTowards(from, to quat.Number, maxAngle float64) quat.Number {
	angle := QuatAngle(from, to)
	if angle < angleEpsilon {
		return to
	}
	return Slerp(from, to, math.Min(1, maxAngle/angle))
}

// LookRotation returns the rotation whose Forward axis points along forward with the Up axis as
// close to up as possible. If forward is zero the identity is returned, and if up is parallel to
// forward an orthogonal up is chosen.
func LookRotation(forward, up r3.Vector) quat.Number {
	z := forward.Normalize()
	if z.Norm2() == 0 {
		return QuatIdentity()
	}
	x := up.Cross(z)
	if x.Norm2() < angleEpsilon {
		x = z.Ortho().Cross(z)
	}
	x = x.Normalize()
	y := z.Cross(x)

	// mgl64 matrices are column major.
	m := mgl64.Mat4{
		x.X, x.Y, x.Z, 0,
		y.X, y.Y, y.Z, 0,
		z.X, z.Y, z.Z, 0,
		0, 0, 0, 1,
	}
	q := mgl64.Mat4ToQuat(m)
	return Normalize(quat.Number{Real: q.W, Imag: q.X(), Jmag: q.Y(), Kmag: q.Z()})
}

// TwistAngle returns the signed angle in radians of q around axis, ignoring swing.
func TwistAngle(q quat.Number, axis r3.Vector) float64 {
	axis = axis.Normalize()
	if axis.Norm2() == 0 {
		return 0
	}
	p := r3.Vector{X: q.Imag, Y: q.Jmag, Z: q.Kmag}
	proj := axis.Mul(p.Dot(axis))
	twist := Normalize(quat.Number{Real: q.Real, Imag: proj.X, Jmag: proj.Y, Kmag: proj.Z})
	angle, twistAxis := ToAngleAxis(twist)
	if twistAxis.Dot(axis) < 0 {
		angle = -angle
	}
	return angle
}
