package spatialmath

import (
	"fmt"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// Pose is a rigid transform: a rotation followed by a translation.
type Pose struct {
	Point       r3.Vector
	Orientation quat.Number
}

// NewZeroPose returns a pose at the origin with no rotation.
func NewZeroPose() Pose {
	return Pose{Orientation: QuatIdentity()}
}

// NewPose builds a pose from a point and a rotation.
func NewPose(pt r3.Vector, q quat.Number) Pose {
	return Pose{Point: pt, Orientation: q}
}

// Compose returns the pose of child, given relative to parent, in parent's frame.
func Compose(parent, child Pose) Pose {
	return Pose{
		Point:       parent.Point.Add(RotateVector(parent.Orientation, child.Point)),
		Orientation: Normalize(quat.Mul(parent.Orientation, child.Orientation)),
	}
}

// PoseBetween returns the pose of to expressed relative to from, so Compose(from, PoseBetween(from, to)) == to.
func PoseBetween(from, to Pose) Pose {
	inv := Inverse(from.Orientation)
	return Pose{
		Point:       RotateVector(inv, to.Point.Sub(from.Point)),
		Orientation: Normalize(quat.Mul(inv, to.Orientation)),
	}
}

// TransformPoint maps a point from the pose's local frame into its parent frame.
func (p Pose) TransformPoint(pt r3.Vector) r3.Vector {
	return p.Point.Add(RotateVector(p.Orientation, pt))
}

// InverseTransformPoint maps a point from the pose's parent frame into its local frame.
func (p Pose) InverseTransformPoint(pt r3.Vector) r3.Vector {
	return RotateVector(Inverse(p.Orientation), pt.Sub(p.Point))
}

// PoseAlmostEqual reports whether two poses match within the given distance and rotation tolerances.
func PoseAlmostEqual(a, b Pose, distEps, quatEps float64) bool {
	return a.Point.Distance(b.Point) <= distEps && QuatAlmostEqual(a.Orientation, b.Orientation, quatEps)
}

func (p Pose) String() string {
	ea := QuatToEulerAngles(p.Orientation)
	roll, pitch, yaw := ea.Degrees()
	return fmt.Sprintf("{X:%.4f Y:%.4f Z:%.4f Roll:%.2f Pitch:%.2f Yaw:%.2f}", p.Point.X, p.Point.Y, p.Point.Z, roll, pitch, yaw)
}
