// Package rotationlimit constrains joint rotations to allowed ranges.
//
// Limits are pure projections of a rotation expressed relative to the bone's default local
// rotation. They hold no per-frame state and can be shared between solvers.
package rotationlimit

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/finalik/spatialmath"
)

// changedEpsilon is how far a projected rotation may drift from its input and still count as
// unchanged.
const changedEpsilon = 1e-9

// Limit projects a candidate rotation, relative to the default local rotation, onto the nearest
// allowed rotation. The bool reports whether the rotation had to change.
type Limit interface {
	LimitRotation(q quat.Number) (quat.Number, bool)
}

// Apply limits a bone's local rotation. defaultLocal is the local rotation the limit's axes are
// measured in.
func Apply(l Limit, defaultLocal, local quat.Number) (quat.Number, bool) {
	if l == nil {
		return local, false
	}
	rel := quat.Mul(spatialmath.Inverse(defaultLocal), local)
	limited, changed := l.LimitRotation(rel)
	if !changed {
		return local, false
	}
	return spatialmath.Normalize(quat.Mul(defaultLocal, limited)), true
}

func normalizedAxis(axis r3.Vector) r3.Vector {
	axis = axis.Normalize()
	if axis.Norm2() == 0 {
		return spatialmath.Forward
	}
	return axis
}

// crossAxis returns an axis orthogonal to axis, picked by cycling its components.
func crossAxis(axis r3.Vector) r3.Vector {
	secondary := r3.Vector{X: axis.Y, Y: axis.Z, Z: axis.X}
	return spatialmath.PerpendicularTo(axis, axis.Cross(secondary))
}

func changed(a, b quat.Number) bool {
	return !spatialmath.QuatAlmostEqual(a, b, changedEpsilon)
}
