package rotationlimit

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/finalik/spatialmath"
	"go.viam.com/finalik/utils"
)

// Angle limits a ball joint to a cone of SwingLimit degrees around Axis, and the twist around
// Axis to TwistLimit degrees either way. Limits of 180 or more are unconstrained.
type Angle struct {
	Axis       r3.Vector
	SwingLimit float64
	TwistLimit float64
}

var _ Limit = (*Angle)(nil)

// NewAngle returns an Angle limit around axis.
func NewAngle(axis r3.Vector, swingLimit, twistLimit float64) *Angle {
	return &Angle{Axis: axis, SwingLimit: swingLimit, TwistLimit: twistLimit}
}

// LimitRotation implements Limit.
func (a *Angle) LimitRotation(q quat.Number) (quat.Number, bool) {
	axis := normalizedAxis(a.Axis)
	limited := limitSwing(q, axis, a.SwingLimit)
	limited = limitTwist(limited, axis, crossAxis(axis), a.TwistLimit)
	return limited, changed(q, limited)
}

func limitSwing(q quat.Number, axis r3.Vector, limit float64) quat.Number {
	if limit >= 180 {
		return q
	}
	swingAxis := spatialmath.RotateVector(q, axis)
	swing := spatialmath.FromToRotation(axis, swingAxis)
	limitedSwing := spatialmath.RotateTowards(spatialmath.QuatIdentity(), swing, utils.DegToRad(limit))
	toLimits := spatialmath.FromToRotation(swingAxis, spatialmath.RotateVector(limitedSwing, axis))
	return spatialmath.Normalize(quat.Mul(toLimits, q))
}

func limitTwist(q quat.Number, axis, orthoAxis r3.Vector, limit float64) quat.Number {
	if limit >= 180 {
		return q
	}
	normal, orthoTangent := spatialmath.OrthoNormalize(spatialmath.RotateVector(q, axis), orthoAxis)
	_, rotatedOrthoTangent := spatialmath.OrthoNormalize(normal, spatialmath.RotateVector(q, orthoAxis))

	fixed := spatialmath.Normalize(quat.Mul(spatialmath.FromToRotation(rotatedOrthoTangent, orthoTangent), q))
	if limit <= 0 {
		return fixed
	}
	return spatialmath.RotateTowards(fixed, q, utils.DegToRad(limit))
}
