package rotationlimit

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/finalik/spatialmath"
	"go.viam.com/finalik/utils"
)

// Hinge allows rotation around Axis only. With UseLimits the angle is kept in [Min, Max] degrees.
type Hinge struct {
	Axis      r3.Vector
	Min       float64
	Max       float64
	UseLimits bool
}

// NewHinge returns a hinge around axis limited to [lo, hi] degrees.
func NewHinge(axis r3.Vector, lo, hi float64) *Hinge {
	return &Hinge{Axis: axis, Min: lo, Max: hi, UseLimits: true}
}

// LimitRotation implements Limit.
func (h *Hinge) LimitRotation(q quat.Number) (quat.Number, bool) {
	axis := normalizedAxis(h.Axis)

	// Swing the rotated axis back onto the hinge axis, leaving only rotation around it.
	free := spatialmath.Normalize(quat.Mul(spatialmath.FromToRotation(spatialmath.RotateVector(q, axis), axis), q))
	if !h.UseLimits {
		return free, changed(q, free)
	}

	angle := utils.RadToDeg(spatialmath.TwistAngle(free, axis))
	lo, hi := h.Min, h.Max
	if lo > hi {
		lo, hi = hi, lo
	}
	limited := spatialmath.AngleAxis(utils.DegToRad(utils.Clamp(angle, lo, hi)), axis)
	return limited, changed(q, limited)
}

// Angle returns the hinge angle in degrees that q represents, ignoring any swing.
func (h *Hinge) Angle(q quat.Number) float64 {
	axis := normalizedAxis(h.Axis)
	return utils.RadToDeg(spatialmath.TwistAngle(q, axis))
}

var _ Limit = (*Hinge)(nil)
