package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
)

// Angle returns the unsigned angle in radians between a and b. Zero vectors give 0.
func Angle(a, b r3.Vector) float64 {
	return float64(a.Angle(b))
}

// ProjectOnPlane removes the component of v along normal.
func ProjectOnPlane(v, normal r3.Vector) r3.Vector {
	n2 := normal.Norm2()
	if n2 < angleEpsilon {
		return v
	}
	return v.Sub(normal.Mul(v.Dot(normal) / n2))
}

// OrthoNormalize normalizes normal and makes tangent a unit vector orthogonal to it.
// If tangent is parallel to normal an arbitrary orthogonal tangent is returned.
func OrthoNormalize(normal, tangent r3.Vector) (r3.Vector, r3.Vector) {
	normal = normal.Normalize()
	if normal.Norm2() == 0 {
		normal = Forward
	}
	tangent = ProjectOnPlane(tangent, normal).Normalize()
	if tangent.Norm2() == 0 {
		tangent = normal.Ortho()
	}
	return normal, tangent
}

// LerpVector linearly interpolates from a to b by t, with t clamped to [0, 1].
func LerpVector(a, b r3.Vector, t float64) r3.Vector {
	t = math.Max(0, math.Min(1, t))
	return a.Add(b.Sub(a).Mul(t))
}

// SlerpDirection rotates direction a toward direction b by the fraction t of the angle between
// them, interpolating the magnitude linearly.
func SlerpDirection(a, b r3.Vector, t float64) r3.Vector {
	t = math.Max(0, math.Min(1, t))
	la, lb := a.Norm(), b.Norm()
	if la < angleEpsilon || lb < angleEpsilon {
		return LerpVector(a, b, t)
	}
	q := Slerp(QuatIdentity(), FromToRotation(a, b), t)
	return RotateVector(q, a.Mul(1/la)).Mul(la + (lb-la)*t)
}

// PerpendicularTo returns a unit vector orthogonal to axis, taken from hint when hint is not
// parallel to axis. The result is deterministic for any input and never NaN.
func PerpendicularTo(axis, hint r3.Vector) r3.Vector {
	p := ProjectOnPlane(hint, axis)
	if p.Norm2() > angleEpsilon {
		return p.Normalize()
	}
	if axis.Norm2() < angleEpsilon {
		return Up
	}
	return axis.Ortho()
}

// ClampDirection limits how far direction may turn away from normalDirection. clampWeight 0
// leaves direction untouched and 1 returns normalDirection; in between the allowed angle shrinks
// linearly from 180 degrees down to zero. clampSmoothing in [0, 2] eases the approach to the
// boundary with that many sine passes. The returned value is the fraction of the turn that
// survived clamping.
func ClampDirection(direction, normalDirection r3.Vector, clampWeight float64, clampSmoothing int) (r3.Vector, float64) {
	if clampWeight <= 0 {
		return direction, 1
	}
	if clampWeight >= 1 {
		return normalDirection, 0
	}
	angle := Angle(normalDirection, direction)
	dot := 1 - angle/math.Pi
	if dot > clampWeight {
		return direction, 1
	}

	targetClampMlp := math.Max(0, math.Min(1, 1-(clampWeight-dot)/(1-dot)))
	clampMlp := math.Max(0, math.Min(1, dot/clampWeight))
	for i := 0; i < clampSmoothing; i++ {
		clampMlp = math.Sin(clampMlp * math.Pi * 0.5)
	}
	t := clampMlp * targetClampMlp
	return SlerpDirection(normalDirection, direction, t), t
}
