package spatialmath

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
)

// EulerAngles are three angles in radians applied as yaw about Z, then pitch about Y, then roll
// about X. Euler angles are terrible, don't use them for math; they exist for rig files and
// printing poses.
type EulerAngles struct {
	Roll  float64 `json:"roll" yaml:"roll"`
	Pitch float64 `json:"pitch" yaml:"pitch"`
	Yaw   float64 `json:"yaw" yaml:"yaw"`
}

// NewEulerAngles creates an empty EulerAngles struct.
func NewEulerAngles() *EulerAngles {
	return &EulerAngles{}
}

// EulerDegrees builds EulerAngles from values given in degrees.
func EulerDegrees(roll, pitch, yaw float64) *EulerAngles {
	return &EulerAngles{Roll: roll / radToDeg, Pitch: pitch / radToDeg, Yaw: yaw / radToDeg}
}

// Degrees returns roll, pitch and yaw in degrees.
func (ea *EulerAngles) Degrees() (float64, float64, float64) {
	return ea.Roll * radToDeg, ea.Pitch * radToDeg, ea.Yaw * radToDeg
}

// Quaternion returns the orientation in quaternion representation.
// See: https://en.wikipedia.org/wiki/Conversion_between_quaternions_and_Euler_angles#Euler_angles_to_quaternion_conversion
func (ea *EulerAngles) Quaternion() quat.Number {
	cy := math.Cos(ea.Yaw * 0.5)
	sy := math.Sin(ea.Yaw * 0.5)
	cp := math.Cos(ea.Pitch * 0.5)
	sp := math.Sin(ea.Pitch * 0.5)
	cr := math.Cos(ea.Roll * 0.5)
	sr := math.Sin(ea.Roll * 0.5)

	return quat.Number{
		Real: cr*cp*cy + sr*sp*sy,
		Imag: sr*cp*cy - cr*sp*sy,
		Jmag: cr*sp*cy + sr*cp*sy,
		Kmag: cr*cp*sy - sr*sp*cy,
	}
}

// QuatToEulerAngles converts a rotation unit quaternion to euler angles.
// See the following wikipedia page for the formulas used here:
// https://en.wikipedia.org/wiki/Conversion_between_quaternions_and_Euler_angles#Quaternion_to_Euler_angles_conversion
func QuatToEulerAngles(q quat.Number) *EulerAngles {
	w := q.Real
	x := q.Imag
	y := q.Jmag
	z := q.Kmag

	angles := EulerAngles{}

	angles.Roll = math.Atan2(2*(w*x+y*z), 1-2*(x*x+y*y))

	sinp := 2 * (w*y - z*x)
	// Account for floating point issues at the poles
	if math.Abs(sinp) >= 1 {
		angles.Pitch = math.Copysign(math.Pi/2, sinp)
	} else {
		angles.Pitch = math.Asin(sinp)
	}

	angles.Yaw = math.Atan2(2*(w*z+x*y), 1-2*(y*y+z*z))

	return &angles
}
