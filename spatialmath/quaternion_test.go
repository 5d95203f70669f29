package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/num/quat"
)

// represent a 45 degree rotation around the x axis in all the representations
var (
	th    = math.Pi / 4.
	q45x  = quat.Number{Real: math.Cos(th / 2.), Imag: math.Sin(th / 2.), Jmag: 0, Kmag: 0}
	ea45x = &EulerAngles{Roll: th, Pitch: 0, Yaw: 0}
)

func vecAlmostEqual(t *testing.T, actual, expected r3.Vector, eps float64) {
	t.Helper()
	test.That(t, actual.X, test.ShouldAlmostEqual, expected.X, eps)
	test.That(t, actual.Y, test.ShouldAlmostEqual, expected.Y, eps)
	test.That(t, actual.Z, test.ShouldAlmostEqual, expected.Z, eps)
}

func TestRepresentations(t *testing.T) {
	test.That(t, QuatAlmostEqual(ea45x.Quaternion(), q45x, 1e-9), test.ShouldBeTrue)
	test.That(t, QuatAlmostEqual(AngleAxis(th, Right), q45x, 1e-9), test.ShouldBeTrue)

	ea := QuatToEulerAngles(q45x)
	test.That(t, ea.Roll, test.ShouldAlmostEqual, th)
	test.That(t, ea.Pitch, test.ShouldAlmostEqual, 0)
	test.That(t, ea.Yaw, test.ShouldAlmostEqual, 0)

	angle, axis := ToAngleAxis(q45x)
	test.That(t, angle, test.ShouldAlmostEqual, th)
	vecAlmostEqual(t, axis, Right, 1e-9)

	// a zero axis never produces NaN
	test.That(t, AngleAxis(1, r3.Vector{}), test.ShouldResemble, QuatIdentity())
}

func TestEulerRoundTrip(t *testing.T) {
	ea := EulerDegrees(10, -20, 30)
	back := QuatToEulerAngles(ea.Quaternion())
	roll, pitch, yaw := back.Degrees()
	test.That(t, roll, test.ShouldAlmostEqual, 10, 1e-9)
	test.That(t, pitch, test.ShouldAlmostEqual, -20, 1e-9)
	test.That(t, yaw, test.ShouldAlmostEqual, 30, 1e-9)
}

func TestRotateVector(t *testing.T) {
	q := AngleAxis(math.Pi/2, Up)
	vecAlmostEqual(t, RotateVector(q, Forward), Right, 1e-9)
	vecAlmostEqual(t, RotateVector(quat.Mul(q, q), Forward), Forward.Mul(-1), 1e-9)
	vecAlmostEqual(t, RotateVector(Inverse(q), Right), Forward, 1e-9)
}

func TestFromToRotation(t *testing.T) {
	from := r3.Vector{X: 1, Y: 2, Z: 3}
	to := r3.Vector{X: -2, Y: 0.5, Z: 1}
	q := FromToRotation(from, to)
	vecAlmostEqual(t, RotateVector(q, from.Normalize()), to.Normalize(), 1e-9)

	t.Run("opposite vectors", func(t *testing.T) {
		q := FromToRotation(Forward, Forward.Mul(-1))
		vecAlmostEqual(t, RotateVector(q, Forward), Forward.Mul(-1), 1e-9)
		test.That(t, math.IsNaN(q.Real), test.ShouldBeFalse)
	})
	t.Run("zero vector", func(t *testing.T) {
		test.That(t, FromToRotation(r3.Vector{}, Up), test.ShouldResemble, QuatIdentity())
	})
}

func TestSlerp(t *testing.T) {
	q1 := q45x
	q2 := quat.Conj(q45x)
	s1 := Slerp(q1, q2, 0.25)
	s2 := Slerp(q1, q2, 0.5)

	expect1 := quat.Number{Real: 0.9808, Imag: 0.1951, Jmag: 0, Kmag: 0}
	expect2 := quat.Number{Real: 1, Imag: 0, Jmag: 0, Kmag: 0}

	test.That(t, QuatAlmostEqual(s1, expect1, 1e-4), test.ShouldBeTrue)
	test.That(t, QuatAlmostEqual(s2, expect2, 1e-4), test.ShouldBeTrue)
	test.That(t, Slerp(q1, q2, -1), test.ShouldResemble, q1)
	test.That(t, Slerp(q1, q2, 2), test.ShouldResemble, q2)
}

func TestRotateTowards(t *testing.T) {
	target := AngleAxis(math.Pi/2, Up)
	step := RotateTowards(QuatIdentity(), target, math.Pi/8)
	test.That(t, QuatAngle(QuatIdentity(), step), test.ShouldAlmostEqual, math.Pi/8, 1e-9)
	test.That(t, RotateTowards(QuatIdentity(), target, math.Pi), test.ShouldResemble, target)
}

func TestLookRotation(t *testing.T) {
	dir := r3.Vector{X: 1, Y: 1, Z: 0}
	q := LookRotation(dir, Up)
	vecAlmostEqual(t, RotateVector(q, Forward), dir.Normalize(), 1e-9)
	test.That(t, RotateVector(q, Up).Dot(Up), test.ShouldBeGreaterThan, 0)
	test.That(t, RotateVector(q, Right).Dot(Up), test.ShouldAlmostEqual, 0, 1e-9)

	t.Run("identity for forward", func(t *testing.T) {
		test.That(t, QuatAlmostEqual(LookRotation(Forward, Up), QuatIdentity(), 1e-9), test.ShouldBeTrue)
	})
	t.Run("up parallel to forward", func(t *testing.T) {
		q := LookRotation(Up, Up)
		vecAlmostEqual(t, RotateVector(q, Forward), Up, 1e-9)
	})
}

func TestTwistAngle(t *testing.T) {
	q := quat.Mul(AngleAxis(0.3, Forward), AngleAxis(0.4, Right))
	test.That(t, TwistAngle(AngleAxis(0.7, Forward), Forward), test.ShouldAlmostEqual, 0.7, 1e-9)
	test.That(t, TwistAngle(AngleAxis(-0.7, Forward), Forward), test.ShouldAlmostEqual, -0.7, 1e-9)
	test.That(t, math.Abs(TwistAngle(q, Forward)), test.ShouldBeGreaterThan, 0)
}
