package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestProjections(t *testing.T) {
	v := r3.Vector{X: 1, Y: 2, Z: 3}
	vecAlmostEqual(t, ProjectOnPlane(v, Up), r3.Vector{X: 1, Y: 0, Z: 3}, 1e-9)
	vecAlmostEqual(t, ProjectOnPlane(v, r3.Vector{}), v, 1e-9)

	n, tan := OrthoNormalize(r3.Vector{X: 0, Y: 0, Z: 2}, r3.Vector{X: 1, Y: 0, Z: 1})
	vecAlmostEqual(t, n, Forward, 1e-9)
	vecAlmostEqual(t, tan, Right, 1e-9)

	_, tan = OrthoNormalize(Forward, Forward)
	test.That(t, tan.Dot(Forward), test.ShouldAlmostEqual, 0, 1e-9)
	test.That(t, tan.Norm(), test.ShouldAlmostEqual, 1, 1e-9)
}

func TestPerpendicularTo(t *testing.T) {
	p := PerpendicularTo(Right, Right)
	test.That(t, p.Dot(Right), test.ShouldAlmostEqual, 0, 1e-9)
	test.That(t, p.Norm(), test.ShouldAlmostEqual, 1, 1e-9)
	vecAlmostEqual(t, PerpendicularTo(Right, r3.Vector{X: 1, Y: 1, Z: 0}), Up, 1e-9)
	vecAlmostEqual(t, PerpendicularTo(r3.Vector{}, r3.Vector{}), Up, 1e-9)
}

func TestSlerpDirection(t *testing.T) {
	mid := SlerpDirection(Forward, Right.Mul(3), 0.5)
	test.That(t, mid.Norm(), test.ShouldAlmostEqual, 2, 1e-9)
	test.That(t, Angle(mid, Forward), test.ShouldAlmostEqual, math.Pi/4, 1e-9)
}

func TestClampDirection(t *testing.T) {
	dir := r3.Vector{X: 0, Y: 0, Z: -1}
	out, mlp := ClampDirection(dir, Forward, 0, 0)
	test.That(t, out, test.ShouldResemble, dir)
	test.That(t, mlp, test.ShouldEqual, 1)

	out, mlp = ClampDirection(dir, Forward, 1, 0)
	test.That(t, out, test.ShouldResemble, Forward)
	test.That(t, mlp, test.ShouldEqual, 0)

	// 45 degrees off is within a 0.5 clamp, which allows 90 degrees
	side := r3.Vector{X: 1, Y: 0, Z: 1}
	out, _ = ClampDirection(side, Forward, 0.5, 0)
	vecAlmostEqual(t, out, side, 1e-9)

	// straight back is pulled inside the clamp
	out, _ = ClampDirection(r3.Vector{X: 0.001, Y: 0, Z: -1}, Forward, 0.5, 1)
	test.That(t, Angle(out, Forward), test.ShouldBeLessThan, math.Pi/2+1e-6)
}
