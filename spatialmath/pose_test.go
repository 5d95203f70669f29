package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestPoseComposition(t *testing.T) {
	parent := NewPose(r3.Vector{X: 1, Y: 0, Z: 0}, AngleAxis(math.Pi/2, Up))
	child := NewPose(r3.Vector{X: 0, Y: 0, Z: 1}, AngleAxis(math.Pi/2, Right))

	world := Compose(parent, child)
	vecAlmostEqual(t, world.Point, r3.Vector{X: 2, Y: 0, Z: 0}, 1e-9)

	back := PoseBetween(parent, world)
	test.That(t, PoseAlmostEqual(back, child, 1e-9, 1e-9), test.ShouldBeTrue)

	pt := r3.Vector{X: 0.3, Y: -0.2, Z: 0.5}
	vecAlmostEqual(t, parent.InverseTransformPoint(parent.TransformPoint(pt)), pt, 1e-9)
	test.That(t, NewZeroPose().String(), test.ShouldContainSubstring, "X:0.0000")
}
