package ik

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/finalik/logging"
	"go.viam.com/finalik/skeleton"
	"go.viam.com/finalik/spatialmath"
	"go.viam.com/finalik/utils"
)

// makeGun is a single bone aim chain, held one unit above the root.
func makeGun(t *testing.T) (*skeleton.Skeleton, *Aim) {
	t.Helper()
	skel, ids := makeChain(t, r3.Vector{}, r3.Vector{Y: 1})
	a := NewAim("aim", logging.NewTestLogger(t), ids[1], ids[1])
	test.That(t, a.Initiate(skel), test.ShouldBeNil)
	a.ClampWeight = 0
	a.Tolerance = 0.01
	return skel, a
}

func TestAimSingleBone(t *testing.T) {
	skel, a := makeGun(t)
	vecAlmostEqual(t, a.IKPosition, r3.Vector{Y: 1, Z: 1}, 1e-12)
	a.IKPosition = r3.Vector{X: 1, Y: 1}
	a.Update()
	test.That(t, a.Iterations(), test.ShouldEqual, 1)
	test.That(t, a.AngleError(), test.ShouldBeLessThan, 1e-6)
	vecAlmostEqual(t, a.axisWorld(), r3.Vector{X: 1}, 1e-9)
	vecAlmostEqual(t, skel.Position(a.AimTransform), r3.Vector{Y: 1}, 1e-12)
}

func TestAimChain(t *testing.T) {
	skel, ids := makeChain(t, r3.Vector{}, r3.Vector{Y: 0.5}, r3.Vector{Y: 1})
	a := NewAim("aim", logging.NewTestLogger(t), ids[2], ids[0], ids[1])
	test.That(t, a.Initiate(skel), test.ShouldBeNil)
	a.ClampWeight = 0
	a.Tolerance = 0.01
	a.MaxIterations = 10
	a.IKPosition = r3.Vector{X: 1, Y: 2, Z: 1}
	a.Update()
	test.That(t, a.AngleError(), test.ShouldBeLessThan, 0.01)
	test.That(t, a.Iterations(), test.ShouldBeLessThan, 10)
	errs := a.IterationErrors()
	test.That(t, errs[len(errs)-1], test.ShouldBeLessThan, errs[0]+1e-9)
}

func TestAimValidation(t *testing.T) {
	skel, ids := makeChain(t, r3.Vector{}, r3.Vector{Y: 0.5}, r3.Vector{Y: 1})
	a := NewAim("aim", nil, ids[0], ids[1], ids[2])
	err := a.Initiate(skel)
	test.That(t, IsInvalidChain(err), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "is not below")

	a = NewAim("aim", nil, 99, ids[1])
	test.That(t, IsInvalidChain(a.Initiate(skel)), test.ShouldBeTrue)

	a = NewAim("aim", nil, ids[2], ids[1])
	a.Axis = r3.Vector{}
	test.That(t, IsInvalidChain(a.Initiate(skel)), test.ShouldBeTrue)
	test.That(t, a.AngleError(), test.ShouldEqual, 0.0)
}

func TestAimPole(t *testing.T) {
	_, a := makeGun(t)
	a.IKPosition = r3.Vector{X: 1, Y: 1}
	a.PoleAxis = spatialmath.Up
	a.PolePosition = r3.Vector{Y: 1, Z: -1}
	a.PoleWeight = 1
	a.Update()
	vecAlmostEqual(t, a.axisWorld(), r3.Vector{X: 1}, 1e-9)
	vecAlmostEqual(t, a.poleWorld(), r3.Vector{Z: -1}, 1e-9)
}

func TestAimWeights(t *testing.T) {
	t.Run("zero", func(t *testing.T) {
		skel, a := makeGun(t)
		before := skel.Snapshot()
		a.IKPosition = r3.Vector{X: 1, Y: 1}
		a.IKPositionWeight = 0
		a.Update()
		checkPoseEqual(t, skel.Snapshot(), before)
	})
	t.Run("half", func(t *testing.T) {
		_, a := makeGun(t)
		a.IKPosition = r3.Vector{X: 1, Y: 1}
		a.IKPositionWeight = 0.5
		a.Update()
		test.That(t, utils.RadToDeg(spatialmath.Angle(a.axisWorld(), spatialmath.Forward)), test.ShouldAlmostEqual, 45, 1e-6)
	})
	t.Run("clamped", func(t *testing.T) {
		skel, a := makeGun(t)
		before := skel.Snapshot()
		a.ClampWeight = 1
		a.IKPosition = r3.Vector{X: 1, Y: 1}
		a.Update()
		checkPoseEqual(t, skel.Snapshot(), before)
	})
}
