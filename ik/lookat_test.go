package ik

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/finalik/logging"
	"go.viam.com/finalik/skeleton"
	"go.viam.com/finalik/spatialmath"
	"go.viam.com/finalik/utils"
)

type upperBody struct {
	skel   *skeleton.Skeleton
	spine  []skeleton.BoneID
	head   skeleton.BoneID
	eyes   []skeleton.BoneID
	lookAt *LookAt
}

// makeUpperBody is a two bone spine along Y with a head on top and two eyes, all facing +Z.
func makeUpperBody(t *testing.T) *upperBody {
	t.Helper()
	skel, ids := makeChain(t, r3.Vector{}, r3.Vector{Y: 0.5}, r3.Vector{Y: 1})
	left, err := skel.AddBoneWorld("eye_l", ids[2], r3.Vector{X: -0.05, Y: 1.1, Z: 0.1}, spatialmath.QuatIdentity())
	test.That(t, err, test.ShouldBeNil)
	right, err := skel.AddBoneWorld("eye_r", ids[2], r3.Vector{X: 0.05, Y: 1.1, Z: 0.1}, spatialmath.QuatIdentity())
	test.That(t, err, test.ShouldBeNil)
	b := &upperBody{skel: skel, spine: ids[:2], head: ids[2], eyes: []skeleton.BoneID{left, right}}
	b.lookAt = NewLookAt("look", logging.NewTestLogger(t), b.spine, b.head, b.eyes)
	test.That(t, b.lookAt.Initiate(skel), test.ShouldBeNil)
	b.lookAt.BodyWeight = 0
	b.lookAt.HeadWeight = 0
	b.lookAt.EyesWeight = 0
	b.lookAt.ClampWeight = 0
	b.lookAt.ClampWeightHead = 0
	b.lookAt.ClampWeightEyes = 0
	b.lookAt.ClampSmoothing = 0
	return b
}

func (b *upperBody) facing(bone skeleton.BoneID) r3.Vector {
	return spatialmath.RotateVector(b.skel.Rotation(bone), spatialmath.Forward)
}

func TestLookAtInitiate(t *testing.T) {
	b := makeUpperBody(t)
	vecAlmostEqual(t, b.lookAt.IKPosition, r3.Vector{Y: 1, Z: 1}, 1e-12)

	// any descendant of the spine can be the head
	ok := NewLookAt("look", nil, []skeleton.BoneID{b.spine[0]}, b.eyes[0], nil)
	test.That(t, ok.Initiate(b.skel), test.ShouldBeNil)
	bad := NewLookAt("look", nil, []skeleton.BoneID{b.head}, b.spine[1], nil)
	err := bad.Initiate(b.skel)
	test.That(t, IsInvalidChain(err), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "not below the spine")
	bad = NewLookAt("look", nil, []skeleton.BoneID{b.spine[1], b.spine[0]}, skeleton.NoParent, nil)
	test.That(t, IsInvalidChain(bad.Initiate(b.skel)), test.ShouldBeTrue)
	bad = NewLookAt("look", nil, nil, skeleton.NoParent, nil)
	test.That(t, IsInvalidChain(bad.Initiate(b.skel)), test.ShouldBeTrue)

	err = b.lookAt.SetSpineWeight(b.head, 1)
	test.That(t, errors.Is(err, ErrBoneNotInChain), test.ShouldBeTrue)
	test.That(t, b.lookAt.SetSpineWeight(b.spine[0], 0.5), test.ShouldBeNil)
}

func TestLookAtHead(t *testing.T) {
	b := makeUpperBody(t)
	b.lookAt.HeadWeight = 1
	b.lookAt.IKPosition = r3.Vector{X: 1, Y: 1}
	b.lookAt.Update()
	vecAlmostEqual(t, b.facing(b.head), r3.Vector{X: 1}, 1e-9)
	test.That(t, spatialmath.QuatAngle(b.skel.LocalRotation(b.spine[0]), spatialmath.QuatIdentity()), test.ShouldAlmostEqual, 0)

	b = makeUpperBody(t)
	b.lookAt.HeadWeight = 0.5
	b.lookAt.IKPosition = r3.Vector{X: 1, Y: 1}
	b.lookAt.Update()
	test.That(t, utils.RadToDeg(spatialmath.Angle(b.facing(b.head), spatialmath.Forward)), test.ShouldAlmostEqual, 45, 1e-6)
}

func TestLookAtEyes(t *testing.T) {
	b := makeUpperBody(t)
	b.lookAt.EyesWeight = 1
	goal := r3.Vector{X: 0.3, Y: 1.4, Z: 1}
	b.lookAt.IKPosition = goal
	b.lookAt.Update()
	for _, eye := range b.eyes {
		vecAlmostEqual(t, b.facing(eye), goal.Sub(b.skel.Position(eye)).Normalize(), 1e-9)
	}
	vecAlmostEqual(t, b.facing(b.head), spatialmath.Forward, 1e-12)
}

func TestLookAtSpineShares(t *testing.T) {
	b := makeUpperBody(t)
	b.lookAt.BodyWeight = 1
	b.lookAt.HeadWeight = 1
	b.lookAt.IKPosition = r3.Vector{X: 1, Y: 1}
	b.lookAt.Update()

	// each spine bone takes half of the quarter turn and the head has nothing left to do
	for _, bone := range b.spine {
		test.That(t, spatialmath.QuatAngle(b.skel.LocalRotation(bone), spatialmath.QuatIdentity()), test.ShouldAlmostEqual, math.Pi/4, 1e-9)
	}
	test.That(t, spatialmath.QuatAngle(b.skel.LocalRotation(b.head), spatialmath.QuatIdentity()), test.ShouldAlmostEqual, 0, 1e-9)
	vecAlmostEqual(t, b.facing(b.head), r3.Vector{X: 1}, 1e-9)

	b = makeUpperBody(t)
	b.lookAt.BodyWeight = 1
	test.That(t, b.lookAt.SetSpineWeight(b.spine[0], 0), test.ShouldBeNil)
	b.lookAt.IKPosition = r3.Vector{X: 1, Y: 1}
	b.lookAt.Update()
	test.That(t, spatialmath.QuatAngle(b.skel.LocalRotation(b.spine[0]), spatialmath.QuatIdentity()), test.ShouldAlmostEqual, 0, 1e-9)
	test.That(t, spatialmath.QuatAngle(b.skel.LocalRotation(b.spine[1]), spatialmath.QuatIdentity()), test.ShouldAlmostEqual, math.Pi/2, 1e-9)
}

func TestLookAtCascade(t *testing.T) {
	b := makeUpperBody(t)
	b.lookAt.BodyWeight = 0.5
	b.lookAt.HeadWeight = 1
	b.lookAt.IKPosition = r3.Vector{X: 1, Y: 1}
	b.lookAt.Update()

	// the spine turns half way and the head finishes the turn
	spineFacing := spatialmath.RotateVector(b.skel.Rotation(b.spine[1]), spatialmath.Forward)
	test.That(t, utils.RadToDeg(spatialmath.Angle(spineFacing, spatialmath.Forward)), test.ShouldAlmostEqual, 45, 1e-6)
	vecAlmostEqual(t, b.facing(b.head), r3.Vector{X: 1}, 1e-9)
}

func TestLookAtClamp(t *testing.T) {
	b := makeUpperBody(t)
	b.lookAt.HeadWeight = 1
	b.lookAt.ClampWeightHead = 0.75
	b.lookAt.IKPosition = r3.Vector{X: 1, Y: 1}
	b.lookAt.Update()
	test.That(t, utils.RadToDeg(spatialmath.Angle(b.facing(b.head), spatialmath.Forward)), test.ShouldAlmostEqual, 30, 1e-6)

	b = makeUpperBody(t)
	b.lookAt.HeadWeight = 1
	b.lookAt.ClampWeightHead = 1
	before := b.skel.Snapshot()
	b.lookAt.IKPosition = r3.Vector{X: 1, Y: 1}
	b.lookAt.Update()
	checkPoseEqual(t, b.skel.Snapshot(), before)
}

func TestLookAtZeroWeight(t *testing.T) {
	b := makeUpperBody(t)
	b.lookAt.BodyWeight = 1
	b.lookAt.HeadWeight = 1
	b.lookAt.EyesWeight = 1
	b.lookAt.IKPositionWeight = 0
	before := b.skel.Snapshot()
	b.lookAt.IKPosition = r3.Vector{X: 1, Y: 1}
	b.lookAt.Update()
	checkPoseEqual(t, b.skel.Snapshot(), before)

	b.lookAt.IKPositionWeight = 1
	b.lookAt.Update()
	b.lookAt.FixTransforms()
	checkPoseEqual(t, b.skel.Snapshot(), before)
}
