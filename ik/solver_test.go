package ik

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/finalik/logging"
	"go.viam.com/finalik/rotationlimit"
	"go.viam.com/finalik/skeleton"
	"go.viam.com/finalik/spatialmath"
)

// makeChain builds a skeleton with one bone at each position, each the child of the previous.
func makeChain(t *testing.T, positions ...r3.Vector) (*skeleton.Skeleton, []skeleton.BoneID) {
	t.Helper()
	skel := skeleton.New()
	parent := skeleton.NoParent
	ids := make([]skeleton.BoneID, 0, len(positions))
	for i, p := range positions {
		id, err := skel.AddBoneWorld(string(rune('a'+i)), parent, p, spatialmath.QuatIdentity())
		test.That(t, err, test.ShouldBeNil)
		ids = append(ids, id)
		parent = id
	}
	return skel, ids
}

func vecAlmostEqual(t *testing.T, actual, expected r3.Vector, eps float64) {
	t.Helper()
	test.That(t, actual.X, test.ShouldAlmostEqual, expected.X, eps)
	test.That(t, actual.Y, test.ShouldAlmostEqual, expected.Y, eps)
	test.That(t, actual.Z, test.ShouldAlmostEqual, expected.Z, eps)
}

// checkRigid asserts that consecutive bones are still their cached length apart.
func checkRigid(t *testing.T, skel *skeleton.Skeleton, points []Point) {
	t.Helper()
	for i := 0; i < len(points)-1; i++ {
		d := skel.Position(points[i+1].Bone).Sub(skel.Position(points[i].Bone)).Norm()
		test.That(t, d, test.ShouldAlmostEqual, points[i].Length, 1e-9)
	}
}

func checkPoseEqual(t *testing.T, a, b skeleton.LocalPose) {
	t.Helper()
	test.That(t, len(a), test.ShouldEqual, len(b))
	for i := range a {
		test.That(t, spatialmath.PoseAlmostEqual(a[i], b[i], 1e-9, 1e-9), test.ShouldBeTrue)
	}
}

func TestInitiateValidation(t *testing.T) {
	skel, ids := makeChain(t, r3.Vector{}, r3.Vector{Y: 1}, r3.Vector{Y: 2}, r3.Vector{Y: 3})
	other, err := skel.AddBoneWorld("other", skeleton.NoParent, r3.Vector{X: 1}, spatialmath.QuatIdentity())
	test.That(t, err, test.ShouldBeNil)

	for _, tc := range []struct {
		name   string
		solver Solver
		reason string
	}{
		{"missing bone", NewFABRIK("f", nil, ids[0], 42), "does not exist"},
		{"duplicate", NewCCD("c", nil, ids[0], ids[1], ids[1]), "duplicate"},
		{"not a chain", NewFABRIK("f", nil, ids[0], other), "not an ancestor"},
		{"reversed", NewFABRIK("f", nil, ids[2], ids[1]), "not an ancestor"},
		{"too short", NewFABRIK("f", nil, ids[0]), "at least 2"},
		{"valid limb", NewLimb("l", nil, ids[0], ids[1], ids[2]), ""},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.solver.Initiate(skel)
			if tc.reason == "" {
				test.That(t, err, test.ShouldBeNil)
				return
			}
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, IsInvalidChain(err), test.ShouldBeTrue)
			test.That(t, err.Error(), test.ShouldContainSubstring, tc.reason)
			test.That(t, tc.solver.Initiated(), test.ShouldBeFalse)

			var msg string
			test.That(t, tc.solver.IsValid(&msg), test.ShouldBeFalse)
			test.That(t, msg, test.ShouldContainSubstring, tc.reason)
		})
	}

	limb := NewLimb("l", nil, ids[0], ids[1], ids[2])
	limb.points = newPoints(ids)
	test.That(t, IsInvalidChain(limb.Initiate(skel)), test.ShouldBeTrue)
	test.That(t, IsInvalidChain(NewCCD("c", nil, ids...).Initiate(nil)), test.ShouldBeTrue)
}

func TestInitiateLogsAndSkipsUpdate(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	skel, ids := makeChain(t, r3.Vector{}, r3.Vector{Y: 1})
	f := NewFABRIK("spine", logger, ids[1], ids[0])
	test.That(t, f.Initiate(skel), test.ShouldNotBeNil)
	test.That(t, logs.FilterMessage("solver setup failed, it will not update").Len(), test.ShouldEqual, 1)

	var msg string
	test.That(t, NewCCD("fresh", logger, ids...).IsValid(&msg), test.ShouldBeFalse)
	test.That(t, msg, test.ShouldEqual, ErrNotInitiated.Error())

	before := skel.Snapshot()
	f.IKPosition = r3.Vector{X: 1}
	f.Update()
	f.FixTransforms()
	f.StoreDefaultLocalState()
	checkPoseEqual(t, skel.Snapshot(), before)
}

func TestPerBoneSettings(t *testing.T) {
	skel, ids := makeChain(t, r3.Vector{}, r3.Vector{Y: 1}, r3.Vector{Y: 2})
	f := NewFABRIK("f", logging.NewTestLogger(t), ids[0], ids[1])
	test.That(t, f.SetWeight(ids[1], 2), test.ShouldBeNil)
	test.That(t, f.Points()[1].Weight, test.ShouldEqual, 1.0)
	err := f.SetWeight(ids[2], 0.5)
	test.That(t, errors.Is(err, ErrBoneNotInChain), test.ShouldBeTrue)
	test.That(t, f.SetLimit(ids[0], rotationlimit.NewHinge(spatialmath.Right, 0, 0)), test.ShouldBeNil)
	test.That(t, f.Points()[0].Limit, test.ShouldNotBeNil)

	test.That(t, f.Initiate(skel), test.ShouldBeNil)
	test.That(t, f.Points()[0].Length, test.ShouldAlmostEqual, 1.0)
	test.That(t, f.Bones(), test.ShouldResemble, []skeleton.BoneID{ids[0], ids[1]})
	test.That(t, f.chainLength(), test.ShouldAlmostEqual, 1.0)
	test.That(t, f.Name(), test.ShouldEqual, "f")
}

func TestTargetBone(t *testing.T) {
	skel, ids := makeChain(t, r3.Vector{}, r3.Vector{Y: 1}, r3.Vector{Y: 2})
	target, err := skel.AddBoneWorld("target", skeleton.NoParent, r3.Vector{X: 1, Y: 1}, spatialmath.QuatIdentity())
	test.That(t, err, test.ShouldBeNil)

	c := NewCCD("c", logging.NewTestLogger(t), ids...)
	test.That(t, c.Initiate(skel), test.ShouldBeNil)
	c.Target = target
	c.MaxIterations = 20
	c.Tolerance = 1e-4
	c.Update()
	test.That(t, c.IKPosition, test.ShouldResemble, r3.Vector{X: 1, Y: 1})
	test.That(t, skel.Position(ids[2]).Sub(c.IKPosition).Norm(), test.ShouldBeLessThan, 1e-4)
	test.That(t, math.IsNaN(skel.Position(ids[2]).X), test.ShouldBeFalse)
}
