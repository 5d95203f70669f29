package skeleton

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/finalik/spatialmath"
)

func vecAlmostEqual(t *testing.T, actual, expected r3.Vector) {
	t.Helper()
	test.That(t, actual.X, test.ShouldAlmostEqual, expected.X, 1e-9)
	test.That(t, actual.Y, test.ShouldAlmostEqual, expected.Y, 1e-9)
	test.That(t, actual.Z, test.ShouldAlmostEqual, expected.Z, 1e-9)
}

func makeArm(t *testing.T) (*Skeleton, []BoneID) {
	t.Helper()
	s := New()
	shoulder, err := s.AddBone("shoulder", NoParent, r3.Vector{}, spatialmath.QuatIdentity())
	test.That(t, err, test.ShouldBeNil)
	elbow, err := s.AddBone("elbow", shoulder, r3.Vector{X: 1}, spatialmath.QuatIdentity())
	test.That(t, err, test.ShouldBeNil)
	wrist, err := s.AddBone("wrist", elbow, r3.Vector{X: 1}, spatialmath.QuatIdentity())
	test.That(t, err, test.ShouldBeNil)
	return s, []BoneID{shoulder, elbow, wrist}
}

func TestAddBone(t *testing.T) {
	s, ids := makeArm(t)
	test.That(t, s.Len(), test.ShouldEqual, 3)

	_, err := s.AddBone("elbow", ids[0], r3.Vector{}, spatialmath.QuatIdentity())
	test.That(t, err, test.ShouldNotBeNil)
	_, err = s.AddBone("", NoParent, r3.Vector{}, spatialmath.QuatIdentity())
	test.That(t, err, test.ShouldNotBeNil)
	_, err = s.AddBone("floating", 42, r3.Vector{}, spatialmath.QuatIdentity())
	test.That(t, errors.Is(err, ErrBoneNotFound), test.ShouldBeTrue)

	id, err := s.ByName("wrist")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, id, test.ShouldEqual, ids[2])
	_, err = s.ByName("ankle")
	test.That(t, errors.Is(err, ErrBoneNotFound), test.ShouldBeTrue)
	test.That(t, s.Children(ids[0]), test.ShouldResemble, []BoneID{ids[1]})
	test.That(t, s.Name(99), test.ShouldContainSubstring, "invalid")
}

func TestWorldTransforms(t *testing.T) {
	s, ids := makeArm(t)
	vecAlmostEqual(t, s.Position(ids[2]), r3.Vector{X: 2})

	// rotating the shoulder swings everything below it
	s.SetLocalRotation(ids[0], spatialmath.AngleAxis(math.Pi/2, spatialmath.Up))
	vecAlmostEqual(t, s.Position(ids[1]), r3.Vector{Z: -1})
	vecAlmostEqual(t, s.Position(ids[2]), r3.Vector{Z: -2})

	// world setters keep the world result regardless of the parent's pose
	s.SetPosition(ids[2], r3.Vector{X: 3, Y: 1})
	vecAlmostEqual(t, s.Position(ids[2]), r3.Vector{X: 3, Y: 1})
	target := spatialmath.AngleAxis(0.3, spatialmath.Forward)
	s.SetRotation(ids[1], target)
	test.That(t, spatialmath.QuatAlmostEqual(s.Rotation(ids[1]), target, 1e-9), test.ShouldBeTrue)

	s.Rotate(ids[1], spatialmath.AngleAxis(-0.3, spatialmath.Forward))
	test.That(t, spatialmath.QuatAlmostEqual(s.Rotation(ids[1]), spatialmath.QuatIdentity(), 1e-9), test.ShouldBeTrue)
}

func TestAddBoneWorld(t *testing.T) {
	s := New()
	root, err := s.AddBoneWorld("root", NoParent, r3.Vector{Y: 1}, spatialmath.AngleAxis(math.Pi/2, spatialmath.Up))
	test.That(t, err, test.ShouldBeNil)
	child, err := s.AddBoneWorld("child", root, r3.Vector{X: 1, Y: 1}, spatialmath.QuatIdentity())
	test.That(t, err, test.ShouldBeNil)
	vecAlmostEqual(t, s.Position(child), r3.Vector{X: 1, Y: 1})
	test.That(t, spatialmath.QuatAlmostEqual(s.Rotation(child), spatialmath.QuatIdentity(), 1e-9), test.ShouldBeTrue)
	vecAlmostEqual(t, s.LocalPosition(child), r3.Vector{Z: 1})
}

func TestHierarchyQueries(t *testing.T) {
	s, ids := makeArm(t)
	other, err := s.AddBone("other", NoParent, r3.Vector{}, spatialmath.QuatIdentity())
	test.That(t, err, test.ShouldBeNil)

	test.That(t, s.IsAncestor(ids[0], ids[2]), test.ShouldBeTrue)
	test.That(t, s.IsAncestor(ids[2], ids[0]), test.ShouldBeFalse)
	test.That(t, s.IsAncestor(ids[0], ids[0]), test.ShouldBeFalse)
	test.That(t, s.IsAncestor(other, ids[2]), test.ShouldBeFalse)

	chain, err := s.Chain(ids[0], ids[2])
	test.That(t, err, test.ShouldBeNil)
	test.That(t, chain, test.ShouldResemble, ids)
	_, err = s.Chain(other, ids[2])
	test.That(t, err, test.ShouldNotBeNil)
}

func TestDefaultsAndSnapshots(t *testing.T) {
	s, ids := makeArm(t)
	snap := s.Snapshot()

	s.SetLocalRotation(ids[1], spatialmath.AngleAxis(1, spatialmath.Up))
	s.SetLocalPosition(ids[2], r3.Vector{X: 5})
	s.FixTransform(ids[1])
	s.FixTransform(ids[2])
	vecAlmostEqual(t, s.Position(ids[2]), r3.Vector{X: 2})

	s.SetLocalRotation(ids[1], spatialmath.AngleAxis(1, spatialmath.Up))
	s.StoreDefaultLocalState(ids[1])
	s.FixTransform(ids[1])
	test.That(t, spatialmath.QuatAngle(s.LocalRotation(ids[1]), spatialmath.QuatIdentity()), test.ShouldAlmostEqual, 1, 1e-9)

	test.That(t, s.Restore(snap), test.ShouldBeNil)
	vecAlmostEqual(t, s.Position(ids[2]), r3.Vector{X: 2})
	test.That(t, s.Restore(snap[:1]), test.ShouldNotBeNil)

	test.That(t, s.String(), test.ShouldContainSubstring, "wrist")
}
