// Package skeleton holds the bone hierarchy that solvers read from and write to.
//
// Bones live in an arena and are addressed by a stable BoneID. A bone's parent is always added
// before the bone itself, so the arena order is a valid root-first traversal.
package skeleton

import (
	"fmt"

	"github.com/golang/geo/r3"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/finalik/spatialmath"
)

// BoneID addresses a bone in a Skeleton.
type BoneID int

// NoParent is the parent of root bones.
const NoParent BoneID = -1

// ErrBoneNotFound is returned when a name or id does not refer to a bone.
var ErrBoneNotFound = errors.New("bone not found")

// Bone is a single joint of the skeleton. Its world transform is derived from its parent chain.
type Bone struct {
	Name          string
	Parent        BoneID
	LocalPosition r3.Vector
	LocalRotation quat.Number

	// DefaultLocalPosition and DefaultLocalRotation are the pose FixTransform restores.
	DefaultLocalPosition r3.Vector
	DefaultLocalRotation quat.Number

	children []BoneID
}

// Skeleton is an arena of bones with cached world transforms.
type Skeleton struct {
	bones  []Bone
	byName map[string]BoneID

	world []spatialmath.Pose
	dirty []bool
}

// New returns an empty skeleton.
func New() *Skeleton {
	return &Skeleton{byName: map[string]BoneID{}}
}

// AddBone appends a bone whose transform is given relative to parent. Parent must already exist
// or be NoParent. The local pose is also recorded as the bone's default pose.
func (s *Skeleton) AddBone(name string, parent BoneID, localPosition r3.Vector, localRotation quat.Number) (BoneID, error) {
	if name == "" {
		return NoParent, errors.New("bone name cannot be empty")
	}
	if _, ok := s.byName[name]; ok {
		return NoParent, errors.Errorf("bone %q already exists", name)
	}
	if parent != NoParent && !s.Valid(parent) {
		return NoParent, errors.Wrapf(ErrBoneNotFound, "parent %d of bone %q", parent, name)
	}
	localRotation = spatialmath.Normalize(localRotation)
	id := BoneID(len(s.bones))
	s.bones = append(s.bones, Bone{
		Name:                 name,
		Parent:               parent,
		LocalPosition:        localPosition,
		LocalRotation:        localRotation,
		DefaultLocalPosition: localPosition,
		DefaultLocalRotation: localRotation,
	})
	s.world = append(s.world, spatialmath.NewZeroPose())
	s.dirty = append(s.dirty, true)
	s.byName[name] = id
	if parent != NoParent {
		s.bones[parent].children = append(s.bones[parent].children, id)
	}
	return id, nil
}

// AddBoneWorld appends a bone whose transform is given in world space.
func (s *Skeleton) AddBoneWorld(name string, parent BoneID, position r3.Vector, rotation quat.Number) (BoneID, error) {
	local := spatialmath.NewPose(position, rotation)
	if parent != NoParent && s.Valid(parent) {
		local = spatialmath.PoseBetween(s.WorldPose(parent), local)
	}
	return s.AddBone(name, parent, local.Point, local.Orientation)
}

// Len returns the number of bones.
func (s *Skeleton) Len() int {
	return len(s.bones)
}

// Valid reports whether id refers to a bone of this skeleton.
func (s *Skeleton) Valid(id BoneID) bool {
	return id >= 0 && int(id) < len(s.bones)
}

// ByName looks a bone up by name.
func (s *Skeleton) ByName(name string) (BoneID, error) {
	id, ok := s.byName[name]
	if !ok {
		return NoParent, errors.Wrapf(ErrBoneNotFound, "%q", name)
	}
	return id, nil
}

// Bone returns a copy of the bone record.
func (s *Skeleton) Bone(id BoneID) Bone {
	b := s.bones[id]
	b.children = append([]BoneID(nil), b.children...)
	return b
}

// Name returns the name of a bone.
func (s *Skeleton) Name(id BoneID) string {
	if !s.Valid(id) {
		return fmt.Sprintf("<invalid bone %d>", id)
	}
	return s.bones[id].Name
}

// Parent returns the parent of a bone, or NoParent.
func (s *Skeleton) Parent(id BoneID) BoneID {
	return s.bones[id].Parent
}

// Children returns the direct children of a bone.
func (s *Skeleton) Children(id BoneID) []BoneID {
	return append([]BoneID(nil), s.bones[id].children...)
}

// IsAncestor reports whether ancestor is a strict ancestor of descendant.
func (s *Skeleton) IsAncestor(ancestor, descendant BoneID) bool {
	if !s.Valid(ancestor) || !s.Valid(descendant) {
		return false
	}
	for p := s.bones[descendant].Parent; p != NoParent; p = s.bones[p].Parent {
		if p == ancestor {
			return true
		}
	}
	return false
}

// Chain returns the bones from root down to tip inclusive. Root must be an ancestor of tip.
func (s *Skeleton) Chain(root, tip BoneID) ([]BoneID, error) {
	if !s.Valid(root) || !s.Valid(tip) {
		return nil, ErrBoneNotFound
	}
	chain := []BoneID{tip}
	for id := tip; id != root; {
		id = s.bones[id].Parent
		if id == NoParent {
			return nil, errors.Errorf("bone %q is not an ancestor of %q", s.Name(root), s.Name(tip))
		}
		chain = append(chain, id)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

func (s *Skeleton) invalidate(id BoneID) {
	if s.dirty[id] {
		// children of a dirty bone are already dirty
		return
	}
	s.dirty[id] = true
	for _, c := range s.bones[id].children {
		s.invalidate(c)
	}
}

// WorldPose returns the world transform of a bone.
func (s *Skeleton) WorldPose(id BoneID) spatialmath.Pose {
	if !s.dirty[id] {
		return s.world[id]
	}
	b := &s.bones[id]
	local := spatialmath.NewPose(b.LocalPosition, b.LocalRotation)
	if b.Parent == NoParent {
		s.world[id] = local
	} else {
		s.world[id] = spatialmath.Compose(s.WorldPose(b.Parent), local)
	}
	s.dirty[id] = false
	return s.world[id]
}

// Position returns the world position of a bone.
func (s *Skeleton) Position(id BoneID) r3.Vector {
	return s.WorldPose(id).Point
}

// Rotation returns the world rotation of a bone.
func (s *Skeleton) Rotation(id BoneID) quat.Number {
	return s.WorldPose(id).Orientation
}

// ParentRotation returns the world rotation of a bone's parent, or the identity for roots.
func (s *Skeleton) ParentRotation(id BoneID) quat.Number {
	if p := s.bones[id].Parent; p != NoParent {
		return s.Rotation(p)
	}
	return spatialmath.QuatIdentity()
}

// LocalPosition returns a bone's position relative to its parent.
func (s *Skeleton) LocalPosition(id BoneID) r3.Vector {
	return s.bones[id].LocalPosition
}

// LocalRotation returns a bone's rotation relative to its parent.
func (s *Skeleton) LocalRotation(id BoneID) quat.Number {
	return s.bones[id].LocalRotation
}

// SetLocalPosition moves a bone relative to its parent. Descendants follow.
func (s *Skeleton) SetLocalPosition(id BoneID, p r3.Vector) {
	s.bones[id].LocalPosition = p
	s.invalidate(id)
}

// SetLocalRotation rotates a bone relative to its parent. Descendants follow.
func (s *Skeleton) SetLocalRotation(id BoneID, q quat.Number) {
	s.bones[id].LocalRotation = spatialmath.Normalize(q)
	s.invalidate(id)
}

// SetPosition moves a bone to a world position. Descendants follow.
func (s *Skeleton) SetPosition(id BoneID, p r3.Vector) {
	if parent := s.bones[id].Parent; parent != NoParent {
		p = s.WorldPose(parent).InverseTransformPoint(p)
	}
	s.SetLocalPosition(id, p)
}

// SetRotation sets a bone's world rotation. Descendants follow.
func (s *Skeleton) SetRotation(id BoneID, q quat.Number) {
	if parent := s.bones[id].Parent; parent != NoParent {
		q = quat.Mul(spatialmath.Inverse(s.Rotation(parent)), q)
	}
	s.SetLocalRotation(id, q)
}

// Rotate applies a world space rotation on top of a bone's current world rotation.
func (s *Skeleton) Rotate(id BoneID, q quat.Number) {
	s.SetRotation(id, quat.Mul(q, s.Rotation(id)))
}

// StoreDefaultLocalState records the current local pose of the given bones as their default.
// With no ids every bone is recorded.
func (s *Skeleton) StoreDefaultLocalState(ids ...BoneID) {
	if len(ids) == 0 {
		for i := range s.bones {
			s.storeDefault(BoneID(i))
		}
		return
	}
	for _, id := range ids {
		s.storeDefault(id)
	}
}

func (s *Skeleton) storeDefault(id BoneID) {
	b := &s.bones[id]
	b.DefaultLocalPosition = b.LocalPosition
	b.DefaultLocalRotation = b.LocalRotation
}

// FixTransform restores a bone to its default local pose.
func (s *Skeleton) FixTransform(id BoneID) {
	b := &s.bones[id]
	if b.LocalPosition == b.DefaultLocalPosition && b.LocalRotation == b.DefaultLocalRotation {
		return
	}
	b.LocalPosition = b.DefaultLocalPosition
	b.LocalRotation = b.DefaultLocalRotation
	s.invalidate(id)
}

// LocalPose is a snapshot of every bone's local transform, indexed by BoneID.
type LocalPose []spatialmath.Pose

// Snapshot captures the local transform of every bone.
func (s *Skeleton) Snapshot() LocalPose {
	out := make(LocalPose, len(s.bones))
	for i, b := range s.bones {
		out[i] = spatialmath.NewPose(b.LocalPosition, b.LocalRotation)
	}
	return out
}

// Restore applies a snapshot taken from this skeleton.
func (s *Skeleton) Restore(pose LocalPose) error {
	if len(pose) != len(s.bones) {
		return errors.Errorf("snapshot has %d bones, skeleton has %d", len(pose), len(s.bones))
	}
	for i, p := range pose {
		s.bones[i].LocalPosition = p.Point
		s.bones[i].LocalRotation = p.Orientation
		s.dirty[i] = true
	}
	return nil
}

// String prints out a table of each bone, with columns of name, parent, world position and
// world rotation.
func (s *Skeleton) String() string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "Name", "Parent", "Position", "Rotation"})
	for i := range s.bones {
		id := BoneID(i)
		parent := ""
		if p := s.bones[i].Parent; p != NoParent {
			parent = s.bones[p].Name
		}
		pose := s.WorldPose(id)
		roll, pitch, yaw := spatialmath.QuatToEulerAngles(pose.Orientation).Degrees()
		t.AppendRow(table.Row{
			i,
			s.bones[i].Name,
			parent,
			fmt.Sprintf("X:%.4f, Y:%.4f, Z:%.4f", pose.Point.X, pose.Point.Y, pose.Point.Z),
			fmt.Sprintf("Roll:%.2f, Pitch:%.2f, Yaw:%.2f", roll, pitch, yaw),
		})
	}
	return t.Render()
}
