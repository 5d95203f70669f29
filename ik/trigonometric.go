package ik

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/finalik/logging"
	"go.viam.com/finalik/skeleton"
	"go.viam.com/finalik/spatialmath"
	"go.viam.com/finalik/utils"
)

// Below this length a direction is treated as zero.
const minDirection = 1e-9

var threeBoneChain = chainRule{minBones: 3, maxBones: 3, hierarchical: true}

// Trigonometric is the analytic solver for a chain of exactly three bones. The first two bones
// are rotated so that the third lands on IKPosition, with the bend chosen by BendNormal.
type Trigonometric struct {
	solverBase

	// IKRotation is the world rotation goal of the last bone.
	IKRotation quat.Number
	// IKRotationWeight blends the last bone toward IKRotation.
	IKRotationWeight float64
	// BendNormal is the world space normal of the plane the chain bends in.
	BendNormal r3.Vector

	// localBendNormal is BendNormal relative to the first bone's rotation when it was stored.
	localBendNormal r3.Vector
}

var _ Solver = (*Trigonometric)(nil)

// NewTrigonometric returns a solver for the chain bone1 -> bone2 -> bone3.
func NewTrigonometric(name string, logger logging.Logger, bone1, bone2, bone3 skeleton.BoneID) *Trigonometric {
	return &Trigonometric{
		solverBase: newSolverBase(name, logger, []skeleton.BoneID{bone1, bone2, bone3}),
		IKRotation: spatialmath.QuatIdentity(),
	}
}

// Initiate validates the chain and takes the current pose as the goal and the bend plane.
func (t *Trigonometric) Initiate(skel *skeleton.Skeleton) error {
	if err := t.initiate(skel, threeBoneChain); err != nil {
		return err
	}
	end := t.points[2].Bone
	t.IKPosition = skel.Position(end)
	t.IKRotation = skel.Rotation(end)
	t.SetBendPlaneToCurrent()
	return nil
}

// SetBendPlaneToCurrent sets BendNormal to the plane the chain currently bends in. A straight
// chain keeps its previous plane, carried along by the first bone.
func (t *Trigonometric) SetBendPlaneToCurrent() {
	if !t.initiated {
		return
	}
	if n, ok := t.currentBendNormal(); ok {
		t.BendNormal = n
	} else if t.localBendNormal.Norm2() > 0 {
		t.BendNormal = t.carriedBendNormal()
	} else {
		seg := t.skel.Position(t.points[1].Bone).Sub(t.skel.Position(t.points[0].Bone))
		t.BendNormal = straightBendNormal(seg)
	}
	t.localBendNormal = spatialmath.RotateVector(spatialmath.Inverse(t.skel.Rotation(t.points[0].Bone)), t.BendNormal)
}

// SetBendGoalPosition turns BendNormal by weight toward the plane through the first bone, goal
// and IKPosition, so the middle bone points at goal.
func (t *Trigonometric) SetBendGoalPosition(goal r3.Vector, weight float64) {
	if !t.initiated || weight <= 0 {
		return
	}
	root := t.skel.Position(t.points[0].Bone)
	n := bendNormalToward(goal.Sub(root), t.IKPosition.Sub(root))
	if n.Norm2() == 0 {
		return
	}
	t.BendNormal = spatialmath.SlerpDirection(t.BendNormal, n, weight).Normalize()
}

// Update solves the chain for the current goal.
func (t *Trigonometric) Update() {
	if !t.initiated || (t.IKPositionWeight <= 0 && t.IKRotationWeight <= 0) {
		return
	}
	t.readTarget()
	end := t.points[2].Bone
	animated := t.skel.Rotation(end)
	if t.IKPositionWeight > 0 {
		t.solvePosition(t.IKPosition, t.BendNormal, t.IKPositionWeight)
	}
	t.solveRotation(animated, 0)
}

func (t *Trigonometric) readTarget() {
	t.targetPosition()
	if t.Target != NoTarget && t.skel.Valid(t.Target) {
		t.IKRotation = t.skel.Rotation(t.Target)
	}
}

// solvePosition rotates the first two bones so the last reaches goal, blended by weight.
func (t *Trigonometric) solvePosition(goal, bendNormal r3.Vector, weight float64) {
	s := t.skel
	b1, b2, b3 := t.points[0].Bone, t.points[1].Bone, t.points[2].Bone
	l1, l2 := t.points[0].Length, t.points[1].Length

	p1, p2, p3 := s.Position(b1), s.Position(b2), s.Position(b3)
	goal = spatialmath.LerpVector(p3, goal, weight)

	dir := t.reachDirection(goal.Sub(p1), p1, p2, p3)
	dist := utils.Clamp(goal.Sub(p1).Norm(), math.Abs(l1-l2), l1+l2)
	goal = p1.Add(dir.Mul(dist))

	bendDir := spatialmath.PerpendicularTo(dir, dir.Cross(bendNormal))
	x := 0.0
	if dist > minDirection {
		// law of cosines, projected onto the root to goal axis
		x = (dist*dist + l1*l1 - l2*l2) / (2 * dist)
	}
	y := math.Sqrt(math.Max(0, l1*l1-x*x))
	elbow := p1.Add(dir.Mul(x)).Add(bendDir.Mul(y))

	s.Rotate(b1, spatialmath.FromToRotation(p2.Sub(p1), elbow.Sub(p1)))
	p2, p3 = s.Position(b2), s.Position(b3)
	s.Rotate(b2, spatialmath.FromToRotation(p3.Sub(p2), goal.Sub(p2)))
}

// reachDirection normalizes toGoal, falling back to the current chain direction when the goal
// sits on the root.
func (t *Trigonometric) reachDirection(toGoal, p1, p2, p3 r3.Vector) r3.Vector {
	for _, d := range []r3.Vector{toGoal, p3.Sub(p1), p2.Sub(p1)} {
		if d.Norm() > minDirection {
			return d.Normalize()
		}
	}
	return spatialmath.RotateVector(t.skel.Rotation(t.points[0].Bone), spatialmath.Forward)
}

// solveRotation sets the last bone's world rotation. It is pulled toward animated by
// maintainWeight and then toward IKRotation by IKRotationWeight.
func (t *Trigonometric) solveRotation(animated quat.Number, maintainWeight float64) {
	if maintainWeight <= 0 && t.IKRotationWeight <= 0 {
		return
	}
	end := t.points[2].Bone
	rot := spatialmath.Slerp(t.skel.Rotation(end), animated, maintainWeight)
	rot = spatialmath.Slerp(rot, t.IKRotation, t.IKRotationWeight)
	t.skel.SetRotation(end, rot)
}

// currentBendNormal returns the normal of the plane the two segments span.
func (t *Trigonometric) currentBendNormal() (r3.Vector, bool) {
	p1 := t.skel.Position(t.points[0].Bone)
	p2 := t.skel.Position(t.points[1].Bone)
	p3 := t.skel.Position(t.points[2].Bone)
	n := p2.Sub(p1).Cross(p3.Sub(p2))
	if n.Norm() < minDirection {
		return r3.Vector{}, false
	}
	return n.Normalize(), true
}

// carriedBendNormal returns the stored bend normal rotated with the first bone.
func (t *Trigonometric) carriedBendNormal() r3.Vector {
	return spatialmath.RotateVector(t.skel.Rotation(t.points[0].Bone), t.localBendNormal)
}

// animatedBendNormal is the bend plane of the pose as it is now.
func (t *Trigonometric) animatedBendNormal() r3.Vector {
	if n, ok := t.currentBendNormal(); ok {
		return n
	}
	return t.carriedBendNormal()
}

// straightBendNormal picks a bend normal for a chain that starts out straight along seg.
func straightBendNormal(seg r3.Vector) r3.Vector {
	if seg.Norm() < minDirection {
		return spatialmath.Right
	}
	return seg.Cross(spatialmath.PerpendicularTo(seg, spatialmath.Up)).Normalize()
}

// bendNormalToward returns the normal that bends a chain reaching along dir toward bendDir.
// It is zero when the two are parallel.
func bendNormalToward(bendDir, dir r3.Vector) r3.Vector {
	n := bendDir.Cross(dir)
	if n.Norm() < minDirection {
		return r3.Vector{}
	}
	return n.Normalize()
}
