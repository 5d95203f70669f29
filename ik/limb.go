package ik

import (
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/finalik/logging"
	"go.viam.com/finalik/skeleton"
	"go.viam.com/finalik/spatialmath"
	"go.viam.com/finalik/utils"
)

// BendModifier selects how a Limb chooses its bend plane each update.
type BendModifier int

// The bend modifiers a Limb supports.
const (
	// BendModifierAnimation bends in the plane of the animated pose.
	BendModifierAnimation BendModifier = iota
	// BendModifierTarget turns the bend plane with the goal rotation.
	BendModifierTarget
	// BendModifierParent keeps the bend plane fixed relative to the first bone's parent.
	BendModifierParent
	// BendModifierArm points the middle bone down and away from the body, measured in the first
	// bone's parent space.
	BendModifierArm
	// BendModifierGoal points the middle bone at BendGoal.
	BendModifierGoal
)

var bendModifierNames = map[BendModifier]string{
	BendModifierAnimation: "animation",
	BendModifierTarget:    "target",
	BendModifierParent:    "parent",
	BendModifierArm:       "arm",
	BendModifierGoal:      "goal",
}

func (m BendModifier) String() string {
	if name, ok := bendModifierNames[m]; ok {
		return name
	}
	return "unknown"
}

// BendModifierFromString parses a bend modifier name. The empty string is BendModifierAnimation.
func BendModifierFromString(name string) (BendModifier, error) {
	if name == "" {
		return BendModifierAnimation, nil
	}
	for m, n := range bendModifierNames {
		if strings.EqualFold(n, name) {
			return m, nil
		}
	}
	return BendModifierAnimation, errors.Errorf("unknown bend modifier %q", name)
}

// Limb solves an arm or a leg. It extends Trigonometric with bend modifiers and with keeping the
// last bone's animated rotation.
type Limb struct {
	Trigonometric

	BendModifier BendModifier
	// BendModifierWeight blends the animated bend plane (0) with the modifier's plane (1).
	BendModifierWeight float64
	// MaintainRotationWeight pulls the last bone back toward its rotation before solving.
	MaintainRotationWeight float64
	// BendGoal is the world position the middle bone points at with BendModifierGoal.
	BendGoal r3.Vector
	// BendGoalBone, when not NoTarget, replaces BendGoal with that bone's world position.
	BendGoalBone skeleton.BoneID

	// captured whenever the bend plane is stored
	bendNormalRelToParent r3.Vector
	bendNormalRelToTarget r3.Vector
	rightSide             bool
}

var _ Solver = (*Limb)(nil)

// NewLimb returns a limb solver for upper -> lower -> end.
func NewLimb(name string, logger logging.Logger, upper, lower, end skeleton.BoneID) *Limb {
	return &Limb{
		Trigonometric:      *NewTrigonometric(name, logger, upper, lower, end),
		BendModifierWeight: 1,
		BendGoalBone:       NoTarget,
	}
}

// Initiate validates the chain and stores the current bend plane.
func (l *Limb) Initiate(skel *skeleton.Skeleton) error {
	if err := l.Trigonometric.Initiate(skel); err != nil {
		return err
	}
	l.SetBendPlaneToCurrent()
	return nil
}

// SetBendPlaneToCurrent stores the bend plane of the current pose for every modifier.
func (l *Limb) SetBendPlaneToCurrent() {
	if !l.initiated {
		return
	}
	l.Trigonometric.SetBendPlaneToCurrent()
	upper, end := l.points[0].Bone, l.points[2].Bone
	l.bendNormalRelToParent = spatialmath.RotateVector(spatialmath.Inverse(l.skel.ParentRotation(upper)), l.BendNormal)
	l.bendNormalRelToTarget = spatialmath.RotateVector(spatialmath.Inverse(l.skel.Rotation(end)), l.BendNormal)

	// Which side of the body the limb is on, judged in the parent's space.
	if parent := l.skel.Parent(upper); parent != skeleton.NoParent {
		local := l.skel.WorldPose(parent).InverseTransformPoint(l.skel.Position(upper))
		l.rightSide = local.X > 0
	}
}

// Update solves the limb for the current goal.
func (l *Limb) Update() {
	if !l.initiated || (l.IKPositionWeight <= 0 && l.IKRotationWeight <= 0) {
		return
	}
	l.readTarget()
	end := l.points[2].Bone
	animated := l.skel.Rotation(end)
	if l.IKPositionWeight > 0 {
		l.solvePosition(l.IKPosition, l.bendNormal(), l.IKPositionWeight)
	}
	l.solveRotation(animated, l.MaintainRotationWeight)
}

// bendNormal returns the bend plane normal selected by the modifier.
func (l *Limb) bendNormal() r3.Vector {
	animated := l.animatedBendNormal()
	if l.BendModifierWeight <= 0 {
		return animated
	}
	var n r3.Vector
	switch l.BendModifier {
	case BendModifierTarget:
		n = spatialmath.RotateVector(l.IKRotation, l.bendNormalRelToTarget)
	case BendModifierParent:
		n = spatialmath.RotateVector(l.skel.ParentRotation(l.points[0].Bone), l.bendNormalRelToParent)
	case BendModifierArm:
		n = l.armBendNormal()
	case BendModifierGoal:
		goal := l.BendGoal
		if l.BendGoalBone != NoTarget && l.skel.Valid(l.BendGoalBone) {
			goal = l.skel.Position(l.BendGoalBone)
		}
		root := l.skel.Position(l.points[0].Bone)
		n = bendNormalToward(goal.Sub(root), l.IKPosition.Sub(root))
	case BendModifierAnimation:
		return animated
	}
	if n.Norm() < minDirection {
		return animated
	}
	return spatialmath.SlerpDirection(animated, n.Normalize(), utils.Clamp01(l.BendModifierWeight)).Normalize()
}

// armBendNormal bends the elbow down and out, away from the side of the body the arm is on.
func (l *Limb) armBendNormal() r3.Vector {
	upper := l.points[0].Bone
	parentRot := l.skel.ParentRotation(upper)
	out := spatialmath.Right.Mul(-1)
	if l.rightSide {
		out = spatialmath.Right
	}
	local := spatialmath.Up.Mul(-1).Add(out.Mul(0.5)).Add(spatialmath.Forward.Mul(-0.5))
	elbow := spatialmath.RotateVector(parentRot, local)
	return bendNormalToward(elbow, l.IKPosition.Sub(l.skel.Position(upper)))
}
