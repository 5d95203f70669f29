package ik

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/finalik/logging"
	"go.viam.com/finalik/skeleton"
	"go.viam.com/finalik/spatialmath"
	"go.viam.com/finalik/utils"
)

// Aim rotates a chain of bones so that Axis of AimTransform points at IKPosition. AimTransform
// is the last bone of the chain or one of its descendants, for example a gun held in the hand.
// Tolerance is an angle in degrees.
type Aim struct {
	heuristic

	AimTransform skeleton.BoneID
	// Axis is the direction in AimTransform's local space that should point at the goal.
	Axis r3.Vector
	// PoleAxis is a second local direction of AimTransform, turned around Axis toward
	// PolePosition by PoleWeight.
	PoleAxis     r3.Vector
	PolePosition r3.Vector
	PoleWeight   float64
	// ClampWeight limits how far the chain may turn the axis away from its animated direction.
	// 0 is free and 1 does not turn at all.
	ClampWeight    float64
	ClampSmoothing int
}

var _ Solver = (*Aim)(nil)

// NewAim returns an aim solver that turns bones, root first, to point aimTransform's axis.
func NewAim(name string, logger logging.Logger, aimTransform skeleton.BoneID, bones ...skeleton.BoneID) *Aim {
	a := &Aim{
		heuristic:      newHeuristic(newSolverBase(name, logger, bones)),
		AimTransform:   aimTransform,
		Axis:           spatialmath.Forward,
		PoleAxis:       spatialmath.Up,
		ClampWeight:    0.1,
		ClampSmoothing: 2,
	}
	return a
}

// Initiate validates the chain and the aim transform, and aims IKPosition along the axis.
func (a *Aim) Initiate(skel *skeleton.Skeleton) error {
	if err := a.initiate(skel, chainRule{minBones: 1, hierarchical: true}); err != nil {
		return err
	}
	last := a.points[len(a.points)-1].Bone
	if !skel.Valid(a.AimTransform) {
		return a.fail(newInvalidChainError(a.name, a.Bones(), "aim transform %d does not exist", a.AimTransform))
	}
	if a.AimTransform != last && !skel.IsAncestor(last, a.AimTransform) {
		return a.fail(newInvalidChainError(a.name, a.Bones(), "aim transform %q is not below %q",
			skel.Name(a.AimTransform), skel.Name(last)))
	}
	if a.Axis.Norm() < minDirection {
		return a.fail(newInvalidChainError(a.name, a.Bones(), "axis is zero"))
	}
	a.IKPosition = skel.Position(a.AimTransform).Add(a.axisWorld())
	a.PolePosition = skel.Position(a.AimTransform).Add(a.poleWorld())
	return nil
}

func (a *Aim) axisWorld() r3.Vector {
	return spatialmath.RotateVector(a.skel.Rotation(a.AimTransform), a.Axis.Normalize())
}

func (a *Aim) poleWorld() r3.Vector {
	return spatialmath.RotateVector(a.skel.Rotation(a.AimTransform), a.PoleAxis)
}

// AngleError returns the angle in degrees between the aim axis and the direction to the goal.
func (a *Aim) AngleError() float64 {
	if !a.initiated {
		return 0
	}
	return utils.RadToDeg(spatialmath.Angle(a.axisWorld(), a.IKPosition.Sub(a.skel.Position(a.AimTransform))))
}

// Update turns the chain toward the goal.
func (a *Aim) Update() {
	a.resetIterations()
	if !a.active() {
		return
	}
	goal := a.targetPosition()
	origin := a.skel.Position(a.AimTransform)
	toGoal := goal.Sub(origin)
	if toGoal.Norm() < minDirection {
		return
	}
	before := a.localRotations()

	clamped, _ := spatialmath.ClampDirection(toGoal, a.axisWorld().Mul(toGoal.Norm()), a.ClampWeight, a.ClampSmoothing)
	goal = origin.Add(clamped)

	for i := 0; i < a.MaxIterations; i++ {
		if i > 0 && a.angleTo(goal) <= a.Tolerance {
			break
		}
		a.sweep(goal)
		a.recordIteration(a.angleTo(goal))
	}
	if a.PoleWeight > 0 {
		a.solvePole()
	}
	if a.UseRotationLimits {
		a.applyLimits()
	}
	a.blend(before)
}

func (a *Aim) angleTo(goal r3.Vector) float64 {
	return utils.RadToDeg(spatialmath.Angle(a.axisWorld(), goal.Sub(a.skel.Position(a.AimTransform))))
}

// sweep turns each bone, root first, by its share of the rotation still needed. The last bone
// takes all of what is left.
func (a *Aim) sweep(goal r3.Vector) {
	n := len(a.points)
	for i, p := range a.points {
		if p.Weight <= 0 {
			continue
		}
		share := p.Weight * float64(i+1) / float64(n)
		rot := spatialmath.FromToRotation(a.axisWorld(), goal.Sub(a.skel.Position(a.AimTransform)))
		a.skel.Rotate(p.Bone, spatialmath.Slerp(spatialmath.QuatIdentity(), rot, share))
	}
}

// solvePole twists the last bone around the aim axis so PoleAxis turns toward PolePosition.
func (a *Aim) solvePole() {
	axis := a.axisWorld()
	pole := spatialmath.ProjectOnPlane(a.poleWorld(), axis)
	toPole := spatialmath.ProjectOnPlane(a.PolePosition.Sub(a.skel.Position(a.AimTransform)), axis)
	if pole.Norm() < minDirection || toPole.Norm() < minDirection {
		return
	}
	rot := spatialmath.FromToRotation(pole, toPole)
	last := a.points[len(a.points)-1].Bone
	a.skel.Rotate(last, spatialmath.Slerp(spatialmath.QuatIdentity(), rot, utils.Clamp01(a.PoleWeight)))
}

func (a *Aim) localRotations() []quat.Number {
	out := make([]quat.Number, len(a.points))
	for i, p := range a.points {
		out[i] = a.skel.LocalRotation(p.Bone)
	}
	return out
}

// blend pulls the solved rotations back toward before by 1 - IKPositionWeight.
func (a *Aim) blend(before []quat.Number) {
	if a.IKPositionWeight >= 1 {
		return
	}
	for i, p := range a.points {
		a.skel.SetLocalRotation(p.Bone, spatialmath.Slerp(before[i], a.skel.LocalRotation(p.Bone), a.IKPositionWeight))
	}
}
