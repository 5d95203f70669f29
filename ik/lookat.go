package ik

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/finalik/logging"
	"go.viam.com/finalik/skeleton"
	"go.viam.com/finalik/spatialmath"
	"go.viam.com/finalik/utils"
)

// lookAtPart is one rotating part of a LookAt: a spine bone, the head or an eye.
type lookAtPart struct {
	bone skeleton.BoneID
	// axis is the bone local direction that faces forward.
	axis r3.Vector
}

func (p lookAtPart) forward(skel *skeleton.Skeleton) r3.Vector {
	return spatialmath.RotateVector(skel.Rotation(p.bone), p.axis)
}

// LookAt turns a spine, a head and eyes toward IKPosition. The spine turns first, sharing the
// rotation between its bones by their weights. Whatever the spine leaves undone because of
// BodyWeight or ClampWeight is picked up by the head, and what the head leaves is picked up by
// the eyes.
type LookAt struct {
	solverBase

	// Forward is the world direction the character faces when Initiate is called. Each part
	// measures its facing along this direction in its own local space.
	Forward r3.Vector

	BodyWeight float64
	HeadWeight float64
	EyesWeight float64
	// ClampWeight, ClampWeightHead and ClampWeightEyes limit how far each part may turn away
	// from its animated facing. 0 is free and 1 does not turn at all.
	ClampWeight     float64
	ClampWeightHead float64
	ClampWeightEyes float64
	// ClampSmoothing is the number of smoothing passes, 0 to 2, applied at the clamp boundary.
	ClampSmoothing int

	spine []lookAtPart
	head  *lookAtPart
	eyes  []lookAtPart
}

var _ Solver = (*LookAt)(nil)

// NewLookAt returns a look-at solver. Any of spine, head and eyes may be empty, head may be
// skeleton.NoParent, but at least one part must be given.
func NewLookAt(name string, logger logging.Logger, spine []skeleton.BoneID, head skeleton.BoneID, eyes []skeleton.BoneID) *LookAt {
	bones := append([]skeleton.BoneID(nil), spine...)
	if head != skeleton.NoParent {
		bones = append(bones, head)
	}
	bones = append(bones, eyes...)
	l := &LookAt{
		solverBase:      newSolverBase(name, logger, bones),
		Forward:         spatialmath.Forward,
		BodyWeight:      0.5,
		HeadWeight:      0.5,
		EyesWeight:      1,
		ClampWeight:     0.5,
		ClampWeightHead: 0.5,
		ClampWeightEyes: 0.5,
		ClampSmoothing:  2,
	}
	l.spine = lo.Map(spine, func(b skeleton.BoneID, _ int) lookAtPart { return lookAtPart{bone: b} })
	if head != skeleton.NoParent {
		l.head = &lookAtPart{bone: head}
	}
	l.eyes = lo.Map(eyes, func(b skeleton.BoneID, _ int) lookAtPart { return lookAtPart{bone: b} })
	return l
}

// Initiate validates the parts against skel, records their facing and aims IKPosition straight
// ahead of the head.
func (l *LookAt) Initiate(skel *skeleton.Skeleton) error {
	if err := l.initiate(skel, chainRule{minBones: 1}); err != nil {
		return err
	}
	if err := l.validateParts(); err != nil {
		return l.fail(err)
	}
	forward := l.Forward
	if forward.Norm() < minDirection {
		forward = spatialmath.Forward
	}
	forward = forward.Normalize()
	setAxis := func(p *lookAtPart) {
		p.axis = spatialmath.RotateVector(spatialmath.Inverse(skel.Rotation(p.bone)), forward)
	}
	for i := range l.spine {
		setAxis(&l.spine[i])
	}
	if l.head != nil {
		setAxis(l.head)
	}
	for i := range l.eyes {
		setAxis(&l.eyes[i])
	}
	l.IKPosition = l.origin().Add(forward)
	return nil
}

// validateParts checks that the spine is a parent chain and the head sits below it.
func (l *LookAt) validateParts() error {
	spine := lo.Map(l.spine, func(p lookAtPart, _ int) skeleton.BoneID { return p.bone })
	if len(spine) > 1 {
		if err := validateChain(l.name, l.skel, spine, chainRule{minBones: 1, hierarchical: true}); err != nil {
			return err
		}
	}
	if l.head != nil && len(spine) > 0 && !l.skel.IsAncestor(spine[len(spine)-1], l.head.bone) {
		return newInvalidChainError(l.name, l.Bones(), "head %q is not below the spine", l.skel.Name(l.head.bone))
	}
	return nil
}

// SetSpineWeight sets the share of the spine rotation one spine bone takes relative to the others.
func (l *LookAt) SetSpineWeight(bone skeleton.BoneID, weight float64) error {
	if !lo.ContainsBy(l.spine, func(p lookAtPart) bool { return p.bone == bone }) {
		return errors.Wrapf(ErrBoneNotInChain, "solver %q spine bone %d", l.name, bone)
	}
	return l.SetWeight(bone, weight)
}

// origin is the point the look direction is measured from.
func (l *LookAt) origin() r3.Vector {
	switch {
	case l.head != nil:
		return l.skel.Position(l.head.bone)
	case len(l.spine) > 0:
		return l.skel.Position(l.spine[len(l.spine)-1].bone)
	default:
		return average(lo.Map(l.eyes, func(p lookAtPart, _ int) r3.Vector { return l.skel.Position(p.bone) }))
	}
}

// Update turns the parts toward the goal.
func (l *LookAt) Update() {
	if !l.active() {
		return
	}
	goal := l.targetPosition()
	l.solveSpine(goal)
	if l.head != nil {
		l.turnPart(*l.head, goal, l.HeadWeight, l.ClampWeightHead)
	}
	for _, eye := range l.eyes {
		l.turnPart(eye, goal, l.EyesWeight, l.ClampWeightEyes)
	}
}

// solveSpine turns the last spine bone's facing toward the goal, sharing the rotation between
// spine bones by weight. Each bone takes its share of what is left, so the last bone finishes.
func (l *LookAt) solveSpine(goal r3.Vector) {
	w := l.BodyWeight * l.IKPositionWeight
	if w <= 0 || len(l.spine) == 0 {
		return
	}
	end := l.spine[len(l.spine)-1]
	facing := end.forward(l.skel)
	toGoal := goal.Sub(l.origin())
	if toGoal.Norm() < minDirection {
		return
	}
	clamped, _ := spatialmath.ClampDirection(toGoal.Normalize(), facing, l.ClampWeight, l.ClampSmoothing)
	desired := spatialmath.SlerpDirection(facing, clamped, w)

	weights := lo.Map(l.spine, func(_ lookAtPart, i int) float64 { return l.points[i].Weight })
	remaining := lo.Sum(weights)
	for i, part := range l.spine {
		if remaining <= 0 {
			break
		}
		share := weights[i] / remaining
		remaining -= weights[i]
		if share <= 0 {
			continue
		}
		rot := spatialmath.FromToRotation(end.forward(l.skel), desired)
		l.skel.Rotate(part.bone, spatialmath.Slerp(spatialmath.QuatIdentity(), rot, share))
	}
}

// turnPart turns one part toward the goal by weight, within its clamp.
func (l *LookAt) turnPart(part lookAtPart, goal r3.Vector, weight, clampWeight float64) {
	w := utils.Clamp01(weight * l.IKPositionWeight)
	if w <= 0 {
		return
	}
	toGoal := goal.Sub(l.skel.Position(part.bone))
	if toGoal.Norm() < minDirection {
		return
	}
	facing := part.forward(l.skel)
	clamped, _ := spatialmath.ClampDirection(toGoal.Normalize(), facing, clampWeight, l.ClampSmoothing)
	desired := spatialmath.SlerpDirection(facing, clamped, w)
	l.skel.Rotate(part.bone, spatialmath.FromToRotation(facing, desired))
}

func average(vs []r3.Vector) r3.Vector {
	if len(vs) == 0 {
		return r3.Vector{}
	}
	var sum r3.Vector
	for _, v := range vs {
		sum = sum.Add(v)
	}
	return sum.Mul(1 / float64(len(vs)))
}
