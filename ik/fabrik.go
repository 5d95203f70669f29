package ik

import (
	"github.com/golang/geo/r3"

	"go.viam.com/finalik/logging"
	"go.viam.com/finalik/skeleton"
	"go.viam.com/finalik/spatialmath"
)

var fabrikChain = chainRule{minBones: 2, hierarchical: true}

// FABRIK solves a chain of two or more bones for a position goal by alternately reaching from
// the tip to the goal and from the anchored root back out. Rotations are derived from the
// solved positions once the positions have converged, and rotation limits are applied last, so
// tight limits can leave the tip short of the goal.
type FABRIK struct {
	heuristic
}

var _ Solver = (*FABRIK)(nil)

// NewFABRIK returns a FABRIK solver for bones, root first.
func NewFABRIK(name string, logger logging.Logger, bones ...skeleton.BoneID) *FABRIK {
	return &FABRIK{heuristic: newHeuristic(newSolverBase(name, logger, bones))}
}

// Initiate validates the chain and takes the current tip position as the goal.
func (f *FABRIK) Initiate(skel *skeleton.Skeleton) error {
	if err := f.initiate(skel, fabrikChain); err != nil {
		return err
	}
	f.IKPosition = skel.Position(f.points[len(f.points)-1].Bone)
	return nil
}

// Update solves the chain for the current goal.
func (f *FABRIK) Update() {
	f.resetIterations()
	if !f.active() {
		return
	}
	last := len(f.points) - 1
	// Read every position before writing any.
	for i := range f.points {
		f.points[i].solverPosition = f.skel.Position(f.points[i].Bone)
	}
	root := f.points[0].solverPosition
	goal := spatialmath.LerpVector(f.points[last].solverPosition, f.targetPosition(), f.IKPositionWeight)

	if goal.Sub(root).Norm() >= f.chainLength() {
		f.straighten(goal)
	} else {
		dist := f.points[last].solverPosition.Sub(goal).Norm()
		for i := 0; i < f.MaxIterations && dist > f.Tolerance; i++ {
			f.forwardReach(goal)
			f.backwardReach(root)
			dist = f.points[last].solverPosition.Sub(goal).Norm()
			f.recordIteration(dist)
		}
	}

	f.mapToSolverPositions()
	if f.UseRotationLimits {
		f.applyLimits()
	}
}

// straighten lines the chain up from the root toward goal.
func (f *FABRIK) straighten(goal r3.Vector) {
	dir := goal.Sub(f.points[0].solverPosition)
	if dir.Norm() < minDirection {
		return
	}
	dir = dir.Normalize()
	for i := 1; i < len(f.points); i++ {
		f.points[i].solverPosition = f.points[i-1].solverPosition.Add(dir.Mul(f.points[i-1].Length))
	}
}

// forwardReach places the tip on goal and walks toward the root, keeping segment lengths.
func (f *FABRIK) forwardReach(goal r3.Vector) {
	last := len(f.points) - 1
	f.points[last].solverPosition = goal
	for i := last - 1; i >= 0; i-- {
		f.points[i].solverPosition = f.solveJoint(f.points[i].solverPosition, f.points[i+1].solverPosition, f.points[i].Length)
	}
}

// backwardReach anchors the root and walks toward the tip, keeping segment lengths.
func (f *FABRIK) backwardReach(root r3.Vector) {
	f.points[0].solverPosition = root
	for i := 1; i < len(f.points); i++ {
		f.points[i].solverPosition = f.solveJoint(f.points[i].solverPosition, f.points[i-1].solverPosition, f.points[i-1].Length)
	}
}

// solveJoint moves pos onto the sphere of radius length around anchor, along the line between them.
func (f *FABRIK) solveJoint(pos, anchor r3.Vector, length float64) r3.Vector {
	dir := pos.Sub(anchor)
	if dir.Norm() < minDirection {
		// coincident joints, push out along Forward
		dir = spatialmath.Forward
	}
	return anchor.Add(dir.Normalize().Mul(length))
}

// mapToSolverPositions rotates the bones, root first, so each points at its solved successor.
// Each rotation is scaled by the bone's weight.
func (f *FABRIK) mapToSolverPositions() {
	for i := 0; i < len(f.points)-1; i++ {
		p := f.points[i]
		if p.Weight <= 0 {
			continue
		}
		pos := f.skel.Position(p.Bone)
		current := f.skel.Position(f.points[i+1].Bone).Sub(pos)
		solved := f.points[i+1].solverPosition.Sub(f.points[i].solverPosition)
		rot := spatialmath.FromToRotation(current, solved)
		f.skel.Rotate(p.Bone, spatialmath.Slerp(spatialmath.QuatIdentity(), rot, p.Weight))
	}
}
