package ik

import (
	"github.com/golang/geo/r3"

	"go.viam.com/finalik/logging"
	"go.viam.com/finalik/skeleton"
	"go.viam.com/finalik/spatialmath"
)

var ccdChain = chainRule{minBones: 2, hierarchical: true}

// CCD solves an arbitrary chain by cyclic coordinate descent. Each iteration sweeps from the
// bone nearest the tip to the root, turning each bone so the tip moves toward the goal. A goal
// out of reach simply exhausts MaxIterations.
type CCD struct {
	heuristic
}

var _ Solver = (*CCD)(nil)

// NewCCD returns a CCD solver for bones, root first. The last bone is the end effector.
func NewCCD(name string, logger logging.Logger, bones ...skeleton.BoneID) *CCD {
	return &CCD{heuristic: newHeuristic(newSolverBase(name, logger, bones))}
}

// Initiate validates the chain and takes the current tip position as the goal.
func (c *CCD) Initiate(skel *skeleton.Skeleton) error {
	if err := c.initiate(skel, ccdChain); err != nil {
		return err
	}
	c.IKPosition = skel.Position(c.points[len(c.points)-1].Bone)
	return nil
}

// Update solves the chain for the current goal.
func (c *CCD) Update() {
	c.resetIterations()
	if !c.active() {
		return
	}
	tip := c.points[len(c.points)-1].Bone
	goal := spatialmath.LerpVector(c.skel.Position(tip), c.targetPosition(), c.IKPositionWeight)
	dist := c.skel.Position(tip).Sub(goal).Norm()
	for i := 0; i < c.MaxIterations && dist > c.Tolerance; i++ {
		c.sweep(goal)
		dist = c.skel.Position(tip).Sub(goal).Norm()
		c.recordIteration(dist)
	}
}

func (c *CCD) sweep(goal r3.Vector) {
	tip := c.points[len(c.points)-1].Bone
	for i := len(c.points) - 2; i >= 0; i-- {
		p := c.points[i]
		if p.Weight <= 0 {
			continue
		}
		pos := c.skel.Position(p.Bone)
		rot := spatialmath.FromToRotation(c.skel.Position(tip).Sub(pos), goal.Sub(pos))
		c.skel.Rotate(p.Bone, spatialmath.Slerp(spatialmath.QuatIdentity(), rot, p.Weight))
		if c.UseRotationLimits {
			c.limitPoint(p)
		}
	}
}
