// Package ik implements the inverse kinematics solvers that pose bones of a skeleton.Skeleton.
//
// Every solver follows the same lifecycle. A solver is constructed with the bones it owns, and
// Initiate validates them against a skeleton and caches segment lengths. Update then solves once
// per frame, writing rotations back to the skeleton. A solver whose chain was rejected stays
// uninitiated and ignores Update. FixTransforms restores the owned bones to their default local
// pose so each frame can start from the same input.
package ik

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/finalik/logging"
	"go.viam.com/finalik/rotationlimit"
	"go.viam.com/finalik/skeleton"
	"go.viam.com/finalik/utils"
)

// NoTarget marks a solver that reads its goal from IKPosition instead of a target bone.
const NoTarget = skeleton.NoParent

// Solver is the lifecycle shared by every solver.
type Solver interface {
	// Name identifies the solver in logs and errors.
	Name() string
	// Initiate validates the solver's bones against skel and prepares it for Update.
	Initiate(skel *skeleton.Skeleton) error
	// Initiated reports whether the last Initiate succeeded.
	Initiated() bool
	// Update solves once. It does nothing if the solver is not initiated or its weight is zero.
	Update()
	// FixTransforms restores every owned bone to its default local pose.
	FixTransforms()
	// StoreDefaultLocalState records the current local pose of every owned bone as its default.
	StoreDefaultLocalState()
	// IsValid reports whether the solver can run, and if not, writes the reason to msg.
	IsValid(msg *string) bool
	// Bones returns the bones the solver writes to.
	Bones() []skeleton.BoneID
	// SetIKPosition sets the world position goal.
	SetIKPosition(position r3.Vector)
	// SetIKPositionWeight sets the weight of the position goal, clamped to [0, 1].
	SetIKPositionWeight(weight float64)
	// SetWeight sets the weight of one bone in the chain.
	SetWeight(bone skeleton.BoneID, weight float64) error
	// SetLimit attaches a rotation limit to one bone in the chain.
	SetLimit(bone skeleton.BoneID, limit rotationlimit.Limit) error
}

// solverBase holds the state and settings common to every solver.
type solverBase struct {
	name   string
	logger logging.Logger

	skel      *skeleton.Skeleton
	points    []Point
	initiated bool
	err       error

	// IKPosition is the position goal in world space.
	IKPosition r3.Vector
	// IKPositionWeight blends the animated pose (0) with the solved pose (1).
	IKPositionWeight float64
	// Target, when not NoTarget, replaces IKPosition with the world position of that bone.
	Target skeleton.BoneID
}

func newSolverBase(name string, logger logging.Logger, bones []skeleton.BoneID) solverBase {
	if logger == nil {
		logger = logging.NewBlankLogger(name)
	}
	return solverBase{
		name:             name,
		logger:           logger,
		points:           newPoints(bones),
		IKPositionWeight: 1,
		Target:           NoTarget,
	}
}

// Name returns the solver's name.
func (s *solverBase) Name() string {
	return s.name
}

// Initiated reports whether the solver accepted its chain.
func (s *solverBase) Initiated() bool {
	return s.initiated
}

// IsValid reports whether the solver is ready to update.
func (s *solverBase) IsValid(msg *string) bool {
	if s.initiated {
		return true
	}
	err := s.err
	if err == nil {
		err = ErrNotInitiated
	}
	if msg != nil {
		*msg = err.Error()
	}
	return false
}

// SetIKPosition sets the world position goal.
func (s *solverBase) SetIKPosition(position r3.Vector) {
	s.IKPosition = position
}

// SetIKPositionWeight sets the weight of the position goal.
func (s *solverBase) SetIKPositionWeight(weight float64) {
	s.IKPositionWeight = utils.Clamp01(weight)
}

// Bones returns the chain in order.
func (s *solverBase) Bones() []skeleton.BoneID {
	return lo.Map(s.points, func(p Point, _ int) skeleton.BoneID { return p.Bone })
}

// Points returns a copy of the solver's point records.
func (s *solverBase) Points() []Point {
	return append([]Point(nil), s.points...)
}

// FixTransforms restores the default local pose of every bone in the chain.
func (s *solverBase) FixTransforms() {
	if !s.initiated {
		return
	}
	for _, p := range s.points {
		s.skel.FixTransform(p.Bone)
	}
}

// StoreDefaultLocalState records the current local pose of the chain as its default.
func (s *solverBase) StoreDefaultLocalState() {
	if !s.initiated {
		return
	}
	s.skel.StoreDefaultLocalState(s.Bones()...)
}

// SetWeight sets the weight of one bone in the chain.
func (s *solverBase) SetWeight(bone skeleton.BoneID, weight float64) error {
	i, err := s.pointIndex(bone)
	if err != nil {
		return err
	}
	s.points[i].Weight = utils.Clamp01(weight)
	return nil
}

// SetLimit attaches a rotation limit to one bone in the chain. A nil limit removes it.
func (s *solverBase) SetLimit(bone skeleton.BoneID, limit rotationlimit.Limit) error {
	i, err := s.pointIndex(bone)
	if err != nil {
		return err
	}
	s.points[i].Limit = limit
	return nil
}

func (s *solverBase) pointIndex(bone skeleton.BoneID) (int, error) {
	_, i, ok := lo.FindIndexOf(s.points, func(p Point) bool { return p.Bone == bone })
	if !ok {
		return -1, errors.Wrapf(ErrBoneNotInChain, "solver %q bone %d", s.name, bone)
	}
	return i, nil
}

// chainRule describes which bone sets a solver accepts.
type chainRule struct {
	minBones int
	// maxBones of zero means unbounded.
	maxBones int
	// hierarchical requires every bone to be a strict ancestor of the next.
	hierarchical bool
}

// validateChain checks bones against skel and rule.
func validateChain(name string, skel *skeleton.Skeleton, bones []skeleton.BoneID, rule chainRule) error {
	if skel == nil {
		return newInvalidChainError(name, bones, "no skeleton")
	}
	if len(bones) < rule.minBones {
		return newInvalidChainError(name, bones, "needs at least %d bones, got %d", rule.minBones, len(bones))
	}
	if rule.maxBones > 0 && len(bones) > rule.maxBones {
		return newInvalidChainError(name, bones, "accepts at most %d bones, got %d", rule.maxBones, len(bones))
	}
	for i, b := range bones {
		if !skel.Valid(b) {
			return newInvalidChainError(name, bones, "bone %d at index %d does not exist", b, i)
		}
	}
	if dups := lo.FindDuplicates(bones); len(dups) > 0 {
		return newInvalidChainError(name, bones, "duplicate bones %v", dups)
	}
	if rule.hierarchical {
		for i := 1; i < len(bones); i++ {
			if !skel.IsAncestor(bones[i-1], bones[i]) {
				return newInvalidChainError(name, bones, "%q is not an ancestor of %q",
					skel.Name(bones[i-1]), skel.Name(bones[i]))
			}
		}
	}
	return nil
}

// initiate validates the chain, measures segment lengths and records the default local pose.
// On failure the solver is left uninitiated and the error is logged.
func (s *solverBase) initiate(skel *skeleton.Skeleton, rule chainRule) error {
	s.initiated = false
	bones := s.Bones()
	if err := validateChain(s.name, skel, bones, rule); err != nil {
		return s.fail(err)
	}
	s.skel = skel
	for i := range s.points {
		s.points[i].Length = 0
		if i < len(s.points)-1 {
			s.points[i].Length = skel.Position(s.points[i+1].Bone).Sub(skel.Position(s.points[i].Bone)).Norm()
		}
	}
	skel.StoreDefaultLocalState(bones...)
	s.err = nil
	s.initiated = true
	return nil
}

func (s *solverBase) fail(err error) error {
	s.initiated = false
	s.err = err
	s.logger.Warnw("solver setup failed, it will not update", "solver", s.name, "error", err)
	return err
}

// targetPosition returns the goal position, read from the target bone when one is set.
func (s *solverBase) targetPosition() r3.Vector {
	if s.Target != NoTarget && s.skel.Valid(s.Target) {
		s.IKPosition = s.skel.Position(s.Target)
	}
	return s.IKPosition
}

// active reports whether Update should run.
func (s *solverBase) active() bool {
	return s.initiated && s.IKPositionWeight > 0
}

// chainLength returns the sum of the cached segment lengths.
func (s *solverBase) chainLength() float64 {
	return lo.SumBy(s.points, func(p Point) float64 { return p.Length })
}

// applyLimits projects every limited bone's local rotation into its allowed range, root first.
func (s *solverBase) applyLimits() {
	for _, p := range s.points {
		s.limitPoint(p)
	}
}

// limitPoint projects one bone's local rotation into the range of its limit, if it has one.
func (s *solverBase) limitPoint(p Point) {
	if p.Limit == nil {
		return
	}
	defaultLocal := s.skel.Bone(p.Bone).DefaultLocalRotation
	if limited, changed := rotationlimit.Apply(p.Limit, defaultLocal, s.skel.LocalRotation(p.Bone)); changed {
		s.skel.SetLocalRotation(p.Bone, limited)
	}
}
