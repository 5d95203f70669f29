package rig

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/finalik/ik"
	"go.viam.com/finalik/logging"
	"go.viam.com/finalik/pipeline"
	"go.viam.com/finalik/skeleton"
	"go.viam.com/finalik/utils"
)

// Finger is a three bone finger solved analytically.
type Finger struct {
	solver *ik.Trigonometric

	// Weight of the position goal, multiplied by the rig's weight.
	Weight float64
	// RotationWeight of the tip rotation goal, multiplied by the rig's weight.
	RotationWeight float64
}

// Solver returns the finger's solver. Its goal fields may be set directly.
func (f *Finger) Solver() *ik.Trigonometric {
	return f.solver
}

// SetTarget makes the finger follow a bone instead of its IKPosition.
func (f *Finger) SetTarget(bone skeleton.BoneID) {
	f.solver.Target = bone
}

// SetIKPosition sets the world position goal of the fingertip.
func (f *Finger) SetIKPosition(position r3.Vector) {
	f.solver.IKPosition = position
}

// FingerRig solves a hand's fingers together under one weight.
type FingerRig struct {
	name   string
	logger logging.Logger
	skel   *skeleton.Skeleton

	// Weight is the master weight of every finger.
	Weight float64
	// FixTransforms restores the fingers' default local pose before solving.
	FixTransforms bool

	fingers []*Finger
}

// NewFingerRig returns an empty finger rig for skel.
func NewFingerRig(name string, logger logging.Logger, skel *skeleton.Skeleton) *FingerRig {
	if logger == nil {
		logger = logging.NewBlankLogger(name)
	}
	return &FingerRig{name: name, logger: logger, skel: skel, Weight: 1, FixTransforms: true}
}

// Name returns the rig's name.
func (r *FingerRig) Name() string {
	return r.name
}

// AddFinger adds a finger made of bone1 -> bone2 -> tip. The finger's goal starts at the tip's
// current pose so a new finger does not move until a goal is set.
func (r *FingerRig) AddFinger(name string, bone1, bone2, tip skeleton.BoneID) (*Finger, error) {
	solver := ik.NewTrigonometric(name, r.logger.Sublogger(name), bone1, bone2, tip)
	if err := solver.Initiate(r.skel); err != nil {
		return nil, errors.Wrapf(err, "finger %q", name)
	}
	f := &Finger{solver: solver, Weight: 1}
	r.fingers = append(r.fingers, f)
	return f, nil
}

// Fingers returns the fingers in the order they were added.
func (r *FingerRig) Fingers() []*Finger {
	return append([]*Finger(nil), r.fingers...)
}

// Validate reports every finger that could not be initiated.
func (r *FingerRig) Validate() error {
	var errs error
	for _, f := range r.fingers {
		var msg string
		if !f.solver.IsValid(&msg) {
			errs = multierr.Append(errs, errors.Errorf("finger %q: %s", f.solver.Name(), msg))
		}
	}
	return errs
}

// Update solves every finger.
func (r *FingerRig) Update() {
	weight := utils.Clamp01(r.Weight)
	if weight <= 0 {
		return
	}
	for _, f := range r.fingers {
		if r.FixTransforms {
			f.solver.FixTransforms()
		}
		f.solver.IKPositionWeight = weight * utils.Clamp01(f.Weight)
		f.solver.IKRotationWeight = weight * utils.Clamp01(f.RotationWeight)
		f.solver.Update()
	}
}

// Stage returns the rig as a pipeline stage.
func (r *FingerRig) Stage() pipeline.Stage {
	return pipeline.UpdateStage(r)
}

// StoreDefaultLocalState records the fingers' current pose as their default.
func (r *FingerRig) StoreDefaultLocalState() {
	for _, f := range r.fingers {
		f.solver.StoreDefaultLocalState()
	}
}
