package rig

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/finalik/ik"
	"go.viam.com/finalik/logging"
	"go.viam.com/finalik/pipeline"
	"go.viam.com/finalik/skeleton"
	"go.viam.com/finalik/utils"
)

// Goal selects one of a biped's limbs.
type Goal int

// The four limbs of a biped.
const (
	LeftFoot Goal = iota
	RightFoot
	LeftHand
	RightHand
)

func (g Goal) String() string {
	switch g {
	case LeftFoot:
		return "left foot"
	case RightFoot:
		return "right foot"
	case LeftHand:
		return "left hand"
	case RightHand:
		return "right hand"
	default:
		return "unknown goal"
	}
}

// BipedIK drives the limbs, spine, head and aim of a biped. Each Update runs, in order: fix
// transforms, spine, aim, look at, the four limbs, then any post stages.
//
// Every solver starts with zero weight, so a new BipedIK leaves the animated pose alone.
type BipedIK struct {
	logger logging.Logger
	skel   *skeleton.Skeleton
	refs   BipedReferences

	// FixTransforms restores the default local pose of every solved bone before solving.
	FixTransforms bool

	Spine  *ik.FABRIK
	Aim    *ik.Aim
	LookAt *ik.LookAt
	limbs  [4]*ik.Limb

	pipeline *pipeline.Pipeline
}

// NewBipedIK validates refs against skel and builds the solvers.
func NewBipedIK(logger logging.Logger, skel *skeleton.Skeleton, refs BipedReferences) (*BipedIK, error) {
	if logger == nil {
		logger = logging.NewBlankLogger("biped")
	}
	if err := refs.Validate(skel); err != nil {
		return nil, errors.Wrap(err, "invalid biped references")
	}
	b := &BipedIK{logger: logger, skel: skel, refs: refs, FixTransforms: true}

	b.limbs[LeftFoot] = ik.NewLimb("left foot", logger.Sublogger("left_foot"), refs.LeftThigh, refs.LeftCalf, refs.LeftFoot)
	b.limbs[RightFoot] = ik.NewLimb("right foot", logger.Sublogger("right_foot"), refs.RightThigh, refs.RightCalf, refs.RightFoot)
	b.limbs[LeftHand] = ik.NewLimb("left hand", logger.Sublogger("left_hand"), refs.LeftUpperArm, refs.LeftForearm, refs.LeftHand)
	b.limbs[RightHand] = ik.NewLimb("right hand", logger.Sublogger("right_hand"), refs.RightUpperArm, refs.RightForearm, refs.RightHand)
	for i, limb := range b.limbs {
		if i >= int(LeftHand) {
			limb.BendModifier = ik.BendModifierArm
		}
		if err := limb.Initiate(skel); err != nil {
			return nil, err
		}
		limb.IKPositionWeight = 0
	}

	b.Spine = ik.NewFABRIK("spine", logger.Sublogger("spine"), refs.Spine...)
	if len(refs.Spine) >= 2 {
		if err := b.Spine.Initiate(skel); err != nil {
			return nil, err
		}
	}
	b.Spine.IKPositionWeight = 0

	b.LookAt = ik.NewLookAt("look at", logger.Sublogger("look_at"), refs.Spine, refs.Head, refs.Eyes)
	if err := b.LookAt.Initiate(skel); err != nil {
		return nil, err
	}
	b.LookAt.IKPositionWeight = 0

	b.Aim = ik.NewAim("aim", logger.Sublogger("aim"), skeleton.NoParent, refs.Spine...)
	b.Aim.IKPositionWeight = 0

	b.pipeline = pipeline.New(logger).
		AddFunc("fix transforms", func() error {
			if b.FixTransforms {
				b.fixTransforms()
			}
			return nil
		}).
		Add(pipeline.UpdateStage(b.Spine), pipeline.UpdateStage(b.Aim), pipeline.UpdateStage(b.LookAt))
	for _, limb := range b.limbs {
		b.pipeline.Add(pipeline.UpdateStage(limb))
	}
	return b, nil
}

// References returns the bones the rig was built from.
func (b *BipedIK) References() BipedReferences {
	return b.refs
}

// Limb returns the solver of one limb.
func (b *BipedIK) Limb(goal Goal) *ik.Limb {
	return b.limbs[goal]
}

// SetAimTransform makes bone the aimed transform, for example a gun held in the hand, and starts
// the aim solver. Bone must be below the last spine bone.
func (b *BipedIK) SetAimTransform(bone skeleton.BoneID) error {
	weight := b.Aim.IKPositionWeight
	b.Aim.AimTransform = bone
	if err := b.Aim.Initiate(b.skel); err != nil {
		return err
	}
	b.Aim.IKPositionWeight = weight
	return nil
}

// SetIKPosition sets the position goal of a limb.
func (b *BipedIK) SetIKPosition(goal Goal, position r3.Vector) {
	b.limbs[goal].IKPosition = position
}

// SetIKPositionWeight sets the position weight of a limb, clamped to [0, 1].
func (b *BipedIK) SetIKPositionWeight(goal Goal, weight float64) {
	b.limbs[goal].SetIKPositionWeight(weight)
}

// SetIKRotationWeight sets the rotation weight of a limb, clamped to [0, 1].
func (b *BipedIK) SetIKRotationWeight(goal Goal, weight float64) {
	b.limbs[goal].IKRotationWeight = utils.Clamp01(weight)
}

// SetLookAtPosition sets the point the head looks at.
func (b *BipedIK) SetLookAtPosition(position r3.Vector) {
	b.LookAt.IKPosition = position
}

// SetLookAtWeight sets the look at weights, each clamped to [0, 1]. The clamp weights limit how
// far each group turns.
func (b *BipedIK) SetLookAtWeight(weight, bodyWeight, headWeight, eyesWeight, clampWeight, clampWeightHead, clampWeightEyes float64) {
	b.LookAt.SetIKPositionWeight(weight)
	b.LookAt.BodyWeight = utils.Clamp01(bodyWeight)
	b.LookAt.HeadWeight = utils.Clamp01(headWeight)
	b.LookAt.EyesWeight = utils.Clamp01(eyesWeight)
	b.LookAt.ClampWeight = utils.Clamp01(clampWeight)
	b.LookAt.ClampWeightHead = utils.Clamp01(clampWeightHead)
	b.LookAt.ClampWeightEyes = utils.Clamp01(clampWeightEyes)
}

// SetSpinePosition sets the goal of the spine tip and its weight.
func (b *BipedIK) SetSpinePosition(position r3.Vector, weight float64) {
	b.Spine.IKPosition = position
	b.Spine.SetIKPositionWeight(weight)
}

// AddPostStage appends a stage that runs after every solver, such as a poser or ragdoll blending.
func (b *BipedIK) AddPostStage(stage pipeline.Stage) {
	b.pipeline.Add(stage)
}

// Stages returns the names of the per-frame stages in run order.
func (b *BipedIK) Stages() []string {
	return b.pipeline.Stages()
}

// Solvers returns every solver of the rig in the order they run.
func (b *BipedIK) Solvers() []ik.Solver {
	return []ik.Solver{b.Spine, b.Aim, b.LookAt, b.limbs[LeftFoot], b.limbs[RightFoot], b.limbs[LeftHand], b.limbs[RightHand]}
}

// Update solves one frame.
func (b *BipedIK) Update() error {
	return b.pipeline.Run()
}

func (b *BipedIK) fixTransforms() {
	for _, s := range b.Solvers() {
		s.FixTransforms()
	}
}

// StoreDefaultLocalState records the current pose of every solved bone as its default.
func (b *BipedIK) StoreDefaultLocalState() {
	for _, s := range b.Solvers() {
		s.StoreDefaultLocalState()
	}
}
