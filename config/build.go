package config

import (
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"

	"go.viam.com/finalik/ik"
	"go.viam.com/finalik/logging"
	"go.viam.com/finalik/pipeline"
	"go.viam.com/finalik/rig"
	"go.viam.com/finalik/rotationlimit"
	"go.viam.com/finalik/skeleton"
	"go.viam.com/finalik/utils"
)

// Rig is a built rig file: the skeleton and the solvers that pose it.
type Rig struct {
	Skeleton *skeleton.Skeleton
	// Biped is nil unless the file names biped bones.
	Biped *rig.BipedIK
	// FixTransforms restores the default local pose of every solved bone at the start of Update.
	FixTransforms bool

	solvers  []ik.Solver
	pipeline *pipeline.Pipeline
}

// Solver returns the solver called name.
func (r *Rig) Solver(name string) (ik.Solver, error) {
	s, ok := lo.Find(r.solvers, func(s ik.Solver) bool { return s.Name() == name })
	if !ok {
		return nil, errors.Errorf("no solver named %q", name)
	}
	return s, nil
}

// SolverAs returns the solver called name as its concrete type, such as *ik.FABRIK.
func SolverAs[T ik.Solver](r *Rig, name string) (T, error) {
	s, err := r.Solver(name)
	if err != nil {
		var zero T
		return zero, err
	}
	return utils.AssertType[T](s)
}

// Solvers returns the solvers in the order they run.
func (r *Rig) Solvers() []ik.Solver {
	return append([]ik.Solver(nil), r.solvers...)
}

// Stages returns the names of the per-frame stages in run order.
func (r *Rig) Stages() []string {
	return r.pipeline.Stages()
}

// Update solves one frame: the solvers in file order, then the biped.
func (r *Rig) Update() error {
	return r.pipeline.Run()
}

// Build creates the skeleton and solvers the config describes.
func (c *RigConfig) Build(logger logging.Logger) (*Rig, error) {
	if logger == nil {
		logger = logging.NewBlankLogger("rig")
	}
	skel, err := c.Skeleton.Build()
	if err != nil {
		return nil, err
	}
	r := &Rig{Skeleton: skel, FixTransforms: true}

	var errs error
	for _, sc := range c.Solvers {
		s, err := sc.Build(logger.Sublogger(sc.Name), skel)
		if err != nil {
			errs = multierr.Append(errs, errors.Wrapf(err, "solver %q", sc.Name))
			continue
		}
		r.solvers = append(r.solvers, s)
	}
	if c.Biped != nil {
		refs, err := c.Biped.References(skel)
		if err == nil {
			r.Biped, err = rig.NewBipedIK(logger.Sublogger("biped"), skel, refs)
		}
		errs = multierr.Append(errs, err)
	}
	if errs != nil {
		return nil, errs
	}

	r.pipeline = pipeline.New(logger).AddFunc("fix transforms", func() error {
		if r.FixTransforms {
			for _, s := range r.solvers {
				s.FixTransforms()
			}
		}
		return nil
	})
	for _, s := range r.solvers {
		r.pipeline.Add(pipeline.UpdateStage(s))
	}
	if r.Biped != nil {
		r.pipeline.AddFunc("biped", r.Biped.Update)
	}
	return r, nil
}

// Build creates the skeleton.
func (c *SkeletonConfig) Build() (*skeleton.Skeleton, error) {
	skel := skeleton.New()
	for _, b := range c.Bones {
		parent := skeleton.NoParent
		if b.Parent != "" {
			var err error
			if parent, err = skel.ByName(b.Parent); err != nil {
				return nil, errors.Wrapf(err, "parent of %q", b.Name)
			}
		}
		add := skel.AddBone
		if c.World {
			add = skel.AddBoneWorld
		}
		if _, err := add(b.Name, parent, b.Position.Vector(), b.Orientation()); err != nil {
			return nil, err
		}
	}
	return skel, nil
}

func lookup(skel *skeleton.Skeleton, names []string) ([]skeleton.BoneID, error) {
	ids := make([]skeleton.BoneID, 0, len(names))
	for _, n := range names {
		id, err := skel.ByName(n)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// lookupOptional resolves name, or returns missing if name is empty.
func lookupOptional(skel *skeleton.Skeleton, name string, missing skeleton.BoneID) (skeleton.BoneID, error) {
	if name == "" {
		return missing, nil
	}
	return skel.ByName(name)
}

// Build creates the solver, attaches its limits and initiates it against skel.
func (c *SolverConfig) Build(logger logging.Logger, skel *skeleton.Skeleton) (ik.Solver, error) {
	bones, err := lookup(skel, c.Bones)
	if err != nil {
		return nil, err
	}
	target, err := lookupOptional(skel, c.Target, ik.NoTarget)
	if err != nil {
		return nil, err
	}
	maxIterations := ik.DefaultMaxIterations
	if c.MaxIterations != nil {
		maxIterations = *c.MaxIterations
	}

	var s ik.Solver
	switch c.Type {
	case SolverLimb:
		if len(bones) != 3 {
			return nil, errors.Errorf("limb needs exactly 3 bones, got %d", len(bones))
		}
		limb := ik.NewLimb(c.Name, logger, bones[0], bones[1], bones[2])
		if limb.BendModifier, err = ik.BendModifierFromString(c.BendModifier); err != nil {
			return nil, err
		}
		if c.RotationWeight != nil {
			limb.IKRotationWeight = *c.RotationWeight
		}
		if c.BendGoal != nil {
			limb.BendGoal = c.BendGoal.Vector()
		}
		if limb.BendGoalBone, err = lookupOptional(skel, c.BendGoalBone, ik.NoTarget); err != nil {
			return nil, err
		}
		limb.Target = target
		s = limb
	case SolverFABRIK:
		f := ik.NewFABRIK(c.Name, logger, bones...)
		f.Tolerance, f.MaxIterations, f.Target = c.Tolerance, maxIterations, target
		s = f
	case SolverCCD:
		ccd := ik.NewCCD(c.Name, logger, bones...)
		ccd.Tolerance, ccd.MaxIterations, ccd.Target = c.Tolerance, maxIterations, target
		s = ccd
	case SolverAim:
		aimTransform, err := skel.ByName(c.AimTransform)
		if err != nil {
			return nil, err
		}
		a := ik.NewAim(c.Name, logger, aimTransform, bones...)
		a.Tolerance, a.MaxIterations, a.Target = c.Tolerance, maxIterations, target
		if c.Axis != nil {
			a.Axis = c.Axis.Vector()
		}
		s = a
	case SolverLookAt:
		head, err := lookupOptional(skel, c.Head, skeleton.NoParent)
		if err != nil {
			return nil, err
		}
		eyes, err := lookup(skel, c.Eyes)
		if err != nil {
			return nil, err
		}
		l := ik.NewLookAt(c.Name, logger, bones, head, eyes)
		l.Target = target
		s = l
	default:
		return nil, errors.Errorf("unknown solver type %q", c.Type)
	}

	for _, lc := range c.Limits {
		bone, err := skel.ByName(lc.Bone)
		if err != nil {
			return nil, err
		}
		if err := s.SetLimit(bone, lc.Limit()); err != nil {
			return nil, err
		}
	}
	if err := s.Initiate(skel); err != nil {
		return nil, err
	}
	if c.PositionWeight != nil {
		s.SetIKPositionWeight(*c.PositionWeight)
	}
	if c.Goal != nil {
		s.SetIKPosition(c.Goal.Vector())
	}
	return s, nil
}

// Limit creates the rotation limit.
func (c *LimitConfig) Limit() rotationlimit.Limit {
	if c.Type == LimitHinge {
		return rotationlimit.NewHinge(c.Axis.Vector(), c.Min, c.Max)
	}
	return rotationlimit.NewAngle(c.Axis.Vector(), c.Swing, c.Twist)
}

// References resolves the biped bone names against skel.
func (c *BipedConfig) References(skel *skeleton.Skeleton) (rig.BipedReferences, error) {
	refs := rig.NewBipedReferences()
	var errs error
	resolve := func(dst *skeleton.BoneID, name string) {
		id, err := lookupOptional(skel, name, rig.Missing)
		errs = multierr.Append(errs, err)
		*dst = id
	}
	resolve(&refs.Root, c.Root)
	resolve(&refs.Pelvis, c.Pelvis)
	resolve(&refs.LeftThigh, c.LeftThigh)
	resolve(&refs.LeftCalf, c.LeftCalf)
	resolve(&refs.LeftFoot, c.LeftFoot)
	resolve(&refs.RightThigh, c.RightThigh)
	resolve(&refs.RightCalf, c.RightCalf)
	resolve(&refs.RightFoot, c.RightFoot)
	resolve(&refs.LeftUpperArm, c.LeftUpperArm)
	resolve(&refs.LeftForearm, c.LeftForearm)
	resolve(&refs.LeftHand, c.LeftHand)
	resolve(&refs.RightUpperArm, c.RightUpperArm)
	resolve(&refs.RightForearm, c.RightForearm)
	resolve(&refs.RightHand, c.RightHand)
	resolve(&refs.Head, c.Head)
	spine, err := lookup(skel, c.Spine)
	errs = multierr.Append(errs, err)
	eyes, err := lookup(skel, c.Eyes)
	errs = multierr.Append(errs, err)
	refs.Spine, refs.Eyes = spine, eyes
	return refs, errs
}
