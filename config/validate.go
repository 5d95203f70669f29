package config

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"

	"go.viam.com/finalik/ik"
)

// Validate checks the whole config and returns every problem it finds, combined.
func (c *RigConfig) Validate() error {
	bones, errs := c.Skeleton.Validate("skeleton")
	names := lo.Map(c.Solvers, func(s SolverConfig, _ int) string { return s.Name })
	for _, dup := range lo.FindDuplicates(names) {
		if dup != "" {
			errs = multierr.Append(errs, newValidationError("solvers", errors.Errorf("solver %q is defined more than once", dup)))
		}
	}
	for idx := range c.Solvers {
		errs = multierr.Append(errs, c.Solvers[idx].Validate(fmt.Sprintf("solvers.%d", idx), bones))
	}
	if c.Biped != nil {
		errs = multierr.Append(errs, c.Biped.Validate("biped", bones))
	}
	return errs
}

// Validate checks the bones and returns the set of bone names.
func (c *SkeletonConfig) Validate(path string) (map[string]bool, error) {
	var errs error
	bones := map[string]bool{}
	if len(c.Bones) == 0 {
		errs = multierr.Append(errs, newFieldRequiredError(path, "bones"))
	}
	for idx, b := range c.Bones {
		bonePath := fmt.Sprintf("%s.bones.%d", path, idx)
		switch {
		case b.Name == "":
			errs = multierr.Append(errs, newFieldRequiredError(bonePath, "name"))
			continue
		case bones[b.Name]:
			errs = multierr.Append(errs, newValidationError(bonePath, errors.Errorf("bone %q is defined more than once", b.Name)))
		}
		if b.Parent != "" && !bones[b.Parent] {
			errs = multierr.Append(errs, newValidationError(bonePath,
				errors.Errorf("parent %q must be defined before bone %q", b.Parent, b.Name)))
		}
		if b.LookAt != nil {
			if b.Rotation != (Rotation{}) {
				errs = multierr.Append(errs, newValidationError(bonePath, errors.New("look_at and rotation are exclusive")))
			}
			if b.LookAt.Vector().Sub(b.Position.Vector()).Norm() == 0 {
				errs = multierr.Append(errs, newValidationError(bonePath, errors.New("look_at must differ from position")))
			}
		} else if b.Up != nil {
			errs = multierr.Append(errs, newValidationError(bonePath, errors.New("up needs look_at")))
		}
		bones[b.Name] = true
	}
	return bones, errs
}

func checkBone(path, field, name string, bones map[string]bool) error {
	if name == "" || bones[name] {
		return nil
	}
	return newValidationError(path, errors.Wrapf(ErrUnknownBone, "%s %q", field, name))
}

func checkWeight(path, field string, w *float64) error {
	if w == nil || (*w >= 0 && *w <= 1) {
		return nil
	}
	return newValidationError(path, errors.Errorf("%s must be between 0 and 1, got %v", field, *w))
}

// Validate checks one solver against the bones of the skeleton.
func (c *SolverConfig) Validate(path string, bones map[string]bool) error {
	var errs error
	if c.Name == "" {
		errs = multierr.Append(errs, newFieldRequiredError(path, "name"))
	}

	var minBones, maxBones int
	switch c.Type {
	case SolverLimb:
		minBones, maxBones = 3, 3
		modifier, err := ik.BendModifierFromString(c.BendModifier)
		if err != nil {
			errs = multierr.Append(errs, newValidationError(path, err))
		}
		if modifier == ik.BendModifierGoal && c.BendGoal == nil && c.BendGoalBone == "" {
			errs = multierr.Append(errs, newValidationError(path,
				errors.New("bend_modifier goal needs bend_goal or bend_goal_bone")))
		}
	case SolverFABRIK, SolverCCD:
		minBones = 2
	case SolverAim:
		minBones = 1
		if c.AimTransform == "" {
			errs = multierr.Append(errs, newFieldRequiredError(path, "aim_transform"))
		}
		if c.Axis != nil && c.Axis.Vector().Norm() == 0 {
			errs = multierr.Append(errs, newValidationError(path, errors.New("axis cannot be zero")))
		}
	case SolverLookAt:
		if len(c.Bones) == 0 && c.Head == "" && len(c.Eyes) == 0 {
			errs = multierr.Append(errs, newValidationError(path, errors.New("lookat needs a spine, a head or eyes")))
		}
	case "":
		errs = multierr.Append(errs, newFieldRequiredError(path, "type"))
	default:
		errs = multierr.Append(errs, newValidationError(path, errors.Errorf("unknown solver type %q", c.Type)))
	}
	if len(c.Bones) < minBones {
		errs = multierr.Append(errs, newValidationError(path, errors.Errorf("%s needs at least %d bones, got %d", c.Type, minBones, len(c.Bones))))
	}
	if maxBones > 0 && len(c.Bones) > maxBones {
		errs = multierr.Append(errs, newValidationError(path, errors.Errorf("%s needs at most %d bones, got %d", c.Type, maxBones, len(c.Bones))))
	}

	for _, b := range c.Bones {
		errs = multierr.Append(errs, checkBone(path, "bone", b, bones))
	}
	for _, b := range c.Eyes {
		errs = multierr.Append(errs, checkBone(path, "eye", b, bones))
	}
	errs = multierr.Combine(errs,
		checkBone(path, "target", c.Target, bones),
		checkBone(path, "head", c.Head, bones),
		checkBone(path, "aim_transform", c.AimTransform, bones),
		checkBone(path, "bend_goal_bone", c.BendGoalBone, bones),
		checkWeight(path, "position_weight", c.PositionWeight),
		checkWeight(path, "rotation_weight", c.RotationWeight),
	)
	if c.Tolerance < 0 {
		errs = multierr.Append(errs, newValidationError(path, errors.Errorf("tolerance cannot be negative, got %v", c.Tolerance)))
	}
	if c.MaxIterations != nil && *c.MaxIterations < 0 {
		errs = multierr.Append(errs, newValidationError(path, errors.Errorf("max_iterations cannot be negative, got %d", *c.MaxIterations)))
	}

	for idx := range c.Limits {
		limitPath := fmt.Sprintf("%s.limits.%d", path, idx)
		errs = multierr.Append(errs, c.Limits[idx].Validate(limitPath))
		if b := c.Limits[idx].Bone; b != "" && !lo.Contains(c.Bones, b) {
			errs = multierr.Append(errs, newValidationError(limitPath, errors.Errorf("bone %q is not part of solver %q", b, c.Name)))
		}
	}
	return errs
}

// Validate checks one limit.
func (c *LimitConfig) Validate(path string) error {
	var errs error
	if c.Bone == "" {
		errs = multierr.Append(errs, newFieldRequiredError(path, "bone"))
	}
	if c.Axis.Vector().Norm() == 0 {
		errs = multierr.Append(errs, newFieldRequiredError(path, "axis"))
	}
	switch c.Type {
	case LimitAngle:
		if c.Swing < 0 || c.Swing > 180 {
			errs = multierr.Append(errs, newValidationError(path, errors.Errorf("swing must be between 0 and 180, got %v", c.Swing)))
		}
		if c.Twist < 0 || c.Twist > 180 {
			errs = multierr.Append(errs, newValidationError(path, errors.Errorf("twist must be between 0 and 180, got %v", c.Twist)))
		}
	case LimitHinge:
		if c.Min > c.Max {
			errs = multierr.Append(errs, newValidationError(path, errors.Errorf("min %v is greater than max %v", c.Min, c.Max)))
		}
	default:
		errs = multierr.Append(errs, newValidationError(path, errors.Errorf("unknown limit type %q", c.Type)))
	}
	return errs
}

// Validate checks that every named bone exists. Whether the bones form a biped is checked when
// the rig is built.
func (c *BipedConfig) Validate(path string, bones map[string]bool) error {
	var errs error
	for _, ref := range c.named() {
		errs = multierr.Append(errs, checkBone(path, ref.field, ref.name, bones))
	}
	for _, b := range c.Spine {
		errs = multierr.Append(errs, checkBone(path, "spine", b, bones))
	}
	for _, b := range c.Eyes {
		errs = multierr.Append(errs, checkBone(path, "eyes", b, bones))
	}
	return errs
}

type bipedName struct {
	field string
	name  string
}

func (c *BipedConfig) named() []bipedName {
	return []bipedName{
		{"root", c.Root}, {"pelvis", c.Pelvis},
		{"left_thigh", c.LeftThigh}, {"left_calf", c.LeftCalf}, {"left_foot", c.LeftFoot},
		{"right_thigh", c.RightThigh}, {"right_calf", c.RightCalf}, {"right_foot", c.RightFoot},
		{"left_upper_arm", c.LeftUpperArm}, {"left_forearm", c.LeftForearm}, {"left_hand", c.LeftHand},
		{"right_upper_arm", c.RightUpperArm}, {"right_forearm", c.RightForearm}, {"right_hand", c.RightHand},
		{"head", c.Head},
	}
}
