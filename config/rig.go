// Package config reads rig files: a skeleton, the solvers that pose it and optionally the bone
// references of a biped.
package config

import (
	"bytes"
	"io"
	"os"
	"path/filepath"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/yosuke-furukawa/json5/encoding/json5"
	"gonum.org/v1/gonum/num/quat"
	"gopkg.in/yaml.v3"

	"go.viam.com/finalik/spatialmath"
)

// Solver types.
const (
	SolverLimb   = "limb"
	SolverFABRIK = "fabrik"
	SolverCCD    = "ccd"
	SolverLookAt = "lookat"
	SolverAim    = "aim"
)

// Limit types.
const (
	LimitAngle = "angle"
	LimitHinge = "hinge"
)

// Translation is a position in skeleton units.
type Translation struct {
	X float64 `json:"x,omitempty" yaml:"x"`
	Y float64 `json:"y,omitempty" yaml:"y"`
	Z float64 `json:"z,omitempty" yaml:"z"`
}

// Vector returns the translation as a vector.
func (t Translation) Vector() r3.Vector {
	return r3.Vector{X: t.X, Y: t.Y, Z: t.Z}
}

// Rotation is a rotation as Euler angles in degrees.
type Rotation struct {
	Roll  float64 `json:"roll,omitempty" yaml:"roll"`
	Pitch float64 `json:"pitch,omitempty" yaml:"pitch"`
	Yaw   float64 `json:"yaw,omitempty" yaml:"yaw"`
}

// Quaternion returns the rotation as a quaternion.
func (r Rotation) Quaternion() quat.Number {
	return spatialmath.EulerDegrees(r.Roll, r.Pitch, r.Yaw).Quaternion()
}

// BoneConfig is one bone of the skeleton. Bones must be listed after their parent.
type BoneConfig struct {
	Name     string      `json:"name" yaml:"name"`
	Parent   string      `json:"parent,omitempty" yaml:"parent"`
	Position Translation `json:"position,omitempty" yaml:"position"`
	Rotation Rotation    `json:"rotation,omitempty" yaml:"rotation"`
	// LookAt replaces Rotation with the rotation that points the bone's forward axis at it, keeping
	// the up axis near Up (default +Y). Both are in the same space as Position.
	LookAt *Translation `json:"look_at,omitempty" yaml:"look_at"`
	Up     *Translation `json:"up,omitempty" yaml:"up"`
}

// Orientation returns the rotation of the bone in the space of its position.
func (b BoneConfig) Orientation() quat.Number {
	if b.LookAt == nil {
		return b.Rotation.Quaternion()
	}
	up := spatialmath.Up
	if b.Up != nil {
		up = b.Up.Vector()
	}
	return spatialmath.LookRotation(b.LookAt.Vector().Sub(b.Position.Vector()), up)
}

// SkeletonConfig lists the bones of the skeleton.
type SkeletonConfig struct {
	// World makes bone positions and rotations world space instead of relative to the parent.
	World bool         `json:"world,omitempty" yaml:"world"`
	Bones []BoneConfig `json:"bones,omitempty" yaml:"bones"`
}

// LimitConfig attaches a rotation limit to one bone of a solver. Angles are in degrees.
type LimitConfig struct {
	Bone string      `json:"bone,omitempty" yaml:"bone"`
	Type string      `json:"type" yaml:"type"`
	Axis Translation `json:"axis,omitempty" yaml:"axis"`

	Swing float64 `json:"swing,omitempty" yaml:"swing"`
	Twist float64 `json:"twist,omitempty" yaml:"twist"`

	Min float64 `json:"min,omitempty" yaml:"min"`
	Max float64 `json:"max,omitempty" yaml:"max"`
}

// SolverConfig is one solver. Unset weights default to 1 for position and 0 for rotation.
type SolverConfig struct {
	Name           string   `json:"name" yaml:"name"`
	Type           string   `json:"type" yaml:"type"`
	Bones          []string `json:"bones,omitempty" yaml:"bones"`
	PositionWeight *float64 `json:"position_weight,omitempty" yaml:"position_weight"`
	RotationWeight *float64 `json:"rotation_weight,omitempty" yaml:"rotation_weight"`
	Tolerance      float64  `json:"tolerance,omitempty" yaml:"tolerance"`
	MaxIterations  *int     `json:"max_iterations,omitempty" yaml:"max_iterations"`
	BendModifier   string   `json:"bend_modifier,omitempty" yaml:"bend_modifier"`
	// BendGoal and BendGoalBone are what a limb with the goal bend modifier bends toward. The
	// bone's world position wins when both are set.
	BendGoal     *Translation `json:"bend_goal,omitempty" yaml:"bend_goal"`
	BendGoalBone string       `json:"bend_goal_bone,omitempty" yaml:"bend_goal_bone"`
	// Target names a bone whose world pose is the solver's goal.
	Target string `json:"target,omitempty" yaml:"target"`
	// Goal is the initial world position goal when there is no target.
	Goal *Translation `json:"goal,omitempty" yaml:"goal"`

	// Head and Eyes are used by lookat solvers, whose Bones are the spine.
	Head string   `json:"head,omitempty" yaml:"head"`
	Eyes []string `json:"eyes,omitempty" yaml:"eyes"`
	// AimTransform and Axis are used by aim solvers.
	AimTransform string       `json:"aim_transform,omitempty" yaml:"aim_transform"`
	Axis         *Translation `json:"axis,omitempty" yaml:"axis"`

	Limits []LimitConfig `json:"limits,omitempty" yaml:"limits"`
}

// BipedConfig names the bones of a biped.
type BipedConfig struct {
	Root          string   `json:"root,omitempty" yaml:"root"`
	Pelvis        string   `json:"pelvis,omitempty" yaml:"pelvis"`
	LeftThigh     string   `json:"left_thigh,omitempty" yaml:"left_thigh"`
	LeftCalf      string   `json:"left_calf,omitempty" yaml:"left_calf"`
	LeftFoot      string   `json:"left_foot,omitempty" yaml:"left_foot"`
	RightThigh    string   `json:"right_thigh,omitempty" yaml:"right_thigh"`
	RightCalf     string   `json:"right_calf,omitempty" yaml:"right_calf"`
	RightFoot     string   `json:"right_foot,omitempty" yaml:"right_foot"`
	LeftUpperArm  string   `json:"left_upper_arm,omitempty" yaml:"left_upper_arm"`
	LeftForearm   string   `json:"left_forearm,omitempty" yaml:"left_forearm"`
	LeftHand      string   `json:"left_hand,omitempty" yaml:"left_hand"`
	RightUpperArm string   `json:"right_upper_arm,omitempty" yaml:"right_upper_arm"`
	RightForearm  string   `json:"right_forearm,omitempty" yaml:"right_forearm"`
	RightHand     string   `json:"right_hand,omitempty" yaml:"right_hand"`
	Head          string   `json:"head,omitempty" yaml:"head"`
	Spine         []string `json:"spine,omitempty" yaml:"spine"`
	Eyes          []string `json:"eyes,omitempty" yaml:"eyes"`
}

// RigConfig is a whole rig file.
type RigConfig struct {
	Skeleton SkeletonConfig `json:"skeleton,omitempty" yaml:"skeleton"`
	Solvers  []SolverConfig `json:"solvers,omitempty" yaml:"solvers"`
	Biped    *BipedConfig   `json:"biped,omitempty" yaml:"biped"`

	// ConfigFilePath is where the config was read from, if anywhere.
	ConfigFilePath string `json:"-" yaml:"-"`
}

// Read reads and validates a rig file. Files ending in .json5 are read as JSON5, anything else
// as YAML.
func Read(filePath string) (*RigConfig, error) {
	//nolint:gosec
	buf, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	if filepath.Ext(filePath) == ".json5" {
		return FromJSON5(filePath, buf)
	}
	return FromReader(filePath, bytes.NewReader(buf))
}

// FromJSON5 reads and validates a rig config written as JSON5, which allows comments and
// trailing commas.
func FromJSON5(originalPath string, buf []byte) (*RigConfig, error) {
	cfg := RigConfig{ConfigFilePath: originalPath}
	if err := json5.Unmarshal(buf, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to decode rig config from json5")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromReader reads and validates a rig config from r. originalPath names where r came from,
// if anywhere.
func FromReader(originalPath string, r io.Reader) (*RigConfig, error) {
	cfg := RigConfig{ConfigFilePath: originalPath}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "failed to decode rig config from yaml")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
