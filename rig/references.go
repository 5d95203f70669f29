// Package rig maps a humanoid skeleton onto solvers and runs them in a fixed order each frame.
package rig

import (
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"

	"go.viam.com/finalik/skeleton"
)

// Missing marks a reference that is not assigned.
const Missing = skeleton.NoParent

// BipedReferences names the bones of a biped. Unassigned bones are Missing.
type BipedReferences struct {
	Root   skeleton.BoneID
	Pelvis skeleton.BoneID

	LeftThigh skeleton.BoneID
	LeftCalf  skeleton.BoneID
	LeftFoot  skeleton.BoneID

	RightThigh skeleton.BoneID
	RightCalf  skeleton.BoneID
	RightFoot  skeleton.BoneID

	LeftUpperArm skeleton.BoneID
	LeftForearm  skeleton.BoneID
	LeftHand     skeleton.BoneID

	RightUpperArm skeleton.BoneID
	RightForearm  skeleton.BoneID
	RightHand     skeleton.BoneID

	Head  skeleton.BoneID
	Spine []skeleton.BoneID
	Eyes  []skeleton.BoneID
}

// NewBipedReferences returns references with every bone Missing.
func NewBipedReferences() BipedReferences {
	return BipedReferences{
		Root: Missing, Pelvis: Missing,
		LeftThigh: Missing, LeftCalf: Missing, LeftFoot: Missing,
		RightThigh: Missing, RightCalf: Missing, RightFoot: Missing,
		LeftUpperArm: Missing, LeftForearm: Missing, LeftHand: Missing,
		RightUpperArm: Missing, RightForearm: Missing, RightHand: Missing,
		Head: Missing,
	}
}

type namedRef struct {
	name string
	bone skeleton.BoneID
}

// required returns the single bone references every biped must assign.
func (r BipedReferences) required() []namedRef {
	return []namedRef{
		{"pelvis", r.Pelvis},
		{"left thigh", r.LeftThigh}, {"left calf", r.LeftCalf}, {"left foot", r.LeftFoot},
		{"right thigh", r.RightThigh}, {"right calf", r.RightCalf}, {"right foot", r.RightFoot},
		{"left upper arm", r.LeftUpperArm}, {"left forearm", r.LeftForearm}, {"left hand", r.LeftHand},
		{"right upper arm", r.RightUpperArm}, {"right forearm", r.RightForearm}, {"right hand", r.RightHand},
		{"head", r.Head},
	}
}

// All returns every assigned bone.
func (r BipedReferences) All() []skeleton.BoneID {
	var out []skeleton.BoneID
	if r.Root != Missing {
		out = append(out, r.Root)
	}
	for _, ref := range r.required() {
		if ref.bone != Missing {
			out = append(out, ref.bone)
		}
	}
	out = append(out, r.Spine...)
	return append(out, r.Eyes...)
}

// Validate checks the references against skel. All problems are combined into one error.
func (r BipedReferences) Validate(skel *skeleton.Skeleton) error {
	if skel == nil {
		return errors.New("no skeleton")
	}
	var errs error
	for _, ref := range r.required() {
		switch {
		case ref.bone == Missing:
			errs = multierr.Append(errs, errors.Errorf("%s is not assigned", ref.name))
		case !skel.Valid(ref.bone):
			errs = multierr.Append(errs, errors.Wrapf(skeleton.ErrBoneNotFound, "%s", ref.name))
		}
	}
	if r.Root != Missing && !skel.Valid(r.Root) {
		errs = multierr.Append(errs, errors.Wrap(skeleton.ErrBoneNotFound, "root"))
	}
	for i, b := range append(append([]skeleton.BoneID(nil), r.Spine...), r.Eyes...) {
		if !skel.Valid(b) {
			errs = multierr.Append(errs, errors.Wrapf(skeleton.ErrBoneNotFound, "spine or eye bone %d", i))
		}
	}
	if errs != nil {
		return errs
	}

	for _, dup := range lo.FindDuplicates(r.All()) {
		errs = multierr.Append(errs, errors.Errorf("bone %q is assigned more than once", skel.Name(dup)))
	}

	chains := [][]namedRef{
		{{"pelvis", r.Pelvis}, {"left thigh", r.LeftThigh}, {"left calf", r.LeftCalf}, {"left foot", r.LeftFoot}},
		{{"pelvis", r.Pelvis}, {"right thigh", r.RightThigh}, {"right calf", r.RightCalf}, {"right foot", r.RightFoot}},
		{{"left upper arm", r.LeftUpperArm}, {"left forearm", r.LeftForearm}, {"left hand", r.LeftHand}},
		{{"right upper arm", r.RightUpperArm}, {"right forearm", r.RightForearm}, {"right hand", r.RightHand}},
	}
	spine := []namedRef{{"pelvis", r.Pelvis}}
	for _, b := range r.Spine {
		spine = append(spine, namedRef{"spine " + skel.Name(b), b})
	}
	chains = append(chains, append(spine, namedRef{"head", r.Head}))
	if r.Root != Missing {
		chains = append(chains, []namedRef{{"root", r.Root}, {"pelvis", r.Pelvis}})
	}
	for _, chain := range chains {
		for i := 1; i < len(chain); i++ {
			if !skel.IsAncestor(chain[i-1].bone, chain[i].bone) {
				errs = multierr.Append(errs, errors.Errorf("%s is not below %s", chain[i].name, chain[i-1].name))
			}
		}
	}
	for _, eye := range r.Eyes {
		if !skel.IsAncestor(r.Head, eye) {
			errs = multierr.Append(errs, errors.Errorf("eye %q is not below the head", skel.Name(eye)))
		}
	}
	return errs
}
