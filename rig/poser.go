package rig

import (
	"cmp"
	"slices"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/finalik/logging"
	"go.viam.com/finalik/pipeline"
	"go.viam.com/finalik/skeleton"
	"go.viam.com/finalik/spatialmath"
	"go.viam.com/finalik/utils"
)

// poserMap pairs a bone with the reference bone of the same name.
type poserMap struct {
	bone      skeleton.BoneID
	reference skeleton.BoneID

	// offsets from the reference's local pose to the bone's, taken at construction
	rotationOffset quat.Number
	positionOffset r3.Vector
}

// Poser blends bones toward the pose of a reference skeleton, matching bones by name. The
// reference pose is taken relative to how both skeletons stood when the poser was made, so an
// unchanged reference leaves the bones where they are.
type Poser struct {
	name      string
	logger    logging.Logger
	skel      *skeleton.Skeleton
	reference *skeleton.Skeleton

	// Weight is the master weight.
	Weight float64
	// LocalRotationWeight and LocalPositionWeight blend the local rotation and position of each
	// bone toward the reference's.
	LocalRotationWeight float64
	LocalPositionWeight float64

	maps []poserMap
}

// NewPoser maps the named bones of skel onto reference. With no names every bone of skel is
// mapped. Names missing from either skeleton are all reported together.
func NewPoser(name string, logger logging.Logger, skel, reference *skeleton.Skeleton, names ...string) (*Poser, error) {
	if logger == nil {
		logger = logging.NewBlankLogger(name)
	}
	if skel == nil || reference == nil {
		return nil, errors.New("poser needs a skeleton and a reference")
	}
	if len(names) == 0 {
		for i := 0; i < skel.Len(); i++ {
			names = append(names, skel.Name(skeleton.BoneID(i)))
		}
	}
	p := &Poser{
		name:                name,
		logger:              logger,
		skel:                skel,
		reference:           reference,
		Weight:              1,
		LocalRotationWeight: 1,
	}
	var errs error
	for _, n := range names {
		bone, err := skel.ByName(n)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		ref, err := reference.ByName(n)
		if err != nil {
			errs = multierr.Append(errs, errors.Wrap(err, "reference"))
			continue
		}
		p.maps = append(p.maps, poserMap{
			bone:           bone,
			reference:      ref,
			rotationOffset: quat.Mul(spatialmath.Inverse(reference.LocalRotation(ref)), skel.LocalRotation(bone)),
			positionOffset: skel.LocalPosition(bone).Sub(reference.LocalPosition(ref)),
		})
	}
	if errs != nil {
		return nil, errs
	}
	// parents first
	slices.SortFunc(p.maps, func(a, b poserMap) int { return cmp.Compare(a.bone, b.bone) })
	logger.Debugw("poser mapped bones", "poser", name, "bones", len(p.maps))
	return p, nil
}

// Name returns the poser's name.
func (p *Poser) Name() string {
	return p.name
}

// Bones returns the mapped bones of the posed skeleton.
func (p *Poser) Bones() []skeleton.BoneID {
	out := make([]skeleton.BoneID, len(p.maps))
	for i, m := range p.maps {
		out[i] = m.bone
	}
	return out
}

// Update blends every mapped bone toward the reference.
func (p *Poser) Update() {
	weight := utils.Clamp01(p.Weight)
	if weight <= 0 {
		return
	}
	rw := weight * utils.Clamp01(p.LocalRotationWeight)
	pw := weight * utils.Clamp01(p.LocalPositionWeight)
	for _, m := range p.maps {
		if rw > 0 {
			goal := quat.Mul(p.reference.LocalRotation(m.reference), m.rotationOffset)
			p.skel.SetLocalRotation(m.bone, spatialmath.Slerp(p.skel.LocalRotation(m.bone), goal, rw))
		}
		if pw > 0 {
			goal := p.reference.LocalPosition(m.reference).Add(m.positionOffset)
			p.skel.SetLocalPosition(m.bone, spatialmath.LerpVector(p.skel.LocalPosition(m.bone), goal, pw))
		}
	}
}

// Stage returns the poser as a pipeline stage, usually added after the solvers.
func (p *Poser) Stage() pipeline.Stage {
	return pipeline.UpdateStage(p)
}
