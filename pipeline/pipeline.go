// Package pipeline runs a fixed, ordered list of per-frame stages.
package pipeline

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/finalik/logging"
)

// A Stage is one step of a frame.
type Stage interface {
	Name() string
	Run() error
}

type funcStage struct {
	name string
	fn   func() error
}

func (s funcStage) Name() string { return s.name }
func (s funcStage) Run() error   { return s.fn() }

// NewStage wraps fn as a Stage.
func NewStage(name string, fn func() error) Stage {
	return funcStage{name: name, fn: fn}
}

// Updater is anything updated once per frame without reporting errors, such as an ik.Solver.
type Updater interface {
	Name() string
	Update()
}

// UpdateStage wraps u as a Stage that never fails.
func UpdateStage(u Updater) Stage {
	return funcStage{name: u.Name(), fn: func() error {
		u.Update()
		return nil
	}}
}

// Pipeline runs its stages in the order they were added. A failing stage does not stop the
// stages after it.
type Pipeline struct {
	logger logging.Logger
	stages []Stage
}

// New returns an empty pipeline.
func New(logger logging.Logger) *Pipeline {
	if logger == nil {
		logger = logging.NewBlankLogger("pipeline")
	}
	return &Pipeline{logger: logger}
}

// Add appends stages.
func (p *Pipeline) Add(stages ...Stage) *Pipeline {
	p.stages = append(p.stages, stages...)
	return p
}

// AddFunc appends fn as a stage called name.
func (p *Pipeline) AddFunc(name string, fn func() error) *Pipeline {
	return p.Add(NewStage(name, fn))
}

// Stages returns the names of the stages in run order.
func (p *Pipeline) Stages() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name()
	}
	return names
}

// Len returns the number of stages.
func (p *Pipeline) Len() int {
	return len(p.stages)
}

// Run runs every stage once, in order, and returns the combined errors of the stages that failed.
func (p *Pipeline) Run() error {
	var errs error
	for _, s := range p.stages {
		if err := s.Run(); err != nil {
			p.logger.Debugw("stage failed", "stage", s.Name(), "error", err)
			errs = multierr.Append(errs, errors.Wrapf(err, "stage %q", s.Name()))
		}
	}
	return errs
}
