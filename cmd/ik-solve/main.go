// Package main solves a rig file for a goal and prints the resulting pose.
package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/finalik/config"
	"go.viam.com/finalik/ik"
	"go.viam.com/finalik/logging"
)

const (
	// Flags.
	flagConfig = "config"
	flagSolver = "solver"
	flagTarget = "target"
	flagWeight = "weight"
	flagFrames = "frames"
	flagDebug  = "debug"
	flagSchema = "schema"
)

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp(out io.Writer) *cli.App {
	var logger logging.Logger
	return &cli.App{
		Name:      "ik-solve",
		Usage:     "solve a rig for a goal and print the pose",
		UsageText: "ik-solve --config rig.yaml [--solver name --target x,y,z] [--frames n]\n   ik-solve --schema",
		Writer:    out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load the rig from `FILE`",
			},
			&cli.StringFlag{
				Name:  flagSolver,
				Usage: "`NAME` of the solver the target is given to",
			},
			&cli.StringFlag{
				Name:  flagTarget,
				Usage: "world position goal as `X,Y,Z`",
			},
			&cli.Float64Flag{
				Name:  flagWeight,
				Usage: "position weight of the solver given the target",
				Value: 1,
			},
			&cli.IntFlag{
				Name:  flagFrames,
				Usage: "number of frames to solve",
				Value: 1,
			},
			&cli.BoolFlag{
				Name:  flagSchema,
				Usage: "print the JSON schema of rig files and exit",
			},
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			// logs go to stderr so the printed pose stays clean
			logger = logging.NewBlankLogger("ik-solve")
			logger.AddAppender(logging.NewWriterAppender(c.App.ErrWriter))
			if !c.Bool(flagDebug) {
				logger.SetLevel(logging.INFO)
			}
			return nil
		},
		Action: func(c *cli.Context) error {
			if c.Bool(flagSchema) {
				return printSchema(c.App.Writer)
			}
			return solve(c, logger)
		},
	}
}

func printSchema(w io.Writer) error {
	out, err := config.SchemaJSON()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

func solve(c *cli.Context, logger logging.Logger) error {
	if !c.IsSet(flagConfig) {
		return errors.Errorf("--%s is required", flagConfig)
	}
	cfg, err := config.Read(c.String(flagConfig))
	if err != nil {
		return err
	}
	r, err := cfg.Build(logger)
	if err != nil {
		return err
	}

	if c.IsSet(flagTarget) {
		if !c.IsSet(flagSolver) {
			return errors.Errorf("--%s needs --%s", flagTarget, flagSolver)
		}
		target, err := parseVector(c.String(flagTarget))
		if err != nil {
			return errors.Wrapf(err, "--%s", flagTarget)
		}
		s, err := r.Solver(c.String(flagSolver))
		if err != nil {
			return err
		}
		s.SetIKPosition(target)
		s.SetIKPositionWeight(c.Float64(flagWeight))
	}

	frames := c.Int(flagFrames)
	if frames < 0 {
		return errors.Errorf("--%s cannot be negative", flagFrames)
	}
	history := newFrameHistory()
	for i := 0; i < frames; i++ {
		if err := r.Update(); err != nil {
			return errors.Wrapf(err, "frame %d", i)
		}
		history.record(r.Solvers())
		logger.Debugw("solved frame", "frame", i)
	}

	fmt.Fprintln(c.App.Writer, r.Skeleton.String())
	fmt.Fprintln(c.App.Writer, solverTable(r.Solvers(), history))
	return nil
}

type iterative interface {
	Iterations() int
	IterationErrors() []float64
}

// frameHistory keeps, per iterative solver, the iteration count and final error of every frame.
type frameHistory struct {
	iterations map[string]stats.Float64Data
	errors     map[string]stats.Float64Data
}

func newFrameHistory() *frameHistory {
	return &frameHistory{iterations: map[string]stats.Float64Data{}, errors: map[string]stats.Float64Data{}}
}

func (h *frameHistory) record(solvers []ik.Solver) {
	for _, s := range solvers {
		it, ok := s.(iterative)
		if !ok {
			continue
		}
		h.iterations[s.Name()] = append(h.iterations[s.Name()], float64(it.Iterations()))
		if errs := it.IterationErrors(); len(errs) > 0 {
			h.errors[s.Name()] = append(h.errors[s.Name()], errs[len(errs)-1])
		}
	}
}

// meanIterations and maxError are empty when nothing was recorded for the solver.
func (h *frameHistory) meanIterations(name string) string {
	mean, err := stats.Mean(h.iterations[name])
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%.2f", mean)
}

func (h *frameHistory) maxError(name string) string {
	most, err := stats.Max(h.errors[name])
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%.6f", most)
}

// solverTable prints one row per solver with its state after the last frame and its statistics
// over all frames.
func solverTable(solvers []ik.Solver, history *frameHistory) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Solver", "Bones", "Initiated", "Iterations", "Error", "Mean Iterations", "Max Error"})
	for _, s := range solvers {
		iterations, lastErr := "", ""
		if it, ok := s.(iterative); ok {
			iterations = strconv.Itoa(it.Iterations())
			if errs := it.IterationErrors(); len(errs) > 0 {
				lastErr = fmt.Sprintf("%.6f", errs[len(errs)-1])
			}
		}
		var msg string
		initiated := s.IsValid(&msg)
		if !initiated {
			lastErr = msg
		}
		t.AppendRow(table.Row{
			s.Name(), len(s.Bones()), initiated, iterations, lastErr,
			history.meanIterations(s.Name()), history.maxError(s.Name()),
		})
	}
	return t.Render()
}

// parseVector parses "x,y,z".
func parseVector(s string) (r3.Vector, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return r3.Vector{}, errors.Errorf("expected x,y,z, got %q", s)
	}
	var xyz [3]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return r3.Vector{}, errors.Wrapf(err, "component %d", i)
		}
		xyz[i] = v
	}
	return r3.Vector{X: xyz[0], Y: xyz[1], Z: xyz[2]}, nil
}
