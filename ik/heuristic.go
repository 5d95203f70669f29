package ik

// Defaults shared by the iterative solvers.
const (
	DefaultTolerance     = 0.0
	DefaultMaxIterations = 4
)

// heuristic is the base of the iterative solvers.
type heuristic struct {
	solverBase

	// Tolerance stops iterating once the solver's error falls below it. Zero always runs
	// MaxIterations.
	Tolerance float64
	// MaxIterations bounds the work done by one Update.
	MaxIterations int
	// UseRotationLimits enables the Limit attached to each point.
	UseRotationLimits bool

	iterations      int
	iterationErrors []float64
}

func newHeuristic(base solverBase) heuristic {
	return heuristic{
		solverBase:        base,
		Tolerance:         DefaultTolerance,
		MaxIterations:     DefaultMaxIterations,
		UseRotationLimits: true,
	}
}

// Iterations returns the number of iterations the last Update ran.
func (h *heuristic) Iterations() int {
	return h.iterations
}

// IterationErrors returns the solver error measured after each iteration of the last Update.
func (h *heuristic) IterationErrors() []float64 {
	return append([]float64(nil), h.iterationErrors...)
}

func (h *heuristic) resetIterations() {
	h.iterations = 0
	h.iterationErrors = h.iterationErrors[:0]
}

func (h *heuristic) recordIteration(err float64) {
	h.iterations++
	h.iterationErrors = append(h.iterationErrors, err)
}
