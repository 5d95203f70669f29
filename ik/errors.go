package ik

import (
	"fmt"

	"github.com/pkg/errors"

	"go.viam.com/finalik/skeleton"
)

// ErrNotInitiated is reported by IsValid for a solver whose chain has not been accepted.
var ErrNotInitiated = errors.New("solver is not initiated")

// ErrBoneNotInChain is returned when a per-bone setting names a bone the solver does not own.
var ErrBoneNotInChain = errors.New("bone is not part of the solver chain")

// InvalidChainError describes why a solver rejected its bones.
type InvalidChainError struct {
	Solver string
	Reason string
	Bones  []skeleton.BoneID
}

func (e *InvalidChainError) Error() string {
	return fmt.Sprintf("invalid chain for solver %q: %s (bones %v)", e.Solver, e.Reason, e.Bones)
}

func newInvalidChainError(solver string, bones []skeleton.BoneID, format string, args ...interface{}) error {
	return &InvalidChainError{
		Solver: solver,
		Reason: fmt.Sprintf(format, args...),
		Bones:  append([]skeleton.BoneID(nil), bones...),
	}
}

// IsInvalidChain reports whether err is, or wraps, an InvalidChainError.
func IsInvalidChain(err error) bool {
	var target *InvalidChainError
	return errors.As(err, &target)
}
