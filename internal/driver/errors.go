package driver

import "github.com/pkg/errors"

// Kind classifies a driver failure into a small taxonomy, so callers
// (cmd/latticeplan) can pick an exit code or log level without
// string-matching error messages.
type Kind int

const (
	// KindInputFormat: missing or malformed input file, arity mismatch,
	// unrecognized architecture type.
	KindInputFormat Kind = iota
	// KindResource: allocation failure in any subsystem.
	KindResource
	// KindPolyhedral: any failing operation from internal/polyset, treated
	// as opaque and propagated with a stage label.
	KindPolyhedral
	// KindPipelinePrecondition: no parallel band found; source/task count
	// mismatch; working-processor count exceeds available; lattice
	// dimension mismatch with d_virt.
	KindPipelinePrecondition
	// KindSolver: MILP model file missing or malformed; reserved objective
	// values.
	KindSolver
)

func (k Kind) String() string {
	switch k {
	case KindInputFormat:
		return "input-format error"
	case KindResource:
		return "resource error"
	case KindPolyhedral:
		return "polyhedral error"
	case KindPipelinePrecondition:
		return "pipeline precondition error"
	case KindSolver:
		return "solver error"
	default:
		return "unknown error"
	}
}

// StageError wraps an underlying error with the stage name that failed and
// its Kind: a failing stage aborts the pipeline with a colored status
// line naming the stage, and no stage attempts recovery.
type StageError struct {
	Stage string
	Kind  Kind
	Err   error
}

func (e *StageError) Error() string {
	return e.Stage + ": " + e.Kind.String() + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error { return e.Err }

func stageErr(stage string, kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Kind: kind, Err: err}
}

// ErrTaskCountMismatch is returned when the number of tasks handed to Run
// does not match the allocation's task count.
var ErrTaskCountMismatch = errors.New("driver: task count mismatch between CLI arguments and allocation")

// ErrTooManyWorkingProcessors is returned when an allocation names more
// working processors than the architecture provides.
var ErrTooManyWorkingProcessors = errors.New("driver: allocation names more working processors than the architecture provides")

// ErrLatticeDimMismatch is returned when the lattice catalog's dimension
// does not match d_virt.
var ErrLatticeDimMismatch = errors.New("driver: lattice catalog dimension does not match the virtual address space")
