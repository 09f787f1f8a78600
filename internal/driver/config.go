package driver

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/ing-raf/Lattice-Based-Memory-Partitioning-Master-Thesis-Implementation/internal/arch"
	"github.com/ing-raf/Lattice-Based-Memory-Partitioning-Master-Thesis-Implementation/internal/lattice"
	"github.com/ing-raf/Lattice-Based-Memory-Partitioning-Master-Thesis-Implementation/internal/milp"
	"github.com/ing-raf/Lattice-Based-Memory-Partitioning-Master-Thesis-Implementation/internal/model"
	"github.com/ing-raf/Lattice-Based-Memory-Partitioning-Master-Thesis-Implementation/internal/polyset"
)

// Config carries everything Run needs, already parsed by cmd/latticeplan:
// the CLI front end and its file parsers stay out of the core design, and
// Config is the seam between them.
type Config struct {
	Architecture *arch.Architecture
	Allocation   *arch.Allocation
	Catalog      *lattice.Catalog

	// Tasks and ParamValues are parallel slices: ParamValues[i] holds the
	// parsed parameter values for Tasks[i], in the task's own declared
	// parameter order.
	Tasks       []*model.Task
	ParamValues [][]int

	// MaxLattices restricts the date loop to the catalog's first
	// MaxLattices lattices, a REDUCED_LATTICES-style cap reborn as a flag.
	// 0 means unbounded.
	MaxLattices int

	// Oracle is the MILP solver used for NUMA architectures. Nil selects
	// the reference BranchAndBoundOracle.
	Oracle milp.Oracle

	// PolysetOptions threads the polyhedral context's on/off switches
	// from the CLI into internal/pipeline.
	PolysetOptions polyset.Options

	// Output receives the phase banner. Defaults to os.Stdout when nil.
	Output io.Writer

	// Logger receives structured per-task fields while remapping access
	// relations, and a Warn per lattice the NUMA cost engine has to skip
	// (solver error or non-Optimal status), layered underneath the banner.
	// Defaults to a new logrus.Logger at InfoLevel when nil.
	Logger *logrus.Logger
}
