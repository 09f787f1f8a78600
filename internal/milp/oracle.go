// Package milp models the external MILP oracle interface this planner is
// built around, plus one reference implementation (BranchAndBoundOracle)
// so the module is runnable end-to-end without shelling out to a real
// solver. The MILP solver is treated as an external solver fed a
// formulated model — swapping BranchAndBoundOracle for a real binding
// means implementing the same Oracle interface, nothing more.
package milp

import (
	"context"

	"gonum.org/v1/gonum/mat"
)

// Status is the tagged-union outcome the oracle reports for one lattice.
type Status int

const (
	Optimal Status = iota
	Feasible
	Infeasible
	Unbounded
	Undefined
)

func (s Status) String() string {
	switch s {
	case Optimal:
		return "optimal"
	case Feasible:
		return "feasible"
	case Infeasible:
		return "infeasible"
	case Unbounded:
		return "unbounded"
	default:
		return "undefined"
	}
}

// Model carries the fields needed to formulate one lattice's MILP.
type Model struct {
	P, B, T, D int

	MinLatency      float64
	NonFirstLattice bool
	BankLatency     float64
	Delta           *mat.Dense // P x B, NUMA only

	Multiplicity []int // per dataset type d, n[d]

	// Counts is the sparse per-type-per-processor-per-translate table
	// mc[d][p][t], keyed (d, p, t), default 0 when absent.
	Counts map[[3]int]int
}

// Result is the oracle's outcome for one lattice: Objective is valid only
// when Status == Optimal.
type Result struct {
	Status    Status
	Objective float64
}

// Oracle solves one lattice's MILP formulation, or reports why it could
// not. ctx carries the implementation-defined solver time limit.
type Oracle interface {
	Solve(ctx context.Context, m Model) (Result, error)
}
