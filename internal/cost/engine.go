// Package cost implements the UMA and NUMA cost engines (C10, C11):
// per-date, per-lattice scoring of a concurrent dataset (UMA) or a set of
// per-processor instant-local datasets (NUMA), accumulated across the
// whole date loop into a final lattice selection.
//
// Both engines share the capability-interface shape DESIGN NOTES
// recommends in place of the original's UMA/NUMA tagged-union driver: one
// Engine interface, two concrete implementations, with
// internal/pipeline's stages 1-7 running once regardless of mode and only
// the per-date scoring step (and the slice/dataset shape it is fed)
// varying between them.
package cost

import (
	"context"
	"fmt"

	"github.com/ing-raf/Lattice-Based-Memory-Partitioning-Master-Thesis-Implementation/internal/lattice"
	"github.com/ing-raf/Lattice-Based-Memory-Partitioning-Master-Thesis-Implementation/internal/polyset"
)

// Result is the mode-specific outcome of running an Engine to completion,
// with separate string formatting for NUMA vs UMA.
type Result interface {
	// BestLattice is the winning lattice's 0-indexed position in the
	// catalog, or -1 if no lattice produced a usable score.
	BestLattice() int
	// Summary renders the mode-specific result line internal/driver
	// prepends to the common final success line.
	Summary() string
}

// Engine scores one date's dataset(s) against every lattice in a catalog,
// accumulating internal state across the whole date loop.
type Engine interface {
	// ScoreDate scores one linearized date's dataset(s): for UMA, exactly
	// one Set (the concurrent dataset across all tasks); for NUMA, one Set
	// per processor (the instant-local dataset).
	ScoreDate(cat *lattice.Catalog, datasets []polyset.Set) error

	// Finalize completes scoring (for NUMA, this is where the MILP oracle
	// is invoked per lattice) and returns the winning lattice.
	Finalize(ctx context.Context) (Result, error)
}

func fmtLattice1Indexed(l int) string {
	if l < 0 {
		return "none"
	}
	return fmt.Sprintf("%d", l+1)
}
