package cost

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/ing-raf/Lattice-Based-Memory-Partitioning-Master-Thesis-Implementation/internal/lattice"
	"github.com/ing-raf/Lattice-Based-Memory-Partitioning-Master-Thesis-Implementation/internal/polyset"
)

// UMAEngine scores lattices for UMA architectures: per date per lattice,
// the max-over-translates count of concurrent accesses, summed over dates.
type UMAEngine struct {
	mu   sync.Mutex
	cost []float64 // per-lattice running total
}

// NewUMAEngine returns an engine with one zeroed accumulator per lattice.
func NewUMAEngine(numLattices int) *UMAEngine {
	return &UMAEngine{cost: make([]float64, numLattices)}
}

// ScoreDate implements Engine. datasets must have exactly one element:
// the concurrent dataset across all tasks at this date.
func (e *UMAEngine) ScoreDate(cat *lattice.Catalog, datasets []polyset.Set) error {
	if len(datasets) != 1 {
		return errors.Errorf("cost: UMAEngine.ScoreDate expects exactly one dataset, got %d", len(datasets))
	}
	dataset := datasets[0]

	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.cost) != cat.NumLattices() {
		return errors.Errorf("cost: catalog has %d lattices, engine was built for %d", cat.NumLattices(), len(e.cost))
	}
	for l := 0; l < cat.NumLattices(); l++ {
		counts := make([]float64, cat.NumBanks)
		for i := 0; i < cat.NumBanks; i++ {
			translate := cat.Translate(l, i)
			z := polyset.Set{Space: dataset.Space, Basic: intersectAllPairs(dataset, translate)}
			n, err := z.Count(nil)
			if err != nil {
				return errors.Wrapf(err, "cost: counting dataset ∩ translate for lattice %d bank %d", l, i)
			}
			counts[i] = float64(n)
		}
		e.cost[l] += floats.Max(counts)
	}
	return nil
}

// Finalize implements Engine: argmin over the per-lattice totals, ties
// resolved by lowest index.
func (e *UMAEngine) Finalize(ctx context.Context) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	best := -1
	var bestCost float64
	for l, c := range e.cost {
		if best == -1 || c < bestCost {
			best, bestCost = l, c
		}
	}
	return &UMAResult{Best: best, TotalCost: bestCost, AllCosts: append([]float64(nil), e.cost...)}, nil
}

// UMAResult is the UMA Engine's Result.
type UMAResult struct {
	Best      int
	TotalCost float64
	AllCosts  []float64
}

func (r *UMAResult) BestLattice() int { return r.Best }

func (r *UMAResult) Summary() string {
	return "UMA cost engine: lattice " + fmtLattice1Indexed(r.Best) + " has the lowest concurrent-access cost"
}

// intersectAllPairs returns every pairwise intersection of a's and b's
// BasicSets as a fresh BasicSet slice, used to build a∩b without adding a
// general Set-level Intersect to internal/polyset (the only caller of
// set/set intersection in this planner is this per-translate scoring step).
func intersectAllPairs(a, b polyset.Set) []polyset.BasicSet {
	var out []polyset.BasicSet
	for _, ab := range a.Basic {
		for _, bb := range b.Basic {
			out = append(out, intersectBasic(ab, bb))
		}
	}
	return out
}

func intersectBasic(a, b polyset.BasicSet) polyset.BasicSet {
	bounds := make([]polyset.Bound, len(a.Bounds))
	for i := range bounds {
		bounds[i] = tightenBoundPair(a.Bounds[i], b.Bounds[i])
	}
	cons := append(append([]polyset.Constraint(nil), a.Constraints...), b.Constraints...)
	return polyset.BasicSet{Space: a.Space, Bounds: bounds, Constraints: cons}
}

func tightenBoundPair(a, b polyset.Bound) polyset.Bound {
	out := a
	if b.HasLo && (!out.HasLo || b.Lo > out.Lo) {
		out.HasLo, out.Lo = true, b.Lo
	}
	if b.HasHi && (!out.HasHi || b.Hi < out.Hi) {
		out.HasHi, out.Hi = true, b.Hi
	}
	return out
}
