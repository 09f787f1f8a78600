package cost

import (
	"context"
	"math"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/ing-raf/Lattice-Based-Memory-Partitioning-Master-Thesis-Implementation/internal/arch"
	"github.com/ing-raf/Lattice-Based-Memory-Partitioning-Master-Thesis-Implementation/internal/lattice"
	"github.com/ing-raf/Lattice-Based-Memory-Partitioning-Master-Thesis-Implementation/internal/milp"
	"github.com/ing-raf/Lattice-Based-Memory-Partitioning-Master-Thesis-Implementation/internal/model"
	"github.com/ing-raf/Lattice-Based-Memory-Partitioning-Master-Thesis-Implementation/internal/polyset"
)

// NUMAEngine scores lattices for NUMA architectures: per date per
// lattice, it builds the numBanks x numProcessors access matrix,
// deduplicates it into the
// lattice's dataset-type table, and after the whole date loop formulates
// one MILP per lattice.
type NUMAEngine struct {
	mu     sync.Mutex
	arch   *arch.Architecture
	oracle milp.Oracle
	logger *logrus.Logger
	tables []*model.DatasetTypeTable // per-lattice
	dates  int
}

// NewNUMAEngine returns an engine for the given architecture, ready to
// score numLattices lattices, using oracle as the MILP solver. logger
// receives a Warn for every lattice Finalize skips (solver error or a
// non-Optimal status) — the one place spec.md §7 lets a per-lattice
// failure be logged and swallowed instead of propagated as a stage
// failure. A nil logger is replaced by logrus.New(), which writes these
// warnings to standard error.
func NewNUMAEngine(a *arch.Architecture, oracle milp.Oracle, logger *logrus.Logger, numLattices int) *NUMAEngine {
	if logger == nil {
		logger = logrus.New()
	}
	tables := make([]*model.DatasetTypeTable, numLattices)
	for i := range tables {
		tables[i] = model.NewDatasetTypeTable()
	}
	return &NUMAEngine{arch: a, oracle: oracle, logger: logger, tables: tables}
}

// ScoreDate implements Engine. datasets must have exactly NumProcessors
// elements: the instant-local dataset for each processor at this date.
func (e *NUMAEngine) ScoreDate(cat *lattice.Catalog, datasets []polyset.Set) error {
	if len(datasets) != e.arch.NumProcessors {
		return errors.Errorf("cost: NUMAEngine.ScoreDate expects %d datasets, got %d", e.arch.NumProcessors, len(datasets))
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.tables) != cat.NumLattices() {
		return errors.Errorf("cost: catalog has %d lattices, engine was built for %d", cat.NumLattices(), len(e.tables))
	}
	e.dates++
	for l := 0; l < cat.NumLattices(); l++ {
		m := mat.NewDense(cat.NumBanks, e.arch.NumProcessors, nil)
		for p, ds := range datasets {
			for i := 0; i < cat.NumBanks; i++ {
				translate := cat.Translate(l, i)
				z := polyset.Set{Space: ds.Space, Basic: intersectAllPairs(ds, translate)}
				n, err := z.Count(nil)
				if err != nil {
					return errors.Wrapf(err, "cost: counting instant-local dataset ∩ translate for lattice %d bank %d processor %d", l, i, p)
				}
				m.Set(i, p, float64(n))
			}
		}
		e.tables[l].Add(m)
	}
	return nil
}

// Finalize implements Engine: formulates one milp.Model per lattice from
// its dataset-type table, invokes the oracle, and applies the tie-break
// rule: replace currentBest when the solver reports Optimal and
// objective < currentBest + 1.
func (e *NUMAEngine) Finalize(ctx context.Context) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	currentBest := math.Inf(1)
	best := -1
	var bestObjective float64
	for l, tbl := range e.tables {
		minLatency := currentBest
		if l == 0 {
			minLatency = 0 // oracle input contract: 0 on the first lattice
		}
		m := buildModel(e.arch, tbl, minLatency, l > 0)
		res, err := e.oracle.Solve(ctx, m)
		if err != nil {
			e.logger.Warnf("lattice %d: MILP solver error: %v, skipping", l, err)
			continue
		}
		if res.Status != milp.Optimal {
			e.logger.Warnf("lattice %d: MILP solver returned %v instead of Optimal, skipping", l, res.Status)
			continue
		}
		if res.Objective < currentBest+1 {
			currentBest = res.Objective - 1
			best = l
			bestObjective = res.Objective
		}
	}
	return &NUMAResult{Best: best, Objective: bestObjective}, nil
}

func buildModel(a *arch.Architecture, tbl *model.DatasetTypeTable, currentBest float64, nonFirst bool) milp.Model {
	m := milp.Model{
		P:               a.NumProcessors,
		B:               a.NumBanks,
		D:               tbl.Len(),
		MinLatency:      currentBest,
		NonFirstLattice: nonFirst,
		BankLatency:     a.UniformBankLatency(),
		Delta:           a.Delta,
		Multiplicity:    make([]int, tbl.Len()),
		Counts:          make(map[[3]int]int),
	}
	maxT := 0
	for d := 0; d < tbl.Len(); d++ {
		matrix, mult := tbl.Entry(d)
		m.Multiplicity[d] = mult
		r, c := matrix.Dims()
		if r > maxT {
			maxT = r
		}
		for p := 0; p < c; p++ {
			for t := 0; t < r; t++ {
				if v := int(matrix.At(t, p)); v != 0 {
					m.Counts[[3]int{d, p, t}] = v
				}
			}
		}
	}
	m.T = maxT
	return m
}

// NUMAResult is the NUMA Engine's Result.
type NUMAResult struct {
	Best      int
	Objective float64
}

func (r *NUMAResult) BestLattice() int { return r.Best }

func (r *NUMAResult) Summary() string {
	return "NUMA cost engine: lattice " + fmtLattice1Indexed(r.Best) + " has the lowest MILP-bounded maximum latency"
}
