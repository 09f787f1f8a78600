package cost

import (
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/ing-raf/Lattice-Based-Memory-Partitioning-Master-Thesis-Implementation/internal/arch"
	"github.com/ing-raf/Lattice-Based-Memory-Partitioning-Master-Thesis-Implementation/internal/lattice"
	"github.com/ing-raf/Lattice-Based-Memory-Partitioning-Master-Thesis-Implementation/internal/milp"
	"github.com/ing-raf/Lattice-Based-Memory-Partitioning-Master-Thesis-Implementation/internal/polyset"
)

// fakeOracle reports a fixed Result per call, in call order, so tests can
// drive NUMAEngine.Finalize's tie-break logic without a real solver. It
// also records every Model it was handed, so tests can inspect what
// Finalize actually passed to the oracle.
type fakeOracle struct {
	results []milp.Result
	calls   int
	models  []milp.Model
}

func (o *fakeOracle) Solve(ctx context.Context, m milp.Model) (milp.Result, error) {
	o.models = append(o.models, m)
	r := o.results[o.calls]
	o.calls++
	return r, nil
}

func twoBankArch() *arch.Architecture {
	return &arch.Architecture{
		Mode: arch.NUMA, NumProcessors: 2, NumBanks: 2,
		BankLatencyKind: arch.BankLatencyFixed, BankLatency: []float64{1, 1},
		Delta: mat.NewDense(2, 2, []float64{1, 4, 4, 1}),
	}
}

func singleBankDataset(v0, v1 int) []polyset.Set {
	space := polyset.SetSpace{Dims: []string{"a"}}
	return []polyset.Set{
		polyset.NewSet(polyset.NewBasicSet(space, []polyset.Bound{polyset.Fixed(v0)})),
		polyset.NewSet(polyset.NewBasicSet(space, []polyset.Bound{polyset.Fixed(v1)})),
	}
}

func TestNUMAEngineAccumulatesDatasetTypeTable(t *testing.T) {
	a := twoBankArch()
	cat := evenOddCatalog(t)
	oracle := &fakeOracle{results: []milp.Result{{Status: milp.Optimal, Objective: 8}}}
	e := NewNUMAEngine(a, oracle, nil, cat.NumLattices())

	// Two dates producing the same access matrix should collapse into one
	// dataset type with multiplicity 2.
	if err := e.ScoreDate(cat, singleBankDataset(0, 1)); err != nil {
		t.Fatal(err)
	}
	if err := e.ScoreDate(cat, singleBankDataset(2, 3)); err != nil {
		t.Fatal(err)
	}
	if got := e.tables[0].Len(); got != 1 {
		t.Fatalf("got %d distinct dataset types, want 1", got)
	}
	if _, mult := e.tables[0].Entry(0); mult != 2 {
		t.Fatalf("got multiplicity %d, want 2", mult)
	}
}

func TestNUMAEngineFinalizeTieBreak(t *testing.T) {
	a := twoBankArch()
	cat := twoLatticeCatalog(t)
	// Lattice 0 reports objective 8, lattice 1 reports a strictly worse 9:
	// the cutoff (currentBest+1 = (8-1)+1 = 8) rejects it, leaving lattice 0
	// the winner.
	oracle := &fakeOracle{results: []milp.Result{
		{Status: milp.Optimal, Objective: 8},
		{Status: milp.Optimal, Objective: 9},
	}}
	e := NewNUMAEngine(a, oracle, nil, cat.NumLattices())
	if err := e.ScoreDate(cat, singleBankDataset(0, 1)); err != nil {
		t.Fatal(err)
	}
	res, err := e.Finalize(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	nr := res.(*NUMAResult)
	if nr.Best != 0 {
		t.Fatalf("got best lattice %d, want 0", nr.Best)
	}
	if nr.Objective != 8 {
		t.Fatalf("got objective %v, want 8", nr.Objective)
	}
}

func TestNUMAEngineFinalizeAcceptsStrictlyBetterLattice(t *testing.T) {
	a := twoBankArch()
	cat := twoLatticeCatalog(t)
	oracle := &fakeOracle{results: []milp.Result{
		{Status: milp.Optimal, Objective: 8},
		{Status: milp.Optimal, Objective: 3},
	}}
	e := NewNUMAEngine(a, oracle, nil, cat.NumLattices())
	if err := e.ScoreDate(cat, singleBankDataset(0, 1)); err != nil {
		t.Fatal(err)
	}
	res, err := e.Finalize(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	nr := res.(*NUMAResult)
	if nr.Best != 1 {
		t.Fatalf("got best lattice %d, want 1", nr.Best)
	}
	if nr.Objective != 3 {
		t.Fatalf("got objective %v, want 3", nr.Objective)
	}
}

// TestNUMAEngineFinalizePassesZeroMinLatencyOnFirstLattice covers the
// oracle input contract directly: MinLatency must be 0 on the first
// lattice, not whatever sentinel Finalize's own running bound happens to
// be seeded with.
func TestNUMAEngineFinalizePassesZeroMinLatencyOnFirstLattice(t *testing.T) {
	a := twoBankArch()
	cat := twoLatticeCatalog(t)
	oracle := &fakeOracle{results: []milp.Result{
		{Status: milp.Optimal, Objective: 8},
		{Status: milp.Optimal, Objective: 3},
	}}
	e := NewNUMAEngine(a, oracle, nil, cat.NumLattices())
	if err := e.ScoreDate(cat, singleBankDataset(0, 1)); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Finalize(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(oracle.models) != 2 {
		t.Fatalf("got %d oracle calls, want 2", len(oracle.models))
	}
	if oracle.models[0].MinLatency != 0 {
		t.Fatalf("got MinLatency %v for the first lattice, want 0", oracle.models[0].MinLatency)
	}
	if oracle.models[0].NonFirstLattice {
		t.Fatalf("first lattice must report NonFirstLattice = false")
	}
	if !oracle.models[1].NonFirstLattice {
		t.Fatalf("second lattice must report NonFirstLattice = true")
	}
}

// erroringOracle returns errs[calls] if non-nil, otherwise results[calls]:
// it drives the skip-and-continue path Finalize takes on a per-lattice
// solver failure.
type erroringOracle struct {
	results []milp.Result
	errs    []error
	calls   int
}

func (o *erroringOracle) Solve(ctx context.Context, m milp.Model) (milp.Result, error) {
	i := o.calls
	o.calls++
	if o.errs[i] != nil {
		return milp.Result{}, o.errs[i]
	}
	return o.results[i], nil
}

// threeLatticeCatalog is evenOddCatalog's translate set repeated three
// times, one independent lattice slot per call to erroringOracle.
func threeLatticeCatalog(t *testing.T) *lattice.Catalog {
	t.Helper()
	one := evenOddCatalog(t)
	return &lattice.Catalog{NumBanks: one.NumBanks, DimVirt: one.DimVirt, Translates: []([]polyset.Set){one.Translates[0], one.Translates[0], one.Translates[0]}}
}

func twoLatticeCatalog(t *testing.T) *lattice.Catalog {
	t.Helper()
	one := evenOddCatalog(t)
	return &lattice.Catalog{NumBanks: one.NumBanks, DimVirt: one.DimVirt, Translates: []([]polyset.Set){one.Translates[0], one.Translates[0]}}
}

var errTestSolver = errors.New("cost: test solver failure")

// TestNUMAEngineFinalizeLogsSkippedLattices covers spec.md §7's one
// documented exception to no-recovery propagation: a per-lattice solver
// failure is logged and that lattice is skipped, rather than aborting the
// whole run. Exercises both ways a lattice can be skipped: a Solve error,
// and a non-Optimal status.
func TestNUMAEngineFinalizeLogsSkippedLattices(t *testing.T) {
	a := twoBankArch()
	cat := threeLatticeCatalog(t)
	oracle := &erroringOracle{
		errs:    []error{errTestSolver, nil, nil},
		results: []milp.Result{{}, {Status: milp.Infeasible}, {Status: milp.Optimal, Objective: 5}},
	}

	var logBuf strings.Builder
	logger := logrus.New()
	logger.SetOutput(&logBuf)
	logger.SetLevel(logrus.WarnLevel)

	e := NewNUMAEngine(a, oracle, logger, cat.NumLattices())
	if err := e.ScoreDate(cat, singleBankDataset(0, 1)); err != nil {
		t.Fatal(err)
	}
	res, err := e.Finalize(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	nr := res.(*NUMAResult)
	if nr.Best != 2 {
		t.Fatalf("got best lattice %d, want 2 (the only lattice that solved)", nr.Best)
	}

	logged := logBuf.String()
	if !strings.Contains(logged, "lattice 0") || !strings.Contains(logged, errTestSolver.Error()) {
		t.Fatalf("expected a warning naming lattice 0's solver error, got: %s", logged)
	}
	if !strings.Contains(logged, "lattice 1") {
		t.Fatalf("expected a warning naming lattice 1's non-Optimal status, got: %s", logged)
	}
	if strings.Contains(logged, "lattice 2") {
		t.Fatalf("lattice 2 solved successfully and must not be logged as skipped, got: %s", logged)
	}
}
