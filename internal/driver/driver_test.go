package driver

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/ing-raf/Lattice-Based-Memory-Partitioning-Master-Thesis-Implementation/internal/arch"
	"github.com/ing-raf/Lattice-Based-Memory-Partitioning-Master-Thesis-Implementation/internal/lattice"
	"github.com/ing-raf/Lattice-Based-Memory-Partitioning-Master-Thesis-Implementation/internal/milp"
	"github.com/ing-raf/Lattice-Based-Memory-Partitioning-Master-Thesis-Implementation/internal/model"
	"github.com/ing-raf/Lattice-Based-Memory-Partitioning-Master-Thesis-Implementation/internal/pipeline"
	"github.com/ing-raf/Lattice-Based-Memory-Partitioning-Master-Thesis-Implementation/internal/polyset"
)

// checkerboardCatalog builds a 2-bank catalog repeated numLattices times
// over the dVirt-dimensional virtual space: bank 0 is every even virtual
// address, bank 1 every odd one, ignoring the task-id coordinate.
func checkerboardCatalog(dVirt, numLattices int) *lattice.Catalog {
	space := polyset.SetSpace{Dims: virtualDims(dVirt)}
	bounds := make([]polyset.Bound, dVirt)
	for i := range bounds {
		bounds[i] = polyset.Unbounded()
	}
	coeffs := make([]int, dVirt)
	coeffs[dVirt-1] = 1 // the last virtual coordinate mirrors the task's array index
	even := polyset.NewBasicSet(space, bounds).AddConstraint(polyset.Mod(coeffs, 0, 2, 0))
	odd := polyset.NewBasicSet(space, bounds).AddConstraint(polyset.Mod(coeffs, 0, 2, 1))

	translates := make([][]polyset.Set, numLattices)
	for l := range translates {
		translates[l] = []polyset.Set{polyset.NewSet(even), polyset.NewSet(odd)}
	}
	return &lattice.Catalog{NumBanks: 2, DimVirt: dVirt, Translates: translates}
}

func virtualDims(dVirt int) []string {
	dims := make([]string, dVirt)
	dims[0] = "task"
	for i := 1; i < dVirt; i++ {
		dims[i] = "a"
	}
	return dims
}

// singleLoopTask builds a 1-D "for i=0..n-1: A[i] = ..." task.
func singleLoopTask(name string, n int, coincident bool) *model.Task {
	extent := polyset.NewSet(polyset.NewBasicSet(polyset.SetSpace{Dims: []string{"a"}}, []polyset.Bound{polyset.Range(0, n-1)}))
	instanceSet := polyset.NewSet(polyset.NewBasicSet(polyset.SetSpace{Dims: []string{"i"}}, []polyset.Bound{polyset.Range(0, n-1)}))
	writes := polyset.NewRelation(polyset.NewBasicRelation(
		polyset.RelSpace{In: []string{"i"}, Out: []string{"a"}},
		[]polyset.Bound{polyset.Range(0, n-1)},
		[]polyset.Expr{polyset.AffineVar(0, 1)},
	))
	tree := polyset.NewBand([]polyset.BandMember{
		{Name: "i", Expr: polyset.AffineVar(0, 1), Coincident: coincident},
	}, nil)
	return &model.Task{Name: name, InstanceSet: instanceSet, ArrayExtent: extent, ScheduleTree: tree, MustWrites: writes}
}

func TestRunUMATieBreakPicksLowestIndexLattice(t *testing.T) {
	task := singleLoopTask("t", 6, true)
	a := &arch.Architecture{Mode: arch.UMA, NumProcessors: 1, NumBanks: 2}
	alloc := &arch.Allocation{Mode: arch.UMA, NumWorkingProcessors: 1, NumTasks: 1, N: []int{1}}
	cat := checkerboardCatalog(2, 2)

	var out bytes.Buffer
	res, err := Run(context.Background(), Config{
		Architecture: a, Allocation: alloc, Catalog: cat,
		Tasks: []*model.Task{task}, ParamValues: [][]int{{}},
		Output: &out,
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.BestLattice() != 0 {
		t.Fatalf("got best lattice %d, want 0", res.BestLattice())
	}
	if out.Len() == 0 {
		t.Fatal("expected a non-empty banner/summary output")
	}
}

func TestRunAbortsWhenNoParallelBand(t *testing.T) {
	task := singleLoopTask("t", 6, false)
	a := &arch.Architecture{Mode: arch.UMA, NumProcessors: 1, NumBanks: 2}
	alloc := &arch.Allocation{Mode: arch.UMA, NumWorkingProcessors: 1, NumTasks: 1, N: []int{1}}
	cat := checkerboardCatalog(2, 1)

	_, err := Run(context.Background(), Config{
		Architecture: a, Allocation: alloc, Catalog: cat,
		Tasks: []*model.Task{task}, ParamValues: [][]int{{}},
		Output: &bytes.Buffer{},
	}, nil)
	if err == nil {
		t.Fatal("expected an error")
	}
	var se *StageError
	if !errors.As(err, &se) {
		t.Fatalf("got %v, want a *StageError", err)
	}
	if se.Kind != KindPipelinePrecondition {
		t.Fatalf("got kind %v, want KindPipelinePrecondition", se.Kind)
	}
	if !errors.Is(err, pipeline.ErrNoParallelBand) {
		t.Fatalf("got %v, want it to wrap pipeline.ErrNoParallelBand", err)
	}
}

func TestRunRejectsTaskCountMismatch(t *testing.T) {
	task := singleLoopTask("t", 6, true)
	a := &arch.Architecture{Mode: arch.UMA, NumProcessors: 1, NumBanks: 2}
	alloc := &arch.Allocation{Mode: arch.UMA, NumWorkingProcessors: 1, NumTasks: 2, N: []int{1, 1}}
	cat := checkerboardCatalog(2, 1)

	_, err := Run(context.Background(), Config{
		Architecture: a, Allocation: alloc, Catalog: cat,
		Tasks: []*model.Task{task}, ParamValues: [][]int{{}},
		Output: &bytes.Buffer{},
	}, nil)
	if !errors.Is(err, ErrTaskCountMismatch) {
		t.Fatalf("got %v, want ErrTaskCountMismatch", err)
	}
}

func TestRunRejectsTooManyWorkingProcessors(t *testing.T) {
	task := singleLoopTask("t", 6, true)
	a := &arch.Architecture{Mode: arch.UMA, NumProcessors: 1, NumBanks: 2}
	alloc := &arch.Allocation{Mode: arch.UMA, NumWorkingProcessors: 2, NumTasks: 1, N: []int{1}}
	cat := checkerboardCatalog(2, 1)

	_, err := Run(context.Background(), Config{
		Architecture: a, Allocation: alloc, Catalog: cat,
		Tasks: []*model.Task{task}, ParamValues: [][]int{{}},
		Output: &bytes.Buffer{},
	}, nil)
	if !errors.Is(err, ErrTooManyWorkingProcessors) {
		t.Fatalf("got %v, want ErrTooManyWorkingProcessors", err)
	}
}

// countingOracle always reports the same result, so the test can focus on
// wiring (call count, lattice selection) rather than on reproducing the
// branch-and-bound arithmetic already covered by internal/milp's tests.
type countingOracle struct {
	calls  int
	result milp.Result
}

func (o *countingOracle) Solve(ctx context.Context, m milp.Model) (milp.Result, error) {
	o.calls++
	return o.result, nil
}

func TestRunNUMAWiresOraclePerLattice(t *testing.T) {
	task := singleLoopTask("t", 4, true)
	a := &arch.Architecture{
		Mode: arch.NUMA, NumProcessors: 2, NumBanks: 2,
		BankLatencyKind: arch.BankLatencyFixed, BankLatency: []float64{1, 1},
		Delta: mat.NewDense(2, 2, []float64{1, 4, 4, 1}),
	}
	alloc := &arch.Allocation{
		Mode: arch.NUMA, NumWorkingProcessors: 2, NumTasks: 1,
		N: []int{2}, TaskOffset: []int{0}, TaskOnProcessor: []int{0, 0},
	}
	cat := checkerboardCatalog(2, 2)
	oracle := &countingOracle{result: milp.Result{Status: milp.Optimal, Objective: 8}}

	res, err := Run(context.Background(), Config{
		Architecture: a, Allocation: alloc, Catalog: cat,
		Tasks: []*model.Task{task}, ParamValues: [][]int{{}},
		Oracle: oracle,
		Output: &bytes.Buffer{},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if oracle.calls != 2 {
		t.Fatalf("got %d oracle calls, want 2 (one per lattice)", oracle.calls)
	}
	if res.BestLattice() != 0 {
		t.Fatalf("got best lattice %d, want 0 (tie broken by index)", res.BestLattice())
	}
}

// TestRunFailsWhenEveryLatticeIsInfeasible covers the case countingOracle
// above cannot: every lattice reports a non-Optimal status, so Finalize
// never picks a winner and Run must surface that as a KindSolver stage
// failure instead of printing a fabricated "lattice number 0".
func TestRunFailsWhenEveryLatticeIsInfeasible(t *testing.T) {
	task := singleLoopTask("t", 4, true)
	a := &arch.Architecture{
		Mode: arch.NUMA, NumProcessors: 2, NumBanks: 2,
		BankLatencyKind: arch.BankLatencyFixed, BankLatency: []float64{1, 1},
		Delta: mat.NewDense(2, 2, []float64{1, 4, 4, 1}),
	}
	alloc := &arch.Allocation{
		Mode: arch.NUMA, NumWorkingProcessors: 2, NumTasks: 1,
		N: []int{2}, TaskOffset: []int{0}, TaskOnProcessor: []int{0, 0},
	}
	cat := checkerboardCatalog(2, 2)
	oracle := &countingOracle{result: milp.Result{Status: milp.Infeasible}}

	_, err := Run(context.Background(), Config{
		Architecture: a, Allocation: alloc, Catalog: cat,
		Tasks: []*model.Task{task}, ParamValues: [][]int{{}},
		Oracle: oracle,
		Output: &bytes.Buffer{},
	}, nil)
	if err == nil {
		t.Fatal("expected an error")
	}
	var se *StageError
	if !errors.As(err, &se) {
		t.Fatalf("got %v, want a *StageError", err)
	}
	if se.Kind != KindSolver {
		t.Fatalf("got kind %v, want KindSolver", se.Kind)
	}
	if oracle.calls != 2 {
		t.Fatalf("got %d oracle calls, want 2 (one per lattice, no early abort)", oracle.calls)
	}
}

// TestRunContinuesCallerOpenedPhase covers passing an already-open *Phase
// (the shape cmd/latticeplan uses once it parses its own input files
// under Step 1 before calling Run): Run must not reopen or re-complete
// "Reading input files" itself, just continue the banner from Step 2.
func TestRunContinuesCallerOpenedPhase(t *testing.T) {
	task := singleLoopTask("t", 6, true)
	a := &arch.Architecture{Mode: arch.UMA, NumProcessors: 1, NumBanks: 2}
	alloc := &arch.Allocation{Mode: arch.UMA, NumWorkingProcessors: 1, NumTasks: 1, N: []int{1}}
	cat := checkerboardCatalog(2, 1)

	var out bytes.Buffer
	ph := StartPhase(&out)
	ph.Complete()
	beforeRun := out.String()

	_, err := Run(context.Background(), Config{
		Architecture: a, Allocation: alloc, Catalog: cat,
		Tasks: []*model.Task{task}, ParamValues: [][]int{{}},
		Output: &out,
	}, ph)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(out.Bytes(), []byte(beforeRun)) {
		t.Fatalf("Run must not reprint Step 1's banner when handed an already-completed phase")
	}
	// Step 1's name appears once in its opening banner and once in its
	// Completed line, both printed before Run was called.
	if bytes.Count(out.Bytes(), []byte("Reading input files")) != 2 {
		t.Fatalf("expected \"Reading input files\" only in Step 1's opening and Completed lines, got output: %s", out.String())
	}
}
