// Package driver runs the pipeline stages in their fixed order, aggregates
// per-date results through a cost.Engine, and selects the minimum-cost
// lattice. Stage ordering is a hard gate, not a dependency-resolved
// fixpoint loop: each stage runs exactly once and a failure aborts
// immediately.
package driver

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ing-raf/Lattice-Based-Memory-Partitioning-Master-Thesis-Implementation/internal/arch"
	"github.com/ing-raf/Lattice-Based-Memory-Partitioning-Master-Thesis-Implementation/internal/cost"
	"github.com/ing-raf/Lattice-Based-Memory-Partitioning-Master-Thesis-Implementation/internal/lattice"
	"github.com/ing-raf/Lattice-Based-Memory-Partitioning-Master-Thesis-Implementation/internal/milp"
	"github.com/ing-raf/Lattice-Based-Memory-Partitioning-Master-Thesis-Implementation/internal/model"
	"github.com/ing-raf/Lattice-Based-Memory-Partitioning-Master-Thesis-Implementation/internal/pipeline"
	"github.com/ing-raf/Lattice-Based-Memory-Partitioning-Master-Thesis-Implementation/internal/polyset"
)

// taskState is the per-task working state the driver threads through
// stages 1-7 in stage order; model.ManipulatedModel documents which stage
// writes, and which stage later replaces, each of its fields.
type taskState struct {
	task *model.Task
	mm   *model.ManipulatedModel

	domainSpace    polyset.RelSpace
	parallelMember polyset.Expr // undivided schedule coordinate, needed by C5 before division
	numDates       int
}

// Run implements C12. It returns the winning cost.Result (whose
// BestLattice is 0-indexed) or a *StageError naming the stage that failed.
//
// ph carries the banner's position in the phaseNames table. Pass the
// *Phase cmd/latticeplan opened to parse its input files, so the "Reading
// input files" step prints Completed or Failed against what actually
// happened on disk, and the remaining steps continue the same step
// numbering. Passing nil opens and immediately completes that first step
// itself — the caller has nothing more to report because Config arrived
// already built, as every direct caller in this package's own tests does.
func Run(ctx context.Context, cfg Config, ph *Phase) (cost.Result, error) {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.New()
	}
	opts := cfg.PolysetOptions

	if ph == nil {
		ph = StartPhase(out)
		ph.Complete()
	}

	ph.Next() // Virtual address space allocation (C3)
	if len(cfg.Tasks) != cfg.Allocation.NumTasks {
		ph.Abort()
		return nil, stageErr(ph.name, KindPipelinePrecondition,
			errors.Wrapf(ErrTaskCountMismatch, "got %d tasks, allocation declares %d", len(cfg.Tasks), cfg.Allocation.NumTasks))
	}
	if cfg.Allocation.NumWorkingProcessors > cfg.Architecture.NumProcessors {
		ph.Abort()
		return nil, stageErr(ph.name, KindPipelinePrecondition, ErrTooManyWorkingProcessors)
	}
	dVirt := pipeline.DimVirt(cfg.Tasks)
	states := make([]*taskState, len(cfg.Tasks))
	for i, t := range cfg.Tasks {
		reads, writes, mustWrites, err := pipeline.RemapAccessRelations(t, i, dVirt)
		if err != nil {
			ph.Abort()
			return nil, stageErr(ph.name, KindPolyhedral, errors.Wrapf(err, "task %s", t.Name))
		}
		mm := model.NewManipulatedModel()
		mm.RemappedMayReads, mm.RemappedMayWrites, mm.RemappedMustWrites = reads, writes, mustWrites
		states[i] = &taskState{task: t, mm: mm}
		logger.WithFields(logrus.Fields{"task": t.Name, "dVirt": dVirt}).Debug("remapped access relations")
	}
	ph.Complete()

	ph.Next() // Reading lattices
	cat := cfg.Catalog
	if cat.DimVirt != dVirt {
		ph.Abort()
		return nil, stageErr(ph.name, KindPipelinePrecondition,
			errors.Wrapf(ErrLatticeDimMismatch, "catalog dim %d, d_virt %d", cat.DimVirt, dVirt))
	}
	if cfg.MaxLattices > 0 && cfg.MaxLattices < cat.NumLattices() {
		logger.Infof("restricting to the first %d of %d lattices", cfg.MaxLattices, cat.NumLattices())
		cat = &lattice.Catalog{NumBanks: cat.NumBanks, DimVirt: cat.DimVirt, Translates: cat.Translates[:cfg.MaxLattices]}
	}
	ph.Complete()

	ph.Next() // Physical schedule building (C4)
	n, err := perTaskProcessorCounts(cfg.Allocation, len(cfg.Tasks))
	if err != nil {
		ph.Abort()
		return nil, stageErr(ph.name, KindInputFormat, err)
	}
	for i, st := range states {
		st.domainSpace = taskDomainSpace(st.task)
		fs, _, err := pipeline.BuildFlattenedSchedule(st.domainSpace, st.task.ScheduleTree, n[i])
		if err != nil {
			ph.Abort()
			return nil, stageErr(ph.name, KindPipelinePrecondition, errors.Wrapf(err, "task %s", st.task.Name))
		}
		st.mm.ParallelPos = fs.ParallelPos
		st.mm.FlattenedSchedule = fs.Schedule
		st.parallelMember = fs.ParallelMember
	}
	ph.Complete()

	ph.Next() // Allocation building (C5, NUMA only)
	if cfg.Architecture.Mode == arch.NUMA {
		for i, st := range states {
			rel := pipeline.BuildAllocation(st.domainSpace, st.parallelMember, n[i])
			st.mm.Allocation = &rel
		}
	}
	ph.Complete()

	ph.Next() // Parameter elimination (C6)
	for i, st := range states {
		values := cfg.ParamValues[i]
		st.mm.InstanceSet = pipeline.EliminateSetParams(st.task.InstanceSet, values)
		st.mm.FlattenedSchedule = pipeline.EliminateRelationParams(st.mm.FlattenedSchedule, values)
		if st.mm.Allocation != nil {
			eliminated := pipeline.EliminateRelationParams(*st.mm.Allocation, values)
			st.mm.Allocation = &eliminated
		}
		st.mm.RemappedMayReads = pipeline.EliminateRelationParams(st.mm.RemappedMayReads, values)
		st.mm.RemappedMayWrites = pipeline.EliminateRelationParams(st.mm.RemappedMayWrites, values)
		st.mm.RemappedMustWrites = pipeline.EliminateRelationParams(st.mm.RemappedMustWrites, values)
	}
	ph.Complete()

	ph.Next() // Mapping parameters computation (C7: builds the iteration->date map)
	numDates := 0
	for _, st := range states {
		lin, err := pipeline.LinearizeSchedule(st.mm.InstanceSet, st.mm.FlattenedSchedule)
		if err != nil {
			ph.Abort()
			return nil, stageErr(ph.name, KindPolyhedral, errors.Wrapf(err, "task %s", st.task.Name))
		}
		st.mm.LinearizedSchedule = lin
		applied, err := st.mm.FlattenedSchedule.Apply(st.mm.InstanceSet, nil)
		if err != nil {
			ph.Abort()
			return nil, stageErr(ph.name, KindPolyhedral, err)
		}
		count, err := applied.Count(nil)
		if err != nil {
			ph.Abort()
			return nil, stageErr(ph.name, KindPolyhedral, err)
		}
		st.numDates = count
		if count > numDates {
			numDates = count
		}
	}
	ph.Complete()

	dateLoopName := "Concurrent dates computation"
	if cfg.Architecture.Mode == arch.NUMA {
		dateLoopName = "Instant local slice building"
	}
	ph.NextNamed(dateLoopName)
	engine, err := newEngine(cfg, cat, logger)
	if err != nil {
		ph.Abort()
		return nil, stageErr(ph.name, KindResource, err)
	}
	if err := runDateLoop(ctx, cfg, states, cat, engine, numDates, opts); err != nil {
		ph.Abort()
		return nil, stageErr(ph.name, KindPolyhedral, err)
	}
	ph.Complete()

	ph.NextNamed("Solution space evaluation")
	res, err := engine.Finalize(ctx)
	if err != nil {
		ph.Abort()
		return nil, stageErr(ph.name, KindSolver, err)
	}
	if res.BestLattice() < 0 {
		ph.Abort()
		return nil, stageErr(ph.name, KindSolver, errors.New("no lattice produced a feasible allocation"))
	}
	ph.Complete()

	fmt.Fprintln(out, res.Summary())
	fmt.Fprintf(out, "The best allocation is the one corresponding to the lattice number %d\n", res.BestLattice()+1)
	return res, nil
}

func newEngine(cfg Config, cat *lattice.Catalog, logger *logrus.Logger) (cost.Engine, error) {
	switch cfg.Architecture.Mode {
	case arch.UMA:
		return cost.NewUMAEngine(cat.NumLattices()), nil
	case arch.NUMA:
		oracle := cfg.Oracle
		if oracle == nil {
			oracle = &milp.BranchAndBoundOracle{}
		}
		return cost.NewNUMAEngine(cfg.Architecture, oracle, logger, cat.NumLattices()), nil
	default:
		return nil, errors.Errorf("driver: unknown architecture mode %v", cfg.Architecture.Mode)
	}
}

// taskDomainSpace builds the RelSpace a task's schedule/allocation
// relations are expressed over: the task's own instance-set dims as the
// domain, named parameters carried through for C6 to fold later.
func taskDomainSpace(t *model.Task) polyset.RelSpace {
	params := make([]string, len(t.Parameters))
	for i, p := range t.Parameters {
		params[i] = p.Name
	}
	return polyset.RelSpace{Params: params, In: append([]string(nil), t.InstanceSet.Space.Dims...)}
}

// perTaskProcessorCounts resolves n[t] (processors assigned to task t) for
// either allocation variant.
func perTaskProcessorCounts(a *arch.Allocation, numTasks int) ([]int, error) {
	if len(a.N) != numTasks {
		return nil, errors.Errorf("driver: allocation names %d tasks' processor counts, want %d", len(a.N), numTasks)
	}
	return a.N, nil
}

// runDateLoop partitions the date range [0, numDates) across
// runtime.NumCPU() workers in the strided-iteration style of a CPU worker
// pool (one goroutine per CPU), with the engine's own mutex serializing
// the merge into its per-lattice accumulators.
func runDateLoop(ctx context.Context, cfg Config, states []*taskState, cat *lattice.Catalog, engine cost.Engine, numDates int, opts polyset.Options) error {
	cpus := runtime.NumCPU()
	if cpus > numDates {
		cpus = numDates
	}
	if cpus < 1 {
		return nil
	}

	var wg sync.WaitGroup
	errs := make([]error, cpus)
	for w := 0; w < cpus; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for d := w; d < numDates; d += cpus {
				if err := ctx.Err(); err != nil {
					errs[w] = err
					return
				}
				if err := scoreDate(cfg, states, cat, engine, d, opts); err != nil {
					errs[w] = errors.Wrapf(err, "date %d", d)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return ctx.Err()
}

// scoreDate builds the one or many (UMA vs NUMA) per-date datasets and
// feeds them to the engine.
func scoreDate(cfg Config, states []*taskState, cat *lattice.Catalog, engine cost.Engine, d int, opts polyset.Options) error {
	switch cfg.Architecture.Mode {
	case arch.UMA:
		dataset, err := concurrentDataset(states, d, opts)
		if err != nil {
			return err
		}
		return engine.ScoreDate(cat, []polyset.Set{dataset})
	case arch.NUMA:
		datasets, err := instantLocalDatasets(cfg.Allocation, states, d, opts)
		if err != nil {
			return err
		}
		return engine.ScoreDate(cat, datasets)
	default:
		return errors.Errorf("driver: unknown architecture mode %v", cfg.Architecture.Mode)
	}
}

// concurrentDataset implements the UMA half of dataset construction: the
// union, across every task, of the accessed addresses at date d.
func concurrentDataset(states []*taskState, d int, opts polyset.Options) (polyset.Set, error) {
	var result polyset.Set
	first := true
	for _, st := range states {
		if d >= st.numDates {
			continue // this task has no iteration at date d
		}
		slice, err := pipeline.PolyhedralSlice(st.mm.InstanceSet, st.mm.LinearizedSchedule, d)
		if err != nil {
			return polyset.Set{}, errors.Wrapf(err, "task %s", st.task.Name)
		}
		dataset, err := pipeline.BuildDataset(slice, st.mm.RemappedMayReads, st.mm.RemappedMayWrites, st.mm.RemappedMustWrites, opts)
		if err != nil {
			return polyset.Set{}, errors.Wrapf(err, "task %s", st.task.Name)
		}
		if first {
			result = dataset
			first = false
			continue
		}
		result = polyset.Union(result, dataset)
	}
	if opts.CoalesceEnabled {
		result = result.Coalesce()
	}
	return result, nil
}

// instantLocalDatasets implements the NUMA half of dataset construction:
// one dataset per physical processor, indexed by global processor id.
func instantLocalDatasets(a *arch.Allocation, states []*taskState, d int, opts polyset.Options) ([]polyset.Set, error) {
	datasets := make([]polyset.Set, len(a.TaskOnProcessor))
	for p, taskIdx := range a.TaskOnProcessor {
		st := states[taskIdx]
		localProc := p - a.TaskOffset[taskIdx]
		if d >= st.numDates {
			datasets[p] = polyset.Set{Space: st.mm.InstanceSet.Space}
			continue
		}
		slice, err := pipeline.PolyhedralSlice(st.mm.InstanceSet, st.mm.LinearizedSchedule, d)
		if err != nil {
			return nil, errors.Wrapf(err, "task %s", st.task.Name)
		}
		local, err := pipeline.InstantLocalSlice(slice, *st.mm.Allocation, localProc)
		if err != nil {
			return nil, errors.Wrapf(err, "task %s processor %d", st.task.Name, p)
		}
		dataset, err := pipeline.BuildDataset(local, st.mm.RemappedMayReads, st.mm.RemappedMayWrites, st.mm.RemappedMustWrites, opts)
		if err != nil {
			return nil, errors.Wrapf(err, "task %s processor %d", st.task.Name, p)
		}
		datasets[p] = dataset
	}
	return datasets, nil
}
