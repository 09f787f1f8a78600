// Command latticeplan runs the static memory-bank-partitioning planner
// end to end: it reads an architecture, an allocation, and one or more
// (task, parameter) file pairs, then picks the lattice that minimizes the
// worst-case concurrent memory-bank pressure.
//
// Usage:
//
//	latticeplan [flags] output_path architecture_name allocation_name (task_name param_name)+
//
// output_path may be "stdout" to write the result to standard output.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ing-raf/Lattice-Based-Memory-Partitioning-Master-Thesis-Implementation/internal/arch"
	"github.com/ing-raf/Lattice-Based-Memory-Partitioning-Master-Thesis-Implementation/internal/driver"
	"github.com/ing-raf/Lattice-Based-Memory-Partitioning-Master-Thesis-Implementation/internal/lattice"
	"github.com/ing-raf/Lattice-Based-Memory-Partitioning-Master-Thesis-Implementation/internal/model"
	"github.com/ing-raf/Lattice-Based-Memory-Partitioning-Master-Thesis-Implementation/internal/paramfile"
	"github.com/ing-raf/Lattice-Based-Memory-Partitioning-Master-Thesis-Implementation/internal/pipeline"
	"github.com/ing-raf/Lattice-Based-Memory-Partitioning-Master-Thesis-Implementation/internal/polyset"
	"github.com/ing-raf/Lattice-Based-Memory-Partitioning-Master-Thesis-Implementation/internal/taskfile"
)

var (
	verbose     = flag.Bool("v", false, "enable info-level logging")
	veryVerbose = flag.Bool("vv", false, "enable debug-level logging")
	maxLattices = flag.Int("max-lattices", 0, "restrict the date loop to the catalog's first N lattices (0 = unbounded)")
	islCoalesce = flag.Bool("isl-coalesce", true, "coalesce datasets after each fan-out operation")
	latticeDir  = flag.String("lattice-dir", ".", "directory holding the lattice catalog's numLattices/translate files")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: latticeplan [flags] output_path architecture_name allocation_name (task_name param_name)+")
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%s%v%s\n", "\x1b[91m", err, "\x1b[0m")
		os.Exit(1)
	}
}

func run() error {
	args := flag.Args()
	if len(args) < 3 {
		flag.Usage()
		return fmt.Errorf("latticeplan: expected output_path architecture_name allocation_name, got %d arguments", len(args))
	}
	outputPath, archPath, allocPath := args[0], args[1], args[2]
	rest := args[3:]
	if len(rest)%2 != 0 {
		return fmt.Errorf("latticeplan: task/param arguments must come in pairs, got %d", len(rest))
	}

	out, closeOut, err := openOutput(outputPath)
	if err != nil {
		return err
	}
	defer closeOut()

	ph := driver.StartPhase(out) // Step 1) — Reading input files

	a, err := parseArchitecture(archPath)
	if err != nil {
		ph.Abort()
		return err
	}
	alloc, err := parseAllocation(allocPath, a.Mode)
	if err != nil {
		ph.Abort()
		return err
	}
	if err := arch.ValidateContiguous(alloc); err != nil {
		ph.Abort()
		return fmt.Errorf("latticeplan: %w", err)
	}

	tasks, paramValues, err := parseTasks(rest)
	if err != nil {
		ph.Abort()
		return err
	}

	dVirt := pipeline.DimVirt(tasks)
	cat, err := lattice.LoadCatalog(os.DirFS(*latticeDir), a.NumBanks, dVirt)
	if err != nil {
		ph.Abort()
		return fmt.Errorf("latticeplan: loading lattice catalog: %w", err)
	}
	ph.Complete()

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	switch {
	case *veryVerbose:
		logger.SetLevel(logrus.DebugLevel)
	case *verbose:
		logger.SetLevel(logrus.InfoLevel)
	default:
		logger.SetLevel(logrus.WarnLevel)
	}

	cfg := driver.Config{
		Architecture:   a,
		Allocation:     alloc,
		Catalog:        cat,
		Tasks:          tasks,
		ParamValues:    paramValues,
		MaxLattices:    *maxLattices,
		PolysetOptions: polyset.Options{CoalesceEnabled: *islCoalesce},
		Output:         out,
		Logger:         logger,
	}

	_, err = driver.Run(context.Background(), cfg, ph)
	return err
}

func parseArchitecture(path string) (*arch.Architecture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("latticeplan: opening architecture file: %w", err)
	}
	defer f.Close()
	a, err := arch.ParseArchitecture(f)
	if err != nil {
		return nil, fmt.Errorf("latticeplan: parsing architecture file: %w", err)
	}
	return a, nil
}

func parseAllocation(path string, mode arch.Mode) (*arch.Allocation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("latticeplan: opening allocation file: %w", err)
	}
	defer f.Close()
	a, err := arch.ParseAllocation(f, mode)
	if err != nil {
		return nil, fmt.Errorf("latticeplan: parsing allocation file: %w", err)
	}
	return a, nil
}

// parseTasks reads each task_name/param_name pair in CLI argument order
// (rest[2i], rest[2i+1]), assigning task indices in that same order.
func parseTasks(rest []string) ([]*model.Task, [][]int, error) {
	n := len(rest) / 2
	tasks := make([]*model.Task, n)
	paramValues := make([][]int, n)
	for i := 0; i < n; i++ {
		taskPath, paramPath := rest[2*i], rest[2*i+1]

		tf, err := os.Open(taskPath)
		if err != nil {
			return nil, nil, fmt.Errorf("latticeplan: opening task file %q: %w", taskPath, err)
		}
		name := strings.TrimSuffix(filepath.Base(taskPath), filepath.Ext(taskPath))
		task, err := taskfile.Parse(tf, name)
		tf.Close()
		if err != nil {
			return nil, nil, fmt.Errorf("latticeplan: parsing task file %q: %w", taskPath, err)
		}
		tasks[i] = task

		pf, err := os.Open(paramPath)
		if err != nil {
			return nil, nil, fmt.Errorf("latticeplan: opening parameter file %q: %w", paramPath, err)
		}
		values, err := paramfile.Parse(pf)
		pf.Close()
		if err != nil {
			return nil, nil, fmt.Errorf("latticeplan: parsing parameter file %q: %w", paramPath, err)
		}
		paramValues[i] = values
	}
	return tasks, paramValues, nil
}

func openOutput(path string) (*os.File, func(), error) {
	if path == "stdout" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("latticeplan: creating output file %q: %w", path, err)
	}
	return f, func() { f.Close() }, nil
}
