package arch

import "github.com/pkg/errors"

// ErrNotContiguous is returned by ValidateContiguous when a NUMA
// allocation assigns a task's processors as anything other than one
// contiguous run: legal only when ids are in non-decreasing runs so that
// each task's processors are contiguous.
var ErrNotContiguous = errors.New("arch: NUMA allocation is not contiguous per task")

// Allocation is the parsed assignment of tasks to processors. For UMA
// only N is populated; for NUMA, TaskOnProcessor is the as-parsed field
// and N/TaskOffset are derived from it.
type Allocation struct {
	Mode Mode

	NumWorkingProcessors int
	NumTasks             int

	// N is processors-per-task (UMA: as parsed; NUMA: derived from
	// TaskOnProcessor by ValidateContiguous).
	N []int

	// TaskOnProcessor is NUMA's as-parsed field: the task id executing on
	// each processor.
	TaskOnProcessor []int

	// TaskOffset[t] is the first processor index task t owns (NUMA only).
	TaskOffset []int
}

// ValidateContiguous checks that a.TaskOnProcessor assigns each task a
// single contiguous run of processors, with task ids non-decreasing from
// one processor to the next, and on success fills in a.N and
// a.TaskOffset. It is a no-op (and always succeeds) for UMA allocations.
func ValidateContiguous(a *Allocation) error {
	if a.Mode != NUMA {
		return nil
	}
	n := make([]int, a.NumTasks)
	offset := make([]int, a.NumTasks)
	for t := range offset {
		offset[t] = -1
	}
	lastTask := -1
	for p, task := range a.TaskOnProcessor {
		if task < 0 || task >= a.NumTasks {
			return errors.Errorf("arch: processor %d assigned to out-of-range task %d", p, task)
		}
		if task < lastTask {
			return errors.Wrapf(ErrNotContiguous, "task %d follows task %d at processor %d", task, lastTask, p)
		}
		if offset[task] == -1 {
			offset[task] = p
		} else if task != lastTask {
			// Task reappears after a different task's run started: not contiguous.
			return errors.Wrapf(ErrNotContiguous, "task %d reappears at processor %d", task, p)
		}
		n[task]++
		lastTask = task
	}
	for t := 0; t < a.NumTasks; t++ {
		if offset[t] == -1 {
			return errors.Errorf("arch: task %d has no processors assigned", t)
		}
	}
	a.N = n
	a.TaskOffset = offset
	return nil
}
