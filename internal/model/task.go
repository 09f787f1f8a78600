// Package model holds the per-task polyhedral model (Task, immutable,
// parsed input) and the model built by the pipeline stages
// (ManipulatedModel), plus the NUMA dataset-type table.
package model

import "github.com/ing-raf/Lattice-Based-Memory-Partitioning-Master-Thesis-Implementation/internal/polyset"

// Parameter names one symbolic parameter of a task's polyhedral model. Its
// integer value is supplied out-of-band by internal/paramfile and carried
// alongside the Task rather than inside it, since the same Task could in
// principle be evaluated against different parameter files.
type Parameter struct {
	Name string
}

// Task is one task's immutable, as-parsed polyhedral model. Nothing in
// the pipeline ever mutates a Task; every stage
// reads it and produces fields of a ManipulatedModel instead.
type Task struct {
	Name string

	InstanceSet  polyset.Set
	ScheduleTree *polyset.ScheduleTree
	ArrayExtent  polyset.Set

	MayReads   polyset.Relation
	MayWrites  polyset.Relation
	MustWrites polyset.Relation

	Parameters []Parameter
}

// Dim returns the dimensionality of the task's instance set.
func (t *Task) Dim() int {
	return len(t.InstanceSet.Space.Dims)
}

// Clone returns a copy of t whose sets, relations and parameter list are
// independent of t's; the ScheduleTree is shared with t, not copied.
func (t *Task) Clone() *Task {
	c := &Task{
		Name:         t.Name,
		InstanceSet:  t.InstanceSet.Clone(),
		ArrayExtent:  t.ArrayExtent.Clone(),
		MayReads:     t.MayReads.Clone(),
		MayWrites:    t.MayWrites.Clone(),
		MustWrites:   t.MustWrites.Clone(),
		Parameters:   append([]Parameter(nil), t.Parameters...),
		ScheduleTree: t.ScheduleTree,
	}
	return c
}
