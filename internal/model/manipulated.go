package model

import "github.com/ing-raf/Lattice-Based-Memory-Partitioning-Master-Thesis-Implementation/internal/polyset"

// ManipulatedModel is the per-task state built by the pipeline stages.
// Each field is first written by one pipeline stage, in stage order.
// Parameter elimination (C6) then replaces FlattenedSchedule, Allocation
// and the three Remapped* relations with their parameter-free versions;
// no other stage overwrites a field an earlier stage produced.
type ManipulatedModel struct {
	// ParallelPos is written by C4 (internal/pipeline/physicalschedule.go).
	ParallelPos int

	// InstanceSet is written by C6 (internal/pipeline/params.go): the
	// original Task.InstanceSet with parameters eliminated.
	InstanceSet polyset.Set

	// FlattenedSchedule is written by C4: iteration -> physical time tuple.
	FlattenedSchedule polyset.Relation

	// Allocation is written by C5, NUMA only: iteration -> processor id
	// within the task. Nil for UMA.
	Allocation *polyset.Relation

	RemappedMayReads   polyset.Relation
	RemappedMayWrites  polyset.Relation
	RemappedMustWrites polyset.Relation

	// LinearizedSchedule is written by C7: iteration -> scalar date.
	LinearizedSchedule polyset.Relation
}

// NewManipulatedModel returns a zero-value ManipulatedModel ready for the
// pipeline stages to fill in, one field at a time, in stage order.
func NewManipulatedModel() *ManipulatedModel {
	return &ManipulatedModel{ParallelPos: -1}
}
