package pipeline

import (
	"github.com/pkg/errors"

	"github.com/ing-raf/Lattice-Based-Memory-Partitioning-Master-Thesis-Implementation/internal/polyset"
)

// ErrNoParallelBand is returned when a task's schedule tree has no band
// whose first member is coincident.
var ErrNoParallelBand = errors.New("pipeline: no parallel dimension found")

// FlattenedSchedule is the result of C4: the per-task physical schedule
// relation plus the depth of the coordinate that was divided.
type FlattenedSchedule struct {
	ParallelPos int
	Schedule    polyset.Relation
	// ParallelMember is the undivided schedule coordinate at ParallelPos,
	// kept because C5 (processor allocation) needs it before division.
	ParallelMember polyset.Expr
}

// BuildFlattenedSchedule locates the shallowest band whose first member
// is coincident, then replaces that coordinate k
// with floor(k / n) everywhere — collapsing the n processors working in
// parallel within one task down to one time step.
func BuildFlattenedSchedule(domainSpace polyset.RelSpace, tree *polyset.ScheduleTree, n int) (FlattenedSchedule, []polyset.Constraint, error) {
	pos, err := polyset.ParallelPos(tree)
	if err != nil {
		return FlattenedSchedule{}, nil, err
	}
	if pos == -1 {
		return FlattenedSchedule{}, nil, ErrNoParallelBand
	}
	members, constraints, err := polyset.FlattenSchedule(tree)
	if err != nil {
		return FlattenedSchedule{}, nil, err
	}

	out := make([]polyset.Expr, len(members))
	names := make([]string, len(members))
	for i, m := range members {
		out[i] = m.Expr
		names[i] = m.Name
	}
	parallelMember := out[pos]
	out[pos] = out[pos].DividedBy(n)

	space := polyset.RelSpace{Params: append([]string(nil), domainSpace.Params...), In: append([]string(nil), domainSpace.In...), Out: names}
	domain := make([]polyset.Bound, len(domainSpace.In))
	for i := range domain {
		domain[i] = polyset.Unbounded()
	}
	basic := polyset.NewBasicRelation(space, domain, out)
	for _, c := range constraints {
		basic = basic.AddConstraint(c)
	}
	return FlattenedSchedule{ParallelPos: pos, Schedule: polyset.NewRelation(basic), ParallelMember: parallelMember}, constraints, nil
}
