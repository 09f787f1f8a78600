package pipeline

import "github.com/ing-raf/Lattice-Based-Memory-Partitioning-Master-Thesis-Implementation/internal/polyset"

// BuildAllocation builds the (NUMA only) map iteration -> (k_par mod n)
// where k_par is the undivided schedule
// coordinate at parallel_pos. Callers add task_offset[t] to convert the
// within-task processor id this yields into a global processor id.
func BuildAllocation(domainSpace polyset.RelSpace, parallelMember polyset.Expr, n int) polyset.Relation {
	domain := make([]polyset.Bound, len(domainSpace.In))
	for i := range domain {
		domain[i] = polyset.Unbounded()
	}
	space := polyset.RelSpace{Params: append([]string(nil), domainSpace.Params...), In: append([]string(nil), domainSpace.In...), Out: []string{"proc"}}
	basic := polyset.NewBasicRelation(space, domain, []polyset.Expr{parallelMember.Modulo(n)})
	return polyset.NewRelation(basic)
}
