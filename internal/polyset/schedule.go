package polyset

import "github.com/pkg/errors"

// BandMember is one dimension of a schedule band: an expression over the
// task's original iteration-domain dims giving that dimension's logical
// time coordinate, plus the coincident flag used to find the outermost
// parallel dimension.
type BandMember struct {
	Name       string
	Expr       Expr
	Coincident bool
}

// Band is a sequence of BandMembers scheduled together, the schedule-tree
// node this facade supports — simplified to the linear band/filter chain
// every task in this model actually produces (see DESIGN.md).
type Band struct {
	Members []BandMember
	Child   *ScheduleTree
}

// Filter restricts a band's domain to a sub-relation before scheduling its
// child, used when a task's schedule has a conditional stage.
type Filter struct {
	Constraints []Constraint
	Child       *ScheduleTree
}

// ScheduleTree is either a Band or a Filter node; exactly one of the two
// fields is non-nil.
type ScheduleTree struct {
	Band   *Band
	Filter *Filter
}

// Leaf returns the empty schedule tree (no further nodes).
func Leaf() *ScheduleTree { return nil }

// NewBand wraps members as a single-node schedule tree with the given
// child (nil for a leaf).
func NewBand(members []BandMember, child *ScheduleTree) *ScheduleTree {
	return &ScheduleTree{Band: &Band{Members: append([]BandMember(nil), members...), Child: child}}
}

// NewFilter wraps constraints as a single-node schedule tree with the given
// child.
func NewFilter(constraints []Constraint, child *ScheduleTree) *ScheduleTree {
	return &ScheduleTree{Filter: &Filter{Constraints: append([]Constraint(nil), constraints...), Child: child}}
}

// FlattenSchedule walks t in document order, collecting every BandMember
// and every Filter's constraints, producing the ordered logical-time
// expression list and accumulated filter constraints physical-schedule
// construction needs (each member's Expr is over the
// domain's original iteration dims; a node deeper in the tree only ever
// refines, never replaces, the coordinates collected above it).
func FlattenSchedule(t *ScheduleTree) ([]BandMember, []Constraint, error) {
	var members []BandMember
	var constraints []Constraint
	cur := t
	for cur != nil {
		switch {
		case cur.Band != nil:
			members = append(members, cur.Band.Members...)
			cur = cur.Band.Child
		case cur.Filter != nil:
			constraints = append(constraints, cur.Filter.Constraints...)
			cur = cur.Filter.Child
		default:
			return nil, nil, errors.New("polyset: schedule tree node has neither Band nor Filter set")
		}
	}
	return members, constraints, nil
}

// ParallelPos walks t node by node looking for the shallowest band whose
// first member is coincident — it tests only each band's member 0, never
// a later member of the same band. A multi-member band whose first member
// is not coincident is disqualified outright and the walk moves on to
// that node's child, even if a later member of the disqualified band is
// itself coincident. It returns the position of the qualifying member
// within the member list FlattenSchedule produces for t, or -1 if no band
// qualifies.
func ParallelPos(t *ScheduleTree) (int, error) {
	offset := 0
	cur := t
	for cur != nil {
		switch {
		case cur.Band != nil:
			if len(cur.Band.Members) > 0 && cur.Band.Members[0].Coincident {
				return offset, nil
			}
			offset += len(cur.Band.Members)
			cur = cur.Band.Child
		case cur.Filter != nil:
			cur = cur.Filter.Child
		default:
			return -1, errors.New("polyset: schedule tree node has neither Band nor Filter set")
		}
	}
	return -1, nil
}

// ScheduleRelation builds the Relation mapping a task's iteration-domain
// points to their flattened logical-time coordinates, i.e. the schedule as
// a function — the form every downstream pipeline stage (physical
// flattening, linearization) actually consumes.
func ScheduleRelation(domainSpace RelSpace, t *ScheduleTree) (Relation, []Constraint, error) {
	members, constraints, err := FlattenSchedule(t)
	if err != nil {
		return Relation{}, nil, err
	}
	out := make([]Expr, len(members))
	names := make([]string, len(members))
	for i, m := range members {
		out[i] = m.Expr.clone()
		names[i] = m.Name
	}
	space := RelSpace{Params: append([]string(nil), domainSpace.Params...), In: append([]string(nil), domainSpace.In...), Out: names}
	basic := BasicRelation{Space: space, Domain: unboundedDomain(len(domainSpace.In)), Out: out}
	return NewRelation(basic), constraints, nil
}

func unboundedDomain(n int) []Bound {
	b := make([]Bound, n)
	for i := range b {
		b[i] = Unbounded()
	}
	return b
}
