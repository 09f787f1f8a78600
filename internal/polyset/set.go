package polyset

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// BasicSet is a single conjunction of constraints over a SetSpace, with an
// explicit Bound on each dimension. A Bound may be open-ended; ForeachPoint
// enumerates a BasicSet only when every Bound is finite and returns
// ErrUnboundedDimension otherwise.
type BasicSet struct {
	Space       SetSpace
	Bounds      []Bound
	Constraints []Constraint
}

// NewBasicSet builds a BasicSet with the given per-dimension bounds and no
// extra constraints.
func NewBasicSet(space SetSpace, bounds []Bound) BasicSet {
	if len(bounds) != len(space.Dims) {
		panic("polyset: bounds length must match space dims")
	}
	return BasicSet{Space: space.Clone(), Bounds: append([]Bound(nil), bounds...)}
}

func (b BasicSet) Clone() BasicSet {
	return BasicSet{
		Space:       b.Space.Clone(),
		Bounds:      append([]Bound(nil), b.Bounds...),
		Constraints: append([]Constraint(nil), b.Constraints...),
	}
}

// AddConstraint returns a copy of b with one more constraint conjoined.
func (b BasicSet) AddConstraint(c Constraint) BasicSet {
	b2 := b.Clone()
	b2.Constraints = append(b2.Constraints, c)
	return b2
}

// Contains reports whether point x (with the given parameter values)
// satisfies every bound and constraint.
func (b BasicSet) Contains(x []int, params []int) (bool, error) {
	if len(x) != len(b.Bounds) {
		return false, errors.Errorf("polyset: point has %d dims, set has %d", len(x), len(b.Bounds))
	}
	for i, bound := range b.Bounds {
		if bound.HasLo && x[i] < bound.Lo {
			return false, nil
		}
		if bound.HasHi && x[i] > bound.Hi {
			return false, nil
		}
	}
	for _, c := range b.Constraints {
		ok, err := c.Satisfied(x, params)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// Set is a finite union of BasicSets sharing a space — the facade's
// general-purpose set type. A Set with exactly one element behaves like a
// BasicSet; unions arise from Apply fan-out and from Union.
type Set struct {
	Space SetSpace
	Basic []BasicSet
}

// NewSet wraps a single BasicSet as a one-element Set.
func NewSet(b BasicSet) Set { return Set{Space: b.Space.Clone(), Basic: []BasicSet{b}} }

func (s Set) Clone() Set {
	basic := make([]BasicSet, len(s.Basic))
	for i, b := range s.Basic {
		basic[i] = b.Clone()
	}
	return Set{Space: s.Space.Clone(), Basic: basic}
}

// Visit is the signal a ForeachPoint callback returns to control
// enumeration, mirroring isl's stop-on-error foreach idiom without the
// manual error-code plumbing.
type Visit int

const (
	VisitContinue Visit = iota
	VisitStop
)

// ForeachPoint enumerates every integer point in s, in lexicographic order
// within each BasicSet, calling fn on each. It requires every dimension of
// every BasicSet to be Bounded; this package never calls it on a set it has
// not first bounded, since unbounded enumeration is an algebra isl-based
// planners avoid too — point-counting is always done over an explicitly
// bounded domain.
func (s Set) ForeachPoint(params []int, fn func(Point) (Visit, error)) error {
	for _, b := range s.Basic {
		stop, err := foreachPointBasic(b, params, fn)
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
	}
	return nil
}

func foreachPointBasic(b BasicSet, params []int, fn func(Point) (Visit, error)) (bool, error) {
	n := len(b.Bounds)
	x := make([]int, n)
	for i, bound := range b.Bounds {
		if !bound.Bounded() {
			return false, errors.Wrapf(ErrUnboundedDimension, "polyset: dim %d of set", i)
		}
		x[i] = bound.Lo
	}
	if n == 0 {
		ok, err := b.Contains(x, params)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
		v, err := fn(NewPoint())
		return v == VisitStop, err
	}
	for {
		ok, err := b.Contains(x, params)
		if err != nil {
			return false, err
		}
		if ok {
			v, err := fn(Point{Values: append([]int(nil), x...)})
			if err != nil {
				return false, err
			}
			if v == VisitStop {
				return true, nil
			}
		}
		if !advance(x, b.Bounds) {
			return false, nil
		}
	}
}

// advance increments x to the next point in lexicographic order within
// bounds, returning false once the last point has been passed.
func advance(x []int, bounds []Bound) bool {
	for i := len(x) - 1; i >= 0; i-- {
		x[i]++
		if x[i] <= bounds[i].Hi {
			return true
		}
		x[i] = bounds[i].Lo
	}
	return false
}

// Points collects every point of s via ForeachPoint, for callers that want
// a materialized slice rather than a visitor (used when a small set's
// enumeration result is consumed more than once).
func (s Set) Points(params []int) ([]Point, error) {
	var pts []Point
	err := s.ForeachPoint(params, func(p Point) (Visit, error) {
		pts = append(pts, p)
		return VisitContinue, nil
	})
	return pts, err
}

// Count returns the number of integer points in s: the linearizer's
// point-counting primitive, not a closed-form cardinality computation.
func (s Set) Count(params []int) (int, error) {
	n := 0
	err := s.ForeachPoint(params, func(Point) (Visit, error) {
		n++
		return VisitContinue, nil
	})
	return n, err
}

// LexLessSingleton returns the number of points of s that lexicographically
// precede target.
func LexLessSingleton(s Set, target Point, params []int) (int, error) {
	n := 0
	err := s.ForeachPoint(params, func(p Point) (Visit, error) {
		if p.LexLess(target) {
			n++
		}
		return VisitContinue, nil
	})
	return n, err
}

// IntersectDomain restricts every BasicSet of s by conjoining extra, a set
// of additional constraints in the same space — for plain Sets this is
// just a conjunction.
func (s Set) IntersectDomain(extra []Constraint) Set {
	s2 := s.Clone()
	for i := range s2.Basic {
		for _, c := range extra {
			s2.Basic[i] = s2.Basic[i].AddConstraint(c)
		}
	}
	return s2
}

// Union returns the union of a and b, which must share a space.
func Union(a, b Set) Set {
	basic := append(append([]BasicSet(nil), a.Basic...), b.Basic...)
	return Set{Space: a.Space.Clone(), Basic: basic}
}

// Coalesce merges BasicSets of s that are exact duplicates of one another.
// It is a deliberately weak stand-in for isl_set_coalesce's convex-hull
// simplification (an optional cleanup step, not a correctness requirement
// — see DESIGN.md); it still removes the duplicate BasicSets that
// Apply/ApplyRange fan-out routinely produces.
func (s Set) Coalesce() Set {
	seen := make(map[string]bool)
	var kept []BasicSet
	for _, b := range s.Basic {
		key := basicSetKey(b)
		if seen[key] {
			continue
		}
		seen[key] = true
		kept = append(kept, b)
	}
	return Set{Space: s.Space.Clone(), Basic: kept}
}

func basicSetKey(b BasicSet) string {
	parts := make([]string, 0, len(b.Bounds)+len(b.Constraints))
	for _, bd := range b.Bounds {
		parts = append(parts, boundKey(bd))
	}
	for _, c := range b.Constraints {
		parts = append(parts, constraintKey(c))
	}
	sort.Strings(parts[len(b.Bounds):])
	return strings.Join(parts, "|")
}

func boundKey(b Bound) string {
	return fmt.Sprintf("b(%v,%v,%v,%v)", b.HasLo, b.HasHi, b.Lo, b.Hi)
}

func constraintKey(c Constraint) string {
	return fmt.Sprintf("c(%v,%v,%v,%v,%v,%v)", c.Kind, c.Coeffs, c.ParamCoeffs, c.Const, c.Modulus, c.Residue)
}
