package polyset

import "github.com/pkg/errors"

// BasicRelation is a single conjunction of constraints over a RelSpace,
// whose output coordinates are each defined as an Expr of the input
// coordinates and parameters. Every relation this planner ever builds —
// virtual remap, physical flattening, processor allocation, access
// relations — is a genuine total function of the domain point, so
// modeling relations as "one Expr per output dim, plus a domain filter"
// covers every real use without needing general Presburger relation
// algebra (see DESIGN.md).
type BasicRelation struct {
	Space       RelSpace
	Domain      []Bound // bounds on the In dims
	Constraints []Constraint
	Out         []Expr // len(Out) == len(Space.Out); each Expr is over the In dims
}

// NewBasicRelation builds a BasicRelation with the given domain bounds and
// output-defining expressions.
func NewBasicRelation(space RelSpace, domain []Bound, out []Expr) BasicRelation {
	if len(domain) != len(space.In) {
		panic("polyset: domain bounds length must match space.In")
	}
	if len(out) != len(space.Out) {
		panic("polyset: out exprs length must match space.Out")
	}
	return BasicRelation{Space: space.Clone(), Domain: append([]Bound(nil), domain...), Out: cloneExprs(out)}
}

func cloneExprs(es []Expr) []Expr {
	out := make([]Expr, len(es))
	for i, e := range es {
		out[i] = e.clone()
	}
	return out
}

func (r BasicRelation) Clone() BasicRelation {
	return BasicRelation{
		Space:       r.Space.Clone(),
		Domain:      append([]Bound(nil), r.Domain...),
		Constraints: append([]Constraint(nil), r.Constraints...),
		Out:         cloneExprs(r.Out),
	}
}

// AddConstraint returns a copy of r with one more domain constraint
// conjoined.
func (r BasicRelation) AddConstraint(c Constraint) BasicRelation {
	r2 := r.Clone()
	r2.Constraints = append(r2.Constraints, c)
	return r2
}

// DomainSet returns the BasicSet of input points r is defined on.
func (r BasicRelation) DomainSet() BasicSet {
	return BasicSet{Space: r.Space.DomainSpace(), Bounds: append([]Bound(nil), r.Domain...), Constraints: append([]Constraint(nil), r.Constraints...)}
}

// Image computes the output point for a given input point, failing if in
// is not in the relation's domain.
func (r BasicRelation) Image(in []int, params []int) (Point, error) {
	inSet := r.DomainSet()
	ok, err := inSet.Contains(in, params)
	if err != nil {
		return Point{}, err
	}
	if !ok {
		return Point{}, errors.New("polyset: point is not in relation's domain")
	}
	out := make([]int, len(r.Out))
	for i, e := range r.Out {
		v, err := e.Eval(in, params)
		if err != nil {
			return Point{}, errors.Wrapf(err, "polyset: evaluating output dim %d", i)
		}
		out[i] = v
	}
	return Point{Values: out}, nil
}

// Relation is a finite union of BasicRelations sharing a space.
type Relation struct {
	Space RelSpace
	Basic []BasicRelation
}

// NewRelation wraps a single BasicRelation as a one-element Relation.
func NewRelation(b BasicRelation) Relation {
	return Relation{Space: b.Space.Clone(), Basic: []BasicRelation{b}}
}

func (r Relation) Clone() Relation {
	basic := make([]BasicRelation, len(r.Basic))
	for i, b := range r.Basic {
		basic[i] = b.Clone()
	}
	return Relation{Space: r.Space.Clone(), Basic: basic}
}

// Domain returns the union, over every BasicRelation, of its domain set.
func (r Relation) Domain() Set {
	basic := make([]BasicSet, len(r.Basic))
	for i, b := range r.Basic {
		basic[i] = b.DomainSet()
	}
	space := SetSpace{Params: append([]string(nil), r.Space.Params...), Dims: append([]string(nil), r.Space.In...)}
	return Set{Space: space, Basic: basic}
}

// Apply computes the image set of s under r: { r(x) : x in s, x in dom(r) }.
// It is implemented by enumeration rather than symbolic projection — the
// intersection of s with each BasicRelation's domain must be Bounded, which
// holds whenever s is bounded: the allocation relation and per-date
// slices are always applied to an explicitly bounded iteration domain.
func (r Relation) Apply(s Set, params []int) (Set, error) {
	outSpace := SetSpace{Params: append([]string(nil), r.Space.Params...), Dims: append([]string(nil), r.Space.Out...)}
	seen := make(map[string]bool)
	var pts []Point
	for _, sb := range s.Basic {
		for _, rb := range r.Basic {
			merged := mergeSetIntoRelationDomain(sb, rb)
			err := NewSet(merged).ForeachPoint(params, func(p Point) (Visit, error) {
				img, err := rb.Image(p.Values, params)
				if err != nil {
					return VisitStop, err
				}
				key := img.String()
				if !seen[key] {
					seen[key] = true
					pts = append(pts, img)
				}
				return VisitContinue, nil
			})
			if err != nil {
				return Set{}, err
			}
		}
	}
	return enumeratedSet(outSpace, pts), nil
}

// mergeSetIntoRelationDomain intersects a domain-space BasicSet with a
// relation's own domain bounds/constraints, tightening bounds pointwise.
func mergeSetIntoRelationDomain(s BasicSet, r BasicRelation) BasicSet {
	bounds := make([]Bound, len(s.Bounds))
	for i := range bounds {
		bounds[i] = tightenBound(s.Bounds[i], r.Domain[i])
	}
	cons := append(append([]Constraint(nil), s.Constraints...), r.Constraints...)
	return BasicSet{Space: s.Space.Clone(), Bounds: bounds, Constraints: cons}
}

func tightenBound(a, b Bound) Bound {
	out := a
	if b.HasLo && (!out.HasLo || b.Lo > out.Lo) {
		out.HasLo, out.Lo = true, b.Lo
	}
	if b.HasHi && (!out.HasHi || b.Hi < out.Hi) {
		out.HasHi, out.Hi = true, b.Hi
	}
	return out
}

// enumeratedSet wraps a materialized point list as a Set of singleton
// BasicSets — the "enumerated" half of the hybrid set representation,
// produced whenever an operation needs to hand back an image rather than
// a symbolic constraint system.
func enumeratedSet(space SetSpace, pts []Point) Set {
	basic := make([]BasicSet, len(pts))
	for i, p := range pts {
		bounds := make([]Bound, len(p.Values))
		for j, v := range p.Values {
			bounds[j] = Fixed(v)
		}
		basic[i] = BasicSet{Space: space.Clone(), Bounds: bounds}
	}
	return Set{Space: space.Clone(), Basic: basic}
}

// ApplyRange composes two relations: (r ∘ s)(x) = s(r(x)). r's Out space
// must match s's In space. This is implemented symbolically (substituting
// r's output expressions into s's), not by enumeration, since schedule
// flattening and allocation composition need a relation back, not a set.
func ApplyRange(r, s Relation) (Relation, error) {
	if len(r.Space.Out) != len(s.Space.In) {
		return Relation{}, errors.Errorf("polyset: ApplyRange dimension mismatch: r has %d out dims, s has %d in dims", len(r.Space.Out), len(s.Space.In))
	}
	outSpace := RelSpace{
		Params: unionParams(r.Space.Params, s.Space.Params),
		In:     append([]string(nil), r.Space.In...),
		Out:    append([]string(nil), s.Space.Out...),
	}
	var basics []BasicRelation
	for _, rb := range r.Basic {
		for _, sb := range s.Basic {
			composed, err := composeBasic(rb, sb, outSpace)
			if err != nil {
				return Relation{}, err
			}
			basics = append(basics, composed)
		}
	}
	return Relation{Space: outSpace, Basic: basics}, nil
}

func unionParams(a, b []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range a {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	for _, p := range b {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

func composeBasic(r, s BasicRelation, outSpace RelSpace) (BasicRelation, error) {
	out := make([]Expr, len(s.Out))
	for i, e := range s.Out {
		sub, err := substituteExpr(e, r.Out)
		if err != nil {
			return BasicRelation{}, errors.Wrapf(err, "polyset: composing output dim %d", i)
		}
		out[i] = sub
	}
	var cons []Constraint
	for _, c := range s.Constraints {
		sc, err := substituteConstraint(c, r.Out)
		if err != nil {
			return BasicRelation{}, err
		}
		cons = append(cons, sc)
	}
	cons = append(cons, r.Constraints...)
	return BasicRelation{
		Space:       outSpace,
		Domain:      append([]Bound(nil), r.Domain...),
		Constraints: cons,
		Out:         out,
	}, nil
}

// IntersectDomain restricts every BasicRelation of r by conjoining extra.
func (r Relation) IntersectDomain(extra []Constraint) Relation {
	r2 := r.Clone()
	for i := range r2.Basic {
		for _, c := range extra {
			r2.Basic[i] = r2.Basic[i].AddConstraint(c)
		}
	}
	return r2
}

// IntersectRange restricts r to only those points whose image lies in
// rng, by enumerating the domain and filtering — the same enumeration
// strategy Apply uses, since general symbolic range-restriction would
// require projecting rng's constraints back through r's Exprs.
func (r Relation) IntersectRange(rng Set, params []int) (Relation, error) {
	var pts []Point
	for _, rb := range r.Basic {
		err := NewSet(rb.DomainSet()).ForeachPoint(params, func(p Point) (Visit, error) {
			img, err := rb.Image(p.Values, params)
			if err != nil {
				return VisitStop, err
			}
			in, err := setContainsPoint(rng, img, params)
			if err != nil {
				return VisitStop, err
			}
			if in {
				pts = append(pts, p)
			}
			return VisitContinue, nil
		})
		if err != nil {
			return Relation{}, err
		}
	}
	domSpace := SetSpace{Params: append([]string(nil), r.Space.Params...), Dims: append([]string(nil), r.Space.In...)}
	dom := enumeratedSet(domSpace, pts)
	// Rebuild as a relation whose Out exprs are identity on this restricted
	// enumerated domain composed with the original mapping: since dom is now
	// enumerated (singleton bounds per point), the Out expr is evaluated
	// directly against each singleton at Image time by callers, so we attach
	// the original Out exprs per the matching BasicRelation is not tractable
	// after enumeration; instead return pointwise graph relation.
	return relationFromGraph(r.Space, dom, r, params)
}

func relationFromGraph(space RelSpace, dom Set, r Relation, params []int) (Relation, error) {
	var basics []BasicRelation
	for _, db := range dom.Basic {
		in := make([]int, len(db.Bounds))
		for i, b := range db.Bounds {
			in[i] = b.Lo
		}
		img, err := imageUnder(r, in, params)
		if err != nil {
			return Relation{}, err
		}
		out := make([]Expr, len(img.Values))
		for i, v := range img.Values {
			out[i] = AffineConst(len(in), len(space.Params), v)
		}
		basics = append(basics, BasicRelation{Space: space, Domain: append([]Bound(nil), db.Bounds...), Out: out})
	}
	return Relation{Space: space, Basic: basics}, nil
}

func imageUnder(r Relation, in []int, params []int) (Point, error) {
	for _, rb := range r.Basic {
		ok, err := rb.DomainSet().Contains(in, params)
		if err != nil {
			return Point{}, err
		}
		if ok {
			return rb.Image(in, params)
		}
	}
	return Point{}, errors.New("polyset: point not in any basic relation's domain")
}

func setContainsPoint(s Set, p Point, params []int) (bool, error) {
	for _, b := range s.Basic {
		ok, err := b.Contains(p.Values, params)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
