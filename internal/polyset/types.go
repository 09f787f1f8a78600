package polyset

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrUnboundedDimension is returned by ForeachPoint when a set has a
// dimension with no finite bound on one or both sides.
var ErrUnboundedDimension = errors.New("polyset: cannot enumerate an unbounded dimension")

// ErrNonAffineComposition is returned by ApplyRange when the substitution
// it would need to perform is not expressible as a single affine/div/mod
// expression (the one corner of general relation composition this facade
// does not support; it is never exercised by the pipeline stages that use
// it — see DESIGN.md).
var ErrNonAffineComposition = errors.New("polyset: composition is not expressible as a single affine/div/mod expression")

// Options holds the small set of on/off switches mirroring isl's
// `isl_options_args` call: the polyhedral context itself is configurable,
// even though isl is out of scope. CoalesceEnabled gates whether callers
// bother invoking Set.Coalesce after a fan-out operation (Apply/ApplyRange,
// Union) — disabling it trades a larger BasicSet count for skipping the
// dedup pass, useful when comparing against raw (uncoalesced) output.
type Options struct {
	CoalesceEnabled bool
}

// DefaultOptions returns the facade's default switches: coalescing on,
// matching isl's own default behavior.
func DefaultOptions() Options {
	return Options{CoalesceEnabled: true}
}

// SetSpace names the parameter and set dimensions of a Set.
type SetSpace struct {
	Params []string
	Dims   []string
}

// Clone returns an independent copy of the space.
func (s SetSpace) Clone() SetSpace {
	return SetSpace{Params: append([]string(nil), s.Params...), Dims: append([]string(nil), s.Dims...)}
}

// WithoutParams returns the space with the parameter dimensions projected
// out, for use once every parameter has been substituted with a concrete
// value.
func (s SetSpace) WithoutParams() SetSpace {
	return SetSpace{Dims: append([]string(nil), s.Dims...)}
}

// RelSpace names the parameter, domain ("in"), and range ("out") dimensions
// of a Relation.
type RelSpace struct {
	Params []string
	In     []string
	Out    []string
}

func (s RelSpace) Clone() RelSpace {
	return RelSpace{
		Params: append([]string(nil), s.Params...),
		In:     append([]string(nil), s.In...),
		Out:    append([]string(nil), s.Out...),
	}
}

func (s RelSpace) WithoutParams() RelSpace {
	return RelSpace{In: append([]string(nil), s.In...), Out: append([]string(nil), s.Out...)}
}

// DomainSpace is the SetSpace a Relation's domain lives in.
func (s RelSpace) DomainSpace() SetSpace {
	return SetSpace{Params: append([]string(nil), s.Params...), Dims: append([]string(nil), s.In...)}
}

// RangeSpace is the SetSpace a Relation's range lives in.
func (s RelSpace) RangeSpace() SetSpace {
	return SetSpace{Params: append([]string(nil), s.Params...), Dims: append([]string(nil), s.Out...)}
}

// Bound is a finite or open-ended inclusive integer range for one dimension.
type Bound struct {
	HasLo, HasHi bool
	Lo, Hi       int
}

// Bounded reports whether both ends of the bound are finite.
func (b Bound) Bounded() bool { return b.HasLo && b.HasHi }

// Fixed returns a Bound constraining a dimension to exactly one value.
func Fixed(v int) Bound { return Bound{HasLo: true, HasHi: true, Lo: v, Hi: v} }

// Range returns a Bound of [lo, hi] inclusive.
func Range(lo, hi int) Bound { return Bound{HasLo: true, HasHi: true, Lo: lo, Hi: hi} }

// Unbounded returns a Bound with no constraint on either end.
func Unbounded() Bound { return Bound{} }

// Point is a concrete integer vector in some Set's or Relation's in/out
// space.
type Point struct {
	Values []int
}

// NewPoint constructs a Point from literal coordinate values.
func NewPoint(values ...int) Point { return Point{Values: append([]int(nil), values...)} }

func (p Point) Clone() Point { return Point{Values: append([]int(nil), p.Values...)} }

func (p Point) String() string { return fmt.Sprint(p.Values) }

// Equal reports whether two points hold identical coordinates.
func (p Point) Equal(o Point) bool {
	if len(p.Values) != len(o.Values) {
		return false
	}
	for i, v := range p.Values {
		if v != o.Values[i] {
			return false
		}
	}
	return true
}

// LexLess reports whether p is lexicographically strictly less than o.
func (p Point) LexLess(o Point) bool {
	n := len(p.Values)
	if len(o.Values) < n {
		n = len(o.Values)
	}
	for i := 0; i < n; i++ {
		if p.Values[i] != o.Values[i] {
			return p.Values[i] < o.Values[i]
		}
	}
	return len(p.Values) < len(o.Values)
}

// ExprKind discriminates the three affine expression forms this facade
// supports: a plain affine combination, a floored division of one, and a
// modulus of one. These three are exactly what the pipeline ever needs to
// build: schedule flattening divides one coordinate, and the allocation
// relation takes one coordinate modulo n[t].
type ExprKind int

const (
	ExprAffine ExprKind = iota
	ExprDiv
	ExprMod
)

// Expr is a single output coordinate's defining formula:
//
//	ExprAffine: Σ InCoeffs[i]*in[i] + Σ ParamCoeffs[j]*param[j] + Const
//	ExprDiv:    floor(affine / Divisor)
//	ExprMod:    ((affine mod Divisor) + Divisor) mod Divisor   (always in [0, Divisor))
type Expr struct {
	Kind        ExprKind
	InCoeffs    []int
	ParamCoeffs []int
	Const       int
	Divisor     int // only meaningful for ExprDiv/ExprMod; must be > 0
}

// Affine builds a plain affine expression over the in-dims.
func Affine(inCoeffs []int, paramCoeffs []int, constant int) Expr {
	return Expr{Kind: ExprAffine, InCoeffs: append([]int(nil), inCoeffs...), ParamCoeffs: append([]int(nil), paramCoeffs...), Const: constant}
}

// AffineVar builds the affine expression that simply copies in-dim idx.
func AffineVar(idx, nIn int) Expr {
	c := make([]int, nIn)
	c[idx] = 1
	return Expr{Kind: ExprAffine, InCoeffs: c}
}

// AffineConst builds the affine expression equal to a constant.
func AffineConst(nIn, nParams, v int) Expr {
	return Expr{Kind: ExprAffine, InCoeffs: make([]int, nIn), ParamCoeffs: make([]int, nParams), Const: v}
}

// DividedBy wraps e (which must be ExprAffine) in a floor division.
func (e Expr) DividedBy(d int) Expr {
	e2 := e
	e2.Kind = ExprDiv
	e2.Divisor = d
	return e2
}

// Modulo wraps e (which must be ExprAffine) in a modulus.
func (e Expr) Modulo(d int) Expr {
	e2 := e
	e2.Kind = ExprMod
	e2.Divisor = d
	return e2
}

func (e Expr) clone() Expr {
	return Expr{Kind: e.Kind, InCoeffs: append([]int(nil), e.InCoeffs...), ParamCoeffs: append([]int(nil), e.ParamCoeffs...), Const: e.Const, Divisor: e.Divisor}
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func mod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

// Eval computes the expression's value at a concrete (in, params) point.
func (e Expr) Eval(in, params []int) (int, error) {
	affine := e.Const
	for i, c := range e.InCoeffs {
		if c == 0 {
			continue
		}
		if i >= len(in) {
			return 0, errors.Errorf("polyset: expr references in-dim %d but point has %d dims", i, len(in))
		}
		affine += c * in[i]
	}
	for j, c := range e.ParamCoeffs {
		if c == 0 {
			continue
		}
		if j >= len(params) {
			return 0, errors.Errorf("polyset: expr references param %d but point has %d params", j, len(params))
		}
		affine += c * params[j]
	}
	switch e.Kind {
	case ExprAffine:
		return affine, nil
	case ExprDiv:
		return floorDiv(affine, e.Divisor), nil
	case ExprMod:
		return mod(affine, e.Divisor), nil
	default:
		return 0, errors.Errorf("polyset: unknown expr kind %d", e.Kind)
	}
}

// substitute rewrites e, which is expressed over an intermediate "in" space
// of len(defs) dimensions, into an expression over defs' own in-space, by
// plugging in defs[i] wherever e refers to in-dim i. It fails only when e
// mixes a non-affine def into an affine combination, a shape the pipeline
// never produces (see DESIGN.md).
func substituteExpr(e Expr, defs []Expr) (Expr, error) {
	switch e.Kind {
	case ExprAffine:
		return substituteAffine(e, defs)
	case ExprDiv, ExprMod:
		affinePart := Expr{Kind: ExprAffine, InCoeffs: e.InCoeffs, ParamCoeffs: e.ParamCoeffs, Const: e.Const}
		sub, err := substituteAffine(affinePart, defs)
		if err != nil {
			return Expr{}, err
		}
		sub.Kind = e.Kind
		sub.Divisor = e.Divisor
		return sub, nil
	default:
		return Expr{}, errors.Errorf("polyset: unknown expr kind %d", e.Kind)
	}
}

func substituteAffine(e Expr, defs []Expr) (Expr, error) {
	var nParams int
	if len(e.ParamCoeffs) > 0 {
		nParams = len(e.ParamCoeffs)
	}
	for _, d := range defs {
		if len(d.ParamCoeffs) > nParams {
			nParams = len(d.ParamCoeffs)
		}
	}
	result := Expr{Kind: ExprAffine, ParamCoeffs: make([]int, nParams), Const: e.Const}
	result.ParamCoeffs = addInto(result.ParamCoeffs, e.ParamCoeffs, 1)

	for i, c := range e.InCoeffs {
		if c == 0 {
			continue
		}
		if i >= len(defs) {
			return Expr{}, errors.Errorf("polyset: substitution references in-dim %d with only %d defs available", i, len(defs))
		}
		d := defs[i]
		if d.Kind != ExprAffine {
			return Expr{}, ErrNonAffineComposition
		}
		if len(d.InCoeffs) > len(result.InCoeffs) {
			grown := make([]int, len(d.InCoeffs))
			copy(grown, result.InCoeffs)
			result.InCoeffs = grown
		}
		result.InCoeffs = addInto(result.InCoeffs, d.InCoeffs, c)
		result.ParamCoeffs = addInto(result.ParamCoeffs, d.ParamCoeffs, c)
		result.Const += c * d.Const
	}
	return result, nil
}

func addInto(dst []int, src []int, scale int) []int {
	if len(src) > len(dst) {
		grown := make([]int, len(src))
		copy(grown, dst)
		dst = grown
	}
	for i, v := range src {
		dst[i] += scale * v
	}
	return dst
}

// ConstraintKind discriminates the constraint forms a BasicSet's membership
// test is built from.
type ConstraintKind int

const (
	// ConEq requires the expression to equal zero.
	ConEq ConstraintKind = iota
	// ConGE requires the expression to be >= 0.
	ConGE
	// ConMod requires the expression modulo Modulus to equal Residue.
	ConMod
)

// Constraint is one membership test against a dimension vector plus
// parameters: equality and inequality with integer coefficients on named
// dimensions, extended with a modulus form because several lattice
// translates and the allocation relation are naturally expressed as
// congruences.
type Constraint struct {
	Kind        ConstraintKind
	Coeffs      []int
	ParamCoeffs []int
	Const       int
	Modulus     int
	Residue     int
}

// Eq builds an equality constraint: Σ coeffs·x + Σ paramCoeffs·params + c == 0.
func Eq(coeffs, paramCoeffs []int, c int) Constraint {
	return Constraint{Kind: ConEq, Coeffs: append([]int(nil), coeffs...), ParamCoeffs: append([]int(nil), paramCoeffs...), Const: c}
}

// GE builds an inequality constraint: Σ coeffs·x + Σ paramCoeffs·params + c >= 0.
func GE(coeffs, paramCoeffs []int, c int) Constraint {
	return Constraint{Kind: ConGE, Coeffs: append([]int(nil), coeffs...), ParamCoeffs: append([]int(nil), paramCoeffs...), Const: c}
}

// Mod builds a congruence constraint: (Σ coeffs·x + c) mod modulus == residue.
func Mod(coeffs []int, c, modulus, residue int) Constraint {
	return Constraint{Kind: ConMod, Coeffs: append([]int(nil), coeffs...), Const: c, Modulus: modulus, Residue: residue}
}

// Satisfied evaluates the constraint at a concrete point.
func (c Constraint) Satisfied(x, params []int) (bool, error) {
	val := c.Const
	for i, coeff := range c.Coeffs {
		if coeff == 0 {
			continue
		}
		if i >= len(x) {
			return false, errors.Errorf("polyset: constraint references dim %d but point has %d dims", i, len(x))
		}
		val += coeff * x[i]
	}
	for j, coeff := range c.ParamCoeffs {
		if coeff == 0 {
			continue
		}
		if j >= len(params) {
			return false, errors.Errorf("polyset: constraint references param %d but point has %d params", j, len(params))
		}
		val += coeff * params[j]
	}
	switch c.Kind {
	case ConEq:
		return val == 0, nil
	case ConGE:
		return val >= 0, nil
	case ConMod:
		return mod(val, c.Modulus) == c.Residue, nil
	default:
		return false, errors.Errorf("polyset: unknown constraint kind %d", c.Kind)
	}
}

// substitute rewrites a constraint expressed over an intermediate space of
// len(defs) dims into one over defs' own in-space, mirroring substituteExpr.
func substituteConstraint(c Constraint, defs []Expr) (Constraint, error) {
	e := Expr{Kind: ExprAffine, InCoeffs: c.Coeffs, ParamCoeffs: c.ParamCoeffs, Const: c.Const}
	sub, err := substituteAffine(e, defs)
	if err != nil {
		return Constraint{}, err
	}
	return Constraint{Kind: c.Kind, Coeffs: sub.InCoeffs, ParamCoeffs: sub.ParamCoeffs, Const: sub.Const, Modulus: c.Modulus, Residue: c.Residue}, nil
}
