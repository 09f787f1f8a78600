package pipeline

import "github.com/ing-raf/Lattice-Based-Memory-Partitioning-Master-Thesis-Implementation/internal/polyset"

// Parameter elimination (EliminateSetParams, EliminateRelationParams)
// substitutes each parameter i with its value v[i]: add
// the equality constraint param_i - v[i] = 0, then project out all
// parameter dimensions. Since every Expr/Constraint here carries its
// parameter coefficients explicitly, "add the equality then project out"
// collapses to one algebraic step: fold each ParamCoeffs[i]*v[i] into the
// expression's constant term and drop the parameter dimension, leaving
// every map/set with zero parameter dimensions without needing a separate
// projection pass.

func eliminateExpr(e polyset.Expr, values []int) polyset.Expr {
	e2 := e
	e2.Const = foldParams(e.Const, e.ParamCoeffs, values)
	e2.ParamCoeffs = nil
	return e2
}

func eliminateConstraint(c polyset.Constraint, values []int) polyset.Constraint {
	c2 := c
	c2.Const = foldParams(c.Const, c.ParamCoeffs, values)
	c2.ParamCoeffs = nil
	return c2
}

func foldParams(base int, coeffs []int, values []int) int {
	v := base
	for i, c := range coeffs {
		if c == 0 || i >= len(values) {
			continue
		}
		v += c * values[i]
	}
	return v
}

// EliminateSetParams returns a copy of s with every parameter folded into
// constants and the space's Params list cleared.
func EliminateSetParams(s polyset.Set, values []int) polyset.Set {
	out := polyset.Set{Space: s.Space.WithoutParams()}
	for _, b := range s.Basic {
		nb := polyset.BasicSet{Space: out.Space, Bounds: append([]polyset.Bound(nil), b.Bounds...)}
		for _, c := range b.Constraints {
			nb.Constraints = append(nb.Constraints, eliminateConstraint(c, values))
		}
		out.Basic = append(out.Basic, nb)
	}
	return out
}

// EliminateRelationParams returns a copy of r with every parameter folded
// into constants, in both the domain constraints and the output
// expressions, and the space's Params list cleared.
func EliminateRelationParams(r polyset.Relation, values []int) polyset.Relation {
	out := polyset.Relation{Space: r.Space.WithoutParams()}
	for _, b := range r.Basic {
		nb := polyset.BasicRelation{Space: out.Space, Domain: append([]polyset.Bound(nil), b.Domain...)}
		for _, c := range b.Constraints {
			nb.Constraints = append(nb.Constraints, eliminateConstraint(c, values))
		}
		for _, e := range b.Out {
			nb.Out = append(nb.Out, eliminateExpr(e, values))
		}
		out.Basic = append(out.Basic, nb)
	}
	return out
}
