package pipeline

import (
	"github.com/pkg/errors"

	"github.com/ing-raf/Lattice-Based-Memory-Partitioning-Master-Thesis-Implementation/internal/polyset"
)

// LinearizeSchedule computes applied = instanceSet . flattenedSchedule
// (the image), then for each point p of applied, its linearized date is
// the count of points of applied that lex-precede it. The result is the
// relation iteration -> scalar date (by composing the point-count map
// with flattenedSchedule), built directly rather than via ApplyRange since
// the rank function is not expressible as a single Expr — it is computed
// once per instance-set point up front instead.
//
// This is explicit point-counting, not a closed-form cardinality:
// quadratic in the applied set's size, which is
// acceptable at the compile-time scales this planner targets.
func LinearizeSchedule(instanceSet polyset.Set, flattenedSchedule polyset.Relation) (polyset.Relation, error) {
	applied, err := flattenedSchedule.Apply(instanceSet, nil)
	if err != nil {
		return polyset.Relation{}, errors.Wrap(err, "pipeline: computing applied schedule image")
	}
	appliedPoints, err := applied.Points(nil)
	if err != nil {
		return polyset.Relation{}, errors.Wrap(err, "pipeline: enumerating applied schedule points")
	}

	domainSpace := polyset.RelSpace{In: append([]string(nil), instanceSet.Space.Dims...), Out: []string{"date"}}
	var basics []polyset.BasicRelation
	instancePoints, err := instanceSet.Points(nil)
	if err != nil {
		return polyset.Relation{}, errors.Wrap(err, "pipeline: enumerating instance set points")
	}
	for _, ip := range instancePoints {
		sched, err := imageUnderRelation(flattenedSchedule, ip.Values)
		if err != nil {
			return polyset.Relation{}, err
		}
		rank := rankAmong(appliedPoints, sched)
		bounds := make([]polyset.Bound, len(ip.Values))
		for i, v := range ip.Values {
			bounds[i] = polyset.Fixed(v)
		}
		basics = append(basics, polyset.BasicRelation{
			Space:  domainSpace,
			Domain: bounds,
			Out:    []polyset.Expr{polyset.AffineConst(len(ip.Values), 0, rank)},
		})
	}
	return polyset.Relation{Space: domainSpace, Basic: basics}, nil
}

func imageUnderRelation(r polyset.Relation, in []int) (polyset.Point, error) {
	for _, b := range r.Basic {
		ok, err := b.DomainSet().Contains(in, nil)
		if err != nil {
			return polyset.Point{}, err
		}
		if ok {
			return b.Image(in, nil)
		}
	}
	return polyset.Point{}, errors.New("pipeline: point not in any basic relation of the schedule")
}

func rankAmong(points []polyset.Point, target polyset.Point) int {
	n := 0
	for _, p := range points {
		if p.LexLess(target) {
			n++
		}
	}
	return n
}
