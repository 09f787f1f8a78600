package pipeline

import (
	"github.com/pkg/errors"

	"github.com/ing-raf/Lattice-Based-Memory-Partitioning-Master-Thesis-Implementation/internal/polyset"
)

// PolyhedralSlice computes the UMA half of slice construction: the
// iteration instances of a task whose linearized date equals d.
func PolyhedralSlice(instanceSet polyset.Set, linearizedSchedule polyset.Relation, d int) (polyset.Set, error) {
	points, err := instanceSet.Points(nil)
	if err != nil {
		return polyset.Set{}, errors.Wrap(err, "pipeline: enumerating instance set for slicing")
	}
	var kept []polyset.Point
	for _, p := range points {
		img, err := imageUnderRelation(linearizedSchedule, p.Values)
		if err != nil {
			return polyset.Set{}, err
		}
		if len(img.Values) == 1 && img.Values[0] == d {
			kept = append(kept, p)
		}
	}
	return enumeratedPoints(instanceSet.Space, kept), nil
}

// InstantLocalSlice computes the NUMA half of slice construction: the
// polyhedral slice for task_on_processor[p], intersected with the preimage under
// allocation of {p - task_offset[task_on_processor[p]]} — i.e. the
// within-task processor id localProc.
func InstantLocalSlice(slice polyset.Set, allocation polyset.Relation, localProc int) (polyset.Set, error) {
	points, err := slice.Points(nil)
	if err != nil {
		return polyset.Set{}, errors.Wrap(err, "pipeline: enumerating slice for instant-local restriction")
	}
	var kept []polyset.Point
	for _, p := range points {
		img, err := imageUnderRelation(allocation, p.Values)
		if err != nil {
			return polyset.Set{}, err
		}
		if len(img.Values) == 1 && img.Values[0] == localProc {
			kept = append(kept, p)
		}
	}
	return enumeratedPoints(slice.Space, kept), nil
}

func enumeratedPoints(space polyset.SetSpace, pts []polyset.Point) polyset.Set {
	var basic []polyset.BasicSet
	for _, p := range pts {
		bounds := make([]polyset.Bound, len(p.Values))
		for i, v := range p.Values {
			bounds[i] = polyset.Fixed(v)
		}
		basic = append(basic, polyset.BasicSet{Space: space, Bounds: bounds})
	}
	return polyset.Set{Space: space, Basic: basic}
}
