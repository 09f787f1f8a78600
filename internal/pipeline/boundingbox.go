// Package pipeline implements the ordered transformation stages: virtual
// allocation, physical scheduling, processor allocation, parameter
// elimination, date linearization, slice building, and dataset building.
// Each stage is one file, takes the prior stage's output plus the
// immutable model.Task, and returns the next field of a
// model.ManipulatedModel — no stage mutates a field an earlier one
// produced.
package pipeline

import (
	"github.com/pkg/errors"

	"github.com/ing-raf/Lattice-Based-Memory-Partitioning-Master-Thesis-Implementation/internal/polyset"
)

// boundingBox computes the component-wise tightest finite bound covering
// every BasicSet of s, requiring every dimension of every BasicSet to
// already be bounded. internal/polyset's relations need a finite Domain
// to be constructed against; this is the one place the pipeline derives
// that finite domain from an already-parsed Task field (its array extent
// or instance set), rather than assuming one is given directly.
func boundingBox(s polyset.Set) ([]polyset.Bound, error) {
	if len(s.Basic) == 0 {
		return nil, errors.New("pipeline: cannot compute bounding box of an empty set")
	}
	n := len(s.Space.Dims)
	box := make([]polyset.Bound, n)
	for i := range box {
		box[i] = polyset.Unbounded()
	}
	for _, b := range s.Basic {
		for i, bd := range b.Bounds {
			if !bd.Bounded() {
				return nil, errors.Errorf("pipeline: dimension %d is not bounded", i)
			}
			if !box[i].HasLo || bd.Lo < box[i].Lo {
				box[i].HasLo, box[i].Lo = true, bd.Lo
			}
			if !box[i].HasHi || bd.Hi > box[i].Hi {
				box[i].HasHi, box[i].Hi = true, bd.Hi
			}
		}
	}
	return box, nil
}
