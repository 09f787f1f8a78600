package pipeline

import (
	"github.com/pkg/errors"

	"github.com/ing-raf/Lattice-Based-Memory-Partitioning-Master-Thesis-Implementation/internal/polyset"
)

// BuildDataset computes, given a slice S and a task's three remapped
// access relations, (S . mayReads) ∪ (S . mayWrites) ∪
// (S . mustWrites), coalesced when opts.CoalesceEnabled. An access relation
// with no basic relations (never parsed / not present for this task)
// contributes nothing.
func BuildDataset(slice polyset.Set, mayReads, mayWrites, mustWrites polyset.Relation, opts polyset.Options) (polyset.Set, error) {
	space := polyset.SetSpace{Dims: append([]string(nil), mayReads.Space.Out...)}
	if len(space.Dims) == 0 {
		space.Dims = append([]string(nil), mayWrites.Space.Out...)
	}
	if len(space.Dims) == 0 {
		space.Dims = append([]string(nil), mustWrites.Space.Out...)
	}

	result := polyset.Set{Space: space}
	for _, rel := range []polyset.Relation{mayReads, mayWrites, mustWrites} {
		if len(rel.Basic) == 0 {
			continue
		}
		img, err := rel.Apply(slice, nil)
		if err != nil {
			return polyset.Set{}, errors.Wrap(err, "pipeline: applying access relation to slice")
		}
		result = polyset.Union(result, img)
	}
	if opts.CoalesceEnabled {
		result = result.Coalesce()
	}
	return result, nil
}
