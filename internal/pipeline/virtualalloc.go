package pipeline

import (
	"github.com/pkg/errors"

	"github.com/ing-raf/Lattice-Based-Memory-Partitioning-Master-Thesis-Implementation/internal/model"
	"github.com/ing-raf/Lattice-Based-Memory-Partitioning-Master-Thesis-Implementation/internal/polyset"
)

// DimVirt computes d_virt = max_t(d_t) + 1 over every task's array
// extent dimensionality.
func DimVirt(tasks []*model.Task) int {
	max := 0
	for _, t := range tasks {
		if d := len(t.ArrayExtent.Space.Dims); d > max {
			max = d
		}
	}
	return max + 1
}

// virtualSpaceNames builds the dVirt-dimensional virtual address space's
// dimension names: coordinate 0 is the task id, 1..dVirt-1 mirror the
// widest task's array coordinates.
func virtualSpaceNames(dVirt int) []string {
	names := make([]string, dVirt)
	names[0] = "task"
	for i := 1; i < dVirt; i++ {
		names[i] = "a" + itoa(i-1)
	}
	return names
}

func itoa(v int) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// VirtualAllocRelation builds R_t: extent_t -> V, the remapping relation
// where output[0] = taskIndex; output[1+j] = input[j] for j in [0, d_t);
// output[k] = 0 for k in [1+d_t, dVirt).
func VirtualAllocRelation(extent polyset.Set, taskIndex, dVirt int) (polyset.Relation, error) {
	dt := len(extent.Space.Dims)
	if dt+1 > dVirt {
		return polyset.Relation{}, errors.Errorf("pipeline: task array extent has %d dims, exceeds dVirt-1=%d", dt, dVirt-1)
	}
	domain, err := boundingBox(extent)
	if err != nil {
		return polyset.Relation{}, errors.Wrap(err, "pipeline: virtual allocation")
	}

	out := make([]polyset.Expr, dVirt)
	out[0] = polyset.AffineConst(dt, 0, taskIndex)
	for j := 0; j < dt; j++ {
		out[1+j] = polyset.AffineVar(j, dt)
	}
	for k := 1 + dt; k < dVirt; k++ {
		out[k] = polyset.AffineConst(dt, 0, 0)
	}

	space := polyset.RelSpace{In: append([]string(nil), extent.Space.Dims...), Out: virtualSpaceNames(dVirt)}
	basic := polyset.NewBasicRelation(space, domain, out)
	// Re-attach the original extent's constraints (if any) as extra domain
	// restrictions so the relation is exactly extent_t -> V, not a box
	// superset of it.
	for _, b := range extent.Basic {
		for _, c := range b.Constraints {
			basic = basic.AddConstraint(c)
		}
	}
	return polyset.NewRelation(basic), nil
}

// RemapAccessRelations composes a task's three access relations (iteration
// -> array index) with its virtual allocation relation (array index -> V),
// yielding iteration -> virtual address relations by composing R_t with
// each original access relation.
func RemapAccessRelations(task *model.Task, taskIndex, dVirt int) (reads, writes, mustWrites polyset.Relation, err error) {
	rt, err := VirtualAllocRelation(task.ArrayExtent, taskIndex, dVirt)
	if err != nil {
		return polyset.Relation{}, polyset.Relation{}, polyset.Relation{}, err
	}
	reads, err = remapOne(task.MayReads, rt)
	if err != nil {
		return polyset.Relation{}, polyset.Relation{}, polyset.Relation{}, errors.Wrap(err, "pipeline: remapping may-reads")
	}
	writes, err = remapOne(task.MayWrites, rt)
	if err != nil {
		return polyset.Relation{}, polyset.Relation{}, polyset.Relation{}, errors.Wrap(err, "pipeline: remapping may-writes")
	}
	mustWrites, err = remapOne(task.MustWrites, rt)
	if err != nil {
		return polyset.Relation{}, polyset.Relation{}, polyset.Relation{}, errors.Wrap(err, "pipeline: remapping must-writes")
	}
	return reads, writes, mustWrites, nil
}

// remapOne composes access with rt, or returns an empty relation
// unchanged when access is absent (a task need not have all three access
// kinds, and an empty relation contributes nothing downstream).
func remapOne(access, rt polyset.Relation) (polyset.Relation, error) {
	if len(access.Basic) == 0 {
		return polyset.Relation{}, nil
	}
	return polyset.ApplyRange(access, rt)
}
