package pipeline

import (
	"testing"

	"github.com/ing-raf/Lattice-Based-Memory-Partitioning-Master-Thesis-Implementation/internal/model"
	"github.com/ing-raf/Lattice-Based-Memory-Partitioning-Master-Thesis-Implementation/internal/polyset"
)

func TestDimVirt(t *testing.T) {
	extent1 := polyset.NewSet(polyset.NewBasicSet(polyset.SetSpace{Dims: []string{"a"}}, []polyset.Bound{polyset.Range(0, 5)}))
	extent2 := polyset.NewSet(polyset.NewBasicSet(polyset.SetSpace{Dims: []string{"a", "b"}}, []polyset.Bound{polyset.Range(0, 3), polyset.Range(0, 3)}))
	tasks := []*model.Task{{ArrayExtent: extent1}, {ArrayExtent: extent2}}
	dv := DimVirt(tasks)
	if dv != 3 {
		t.Fatalf("got %d, want 3", dv)
	}
}

func TestVirtualAllocRelation(t *testing.T) {
	extent := polyset.NewSet(polyset.NewBasicSet(polyset.SetSpace{Dims: []string{"a"}}, []polyset.Bound{polyset.Range(0, 5)}))
	rel, err := VirtualAllocRelation(extent, 1, 3)
	if err != nil {
		t.Fatal(err)
	}
	img, err := rel.Basic[0].Image([]int{4}, nil)
	if err != nil {
		t.Fatal(err)
	}
	// task id 1, original coord 4, padding 0.
	if !img.Equal(polyset.NewPoint(1, 4, 0)) {
		t.Fatalf("got %v, want [1 4 0]", img)
	}
}

func TestRemapAccessRelations(t *testing.T) {
	extent := polyset.NewSet(polyset.NewBasicSet(polyset.SetSpace{Dims: []string{"a"}}, []polyset.Bound{polyset.Range(0, 9)}))
	reads := polyset.NewRelation(polyset.NewBasicRelation(
		polyset.RelSpace{In: []string{"i"}, Out: []string{"a"}},
		[]polyset.Bound{polyset.Range(0, 9)},
		[]polyset.Expr{polyset.Affine([]int{1}, nil, 0)},
	))
	task := &model.Task{ArrayExtent: extent, MayReads: reads}
	r, _, _, err := RemapAccessRelations(task, 0, 3)
	if err != nil {
		t.Fatal(err)
	}
	img, err := r.Basic[0].Image([]int{5}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !img.Equal(polyset.NewPoint(0, 5, 0)) {
		t.Fatalf("got %v, want [0 5 0]", img)
	}
}
