package pipeline

import (
	"testing"

	"github.com/ing-raf/Lattice-Based-Memory-Partitioning-Master-Thesis-Implementation/internal/polyset"
)

func TestPolyhedralSlice(t *testing.T) {
	instanceSet := polyset.NewSet(polyset.NewBasicSet(polyset.SetSpace{Dims: []string{"i"}}, []polyset.Bound{polyset.Range(0, 5)}))
	sched := polyset.NewRelation(polyset.NewBasicRelation(
		polyset.RelSpace{In: []string{"i"}, Out: []string{"t"}},
		[]polyset.Bound{polyset.Range(0, 5)},
		[]polyset.Expr{polyset.Affine([]int{1}, nil, 0).DividedBy(2)},
	))
	lin, err := LinearizeSchedule(instanceSet, sched)
	if err != nil {
		t.Fatal(err)
	}
	slice, err := PolyhedralSlice(instanceSet, lin, 1)
	if err != nil {
		t.Fatal(err)
	}
	n, err := slice.Count(nil)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("got %d points in slice, want 2 (i=2,3 both floor-div to 1)", n)
	}
}

func TestInstantLocalSlice(t *testing.T) {
	slice := polyset.NewSet(polyset.NewBasicSet(polyset.SetSpace{Dims: []string{"i"}}, []polyset.Bound{polyset.Range(0, 3)}))
	alloc := polyset.NewRelation(polyset.NewBasicRelation(
		polyset.RelSpace{In: []string{"i"}, Out: []string{"proc"}},
		[]polyset.Bound{polyset.Range(0, 3)},
		[]polyset.Expr{polyset.Affine([]int{1}, nil, 0).Modulo(2)},
	))
	local, err := InstantLocalSlice(slice, alloc, 1)
	if err != nil {
		t.Fatal(err)
	}
	n, err := local.Count(nil)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 { // i=1,3 have i mod 2 == 1
		t.Fatalf("got %d, want 2", n)
	}
}
