package cost

import (
	"context"
	"testing"

	"github.com/ing-raf/Lattice-Based-Memory-Partitioning-Master-Thesis-Implementation/internal/lattice"
	"github.com/ing-raf/Lattice-Based-Memory-Partitioning-Master-Thesis-Implementation/internal/polyset"
)

func evenOddCatalog(t *testing.T) *lattice.Catalog {
	t.Helper()
	space := polyset.SetSpace{Dims: []string{"a"}}
	even := polyset.NewSet(polyset.NewBasicSet(space, []polyset.Bound{polyset.Range(-1000, 1000)}).AddConstraint(polyset.Mod([]int{1}, 0, 2, 0)))
	odd := polyset.NewSet(polyset.NewBasicSet(space, []polyset.Bound{polyset.Range(-1000, 1000)}).AddConstraint(polyset.Mod([]int{1}, 0, 2, 1)))
	return &lattice.Catalog{NumBanks: 2, DimVirt: 1, Translates: [][]polyset.Set{{even, odd}}}
}

func TestUMAEngineScoresConcurrentDataset(t *testing.T) {
	cat := evenOddCatalog(t)
	e := NewUMAEngine(cat.NumLattices())
	space := polyset.SetSpace{Dims: []string{"a"}}
	dataset := polyset.NewSet(polyset.NewBasicSet(space, []polyset.Bound{polyset.Range(0, 3)})) // {0,1,2,3}: 2 even, 2 odd
	if err := e.ScoreDate(cat, []polyset.Set{dataset}); err != nil {
		t.Fatal(err)
	}
	res, err := e.Finalize(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.BestLattice() != 0 {
		t.Fatalf("got best lattice %d, want 0", res.BestLattice())
	}
	ur := res.(*UMAResult)
	if ur.TotalCost != 2 { // max(2 even, 2 odd) = 2
		t.Fatalf("got cost %v, want 2", ur.TotalCost)
	}
}

func TestUMAEngineSumsAcrossDates(t *testing.T) {
	cat := evenOddCatalog(t)
	e := NewUMAEngine(cat.NumLattices())
	space := polyset.SetSpace{Dims: []string{"a"}}
	for i := 0; i < 3; i++ {
		dataset := polyset.NewSet(polyset.NewBasicSet(space, []polyset.Bound{polyset.Range(0, 1)})) // 1 even, 1 odd -> max 1
		if err := e.ScoreDate(cat, []polyset.Set{dataset}); err != nil {
			t.Fatal(err)
		}
	}
	res, err := e.Finalize(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	ur := res.(*UMAResult)
	if ur.TotalCost != 3 {
		t.Fatalf("got cost %v, want 3", ur.TotalCost)
	}
}
