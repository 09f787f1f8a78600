package model

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestDatasetTypeTableDedup(t *testing.T) {
	tbl := NewDatasetTypeTable()
	a := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	b := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	c := mat.NewDense(2, 2, []float64{0, 1, 1, 0})

	tbl.Add(a)
	tbl.Add(b)
	tbl.Add(c)
	tbl.Add(a)

	if tbl.Len() != 2 {
		t.Fatalf("got %d distinct entries, want 2", tbl.Len())
	}
	_, mult0 := tbl.Entry(0)
	if mult0 != 3 {
		t.Fatalf("got multiplicity %d for first entry, want 3", mult0)
	}
	_, mult1 := tbl.Entry(1)
	if mult1 != 1 {
		t.Fatalf("got multiplicity %d for second entry, want 1", mult1)
	}
	if tbl.TotalMultiplicity() != 4 {
		t.Fatalf("got total %d, want 4", tbl.TotalMultiplicity())
	}
}

func TestDatasetTypeTablePreservesInsertionOrder(t *testing.T) {
	tbl := NewDatasetTypeTable()
	first := mat.NewDense(1, 1, []float64{9})
	second := mat.NewDense(1, 1, []float64{3})
	tbl.Add(first)
	tbl.Add(second)
	m0, _ := tbl.Entry(0)
	if m0.At(0, 0) != 9 {
		t.Fatalf("expected insertion order to be preserved, first entry was %v", m0)
	}
}
