package model

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// DatasetTypeTable is the per-lattice insertion-ordered multiset of
// distinct access matrices the NUMA cost engine accumulates across all
// linearized dates. Go maps have no stable iteration order, so entries
// are kept in an ordered slice with a parallel lookup map alongside it
// (see DESIGN.md), giving O(1) lookup by exact matrix equality while
// preserving insertion order.
type DatasetTypeTable struct {
	entries []datasetTypeEntry
	index   map[string]int
}

type datasetTypeEntry struct {
	Matrix       *mat.Dense
	Multiplicity int
}

// NewDatasetTypeTable returns an empty table.
func NewDatasetTypeTable() *DatasetTypeTable {
	return &DatasetTypeTable{index: make(map[string]int)}
}

// Add records one occurrence of m, incrementing its multiplicity if an
// exactly-equal matrix is already present, or inserting a new entry with
// multiplicity 1 otherwise. Equality is exact matrix equality, not
// approximate floating comparison, since every entry is a
// counting matrix of non-negative integers.
func (tbl *DatasetTypeTable) Add(m *mat.Dense) {
	key := matrixKey(m)
	if idx, ok := tbl.index[key]; ok {
		tbl.entries[idx].Multiplicity++
		return
	}
	tbl.index[key] = len(tbl.entries)
	tbl.entries = append(tbl.entries, datasetTypeEntry{Matrix: m, Multiplicity: 1})
}

// Len returns the number of distinct dataset types recorded.
func (tbl *DatasetTypeTable) Len() int { return len(tbl.entries) }

// Entry returns the i-th distinct matrix and its multiplicity, in
// insertion order.
func (tbl *DatasetTypeTable) Entry(i int) (*mat.Dense, int) {
	e := tbl.entries[i]
	return e.Matrix, e.Multiplicity
}

// TotalMultiplicity sums every entry's multiplicity, which must equal
// the number of linearized dates visited.
func (tbl *DatasetTypeTable) TotalMultiplicity() int {
	n := 0
	for _, e := range tbl.entries {
		n += e.Multiplicity
	}
	return n
}

func matrixKey(m *mat.Dense) string {
	r, c := m.Dims()
	var sb strings.Builder
	fmt.Fprintf(&sb, "%dx%d:", r, c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			fmt.Fprintf(&sb, "%d,", int(m.At(i, j)))
		}
	}
	return sb.String()
}
