// Package lattice parses and represents the catalog of candidate
// fundamental lattices.
package lattice

import "github.com/ing-raf/Lattice-Based-Memory-Partitioning-Master-Thesis-Implementation/internal/polyset"

// Catalog holds every fundamental lattice's translates, indexed
// internally from 0 even though the on-disk files are 1-indexed — this
// package owns the one translation point.
type Catalog struct {
	NumBanks int
	DimVirt  int

	// Translates[l][b] is the b-th bank's translate of lattice l, both
	// 0-indexed.
	Translates [][]polyset.Set
}

// NumLattices returns how many fundamental lattices the catalog holds.
func (c *Catalog) NumLattices() int { return len(c.Translates) }

// Translate returns the 0-indexed lattice l's 0-indexed bank b translate.
func (c *Catalog) Translate(l, b int) polyset.Set { return c.Translates[l][b] }
