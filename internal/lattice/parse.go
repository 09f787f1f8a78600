package lattice

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/ing-raf/Lattice-Based-Memory-Partitioning-Master-Thesis-Implementation/internal/polyset"
)

// ParseNumLattices reads a "{numBanks}_dim{dVirt}_numLattices.txt" file's
// single "Number of different fundamental lattices:" line.
func ParseNumLattices(r io.Reader) (int, error) {
	sc := bufio.NewScanner(r)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return 0, err
		}
		return 0, io.EOF
	}
	const prefix = "Number of different fundamental lattices:"
	line := strings.TrimSpace(sc.Text())
	if !strings.HasPrefix(line, prefix) {
		return 0, errors.Errorf("lattice: expected prefix %q, got %q", prefix, line)
	}
	v, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, prefix)))
	if err != nil {
		return 0, errors.Wrap(err, "lattice: parsing lattice count")
	}
	return v, nil
}

// ParseTranslate reads one "{numBanks}_dim{dVirt}_lattice{L}_translate{T}.txt"
// file, which contains one integer set in internal/polyset's textual
// format.
func ParseTranslate(r io.Reader) (polyset.Set, error) {
	return polyset.ReadSet(r)
}

// NumLatticesFileName returns the catalog index file's name for a given
// (numBanks, dVirt) pair.
func NumLatticesFileName(numBanks, dVirt int) string {
	return fmt.Sprintf("%d_dim%d_numLattices.txt", numBanks, dVirt)
}

// TranslateFileName returns one translate file's name, using the on-disk
// 1-indexed lattice and translate numbering.
func TranslateFileName(numBanks, dVirt, lattice1Indexed, translate1Indexed int) string {
	return fmt.Sprintf("%d_dim%d_lattice%d_translate%d.txt", numBanks, dVirt, lattice1Indexed, translate1Indexed)
}

// LoadCatalog reads the full catalog for (numBanks, dVirt) out of dir,
// translating the on-disk 1-indexed lattice/translate numbering into the
// 0-indexed Catalog.Translates the rest of the pipeline uses.
func LoadCatalog(dir fs.FS, numBanks, dVirt int) (*Catalog, error) {
	f, err := dir.Open(NumLatticesFileName(numBanks, dVirt))
	if err != nil {
		return nil, errors.Wrap(err, "lattice: opening lattice count file")
	}
	n, err := ParseNumLattices(f)
	f.Close()
	if err != nil {
		return nil, err
	}

	cat := &Catalog{NumBanks: numBanks, DimVirt: dVirt, Translates: make([][]polyset.Set, n)}
	for l := 0; l < n; l++ {
		cat.Translates[l] = make([]polyset.Set, numBanks)
		for b := 0; b < numBanks; b++ {
			name := TranslateFileName(numBanks, dVirt, l+1, b+1)
			tf, err := dir.Open(name)
			if err != nil {
				return nil, errors.Wrapf(err, "lattice: opening translate file %q", name)
			}
			set, err := ParseTranslate(tf)
			tf.Close()
			if err != nil {
				return nil, errors.Wrapf(err, "lattice: parsing translate file %q", name)
			}
			cat.Translates[l][b] = set
		}
	}
	return cat, nil
}
