// Package paramfile parses the per-task parameter-value file format:
// "Number of parameters: u", then "Parameters values:" followed by u
// signed integers.
package paramfile

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Parse reads a parameter-value file and returns the parsed values in
// declared order.
func Parse(r io.Reader) ([]int, error) {
	sc := bufio.NewScanner(r)

	if !sc.Scan() {
		return nil, io.EOF
	}
	const countPrefix = "Number of parameters:"
	line := strings.TrimSpace(sc.Text())
	if !strings.HasPrefix(line, countPrefix) {
		return nil, errors.Errorf("paramfile: expected prefix %q, got %q", countPrefix, line)
	}
	n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, countPrefix)))
	if err != nil {
		return nil, errors.Wrap(err, "paramfile: parsing parameter count")
	}

	if !sc.Scan() {
		return nil, errors.New("paramfile: missing \"Parameters values:\" line")
	}
	const valuesPrefix = "Parameters values:"
	line = strings.TrimSpace(sc.Text())
	rest := strings.TrimSpace(strings.TrimPrefix(line, valuesPrefix))
	if !strings.HasPrefix(line, valuesPrefix) {
		return nil, errors.Errorf("paramfile: expected prefix %q, got %q", valuesPrefix, line)
	}

	values := make([]int, 0, n)
	if rest != "" {
		for _, f := range strings.Fields(rest) {
			v, err := strconv.Atoi(f)
			if err != nil {
				return nil, errors.Wrapf(err, "paramfile: parsing value %q", f)
			}
			values = append(values, v)
		}
	}
	for len(values) < n {
		if !sc.Scan() {
			return nil, errors.Errorf("paramfile: expected %d values, got %d", n, len(values))
		}
		for _, f := range strings.Fields(sc.Text()) {
			v, err := strconv.Atoi(f)
			if err != nil {
				return nil, errors.Wrapf(err, "paramfile: parsing value %q", f)
			}
			values = append(values, v)
		}
	}
	if len(values) != n {
		return nil, errors.Errorf("paramfile: expected exactly %d values, got %d", n, len(values))
	}
	return values, nil
}
