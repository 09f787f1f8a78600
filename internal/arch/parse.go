package arch

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// scanner wraps bufio.Scanner with a line-oriented "expect a prefix, parse
// the rest" helper, mirroring a line-by-line fscanf read loop but
// surfacing typed errors instead of perror+exit.
type scanner struct {
	sc   *bufio.Scanner
	line int
}

func newScanner(r io.Reader) *scanner { return &scanner{sc: bufio.NewScanner(r)} }

func (s *scanner) next() (string, error) {
	if !s.sc.Scan() {
		if err := s.sc.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	s.line++
	return s.sc.Text(), nil
}

func (s *scanner) expectPrefix(prefix string) (string, error) {
	line, err := s.next()
	if err != nil {
		return "", errors.Wrapf(err, "arch: expected line starting %q", prefix)
	}
	if !strings.HasPrefix(strings.TrimSpace(line), prefix) {
		return "", errors.Errorf("arch: line %d: expected prefix %q, got %q", s.line, prefix, line)
	}
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), prefix)), nil
}

func (s *scanner) expectInt(prefix string) (int, error) {
	rest, err := s.expectPrefix(prefix)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(strings.TrimSpace(rest))
	if err != nil {
		return 0, errors.Wrapf(err, "arch: line %d: expected integer after %q", s.line, prefix)
	}
	return v, nil
}

func (s *scanner) expectInts(n int) ([]int, error) {
	out := make([]int, 0, n)
	for len(out) < n {
		line, err := s.next()
		if err != nil {
			return nil, errors.Wrapf(err, "arch: reading %d integers", n)
		}
		for _, f := range strings.Fields(line) {
			v, err := strconv.Atoi(f)
			if err != nil {
				return nil, errors.Wrapf(err, "arch: line %d: parsing integer %q", s.line, f)
			}
			out = append(out, v)
		}
	}
	if len(out) != n {
		return nil, errors.Errorf("arch: expected exactly %d integers, got %d", n, len(out))
	}
	return out, nil
}

func (s *scanner) expectFloats(n int) ([]float64, error) {
	out := make([]float64, 0, n)
	for len(out) < n {
		line, err := s.next()
		if err != nil {
			return nil, errors.Wrapf(err, "arch: reading %d floats", n)
		}
		for _, f := range strings.Fields(line) {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "arch: line %d: parsing float %q", s.line, f)
			}
			out = append(out, v)
		}
	}
	if len(out) != n {
		return nil, errors.Errorf("arch: expected exactly %d floats, got %d", n, len(out))
	}
	return out, nil
}

// ParseArchitecture reads the §6.3 architecture file format.
func ParseArchitecture(r io.Reader) (*Architecture, error) {
	s := newScanner(r)
	typ, err := s.expectPrefix("Architecture type:")
	if err != nil {
		return nil, err
	}
	typ = strings.TrimSpace(typ)

	a := &Architecture{}
	switch typ {
	case "UMA":
		a.Mode = UMA
	case "GNUMA":
		a.Mode = NUMA
	default:
		return nil, errors.Errorf("arch: unrecognized architecture type %q", typ)
	}

	a.NumProcessors, err = s.expectInt("Number of processors:")
	if err != nil {
		return nil, err
	}
	a.NumBanks, err = s.expectInt("Number of memory banks:")
	if err != nil {
		return nil, err
	}
	if a.Mode == UMA {
		return a, nil
	}

	kind, err := s.expectPrefix("Bank latency:")
	if err != nil {
		return nil, err
	}
	switch strings.TrimSpace(kind) {
	case "Fixed":
		a.BankLatencyKind = BankLatencyFixed
		vals, err := s.expectFloats(1)
		if err != nil {
			return nil, err
		}
		a.BankLatency = make([]float64, a.NumBanks)
		for i := range a.BankLatency {
			a.BankLatency[i] = vals[0]
		}
	case "Variable":
		a.BankLatencyKind = BankLatencyVariable
		vals, err := s.expectFloats(a.NumBanks)
		if err != nil {
			return nil, err
		}
		a.BankLatency = vals
	default:
		return nil, errors.Errorf("arch: unrecognized bank latency kind %q", kind)
	}

	if _, err := s.expectPrefix("Latency from each processor to each memory bank:"); err != nil {
		return nil, err
	}
	deltaVals, err := s.expectFloats(a.NumProcessors * a.NumBanks)
	if err != nil {
		return nil, err
	}
	a.Delta = mat.NewDense(a.NumProcessors, a.NumBanks, deltaVals)
	return a, nil
}

// ParseAllocation reads the §6.3 allocation file format for the given
// architecture mode, validating NUMA contiguity before returning.
func ParseAllocation(r io.Reader, mode Mode) (*Allocation, error) {
	s := newScanner(r)
	a := &Allocation{Mode: mode}
	var err error
	a.NumWorkingProcessors, err = s.expectInt("Number of working processors:")
	if err != nil {
		return nil, err
	}
	a.NumTasks, err = s.expectInt("Number of executing tasks:")
	if err != nil {
		return nil, err
	}

	switch mode {
	case UMA:
		if _, err := s.expectPrefix("Processors assigned to each task:"); err != nil {
			return nil, err
		}
		a.N, err = s.expectInts(a.NumTasks)
		if err != nil {
			return nil, err
		}
	case NUMA:
		if _, err := s.expectPrefix("Task ID executing on each processor:"); err != nil {
			return nil, err
		}
		a.TaskOnProcessor, err = s.expectInts(a.NumWorkingProcessors)
		if err != nil {
			return nil, err
		}
		if err := ValidateContiguous(a); err != nil {
			return nil, err
		}
	}
	return a, nil
}
