package polyset

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// WriteSet renders s in the facade's plain-text exchange format:
//
//	space: dims=i,j params=n
//	basic
//	bound 0 0 9
//	bound 1 0 +inf
//	con eq 1,-1 | 0 | 0
//	end
//
// one "basic" block per BasicSet, used by the package's own round-trip
// tests.
func WriteSet(w io.Writer, s Set) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "space: dims=%s params=%s\n", strings.Join(s.Space.Dims, ","), strings.Join(s.Space.Params, ","))
	for _, b := range s.Basic {
		fmt.Fprintln(bw, "basic")
		for i, bd := range b.Bounds {
			writeBound(bw, i, bd)
		}
		for _, c := range b.Constraints {
			writeConstraint(bw, c)
		}
		fmt.Fprintln(bw, "end")
	}
	return bw.Flush()
}

func writeBound(w *bufio.Writer, i int, b Bound) {
	lo, hi := "-inf", "+inf"
	if b.HasLo {
		lo = strconv.Itoa(b.Lo)
	}
	if b.HasHi {
		hi = strconv.Itoa(b.Hi)
	}
	fmt.Fprintf(w, "bound %d %s %s\n", i, lo, hi)
}

func writeConstraint(w *bufio.Writer, c Constraint) {
	switch c.Kind {
	case ConEq:
		fmt.Fprintf(w, "con eq %s | %s | %d\n", intsJoin(c.Coeffs), intsJoin(c.ParamCoeffs), c.Const)
	case ConGE:
		fmt.Fprintf(w, "con ge %s | %s | %d\n", intsJoin(c.Coeffs), intsJoin(c.ParamCoeffs), c.Const)
	case ConMod:
		fmt.Fprintf(w, "con mod %s | %d | %d | %d\n", intsJoin(c.Coeffs), c.Const, c.Modulus, c.Residue)
	}
}

func intsJoin(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = strconv.Itoa(x)
	}
	return strings.Join(parts, ",")
}

// ReadSet parses the format WriteSet produces.
func ReadSet(r io.Reader) (Set, error) {
	sc := bufio.NewScanner(r)
	if !sc.Scan() {
		return Set{}, errors.New("polyset: empty set text")
	}
	space, err := parseSpaceLine(sc.Text())
	if err != nil {
		return Set{}, err
	}
	var basics []BasicSet
	var cur *BasicSet
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "basic":
			cur = &BasicSet{Space: space.Clone()}
		case "bound":
			if cur == nil {
				return Set{}, errors.New("polyset: bound outside basic block")
			}
			b, err := parseBoundLine(fields)
			if err != nil {
				return Set{}, err
			}
			cur.Bounds = append(cur.Bounds, b)
		case "con":
			if cur == nil {
				return Set{}, errors.New("polyset: con outside basic block")
			}
			c, err := parseConstraintLine(line)
			if err != nil {
				return Set{}, err
			}
			cur.Constraints = append(cur.Constraints, c)
		case "end":
			if cur == nil {
				return Set{}, errors.New("polyset: end without basic")
			}
			basics = append(basics, *cur)
			cur = nil
		default:
			return Set{}, errors.Errorf("polyset: unrecognized set line %q", line)
		}
	}
	if err := sc.Err(); err != nil {
		return Set{}, err
	}
	return Set{Space: space, Basic: basics}, nil
}

func parseSpaceLine(line string) (SetSpace, error) {
	line = strings.TrimPrefix(strings.TrimSpace(line), "space:")
	var dims, params []string
	for _, field := range strings.Fields(line) {
		switch {
		case strings.HasPrefix(field, "dims="):
			dims = splitNonEmpty(strings.TrimPrefix(field, "dims="))
		case strings.HasPrefix(field, "params="):
			params = splitNonEmpty(strings.TrimPrefix(field, "params="))
		default:
			return SetSpace{}, errors.Errorf("polyset: unrecognized space field %q", field)
		}
	}
	return SetSpace{Dims: dims, Params: params}, nil
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func parseBoundLine(fields []string) (Bound, error) {
	if len(fields) != 4 {
		return Bound{}, errors.Errorf("polyset: malformed bound line %v", fields)
	}
	var b Bound
	if fields[2] != "-inf" {
		v, err := strconv.Atoi(fields[2])
		if err != nil {
			return Bound{}, err
		}
		b.HasLo, b.Lo = true, v
	}
	if fields[3] != "+inf" {
		v, err := strconv.Atoi(fields[3])
		if err != nil {
			return Bound{}, err
		}
		b.HasHi, b.Hi = true, v
	}
	return b, nil
}

func parseConstraintLine(line string) (Constraint, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return Constraint{}, errors.Errorf("polyset: malformed con line %q", line)
	}
	rest := strings.Join(fields[2:], " ")
	switch fields[1] {
	case "eq", "ge":
		parts := strings.Split(rest, "|")
		if len(parts) != 3 {
			return Constraint{}, errors.Errorf("polyset: malformed con line %q", line)
		}
		coeffs, err := parseIntList(parts[0])
		if err != nil {
			return Constraint{}, err
		}
		paramCoeffs, err := parseIntList(parts[1])
		if err != nil {
			return Constraint{}, err
		}
		c, err := strconv.Atoi(strings.TrimSpace(parts[2]))
		if err != nil {
			return Constraint{}, err
		}
		kind := ConEq
		if fields[1] == "ge" {
			kind = ConGE
		}
		return Constraint{Kind: kind, Coeffs: coeffs, ParamCoeffs: paramCoeffs, Const: c}, nil
	case "mod":
		parts := strings.Split(rest, "|")
		if len(parts) != 4 {
			return Constraint{}, errors.Errorf("polyset: malformed con mod line %q", line)
		}
		coeffs, err := parseIntList(parts[0])
		if err != nil {
			return Constraint{}, err
		}
		c, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return Constraint{}, err
		}
		modulus, err := strconv.Atoi(strings.TrimSpace(parts[2]))
		if err != nil {
			return Constraint{}, err
		}
		residue, err := strconv.Atoi(strings.TrimSpace(parts[3]))
		if err != nil {
			return Constraint{}, err
		}
		return Constraint{Kind: ConMod, Coeffs: coeffs, Const: c, Modulus: modulus, Residue: residue}, nil
	default:
		return Constraint{}, errors.Errorf("polyset: unrecognized constraint kind %q", fields[1])
	}
}

func parseIntList(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	fields := strings.Split(s, ",")
	out := make([]int, len(fields))
	for i, f := range fields {
		v, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, errors.Wrapf(err, "polyset: parsing int %q", f)
		}
		out[i] = v
	}
	return out, nil
}

// WriteRelation renders r in the same "space/basic/end" shape as WriteSet,
// with a "domain" bound line per In dim and an "out" expression line per
// Out dim instead of Set's plain bound+constraint lines.
func WriteRelation(w io.Writer, r Relation) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "space: in=%s out=%s params=%s\n",
		strings.Join(r.Space.In, ","), strings.Join(r.Space.Out, ","), strings.Join(r.Space.Params, ","))
	for _, b := range r.Basic {
		fmt.Fprintln(bw, "basic")
		for i, bd := range b.Domain {
			writeBound(bw, i, bd)
		}
		for _, c := range b.Constraints {
			writeConstraint(bw, c)
		}
		for i, e := range b.Out {
			fmt.Fprintf(bw, "out %d %s\n", i, exprText(e))
		}
		fmt.Fprintln(bw, "end")
	}
	return bw.Flush()
}

// ReadRelation parses the format WriteRelation produces.
func ReadRelation(r io.Reader) (Relation, error) {
	sc := bufio.NewScanner(r)
	if !sc.Scan() {
		return Relation{}, errors.New("polyset: empty relation text")
	}
	space, err := parseRelSpaceLine(sc.Text())
	if err != nil {
		return Relation{}, err
	}
	var basics []BasicRelation
	var cur *BasicRelation
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "basic":
			cur = &BasicRelation{Space: space.Clone(), Out: make([]Expr, len(space.Out))}
		case "bound":
			if cur == nil {
				return Relation{}, errors.New("polyset: bound outside basic block")
			}
			b, err := parseBoundLine(fields)
			if err != nil {
				return Relation{}, err
			}
			cur.Domain = append(cur.Domain, b)
		case "con":
			if cur == nil {
				return Relation{}, errors.New("polyset: con outside basic block")
			}
			c, err := parseConstraintLine(line)
			if err != nil {
				return Relation{}, err
			}
			cur.Constraints = append(cur.Constraints, c)
		case "out":
			if cur == nil {
				return Relation{}, errors.New("polyset: out outside basic block")
			}
			idx, err := strconv.Atoi(fields[1])
			if err != nil || idx < 0 || idx >= len(cur.Out) {
				return Relation{}, errors.Errorf("polyset: malformed out line %q", line)
			}
			e, err := parseExprText(strings.Join(fields[2:], " "))
			if err != nil {
				return Relation{}, err
			}
			cur.Out[idx] = e
		case "end":
			if cur == nil {
				return Relation{}, errors.New("polyset: end without basic")
			}
			basics = append(basics, *cur)
			cur = nil
		default:
			return Relation{}, errors.Errorf("polyset: unrecognized relation line %q", line)
		}
	}
	if err := sc.Err(); err != nil {
		return Relation{}, err
	}
	return Relation{Space: space, Basic: basics}, nil
}

func parseRelSpaceLine(line string) (RelSpace, error) {
	line = strings.TrimPrefix(strings.TrimSpace(line), "space:")
	var in, out, params []string
	for _, field := range strings.Fields(line) {
		switch {
		case strings.HasPrefix(field, "in="):
			in = splitNonEmpty(strings.TrimPrefix(field, "in="))
		case strings.HasPrefix(field, "out="):
			out = splitNonEmpty(strings.TrimPrefix(field, "out="))
		case strings.HasPrefix(field, "params="):
			params = splitNonEmpty(strings.TrimPrefix(field, "params="))
		default:
			return RelSpace{}, errors.Errorf("polyset: unrecognized space field %q", field)
		}
	}
	return RelSpace{In: in, Out: out, Params: params}, nil
}

// parseExprText parses the format exprText produces: "{affine,div,mod}
// coeffs=.. params=.. const=.. divisor=..".
func parseExprText(s string) (Expr, error) {
	fields := strings.Fields(s)
	if len(fields) != 5 {
		return Expr{}, errors.Errorf("polyset: malformed expr text %q", s)
	}
	e := Expr{}
	switch fields[0] {
	case "affine":
		e.Kind = ExprAffine
	case "div":
		e.Kind = ExprDiv
	case "mod":
		e.Kind = ExprMod
	default:
		return Expr{}, errors.Errorf("polyset: unrecognized expr kind %q", fields[0])
	}
	for _, f := range fields[1:] {
		kv := strings.SplitN(f, "=", 2)
		if len(kv) != 2 {
			return Expr{}, errors.Errorf("polyset: malformed expr field %q", f)
		}
		switch kv[0] {
		case "coeffs":
			vals, err := parseIntList(kv[1])
			if err != nil {
				return Expr{}, err
			}
			e.InCoeffs = vals
		case "params":
			vals, err := parseIntList(kv[1])
			if err != nil {
				return Expr{}, err
			}
			e.ParamCoeffs = vals
		case "const":
			v, err := strconv.Atoi(kv[1])
			if err != nil {
				return Expr{}, err
			}
			e.Const = v
		case "divisor":
			v, err := strconv.Atoi(kv[1])
			if err != nil {
				return Expr{}, err
			}
			e.Divisor = v
		default:
			return Expr{}, errors.Errorf("polyset: unrecognized expr field %q", kv[0])
		}
	}
	return e, nil
}

// WriteScheduleTree renders t as nested "band"/"filter"/"end" blocks, one
// line per band member or filter constraint, for the same debugging and
// round-trip purpose as WriteSet.
func WriteScheduleTree(w io.Writer, t *ScheduleTree) error {
	bw := bufio.NewWriter(w)
	if err := writeTreeNode(bw, t, 0); err != nil {
		return err
	}
	return bw.Flush()
}

func writeTreeNode(w *bufio.Writer, t *ScheduleTree, depth int) error {
	indent := strings.Repeat("  ", depth)
	if t == nil {
		fmt.Fprintf(w, "%sleaf\n", indent)
		return nil
	}
	switch {
	case t.Band != nil:
		fmt.Fprintf(w, "%sband\n", indent)
		for _, m := range t.Band.Members {
			fmt.Fprintf(w, "%s  member %s coincident=%v %s\n", indent, m.Name, m.Coincident, exprText(m.Expr))
		}
		return writeTreeNode(w, t.Band.Child, depth+1)
	case t.Filter != nil:
		fmt.Fprintf(w, "%sfilter\n", indent)
		for _, c := range t.Filter.Constraints {
			fmt.Fprintf(w, "%s  constraint %s\n", indent, constraintText(c))
		}
		return writeTreeNode(w, t.Filter.Child, depth+1)
	default:
		return errors.New("polyset: schedule tree node has neither Band nor Filter set")
	}
}

// ReadScheduleTree parses the indented format WriteScheduleTree produces.
func ReadScheduleTree(r io.Reader) (*ScheduleTree, error) {
	sc := bufio.NewScanner(r)
	var lines []string
	for sc.Scan() {
		if strings.TrimSpace(sc.Text()) == "" {
			continue
		}
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	tree, idx, err := parseTreeNode(lines, 0, 0)
	if err != nil {
		return nil, err
	}
	if idx != len(lines) {
		return nil, errors.Errorf("polyset: %d trailing line(s) after schedule tree", len(lines)-idx)
	}
	return tree, nil
}

func parseTreeNode(lines []string, idx, depth int) (*ScheduleTree, int, error) {
	if idx >= len(lines) {
		return nil, idx, errors.New("polyset: schedule tree truncated")
	}
	indent := strings.Repeat("  ", depth)
	line := strings.TrimPrefix(lines[idx], indent)
	if line == lines[idx] && indent != "" {
		return nil, idx, errors.Errorf("polyset: expected indent %q at line %q", indent, lines[idx])
	}
	switch strings.TrimSpace(line) {
	case "leaf":
		return nil, idx + 1, nil
	case "band":
		idx++
		var members []BandMember
		memberPrefix := indent + "  member "
		for idx < len(lines) && strings.HasPrefix(lines[idx], memberPrefix) {
			m, err := parseMemberLine(strings.TrimPrefix(lines[idx], memberPrefix))
			if err != nil {
				return nil, idx, err
			}
			members = append(members, m)
			idx++
		}
		child, idx, err := parseTreeNode(lines, idx, depth+1)
		if err != nil {
			return nil, idx, err
		}
		return NewBand(members, child), idx, nil
	case "filter":
		idx++
		var constraints []Constraint
		constraintPrefix := indent + "  constraint "
		for idx < len(lines) && strings.HasPrefix(lines[idx], constraintPrefix) {
			c, err := parseConstraintLine("con " + strings.TrimPrefix(lines[idx], constraintPrefix))
			if err != nil {
				return nil, idx, err
			}
			constraints = append(constraints, c)
			idx++
		}
		child, idx, err := parseTreeNode(lines, idx, depth+1)
		if err != nil {
			return nil, idx, err
		}
		return NewFilter(constraints, child), idx, nil
	default:
		return nil, idx, errors.Errorf("polyset: unrecognized schedule tree line %q", lines[idx])
	}
}

// parseMemberLine parses "{name} coincident={bool} {exprText}".
func parseMemberLine(s string) (BandMember, error) {
	fields := strings.Fields(s)
	if len(fields) < 2 {
		return BandMember{}, errors.Errorf("polyset: malformed member line %q", s)
	}
	name := fields[0]
	const prefix = "coincident="
	if !strings.HasPrefix(fields[1], prefix) {
		return BandMember{}, errors.Errorf("polyset: malformed member line %q", s)
	}
	coincident, err := strconv.ParseBool(strings.TrimPrefix(fields[1], prefix))
	if err != nil {
		return BandMember{}, errors.Wrapf(err, "polyset: parsing coincident flag in %q", s)
	}
	e, err := parseExprText(strings.Join(fields[2:], " "))
	if err != nil {
		return BandMember{}, err
	}
	return BandMember{Name: name, Expr: e, Coincident: coincident}, nil
}

func exprText(e Expr) string {
	kind := "affine"
	switch e.Kind {
	case ExprDiv:
		kind = "div"
	case ExprMod:
		kind = "mod"
	}
	return fmt.Sprintf("%s coeffs=%s params=%s const=%d divisor=%d", kind, intsJoin(e.InCoeffs), intsJoin(e.ParamCoeffs), e.Const, e.Divisor)
}

func constraintText(c Constraint) string {
	return strings.TrimSpace(strings.TrimPrefix(constraintLineBody(c), "con "))
}

func constraintLineBody(c Constraint) string {
	var sb strings.Builder
	w := bufio.NewWriter(&sb)
	writeConstraint(w, c)
	w.Flush()
	return sb.String()
}
