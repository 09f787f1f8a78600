package polyset

import "testing"

func testSpace() SetSpace {
	return SetSpace{Dims: []string{"i", "j"}, Params: []string{"n"}}
}

func TestForeachPointEnumeratesBox(t *testing.T) {
	b := NewBasicSet(testSpace(), []Bound{Range(0, 1), Range(0, 2)})
	s := NewSet(b)
	var pts []Point
	err := s.ForeachPoint(nil, func(p Point) (Visit, error) {
		pts = append(pts, p)
		return VisitContinue, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(pts) != 6 {
		t.Fatalf("got %d points, want 6", len(pts))
	}
	if !pts[0].Equal(NewPoint(0, 0)) || !pts[len(pts)-1].Equal(NewPoint(1, 2)) {
		t.Fatalf("unexpected lex order: first=%v last=%v", pts[0], pts[len(pts)-1])
	}
}

func TestForeachPointHonorsConstraint(t *testing.T) {
	b := NewBasicSet(testSpace(), []Bound{Range(0, 3), Range(0, 3)})
	b = b.AddConstraint(Eq([]int{1, -1}, nil, 0)) // i == j
	s := NewSet(b)
	n, err := s.Count(nil)
	if err != nil {
		t.Fatal(err)
	}
	if n != 4 {
		t.Fatalf("got %d, want 4", n)
	}
}

func TestForeachPointStopsEarly(t *testing.T) {
	b := NewBasicSet(testSpace(), []Bound{Range(0, 10), Range(0, 10)})
	s := NewSet(b)
	seen := 0
	err := s.ForeachPoint(nil, func(p Point) (Visit, error) {
		seen++
		if seen == 3 {
			return VisitStop, nil
		}
		return VisitContinue, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if seen != 3 {
		t.Fatalf("got %d, want 3 (early stop)", seen)
	}
}

func TestForeachPointUnboundedErrors(t *testing.T) {
	b := NewBasicSet(testSpace(), []Bound{Unbounded(), Range(0, 1)})
	s := NewSet(b)
	err := s.ForeachPoint(nil, func(p Point) (Visit, error) { return VisitContinue, nil })
	if err == nil {
		t.Fatal("expected error enumerating unbounded dim")
	}
}

func TestLexLessSingleton(t *testing.T) {
	b := NewBasicSet(testSpace(), []Bound{Range(0, 2), Range(0, 2)})
	s := NewSet(b)
	n, err := LexLessSingleton(s, NewPoint(1, 1), nil)
	if err != nil {
		t.Fatal(err)
	}
	// points strictly before (1,1) in lex order within [0,2]x[0,2]:
	// (0,0)(0,1)(0,2)(1,0) = 4
	if n != 4 {
		t.Fatalf("got %d, want 4", n)
	}
}

func TestSetCoalesceDropsDuplicates(t *testing.T) {
	b := NewBasicSet(testSpace(), []Bound{Fixed(0), Fixed(0)})
	s := Union(NewSet(b), NewSet(b.Clone()))
	if len(s.Basic) != 2 {
		t.Fatalf("expected 2 basic sets before coalesce, got %d", len(s.Basic))
	}
	c := s.Coalesce()
	if len(c.Basic) != 1 {
		t.Fatalf("expected 1 basic set after coalesce, got %d", len(c.Basic))
	}
}

func TestIntersectDomain(t *testing.T) {
	b := NewBasicSet(testSpace(), []Bound{Range(0, 5), Range(0, 5)})
	s := NewSet(b)
	restricted := s.IntersectDomain([]Constraint{GE([]int{1}, nil, -3)}) // i>=3
	n, err := restricted.Count(nil)
	if err != nil {
		t.Fatal(err)
	}
	// i in {3,4,5}, j in {0..5} => 3*6=18
	if n != 18 {
		t.Fatalf("got %d, want 18", n)
	}
}
