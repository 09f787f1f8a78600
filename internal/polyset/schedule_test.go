package polyset

import "testing"

func TestFlattenScheduleLinearChain(t *testing.T) {
	inner := NewBand([]BandMember{{Name: "t1", Expr: AffineVar(1, 2), Coincident: true}}, nil)
	tree := NewFilter([]Constraint{GE([]int{1, 0}, nil, 0)},
		NewBand([]BandMember{{Name: "t0", Expr: AffineVar(0, 2), Coincident: false}}, inner))

	members, constraints, err := FlattenSchedule(tree)
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 2 {
		t.Fatalf("got %d members, want 2", len(members))
	}
	if members[0].Name != "t0" || members[1].Name != "t1" {
		t.Fatalf("unexpected member order: %v", members)
	}
	if len(constraints) != 1 {
		t.Fatalf("got %d constraints, want 1", len(constraints))
	}
}

func TestParallelPos(t *testing.T) {
	tree := NewBand([]BandMember{{Name: "t0", Coincident: true}}, nil)
	pos, err := ParallelPos(tree)
	if err != nil {
		t.Fatal(err)
	}
	if pos != 0 {
		t.Fatalf("got %d, want 0", pos)
	}

	tree = NewBand([]BandMember{{Name: "t0", Coincident: false}}, nil)
	pos, err = ParallelPos(tree)
	if err != nil {
		t.Fatal(err)
	}
	if pos != -1 {
		t.Fatalf("got %d, want -1", pos)
	}
}

// TestParallelPosDisqualifiesWholeBand exercises a band whose first member
// is not coincident but whose second member is: the band is disqualified
// outright (only member 0 is ever tested), so ParallelPos must keep
// walking past it rather than returning the later member's flat index.
func TestParallelPosDisqualifiesWholeBand(t *testing.T) {
	tree := NewBand([]BandMember{
		{Name: "t0", Coincident: false},
		{Name: "t1", Coincident: true},
	}, nil)
	pos, err := ParallelPos(tree)
	if err != nil {
		t.Fatal(err)
	}
	if pos != -1 {
		t.Fatalf("got %d, want -1 (disqualified band must not match on member 1)", pos)
	}
}

// TestParallelPosSkipsToNextBand confirms the walk resumes at the next
// node's member 0 — not at the disqualified band's later members — once a
// band is disqualified, and that the returned position accounts for the
// members skipped over.
func TestParallelPosSkipsToNextBand(t *testing.T) {
	inner := NewBand([]BandMember{{Name: "t1", Coincident: true}}, nil)
	tree := NewBand([]BandMember{
		{Name: "t0", Coincident: false},
		{Name: "t0b", Coincident: true},
	}, inner)
	pos, err := ParallelPos(tree)
	if err != nil {
		t.Fatal(err)
	}
	if pos != 2 {
		t.Fatalf("got %d, want 2 (the inner band's member, not t0b at index 1)", pos)
	}
}

func TestScheduleRelation(t *testing.T) {
	tree := NewBand([]BandMember{
		{Name: "t0", Expr: AffineVar(0, 2)},
		{Name: "t1", Expr: AffineVar(1, 2)},
	}, nil)
	domainSpace := RelSpace{In: []string{"i", "j"}}
	rel, constraints, err := ScheduleRelation(domainSpace, tree)
	if err != nil {
		t.Fatal(err)
	}
	if len(constraints) != 0 {
		t.Fatalf("expected no constraints, got %d", len(constraints))
	}
	img, err := rel.Basic[0].Image([]int{5, 9}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !img.Equal(NewPoint(5, 9)) {
		t.Fatalf("got %v, want [5 9]", img)
	}
}
