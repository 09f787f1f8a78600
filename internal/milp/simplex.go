package milp

import (
	"context"
	"math"
)

// BranchAndBoundOracle is the one concrete Oracle this module ships. The
// actual decision a lattice's MILP makes is
// which physical bank each of its T translates should be assigned to, so
// as to minimize the worst-case latency any single processor experiences
// (the NUMA architecture's delta[p][b] access-delay table makes some
// bank assignments cheaper than others for a given access pattern). This
// is modeled as the assignment problem it is: a 0/1 matrix y[t][b], one
// translate per bank, minimizing max_p latency_p — solved here by
// branch-and-bound over the assignment directly (exact for the small T,
// B this planner's lattices have), bounding each partial assignment by
// the worst per-processor latency accumulated so far (which can only
// grow as more translates are assigned, a valid admissible bound).
//
// This is explicitly a reference, non-production solver; the real MILP
// solver stays out of the core design. See DESIGN.md.
type BranchAndBoundOracle struct {
	// NodeLimit caps the number of assignment nodes explored before
	// giving up and reporting Undefined, so a pathological lattice cannot
	// hang the driver. Zero means unbounded.
	NodeLimit int
}

// Solve implements Oracle.
func (o *BranchAndBoundOracle) Solve(ctx context.Context, m Model) (Result, error) {
	if m.D == 0 || m.T == 0 || m.P == 0 || m.B == 0 {
		return Result{Status: Undefined}, nil
	}
	if m.T > m.B {
		return Result{Status: Infeasible}, nil
	}

	weight := perTranslatePerProcessorWeight(m)

	// m.MinLatency/m.NonFirstLattice are the running best-bound threaded
	// through every lattice after the first: a solution that
	// cannot beat it is of no use to the driver (internal/cost.NUMAEngine
	// only ever accepts objective < currentBest+1), so it doubles as the
	// search's pruning cutoff.
	cutoff := math.Inf(1)
	if m.NonFirstLattice {
		cutoff = m.MinLatency + 1
	}

	bb := &bbState{
		m:         m,
		weight:    weight,
		bankUsed:  make([]bool, m.B),
		assign:    make([]int, m.T),
		latency:   make([]float64, m.P),
		best:      cutoff,
		found:     false,
		nodeLimit: o.NodeLimit,
	}
	for i := range bb.assign {
		bb.assign[i] = -1
	}

	err := bb.search(ctx, 0)
	if err != nil {
		return Result{}, err
	}
	if ctx.Err() != nil {
		return Result{Status: Undefined}, nil
	}
	if o.NodeLimit > 0 && bb.nodes > o.NodeLimit {
		return Result{Status: Undefined}, nil
	}
	if !bb.found {
		return Result{Status: Infeasible}, nil
	}
	return Result{Status: Optimal, Objective: bb.best}, nil
}

// perTranslatePerProcessorWeight precomputes, for each (translate t,
// processor p), the total access volume weighted by multiplicity:
// Σ_d Multiplicity[d] * Counts[d,p,t].
func perTranslatePerProcessorWeight(m Model) [][]float64 {
	w := make([][]float64, m.T)
	for t := range w {
		w[t] = make([]float64, m.P)
	}
	for key, count := range m.Counts {
		d, p, t := key[0], key[1], key[2]
		if t >= m.T || p >= m.P || d >= len(m.Multiplicity) {
			continue
		}
		w[t][p] += float64(count) * float64(m.Multiplicity[d])
	}
	return w
}

type bbState struct {
	m         Model
	weight    [][]float64
	bankUsed  []bool
	assign    []int
	latency   []float64
	best      float64
	found     bool
	nodes     int
	nodeLimit int
}

func (b *bbState) search(ctx context.Context, t int) error {
	if ctx.Err() != nil {
		return nil
	}
	if b.nodeLimit > 0 {
		b.nodes++
		if b.nodes > b.nodeLimit {
			return nil
		}
	}
	if t == len(b.assign) {
		obj := b.objective()
		if obj < b.best {
			b.best = obj
			b.found = true
		}
		return nil
	}
	// Lower bound: the worst per-processor latency already committed can
	// only grow as more translates are assigned, so it is a valid
	// admissible bound for pruning this branch.
	if b.currentMaxLatency() >= b.best {
		return nil
	}
	for bank := 0; bank < b.m.B; bank++ {
		if b.bankUsed[bank] {
			continue
		}
		b.bankUsed[bank] = true
		b.assign[t] = bank
		delta := b.applyDelta(t, bank, 1)

		if err := b.search(ctx, t+1); err != nil {
			return err
		}

		b.applyDeltaRaw(delta, -1)
		b.assign[t] = -1
		b.bankUsed[bank] = false
	}
	return nil
}

// applyDelta adds translate t's per-processor weighted latency for the
// chosen bank into b.latency, returning the delta vector so it can be
// subtracted back out on backtrack.
func (b *bbState) applyDelta(t, bank int, sign float64) []float64 {
	delta := make([]float64, b.m.P)
	for p := 0; p < b.m.P; p++ {
		bankLatency := b.m.BankLatency
		if b.m.Delta != nil {
			r, _ := b.m.Delta.Dims()
			if p < r {
				bankLatency = b.m.Delta.At(p, bank)
			}
		}
		v := sign * b.weight[t][p] * bankLatency
		delta[p] = v
		b.latency[p] += v
	}
	return delta
}

func (b *bbState) applyDeltaRaw(delta []float64, sign float64) {
	for p, v := range delta {
		b.latency[p] += sign * v
	}
}

func (b *bbState) currentMaxLatency() float64 {
	max := 0.0
	for _, l := range b.latency {
		if l > max {
			max = l
		}
	}
	return max
}

func (b *bbState) objective() float64 {
	return b.currentMaxLatency()
}
