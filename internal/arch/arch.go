// Package arch parses and represents the target memory architecture and
// the allocation of tasks to processors.
package arch

import "gonum.org/v1/gonum/mat"

// Mode selects the cost-engine capability the rest of the pipeline uses.
// The on-disk architecture file spells the NUMA variant "GNUMA"; the
// in-memory constant is named NUMA — internal/arch is the one place that
// translates between the two names.
type Mode int

const (
	UMA Mode = iota
	NUMA
)

func (m Mode) String() string {
	if m == NUMA {
		return "NUMA"
	}
	return "UMA"
}

// BankLatencyKind distinguishes a uniform bank latency from a per-bank
// one, per the "Fixed"/"Variable" architecture-file token.
type BankLatencyKind int

const (
	BankLatencyFixed BankLatencyKind = iota
	BankLatencyVariable
)

// Architecture is the parsed target memory architecture.
type Architecture struct {
	Mode           Mode
	NumProcessors  int
	NumBanks       int
	BankLatencyKind BankLatencyKind
	BankLatency    []float64   // len == NumBanks; for Fixed, every entry equal
	Delta          *mat.Dense  // NumProcessors x NumBanks, NUMA only; nil for UMA
}

// UniformBankLatency returns the single bank-latency value used by the
// MILP model's "uniform bank latency l" field, valid only when
// BankLatencyKind is BankLatencyFixed.
func (a *Architecture) UniformBankLatency() float64 {
	if len(a.BankLatency) == 0 {
		return 0
	}
	return a.BankLatency[0]
}
