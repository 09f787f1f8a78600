package driver

import (
	"fmt"
	"io"
)

// phaseNames is the canonical stage banner table, extended with one entry
// beyond the classic fused "Mapping parameters computation" step: this
// planner keeps parameter elimination and date linearization as distinct
// components, so the banner does too — "Parameter elimination" is the one
// name added here. "Concurrent dates computation" and "Instant local
// slice building" are the UMA and NUMA names respectively for the
// per-date loop; a single run only ever takes one of the two, selected by
// NextNamed.
var phaseNames = []string{
	"Reading input files",
	"Virtual address space allocation",
	"Reading lattices",
	"Physical schedule building",
	"Allocation building",
	"Parameter elimination",
	"Mapping parameters computation",
	"Concurrent dates computation",
	"Instant local slice building",
	"Solution space evaluation",
}

// ANSI color codes, written as raw escapes rather than pulled from a
// terminal-color library — the exact codes are a literal requirement of
// the banner's look, not a generic logging concern.
const (
	ansiMagenta = "\x1b[95m"
	ansiGreen   = "\x1b[32m"
	ansiRed     = "\x1b[91m"
	ansiReset   = "\x1b[0m"
)

// Phase tracks the current position in the phaseNames table and renders
// the "Step N) — {Stage Name}" banner to w, mirroring a classic
// start/new_phase/complete_phase/abort_phase sequence. It is exported so
// cmd/latticeplan can open the "Reading input files" step itself, wrap its
// own file parsing in it, and hand the same tracker to Run so the banner's
// step numbering stays continuous across the process boundary between the
// CLI front end and the driver.
type Phase struct {
	w    io.Writer
	num  int
	name string
}

// StartPhase opens the banner at its first step ("Reading input files")
// and prints it to w.
func StartPhase(w io.Writer) *Phase {
	p := &Phase{w: w, num: 0, name: phaseNames[0]}
	p.print()
	return p
}

// Next advances to the next entry of phaseNames and prints its banner.
func (p *Phase) Next() {
	p.num++
	p.name = phaseNames[p.num]
	p.print()
}

// NextNamed advances one step like Next, but prints name instead of the
// phaseNames table entry — used for the one step (the per-date loop) that
// takes a different name depending on the architecture mode.
func (p *Phase) NextNamed(name string) {
	p.num++
	p.name = name
	p.print()
}

func (p *Phase) print() {
	fmt.Fprintf(p.w, "%sStep %d) — %s%s\n", ansiMagenta, p.num+1, p.name, ansiReset)
}

// Complete marks the current step as having finished successfully.
func (p *Phase) Complete() {
	fmt.Fprintf(p.w, "%sStep %d) — %s — %sCompleted%s\n", ansiMagenta, p.num+1, p.name, ansiGreen, ansiReset)
}

// Abort marks the current step as having failed.
func (p *Phase) Abort() {
	fmt.Fprintf(p.w, "%sStep %d) — %s — %sFailed%s\n", ansiMagenta, p.num+1, p.name, ansiRed, ansiReset)
}
