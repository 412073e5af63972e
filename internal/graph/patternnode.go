package graph

import (
	"github.com/cklabs/phonon/pattern"
	"github.com/cklabs/phonon/rational"
)

// patternEpsilon is the width of the narrow "has a new Hap begun here"
// probe span, expressed as a fraction of a cycle — small enough that at
// most one Hap onset falls inside it at any transition (spec §4.5.4).
const patternEpsilon = 0.0001

// PatternNode bridges a Pattern<float64> into the signal graph: each
// sample it probes a narrow span around the current cycle position and,
// if a Hap begins there, updates last_value; otherwise it holds the
// previous value. This is the sample-and-hold bridge of spec §4.5.4 —
// "patterns step discretely, synthesis runs continuously, and the two
// meet at the sample boundary."
type PatternNode struct {
	Pat       pattern.Pattern[float64]
	lastValue float64
}

func NewPatternNode(p pattern.Pattern[float64]) *PatternNode {
	return &PatternNode{Pat: p}
}

func (p *PatternNode) eval(g *Graph) float64 {
	cyc := rational.FromFloat(g.Cycle())
	eps := rational.FromFloat(patternEpsilon)
	span := rational.NewSpan(cyc, cyc.Add(eps))
	haps := p.Pat.QuerySpan(span, g.busValues)
	for _, h := range haps {
		if h.HasOnset() {
			p.lastValue = h.Value
		}
	}
	return p.lastValue
}
