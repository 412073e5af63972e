package graph

// ModMode selects how a modulation route combines a source signal with a
// base signal. Spec §3.3 only models modulation as a bare Expr(op, a, b);
// these four modes come from the original engine's richer router — see
// original_source/src/modulation_router.rs's ModulationMode.
type ModMode int

const (
	ModAdd ModMode = iota
	ModMultiply
	ModReplace
	ModBipolar
)

// ModRoute is a modulation-router node: Source scaled by Amount is combined
// with Base per Mode. Add and Multiply are expressible with plain Expr
// compositions already, but Replace (ignore Base entirely) and Bipolar
// (recenter a 0..1 source to -1..1 before scaling) are not, so they get a
// dedicated node rather than forcing the caller to hand-compose them.
// Ported from ModulationRouter::process's match on dest.mode.
type ModRoute struct {
	Mode   ModMode
	Base   Signal
	Source Signal
	Amount Signal
}

func NewModRoute(mode ModMode, base, source, amount Signal) *ModRoute {
	return &ModRoute{Mode: mode, Base: base, Source: source, Amount: amount}
}

func (m *ModRoute) eval(g *Graph) float64 {
	base := g.Eval(m.Base)
	source := g.Eval(m.Source)
	amount := g.Eval(m.Amount)

	switch m.Mode {
	case ModMultiply:
		return base * (1 + source*amount)
	case ModReplace:
		return source * amount
	case ModBipolar:
		bipolar := source*2 - 1
		return base + bipolar*amount
	default: // ModAdd
		return base + source*amount
	}
}
