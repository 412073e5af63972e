// Package graph implements the unified signal graph (spec §4.5 C6): a small
// set of node kinds wired together by Signal references, evaluated once per
// sample with per-sample memoization so a node referenced from multiple
// places in the graph computes only once (§4.5.1).
package graph

import (
	"math"

	"github.com/cklabs/phonon/pattern"
	"github.com/cklabs/phonon/rational"
)

// NodeID identifies a node within a Graph. IDs are stable for the lifetime
// of the graph they were built into (a live-reload always builds a fresh
// graph rather than mutating IDs in place, spec §4.8).
type NodeID int

// SignalKind discriminates the tagged union described by spec §4.5.1's
// eval dispatch table.
type SignalKind int

const (
	SigValue SignalKind = iota
	SigNode
	SigBus
	SigExpr
)

// ExprOp is the arithmetic operator of a SigExpr signal.
type ExprOp int

const (
	OpAdd ExprOp = iota
	OpSub
	OpMul
	OpDiv
)

// Signal is the tagged union eval(Signal) dispatches on (spec §4.5.1):
// a bare scalar, a reference to a graph node, a named control bus, or an
// arithmetic expression over operand signals. "Pattern(id)" from the spec's
// dispatch table is realized here as a Node reference to a *PatternNode —
// there is no separate SignalKind for it, since a pattern node's last_value
// is exposed through the same per-sample eval/memoization path as any other
// node.
type Signal struct {
	Kind     SignalKind
	Value    float64
	Node     NodeID
	Bus      string
	Op       ExprOp
	Operands []Signal
}

// Val builds a constant Signal.
func Val(v float64) Signal { return Signal{Kind: SigValue, Value: v} }

// Ref builds a Signal referencing another node's output.
func Ref(id NodeID) Signal { return Signal{Kind: SigNode, Node: id} }

// BusRef builds a Signal referencing a named control bus.
func BusRef(name string) Signal { return Signal{Kind: SigBus, Bus: name} }

// Expr builds an arithmetic Signal over operands.
func Expr(op ExprOp, operands ...Signal) Signal {
	return Signal{Kind: SigExpr, Op: op, Operands: operands}
}

// Node is anything the graph can evaluate once per sample. eval is called
// at most once per sample per node by the graph's memoizing dispatcher;
// implementations may hold internal state (oscillator phase, filter
// history, delay ring buffers) mutated on each call.
type Node interface {
	eval(g *Graph) float64
}

// Graph is the UnifiedSignalGraph: a set of nodes, a designated output, a
// sample-rate clock, and a cps (cycles-per-second) pattern sampled once per
// block (spec §4.5.6).
type Graph struct {
	nodes  map[NodeID]Node
	nextID NodeID

	SampleRate int
	cps        float64
	cpsPattern pattern.Pattern[float64]

	sampleCounter uint64
	cycle         float64 // recomputed each sample from the counter and cps (§4.5.2)

	buses     map[string]NodeID
	busValues map[string]float64

	Output NodeID

	// OutputRight holds the right channel's NodeID for a program whose "out"
	// expression resolved to a genuine stereo pair (a sample/voice pool
	// output with per-hap panning); zero when the program is mono, in which
	// case callers should duplicate Output across both channels. Set by
	// internal/dsl's builder and read back through Stereo, which cmd/phonon's
	// live playback uses instead of threading a second NodeID through every
	// caller of BuildFunc; render.Stereo takes both NodeIDs as arguments.
	OutputRight NodeID
	hasStereo   bool

	// triggers are evaluated unconditionally every sample regardless of
	// Output reachability, since sample-node triggering must happen every
	// sample even if the node isn't on the path to the final mix output
	// signal (it feeds the voice pool out-of-band instead).
	triggers []NodeID

	memo    map[NodeID]float64
	memoSet map[NodeID]bool
}

// New builds an empty graph at the given sample rate with a fixed cps (no
// tempo pattern). Use NewWithCPSPattern for a patterned tempo.
func New(sampleRate int, cps float64) *Graph {
	return &Graph{
		nodes:      make(map[NodeID]Node),
		SampleRate: sampleRate,
		cps:        cps,
		buses:      make(map[string]NodeID),
		busValues:  make(map[string]float64),
		memo:       make(map[NodeID]float64),
		memoSet:    make(map[NodeID]bool),
	}
}

// NewWithCPSPattern builds a graph whose cps is resampled at each block
// boundary from cpsPat (spec §4.5.6).
func NewWithCPSPattern(sampleRate int, cpsPat pattern.Pattern[float64]) *Graph {
	g := New(sampleRate, 1.0)
	g.cpsPattern = cpsPat
	return g
}

// SetCPS overrides the graph's fixed cps (cycles per second), clearing any
// cps pattern previously set via NewWithCPSPattern. Used by internal/dsl to
// apply a program's "tempo"/"cps" statement after construction.
func (g *Graph) SetCPS(cps float64) {
	g.cps = cps
	g.cpsPattern = nil
}

// CPS returns the graph's current cycles-per-second rate, as last resolved
// from either a fixed SetCPS value or the top of the most recent block's
// cpsPattern sample. Used by cmd/phonon to convert a --cycles flag into a
// frame count.
func (g *Graph) CPS() float64 {
	return g.cps
}

// SetStereoOutputs records a genuine left/right output pair. Until this is
// called, Stereo reports (Output, Output, false) — a mono program, whose
// caller should duplicate the one channel.
func (g *Graph) SetStereoOutputs(left, right NodeID) {
	g.Output = left
	g.OutputRight = right
	g.hasStereo = true
}

// Stereo returns the graph's left/right output NodeIDs and whether they are
// a genuine stereo pair (true) or the same mono signal duplicated (false).
func (g *Graph) Stereo() (left, right NodeID, ok bool) {
	if g.hasStereo {
		return g.Output, g.OutputRight, true
	}
	return g.Output, g.Output, false
}

// AddNode registers n and returns its stable ID.
func (g *Graph) AddNode(n Node) NodeID {
	id := g.nextID
	g.nextID++
	g.nodes[id] = n
	return id
}

// AddSampleTrigger registers a SampleNode (or any node with side-effecting
// eval) to be evaluated every sample regardless of whether it is reachable
// from Output.
func (g *Graph) AddSampleTrigger(id NodeID) {
	g.triggers = append(g.triggers, id)
}

// BindBus maps a control-bus name to the node whose output feeds it
// (forward modulation, spec §4.5.5).
func (g *Graph) BindBus(name string, node NodeID) {
	g.buses[name] = node
}

// WriteBus applies an external control write (e.g. from OSC). The value is
// stored immediately and read by the next sample evaluated; the renderer
// and cmd/phonon's audio callback call it at a block boundary after
// draining their pending writes.
func (g *Graph) WriteBus(name string, value float64) {
	g.busValues[name] = value
}

// Cycle returns the current cycle position (a double, per §4.5.2).
func (g *Graph) Cycle() float64 { return g.cycle }

// SampleCounter returns the running sample count, preserved across
// live-reloads so cycle position stays continuous (spec §4.8 step 3).
func (g *Graph) SampleCounter() uint64 { return g.sampleCounter }

// SeedFrom carries the sample counter and cps forward from a previous
// graph instance across a live-reload swap.
func (g *Graph) SeedFrom(prev *Graph) {
	if prev == nil {
		return
	}
	g.sampleCounter = prev.sampleCounter
	g.cps = prev.cps
}

// BeginBlock resamples cps from the cps pattern (if any) once at the start
// of an audio block, per the block-rate tempo modulation policy (§4.5.6):
// "within-block tempo change is forbidden to keep the sample counter
// monotonic."
func (g *Graph) BeginBlock() {
	if g.cpsPattern.Query == nil {
		return
	}
	cyc := rational.FromFloat(g.cycle).Floor()
	haps := g.cpsPattern.QuerySpan(rational.NewSpan(cyc, cyc), nil)
	if len(haps) > 0 {
		g.cps = haps[0].Value
	}
}

// ProcessSample advances the sample counter, evaluates the output node once
// (with per-sample memoization), clears the memo, and returns the mono
// sample (spec §4.5.1).
func (g *Graph) ProcessSample() float32 {
	g.advanceClock()
	g.fireTriggers()
	v := g.Eval(Ref(g.Output))
	g.clearMemo()
	return clampSample(v)
}

func (g *Graph) fireTriggers() {
	for _, id := range g.triggers {
		g.evalNode(id)
	}
}

// ProcessSampleMulti evaluates a list of output nodes once per sample,
// sharing memoization across all of them (spec §4.6 "nodes shared across
// output channels memoize").
func (g *Graph) ProcessSampleMulti(outputs []NodeID) []float32 {
	g.advanceClock()
	g.fireTriggers()
	out := make([]float32, len(outputs))
	for i, id := range outputs {
		out[i] = clampSample(g.Eval(Ref(id)))
	}
	g.clearMemo()
	return out
}

func (g *Graph) advanceClock() {
	g.cycle = float64(g.sampleCounter) * g.cps / float64(g.SampleRate)
	g.sampleCounter++
}

func (g *Graph) clearMemo() {
	for k := range g.memoSet {
		delete(g.memoSet, k)
		delete(g.memo, k)
	}
}

// clampSample clamps NaN/Inf to ±1 at the final output (spec §4.6 Failure
// semantics). NaN has no sign to clamp toward, so it maps to silence.
func clampSample(v float64) float32 {
	if math.IsNaN(v) {
		return 0
	}
	if math.IsInf(v, 1) {
		return 1
	}
	if math.IsInf(v, -1) {
		return -1
	}
	return float32(v)
}

// Eval dispatches a Signal per spec §4.5.1's table. Node signals are
// memoized per sample; all other kinds are cheap enough to recompute.
func (g *Graph) Eval(s Signal) float64 {
	switch s.Kind {
	case SigValue:
		return s.Value
	case SigNode:
		return g.evalNode(s.Node)
	case SigBus:
		if v, ok := g.busValues[s.Bus]; ok {
			return v
		}
		if nodeID, ok := g.buses[s.Bus]; ok {
			return g.evalNode(nodeID)
		}
		return 0
	case SigExpr:
		return g.evalExpr(s)
	default:
		return 0
	}
}

func (g *Graph) evalNode(id NodeID) float64 {
	if v, ok := g.memo[id]; ok {
		return v
	}
	n, ok := g.nodes[id]
	if !ok {
		return 0
	}
	v := n.eval(g)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	g.memo[id] = v
	g.memoSet[id] = true
	return v
}

func (g *Graph) evalExpr(s Signal) float64 {
	if len(s.Operands) == 0 {
		return 0
	}
	acc := g.Eval(s.Operands[0])
	for _, op := range s.Operands[1:] {
		v := g.Eval(op)
		switch s.Op {
		case OpAdd:
			acc += v
		case OpSub:
			acc -= v
		case OpMul:
			acc *= v
		case OpDiv:
			if v == 0 {
				acc = 0
			} else {
				acc /= v
			}
		}
	}
	return acc
}
