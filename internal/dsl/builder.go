package dsl

import (
	"fmt"
	"math"
	"strconv"

	"github.com/cklabs/phonon/internal/graph"
	"github.com/cklabs/phonon/internal/midiout"
	"github.com/cklabs/phonon/internal/samplelib"
	"github.com/cklabs/phonon/internal/voice"
	"github.com/cklabs/phonon/mini"
	"github.com/cklabs/phonon/pattern"
	"github.com/cklabs/phonon/rational"
)

// valueKind discriminates the two things a DSL expression can evaluate to:
// a continuous signal, or a discrete string pattern (a mini-notation
// sample/note sequence, still awaiting triggering into the graph).
type valueKind int

const (
	valSignal valueKind = iota
	valPattern
)

// value is the builder's intermediate result type, mirroring graph.Signal's
// tagged-union shape rather than an interface — the two cases are fixed and
// small enough that a struct with an unused-field-per-case reads easier
// than a type switch over an interface.
type value struct {
	kind valueKind
	sig  graph.Signal
	pat  pattern.Pattern[string]
}

// Compiled is the result of compiling one DSL program: a graph ready to
// render, plus the stereo pair the "out" statement resolved to (mono
// signals are duplicated across both channels).
type Compiled struct {
	Graph *graph.Graph
	Left  graph.NodeID
	Right graph.NodeID
}

// builder walks a parsed program's statements, constructing a graph.Graph
// and a table of named buses as it goes. Bus names resolve to graph bus
// values (graph.BusRef), not Go variables — a bus may be written at
// runtime via internal/control, so every reference to it must go through
// the graph's bus mechanism rather than being inlined as a constant.
type builder struct {
	g          *graph.Graph
	lib        *samplelib.Library
	pool       *voice.Pool
	sampleRate int

	buses map[string]graph.NodeID
}

// Compile lexes, parses and builds src into a runnable graph (spec §6.1).
// lib may be nil if the program never triggers samples via s(...). The
// voice pool that sample triggers feed is internal to the compiled graph
// and is not returned.
func Compile(src string, lib *samplelib.Library, sampleRate int) (*Compiled, error) {
	stmts, err := parseProgram(src)
	if err != nil {
		return nil, err
	}

	b := &builder{
		g:          graph.New(sampleRate, 1),
		lib:        lib,
		pool:       voice.NewPool(0, sampleRate),
		sampleRate: sampleRate,
		buses:      make(map[string]graph.NodeID),
	}

	var outExpr *expr

	for _, s := range stmts {
		switch s.kind {
		case stmtTempo:
			v, err := b.eval(s.expr)
			if err != nil {
				return nil, err
			}
			if v.kind != valSignal || v.sig.Kind != graph.SigValue {
				return nil, fmt.Errorf("dsl: tempo/cps must be a numeric literal in this version")
			}
			b.g.SetCPS(v.sig.Value)
		case stmtBusBind:
			v, err := b.eval(s.expr)
			if err != nil {
				return nil, err
			}
			id, err := b.materialize(v)
			if err != nil {
				return nil, fmt.Errorf("dsl: bus %q: %w", s.name, err)
			}
			b.g.BindBus(s.name, id)
			b.buses[s.name] = id
		case stmtOut:
			outExpr = s.expr
		}
	}

	if outExpr == nil {
		return nil, fmt.Errorf("dsl: program has no 'out' statement")
	}

	v, err := b.eval(outExpr)
	if err != nil {
		return nil, err
	}

	var left, right graph.NodeID
	if v.kind == valPattern {
		sn := graph.NewSampleNode(v.pat, b.lib, b.pool)
		id := b.g.AddNode(sn)
		b.g.AddSampleTrigger(id)
		left, right = graph.NewVoicePoolOutputs(b.g, b.pool)
		b.g.SetStereoOutputs(left, right)
	} else {
		id, err := b.materialize(v)
		if err != nil {
			return nil, fmt.Errorf("dsl: out: %w", err)
		}
		left, right = id, id
		b.g.Output = left
	}

	return &Compiled{Graph: b.g, Left: left, Right: right}, nil
}

// materialize wraps a value's signal into a graph node (via graph.Output,
// whose eval simply forwards g.Eval(Input)) so it has a NodeID other parts
// of the graph (bus targets, the final output) can reference. A pattern
// value cannot be materialized directly — callers that might see one
// (bus bindings) get a clear error instead of silently discarding it.
func (b *builder) materialize(v value) (graph.NodeID, error) {
	if v.kind == valPattern {
		return 0, fmt.Errorf("a sample/note pattern cannot be used as a plain signal; wrap it in s(...) only at 'out'")
	}
	out := graph.NewOutput(v.sig)
	return b.g.AddNode(out), nil
}

func sigValue(v float64) value { return value{kind: valSignal, sig: graph.Val(v)} }

func (b *builder) eval(e *expr) (value, error) {
	switch e.kind {
	case exprNumber:
		return sigValue(e.number), nil
	case exprBusRef:
		if _, ok := b.buses[e.name]; !ok {
			return value{}, fmt.Errorf("dsl: reference to undefined bus %q", e.name)
		}
		return value{kind: valSignal, sig: graph.BusRef(e.name)}, nil
	case exprString:
		pat, err := mini.Parse(e.str)
		if err != nil {
			return value{}, fmt.Errorf("dsl: mini-notation %q: %w", e.str, err)
		}
		return value{kind: valPattern, pat: pat}, nil
	case exprNeg:
		operand, err := b.eval(e.operand)
		if err != nil {
			return value{}, err
		}
		sig, err := b.asSignal(operand)
		if err != nil {
			return value{}, err
		}
		return value{kind: valSignal, sig: graph.Expr(graph.OpSub, graph.Val(0), sig)}, nil
	case exprBinOp:
		return b.evalBinOp(e)
	case exprCall:
		return b.evalCall(e)
	case exprChain:
		return b.evalChain(e)
	case exprPipeline:
		return b.evalPipeline(e)
	}
	return value{}, fmt.Errorf("dsl: unhandled expression kind %d", e.kind)
}

func (b *builder) evalBinOp(e *expr) (value, error) {
	lv, err := b.eval(e.left)
	if err != nil {
		return value{}, err
	}
	rv, err := b.eval(e.right)
	if err != nil {
		return value{}, err
	}
	l, err := b.asSignal(lv)
	if err != nil {
		return value{}, err
	}
	r, err := b.asSignal(rv)
	if err != nil {
		return value{}, err
	}
	var op graph.ExprOp
	switch e.op {
	case opAdd:
		op = graph.OpAdd
	case opSub:
		op = graph.OpSub
	case opMul:
		op = graph.OpMul
	case opDiv:
		op = graph.OpDiv
	}
	return value{kind: valSignal, sig: graph.Expr(op, l, r)}, nil
}

// asSignal auto-converts a note-name/numeric string pattern into a
// continuous frequency signal by sampling it through a graph.PatternNode
// (spec §6.1 "a pattern used where a signal is expected is converted via
// note-name-or-number-to-frequency, sampled once per cycle step" — a
// DSL-level convention, not in the core spec, recorded in DESIGN.md).
func (b *builder) asSignal(v value) (graph.Signal, error) {
	if v.kind == valSignal {
		return v.sig, nil
	}
	freqPat := pattern.Fmap(v.pat, func(s string) float64 {
		if midi, err := midiout.NoteToMIDI(s); err == nil {
			return midiToFreq(midi)
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
		return 0
	})
	id := b.g.AddNode(graph.NewPatternNode(freqPat))
	return graph.Ref(id), nil
}

func midiToFreq(note uint8) float64 {
	return 440 * math.Pow(2, (float64(note)-69)/12)
}

func (b *builder) evalCall(e *expr) (value, error) {
	argVals := make([]value, len(e.args))
	for i, a := range e.args {
		v, err := b.eval(a)
		if err != nil {
			return value{}, err
		}
		argVals[i] = v
	}
	return b.callBuiltin(e.name, argVals)
}

// evalChain threads each stage's output into the next stage's implicit
// first argument (spec §6.1 "Chain operator >> feeds the signal on its
// left as the input of the call on its right"), so `saw 55 >> lpf 800 0.8`
// means lpf(saw(55), 800, 0.8) without lpf's input ever being written out.
func (b *builder) evalChain(e *expr) (value, error) {
	prev, err := b.eval(e.stages[0])
	if err != nil {
		return value{}, err
	}
	for _, stage := range e.stages[1:] {
		if stage.kind != exprCall {
			return value{}, fmt.Errorf("dsl: chain stage must be a function call, found %v", stage.kind)
		}
		argVals := make([]value, 0, len(stage.args)+1)
		argVals = append(argVals, prev)
		for _, a := range stage.args {
			v, err := b.eval(a)
			if err != nil {
				return value{}, err
			}
			argVals = append(argVals, v)
		}
		prev, err = b.callBuiltin(stage.name, argVals)
		if err != nil {
			return value{}, err
		}
	}
	return prev, nil
}

// evalPipeline applies a sequence of pattern transforms to a piped-in
// pattern (spec §6.1 "Pattern-transform pipeline |> (or $)").
func (b *builder) evalPipeline(e *expr) (value, error) {
	src, err := b.eval(e.source)
	if err != nil {
		return value{}, err
	}
	if src.kind != valPattern {
		return value{}, fmt.Errorf("dsl: a pipeline's source must be a pattern (e.g. a mini-notation string)")
	}
	p := src.pat
	for _, t := range e.transforms {
		p, err = b.applyTransform(t, p)
		if err != nil {
			return value{}, err
		}
	}
	return value{kind: valPattern, pat: p}, nil
}

// callBuiltin dispatches a signal-graph builtin by name over already
// evaluated argument values (spec §4.5.3's node catalog, surfaced here as
// DSL function names). Unsupplied arguments fall back to a sensible
// default rather than erroring, matching spec §7 kind 3's clamp-to-safe
// policy for out-of-range/missing parameters.
func (b *builder) callBuiltin(name string, argVals []value) (value, error) {
	sigAt := func(i int, def float64) (graph.Signal, error) {
		if i >= len(argVals) {
			return graph.Val(def), nil
		}
		return b.asSignal(argVals[i])
	}

	switch name {
	case "sine", "saw", "square", "triangle":
		freq, err := sigAt(0, 440)
		if err != nil {
			return value{}, err
		}
		var wf pattern.Waveform
		switch name {
		case "sine":
			wf = pattern.WaveSine
		case "saw":
			wf = pattern.WaveSaw
		case "square":
			wf = pattern.WaveSquare
		case "triangle":
			wf = pattern.WaveTriangle
		}
		id := b.g.AddNode(graph.NewOscillator(wf, freq))
		return value{kind: valSignal, sig: graph.Ref(id)}, nil

	case "noise":
		seed := uint32(1)
		if len(argVals) > 0 && argVals[0].kind == valSignal && argVals[0].sig.Kind == graph.SigValue {
			seed = uint32(argVals[0].sig.Value)
		}
		id := b.g.AddNode(graph.NewNoise(seed))
		return value{kind: valSignal, sig: graph.Ref(id)}, nil

	case "const":
		s, err := sigAt(0, 0)
		return value{kind: valSignal, sig: s}, err

	case "lpf", "hpf", "bpf":
		input, err := sigAt(0, 0)
		if err != nil {
			return value{}, err
		}
		cutoff, err := sigAt(1, 1000)
		if err != nil {
			return value{}, err
		}
		q, err := sigAt(2, 0.707)
		if err != nil {
			return value{}, err
		}
		var kind graph.FilterKind
		switch name {
		case "lpf":
			kind = graph.LowPass
		case "hpf":
			kind = graph.HighPass
		case "bpf":
			kind = graph.BandPass
		}
		id := b.g.AddNode(graph.NewFilter(kind, input, cutoff, q))
		return value{kind: valSignal, sig: graph.Ref(id)}, nil

	case "djf":
		input, err := sigAt(0, 0)
		if err != nil {
			return value{}, err
		}
		position, err := sigAt(1, 0)
		if err != nil {
			return value{}, err
		}
		resonance, err := sigAt(2, 0)
		if err != nil {
			return value{}, err
		}
		id := b.g.AddNode(graph.NewDJFilter(input, position, resonance))
		return value{kind: valSignal, sig: graph.Ref(id)}, nil

	case "madd", "mmul", "mreplace", "mbipolar":
		base, err := sigAt(0, 0)
		if err != nil {
			return value{}, err
		}
		source, err := sigAt(1, 0)
		if err != nil {
			return value{}, err
		}
		amount, err := sigAt(2, 1)
		if err != nil {
			return value{}, err
		}
		var mode graph.ModMode
		switch name {
		case "madd":
			mode = graph.ModAdd
		case "mmul":
			mode = graph.ModMultiply
		case "mreplace":
			mode = graph.ModReplace
		case "mbipolar":
			mode = graph.ModBipolar
		}
		id := b.g.AddNode(graph.NewModRoute(mode, base, source, amount))
		return value{kind: valSignal, sig: graph.Ref(id)}, nil

	case "delay":
		input, err := sigAt(0, 0)
		if err != nil {
			return value{}, err
		}
		timeSec, err := sigAt(1, 0.3)
		if err != nil {
			return value{}, err
		}
		feedback, err := sigAt(2, 0.4)
		if err != nil {
			return value{}, err
		}
		wet, err := sigAt(3, 0.3)
		if err != nil {
			return value{}, err
		}
		id := b.g.AddNode(graph.NewDelay(input, timeSec, feedback, wet, 2.0, b.sampleRate))
		return value{kind: valSignal, sig: graph.Ref(id)}, nil

	case "distortion":
		input, err := sigAt(0, 0)
		if err != nil {
			return value{}, err
		}
		drive, err := sigAt(1, 2)
		if err != nil {
			return value{}, err
		}
		id := b.g.AddNode(graph.NewDistortion(input, drive))
		return value{kind: valSignal, sig: graph.Ref(id)}, nil

	case "crush":
		input, err := sigAt(0, 0)
		if err != nil {
			return value{}, err
		}
		bits, err := sigAt(1, 8)
		if err != nil {
			return value{}, err
		}
		id := b.g.AddNode(graph.NewBitcrusher(input, graph.Val(1), bits))
		return value{kind: valSignal, sig: graph.Ref(id)}, nil

	case "coarse":
		input, err := sigAt(0, 0)
		if err != nil {
			return value{}, err
		}
		n, err := sigAt(1, 1)
		if err != nil {
			return value{}, err
		}
		id := b.g.AddNode(graph.NewBitcrusher(input, n, graph.Val(0)))
		return value{kind: valSignal, sig: graph.Ref(id)}, nil

	case "chorus":
		input, err := sigAt(0, 0)
		if err != nil {
			return value{}, err
		}
		rate, err := sigAt(1, 0.5)
		if err != nil {
			return value{}, err
		}
		depth, err := sigAt(2, 0.002)
		if err != nil {
			return value{}, err
		}
		mix, err := sigAt(3, 0.5)
		if err != nil {
			return value{}, err
		}
		id := b.g.AddNode(graph.NewChorus(input, rate, depth, mix, 0.02, b.sampleRate))
		return value{kind: valSignal, sig: graph.Ref(id)}, nil

	case "s":
		if len(argVals) != 1 || argVals[0].kind != valPattern {
			return value{}, fmt.Errorf("dsl: s(...) requires a single pattern argument, e.g. s(\"bd sn\")")
		}
		return argVals[0], nil
	}

	return value{}, fmt.Errorf("dsl: unknown function %q", name)
}

// applyTransform applies one pattern-transform pipeline stage to p (spec
// §6.1's pipeline grammar: IDENT followed by Number or nested transform
// arguments, the latter letting higher-order combinators like `every 3
// rev` pass a transform as a value). Errors from missing/malformed
// arguments are captured via firstErr rather than threaded through every
// call, since the pattern package's higher-order combinators (Every,
// Sometimes, ...) take a plain func(Pattern[T]) Pattern[T] with no error
// return.
func (b *builder) applyTransform(term *expr, p pattern.Pattern[string]) (pattern.Pattern[string], error) {
	var firstErr error

	numArg := func(i int, def float64) float64 {
		if i >= len(term.args) {
			return def
		}
		a := term.args[i]
		if a.kind != exprNumber {
			if firstErr == nil {
				firstErr = fmt.Errorf("dsl: %s: expected a numeric argument", term.name)
			}
			return def
		}
		return a.number
	}
	intArg := func(i int, def int) int { return int(numArg(i, float64(def))) }
	fnArg := func(i int) func(pattern.Pattern[string]) pattern.Pattern[string] {
		if i >= len(term.args) {
			if firstErr == nil {
				firstErr = fmt.Errorf("dsl: %s: missing transform argument", term.name)
			}
			return func(x pattern.Pattern[string]) pattern.Pattern[string] { return x }
		}
		sub := term.args[i]
		return func(inner pattern.Pattern[string]) pattern.Pattern[string] {
			out, err := b.applyTransform(sub, inner)
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return inner
			}
			return out
		}
	}

	var result pattern.Pattern[string]
	switch term.name {
	case "fast":
		result = pattern.FastF(numArg(0, 1), p)
	case "slow":
		result = pattern.SlowF(numArg(0, 1), p)
	case "rev":
		result = pattern.Rev(p)
	case "early":
		result = pattern.Early(rational.FromFloat(numArg(0, 0)), p)
	case "late":
		result = pattern.Late(rational.FromFloat(numArg(0, 0)), p)
	case "every":
		n := intArg(0, 2)
		f := fnArg(1)
		result = pattern.Every(n, f, p)
	case "degradeBy":
		result = pattern.DegradeBy(numArg(0, 0.5), p)
	case "sometimes":
		result = pattern.Sometimes(fnArg(0), p)
	case "rarely":
		result = pattern.Rarely(fnArg(0), p)
	case "often":
		result = pattern.Often(fnArg(0), p)
	case "sometimesBy":
		result = pattern.SometimesBy(numArg(0, 0.5), fnArg(1), p)
	case "chop":
		result = pattern.Chop(intArg(0, 2), p)
	case "striate":
		result = pattern.Striate(intArg(0, 2), p)
	case "stutter":
		result = pattern.Stutter(intArg(0, 2), p)
	case "jux":
		result = pattern.Jux(fnArg(0), p)
	case "rot":
		result = pattern.Rot(pattern.Steady(numArg(0, 1)), p)
	case "compress":
		result = pattern.Compress(rational.FromFloat(numArg(0, 0)), rational.FromFloat(numArg(1, 1)), p)
	case "zoom":
		result = pattern.Zoom(rational.FromFloat(numArg(0, 0)), rational.FromFloat(numArg(1, 1)), p)
	default:
		if firstErr == nil {
			firstErr = fmt.Errorf("dsl: unknown pattern transform %q", term.name)
		}
		result = p
	}

	if firstErr != nil {
		return nil, firstErr
	}
	return result, nil
}
