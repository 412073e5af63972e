// Package pattern implements the lazy, query-based event algebra at the
// heart of the engine: Pattern[T] is a pure function from a queried
// TimeSpan to the Haps active within it, closed under a library of
// temporal combinators (spec §3.2, §4.1).
package pattern

import (
	"sort"

	"github.com/cklabs/phonon/rational"
)

// Hap (happening) is one event produced by a Pattern query. Whole is the
// event's natural on/off extent; nil means the event has no discrete
// duration (a continuous/context-free value). Part is the portion of Whole
// that intersects the queried span — always a subset of both the query span
// and (when Whole is non-nil) of Whole itself.
type Hap[T any] struct {
	Whole   *rational.Span
	Part    rational.Span
	Value   T
	Context map[string]string
}

// HasOnset reports whether this Hap's part begins exactly where its whole
// begins — i.e. this is the sample where a voice should actually trigger,
// not merely a continuation of an event queried mid-flight.
func (h Hap[T]) HasOnset() bool {
	return h.Whole != nil && h.Whole.Begin.Eq(h.Part.Begin)
}

func (h Hap[T]) withTime(f func(rational.Frac) rational.Frac) Hap[T] {
	var whole *rational.Span
	if h.Whole != nil {
		w := h.Whole.WithTime(f)
		whole = &w
	}
	return Hap[T]{Whole: whole, Part: h.Part.WithTime(f), Value: h.Value, Context: h.Context}
}

func cloneContext(ctx map[string]string) map[string]string {
	out := make(map[string]string, len(ctx)+1)
	for k, v := range ctx {
		out[k] = v
	}
	return out
}

// State is the pair (queried span, control-bus snapshot) threaded through
// every Query call (spec §3.2).
type State struct {
	Span     rational.Span
	Controls map[string]float64
}

// WithSpan returns a copy of s with a different Span, same Controls.
func (s State) WithSpan(sp rational.Span) State {
	return State{Span: sp, Controls: s.Controls}
}

// Control looks up a named control bus value, returning 0.0 for unknown
// names (spec §4.1.4 — unknown control names return 0.0).
func (s State) Control(name string) float64 {
	if s.Controls == nil {
		return 0
	}
	return s.Controls[name]
}

// Pattern is a lazy, pure query function. The zero value queries to
// silence.
type Pattern[T any] struct {
	Query func(State) []Hap[T]
}

// QuerySpan is a convenience entry point that builds a State from a span
// and control snapshot.
func (p Pattern[T]) QuerySpan(span rational.Span, controls map[string]float64) []Hap[T] {
	if p.Query == nil {
		return nil
	}
	return p.Query(State{Span: span, Controls: controls})
}

// Silence produces no Haps.
func Silence[T any]() Pattern[T] {
	return Pattern[T]{Query: func(State) []Hap[T] { return nil }}
}

// Pure produces one Hap per enclosing integer cycle, whole = the full
// cycle, intersected with the query span.
func Pure[T any](v T) Pattern[T] {
	return Pattern[T]{Query: func(s State) []Hap[T] {
		var out []Hap[T]
		for _, sub := range rational.SpanCycles(s.Span) {
			whole := rational.CycleSpan(sub.Begin)
			out = append(out, Hap[T]{Whole: &whole, Part: sub, Value: v, Context: map[string]string{}})
		}
		return out
	}}
}

// Steady produces v continuously with no discrete extent (Whole == nil),
// used for raw constant control signals that never trigger a voice.
func Steady[T any](v T) Pattern[T] {
	return Pattern[T]{Query: func(s State) []Hap[T] {
		return []Hap[T]{{Whole: nil, Part: s.Span, Value: v, Context: map[string]string{}}}
	}}
}

// Fmap maps every Hap's value through f, preserving time and context.
func Fmap[A, B any](p Pattern[A], f func(A) B) Pattern[B] {
	return Pattern[B]{Query: func(s State) []Hap[B] {
		in := p.Query(s)
		out := make([]Hap[B], len(in))
		for i, h := range in {
			out[i] = Hap[B]{Whole: h.Whole, Part: h.Part, Value: f(h.Value), Context: h.Context}
		}
		return out
	}}
}

// Filter keeps only Haps whose value satisfies pred.
func Filter[T any](p Pattern[T], pred func(T) bool) Pattern[T] {
	return Pattern[T]{Query: func(s State) []Hap[T] {
		in := p.Query(s)
		out := make([]Hap[T], 0, len(in))
		for _, h := range in {
			if pred(h.Value) {
				out = append(out, h)
			}
		}
		return out
	}}
}

// Stack is the union of all sub-patterns' Haps — parallel polyphony.
func Stack[T any](ps []Pattern[T]) Pattern[T] {
	return Pattern[T]{Query: func(s State) []Hap[T] {
		var out []Hap[T]
		for _, p := range ps {
			out = append(out, p.Query(s)...)
		}
		return out
	}}
}

// Cat concatenates patterns within one cycle: pattern i covers the sub-span
// [i/N, (i+1)/N) of every cycle.
func Cat[T any](ps []Pattern[T]) Pattern[T] {
	n := len(ps)
	if n == 0 {
		return Silence[T]()
	}
	return Pattern[T]{Query: func(s State) []Hap[T] {
		var out []Hap[T]
		for _, sub := range rational.SpanCycles(s.Span) {
			cyc := sub.Begin.Floor()
			for i, child := range ps {
				b := cyc.Add(rational.New(int64(i), int64(n)))
				e := cyc.Add(rational.New(int64(i+1), int64(n)))
				window := rational.NewSpan(b, e)
				isect, ok := sub.Intersect(window)
				if !ok {
					continue
				}
				d := rational.New(int64(n), 1)
				toChild := func(f rational.Frac) rational.Frac {
					return f.Sub(b).Mul(d).Add(cyc)
				}
				toParent := func(f rational.Frac) rational.Frac {
					return f.Sub(cyc).Div(d).Add(b)
				}
				childSpan := isect.WithTime(toChild)
				haps := child.Query(s.WithSpan(childSpan))
				for _, h := range haps {
					out = append(out, h.withTime(toParent))
				}
			}
		}
		return out
	}}
}

// FromAtoms divides the cycle equally among the given values: the N-th
// value's whole is the N-th subinterval of its cycle.
func FromAtoms[T any](vs []T) Pattern[T] {
	ps := make([]Pattern[T], len(vs))
	for i, v := range vs {
		ps[i] = Pure(v)
	}
	return Cat(ps)
}

// SlowCat selects one whole pattern per cycle, by floor(cycle) mod N.
func SlowCat[T any](ps []Pattern[T]) Pattern[T] {
	n := len(ps)
	if n == 0 {
		return Silence[T]()
	}
	return Pattern[T]{Query: func(s State) []Hap[T] {
		var out []Hap[T]
		for _, sub := range rational.SpanCycles(s.Span) {
			cyc := sub.Begin.FloorInt()
			idx := ((cyc % int64(n)) + int64(n)) % int64(n)
			out = append(out, ps[idx].Query(s.WithSpan(sub))...)
		}
		return out
	}}
}

// sampleAtCycleStart queries pat with a zero-width span at the start of
// cycle cyc, returning the first matching value or 0 if none — the
// sample-and-hold resolution the spec fixes for parameter patterns (§4.1.2,
// §9): "fast-by-how-much" style arguments are sampled once per cycle.
func sampleAtCycleStart(pat Pattern[float64], cyc int64, controls map[string]float64) float64 {
	span := rational.NewSpan(rational.FromInt(cyc), rational.FromInt(cyc))
	haps := pat.Query(State{Span: span, Controls: controls})
	if len(haps) == 0 {
		return 0
	}
	return haps[0].Value
}

// PerCycleNumeric samples a float64 parameter pattern once at the start of
// each cycle the query touches and builds/queries a sub-pattern for that
// cycle with build(k). This is the shared mechanism behind every combinator
// whose numeric argument may itself be a Pattern<f64> (spec §4.1.2, §9).
func PerCycleNumeric[T any](param Pattern[float64], build func(k float64) Pattern[T]) Pattern[T] {
	return Pattern[T]{Query: func(s State) []Hap[T] {
		var out []Hap[T]
		for _, sub := range rational.SpanCycles(s.Span) {
			cyc := sub.Begin.FloorInt()
			k := sampleAtCycleStart(param, cyc, s.Controls)
			out = append(out, build(k).Query(s.WithSpan(sub))...)
		}
		return out
	}}
}

// sortByOnset stable-sorts Haps by their part's begin time, used by
// combinators (rot, struct) that need a deterministic ordering within a
// cycle.
func sortByOnset[T any](haps []Hap[T]) {
	sort.SliceStable(haps, func(i, j int) bool {
		return haps[i].Part.Begin.Lt(haps[j].Part.Begin)
	})
}
