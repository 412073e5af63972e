package pattern

import (
	"fmt"

	"github.com/cklabs/phonon/rational"
)

// Fast speeds a pattern up by factor k: the query span is scaled by k
// before querying the child, and the child's Hap times are scaled back down
// by k on return. k<=0 clamps to a minimum positive factor (spec §4.1.4).
func Fast[T any](k rational.Frac, p Pattern[T]) Pattern[T] {
	if k.Num == 0 {
		k = rational.New(1, 1000)
	}
	if k.Num < 0 {
		k = k.Neg()
	}
	return Pattern[T]{Query: func(s State) []Hap[T] {
		scaled := s.Span.WithTime(func(f rational.Frac) rational.Frac { return f.Mul(k) })
		haps := p.Query(s.WithSpan(scaled))
		out := make([]Hap[T], len(haps))
		for i, h := range haps {
			out[i] = h.withTime(func(f rational.Frac) rational.Frac { return f.Div(k) })
		}
		return out
	}}
}

// Slow is the dual of Fast with factor 1/k.
func Slow[T any](k rational.Frac, p Pattern[T]) Pattern[T] {
	return Fast(rational.One.Div(k), p)
}

// FastF/SlowF are float64 convenience wrappers over Fast/Slow, used by the
// mini-notation and DSL front ends where literal factors arrive as floats.
func FastF[T any](k float64, p Pattern[T]) Pattern[T] { return Fast(rational.FromFloat(k), p) }
func SlowF[T any](k float64, p Pattern[T]) Pattern[T] { return Slow(rational.FromFloat(k), p) }

// Rev reverses each cycle: every queried cycle is reflected about its
// midpoint, so the child pattern is queried over the mirror-image span and
// its Hap times mirrored back. Involutive: Rev(Rev(p)) == p.
func Rev[T any](p Pattern[T]) Pattern[T] {
	return Pattern[T]{Query: func(s State) []Hap[T] {
		var out []Hap[T]
		for _, sub := range rational.SpanCycles(s.Span) {
			cyc := sub.Begin.Floor()
			reflect := func(f rational.Frac) rational.Frac {
				return cyc.Mul(rational.New(2, 1)).Add(rational.One).Sub(f)
			}
			reflected := rational.NewSpan(reflect(sub.End), reflect(sub.Begin))
			haps := p.Query(s.WithSpan(reflected))
			for _, h := range haps {
				out = append(out, h.withTime(reflect))
			}
		}
		return out
	}}
}

// Early shifts Hap times earlier by amt cycles (events that would occur at
// t+amt now occur at t). Late is its dual.
func Early[T any](amt rational.Frac, p Pattern[T]) Pattern[T] {
	return Pattern[T]{Query: func(s State) []Hap[T] {
		shifted := s.Span.WithTime(func(f rational.Frac) rational.Frac { return f.Add(amt) })
		haps := p.Query(s.WithSpan(shifted))
		out := make([]Hap[T], len(haps))
		for i, h := range haps {
			out[i] = h.withTime(func(f rational.Frac) rational.Frac { return f.Sub(amt) })
		}
		return out
	}}
}

func Late[T any](amt rational.Frac, p Pattern[T]) Pattern[T] { return Early(amt.Neg(), p) }

// Every applies transform f to p only on cycles where cycle_index mod n ==
// 0; other cycles pass p through unchanged.
func Every[T any](n int, f func(Pattern[T]) Pattern[T], p Pattern[T]) Pattern[T] {
	if n <= 0 {
		n = 1
	}
	transformed := f(p)
	return Pattern[T]{Query: func(s State) []Hap[T] {
		var out []Hap[T]
		for _, sub := range rational.SpanCycles(s.Span) {
			cyc := sub.Begin.FloorInt()
			src := p
			if mod(cyc, int64(n)) == 0 {
				src = transformed
			}
			out = append(out, src.Query(s.WithSpan(sub))...)
		}
		return out
	}}
}

func mod(a, n int64) int64 {
	m := a % n
	if m < 0 {
		m += n
	}
	return m
}

// Zoom stretches the sub-interval [b,e) of every cycle to fill the full
// cycle.
func Zoom[T any](b, e rational.Frac, p Pattern[T]) Pattern[T] {
	d := e.Sub(b)
	if d.Num == 0 {
		d = rational.New(1, 1000)
	}
	return Pattern[T]{Query: func(s State) []Hap[T] {
		var out []Hap[T]
		for _, sub := range rational.SpanCycles(s.Span) {
			cyc := sub.Begin.Floor()
			toChild := func(f rational.Frac) rational.Frac {
				return cyc.Add(f.Sub(cyc).Mul(d)).Add(b)
			}
			toParent := func(f rational.Frac) rational.Frac {
				return cyc.Add(f.Sub(cyc).Sub(b).Div(d))
			}
			childSpan := sub.WithTime(toChild)
			haps := p.Query(s.WithSpan(childSpan))
			for _, h := range haps {
				out = append(out, h.withTime(toParent))
			}
		}
		return out
	}}
}

// Compress is the inverse of Zoom: the full cycle of p is mapped into
// [b,e) of every cycle, silence elsewhere.
func Compress[T any](b, e rational.Frac, p Pattern[T]) Pattern[T] {
	d := e.Sub(b)
	if d.Num == 0 {
		d = rational.New(1, 1000)
	}
	return Pattern[T]{Query: func(s State) []Hap[T] {
		var out []Hap[T]
		for _, sub := range rational.SpanCycles(s.Span) {
			cyc := sub.Begin.Floor()
			window := rational.NewSpan(cyc.Add(b), cyc.Add(e))
			isect, ok := sub.Intersect(window)
			if !ok {
				continue
			}
			toChild := func(f rational.Frac) rational.Frac {
				return cyc.Add(f.Sub(cyc).Sub(b).Div(d))
			}
			toParent := func(f rational.Frac) rational.Frac {
				return cyc.Add(f.Sub(cyc).Mul(d)).Add(b)
			}
			childSpan := isect.WithTime(toChild)
			haps := p.Query(s.WithSpan(childSpan))
			for _, h := range haps {
				out = append(out, h.withTime(toParent))
			}
		}
		return out
	}}
}

// withContextValue attaches key=val to every Hap's context, cloning so
// sibling queries aren't mutated.
func withContextValue[T any](p Pattern[T], key, val string) Pattern[T] {
	return Pattern[T]{Query: func(s State) []Hap[T] {
		in := p.Query(s)
		out := make([]Hap[T], len(in))
		for i, h := range in {
			ctx := cloneContext(h.Context)
			ctx[key] = val
			out[i] = Hap[T]{Whole: h.Whole, Part: h.Part, Value: h.Value, Context: ctx}
		}
		return out
	}}
}

// Jux stereo-splits a pattern: the original is panned hard left (-1), an
// f-transformed copy panned hard right (+1), stacked. Per spec §4.1.2 /
// §9, pan is carried in the Hap context's "pan" key, not a tuple value.
func Jux[T any](f func(Pattern[T]) Pattern[T], p Pattern[T]) Pattern[T] {
	left := withContextValue(p, "pan", "-1")
	right := withContextValue(f(p), "pan", "1")
	return Stack([]Pattern[T]{left, right})
}

func existingSlice(ctx map[string]string) (float64, float64) {
	b, e := 0.0, 1.0
	if v, ok := ctx["begin"]; ok {
		fmt.Sscanf(v, "%g", &b)
	}
	if v, ok := ctx["end"]; ok {
		fmt.Sscanf(v, "%g", &e)
	}
	return b, e
}

func combineSlice(ctx map[string]string, lo, hi float64) map[string]string {
	b0, e0 := existingSlice(ctx)
	span := e0 - b0
	out := cloneContext(ctx)
	out["begin"] = fmt.Sprintf("%g", b0+span*lo)
	out["end"] = fmt.Sprintf("%g", b0+span*hi)
	return out
}

// Stutter subdivides each Hap into n equal-duration repeats of the same
// value, preserving total span — a plain retrigger with no slice context.
func Stutter[T any](n int, p Pattern[T]) Pattern[T] {
	if n < 1 {
		n = 1
	}
	return Pattern[T]{Query: func(s State) []Hap[T] {
		in := p.Query(s)
		var out []Hap[T]
		for _, h := range in {
			if h.Whole == nil {
				out = append(out, h)
				continue
			}
			dur := h.Whole.Duration().Div(rational.New(int64(n), 1))
			for i := 0; i < n; i++ {
				segWhole := rational.NewSpan(
					h.Whole.Begin.Add(dur.Mul(rational.New(int64(i), 1))),
					h.Whole.Begin.Add(dur.Mul(rational.New(int64(i+1), 1))),
				)
				segPart, ok := segWhole.Intersect(h.Part)
				if !ok {
					continue
				}
				w := segWhole
				out = append(out, Hap[T]{Whole: &w, Part: segPart, Value: h.Value, Context: h.Context})
			}
		}
		return out
	}}
}

// Chop subdivides each individual Hap into n consecutive sub-events,
// attaching begin/end slice fractions (for a sampler to play a fragment of
// its buffer) to each. Nested chops compose by narrowing the existing
// begin/end window rather than overwriting it.
func Chop[T any](n int, p Pattern[T]) Pattern[T] {
	if n < 1 {
		n = 1
	}
	return Pattern[T]{Query: func(s State) []Hap[T] {
		in := p.Query(s)
		var out []Hap[T]
		for _, h := range in {
			if h.Whole == nil {
				out = append(out, h)
				continue
			}
			dur := h.Whole.Duration().Div(rational.New(int64(n), 1))
			for i := 0; i < n; i++ {
				segWhole := rational.NewSpan(
					h.Whole.Begin.Add(dur.Mul(rational.New(int64(i), 1))),
					h.Whole.Begin.Add(dur.Mul(rational.New(int64(i+1), 1))),
				)
				segPart, ok := segWhole.Intersect(h.Part)
				if !ok {
					continue
				}
				ctx := combineSlice(h.Context, float64(i)/float64(n), float64(i+1)/float64(n))
				w := segWhole
				out = append(out, Hap[T]{Whole: &w, Part: segPart, Value: h.Value, Context: ctx})
			}
		}
		return out
	}}
}

// Striate subdivides the whole pattern into n interleaved passes: pass i
// plays every Hap with begin/end fraction [i/n, (i+1)/n), and the n passes
// are laid out sequentially within the cycle via Cat. Where Chop slices
// within one event, Striate slices across the whole buffer once per pass.
func Striate[T any](n int, p Pattern[T]) Pattern[T] {
	if n < 1 {
		n = 1
	}
	passes := make([]Pattern[T], n)
	for i := 0; i < n; i++ {
		lo, hi := float64(i)/float64(n), float64(i+1)/float64(n)
		passes[i] = withSliceContext(p, lo, hi)
	}
	return Cat(passes)
}

func withSliceContext[T any](p Pattern[T], lo, hi float64) Pattern[T] {
	return Pattern[T]{Query: func(s State) []Hap[T] {
		in := p.Query(s)
		out := make([]Hap[T], len(in))
		for i, h := range in {
			out[i] = Hap[T]{Whole: h.Whole, Part: h.Part, Value: h.Value, Context: combineSlice(h.Context, lo, hi)}
		}
		return out
	}}
}

// StructPattern takes event structure (onset times) from a boolean trigger
// pattern and values sequentially from values; the value index for the
// k-th trigger of cycle c is c*triggersPerCycle + k (spec §4.1.2).
func StructPattern[T any](trigger Pattern[bool], values []T) Pattern[T] {
	if len(values) == 0 {
		return Silence[T]()
	}
	return Pattern[T]{Query: func(s State) []Hap[T] {
		var out []Hap[T]
		for _, sub := range rational.SpanCycles(s.Span) {
			cyc := sub.Begin.FloorInt()
			cycleSpan := rational.NewSpan(rational.FromInt(cyc), rational.FromInt(cyc+1))
			trigHaps := trigger.Query(s.WithSpan(cycleSpan))
			sortByOnset(trigHaps)

			onsets := make([]Hap[bool], 0, len(trigHaps))
			for _, h := range trigHaps {
				if h.HasOnset() && h.Value {
					onsets = append(onsets, h)
				}
			}
			for pos, h := range onsets {
				idx := (int(cyc)*len(onsets) + pos) % len(values)
				if idx < 0 {
					idx += len(values)
				}
				part, ok := h.Part.Intersect(sub)
				if !ok {
					continue
				}
				out = append(out, Hap[T]{Whole: h.Whole, Part: part, Value: values[idx], Context: h.Context})
			}
		}
		return out
	}}
}

// Rot rotates Hap values within a cycle by shift positions while preserving
// event times; shift is sampled once per cycle start (spec §4.1.2).
func Rot[T any](shiftPat Pattern[float64], p Pattern[T]) Pattern[T] {
	return Pattern[T]{Query: func(s State) []Hap[T] {
		var out []Hap[T]
		for _, sub := range rational.SpanCycles(s.Span) {
			cyc := sub.Begin.FloorInt()
			shift := int(sampleAtCycleStart(shiftPat, cyc, s.Controls))

			cycleSpan := rational.NewSpan(rational.FromInt(cyc), rational.FromInt(cyc+1))
			full := p.Query(s.WithSpan(cycleSpan))
			sortByOnset(full)

			n := len(full)
			if n == 0 {
				continue
			}
			values := make([]T, n)
			for i, h := range full {
				values[i] = h.Value
			}
			for i, h := range full {
				srcIdx := mod(int64(i+shift), int64(n))
				part, ok := h.Part.Intersect(sub)
				if !ok {
					continue
				}
				out = append(out, Hap[T]{Whole: h.Whole, Part: part, Value: values[srcIdx], Context: h.Context})
			}
		}
		return out
	}}
}
