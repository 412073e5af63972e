// Package rational implements exact signed rational arithmetic for cycle
// positions. Mini-notation subdivides cycles into odd factors (7, 11, 13);
// accumulating float error across a minutes-long live session produces
// audible drift, so cycle position is tracked as an exact fraction instead
// of a float64 until the moment it needs to drive a sample counter.
package rational

import "fmt"

// Frac is a normalized signed rational Num/Den with Den > 0 and gcd(Num,Den)
// == 1 (|Num|==0 is normalized to Den==1).
type Frac struct {
	Num, Den int64
}

// Zero, One and unit fractions used throughout the pattern algebra.
var (
	Zero = Frac{0, 1}
	One  = Frac{1, 1}
)

// New builds a normalized Frac from num/den. It panics on den == 0, which
// never happens from within this package's own arithmetic.
func New(num, den int64) Frac {
	if den == 0 {
		panic("rational: zero denominator")
	}
	if den < 0 {
		num, den = -num, -den
	}
	if num == 0 {
		return Frac{0, 1}
	}
	if g := gcd(abs(num), den); g > 1 {
		num, den = num/g, den/g
	}
	return Frac{num, den}
}

// FromInt wraps a whole number of cycles.
func FromInt(n int64) Frac { return Frac{n, 1} }

// FromFloat converts a float64 to a rational whose denominator is a power of
// ten no larger than 10^6: the shortest such decimal equal to f, otherwise f
// rounded to six decimal places. This is a lossy operation, used only at the boundary with
// external float-based APIs (e.g. a cps value arriving from a control bus).
func FromFloat(f float64) Frac {
	const maxDen = 1 << 20
	if f == 0 {
		return Zero
	}
	neg := f < 0
	if neg {
		f = -f
	}
	num, den := int64(0), int64(1)
	frac := f
	for den < maxDen {
		num = int64(frac*float64(den) + 0.5)
		if float64(num)/float64(den) == f || den*10 >= maxDen {
			break
		}
		den *= 10
	}
	if neg {
		num = -num
	}
	return New(num, den)
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return 1
	}
	return a
}

// Add returns a+b.
func (a Frac) Add(b Frac) Frac { return New(a.Num*b.Den+b.Num*a.Den, a.Den*b.Den) }

// Sub returns a-b.
func (a Frac) Sub(b Frac) Frac { return New(a.Num*b.Den-b.Num*a.Den, a.Den*b.Den) }

// Mul returns a*b.
func (a Frac) Mul(b Frac) Frac { return New(a.Num*b.Num, a.Den*b.Den) }

// Div returns a/b. Division by a zero Frac clamps to a minimum positive
// divisor per the pattern core's failure semantics (spec §4.1.4).
func (a Frac) Div(b Frac) Frac {
	if b.Num == 0 {
		b = New(1, 1000)
	}
	return New(a.Num*b.Den, a.Den*b.Num)
}

// Neg returns -a.
func (a Frac) Neg() Frac { return Frac{-a.Num, a.Den} }

// Cmp returns -1, 0 or 1 as a is less than, equal to, or greater than b.
func (a Frac) Cmp(b Frac) int {
	lhs := a.Num * b.Den
	rhs := b.Num * a.Den
	switch {
	case lhs < rhs:
		return -1
	case lhs > rhs:
		return 1
	default:
		return 0
	}
}

func (a Frac) Lt(b Frac) bool  { return a.Cmp(b) < 0 }
func (a Frac) Lte(b Frac) bool { return a.Cmp(b) <= 0 }
func (a Frac) Gt(b Frac) bool  { return a.Cmp(b) > 0 }
func (a Frac) Gte(b Frac) bool { return a.Cmp(b) >= 0 }
func (a Frac) Eq(b Frac) bool  { return a.Cmp(b) == 0 }

// Floor returns the greatest integer <= a, as a Frac with Den==1.
func (a Frac) Floor() Frac {
	q := a.Num / a.Den
	if a.Num%a.Den != 0 && a.Num < 0 {
		q--
	}
	return Frac{q, 1}
}

// Ceil returns the least integer >= a.
func (a Frac) Ceil() Frac {
	f := a.Floor()
	if f.Eq(a) {
		return f
	}
	return f.Add(One)
}

// FloorInt is a convenience accessor returning Floor() as an int64.
func (a Frac) FloorInt() int64 { return a.Floor().Num }

// Mod returns a cycle-relative fractional part: a - a.Floor(), always in
// [0, 1).
func (a Frac) Mod1() Frac { return a.Sub(a.Floor()) }

// Float64 converts to a double, used only for DSP and display.
func (a Frac) Float64() float64 { return float64(a.Num) / float64(a.Den) }

// Min returns the lesser of a, b.
func Min(a, b Frac) Frac {
	if a.Lte(b) {
		return a
	}
	return b
}

// Max returns the greater of a, b.
func Max(a, b Frac) Frac {
	if a.Gte(b) {
		return a
	}
	return b
}

func (a Frac) String() string {
	if a.Den == 1 {
		return fmt.Sprintf("%d", a.Num)
	}
	return fmt.Sprintf("%d/%d", a.Num, a.Den)
}

// Span is a half-open interval [Begin, End) of cycle positions, Begin <= End.
type Span struct {
	Begin, End Frac
}

// NewSpan builds a Span, panicking if begin > end since that would violate
// the half-open-interval invariant every Pattern query relies on.
func NewSpan(begin, end Frac) Span {
	if begin.Gt(end) {
		panic("rational: span begin > end")
	}
	return Span{begin, end}
}

// Duration returns End - Begin.
func (s Span) Duration() Frac { return s.End.Sub(s.Begin) }

// WithTime returns a copy of s with both endpoints mapped through f. Used by
// combinators such as fast/slow/rev that need to transform the timeline
// without otherwise touching the query plumbing.
func (s Span) WithTime(f func(Frac) Frac) Span {
	return NewSpan(f(s.Begin), f(s.End))
}

// CycleSpan returns the span of the single cycle containing f ([floor(f),
// floor(f)+1)). Used by pure() and whole-cycle constructs.
func CycleSpan(f Frac) Span {
	fl := f.Floor()
	return NewSpan(fl, fl.Add(One))
}

// Intersect returns the overlap of two spans and whether they actually
// overlap (non-empty or touching at a single point counts as no overlap
// unless the spans are degenerate).
func (s Span) Intersect(o Span) (Span, bool) {
	begin := Max(s.Begin, o.Begin)
	end := Min(s.End, o.End)
	if begin.Gt(end) {
		return Span{}, false
	}
	if begin.Eq(end) && s.Begin.Lt(s.End) && o.Begin.Lt(o.End) {
		return Span{}, false
	}
	return Span{begin, end}, true
}

// SpanCycles splits s into one Span per integer cycle it touches. A
// zero-width span returns itself unsplit.
func SpanCycles(s Span) []Span {
	if s.Begin.Eq(s.End) {
		return []Span{s}
	}

	var spans []Span
	begin := s.Begin
	for begin.Lt(s.End) {
		nextCycle := begin.Floor().Add(One)
		end := Min(nextCycle, s.End)
		spans = append(spans, NewSpan(begin, end))
		begin = end
	}
	return spans
}

func (s Span) String() string { return fmt.Sprintf("[%s,%s)", s.Begin, s.End) }
