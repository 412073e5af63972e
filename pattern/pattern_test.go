package pattern_test

import (
	"testing"

	"github.com/cklabs/phonon/pattern"
	"github.com/cklabs/phonon/rational"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func span(b, e int64) rational.Span {
	return rational.NewSpan(rational.FromInt(b), rational.FromInt(e))
}

func queryValues(t *testing.T, p pattern.Pattern[string], b, e int64) []string {
	t.Helper()
	haps := p.QuerySpan(span(b, e), nil)
	vals := make([]string, len(haps))
	for i, h := range haps {
		vals[i] = h.Value
	}
	return vals
}

func TestPureOneHapPerCycle(t *testing.T) {
	p := pattern.Pure("bd")
	haps := p.QuerySpan(span(0, 3), nil)
	require.Len(t, haps, 3)
	for i, h := range haps {
		assert.Equal(t, "bd", h.Value)
		assert.True(t, h.HasOnset())
		assert.Equal(t, rational.FromInt(int64(i)), h.Whole.Begin)
	}
}

func TestSilenceIsEmpty(t *testing.T) {
	p := pattern.Silence[string]()
	assert.Empty(t, p.QuerySpan(span(0, 10), nil))
}

func TestFromAtomsDividesCycle(t *testing.T) {
	p := pattern.FromAtoms([]string{"a", "b", "c", "d"})
	haps := p.QuerySpan(span(0, 1), nil)
	require.Len(t, haps, 4)
	want := []string{"a", "b", "c", "d"}
	for i, h := range haps {
		assert.Equal(t, want[i], h.Value)
		assert.Equal(t, rational.New(int64(i), 4), h.Whole.Begin)
		assert.Equal(t, rational.New(int64(i+1), 4), h.Whole.End)
	}
}

func TestStackIsUnion(t *testing.T) {
	a := pattern.Pure("a")
	b := pattern.Pure("b")
	s := pattern.Stack([]pattern.Pattern[string]{a, b})
	haps := s.QuerySpan(span(0, 1), nil)
	require.Len(t, haps, 2)
}

func TestStackAssociativity(t *testing.T) {
	p := pattern.Pure("p")
	q := pattern.Pure("q")
	r := pattern.Pure("r")

	left := pattern.Stack([]pattern.Pattern[string]{pattern.Stack([]pattern.Pattern[string]{p, q}), r})
	right := pattern.Stack([]pattern.Pattern[string]{p, pattern.Stack([]pattern.Pattern[string]{q, r})})

	lv := queryValues(t, left, 0, 1)
	rv := queryValues(t, right, 0, 1)
	assert.ElementsMatch(t, lv, rv)
}

func TestSlowCatOnePatternPerCycle(t *testing.T) {
	p := pattern.SlowCat([]pattern.Pattern[string]{pattern.Pure("a"), pattern.Pure("b"), pattern.Pure("c")})
	assert.Equal(t, []string{"a"}, queryValues(t, p, 0, 1))
	assert.Equal(t, []string{"b"}, queryValues(t, p, 1, 2))
	assert.Equal(t, []string{"c"}, queryValues(t, p, 2, 3))
	assert.Equal(t, []string{"a"}, queryValues(t, p, 3, 4))
}

func TestCatConcatenatesWithinCycle(t *testing.T) {
	p := pattern.Cat([]pattern.Pattern[string]{pattern.Pure("a"), pattern.Pure("b")})
	haps := p.QuerySpan(span(0, 1), nil)
	require.Len(t, haps, 2)
	assert.Equal(t, "a", haps[0].Value)
	assert.Equal(t, rational.New(1, 2), haps[0].Whole.End)
	assert.Equal(t, "b", haps[1].Value)
	assert.Equal(t, rational.New(1, 2), haps[1].Whole.Begin)
}

func TestFastIdentity(t *testing.T) {
	p := pattern.FromAtoms([]string{"a", "b", "c"})
	fast1 := pattern.FastF(1, p)

	a := p.QuerySpan(span(0, 4), nil)
	b := fast1.QuerySpan(span(0, 4), nil)
	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].Value, b[i].Value)
		assert.Equal(t, a[i].Whole.Begin, b[i].Whole.Begin)
		assert.Equal(t, a[i].Whole.End, b[i].Whole.End)
	}
}

func TestSlowIdentity(t *testing.T) {
	p := pattern.FromAtoms([]string{"a", "b"})
	slow1 := pattern.SlowF(1, p)
	a := p.QuerySpan(span(0, 2), nil)
	b := slow1.QuerySpan(span(0, 2), nil)
	require.Equal(t, len(a), len(b))
}

func TestFastSlowInverse(t *testing.T) {
	p := pattern.FromAtoms([]string{"a", "b", "c", "d", "e"})
	roundtrip := pattern.SlowF(3, pattern.FastF(3, p))

	a := p.QuerySpan(span(0, 5), nil)
	b := roundtrip.QuerySpan(span(0, 5), nil)
	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].Value, b[i].Value)
		assert.Equal(t, a[i].Whole.Begin, b[i].Whole.Begin)
		assert.Equal(t, a[i].Whole.End, b[i].Whole.End)
	}
}

func TestFastDividesDuration(t *testing.T) {
	p := pattern.Pure("x")
	fast2 := pattern.FastF(2, p)
	haps := fast2.QuerySpan(span(0, 1), nil)
	require.Len(t, haps, 2)
	assert.Equal(t, rational.New(1, 2), haps[0].Whole.Duration())
}

func TestRevInvolution(t *testing.T) {
	p := pattern.FromAtoms([]string{"a", "b", "c", "d"})
	twice := pattern.Rev(pattern.Rev(p))

	a := p.QuerySpan(span(0, 3), nil)
	b := twice.QuerySpan(span(0, 3), nil)
	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].Value, b[i].Value)
		assert.Equal(t, a[i].Whole.Begin, b[i].Whole.Begin)
	}
}

func TestRevReversesOrderWithinCycle(t *testing.T) {
	p := pattern.FromAtoms([]string{"a", "b", "c", "d"})
	r := pattern.Rev(p)
	assert.Equal(t, []string{"d", "c", "b", "a"}, queryValues(t, r, 0, 1))
}

func TestEveryAppliesOnSelectedCycles(t *testing.T) {
	p := pattern.Pure("x")
	transformed := pattern.Every(3, func(p pattern.Pattern[string]) pattern.Pattern[string] {
		return pattern.Fmap(p, func(string) string { return "y" })
	}, p)

	assert.Equal(t, []string{"y"}, queryValues(t, transformed, 0, 1))
	assert.Equal(t, []string{"x"}, queryValues(t, transformed, 1, 2))
	assert.Equal(t, []string{"x"}, queryValues(t, transformed, 2, 3))
	assert.Equal(t, []string{"y"}, queryValues(t, transformed, 3, 4))
}

func TestZoomCompressAreInverses(t *testing.T) {
	p := pattern.FromAtoms([]string{"a", "b", "c", "d"})
	zoomed := pattern.Zoom(rational.New(1, 4), rational.New(3, 4), p)
	roundtrip := pattern.Compress(rational.New(1, 4), rational.New(3, 4), zoomed)

	assert.Equal(t, []string{"b", "c"}, queryValues(t, zoomed, 0, 1))
	haps := roundtrip.QuerySpan(span(0, 1), nil)
	require.Len(t, haps, 2)
	assert.Equal(t, "b", haps[0].Value)
	assert.Equal(t, "c", haps[1].Value)
}

func TestJuxAttachesPan(t *testing.T) {
	p := pattern.Pure("bd")
	j := pattern.Jux(func(p pattern.Pattern[string]) pattern.Pattern[string] { return p }, p)
	haps := j.QuerySpan(span(0, 1), nil)
	require.Len(t, haps, 2)
	pans := map[string]bool{}
	for _, h := range haps {
		pans[h.Context["pan"]] = true
	}
	assert.True(t, pans["-1"])
	assert.True(t, pans["1"])
}

func TestStructPatternTakesStructureFromTrigger(t *testing.T) {
	trig := pattern.Euclid(3, 8, 0)
	p := pattern.StructPattern(trig, []string{"a", "b", "c"})
	haps := p.QuerySpan(span(0, 1), nil)
	require.Len(t, haps, 3)
	assert.Equal(t, []string{"a", "b", "c"}, queryValues(t, p, 0, 1))
}

func TestDegradeByIsDeterministic(t *testing.T) {
	p := pattern.FromAtoms([]string{"a", "b", "c", "d", "e", "f", "g", "h"})
	degraded := pattern.DegradeBy(0.5, p)

	a := queryValues(t, degraded, 0, 4)
	b := queryValues(t, degraded, 0, 4)
	assert.Equal(t, a, b)
}

func TestChopAttachesBeginEnd(t *testing.T) {
	p := pattern.Pure("bd")
	chopped := pattern.Chop[string](4, p)
	haps := chopped.QuerySpan(span(0, 1), nil)
	require.Len(t, haps, 4)
	assert.Equal(t, "0", haps[0].Context["begin"])
	assert.Equal(t, "0.25", haps[0].Context["end"])
}

func TestRotPreservesTimesRotatesValues(t *testing.T) {
	p := pattern.FromAtoms([]string{"a", "b", "c", "d"})
	rotated := pattern.Rot(pattern.Steady(1.0), p)
	assert.Equal(t, []string{"b", "c", "d", "a"}, queryValues(t, rotated, 0, 1))
}
