package render_test

import (
	"testing"

	"github.com/cklabs/phonon/internal/analysis"
	"github.com/cklabs/phonon/internal/graph"
	"github.com/cklabs/phonon/internal/render"
	"github.com/cklabs/phonon/internal/samplelib"
	"github.com/cklabs/phonon/internal/voice"
	"github.com/cklabs/phonon/mini"
	"github.com/cklabs/phonon/pattern"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRate = 44100

// E1: out: sine 440 * 0.3 rendered 1 s @ 44100 — dominant FFT peak within
// 2 Hz of 440; RMS ≈ 0.212 (0.3/sqrt(2)).
func TestE1SineToneFrequencyAndRMS(t *testing.T) {
	g := graph.New(sampleRate, 1)
	osc := g.AddNode(graph.NewOscillator(pattern.WaveSine, graph.Val(440)))
	scaled := graph.Expr(graph.OpMul, graph.Ref(osc), graph.Val(0.3))
	g.Output = g.AddNode(graph.NewOutput(scaled))

	out := render.Mono(g, sampleRate, render.Options{BlockSize: 256}, nil)

	freq := analysis.DominantFrequency(analysis.ToFloat64(out), sampleRate)
	assert.InDelta(t, 440, freq, 2)

	rms := analysis.RMS(out)
	assert.InDelta(t, 0.212, rms, 0.01)
}

// E2: tempo 2; out: s "bd ~ sn ~" rendered 1 s — onsets near t=0 and
// t=0.25s; silence around t=0.125 and t=0.375.
func TestE2SampleSequenceOnsetTiming(t *testing.T) {
	lib := samplelib.NewInMemory(map[string][]samplelib.Buffer{
		"bd": {{Samples: constSamples(2000, 1), SampleRate: sampleRate}},
		"sn": {{Samples: constSamples(2000, 1), SampleRate: sampleRate}},
	})
	pool := voice.NewPool(8, sampleRate)
	pat, err := parsePattern(t, `bd ~ sn ~`)
	require.NoError(t, err)

	g := graph.New(sampleRate, 2) // tempo 2 cps
	sn := g.AddNode(graph.NewSampleNode(pat, lib, pool))
	g.AddSampleTrigger(sn)
	left, _ := graph.NewVoicePoolOutputs(g, pool)
	g.Output = left

	out := render.Mono(g, sampleRate, render.Options{BlockSize: 256}, nil)

	assertOnsetNear(t, out, 0)
	assertOnsetNear(t, out, int(0.25*sampleRate))
	assertSilentAround(t, out, int(0.125*sampleRate))
	assertSilentAround(t, out, int(0.375*sampleRate))
}

// E5: out: s "bd" |> fast 4 rendered 1 cycle at tempo 2 — four onsets per
// cycle, spaced ~0.125s (cycle length 0.5s at cps 2, /4 = 0.125s).
func TestE5FastQuadruplesOnsetCount(t *testing.T) {
	lib := samplelib.NewInMemory(map[string][]samplelib.Buffer{
		"bd": {{Samples: constSamples(500, 1), SampleRate: sampleRate}},
	})
	pool := voice.NewPool(8, sampleRate)
	base, err := parsePattern(t, `bd`)
	require.NoError(t, err)
	fast := pattern.FastF(4, base)

	g := graph.New(sampleRate, 2)
	sn := g.AddNode(graph.NewSampleNode(fast, lib, pool))
	g.AddSampleTrigger(sn)
	left, _ := graph.NewVoicePoolOutputs(g, pool)
	g.Output = left

	out := render.Mono(g, sampleRate/2, render.Options{BlockSize: 256}, nil) // one cycle = 0.5s

	onsets := countOnsets(out)
	assert.Equal(t, 4, onsets)
}

// E6: out: s "[bd, sn]" rendered 1 cycle — a kick and snare triggered at
// the same sample (within 1-sample tolerance).
func TestE6StackedSamplesTriggerTogether(t *testing.T) {
	lib := samplelib.NewInMemory(map[string][]samplelib.Buffer{
		"bd": {{Samples: constSamples(500, 1), SampleRate: sampleRate}},
		"sn": {{Samples: constSamples(500, 0.5), SampleRate: sampleRate}},
	})
	pool := voice.NewPool(8, sampleRate)
	pat, err := parsePattern(t, `[bd, sn]`)
	require.NoError(t, err)

	g := graph.New(sampleRate, 1)
	sn := g.AddNode(graph.NewSampleNode(pat, lib, pool))
	g.AddSampleTrigger(sn)
	left, _ := graph.NewVoicePoolOutputs(g, pool)
	g.Output = left

	out := render.Mono(g, sampleRate, render.Options{BlockSize: 256}, nil)

	// Both voices start at sample 0: their sum (1 + 0.5, equal-power-panned
	// centered so each scales by cos(pi/4)) should exceed either alone.
	assert.Greater(t, float64(out[0]), 0.5)
}

func TestFadeInOutRampsEdges(t *testing.T) {
	g := graph.New(sampleRate, 1)
	c := g.AddNode(&graph.Constant{Value: 1})
	g.Output = g.AddNode(graph.NewOutput(graph.Ref(c)))

	out := render.Mono(g, 1000, render.Options{BlockSize: 100, FadeInSamp: 10, FadeOutSamp: 10}, nil)
	assert.InDelta(t, 0, out[0], 1e-6)
	assert.InDelta(t, 1, out[500], 1e-6)
	assert.InDelta(t, 0, out[999], 0.2)
}

func TestPendingBusWritesAppliedAtBlockBoundary(t *testing.T) {
	g := graph.New(sampleRate, 1)
	g.Output = g.AddNode(graph.NewOutput(graph.BusRef("gain")))

	writes := []render.BusWrite{{Name: "gain", Value: 0.42}}
	drained := false
	out := render.Mono(g, 10, render.Options{BlockSize: 10}, func() []render.BusWrite {
		if drained {
			return nil
		}
		drained = true
		return writes
	})
	assert.InDelta(t, 0.42, out[0], 1e-6)
}

func constSamples(n int, v float32) []float32 {
	s := make([]float32, n)
	for i := range s {
		s[i] = v
	}
	return s
}

func countOnsets(out []float32) int {
	onsets := 0
	wasZero := true
	for _, s := range out {
		nonzero := s > 1e-4 || s < -1e-4
		if nonzero && wasZero {
			onsets++
		}
		wasZero = !nonzero
	}
	return onsets
}

func assertOnsetNear(t *testing.T, out []float32, sampleIdx int) {
	t.Helper()
	tolerance := int(0.005 * sampleRate)
	found := false
	for i := sampleIdx - tolerance; i <= sampleIdx+tolerance && i < len(out); i++ {
		if i < 0 {
			continue
		}
		if out[i] > 1e-4 || out[i] < -1e-4 {
			found = true
			break
		}
	}
	assert.True(t, found, "expected onset near sample %d", sampleIdx)
}

func assertSilentAround(t *testing.T, out []float32, sampleIdx int) {
	t.Helper()
	window := int(0.01 * sampleRate)
	lo, hi := sampleIdx-window, sampleIdx+window
	if lo < 0 {
		lo = 0
	}
	if hi > len(out) {
		hi = len(out)
	}
	for i := lo; i < hi; i++ {
		assert.InDelta(t, 0, out[i], 1e-4)
	}
}

func parsePattern(t *testing.T, src string) (pattern.Pattern[string], error) {
	t.Helper()
	return mini.Parse(src)
}
