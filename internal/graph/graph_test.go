package graph

import (
	"math"
	"testing"

	"github.com/cklabs/phonon/internal/samplelib"
	"github.com/cklabs/phonon/internal/voice"
	"github.com/cklabs/phonon/pattern"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstantOutput(t *testing.T) {
	g := New(44100, 1)
	c := g.AddNode(&Constant{Value: 0.5})
	g.Output = g.AddNode(NewOutput(Ref(c)))

	s := g.ProcessSample()
	assert.InDelta(t, 0.5, s, 1e-6)
}

func TestExprArithmetic(t *testing.T) {
	g := New(44100, 1)
	a := g.AddNode(&Constant{Value: 2})
	b := g.AddNode(&Constant{Value: 3})
	sum := Expr(OpAdd, Ref(a), Ref(b))
	g.Output = g.AddNode(NewOutput(sum))

	assert.InDelta(t, 5, g.ProcessSample(), 1e-6)
}

func TestOscillatorSineStartsAtZero(t *testing.T) {
	g := New(44100, 1)
	osc := g.AddNode(NewOscillator(pattern.WaveSine, Val(440)))
	g.Output = g.AddNode(NewOutput(Ref(osc)))

	s := g.ProcessSample()
	assert.InDelta(t, 0, s, 1e-3)
}

func TestOscillatorProducesBoundedOutput(t *testing.T) {
	g := New(44100, 1)
	osc := g.AddNode(NewOscillator(pattern.WaveSquare, Val(440)))
	g.Output = g.AddNode(NewOutput(Ref(osc)))

	for i := 0; i < 1000; i++ {
		s := g.ProcessSample()
		assert.LessOrEqual(t, math.Abs(float64(s)), 1.0)
	}
}

type countingNode struct {
	calls int
}

func (c *countingNode) eval(g *Graph) float64 {
	c.calls++
	return float64(c.calls)
}

func TestMemoizationSharesOneEvalPerSample(t *testing.T) {
	g := New(44100, 1)
	cn := &countingNode{}
	n := g.AddNode(cn)
	sum := Expr(OpAdd, Ref(n), Ref(n))
	g.Output = g.AddNode(NewOutput(sum))

	out := g.ProcessSample()
	assert.Equal(t, 1, cn.calls, "node referenced twice should only eval once per sample")
	assert.InDelta(t, 2, out, 1e-6)
}

func TestMemoClearsBetweenSamples(t *testing.T) {
	g := New(44100, 1)
	cn := &countingNode{}
	n := g.AddNode(cn)
	g.Output = g.AddNode(NewOutput(Ref(n)))

	g.ProcessSample()
	g.ProcessSample()
	assert.Equal(t, 2, cn.calls)
}

func TestBusFallsBackToZeroWhenUnbound(t *testing.T) {
	g := New(44100, 1)
	g.Output = g.AddNode(NewOutput(BusRef("missing")))
	assert.Equal(t, float32(0), g.ProcessSample())
}

func TestBusWriteAppliesNextSample(t *testing.T) {
	g := New(44100, 1)
	g.Output = g.AddNode(NewOutput(BusRef("cutoff")))
	g.WriteBus("cutoff", 0.75)
	assert.InDelta(t, 0.75, g.ProcessSample(), 1e-6)
}

type nanNode struct{}

func (n *nanNode) eval(g *Graph) float64 { return math.NaN() }

func TestNaNClampsToZero(t *testing.T) {
	g := New(44100, 1)
	n := g.AddNode(&nanNode{})
	g.Output = g.AddNode(NewOutput(Ref(n)))
	assert.Equal(t, float32(0), g.ProcessSample())
}

func TestSampleNodeTriggersVoiceOnOnset(t *testing.T) {
	lib := samplelib.NewInMemory(map[string][]samplelib.Buffer{
		"bd": {{Samples: []float32{1, 1, 1, 1}, SampleRate: 44100}},
	})
	pool := voice.NewPool(4, 44100)
	pat := pattern.Pure("bd")

	g := New(44100, 1)
	sn := NewSampleNode(pat, lib, pool)
	snID := g.AddNode(sn)
	g.AddSampleTrigger(snID)
	left, _ := NewVoicePoolOutputs(g, pool)
	g.Output = left

	out := g.ProcessSample()
	assert.NotEqual(t, float32(0), out)
}

func TestFilterLowPassAttenuatesHighFrequency(t *testing.T) {
	g := New(44100, 1)
	osc := g.AddNode(NewOscillator(pattern.WaveSine, Val(8000)))
	f := g.AddNode(NewFilter(LowPass, Ref(osc), Val(200), Val(0.707)))
	g.Output = g.AddNode(NewOutput(Ref(f)))

	var maxAbs float64
	for i := 0; i < 2000; i++ {
		s := g.ProcessSample()
		if math.Abs(float64(s)) > maxAbs {
			maxAbs = math.Abs(float64(s))
		}
	}
	assert.Less(t, maxAbs, 0.5)
}

type impulseNode struct {
	n int
}

func (i *impulseNode) eval(g *Graph) float64 {
	i.n++
	if i.n == 1 {
		return 1
	}
	return 0
}

func TestDelayProducesEchoTap(t *testing.T) {
	g := New(44100, 1)
	impulse := g.AddNode(&impulseNode{})
	d := g.AddNode(NewDelay(Ref(impulse), Val(0.01), Val(0), Val(1), 1.0, 44100))
	g.Output = g.AddNode(NewOutput(Ref(d)))

	var samples []float32
	for i := 0; i < 500; i++ {
		samples = append(samples, g.ProcessSample())
	}
	found := false
	for _, s := range samples[430:470] {
		if s != 0 {
			found = true
		}
	}
	assert.True(t, found, "expected a delayed echo of the impulse")
}

func TestNoiseStaysInRange(t *testing.T) {
	g := New(44100, 1)
	noise := g.AddNode(NewNoise(42))
	g.Output = g.AddNode(NewOutput(Ref(noise)))
	for i := 0; i < 1000; i++ {
		s := g.ProcessSample()
		assert.LessOrEqual(t, math.Abs(float64(s)), 1.0)
	}
}

func TestVoicePoolOutputsShareOneTickPerSample(t *testing.T) {
	pool := voice.NewPool(4, 44100)
	pool.Trigger(voice.TriggerParams{Buffer: samplelib.Buffer{Samples: []float32{1, 1, 1, 1, 1}, SampleRate: 44100}, Speed: 1, Gain: 1})

	g := New(44100, 1)
	l, r := NewVoicePoolOutputs(g, pool)
	sum := Expr(OpAdd, Ref(l), Ref(r))
	g.Output = g.AddNode(NewOutput(sum))

	out := g.ProcessSample()
	require.NotEqual(t, float32(0), out)
}

func TestCPSPatternResampledAtBlockStart(t *testing.T) {
	cpsPat := pattern.SlowCat([]pattern.Pattern[float64]{pattern.Pure(1.0), pattern.Pure(2.0)})
	g := NewWithCPSPattern(44100, cpsPat)
	c := g.AddNode(&Constant{Value: 1})
	g.Output = g.AddNode(NewOutput(Ref(c)))

	g.BeginBlock()
	assert.InDelta(t, 1.0, g.cps, 1e-9)
}
