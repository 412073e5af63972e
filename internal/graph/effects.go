package graph

import "math"

// Distortion applies a drive-scaled tanh waveshaper.
type Distortion struct {
	Input Signal
	Drive Signal
}

func NewDistortion(input, drive Signal) *Distortion { return &Distortion{Input: input, Drive: drive} }

func (d *Distortion) eval(g *Graph) float64 {
	x := g.Eval(d.Input)
	drive := g.Eval(d.Drive)
	if drive < 1 {
		drive = 1
	}
	return math.Tanh(x * drive)
}

// Bitcrusher implements both behaviors the spec's Open Question hints at
// under distinct names (DESIGN.md / SPEC_FULL.md decision): Coarse holds
// each output sample for N ticks (sample-rate reduction), CrushBits
// quantizes amplitude to steps of 1/2^bits. Either may be set independently;
// both default to a no-op (Coarse=1, CrushBits=0 meaning "full depth").
type Bitcrusher struct {
	Input     Signal
	Coarse    Signal
	CrushBits Signal

	counter    int
	heldSample float64
}

func NewBitcrusher(input, coarse, crushBits Signal) *Bitcrusher {
	return &Bitcrusher{Input: input, Coarse: coarse, CrushBits: crushBits}
}

func (b *Bitcrusher) eval(g *Graph) float64 {
	x := g.Eval(b.Input)
	coarse := int(g.Eval(b.Coarse))
	if coarse < 1 {
		coarse = 1
	}

	if b.counter%coarse == 0 {
		b.heldSample = x
	}
	b.counter++

	bits := g.Eval(b.CrushBits)
	if bits <= 0 {
		return b.heldSample
	}
	levels := math.Pow(2, bits)
	return math.Round(b.heldSample*levels) / levels
}

// Chorus is a short modulated delay (a sine-LFO-swept tap into a small ring
// buffer) mixed with the dry signal — the standard cheap chorus topology,
// built on the same tapped-ring idea as Delay but with a continuously
// moving read position instead of a fixed one.
type Chorus struct {
	Input    Signal
	RateHz   Signal
	DepthSec Signal
	Mix      Signal

	ring     []float64
	writePos int
	phase    float64
}

func NewChorus(input, rateHz, depthSec, mix Signal, maxDepthSec float64, sampleRate int) *Chorus {
	n := int(maxDepthSec*2*float64(sampleRate)) + 2
	if n < 2 {
		n = 2
	}
	return &Chorus{Input: input, RateHz: rateHz, DepthSec: depthSec, Mix: mix, ring: make([]float64, n)}
}

func (c *Chorus) eval(g *Graph) float64 {
	dry := g.Eval(c.Input)
	rate := g.Eval(c.RateHz)
	depth := g.Eval(c.DepthSec)
	mix := g.Eval(c.Mix)

	n := len(c.ring)
	c.ring[c.writePos] = dry

	lfo := (math.Sin(2*math.Pi*c.phase) + 1) / 2 // [0,1]
	c.phase += rate / float64(g.SampleRate)
	c.phase -= floorF(c.phase)

	delaySamples := lfo * depth * float64(g.SampleRate)
	readPos := float64(c.writePos) - delaySamples
	for readPos < 0 {
		readPos += float64(n)
	}
	i0 := int(readPos) % n
	i1 := (i0 + 1) % n
	frac := readPos - floorF(readPos)
	wet := c.ring[i0]*(1-frac) + c.ring[i1]*frac

	c.writePos = (c.writePos + 1) % n
	return dry*(1-mix) + wet*mix
}

// Output passes its input straight through to the final mix (spec §4.5.3).
type Output struct {
	Input Signal
}

func NewOutput(input Signal) *Output { return &Output{Input: input} }

func (o *Output) eval(g *Graph) float64 { return g.Eval(o.Input) }
