package graph

import "github.com/cklabs/phonon/pattern"

// Oscillator produces y = wave(phase), advancing phase by freq/sr each
// sample and wrapping into [0,1) (spec §4.5.3).
type Oscillator struct {
	Wave pattern.Waveform
	Freq Signal
	phase float64
}

func NewOscillator(wave pattern.Waveform, freq Signal) *Oscillator {
	return &Oscillator{Wave: wave, Freq: freq}
}

func (o *Oscillator) eval(g *Graph) float64 {
	y := pattern.Wave(o.Wave, o.phase)
	freq := g.Eval(o.Freq)
	o.phase += freq / float64(g.SampleRate)
	o.phase -= floorF(o.phase)
	return y
}

func floorF(f float64) float64 {
	i := int64(f)
	if f < 0 && float64(i) != f {
		i--
	}
	return float64(i)
}

// Noise emits a deterministic per-sample pseudo-random value in [-1,1]
// via a linear congruential generator (spec §4.5.3 "Noise").
type Noise struct {
	state uint32
}

func NewNoise(seed uint32) *Noise {
	if seed == 0 {
		seed = 1
	}
	return &Noise{state: seed}
}

func (n *Noise) eval(g *Graph) float64 {
	// Numerical Recipes LCG constants.
	n.state = n.state*1664525 + 1013904223
	return float64(n.state)/float64(1<<31) - 1
}

// Constant is a trivial node wrapping a fixed value — used where a Signal
// reference (rather than a bare SigValue) is needed, e.g. as a bus target.
type Constant struct {
	Value float64
}

func (c *Constant) eval(g *Graph) float64 { return c.Value }
