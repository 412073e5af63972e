package graph

// Delay is a feedback delay line: a fixed-size ring buffer of time*sr
// samples with a feedback tap and wet/dry mix (spec §4.5.3 "Delay line").
// Grounded on the teacher's comb-filter reverb (internal/comb.CombAdd):
// the same feedback-tap-into-a-ring idea, reworked from a block-applied,
// unbounded-growth buffer into a fixed-capacity per-sample ring so it fits
// the graph's one-eval-per-sample contract.
type Delay struct {
	Input    Signal
	TimeSec  Signal
	Feedback Signal
	Wet      Signal

	ring     []float64
	writePos int
}

// NewDelay preallocates a ring sized for maxDelaySec at sampleRate; TimeSec
// may vary at runtime up to that bound (longer requests are clamped).
func NewDelay(input, timeSec, feedback, wet Signal, maxDelaySec float64, sampleRate int) *Delay {
	n := int(maxDelaySec * float64(sampleRate))
	if n < 1 {
		n = 1
	}
	return &Delay{Input: input, TimeSec: timeSec, Feedback: feedback, Wet: wet, ring: make([]float64, n)}
}

func (d *Delay) eval(g *Graph) float64 {
	dry := g.Eval(d.Input)
	timeSec := g.Eval(d.TimeSec)
	feedback := g.Eval(d.Feedback)
	wet := g.Eval(d.Wet)

	delaySamples := int(timeSec * float64(g.SampleRate))
	n := len(d.ring)
	if delaySamples >= n {
		delaySamples = n - 1
	}
	if delaySamples < 0 {
		delaySamples = 0
	}

	readPos := d.writePos - delaySamples
	for readPos < 0 {
		readPos += n
	}
	tapped := d.ring[readPos%n]

	d.ring[d.writePos] = dry + tapped*feedback
	d.writePos = (d.writePos + 1) % n

	return dry*(1-wet) + tapped*wet
}
