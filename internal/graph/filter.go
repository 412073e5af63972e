package graph

import "math"

// FilterKind selects the biquad topology (spec §4.5.3).
type FilterKind int

const (
	LowPass FilterKind = iota
	HighPass
	BandPass
)

const coeffEpsilon = 1e-6

// biquad holds one RBJ biquad's coefficients and delay line. Factored out
// of Filter so DJFilter (filter_dj.go) can run a lowpass and a highpass
// biquad side by side without duplicating the coefficient math.
type biquad struct {
	a0, a1, a2, b1, b2 float64
	x1, x2, y1, y2     float64
}

// recompute derives normalized biquad coefficients (Robert Bristow-Johnson's
// Audio EQ Cookbook forms), scaled so a0 is folded into the feed-forward
// taps directly.
func (bq *biquad) recompute(kind FilterKind, cutoff, q, sampleRate float64) {
	w0 := 2 * math.Pi * cutoff / sampleRate
	if w0 >= math.Pi {
		w0 = math.Pi - 1e-3
	}
	cosw0 := math.Cos(w0)
	sinw0 := math.Sin(w0)
	alpha := sinw0 / (2 * q)

	var b0, b1, b2, a0, a1, a2 float64
	switch kind {
	case LowPass:
		b0 = (1 - cosw0) / 2
		b1 = 1 - cosw0
		b2 = (1 - cosw0) / 2
	case HighPass:
		b0 = (1 + cosw0) / 2
		b1 = -(1 + cosw0)
		b2 = (1 + cosw0) / 2
	case BandPass:
		b0 = alpha
		b1 = 0
		b2 = -alpha
	}
	a0 = 1 + alpha
	a1 = -2 * cosw0
	a2 = 1 - alpha

	bq.a0 = b0 / a0
	bq.a1 = b1 / a0
	bq.a2 = b2 / a0
	bq.b1 = a1 / a0
	bq.b2 = a2 / a0
}

// process runs one sample through the biquad's difference equation. A
// non-finite output resets the delay line rather than propagating the
// fault (spec §7 kind 5).
func (bq *biquad) process(x0 float64) float64 {
	y0 := bq.a0*x0 + bq.a1*bq.x1 + bq.a2*bq.x2 - bq.b1*bq.y1 - bq.b2*bq.y2
	if math.IsNaN(y0) || math.IsInf(y0, 0) {
		bq.x1, bq.x2, bq.y1, bq.y2 = 0, 0, 0, 0
		return 0
	}
	bq.x2, bq.x1 = bq.x1, x0
	bq.y2, bq.y1 = bq.y1, y0
	return y0
}

// Filter is a biquad LowPass/HighPass/BandPass node. Coefficients are
// recomputed only when cutoff or q drift by more than coeffEpsilon between
// samples, matching the spec's "updated when cutoff or q changes by more
// than a small epsilon" contract — recomputing every sample would be
// correct too, but this mirrors the spec's own stated optimization.
type Filter struct {
	Kind   FilterKind
	Input  Signal
	Cutoff Signal
	Q      Signal

	bq                biquad
	lastCutoff, lastQ float64
	haveCoeffs        bool
}

func NewFilter(kind FilterKind, input, cutoff, q Signal) *Filter {
	return &Filter{Kind: kind, Input: input, Cutoff: cutoff, Q: q}
}

func (f *Filter) eval(g *Graph) float64 {
	cutoff := g.Eval(f.Cutoff)
	q := g.Eval(f.Q)
	if q <= 0 {
		q = 0.0001
	}
	if cutoff <= 0 {
		cutoff = 1
	}

	if !f.haveCoeffs || math.Abs(cutoff-f.lastCutoff) > coeffEpsilon || math.Abs(q-f.lastQ) > coeffEpsilon {
		f.bq.recompute(f.Kind, cutoff, q, float64(g.SampleRate))
		f.lastCutoff, f.lastQ, f.haveCoeffs = cutoff, q, true
	}

	x0 := g.Eval(f.Input)
	return f.bq.process(x0)
}
