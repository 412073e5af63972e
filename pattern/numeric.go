package pattern

import "math"

// Range maps a numeric pattern's [0,1] values onto [lo,hi] — the standard
// way a unipolar LFO-shaped pattern is scaled to a usable parameter range.
func Range(p Pattern[float64], lo, hi float64) Pattern[float64] {
	return Fmap(p, func(v float64) float64 { return lo + v*(hi-lo) })
}

// Quantize snaps each value to the nearest of `steps` equally spaced levels
// within [0,1].
func Quantize(p Pattern[float64], steps int) Pattern[float64] {
	if steps < 1 {
		steps = 1
	}
	return Fmap(p, func(v float64) float64 {
		return math.Round(v*float64(steps)) / float64(steps)
	})
}

// Waveform is a continuous LFO shape applied to a pattern's numeric value,
// interpreted as a phase in [0,1).
type Waveform int

const (
	WaveSine Waveform = iota
	WaveSaw
	WaveTriangle
	WaveSquare
)

// ApplyWaveform maps phase values through the named waveform shape,
// producing a bipolar [-1,1] signal (spec §4.1.2 "waveform mappings").
func ApplyWaveform(p Pattern[float64], w Waveform) Pattern[float64] {
	return Fmap(p, func(phase float64) float64 { return Wave(w, phase) })
}

// Wave evaluates waveform w at the given phase (fractional part used,
// matching the oscillator's own phase wrap in internal/graph).
func Wave(w Waveform, phase float64) float64 {
	phase -= math.Floor(phase)
	switch w {
	case WaveSine:
		return math.Sin(2 * math.Pi * phase)
	case WaveSaw:
		return 2*phase - 1
	case WaveSquare:
		if phase < 0.5 {
			return 1
		}
		return -1
	case WaveTriangle:
		if phase < 0.5 {
			return 4*phase - 1
		}
		return 3 - 4*phase
	default:
		return 0
	}
}
