// Package analysis provides FFT-backed measurements used by the renderer's
// end-to-end tests (spec §8.2/§8.4): dominant frequency, band-energy ratio,
// and spectral centroid over a block of rendered audio.
package analysis

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// magnitudeSpectrum returns |FFT(samples)| for the first half of the
// spectrum (the Nyquist-folded half, since the input is real-valued).
func magnitudeSpectrum(samples []float64) []float64 {
	complexIn := make([]complex128, len(samples))
	for i, s := range samples {
		complexIn[i] = complex(s, 0)
	}
	out := fft.FFT(complexIn)
	half := len(out)/2 + 1
	mags := make([]float64, half)
	for i := 0; i < half; i++ {
		mags[i] = cmplx.Abs(out[i])
	}
	return mags
}

func binHz(bin, n, sampleRate int) float64 {
	return float64(bin) * float64(sampleRate) / float64(n)
}

// DominantFrequency returns the frequency (Hz) of the largest-magnitude FFT
// bin, used by E1 ("dominant FFT peak within 2 Hz of 440").
func DominantFrequency(samples []float64, sampleRate int) float64 {
	mags := magnitudeSpectrum(samples)
	best := 0
	for i := 1; i < len(mags); i++ {
		if mags[i] > mags[best] {
			best = i
		}
	}
	return binHz(best, len(samples), sampleRate)
}

// BandEnergyRatio returns the fraction of total spectral energy that falls
// above cutoffHz, used by the LowPass attenuation test (§8.2).
func BandEnergyRatio(samples []float64, sampleRate int, cutoffHz float64) float64 {
	mags := magnitudeSpectrum(samples)
	var total, above float64
	for i, m := range mags {
		e := m * m
		total += e
		if binHz(i, len(samples), sampleRate) >= cutoffHz {
			above += e
		}
	}
	if total == 0 {
		return 0
	}
	return above / total
}

// SpectralCentroid returns the magnitude-weighted mean frequency (Hz),
// used by E4's LFO-swept frequency-modulation scenario.
func SpectralCentroid(samples []float64, sampleRate int) float64 {
	mags := magnitudeSpectrum(samples)
	var weighted, total float64
	for i, m := range mags {
		f := binHz(i, len(samples), sampleRate)
		weighted += f * m
		total += m
	}
	if total == 0 {
		return 0
	}
	return weighted / total
}

// RMS returns the root-mean-square level of samples, used by E1's
// "RMS ≈ 0.212" check.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sumSq float64
	for _, s := range samples {
		sumSq += float64(s) * float64(s)
	}
	return math.Sqrt(sumSq / float64(len(samples)))
}

// ToFloat64 widens a float32 block for FFT input.
func ToFloat64(samples []float32) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = float64(s)
	}
	return out
}
