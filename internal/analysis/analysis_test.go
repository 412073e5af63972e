package analysis_test

import (
	"math"
	"testing"

	"github.com/cklabs/phonon/internal/analysis"
	"github.com/stretchr/testify/assert"
)

func sineWave(freq float64, sampleRate, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * freq * float64(i) / float64(sampleRate))
	}
	return out
}

func TestDominantFrequencyDetectsSine(t *testing.T) {
	sr := 44100
	samples := sineWave(440, sr, sr)
	freq := analysis.DominantFrequency(samples, sr)
	assert.InDelta(t, 440, freq, 2)
}

func TestBandEnergyRatioHighForHighFrequencyTone(t *testing.T) {
	sr := 44100
	samples := sineWave(8000, sr, sr)
	ratio := analysis.BandEnergyRatio(samples, sr, 1000)
	assert.Greater(t, ratio, 0.9)
}

func TestBandEnergyRatioLowForLowFrequencyTone(t *testing.T) {
	sr := 44100
	samples := sineWave(100, sr, sr)
	ratio := analysis.BandEnergyRatio(samples, sr, 1000)
	assert.Less(t, ratio, 0.1)
}

func TestSpectralCentroidNearToneFrequency(t *testing.T) {
	sr := 44100
	samples := sineWave(440, sr, sr)
	centroid := analysis.SpectralCentroid(samples, sr)
	assert.InDelta(t, 440, centroid, 5)
}

func TestRMSOfUnitSine(t *testing.T) {
	sr := 44100
	samples := make([]float32, sr)
	for i := range samples {
		samples[i] = float32(math.Sin(2 * math.Pi * 440 * float64(i) / float64(sr)))
	}
	rms := analysis.RMS(samples)
	assert.InDelta(t, 0.707, rms, 0.01)
}
