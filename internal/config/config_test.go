package config_test

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cklabs/phonon/internal/config"
)

func TestRenderOptionsRequiresCyclesOrDuration(t *testing.T) {
	o := &config.RenderOptions{}
	err := o.Validate()
	assert.Error(t, err)
}

func TestRenderOptionsRejectsBothCyclesAndDuration(t *testing.T) {
	o := &config.RenderOptions{Cycles: 1, Duration: 1}
	assert.Error(t, o.Validate())
}

func TestRenderOptionsClampsNegativeGainToZero(t *testing.T) {
	o := &config.RenderOptions{Duration: 1, Gain: -2}
	require.NoError(t, o.Validate())
	assert.Equal(t, 0.0, o.Gain)
}

func TestRenderOptionsDefaultsSampleRate(t *testing.T) {
	o := &config.RenderOptions{Duration: 1, SampleRate: -1}
	require.NoError(t, o.Validate())
	assert.Equal(t, 44100, o.SampleRate)
}

func TestTotalFramesFromDurationIgnoresCPS(t *testing.T) {
	o := &config.RenderOptions{Duration: 2, SampleRate: 1000}
	frames, err := o.TotalFrames(0)
	require.NoError(t, err)
	assert.Equal(t, 2000, frames)
}

func TestTotalFramesFromCyclesUsesCPS(t *testing.T) {
	o := &config.RenderOptions{Cycles: 4, SampleRate: 1000}
	frames, err := o.TotalFrames(2) // 4 cycles / 2 cps = 2s
	require.NoError(t, err)
	assert.Equal(t, 2000, frames)
}

func TestTotalFramesFromCyclesWithZeroCPSErrors(t *testing.T) {
	o := &config.RenderOptions{Cycles: 4, SampleRate: 1000}
	_, err := o.TotalFrames(0)
	assert.Error(t, err)
}

func TestChannelsFromFlagRecognizesMonoAndStereo(t *testing.T) {
	ch, err := config.ChannelsFromFlag("mono")
	require.NoError(t, err)
	assert.Equal(t, 1, ch)

	ch, err = config.ChannelsFromFlag("stereo")
	require.NoError(t, err)
	assert.Equal(t, 2, ch)

	ch, err = config.ChannelsFromFlag("")
	require.NoError(t, err)
	assert.Equal(t, 2, ch)
}

func TestChannelsFromFlagRejectsUnknownFormat(t *testing.T) {
	_, err := config.ChannelsFromFlag("surround")
	assert.Error(t, err)
}

func TestMidiOptionsRequiresPattern(t *testing.T) {
	o := &config.MidiOptions{Tempo: 120}
	assert.Error(t, o.Validate())
}

func TestMidiOptionsRejectsNonPositiveTempo(t *testing.T) {
	o := &config.MidiOptions{Pattern: "c4", Tempo: 0}
	assert.Error(t, o.Validate())
}

func TestMidiOptionsRejectsOutOfRangeChannel(t *testing.T) {
	o := &config.MidiOptions{Pattern: "c4", Tempo: 120, Channel: 16}
	assert.Error(t, o.Validate())
}

func TestMidiOptionsCPSFromTempo(t *testing.T) {
	o := &config.MidiOptions{Pattern: "c4", Tempo: 120}
	assert.InDelta(t, 0.5, o.CPS(), 1e-9) // 120bpm / 60 / 4 beats-per-cycle
}

func TestMidiOptionsCyclesFromDurationBeats(t *testing.T) {
	o := &config.MidiOptions{DurationBeats: 8}
	assert.InDelta(t, 2, o.Cycles(), 1e-9)
}

func TestRegisterRenderFlagsSetsDefaults(t *testing.T) {
	fs := pflag.NewFlagSet("render", pflag.ContinueOnError)
	o := &config.RenderOptions{}
	config.RegisterRenderFlags(fs, o)
	require.NoError(t, fs.Parse(nil))
	assert.Equal(t, 44100, o.SampleRate)
	assert.Equal(t, 1.0, o.Gain)
	assert.Equal(t, "stereo", o.Format)
}
