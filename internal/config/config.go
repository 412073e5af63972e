// Package config parses and validates the CLI subcommand flags (spec §6.2),
// in the same spirit as the original reverb-flag validator: a flag value
// comes in as a loosely-typed string or number, and this package is
// responsible for turning it into a concrete, clamped option the rest of
// the engine can trust.
package config

import (
	"fmt"

	"github.com/spf13/pflag"
)

// RenderOptions holds the `render <input> <output.wav>` subcommand's flags.
type RenderOptions struct {
	Input      string
	Output     string
	Cycles     float64
	Duration   float64
	SampleRate int
	Gain       float64
	Format     string // "mono" or "stereo"
}

// RegisterRenderFlags adds the render subcommand's flags to fs.
func RegisterRenderFlags(fs *pflag.FlagSet, o *RenderOptions) {
	fs.Float64Var(&o.Cycles, "cycles", 0, "number of pattern cycles to render")
	fs.Float64Var(&o.Duration, "duration", 0, "duration in seconds to render")
	fs.IntVar(&o.SampleRate, "sample-rate", 44100, "output sample rate in Hz")
	fs.Float64Var(&o.Gain, "gain", 1.0, "output gain multiplier")
	fs.StringVar(&o.Format, "format", "stereo", `output channel layout: "mono" or "stereo"`)
}

// Validate clamps out-of-range parameters to a safe value rather than
// failing (spec §7 kind 3 "Parameter error... clamped to a safe range"),
// and rejects combinations that have no sensible default.
func (o *RenderOptions) Validate() error {
	if o.Cycles <= 0 && o.Duration <= 0 {
		return fmt.Errorf("config: one of --cycles or --duration must be positive")
	}
	if o.Cycles > 0 && o.Duration > 0 {
		return fmt.Errorf("config: --cycles and --duration are mutually exclusive")
	}
	if o.SampleRate <= 0 {
		o.SampleRate = 44100
	}
	if o.Gain < 0 {
		o.Gain = 0
	}
	return nil
}

// TotalFrames converts the configured Cycles or Duration into a frame
// count, given the graph's cycles-per-second rate.
func (o *RenderOptions) TotalFrames(cps float64) (int, error) {
	if o.Duration > 0 {
		return int(o.Duration * float64(o.SampleRate)), nil
	}
	if cps <= 0 {
		return 0, fmt.Errorf("config: cannot convert %g cycles to frames at cps=%g", o.Cycles, cps)
	}
	seconds := o.Cycles / cps
	return int(seconds * float64(o.SampleRate)), nil
}

// ChannelsFromFlag validates a --format value, returning the channel count
// it designates. Unrecognized values are a configuration error, matching
// the teacher's reverb-level switch: known names map to concrete settings,
// everything else is rejected rather than silently guessed at.
func ChannelsFromFlag(format string) (channels int, err error) {
	switch format {
	case "mono":
		channels = 1
	case "stereo", "":
		channels = 2
	default:
		err = fmt.Errorf("config: unrecognized output format %q", format)
	}
	return channels, err
}

// PlayOptions holds the `play <input>` subcommand's flags.
type PlayOptions struct {
	Input    string
	Duration float64
}

func RegisterPlayFlags(fs *pflag.FlagSet, o *PlayOptions) {
	fs.Float64Var(&o.Duration, "duration", 0, "duration in seconds to play, 0 = until interrupted (ctrl-c)")
}

// LiveOptions holds the `live <file.phonon>` subcommand's flags.
type LiveOptions struct {
	Input      string
	PollMillis int
	OSCAddr    string
	EnableOSC  bool
}

func RegisterLiveFlags(fs *pflag.FlagSet, o *LiveOptions) {
	fs.IntVar(&o.PollMillis, "poll-ms", 100, "wall-clock poll interval in milliseconds")
	fs.StringVar(&o.OSCAddr, "osc-addr", "127.0.0.1:9000", "address to listen for OSC control messages")
	fs.BoolVar(&o.EnableOSC, "osc", false, "enable the OSC control surface")
}

// MidiOptions holds the `midi` subcommand's flags.
type MidiOptions struct {
	Pattern       string
	Tempo         float64
	DurationBeats float64
	Channel       int
	PortName      string
}

func RegisterMidiFlags(fs *pflag.FlagSet, o *MidiOptions) {
	fs.StringVar(&o.Pattern, "pattern", "", "note/melody mini-notation pattern to play")
	fs.Float64Var(&o.Tempo, "tempo", 120, "tempo in beats per minute")
	fs.Float64Var(&o.DurationBeats, "duration", 4, "duration in beats")
	fs.IntVar(&o.Channel, "channel", 0, "MIDI channel (0-15)")
	fs.StringVar(&o.PortName, "port", "", "MIDI output port name, empty = first available")
}

// Validate rejects a MidiOptions with no pattern or a non-positive tempo.
func (o *MidiOptions) Validate() error {
	if o.Pattern == "" {
		return fmt.Errorf("config: --pattern is required")
	}
	if o.Tempo <= 0 {
		return fmt.Errorf("config: --tempo must be positive")
	}
	if o.Channel < 0 || o.Channel > 15 {
		return fmt.Errorf("config: --channel must be between 0 and 15")
	}
	return nil
}

// CPS converts a BPM tempo (one beat = one quarter-cycle, four beats per
// cycle) into cycles per second for midiout.Schedule.
func (o *MidiOptions) CPS() float64 {
	return o.Tempo / 60 / 4
}

// Cycles converts DurationBeats into a cycle count for midiout.Schedule.
func (o *MidiOptions) Cycles() float64 {
	return o.DurationBeats / 4
}
