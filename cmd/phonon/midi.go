package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // registers the system's real-time MIDI driver

	"github.com/cklabs/phonon/internal/config"
	"github.com/cklabs/phonon/internal/midiout"
	"github.com/cklabs/phonon/mini"
)

func newMidiCmd() *cobra.Command {
	var opts config.MidiOptions

	cmd := &cobra.Command{
		Use:   "midi",
		Short: "Play a note/melody pattern over a MIDI output port (spec §6.2)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMidi(cmd.Context(), &opts)
		},
	}
	config.RegisterMidiFlags(cmd.Flags(), &opts)
	return cmd
}

func runMidi(ctx context.Context, opts *config.MidiOptions) error {
	if err := opts.Validate(); err != nil {
		return err
	}

	pat, err := mini.Parse(opts.Pattern)
	if err != nil {
		return fmt.Errorf("midi: %w", err)
	}

	out, err := findMIDIOutPort(opts.PortName)
	if err != nil {
		return fmt.Errorf("midi: %w", err)
	}
	defer midi.CloseDriver()

	send, err := midi.SendTo(out)
	if err != nil {
		return fmt.Errorf("midi: opening %s: %w", out, err)
	}

	events := midiout.Schedule(pat, opts.Cycles(), opts.CPS())
	writer := midiout.NewWriter(send, uint8(opts.Channel))

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT)
	defer cancel()

	return writer.Play(ctx, events)
}

func findMIDIOutPort(name string) (drivers.Out, error) {
	outs := midi.OutPorts()
	if len(outs) == 0 {
		return nil, fmt.Errorf("no MIDI output ports available")
	}
	if name == "" {
		return outs[0], nil
	}
	return midi.FindOutPort(name)
}
