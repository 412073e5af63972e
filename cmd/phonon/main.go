// Command phonon is the engine's CLI (spec §6.2): render a program to a
// WAV file, play it once through the default audio device, watch a file
// and hot-swap the graph while playing, or drive a MIDI port from a
// note/melody pattern.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "phonon",
		Short:         "A pattern-and-signal-graph live-coding audio engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRenderCmd(), newPlayCmd(), newLiveCmd(), newMidiCmd())
	return root
}

// newLogger builds the control-thread structured logger (spec §7
// "rate-limited warning on the control thread's log"); render/play/midi
// exit on a fatal error via the returned cobra error instead of logging,
// matching the teacher's "this binary fails fast" split recorded in
// SPEC_FULL.md's AMBIENT STACK section.
func newLogger() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).With().Timestamp().Logger()
}
