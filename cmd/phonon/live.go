package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/cklabs/phonon/internal/config"
	"github.com/cklabs/phonon/internal/control"
	"github.com/cklabs/phonon/internal/dsl"
	"github.com/cklabs/phonon/internal/live"
	"github.com/cklabs/phonon/internal/render"
)

func newLiveCmd() *cobra.Command {
	var opts config.LiveOptions
	var samplesDir string
	var sampleRate int

	cmd := &cobra.Command{
		Use:   "live <file.phonon>",
		Short: "Open a file, play it, and hot-reload on every edit (spec §4.8)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Input = args[0]
			return runLive(cmd.Context(), &opts, samplesDir, sampleRate)
		},
	}
	config.RegisterLiveFlags(cmd.Flags(), &opts)
	cmd.Flags().StringVar(&samplesDir, "samples", "", "root directory of the sample library (spec §6.4)")
	cmd.Flags().IntVar(&sampleRate, "sample-rate", 44100, "output sample rate in Hz")
	return cmd
}

func runLive(ctx context.Context, opts *config.LiveOptions, samplesDir string, sampleRate int) error {
	log := newLogger()

	lib, err := loadLibrary(samplesDir)
	if err != nil {
		return err
	}

	build := dsl.GraphBuildFunc(lib, sampleRate)
	w, err := live.New(opts.Input, build, log)
	if err != nil {
		return fmt.Errorf("live: %w", err)
	}
	if opts.PollMillis > 0 {
		w.SetPollInterval(time.Duration(opts.PollMillis) * time.Millisecond)
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT)
	defer cancel()

	go func() {
		if err := w.Run(ctx); err != nil {
			log.Error().Err(err).Msg("live: watcher stopped")
		}
	}()

	var drain func() []render.BusWrite
	if opts.EnableOSC {
		ring := control.NewRing(256)
		srv := control.NewServer(opts.OSCAddr, ring)
		go func() {
			if err := srv.ListenAndServe(ctx); err != nil {
				log.Error().Err(err).Msg("live: OSC server stopped")
			}
		}()
		log.Info().Str("addr", opts.OSCAddr).Msg("live: OSC control surface listening")

		var buf []control.Write
		drain = func() []render.BusWrite {
			buf = ring.Drain(buf[:0])
			writes := make([]render.BusWrite, len(buf))
			for i, wr := range buf {
				writes[i] = render.BusWrite{Name: wr.Name, Value: wr.Value}
			}
			return writes
		}
	}

	statusColor := color.New(color.FgGreen).SprintFunc()
	fmt.Fprintf(os.Stderr, "%s watching %s, ctrl-c to stop\n", statusColor("phonon"), opts.Input)

	return streamGraph(ctx, w.Current, sampleRate, drain)
}
