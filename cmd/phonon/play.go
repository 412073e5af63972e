package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cklabs/phonon/internal/config"
	"github.com/cklabs/phonon/internal/dsl"
	"github.com/cklabs/phonon/internal/graph"
)

func newPlayCmd() *cobra.Command {
	var opts config.PlayOptions
	var samplesDir string

	cmd := &cobra.Command{
		Use:   "play <input.phonon>",
		Short: "Play a program once through the default audio device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Input = args[0]
			return runPlay(&opts, samplesDir)
		},
	}
	config.RegisterPlayFlags(cmd.Flags(), &opts)
	cmd.Flags().StringVar(&samplesDir, "samples", "", "root directory of the sample library (spec §6.4)")
	return cmd
}

const defaultPlaySampleRate = 44100

func runPlay(opts *config.PlayOptions, samplesDir string) error {
	src, err := os.ReadFile(opts.Input)
	if err != nil {
		return fmt.Errorf("play: reading %s: %w", opts.Input, err)
	}

	lib, err := loadLibrary(samplesDir)
	if err != nil {
		return err
	}

	c, err := dsl.Compile(string(src), lib, defaultPlaySampleRate)
	if err != nil {
		return fmt.Errorf("play: %w", err)
	}

	ctx := context.Background()
	if opts.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(opts.Duration*float64(time.Second)))
		defer cancel()
	}

	return streamGraph(ctx, func() *graph.Graph { return c.Graph }, defaultPlaySampleRate, nil)
}
