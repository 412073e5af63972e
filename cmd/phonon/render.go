package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cklabs/phonon/internal/config"
	"github.com/cklabs/phonon/internal/dsl"
	"github.com/cklabs/phonon/internal/render"
	"github.com/cklabs/phonon/internal/samplelib"
	"github.com/cklabs/phonon/wav"
)

func newRenderCmd() *cobra.Command {
	var opts config.RenderOptions
	var samplesDir string

	cmd := &cobra.Command{
		Use:   "render <input.phonon> <output.wav>",
		Short: "Render a program to a WAV file (spec §6.3)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Input, opts.Output = args[0], args[1]
			if err := opts.Validate(); err != nil {
				return err
			}
			return runRender(&opts, samplesDir)
		},
	}
	config.RegisterRenderFlags(cmd.Flags(), &opts)
	cmd.Flags().StringVar(&samplesDir, "samples", "", "root directory of the sample library (spec §6.4)")
	return cmd
}

func runRender(opts *config.RenderOptions, samplesDir string) error {
	src, err := os.ReadFile(opts.Input)
	if err != nil {
		return fmt.Errorf("render: reading %s: %w", opts.Input, err)
	}

	lib, err := loadLibrary(samplesDir)
	if err != nil {
		return err
	}

	c, err := dsl.Compile(string(src), lib, opts.SampleRate)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}

	channels, err := config.ChannelsFromFlag(opts.Format)
	if err != nil {
		return err
	}
	totalFrames, err := opts.TotalFrames(c.Graph.CPS())
	if err != nil {
		return err
	}

	f, err := os.Create(opts.Output)
	if err != nil {
		return fmt.Errorf("render: creating %s: %w", opts.Output, err)
	}
	defer f.Close()

	ww, err := wav.NewWriter(f, opts.SampleRate, channels)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}

	renderOpts := render.DefaultOptions()
	if channels == 1 {
		mono := render.Mono(c.Graph, totalFrames, renderOpts, nil)
		if err := ww.WriteFrame([][]int16{toPCM16(mono, opts.Gain)}); err != nil {
			return fmt.Errorf("render: writing %s: %w", opts.Output, err)
		}
	} else {
		left, right := render.Stereo(c.Graph, c.Left, c.Right, totalFrames, renderOpts, nil)
		frame := [][]int16{toPCM16(left, opts.Gain), toPCM16(right, opts.Gain)}
		if err := ww.WriteFrame(frame); err != nil {
			return fmt.Errorf("render: writing %s: %w", opts.Output, err)
		}
	}

	if _, err := ww.Finish(); err != nil {
		return fmt.Errorf("render: finishing %s: %w", opts.Output, err)
	}
	return nil
}

// toPCM16 applies gain and clamps before quantizing (spec §7 kind 5 "NaN/Inf
// samples... Clamped at output").
func toPCM16(samples []float32, gain float64) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		v := float64(s) * gain
		switch {
		case v > 1:
			v = 1
		case v < -1:
			v = -1
		}
		out[i] = int16(v * 32767)
	}
	return out
}

func loadLibrary(dir string) (*samplelib.Library, error) {
	if dir == "" {
		return nil, nil
	}
	lib, err := samplelib.Load(dir)
	if err != nil {
		return nil, fmt.Errorf("loading sample library %s: %w", dir, err)
	}
	return lib, nil
}
