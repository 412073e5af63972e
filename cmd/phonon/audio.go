package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gordonklaus/portaudio"

	"github.com/cklabs/phonon/internal/graph"
	"github.com/cklabs/phonon/internal/render"
)

// streamGraph opens the default output device and pulls frames from
// whatever current() returns at the top of each callback (spec §4.7
// "Scheduling model": the audio device drives a single audio thread via a
// pull callback; a live-reloaded graph is read through a single atomic
// pointer, never locked — current is that read, owned by whichever caller
// holds the atomic slot: live.Watcher.Current for `live`, a fixed graph for
// `play`). drain, if non-nil, is polled once per callback for pending bus
// writes, applied before BeginBlock.
//
// It blocks until ctx is cancelled or SIGINT arrives.
func streamGraph(ctx context.Context, current func() *graph.Graph, sampleRate int, drain func() []render.BusWrite) error {
	cb := func(out [][]float32) {
		g := current()
		if g == nil {
			for ch := range out {
				for i := range out[ch] {
					out[ch][i] = 0
				}
			}
			return
		}
		if drain != nil {
			for _, w := range drain() {
				g.WriteBus(w.Name, w.Value)
			}
		}
		g.BeginBlock()
		left, right, _ := g.Stereo()
		ids := []graph.NodeID{left, right}
		for i := range out[0] {
			pair := g.ProcessSampleMulti(ids)
			out[0][i] = pair[0]
			out[1][i] = pair[1]
		}
	}

	if err := portaudio.Initialize(); err != nil {
		return err
	}
	defer portaudio.Terminate()

	stream, err := portaudio.OpenDefaultStream(0, 2, float64(sampleRate), portaudio.FramesPerBufferUnspecified, cb)
	if err != nil {
		return err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return err
	}
	defer stream.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT)
	defer signal.Stop(sigCh)

	select {
	case <-ctx.Done():
	case <-sigCh:
	}
	return nil
}
