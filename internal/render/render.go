// Package render implements the block-rate renderer (spec §4.6 C7): it
// ties a graph.Graph's per-sample evaluation to wall-clock/cycle time,
// applying pending bus writes at block boundaries and a fade in/out
// post-pass over the finished buffer.
package render

import (
	"github.com/cklabs/phonon/internal/graph"
)

// BusWrite is one pending control write, applied at the next block
// boundary in arrival order (spec §4.5.5, §6.5).
type BusWrite struct {
	Name  string
	Value float64
}

// Options configures a render run.
type Options struct {
	BlockSize   int
	FadeInSamp  int
	FadeOutSamp int
}

// DefaultOptions returns a typical block size with short fades applied to
// avoid a click at buffer start/end.
func DefaultOptions() Options {
	return Options{BlockSize: 256, FadeInSamp: 64, FadeOutSamp: 64}
}

// Mono renders totalFrames mono samples from g, draining pendingWrites (if
// non-nil) once per block before processing that block's samples (spec
// §4.6's renderer loop).
func Mono(g *graph.Graph, totalFrames int, opts Options, pendingWrites func() []BusWrite) []float32 {
	if opts.BlockSize <= 0 {
		opts.BlockSize = 256
	}
	out := make([]float32, totalFrames)

	for start := 0; start < totalFrames; start += opts.BlockSize {
		applyPending(g, pendingWrites)
		g.BeginBlock()

		end := start + opts.BlockSize
		if end > totalFrames {
			end = totalFrames
		}
		for i := start; i < end; i++ {
			out[i] = g.ProcessSample()
		}
	}

	applyFades(out, opts.FadeInSamp, opts.FadeOutSamp)
	return out
}

// Stereo renders totalFrames stereo frames, evaluating leftID/rightID once
// per sample with shared memoization (spec §4.6 "nodes shared across
// output channels memoize").
func Stereo(g *graph.Graph, leftID, rightID graph.NodeID, totalFrames int, opts Options, pendingWrites func() []BusWrite) (left, right []float32) {
	if opts.BlockSize <= 0 {
		opts.BlockSize = 256
	}
	left = make([]float32, totalFrames)
	right = make([]float32, totalFrames)

	ids := []graph.NodeID{leftID, rightID}
	for start := 0; start < totalFrames; start += opts.BlockSize {
		applyPending(g, pendingWrites)
		g.BeginBlock()

		end := start + opts.BlockSize
		if end > totalFrames {
			end = totalFrames
		}
		for i := start; i < end; i++ {
			pair := g.ProcessSampleMulti(ids)
			left[i], right[i] = pair[0], pair[1]
		}
	}

	applyFades(left, opts.FadeInSamp, opts.FadeOutSamp)
	applyFades(right, opts.FadeInSamp, opts.FadeOutSamp)
	return left, right
}

func applyPending(g *graph.Graph, pendingWrites func() []BusWrite) {
	if pendingWrites == nil {
		return
	}
	for _, w := range pendingWrites() {
		g.WriteBus(w.Name, w.Value)
	}
}

// applyFades multiplies the first fadeIn and last fadeOut samples by a
// linear ramp (spec §4.6 "Applying fades... is a post-pass").
func applyFades(buf []float32, fadeIn, fadeOut int) {
	n := len(buf)
	if fadeIn > n {
		fadeIn = n
	}
	if fadeOut > n {
		fadeOut = n
	}
	for i := 0; i < fadeIn; i++ {
		buf[i] *= float32(i) / float32(fadeIn)
	}
	for i := 0; i < fadeOut; i++ {
		idx := n - 1 - i
		buf[idx] *= float32(i) / float32(fadeOut)
	}
}
