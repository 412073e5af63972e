package graph

import (
	"strconv"

	"github.com/cklabs/phonon/internal/samplelib"
	"github.com/cklabs/phonon/internal/voice"
	"github.com/cklabs/phonon/pattern"
	"github.com/cklabs/phonon/rational"
)

// SampleNode triggers voices from a Pattern<string> of sample names: on
// each new Hap's begin time it triggers the voice pool with parameters
// extracted from the Hap's context (spec §4.5.3 "Sample node"). Its own
// eval always returns 0 — audio comes from the voice pool's own tap nodes
// (VoicePoolLeft/Right), not from this node directly, matching the spec's
// "its output comes from the voice manager pool, not from this node
// directly."
//
// Because triggering must happen every sample regardless of whether this
// node sits on the path to Output, the graph evaluates every registered
// sample-trigger node unconditionally each ProcessSample call (see
// Graph.AddSampleTrigger).
type SampleNode struct {
	Pat      pattern.Pattern[string]
	Lib      *samplelib.Library
	Pool     *voice.Pool
	CutGroup int // static cut group for this node's voices; 0 = none
}

func NewSampleNode(pat pattern.Pattern[string], lib *samplelib.Library, pool *voice.Pool) *SampleNode {
	return &SampleNode{Pat: pat, Lib: lib, Pool: pool}
}

func (s *SampleNode) eval(g *Graph) float64 {
	cyc := rational.FromFloat(g.Cycle())
	eps := rational.FromFloat(patternEpsilon)
	span := rational.NewSpan(cyc, cyc.Add(eps))
	// The probe is wider than one sample's cycle step, so an onset is taken
	// only on the sample whose step contains it, not again on later samples
	// whose probe still reaches it.
	next := rational.FromFloat(g.Cycle() + g.cps/float64(g.SampleRate))

	for _, h := range s.Pat.QuerySpan(span, g.busValues) {
		if !h.HasOnset() || !h.Whole.Begin.Lt(next) {
			continue
		}
		s.trigger(h)
	}
	return 0
}

func (s *SampleNode) trigger(h pattern.Hap[string]) {
	idx := intCtx(h.Context, "sample_index", 0)
	buf, ok := s.Lib.Get(h.Value, idx)
	if !ok {
		return // reference error: unknown sample name silently yields nothing (spec §7 kind 2)
	}

	begin := floatCtx(h.Context, "begin", 0)
	end := floatCtx(h.Context, "end", 1)
	if begin != 0 || end != 1 {
		n := len(buf.Samples)
		b := clampIdx(int(begin*float64(n)), 0, n)
		e := clampIdx(int(end*float64(n)), b, n)
		buf = samplelib.Buffer{Samples: buf.Samples[b:e], SampleRate: buf.SampleRate}
	}

	speed := floatCtx(h.Context, "speed", 1)
	gain := floatCtx(h.Context, "gain", 1)
	pan := floatCtx(h.Context, "pan", 0)
	cutGroup := intCtx(h.Context, "cut_group", s.CutGroup)

	s.Pool.Trigger(voice.TriggerParams{
		Buffer:   buf,
		Speed:    speed,
		Gain:     gain,
		Pan:      pan,
		CutGroup: cutGroup,
	})
}

func clampIdx(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func floatCtx(ctx map[string]string, key string, def float64) float64 {
	v, ok := ctx[key]
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func intCtx(ctx map[string]string, key string, def int) int {
	v, ok := ctx[key]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
