package graph

import "github.com/cklabs/phonon/internal/voice"

// voicePoolTap ticks the shared voice pool at most once per sample,
// regardless of how many nodes read from it, caching both channels so the
// left/right reader nodes stay pure single-channel Nodes for the memo map.
type voicePoolTap struct {
	pool       *voice.Pool
	lastTicked uint64
	started    bool
	l, r       float64
}

func (t *voicePoolTap) tick(g *Graph) {
	if t.started && t.lastTicked == g.SampleCounter() {
		return
	}
	l, r := t.pool.Tick()
	t.l, t.r = float64(l), float64(r)
	t.lastTicked = g.SampleCounter()
	t.started = true
}

// VoicePoolLeft and VoicePoolRight are the stereo output taps of a voice
// pool (spec §4.4.1 tick() → stereo_pair). Both should be registered
// against the same pool (via NewVoicePoolOutputs) so they share one tick.
type VoicePoolLeft struct{ tap *voicePoolTap }
type VoicePoolRight struct{ tap *voicePoolTap }

func (v *VoicePoolLeft) eval(g *Graph) float64  { v.tap.tick(g); return v.tap.l }
func (v *VoicePoolRight) eval(g *Graph) float64 { v.tap.tick(g); return v.tap.r }

// NewVoicePoolOutputs registers a pool's left/right tap nodes into g and
// returns their IDs.
func NewVoicePoolOutputs(g *Graph, pool *voice.Pool) (left, right NodeID) {
	tap := &voicePoolTap{pool: pool}
	left = g.AddNode(&VoicePoolLeft{tap: tap})
	right = g.AddNode(&VoicePoolRight{tap: tap})
	return left, right
}
