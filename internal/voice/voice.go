// Package voice implements the polyphonic voice pool (spec §4.4 C5): a
// fixed-capacity set of sample-playback voices with cut-group stealing,
// linear-interpolated playback, equal-power stereo panning and an optional
// ADSR envelope. The playback and mixing shape is grounded on the teacher's
// tick-based channel mixer (mixer_scalar.go): a fixed-point-style play
// position advanced by a per-voice rate each output sample. Pool.Tick sums
// the active voices into one stereo sample per call.
package voice

import (
	"math"

	"github.com/cklabs/phonon/internal/samplelib"
)

// EnvParams configures an optional ADSR: linear attack, exponential decay
// and release, with sustain clamped to [0,1] (spec §4.4.4, decided in favor
// of the exponential-decay/release variant per the engine's Open Question
// resolution).
type EnvParams struct {
	AttackSec, DecaySec, ReleaseSec float64
	Sustain                         float64
}

func (e EnvParams) clampedSustain() float64 {
	if e.Sustain < 0 {
		return 0
	}
	if e.Sustain > 1 {
		return 1
	}
	return e.Sustain
}

type envStage int

const (
	envIdle envStage = iota
	envAttack
	envDecay
	envSustain
	envRelease
)

type envelope struct {
	params EnvParams
	stage  envStage
	level  float64
	srInv  float64 // 1/sampleRate
}

func newEnvelope(p EnvParams, sampleRate int) *envelope {
	return &envelope{params: p, stage: envAttack, srInv: 1.0 / float64(sampleRate)}
}

// tick advances the envelope by one sample and returns its current level.
func (e *envelope) tick() float64 {
	p := e.params
	switch e.stage {
	case envAttack:
		if p.AttackSec <= 0 {
			e.level = 1
			e.stage = envDecay
			return e.level
		}
		e.level += e.srInv / p.AttackSec
		if e.level >= 1 {
			e.level = 1
			e.stage = envDecay
		}
	case envDecay:
		target := p.clampedSustain()
		if p.DecaySec <= 0 {
			e.level = target
			e.stage = envSustain
			return e.level
		}
		// exponential approach: close 1/e of the remaining gap per DecaySec.
		coeff := math.Exp(-e.srInv / p.DecaySec)
		e.level = target + (e.level-target)*coeff
		if math.Abs(e.level-target) < 1e-4 {
			e.level = target
			e.stage = envSustain
		}
	case envSustain:
		e.level = p.clampedSustain()
	case envRelease:
		if p.ReleaseSec <= 0 {
			e.level = 0
			e.stage = envIdle
			return e.level
		}
		coeff := math.Exp(-e.srInv / p.ReleaseSec)
		e.level *= coeff
		if e.level < 1e-4 {
			e.level = 0
			e.stage = envIdle
		}
	}
	return e.level
}

func (e *envelope) release() {
	if e.stage != envIdle {
		e.stage = envRelease
	}
}

func (e *envelope) done() bool { return e.stage == envIdle }

// TriggerParams is the full set of parameters passed to Trigger (spec
// §4.4.1 `trigger(buffer_ref, speed, gain, pan, cut_group, env_params)`).
type TriggerParams struct {
	Buffer   samplelib.Buffer
	Speed    float64
	Gain     float64
	Pan      float64 // [-1,1]
	CutGroup int     // 0 = no cut group
	Env      *EnvParams
}

type voiceState struct {
	active   bool
	buf      samplelib.Buffer
	pos      float64
	speed    float64
	gain     float64
	pan      float64
	cutGroup int
	age      uint64
	env      *envelope
}

// Pool is a fixed-capacity voice pool. It is not safe for concurrent use —
// the spec's concurrency model has the audio thread as the sole mutator of
// voice state (§5).
type Pool struct {
	voices     []voiceState
	ageCounter uint64
	sampleRate int
}

const defaultCapacity = 128

// NewPool builds a pool with the given capacity (0 uses the engine default
// of 128, within the spec's observed 64-256 range).
func NewPool(capacity int, sampleRate int) *Pool {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Pool{voices: make([]voiceState, capacity), sampleRate: sampleRate}
}

// Active reports how many voices are currently sounding, for diagnostics.
func (p *Pool) Active() int {
	n := 0
	for i := range p.voices {
		if p.voices[i].active {
			n++
		}
	}
	return n
}

// Trigger activates a voice for params, applying the allocation policy:
// cut any voice sharing a positive cut_group, else take the first inactive
// voice, else steal the oldest active voice (spec §4.4.2).
func (p *Pool) Trigger(params TriggerParams) {
	if params.CutGroup > 0 {
		for i := range p.voices {
			v := &p.voices[i]
			if v.active && v.cutGroup == params.CutGroup {
				if v.env != nil {
					v.env.release()
				} else {
					v.active = false
				}
			}
		}
	}

	idx := -1
	for i := range p.voices {
		if !p.voices[i].active {
			idx = i
			break
		}
	}
	if idx == -1 {
		oldest := 0
		for i := range p.voices {
			if p.voices[i].age < p.voices[oldest].age {
				oldest = i
			}
		}
		idx = oldest
	}

	p.ageCounter++
	var env *envelope
	if params.Env != nil {
		env = newEnvelope(*params.Env, p.sampleRate)
	}
	p.voices[idx] = voiceState{
		active:   true,
		buf:      params.Buffer,
		pos:      0,
		speed:    params.Speed,
		gain:     params.Gain,
		pan:      params.Pan,
		cutGroup: params.CutGroup,
		age:      p.ageCounter,
		env:      env,
	}
}

// Hush immediately deactivates every voice (spec §7 "panic/hush").
func (p *Pool) Hush() {
	for i := range p.voices {
		p.voices[i].active = false
	}
}

// Tick advances every active voice by one output sample, sums their
// contributions, and returns the stereo pair (spec §4.4.1, §4.4.3).
func (p *Pool) Tick() (left, right float32) {
	var l, r float64
	for i := range p.voices {
		v := &p.voices[i]
		if !v.active {
			continue
		}
		sample := voiceSample(v)

		gain := v.gain
		if v.env != nil {
			gain *= v.env.tick()
		}

		angle := (v.pan + 1) * math.Pi / 4
		l += float64(sample) * gain * math.Cos(angle)
		r += float64(sample) * gain * math.Sin(angle)

		v.pos += v.speed
		if int(v.pos) >= len(v.buf.Samples)-1 {
			if v.env != nil && !v.env.done() {
				// buffer ran out before release finished: hold the tail
				// sample's gain decay rather than clicking to silence.
				v.pos = float64(len(v.buf.Samples) - 1)
			} else {
				v.active = false
			}
		}
		if v.env != nil && v.env.done() {
			v.active = false
		}
	}

	l = math.Tanh(l) * 0.8
	r = math.Tanh(r) * 0.8
	return float32(l), float32(r)
}

// voiceSample linearly interpolates the voice's buffer at its current
// fractional position (spec §4.4.3).
func voiceSample(v *voiceState) float64 {
	n := len(v.buf.Samples)
	if n == 0 {
		return 0
	}
	i := int(v.pos)
	if i >= n-1 {
		return float64(v.buf.Samples[n-1])
	}
	frac := v.pos - float64(i)
	a := float64(v.buf.Samples[i])
	b := float64(v.buf.Samples[i+1])
	return a*(1-frac) + b*frac
}
