// Package midiout translates Hap onsets from a note/melody pattern (spec
// §6.1) into MIDI note-on/note-off messages over gomidi/midi/v2, for the
// `midi` CLI subcommand (§6.2). It runs at event rate, not sample rate —
// the core signal graph never depends on this package.
package midiout

import (
	"context"
	"sort"
	"strconv"
	"time"

	"gitlab.com/gomidi/midi/v2"

	"github.com/cklabs/phonon/pattern"
	"github.com/cklabs/phonon/rational"
)

// Event is one scheduled MIDI event, with Time measured in seconds from the
// start of playback.
type Event struct {
	Time     float64
	Note     uint8
	Velocity uint8
	On       bool
}

const defaultVelocity = 100

// Schedule queries pat over [0, cycles) and converts each onset Hap into a
// NoteOn/NoteOff pair, using cps to convert cycle time to wall-clock
// seconds. Haps whose value doesn't parse as a note name are skipped
// (reference/parameter error policy, spec §7 kinds 2-3).
func Schedule(pat pattern.Pattern[string], cycles float64, cps float64) []Event {
	span := rational.NewSpan(rational.FromFloat(0), rational.FromFloat(cycles))
	haps := pat.QuerySpan(span, nil)

	var events []Event
	for _, h := range haps {
		if !h.HasOnset() {
			continue
		}
		note, err := NoteToMIDI(h.Value)
		if err != nil {
			continue
		}
		vel := velocityFromContext(h.Context)

		onTime := h.Part.Begin.Float64() / cps
		endCycle := h.Part.End
		if h.Whole != nil {
			endCycle = h.Whole.End
		}
		offTime := endCycle.Float64() / cps
		if offTime <= onTime {
			offTime = onTime + 0.001
		}

		events = append(events,
			Event{Time: onTime, Note: note, Velocity: vel, On: true},
			Event{Time: offTime, Note: note, Velocity: 0, On: false},
		)
	}

	sort.SliceStable(events, func(i, j int) bool { return events[i].Time < events[j].Time })
	return events
}

func velocityFromContext(ctx map[string]string) uint8 {
	if ctx == nil {
		return defaultVelocity
	}
	g, ok := ctx["gain"]
	if !ok {
		return defaultVelocity
	}
	f, err := strconv.ParseFloat(g, 64)
	if err != nil {
		return defaultVelocity
	}
	v := int(f * 127)
	if v < 1 {
		v = 1
	}
	if v > 127 {
		v = 127
	}
	return uint8(v)
}

// Sender transmits a raw MIDI message, matching midi.SendTo's returned
// function signature so callers can wire this directly to an open port.
type Sender func(msg midi.Message) error

// Writer drives a Sender from a schedule of Events in real time.
type Writer struct {
	send    Sender
	channel uint8
}

// NewWriter builds a Writer emitting on the given MIDI channel (0-15).
func NewWriter(send Sender, channel uint8) *Writer {
	return &Writer{send: send, channel: channel}
}

// Play sleeps between successive event times (measured from the moment
// Play is called) and sends each as it comes due, stopping early if ctx is
// cancelled.
func (w *Writer) Play(ctx context.Context, events []Event) error {
	start := time.Now()
	for _, ev := range events {
		target := start.Add(time.Duration(ev.Time * float64(time.Second)))
		if wait := time.Until(target); wait > 0 {
			t := time.NewTimer(wait)
			select {
			case <-t.C:
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			}
		}

		var msg midi.Message
		if ev.On {
			msg = midi.NoteOn(w.channel, ev.Note, ev.Velocity)
		} else {
			msg = midi.NoteOff(w.channel, ev.Note)
		}
		if err := w.send(msg); err != nil {
			return err
		}
	}
	return nil
}
