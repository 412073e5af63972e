package midiout_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2"

	"github.com/cklabs/phonon/internal/midiout"
	"github.com/cklabs/phonon/mini"
)

func TestSchedulePairsNoteOnWithNoteOff(t *testing.T) {
	pat, err := mini.Parse(`c4 e4`)
	require.NoError(t, err)

	events := midiout.Schedule(pat, 1, 1)
	require.Len(t, events, 4)

	ons := 0
	offs := 0
	for _, e := range events {
		if e.On {
			ons++
		} else {
			offs++
		}
	}
	assert.Equal(t, 2, ons)
	assert.Equal(t, 2, offs)
}

func TestScheduleTimingScalesWithCPS(t *testing.T) {
	pat, err := mini.Parse(`c4 e4`)
	require.NoError(t, err)

	events := midiout.Schedule(pat, 1, 2) // cps=2 halves wall-clock time
	require.NotEmpty(t, events)
	assert.InDelta(t, 0, events[0].Time, 1e-9)

	var secondOnset float64
	for _, e := range events {
		if e.On && e.Time > 0 {
			secondOnset = e.Time
			break
		}
	}
	assert.InDelta(t, 0.25, secondOnset, 1e-9) // 0.5 cycle / 2 cps
}

func TestUnparseableNoteIsSkipped(t *testing.T) {
	pat, err := mini.Parse(`bd c4`)
	require.NoError(t, err)

	events := midiout.Schedule(pat, 1, 1)
	// "bd" isn't a valid note name and should be silently dropped.
	require.Len(t, events, 2)
	assert.Equal(t, uint8(60), events[0].Note)
}

func TestWriterPlaysEventsInOrder(t *testing.T) {
	var sent []midi.Message
	w := midiout.NewWriter(func(msg midi.Message) error {
		sent = append(sent, msg)
		return nil
	}, 0)

	events := []midiout.Event{
		{Time: 0, Note: 60, Velocity: 100, On: true},
		{Time: 0.01, Note: 60, Velocity: 0, On: false},
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := w.Play(ctx, events)
	require.NoError(t, err)
	assert.Len(t, sent, 2)
}
