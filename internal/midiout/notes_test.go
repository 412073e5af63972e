package midiout_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cklabs/phonon/internal/midiout"
)

func TestMiddleCIsSixty(t *testing.T) {
	n, err := midiout.NoteToMIDI("c4")
	require.NoError(t, err)
	assert.Equal(t, uint8(60), n)
}

func TestSharpRaisesOneSemitone(t *testing.T) {
	sharp, err := midiout.NoteToMIDI("c#4")
	require.NoError(t, err)
	natural, err := midiout.NoteToMIDI("c4")
	require.NoError(t, err)
	assert.Equal(t, natural+1, sharp)
}

func TestFlatLowersOneSemitone(t *testing.T) {
	flat, err := midiout.NoteToMIDI("db4")
	require.NoError(t, err)
	natural, err := midiout.NoteToMIDI("d4")
	require.NoError(t, err)
	assert.Equal(t, natural-1, flat)
}

func TestOctaveStepIsTwelveSemitones(t *testing.T) {
	c4, err := midiout.NoteToMIDI("c4")
	require.NoError(t, err)
	c5, err := midiout.NoteToMIDI("c5")
	require.NoError(t, err)
	assert.Equal(t, uint8(12), c5-c4)
}

func TestDefaultOctaveIsFour(t *testing.T) {
	n, err := midiout.NoteToMIDI("c")
	require.NoError(t, err)
	assert.Equal(t, uint8(60), n)
}

func TestInvalidLetterErrors(t *testing.T) {
	_, err := midiout.NoteToMIDI("h4")
	assert.Error(t, err)
}

func TestEmptyNameErrors(t *testing.T) {
	_, err := midiout.NoteToMIDI("")
	assert.Error(t, err)
}
