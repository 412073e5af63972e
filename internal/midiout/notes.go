package midiout

import (
	"fmt"
	"strconv"
	"strings"
)

var pitchClass = map[byte]int{
	'c': 0, 'd': 2, 'e': 4, 'f': 5, 'g': 7, 'a': 9, 'b': 11,
}

// NoteToMIDI parses scientific pitch notation (spec §6.1 "note/melody
// patterns: c4 e4 g4") into a MIDI key number: c4 is middle C (60), each
// octave spans 12 semitones. '#'/'s' raise a semitone, 'b'/'f' lower one;
// at most one accidental is accepted.
func NoteToMIDI(name string) (uint8, error) {
	s := strings.ToLower(strings.TrimSpace(name))
	if s == "" {
		return 0, fmt.Errorf("midiout: empty note name")
	}
	base, ok := pitchClass[s[0]]
	if !ok {
		return 0, fmt.Errorf("midiout: %q is not a note letter a-g", name)
	}
	rest := s[1:]

	accidental := 0
	if len(rest) > 0 {
		switch rest[0] {
		case '#', 's':
			accidental = 1
			rest = rest[1:]
		case 'b', 'f':
			accidental = -1
			rest = rest[1:]
		}
	}

	octave := 4
	if rest != "" {
		o, err := strconv.Atoi(rest)
		if err != nil {
			return 0, fmt.Errorf("midiout: %q has an invalid octave: %w", name, err)
		}
		octave = o
	}

	midi := (octave+1)*12 + base + accidental
	if midi < 0 || midi > 127 {
		return 0, fmt.Errorf("midiout: %q resolves to out-of-range MIDI key %d", name, midi)
	}
	return uint8(midi), nil
}
