package ui

import (
	"fmt"
	"os"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"gitlab.com/gomidi/midi/v2"
	"gopkg.in/yaml.v3"
)

// Keymap maps a typed character to the note it plays.
type Keymap map[rune]midi.Note

// DefaultKeymap lays one octave from C4 on the home row, sharps on the row
// above, like a piano.
func DefaultKeymap() Keymap {
	keys := "awsedftgyhujk"
	m := Keymap{}
	for i, r := range keys {
		m[r] = midi.Note(60 + i)
	}
	return m
}

type keymapFile struct {
	Keys map[string]int `yaml:"keys"`
}

// LoadKeymap reads a YAML file of the form
//
//	keys:
//	  a: 60
//	  w: 61
func LoadKeymap(filename string) (Keymap, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fault.Wrap(err, fmsg.With("read keymap"))
	}
	var f keymapFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fault.Wrap(err, fmsg.With("parse keymap"))
	}
	m := Keymap{}
	for k, v := range f.Keys {
		r := []rune(k)
		if len(r) != 1 {
			return nil, fmt.Errorf("keymap: %q is not a single key", k)
		}
		if v < 0 || v > 127 {
			return nil, fmt.Errorf("keymap: note %d for %q out of range", v, k)
		}
		if reserved(r[0]) {
			return nil, fmt.Errorf("keymap: %q is a command key", k)
		}
		m[r[0]] = midi.Note(v)
	}
	return m, nil
}

// Transpose shifts every note by semitones, dropping those that leave the
// MIDI range.
func (m Keymap) Transpose(semitones int) Keymap {
	out := Keymap{}
	for k, n := range m {
		if v := int(n) + semitones; v >= 0 && v <= 127 {
			out[k] = midi.Note(v)
		}
	}
	return out
}
