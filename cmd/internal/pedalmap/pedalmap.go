// Package pedalmap maps keyboard runes to drumengine pedal events, the
// keyboard-driven stand-in for real pedal hardware used by cmd/drumplay.
package pedalmap

import (
	"fmt"

	"github.com/tsasaki/drumengine"
)

// FromRune maps a single key press to the pedal event it simulates.
// Unmapped keys return ok=false.
func FromRune(r rune) (drumengine.PedalEvent, bool) {
	switch r {
	case ' ':
		return drumengine.PedalPress, true
	case 'l':
		return drumengine.PedalLongPress, true
	case 'd':
		return drumengine.PedalMultiTap, true
	case 'e':
		return drumengine.FootSecondaryPress, true
	case 'r':
		return drumengine.PedalRelease, true
	default:
		return 0, false
	}
}

// FromFlag maps a named pedal event string (used by cmd/drumwav's
// -pedals script) to a drumengine.PedalEvent.
func FromFlag(name string) (drumengine.PedalEvent, error) {
	switch name {
	case "press":
		return drumengine.PedalPress, nil
	case "release":
		return drumengine.PedalRelease, nil
	case "long-press":
		return drumengine.PedalLongPress, nil
	case "double-tap":
		return drumengine.PedalMultiTap, nil
	case "effect":
		return drumengine.FootSecondaryPress, nil
	default:
		return 0, fmt.Errorf("unknown pedal event %q", name)
	}
}
