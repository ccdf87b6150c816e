package drumengine

// MaxSongParts is the largest number of main parts a song may declare.
const MaxSongParts = 32

// TicksPerBeat is the MIDI-style tick resolution used throughout the
// engine's tick clock.
const TicksPerBeat = 480

// EventType enumerates the event-stream record kinds a Section carries.
type EventType uint8

const (
	EventNoteOn EventType = iota
	EventNoteOff
	EventTempo
	EventAccentHit
	EventEnd
)

// Event is one entry in a section's delta-tick event stream.
type Event struct {
	DeltaTicks uint32
	Type       EventType
	Note       uint8 // EventNoteOn/EventNoteOff
	Velocity   uint8 // EventNoteOn
	Tempo      uint16 // EventTempo, BPM
}

// TimeSignature is a {numerator, denominator} pair, e.g. {4, 4}.
type TimeSignature struct {
	Num uint8
	Den uint8
}

// Section is one playable fragment of a song: an intro, a main part, a
// drum fill, a transition fill, or the outro. Every section carries its
// own tick length, bar length, time signature and tempo so that sections
// can be sequenced independently without reaching back into song-level
// defaults mid-playback.
type Section struct {
	Events        []Event
	LengthTicks   uint32
	BarLenTicks   uint32
	TimeSignature TimeSignature
	TempoBPM      uint16
}

// Part is one main song part: its primary section plus its drum fills.
type Part struct {
	Main       Section
	DrumFills  []Section
	EffectName string // accent-hit effect file name, may be empty
	LoopCount  uint16
}

// Song is the fully parsed song bundle: intro, ordered main parts,
// inter-part transition fills, and an optional outro.
type Song struct {
	DefaultTempoBPM     uint16
	DefaultTimeSig      TimeSignature
	Intro               *Section // nil if absent
	Parts               []Part   // 1..MaxSongParts
	TransitionFills     []Section // one per part boundary, parts[i] -> parts[i+1 mod len]
	Outro               *Section // nil if absent
}

// referencedInstruments collects every MIDI note number that appears in any
// EventNoteOn/EventNoteOff event across every section of the song, used by
// Drumset.Resolve to validate cross-bundle integrity before first note_on.
func (s *Song) referencedInstruments() map[uint8]struct{} {
	notes := make(map[uint8]struct{})
	add := func(sec *Section) {
		if sec == nil {
			return
		}
		for _, e := range sec.Events {
			if e.Type == EventNoteOn || e.Type == EventNoteOff {
				notes[e.Note] = struct{}{}
			}
		}
	}

	add(s.Intro)
	add(s.Outro)
	for i := range s.Parts {
		add(&s.Parts[i].Main)
		for j := range s.Parts[i].DrumFills {
			add(&s.Parts[i].DrumFills[j])
		}
	}
	for i := range s.TransitionFills {
		add(&s.TransitionFills[i])
	}

	return notes
}
