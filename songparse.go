package drumengine

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Song bundle chunk tags. Sections are delimited the same chunked way the
// drumset bundle is: magic header, then a flat list of {tag, length,
// payload} records, unknown tags skipped.
const (
	songMagic = "SNG1"

	chunkHeader   = "HEAD"
	chunkIntro    = "INTR"
	chunkPart     = "PART"
	chunkDrumFill = "DFIL"
	chunkTranFill = "TRFL"
	chunkOutro    = "OTRO"
)

// ParseSong walks a song byte blob chunk by chunk, decoding each section's
// delta-tick event stream with MIDI-style variable-length quantities.
func ParseSong(b []byte) (*Song, error) {
	if len(b) < 4 || string(b[:4]) != songMagic {
		return nil, newError(KindBadFormat, "ParseSong", fmt.Errorf("missing %q magic", songMagic))
	}

	song := &Song{}

	r := bytes.NewReader(b[4:])
	sawHeader := false
	for r.Len() > 0 {
		tag, payload, err := readChunk(r)
		if err != nil {
			return nil, newError(KindBadFormat, "ParseSong", err)
		}

		switch tag {
		case chunkHeader:
			if err := parseSongHeader(payload, song); err != nil {
				return nil, newError(KindBadFormat, "ParseSong", err)
			}
			sawHeader = true

		case chunkIntro:
			sec, err := parseSection(payload)
			if err != nil {
				return nil, newError(KindBadFormat, "ParseSong", err)
			}
			song.Intro = sec

		case chunkOutro:
			sec, err := parseSection(payload)
			if err != nil {
				return nil, newError(KindBadFormat, "ParseSong", err)
			}
			song.Outro = sec

		case chunkPart:
			idx, sec, err := parseIndexedSection(payload)
			if err != nil {
				return nil, newError(KindBadFormat, "ParseSong", err)
			}
			p := partFor(song, idx)
			p.Main = *sec

		case chunkDrumFill:
			idx, sec, err := parseIndexedSection(payload)
			if err != nil {
				return nil, newError(KindBadFormat, "ParseSong", err)
			}
			p := partFor(song, idx)
			p.DrumFills = append(p.DrumFills, *sec)

		case chunkTranFill:
			sec, err := parseSection(payload)
			if err != nil {
				return nil, newError(KindBadFormat, "ParseSong", err)
			}
			song.TransitionFills = append(song.TransitionFills, *sec)

		default:
			// unknown chunk already skipped by readChunk
		}
	}

	if !sawHeader {
		return nil, newError(KindBadFormat, "ParseSong", fmt.Errorf("missing %q chunk", chunkHeader))
	}
	if len(song.Parts) == 0 {
		return nil, newError(KindBadFormat, "ParseSong", fmt.Errorf("song declares no main parts"))
	}
	if len(song.Parts) > MaxSongParts {
		return nil, newError(KindBadFormat, "ParseSong", fmt.Errorf("song declares %d parts, max %d", len(song.Parts), MaxSongParts))
	}

	return song, nil
}

// partFor returns the Part for index idx, growing song.Parts as needed so
// that PART/DFIL chunks can arrive in any order in the bundle.
func partFor(song *Song, idx uint8) *Part {
	for len(song.Parts) <= int(idx) {
		song.Parts = append(song.Parts, Part{})
	}
	return &song.Parts[idx]
}

func parseSongHeader(r *bytes.Reader, song *Song) error {
	var hdr struct {
		DefaultTempoBPM uint16
		TimeSigNum      uint8
		TimeSigDen      uint8
	}
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return err
	}
	song.DefaultTempoBPM = hdr.DefaultTempoBPM
	song.DefaultTimeSig = TimeSignature{Num: hdr.TimeSigNum, Den: hdr.TimeSigDen}
	return nil
}

// parseIndexedSection reads a leading uint8 part index followed by a
// section body, used for PART and DFIL chunks.
func parseIndexedSection(r *bytes.Reader) (uint8, *Section, error) {
	var idx uint8
	if err := binary.Read(r, binary.LittleEndian, &idx); err != nil {
		return 0, nil, err
	}
	sec, err := parseSection(r)
	if err != nil {
		return 0, nil, err
	}
	return idx, sec, nil
}

func parseSection(r *bytes.Reader) (*Section, error) {
	var hdr struct {
		LengthTicks uint32
		BarLenTicks uint32
		TimeSigNum  uint8
		TimeSigDen  uint8
		TempoBPM    uint16
		EventCount  uint32
	}
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, err
	}

	sec := &Section{
		LengthTicks:   hdr.LengthTicks,
		BarLenTicks:   hdr.BarLenTicks,
		TimeSignature: TimeSignature{Num: hdr.TimeSigNum, Den: hdr.TimeSigDen},
		TempoBPM:      hdr.TempoBPM,
		Events:        make([]Event, 0, hdr.EventCount),
	}

	for i := uint32(0); i < hdr.EventCount; i++ {
		ev, err := parseEvent(r)
		if err != nil {
			return nil, err
		}
		sec.Events = append(sec.Events, ev)
	}

	return sec, nil
}

// parseEvent reads one {delta-tick VLQ, type byte, payload} record. The
// VLQ encoding is the standard MIDI variable-length quantity: 7 data bits
// per byte, high bit set on every byte but the last.
func parseEvent(r *bytes.Reader) (Event, error) {
	delta, err := readVLQ(r)
	if err != nil {
		return Event{}, err
	}

	typeByte, err := r.ReadByte()
	if err != nil {
		return Event{}, err
	}

	ev := Event{DeltaTicks: delta, Type: EventType(typeByte)}
	switch ev.Type {
	case EventNoteOn:
		if err := binary.Read(r, binary.LittleEndian, &ev.Note); err != nil {
			return Event{}, err
		}
		if err := binary.Read(r, binary.LittleEndian, &ev.Velocity); err != nil {
			return Event{}, err
		}
	case EventNoteOff:
		if err := binary.Read(r, binary.LittleEndian, &ev.Note); err != nil {
			return Event{}, err
		}
	case EventTempo:
		if err := binary.Read(r, binary.LittleEndian, &ev.Tempo); err != nil {
			return Event{}, err
		}
	case EventAccentHit, EventEnd:
		// no payload
	default:
		return Event{}, fmt.Errorf("unknown event type %d", typeByte)
	}

	return ev, nil
}

func readVLQ(r *bytes.Reader) (uint32, error) {
	var value uint32
	for i := 0; i < 5; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		value = value<<7 | uint32(b&0x7F)
		if b&0x80 == 0 {
			return value, nil
		}
	}
	return 0, fmt.Errorf("variable-length quantity exceeds 5 bytes")
}
