package drumengine

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Drumset chunk tags. Unrecognized tags are skipped by their declared
// length, the same forward-compat posture the teacher's MOD/S3M readers
// apply to unrecognized pattern bytes (s3m.go's skip table for bogus
// packed-pattern bytes).
const (
	drumsetMagic = "DRM1"

	chunkInstrumentTable = "INST"
)

// Layer is one velocity-zoned sample within an Instrument.
type Layer struct {
	MinVelocity uint8
	MaxVelocity uint8
	SampleRate  uint32
	Channels    uint8
	Looped      bool
	LoopStart   uint32 // frames
	LoopEnd     uint32 // frames
	Frames      int
	Data        []int16 // interleaved, len == Frames*Channels
}

// Instrument is every velocity layer available for one MIDI-style note
// number.
type Instrument struct {
	Note   uint8
	Layers []Layer // declaration order, not necessarily sorted
}

// Drumset is a parsed drum-kit bundle: an instrument table keyed by note
// number, built by walking the bundle's chunk list.
type Drumset struct {
	Instruments map[uint8]*Instrument
}

// ParseDrumset walks a drumset byte blob chunk by chunk. It validates
// instrument/layer/sample integrity up front so note_on never has to check
// for a malformed table mid-render.
func ParseDrumset(b []byte) (*Drumset, error) {
	if len(b) < 4 || string(b[:4]) != drumsetMagic {
		return nil, newError(KindBadFormat, "ParseDrumset", fmt.Errorf("missing %q magic", drumsetMagic))
	}

	ds := &Drumset{Instruments: make(map[uint8]*Instrument)}

	r := bytes.NewReader(b[4:])
	sawInstrumentTable := false
	for r.Len() > 0 {
		tag, payload, err := readChunk(r)
		if err != nil {
			return nil, newError(KindBadFormat, "ParseDrumset", err)
		}

		switch tag {
		case chunkInstrumentTable:
			if err := parseInstrumentTable(payload, ds); err != nil {
				return nil, newError(KindBadFormat, "ParseDrumset", err)
			}
			sawInstrumentTable = true
		default:
			// Unknown chunk: already skipped by readChunk via its declared length.
		}
	}

	if !sawInstrumentTable {
		return nil, newError(KindBadFormat, "ParseDrumset", ErrNoInstrumentTable)
	}

	return ds, nil
}

// readChunk reads one {tag[4], length uint32, payload} record and returns
// the payload as its own reader. It refuses a chunk whose declared length
// overruns the remaining bytes.
func readChunk(r *bytes.Reader) (string, *bytes.Reader, error) {
	var tagb [4]byte
	if _, err := r.Read(tagb[:]); err != nil {
		return "", nil, err
	}

	var length uint32
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return "", nil, err
	}

	if int64(length) > int64(r.Len()) {
		return "", nil, fmt.Errorf("chunk %q: %w", tagb, ErrChunkOverrun)
	}

	payload := make([]byte, length)
	if _, err := r.Read(payload); err != nil {
		return "", nil, err
	}

	return string(tagb[:]), bytes.NewReader(payload), nil
}

func parseInstrumentTable(r *bytes.Reader, ds *Drumset) error {
	var count uint16
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return err
	}

	for i := 0; i < int(count); i++ {
		var note, layerCount uint8
		if err := binary.Read(r, binary.LittleEndian, &note); err != nil {
			return err
		}
		if err := binary.Read(r, binary.LittleEndian, &layerCount); err != nil {
			return err
		}

		inst := &Instrument{Note: note, Layers: make([]Layer, 0, layerCount)}
		for l := 0; l < int(layerCount); l++ {
			layer, err := parseLayer(r)
			if err != nil {
				return err
			}
			inst.Layers = append(inst.Layers, layer)
		}
		ds.Instruments[note] = inst
	}

	return nil
}

func parseLayer(r *bytes.Reader) (Layer, error) {
	hdr := struct {
		MinVelocity uint8
		MaxVelocity uint8
		SampleRate  uint32
		Channels    uint8
		LoopFlags   uint8
		LoopStart   uint32
		LoopEnd     uint32
		Frames      uint32
	}{}
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return Layer{}, err
	}
	if hdr.Frames == 0 {
		return Layer{}, ErrZeroLengthSample
	}

	data := make([]int16, int(hdr.Frames)*int(hdr.Channels))
	if err := binary.Read(r, binary.LittleEndian, data); err != nil {
		return Layer{}, err
	}

	return Layer{
		MinVelocity: hdr.MinVelocity,
		MaxVelocity: hdr.MaxVelocity,
		SampleRate:  hdr.SampleRate,
		Channels:    hdr.Channels,
		Looped:      hdr.LoopFlags&1 == 1,
		LoopStart:   hdr.LoopStart,
		LoopEnd:     hdr.LoopEnd,
		Frames:      int(hdr.Frames),
		Data:        data,
	}, nil
}

// selectLayer implements the note_on layer-selection rule: the highest
// layer whose minimum velocity is <= v, ties resolved by later
// declaration.
func selectLayer(inst *Instrument, velocity uint8) *Layer {
	var best *Layer
	for i := range inst.Layers {
		l := &inst.Layers[i]
		if l.MinVelocity <= velocity {
			best = l
		}
	}
	return best
}

// Resolve validates that every instrument index referenced by song resolves
// to at least one layer in ds, per the cross-bundle invariant in spec §3.
func (ds *Drumset) Resolve(song *Song) error {
	for note := range song.referencedInstruments() {
		inst, ok := ds.Instruments[note]
		if !ok || len(inst.Layers) == 0 {
			return newError(KindBadFormat, "Resolve", fmt.Errorf("note %d: %w", note, ErrUnresolvedNote))
		}
	}
	return nil
}
