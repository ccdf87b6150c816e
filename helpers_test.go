package drumengine

import (
	"bytes"
	"encoding/binary"

	clone "github.com/huandu/go-clone/generic"
)

// testLayer builds a layer of n int16 frames, all set to amplitude v, mono
// unless channels says otherwise.
func testLayer(minVel, maxVel uint8, channels uint8, n int, v int16) Layer {
	data := make([]int16, n*int(channels))
	for i := range data {
		data[i] = v
	}
	return Layer{
		MinVelocity: minVel,
		MaxVelocity: maxVel,
		SampleRate:  44100,
		Channels:    channels,
		Frames:      n,
		Data:        data,
	}
}

func testLoopedLayer(minVel, maxVel uint8, n int, v int16, loopStart, loopEnd uint32) Layer {
	l := testLayer(minVel, maxVel, 1, n, v)
	l.Looped = true
	l.LoopStart = loopStart
	l.LoopEnd = loopEnd
	return l
}

// testDrumset returns a drumset with a single note mapped to a clone of the
// given layers, so the caller's layer values are never shared with it.
func testDrumset(note uint8, layers ...Layer) *Drumset {
	inst := &Instrument{Note: note, Layers: clone.Clone(layers)}
	return &Drumset{Instruments: map[uint8]*Instrument{note: inst}}
}

// encodeDrumset produces the binary DRM1 bundle corresponding to ds, used
// to exercise ParseDrumset through its real wire format instead of
// constructing *Drumset by hand everywhere.
func encodeDrumset(t interface {
	Helper()
	Fatalf(string, ...any)
}, instruments map[uint8][]Layer) []byte {
	t.Helper()

	var body bytes.Buffer
	binary.Write(&body, binary.LittleEndian, uint16(len(instruments)))
	for note, layers := range instruments {
		binary.Write(&body, binary.LittleEndian, note)
		binary.Write(&body, binary.LittleEndian, uint8(len(layers)))
		for _, l := range layers {
			hdr := struct {
				MinVelocity uint8
				MaxVelocity uint8
				SampleRate  uint32
				Channels    uint8
				LoopFlags   uint8
				LoopStart   uint32
				LoopEnd     uint32
				Frames      uint32
			}{
				MinVelocity: l.MinVelocity,
				MaxVelocity: l.MaxVelocity,
				SampleRate:  l.SampleRate,
				Channels:    l.Channels,
				LoopStart:   l.LoopStart,
				LoopEnd:     l.LoopEnd,
				Frames:      uint32(l.Frames),
			}
			if l.Looped {
				hdr.LoopFlags = 1
			}
			binary.Write(&body, binary.LittleEndian, hdr)
			binary.Write(&body, binary.LittleEndian, l.Data)
		}
	}

	var chunk bytes.Buffer
	chunk.WriteString(chunkInstrumentTable)
	binary.Write(&chunk, binary.LittleEndian, uint32(body.Len()))
	chunk.Write(body.Bytes())

	var out bytes.Buffer
	out.WriteString(drumsetMagic)
	out.Write(chunk.Bytes())
	return out.Bytes()
}

// encodeEvent writes one event record in the real MIDI-VLQ wire format.
func encodeEvent(buf *bytes.Buffer, deltaTicks uint32, e Event) {
	writeVLQ(buf, deltaTicks)
	buf.WriteByte(byte(e.Type))
	switch e.Type {
	case EventNoteOn:
		buf.WriteByte(e.Note)
		buf.WriteByte(e.Velocity)
	case EventNoteOff:
		buf.WriteByte(e.Note)
	case EventTempo:
		binary.Write(buf, binary.LittleEndian, e.Tempo)
	}
}

func writeVLQ(buf *bytes.Buffer, v uint32) {
	var stack []byte
	stack = append(stack, byte(v&0x7F))
	v >>= 7
	for v > 0 {
		stack = append(stack, byte(v&0x7F)|0x80)
		v >>= 7
	}
	for i := len(stack) - 1; i >= 0; i-- {
		buf.WriteByte(stack[i])
	}
}

// encodeSection writes a section body (without the chunk wrapper).
func encodeSection(sec Section) []byte {
	var buf bytes.Buffer
	hdr := struct {
		LengthTicks uint32
		BarLenTicks uint32
		TimeSigNum  uint8
		TimeSigDen  uint8
		TempoBPM    uint16
		EventCount  uint32
	}{
		LengthTicks: sec.LengthTicks,
		BarLenTicks: sec.BarLenTicks,
		TimeSigNum:  sec.TimeSignature.Num,
		TimeSigDen:  sec.TimeSignature.Den,
		TempoBPM:    sec.TempoBPM,
		EventCount:  uint32(len(sec.Events)),
	}
	binary.Write(&buf, binary.LittleEndian, hdr)

	for _, e := range sec.Events {
		encodeEvent(&buf, e.DeltaTicks, e)
	}
	return buf.Bytes()
}

func wrapChunk(tag string, payload []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString(tag)
	binary.Write(&buf, binary.LittleEndian, uint32(len(payload)))
	buf.Write(payload)
	return buf.Bytes()
}

// testSongSpec describes the song fixture encodeSong builds.
type testSongSpec struct {
	tempo  uint16
	sig    TimeSignature
	intro  *Section
	parts  []Part
	trans  []Section
	outro  *Section
}

func encodeSong(spec testSongSpec) []byte {
	var out bytes.Buffer
	out.WriteString(songMagic)

	var hdr bytes.Buffer
	binary.Write(&hdr, binary.LittleEndian, spec.tempo)
	hdr.WriteByte(spec.sig.Num)
	hdr.WriteByte(spec.sig.Den)
	out.Write(wrapChunk(chunkHeader, hdr.Bytes()))

	if spec.intro != nil {
		out.Write(wrapChunk(chunkIntro, encodeSection(*spec.intro)))
	}
	for i, p := range spec.parts {
		var body bytes.Buffer
		body.WriteByte(uint8(i))
		body.Write(encodeSection(p.Main))
		out.Write(wrapChunk(chunkPart, body.Bytes()))
		for _, f := range p.DrumFills {
			var fbody bytes.Buffer
			fbody.WriteByte(uint8(i))
			fbody.Write(encodeSection(f))
			out.Write(wrapChunk(chunkDrumFill, fbody.Bytes()))
		}
	}
	for _, f := range spec.trans {
		out.Write(wrapChunk(chunkTranFill, encodeSection(f)))
	}
	if spec.outro != nil {
		out.Write(wrapChunk(chunkOutro, encodeSection(*spec.outro)))
	}

	return out.Bytes()
}

// simpleMainSection is a 4/4 section at 120bpm, lengthTicks long with a
// one-bar BarLenTicks, holding a single note-on at tick 0; used as the
// default section body across tests that don't care about event content.
func simpleMainSection(lengthTicks uint32, note uint8) Section {
	return Section{
		LengthTicks:   lengthTicks,
		BarLenTicks:   TicksPerBeat * 4,
		TimeSignature: TimeSignature{Num: 4, Den: 4},
		TempoBPM:      120,
		Events: []Event{
			{DeltaTicks: 0, Type: EventNoteOn, Note: note, Velocity: 100},
		},
	}
}
