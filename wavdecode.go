package drumengine

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// decodeWAVLayer reads a standard RIFF/WAVE PCM16 file into a one-shot,
// non-looped Layer, the format documented at
// http://soundfile.sapp.org/doc/WaveFormat/ (the same reference the
// hand-rolled wav.Writer in cmd/drumwav/wav/wav.go follows when producing
// one).
func decodeWAVLayer(b []byte) (*Layer, error) {
	r := bytes.NewReader(b)

	var riffHdr [12]byte
	if _, err := r.Read(riffHdr[:]); err != nil {
		return nil, newError(KindBadFormat, "decodeWAVLayer", err)
	}
	if string(riffHdr[:4]) != "RIFF" || string(riffHdr[8:12]) != "WAVE" {
		return nil, newError(KindBadFormat, "decodeWAVLayer", ErrNotWAV)
	}

	var format struct {
		AudioFormat   uint16
		Channels      uint16
		SampleRate    uint32
		ByteRate      uint32
		BlockAlign    uint16
		BitsPerSample uint16
	}
	haveFormat := false
	var data []int16

	for r.Len() > 0 {
		var tag [4]byte
		if _, err := r.Read(tag[:]); err != nil {
			break
		}
		var size uint32
		if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
			return nil, newError(KindBadFormat, "decodeWAVLayer", err)
		}
		if int64(size) > int64(r.Len()) {
			return nil, newError(KindBadFormat, "decodeWAVLayer", ErrChunkOverrun)
		}
		payload := make([]byte, size)
		if _, err := r.Read(payload); err != nil {
			return nil, newError(KindBadFormat, "decodeWAVLayer", err)
		}
		if size%2 == 1 && r.Len() > 0 {
			r.Seek(1, 1) // chunks are word-aligned; skip the pad byte
		}

		switch string(tag[:]) {
		case "fmt ":
			if err := binary.Read(bytes.NewReader(payload), binary.LittleEndian, &format); err != nil {
				return nil, newError(KindBadFormat, "decodeWAVLayer", err)
			}
			haveFormat = true
		case "data":
			if format.BitsPerSample != 16 {
				return nil, newError(KindBadFormat, "decodeWAVLayer", fmt.Errorf("unsupported bit depth %d", format.BitsPerSample))
			}
			data = make([]int16, len(payload)/2)
			if err := binary.Read(bytes.NewReader(payload), binary.LittleEndian, data); err != nil {
				return nil, newError(KindBadFormat, "decodeWAVLayer", err)
			}
		}
	}

	if !haveFormat || data == nil {
		return nil, newError(KindBadFormat, "decodeWAVLayer", ErrNotWAV)
	}
	if format.Channels == 0 {
		return nil, newError(KindBadFormat, "decodeWAVLayer", ErrZeroLengthSample)
	}

	frames := len(data) / int(format.Channels)
	if frames == 0 {
		return nil, newError(KindBadFormat, "decodeWAVLayer", ErrZeroLengthSample)
	}

	return &Layer{
		MinVelocity: 0,
		MaxVelocity: 127,
		SampleRate:  format.SampleRate,
		Channels:    uint8(format.Channels),
		Looped:      false,
		Frames:      frames,
		Data:        data,
	}, nil
}
