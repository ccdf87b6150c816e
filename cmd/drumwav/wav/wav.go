// Package wav is a minimal WAVE file writer that does not require knowing
// the length of the audio ahead of time: it writes zero-length placeholder
// chunk sizes up front and patches them in on Finish.
// See http://soundfile.sapp.org/doc/WaveFormat/ for format documentation.
package wav

import (
	"encoding/binary"
	"errors"
	"io"
)

const wavTypePCM = 1

// ErrInvalidChunkHeaderLength means the provided chunk name was not 4 characters.
var ErrInvalidChunkHeaderLength = errors.New("chunk header name is not 4 characters")

// Writer writes a stereo 16-bit PCM WAVE file into WS.
type Writer struct {
	WS io.WriteSeeker
}

type format struct {
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

// NewWriter writes the RIFF/fmt headers and opens the data chunk, returning
// a Writer ready for WriteFrame calls.
func NewWriter(ws io.WriteSeeker, sampleRate int) (*Writer, error) {
	writer := &Writer{WS: ws}

	if err := writer.writeChunkHeader("RIFF", 0); err != nil {
		return nil, err
	}
	if _, err := ws.Write([]byte("WAVE")); err != nil {
		return nil, err
	}

	if err := writer.writeChunkHeader("fmt ", 16); err != nil {
		return nil, err
	}
	f := format{AudioFormat: wavTypePCM, Channels: 2, SampleRate: uint32(sampleRate), BitsPerSample: 16}
	f.ByteRate = uint32(sampleRate) * 2 * (16 / 8)
	f.BlockAlign = 2 * (16 / 8)
	if err := binary.Write(ws, binary.LittleEndian, f); err != nil {
		return nil, err
	}

	if err := writer.writeChunkHeader("data", 0); err != nil {
		return nil, err
	}

	return writer, nil
}

// WriteFrame writes interleaved stereo int16 samples.
func (w *Writer) WriteFrame(samples []int16) error {
	return binary.Write(w.WS, binary.LittleEndian, samples)
}

// WriteBytes writes raw little-endian interleaved stereo PCM16 bytes.
func (w *Writer) WriteBytes(b []byte) error {
	_, err := w.WS.Write(b)
	return err
}

// Finish patches the RIFF and data chunk sizes now that the total length is known.
func (w *Writer) Finish() (int64, error) {
	wlen, err := w.WS.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}

	if offset, err := w.WS.Seek(4, io.SeekStart); offset != 4 || err != nil {
		return 0, err
	}
	if err := binary.Write(w.WS, binary.LittleEndian, int32(wlen-8)); err != nil {
		return 0, err
	}
	if offset, err := w.WS.Seek(40, io.SeekStart); offset != 40 || err != nil {
		return 0, err
	}
	if err := binary.Write(w.WS, binary.LittleEndian, int32(wlen-44)); err != nil {
		return 0, err
	}

	return wlen, nil
}

func (w *Writer) writeChunkHeader(chunk string, initialSize int) error {
	if len(chunk) != 4 {
		return ErrInvalidChunkHeaderLength
	}
	if n, err := w.WS.Write([]byte(chunk)); n != 4 || err != nil {
		return err
	}
	return binary.Write(w.WS, binary.LittleEndian, int32(initialSize))
}
