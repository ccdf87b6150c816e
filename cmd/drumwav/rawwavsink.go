package main

import (
	"io"

	wav "github.com/youpy/go-wav"
)

// rawWAVSink is the -raw-wav alternate output path, grounded on the
// teacher's original main.go which wrote samples through youpy/go-wav
// before the project switched to its own hand-rolled writer. Kept alive
// here as a second, selectable implementation rather than dropped.
type rawWAVSink struct {
	w        *wav.Writer
	bufBytes int
}

func newRawWAVSink(ws io.Writer, numSamples, hz int) *rawWAVSink {
	return &rawWAVSink{w: wav.NewWriter(ws, uint32(numSamples), 2, uint32(hz), 16)}
}

func (s *rawWAVSink) Open(bufferSizeBytes int) error {
	s.bufBytes = bufferSizeBytes
	return nil
}

func (s *rawWAVSink) BytesFree() int { return s.bufBytes }

func (s *rawWAVSink) Write(b []byte) (int, error) {
	frames := len(b) / 4
	samples := make([]wav.Sample, frames)
	for i := 0; i < frames; i++ {
		l := int16(b[i*4]) | int16(b[i*4+1])<<8
		r := int16(b[i*4+2]) | int16(b[i*4+3])<<8
		samples[i].Values[0] = int(l)
		samples[i].Values[1] = int(r)
	}
	if err := s.w.WriteSamples(samples); err != nil {
		return 0, err
	}
	return len(b), nil
}

func (s *rawWAVSink) EffectiveBufferSize() int { return s.bufBytes }

func (s *rawWAVSink) Stop() error { return nil }
