package main

import (
	"io"

	"github.com/tsasaki/drumengine/cmd/drumwav/wav"
)

// wavSink implements drumengine.Sink by writing straight through to a WAVE
// file, grounded on cmd/modwav.teacherref/main.go's synchronous
// generate-then-write loop: there is no real device to backpressure
// against, so BytesFree always reports room for a full refresh buffer.
type wavSink struct {
	w        *wav.Writer
	hz       int
	bufBytes int
}

func newWAVSink(hz int) *wavSink {
	return &wavSink{hz: hz}
}

func (s *wavSink) Open(bufferSizeBytes int) error {
	s.bufBytes = bufferSizeBytes
	return nil
}

// attach binds the underlying file once it has been created by main; main
// calls it before Play, so the WAVE headers are in place before Open.
func (s *wavSink) attach(ws io.WriteSeeker) error {
	w, err := wav.NewWriter(ws, s.hz)
	if err != nil {
		return err
	}
	s.w = w
	return nil
}

func (s *wavSink) BytesFree() int { return s.bufBytes }

func (s *wavSink) Write(b []byte) (int, error) {
	if err := s.w.WriteBytes(b); err != nil {
		return 0, err
	}
	return len(b), nil
}

func (s *wavSink) EffectiveBufferSize() int { return s.bufBytes }

func (s *wavSink) Stop() error {
	if s.w == nil {
		return nil
	}
	_, err := s.w.Finish()
	return err
}
