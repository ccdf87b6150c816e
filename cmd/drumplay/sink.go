package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gordonklaus/portaudio"
	"github.com/tsasaki/drumengine"
)

// portaudioSink implements drumengine.Sink over a default portaudio output
// stream, grounded on cmd/modplay/play.go's AudioPlayer stream-callback
// wiring.
type portaudioSink struct {
	hz     int
	stream *portaudio.Stream

	ring      []byte
	readPos   int
	writePos  int
	available int
}

const ringCapacityBytes = 64 * 1024

func newPortaudioSink(hz int) (*portaudioSink, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio initialize: %w", err)
	}
	return &portaudioSink{hz: hz, ring: make([]byte, ringCapacityBytes)}, nil
}

func (s *portaudioSink) Open(bufferSizeBytes int) error {
	framesPerBuffer := bufferSizeBytes / 4
	stream, err := portaudio.OpenDefaultStream(0, 2, float64(s.hz), framesPerBuffer, s.streamCallback)
	if err != nil {
		return err
	}
	s.stream = stream
	return stream.Start()
}

func (s *portaudioSink) streamCallback(out []int16) {
	need := len(out) * 2
	n := s.readBytes(need)
	for i := 0; i < len(out); i++ {
		if i*2+1 < len(n) {
			out[i] = int16(n[i*2]) | int16(n[i*2+1])<<8
		} else {
			out[i] = 0
		}
	}
}

func (s *portaudioSink) readBytes(n int) []byte {
	if n > s.available {
		n = s.available
	}
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		out[i] = s.ring[(s.readPos+i)%len(s.ring)]
	}
	s.readPos = (s.readPos + n) % len(s.ring)
	s.available -= n
	return out
}

func (s *portaudioSink) BytesFree() int {
	return len(s.ring) - s.available
}

func (s *portaudioSink) Write(b []byte) (int, error) {
	n := len(b)
	if n > len(s.ring)-s.available {
		n = len(s.ring) - s.available
	}
	for i := 0; i < n; i++ {
		s.ring[(s.writePos+i)%len(s.ring)] = b[i]
	}
	s.writePos = (s.writePos + n) % len(s.ring)
	s.available += n
	return n, nil
}

func (s *portaudioSink) EffectiveBufferSize() int { return len(s.ring) }

func (s *portaudioSink) Stop() error {
	if s.stream != nil {
		s.stream.Stop()
		s.stream.Close()
		s.stream = nil
	}
	return portaudio.Terminate()
}

// loadEffects installs <dir>/<part>.wav for every part index that has one.
func loadEffects(player *drumengine.Player, dir string) {
	for i := 0; i < drumengine.MaxSongParts; i++ {
		path := filepath.Join(dir, fmt.Sprintf("%d.wav", i))
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := player.SetEffectsPath(path, i); err != nil {
			fmt.Fprintf(os.Stderr, "drumplay: effect %s: %v\n", path, err)
		}
	}
}
