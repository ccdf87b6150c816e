package drumengine

// Sink is the audio output contract the real-time loop writes rendered
// PCM into. The fixed format is 44100 Hz, 2 channels, 16-bit signed
// little-endian — implementations (a real device, a WAV file, an
// in-memory buffer for tests) only need to honor buffering and backpressure.
type Sink interface {
	// Open prepares the sink for writing, requesting a buffer of roughly
	// bufferSizeBytes. The sink may allocate more; EffectiveBufferSize
	// reports what it actually granted.
	Open(bufferSizeBytes int) error

	// BytesFree reports how many bytes can be written right now without
	// blocking.
	BytesFree() int

	// Write pushes interleaved PCM bytes to the sink.
	Write(b []byte) (int, error)

	// EffectiveBufferSize is the buffer size the sink actually granted,
	// used by the Player to cap its sound_card_limit offset.
	EffectiveBufferSize() int

	// Stop halts output and releases any device resources. A sink must
	// accept a subsequent Open after Stop.
	Stop() error
}

// memSink is an in-memory Sink used only by tests: it keeps every byte
// written in a growing buffer, while BytesFree shrinks with each Write and
// recovers only through Drain.
type memSink struct {
	buf       []byte
	open      bool
	bufSize   int
	freeBytes int
}

func newMemSink() *memSink {
	return &memSink{}
}

func (s *memSink) Open(bufferSizeBytes int) error {
	s.open = true
	s.bufSize = bufferSizeBytes
	s.freeBytes = bufferSizeBytes
	return nil
}

func (s *memSink) BytesFree() int {
	if !s.open {
		return 0
	}
	return s.freeBytes
}

func (s *memSink) Write(b []byte) (int, error) {
	s.buf = append(s.buf, b...)
	if s.freeBytes > len(b) {
		s.freeBytes -= len(b)
	} else {
		s.freeBytes = 0
	}
	// Free space is not replenished here; tests call Drain to stand in for
	// a real device's DMA thread consuming its buffer.
	return len(b), nil
}

// Drain simulates the device consuming n bytes, freeing that much space
// again — lets tests exercise the Player's bytes_free-driven pacing logic
// deterministically.
func (s *memSink) Drain(n int) {
	s.freeBytes += n
	if s.freeBytes > s.bufSize {
		s.freeBytes = s.bufSize
	}
}

func (s *memSink) EffectiveBufferSize() int { return s.bufSize }

func (s *memSink) Bytes() []byte { return s.buf }

func (s *memSink) Stop() error {
	s.open = false
	return nil
}
