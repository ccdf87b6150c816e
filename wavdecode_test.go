package drumengine

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// buildTestWAV assembles a minimal RIFF/WAVE PCM16 file for channels
// interleaved samples, used across tests that need a real WAV blob rather
// than a hand-built Layer.
func buildTestWAV(t *testing.T, channels uint16, sampleRate uint32, samples []int16) []byte {
	t.Helper()

	var fmtChunk bytes.Buffer
	format := struct {
		AudioFormat   uint16
		Channels      uint16
		SampleRate    uint32
		ByteRate      uint32
		BlockAlign    uint16
		BitsPerSample uint16
	}{
		AudioFormat:   1,
		Channels:      channels,
		SampleRate:    sampleRate,
		ByteRate:      sampleRate * uint32(channels) * 2,
		BlockAlign:    channels * 2,
		BitsPerSample: 16,
	}
	binary.Write(&fmtChunk, binary.LittleEndian, format)

	var dataChunk bytes.Buffer
	binary.Write(&dataChunk, binary.LittleEndian, samples)

	var out bytes.Buffer
	out.WriteString("RIFF")
	binary.Write(&out, binary.LittleEndian, uint32(0)) // size, unchecked by decodeWAVLayer
	out.WriteString("WAVE")
	out.WriteString("fmt ")
	binary.Write(&out, binary.LittleEndian, uint32(fmtChunk.Len()))
	out.Write(fmtChunk.Bytes())
	out.WriteString("data")
	binary.Write(&out, binary.LittleEndian, uint32(dataChunk.Len()))
	out.Write(dataChunk.Bytes())

	return out.Bytes()
}

func TestDecodeWAVLayerMono(t *testing.T) {
	b := buildTestWAV(t, 1, 22050, []int16{10, 20, 30})
	l, err := decodeWAVLayer(b)
	if err != nil {
		t.Fatalf("decodeWAVLayer: %v", err)
	}
	if l.Channels != 1 || l.SampleRate != 22050 || l.Frames != 3 {
		t.Errorf("unexpected layer header: %+v", l)
	}
	if l.Looped {
		t.Errorf("expected a one-shot (non-looped) layer from decodeWAVLayer")
	}
}

func TestDecodeWAVLayerStereo(t *testing.T) {
	b := buildTestWAV(t, 2, 44100, []int16{1, 2, 3, 4})
	l, err := decodeWAVLayer(b)
	if err != nil {
		t.Fatalf("decodeWAVLayer: %v", err)
	}
	if l.Channels != 2 || l.Frames != 2 {
		t.Errorf("unexpected layer header: %+v", l)
	}
}

func TestDecodeWAVLayerRejectsBadMagic(t *testing.T) {
	_, err := decodeWAVLayer([]byte("not a wav file at all"))
	if err == nil {
		t.Fatal("expected error for non-WAV input")
	}
}

func TestDecodeWAVLayerRejectsMissingDataChunk(t *testing.T) {
	var out bytes.Buffer
	out.WriteString("RIFF")
	binary.Write(&out, binary.LittleEndian, uint32(0))
	out.WriteString("WAVE")
	_, err := decodeWAVLayer(out.Bytes())
	if err == nil {
		t.Fatal("expected error when fmt/data chunks are absent")
	}
}
