package drumengine

import "testing"

func TestVoicePoolAllocatesFreeSlotsFirst(t *testing.T) {
	p := newVoicePool()
	i := p.allocate()
	if i < 0 || i >= voicePoolSize {
		t.Fatalf("allocate returned out-of-range slot %d", i)
	}
	if p.voices[i].active {
		t.Errorf("allocate should not mark the slot active itself")
	}
}

func TestVoicePoolEvictsLowestAmplitude(t *testing.T) {
	p := newVoicePool()
	loud := testLayer(0, 127, 1, 4, 30000)
	quiet := testLayer(0, 127, 1, 4, 10)

	// fill the pool: one quiet voice, the rest loud
	for i := range p.voices {
		if i == 3 {
			p.trigger(i, uint8(i), &quiet, 1, 1, 1)
		} else {
			p.trigger(i, uint8(i), &loud, 1, 1, 1)
		}
	}

	victim := p.evictionCandidate()
	if victim != 3 {
		t.Errorf("expected eviction to pick the quiet voice at slot 3, got %d", victim)
	}
}

func TestVoicePoolEvictionTieBreaksOnOldest(t *testing.T) {
	p := newVoicePool()
	layer := testLayer(0, 127, 1, 4, 100)
	for i := range p.voices {
		p.trigger(i, uint8(i), &layer, 1, 1, 1)
	}
	// every voice has identical amplitude; slot 0 was triggered first (lowest seq)
	victim := p.evictionCandidate()
	if victim != 0 {
		t.Errorf("expected tie to evict the oldest voice (slot 0), got %d", victim)
	}
}

func TestNoteOffIsNoOpForOneShotVoices(t *testing.T) {
	p := newVoicePool()
	oneShot := testLayer(0, 127, 1, 4, 100) // Looped defaults to false
	p.trigger(0, 36, &oneShot, 1, 1, 1)

	p.release(36)

	if !p.voices[0].active {
		t.Errorf("note_off must not stop a one-shot voice; it should ring to completion")
	}
}

func TestNoteOffStopsLoopedVoices(t *testing.T) {
	p := newVoicePool()
	looped := testLoopedLayer(0, 127, 4, 100, 0, 4)
	p.trigger(0, 36, &looped, 1, 1, 1)

	p.release(36)

	if p.voices[0].active {
		t.Errorf("note_off should stop a looped voice")
	}
}

func TestVoiceAdvanceWrapsAtLoopBounds(t *testing.T) {
	layer := testLoopedLayer(0, 127, 4, 0, 1, 3)
	layer.Data = []int16{10, 20, 30, 40}
	v := voice{layer: &layer, pos: 0, incr: 1, gainL: 1, gainR: 1, active: true}

	var seen []float32
	for i := 0; i < 6; i++ {
		l, _, more := v.advance()
		if !more && i < 5 {
			t.Fatalf("expected looped voice to stay active, stopped early at iteration %d", i)
		}
		seen = append(seen, l)
	}
	// frames 0..3 then wraps back into [loopStart,loopEnd) = [1,3)
	want := []float32{10, 20, 30, 20, 30, 20}
	for i, w := range want {
		if seen[i] != w {
			t.Errorf("frame %d: expected %v, got %v", i, w, seen[i])
		}
	}
}

func TestVoiceAdvanceStopsOneShotAtEnd(t *testing.T) {
	layer := testLayer(0, 127, 1, 2, 5)
	v := voice{layer: &layer, pos: 0, incr: 1, gainL: 1, gainR: 1, active: true}

	v.advance()
	_, _, more := v.advance()
	if more {
		t.Errorf("expected the second advance to report the final frame")
	}
	_, _, more = v.advance()
	if more || v.active {
		t.Errorf("one-shot voice must deactivate once it runs past its last frame")
	}
}
