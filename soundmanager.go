package drumengine

const numEffectSlots = MaxSongParts

// SoundManager owns the loaded drumset, the polyphonic voice pool, and the
// per-part one-shot effect slots. It is the rendering leaf: everything else
// in the engine eventually calls down into render.
type SoundManager struct {
	drumset *Drumset
	pool    *voicePool
	effects [numEffectSlots]*Layer
}

// NewSoundManager returns an idle manager with no drumset loaded yet.
func NewSoundManager() *SoundManager {
	return &SoundManager{pool: newVoicePool()}
}

// LoadDrumset replaces the active instrument table. Any voices currently
// playing against the previous table keep their own *Layer pointer and
// finish naturally; they are not retargeted or silenced.
func (sm *SoundManager) LoadDrumset(b []byte) error {
	ds, err := ParseDrumset(b)
	if err != nil {
		return err
	}
	sm.drumset = ds
	return nil
}

// LoadEffect installs (or, when b is nil, clears) the one-shot accent-hit
// sample for song part index i.
func (sm *SoundManager) LoadEffect(b []byte, partIndex int) error {
	if partIndex < 0 || partIndex >= numEffectSlots {
		return newError(KindBadFormat, "LoadEffect", ErrUnresolvedNote)
	}
	if b == nil {
		sm.effects[partIndex] = nil
		return nil
	}
	layer, err := decodeWAVLayer(b)
	if err != nil {
		return err
	}
	sm.effects[partIndex] = layer
	return nil
}

// NoteOn triggers the drumset layer matching (instrument, velocity) and
// returns the voice slot index it was placed in.
func (sm *SoundManager) NoteOn(instrument uint8, velocity uint8) (int, error) {
	if sm.drumset == nil {
		return -1, newError(KindInternalState, "NoteOn", ErrNoInstrumentTable)
	}
	inst, ok := sm.drumset.Instruments[instrument]
	if !ok || len(inst.Layers) == 0 {
		return -1, newError(KindBadFormat, "NoteOn", ErrUnresolvedNote)
	}
	layer := selectLayer(inst, velocity)
	if layer == nil {
		layer = &inst.Layers[0]
	}

	slot := sm.pool.allocate()
	gain := float32(velocity) / 127.0
	sm.pool.trigger(slot, instrument, layer, gain, gain, 1.0)
	return slot, nil
}

// NoteOff releases any looped voices currently sounding instrument; it is a
// no-op for one-shot (non-looped) voices, which always ring to completion.
func (sm *SoundManager) NoteOff(instrument uint8) {
	sm.pool.release(instrument)
}

// TriggerEffect plays the accent-hit sample installed for partIndex, if
// any, as a fire-and-forget one-shot voice.
func (sm *SoundManager) TriggerEffect(partIndex int) {
	if partIndex < 0 || partIndex >= numEffectSlots {
		return
	}
	layer := sm.effects[partIndex]
	if layer == nil {
		return
	}
	slot := sm.pool.allocate()
	sm.pool.trigger(slot, 0xFF, layer, 1.0, 1.0, 1.0)
}

// Clear silences every voice and forgets the loaded drumset and effects,
// used when the engine tears down or loads a new song from scratch.
func (sm *SoundManager) Clear() {
	for i := range sm.pool.voices {
		sm.pool.voices[i].active = false
	}
	sm.drumset = nil
	for i := range sm.effects {
		sm.effects[i] = nil
	}
}

// Render advances every active voice by frames output frames, accumulating
// into dst (len(dst) == frames*2, interleaved L,R float32). It never reads
// past a voice's declared sample bounds.
func (sm *SoundManager) Render(dst []float32, frames int) {
	for f := 0; f < frames; f++ {
		var l, r float32
		for i := range sm.pool.voices {
			v := &sm.pool.voices[i]
			if !v.active {
				continue
			}
			vl, vr, _ := v.advance()
			l += vl
			r += vr
		}
		dst[f*2] = l
		dst[f*2+1] = r
	}
}
