package drumengine

import (
	"fmt"
	"io"
)

// TransportStatus enumerates the states of the song state machine.
type TransportStatus int

const (
	StatusNoSongLoaded TransportStatus = iota
	StatusStopped
	StatusPaused
	StatusIntro
	StatusPlayingMainTrack
	StatusPlayingMainTrackToEnd
	StatusTranfillActive
	StatusTranfillQuiting
	StatusDrumfillActive
	StatusOutro
	StatusSingleTrackPlayer
)

func (s TransportStatus) String() string {
	switch s {
	case StatusNoSongLoaded:
		return "NO_SONG_LOADED"
	case StatusStopped:
		return "STOPPED"
	case StatusPaused:
		return "PAUSED"
	case StatusIntro:
		return "INTRO"
	case StatusPlayingMainTrack:
		return "PLAYING_MAIN_TRACK"
	case StatusPlayingMainTrackToEnd:
		return "PLAYING_MAIN_TRACK_TO_END"
	case StatusTranfillActive:
		return "TRANFILL_ACTIVE"
	case StatusTranfillQuiting:
		return "TRANFILL_QUITING"
	case StatusDrumfillActive:
		return "DRUMFILL_ACTIVE"
	case StatusOutro:
		return "OUTRO"
	case StatusSingleTrackPlayer:
		return "SINGLE_TRACK_PLAYER"
	default:
		return "UNKNOWN"
	}
}

type sectionKind int

const (
	sectionNone sectionKind = iota
	sectionIntro
	sectionMain
	sectionDrumfill
	sectionTranfill
	sectionOutro
	sectionSingleTrack
)

const pendingPedalQueueSize = 4

// sectionCursor tracks playback position within one Section's delta-tick
// event stream.
type sectionCursor struct {
	sec           *Section
	tickPos       uint32
	eventIdx      int
	nextEventTick uint32
}

func newSectionCursor(sec *Section) sectionCursor {
	c := sectionCursor{sec: sec}
	if sec != nil && len(sec.Events) > 0 {
		c.nextEventTick = sec.Events[0].DeltaTicks
	}
	return c
}

// Transport is the Song Player: it owns the parsed Song, the transport
// state machine, the tick clock, and bar/beat tracking, and drives the
// Sound Manager directly as ticks elapse.
type Transport struct {
	sm   *SoundManager
	song *Song

	status        TransportStatus
	partIndex     int
	drumfillIndex int
	masterTick    uint64

	kind     sectionKind
	cur      sectionCursor
	tempoBPM uint16

	ticksSinceBeat uint32
	beatInBar      uint8
	startBeat      uint64

	tempoChangedBySong bool
	pendingPedal       []pedalRequest
	longPressPending   bool

	dumpWriter io.Writer
}

type pedalRequest struct {
	event PedalEvent
	arg   int
}

// NewTransport wires a Transport to the SoundManager its events trigger.
func NewTransport(sm *SoundManager) *Transport {
	return &Transport{sm: sm, status: StatusNoSongLoaded}
}

// SetDumpWriter installs (or, with nil, removes) an optional diagnostic
// writer that receives one line each time a main part is entered; intro,
// fill and outro transitions write nothing.
func (t *Transport) SetDumpWriter(w io.Writer) { t.dumpWriter = w }

func (t *Transport) dumpf(format string, args ...any) {
	if t.dumpWriter == nil {
		return
	}
	fmt.Fprintf(t.dumpWriter, format, args...)
}

// LoadSong parses b and resets the transport to STOPPED.
func (t *Transport) LoadSong(b []byte) error {
	song, err := ParseSong(b)
	if err != nil {
		return err
	}
	t.song = song
	t.status = StatusStopped
	t.partIndex = 0
	t.drumfillIndex = 0
	t.masterTick = 0
	t.beatInBar = 0
	t.startBeat = 0
	t.ticksSinceBeat = 0
	t.tempoBPM = song.DefaultTempoBPM
	t.pendingPedal = nil
	t.longPressPending = false
	t.kind = sectionNone
	return nil
}

// GetTimeSignature returns the active section's time signature.
func (t *Transport) GetTimeSignature() TimeSignature {
	if t.cur.sec != nil {
		return t.cur.sec.TimeSignature
	}
	if t.song != nil {
		return t.song.DefaultTimeSig
	}
	return TimeSignature{Num: 4, Den: 4}
}

// GetTempo returns the currently effective tempo in BPM.
func (t *Transport) GetTempo() uint16 { return t.tempoBPM }

// GetBeatInBar reports the current beat-in-bar and the master tick of the
// current bar's first beat.
func (t *Transport) GetBeatInBar() (beat uint8, startOfBar uint64) {
	return t.beatInBar, t.startBeat
}

// GetMasterTick returns the running tick counter.
func (t *Transport) GetMasterTick() uint64 { return t.masterTick }

// GetSoundEffectName returns the accent-hit effect file name declared for
// part, or "" if none or out of range.
func (t *Transport) GetSoundEffectName(part int) string {
	if t.song == nil || part < 0 || part >= len(t.song.Parts) {
		return ""
	}
	return t.song.Parts[part].EffectName
}

// GetPlayerStatus reports the current status, part index, and drum-fill
// index in one atomic read (the Player snapshots these together).
func (t *Transport) GetPlayerStatus() (status TransportStatus, part, drumfill int) {
	return t.status, t.partIndex, t.drumfillIndex
}

// ExternalStart begins playback: INTRO if the song declares one, otherwise
// straight into part 0's main section.
func (t *Transport) ExternalStart() {
	if t.song == nil {
		return
	}
	if t.song.Intro != nil {
		t.enterSection(sectionIntro, t.song.Intro)
		t.status = StatusIntro
		return
	}
	t.enterMain(0)
}

// ExternalStop requests an immediate soft stop. The Player is responsible
// for the prepare-stop fade gate before it actually tears the loop down;
// Transport itself transitions straight to STOPPED.
func (t *Transport) ExternalStop() {
	t.status = StatusStopped
	t.kind = sectionNone
	t.cur = sectionCursor{}
}

// SetSingleTrack arms the diagnostic single-track preview path.
func (t *Transport) SetSingleTrack(sec *Section) {
	t.enterSection(sectionSingleTrack, sec)
	t.status = StatusSingleTrackPlayer
}

// CalculateSingleTrackOffset computes the tick offset into a track fragment
// so its bar alignment matches barLen, given the containing song's current
// master tick.
func (t *Transport) CalculateSingleTrackOffset(nTicks uint32, barLen uint32) uint32 {
	if barLen == 0 {
		return 0
	}
	return uint32(t.masterTick) % barLen
}

// ButtonCallback routes one pedal event into the state machine. Events that
// arrive during a fill are queued and replayed the next time the machine
// returns to PLAYING_MAIN_TRACK. A long-press received during
// PLAYING_MAIN_TRACK is itself deferred until the next bar boundary before
// the tranfill actually starts.
func (t *Transport) ButtonCallback(event PedalEvent, arg int) {
	if event == FootSecondaryPress {
		t.sm.TriggerEffect(t.partIndex)
		return
	}

	if t.status != StatusPlayingMainTrack {
		if t.status == StatusTranfillActive && event == PedalRelease {
			t.status = StatusTranfillQuiting
			return
		}
		t.queuePedal(event, arg)
		return
	}

	switch event {
	case PedalPress:
		t.enterDrumfill(arg)
	case PedalLongPress:
		// Deferred to the next bar boundary rather than applied immediately;
		// stepOneTick arms it once beatInBar wraps back to 0.
		t.longPressPending = true
	case PedalMultiTap:
		t.status = StatusPlayingMainTrackToEnd
	case PedalRelease:
		// no-op while in steady main-track playback
	}
}

func (t *Transport) queuePedal(event PedalEvent, arg int) {
	if len(t.pendingPedal) >= pendingPedalQueueSize {
		return // drop: small queue overflow
	}
	t.pendingPedal = append(t.pendingPedal, pedalRequest{event: event, arg: arg})
}

func (t *Transport) drainOnePending() {
	if len(t.pendingPedal) == 0 {
		return
	}
	req := t.pendingPedal[0]
	t.pendingPedal = t.pendingPedal[1:]
	t.ButtonCallback(req.event, req.arg)
}

func (t *Transport) enterSection(kind sectionKind, sec *Section) {
	t.kind = kind
	t.cur = newSectionCursor(sec)
	if sec != nil {
		t.tempoBPM = sec.TempoBPM
		t.tempoChangedBySong = true
	}
}

func (t *Transport) enterMain(part int) {
	if t.song == nil || len(t.song.Parts) == 0 {
		t.status = StatusStopped
		return
	}
	part = part % len(t.song.Parts)
	t.partIndex = part
	t.enterSection(sectionMain, &t.song.Parts[part].Main)
	t.status = StatusPlayingMainTrack
	t.dumpf("part -> %d\n", part)
	t.drainOnePending()
}

func (t *Transport) enterDrumfill(arg int) {
	p := &t.song.Parts[t.partIndex]
	if len(p.DrumFills) == 0 {
		return
	}
	idx := arg
	if idx < 0 || idx >= len(p.DrumFills) {
		idx = t.drumfillIndex % len(p.DrumFills)
	}
	t.drumfillIndex = idx
	t.enterSection(sectionDrumfill, &p.DrumFills[idx])
	t.status = StatusDrumfillActive
}

func (t *Transport) enterTranfill() {
	if len(t.song.TransitionFills) == 0 {
		t.enterMain((t.partIndex + 1) % len(t.song.Parts))
		return
	}
	idx := t.partIndex % len(t.song.TransitionFills)
	t.enterSection(sectionTranfill, &t.song.TransitionFills[idx])
	t.status = StatusTranfillActive
}

func (t *Transport) enterOutro() {
	if t.song.Outro == nil {
		t.status = StatusStopped
		t.kind = sectionNone
		return
	}
	t.enterSection(sectionOutro, t.song.Outro)
	t.status = StatusOutro
}

// ProcessSong advances the tick clock by up to nTicks ticks, firing every
// event the cursor crosses, and returns the number of ticks actually
// advanced (less than nTicks only if playback stopped mid-call).
func (t *Transport) ProcessSong(nTicks uint32) uint32 {
	var processed uint32
	for processed < nTicks {
		if t.status == StatusStopped || t.status == StatusNoSongLoaded || t.status == StatusPaused {
			break
		}
		t.stepOneTick()
		processed++
	}
	return processed
}

// ProcessSingleTrack behaves like ProcessSong but is only valid while
// SINGLE_TRACK_PLAYER is active; offset ticks are consumed silently before
// the fragment starts sounding, matching the bar-aligned preview contract.
func (t *Transport) ProcessSingleTrack(nTicks uint32, offset uint32) uint32 {
	if t.status != StatusSingleTrackPlayer {
		return 0
	}
	for offset > 0 && t.cur.sec != nil && t.cur.tickPos < t.cur.sec.LengthTicks {
		t.cur.tickPos++
		offset--
	}
	return t.ProcessSong(nTicks)
}

func (t *Transport) stepOneTick() {
	t.masterTick++

	t.ticksSinceBeat++
	if t.ticksSinceBeat >= TicksPerBeat {
		t.ticksSinceBeat = 0
		num := t.GetTimeSignature().Num
		if num == 0 {
			num = 4
		}
		t.beatInBar = (t.beatInBar + 1) % num
		if t.beatInBar == 0 {
			t.startBeat = t.masterTick
			if t.longPressPending && t.status == StatusPlayingMainTrack {
				t.longPressPending = false
				t.enterTranfill()
			}
		}
	}

	if t.cur.sec == nil {
		return
	}

	t.cur.tickPos++
	for t.cur.eventIdx < len(t.cur.sec.Events) && t.cur.tickPos >= t.cur.nextEventTick {
		t.fireEvent(t.cur.sec.Events[t.cur.eventIdx])
		t.cur.eventIdx++
		if t.cur.eventIdx < len(t.cur.sec.Events) {
			t.cur.nextEventTick += t.cur.sec.Events[t.cur.eventIdx].DeltaTicks
		}
	}

	if t.cur.tickPos >= t.cur.sec.LengthTicks {
		t.onSectionEnd()
	}
}

func (t *Transport) fireEvent(e Event) {
	switch e.Type {
	case EventNoteOn:
		t.sm.NoteOn(e.Note, e.Velocity)
	case EventNoteOff:
		t.sm.NoteOff(e.Note)
	case EventTempo:
		if e.Tempo > 0 {
			t.tempoBPM = e.Tempo
			t.tempoChangedBySong = true
		}
	case EventAccentHit:
		t.sm.TriggerEffect(t.partIndex)
	case EventEnd:
		// explicit early terminator, handled by LengthTicks/tickPos already
	}
}

// TempoChangedBySong reports and clears the flag the Player polls to know
// when to emit tempo_changed_by_song.
func (t *Transport) TempoChangedBySong() bool {
	v := t.tempoChangedBySong
	t.tempoChangedBySong = false
	return v
}

func (t *Transport) onSectionEnd() {
	switch t.kind {
	case sectionIntro:
		t.enterMain(0)
	case sectionMain:
		if t.status == StatusPlayingMainTrackToEnd {
			t.enterOutro()
			return
		}
		// loop the part in place until a pedal event advances it
		t.cur = newSectionCursor(t.cur.sec)
	case sectionDrumfill:
		t.enterMain(t.partIndex)
	case sectionTranfill:
		next := (t.partIndex + 1) % len(t.song.Parts)
		t.enterMain(next)
	case sectionOutro:
		t.status = StatusStopped
		t.kind = sectionNone
		t.cur = sectionCursor{}
	case sectionSingleTrack:
		t.status = StatusStopped
		t.kind = sectionNone
		t.cur = sectionCursor{}
	}
}
