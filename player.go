package drumengine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Buffer-time bounds, mirrored from the original's
// MIXER_MIN/MAX_BUFFERRING_TIME_MS clamp.
const (
	MinBufferTimeMS = 10
	MaxBufferTimeMS = 500

	ticksPerRefresh = 5

	maxBundleFileSize  = 100 * 1024 * 1024
	largeFileCutoff    = 50 * 1024 * 1024
	largeFileHeadroom  = 1.1
	standardHeadroom   = 2.0
	standardFloorBytes = 20 * 1024 * 1024
	memoryCheckPeriod  = 5 * time.Second
	maxTotalMemory     = 500 * 1024 * 1024

	stopWaitTimeout = 3 * time.Second
)

// samplesPerRefresh is SAMPLES_PER_REFRESH(bpm): how many stereo sample
// frames ticksPerRefresh ticks correspond to at the given tempo.
func samplesPerRefresh(bpm uint16) float64 {
	ratio := tickToTimeRatio(bpm)
	return float64(ticksPerRefresh) * ratio * 44100.0
}

func tickToTimeRatio(bpm uint16) float64 {
	if bpm == 0 {
		bpm = 120
	}
	return (60.0 / float64(bpm)) / float64(TicksPerBeat)
}

// Player is the real-time scheduler: it owns the Sound Manager, the
// Mixer, the Transport, and the event queue, and drives the audio loop
// that converts sink backpressure into tick budgets.
type Player struct {
	sm        *SoundManager
	mixer     *Mixer
	transport *Transport
	queue     *EventQueue
	sink      Sink

	statusCh chan StatusEvent

	bufferTimeMS    int
	bufferSizeBytes int
	soundCardLimit  int

	tempoBPM       uint16
	tempoOverride  uint16 // external set_tempo; 0 means "no override"
	sampleRemainder float64

	prepareStop bool

	loadedDrumsetSize int64
	loadedSongSize    int64
	loadedEffectSize  int64

	running  atomic.Bool
	stopping atomic.Bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once

	lastStatus    TransportStatus
	lastPart      int
	lastDrumfill  int
	lastBeat      uint8
	lastSigNum    uint8
	lastStarted   bool
}

// NewPlayer wires a Player with a freshly constructed Sound Manager,
// Mixer, Transport and EventQueue, writing output to sink.
func NewPlayer(sink Sink) *Player {
	sm := NewSoundManager()
	return &Player{
		sm:           sm,
		mixer:        NewMixer(sm),
		transport:    NewTransport(sm),
		queue:        NewEventQueue(),
		sink:         sink,
		statusCh:     make(chan StatusEvent, 64),
		bufferTimeMS: 100,
		tempoBPM:     120,
	}
}

// StatusCh returns the channel the control thread should read Player
// signals from.
func (p *Player) StatusCh() <-chan StatusEvent { return p.statusCh }

// SetBufferTimeMS clamps and stores the requested output buffer window.
func (p *Player) SetBufferTimeMS(ms int) {
	switch {
	case ms > MaxBufferTimeMS:
		ms = MaxBufferTimeMS
	case ms < MinBufferTimeMS:
		ms = MinBufferTimeMS
	}
	p.bufferTimeMS = ms
}

// SetTempo installs an external tempo override that takes effect on the
// next refresh, taking precedence over tempo discovered from the song
// until cleared by passing 0.
func (p *Player) SetTempo(bpm int) {
	if bpm <= 0 {
		p.tempoOverride = 0
		return
	}
	p.tempoOverride = uint16(bpm)
}

// SetDrumset reads path and loads it as the active drumset bundle.
func (p *Player) SetDrumset(path string) error {
	b, err := loadBundleFile(path)
	if err != nil {
		p.emit(StatusEvent{Kind: EventPlayerError, Err: err})
		return err
	}
	return p.LoadDrumsetBytes(b)
}

// LoadDrumsetBytes validates memory guards and loads the drumset bundle
// from an in-memory blob, bypassing the filesystem — used by tests and by
// hosts that already have the bytes.
func (p *Player) LoadDrumsetBytes(b []byte) error {
	if err := checkBundleSize(int64(len(b)), p.totalLoadedBytes()-p.loadedDrumsetSize); err != nil {
		return err
	}
	if err := p.sm.LoadDrumset(b); err != nil {
		return err
	}
	p.loadedDrumsetSize = int64(len(b))
	return nil
}

// SetSong reads path and loads it as the active song bundle.
func (p *Player) SetSong(path string) error {
	b, err := loadBundleFile(path)
	if err != nil {
		p.emit(StatusEvent{Kind: EventPlayerError, Err: err})
		return err
	}
	return p.LoadSongBytes(b)
}

// LoadSongBytes validates memory guards, loads the song bundle, and cross
// validates it against the loaded drumset.
func (p *Player) LoadSongBytes(b []byte) error {
	if err := checkBundleSize(int64(len(b)), p.totalLoadedBytes()-p.loadedSongSize); err != nil {
		return err
	}
	if err := p.transport.LoadSong(b); err != nil {
		return err
	}
	if p.sm.drumset != nil {
		if err := p.sm.drumset.Resolve(p.transport.song); err != nil {
			return err
		}
	}
	p.loadedSongSize = int64(len(b))
	p.tempoBPM = p.transport.song.DefaultTempoBPM
	return nil
}

// SetEffectsPath reads path and installs it as the accent-hit sample for
// partIndex.
func (p *Player) SetEffectsPath(path string, partIndex int) error {
	b, err := loadBundleFile(path)
	if err != nil {
		p.emit(StatusEvent{Kind: EventPlayerError, Err: err})
		return err
	}
	return p.LoadEffectBytes(b, partIndex)
}

// LoadEffectBytes installs the accent-hit sample for partIndex from an
// in-memory WAV blob.
func (p *Player) LoadEffectBytes(b []byte, partIndex int) error {
	if err := checkBundleSize(int64(len(b)), p.totalLoadedBytes()-p.loadedEffectSize); err != nil {
		return err
	}
	if err := p.sm.LoadEffect(b, partIndex); err != nil {
		return err
	}
	p.loadedEffectSize = int64(len(b))
	return nil
}

func (p *Player) totalLoadedBytes() int64 {
	return p.loadedDrumsetSize + p.loadedSongSize + p.loadedEffectSize
}

// checkBundleSize applies the original's load-time memory guard: an
// absolute 100MB cap per bundle, plus a required-headroom figure (1.1x for
// files over 50MB, otherwise 2x with a 20MB floor) checked against the
// total already resident across drumset/song/effect buffers.
func checkBundleSize(size, alreadyResident int64) error {
	if size > maxBundleFileSize {
		return newError(KindOutOfMemory, "checkBundleSize", nil)
	}

	var headroom int64
	if size > largeFileCutoff {
		headroom = int64(float64(size) * largeFileHeadroom)
	} else {
		headroom = int64(float64(size) * standardHeadroom)
		if headroom < standardFloorBytes {
			headroom = standardFloorBytes
		}
	}

	if alreadyResident+headroom > maxTotalMemory {
		return newError(KindOutOfMemory, "checkBundleSize", nil)
	}
	return nil
}

// Play starts (or restarts) the real-time loop. A second call while
// running performs stop+wait+play, matching the no-reentrancy contract.
func (p *Player) Play(singleTrack *Section) error {
	if p.running.Load() {
		p.Stop()
		p.wg.Wait()
	}
	if p.transport.song == nil && singleTrack == nil {
		return newError(KindInternalState, "Play", ErrNoSongLoaded)
	}

	if err := p.sink.Open(bufferTimeToBytes(p.bufferTimeMS)); err != nil {
		p.emit(StatusEvent{Kind: EventPlayerError, Err: err})
		return newError(KindDeviceUnavailable, "Play", err)
	}
	p.bufferSizeBytes = p.sink.EffectiveBufferSize()
	p.soundCardLimit = 0
	p.prepareStop = false
	p.sampleRemainder = 0

	if singleTrack != nil {
		p.transport.SetSingleTrack(singleTrack)
	} else {
		p.transport.ExternalStart()
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.stopOnce = sync.Once{}
	p.stopping.Store(false)
	p.running.Store(true)

	p.emit(StatusEvent{Kind: EventPlayerStarted, Started: true})
	p.emitStatusIfChanged(true)

	p.wg.Add(1)
	go p.loop(ctx, singleTrack != nil)

	return nil
}

// Stop requests a soft stop: the audio loop arms prepare-stop and exits on
// its own once outstanding voices decay to inaudibility.
func (p *Player) Stop() {
	p.stopOnce.Do(func() {
		p.stopping.Store(true)
	})
}

// PedalPress, PedalRelease, PedalLongPress, PedalDoubleTap, and Effect are
// the host-visible pedal operations; each enqueues onto the lock-protected
// event queue for the audio loop to drain at most one per refresh.
func (p *Player) PedalPress()     { p.queue.Enqueue(PedalPress, -1) }
func (p *Player) PedalRelease()   { p.queue.Enqueue(PedalRelease, -1) }
func (p *Player) PedalLongPress() { p.queue.Enqueue(PedalLongPress, -1) }
func (p *Player) PedalDoubleTap() { p.queue.Enqueue(PedalMultiTap, -1) }
func (p *Player) Effect()         { p.queue.Enqueue(FootSecondaryPress, -1) }

func (p *Player) emit(ev StatusEvent) {
	select {
	case p.statusCh <- ev:
	default:
		// control thread isn't keeping up; drop rather than block the
		// audio loop.
	}
}

func (p *Player) emitStatusIfChanged(force bool) {
	status, part, drumfill := p.transport.GetPlayerStatus()
	beat, _ := p.transport.GetBeatInBar()
	sigNum := p.transport.GetTimeSignature().Num
	started := status != StatusStopped && status != StatusNoSongLoaded && status != StatusPaused

	if force || status != p.lastStatus {
		switch status {
		case StatusIntro:
			p.emit(StatusEvent{Kind: EventPlayingIntro})
		case StatusPlayingMainTrack, StatusPlayingMainTrackToEnd:
			p.emit(StatusEvent{Kind: EventPlayingMainTrack, Part: part})
		case StatusOutro:
			p.emit(StatusEvent{Kind: EventPlayingOutro})
		case StatusTranfillActive, StatusTranfillQuiting:
			p.emit(StatusEvent{Kind: EventPlayingTranfill, Part: part})
		case StatusDrumfillActive:
			p.emit(StatusEvent{Kind: EventPlayingDrumfill, Part: part, DrumFill: drumfill})
		}
	}
	if force || started != p.lastStarted {
		p.emit(StatusEvent{Kind: EventStartedChanged, Started: started})
	}
	if force || part != p.lastPart {
		p.emit(StatusEvent{Kind: EventPartChanged, Part: part})
	}
	if force || sigNum != p.lastSigNum {
		p.emit(StatusEvent{Kind: EventSigNumChanged, SigNum: sigNum})
	}
	if force || beat != p.lastBeat {
		p.emit(StatusEvent{Kind: EventBeatInBarChanged, BeatInBar: beat})
	}

	p.lastStatus, p.lastPart, p.lastDrumfill, p.lastBeat = status, part, drumfill, beat
	p.lastSigNum, p.lastStarted = sigNum, started
}

// loop is the dedicated real-time goroutine. It mirrors the original's
// refresh cycle: poll sink free-space, convert to a tick budget, advance
// the transport, drain the mixer, write the sink, pump one pedal event,
// and report status.
func (p *Player) loop(ctx context.Context, singleTrack bool) {
	defer p.wg.Done()
	defer p.teardown()

	scratch := make([]int16, 0)
	var memCheckAccum time.Duration
	const tickInterval = time.Millisecond

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if p.stopping.Load() && !p.prepareStop {
			p.prepareStop = true
		}

		bytesFree := p.sink.BytesFree() - p.soundCardLimit
		if bytesFree > p.bufferSizeBytes {
			p.soundCardLimit += bytesFree - p.bufferSizeBytes
			bytesFree = p.bufferSizeBytes
		}
		samplesToProcess := bytesFree / 4 // 2 channels * 2 bytes

		produced := 0
		if samplesToProcess > 0 {
			bpm := p.effectiveTempo()
			spr := samplesPerRefresh(bpm)
			updateCount := int(float64(samplesToProcess)/spr)
			if updateCount > 0 {
				var ticks uint32
				if singleTrack {
					ticks = p.transport.ProcessSingleTrack(uint32(updateCount*ticksPerRefresh), 0)
				} else {
					ticks = p.transport.ProcessSong(uint32(updateCount * ticksPerRefresh))
				}
				refreshesDone := int(ticks) / ticksPerRefresh
				exact := float64(refreshesDone)*spr + p.sampleRemainder
				produced = int(exact)
				p.sampleRemainder = exact - float64(produced)
			}
		}

		if produced > 0 {
			if cap(scratch) < produced*2 {
				scratch = make([]int16, produced*2)
			}
			buf := scratch[:produced*2]
			p.mixer.ReadOutputStream(buf, produced*2)

			if p.prepareStop {
				if AllSamplesBelow(buf, PrepareStopThreshold) {
					p.stopping.Store(true)
					p.cancel()
				}
				p.mixer.DecayOutputLevel()
			}

			byteBuf := int16SliceToBytes(buf)
			p.sink.Write(byteBuf)
		}

		if p.transport.TempoChangedBySong() {
			p.emit(StatusEvent{Kind: EventTempoChangedBySong, TempoBPM: p.transport.GetTempo()})
		}

		if !singleTrack {
			if event, arg, ok := p.queue.TryDequeue(); ok {
				p.transport.ButtonCallback(event, arg)
			}
		}

		p.emit(StatusEvent{Kind: EventPlayerPosition, Tick: p.transport.GetMasterTick()})
		p.emitStatusIfChanged(false)

		if p.transport.status == StatusStopped && p.prepareStop {
			p.cancel()
		}

		memCheckAccum += tickInterval
		if memCheckAccum >= memoryCheckPeriod {
			memCheckAccum = 0
			if p.totalLoadedBytes() > maxTotalMemory {
				p.emit(StatusEvent{Kind: EventPlayerError, Err: newError(KindOutOfMemory, "loop", nil)})
				p.cancel()
			}
		}

		if produced == 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Millisecond):
			}
		}
	}
}

func (p *Player) effectiveTempo() uint16 {
	if p.tempoOverride > 0 {
		return p.tempoOverride
	}
	if t := p.transport.GetTempo(); t > 0 {
		return t
	}
	return p.tempoBPM
}

func (p *Player) teardown() {
	if !p.running.Load() {
		return
	}
	if p.transport.status != StatusSingleTrackPlayer {
		p.transport.ExternalStop()
	}
	p.sink.Stop()
	p.sm.Clear()
	p.running.Store(false)
	p.emit(StatusEvent{Kind: EventPlayerStopped, Started: false})
}

// WaitStopped blocks until the audio loop has exited or timeout elapses,
// mirroring the 3-second graceful-wait-then-force-terminate contract.
func (p *Player) WaitStopped() bool {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(stopWaitTimeout):
		if p.cancel != nil {
			p.cancel()
		}
		return false
	}
}

func bufferTimeToBytes(ms int) int {
	// 44100 frames/s * 4 bytes/frame * ms/1000
	return ms * 44100 * 4 / 1000
}

func int16SliceToBytes(s []int16) []byte {
	b := make([]byte, len(s)*2)
	for i, v := range s {
		b[i*2] = byte(v)
		b[i*2+1] = byte(v >> 8)
	}
	return b
}
