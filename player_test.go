package drumengine

import (
	"testing"
	"time"
)

func newTestPlayer(t *testing.T) (*Player, *memSink) {
	t.Helper()
	sink := newMemSink()
	return NewPlayer(sink), sink
}

func TestCheckBundleSizeRejectsOverHardCap(t *testing.T) {
	err := checkBundleSize(maxBundleFileSize+1, 0)
	if err == nil {
		t.Fatal("expected the 100MB hard cap to reject a 100MB+1 byte bundle")
	}
	if KindOf(err) != KindOutOfMemory {
		t.Errorf("expected KindOutOfMemory, got %v", KindOf(err))
	}
}

func TestCheckBundleSizeRejectsInsufficientHeadroom(t *testing.T) {
	// A 60MB load against a full-budget resident footprint: even under the
	// hard cap, required headroom still exceeds the total ceiling.
	const size = int64(60 * 1024 * 1024) // above largeFileCutoff, so 1.1x headroom
	err := checkBundleSize(size, maxTotalMemory)
	if err == nil {
		t.Fatal("expected rejection when already-resident memory plus headroom exceeds the ceiling")
	}
}

func TestCheckBundleSizeAppliesFloorForSmallFiles(t *testing.T) {
	// A tiny file still reserves the 20MB floor of headroom, not 2x its own
	// (much smaller) size.
	err := checkBundleSize(1024, maxTotalMemory-10*1024*1024)
	if err == nil {
		t.Fatal("expected the 20MB floor to still trip the ceiling here")
	}
}

func TestCheckBundleSizeAcceptsOrdinaryLoad(t *testing.T) {
	if err := checkBundleSize(1024*1024, 0); err != nil {
		t.Errorf("expected an ordinary 1MB load with no resident memory to pass, got %v", err)
	}
}

func TestPlayRequiresSongOrSingleTrack(t *testing.T) {
	player, _ := newTestPlayer(t)
	if err := player.Play(nil); err == nil {
		t.Fatal("expected Play to reject a call with no song loaded and no single-track section")
	}
}

func testBundles(t *testing.T) (drumset, song []byte) {
	t.Helper()
	drumset = encodeDrumset(t, map[uint8][]Layer{36: {testLayer(0, 127, 1, 4410, 5000)}})
	spec := testSongSpec{
		tempo: 120,
		sig:   TimeSignature{Num: 4, Den: 4},
		parts: []Part{
			{Main: simpleMainSection(TicksPerBeat*4, 36)},
		},
	}
	song = encodeSong(spec)
	return
}

func TestPlayProducesOutputAndStops(t *testing.T) {
	player, sink := newTestPlayer(t)
	drumset, song := testBundles(t)

	if err := player.LoadDrumsetBytes(drumset); err != nil {
		t.Fatalf("LoadDrumsetBytes: %v", err)
	}
	if err := player.LoadSongBytes(song); err != nil {
		t.Fatalf("LoadSongBytes: %v", err)
	}

	if err := player.Play(nil); err != nil {
		t.Fatalf("Play: %v", err)
	}

	// Continuously drain the sink like a real device's DMA thread would, so
	// the loop never stalls on backpressure while we wait for output and
	// then for the prepare-stop fade to finish.
	drainDone := make(chan struct{})
	go func() {
		for {
			select {
			case <-drainDone:
				return
			default:
				sink.Drain(sink.EffectiveBufferSize())
				time.Sleep(time.Millisecond)
			}
		}
	}()

	deadline := time.After(2 * time.Second)
	for len(sink.Bytes()) == 0 {
		select {
		case <-deadline:
			close(drainDone)
			t.Fatal("timed out waiting for the player to produce any audio")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	player.Stop()
	stopped := player.WaitStopped()
	close(drainDone)
	if !stopped {
		t.Errorf("expected WaitStopped to return true within its timeout")
	}
}

func TestSetDrumsetRejectsMissingFile(t *testing.T) {
	player, _ := newTestPlayer(t)
	if err := player.SetDrumset("/nonexistent/path/to/nowhere.drm"); err == nil {
		t.Fatal("expected an error loading a nonexistent drumset path")
	}
}

func TestLoadSongBytesCrossValidatesAgainstDrumset(t *testing.T) {
	player, _ := newTestPlayer(t)
	drumset := encodeDrumset(t, map[uint8][]Layer{36: {testLayer(0, 127, 1, 10, 100)}})
	if err := player.LoadDrumsetBytes(drumset); err != nil {
		t.Fatalf("LoadDrumsetBytes: %v", err)
	}

	spec := testSongSpec{
		tempo: 120,
		sig:   TimeSignature{Num: 4, Den: 4},
		parts: []Part{
			{Main: simpleMainSection(TicksPerBeat*4, 99)}, // not in the drumset
		},
	}
	if err := player.LoadSongBytes(encodeSong(spec)); err == nil {
		t.Fatal("expected LoadSongBytes to reject a song referencing an unmapped instrument")
	}
}

func TestSamplesPerRefreshScalesInverselyWithTempo(t *testing.T) {
	slow := samplesPerRefresh(60)
	fast := samplesPerRefresh(120)
	if fast >= slow {
		t.Errorf("expected a faster tempo to require fewer samples per fixed tick budget: slow=%v fast=%v", slow, fast)
	}
}

func TestSetBufferTimeMSClamps(t *testing.T) {
	player, _ := newTestPlayer(t)
	player.SetBufferTimeMS(1)
	if player.bufferTimeMS != MinBufferTimeMS {
		t.Errorf("expected clamp to %d, got %d", MinBufferTimeMS, player.bufferTimeMS)
	}
	player.SetBufferTimeMS(10000)
	if player.bufferTimeMS != MaxBufferTimeMS {
		t.Errorf("expected clamp to %d, got %d", MaxBufferTimeMS, player.bufferTimeMS)
	}
}
