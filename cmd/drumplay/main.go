// drumplay plays a drumset+song pair live through the default audio
// device, simulating a pedal with the keyboard.
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/tsasaki/drumengine"
)

var (
	flagHz         = flag.Int("hz", 44100, "output sample rate")
	flagBufferMS   = flag.Int("buffer-ms", 100, "requested output buffer window in milliseconds")
	flagTempo      = flag.Int("tempo", 0, "tempo override in BPM, 0 uses the song's own tempo")
	flagEffectsDir = flag.String("effects", "", "directory of per-part accent-hit WAV files, named 0.wav, 1.wav, ...")
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("drumplay: ")
	flag.Parse()

	if len(flag.Args()) < 2 {
		log.Fatal("usage: drumplay <drumset.drm> <song.sng>")
	}

	sink, err := newPortaudioSink(*flagHz)
	if err != nil {
		log.Fatal(err)
	}

	player := drumengine.NewPlayer(sink)
	player.SetBufferTimeMS(*flagBufferMS)
	player.SetTempo(*flagTempo)

	if err := player.SetDrumset(flag.Arg(0)); err != nil {
		log.Fatal(err)
	}
	if err := player.SetSong(flag.Arg(1)); err != nil {
		log.Fatal(err)
	}
	if *flagEffectsDir != "" {
		loadEffects(player, *flagEffectsDir)
	}

	if err := player.Play(nil); err != nil {
		log.Fatal(err)
	}

	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, syscall.SIGINT)

	ui := newStatusUI(player)
	go ui.run()

	go func() {
		<-sigch
		player.Stop()
	}()

	startKeyboardPedal(player)

	player.WaitStopped()
}
