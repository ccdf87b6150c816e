// drumwav renders a drumset+song pair to a WAVE file by scripting pedal
// events from the command line instead of reading them from hardware.
package main

import (
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"github.com/tsasaki/drumengine"
	"github.com/tsasaki/drumengine/cmd/internal/pedalmap"
)

var (
	flagHz       = flag.Int("hz", 44100, "output sample rate")
	flagOut      = flag.String("out", "", "output WAVE file path (required)")
	flagDuration = flag.Duration("duration", 10*time.Second, "how long to render")
	flagPedals   = flag.String("pedals", "", "comma-separated pedal script, e.g. press,release@2s,long-press@5s")
	flagRawWAV   = flag.Bool("raw-wav", false, "use the alternate sample-at-a-time WAVE writer")
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("drumwav: ")
	flag.Parse()

	if len(flag.Args()) < 2 || *flagOut == "" {
		log.Fatal("usage: drumwav -out <file.wav> <drumset.drm> <song.sng>")
	}

	f, err := os.Create(*flagOut)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	var sink drumengine.Sink
	if *flagRawWAV {
		sink = newRawWAVSink(f, int(flagDuration.Seconds())*(*flagHz), *flagHz)
	} else {
		ws := newWAVSink(*flagHz)
		if err := ws.attach(f); err != nil {
			log.Fatal(err)
		}
		sink = ws
	}

	player := drumengine.NewPlayer(sink)
	if err := player.SetDrumset(flag.Arg(0)); err != nil {
		log.Fatal(err)
	}
	if err := player.SetSong(flag.Arg(1)); err != nil {
		log.Fatal(err)
	}

	script, err := parsePedalScript(*flagPedals)
	if err != nil {
		log.Fatal(err)
	}

	if err := player.Play(nil); err != nil {
		log.Fatal(err)
	}
	runScript(player, script)

	timer := time.NewTimer(*flagDuration)
	go func() {
		<-timer.C
		player.Stop()
	}()
	player.WaitStopped()
}

type scriptedEvent struct {
	at    time.Duration
	event drumengine.PedalEvent
}

func parsePedalScript(spec string) ([]scriptedEvent, error) {
	if spec == "" {
		return nil, nil
	}
	var events []scriptedEvent
	for _, entry := range strings.Split(spec, ",") {
		if entry == "" {
			continue
		}
		name, at := entry, time.Duration(0)
		if idx := strings.IndexByte(entry, '@'); idx >= 0 {
			name = entry[:idx]
			d, err := time.ParseDuration(entry[idx+1:])
			if err != nil {
				return nil, err
			}
			at = d
		}
		event, err := pedalmap.FromFlag(name)
		if err != nil {
			return nil, err
		}
		events = append(events, scriptedEvent{at: at, event: event})
	}
	return events, nil
}

func runScript(player *drumengine.Player, script []scriptedEvent) {
	for _, se := range script {
		se := se
		time.AfterFunc(se.at, func() {
			switch se.event {
			case drumengine.PedalPress:
				player.PedalPress()
			case drumengine.PedalRelease:
				player.PedalRelease()
			case drumengine.PedalLongPress:
				player.PedalLongPress()
			case drumengine.PedalMultiTap:
				player.PedalDoubleTap()
			case drumengine.FootSecondaryPress:
				player.Effect()
			}
		})
	}
}
