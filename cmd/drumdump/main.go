// drumdump parses a drumset or song bundle and prints its structure,
// grounded on cmd/moddump.teacherref's extension-dispatched dump idiom.
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/tsasaki/drumengine"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("drumdump: ")

	if len(os.Args) <= 1 {
		log.Fatal("missing bundle filename")
	}

	path := os.Args[1]
	b, err := os.ReadFile(path)
	if err != nil {
		log.Fatal(err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".drm":
		drumset, err := drumengine.ParseDrumset(b)
		if err != nil {
			log.Fatal(err)
		}
		dumpDrumset(drumset)
	case ".sng":
		song, err := drumengine.ParseSong(b)
		if err != nil {
			log.Fatal(err)
		}
		dumpSong(song)
	default:
		log.Fatalf("unsupported bundle %q", path)
	}
}

func dumpDrumset(d *drumengine.Drumset) {
	fmt.Printf("instruments: %d\n", len(d.Instruments))
	for note, inst := range d.Instruments {
		fmt.Printf("  note %3d: %d layer(s)\n", note, len(inst.Layers))
		for i, l := range inst.Layers {
			fmt.Printf("    [%d] velocity %d-%d  %dch @ %dHz  %d frames  looped=%v\n",
				i, l.MinVelocity, l.MaxVelocity, l.Channels, l.SampleRate, l.Frames, l.Looped)
		}
	}
}

func dumpSong(s *drumengine.Song) {
	fmt.Printf("default tempo: %d bpm, %d/%d\n", s.DefaultTempoBPM, s.DefaultTimeSig.Num, s.DefaultTimeSig.Den)
	if s.Intro != nil {
		dumpSection("intro", *s.Intro)
	}
	for i, p := range s.Parts {
		fmt.Printf("part %d (effect %q, loop %d):\n", i, p.EffectName, p.LoopCount)
		dumpSection("  main", p.Main)
		for j, f := range p.DrumFills {
			dumpSection(fmt.Sprintf("  drumfill[%d]", j), f)
		}
	}
	for i, f := range s.TransitionFills {
		dumpSection(fmt.Sprintf("tranfill[%d]", i), f)
	}
	if s.Outro != nil {
		dumpSection("outro", *s.Outro)
	}
}

func dumpSection(label string, sec drumengine.Section) {
	fmt.Printf("%s: %d ticks, %d/%d @ %d bpm, %d events\n",
		label, sec.LengthTicks, sec.TimeSignature.Num, sec.TimeSignature.Den, sec.TempoBPM, len(sec.Events))
}
