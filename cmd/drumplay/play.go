package main

import (
	"fmt"
	"os"

	"atomicgo.dev/keyboard"
	"atomicgo.dev/keyboard/keys"
	"github.com/fatih/color"
	"github.com/tsasaki/drumengine"
	"github.com/tsasaki/drumengine/cmd/internal/pedalmap"
)

var (
	cyan    = color.New(color.FgCyan).SprintfFunc()
	magenta = color.New(color.FgMagenta).SprintfFunc()
	yellow  = color.New(color.FgYellow).SprintfFunc()
	green   = color.New(color.FgGreen).SprintfFunc()
)

// statusUI prints a single colorized transport status line, refreshed on
// every status signal, grounded on cmd/modplay/play.go's color-coded
// renderHeader.
type statusUI struct {
	player *drumengine.Player
	part   int
	beat   uint8
	tempo  uint16
}

func newStatusUI(player *drumengine.Player) *statusUI {
	return &statusUI{player: player}
}

func (u *statusUI) run() {
	for ev := range u.player.StatusCh() {
		switch ev.Kind {
		case drumengine.EventPartChanged:
			u.part = ev.Part
		case drumengine.EventBeatInBarChanged:
			u.beat = ev.BeatInBar
		case drumengine.EventTempoChangedBySong:
			u.tempo = ev.TempoBPM
		case drumengine.EventPlayerError:
			fmt.Fprintf(os.Stderr, "drumplay: %v\n", ev.Err)
		case drumengine.EventPlayerStopped:
			fmt.Println()
			return
		}
		fmt.Printf("\r%s %3d %s %2d %s %3d  ", cyan("part"), u.part, magenta("beat"), u.beat, yellow("bpm"), u.tempo)
	}
}

// startKeyboardPedal blocks, translating key presses to pedal events until
// Ctrl-C/Escape or the listener is torn down by process exit.
func startKeyboardPedal(player *drumengine.Player) {
	fmt.Println(green("space=press  l=long-press  d=double-tap  e=effect  r=release  ctrl-c=quit"))
	keyboard.Listen(func(key keys.Key) (stop bool, err error) {
		if key.Code == keys.CtrlC || key.Code == keys.Escape {
			player.Stop()
			return true, nil
		}
		if key.Code != keys.RuneKey || len(key.Runes) == 0 {
			return false, nil
		}
		event, ok := pedalmap.FromRune(key.Runes[0])
		if !ok {
			return false, nil
		}
		dispatchPedal(player, event)
		return false, nil
	})
}

func dispatchPedal(player *drumengine.Player, event drumengine.PedalEvent) {
	switch event {
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
}
