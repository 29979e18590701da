// Command wadterm walks through a Doom level in a terminal, drawing two pixels per character
// cell with the upper half block.
package main

import (
	"flag"
	"image"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/sirupsen/logrus"

	"github.com/stuarthighley/wadview/engine"
	"github.com/stuarthighley/wadview/internal/cli"
)

// Terminals report key presses but not releases, so a press steers for this many ticks.
// Auto-repeat keeps a held key going.
const impulseTicks = 6

type viewer struct {
	screen  tcell.Screen
	session *engine.Session
	frame   *image.RGBA

	held     engine.Input
	holdLeft int
}

func (v *viewer) resize() {
	cols, rows := v.screen.Size()
	v.session.Resize(cols, rows*2)
	v.frame = v.session.NewFrame()
	v.screen.Clear()
}

// handle applies ev and reports whether to keep running
func (v *viewer) handle(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return false
		case tcell.KeyTab:
			v.session.Automap = !v.session.Automap
			return true
		}
		if in, ok := keyInput(ev); ok {
			v.held = in
			v.holdLeft = impulseTicks
		}
	case *tcell.EventResize:
		v.resize()
		v.screen.Sync()
	}
	return true
}

func keyInput(ev *tcell.EventKey) (engine.Input, bool) {
	switch ev.Key() {
	case tcell.KeyUp:
		return engine.Input{Forward: 1}, true
	case tcell.KeyDown:
		return engine.Input{Forward: -1}, true
	case tcell.KeyLeft:
		return engine.Input{Turn: 1}, true
	case tcell.KeyRight:
		return engine.Input{Turn: -1}, true
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'w', 'W':
			return engine.Input{Forward: 1}, true
		case 's', 'S':
			return engine.Input{Forward: -1}, true
		case 'a', 'A':
			return engine.Input{Strafe: -1}, true
		case 'd', 'D':
			return engine.Input{Strafe: 1}, true
		}
	}
	return engine.Input{}, false
}

func (v *viewer) tick() {
	in := engine.Input{}
	if v.holdLeft > 0 {
		in = v.held
		v.holdLeft--
	}
	v.session.Tick(in)
}

func (v *viewer) draw() {
	v.session.Render(v.frame, 1)
	blit(v.screen, v.frame)
	v.screen.Show()
}

// blit puts each pair of rows into one row of cells, the upper pixel as foreground
func blit(screen tcell.Screen, frame *image.RGBA) {
	b := frame.Bounds()
	for y := b.Min.Y; y+1 < b.Max.Y; y += 2 {
		for x := b.Min.X; x < b.Max.X; x++ {
			top, bottom := frame.RGBAAt(x, y), frame.RGBAAt(x, y+1)
			style := tcell.StyleDefault.
				Foreground(tcell.NewRGBColor(int32(top.R), int32(top.G), int32(top.B))).
				Background(tcell.NewRGBColor(int32(bottom.R), int32(bottom.G), int32(bottom.B)))
			screen.SetContent(x-b.Min.X, (y-b.Min.Y)/2, '▀', nil, style)
		}
	}
}

// pollEvents forwards the screen's events until the screen is finalised or done is closed
func pollEvents(screen tcell.Screen, done <-chan struct{}) <-chan tcell.Event {
	events := make(chan tcell.Event, 100)
	go func() {
		defer close(events)
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-done:
				return
			}
		}
	}()
	return events
}

func (v *viewer) run() {
	ticker := time.NewTicker(time.Second / time.Duration(v.session.Config.Screen.TPS))
	defer ticker.Stop()

	done := make(chan struct{})
	defer close(done)
	events := pollEvents(v.screen, done)

	for {
		select {
		case ev, ok := <-events:
			if !ok || !v.handle(ev) {
				return
			}
		case <-ticker.C:
			v.tick()
			v.draw()
		}
	}
}

func main() {
	var flags cli.Flags
	flags.Register(flag.CommandLine)
	logPath := flag.String("log", "wadterm.log", "log file, since the terminal is taken by the view")
	flag.Parse()

	logFile, err := os.OpenFile(*logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logrus.Fatal(err)
	}
	defer logFile.Close()
	log := flags.Logger(logFile)

	cfg, err := flags.Load()
	if err != nil {
		logrus.Fatal(err)
	}
	session, err := engine.Open(cfg)
	if err != nil {
		logrus.Fatal(err)
	}
	defer session.Close()

	screen, err := tcell.NewScreen()
	if err != nil {
		logrus.Fatal(err)
	}
	if err := screen.Init(); err != nil {
		logrus.Fatal(err)
	}
	defer screen.Fini()

	v := &viewer{screen: screen, session: session}
	v.resize()
	log.WithFields(logrus.Fields{"wad": cfg.Resource.WAD, "map": cfg.Map.Name}).Info("Starting")
	v.run()
	log.WithField("ticks", session.Ticks()).Info("Stopped")
}
