// Command wadview walks through a Doom level in a window
package main

import (
	"flag"
	"image"
	"os"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/sirupsen/logrus"

	"github.com/stuarthighley/wadview/engine"
	"github.com/stuarthighley/wadview/internal/cli"
)

type game struct {
	session *engine.Session
	frame   *image.RGBA
	updated time.Time
}

func (g *game) Update() error {
	if ebiten.IsKeyPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyTab) {
		g.session.Automap = !g.session.Automap
	}
	g.session.Tick(readInput())
	g.updated = time.Now()
	return nil
}

func axis(neg, pos bool) float64 {
	switch {
	case pos && !neg:
		return 1
	case neg && !pos:
		return -1
	}
	return 0
}

func pressed(keys ...ebiten.Key) bool {
	for _, k := range keys {
		if ebiten.IsKeyPressed(k) {
			return true
		}
	}
	return false
}

func readInput() engine.Input {
	return engine.Input{
		Forward: axis(pressed(ebiten.KeyS, ebiten.KeyDown), pressed(ebiten.KeyW, ebiten.KeyUp)),
		Strafe:  axis(pressed(ebiten.KeyA), pressed(ebiten.KeyD)),
		Turn:    axis(pressed(ebiten.KeyRight), pressed(ebiten.KeyLeft)),
	}
}

func (g *game) Draw(screen *ebiten.Image) {
	alpha := time.Since(g.updated).Seconds() * float64(ebiten.TPS())
	if alpha > 1 {
		alpha = 1
	}
	g.session.Render(g.frame, alpha)
	screen.WritePixels(g.frame.Pix)
}

func (g *game) Layout(_, _ int) (int, int) {
	s := g.session.Config.Screen
	return s.Width, s.Height
}

func main() {
	var flags cli.Flags
	flags.Register(flag.CommandLine)
	flag.Parse()
	log := flags.Logger(os.Stderr)

	cfg, err := flags.Load()
	if err != nil {
		log.Fatal(err)
	}
	session, err := engine.Open(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer session.Close()

	s := cfg.Screen
	ebiten.SetTPS(s.TPS)
	ebiten.SetWindowSize(s.Width*s.Scale, s.Height*s.Scale)
	ebiten.SetWindowTitle(s.Title)

	g := &game{session: session, frame: session.NewFrame(), updated: time.Now()}
	log.WithFields(logrus.Fields{"wad": cfg.Resource.WAD, "map": cfg.Map.Name}).Info("Starting")
	if err := ebiten.RunGame(g); err != nil {
		log.Error(err)
	}
}
