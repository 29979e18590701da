// Package engine ties a loaded level to the player, collision and the renderer. Front-ends call
// Tick at a fixed rate and Render as often as they draw, passing how far they are between ticks.
package engine

import (
	"image"
	"image/color"
	"io"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	wad "github.com/stuarthighley/wadview"
	"github.com/stuarthighley/wadview/actor"
	"github.com/stuarthighley/wadview/bsp"
	"github.com/stuarthighley/wadview/camera"
	"github.com/stuarthighley/wadview/collision"
	"github.com/stuarthighley/wadview/config"
	"github.com/stuarthighley/wadview/render"
)

var logger logrus.FieldLogger = discardLogger()

func discardLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func SetLogger(l logrus.FieldLogger) {
	logger = l
}

// Input is the control state for one tick. Each axis runs from -1 to 1.
type Input struct {
	Forward float64 // Positive moves ahead
	Strafe  float64 // Positive moves right
	Turn    float64 // Positive turns left
}

// Session is one level being explored
type Session struct {
	Config   *config.Config
	Level    *wad.Level
	Textures render.TextureSet
	Player   *actor.Viewpoint
	Automap  bool

	wad      *wad.WAD
	tree     *bsp.Tree
	resolver *collision.Resolver
	renderer *render.Renderer
	ticks    int
}

// Open loads the configured WAD and level and places the player at the first player start
func Open(cfg *config.Config) (*Session, error) {
	w, err := wad.NewWAD(cfg.Resource.WAD)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", cfg.Resource.WAD)
	}
	w.BlocklistHeader = cfg.Map.BlockMapNoFirstLine

	level, err := w.ReadLevel(cfg.Map.Name)
	if err != nil {
		w.Close()
		return nil, errors.Wrapf(err, "reading level %s", cfg.Map.Name)
	}
	s := New(cfg, level, render.LoadTextures(w))
	s.wad = w
	return s, nil
}

// New starts a session on an already loaded level. tex may be nil, in which case every surface
// gets its fallback colour.
func New(cfg *config.Config, level *wad.Level, tex render.TextureSet) *Session {
	s := &Session{
		Config:   cfg,
		Level:    level,
		Textures: tex,
		tree:     bsp.NewTree(level),
		resolver: collision.New(level),
	}
	s.Resize(cfg.Screen.Width, cfg.Screen.Height)

	pos, angle := s.start()
	s.Player = actor.NewViewpoint(actor.Player, pos, angle, cfg.Player.Radius, cfg.Player.Height)
	s.Player.Floor = s.tree.FloorHeight(pos)
	logger.WithFields(logrus.Fields{
		"level": level.Name,
		"x":     pos.X(),
		"y":     pos.Y(),
		"angle": angle,
	}).Info("Session started")
	return s
}

// start returns player 1's start, or the middle of the level if it has none
func (s *Session) start() (mgl64.Vec2, float64) {
	if t, ok := s.Level.PlayerStart(1); ok {
		return mgl64.Vec2{float64(t.X), float64(t.Y)}, t.Angle
	}
	b := s.Level.Bounds()
	logger.WithField("level", s.Level.Name).Warn("No player 1 start, using the centre of the level")
	return mgl64.Vec2{float64(b.Left+b.Right) / 2, float64(b.Bottom+b.Top) / 2}, 0
}

// Resize changes the rendered size, keeping the field of view. Sizes below one pixel are ignored.
func (s *Session) Resize(width, height int) {
	if width < 1 || height < 1 {
		return
	}
	s.Config.Screen.Width, s.Config.Screen.Height = width, height
	cam := camera.New(float32(s.Config.Camera.FOV), width)
	s.renderer = render.New(cam, width, height)
}

// Close releases the WAD file, if the session opened one
func (s *Session) Close() error {
	if s.wad == nil {
		return nil
	}
	return s.wad.Close()
}

// Ticks returns the number of ticks run
func (s *Session) Ticks() int {
	return s.ticks
}

// Tick advances the player by one fixed step
func (s *Session) Tick(in Input) {
	dt := 1 / float64(s.Config.Screen.TPS)
	p := s.Player
	p.Snapshot()
	p.Turn(in.Turn * s.Config.Player.AngleSpeed * dt)

	step := s.Config.Player.Speed * dt
	attempted := p.Attempt(in.Forward*step, in.Strafe*step)
	if attempted != p.Position {
		p.Position = s.resolver.Move(p.Kind, p.Position, attempted, p.Radius)
		p.Floor = s.tree.FloorHeight(p.Position)
	}
	s.ticks++
}

// Render clears fb and draws the view alpha of the way from the last tick to the current one,
// with the automap on top when it is switched on.
func (s *Session) Render(fb render.Framebuffer, alpha float64) {
	clearFrame(fb)
	s.renderer.Draw(s.Player.View(alpha), s.Level, s.Textures, fb)
	if s.Automap {
		render.DrawAutomap(s.Level, s.Player, fb, fb.Bounds())
	}
}

// NewFrame returns a framebuffer sized for the configured screen
func (s *Session) NewFrame() *image.RGBA {
	return image.NewRGBA(image.Rect(0, 0, s.Config.Screen.Width, s.Config.Screen.Height))
}

func clearFrame(fb render.Framebuffer) {
	black := color.RGBA{A: 255}
	b := fb.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			fb.SetRGBA(x, y, black)
		}
	}
}
