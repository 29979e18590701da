// Package config loads viewer settings from an INI file. Every setting has a default, so a file
// only needs the values it changes.
package config

import (
	"github.com/pkg/errors"
	"gopkg.in/ini.v1"
)

type Resource struct {
	WAD string `ini:"wad"`
}

type Screen struct {
	Title  string `ini:"title"`
	Width  int    `ini:"width"`  // Rendered columns
	Height int    `ini:"height"` // Rendered rows
	Scale  int    `ini:"scale"`  // Window pixels per rendered pixel
	TPS    int    `ini:"tps"`    // Simulation ticks per second
}

type Camera struct {
	FOV float64 `ini:"fov"` // Horizontal field of view in degrees
}

type Player struct {
	Radius     float64 `ini:"radius"`
	Height     float64 `ini:"height"`      // Eye height above the floor
	Speed      float64 `ini:"speed"`       // Map units per second
	AngleSpeed float64 `ini:"angle_speed"` // Degrees per second
}

type Map struct {
	Name string `ini:"name"`
	// BlockMapNoFirstLine is set when every blockmap list starts with a 0 word
	BlockMapNoFirstLine bool `ini:"blockmap_no_first_line"`
}

// Config is the full set of viewer settings
type Config struct {
	Resource Resource
	Screen   Screen
	Camera   Camera
	Player   Player
	Map      Map
}

// Default returns the built in settings
func Default() *Config {
	return &Config{
		Resource: Resource{WAD: "doom1.wad"},
		Screen:   Screen{Title: "wadview", Width: 320, Height: 200, Scale: 3, TPS: 35},
		Camera:   Camera{FOV: 90},
		Player:   Player{Radius: 16, Height: 41, Speed: 280, AngleSpeed: 180},
		Map:      Map{Name: "E1M1", BlockMapNoFirstLine: true},
	}
}

// Load reads the INI file at path over the defaults. Section and key names are not case
// sensitive.
func Load(path string) (*Config, error) {
	file, err := ini.LoadSources(ini.LoadOptions{Insensitive: true}, path)
	if err != nil {
		return nil, errors.Wrapf(err, "loading config %s", path)
	}
	return parse(file)
}

// Parse reads INI text over the defaults
func Parse(data []byte) (*Config, error) {
	file, err := ini.LoadSources(ini.LoadOptions{Insensitive: true}, data)
	if err != nil {
		return nil, errors.Wrap(err, "parsing config")
	}
	return parse(file)
}

func parse(file *ini.File) (*Config, error) {
	c := Default()
	sections := []struct {
		name string
		dst  any
	}{
		{"resource", &c.Resource},
		{"screen", &c.Screen},
		{"camera", &c.Camera},
		{"player", &c.Player},
		{"map", &c.Map},
	}
	for _, s := range sections {
		if !file.HasSection(s.name) {
			continue
		}
		if err := file.Section(s.name).StrictMapTo(s.dst); err != nil {
			return nil, errors.Wrapf(err, "section [%s]", s.name)
		}
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks that every setting is usable
func (c *Config) Validate() error {
	switch {
	case c.Resource.WAD == "":
		return errors.New("resource: wad is empty")
	case c.Screen.Width <= 0 || c.Screen.Height <= 0:
		return errors.Errorf("screen: size %dx%d is not positive", c.Screen.Width, c.Screen.Height)
	case c.Screen.Scale <= 0:
		return errors.Errorf("screen: scale %d is not positive", c.Screen.Scale)
	case c.Screen.TPS <= 0:
		return errors.Errorf("screen: tps %d is not positive", c.Screen.TPS)
	case c.Camera.FOV <= 0 || c.Camera.FOV >= 180:
		return errors.Errorf("camera: fov %v is outside (0, 180)", c.Camera.FOV)
	case c.Player.Radius <= 0:
		return errors.Errorf("player: radius %v is not positive", c.Player.Radius)
	case c.Player.Height <= 0:
		return errors.Errorf("player: height %v is not positive", c.Player.Height)
	case c.Player.Speed < 0 || c.Player.AngleSpeed < 0:
		return errors.Errorf("player: speed %v, angle_speed %v must not be negative", c.Player.Speed, c.Player.AngleSpeed)
	case c.Map.Name == "":
		return errors.New("map: name is empty")
	}
	return nil
}
