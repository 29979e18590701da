// Package cli holds the flag handling and logging setup shared by the commands
package cli

import (
	"flag"
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	wad "github.com/stuarthighley/wadview"
	"github.com/stuarthighley/wadview/collision"
	"github.com/stuarthighley/wadview/config"
	"github.com/stuarthighley/wadview/engine"
	"github.com/stuarthighley/wadview/render"
)

// Flags are the options common to every command
type Flags struct {
	Config string
	WAD    string
	Map    string
	Debug  bool
}

// Register adds the common options to fs
func (f *Flags) Register(fs *flag.FlagSet) {
	fs.StringVar(&f.Config, "config", "", "INI settings file")
	fs.StringVar(&f.WAD, "wad", "", "WAD file, overriding the settings file")
	fs.StringVar(&f.Map, "map", "", "level name, overriding the settings file")
	fs.BoolVar(&f.Debug, "debug", false, "log debug messages")
}

// Load returns the settings file, or the defaults when there is none, with the flag overrides
// applied
func (f *Flags) Load() (*config.Config, error) {
	cfg := config.Default()
	if f.Config != "" {
		var err error
		if cfg, err = config.Load(f.Config); err != nil {
			return nil, err
		}
	}
	if f.WAD != "" {
		cfg.Resource.WAD = f.WAD
	}
	if f.Map != "" {
		cfg.Map.Name = f.Map
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid settings")
	}
	return cfg, nil
}

// Logger builds the command's logger and hands a component entry to each package
func (f *Flags) Logger(out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if f.Debug {
		l.SetLevel(logrus.DebugLevel)
	}
	wad.SetLogger(l.WithField("component", "wad"))
	collision.SetLogger(l.WithField("component", "collision"))
	render.SetLogger(l.WithField("component", "render"))
	engine.SetLogger(l.WithField("component", "engine"))
	return l
}
