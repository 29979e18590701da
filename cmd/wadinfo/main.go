// Command wadinfo lists what a WAD holds, prints a level's BSP tree, or exports its wall
// textures and flats as PNG files.
package main

import (
	"flag"
	"fmt"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	wad "github.com/stuarthighley/wadview"
	"github.com/stuarthighley/wadview/internal/cli"
)

func main() {
	var flags cli.Flags
	flags.Register(flag.CommandLine)
	tree := flag.Bool("tree", false, "print the BSP tree of the -map level")
	pngDir := flag.String("png", "", "write every wall texture and flat to this directory")
	flag.Parse()
	log := flags.Logger(os.Stderr)

	cfg, err := flags.Load()
	if err != nil {
		log.Fatal(err)
	}
	w, err := wad.NewWAD(cfg.Resource.WAD)
	if err != nil {
		log.Fatal(err)
	}
	defer w.Close()
	w.BlocklistHeader = cfg.Map.BlockMapNoFirstLine

	switch {
	case *tree:
		l, err := w.ReadLevel(cfg.Map.Name)
		if err != nil {
			log.Fatal(err)
		}
		wad.PrintTree(os.Stdout, l)
	case *pngDir != "":
		n, err := exportPNGs(w, *pngDir)
		if err != nil {
			log.Fatal(err)
		}
		log.WithFields(logrus.Fields{"dir": *pngDir, "images": n}).Info("Exported")
	default:
		list(os.Stdout, w)
	}
}

func list(out io.Writer, w *wad.WAD) {
	for _, name := range w.LevelNames() {
		fmt.Fprintln(out, "Level:", name)
	}
	for i, t := range w.TexturesList {
		fmt.Fprintln(out, "Texture:", i, t.Name, t.Width, t.Height)
	}
	for i, f := range w.FlatsList {
		fmt.Fprintln(out, "Flat:", i, f.Name)
	}
}

// exportPNGs writes walls as WALL_<name>.png and flats as FLAT_<name>.png, returning the count
func exportPNGs(w *wad.WAD, dir string) (int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, errors.Wrap(err, "creating output directory")
	}
	n := 0
	for prefix, images := range map[string]map[string]*wad.Image{
		"WALL_": w.WallImages(),
		"FLAT_": w.FlatImages(),
	} {
		names := make([]string, 0, len(images))
		for name := range images {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if err := writePNG(filepath.Join(dir, prefix+name+".png"), images[name]); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}

func writePNG(path string, m *wad.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating image file")
	}
	if err := png.Encode(f, m.RGBA()); err != nil {
		f.Close()
		return errors.Wrapf(err, "encoding %s", path)
	}
	return f.Close()
}
