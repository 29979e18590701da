package wad_test

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"

	wad "github.com/stuarthighley/wadview"
	"github.com/stuarthighley/wadview/internal/testlevel"
)

func TestDecodeLevelRoundTrip(t *testing.T) {
	want := testlevel.TwoRooms()
	got, err := wad.DecodeLevel("TEST", testlevel.Lumps(want), true)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got.Vertexes, want.Vertexes) {
		t.Errorf("Vertexes = %v, want %v", got.Vertexes, want.Vertexes)
	}
	if !reflect.DeepEqual(got.LineDefs, want.LineDefs) {
		t.Errorf("LineDefs = %v, want %v", got.LineDefs, want.LineDefs)
	}
	if !reflect.DeepEqual(got.SideDefs, want.SideDefs) {
		t.Errorf("SideDefs = %v, want %v", got.SideDefs, want.SideDefs)
	}
	if !reflect.DeepEqual(got.Segs, want.Segs) {
		t.Errorf("Segs = %v, want %v", got.Segs, want.Segs)
	}
	if !reflect.DeepEqual(got.Nodes, want.Nodes) {
		t.Errorf("Nodes = %v, want %v", got.Nodes, want.Nodes)
	}
	if !reflect.DeepEqual(got.Sectors, want.Sectors) {
		t.Errorf("Sectors = %v, want %v", got.Sectors, want.Sectors)
	}
	if !reflect.DeepEqual(got.BlockMap.Cells, want.BlockMap.Cells) {
		t.Errorf("BlockMap = %v, want %v", got.BlockMap.Cells, want.BlockMap.Cells)
	}
	if th := got.Things[0]; th.X != 64 || th.Y != 128 || th.Type != 1 || !th.Skill3 || th.Ambush {
		t.Errorf("Things[0] = %+v", th)
	}
}

func TestDecodeLevelBuildsMissingBlockMap(t *testing.T) {
	lumps := testlevel.Lumps(testlevel.TwoRooms())
	delete(lumps, "BLOCKMAP")
	level, err := wad.DecodeLevel("TEST", lumps, true)
	if err != nil {
		t.Fatal(err)
	}
	if level.BlockMap == nil || len(level.BlockMap.Cells) == 0 {
		t.Fatal("no blockmap built")
	}
}

func TestDecodeLevelErrors(t *testing.T) {
	lumps := testlevel.Lumps(testlevel.TwoRooms())
	lumps["VERTEXES"] = lumps["VERTEXES"][:5]
	if _, err := wad.DecodeLevel("TEST", lumps, true); !errors.Is(err, wad.ErrCorruptLevel) {
		t.Errorf("odd sized lump: err = %v, want ErrCorruptLevel", err)
	}

	lumps = testlevel.Lumps(testlevel.TwoRooms())
	delete(lumps, "SEGS")
	if _, err := wad.DecodeLevel("TEST", lumps, true); !errors.Is(err, wad.ErrCorruptLevel) {
		t.Errorf("missing SEGS: err = %v, want ErrCorruptLevel", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(l *wad.Level)
	}{
		{"vertex", func(l *wad.Level) { l.LineDefs[0].V2 = 99 }},
		{"right side", func(l *wad.Level) { l.LineDefs[0].SideR = wad.NoSide }},
		{"left side", func(l *wad.Level) { l.LineDefs[2].SideL = 99 }},
		{"sector", func(l *wad.Level) { l.SideDefs[1].Sector = 5 }},
		{"seg line", func(l *wad.Level) { l.Segs[3].Line = 7 }},
		{"seg direction", func(l *wad.Level) { l.Segs[3].Direction = 2 }},
		{"subsector segs", func(l *wad.Level) { l.SubSectors[1].NumSegs = 5 }},
		{"empty subsector", func(l *wad.Level) { l.SubSectors[1].NumSegs = 0 }},
		{"node subsector", func(l *wad.Level) { l.Nodes[0].ChildL = wad.SubSectorBit | 9 }},
		{"node order", func(l *wad.Level) { l.Nodes[0].ChildL = 0 }},
		{"blockmap line", func(l *wad.Level) { l.BlockMap.Cells[0] = append(l.BlockMap.Cells[0], 40) }},
	}
	if err := testlevel.TwoRooms().Validate(); err != nil {
		t.Fatalf("Validate() on fixture = %v", err)
	}
	for _, tt := range tests {
		level := testlevel.TwoRooms()
		tt.mutate(level)
		if err := level.Validate(); !errors.Is(err, wad.ErrCorruptLevel) {
			t.Errorf("%s: Validate() = %v, want ErrCorruptLevel", tt.name, err)
		}
	}
}

func TestSegAccessors(t *testing.T) {
	level := testlevel.TwoRooms()

	west := &level.Segs[2] // Middle line seen from the west room
	if got := west.FrontSector(level); got != &level.Sectors[0] {
		t.Errorf("west FrontSector = %v", got)
	}
	if got := west.BackSector(level); got != &level.Sectors[1] {
		t.Errorf("west BackSector = %v", got)
	}
	if got := west.Side(level).Upper; got != "UPPER" {
		t.Errorf("west Side().Upper = %q", got)
	}

	east := &level.Segs[4] // Same line, reversed
	if got := east.FrontSector(level); got != &level.Sectors[1] {
		t.Errorf("east FrontSector = %v", got)
	}
	if got := east.BackSector(level); got != &level.Sectors[0] {
		t.Errorf("east BackSector = %v", got)
	}

	solid := &level.Segs[0]
	if got := solid.BackSector(level); got != nil {
		t.Errorf("one-sided BackSector = %v, want nil", got)
	}
	if got := solid.Degrees(); got != 90 {
		t.Errorf("Degrees() = %v, want 90", got)
	}

	ss := level.SubSectors[1]
	if segs := ss.Segs(level); len(segs) != 4 || segs[0].Direction != 1 {
		t.Errorf("SubSector.Segs() = %v", segs)
	}
}

func TestPlayerStart(t *testing.T) {
	level := testlevel.TwoRooms()
	start, ok := level.PlayerStart(1)
	if !ok || start.X != 64 || start.Y != 128 {
		t.Errorf("PlayerStart(1) = %+v, %v", start, ok)
	}
	if _, ok := level.PlayerStart(2); ok {
		t.Error("PlayerStart(2) found a start")
	}
}

func TestSkyNames(t *testing.T) {
	tests := []struct {
		flat    string
		sky     bool
		texture string
	}{
		{"F_SKY1", true, "SKY1"},
		{"f_sky2", true, "SKY2"},
		{"F_SKY", true, "SKY1"},
		{"FLOOR4_8", false, ""},
	}
	for _, tt := range tests {
		if got := wad.IsSkyFlat(tt.flat); got != tt.sky {
			t.Errorf("IsSkyFlat(%q) = %v, want %v", tt.flat, got, tt.sky)
		}
		if tt.sky {
			if got := wad.SkyTextureName(tt.flat); got != tt.texture {
				t.Errorf("SkyTextureName(%q) = %q, want %q", tt.flat, got, tt.texture)
			}
		}
	}
}

func TestPrintTree(t *testing.T) {
	var buf bytes.Buffer
	wad.PrintTree(&buf, testlevel.TwoRooms())
	want := strings.Join([]string{
		"- node 0 partition (128,0) delta (0,256)",
		"   - subsector 1 segs 4+4",
		"   - subsector 0 segs 0+4",
		"",
	}, "\n")
	if got := buf.String(); got != want {
		t.Errorf("PrintTree() =\n%s\nwant\n%s", got, want)
	}
}

func TestOpenAndReadLevel(t *testing.T) {
	data := testlevel.LevelArchive("E1M1", testlevel.TwoRooms())
	w, err := wad.Open(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if got, want := w.LevelNames(), []string{"E1M1"}; !reflect.DeepEqual(got, want) {
		t.Errorf("LevelNames() = %v, want %v", got, want)
	}
	if len(w.FlatsList) != 1 || w.Flats["FLOOR"] == nil {
		t.Fatalf("flats = %v", w.FlatsList)
	}
	img := w.FlatImage(w.Flats["FLOOR"])
	if c := img.Get(-1, 64); c.R != 7 || c.G != 7 || c.A != 255 {
		t.Errorf("flat pixel = %v, want grey 7", c)
	}

	level, err := w.ReadLevel("e1m1")
	if err != nil {
		t.Fatal(err)
	}
	if len(level.Sectors) != 2 || len(level.Nodes) != 1 || level.Name != "E1M1" {
		t.Errorf("level = %+v", level)
	}
	if _, err := w.ReadLevel("MAP01"); err == nil {
		t.Error("ReadLevel of a missing level succeeded")
	}
}

func TestOpenBadMagic(t *testing.T) {
	data := testlevel.Archive(testlevel.Lump{Name: "PLAYPAL", Data: testlevel.Palette()})
	copy(data, "JUNK")
	if _, err := wad.Open(bytes.NewReader(data)); err == nil {
		t.Error("Open accepted bad magic")
	}
}

func TestOpenMissingPalette(t *testing.T) {
	data := testlevel.Archive(testlevel.Lump{Name: "COLORMAP", Data: testlevel.ColorMap()})
	if _, err := wad.Open(bytes.NewReader(data)); err == nil {
		t.Error("Open without PLAYPAL succeeded")
	}
}

func TestImageWrap(t *testing.T) {
	img := wad.NewImage("T", 2, 2)
	img.Pix[3].R = 200
	for _, p := range [][2]int{{1, 1}, {-1, -1}, {3, 5}} {
		if got := img.Get(p[0], p[1]).R; got != 200 {
			t.Errorf("Get(%d,%d).R = %v, want 200", p[0], p[1], got)
		}
	}
	if w, h := img.Size(); w != 2 || h != 2 {
		t.Errorf("Size() = %v,%v", w, h)
	}
}
