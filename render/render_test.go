package render

import (
	"image"
	"image/color"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	wad "github.com/stuarthighley/wadview"
	"github.com/stuarthighley/wadview/actor"
	"github.com/stuarthighley/wadview/camera"
	"github.com/stuarthighley/wadview/internal/testlevel"
)

const (
	testWidth  = 64
	testHeight = 200
	eyeZ       = 41
)

var (
	red     = color.RGBA{R: 255, A: 255}
	green   = color.RGBA{G: 255, A: 255}
	blue    = color.RGBA{B: 255, A: 255}
	cyan    = color.RGBA{G: 255, B: 255, A: 255}
	yellow  = color.RGBA{R: 255, G: 255, A: 255}
	magenta = color.RGBA{R: 255, B: 255, A: 255}
	white   = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	orange  = color.RGBA{R: 255, G: 128, A: 255}
)

func fill(name string, w, h int, c color.RGBA) *wad.Image {
	img := wad.NewImage(name, w, h)
	for i := range img.Pix {
		img.Pix[i] = c
	}
	return img
}

func newTestRenderer() (*Renderer, *image.RGBA) {
	return New(camera.New(90, testWidth), testWidth, testHeight), image.NewRGBA(image.Rect(0, 0, testWidth, testHeight))
}

func viewAt(x, y, angle float64) actor.View {
	return actor.View{Transform: actor.Transform{Position: mgl64.Vec2{x, y}, Angle: angle}, Z: eyeZ}
}

func TestDrawTwoRooms(t *testing.T) {
	level := testlevel.TwoRooms()
	tex := &Textures{
		Walls: map[string]*wad.Image{
			"UPPER": fill("UPPER", 64, 64, red),
			"LOWER": fill("LOWER", 64, 64, green),
			"WALL2": fill("WALL2", 64, 64, blue),
			"SKY1":  fill("SKY1", 256, 128, cyan),
		},
		Flats: map[string]*wad.Image{
			"CEIL":   fill("CEIL", 64, 64, yellow),
			"FLOOR":  fill("FLOOR", 64, 64, magenta),
			"FLOOR2": fill("FLOOR2", 64, 64, white),
		},
	}
	r, fb := newTestRenderer()
	r.Draw(viewAt(64, 128, 0), level, tex, fb)

	east := lightLevel(&level.Sectors[1])
	// Looking east through the portal at column 32: the near room's ceiling, upper wall, the
	// far room's sky, wall and floor seen through the opening, then the lower wall and the near
	// room's floor.
	tests := []struct {
		what string
		y    int
		want color.RGBA
	}{
		{"ceiling", 10, yellow},
		{"upper wall", 60, red},
		{"sky", 70, cyan},
		{"far wall", 95, shade(blue, east)},
		{"far floor", 107, shade(white, east)},
		{"lower wall", 115, green},
		{"floor", 150, magenta},
	}
	for _, tt := range tests {
		if got := fb.RGBAAt(32, tt.y); got != tt.want {
			t.Errorf("%s: pixel (32,%d) = %v, want %v", tt.what, tt.y, got, tt.want)
		}
	}
}

func TestDrawFallbackColours(t *testing.T) {
	level := testlevel.TwoRooms()
	r, fb := newTestRenderer()
	r.Draw(viewAt(64, 128, 0), level, nil, fb)

	if got, want := fb.RGBAAt(32, 10), fallbackColor("CEIL"); got != want {
		t.Errorf("ceiling = %v, want %v", got, want)
	}
	if got, want := fb.RGBAAt(32, 95), shade(fallbackColor("WALL2"), lightLevel(&level.Sectors[1])); got != want {
		t.Errorf("far wall = %v, want %v", got, want)
	}
}

func TestFallbackColor(t *testing.T) {
	if a, b := fallbackColor("STARTAN3"), fallbackColor("startan3"); a != b {
		t.Errorf("fallbackColor is case sensitive: %v, %v", a, b)
	}
	if a, b := fallbackColor("STARTAN3"), fallbackColor("STARTAN3"); a != b {
		t.Errorf("fallbackColor not stable: %v, %v", a, b)
	}
	if a, b := fallbackColor("WALL"), fallbackColor("WALL2"); a == b {
		t.Errorf("fallbackColor(WALL) = fallbackColor(WALL2) = %v", a)
	}
	grey := fallbackColor(wad.NoTexture)
	if grey.R != grey.G || grey.G != grey.B {
		t.Errorf("fallbackColor(%q) = %v, want grey", wad.NoTexture, grey)
	}
	for _, name := range []string{"A", "FLOOR4_8", "SKY1", "BROWN96"} {
		c := fallbackColor(name)
		if c.R < 32 || c.G < 32 || c.B < 32 || c.A != 255 {
			t.Errorf("fallbackColor(%q) = %v, channel below 32", name, c)
		}
	}
}

func TestShade(t *testing.T) {
	c := color.RGBA{R: 200, G: 100, B: 50, A: 255}
	if got := shade(c, 1); got != c {
		t.Errorf("shade(%v, 1) = %v", c, got)
	}
	if got, want := shade(c, 0.5), (color.RGBA{R: 100, G: 50, B: 25, A: 255}); got != want {
		t.Errorf("shade(%v, 0.5) = %v, want %v", c, got, want)
	}
	if got, want := shade(c, 0), (color.RGBA{A: 255}); got != want {
		t.Errorf("shade(%v, 0) = %v, want %v", c, got, want)
	}
}

func TestWallTextureMapping(t *testing.T) {
	level := testlevel.Wall(100, 50, 100, -50)
	level.Segs[0].Angle = 0xc000 // Heading south

	// Each texel records its own coordinates
	stripes := wad.NewImage("WALL", 256, 128)
	for y := 0; y < 128; y++ {
		for x := 0; x < 256; x++ {
			stripes.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), A: 255})
		}
	}
	tex := &Textures{Walls: map[string]*wad.Image{"WALL": stripes}}
	r, fb := newTestRenderer()
	r.Draw(viewAt(0, 0, 0), level, tex, fb)

	// The viewer is level with the wall's midpoint, 50 units from its first vertex. At distance
	// 100 the wall is drawn at 0.32 pixels per unit with its top on texel row 0.
	tests := []struct {
		x, y int
		u, v int
	}{
		{32, 90, 50, 55},
		{32, 100, 50, 87},
		{17, 100, 3, 87},
		{40, 80, 75, 24},
	}
	for _, tt := range tests {
		got := fb.RGBAAt(tt.x, tt.y)
		if !within(int(got.R), tt.u, 1) || !within(int(got.G), tt.v, 1) {
			t.Errorf("pixel (%d,%d) shows texel (%d,%d), want (%d,%d)", tt.x, tt.y, got.R, got.G, tt.u, tt.v)
		}
	}
}

func TestSkyBelowEye(t *testing.T) {
	level := testlevel.Wall(100, 50, 100, -50)
	level.Segs[0].Angle = 0xc000
	level.Sectors[0].CeilingHeight = 20
	level.Sectors[0].CeilingTexture = "F_SKY1"
	tex := &Textures{Walls: map[string]*wad.Image{
		"WALL": fill("WALL", 64, 64, red),
		"SKY1": fill("SKY1", 256, 128, cyan),
	}}
	r, fb := newTestRenderer()
	r.Draw(viewAt(0, 0, 0), level, tex, fb)

	// The ceiling is 21 units below the eye, so at 0.32 pixels per unit the wall starts on row 106
	tests := []struct {
		y    int
		want color.RGBA
	}{
		{5, cyan},
		{95, cyan},
		{104, cyan},
		{110, red},
	}
	for _, tt := range tests {
		if got := fb.RGBAAt(32, tt.y); got != tt.want {
			t.Errorf("pixel (32,%d) = %v, want %v", tt.y, got, tt.want)
		}
	}
}

// portalLevel returns a two-sided line between two identical sectors, seen from its left side
func portalLevel(frontMiddle, backMiddle string) *wad.Level {
	sector := wad.Sector{FloorHeight: 0, CeilingHeight: 128, FloorTexture: "FLOOR", CeilingTexture: "CEIL", LightLevel: 200}
	return &wad.Level{
		Name:     "PORTAL",
		Vertexes: []wad.Vertex{{X: 100, Y: -50}, {X: 100, Y: 50}},
		LineDefs: []wad.LineDef{{V1: 0, V2: 1, SideR: 0, SideL: 1}},
		SideDefs: []wad.SideDef{
			{Upper: "-", Lower: "-", Middle: frontMiddle, Sector: 0},
			{Upper: "-", Lower: "-", Middle: backMiddle, Sector: 1},
		},
		Segs:       []wad.Seg{{V1: 1, V2: 0, Angle: 0xc000, Line: 0, Direction: 1}},
		SubSectors: []wad.SubSector{{FirstSeg: 0, NumSegs: 1}},
		Sectors:    []wad.Sector{sector, sector},
	}
}

func TestClassifyTrivialPortal(t *testing.T) {
	tests := []struct {
		front, back string
		drawn       bool
	}{
		{"-", "GRATE", false},
		{"GRATE", "-", true},
	}
	for _, tt := range tests {
		r, _ := newTestRenderer()
		r.level = portalLevel(tt.front, tt.back)
		w, ok := r.classify(0, &r.level.Segs[0], 10, 20)
		if ok != tt.drawn {
			t.Errorf("front %q back %q: classify drawn = %v, want %v", tt.front, tt.back, ok, tt.drawn)
		}
		if ok && w.kind != portalWall {
			t.Errorf("front %q back %q: kind = %v, want portal", tt.front, tt.back, w.kind)
		}
	}
}

func within(a, b, tolerance int) bool {
	d := a - b
	return d >= -tolerance && d <= tolerance
}

// twoWalls returns two one-sided walls facing the origin, a narrow one at x=100 and a wide one
// at x=200, each in its own subsector on either side of a partition at x=150. nearFirst
// controls the order of the subsectors in the level's array.
func twoWalls(nearFirst bool) *wad.Level {
	level := &wad.Level{
		Name: "WALLS",
		Vertexes: []wad.Vertex{
			{X: 100, Y: 50}, {X: 100, Y: -50},
			{X: 200, Y: 200}, {X: 200, Y: -200},
		},
		LineDefs: []wad.LineDef{
			{V1: 0, V2: 1, Flags: wad.Blocking, SideR: 0, SideL: wad.NoSide},
			{V1: 2, V2: 3, Flags: wad.Blocking, SideR: 1, SideL: wad.NoSide},
		},
		SideDefs: []wad.SideDef{
			{Upper: "-", Lower: "-", Middle: "NEAR", Sector: 0},
			{Upper: "-", Lower: "-", Middle: "FAR", Sector: 0},
		},
		Segs: []wad.Seg{
			{V1: 0, V2: 1, Angle: 0xc000, Line: 0},
			{V1: 2, V2: 3, Angle: 0xc000, Line: 1},
		},
		Sectors: []wad.Sector{
			{FloorHeight: 0, CeilingHeight: 128, FloorTexture: "FLOOR", CeilingTexture: "CEIL", LightLevel: 255},
		},
	}
	near := wad.SubSector{FirstSeg: 0, NumSegs: 1}
	far := wad.SubSector{FirstSeg: 1, NumSegs: 1}
	node := wad.Node{
		X: 150, Y: -200, DX: 0, DY: 400,
		BBoxR: wad.BoundBox{Top: 200, Bottom: -200, Left: 200, Right: 200},
		BBoxL: wad.BoundBox{Top: 50, Bottom: -50, Left: 100, Right: 100},
	}
	if nearFirst {
		level.SubSectors = []wad.SubSector{near, far}
		node.ChildL, node.ChildR = wad.SubSectorBit|0, wad.SubSectorBit|1
	} else {
		level.SubSectors = []wad.SubSector{far, near}
		node.ChildL, node.ChildR = wad.SubSectorBit|1, wad.SubSectorBit|0
	}
	level.Nodes = []wad.Node{node}
	return level
}

var wallTextures = &Textures{
	Walls: map[string]*wad.Image{
		"NEAR": fill("NEAR", 64, 64, red),
		"FAR":  fill("FAR", 64, 64, blue),
	},
}

func TestOcclusion(t *testing.T) {
	for _, nearFirst := range []bool{true, false} {
		r, fb := newTestRenderer()
		r.Draw(viewAt(0, 0, 0), twoWalls(nearFirst), wallTextures, fb)
		if got := fb.RGBAAt(32, 100); got != red {
			t.Errorf("nearFirst=%v: centre = %v, want the near wall %v", nearFirst, got, red)
		}
		if got := fb.RGBAAt(8, 100); got != blue {
			t.Errorf("nearFirst=%v: column 8 = %v, want the far wall %v", nearFirst, got, blue)
		}
	}
}

func TestStopsWhenScreenCovered(t *testing.T) {
	level := twoWalls(true)
	level.Vertexes[0] = wad.Vertex{X: 100, Y: 300}
	level.Vertexes[1] = wad.Vertex{X: 100, Y: -300}
	level.LineDefs[1].SideR = 7 // Would be reported if the far subsector were visited

	r, fb := newTestRenderer()
	r.Draw(viewAt(0, 0, 0), level, wallTextures, fb)
	if r.remaining != 0 {
		t.Errorf("%d columns still open", r.remaining)
	}
	if len(r.skipped) != 0 {
		t.Errorf("far subsector visited after the screen was covered")
	}
	for x := 0; x < testWidth; x++ {
		if got := fb.RGBAAt(x, 100); got != red {
			t.Fatalf("column %d = %v, want the near wall %v", x, got, red)
		}
	}
}

func TestSkipsSegWithoutFrontSector(t *testing.T) {
	log, hook := logtest.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	SetLogger(log)
	defer SetLogger(discardLogger())

	level := twoWalls(true)
	level.LineDefs[0].SideR = 7
	r, fb := newTestRenderer()
	for i := 0; i < 2; i++ {
		r.Draw(viewAt(0, 0, 0), level, wallTextures, fb)
	}
	if got := fb.RGBAAt(32, 100); got != blue {
		t.Errorf("centre = %v, want the far wall %v behind the skipped seg", got, blue)
	}
	if n := len(hook.AllEntries()); n != 1 {
		t.Errorf("logged %d entries over two frames, want 1", n)
	}
}

func TestDrawOffsetFramebuffer(t *testing.T) {
	r, _ := newTestRenderer()
	fb := image.NewRGBA(image.Rect(0, 0, testWidth+20, testHeight+10)).SubImage(image.Rect(20, 10, testWidth+20, testHeight+10)).(*image.RGBA)
	r.Draw(viewAt(0, 0, 0), twoWalls(true), wallTextures, fb)
	if got := fb.RGBAAt(20+32, 10+100); got != red {
		t.Errorf("centre = %v, want %v", got, red)
	}
}

func TestDrawAutomap(t *testing.T) {
	level := testlevel.TwoRooms()
	level.LineDefs[4].Flags |= wad.DontDraw
	vp := actor.NewViewpoint(actor.Player, mgl64.Vec2{64, 128}, 0, 16, 41)
	fb := image.NewRGBA(image.Rect(0, 0, 100, 100))
	DrawAutomap(level, vp, fb, fb.Bounds())

	// 256 map units fit into 91 pixels starting at (4,4), y flipped
	tests := []struct {
		what string
		x, y int
		want color.RGBA
	}{
		{"player", 27, 50, AutomapPlayer},
		{"east wall", 95, 50, AutomapWall},
		{"west wall near the player", 4, 50, AutomapNear},
		{"hidden north-east wall", 75, 4, color.RGBA{}},
	}
	for _, tt := range tests {
		if got := fb.RGBAAt(tt.x, tt.y); got != tt.want {
			t.Errorf("%s: pixel (%d,%d) = %v, want %v", tt.what, tt.x, tt.y, got, tt.want)
		}
	}
}

func TestDrawLine(t *testing.T) {
	fb := image.NewRGBA(image.Rect(0, 0, 10, 10))
	drawLine(fb, image.Rect(0, 0, 5, 10), image.Point{X: 0, Y: 0}, image.Point{X: 9, Y: 9}, orange)
	for i := 0; i < 10; i++ {
		want := orange
		if i >= 5 {
			want = color.RGBA{}
		}
		if got := fb.RGBAAt(i, i); got != want {
			t.Errorf("pixel (%d,%d) = %v, want %v", i, i, got, want)
		}
	}
}
