package render

import (
	"image"
	"image/color"

	"github.com/go-gl/mathgl/mgl64"

	wad "github.com/stuarthighley/wadview"
	"github.com/stuarthighley/wadview/actor"
)

// Automap colours
var (
	AutomapWall   = color.RGBA{R: 0xff, G: 0xa5, A: 0xff}
	AutomapPortal = color.RGBA{R: 0x80, G: 0x60, B: 0x20, A: 0xff}
	AutomapNear   = color.RGBA{R: 0xff, A: 0xff}
	AutomapPlayer = color.RGBA{B: 0xff, A: 0xff}
	AutomapFacing = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
)

const automapPadding = 4

// mapTransform fits level coordinates into a screen rectangle, keeping the aspect ratio. World
// y points up and screen y down.
type mapTransform struct {
	box    wad.BoundBox
	rect   image.Rectangle
	scale  float64
	offset mgl64.Vec2
}

func newMapTransform(box wad.BoundBox, rect image.Rectangle) mapTransform {
	inner := rect.Inset(automapPadding)
	if inner.Empty() {
		inner = rect
	}
	w := float64(max(box.Right-box.Left, 1))
	h := float64(max(box.Top-box.Bottom, 1))
	scale := min(float64(inner.Dx()-1)/w, float64(inner.Dy()-1)/h)
	// Centre the map in the rectangle
	offset := mgl64.Vec2{
		float64(inner.Min.X) + (float64(inner.Dx()-1)-w*scale)/2,
		float64(inner.Min.Y) + (float64(inner.Dy()-1)-h*scale)/2,
	}
	return mapTransform{box: box, rect: rect, scale: scale, offset: offset}
}

func (t mapTransform) point(x, y float64) image.Point {
	return image.Point{
		X: int(t.offset.X() + (x-float64(t.box.Left))*t.scale + 0.5),
		Y: int(t.offset.Y() + (float64(t.box.Top)-y)*t.scale + 0.5),
	}
}

func (t mapTransform) vertex(v wad.Vertex) image.Point {
	return t.point(float64(v.X), float64(v.Y))
}

// DrawAutomap draws the level's linedefs fitted into rect, the linedefs the blockmap reports
// within the viewpoint's radius and the viewpoint itself with a tick along its facing. Lines
// flagged DontDraw are left out.
func DrawAutomap(level *wad.Level, vp *actor.Viewpoint, fb Framebuffer, rect image.Rectangle) {
	rect = rect.Intersect(fb.Bounds())
	if rect.Empty() {
		return
	}
	t := newMapTransform(level.Bounds(), rect)

	for i := range level.LineDefs {
		line := &level.LineDefs[i]
		if line.Flags.Has(wad.DontDraw) {
			continue
		}
		c := AutomapWall
		if line.IsTwoSided() && !line.Flags.Has(wad.Secret) {
			c = AutomapPortal
		}
		drawLine(fb, rect, t.vertex(level.Vertexes[line.V1]), t.vertex(level.Vertexes[line.V2]), c)
	}

	if vp == nil {
		return
	}
	pos := vp.Position
	if level.BlockMap != nil {
		for _, i := range level.BlockMap.LinesNear(pos.X(), pos.Y(), vp.Radius) {
			line := &level.LineDefs[i]
			if line.Flags.Has(wad.DontDraw) {
				continue
			}
			drawLine(fb, rect, t.vertex(level.Vertexes[line.V1]), t.vertex(level.Vertexes[line.V2]), AutomapNear)
		}
	}

	centre := t.point(pos.X(), pos.Y())
	tip := pos.Add(vp.Direction().Mul(max(vp.Radius*2, 8/t.scale)))
	drawLine(fb, rect, centre, t.point(tip.X(), tip.Y()), AutomapFacing)
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			setClipped(fb, rect, centre.X+dx, centre.Y+dy, AutomapPlayer)
		}
	}
}

// drawLine draws from a to b with Bresenham's algorithm, clipped to rect
func drawLine(fb Framebuffer, rect image.Rectangle, a, b image.Point, c color.RGBA) {
	dx, dy := b.X-a.X, b.Y-a.Y
	absDx, absDy := dx, dy
	if absDx < 0 {
		absDx = -absDx
	}
	if absDy < 0 {
		absDy = -absDy
	}
	stepX, stepY := 1, 1
	if dx < 0 {
		stepX = -1
	}
	if dy < 0 {
		stepY = -1
	}

	x, y := a.X, a.Y
	err := absDx - absDy
	for {
		setClipped(fb, rect, x, y, c)
		if x == b.X && y == b.Y {
			return
		}
		e2 := 2 * err
		if e2 > -absDy {
			err -= absDy
			x += stepX
		}
		if e2 < absDx {
			err += absDx
			y += stepY
		}
	}
}

func setClipped(fb Framebuffer, rect image.Rectangle, x, y int, c color.RGBA) {
	if (image.Point{X: x, Y: y}).In(rect) {
		fb.SetRGBA(x, y, c)
	}
}
