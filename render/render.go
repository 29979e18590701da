// Package render draws a level from a viewpoint into a framebuffer, one screen column at a time.
// Subsectors arrive from the BSP walk nearest first. Each visible seg is classified as a solid
// wall or a portal and drawn only into columns that are still open. Portals narrow each
// column's vertical clip range so that geometry seen through them is cut by the nearer upper and
// lower walls.
package render

import (
	"image"
	"io"

	"github.com/chewxy/math32"
	"github.com/sirupsen/logrus"

	wad "github.com/stuarthighley/wadview"
	"github.com/stuarthighley/wadview/actor"
	"github.com/stuarthighley/wadview/bsp"
	"github.com/stuarthighley/wadview/camera"
	"github.com/stuarthighley/wadview/geom"
)

// Sky projection
const (
	SkyScale = 160 // Texels per screen width
	SkyAlt   = 100 // Texel row on the horizon
	skyU     = 2.2 // Texels per degree of turn
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

type wallKind int

const (
	solidWall wallKind = iota
	portalWall
)

// wall is a seg classified for drawing, with its textures resolved
type wall struct {
	kind        wallKind
	seg         *wad.Seg
	line        *wad.LineDef
	side        *wad.SideDef
	front, back *wad.Sector
	light       float32

	middle, upper, lower Texture // nil when the side has no texture there
	ceiling, floor       Texture
	sky                  Texture // Set when the front ceiling is sky
}

// Renderer holds the per-column clip state of one frame. It is reset by every Draw and must not
// be shared between goroutines.
type Renderer struct {
	cam           *camera.Camera
	width, height int
	halfHeight    float32
	skyInvScale   float32

	open      []bool // Columns not yet covered by a solid wall
	remaining int    // Number of open columns
	upperClip []int  // First drawable row of each column
	lowerClip []int  // One past the last drawable row of each column

	level   *wad.Level
	tree    *bsp.Tree
	skipped map[int]bool // Segs already reported as undrawable

	view   camera.View
	eyeZ   float32
	tex    TextureSet
	fb     Framebuffer
	origin image.Point
}

// New returns a renderer for a width x height view. The camera must have been created for the
// same width.
func New(cam *camera.Camera, width, height int) *Renderer {
	if cam.Width() != width {
		logger.WithFields(logrus.Fields{"camera": cam.Width(), "width": width}).Warn("Camera width differs from view width")
	}
	return &Renderer{
		cam:         cam,
		width:       width,
		height:      height,
		halfHeight:  float32(height) / 2,
		skyInvScale: SkyScale / float32(width),
		open:        make([]bool, width),
		upperClip:   make([]int, width),
		lowerClip:   make([]int, width),
	}
}

// Width returns the number of columns drawn
func (r *Renderer) Width() int { return r.width }

// Height returns the number of rows drawn
func (r *Renderer) Height() int { return r.height }

// Camera returns the camera the renderer projects with
func (r *Renderer) Camera() *camera.Camera { return r.cam }

func (r *Renderer) reset() {
	for x := range r.open {
		r.open[x] = true
		r.upperClip[x] = 0
		r.lowerClip[x] = r.height
	}
	r.remaining = r.width
}

// Draw renders the level seen from view into fb, offset to fb's bounds. Pixels that no surface
// covers are left untouched. A missing texture is drawn in a colour derived from its name.
func (r *Renderer) Draw(view actor.View, level *wad.Level, tex TextureSet, fb Framebuffer) {
	r.reset()
	if level != r.level {
		r.level = level
		r.tree = bsp.NewTree(level)
		r.skipped = map[int]bool{}
	}
	r.view = camera.View{
		X:     float32(view.Position.X()),
		Y:     float32(view.Position.Y()),
		Angle: float32(view.Angle),
	}
	r.eyeZ = float32(view.Z)
	r.tex = tex
	r.fb = fb
	r.origin = fb.Bounds().Min

	r.tree.Visit(view.Position, r.drawSubSector, func(box wad.BoundBox) bool {
		return r.cam.IsBoxInFrustum(r.view, box)
	})

	r.tex, r.fb = nil, nil
}

// drawSubSector draws the segs of one subsector. It returns false once every column is covered.
func (r *Renderer) drawSubSector(ss int) bool {
	sub := &r.level.SubSectors[ss]
	for i := sub.FirstSeg; i < sub.FirstSeg+sub.NumSegs; i++ {
		seg := &r.level.Segs[i]
		x1, x2, rawAngle, ok := r.cam.ClipSegment(r.view, r.level.Vertexes[seg.V1], r.level.Vertexes[seg.V2])
		if !ok {
			continue
		}
		w, ok := r.classify(i, seg, x1, x2)
		if !ok {
			continue
		}
		if !r.drawClipWalls(&w, x1, x2, rawAngle) {
			return false
		}
	}
	return true
}

// classify decides how a visible seg is drawn. Segs between two identical sectors with no middle
// texture draw nothing.
func (r *Renderer) classify(index int, seg *wad.Seg, x1, x2 int) (wall, bool) {
	if x1 == x2 {
		return wall{}, false
	}
	front := seg.FrontSector(r.level)
	if front == nil {
		if !r.skipped[index] {
			r.skipped[index] = true
			logger.WithFields(logrus.Fields{"level": r.level.Name, "seg": index}).Debug("Skipping seg with no front sector")
		}
		return wall{}, false
	}

	w := wall{
		kind:  solidWall,
		seg:   seg,
		line:  seg.LineDef(r.level),
		side:  seg.Side(r.level),
		front: front,
		light: lightLevel(front),
	}
	if back := seg.BackSector(r.level); back != nil {
		if back.CeilingHeight == front.CeilingHeight &&
			back.FloorHeight == front.FloorHeight &&
			back.CeilingTexture == front.CeilingTexture &&
			back.FloorTexture == front.FloorTexture &&
			back.LightLevel == front.LightLevel &&
			w.line.Front(r.level).Middle == wad.NoTexture {
			return wall{}, false
		}
		w.kind = portalWall
		w.back = back
		w.upper = r.wallTexture(w.side.Upper)
		w.lower = r.wallTexture(w.side.Lower)
	} else {
		w.middle = r.wallTexture(w.side.Middle)
	}

	if front.IsSkyCeiling() {
		w.sky = r.wallTexture(wad.SkyTextureName(front.CeilingTexture))
	} else {
		w.ceiling = r.flatTexture(front.CeilingTexture)
	}
	w.floor = r.flatTexture(front.FloorTexture)
	return w, true
}

func lightLevel(s *wad.Sector) float32 {
	return geom.Clamp(float32(s.LightLevel)/255, 0, 1)
}

// wallTexture resolves a sidedef texture name. The no-texture sentinel resolves to nil.
func (r *Renderer) wallTexture(name string) Texture {
	if name == "" || name == wad.NoTexture {
		return nil
	}
	if r.tex != nil {
		if t := r.tex.Wall(name); t != nil {
			return t
		}
	}
	return solid(fallbackColor(name))
}

func (r *Renderer) flatTexture(name string) Texture {
	if r.tex != nil {
		if t := r.tex.Flat(name); t != nil {
			return t
		}
	}
	return solid(fallbackColor(name))
}

// drawClipWalls draws the wall into each run of open columns between x1 and x2. Solid walls
// close the columns they cover. It reports whether any column is still open.
func (r *Renderer) drawClipWalls(w *wall, x1, x2 int, rawAngle float32) bool {
	end := min(x2, r.width)
	for xs := max(x1, 0); xs < end; {
		if !r.open[xs] {
			xs++
			continue
		}
		xe := xs
		for xe < end && r.open[xe] {
			if w.kind == solidWall {
				r.open[xe] = false
				r.remaining--
			}
			xe++
		}
		r.drawWall(w, xs, xe, rawAngle)
		xs = xe
	}
	return r.remaining > 0
}

// span is the screen geometry of a wall across a run of columns. The scale is stepped linearly
// between the ends of the run.
type span struct {
	distance  float32 // Perpendicular distance from the viewer to the wall's line
	offset    float32 // Texture column under the foot of the perpendicular
	center    float32 // Wall normal relative to the view angle
	scale     float32
	scaleStep float32
}

func (r *Renderer) span(w *wall, start, end int, rawAngle float32) span {
	normal := float32(w.seg.Degrees()) + 90
	offsetAngle := radians(normal - rawAngle)
	v1 := r.level.Vertexes[w.seg.V1]
	hyp := math32.Hypot(float32(v1.X)-r.view.X, float32(v1.Y)-r.view.Y)

	s := span{
		distance: hyp * math32.Cos(offsetAngle),
		center:   normal - r.view.Angle,
	}
	s.offset = hyp*math32.Sin(offsetAngle) + float32(w.seg.Offset)
	if w.side != nil {
		s.offset += float32(w.side.XOffset)
	}
	s.scale = r.cam.ScaleFromGlobalAngle(start, normal, s.distance, r.view.Angle)
	if start < end {
		scale2 := r.cam.ScaleFromGlobalAngle(end, normal, s.distance, r.view.Angle)
		s.scaleStep = (scale2 - s.scale) / float32(end-start)
	}
	return s
}

// column returns the texture column of the wall at screen column x
func (s *span) column(cam *camera.Camera, x int) float32 {
	return s.distance*math32.Tan(radians(s.center-cam.XToAngle(x))) - s.offset
}

// y returns the screen row of a height relative to the eye at the current scale
func (r *Renderer) y(z, scale float32) int {
	return int(r.halfHeight - z*scale)
}

func (r *Renderer) drawWall(w *wall, start, end int, rawAngle float32) {
	if w.kind == solidWall {
		r.drawSolidWall(w, start, end, rawAngle)
	} else {
		r.drawPortalWall(w, start, end, rawAngle)
	}
}

func (r *Renderer) drawSolidWall(w *wall, start, end int, rawAngle float32) {
	ceilZ := float32(w.front.CeilingHeight) - r.eyeZ
	floorZ := float32(w.front.FloorHeight) - r.eyeZ

	drawCeiling := ceilZ > 0 || w.sky != nil
	drawMiddle := w.middle != nil
	drawFloor := floorZ < 0
	if !drawCeiling && !drawMiddle && !drawFloor {
		return
	}

	s := r.span(w, start, end, rawAngle)
	var middleAlt float32
	if drawMiddle {
		if w.line.Flags.Has(wad.DontPegBottom) {
			_, h := w.middle.Size()
			middleAlt = floorZ + float32(h)
		} else {
			middleAlt = ceilZ
		}
		middleAlt += float32(w.side.YOffset)
	}

	for x := start; x < end; x++ {
		wallY1 := r.y(ceilZ, s.scale)
		wallY2 := r.y(floorZ, s.scale)

		if drawCeiling {
			r.drawCeiling(w, x, r.upperClip[x], min(wallY1, r.lowerClip[x]), ceilZ)
		}
		if drawMiddle {
			y1 := max(wallY1, r.upperClip[x])
			y2 := min(wallY2, r.lowerClip[x])
			r.drawColumn(x, y1, y2, s.column(r.cam, x), middleAlt, 1/s.scale, w.middle, w.light)
		}
		if drawFloor {
			r.drawFlat(x, max(wallY2, r.upperClip[x]), r.lowerClip[x], floorZ, w.floor, w.light)
		}
		s.scale += s.scaleStep
	}
}

func (r *Renderer) drawPortalWall(w *wall, start, end int, rawAngle float32) {
	front, back := w.front, w.back
	frontCeilZ := float32(front.CeilingHeight) - r.eyeZ
	frontFloorZ := float32(front.FloorHeight) - r.eyeZ
	backCeilZ := float32(back.CeilingHeight) - r.eyeZ
	backFloorZ := float32(back.FloorHeight) - r.eyeZ

	// Neighbouring skies join without an upper wall
	if w.sky != nil && front.CeilingTexture == back.CeilingTexture {
		frontCeilZ = backCeilZ
	}

	var drawUpper, drawCeiling, drawLower, drawFloor bool
	if frontCeilZ != backCeilZ || front.LightLevel != back.LightLevel || front.CeilingTexture != back.CeilingTexture {
		drawUpper = w.upper != nil && backCeilZ < frontCeilZ
		drawCeiling = frontCeilZ >= 0 || w.sky != nil
	}
	if frontFloorZ != backFloorZ || front.LightLevel != back.LightLevel || front.FloorTexture != back.FloorTexture {
		drawLower = w.lower != nil && backFloorZ > frontFloorZ
		drawFloor = frontFloorZ <= 0
	}
	if !drawUpper && !drawCeiling && !drawLower && !drawFloor {
		return
	}

	s := r.span(w, start, end, rawAngle)
	var upperAlt, lowerAlt float32
	if drawUpper {
		if w.line.Flags.Has(wad.DontPegTop) {
			upperAlt = frontCeilZ
		} else {
			_, h := w.upper.Size()
			upperAlt = backCeilZ + float32(h)
		}
		upperAlt += float32(w.side.YOffset)
	}
	if drawLower {
		if w.line.Flags.Has(wad.DontPegBottom) {
			lowerAlt = frontCeilZ
		} else {
			lowerAlt = backFloorZ
		}
		lowerAlt += float32(w.side.YOffset)
	}

	// Edges of the opening. Without an upper or lower wall they fall back to the front sector.
	openTopZ, openBottomZ := frontFloorZ, frontCeilZ
	if drawUpper && backCeilZ > frontFloorZ {
		openTopZ = backCeilZ
	}
	if drawLower && backFloorZ < frontCeilZ {
		openBottomZ = backFloorZ
	}

	for x := start; x < end; x++ {
		wallY1 := r.y(frontCeilZ, s.scale)
		wallY2 := r.y(frontFloorZ, s.scale)
		var u, invScale float32
		if drawUpper || drawLower {
			u = s.column(r.cam, x)
			invScale = 1 / s.scale
		}

		if drawCeiling {
			bottom := min(wallY1, r.lowerClip[x])
			r.drawCeiling(w, x, r.upperClip[x], bottom, frontCeilZ)
			if r.upperClip[x] < bottom {
				r.upperClip[x] = bottom
			}
		}
		if drawUpper {
			y1 := max(wallY1-1, r.upperClip[x])
			y2 := min(r.y(openTopZ, s.scale), r.lowerClip[x])
			r.drawColumn(x, y1, y2, u, upperAlt, invScale, w.upper, w.light)
			if r.upperClip[x] < y2 {
				r.upperClip[x] = y2
			}
		}

		if drawFloor {
			top := max(wallY2, r.upperClip[x])
			r.drawFlat(x, top, r.lowerClip[x], frontFloorZ, w.floor, w.light)
			if r.lowerClip[x] > top {
				r.lowerClip[x] = top
			}
		}
		if drawLower {
			y1 := max(r.y(openBottomZ, s.scale)-1, r.upperClip[x])
			y2 := min(wallY2, r.lowerClip[x])
			r.drawColumn(x, y1, y2, u, lowerAlt, invScale, w.lower, w.light)
			if r.lowerClip[x] > y1 {
				r.lowerClip[x] = y1
			}
		}

		if r.upperClip[x] >= r.lowerClip[x] && r.open[x] {
			r.open[x] = false
			r.remaining--
		}
		s.scale += s.scaleStep
	}
}

// drawCeiling fills rows y1 to y2 of column x with the ceiling flat or the sky
func (r *Renderer) drawCeiling(w *wall, x, y1, y2 int, z float32) {
	if w.sky != nil {
		u := skyU * (r.view.Angle + r.cam.XToAngle(x))
		r.drawColumn(x, y1, y2, u, SkyAlt, r.skyInvScale, w.sky, 1)
		return
	}
	r.drawFlat(x, y1, y2, z, w.ceiling, w.light)
}

// drawColumn draws rows y1 to y2 of texture column u. Texture row alt lies on the horizon and
// each screen row advances invScale texels.
func (r *Renderer) drawColumn(x, y1, y2 int, u, alt, invScale float32, tex Texture, light float32) {
	if y1 >= y2 || tex == nil {
		return
	}
	w, h := tex.Size()
	tu := wrap(int(math32.Floor(u)), w)
	v := alt + (float32(y1)-r.halfHeight)*invScale
	for y := y1; y < y2; y++ {
		c := tex.Get(tu, wrap(int(math32.Floor(v)), h))
		r.fb.SetRGBA(r.origin.X+x, r.origin.Y+y, shade(c, light))
		v += invScale
	}
}

// drawFlat draws rows y1 to y2 of column x with a horizontal plane z units above the eye. Each
// row is projected back onto the plane to find its texel.
func (r *Renderer) drawFlat(x, y1, y2 int, z float32, tex Texture, light float32) {
	if y1 >= y2 || tex == nil {
		return
	}
	w, h := tex.Size()
	angle := radians(r.view.Angle)
	dirX, dirY := math32.Cos(angle), math32.Sin(angle)
	screenDist := r.cam.ScreenDistance()
	// Leftward offset of column x per unit of depth
	lateral := (float32(r.width)/2 - float32(x)) / screenDist

	for y := y1; y < y2; y++ {
		dy := r.halfHeight - float32(y)
		if dy == 0 {
			continue
		}
		depth := screenDist * z / dy
		px := r.view.X + dirX*depth - dirY*depth*lateral
		py := r.view.Y + dirY*depth + dirX*depth*lateral
		c := tex.Get(wrap(int(math32.Floor(px)), w), wrap(int(math32.Floor(py)), h))
		r.fb.SetRGBA(r.origin.X+x, r.origin.Y+y, shade(c, light))
	}
}

func radians(deg float32) float32 {
	return deg * (math32.Pi / 180)
}
