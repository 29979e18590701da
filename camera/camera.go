// Package camera projects world angles onto screen columns and clips geometry to the field of
// view. Angles are in degrees, measured counter-clockwise from the +x axis. A view angle of 0
// looks along +x; screen column 0 is the left edge of the view.
package camera

import (
	"github.com/chewxy/math32"

	wad "github.com/stuarthighley/wadview"
	"github.com/stuarthighley/wadview/geom"
)

// Scale limits for ScaleFromGlobalAngle
const (
	MinScale float32 = 1.0 / 256
	MaxScale float32 = 64
)

// View is the position and facing of the viewer in world units and degrees
type View struct {
	X, Y  float32
	Angle float32
}

// Camera holds the projection for a field of view and screen width.
type Camera struct {
	fov        float32
	halfFOV    float32
	width      int
	halfWidth  float32
	screenDist float32
	xToAngle   []float32 // View relative angle of each column edge, width+1 entries
}

// New returns a camera with the horizontal field of view fov, in degrees, spread over width
// columns.
func New(fov float32, width int) *Camera {
	c := &Camera{
		fov:       fov,
		halfFOV:   fov / 2,
		width:     width,
		halfWidth: float32(width) / 2,
	}
	c.screenDist = c.halfWidth / math32.Tan(radians(c.halfFOV))
	c.xToAngle = make([]float32, width+1)
	for x := range c.xToAngle {
		c.xToAngle[x] = degrees(math32.Atan((c.halfWidth - float32(x)) / c.screenDist))
	}
	return c
}

// FOV returns the horizontal field of view in degrees
func (c *Camera) FOV() float32 { return c.fov }

// HalfFOV returns half the field of view in degrees
func (c *Camera) HalfFOV() float32 { return c.halfFOV }

// Width returns the screen width in columns
func (c *Camera) Width() int { return c.width }

// ScreenDistance returns the distance from the eye to the projection plane in pixels
func (c *Camera) ScreenDistance() float32 { return c.screenDist }

// XToAngle returns the view relative angle that projects to column x. Columns outside the
// screen are clamped.
func (c *Camera) XToAngle(x int) float32 {
	return c.xToAngle[geom.Clamp(x, 0, c.width)]
}

// AngleToX returns the column a view relative angle projects to, clamped to [0, width].
func (c *Camera) AngleToX(angle float32) int {
	x := c.halfWidth - math32.Tan(radians(angle))*c.screenDist
	return int(math32.Floor(geom.Clamp(x, 0, float32(c.width)) + 0.5))
}

// IsSegmentInFrustum reports whether any part of the segment v1 to v2 faces the viewer inside
// the field of view.
func (c *Camera) IsSegmentInFrustum(view View, v1, v2 wad.Vertex) bool {
	_, _, _, ok := c.ClipSegment(view, v1, v2)
	return ok
}

// ClipSegment clips the segment v1 to v2 to the field of view. Segments that face away from
// the viewer, where the bearing to v1 is not left of the bearing to v2, are rejected. It returns
// the screen columns of the clipped ends, with x1 <= x2, and the world bearing to v1 before
// clipping.
func (c *Camera) ClipSegment(view View, v1, v2 wad.Vertex) (x1, x2 int, rawAngle float32, ok bool) {
	a1 := bearing(view, v1)
	a2 := bearing(view, v2)

	span := normalize(a1 - a2)
	if span >= 180 {
		return 0, 0, 0, false
	}
	rawAngle = a1

	a1 -= view.Angle
	a2 -= view.Angle

	// Left edge
	span1 := normalize(a1 + c.halfFOV)
	if span1 > c.fov {
		if span1 >= span+c.fov {
			return 0, 0, 0, false
		}
		a1 = c.halfFOV
	}

	// Right edge
	span2 := normalize(c.halfFOV - a2)
	if span2 > c.fov {
		if span2 >= span+c.fov {
			return 0, 0, 0, false
		}
		a2 = -c.halfFOV
	}

	return c.AngleToX(a1), c.AngleToX(a2), rawAngle, true
}

// IsBoxInFrustum reports whether a side of the box facing the viewer may be inside the field of
// view. A viewer inside the box always sees it.
func (c *Camera) IsBoxInFrustum(view View, box wad.BoundBox) bool {
	a := wad.Vertex{X: box.Left, Y: box.Bottom}
	b := wad.Vertex{X: box.Left, Y: box.Top}
	cc := wad.Vertex{X: box.Right, Y: box.Top}
	d := wad.Vertex{X: box.Right, Y: box.Bottom}

	var sides [2][2]wad.Vertex
	n := 0
	switch px, py := view.X, view.Y; {
	case px < float32(box.Left):
		switch {
		case py > float32(box.Top):
			sides[0], sides[1], n = [2]wad.Vertex{b, a}, [2]wad.Vertex{cc, b}, 2
		case py < float32(box.Bottom):
			sides[0], sides[1], n = [2]wad.Vertex{b, a}, [2]wad.Vertex{a, d}, 2
		default:
			sides[0], n = [2]wad.Vertex{b, a}, 1
		}
	case px > float32(box.Right):
		switch {
		case py > float32(box.Top):
			sides[0], sides[1], n = [2]wad.Vertex{cc, b}, [2]wad.Vertex{d, cc}, 2
		case py < float32(box.Bottom):
			sides[0], sides[1], n = [2]wad.Vertex{a, d}, [2]wad.Vertex{d, cc}, 2
		default:
			sides[0], n = [2]wad.Vertex{d, cc}, 1
		}
	default:
		switch {
		case py > float32(box.Top):
			sides[0], n = [2]wad.Vertex{cc, b}, 1
		case py < float32(box.Bottom):
			sides[0], n = [2]wad.Vertex{a, d}, 1
		default:
			return true
		}
	}

	for _, side := range sides[:n] {
		a1 := bearing(view, side[0])
		a2 := bearing(view, side[1])
		span := normalize(a1 - a2)
		span1 := normalize(a1 - view.Angle + c.halfFOV)
		if span1 > c.fov && span1 >= span+c.fov {
			continue
		}
		return true
	}
	return false
}

// ScaleFromGlobalAngle returns the vertical pixels per world unit of a wall at column x. The
// wall's normal points along normalAngle and lies distance units from the viewer along it.
func (c *Camera) ScaleFromGlobalAngle(x int, normalAngle, distance, viewAngle float32) float32 {
	xAngle := c.XToAngle(x)
	num := c.screenDist * math32.Cos(radians(normalAngle-xAngle-viewAngle))
	den := distance * math32.Cos(radians(xAngle))
	if math32.Abs(den) < geom.Epsilon {
		return MaxScale
	}
	return geom.Clamp(num/den, MinScale, MaxScale)
}

// bearing returns the world angle from the viewer to v in [0, 360)
func bearing(view View, v wad.Vertex) float32 {
	return normalize(degrees(math32.Atan2(float32(v.Y)-view.Y, float32(v.X)-view.X)))
}

func normalize(a float32) float32 {
	return geom.NormalizeDegrees(a)
}

func radians(deg float32) float32 {
	return deg * (math32.Pi / 180)
}

func degrees(rad float32) float32 {
	return rad * (180 / math32.Pi)
}
