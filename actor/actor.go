// Package actor holds the moving viewpoint: its transform, the previous tick's transform for
// interpolation, and the kind of mover it is for collision.
package actor

import (
	"github.com/go-gl/mathgl/mgl64"

	wad "github.com/stuarthighley/wadview"
	"github.com/stuarthighley/wadview/geom"
)

// Kind is the closed set of things that move through a level
type Kind int

const (
	Player Kind = iota
	Monster
)

func (k Kind) String() string {
	switch k {
	case Player:
		return "player"
	case Monster:
		return "monster"
	}
	return "unknown"
}

// BlockingFlags returns the linedef flags that stop this kind of mover
func (k Kind) BlockingFlags() wad.LineFlags {
	if k == Monster {
		return wad.Blocking | wad.BlockMonsters
	}
	return wad.Blocking
}

// Blocks reports whether a line with the given flags stops this kind of mover
func (k Kind) Blocks(flags wad.LineFlags) bool {
	return flags.Any(k.BlockingFlags())
}

// Transform is a position in map units and a facing in degrees [0,360)
type Transform struct {
	Position mgl64.Vec2
	Angle    float64
}

// Lerp blends from t to u by alpha in [0,1]. The angle turns the short way round.
func (t Transform) Lerp(u Transform, alpha float64) Transform {
	return Transform{
		Position: t.Position.Add(u.Position.Sub(t.Position).Mul(alpha)),
		Angle:    geom.NormalizeDegrees(t.Angle + geom.AngleDelta(t.Angle, u.Angle)*alpha),
	}
}

// Direction returns the unit facing vector
func (t Transform) Direction() mgl64.Vec2 {
	return geom.Direction(t.Angle)
}

// View is what the renderer needs of a viewpoint: where it is and its eye height
type View struct {
	Transform
	Z float64
}

// Viewpoint is a mover with a last-tick snapshot. Height is the eye height above the floor.
type Viewpoint struct {
	Kind Kind
	Transform
	Last   Transform
	Height float64
	Floor  float64
	Radius float64
}

// NewViewpoint places a mover; its last transform matches so the first frame does not blend.
func NewViewpoint(kind Kind, pos mgl64.Vec2, angle, radius, height float64) *Viewpoint {
	t := Transform{Position: pos, Angle: geom.NormalizeDegrees(angle)}
	return &Viewpoint{Kind: kind, Transform: t, Last: t, Height: height, Radius: radius}
}

// Snapshot records the current transform as the last one, at the start of a tick
func (v *Viewpoint) Snapshot() {
	v.Last = v.Transform
}

// Turn rotates by deg, positive counter-clockwise
func (v *Viewpoint) Turn(deg float64) {
	v.Angle = geom.NormalizeDegrees(v.Angle + deg)
}

// Attempt returns the position reached by moving forward and strafing right, before collision
func (v *Viewpoint) Attempt(forward, strafe float64) mgl64.Vec2 {
	dir := v.Direction()
	right := mgl64.Vec2{dir.Y(), -dir.X()}
	return v.Position.Add(dir.Mul(forward)).Add(right.Mul(strafe))
}

// EyeZ returns the eye height in world units
func (v *Viewpoint) EyeZ() float64 {
	return v.Floor + v.Height
}

// Interpolate returns the transform alpha of the way from the last tick to this one
func (v *Viewpoint) Interpolate(alpha float64) Transform {
	return v.Last.Lerp(v.Transform, geom.Clamp(alpha, 0, 1))
}

// View returns the interpolated view for rendering
func (v *Viewpoint) View(alpha float64) View {
	return View{Transform: v.Interpolate(alpha), Z: v.EyeZ()}
}
