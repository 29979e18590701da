// Package geom holds the small numeric helpers shared by the traversal, camera,
// renderer and collision code. Angles are in degrees unless a name says otherwise.
package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/exp/constraints"
)

// Epsilon guards divisions by near-zero lengths and scales.
const Epsilon = 1e-6

// Radians converts degrees to radians
func Radians[T constraints.Integer | constraints.Float](deg T) float64 {
	return float64(deg) * (math.Pi / 180)
}

// Degrees converts radians to degrees
func Degrees[T constraints.Float](rad T) float64 {
	return float64(rad) * (180 / math.Pi)
}

// NormalizeDegrees wraps an angle into [0, 360)
func NormalizeDegrees[T constraints.Float](a T) T {
	a = T(math.Mod(float64(a), 360))
	if a < 0 {
		a += 360
	}
	return a
}

// Clamp limits v to [lo, hi]
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// BAMToDegrees converts a 16-bit binary angle (full circle = 65536) to degrees in [0, 360).
func BAMToDegrees(b uint16) float64 {
	return float64(b) * 360 / 65536
}

// Cross returns the z component of the 2D cross product a x b.
func Cross(a, b mgl64.Vec2) float64 {
	return a.X()*b.Y() - a.Y()*b.X()
}

// Bearing returns the world angle, in [0, 360), of the direction from one point to another.
func Bearing(from, to mgl64.Vec2) float64 {
	d := to.Sub(from)
	return NormalizeDegrees(Degrees(math.Atan2(d.Y(), d.X())))
}

// Direction returns the unit vector for an angle in degrees.
func Direction(deg float64) mgl64.Vec2 {
	r := Radians(deg)
	return mgl64.Vec2{math.Cos(r), math.Sin(r)}
}

// AngleDelta returns the signed shortest rotation from a to b, in (-180, 180].
func AngleDelta(a, b float64) float64 {
	d := NormalizeDegrees(b - a)
	if d > 180 {
		d -= 360
	}
	return d
}
