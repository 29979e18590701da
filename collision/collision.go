// Package collision keeps circular movers from passing through blocking linedefs. Movement
// into a wall keeps only its component along the wall, so movers slide.
package collision

import (
	"io"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/sirupsen/logrus"

	wad "github.com/stuarthighley/wadview"
	"github.com/stuarthighley/wadview/actor"
	"github.com/stuarthighley/wadview/geom"
)

// Separation is kept between a mover's edge and a wall it touches
const Separation = 0.01

var logger logrus.FieldLogger = discardLogger()

func discardLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func SetLogger(l logrus.FieldLogger) {
	logger = l
}

// Resolver moves circles through one level. Its scratch buffers are reused, so a Resolver must
// not be shared between goroutines.
type Resolver struct {
	level *wad.Level
	seen  wad.LineSet
	walls []int
}

// New returns a resolver for the level's linedefs
func New(level *wad.Level) *Resolver {
	if level.BlockMap == nil {
		logger.WithField("level", level.Name).Warn("No blockmap, testing every linedef")
	}
	return &Resolver{level: level}
}

// Move returns where a mover of the given kind ends up when it tries to go from old to
// attempted.
func (r *Resolver) Move(kind actor.Kind, old, attempted mgl64.Vec2, radius float64) mgl64.Vec2 {
	return r.Resolve(old, attempted, radius, r.NearbyWalls(kind, old, attempted, radius))
}

// NearbyWalls returns the linedefs that block kind in the blockmap cells around old, attempted
// and every sub-step between them, in blockmap order. Cells are searched out to radius+1, the
// reach of SingleCollisionCheck. The slice is reused by the next call.
func (r *Resolver) NearbyWalls(kind actor.Kind, old, attempted mgl64.Vec2, radius float64) []int {
	r.walls = r.walls[:0]
	bm := r.level.BlockMap
	if bm == nil {
		for i := range r.level.LineDefs {
			if kind.Blocks(r.level.LineDefs[i].Flags) {
				r.walls = append(r.walls, i)
			}
		}
		return r.walls
	}

	reach := radius + 1
	r.seen.Reset(len(r.level.LineDefs))
	candidates := bm.AppendLinesNear(nil, &r.seen, old.X(), old.Y(), reach)
	move := attempted.Sub(old)
	if length := move.Len(); length > radius && radius > 0 {
		steps := int(math.Ceil(length / radius))
		step := move.Mul(1 / float64(steps))
		for i := 1; i < steps; i++ {
			p := old.Add(step.Mul(float64(i)))
			candidates = bm.AppendLinesNear(candidates, &r.seen, p.X(), p.Y(), reach)
		}
	}
	candidates = bm.AppendLinesNear(candidates, &r.seen, attempted.X(), attempted.Y(), reach)
	for _, line := range candidates {
		if kind.Blocks(r.level.LineDefs[line].Flags) {
			r.walls = append(r.walls, line)
		}
	}
	return r.walls
}

// Resolve applies each wall in turn: the position corrected by one wall is the attempt tested
// against the next. Order matters at concave corners, where the result is not exact.
func (r *Resolver) Resolve(old, attempted mgl64.Vec2, radius float64, walls []int) mgl64.Vec2 {
	pos := attempted
	for _, w := range walls {
		line := &r.level.LineDefs[w]
		v1, v2 := r.level.Vertexes[line.V1], r.level.Vertexes[line.V2]
		pos = TryMove(old, pos, radius,
			mgl64.Vec2{float64(v1.X), float64(v1.Y)},
			mgl64.Vec2{float64(v2.X), float64(v2.Y)})
	}
	return pos
}

// TryMove checks movement from pos to attempted against the wall a to b. Moves longer than the
// radius are split into equal sub-steps no longer than the radius so the mover cannot jump over
// the wall.
func TryMove(pos, attempted mgl64.Vec2, radius float64, a, b mgl64.Vec2) mgl64.Vec2 {
	move := attempted.Sub(pos)
	length := move.Len()
	if length <= radius || radius <= 0 {
		return SingleCollisionCheck(pos, attempted, radius, a, b)
	}

	steps := int(math.Ceil(length / radius))
	step := move.Mul(1 / float64(steps))
	current := pos
	for i := 0; i < steps; i++ {
		current = SingleCollisionCheck(current, current.Add(step), radius, a, b)
	}
	return current
}

// SingleCollisionCheck returns where a circle of the given radius at pos ends up when it moves
// towards attempted past the wall a to b. The wall blocks from either side. Movement into the
// wall is dropped and movement along it kept; a circle already closer than radius+Separation is
// pushed back out.
func SingleCollisionCheck(pos, attempted mgl64.Vec2, radius float64, a, b mgl64.Vec2) mgl64.Vec2 {
	wall := b.Sub(a)
	wallLength := wall.Len()
	if wallLength < geom.Epsilon {
		return attempted
	}
	dir := wall.Mul(1 / wallLength)
	normal := mgl64.Vec2{-dir.Y(), dir.X()}

	toPos := pos.Sub(a)
	perp := toPos.Dot(normal)
	if perp < 0 {
		normal = normal.Mul(-1)
		perp = -perp
	}
	if perp > radius+1 {
		return attempted
	}

	along := toPos.Dot(dir)
	if along < -radius || along > wallLength+radius {
		return attempted
	}

	move := attempted.Sub(pos)
	if move.Dot(normal) >= 0 {
		return attempted
	}

	result := pos.Add(dir.Mul(move.Dot(dir)))
	if minSeparation := radius + Separation; perp < minSeparation {
		result = result.Add(normal.Mul(minSeparation - perp))
	}
	return result
}
