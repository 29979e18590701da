// Package bsp walks a level's node tree to visit subsectors front to back from a point.
package bsp

import (
	"github.com/go-gl/mathgl/mgl64"

	wad "github.com/stuarthighley/wadview"
	"github.com/stuarthighley/wadview/geom"
)

// Tree walks the nodes of one level. The traversal stack is reused between calls, so a Tree
// must not be shared between goroutines.
type Tree struct {
	level *wad.Level
	root  uint16
	stack []uint16
}

// NewTree returns a tree rooted at the level's last node. A level without nodes is a single
// subsector.
func NewTree(level *wad.Level) *Tree {
	t := &Tree{level: level, root: wad.SubSectorBit}
	if len(level.Nodes) > 0 {
		t.root = uint16(len(level.Nodes) - 1)
	}
	// At most one far child waits per level of the tree, plus the near child
	t.stack = make([]uint16, 0, Depth(level)+1)
	return t
}

// Depth returns the number of nodes on the longest path from the root to a subsector
func Depth(level *wad.Level) int {
	depths := make([]int, len(level.Nodes))
	childDepth := func(child uint16) int {
		idx := wad.ChildIndex(child)
		if wad.IsSubSector(child) || idx >= len(depths) {
			return 0
		}
		return depths[idx]
	}
	// Children always come before their parent
	deepest := 0
	for i, node := range level.Nodes {
		depths[i] = 1 + max(childDepth(node.ChildR), childDepth(node.ChildL))
		deepest = max(deepest, depths[i])
	}
	return deepest
}

// PointSide returns 0 if pos is on the node's right (front) side and 1 if it is on the left
// (back) side or on the partition line.
func PointSide(pos mgl64.Vec2, node *wad.Node) int {
	rel := pos.Sub(mgl64.Vec2{float64(node.X), float64(node.Y)})
	if geom.Cross(rel, mgl64.Vec2{float64(node.DX), float64(node.DY)}) <= 0 {
		return 1
	}
	return 0
}

// Visit calls leaf for every subsector reachable from the root, nearest to pos first. Before
// a subtree on the far side of a partition is entered, boxTest is called with its bound box and
// the subtree is skipped if it returns false. A nil boxTest accepts everything. The walk stops
// as soon as leaf returns false.
//
// A child index outside the level's arrays panics.
func (t *Tree) Visit(pos mgl64.Vec2, leaf func(subSector int) bool, boxTest func(box wad.BoundBox) bool) {
	t.stack = append(t.stack[:0], t.root)
	for len(t.stack) > 0 {
		child := t.stack[len(t.stack)-1]
		t.stack = t.stack[:len(t.stack)-1]

		if wad.IsSubSector(child) {
			if !leaf(wad.ChildIndex(child)) {
				return
			}
			continue
		}

		node := &t.level.Nodes[wad.ChildIndex(child)]
		near := PointSide(pos, node)
		far := near ^ 1
		if boxTest == nil || boxTest(node.BoundBox(far)) {
			t.stack = append(t.stack, node.Child(far))
		}
		t.stack = append(t.stack, node.Child(near))
	}
}

// SubSectorAt returns the subsector containing pos
func (t *Tree) SubSectorAt(pos mgl64.Vec2) int {
	child := t.root
	for !wad.IsSubSector(child) {
		node := &t.level.Nodes[wad.ChildIndex(child)]
		child = node.Child(PointSide(pos, node))
	}
	return wad.ChildIndex(child)
}

// FloorHeight returns the floor height of the sector containing pos, or 0 if the subsector's
// first seg has no front sector.
func (t *Tree) FloorHeight(pos mgl64.Vec2) float64 {
	sector := t.SectorAt(pos)
	if sector == nil {
		return 0
	}
	return float64(sector.FloorHeight)
}

// SectorAt returns the sector containing pos, found through the first seg of its subsector
func (t *Tree) SectorAt(pos mgl64.Vec2) *wad.Sector {
	ss := &t.level.SubSectors[t.SubSectorAt(pos)]
	if ss.NumSegs == 0 || ss.FirstSeg >= len(t.level.Segs) {
		return nil
	}
	return t.level.Segs[ss.FirstSeg].FrontSector(t.level)
}

// Level returns the level the tree walks
func (t *Tree) Level() *wad.Level {
	return t.level
}
