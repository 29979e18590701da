package wad

import (
	"bytes"
	"encoding/binary"
	"strings"

	"github.com/pkg/errors"
	"github.com/stuarthighley/wadview/geom"
)

// ErrCorruptLevel is wrapped by every level validation failure.
var ErrCorruptLevel = errors.New("corrupt level")

// Level holds the decoded map lumps of one level. Every cross reference is an index into one
// of the slices, resolved through accessor methods.
type Level struct {
	Name       string
	Things     []Thing
	Vertexes   []Vertex
	LineDefs   []LineDef
	SideDefs   []SideDef
	Segs       []Seg
	SubSectors []SubSector
	Nodes      []Node
	Sectors    []Sector
	Reject     []byte
	BlockMap   *BlockMap
}

// LevelLumps maps lump names to their raw contents for one level.
type LevelLumps map[string][]byte

// Map lumps that may follow a level marker, in the order id's tools write them.
var levelLumpNames = []string{
	"THINGS", "LINEDEFS", "SIDEDEFS", "VERTEXES", "SEGS",
	"SSECTORS", "NODES", "SECTORS", "REJECT", "BLOCKMAP",
}

func isLevelLump(name string) bool {
	for _, n := range levelLumpNames {
		if n == name {
			return true
		}
	}
	return false
}

type binThing struct {
	X       int16
	Y       int16
	Angle   int16
	Type    int16
	Options int16
}

type Thing struct {
	X, Y            int
	Angle           float64 // Degrees
	Type            int
	Skill1and2      bool
	Skill3          bool
	Skill4and5      bool
	Ambush          bool
	MultiplayerOnly bool
}

type binVertex struct {
	X, Y int16
}

type Vertex struct {
	X, Y int
}

type binSideDef struct {
	XOffset       int16
	YOffset       int16
	UpperTexture  String8
	LowerTexture  String8
	MiddleTexture String8
	SectorNum     int16
}

// SideDef is one face of a LineDef. A texture name of NoTexture means nothing is drawn.
type SideDef struct {
	XOffset, YOffset int
	Upper            string
	Lower            string
	Middle           string
	Sector           int
}

// NoTexture is the texture name for an empty surface
const NoTexture = "-"

type binSeg struct {
	V1        int16
	V2        int16
	Angle     uint16 // Binary angle, full circle is 65536
	LineNum   int16
	Direction int16 // 0 - same as linedef, 1 - opposite to linedef
	Offset    int16 // Distance along line to start of segment
}

type Seg struct {
	V1, V2    int
	Angle     uint16
	Line      int
	Direction int
	Offset    int
}

type binSubSector struct {
	NumSegs  int16
	FirstSeg int16
}

type SubSector struct {
	NumSegs  int
	FirstSeg int
}

type binBBox struct {
	Top    int16
	Bottom int16
	Left   int16
	Right  int16
}

type BoundBox struct {
	Top, Bottom, Left, Right int
}

type binNode struct {
	X, Y           int16
	DX, DY         int16
	BBoxR, BBoxL   binBBox
	ChildR, ChildL uint16
}

// Node is an interior BSP node. The partition line runs from (X, Y) along (DX, DY). The right
// child is the front side of the partition.
type Node struct {
	X, Y           int
	DX, DY         int
	BBoxR, BBoxL   BoundBox
	ChildR, ChildL uint16
}

// SubSectorBit is set on node children that index a subsector rather than a node
const SubSectorBit = 0x8000

type binSector struct {
	FloorHeight    int16
	CeilingHeight  int16
	FloorTexture   String8
	CeilingTexture String8
	LightLevel     int16
	Type           int16
	TagNum         int16
}

type Sector struct {
	FloorHeight    int
	CeilingHeight  int
	FloorTexture   string
	CeilingTexture string
	LightLevel     int
	Special        int
	Tag            int
}

// SkyFlatPrefix starts the name of every sky ceiling flat
const SkyFlatPrefix = "F_SKY"

// IsSkyFlat reports whether the flat name marks a sky
func IsSkyFlat(name string) bool {
	return strings.HasPrefix(strings.ToUpper(name), SkyFlatPrefix)
}

// SkyTextureName returns the wall texture drawn for a sky flat: F_SKY1 is drawn with SKY1.
func SkyTextureName(flat string) string {
	suffix := strings.TrimPrefix(strings.ToUpper(flat), SkyFlatPrefix)
	if suffix == "" {
		suffix = "1"
	}
	return "SKY" + suffix
}

// IsSkyCeiling reports whether the sector's ceiling is open sky
func (s *Sector) IsSkyCeiling() bool {
	return IsSkyFlat(s.CeilingTexture)
}

// Child returns the child for side: 0 for right (front), 1 for left (back)
func (n *Node) Child(side int) uint16 {
	if side == 0 {
		return n.ChildR
	}
	return n.ChildL
}

// BoundBox returns the bound box for side
func (n *Node) BoundBox(side int) BoundBox {
	if side == 0 {
		return n.BBoxR
	}
	return n.BBoxL
}

// IsSubSector reports whether a node child refers to a subsector
func IsSubSector(child uint16) bool {
	return child&SubSectorBit != 0
}

// ChildIndex strips the subsector bit from a node child
func ChildIndex(child uint16) int {
	return int(child &^ SubSectorBit)
}

// Degrees returns the seg's direction in degrees [0,360)
func (s *Seg) Degrees() float64 {
	return geom.BAMToDegrees(s.Angle)
}

// LineDef returns the line the seg was cut from
func (s *Seg) LineDef(level *Level) *LineDef {
	if s.Line < 0 || s.Line >= len(level.LineDefs) {
		return nil
	}
	return &level.LineDefs[s.Line]
}

// Side returns the sidedef the seg is drawn with, or nil
func (s *Seg) Side(level *Level) *SideDef {
	line := s.LineDef(level)
	if line == nil {
		return nil
	}
	if s.Direction == 0 {
		return level.sideDef(line.SideR)
	}
	return level.sideDef(line.SideL)
}

// BackSide returns the sidedef on the far side of the seg, or nil if the line is one-sided
func (s *Seg) BackSide(level *Level) *SideDef {
	line := s.LineDef(level)
	if line == nil {
		return nil
	}
	if s.Direction == 0 {
		return level.sideDef(line.SideL)
	}
	return level.sideDef(line.SideR)
}

// FrontSector returns the sector in front of the seg, or nil
func (s *Seg) FrontSector(level *Level) *Sector {
	side := s.Side(level)
	if side == nil {
		return nil
	}
	return side.SectorOf(level)
}

// BackSector returns the sector behind the seg, or nil
func (s *Seg) BackSector(level *Level) *Sector {
	side := s.BackSide(level)
	if side == nil {
		return nil
	}
	return side.SectorOf(level)
}

// SectorOf returns the sector the sidedef faces, or nil
func (s *SideDef) SectorOf(level *Level) *Sector {
	if s.Sector < 0 || s.Sector >= len(level.Sectors) {
		return nil
	}
	return &level.Sectors[s.Sector]
}

// Segs returns the run of segs in the subsector
func (s *SubSector) Segs(level *Level) []Seg {
	return level.Segs[s.FirstSeg : s.FirstSeg+s.NumSegs]
}

// Vertex returns a vertex by index
func (l *Level) Vertex(i int) Vertex {
	return l.Vertexes[i]
}

func (l *Level) sideDef(i int) *SideDef {
	if i < 0 || i >= len(l.SideDefs) {
		return nil
	}
	return &l.SideDefs[i]
}

// PlayerStart returns the start thing for player n (1-4)
func (l *Level) PlayerStart(n int) (Thing, bool) {
	for _, t := range l.Things {
		if t.Type == n {
			return t, true
		}
	}
	return Thing{}, false
}

// Bounds returns the extent of all vertexes
func (l *Level) Bounds() BoundBox {
	if len(l.Vertexes) == 0 {
		return BoundBox{}
	}
	box := BoundBox{Top: l.Vertexes[0].Y, Bottom: l.Vertexes[0].Y, Left: l.Vertexes[0].X, Right: l.Vertexes[0].X}
	for _, v := range l.Vertexes[1:] {
		box.Left = min(box.Left, v.X)
		box.Right = max(box.Right, v.X)
		box.Bottom = min(box.Bottom, v.Y)
		box.Top = max(box.Top, v.Y)
	}
	return box
}

// ReadLevel reads and validates the named level. The lumps following the level marker are
// decoded until one that is not a map lump. A missing blockmap is built from the linedefs.
func (w *WAD) ReadLevel(name string) (*Level, error) {
	name = strings.ToUpper(name)
	logger.Printf("Reading Level %v ...", name)

	levelIdx, ok := w.levels[name]
	if !ok {
		return nil, errors.Errorf("level %s not found", name)
	}
	lumps := LevelLumps{}
	for i := levelIdx + 1; i < len(w.lumpInfos); i++ {
		lumpInfo := w.lumpInfos[i]
		if !isLevelLump(lumpInfo.Name) {
			break
		}
		lump, err := w.readLump(&lumpInfo)
		if err != nil {
			return nil, errors.Wrap(err, name)
		}
		lumps[lumpInfo.Name] = lump
	}
	return DecodeLevel(name, lumps, w.BlocklistHeader)
}

// DecodeLevel builds a validated level from its raw lumps.
func DecodeLevel(name string, lumps LevelLumps, blocklistHeader bool) (*Level, error) {
	level := &Level{Name: name}
	var err error
	for _, required := range []string{"VERTEXES", "LINEDEFS", "SIDEDEFS", "SECTORS", "SEGS", "SSECTORS"} {
		if _, ok := lumps[required]; !ok {
			return nil, errors.Wrapf(ErrCorruptLevel, "%s: missing %s", name, required)
		}
	}
	if level.Things, err = readThings(lumps["THINGS"]); err != nil {
		return nil, errors.Wrap(err, name)
	}
	if level.Vertexes, err = readVertexes(lumps["VERTEXES"]); err != nil {
		return nil, errors.Wrap(err, name)
	}
	if level.LineDefs, err = readLineDefs(lumps["LINEDEFS"]); err != nil {
		return nil, errors.Wrap(err, name)
	}
	if level.SideDefs, err = readSideDefs(lumps["SIDEDEFS"]); err != nil {
		return nil, errors.Wrap(err, name)
	}
	if level.Segs, err = readSegs(lumps["SEGS"]); err != nil {
		return nil, errors.Wrap(err, name)
	}
	if level.SubSectors, err = readSubSectors(lumps["SSECTORS"]); err != nil {
		return nil, errors.Wrap(err, name)
	}
	if level.Nodes, err = readNodes(lumps["NODES"]); err != nil {
		return nil, errors.Wrap(err, name)
	}
	if level.Sectors, err = readSectors(lumps["SECTORS"]); err != nil {
		return nil, errors.Wrap(err, name)
	}
	level.Reject = lumps["REJECT"]

	if lump, ok := lumps["BLOCKMAP"]; ok && len(lump) > 0 {
		if level.BlockMap, err = readBlockMap(lump, len(level.LineDefs), blocklistHeader); err != nil {
			return nil, errors.Wrap(err, name)
		}
	} else {
		logger.Printf("%v has no blockmap, building one", name)
		level.BlockMap = BuildBlockMap(level)
	}

	if err := level.Validate(); err != nil {
		return nil, errors.Wrap(err, name)
	}
	return level, nil
}

// decodeLump decodes a lump made of fixed size little-endian records
func decodeLump[T any](name string, lump []byte) ([]T, error) {
	var zero T
	size := binary.Size(zero)
	if len(lump)%size != 0 {
		return nil, errors.Wrapf(ErrCorruptLevel, "%s: size %d is not a multiple of %d", name, len(lump), size)
	}
	items := make([]T, len(lump)/size)
	if err := binary.Read(bytes.NewReader(lump), binary.LittleEndian, items); err != nil {
		return nil, errors.Wrap(err, name)
	}
	return items, nil
}

func readThings(lump []byte) ([]Thing, error) {
	logger.Println("Reading Things ...")
	binThings, err := decodeLump[binThing]("THINGS", lump)
	if err != nil {
		return nil, err
	}

	// Translate to canonical
	things := make([]Thing, len(binThings))
	for i, t := range binThings {
		things[i] = Thing{
			X:               int(t.X),
			Y:               int(t.Y),
			Angle:           float64(t.Angle),
			Type:            int(t.Type),
			Skill1and2:      t.Options&1 != 0,
			Skill3:          t.Options&2 != 0,
			Skill4and5:      t.Options&4 != 0,
			Ambush:          t.Options&8 != 0,
			MultiplayerOnly: t.Options&0x10 != 0,
		}
	}
	logger.Printf("Read %v things", len(things))
	return things, nil
}

func readVertexes(lump []byte) ([]Vertex, error) {
	binVertexes, err := decodeLump[binVertex]("VERTEXES", lump)
	if err != nil {
		return nil, err
	}
	vertexes := make([]Vertex, len(binVertexes))
	for i, v := range binVertexes {
		vertexes[i] = Vertex{int(v.X), int(v.Y)}
	}
	logger.Printf("Read %v vertexes", len(vertexes))
	return vertexes, nil
}

func readLineDefs(lump []byte) ([]LineDef, error) {
	binLines, err := decodeLump[binLineDef]("LINEDEFS", lump)
	if err != nil {
		return nil, err
	}
	lines := make([]LineDef, len(binLines))
	for i, l := range binLines {
		lines[i] = LineDef{
			V1:      int(uint16(l.VertexStart)),
			V2:      int(uint16(l.VertexEnd)),
			Flags:   LineFlags(l.Flags),
			Special: int(l.Special),
			Tag:     int(l.SectorTag),
			SideR:   sideIndex(l.SideR),
			SideL:   sideIndex(l.SideL),
		}
	}
	logger.Printf("Read %v linedefs", len(lines))
	return lines, nil
}

// sideIndex maps the on-disk 0xFFFF to NoSide
func sideIndex(v int16) int {
	if uint16(v) == 0xffff {
		return NoSide
	}
	return int(uint16(v))
}

func readSideDefs(lump []byte) ([]SideDef, error) {
	binSides, err := decodeLump[binSideDef]("SIDEDEFS", lump)
	if err != nil {
		return nil, err
	}
	sides := make([]SideDef, len(binSides))
	for i, s := range binSides {
		sides[i] = SideDef{
			XOffset: int(s.XOffset),
			YOffset: int(s.YOffset),
			Upper:   s.UpperTexture.String(),
			Lower:   s.LowerTexture.String(),
			Middle:  s.MiddleTexture.String(),
			Sector:  int(uint16(s.SectorNum)),
		}
	}
	logger.Printf("Read %v sidedefs", len(sides))
	return sides, nil
}

func readSegs(lump []byte) ([]Seg, error) {
	binSegs, err := decodeLump[binSeg]("SEGS", lump)
	if err != nil {
		return nil, err
	}
	segs := make([]Seg, len(binSegs))
	for i, s := range binSegs {
		segs[i] = Seg{
			V1:        int(uint16(s.V1)),
			V2:        int(uint16(s.V2)),
			Angle:     s.Angle,
			Line:      int(uint16(s.LineNum)),
			Direction: int(s.Direction),
			Offset:    int(s.Offset),
		}
	}
	logger.Printf("Read %v segs", len(segs))
	return segs, nil
}

func readSubSectors(lump []byte) ([]SubSector, error) {
	binSubSectors, err := decodeLump[binSubSector]("SSECTORS", lump)
	if err != nil {
		return nil, err
	}
	subSectors := make([]SubSector, len(binSubSectors))
	for i, s := range binSubSectors {
		subSectors[i] = SubSector{NumSegs: int(uint16(s.NumSegs)), FirstSeg: int(uint16(s.FirstSeg))}
	}
	logger.Printf("Read %v subsectors", len(subSectors))
	return subSectors, nil
}

func readNodes(lump []byte) ([]Node, error) {
	binNodes, err := decodeLump[binNode]("NODES", lump)
	if err != nil {
		return nil, err
	}
	nodes := make([]Node, len(binNodes))
	for i, n := range binNodes {
		nodes[i] = Node{
			X:      int(n.X),
			Y:      int(n.Y),
			DX:     int(n.DX),
			DY:     int(n.DY),
			BBoxR:  n.BBoxR.canonical(),
			BBoxL:  n.BBoxL.canonical(),
			ChildR: n.ChildR,
			ChildL: n.ChildL,
		}
	}
	logger.Printf("Read %v nodes", len(nodes))
	return nodes, nil
}

func (b binBBox) canonical() BoundBox {
	return BoundBox{Top: int(b.Top), Bottom: int(b.Bottom), Left: int(b.Left), Right: int(b.Right)}
}

func readSectors(lump []byte) ([]Sector, error) {
	binSectors, err := decodeLump[binSector]("SECTORS", lump)
	if err != nil {
		return nil, err
	}
	sectors := make([]Sector, len(binSectors))
	for i, s := range binSectors {
		sectors[i] = Sector{
			FloorHeight:    int(s.FloorHeight),
			CeilingHeight:  int(s.CeilingHeight),
			FloorTexture:   s.FloorTexture.String(),
			CeilingTexture: s.CeilingTexture.String(),
			LightLevel:     int(s.LightLevel),
			Special:        int(s.Type),
			Tag:            int(s.TagNum),
		}
	}
	logger.Printf("Read %v sectors", len(sectors))
	return sectors, nil
}

// Validate checks every cross reference in the level. Node children must index an earlier
// node, which rules out cycles; vanilla node builders always write nodes in that order.
func (l *Level) Validate() error {
	corrupt := func(format string, args ...any) error {
		return errors.Wrapf(ErrCorruptLevel, format, args...)
	}
	for i, line := range l.LineDefs {
		if line.V1 >= len(l.Vertexes) || line.V2 >= len(l.Vertexes) {
			return corrupt("linedef %d: vertex out of range", i)
		}
		if line.SideR == NoSide || line.SideR >= len(l.SideDefs) {
			return corrupt("linedef %d: bad right sidedef %d", i, line.SideR)
		}
		if line.SideL != NoSide && line.SideL >= len(l.SideDefs) {
			return corrupt("linedef %d: bad left sidedef %d", i, line.SideL)
		}
	}
	for i, side := range l.SideDefs {
		if side.Sector < 0 || side.Sector >= len(l.Sectors) {
			return corrupt("sidedef %d: sector %d out of range", i, side.Sector)
		}
	}
	for i, seg := range l.Segs {
		if seg.V1 >= len(l.Vertexes) || seg.V2 >= len(l.Vertexes) {
			return corrupt("seg %d: vertex out of range", i)
		}
		if seg.Line >= len(l.LineDefs) {
			return corrupt("seg %d: linedef %d out of range", i, seg.Line)
		}
		if seg.Direction != 0 && seg.Direction != 1 {
			return corrupt("seg %d: bad direction %d", i, seg.Direction)
		}
	}
	if len(l.SubSectors) == 0 {
		return corrupt("no subsectors")
	}
	for i, ss := range l.SubSectors {
		if ss.NumSegs == 0 || ss.FirstSeg+ss.NumSegs > len(l.Segs) {
			return corrupt("subsector %d: segs %d+%d out of range", i, ss.FirstSeg, ss.NumSegs)
		}
	}
	for i, node := range l.Nodes {
		for side := 0; side < 2; side++ {
			child := node.Child(side)
			idx := ChildIndex(child)
			if IsSubSector(child) {
				if idx >= len(l.SubSectors) {
					return corrupt("node %d: subsector %d out of range", i, idx)
				}
			} else if idx >= i {
				return corrupt("node %d: child node %d out of order", i, idx)
			}
		}
	}
	if l.BlockMap != nil {
		for i, cell := range l.BlockMap.Cells {
			for _, line := range cell {
				if line < 0 || line >= len(l.LineDefs) {
					return corrupt("blockmap cell %d: linedef %d out of range", i, line)
				}
			}
		}
	}
	return nil
}
