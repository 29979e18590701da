// Package testlevel builds small levels in code for tests.
package testlevel

import (
	"bytes"
	"encoding/binary"

	wad "github.com/stuarthighley/wadview"
)

// Sector heights of TwoRooms
const (
	WestFloor, WestCeiling = 0, 128
	EastFloor, EastCeiling = 16, 112
)

// TwoRooms returns a 256x256 square split at x=128 into two sectors joined by a two-sided line.
// The west room (sector 0) has floor 0 and ceiling 128. The east room (sector 1) is raised to
// floor 16, lowered to ceiling 112 and open to the sky. One node partitions the rooms; its front
// child is the east room. Player 1 starts at (64,128) facing east.
func TwoRooms() *wad.Level {
	level := &wad.Level{
		Name: "TEST",
		Things: []wad.Thing{
			{X: 64, Y: 128, Angle: 0, Type: 1},
		},
		Vertexes: []wad.Vertex{
			{X: 0, Y: 0},     // 0
			{X: 128, Y: 0},   // 1
			{X: 256, Y: 0},   // 2
			{X: 256, Y: 256}, // 3
			{X: 128, Y: 256}, // 4
			{X: 0, Y: 256},   // 5
		},
		LineDefs: []wad.LineDef{
			{V1: 0, V2: 5, Flags: wad.Blocking, SideR: 0, SideL: wad.NoSide},
			{V1: 5, V2: 4, Flags: wad.Blocking, SideR: 1, SideL: wad.NoSide},
			{V1: 4, V2: 1, Flags: wad.TwoSided, SideR: 2, SideL: 3},
			{V1: 1, V2: 0, Flags: wad.Blocking, SideR: 4, SideL: wad.NoSide},
			{V1: 4, V2: 3, Flags: wad.Blocking, SideR: 5, SideL: wad.NoSide},
			{V1: 3, V2: 2, Flags: wad.Blocking, SideR: 6, SideL: wad.NoSide},
			{V1: 2, V2: 1, Flags: wad.Blocking, SideR: 7, SideL: wad.NoSide},
		},
		SideDefs: []wad.SideDef{
			{Upper: "-", Lower: "-", Middle: "WALL", Sector: 0},
			{Upper: "-", Lower: "-", Middle: "WALL", Sector: 0},
			{Upper: "UPPER", Lower: "LOWER", Middle: "-", Sector: 0},
			{Upper: "-", Lower: "-", Middle: "-", Sector: 1},
			{Upper: "-", Lower: "-", Middle: "WALL", Sector: 0},
			{Upper: "-", Lower: "-", Middle: "WALL2", Sector: 1},
			{Upper: "-", Lower: "-", Middle: "WALL2", Sector: 1},
			{Upper: "-", Lower: "-", Middle: "WALL2", Sector: 1},
		},
		Segs: []wad.Seg{
			{V1: 0, V2: 5, Angle: 0x4000, Line: 0},
			{V1: 5, V2: 4, Angle: 0x0000, Line: 1},
			{V1: 4, V2: 1, Angle: 0xc000, Line: 2},
			{V1: 1, V2: 0, Angle: 0x8000, Line: 3},
			{V1: 1, V2: 4, Angle: 0x4000, Line: 2, Direction: 1},
			{V1: 4, V2: 3, Angle: 0x0000, Line: 4},
			{V1: 3, V2: 2, Angle: 0xc000, Line: 5},
			{V1: 2, V2: 1, Angle: 0x8000, Line: 6},
		},
		SubSectors: []wad.SubSector{
			{FirstSeg: 0, NumSegs: 4}, // West
			{FirstSeg: 4, NumSegs: 4}, // East
		},
		Nodes: []wad.Node{
			{
				X: 128, Y: 0, DX: 0, DY: 256,
				BBoxR:  wad.BoundBox{Top: 256, Bottom: 0, Left: 128, Right: 256},
				BBoxL:  wad.BoundBox{Top: 256, Bottom: 0, Left: 0, Right: 128},
				ChildR: wad.SubSectorBit | 1,
				ChildL: wad.SubSectorBit | 0,
			},
		},
		Sectors: []wad.Sector{
			{FloorHeight: WestFloor, CeilingHeight: WestCeiling, FloorTexture: "FLOOR", CeilingTexture: "CEIL", LightLevel: 255},
			{FloorHeight: EastFloor, CeilingHeight: EastCeiling, FloorTexture: "FLOOR2", CeilingTexture: "F_SKY1", LightLevel: 160},
		},
	}
	level.BlockMap = wad.BuildBlockMap(level)
	return level
}

// Wall returns a level holding one blocking one-sided line from (x1,y1) to (x2,y2), for
// collision tests. Its single subsector has no BSP nodes.
func Wall(x1, y1, x2, y2 int) *wad.Level {
	level := &wad.Level{
		Name:       "WALL",
		Vertexes:   []wad.Vertex{{X: x1, Y: y1}, {X: x2, Y: y2}},
		LineDefs:   []wad.LineDef{{V1: 0, V2: 1, Flags: wad.Blocking, SideR: 0, SideL: wad.NoSide}},
		SideDefs:   []wad.SideDef{{Upper: "-", Lower: "-", Middle: "WALL", Sector: 0}},
		Segs:       []wad.Seg{{V1: 0, V2: 1, Line: 0}},
		SubSectors: []wad.SubSector{{FirstSeg: 0, NumSegs: 1}},
		Sectors:    []wad.Sector{{FloorHeight: 0, CeilingHeight: 128, FloorTexture: "FLOOR", CeilingTexture: "CEIL", LightLevel: 255}},
	}
	level.BlockMap = wad.BuildBlockMap(level)
	return level
}

// Lumps encodes a level into the on-disk map lump layout. The blockmap is written with a
// leading 0 word per list.
func Lumps(level *wad.Level) wad.LevelLumps {
	lumps := wad.LevelLumps{}
	put := func(name string, fields ...any) {
		buf := bytes.NewBuffer(lumps[name])
		for _, f := range fields {
			binary.Write(buf, binary.LittleEndian, f)
		}
		lumps[name] = buf.Bytes()
	}
	lumps["THINGS"] = []byte{}
	for _, t := range level.Things {
		put("THINGS", int16(t.X), int16(t.Y), int16(t.Angle), int16(t.Type), int16(7))
	}
	lumps["VERTEXES"] = []byte{}
	for _, v := range level.Vertexes {
		put("VERTEXES", int16(v.X), int16(v.Y))
	}
	lumps["LINEDEFS"] = []byte{}
	for _, l := range level.LineDefs {
		put("LINEDEFS", int16(l.V1), int16(l.V2), uint16(l.Flags), int16(l.Special), int16(l.Tag),
			uint16(l.SideR), uint16(l.SideL))
	}
	lumps["SIDEDEFS"] = []byte{}
	for _, s := range level.SideDefs {
		put("SIDEDEFS", int16(s.XOffset), int16(s.YOffset), Name8(s.Upper), Name8(s.Lower),
			Name8(s.Middle), int16(s.Sector))
	}
	lumps["SEGS"] = []byte{}
	for _, s := range level.Segs {
		put("SEGS", int16(s.V1), int16(s.V2), s.Angle, int16(s.Line), int16(s.Direction), int16(s.Offset))
	}
	lumps["SSECTORS"] = []byte{}
	for _, s := range level.SubSectors {
		put("SSECTORS", int16(s.NumSegs), int16(s.FirstSeg))
	}
	lumps["NODES"] = []byte{}
	for _, n := range level.Nodes {
		put("NODES", int16(n.X), int16(n.Y), int16(n.DX), int16(n.DY))
		for _, b := range []wad.BoundBox{n.BBoxR, n.BBoxL} {
			put("NODES", int16(b.Top), int16(b.Bottom), int16(b.Left), int16(b.Right))
		}
		put("NODES", n.ChildR, n.ChildL)
	}
	lumps["SECTORS"] = []byte{}
	for _, s := range level.Sectors {
		put("SECTORS", int16(s.FloorHeight), int16(s.CeilingHeight), Name8(s.FloorTexture),
			Name8(s.CeilingTexture), int16(s.LightLevel), int16(s.Special), int16(s.Tag))
	}
	if level.BlockMap != nil {
		lumps["BLOCKMAP"] = BlockMapLump(level.BlockMap)
	}
	return lumps
}

// BlockMapLump encodes a blockmap with a leading 0 word per list
func BlockMapLump(b *wad.BlockMap) []byte {
	header := 4 + len(b.Cells)
	offsets := make([]uint16, len(b.Cells))
	var lists []uint16
	for i, cell := range b.Cells {
		offsets[i] = uint16(header + len(lists))
		lists = append(lists, 0)
		for _, line := range cell {
			lists = append(lists, uint16(line))
		}
		lists = append(lists, 0xffff)
	}
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, []int16{int16(b.OriginX), int16(b.OriginY), int16(b.Columns), int16(b.Rows)})
	binary.Write(buf, binary.LittleEndian, offsets)
	binary.Write(buf, binary.LittleEndian, lists)
	return buf.Bytes()
}

// Name8 pads a lump or texture name to eight bytes
func Name8(name string) [8]byte {
	var b [8]byte
	copy(b[:], name)
	return b
}

// Lump is one named entry of an archive built by Archive
type Lump struct {
	Name string
	Data []byte
}

// Archive builds an IWAD image holding the given lumps in order
func Archive(lumps ...Lump) []byte {
	var body bytes.Buffer
	offsets := make([]int32, len(lumps))
	for i, l := range lumps {
		offsets[i] = int32(12 + body.Len())
		body.Write(l.Data)
	}
	buf := new(bytes.Buffer)
	buf.WriteString("IWAD")
	binary.Write(buf, binary.LittleEndian, int32(len(lumps)))
	binary.Write(buf, binary.LittleEndian, int32(12+body.Len()))
	buf.Write(body.Bytes())
	for i, l := range lumps {
		binary.Write(buf, binary.LittleEndian, offsets[i])
		binary.Write(buf, binary.LittleEndian, int32(len(l.Data)))
		binary.Write(buf, binary.LittleEndian, Name8(l.Name))
	}
	return buf.Bytes()
}

// Palette returns a PLAYPAL lump where index i maps to grey level i in every palette
func Palette() []byte {
	pal := make([]byte, 14*256*3)
	for p := 0; p < 14; p++ {
		for i := 0; i < 256; i++ {
			o := (p*256 + i) * 3
			pal[o], pal[o+1], pal[o+2] = byte(i), byte(i), byte(i)
		}
	}
	return pal
}

// ColorMap returns a COLORMAP lump of identity maps
func ColorMap() []byte {
	maps := make([]byte, 34*256)
	for m := 0; m < 34; m++ {
		for i := 0; i < 256; i++ {
			maps[m*256+i] = byte(i)
		}
	}
	return maps
}

// LevelArchive builds an IWAD with a palette, a colormap, one flat and the level under name
func LevelArchive(name string, level *wad.Level) []byte {
	lumps := Lumps(level)
	flat := bytes.Repeat([]byte{7}, wad.FlatWidth*wad.FlatHeight)
	entries := []Lump{
		{"PLAYPAL", Palette()},
		{"COLORMAP", ColorMap()},
		{name, nil},
	}
	for _, n := range []string{"THINGS", "LINEDEFS", "SIDEDEFS", "VERTEXES", "SEGS", "SSECTORS", "NODES", "SECTORS", "REJECT", "BLOCKMAP"} {
		if data, ok := lumps[n]; ok || n == "REJECT" {
			entries = append(entries, Lump{n, data})
		}
	}
	entries = append(entries,
		Lump{"F_START", nil},
		Lump{"FLOOR", flat},
		Lump{"F_END", nil},
	)
	return Archive(entries...)
}
