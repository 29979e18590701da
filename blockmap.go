package wad

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
)

// BlockSize is the width and height of a blockmap cell in map units
const BlockSize = 128

const blockListEnd = 0xffff

type binBlockMapHeader struct {
	OriginX, OriginY int16
	Columns, Rows    int16
}

// BlockMap is level data created from axis aligned bounding box of the map, a rectangular array
// of blocks of size BlockSize. Used to speed up collision detection by spatial subdivision in 2D.
type BlockMap struct {
	OriginX, OriginY int
	Columns, Rows    int
	Cells            [][]int // Linedef indexes per cell, row major from the origin
	NumLines         int     // Upper bound of the linedef indexes
}

// readBlockMap decodes a BLOCKMAP lump. When header is set, each block list starts with a
// 0 word that is skipped.
func readBlockMap(lump []byte, numLines int, header bool) (*BlockMap, error) {
	logger.Println("Reading Block Map ...")
	reader := bytes.NewReader(lump)

	// Read header
	var binHeader binBlockMapHeader
	if err := binary.Read(reader, binary.LittleEndian, &binHeader); err != nil {
		return nil, errors.Wrap(ErrCorruptLevel, "BLOCKMAP: short header")
	}
	if binHeader.Columns <= 0 || binHeader.Rows <= 0 {
		return nil, errors.Wrapf(ErrCorruptLevel, "BLOCKMAP: bad size %vx%v", binHeader.Columns, binHeader.Rows)
	}

	// Read offsets - counted in 16 bit words from the lump start
	offsets := make([]uint16, int(binHeader.Columns)*int(binHeader.Rows))
	if err := binary.Read(reader, binary.LittleEndian, offsets); err != nil {
		return nil, errors.Wrap(ErrCorruptLevel, "BLOCKMAP: short offset table")
	}

	blockMap := &BlockMap{
		OriginX:  int(binHeader.OriginX),
		OriginY:  int(binHeader.OriginY),
		Columns:  int(binHeader.Columns),
		Rows:     int(binHeader.Rows),
		Cells:    make([][]int, len(offsets)),
		NumLines: numLines,
	}

	word := func(pos int) (int, error) {
		if pos < 0 || pos+2 > len(lump) {
			return 0, errors.Wrapf(ErrCorruptLevel, "BLOCKMAP: list runs past end of lump at %d", pos)
		}
		return int(binary.LittleEndian.Uint16(lump[pos:])), nil
	}

	// Populate block lists
	for i, o := range offsets {
		pos := 2 * int(o)
		if header {
			first, err := word(pos)
			if err != nil {
				return nil, err
			}
			if first != 0 {
				return nil, errors.Wrapf(ErrCorruptLevel, "BLOCKMAP: cell %d list starts with %d, not 0", i, first)
			}
			pos += 2
		}
		var lineNums []int
		for {
			lineNum, err := word(pos)
			if err != nil {
				return nil, err
			}
			if lineNum == blockListEnd {
				break
			}
			if lineNum >= numLines {
				return nil, errors.Wrapf(ErrCorruptLevel, "BLOCKMAP: cell %d has linedef %d of %d", i, lineNum, numLines)
			}
			lineNums = append(lineNums, lineNum)
			pos += 2
		}
		blockMap.Cells[i] = lineNums
	}
	logger.Printf("Read %vx%v block map", blockMap.Columns, blockMap.Rows)
	return blockMap, nil
}

// BuildBlockMap grids the level's linedefs into cells, for levels shipped without a blockmap.
// The origin is the level's minimum corner. A line is listed in every cell its segment touches.
func BuildBlockMap(level *Level) *BlockMap {
	bounds := level.Bounds()
	blockMap := &BlockMap{
		OriginX:  bounds.Left,
		OriginY:  bounds.Bottom,
		Columns:  (bounds.Right-bounds.Left)/BlockSize + 1,
		Rows:     (bounds.Top-bounds.Bottom)/BlockSize + 1,
		NumLines: len(level.LineDefs),
	}
	blockMap.Cells = make([][]int, blockMap.Columns*blockMap.Rows)

	for i, line := range level.LineDefs {
		if line.V1 >= len(level.Vertexes) || line.V2 >= len(level.Vertexes) {
			continue
		}
		v1, v2 := level.Vertexes[line.V1], level.Vertexes[line.V2]
		col1, row1 := blockMap.cellOf(min(v1.X, v2.X), min(v1.Y, v2.Y))
		col2, row2 := blockMap.cellOf(max(v1.X, v2.X), max(v1.Y, v2.Y))
		for row := row1; row <= row2; row++ {
			for col := col1; col <= col2; col++ {
				x := blockMap.OriginX + col*BlockSize
				y := blockMap.OriginY + row*BlockSize
				if lineTouchesBox(v1, v2, x, y, x+BlockSize, y+BlockSize) {
					idx := row*blockMap.Columns + col
					blockMap.Cells[idx] = append(blockMap.Cells[idx], i)
				}
			}
		}
	}
	return blockMap
}

func (b *BlockMap) cellOf(x, y int) (int, int) {
	col := (x - b.OriginX) / BlockSize
	row := (y - b.OriginY) / BlockSize
	return max(0, min(col, b.Columns-1)), max(0, min(row, b.Rows-1))
}

// lineTouchesBox reports whether the segment touches the box. The caller already knows the
// segment's bounding box overlaps it, so the segment misses only if every corner lies strictly
// on one side of its line.
func lineTouchesBox(v1, v2 Vertex, left, bottom, right, top int) bool {
	dx, dy := v2.X-v1.X, v2.Y-v1.Y
	side := func(x, y int) int {
		c := (x-v1.X)*dy - (y-v1.Y)*dx
		switch {
		case c > 0:
			return 1
		case c < 0:
			return -1
		}
		return 0
	}
	s1 := side(left, bottom)
	s2 := side(left, top)
	s3 := side(right, top)
	s4 := side(right, bottom)
	return !(s1 == s2 && s2 == s3 && s3 == s4 && s1 != 0)
}

// Cell returns the linedefs listed in a cell, or nil outside the grid
func (b *BlockMap) Cell(col, row int) []int {
	if col < 0 || row < 0 || col >= b.Columns || row >= b.Rows {
		return nil
	}
	return b.Cells[row*b.Columns+col]
}

// CellAt returns the cell holding a world position
func (b *BlockMap) CellAt(x, y float64) (col, row int) {
	col = int(math.Floor((x - float64(b.OriginX)) / BlockSize))
	row = int(math.Floor((y - float64(b.OriginY)) / BlockSize))
	return col, row
}

// LinesAt returns the linedefs listed in the cell holding a world position
func (b *BlockMap) LinesAt(x, y float64) []int {
	return b.Cell(b.CellAt(x, y))
}

// LinesNear returns every linedef listed in the cells overlapping the square of half size
// radius around (x, y). Each line appears once, in cell order.
func (b *BlockMap) LinesNear(x, y, radius float64) []int {
	var seen LineSet
	seen.Reset(b.NumLines)
	return b.AppendLinesNear(nil, &seen, x, y, radius)
}

// AppendLinesNear is LinesNear that appends to dst and skips lines already in seen.
func (b *BlockMap) AppendLinesNear(dst []int, seen *LineSet, x, y, radius float64) []int {
	col1, row1 := b.CellAt(x-radius, y-radius)
	col2, row2 := b.CellAt(x+radius, y+radius)
	for row := row1; row <= row2; row++ {
		for col := col1; col <= col2; col++ {
			for _, line := range b.Cell(col, row) {
				if seen.Add(line) {
					dst = append(dst, line)
				}
			}
		}
	}
	return dst
}

// LineSet is a bitset of linedef indexes.
type LineSet struct {
	bits []uint64
}

// Reset empties the set and sizes it for n lines
func (s *LineSet) Reset(n int) {
	words := (n + 63) / 64
	if cap(s.bits) < words {
		s.bits = make([]uint64, words)
		return
	}
	s.bits = s.bits[:words]
	clear(s.bits)
}

// Add inserts a line and reports whether it was absent
func (s *LineSet) Add(line int) bool {
	word, bit := line/64, uint64(1)<<(line%64)
	if word >= len(s.bits) {
		grown := make([]uint64, word+1)
		copy(grown, s.bits)
		s.bits = grown
	}
	if s.bits[word]&bit != 0 {
		return false
	}
	s.bits[word] |= bit
	return true
}

// Has reports whether the line is in the set
func (s *LineSet) Has(line int) bool {
	word := line / 64
	return word < len(s.bits) && s.bits[word]&(1<<(line%64)) != 0
}
