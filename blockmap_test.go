package wad

import (
	"bytes"
	"encoding/binary"
	"errors"
	"reflect"
	"testing"
)

// blockMapBytes encodes a blockmap lump; each list is written as given
func blockMapBytes(originX, originY, cols, rows int16, lists [][]uint16) []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, []int16{originX, originY, cols, rows})
	offset := 4 + len(lists)
	for _, l := range lists {
		binary.Write(buf, binary.LittleEndian, uint16(offset))
		offset += len(l)
	}
	for _, l := range lists {
		binary.Write(buf, binary.LittleEndian, l)
	}
	return buf.Bytes()
}

func TestReadBlockMap(t *testing.T) {
	lump := blockMapBytes(-64, 32, 2, 1, [][]uint16{
		{0, 0, 2, 0xffff},
		{0, 0xffff},
	})
	b, err := readBlockMap(lump, 3, true)
	if err != nil {
		t.Fatal(err)
	}
	if b.OriginX != -64 || b.OriginY != 32 || b.Columns != 2 || b.Rows != 1 {
		t.Errorf("header = %+v", b)
	}
	if got, want := b.Cells[0], []int{0, 2}; !reflect.DeepEqual(got, want) {
		t.Errorf("cell 0 = %v, want %v", got, want)
	}
	if len(b.Cells[1]) != 0 {
		t.Errorf("cell 1 = %v, want empty", b.Cells[1])
	}
}

func TestReadBlockMapWithoutListHeader(t *testing.T) {
	lump := blockMapBytes(0, 0, 1, 1, [][]uint16{{0, 1, 0xffff}})
	b, err := readBlockMap(lump, 2, false)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := b.Cells[0], []int{0, 1}; !reflect.DeepEqual(got, want) {
		t.Errorf("cell 0 = %v, want %v", got, want)
	}
}

func TestReadBlockMapErrors(t *testing.T) {
	tests := []struct {
		name string
		lump []byte
	}{
		{"short header", []byte{1, 2, 3}},
		{"bad line", blockMapBytes(0, 0, 1, 1, [][]uint16{{0, 5, 0xffff}})},
		{"missing start", blockMapBytes(0, 0, 1, 1, [][]uint16{{1, 0xffff}})},
		{"unterminated", blockMapBytes(0, 0, 1, 1, [][]uint16{{0, 1}})},
	}
	for _, tt := range tests {
		if _, err := readBlockMap(tt.lump, 2, true); !errors.Is(err, ErrCorruptLevel) {
			t.Errorf("%s: err = %v, want ErrCorruptLevel", tt.name, err)
		}
	}
}

func TestLineTouchesBox(t *testing.T) {
	tests := []struct {
		v1, v2 Vertex
		want   bool
	}{
		{Vertex{-10, 64}, Vertex{200, 64}, true},   // Horizontal through the middle
		{Vertex{-10, -10}, Vertex{200, 200}, true}, // Diagonal
		{Vertex{0, 200}, Vertex{200, 0}, true},     // Crosses the top right corner region
		{Vertex{0, 300}, Vertex{300, 0}, false},    // Passes above the box
		{Vertex{128, 128}, Vertex{200, 300}, true}, // Starts on a corner
	}
	for _, tt := range tests {
		if got := lineTouchesBox(tt.v1, tt.v2, 0, 0, 128, 128); got != tt.want {
			t.Errorf("lineTouchesBox(%v, %v) = %v, want %v", tt.v1, tt.v2, got, tt.want)
		}
	}
}

func TestBuildBlockMap(t *testing.T) {
	level := &Level{
		Vertexes: []Vertex{{0, 0}, {300, 0}, {0, 300}},
		LineDefs: []LineDef{
			{V1: 0, V2: 1, SideR: 0, SideL: NoSide}, // Along the bottom row
			{V1: 1, V2: 2, SideR: 0, SideL: NoSide}, // Diagonal
		},
	}
	b := BuildBlockMap(level)
	if b.Columns != 3 || b.Rows != 3 {
		t.Fatalf("size = %vx%v, want 3x3", b.Columns, b.Rows)
	}
	if got, want := b.Cell(0, 0), []int{0}; !reflect.DeepEqual(got, want) {
		t.Errorf("cell(0,0) = %v, want %v", got, want)
	}
	if got, want := b.Cell(2, 0), []int{0, 1}; !reflect.DeepEqual(got, want) {
		t.Errorf("cell(2,0) = %v, want %v", got, want)
	}
	if got := b.Cell(2, 2); len(got) != 0 {
		t.Errorf("cell(2,2) = %v, want empty", got)
	}
	if got := b.Cell(3, 0); got != nil {
		t.Errorf("cell(3,0) = %v, want nil", got)
	}
}

func TestLinesNear(t *testing.T) {
	b := &BlockMap{
		Columns:  2,
		Rows:     2,
		Cells:    [][]int{{0, 1}, {1, 2}, {3}, {1}},
		NumLines: 4,
	}
	if got, want := b.LinesNear(127, 127, 4), []int{0, 1, 2, 3}; !reflect.DeepEqual(got, want) {
		t.Errorf("LinesNear corner = %v, want %v", got, want)
	}
	if got, want := b.LinesNear(10, 10, 4), []int{0, 1}; !reflect.DeepEqual(got, want) {
		t.Errorf("LinesNear inside = %v, want %v", got, want)
	}
	if got := b.LinesNear(-500, -500, 4); len(got) != 0 {
		t.Errorf("LinesNear outside = %v, want empty", got)
	}
	if got, want := b.LinesAt(200, 10), []int{1, 2}; !reflect.DeepEqual(got, want) {
		t.Errorf("LinesAt = %v, want %v", got, want)
	}
}

func TestLineSet(t *testing.T) {
	var s LineSet
	s.Reset(10)
	if !s.Add(3) || s.Add(3) {
		t.Error("Add(3) twice should succeed once")
	}
	if !s.Add(200) || !s.Has(200) {
		t.Error("Add past the reset size should grow the set")
	}
	s.Reset(10)
	if s.Has(3) {
		t.Error("Reset should empty the set")
	}
}
