package wad

import (
	"bytes"
	"encoding/binary"
	"strings"

	"github.com/pkg/errors"
)

type binPatchImageHeader struct {
	Width, Height, LeftOffset, TopOffset int16
}

// Read a picture lump
func (w *WAD) GetPicture(name string) (*Picture, error) {
	name = strings.ToUpper(name)

	// If cache hit, return it
	if w.Pictures == nil {
		w.Pictures = make(map[string]*Picture)
	} else if p, ok := w.Pictures[name]; ok {
		return p, nil
	}

	lumpNum, ok := w.lumpNums[name]
	if !ok {
		return nil, errors.Errorf("%v lump not found", name)
	}
	lumpInfo := w.lumpInfos[lumpNum]
	lump, err := w.readLump(&lumpInfo)
	if err != nil {
		return nil, err
	}
	picture, err := decodePicture(name, lump, w.TransparentIndex)
	if err != nil {
		return nil, errors.Wrap(err, name)
	}

	// Cache picture
	w.Pictures[name] = picture
	return picture, nil
}

// decodePicture expands the column posts of a picture lump into a rectangle of palette indexes.
// Pixels not covered by any post are set to transparent.
func decodePicture(name string, lump []byte, transparent byte) (*Picture, error) {
	// Read patch lump header
	reader := bytes.NewReader(lump)
	var header binPatchImageHeader
	if err := binary.Read(reader, binary.LittleEndian, &header); err != nil {
		return nil, err
	}
	if header.Width <= 0 || header.Height <= 0 {
		return nil, errors.Errorf("bad picture size %vx%v", header.Width, header.Height)
	}

	// Initialise rectangular picture space to transparent
	columns := make([]Column, header.Width)
	for i := range columns {
		columns[i] = bytes.Repeat([]byte{transparent}, int(header.Height))
	}

	// Read column offsets
	offsets := make([]int32, header.Width)
	if err := binary.Read(reader, binary.LittleEndian, offsets); err != nil {
		return nil, err
	}

	// For each column offset, expand out the posts into columns
	for columnIndex, o := range offsets {
		offset := int(o)
		for {
			if offset < 0 || offset >= len(lump) {
				return nil, errors.Errorf("column %v runs past end of lump", columnIndex)
			}
			topDelta := int(lump[offset])
			offset += 1
			if topDelta == 255 {
				break
			}
			if offset+2 > len(lump) {
				return nil, errors.Errorf("column %v runs past end of lump", columnIndex)
			}
			numPixels := int(lump[offset])
			offset += 1
			offset += 1 // Padding
			if offset+numPixels+1 > len(lump) {
				return nil, errors.Errorf("post in column %v runs past end of lump", columnIndex)
			}
			for i := 0; i < numPixels; i++ {
				if y := topDelta + i; y < int(header.Height) {
					columns[columnIndex][y] = lump[offset]
				}
				offset += 1
			}
			offset += 1 // Padding
		}
	}

	return &Picture{
		Name:       name,
		Width:      int(header.Width),
		Height:     int(header.Height),
		LeftOffset: int(header.LeftOffset),
		TopOffset:  int(header.TopOffset),
		Columns:    columns,
	}, nil
}
