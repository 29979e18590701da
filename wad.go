// Package wad provides access to Doom's data archives also known as WAD files, and decodes
// their levels into flat, index-linked arrays ready for rendering and collision.
// The file format is documented in The Unofficial DOOM Specs:
// http://www.gamers.org/dhs/helpdocs/dmsp1666.html

package wad

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// WAD is a struct that represents Doom's data archive that contains graphics, sounds, and level
// data. The data is organized as named lumps.
type WAD struct {
	header           *Header
	file             io.ReadSeeker
	closer           io.Closer
	lumpInfos        []LumpInfo
	lumpNums         map[string]int
	levels           map[string]int
	patchNames       []string
	Palettes         *Palettes
	ColorMaps        *ColorMaps
	Pictures         map[string]*Picture
	Textures         map[string]*Texture
	TexturesList     []*Texture
	Flats            map[string]*Flat
	FlatsList        []*Flat
	TransparentIndex byte

	// BlocklistHeader is set when every blockmap list starts with a 0 word that is not a
	// linedef reference, as written by the vanilla node builders.
	BlocklistHeader bool
}

type binHeader struct {
	Magic        [4]byte
	NumLumps     int32
	InfoTableOfs int32
}

type Header struct {
	NumLumps     int
	InfoTableOfs int
}

type binLumpInfo struct {
	Filepos int32
	Size    int32
	Name    String8
}

type LumpInfo struct {
	Name    string
	Filepos int
	Size    int
}

type binTextureHeader struct {
	TextureName String8
	Masked      int32
	Width       int16
	Height      int16
	Unused      int32 // ColumnDirectory
	NumPatches  int16
}

type Texture struct {
	Name          string   // Texture name and index into textures map
	Index         int      // Index into TexturesList
	IsMasked      bool     // Texture has transparent gaps
	Width, Height int      // total width and height of the map texture
	Patches       []Patch  // List of component Patches
	Picture       *Picture // Expanded Picture for convenience
}

type binPatch struct {
	XOffset      int16
	YOffset      int16
	PatchNameIdx int16
	Unused1      int16 // StepDir
	Unused2      int16 // ColorMap
}

type Patch struct {
	XOffset int // horizontal offset of patch relative to upper-left of texture
	YOffset int // vertical offset of patch relative to upper-left of texture
	Picture *Picture
}

// The doom picture (image) format. Sometimes called a patch, but this code considers a patch to
// be a parent entity that makes up part of a texture, and points to a picture
type Picture struct {
	Name                  string
	Width, Height         int
	LeftOffset, TopOffset int
	Columns               []Column
}

// Rather than implement column posts, just set column to transparent and fill in post data.
type Column []byte

// A flat is an image that is drawn on the floors and ceilings of sectors. Each flat is a named
// lump of 4096 bytes representing a 64x64 square, always drawn aligned to a fixed world grid.
type Flat struct {
	Name  string // Flat name and index into flats map
	Index int    // Index into flats list
	Data  []byte
}

const FlatWidth, FlatHeight = 64, 64

type RGB struct {
	Red, Green, Blue uint8
}

// PLAYPAL lump. A set of color palettes used to set the main graphics colors.
type Palettes [14]Palette

// Each palette in PLAYPAL contains 256 three-ubyte colors totaling 768 bytes (RGB).
type Palette [256]RGB

// The COLORMAP lump contains 34 color maps of indices into the PLAYPAL palette used for
// sector lighting and distance fading.
type ColorMaps [34]ColorMap

// Each color map is a table 256 bytes long, indexed by a pixel value.
type ColorMap [256]byte

// WAD eight-character string type. Null-terminated for short strings.
type String8 [8]byte

// String converts String8 to string
func (s String8) String() string {
	i := bytes.IndexByte(s[:], 0)
	if i == -1 {
		i = len(s)
	}
	return strings.ToUpper(string(s[0:i]))
}

// NewWAD opens a WAD file and reads its metadata and graphics to memory. The returned WAD
// keeps the file open so levels can be read later; call Close when done.
func NewWAD(filename string) (*WAD, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, "open wad")
	}
	w, err := Open(file)
	if err != nil {
		file.Close()
		return nil, errors.Wrapf(err, "read %s", filename)
	}
	w.closer = file
	return w, nil
}

// Open reads WAD metadata and graphics from an already open archive.
func Open(r io.ReadSeeker) (*WAD, error) {
	logger.Println("Start reading WAD")
	wad := &WAD{file: r, BlocklistHeader: true, TransparentIndex: 255}

	// Read header
	var binHeader binHeader
	if err := binary.Read(r, binary.LittleEndian, &binHeader); err != nil {
		return nil, errors.Wrap(err, "header")
	}
	if magic := string(binHeader.Magic[:]); magic != "IWAD" && magic != "PWAD" {
		return nil, errors.Errorf("bad magic: %s", binHeader.Magic)
	}
	wad.header = &Header{int(binHeader.NumLumps), int(binHeader.InfoTableOfs)}

	// Read info tables
	if err := wad.readInfoTables(); err != nil {
		return nil, errors.Wrap(err, "info table")
	}

	// Read PLAYPAL
	playpal, err := wad.readPlaypal()
	if err != nil {
		return nil, errors.Wrap(err, "PLAYPAL")
	}
	wad.Palettes = playpal

	// Read COLORMAP
	colorMaps, err := wad.readColorMaps()
	if err != nil {
		return nil, errors.Wrap(err, "COLORMAP")
	}
	wad.ColorMaps = colorMaps

	// Read patch names
	wad.patchNames, err = wad.readPatchNames()
	if err != nil {
		return nil, errors.Wrap(err, "PNAMES")
	}

	// Read patchPics into Pictures map
	wad.readPatchPics()

	// Read map textures
	// Must be called after readPatchNames and readPatchPics
	wad.Textures, wad.TexturesList, err = wad.readTextures()
	if err != nil {
		return nil, errors.Wrap(err, "textures")
	}

	// Read flat lumps
	wad.Flats, wad.FlatsList, err = wad.readFlats()
	if err != nil {
		return nil, errors.Wrap(err, "flats")
	}

	return wad, nil
}

// Close releases the underlying file, if the WAD was opened by name.
func (w *WAD) Close() error {
	if w.closer == nil {
		return nil
	}
	return w.closer.Close()
}

func (w *WAD) readInfoTables() error {
	if err := w.seek(int64(w.header.InfoTableOfs)); err != nil {
		return err
	}
	lumpNums := map[string]int{}
	levels := map[string]int{}
	lumpInfos := make([]LumpInfo, w.header.NumLumps)
	for i := 0; i < w.header.NumLumps; i++ {
		var binInfo binLumpInfo
		if err := binary.Read(w.file, binary.LittleEndian, &binInfo); err != nil {
			return err
		}
		lumpInfo := LumpInfo{binInfo.Name.String(), int(binInfo.Filepos), int(binInfo.Size)}
		if lumpInfo.Name == "THINGS" && i > 0 {
			levels[lumpInfos[i-1].Name] = i - 1
		}
		lumpNums[lumpInfo.Name] = i
		lumpInfos[i] = lumpInfo
	}
	w.levels = levels
	w.lumpNums = lumpNums
	w.lumpInfos = lumpInfos
	return nil
}

// readPlaypal
func (w *WAD) readPlaypal() (*Palettes, error) {
	logger.Println("Loading PLAYPAL ...")
	if err := w.seekLumpName("PLAYPAL"); err != nil {
		return nil, err
	}
	playpal := Palettes{}
	if err := binary.Read(w.file, binary.LittleEndian, &playpal); err != nil {
		return nil, err
	}
	return &playpal, nil
}

// readColorMaps
func (w *WAD) readColorMaps() (*ColorMaps, error) {
	logger.Println("Loading COLORMAP ...")
	if err := w.seekLumpName("COLORMAP"); err != nil {
		return nil, err
	}
	colormaps := ColorMaps{}
	if err := binary.Read(w.file, binary.LittleEndian, &colormaps); err != nil {
		return nil, err
	}
	return &colormaps, nil
}

// readPatchNames reads the PNAMES lump to populate a slice of patch names
func (w *WAD) readPatchNames() ([]string, error) {
	if _, ok := w.lumpNums["PNAMES"]; !ok {
		logger.Println("No PNAMES lump, wall textures disabled")
		return nil, nil
	}
	logger.Printf("Loading patch names ...")
	if err := w.seekLumpName("PNAMES"); err != nil {
		return nil, err
	}

	// Read PNAMES header
	var count uint32
	if err := binary.Read(w.file, binary.LittleEndian, &count); err != nil {
		return nil, err
	}

	// Read and translate PNAMES body
	pnames := make([]String8, count)
	patchNames := make([]string, count)
	if err := binary.Read(w.file, binary.LittleEndian, pnames); err != nil {
		return nil, err
	}
	for i, p := range pnames {
		patchNames[i] = p.String()
	}
	return patchNames, nil
}

func (w *WAD) readPatchPics() {
	logger.Println("Loading patch pictures ...")
	for _, pname := range w.patchNames {
		if _, err := w.GetPicture(pname); err != nil { // Also caches picture
			logger.WithError(err).Warnf("Skipping patch %v", pname)
		}
	}
	logger.Printf("Loaded %v patch pictures", len(w.Pictures))
}

func (w *WAD) readTextures() (map[string]*Texture, []*Texture, error) {
	logger.Println("Loading textures ...")

	textures := make(map[string]*Texture)
	texturesList := make([]*Texture, 0)
	for i := 1; i < 10; i++ {
		name := fmt.Sprintf("TEXTURE%v", i)
		lumpNum, ok := w.lumpNums[name]
		if !ok {
			continue
		}
		lumpInfo := w.lumpInfos[lumpNum]
		logger.Printf("Loading %v ...", name)
		lump, err := w.readLump(&lumpInfo)
		if err != nil {
			return nil, nil, errors.Wrap(err, name)
		}
		reader := bytes.NewReader(lump)

		// Read header
		var count uint32
		if err := binary.Read(reader, binary.LittleEndian, &count); err != nil {
			return nil, nil, errors.Wrap(err, name)
		}
		offsets := make([]int32, count)
		if err := binary.Read(reader, binary.LittleEndian, offsets); err != nil {
			return nil, nil, errors.Wrap(err, name)
		}

		// For each offset...
		for _, offset := range offsets {
			if offset < 0 || int(offset) >= len(lump) {
				return nil, nil, errors.Errorf("%s: texture offset %d out of range", name, offset)
			}
			reader := bytes.NewReader(lump[offset:])

			var binHeader binTextureHeader
			if err := binary.Read(reader, binary.LittleEndian, &binHeader); err != nil {
				return nil, nil, errors.Wrap(err, name)
			}
			texture := &Texture{
				Name:     binHeader.TextureName.String(),
				IsMasked: binHeader.Masked != 0,
				Width:    int(binHeader.Width),
				Height:   int(binHeader.Height),
			}
			if texture.Width <= 0 || texture.Height <= 0 {
				logger.Warnf("Skipping empty texture %v", texture.Name)
				continue
			}

			// Add patches to texture
			binPatches := make([]binPatch, binHeader.NumPatches)
			if err := binary.Read(reader, binary.LittleEndian, binPatches); err != nil {
				return nil, nil, errors.Wrapf(err, "%s: %s patches", name, texture.Name)
			}
			for _, p := range binPatches {
				if int(p.PatchNameIdx) < 0 || int(p.PatchNameIdx) >= len(w.patchNames) {
					logger.Warnf("%v: bad patch index %v", texture.Name, p.PatchNameIdx)
					continue
				}
				pic := w.Pictures[w.patchNames[p.PatchNameIdx]]
				if pic == nil {
					continue
				}
				texture.Patches = append(texture.Patches, Patch{
					XOffset: int(p.XOffset),
					YOffset: int(p.YOffset),
					Picture: pic,
				})
			}
			texture.Picture = texture.compose(w.TransparentIndex)

			texture.Index = len(texturesList)
			textures[texture.Name] = texture
			texturesList = append(texturesList, texture)
		}
	}
	logger.Printf("Loaded %v textures", len(textures))

	return textures, texturesList, nil
}

// compose expands the texture's patches into one rectangular picture
func (t *Texture) compose(transparent byte) *Picture {
	picture := &Picture{
		Name:    t.Name,
		Width:   t.Width,
		Height:  t.Height,
		Columns: make([]Column, t.Width),
	}
	for i := range picture.Columns {
		picture.Columns[i] = bytes.Repeat([]byte{transparent}, t.Height)
	}
	for _, p := range t.Patches {
		for i, c := range p.Picture.Columns {
			x := p.XOffset + i
			if x < 0 || x >= len(picture.Columns) {
				continue
			}
			for j, b := range c {
				y := p.YOffset + j
				if y < 0 || y >= t.Height || b == transparent {
					continue
				}
				picture.Columns[x][y] = b
			}
		}
	}
	return picture
}

// readFlats
func (w *WAD) readFlats() (map[string]*Flat, []*Flat, error) {
	logger.Println("Loading flats ...")

	flats := make(map[string]*Flat)
	flatsList := make([]*Flat, 0)
	startLump, ok := w.lumpNums["F_START"]
	if !ok {
		startLump, ok = w.lumpNums["FF_START"]
	}
	if !ok {
		logger.Println("No F_START marker, flats disabled")
		return flats, flatsList, nil
	}
	endLump, ok := w.lumpNums["F_END"]
	if !ok {
		endLump, ok = w.lumpNums["FF_END"]
	}
	if !ok {
		return nil, nil, errors.New("F_END not found")
	}

	// For each flat lump
	for i := startLump + 1; i < endLump; i++ {
		lumpInfo := w.lumpInfos[i]

		// Skip marker lumps
		if lumpInfo.Size == 0 {
			continue
		}
		if lumpInfo.Size < FlatWidth*FlatHeight {
			logger.Warnf("Skipping short flat %v", lumpInfo.Name)
			continue
		}

		// Read lump and add to slice
		data, err := w.readLump(&lumpInfo)
		if err != nil {
			return nil, nil, errors.Wrap(err, lumpInfo.Name)
		}
		flat := &Flat{Name: lumpInfo.Name, Index: len(flatsList), Data: data[:FlatWidth*FlatHeight]}
		flats[lumpInfo.Name] = flat
		flatsList = append(flatsList, flat)
	}
	logger.Printf("Loaded %v flats", len(flats))
	return flats, flatsList, nil
}

// LevelNames returns a slice of level names found in the WAD archive.
func (w *WAD) LevelNames() []string {
	result := make([]string, 0, len(w.levels))
	for name := range w.levels {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

// seekLumpName
func (w *WAD) seekLumpName(name string) error {
	lumpNum, ok := w.lumpNums[name]
	if !ok {
		return errors.Errorf("lump %s not found", name)
	}
	lumpInfo := w.lumpInfos[lumpNum]
	return w.seek(int64(lumpInfo.Filepos))
}

// seek
func (w *WAD) seek(offset int64) error {
	off, err := w.file.Seek(offset, io.SeekStart)
	if err != nil {
		return err
	}
	if off != offset {
		return errors.New("seek failed")
	}
	return nil
}

// Read entire lump
func (w *WAD) readLump(lumpInfo *LumpInfo) ([]byte, error) {
	if err := w.seek(int64(lumpInfo.Filepos)); err != nil {
		return nil, err
	}
	lump := make([]byte, lumpInfo.Size)
	if _, err := io.ReadFull(w.file, lump); err != nil {
		return nil, errors.Wrapf(err, "truncated lump %s", lumpInfo.Name)
	}
	return lump, nil
}
