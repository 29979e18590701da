package wad

import (
	"image"
	"image/color"
)

// Image is a decoded true colour texture. Reads wrap in both directions.
type Image struct {
	Name          string
	Width, Height int
	Pix           []color.RGBA // Row major
}

// NewImage returns a black image
func NewImage(name string, width, height int) *Image {
	pix := make([]color.RGBA, width*height)
	for i := range pix {
		pix[i] = color.RGBA{A: 255}
	}
	return &Image{Name: name, Width: width, Height: height, Pix: pix}
}

// Size returns the image width and height
func (m *Image) Size() (int, int) {
	return m.Width, m.Height
}

// Get returns the pixel at (x, y), wrapping coordinates outside the image
func (m *Image) Get(x, y int) color.RGBA {
	x %= m.Width
	if x < 0 {
		x += m.Width
	}
	y %= m.Height
	if y < 0 {
		y += m.Height
	}
	return m.Pix[y*m.Width+x]
}

// Set stores a pixel. Coordinates must be inside the image.
func (m *Image) Set(x, y int, c color.RGBA) {
	m.Pix[y*m.Width+x] = c
}

// RGBA copies the image into a standard library image, e.g. for PNG encoding
func (m *Image) RGBA() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, m.Width, m.Height))
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			img.SetRGBA(x, y, m.Pix[y*m.Width+x])
		}
	}
	return img
}

// Color returns the true colour of a palette index through palette 0 and colormap 0
func (w *WAD) Color(index byte) color.RGBA {
	if w.ColorMaps != nil {
		index = w.ColorMaps[0][index]
	}
	rgb := w.Palettes[0][index]
	return color.RGBA{R: rgb.Red, G: rgb.Green, B: rgb.Blue, A: 255}
}

// PictureImage converts a picture to true colour. Transparent pixels become black.
func (w *WAD) PictureImage(p *Picture) *Image {
	img := NewImage(p.Name, p.Width, p.Height)
	for x, column := range p.Columns {
		for y, index := range column {
			if index == w.TransparentIndex {
				continue
			}
			img.Set(x, y, w.Color(index))
		}
	}
	return img
}

// FlatImage converts a flat to true colour
func (w *WAD) FlatImage(f *Flat) *Image {
	img := NewImage(f.Name, FlatWidth, FlatHeight)
	for i, index := range f.Data {
		img.Pix[i] = w.Color(index)
	}
	return img
}

// WallImages converts every composite texture to true colour, keyed by name
func (w *WAD) WallImages() map[string]*Image {
	images := make(map[string]*Image, len(w.TexturesList))
	for _, t := range w.TexturesList {
		images[t.Name] = w.PictureImage(t.Picture)
	}
	logger.Printf("Converted %v wall textures", len(images))
	return images
}

// FlatImages converts every flat to true colour, keyed by name
func (w *WAD) FlatImages() map[string]*Image {
	images := make(map[string]*Image, len(w.FlatsList))
	for _, f := range w.FlatsList {
		images[f.Name] = w.FlatImage(f)
	}
	logger.Printf("Converted %v flats", len(images))
	return images
}
