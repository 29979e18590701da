package render

import (
	"hash/fnv"
	"image"
	"image/color"
	"strings"

	wad "github.com/stuarthighley/wadview"
)

// Texture is a decoded image. The renderer wraps coordinates into [0,w)x[0,h) before calling
// Get.
type Texture interface {
	Size() (width, height int)
	Get(x, y int) color.RGBA
}

// TextureSet looks up wall textures and flats by name. Both return nil when the name is
// unknown.
type TextureSet interface {
	Wall(name string) Texture
	Flat(name string) Texture
}

// Framebuffer is the surface a frame is drawn into. *image.RGBA satisfies it.
type Framebuffer interface {
	Bounds() image.Rectangle
	SetRGBA(x, y int, c color.RGBA)
}

// Textures is a TextureSet over decoded WAD images. Names are matched case-insensitively.
type Textures struct {
	Walls map[string]*wad.Image
	Flats map[string]*wad.Image
}

// LoadTextures converts every wall texture and flat in the WAD to true colour
func LoadTextures(w *wad.WAD) *Textures {
	return &Textures{Walls: w.WallImages(), Flats: w.FlatImages()}
}

func (t *Textures) Wall(name string) Texture {
	if img, ok := t.Walls[strings.ToUpper(name)]; ok && img != nil {
		return img
	}
	return nil
}

func (t *Textures) Flat(name string) Texture {
	if img, ok := t.Flats[strings.ToUpper(name)]; ok && img != nil {
		return img
	}
	return nil
}

// solid is a one pixel texture used when a named texture is missing
type solid color.RGBA

func (s solid) Size() (int, int)        { return 1, 1 }
func (s solid) Get(x, y int) color.RGBA { return color.RGBA(s) }

// fallbackColor returns a stable colour for a texture name. The no-texture sentinel is grey.
func fallbackColor(name string) color.RGBA {
	if name == "" || name == wad.NoTexture {
		return color.RGBA{R: 128, G: 128, B: 128, A: 255}
	}
	h := fnv.New32a()
	h.Write([]byte(strings.ToUpper(name)))
	sum := h.Sum32()
	channel := func(shift uint) uint8 {
		return max(uint8(sum>>shift), 32)
	}
	return color.RGBA{R: channel(0), G: channel(8), B: channel(16), A: 255}
}

// shade scales a colour by a light level in [0,1]
func shade(c color.RGBA, light float32) color.RGBA {
	if light >= 1 {
		return c
	}
	return color.RGBA{
		R: uint8(float32(c.R) * light),
		G: uint8(float32(c.G) * light),
		B: uint8(float32(c.B) * light),
		A: c.A,
	}
}

// wrap maps a texel coordinate into [0,size)
func wrap(v, size int) int {
	v %= size
	if v < 0 {
		v += size
	}
	return v
}
