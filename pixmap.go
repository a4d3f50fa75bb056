package relief

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
)

// Pixmap is the render target a Session presents: a premultiplied RGBA
// buffer, 4 bytes per pixel, rows packed without padding.
type Pixmap struct {
	width  int
	height int
	data   []uint8
}

// NewPixmap creates a transparent pixmap with the given dimensions.
func NewPixmap(width, height int) *Pixmap {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Pixmap{
		width:  width,
		height: height,
		data:   make([]uint8, width*height*4),
	}
}

// Width returns the width of the pixmap.
func (p *Pixmap) Width() int {
	return p.width
}

// Height returns the height of the pixmap.
func (p *Pixmap) Height() int {
	return p.height
}

// Data returns the raw premultiplied RGBA bytes.
func (p *Pixmap) Data() []uint8 {
	return p.data
}

// Clear fills the pixmap with an opaque color.
func (p *Pixmap) Clear(c RGB) {
	r, g, b := to8(c.R), to8(c.G), to8(c.B)
	for i := 0; i < len(p.data); i += 4 {
		p.data[i+0] = r
		p.data[i+1] = g
		p.data[i+2] = b
		p.data[i+3] = 255
	}
}

// setPremul stores a premultiplied color at byte offset i.
func (p *Pixmap) setPremul(i int, r, g, b, a float64) {
	a = clamp01(a)
	p.data[i+0] = to8(min(r, a))
	p.data[i+1] = to8(min(g, a))
	p.data[i+2] = to8(min(b, a))
	p.data[i+3] = to8(a)
}

// premulAt returns the premultiplied color at byte offset i in [0, 1].
func (p *Pixmap) premulAt(i int) (r, g, b, a float64) {
	return float64(p.data[i+0]) / 255,
		float64(p.data[i+1]) / 255,
		float64(p.data[i+2]) / 255,
		float64(p.data[i+3]) / 255
}

// ToImage copies the pixmap into an image.RGBA.
func (p *Pixmap) ToImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, p.width, p.height))
	copy(img.Pix, p.data)
	return img
}

// SavePNG writes the pixmap to a PNG file.
func (p *Pixmap) SavePNG(path string) error {
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("relief: create %s: %w", path, err)
	}
	if err := png.Encode(f, p.ToImage()); err != nil {
		_ = f.Close()
		return fmt.Errorf("relief: encode %s: %w", path, err)
	}
	return f.Close()
}

// release drops the pixel storage. The pixmap reports zero size afterwards.
func (p *Pixmap) release() {
	p.data = nil
	p.width = 0
	p.height = 0
}

// At implements the image.Image interface.
func (p *Pixmap) At(x, y int) color.Color {
	if x < 0 || x >= p.width || y < 0 || y >= p.height {
		return color.RGBA{}
	}
	i := (y*p.width + x) * 4
	return color.RGBA{R: p.data[i], G: p.data[i+1], B: p.data[i+2], A: p.data[i+3]}
}

// Bounds implements the image.Image interface.
func (p *Pixmap) Bounds() image.Rectangle {
	return image.Rect(0, 0, p.width, p.height)
}

// ColorModel implements the image.Image interface.
func (p *Pixmap) ColorModel() color.Model {
	return color.RGBAModel
}
