// Package texture holds the CPU-side copies of relief's source images and
// the samplers the compositor reads them with.
package texture

import (
	"image"
	"image/color"
	"math"

	xdraw "golang.org/x/image/draw"
)

// Texture is a straight-alpha RGBA image with float32 channels in [0, 1].
type Texture struct {
	width  int
	height int
	pix    []float32
}

// New creates a transparent texture.
func New(width, height int) *Texture {
	width, height = max(width, 0), max(height, 0)
	return &Texture{
		width:  width,
		height: height,
		pix:    make([]float32, width*height*4),
	}
}

// FromImage converts img into a texture whose sides do not exceed maxDim.
// Larger images are downsampled with Catmull-Rom, keeping their aspect.
// maxDim <= 0 disables the limit.
func FromImage(img image.Image, maxDim int) *Texture {
	b := img.Bounds()
	w, h := FitWithin(b.Dx(), b.Dy(), maxDim)

	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	if w == b.Dx() && h == b.Dy() {
		xdraw.Draw(dst, dst.Bounds(), img, b.Min, xdraw.Src)
	} else {
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	}

	t := New(w, h)
	for i := 0; i < len(dst.Pix); i++ {
		t.pix[i] = float32(dst.Pix[i]) / 255
	}
	return t
}

// FitWithin scales w×h down uniformly until both sides are <= maxDim.
func FitWithin(w, h, maxDim int) (int, int) {
	if maxDim <= 0 || (w <= maxDim && h <= maxDim) {
		return w, h
	}
	s := float64(maxDim) / float64(max(w, h))
	fw := int(math.Floor(float64(w) * s))
	fh := int(math.Floor(float64(h) * s))
	return min(max(fw, 1), maxDim), min(max(fh, 1), maxDim)
}

// Fit downsamples the texture in place until both sides are <= maxDim.
// It reports whether the texture was resampled.
func (t *Texture) Fit(maxDim int) bool {
	if t.Empty() || maxDim <= 0 || (t.width <= maxDim && t.height <= maxDim) {
		return false
	}
	*t = *FromImage(t.ToNRGBA(), maxDim)
	return true
}

// Width returns the texture width.
func (t *Texture) Width() int { return t.width }

// Height returns the texture height.
func (t *Texture) Height() int { return t.height }

// Aspect returns width/height, or 1 for an empty texture.
func (t *Texture) Aspect() float64 {
	if t.width == 0 || t.height == 0 {
		return 1
	}
	return float64(t.width) / float64(t.height)
}

// Empty reports whether the texture holds no pixels (never loaded or released).
func (t *Texture) Empty() bool {
	return t == nil || len(t.pix) == 0
}

// Set stores a straight-alpha color. Out-of-bounds writes are ignored.
func (t *Texture) Set(x, y int, r, g, b, a float32) {
	if x < 0 || x >= t.width || y < 0 || y >= t.height {
		return
	}
	i := (y*t.width + x) * 4
	t.pix[i+0] = r
	t.pix[i+1] = g
	t.pix[i+2] = b
	t.pix[i+3] = a
}

// At returns the texel at (x, y), clamped to the edge.
func (t *Texture) At(x, y int) (r, g, b, a float64) {
	x = clamp(x, 0, t.width-1)
	y = clamp(y, 0, t.height-1)
	i := (y*t.width + x) * 4
	return float64(t.pix[i]), float64(t.pix[i+1]), float64(t.pix[i+2]), float64(t.pix[i+3])
}

// ToNRGBA converts the texture back to a standard image.
func (t *Texture) ToNRGBA() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, t.width, t.height))
	for i, v := range t.pix {
		img.Pix[i] = uint8(math.Round(float64(min(max(v, 0), 1)) * 255))
	}
	return img
}

// At8 returns the texel at (x, y) as an 8-bit color.
func (t *Texture) At8(x, y int) color.NRGBA {
	r, g, b, a := t.At(x, y)
	q := func(v float64) uint8 { return uint8(math.Round(math.Min(math.Max(v, 0), 1) * 255)) }
	return color.NRGBA{R: q(r), G: q(g), B: q(b), A: q(a)}
}

// Release drops the pixel storage.
func (t *Texture) Release() {
	t.pix = nil
	t.width = 0
	t.height = 0
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
