// Package bakegen renders synthetic relief photographs: a height field
// lit from six directions with Lambert shading, plus a plaster grain
// image. It stands in for real photographs in demos and tests.
package bakegen

import (
	"image"
	"image/color"
	"math"
	"math/rand/v2"

	"github.com/themisreit/relief/internal/blend"
)

// Options control the generated images.
type Options struct {
	Width  int
	Height int

	// Seed makes the bumps and the plaster grain reproducible.
	Seed uint64

	// Bumps is the number of random bumps added around the central dome.
	Bumps int

	// StartAngle and Clockwise place the six lights the same way the
	// compositor's bake layout does.
	StartAngle float64
	Clockwise  bool

	// Elevation is the light's angle above the surface plane, radians.
	Elevation float64

	// Depth scales the height field before normals are taken.
	Depth float64

	// Albedo is the linear surface reflectance.
	Albedo float64
}

// DefaultOptions returns a 512×512 setup with a low, raking light.
func DefaultOptions() Options {
	return Options{
		Width:     512,
		Height:    512,
		Seed:      1,
		Bumps:     12,
		Elevation: 0.5,
		Depth:     40,
		Albedo:    0.8,
	}
}

// LightAngle returns the azimuth of light i (0-based).
func (o Options) LightAngle(i int) float64 {
	step := math.Pi / 3
	if o.Clockwise {
		step = -step
	}
	return o.StartAngle + float64(i)*step
}

// HeightField is a w×h grid of heights in [0, 1], row-major, y down.
type HeightField struct {
	W, H int
	Z    []float64
}

// At returns the height at (x, y), clamped to the edge.
func (f *HeightField) At(x, y int) float64 {
	x = min(max(x, 0), f.W-1)
	y = min(max(y, 0), f.H-1)
	return f.Z[y*f.W+x]
}

type bump struct {
	cx, cy, r, h float64
}

// NewHeightField builds the relief: a central dome plus o.Bumps seeded
// smaller bumps, each a raised cosine.
func NewHeightField(o Options) *HeightField {
	w, h := max(o.Width, 1), max(o.Height, 1)
	f := &HeightField{W: w, H: h, Z: make([]float64, w*h)}

	side := float64(min(w, h))
	bumps := []bump{{cx: float64(w) / 2, cy: float64(h) / 2, r: side * 0.3, h: 1}}
	rng := rand.New(rand.NewPCG(o.Seed, 0x9e3779b97f4a7c15))
	for i := 0; i < o.Bumps; i++ {
		bumps = append(bumps, bump{
			cx: rng.Float64() * float64(w),
			cy: rng.Float64() * float64(h),
			r:  side * (0.04 + rng.Float64()*0.1),
			h:  0.2 + rng.Float64()*0.5,
		})
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			z := 0.0
			for _, b := range bumps {
				d := math.Hypot(float64(x)+0.5-b.cx, float64(y)+0.5-b.cy) / b.r
				if d < 1 {
					z += b.h * 0.5 * (1 + math.Cos(math.Pi*d))
				}
			}
			f.Z[y*w+x] = min(z, 1)
		}
	}
	return f
}

// Normal returns the unit surface normal at (x, y) in frame space
// (x right, y up, z toward the viewer).
func (f *HeightField) Normal(x, y int, depth float64) (nx, ny, nz float64) {
	dzdx := (f.At(x+1, y) - f.At(x-1, y)) / 2 * depth
	// Image rows grow downward; frame y grows upward.
	dzdy := (f.At(x, y-1) - f.At(x, y+1)) / 2 * depth
	nx, ny, nz = -dzdx, -dzdy, 1
	l := math.Sqrt(nx*nx + ny*ny + nz*nz)
	return nx / l, ny / l, nz / l
}

// Bake shades f with a single light at azimuth az and returns an opaque
// sRGB image.
func Bake(f *HeightField, o Options, az float64) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, f.W, f.H))
	ce := math.Cos(o.Elevation)
	lx, ly, lz := ce*math.Cos(az), ce*math.Sin(az), math.Sin(o.Elevation)

	for y := 0; y < f.H; y++ {
		for x := 0; x < f.W; x++ {
			nx, ny, nz := f.Normal(x, y, o.Depth)
			lambert := max(0, nx*lx+ny*ly+nz*lz)
			v := quantize(blend.LinearToSRGB(blend.Clamp01(o.Albedo * lambert)))
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

// Bakes renders the six directional images in layout order.
func Bakes(o Options) [6]*image.NRGBA {
	f := NewHeightField(o)
	var out [6]*image.NRGBA
	for i := range out {
		out[i] = Bake(f, o, o.LightAngle(i))
	}
	return out
}

// Plaster returns a w×h grain image centred on mid-grey, so it reads as
// neutral under an overlay blend. The grain tiles seamlessly.
func Plaster(w, h int, seed uint64) *image.NRGBA {
	w, h = max(w, 1), max(h, 1)
	const cell = 8
	gw, gh := max(w/cell, 1), max(h/cell, 1)

	rng := rand.New(rand.NewPCG(seed, 0xda3e39cb94b95bdb))
	grid := make([]float64, gw*gh)
	for i := range grid {
		grid[i] = rng.Float64()*2 - 1
	}
	lattice := func(x, y int) float64 {
		x = ((x % gw) + gw) % gw
		y = ((y % gh) + gh) % gh
		return grid[y*gw+x]
	}

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			fx := float64(x) / float64(w) * float64(gw)
			fy := float64(y) / float64(h) * float64(gh)
			ix, iy := int(fx), int(fy)
			tx := blend.Smoothstep(0, 1, fx-float64(ix))
			ty := blend.Smoothstep(0, 1, fy-float64(iy))
			top := blend.Mix(lattice(ix, iy), lattice(ix+1, iy), tx)
			bot := blend.Mix(lattice(ix, iy+1), lattice(ix+1, iy+1), tx)
			smooth := blend.Mix(top, bot, ty)
			fine := rng.Float64()*2 - 1

			v := quantize(0.5 + 0.18*smooth + 0.06*fine)
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

func quantize(v float64) uint8 {
	return uint8(math.Round(blend.Clamp01(v) * 255))
}
