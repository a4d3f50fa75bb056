package relief

import (
	"math"

	"github.com/themisreit/relief/internal/blend"
	"github.com/themisreit/relief/internal/cache"
	"github.com/themisreit/relief/internal/texture"
)

// bakeSpacing is the angular distance between neighbouring bakes.
const bakeSpacing = 2 * math.Pi / BakeCount

// uniformRadius is the direction length below which the blend fades
// toward the plain average of all bakes.
const uniformRadius = 0.25

// maskCacheSize bounds the edge-fade masks kept per compositor.
const maskCacheSize = 2

// BakeLayout maps bake indices to the light azimuth they were shot with.
// Bake i was lit from StartAngle + i·60°, turning counter-clockwise
// (or clockwise when Clockwise is set). Angles are radians, x right, y up.
type BakeLayout struct {
	StartAngle float64
	Clockwise  bool
}

// Angle returns the canonical light azimuth of bake i.
func (l BakeLayout) Angle(i int) float64 {
	step := bakeSpacing
	if l.Clockwise {
		step = -step
	}
	return l.StartAngle + float64(i)*step
}

// Compositor turns the six bakes, the plaster image and a light
// direction into a base frame. It reads the image set but never
// modifies it.
type Compositor struct {
	images *SixImageSet
	layout BakeLayout
	masks  *cache.Cache[maskKey, []float32]
}

// maskKey identifies an edge-fade mask.
type maskKey struct {
	w, h  int
	width float64
}

// NewCompositor creates a compositor over images. A nil set renders the
// ambient-only fallback.
func NewCompositor(images *SixImageSet, layout BakeLayout) *Compositor {
	return &Compositor{
		images: images,
		layout: layout,
		masks:  cache.New[maskKey, []float32](maskCacheSize),
	}
}

// Layout returns the bake layout.
func (c *Compositor) Layout() BakeLayout {
	return c.layout
}

// Release detaches the image set and drops the cached masks. Later
// renders produce the ambient-only fallback.
func (c *Compositor) Release() {
	c.images = nil
	c.masks.Clear()
}

// BakeWeights returns the per-bake blend weights for dir. Weights of
// missing bakes are zero and the rest sum to 1. With no bakes loaded
// every weight is zero.
//
// Each bake gets a hat kernel max(0, 1 − |Δθ|/60°) around its canonical
// angle. Below a direction length of 0.25 the weights fade toward the
// uniform average, so the blend stays continuous through the origin
// where the azimuth is undefined.
func (c *Compositor) BakeWeights(dir LightDirection) [BakeCount]float64 {
	var w [BakeCount]float64

	var present [BakeCount]bool
	n := 0
	if c.images != nil {
		for i, b := range c.images.Bakes {
			if !b.Empty() {
				present[i] = true
				n++
			}
		}
	}
	if n == 0 {
		return w
	}

	var hat [BakeCount]float64
	sum := 0.0
	theta := dir.Angle()
	for i := range hat {
		if !present[i] {
			continue
		}
		d := math.Abs(angleDiff(theta, c.layout.Angle(i)))
		hat[i] = max(0, 1-d/bakeSpacing)
		sum += hat[i]
	}

	t := blend.Smoothstep(0, uniformRadius, dir.Len())
	if math.IsNaN(dir.X) || math.IsNaN(dir.Y) {
		t = 0
	}
	uniform := 1 / float64(n)
	for i := range w {
		if !present[i] {
			continue
		}
		directional := uniform
		if sum > 0 {
			directional = hat[i] / sum
		}
		w[i] = blend.Mix(uniform, directional, t)
	}
	return w
}

// angleDiff returns a − b wrapped into [−π, π].
func angleDiff(a, b float64) float64 {
	d := math.Mod(a-b, 2*math.Pi)
	switch {
	case d > math.Pi:
		d -= 2 * math.Pi
	case d < -math.Pi:
		d += 2 * math.Pi
	}
	return d
}

// frame caches the per-render geometry.
type frame struct {
	w, h    int
	aspect  float64
	weights [BakeCount]float64
	crops   [BakeCount]texture.Crop
}

func (c *Compositor) newFrame(dst *Pixmap, dir LightDirection, p ReliefParameters) *frame {
	f := &frame{
		w:       dst.Width(),
		h:       dst.Height(),
		weights: c.BakeWeights(dir),
	}
	f.aspect = p.AspectRatio
	if !(f.aspect > 0) {
		f.aspect = float64(f.w) / float64(max(f.h, 1))
	}
	for i, wt := range f.weights {
		if wt > 0 {
			f.crops[i] = texture.CoverCrop(c.images.Bakes[i].Aspect(), f.aspect)
		}
	}
	return f
}

// blendAt returns the straight-alpha directional blend at frame
// coordinates (u, v).
func (c *Compositor) blendAt(f *frame, u, v float64) (r, g, b, a float64) {
	for i, wt := range f.weights {
		if wt == 0 {
			continue
		}
		su, sv := f.crops[i].Map(u, v)
		br, bg, bb, ba := c.images.Bakes[i].Bilinear(su, sv, texture.WrapClamp)
		r += br * wt
		g += bg * wt
		b += bb * wt
		a += ba * wt
	}
	return r, g, b, a
}

// DirectionalBlend writes only the bake blend for dir into dst, without
// detail, tint, fresnel, ambient or edge fade.
func (c *Compositor) DirectionalBlend(dst *Pixmap, dir LightDirection, p ReliefParameters) {
	p = p.Sanitize()
	if dst.Width() == 0 || dst.Height() == 0 {
		return
	}
	f := c.newFrame(dst, dir, p)
	if c.images.Loaded() == 0 {
		dst.Clear(Black)
		return
	}
	for y := 0; y < f.h; y++ {
		v := (float64(y) + 0.5) / float64(f.h)
		for x := 0; x < f.w; x++ {
			u := (float64(x) + 0.5) / float64(f.w)
			r, g, b, a := c.blendAt(f, u, v)
			dst.setPremul((y*f.w+x)*4, r*a, g*a, b*a, a)
		}
	}
}

// Render composites the full base frame for dir into dst:
//
//	blend    weighted bakes, cover-cropped to the aspect ratio
//	detail   plaster overlay, tiled TextureScale times, weight TextureStrength
//	tint     multiply by MultiplyColor
//	fresnel  rim light toward the light direction
//	ambient  c = a + (1 − a)·c
//	edge     smoothstep vignette of width EdgeFade
//
// With no bakes loaded the frame is a flat grey at the ambient level.
func (c *Compositor) Render(dst *Pixmap, dir LightDirection, p ReliefParameters) {
	p = p.Sanitize()
	if dst.Width() == 0 || dst.Height() == 0 {
		return
	}
	if c.images.Loaded() == 0 {
		c.renderFlat(dst, p)
		return
	}

	f := c.newFrame(dst, dir, p)
	mask := c.edgeMask(f.w, f.h, p.EdgeFade)

	plaster := c.images.Plaster
	useDetail := !plaster.Empty() && p.TextureStrength > 0
	var tileW, tileH float64
	if useDetail {
		tileH = float64(min(f.w, f.h)) / p.TextureScale
		tileW = tileH * plaster.Aspect()
	}

	// Fresnel geometry: frame centred at 0, longer half-side 1, y up.
	sx, sy := 1.0, 1.0
	if f.w > f.h {
		sy = float64(f.h) / float64(f.w)
	} else {
		sx = float64(f.w) / float64(f.h)
	}
	dirLen := max(dir.Len(), 1)
	lx, ly := dir.X/dirLen, dir.Y/dirLen

	ambient := Gray(p.AmbientIntensity)

	for y := 0; y < f.h; y++ {
		v := (float64(y) + 0.5) / float64(f.h)
		for x := 0; x < f.w; x++ {
			u := (float64(x) + 0.5) / float64(f.w)
			r, g, b, a := c.blendAt(f, u, v)
			col := RGB{r, g, b}

			if useDetail {
				pr, pg, pb, _ := plaster.Bilinear((float64(x)+0.5)/tileW, (float64(y)+0.5)/tileH, texture.WrapRepeat)
				detail := RGB{blend.Overlay(r, pr), blend.Overlay(g, pg), blend.Overlay(b, pb)}
				col = col.Lerp(detail, p.TextureStrength)
			}

			col = col.Mul(p.MultiplyColor)

			if p.FresnelEnabled && p.FresnelStrength > 0 {
				px := (2*u - 1) * sx
				py := (1 - 2*v) * sy
				rad := math.Hypot(px, py)
				if rad > 0 {
					facing := blend.Clamp01(0.5 + 0.5*(px*lx+py*ly)/rad)
					k := p.FresnelStrength * math.Pow(min(rad, 1), 3) * facing
					col = col.Add(p.FresnelColor.Scale(k))
				}
			}

			col = ambient.Add(col.Scale(1 - p.AmbientIntensity)).Clamp()

			if mask != nil {
				a *= float64(mask[y*f.w+x])
			}
			dst.setPremul((y*f.w+x)*4, col.R*a, col.G*a, col.B*a, a)
		}
	}
}

func (c *Compositor) renderFlat(dst *Pixmap, p ReliefParameters) {
	w, h := dst.Width(), dst.Height()
	grey := Gray(p.AmbientIntensity)
	mask := c.edgeMask(w, h, p.EdgeFade)
	for i := 0; i < w*h; i++ {
		a := 1.0
		if mask != nil {
			a = float64(mask[i])
		}
		px := grey.Scale(a)
		dst.setPremul(i*4, px.R, px.G, px.B, a)
	}
}

// edgeMask returns the per-pixel edge-fade factors for a w×h target, or
// nil when width is 0 and every factor would be 1. Masks are cached by
// size, so only a resize or a new EdgeFade rebuilds one.
func (c *Compositor) edgeMask(w, h int, width float64) []float32 {
	if width <= 0 {
		return nil
	}
	return c.masks.GetOrCreate(maskKey{w, h, width}, func() []float32 {
		m := make([]float32, w*h)
		for y := 0; y < h; y++ {
			v := (float64(y) + 0.5) / float64(h)
			for x := 0; x < w; x++ {
				u := (float64(x) + 0.5) / float64(w)
				m[y*w+x] = float32(edgeFade(u, v, width))
			}
		}
		return m
	})
}

// edgeFade is the vignette factor at frame coordinates (u, v). The
// distance to the nearest border is 0 on the border and 1 at the centre.
func edgeFade(u, v, width float64) float64 {
	if width <= 0 {
		return 1
	}
	d := 2 * min(u, 1-u, v, 1-v)
	return blend.Smoothstep(0, width, d)
}
