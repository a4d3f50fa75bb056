package relief

import (
	"errors"
	"math"

	"github.com/themisreit/relief/internal/blend"
)

// TrailAccumulator keeps the decaying pointer-trail buffer: a float grid
// the size of the render target, added onto each base frame as glow.
// It is owned by one session and driven from the render timeline only.
type TrailAccumulator struct {
	width  int
	height int
	buf    []float32
	kernel TrailKernel
}

// TrailKernel runs the trail step on an accelerator. StepTrail must
// update buf in place exactly as the CPU step does: multiply every texel
// by Fade, then add the brush and clamp painted texels to Ceiling.
// It returns ErrFallbackToCPU when it cannot handle the step.
type TrailKernel interface {
	StepTrail(buf []float32, step TrailStep) error
}

// TrailStep is one frame of trail work in render-target pixels.
// Intensity is zero when nothing is painted.
type TrailStep struct {
	Width, Height    int
	Fade             float32
	CenterX, CenterY float32
	Radius           float32
	Intensity        float32
	Ceiling          float32
}

// SetKernel routes later steps through k. A nil k keeps stepping on the
// CPU.
func (t *TrailAccumulator) SetKernel(k TrailKernel) {
	t.kernel = k
}

// NewTrailAccumulator allocates a cleared width×height trail buffer.
func NewTrailAccumulator(width, height int) *TrailAccumulator {
	t := &TrailAccumulator{}
	t.Resize(width, height)
	return t
}

// Width returns the buffer width.
func (t *TrailAccumulator) Width() int { return t.width }

// Height returns the buffer height.
func (t *TrailAccumulator) Height() int { return t.height }

// Value returns the trail intensity at (x, y), or 0 outside the buffer.
func (t *TrailAccumulator) Value(x, y int) float64 {
	if x < 0 || y < 0 || x >= t.width || y >= t.height {
		return 0
	}
	return float64(t.buf[y*t.width+x])
}

// Resize reallocates the buffer for a new render target size. The trail
// restarts empty; a resize is rare enough that resampling is not worth it.
func (t *TrailAccumulator) Resize(width, height int) {
	width, height = max(width, 0), max(height, 0)
	if width == t.width && height == t.height && t.buf != nil {
		return
	}
	t.width = width
	t.height = height
	t.buf = make([]float32, width*height)
}

// Clear zeroes the buffer.
func (t *TrailAccumulator) Clear() {
	clear(t.buf)
}

// Release frees the buffer.
func (t *TrailAccumulator) Release() {
	t.buf = nil
	t.width = 0
	t.height = 0
}

// Step advances the trail by one frame: every texel decays by
// TrailFadeSpeed, then, while the pointer is over the surface, a soft
// brush of radius TrailSize adds up to TrailIntensity around it. Texels
// never exceed TrailCeiling, so a resting pointer saturates instead of
// growing without bound.
//
// With a kernel set the step runs there first. ErrFallbackToCPU steps on
// the CPU for this frame; any other error is logged and the kernel is
// dropped for the rest of the accumulator's life.
func (t *TrailAccumulator) Step(pointer Pointer, p TrailParameters) {
	p = p.Sanitize()

	if t.kernel != nil && t.stepKernel(pointer, p) {
		return
	}

	if fade := float32(p.TrailFadeSpeed); fade != 1 {
		for i := range t.buf {
			t.buf[i] *= fade
		}
	}

	if !pointer.Active || p.TrailIntensity == 0 || t.width == 0 || t.height == 0 {
		return
	}
	t.paint(pointer, p)
}

// stepKernel reports whether the kernel handled the step.
func (t *TrailAccumulator) stepKernel(pointer Pointer, p TrailParameters) bool {
	if len(t.buf) == 0 {
		return true
	}
	step := TrailStep{
		Width:   t.width,
		Height:  t.height,
		Fade:    float32(p.TrailFadeSpeed),
		Ceiling: TrailCeiling,
	}
	if pointer.Active && p.TrailIntensity > 0 {
		cx, cy, radius := t.brush(pointer, p)
		if radius > 0 {
			step.CenterX, step.CenterY = float32(cx), float32(cy)
			step.Radius = float32(radius)
			step.Intensity = float32(p.TrailIntensity)
		}
	}
	if step.Fade == 1 && step.Intensity == 0 {
		return true
	}

	err := t.kernel.StepTrail(t.buf, step)
	switch {
	case err == nil:
		return true
	case errors.Is(err, ErrFallbackToCPU):
		return false
	default:
		Logger().Warn("relief: trail kernel failed, stepping on the CPU", "err", err)
		t.kernel = nil
		return false
	}
}

// brush returns the brush centre and radius in buffer pixels.
func (t *TrailAccumulator) brush(pointer Pointer, p TrailParameters) (cx, cy, radius float64) {
	radius = p.TrailSize * float64(min(t.width, t.height))
	cx = (clampUnit(pointer.X) + 1) / 2 * float64(t.width)
	cy = (1 - clampUnit(pointer.Y)) / 2 * float64(t.height)
	return cx, cy, radius
}

func (t *TrailAccumulator) paint(pointer Pointer, p TrailParameters) {
	cx, cy, radius := t.brush(pointer, p)
	if radius <= 0 {
		return
	}

	x0 := max(int(math.Floor(cx-radius)), 0)
	x1 := min(int(math.Ceil(cx+radius)), t.width-1)
	y0 := max(int(math.Floor(cy-radius)), 0)
	y1 := min(int(math.Ceil(cy+radius)), t.height-1)

	for y := y0; y <= y1; y++ {
		dy := float64(y) + 0.5 - cy
		row := t.buf[y*t.width:]
		for x := x0; x <= x1; x++ {
			dx := float64(x) + 0.5 - cx
			d := math.Hypot(dx, dy) / radius
			if d >= 1 {
				continue
			}
			v := float64(row[x]) + p.TrailIntensity*(1-blend.Smoothstep(0, 1, d))
			row[x] = float32(min(v, TrailCeiling))
		}
	}
}

// Composite adds the trail glow to dst: GlowColor × GlowIntensity ×
// smoothstep(value), clamped to [0, 1]. dst must match the buffer size;
// a mismatched target is left untouched.
func (t *TrailAccumulator) Composite(dst *Pixmap, p TrailParameters) {
	p = p.Sanitize()
	if dst.Width() != t.width || dst.Height() != t.height || p.GlowIntensity == 0 {
		return
	}
	for i, v := range t.buf {
		if v <= 0 {
			continue
		}
		glow := p.GlowColor.Scale(p.GlowIntensity * blend.Smoothstep(0, 1, float64(v)))
		o := i * 4
		r, g, b, a := dst.premulAt(o)
		c := RGB{r, g, b}.Add(glow).Clamp()
		dst.setPremul(o, c.R, c.G, c.B, max(a, c.R, c.G, c.B))
	}
}
