package relief

import (
	"math"
	"testing"

	"github.com/themisreit/relief/internal/texture"
)

// patternBake returns a w×h opaque bake whose texels differ per index.
func patternBake(i, w, h int) *texture.Texture {
	t := texture.New(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r := float32((x*17+i*31)%256) / 255
			g := float32((y*29+i*53)%256) / 255
			b := float32((x*y+i*11)%256) / 255
			t.Set(x, y, r, g, b, 1)
		}
	}
	return t
}

func flatBake(w, h int, v float32) *texture.Texture {
	t := texture.New(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			t.Set(x, y, v, v, v, 1)
		}
	}
	return t
}

func patternSet(w, h int) *SixImageSet {
	s := &SixImageSet{}
	for i := range s.Bakes {
		s.Bakes[i] = patternBake(i, w, h)
	}
	return s
}

// neutralParams disables every grading term after the bake blend.
func neutralParams() ReliefParameters {
	p := DefaultReliefParameters()
	p.TextureStrength = 0
	p.MultiplyColor = White
	p.FresnelEnabled = false
	p.AmbientIntensity = 0
	p.EdgeFade = 0
	p.AspectRatio = 0
	return p
}

func sum(w [BakeCount]float64) float64 {
	s := 0.0
	for _, v := range w {
		s += v
	}
	return s
}

func TestBakeWeightsAtCanonicalAngles(t *testing.T) {
	for _, layout := range []BakeLayout{{}, {StartAngle: math.Pi / 6, Clockwise: true}} {
		c := NewCompositor(patternSet(2, 2), layout)
		for i := 0; i < BakeCount; i++ {
			w := c.BakeWeights(DirectionAt(layout.Angle(i)))
			if math.Abs(w[i]-1) > 1e-9 {
				t.Errorf("layout %+v: weight of bake %d at its own angle = %v, want 1", layout, i, w[i])
			}
			if math.Abs(sum(w)-1) > 1e-9 {
				t.Errorf("layout %+v: weights sum to %v", layout, sum(w))
			}
		}
	}
}

func TestBakeWeightsBetweenBakes(t *testing.T) {
	c := NewCompositor(patternSet(2, 2), BakeLayout{})
	w := c.BakeWeights(DirectionAt(math.Pi / 6))
	if math.Abs(w[0]-0.5) > 1e-9 || math.Abs(w[1]-0.5) > 1e-9 {
		t.Errorf("weights at 30° = %v, want bakes 0 and 1 at 0.5", w)
	}

	// Halfway between bake 5 and bake 0 across the wrap-around.
	w = c.BakeWeights(DirectionAt(-math.Pi / 6))
	if math.Abs(w[5]-0.5) > 1e-9 || math.Abs(w[0]-0.5) > 1e-9 {
		t.Errorf("weights at -30° = %v, want bakes 5 and 0 at 0.5", w)
	}
}

func TestBakeWeightsMissingBakes(t *testing.T) {
	set := patternSet(2, 2)
	set.Bakes[1] = nil
	c := NewCompositor(set, BakeLayout{})

	w := c.BakeWeights(DirectionAt(math.Pi / 6))
	if w[1] != 0 {
		t.Errorf("missing bake has weight %v", w[1])
	}
	if math.Abs(w[0]-1) > 1e-9 {
		t.Errorf("renormalised weight of bake 0 = %v, want 1", w[0])
	}

	// Only bakes far from the direction: uniform over what loaded.
	set = &SixImageSet{}
	set.Bakes[3] = patternBake(3, 2, 2)
	c = NewCompositor(set, BakeLayout{})
	w = c.BakeWeights(DirectionAt(0))
	if w[3] != 1 {
		t.Errorf("single loaded bake weight = %v, want 1", w[3])
	}

	c = NewCompositor(&SixImageSet{}, BakeLayout{})
	if w := c.BakeWeights(DirectionAt(0)); sum(w) != 0 {
		t.Errorf("empty set weights = %v, want all zero", w)
	}
}

func TestBakeWeightsUniformAtOrigin(t *testing.T) {
	c := NewCompositor(patternSet(2, 2), BakeLayout{})
	w := c.BakeWeights(LightDirection{})
	for i, v := range w {
		if math.Abs(v-1.0/6) > 1e-12 {
			t.Errorf("weight %d at origin = %v, want 1/6", i, v)
		}
	}
}

func TestBakeWeightsContinuity(t *testing.T) {
	c := NewCompositor(patternSet(2, 2), BakeLayout{})
	maxStep := func(dirs func(k int) LightDirection, n int) float64 {
		prev := c.BakeWeights(dirs(0))
		worst := 0.0
		for k := 1; k <= n; k++ {
			cur := c.BakeWeights(dirs(k))
			for i := range cur {
				worst = max(worst, math.Abs(cur[i]-prev[i]))
			}
			prev = cur
		}
		return worst
	}

	// Full turn at unit length.
	const n = 3600
	spin := maxStep(func(k int) LightDirection { return DirectionAt(2 * math.Pi * float64(k) / n) }, n)
	if spin > 0.01 {
		t.Errorf("largest weight step around the circle = %v", spin)
	}

	// Straight line through the origin, where the azimuth flips.
	line := maxStep(func(k int) LightDirection {
		return LightDirection{X: -1 + 2*float64(k)/n, Y: 0.0001}
	}, n)
	if line > 0.01 {
		t.Errorf("largest weight step through the origin = %v", line)
	}
}

func TestAngleDiff(t *testing.T) {
	tests := []struct {
		a, b, want float64
	}{
		{0, 0, 0},
		{0.1, -0.1, 0.2},
		{math.Pi - 0.1, -math.Pi + 0.1, -0.2},
		{0, 5 * math.Pi / 3, math.Pi / 3},
		{2*math.Pi + 0.5, 0, 0.5},
	}
	for _, tt := range tests {
		if got := angleDiff(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("angleDiff(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestRenderSampleFidelity(t *testing.T) {
	const w, h = 24, 16
	set := patternSet(w, h)
	c := NewCompositor(set, BakeLayout{})
	dst := NewPixmap(w, h)

	for i := 0; i < BakeCount; i++ {
		c.Render(dst, DirectionAt(c.Layout().Angle(i)), neutralParams())
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				want := set.Bakes[i].At8(x, y)
				got := dst.At(x, y)
				gr, gg, gb, ga := got.RGBA()
				if uint8(gr>>8) != want.R || uint8(gg>>8) != want.G || uint8(gb>>8) != want.B || uint8(ga>>8) != 255 {
					t.Fatalf("bake %d pixel (%d, %d) = %v, want %v", i, x, y, got, want)
				}
			}
		}
	}
}

func TestRenderEdgeFadeZeroIsIdentity(t *testing.T) {
	const w, h = 20, 12
	c := NewCompositor(patternSet(w, h), BakeLayout{})
	dir := DirectionAt(1.1)

	blended := NewPixmap(w, h)
	c.DirectionalBlend(blended, dir, neutralParams())
	rendered := NewPixmap(w, h)
	c.Render(rendered, dir, neutralParams())

	for i, v := range rendered.Data() {
		if blended.Data()[i] != v {
			t.Fatalf("byte %d: Render = %d, DirectionalBlend = %d", i, v, blended.Data()[i])
		}
	}
}

func TestRenderEdgeFadeFull(t *testing.T) {
	const w, h = 32, 32
	set := &SixImageSet{}
	for i := range set.Bakes {
		set.Bakes[i] = flatBake(w, h, 0.8)
	}
	c := NewCompositor(set, BakeLayout{})
	p := neutralParams()
	p.EdgeFade = 1
	dst := NewPixmap(w, h)
	c.Render(dst, DirectionAt(0), p)

	alpha := func(x, y int) uint8 { return dst.Data()[(y*w+x)*4+3] }
	for _, xy := range [][2]int{{0, 0}, {0, h / 2}, {w - 1, h / 2}, {w / 2, 0}, {w / 2, h - 1}} {
		if a := alpha(xy[0], xy[1]); a > 2 {
			t.Errorf("border alpha at %v = %d, want ~0", xy, a)
		}
	}
	if a := alpha(w/2, h/2); a < 250 {
		t.Errorf("centre alpha = %d, want ~255", a)
	}
	for x := 1; x <= w/2; x++ {
		if alpha(x, h/2) < alpha(x-1, h/2) {
			t.Fatalf("alpha decreases toward the centre at x=%d", x)
		}
	}
}

func TestRenderWithoutBakes(t *testing.T) {
	p := neutralParams()
	p.AmbientIntensity = 0.4
	want := to8(0.4)

	for _, set := range []*SixImageSet{nil, {}} {
		c := NewCompositor(set, BakeLayout{})
		dst := NewPixmap(8, 6)
		c.Render(dst, DirectionAt(0), p)
		d := dst.Data()
		for i := 0; i < len(d); i += 4 {
			if d[i] != want || d[i+1] != want || d[i+2] != want || d[i+3] != 255 {
				t.Fatalf("pixel %d = %v, want flat grey %d", i/4, d[i:i+4], want)
			}
		}
	}
}

func TestRenderTintAndAmbient(t *testing.T) {
	const w, h = 8, 8
	set := &SixImageSet{}
	for i := range set.Bakes {
		set.Bakes[i] = flatBake(w, h, 0.6)
	}
	c := NewCompositor(set, BakeLayout{})
	dst := NewPixmap(w, h)

	p := neutralParams()
	p.MultiplyColor = RGB{1, 0.25, 0}
	c.Render(dst, DirectionAt(0), p)
	px := dst.Data()[:4]
	if px[0] != to8(0.6) || px[1] != to8(0.15) || px[2] != 0 {
		t.Errorf("tinted pixel = %v", px)
	}

	p = neutralParams()
	p.AmbientIntensity = 1
	c.Render(dst, DirectionAt(0), p)
	if px := dst.Data()[:4]; px[0] != 255 || px[1] != 255 || px[2] != 255 {
		t.Errorf("full ambient pixel = %v, want white", px)
	}

	p.AmbientIntensity = 0.5
	c.Render(dst, DirectionAt(0), p)
	if got := dst.Data()[0]; got != to8(0.5+0.5*0.6) {
		t.Errorf("half ambient = %d, want %d", got, to8(0.8))
	}
}

func TestRenderNeutralPlaster(t *testing.T) {
	const w, h = 16, 10
	set := patternSet(w, h)
	c := NewCompositor(set, BakeLayout{})
	dir := DirectionAt(0.4)

	plain := NewPixmap(w, h)
	c.Render(plain, dir, neutralParams())

	set.Plaster = flatBake(5, 5, 0.5)
	p := neutralParams()
	p.TextureStrength = 1
	textured := NewPixmap(w, h)
	c.Render(textured, dir, p)

	for i, v := range plain.Data() {
		if d := int(textured.Data()[i]) - int(v); d < -1 || d > 1 {
			t.Fatalf("byte %d: grey plaster changed %d to %d", i, v, textured.Data()[i])
		}
	}

	set.Plaster = flatBake(5, 5, 1)
	c.Render(textured, dir, p)
	brighter := 0
	for i, v := range plain.Data() {
		if textured.Data()[i] > v {
			brighter++
		}
	}
	if brighter == 0 {
		t.Error("white plaster did not brighten anything")
	}
}

func TestRenderFresnelFollowsLight(t *testing.T) {
	const w, h = 16, 16
	set := &SixImageSet{}
	for i := range set.Bakes {
		set.Bakes[i] = flatBake(w, h, 0.3)
	}
	c := NewCompositor(set, BakeLayout{})
	p := neutralParams()
	p.FresnelEnabled = true
	p.FresnelStrength = 0.5
	p.FresnelColor = White

	dst := NewPixmap(w, h)
	red := func(x, y int) int { return int(dst.Data()[(y*w+x)*4]) }

	c.Render(dst, DirectionAt(0), p)
	litRight, centre := red(w-1, h/2), red(w/2, h/2)
	c.Render(dst, DirectionAt(math.Pi), p)
	litLeft := red(w-1, h/2)

	if litRight < litLeft+40 {
		t.Errorf("right rim: lit from right %d, from left %d", litRight, litLeft)
	}
	if centre > to8Int(0.3)+2 {
		t.Errorf("centre picked up rim light: %d", centre)
	}
}

func to8Int(v float64) int { return int(to8(v)) }

func TestRenderCoverCropsToAspect(t *testing.T) {
	// A 4×2 bake with a dark left half and a bright right half, rendered
	// into a square frame: the centre crop keeps the middle two columns.
	bake := texture.New(4, 2)
	for y := 0; y < 2; y++ {
		for x := 0; x < 4; x++ {
			v := float32(0.2)
			if x >= 2 {
				v = 0.8
			}
			bake.Set(x, y, v, v, v, 1)
		}
	}
	set := &SixImageSet{}
	set.Bakes[0] = bake
	c := NewCompositor(set, BakeLayout{})

	dst := NewPixmap(2, 2)
	c.Render(dst, DirectionAt(0), neutralParams())
	if l, r := dst.Data()[0], dst.Data()[4]; l != to8(0.2) || r != to8(0.8) {
		t.Errorf("cropped row = %d %d, want %d %d", l, r, to8(0.2), to8(0.8))
	}
}

func TestRenderEmptyTarget(t *testing.T) {
	c := NewCompositor(patternSet(4, 4), BakeLayout{})
	c.Render(NewPixmap(0, 0), DirectionAt(0), DefaultReliefParameters())
	c.DirectionalBlend(NewPixmap(0, 3), DirectionAt(0), DefaultReliefParameters())
}

func TestRenderReusesEdgeMask(t *testing.T) {
	c := NewCompositor(patternSet(16, 16), BakeLayout{})
	p := neutralParams()
	p.EdgeFade = 0.3
	dst := NewPixmap(16, 16)

	c.Render(dst, DirectionAt(0), p)
	first := append([]byte(nil), dst.Data()...)
	c.Render(dst, DirectionAt(0), p)
	for i, v := range dst.Data() {
		if v != first[i] {
			t.Fatalf("byte %d differs between cached and fresh mask", i)
		}
	}

	if s := c.masks.Stats(); s.Misses != 1 || s.Hits != 1 {
		t.Errorf("mask cache stats = %+v, want 1 miss and 1 hit", s)
	}

	small := NewPixmap(8, 8)
	c.Render(small, DirectionAt(0), p)
	p.EdgeFade = 0
	c.Render(small, DirectionAt(0), p)
	if s := c.masks.Stats(); s.Len != 2 || s.Misses != 2 {
		t.Errorf("mask cache stats after resize = %+v", s)
	}

	c.Release()
	if c.masks.Len() != 0 {
		t.Error("Release() kept cached masks")
	}
	if w := c.BakeWeights(DirectionAt(0)); w != ([BakeCount]float64{}) {
		t.Errorf("weights after Release() = %v, want zero", w)
	}
}
