package texture

import "math"

// Wrap selects how coordinates outside [0, 1] are resolved.
type Wrap uint8

const (
	// WrapClamp repeats the edge texels.
	WrapClamp Wrap = iota

	// WrapRepeat tiles the texture.
	WrapRepeat
)

// Bilinear samples the texture at normalized coordinates (u, v), where
// (0, 0) is the top-left corner and texel centres sit at (i+0.5)/size.
func (t *Texture) Bilinear(u, v float64, wrap Wrap) (r, g, b, a float64) {
	if wrap == WrapRepeat {
		u -= math.Floor(u)
		v -= math.Floor(v)
	}

	fx := u*float64(t.width) - 0.5
	fy := v*float64(t.height) - 0.5
	x0 := int(math.Floor(fx))
	y0 := int(math.Floor(fy))
	tx := fx - float64(x0)
	ty := fy - float64(y0)
	x1, y1 := x0+1, y0+1

	if wrap == WrapRepeat {
		x0, x1 = mod(x0, t.width), mod(x1, t.width)
		y0, y1 = mod(y0, t.height), mod(y1, t.height)
	}

	r00, g00, b00, a00 := t.At(x0, y0)
	r10, g10, b10, a10 := t.At(x1, y0)
	r01, g01, b01, a01 := t.At(x0, y1)
	r11, g11, b11, a11 := t.At(x1, y1)

	r = lerp2D(r00, r10, r01, r11, tx, ty)
	g = lerp2D(g00, g10, g01, g11, tx, ty)
	b = lerp2D(b00, b10, b01, b11, tx, ty)
	a = lerp2D(a00, a10, a01, a11, tx, ty)
	return r, g, b, a
}

// Crop is a sub-rectangle of a texture in normalized coordinates.
type Crop struct {
	U0, V0 float64
	DU, DV float64
}

// FullCrop covers the whole texture.
var FullCrop = Crop{DU: 1, DV: 1}

// Map converts frame coordinates (u, v) in [0, 1] into texture coordinates.
func (c Crop) Map(u, v float64) (float64, float64) {
	return c.U0 + u*c.DU, c.V0 + v*c.DV
}

// CoverCrop returns the centred crop of a texture with aspect srcAspect
// that has aspect dstAspect, so sampling fills the frame without
// stretching either axis.
func CoverCrop(srcAspect, dstAspect float64) Crop {
	if !(srcAspect > 0) || !(dstAspect > 0) || srcAspect == dstAspect {
		return FullCrop
	}
	if dstAspect < srcAspect {
		du := dstAspect / srcAspect
		return Crop{U0: (1 - du) / 2, DU: du, DV: 1}
	}
	dv := srcAspect / dstAspect
	return Crop{V0: (1 - dv) / 2, DU: 1, DV: dv}
}

func lerp2D(v00, v10, v01, v11, tx, ty float64) float64 {
	top := v00 + (v10-v00)*tx
	bottom := v01 + (v11-v01)*tx
	return top + (bottom-top)*ty
}

func mod(a, n int) int {
	if n <= 0 {
		return 0
	}
	a %= n
	if a < 0 {
		a += n
	}
	return a
}
