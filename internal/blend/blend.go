// Package blend provides the separable blend functions and curve helpers
// used by the relief compositor. All values are straight (non-premultiplied)
// channels in [0, 1].
package blend

// Overlay darkens or lightens the base depending on its value.
// A source of 0.5 leaves the base unchanged.
//
//	if Cb <= 0.5: 2 * Cb * Cs
//	else:         1 - 2 * (1 - Cb) * (1 - Cs)
func Overlay(cb, cs float64) float64 {
	if cb <= 0.5 {
		return 2 * cb * cs
	}
	return 1 - 2*(1-cb)*(1-cs)
}

// Mix returns a + (b-a)*t.
func Mix(a, b, t float64) float64 {
	return a + (b-a)*t
}

// Clamp01 clamps v to [0, 1]. NaN becomes 0.
func Clamp01(v float64) float64 {
	if !(v > 0) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Smoothstep is the Hermite step between edge0 and edge1.
// When the edges coincide it degenerates to a hard step at edge0.
func Smoothstep(edge0, edge1, x float64) float64 {
	if edge1 == edge0 {
		if x < edge0 {
			return 0
		}
		return 1
	}
	t := Clamp01((x - edge0) / (edge1 - edge0))
	return t * t * (3 - 2*t)
}
