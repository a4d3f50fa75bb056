package relief

import "math"

// ReliefParameters tune the compositor and the light simulator. They are
// supplied by the host and may change between any two frames.
type ReliefParameters struct {
	// TextureScale is how many times the plaster image tiles across the
	// frame's shorter side. Must be > 0.
	TextureScale float64

	// TextureStrength is the plaster overlay weight in [0, 1].
	TextureStrength float64

	// MultiplyColor tints the composite multiplicatively.
	MultiplyColor RGB

	FresnelEnabled  bool
	FresnelColor    RGB
	FresnelStrength float64

	// AmbientIntensity is the brightness floor, independent of the light.
	AmbientIntensity float64

	// MouseInfluence weights the pointer offset against the unit
	// autonomous direction.
	MouseInfluence float64

	// RotationSpeed is the autonomous angular velocity in radians/second.
	RotationSpeed float64

	// MouseLerp is the per-frame smoothing factor in (0, 1]; 1 snaps.
	MouseLerp float64

	// EdgeFade is the vignette width in [0, 1] as a fraction of the
	// distance from the border to the frame centre.
	EdgeFade float64

	// AspectRatio is the width:height the sources are cropped to.
	// Zero uses the render target's own aspect.
	AspectRatio float64
}

// DefaultReliefParameters returns the parameters the demo pages ship with.
func DefaultReliefParameters() ReliefParameters {
	return ReliefParameters{
		TextureScale:     2,
		TextureStrength:  0.2,
		MultiplyColor:    White,
		FresnelEnabled:   true,
		FresnelColor:     RGB{1, 0.96, 0.9},
		FresnelStrength:  0.35,
		AmbientIntensity: 0.06,
		MouseInfluence:   0.6,
		RotationSpeed:    0.4,
		MouseLerp:        0.08,
		EdgeFade:         0.12,
		AspectRatio:      0,
	}
}

// Sanitize returns a copy with every field forced into its documented
// range. NaN or out-of-range values fall back to the defaults or to the
// nearest bound.
func (p ReliefParameters) Sanitize() ReliefParameters {
	d := DefaultReliefParameters()
	if !(p.TextureScale > 0) || math.IsInf(p.TextureScale, 0) {
		p.TextureScale = d.TextureScale
	}
	p.TextureStrength = clamp01(p.TextureStrength)
	p.MultiplyColor = p.MultiplyColor.Clamp()
	p.FresnelColor = p.FresnelColor.Clamp()
	p.FresnelStrength = nonNegative(p.FresnelStrength)
	p.AmbientIntensity = clamp01(p.AmbientIntensity)
	if math.IsNaN(p.MouseInfluence) || math.IsInf(p.MouseInfluence, 0) {
		p.MouseInfluence = d.MouseInfluence
	}
	if math.IsNaN(p.RotationSpeed) || math.IsInf(p.RotationSpeed, 0) {
		p.RotationSpeed = d.RotationSpeed
	}
	if !(p.MouseLerp > 0) {
		p.MouseLerp = d.MouseLerp
	}
	p.MouseLerp = min(p.MouseLerp, 1)
	p.EdgeFade = clamp01(p.EdgeFade)
	if !(p.AspectRatio > 0) || math.IsInf(p.AspectRatio, 0) {
		p.AspectRatio = 0
	}
	return p
}

// TrailCeiling caps a trail texel so a stationary pointer cannot
// accumulate without bound.
const TrailCeiling = 1.0

// TrailParameters tune the trail accumulator.
type TrailParameters struct {
	// TrailSize is the brush radius as a fraction of the shorter frame side.
	TrailSize float64

	// TrailFadeSpeed multiplies every texel once per frame, in [0, 1].
	TrailFadeSpeed float64

	// TrailIntensity is added at the brush centre per painted frame.
	TrailIntensity float64

	// GlowColor and GlowIntensity map trail values to added light.
	GlowColor     RGB
	GlowIntensity float64
}

// DefaultTrailParameters returns the parameters the demo pages ship with.
func DefaultTrailParameters() TrailParameters {
	return TrailParameters{
		TrailSize:      0.08,
		TrailFadeSpeed: 0.94,
		TrailIntensity: 0.22,
		GlowColor:      RGB{1, 0.93, 0.82},
		GlowIntensity:  0.5,
	}
}

// Sanitize returns a copy with every field forced into its documented range.
func (p TrailParameters) Sanitize() TrailParameters {
	p.TrailSize = nonNegative(p.TrailSize)
	p.TrailFadeSpeed = clamp01(p.TrailFadeSpeed)
	p.TrailIntensity = nonNegative(p.TrailIntensity)
	p.GlowColor = p.GlowColor.Clamp()
	p.GlowIntensity = nonNegative(p.GlowIntensity)
	return p
}

func nonNegative(x float64) float64 {
	if !(x > 0) || math.IsInf(x, 0) {
		return 0
	}
	return x
}
