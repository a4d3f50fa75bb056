package relief

import "math"

// LightDirection is the simulated light's 2D direction in frame space
// (x right, y up). Its length is near 1 while the light spins and grows
// or shrinks with the pointer contribution.
type LightDirection struct {
	X, Y float64
}

// Angle returns the azimuth in radians, in (-π, π].
func (d LightDirection) Angle() float64 {
	return math.Atan2(d.Y, d.X)
}

// Len returns the vector length.
func (d LightDirection) Len() float64 {
	return math.Hypot(d.X, d.Y)
}

// DirectionAt returns the unit direction at angle a.
func DirectionAt(a float64) LightDirection {
	s, c := math.Sincos(a)
	return LightDirection{X: c, Y: s}
}

// Pointer is the latest known pointer state in frame-local coordinates,
// normalized to [-1, 1] on both axes with y pointing up.
type Pointer struct {
	X, Y float64

	// Active is true while the pointer is over the surface.
	Active bool
}

// PointerFromPixels converts a position in pixels (origin top-left) over
// a w×h surface into a Pointer. Positions outside the surface are inactive.
func PointerFromPixels(px, py float64, w, h int) Pointer {
	if w <= 0 || h <= 0 {
		return Pointer{}
	}
	inside := px >= 0 && py >= 0 && px < float64(w) && py < float64(h)
	return Pointer{
		X:      px/float64(w)*2 - 1,
		Y:      1 - py/float64(h)*2,
		Active: inside,
	}
}

// LightState is the simulator's complete state. The zero value starts
// the spin at angle 0 with the light at the origin.
type LightState struct {
	// Phase is the accumulated autonomous rotation angle in radians.
	Phase float64

	// Dir is the smoothed direction read by the compositor.
	Dir LightDirection
}

// StepLight advances the simulator by dt seconds and returns the new state:
//
//	phase  = prev.Phase + RotationSpeed·dt
//	target = (cos phase, sin phase) + pointer·MouseInfluence
//	dir    = lerp(prev.Dir, target, MouseLerp)
//
// An inactive pointer contributes nothing. Negative or NaN dt is treated
// as zero. StepLight is pure; callers thread the state explicitly.
func StepLight(prev LightState, pointer Pointer, p ReliefParameters, dt float64) LightState {
	if !(dt > 0) {
		dt = 0
	}
	phase := math.Mod(prev.Phase+p.RotationSpeed*dt, 2*math.Pi)

	target := DirectionAt(phase)
	if pointer.Active {
		target.X += clampUnit(pointer.X) * p.MouseInfluence
		target.Y += clampUnit(pointer.Y) * p.MouseInfluence
	}

	k := p.MouseLerp
	return LightState{
		Phase: phase,
		Dir: LightDirection{
			X: prev.Dir.X + (target.X-prev.Dir.X)*k,
			Y: prev.Dir.Y + (target.Y-prev.Dir.Y)*k,
		},
	}
}

func clampUnit(x float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	return math.Max(-1, math.Min(1, x))
}
