package relief

import "errors"

// Common relief errors.
var (
	// ErrSessionClosed is returned by Session methods after Close.
	ErrSessionClosed = errors.New("relief: session closed")

	// ErrCapabilityBreach is returned when the output size cannot fit the
	// backend texture ceiling even at a pixel ratio of 1.
	ErrCapabilityBreach = errors.New("relief: output exceeds backend texture limit")

	// ErrInvalidViewport is returned for non-positive output dimensions.
	ErrInvalidViewport = errors.New("relief: invalid viewport size")

	// ErrNoHost is returned when a negotiator is created without a host.
	ErrNoHost = errors.New("relief: host must not be nil")

	// ErrFallbackToCPU is returned by a TrailKernel that cannot run the
	// step. The accumulator then steps on the CPU for that frame.
	ErrFallbackToCPU = errors.New("relief: falling back to CPU trail step")
)
