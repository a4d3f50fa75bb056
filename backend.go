package relief

import (
	"context"
	"fmt"
)

// Backend identifies the GPU API a session renders with.
type Backend uint8

const (
	// BackendWebGL is the universally supported fallback backend.
	BackendWebGL Backend = iota

	// BackendWebGPU is the preferred backend.
	BackendWebGPU
)

// String returns the backend name.
func (b Backend) String() string {
	switch b {
	case BackendWebGPU:
		return "webgpu"
	case BackendWebGL:
		return "webgl"
	default:
		return fmt.Sprintf("Backend(%d)", uint8(b))
	}
}

// Default texture ceilings used when a backend reports no limit.
// 8192 is the WebGPU default maxTextureDimension2D; 4096 is the
// MAX_TEXTURE_SIZE every WebGL implementation in the field reports.
const (
	DefaultWebGPUMaxTextureDimension = 8192
	DefaultWebGLMaxTextureDimension  = 4096
)

// Capabilities is the resolved result of a host capability query.
// It is one of Unavailable, WebGPUCaps or WebGLCaps.
type Capabilities interface {
	capabilities()
}

// Unavailable reports that the preferred backend cannot be used.
type Unavailable struct {
	Reason string
}

// WebGPUCaps describes a usable WebGPU adapter.
type WebGPUCaps struct {
	// MaxTextureDimension is the adapter's maxTextureDimension2D.
	// Zero means the adapter did not report one.
	MaxTextureDimension int

	// Adapter is a human-readable adapter name, for logging only.
	Adapter string
}

// WebGLCaps describes the fallback context.
type WebGLCaps struct {
	// MaxTextureDimension is MAX_TEXTURE_SIZE. Zero means unknown.
	MaxTextureDimension int
}

func (Unavailable) capabilities() {}
func (WebGPUCaps) capabilities()  {}
func (WebGLCaps) capabilities()   {}

// Host is the capability boundary between relief and the embedding
// environment (browser, native window, test double).
type Host interface {
	// HasWebGPU reports whether the preferred backend API exists at all.
	HasWebGPU() bool

	// UserAgent returns the host identification string. It is only used
	// for the unreliable-WebGPU heuristic.
	UserAgent() string

	// RequestAdapter queries the preferred backend for an adapter.
	// A nil result, an Unavailable result or an error all mean fallback.
	RequestAdapter(ctx context.Context) (Capabilities, error)

	// FallbackCapabilities describes the universal backend.
	FallbackCapabilities() WebGLCaps
}

// StaticHost is a Host with fixed answers. It serves tests, headless
// rendering and the command-line backend override.
type StaticHost struct {
	WebGPU     bool
	Agent      string
	Adapter    Capabilities
	AdapterErr error
	WebGL      WebGLCaps

	requests int
}

var _ Host = (*StaticHost)(nil)

// HasWebGPU implements Host.
func (h *StaticHost) HasWebGPU() bool { return h.WebGPU }

// UserAgent implements Host.
func (h *StaticHost) UserAgent() string { return h.Agent }

// RequestAdapter implements Host.
func (h *StaticHost) RequestAdapter(ctx context.Context) (Capabilities, error) {
	h.requests++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return h.Adapter, h.AdapterErr
}

// FallbackCapabilities implements Host.
func (h *StaticHost) FallbackCapabilities() WebGLCaps { return h.WebGL }

// Requests returns how many times RequestAdapter was called.
func (h *StaticHost) Requests() int { return h.requests }
