//go:build nogpu

// Package gpu provides a relief.Host backed by a native WebGPU
// implementation. This build has GPU support compiled out: the host
// always reports the preferred backend as absent.
package gpu

import (
	"context"

	"github.com/gogpu/gpucontext"

	"github.com/themisreit/relief"
)

// Host is the stub host for nogpu builds.
type Host struct {
	userAgent string
}

var (
	_ relief.Host        = (*Host)(nil)
	_ relief.TrailKernel = (*Host)(nil)
)

// Option configures a Host.
type Option func(*Host)

// WithUserAgent sets the identification string reported to the negotiator.
func WithUserAgent(ua string) Option {
	return func(h *Host) { h.userAgent = ua }
}

// WithDeviceProvider is accepted for API parity and ignored.
func WithDeviceProvider(gpucontext.DeviceProvider) Option {
	return func(*Host) {}
}

// WithoutPreflight is accepted for API parity and ignored.
func WithoutPreflight() Option {
	return func(*Host) {}
}

// NewHost creates the stub host.
func NewHost(opts ...Option) *Host {
	h := &Host{}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HasWebGPU always reports false.
func (h *Host) HasWebGPU() bool { return false }

// UserAgent implements relief.Host.
func (h *Host) UserAgent() string { return h.userAgent }

// RequestAdapter always reports the backend as unavailable.
func (h *Host) RequestAdapter(ctx context.Context) (relief.Capabilities, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return relief.Unavailable{Reason: "built with nogpu"}, nil
}

// FallbackCapabilities implements relief.Host.
func (h *Host) FallbackCapabilities() relief.WebGLCaps { return relief.WebGLCaps{} }

// StepTrail always defers to the CPU step.
func (h *Host) StepTrail([]float32, relief.TrailStep) error { return relief.ErrFallbackToCPU }

// Close is a no-op.
func (h *Host) Close() {}
