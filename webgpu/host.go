// Package webgpu provides a relief.Host on top of cogentcore/webgpu. In
// the browser (js/wasm) it reads navigator.gpu and navigator.userAgent
// and asks WebGL for its texture limit; natively it talks to wgpu-native.
package webgpu

import (
	"context"
	"fmt"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/themisreit/relief"
)

// Host requests a WebGPU adapter and device once and reports their limits.
type Host struct {
	mu sync.Mutex

	forceFallback bool
	label         string

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	caps     relief.Capabilities
}

var _ relief.Host = (*Host)(nil)

// Option configures a Host.
type Option func(*Host)

// WithForceFallbackAdapter asks for the implementation's software adapter.
func WithForceFallbackAdapter() Option {
	return func(h *Host) { h.forceFallback = true }
}

// WithLabel sets the debug label of the requested device.
func WithLabel(label string) Option {
	return func(h *Host) { h.label = label }
}

// NewHost creates a host. Nothing is requested until RequestAdapter.
func NewHost(opts ...Option) *Host {
	h := &Host{label: "relief"}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HasWebGPU implements relief.Host.
func (h *Host) HasWebGPU() bool { return hasWebGPU() }

// UserAgent implements relief.Host.
func (h *Host) UserAgent() string { return userAgent() }

// FallbackCapabilities implements relief.Host.
func (h *Host) FallbackCapabilities() relief.WebGLCaps {
	return relief.WebGLCaps{MaxTextureDimension: webglMaxTextureSize()}
}

// RequestAdapter requests an adapter and a device with default limits.
// A successful answer is cached; failures are retried on the next call.
func (h *Host) RequestAdapter(ctx context.Context) (relief.Capabilities, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.caps != nil {
		return h.caps, nil
	}

	if h.instance == nil {
		h.instance = wgpu.CreateInstance(nil)
	}
	a, err := h.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: h.forceFallback,
	})
	if err != nil {
		return nil, fmt.Errorf("webgpu: request adapter: %w", err)
	}
	if a == nil {
		return relief.Unavailable{Reason: "no adapter"}, nil
	}

	limits := wgpu.DefaultLimits()
	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: h.label,
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: limits,
		},
	})
	if err != nil {
		a.Release()
		return nil, fmt.Errorf("webgpu: request device: %w", err)
	}
	if err := ctx.Err(); err != nil {
		d.Release()
		a.Release()
		return nil, err
	}

	h.adapter, h.device = a, d
	h.caps = relief.WebGPUCaps{
		MaxTextureDimension: int(limits.MaxTextureDimension2D),
		Adapter:             h.label,
	}
	relief.Logger().Debug("webgpu: device ready", "maxTextureDimension", limits.MaxTextureDimension2D)
	return h.caps, nil
}

// Close releases the device, adapter and instance.
func (h *Host) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.device != nil {
		h.device.Release()
		h.device = nil
	}
	if h.adapter != nil {
		h.adapter.Release()
		h.adapter = nil
	}
	if h.instance != nil {
		h.instance.Release()
		h.instance = nil
	}
	h.caps = nil
}
