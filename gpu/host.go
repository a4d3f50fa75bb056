//go:build !nogpu

// Package gpu provides a relief.Host backed by a native WebGPU
// implementation (gogpu/wgpu over Vulkan).
//
// The host opens a device on the first adapter request and checks that
// the relief and trail shaders compile and load on it. A failed check
// reports the preferred backend as unavailable, so the negotiator falls
// back instead of failing mid-session.
//
// The host is also a relief.TrailKernel: once the device is open it runs
// the trail step as a compute pass.
//
// Usage:
//
//	host := gpu.NewHost()
//	defer host.Close()
//	s, err := relief.NewSession(ctx, host, images, relief.WithTrailKernel(host))
package gpu

import (
	"context"
	"fmt"
	"sync"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/themisreit/relief"
	"github.com/themisreit/relief/internal/shaders"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

// Host probes and holds a native GPU device.
type Host struct {
	mu sync.Mutex

	userAgent string
	provider  gpucontext.DeviceProvider
	preflight bool

	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	external bool
	modules  map[string]hal.ShaderModule
	trail    trailPipeline
	caps     relief.Capabilities
}

var (
	_ relief.Host        = (*Host)(nil)
	_ relief.TrailKernel = (*Host)(nil)
)

// Option configures a Host.
type Option func(*Host)

// WithUserAgent sets the identification string reported to the
// negotiator. Native hosts normally leave it empty.
func WithUserAgent(ua string) Option {
	return func(h *Host) { h.userAgent = ua }
}

// WithDeviceProvider shares an existing device instead of opening one.
// The provider must also expose HalDevice() any and HalQueue() any
// returning hal.Device and hal.Queue.
func WithDeviceProvider(p gpucontext.DeviceProvider) Option {
	return func(h *Host) { h.provider = p }
}

// WithoutPreflight skips the shader check after the device opens.
func WithoutPreflight() Option {
	return func(h *Host) { h.preflight = false }
}

// NewHost creates a host. No GPU work happens until RequestAdapter.
func NewHost(opts ...Option) *Host {
	h := &Host{preflight: true}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HasWebGPU reports whether a native backend is compiled in.
func (h *Host) HasWebGPU() bool {
	_, ok := hal.GetBackend(gputypes.BackendVulkan)
	return ok
}

// UserAgent implements relief.Host.
func (h *Host) UserAgent() string { return h.userAgent }

// FallbackCapabilities implements relief.Host. Native builds have no GL
// context to query, so the documented default ceiling applies.
func (h *Host) FallbackCapabilities() relief.WebGLCaps { return relief.WebGLCaps{} }

// RequestAdapter opens (or adopts) a device and returns its limits.
// The result is cached; later calls return the same answer.
func (h *Host) RequestAdapter(ctx context.Context) (relief.Capabilities, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.caps != nil {
		return h.caps, nil
	}

	name, err := h.acquire()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		h.destroy()
		return nil, err
	}

	if h.preflight {
		if err := h.loadShaders(); err != nil {
			relief.Logger().Warn("gpu: shader preflight failed", "adapter", name, "err", err)
			h.destroy()
			h.caps = relief.Unavailable{Reason: err.Error()}
			return h.caps, nil
		}
	}

	h.caps = relief.WebGPUCaps{
		MaxTextureDimension: int(gputypes.DefaultLimits().MaxTextureDimension2D),
		Adapter:             name,
	}
	relief.Logger().Debug("gpu: adapter ready", "adapter", name, "external", h.external)
	return h.caps, nil
}

// acquire adopts the shared device or opens a new one. Must hold h.mu.
func (h *Host) acquire() (string, error) {
	if h.provider != nil {
		return h.adopt()
	}

	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return "", fmt.Errorf("gpu: vulkan backend not available")
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return "", fmt.Errorf("gpu: create instance: %w", err)
	}
	h.instance = instance

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		h.destroy()
		return "", fmt.Errorf("gpu: no adapters found")
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		h.destroy()
		return "", fmt.Errorf("gpu: open device: %w", err)
	}
	h.device = openDev.Device
	h.queue = openDev.Queue
	return selected.Info.Name, nil
}

func (h *Host) adopt() (string, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := h.provider.(halProvider)
	if !ok {
		return "", fmt.Errorf("gpu: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return "", fmt.Errorf("gpu: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return "", fmt.Errorf("gpu: provider HalQueue is not hal.Queue")
	}
	h.device = device
	h.queue = queue
	h.external = true
	return "shared", nil
}

// loadShaders compiles every relief shader and creates a module for it
// on the device. Must hold h.mu.
func (h *Host) loadShaders() error {
	for _, name := range shaders.Names() {
		if _, err := h.module(name); err != nil {
			return err
		}
	}
	return nil
}

// module returns the named shader module, creating it on first use.
// Must hold h.mu.
func (h *Host) module(name string) (hal.ShaderModule, error) {
	if m, ok := h.modules[name]; ok {
		return m, nil
	}
	code, err := shaders.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	m, err := h.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "relief_" + name,
		Source: hal.ShaderSource{SPIRV: code},
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create %s shader module: %w", name, err)
	}
	if h.modules == nil {
		h.modules = make(map[string]hal.ShaderModule)
	}
	h.modules[name] = m
	return m, nil
}

// destroy releases everything the host created. Must hold h.mu.
func (h *Host) destroy() {
	if h.device != nil {
		h.trail.destroy(h.device)
		for _, m := range h.modules {
			h.device.DestroyShaderModule(m)
		}
	}
	h.modules = nil
	if h.device != nil && !h.external {
		h.device.Destroy()
	}
	h.device = nil
	h.queue = nil
	h.external = false
	if h.instance != nil {
		h.instance.Destroy()
		h.instance = nil
	}
}

// Close releases the device, the shader modules and pipelines, and the
// instance. A shared
// device is left to its provider.
func (h *Host) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.destroy()
	h.caps = nil
}
