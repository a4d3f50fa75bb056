//go:build !nogpu

package gpu

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/themisreit/relief"
	"github.com/themisreit/relief/internal/shaders"
)

// trailParamsSize is the size of StepParams in trail.wgsl.
const trailParamsSize = 32

// trailWait bounds the fence wait of one step.
const trailWait = 5 * time.Second

// trailPipeline is the compute pipeline of the trail step, created on the
// first StepTrail.
type trailPipeline struct {
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.ComputePipeline
}

func (p *trailPipeline) ready() bool { return p.pipeline != nil }

func (p *trailPipeline) destroy(device hal.Device) {
	if p.pipeline != nil {
		device.DestroyComputePipeline(p.pipeline)
	}
	if p.pipeLayout != nil {
		device.DestroyPipelineLayout(p.pipeLayout)
	}
	if p.bindLayout != nil {
		device.DestroyBindGroupLayout(p.bindLayout)
	}
	*p = trailPipeline{}
}

// StepTrail implements relief.TrailKernel. It uploads buf, runs one
// compute pass over it and reads the result back. Before the device is
// open, or after the preflight marked it unusable, it returns
// relief.ErrFallbackToCPU.
func (h *Host) StepTrail(buf []float32, step relief.TrailStep) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.device == nil || h.queue == nil {
		return relief.ErrFallbackToCPU
	}
	if step.Width <= 0 || step.Height <= 0 || len(buf) < step.Width*step.Height {
		return fmt.Errorf("gpu: trail buffer %d too small for %dx%d", len(buf), step.Width, step.Height)
	}
	if !h.trail.ready() {
		if err := h.createTrailPipeline(); err != nil {
			return err
		}
	}
	return h.dispatchTrail(buf[:step.Width*step.Height], step)
}

// createTrailPipeline builds the bind group layout, pipeline layout and
// compute pipeline of the trail step. Must hold h.mu.
func (h *Host) createTrailPipeline() error {
	module, err := h.module(shaders.Trail)
	if err != nil {
		return err
	}

	p := &h.trail
	p.bindLayout, err = h.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "trail_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{Binding: 0, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
			{Binding: 1, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}},
		},
	})
	if err != nil {
		return fmt.Errorf("gpu: create trail bind group layout: %w", err)
	}

	p.pipeLayout, err = h.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label: "trail_pipe_layout", BindGroupLayouts: []hal.BindGroupLayout{p.bindLayout},
	})
	if err != nil {
		p.destroy(h.device)
		return fmt.Errorf("gpu: create trail pipeline layout: %w", err)
	}

	p.pipeline, err = h.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label: "trail_pipeline", Layout: p.pipeLayout,
		Compute: hal.ComputeState{Module: module, EntryPoint: "main"},
	})
	if err != nil {
		p.destroy(h.device)
		return fmt.Errorf("gpu: create trail compute pipeline: %w", err)
	}
	relief.Logger().Debug("gpu: trail pipeline ready")
	return nil
}

// dispatchTrail runs one step over buf. Must hold h.mu.
func (h *Host) dispatchTrail(buf []float32, step relief.TrailStep) error {
	w, ht := uint32(step.Width), uint32(step.Height) //nolint:gosec // checked positive by StepTrail
	size := uint64(len(buf) * 4)

	paramsBuf, err := h.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "trail_params", Size: trailParamsSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("gpu: create trail params buffer: %w", err)
	}
	defer h.device.DestroyBuffer(paramsBuf)

	storageBuf, err := h.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "trail_values", Size: size,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("gpu: create trail storage buffer: %w", err)
	}
	defer h.device.DestroyBuffer(storageBuf)

	stagingBuf, err := h.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "trail_staging", Size: size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("gpu: create trail staging buffer: %w", err)
	}
	defer h.device.DestroyBuffer(stagingBuf)

	h.queue.WriteBuffer(paramsBuf, 0, packTrailParams(step))
	h.queue.WriteBuffer(storageBuf, 0, packFloats(buf))

	bg, err := h.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label: "trail_bind", Layout: h.trail.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: paramsBuf.NativeHandle(), Offset: 0, Size: trailParamsSize}},
			{Binding: 1, Resource: gputypes.BufferBinding{Buffer: storageBuf.NativeHandle(), Offset: 0, Size: size}},
		},
	})
	if err != nil {
		return fmt.Errorf("gpu: create trail bind group: %w", err)
	}
	defer h.device.DestroyBindGroup(bg)

	encoder, err := h.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "trail_encoder"})
	if err != nil {
		return fmt.Errorf("gpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("trail_step"); err != nil {
		return fmt.Errorf("gpu: begin encoding: %w", err)
	}
	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "trail_pass"})
	pass.SetPipeline(h.trail.pipeline)
	pass.SetBindGroup(0, bg, nil)
	pass.Dispatch((w+7)/8, (ht+7)/8, 1)
	pass.End()
	encoder.CopyBufferToBuffer(storageBuf, stagingBuf, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: size},
	})
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("gpu: end encoding: %w", err)
	}
	defer h.device.FreeCommandBuffer(cmdBuf)

	fence, err := h.device.CreateFence()
	if err != nil {
		return fmt.Errorf("gpu: create fence: %w", err)
	}
	defer h.device.DestroyFence(fence)
	if err := h.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("gpu: submit trail step: %w", err)
	}
	ok, err := h.device.Wait(fence, 1, trailWait)
	if err != nil {
		return fmt.Errorf("gpu: wait for trail step: %w", err)
	}
	if !ok {
		return fmt.Errorf("gpu: trail step timed out after %s", trailWait)
	}

	readback := make([]byte, size)
	if err := h.queue.ReadBuffer(stagingBuf, 0, readback); err != nil {
		return fmt.Errorf("gpu: read trail buffer: %w", err)
	}
	unpackFloats(readback, buf)
	return nil
}

// packTrailParams lays out StepParams: size (2×u32), fade, intensity,
// center (vec2), radius, ceiling.
func packTrailParams(s relief.TrailStep) []byte {
	b := make([]byte, trailParamsSize)
	le := binary.LittleEndian
	le.PutUint32(b[0:], uint32(s.Width))  //nolint:gosec // positive
	le.PutUint32(b[4:], uint32(s.Height)) //nolint:gosec // positive
	le.PutUint32(b[8:], math.Float32bits(s.Fade))
	le.PutUint32(b[12:], math.Float32bits(s.Intensity))
	le.PutUint32(b[16:], math.Float32bits(s.CenterX))
	le.PutUint32(b[20:], math.Float32bits(s.CenterY))
	le.PutUint32(b[24:], math.Float32bits(s.Radius))
	le.PutUint32(b[28:], math.Float32bits(s.Ceiling))
	return b
}

func packFloats(v []float32) []byte {
	b := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(f))
	}
	return b
}

func unpackFloats(b []byte, dst []float32) {
	for i := range dst {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
}
