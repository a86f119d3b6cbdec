//go:build !nogpu

package gpu

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/pixsort"
	"github.com/gogpu/pixsort/internal/bitonic"
)

const (
	// paramsSize is the byte size of the Params uniform in bitonic.wgsl.
	paramsSize = 32

	// paramsStride is the offset between per-stage uniforms, matching the
	// default minUniformBufferOffsetAlignment.
	paramsStride = 256
)

// Sorter runs the bitonic network on a wgpu/hal device.
//
// All channels of a call share one key buffer and one payload buffer, each
// channel padded to the same power-of-two width. Every stage is one compute
// pass over the whole buffer; a single submission and fence wait covers the
// entire sort.
//
// A Sorter is safe for concurrent use; dispatches are serialised.
type Sorter struct {
	mu   sync.Mutex
	opts options

	device hal.Device
	queue  hal.Queue
	owned  *Device // set when the Sorter opened the device itself

	shader     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.ComputePipeline
}

// OpenSorter opens a device with Open and builds a Sorter that owns it.
func OpenSorter(opts ...Option) (*Sorter, error) {
	dev, err := Open()
	if err != nil {
		return nil, err
	}
	s, err := NewSorter(dev.Device, dev.Queue, opts...)
	if err != nil {
		dev.Close()
		return nil, err
	}
	s.owned = dev
	return s, nil
}

// NewSorter builds a Sorter on an existing device and queue. The caller keeps
// ownership of both.
func NewSorter(device hal.Device, queue hal.Queue, opts ...Option) (*Sorter, error) {
	if device == nil || queue == nil {
		return nil, fmt.Errorf("%w: nil device or queue", ErrNoDevice)
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	s := &Sorter{opts: o, device: device, queue: queue}
	if err := s.createPipeline(); err != nil {
		s.destroyPipeline()
		return nil, err
	}
	slogger().Info("gpu: bitonic pipeline ready", "workgroup", WorkgroupSize)
	return s, nil
}

// NewSorterFromProvider builds a Sorter on a device shared by a host
// application. The provider must also implement HalDevice() any and
// HalQueue() any returning hal.Device and hal.Queue.
func NewSorterFromProvider(provider gpucontext.DeviceProvider, opts ...Option) (*Sorter, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, fmt.Errorf("%w: provider does not expose HAL types", ErrNoDevice)
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: provider HalDevice is not hal.Device", ErrNoDevice)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: provider HalQueue is not hal.Queue", ErrNoDevice)
	}
	return NewSorter(device, queue, opts...)
}

// Name identifies the backend in verification reports.
func (s *Sorter) Name() string { return "gpu" }

// TieBreak returns the configured tie-break mode.
func (s *Sorter) TieBreak() pixsort.TieBreak { return s.opts.tieBreak }

// Close releases the pipeline, and the device when the Sorter owns it.
func (s *Sorter) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.destroyPipeline()
	if s.owned != nil {
		s.owned.Close()
		s.owned = nil
	}
	s.device = nil
	s.queue = nil
}

// Sort returns offsets ordered by ascending value.
func (s *Sorter) Sort(ctx context.Context, values []float32, offsets []uint32) ([]uint32, error) {
	return s.SortMultiChannel(ctx, [][]float32{values}, offsets, 1)
}

// SortMultiChannel sorts each channel independently and returns the
// channel-major flattened offsets, laid out as pixsort.SortMultiChannel.
func (s *Sorter) SortMultiChannel(ctx context.Context, channels [][]float32, offsets []uint32, channelCount int) ([]uint32, error) {
	if err := pixsort.ValidateShape(channels, offsets, channelCount); err != nil {
		return nil, err
	}
	sorted, err := s.SortChannels(ctx, channels, offsets)
	if err != nil {
		return nil, err
	}
	return pixsort.Unpack(sorted)
}

// SortChannels sorts each channel and returns the sorted values and offsets
// per channel, in input order.
func (s *Sorter) SortChannels(ctx context.Context, channels [][]float32, offsets []uint32) ([]pixsort.Channel, error) {
	width := bitonic.NextPowerOfTwo(len(offsets))
	total := width * len(channels)
	if (total+WorkgroupSize-1)/WorkgroupSize > maxWorkgroups {
		return nil, fmt.Errorf("%w: %d channels of width %d", ErrTooLarge, len(channels), width)
	}

	packed, err := pixsort.Pack(channels, offsets)
	if err != nil {
		return nil, err
	}
	if s.opts.nan == pixsort.NaNReject {
		if err := rejectNaN(packed); err != nil {
			return nil, err
		}
	}
	if len(offsets) == 0 {
		return packed, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	nan := bitonic.NaNLast
	if s.opts.nan == pixsort.NaNFirst {
		nan = bitonic.NaNFirst
	}
	keys, payloads := packChannels(packed, width, nan)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.device == nil {
		return nil, ErrClosed
	}

	start := time.Now()
	if err := s.dispatch(ctx, keys, payloads, uint32(width)); err != nil { //nolint:gosec // width bounded by ErrTooLarge check
		return nil, err
	}
	slogger().Debug("gpu: channels sorted",
		"channels", len(packed),
		"length", len(offsets),
		"padded", width,
		"stages", bitonic.StageCount(width),
		"elapsed", time.Since(start))

	l := len(offsets)
	for c := range packed {
		base := c * width
		for i := range l {
			packed[c].Values[i] = bitonic.Value(keys[base+i])
			packed[c].Offsets[i] = payloads[base+i]
		}
	}
	return packed, nil
}

func rejectNaN(channels []pixsort.Channel) error {
	for c, ch := range channels {
		for i, v := range ch.Values {
			if v != v {
				return fmt.Errorf("%w: channel %d index %d", pixsort.ErrNaNValue, c, i)
			}
		}
	}
	return nil
}

// dispatch uploads keys and payloads, runs every stage and reads both arrays
// back in place.
func (s *Sorter) dispatch(ctx context.Context, keys, payloads []uint32, width uint32) error {
	stages := bitonic.Stages(int(width))
	bufSize := uint64(len(keys)) * 4

	keysBuf, err := s.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "bitonic_keys", Size: bufSize,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("gpu: create keys buffer: %w", err)
	}
	defer s.device.DestroyBuffer(keysBuf)

	payloadsBuf, err := s.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "bitonic_payloads", Size: bufSize,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("gpu: create payloads buffer: %w", err)
	}
	defer s.device.DestroyBuffer(payloadsBuf)

	stagingBuf, err := s.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "bitonic_staging", Size: bufSize * 2,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("gpu: create staging buffer: %w", err)
	}
	defer s.device.DestroyBuffer(stagingBuf)

	paramsBuf, err := s.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "bitonic_params", Size: uint64(len(stages)) * paramsStride,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("gpu: create params buffer: %w", err)
	}
	defer s.device.DestroyBuffer(paramsBuf)

	s.queue.WriteBuffer(keysBuf, 0, wordsToBytes(keys))
	s.queue.WriteBuffer(payloadsBuf, 0, wordsToBytes(payloads))
	s.queue.WriteBuffer(paramsBuf, 0, makeStageParams(stages, width, uint32(len(keys)), s.opts.tieBreak == pixsort.TieBreakOffset)) //nolint:gosec // total bounded by ErrTooLarge check

	bindGroups, err := s.createStageBindings(len(stages), paramsBuf, keysBuf, payloadsBuf, bufSize)
	defer s.destroyBindGroups(bindGroups)
	if err != nil {
		return err
	}

	encoder, err := s.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "bitonic_encoder"})
	if err != nil {
		return fmt.Errorf("gpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("bitonic_sort"); err != nil {
		return fmt.Errorf("gpu: begin encoding: %w", err)
	}

	groups := (uint32(len(keys)) + WorkgroupSize - 1) / WorkgroupSize //nolint:gosec // bounded by ErrTooLarge check
	for _, bg := range bindGroups {
		pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "bitonic_stage"})
		pass.SetPipeline(s.pipeline)
		pass.SetBindGroup(0, bg, nil)
		pass.Dispatch(groups, 1, 1)
		pass.End()
	}

	encoder.CopyBufferToBuffer(keysBuf, stagingBuf, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: bufSize},
	})
	encoder.CopyBufferToBuffer(payloadsBuf, stagingBuf, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: bufSize, Size: bufSize},
	})
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("gpu: end encoding: %w", err)
	}
	defer s.device.FreeCommandBuffer(cmdBuf)

	if err := ctx.Err(); err != nil {
		return err
	}

	fence, err := s.device.CreateFence()
	if err != nil {
		return fmt.Errorf("gpu: create fence: %w", err)
	}
	defer s.device.DestroyFence(fence)
	if err := s.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("gpu: submit: %w", err)
	}
	fenceOK, err := s.device.Wait(fence, 1, s.opts.fenceTimeout)
	if err != nil {
		return fmt.Errorf("gpu: wait for device: %w", err)
	}
	if !fenceOK {
		return fmt.Errorf("%w after %v", ErrTimeout, s.opts.fenceTimeout)
	}

	readback := make([]byte, bufSize*2)
	if err := s.queue.ReadBuffer(stagingBuf, 0, readback); err != nil {
		return fmt.Errorf("gpu: readback: %w", err)
	}
	bytesToWords(readback[:bufSize], keys)
	bytesToWords(readback[bufSize:], payloads)
	return nil
}

// createStageBindings creates one bind group per stage, each viewing its own
// slice of the params buffer.
func (s *Sorter) createStageBindings(n int, paramsBuf, keysBuf, payloadsBuf hal.Buffer, bufSize uint64) ([]hal.BindGroup, error) {
	bindGroups := make([]hal.BindGroup, 0, n)
	for i := range n {
		bg, err := s.device.CreateBindGroup(&hal.BindGroupDescriptor{
			Label: "bitonic_bind", Layout: s.bindLayout,
			Entries: []gputypes.BindGroupEntry{
				{Binding: 0, Resource: gputypes.BufferBinding{Buffer: paramsBuf.NativeHandle(), Offset: uint64(i) * paramsStride, Size: paramsSize}},
				{Binding: 1, Resource: gputypes.BufferBinding{Buffer: keysBuf.NativeHandle(), Offset: 0, Size: bufSize}},
				{Binding: 2, Resource: gputypes.BufferBinding{Buffer: payloadsBuf.NativeHandle(), Offset: 0, Size: bufSize}},
			},
		})
		if err != nil {
			return bindGroups, fmt.Errorf("gpu: create bind group for stage %d: %w", i, err)
		}
		bindGroups = append(bindGroups, bg)
	}
	return bindGroups, nil
}

func (s *Sorter) destroyBindGroups(bindGroups []hal.BindGroup) {
	for _, bg := range bindGroups {
		if bg != nil {
			s.device.DestroyBindGroup(bg)
		}
	}
}

func (s *Sorter) createPipeline() error {
	spirv, err := CompileSPIRV(BitonicShader())
	if err != nil {
		return err
	}
	shader, err := s.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "bitonic",
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return fmt.Errorf("gpu: create shader module: %w", err)
	}
	s.shader = shader

	bindLayout, err := s.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "bitonic_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{Binding: 0, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
			{Binding: 1, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}},
			{Binding: 2, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}},
		},
	})
	if err != nil {
		return fmt.Errorf("gpu: create bind group layout: %w", err)
	}
	s.bindLayout = bindLayout

	pipeLayout, err := s.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label: "bitonic_pipe_layout", BindGroupLayouts: []hal.BindGroupLayout{s.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("gpu: create pipeline layout: %w", err)
	}
	s.pipeLayout = pipeLayout

	pipeline, err := s.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label: "bitonic_pipeline", Layout: s.pipeLayout,
		Compute: hal.ComputeState{Module: s.shader, EntryPoint: "main"},
	})
	if err != nil {
		return fmt.Errorf("gpu: create compute pipeline: %w", err)
	}
	s.pipeline = pipeline
	return nil
}

func (s *Sorter) destroyPipeline() {
	if s.device == nil {
		return
	}
	if s.pipeline != nil {
		s.device.DestroyComputePipeline(s.pipeline)
		s.pipeline = nil
	}
	if s.pipeLayout != nil {
		s.device.DestroyPipelineLayout(s.pipeLayout)
		s.pipeLayout = nil
	}
	if s.bindLayout != nil {
		s.device.DestroyBindGroupLayout(s.bindLayout)
		s.bindLayout = nil
	}
	if s.shader != nil {
		s.device.DestroyShaderModule(s.shader)
		s.shader = nil
	}
}

// packChannels lays channels out back to back, each padded to width.
func packChannels(channels []pixsort.Channel, width int, nan bitonic.NaNOrder) (keys, payloads []uint32) {
	keys = make([]uint32, 0, width*len(channels))
	payloads = make([]uint32, 0, width*len(channels))
	for _, ch := range channels {
		k, p := bitonic.Pad(bitonic.Keys(ch.Values, nan), ch.Offsets)
		keys = append(keys, k...)
		payloads = append(payloads, p...)
	}
	return keys, payloads
}

// makeStageParams packs one Params uniform per stage at paramsStride
// intervals.
func makeStageParams(stages []bitonic.Stage, width, total uint32, tieBreak bool) []byte {
	var tb uint32
	if tieBreak {
		tb = 1
	}
	buf := make([]byte, len(stages)*paramsStride)
	for i, st := range stages {
		b := buf[i*paramsStride:]
		binary.LittleEndian.PutUint32(b[0:], st.K)
		binary.LittleEndian.PutUint32(b[4:], st.J)
		binary.LittleEndian.PutUint32(b[8:], width)
		binary.LittleEndian.PutUint32(b[12:], total)
		binary.LittleEndian.PutUint32(b[16:], tb)
	}
	return buf
}

func wordsToBytes(words []uint32) []byte {
	b := make([]byte, len(words)*4)
	for i, w := range words {
		binary.LittleEndian.PutUint32(b[i*4:], w)
	}
	return b
}

func bytesToWords(b []byte, dst []uint32) {
	for i := range dst {
		dst[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
}
