// Package wgpudev implements gpu.Device over github.com/cogentcore/webgpu and
// owns adapter and device acquisition for the renderer.
package wgpudev

import (
	"errors"
	"fmt"

	"github.com/chazu/morpheus/pkg/gpu"
	"github.com/chazu/morpheus/pkg/logging"
	"github.com/cogentcore/webgpu/wgpu"
)

var (
	// ErrNoAdapter is returned when no adapter is compatible with the surface.
	ErrNoAdapter = errors.New("wgpudev: no compatible adapter")
	// ErrRequestDevice is returned when the adapter refuses to create a device.
	ErrRequestDevice = errors.New("wgpudev: request device failed")
)

// Compile-time interface checks.
var (
	_ gpu.Device          = (*Device)(nil)
	_ gpu.Buffer          = (*buffer)(nil)
	_ gpu.BindGroup       = (*bindGroup)(nil)
	_ gpu.BindGroupLayout = (*Layout)(nil)
)

// Options control adapter selection.
type Options struct {
	ForceFallbackAdapter bool
	// MaxBindGroups raises the device limit when non-zero.
	MaxBindGroups uint32
}

// Device is an acquired adapter, device and queue.
type Device struct {
	adapter *wgpu.Adapter
	device  *wgpu.Device
	queue   *wgpu.Queue
}

// Open requests an adapter able to present to surface and a device on it.
func Open(instance *wgpu.Instance, surface *wgpu.Surface, opts Options) (*Device, error) {
	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: opts.ForceFallbackAdapter,
		CompatibleSurface:    surface,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoAdapter, err)
	}
	if adapter == nil {
		return nil, ErrNoAdapter
	}

	limits := wgpu.DefaultLimits()
	if opts.MaxBindGroups > limits.MaxBindGroups {
		limits.MaxBindGroups = opts.MaxBindGroups
	}
	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "morpheus device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: limits,
		},
	})
	if err != nil {
		adapter.Release()
		return nil, fmt.Errorf("%w: %w", ErrRequestDevice, err)
	}

	logging.Logger().Info("device acquired", "fallback", opts.ForceFallbackAdapter, "max_bind_groups", limits.MaxBindGroups)

	return &Device{
		adapter: adapter,
		device:  device,
		queue:   device.GetQueue(),
	}, nil
}

// Adapter returns the underlying adapter.
func (d *Device) Adapter() *wgpu.Adapter { return d.adapter }

// Raw returns the underlying device.
func (d *Device) Raw() *wgpu.Device { return d.device }

// Queue returns the device queue.
func (d *Device) Queue() *wgpu.Queue { return d.queue }

// Release frees the device and adapter.
func (d *Device) Release() {
	if d.queue != nil {
		d.queue.Release()
		d.queue = nil
	}
	if d.device != nil {
		d.device.Release()
		d.device = nil
	}
	if d.adapter != nil {
		d.adapter.Release()
		d.adapter = nil
	}
}

type buffer struct {
	owner *Device
	raw   *wgpu.Buffer
	size  uint64
}

func (b *buffer) Size() uint64 { return b.size }

func (b *buffer) Release() {
	if b.raw != nil {
		b.raw.Release()
		b.raw = nil
	}
}

type bindGroup struct {
	raw *wgpu.BindGroup
}

func (g *bindGroup) Release() {
	if g.raw != nil {
		g.raw.Release()
		g.raw = nil
	}
}

// RawBindGroup returns the wgpu bind group behind g, or nil when g was not
// created by a Device.
func RawBindGroup(g gpu.BindGroup) *wgpu.BindGroup {
	if bg, ok := g.(*bindGroup); ok {
		return bg.raw
	}
	return nil
}

func usage(u gpu.BufferUsage) wgpu.BufferUsage {
	var out wgpu.BufferUsage
	if u&gpu.UsageCopyDst != 0 {
		out |= wgpu.BufferUsageCopyDst
	}
	if u&gpu.UsageUniform != 0 {
		out |= wgpu.BufferUsageUniform
	}
	if u&gpu.UsageStorage != 0 {
		out |= wgpu.BufferUsageStorage
	}
	if u&gpu.UsageVertex != 0 {
		out |= wgpu.BufferUsageVertex
	}
	return out
}

func (d *Device) CreateBuffer(label string, size uint64, u gpu.BufferUsage) (gpu.Buffer, error) {
	size = gpu.AlignedSize(size)
	raw, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: usage(u),
	})
	if err != nil {
		return nil, fmt.Errorf("wgpudev: create buffer %q: %w", label, err)
	}
	return &buffer{owner: d, raw: raw, size: size}, nil
}

func (d *Device) WriteBuffer(buf gpu.Buffer, offset uint64, data []byte) error {
	b, ok := buf.(*buffer)
	if !ok || b.owner != d {
		return gpu.ErrForeignResource
	}
	if b.raw == nil {
		return gpu.ErrReleased
	}
	if offset+uint64(len(data)) > b.size {
		return fmt.Errorf("%w: %d+%d > %d", gpu.ErrOutOfBounds, offset, len(data), b.size)
	}
	if len(data)%4 != 0 {
		padded := make([]byte, gpu.AlignedSize(uint64(len(data))))
		copy(padded, data)
		data = padded
	}
	return d.queue.WriteBuffer(b.raw, offset, data)
}

func (d *Device) CreateBindGroup(label string, layout gpu.BindGroupLayout, entries []gpu.BindGroupEntry) (gpu.BindGroup, error) {
	l, ok := layout.(*Layout)
	if !ok {
		return nil, gpu.ErrForeignResource
	}
	raw := make([]wgpu.BindGroupEntry, len(entries))
	for i, e := range entries {
		b, ok := e.Buffer.(*buffer)
		if !ok || b.owner != d {
			return nil, gpu.ErrForeignResource
		}
		if b.raw == nil {
			return nil, gpu.ErrReleased
		}
		raw[i] = wgpu.BindGroupEntry{
			Binding: e.Binding,
			Buffer:  b.raw,
			Offset:  0,
			Size:    wgpu.WholeSize,
		}
	}
	bg, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   label,
		Layout:  l.raw,
		Entries: raw,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpudev: create bind group %q: %w", label, err)
	}
	return &bindGroup{raw: bg}, nil
}
