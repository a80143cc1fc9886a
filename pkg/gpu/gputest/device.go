// Package gputest provides an in-memory gpu.Device that records every call,
// for tests of code that allocates and writes device buffers.
package gputest

import (
	"fmt"
	"sync"

	"github.com/chazu/morpheus/pkg/gpu"
)

// Compile-time interface checks.
var (
	_ gpu.Device          = (*Device)(nil)
	_ gpu.Buffer          = (*Buffer)(nil)
	_ gpu.BindGroup       = (*BindGroup)(nil)
	_ gpu.BindGroupLayout = Layout("")
)

// Layout is a named bind group layout.
type Layout string

func (l Layout) Label() string { return string(l) }

// Buffer is a host-memory buffer.
type Buffer struct {
	dev      *Device
	ID       int
	Label    string
	Usage    gpu.BufferUsage
	Data     []byte
	Released bool
}

func (b *Buffer) Size() uint64 { return uint64(len(b.Data)) }

func (b *Buffer) Release() {
	b.dev.mu.Lock()
	defer b.dev.mu.Unlock()
	if !b.Released {
		b.Released = true
		b.dev.Releases++
	}
}

// BindGroup records the buffers it was created with.
type BindGroup struct {
	ID       int
	Label    string
	Layout   gpu.BindGroupLayout
	Entries  []gpu.BindGroupEntry
	Released bool
}

func (g *BindGroup) Release() { g.Released = true }

// Write is one recorded WriteBuffer call.
type Write struct {
	BufferID int
	Offset   uint64
	Len      int
}

// Device records allocations, writes and bind groups. FailAfter makes the
// n-th following CreateBuffer call fail, and FailWrite, when set, is asked
// before each write and fails it by returning an error. Both are for
// error-path tests.
type Device struct {
	mu         sync.Mutex
	Buffers    []*Buffer
	BindGroups []*BindGroup
	Writes     []Write
	Releases   int
	FailAfter  int
	FailWrite  func(w Write) error
	calls      int
}

// New returns an empty recording device.
func New() *Device { return &Device{FailAfter: -1} }

func (d *Device) CreateBuffer(label string, size uint64, usage gpu.BufferUsage) (gpu.Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.FailAfter >= 0 {
		if d.calls == d.FailAfter {
			d.calls++
			return nil, fmt.Errorf("gputest: injected allocation failure for %q", label)
		}
		d.calls++
	}
	b := &Buffer{
		dev:   d,
		ID:    len(d.Buffers),
		Label: label,
		Usage: usage,
		Data:  make([]byte, gpu.AlignedSize(size)),
	}
	d.Buffers = append(d.Buffers, b)
	return b, nil
}

func (d *Device) WriteBuffer(buf gpu.Buffer, offset uint64, data []byte) error {
	b, ok := buf.(*Buffer)
	if !ok || b.dev != d {
		return gpu.ErrForeignResource
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if b.Released {
		return gpu.ErrReleased
	}
	if offset+uint64(len(data)) > uint64(len(b.Data)) {
		return fmt.Errorf("%w: %d+%d > %d", gpu.ErrOutOfBounds, offset, len(data), len(b.Data))
	}
	w := Write{BufferID: b.ID, Offset: offset, Len: len(data)}
	if d.FailWrite != nil {
		if err := d.FailWrite(w); err != nil {
			return err
		}
	}
	copy(b.Data[offset:], data)
	d.Writes = append(d.Writes, w)
	return nil
}

func (d *Device) CreateBindGroup(label string, layout gpu.BindGroupLayout, entries []gpu.BindGroupEntry) (gpu.BindGroup, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, e := range entries {
		b, ok := e.Buffer.(*Buffer)
		if !ok || b.dev != d {
			return nil, gpu.ErrForeignResource
		}
		if b.Released {
			return nil, gpu.ErrReleased
		}
	}
	g := &BindGroup{
		ID:      len(d.BindGroups),
		Label:   label,
		Layout:  layout,
		Entries: append([]gpu.BindGroupEntry(nil), entries...),
	}
	d.BindGroups = append(d.BindGroups, g)
	return g, nil
}

// Live returns the buffers that have not been released.
func (d *Device) Live() []*Buffer {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []*Buffer
	for _, b := range d.Buffers {
		if !b.Released {
			out = append(out, b)
		}
	}
	return out
}

// ResetWrites clears the recorded writes.
func (d *Device) ResetWrites() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Writes = nil
}
