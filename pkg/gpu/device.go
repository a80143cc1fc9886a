// Package gpu defines the device operations the CSG core needs from its
// environment. Device and surface acquisition, pipelines and presentation
// live elsewhere (see wgpudev and renderer).
package gpu

import (
	"errors"
	"strings"
)

var (
	// ErrReleased is returned when a released resource is used.
	ErrReleased = errors.New("gpu: resource already released")
	// ErrOutOfBounds is returned for writes past the end of a buffer.
	ErrOutOfBounds = errors.New("gpu: write exceeds buffer size")
	// ErrForeignResource is returned when a handle from another device is passed in.
	ErrForeignResource = errors.New("gpu: resource belongs to a different device")
)

// BufferUsage is a bit set of buffer usages.
type BufferUsage uint32

const (
	UsageCopyDst BufferUsage = 1 << iota
	UsageUniform
	UsageStorage
	UsageVertex
)

func (u BufferUsage) String() string {
	var parts []string
	names := []string{"copy-dst", "uniform", "storage", "vertex"}
	for i, n := range names {
		if u&(1<<i) != 0 {
			parts = append(parts, n)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Buffer is a device buffer handle.
type Buffer interface {
	Size() uint64
	Release()
}

// BindGroup is a set of resources bound together for a shader stage.
type BindGroup interface {
	Release()
}

// BindGroupLayout describes the shape of a bind group. It is created by the
// device owner and passed to the core opaquely.
type BindGroupLayout interface {
	Label() string
}

// BindGroupEntry binds a whole buffer at a binding index.
type BindGroupEntry struct {
	Binding uint32
	Buffer  Buffer
}

// Device is the device context the core depends on.
type Device interface {
	// CreateBuffer allocates a zeroed buffer of size bytes.
	CreateBuffer(label string, size uint64, usage BufferUsage) (Buffer, error)
	// WriteBuffer queues a write of data at offset. Writes become visible to
	// command buffers submitted afterwards.
	WriteBuffer(buf Buffer, offset uint64, data []byte) error
	// CreateBindGroup binds entries against layout.
	CreateBindGroup(label string, layout BindGroupLayout, entries []BindGroupEntry) (BindGroup, error)
}

// AlignedSize rounds n up to the 4-byte granularity required for buffer
// sizes and writes.
func AlignedSize(n uint64) uint64 {
	return (n + 3) &^ 3
}
