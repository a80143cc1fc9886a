package renderer

import (
	"fmt"

	"github.com/chazu/morpheus/pkg/gpu"
)

// Std140 is a value with a fixed uniform block encoding.
type Std140 interface {
	Std140() []byte
}

// Uniform is a uniform buffer holding one value of T.
type Uniform[T Std140] struct {
	buf   gpu.Buffer
	value T
}

// NewUniform allocates a buffer sized to v's encoding and writes v.
func NewUniform[T Std140](dev gpu.Device, label string, v T) (*Uniform[T], error) {
	data := v.Std140()
	buf, err := dev.CreateBuffer(label, uint64(len(data)), gpu.UsageUniform|gpu.UsageCopyDst)
	if err != nil {
		return nil, fmt.Errorf("renderer: create %s: %w", label, err)
	}
	if err := dev.WriteBuffer(buf, 0, data); err != nil {
		buf.Release()
		return nil, fmt.Errorf("renderer: write %s: %w", label, err)
	}
	return &Uniform[T]{buf: buf, value: v}, nil
}

// Set writes v into the buffer.
func (u *Uniform[T]) Set(dev gpu.Device, v T) error {
	if err := dev.WriteBuffer(u.buf, 0, v.Std140()); err != nil {
		return err
	}
	u.value = v
	return nil
}

// Value returns the last value written.
func (u *Uniform[T]) Value() T { return u.value }

// Buffer returns the device buffer.
func (u *Uniform[T]) Buffer() gpu.Buffer { return u.buf }

// Release frees the buffer. A nil Uniform is a no-op.
func (u *Uniform[T]) Release() {
	if u != nil && u.buf != nil {
		u.buf.Release()
		u.buf = nil
	}
}
