// Package csgbuf owns the device storage holding an encoded CSG tree: the
// node record buffer, the node-count header and the bind group exposing both
// to the ray marcher.
package csgbuf

import (
	"errors"
	"fmt"

	"github.com/chazu/morpheus/pkg/gpu"
	"github.com/chazu/morpheus/pkg/gpunode"
	"github.com/chazu/morpheus/pkg/logging"
)

// Bindings inside the CSG bind group.
const (
	BindingNodes  = 0
	BindingHeader = 1
)

var (
	// ErrPayloadSize is returned when the payload does not hold exactly the
	// declared number of records.
	ErrPayloadSize = errors.New("csgbuf: payload size does not match node count")
	// ErrReleased is returned by Update after Release.
	ErrReleased = errors.New("csgbuf: buffer released")
)

// Buffer is the device-side storage of one encoded tree.
type Buffer struct {
	layout    gpu.BindGroupLayout
	label     string
	nodes     gpu.Buffer
	header    gpu.Buffer
	bindGroup gpu.BindGroup
	capacity  uint32
	count     uint32
	reallocs  int
}

// Create allocates storage sized exactly to payload, a header holding count
// and the bind group over both.
func Create(dev gpu.Device, layout gpu.BindGroupLayout, label string, payload []byte, count uint32) (*Buffer, error) {
	if err := checkPayload(payload, count); err != nil {
		return nil, err
	}

	header, err := dev.CreateBuffer(label+" header", gpunode.HeaderSize, gpu.UsageUniform|gpu.UsageCopyDst)
	if err != nil {
		return nil, fmt.Errorf("csgbuf: create header: %w", err)
	}
	b := &Buffer{layout: layout, label: label, header: header}

	nodes, bg, err := b.allocate(dev, payload)
	if err != nil {
		header.Release()
		return nil, err
	}
	if err := dev.WriteBuffer(header, 0, gpunode.EncodeHeader(count)); err != nil {
		bg.Release()
		nodes.Release()
		header.Release()
		return nil, fmt.Errorf("csgbuf: write header: %w", err)
	}

	b.nodes, b.bindGroup = nodes, bg
	b.capacity, b.count = count, count
	logging.Logger().Debug("csg buffer created", "label", label, "nodes", count, "bytes", len(payload))
	return b, nil
}

// Update replaces the buffer contents with payload. When the current
// allocation holds at least count records it is rewritten in place from
// offset 0; otherwise a new allocation sized to payload replaces it and the
// bind group is rebuilt. The header is always rewritten in place.
//
// On failure the header keeps the previous count and the previous allocation
// and bind group stay in use. A failed in-place node write restores the
// previous count.
func (b *Buffer) Update(dev gpu.Device, payload []byte, count uint32) error {
	if b.header == nil {
		return ErrReleased
	}
	if err := checkPayload(payload, count); err != nil {
		return err
	}

	if count <= b.capacity {
		if err := b.writeHeader(dev, count); err != nil {
			return err
		}
		if err := dev.WriteBuffer(b.nodes, 0, payload); err != nil {
			err = fmt.Errorf("csgbuf: write nodes: %w", err)
			if rerr := b.writeHeader(dev, b.count); rerr != nil {
				return errors.Join(err, rerr)
			}
			return err
		}
		b.count = count
		return nil
	}

	nodes, bg, err := b.allocate(dev, payload)
	if err != nil {
		return err
	}
	if err := b.writeHeader(dev, count); err != nil {
		bg.Release()
		nodes.Release()
		return err
	}
	b.bindGroup.Release()
	b.nodes.Release()
	b.nodes, b.bindGroup = nodes, bg
	b.capacity, b.count = count, count
	b.reallocs++
	logging.Logger().Debug("csg buffer reallocated", "label", b.label, "capacity", count)
	return nil
}

func (b *Buffer) writeHeader(dev gpu.Device, count uint32) error {
	if err := dev.WriteBuffer(b.header, 0, gpunode.EncodeHeader(count)); err != nil {
		return fmt.Errorf("csgbuf: write header: %w", err)
	}
	return nil
}

func (b *Buffer) allocate(dev gpu.Device, payload []byte) (gpu.Buffer, gpu.BindGroup, error) {
	nodes, err := dev.CreateBuffer(b.label+" nodes", uint64(len(payload)), gpu.UsageStorage|gpu.UsageCopyDst)
	if err != nil {
		return nil, nil, fmt.Errorf("csgbuf: create nodes: %w", err)
	}
	if err := dev.WriteBuffer(nodes, 0, payload); err != nil {
		nodes.Release()
		return nil, nil, fmt.Errorf("csgbuf: write nodes: %w", err)
	}
	bg, err := dev.CreateBindGroup(b.label, b.layout, []gpu.BindGroupEntry{
		{Binding: BindingNodes, Buffer: nodes},
		{Binding: BindingHeader, Buffer: b.header},
	})
	if err != nil {
		nodes.Release()
		return nil, nil, fmt.Errorf("csgbuf: create bind group: %w", err)
	}
	return nodes, bg, nil
}

func checkPayload(payload []byte, count uint32) error {
	if count == 0 || uint64(len(payload)) != uint64(count)*gpunode.RecordSize {
		return fmt.Errorf("%w: %d bytes for %d nodes", ErrPayloadSize, len(payload), count)
	}
	return nil
}

// Capacity is the number of records the current allocation can hold.
func (b *Buffer) Capacity() uint32 { return b.capacity }

// Count is the node count last written to the header.
func (b *Buffer) Count() uint32 { return b.count }

// Reallocations counts updates that needed a new allocation.
func (b *Buffer) Reallocations() int { return b.reallocs }

// BindGroup returns the bind group to set before drawing.
func (b *Buffer) BindGroup() gpu.BindGroup { return b.bindGroup }

// Release frees all device resources. Safe to call more than once.
func (b *Buffer) Release() {
	if b.header == nil {
		return
	}
	b.bindGroup.Release()
	b.nodes.Release()
	b.header.Release()
	b.bindGroup, b.nodes, b.header = nil, nil, nil
}
