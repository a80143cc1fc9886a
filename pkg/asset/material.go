package asset

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/chazu/morpheus/pkg/gpu"
	"github.com/chazu/morpheus/pkg/shader"
	"github.com/go-gl/mathgl/mgl32"
)

// DefaultMaterialKey is the material used by entities that name none.
const DefaultMaterialKey Key = 0

// MaterialAsset is a surface description in a uniform buffer.
type MaterialAsset struct {
	Albedo    mgl32.Vec3
	Roughness float32

	label     string
	buf       gpu.Buffer
	bindGroup gpu.BindGroup
}

// NewMaterial returns a material for loading. Roughness is clamped to [0, 1].
func NewMaterial(label string, albedo mgl32.Vec3, roughness float32) *MaterialAsset {
	return &MaterialAsset{
		Albedo:    albedo,
		Roughness: min(max(roughness, 0), 1),
		label:     label,
	}
}

// DefaultMaterial is a light grey, half rough surface.
func DefaultMaterial() *MaterialAsset {
	return NewMaterial("default material", mgl32.Vec3{0.8, 0.8, 0.8}, 0.5)
}

// Std140 packs the material as the shader's Material struct.
func (m *MaterialAsset) Std140() []byte {
	b := make([]byte, 0, shader.MaterialSize)
	for _, v := range [4]float32{m.Albedo[0], m.Albedo[1], m.Albedo[2], m.Roughness} {
		b = binary.NativeEndian.AppendUint32(b, math.Float32bits(v))
	}
	return b
}

// Commit uploads the material, reusing prev's buffer and bind group when
// there is one.
func (m *MaterialAsset) Commit(ctx Context, prev *MaterialAsset) error {
	if prev != nil && prev.buf != nil {
		if err := ctx.Device.WriteBuffer(prev.buf, 0, m.Std140()); err != nil {
			return fmt.Errorf("material: write: %w", err)
		}
		buf, bg := prev.buf, prev.bindGroup
		prev.buf, prev.bindGroup = nil, nil
		m.buf, m.bindGroup = buf, bg
		return nil
	}

	buf, err := ctx.Device.CreateBuffer(m.label, shader.MaterialSize, gpu.UsageUniform|gpu.UsageCopyDst)
	if err != nil {
		return fmt.Errorf("material: create buffer: %w", err)
	}
	if err := ctx.Device.WriteBuffer(buf, 0, m.Std140()); err != nil {
		buf.Release()
		return fmt.Errorf("material: write: %w", err)
	}
	bg, err := ctx.Device.CreateBindGroup(m.label, ctx.Layouts.Material, []gpu.BindGroupEntry{
		{Binding: 0, Buffer: buf},
	})
	if err != nil {
		buf.Release()
		return fmt.Errorf("material: create bind group: %w", err)
	}
	m.Release()
	m.buf, m.bindGroup = buf, bg
	return nil
}

// Release frees the uniform buffer and bind group.
func (m *MaterialAsset) Release() {
	if m.bindGroup != nil {
		m.bindGroup.Release()
		m.bindGroup = nil
	}
	if m.buf != nil {
		m.buf.Release()
		m.buf = nil
	}
}

// BindGroup returns the bind group, nil before the first commit.
func (m *MaterialAsset) BindGroup() gpu.BindGroup { return m.bindGroup }
