package wgpudev

import (
	"fmt"

	"github.com/chazu/morpheus/pkg/csgbuf"
	"github.com/chazu/morpheus/pkg/gpunode"
	"github.com/chazu/morpheus/pkg/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// Layout is a bind group layout created by a Device.
type Layout struct {
	label string
	raw   *wgpu.BindGroupLayout
}

func (l *Layout) Label() string { return l.label }

// Raw returns the wgpu layout.
func (l *Layout) Raw() *wgpu.BindGroupLayout { return l.raw }

// Release frees the layout.
func (l *Layout) Release() {
	if l.raw != nil {
		l.raw.Release()
		l.raw = nil
	}
}

// Layouts are the bind group layouts of the ray marching pipeline, one per
// shader group.
type Layouts struct {
	Frame    *Layout
	Material *Layout
	CSG      *Layout
	Instance *Layout
}

const visibility = wgpu.ShaderStageVertex | wgpu.ShaderStageFragment

func uniformEntry(binding uint32, size uint64) wgpu.BindGroupLayoutEntry {
	return wgpu.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: visibility,
		Buffer: wgpu.BufferBindingLayout{
			Type:           wgpu.BufferBindingTypeUniform,
			MinBindingSize: size,
		},
	}
}

// descriptors returns the layout descriptors indexed by shader group.
func descriptors() [4]wgpu.BindGroupLayoutDescriptor {
	var d [4]wgpu.BindGroupLayoutDescriptor
	d[shader.GroupFrame] = wgpu.BindGroupLayoutDescriptor{
		Label: "frame layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			uniformEntry(shader.BindingCamera, shader.CameraSize),
			uniformEntry(shader.BindingScreen, shader.ScreenSize),
			uniformEntry(shader.BindingSun, shader.SunSize),
		},
	}
	d[shader.GroupMaterial] = wgpu.BindGroupLayoutDescriptor{
		Label:   "material layout",
		Entries: []wgpu.BindGroupLayoutEntry{uniformEntry(0, shader.MaterialSize)},
	}
	d[shader.GroupCSG] = wgpu.BindGroupLayoutDescriptor{
		Label: "csg layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    csgbuf.BindingNodes,
				Visibility: visibility,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeReadOnlyStorage,
					MinBindingSize: gpunode.RecordSize,
				},
			},
			uniformEntry(csgbuf.BindingHeader, gpunode.HeaderSize),
		},
	}
	d[shader.GroupInstance] = wgpu.BindGroupLayoutDescriptor{
		Label:   "instance layout",
		Entries: []wgpu.BindGroupLayoutEntry{uniformEntry(0, shader.InstanceSize)},
	}
	return d
}

// CreateLayouts creates the pipeline's bind group layouts.
func (d *Device) CreateLayouts() (*Layouts, error) {
	var made [4]*Layout
	for i, desc := range descriptors() {
		raw, err := d.device.CreateBindGroupLayout(&desc)
		if err != nil {
			for _, l := range made[:i] {
				l.Release()
			}
			return nil, fmt.Errorf("wgpudev: create %s: %w", desc.Label, err)
		}
		made[i] = &Layout{label: desc.Label, raw: raw}
	}
	return &Layouts{
		Frame:    made[shader.GroupFrame],
		Material: made[shader.GroupMaterial],
		CSG:      made[shader.GroupCSG],
		Instance: made[shader.GroupInstance],
	}, nil
}

// Raw returns the wgpu layouts in group order, for the pipeline layout.
func (l *Layouts) Raw() []*wgpu.BindGroupLayout {
	out := make([]*wgpu.BindGroupLayout, 4)
	out[shader.GroupFrame] = l.Frame.raw
	out[shader.GroupMaterial] = l.Material.raw
	out[shader.GroupCSG] = l.CSG.raw
	out[shader.GroupInstance] = l.Instance.raw
	return out
}

// Release frees every layout.
func (l *Layouts) Release() {
	l.Frame.Release()
	l.Material.Release()
	l.CSG.Release()
	l.Instance.Release()
}
