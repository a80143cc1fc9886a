package renderer

import (
	"errors"
	"fmt"

	"github.com/chazu/morpheus/pkg/asset"
	"github.com/chazu/morpheus/pkg/gpu"
	"github.com/chazu/morpheus/pkg/logging"
	"github.com/chazu/morpheus/pkg/shader"
	"github.com/chazu/morpheus/pkg/world"
	"github.com/go-gl/mathgl/mgl32"
)

// ErrCommit wraps asset commit failures. The frame is still drawn with the
// assets that are resident.
var ErrCommit = errors.New("renderer: asset commit failed")

// draw is one proxy box draw with its bind groups in shader group order.
type draw struct {
	entity   world.EntityID
	material gpu.BindGroup
	csg      gpu.BindGroup
	instance gpu.BindGroup
}

type instance struct {
	uniform   *Uniform[world.InstanceUniform]
	bindGroup gpu.BindGroup
	seen      bool
}

func (i *instance) release() {
	i.bindGroup.Release()
	i.uniform.Release()
}

// frameState holds the device-side per-frame data: the frame uniforms and
// one instance block per drawn entity. It only needs a gpu.Device.
type frameState struct {
	dev            gpu.Device
	instanceLayout gpu.BindGroupLayout

	camera     *Uniform[world.CameraUniform]
	screen     *Uniform[world.ScreenResolution]
	sun        *Uniform[world.DirectionalLight]
	frameGroup gpu.BindGroup

	lastCamera world.Camera
	cameraSet  bool
	size       world.ScreenResolution

	instances map[world.EntityID]*instance
}

func newFrameState(dev gpu.Device, frameLayout, instanceLayout gpu.BindGroupLayout, width, height uint32) (*frameState, error) {
	f := &frameState{
		dev:            dev,
		instanceLayout: instanceLayout,
		size:           world.ScreenResolution{Width: width, Height: height},
		instances:      make(map[world.EntityID]*instance),
	}

	var err error
	if f.camera, err = NewUniform(dev, "camera", world.NewCamera(mgl32.Vec3{}).Uniform(world.Aspect(width, height))); err != nil {
		return nil, err
	}
	if f.screen, err = NewUniform(dev, "screen resolution", f.size); err != nil {
		f.release()
		return nil, err
	}
	if f.sun, err = NewUniform(dev, "sun", world.DefaultSun()); err != nil {
		f.release()
		return nil, err
	}
	f.frameGroup, err = dev.CreateBindGroup("frame", frameLayout, []gpu.BindGroupEntry{
		{Binding: shader.BindingCamera, Buffer: f.camera.Buffer()},
		{Binding: shader.BindingScreen, Buffer: f.screen.Buffer()},
		{Binding: shader.BindingSun, Buffer: f.sun.Buffer()},
	})
	if err != nil {
		f.release()
		return nil, fmt.Errorf("renderer: create frame bind group: %w", err)
	}
	return f, nil
}

// resize updates the screen block. The camera block follows on the next
// prepare since its aspect ratio changed.
func (f *frameState) resize(width, height uint32) error {
	f.size = world.ScreenResolution{Width: width, Height: height}
	f.cameraSet = false
	return f.screen.Set(f.dev, f.size)
}

// prepare commits staged assets, uploads changed frame and instance data and
// returns the draws for w. Commit failures are returned wrapped in ErrCommit
// together with the draws of everything resident.
func (f *frameState) prepare(w *world.World, assets *asset.Manager) ([]draw, error) {
	var commitErr error
	if err := assets.Reload(f.dev); err != nil {
		commitErr = fmt.Errorf("%w: %w", ErrCommit, err)
	}

	if !f.cameraSet || w.Camera != f.lastCamera {
		if err := f.camera.Set(f.dev, w.Camera.Uniform(world.Aspect(f.size.Width, f.size.Height))); err != nil {
			return nil, fmt.Errorf("renderer: write camera: %w", err)
		}
		f.lastCamera, f.cameraSet = w.Camera, true
	}
	if w.LightsDirty() {
		if err := f.sun.Set(f.dev, w.Sun); err != nil {
			return nil, fmt.Errorf("renderer: write sun: %w", err)
		}
		w.MarkLightsClean()
	}

	for _, inst := range f.instances {
		inst.seen = false
	}

	var draws []draw
	for e := range w.Renderables() {
		tree, ok := assets.CSG.Get(e.Renderable.CSG)
		if !ok || tree.Empty() {
			continue
		}
		mat, ok := assets.Materials.Get(e.Renderable.Material)
		if !ok {
			if mat, ok = assets.Materials.Get(asset.DefaultMaterialKey); !ok {
				continue
			}
		}

		lo, hi := tree.Bounds()
		block := e.Transform.Instance(lo, hi)
		inst, created, err := f.instance(e.ID, block)
		if err != nil {
			return nil, err
		}
		if !created && (w.IsDirty(e.ID) || inst.uniform.Value() != block) {
			if err := inst.uniform.Set(f.dev, block); err != nil {
				return nil, fmt.Errorf("renderer: write instance %d: %w", e.ID, err)
			}
		}
		w.MarkClean(e.ID)
		inst.seen = true

		draws = append(draws, draw{
			entity:   e.ID,
			material: mat.BindGroup(),
			csg:      tree.BindGroup(),
			instance: inst.bindGroup,
		})
	}

	for id, inst := range f.instances {
		if !inst.seen {
			inst.release()
			delete(f.instances, id)
		}
	}

	return draws, commitErr
}

// instance returns the block for id, creating it with block as contents.
func (f *frameState) instance(id world.EntityID, block world.InstanceUniform) (*instance, bool, error) {
	if inst, ok := f.instances[id]; ok {
		return inst, false, nil
	}
	label := fmt.Sprintf("instance %d", id)
	u, err := NewUniform(f.dev, label, block)
	if err != nil {
		return nil, false, err
	}
	bg, err := f.dev.CreateBindGroup(label, f.instanceLayout, []gpu.BindGroupEntry{
		{Binding: 0, Buffer: u.Buffer()},
	})
	if err != nil {
		u.Release()
		return nil, false, fmt.Errorf("renderer: create %s bind group: %w", label, err)
	}
	inst := &instance{uniform: u, bindGroup: bg}
	f.instances[id] = inst
	logging.Logger().Debug("instance created", "entity", id)
	return inst, true, nil
}

func (f *frameState) release() {
	for id, inst := range f.instances {
		inst.release()
		delete(f.instances, id)
	}
	if f.frameGroup != nil {
		f.frameGroup.Release()
		f.frameGroup = nil
	}
	f.camera.Release()
	f.screen.Release()
	f.sun.Release()
}
