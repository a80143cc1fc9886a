// Package renderer draws a world of CSG instances with the ray marching
// pipeline. Each instance is a proxy box rasterized over its bounds; the
// fragment stage marches the instance's tree and writes depth, so instances
// occlude each other correctly.
package renderer

import (
	"errors"
	"fmt"
	"slices"

	"github.com/chazu/morpheus/pkg/asset"
	"github.com/chazu/morpheus/pkg/config"
	"github.com/chazu/morpheus/pkg/gpu/wgpudev"
	"github.com/chazu/morpheus/pkg/logging"
	"github.com/chazu/morpheus/pkg/shader"
	"github.com/chazu/morpheus/pkg/world"
	"github.com/cogentcore/webgpu/wgpu"
)

const depthFormat = wgpu.TextureFormatDepth24Plus

// ErrSurface wraps surface acquisition failures.
var ErrSurface = errors.New("renderer: surface")

// Target is the window the renderer presents to.
type Target interface {
	SurfaceDescriptor() *wgpu.SurfaceDescriptor
	// FramebufferSize is the drawable size in pixels.
	FramebufferSize() (width, height int)
}

// Renderer owns the surface, the device and the ray marching pipeline.
type Renderer struct {
	target   Target
	cfg      config.Render
	instance *wgpu.Instance
	surface  *wgpu.Surface
	dev      *wgpudev.Device
	layouts  *wgpudev.Layouts

	format      wgpu.TextureFormat
	alphaMode   wgpu.CompositeAlphaMode
	presentMode wgpu.PresentMode
	width       uint32
	height      uint32

	module   *wgpu.ShaderModule
	pipeline *wgpu.RenderPipeline
	depth    *wgpu.Texture
	depthV   *wgpu.TextureView

	frame   *frameState
	skipped int
}

// New creates a renderer presenting to target.
func New(target Target, cfg config.Render) (_ *Renderer, err error) {
	r := &Renderer{
		target:      target,
		cfg:         cfg,
		instance:    wgpu.CreateInstance(nil),
		presentMode: presentMode(cfg.PresentMode),
	}
	defer func() {
		if err != nil {
			r.Release()
		}
	}()

	r.surface = r.instance.CreateSurface(target.SurfaceDescriptor())
	if r.surface == nil {
		return nil, fmt.Errorf("%w: create failed", ErrSurface)
	}
	r.dev, err = wgpudev.Open(r.instance, r.surface, wgpudev.Options{
		ForceFallbackAdapter: cfg.ForceFallbackAdapter,
		MaxBindGroups:        shader.GroupInstance + 1,
	})
	if err != nil {
		return nil, err
	}

	caps := r.surface.GetCapabilities(r.dev.Adapter())
	if len(caps.Formats) == 0 {
		return nil, fmt.Errorf("%w: no supported formats", ErrSurface)
	}
	r.format = pickFormat(caps.Formats)
	r.alphaMode = wgpu.CompositeAlphaModeAuto
	if len(caps.AlphaModes) > 0 {
		r.alphaMode = caps.AlphaModes[0]
	}

	if r.layouts, err = r.dev.CreateLayouts(); err != nil {
		return nil, err
	}
	if err = r.createPipeline(); err != nil {
		return nil, err
	}

	w, h := target.FramebufferSize()
	r.width, r.height = clampSize(w), clampSize(h)
	if err = r.configure(); err != nil {
		return nil, err
	}
	r.frame, err = newFrameState(r.dev, r.layouts.Frame, r.layouts.Instance, r.width, r.height)
	if err != nil {
		return nil, err
	}

	logging.Logger().Info("surface configured",
		"format", r.format,
		"present_mode", r.presentMode,
		"width", r.width,
		"height", r.height)
	return r, nil
}

func presentMode(name string) wgpu.PresentMode {
	switch name {
	case config.PresentImmediate:
		return wgpu.PresentModeImmediate
	case config.PresentMailbox:
		return wgpu.PresentModeMailbox
	}
	return wgpu.PresentModeFifo
}

var srgbFormats = []wgpu.TextureFormat{
	wgpu.TextureFormatBGRA8UnormSrgb,
	wgpu.TextureFormatRGBA8UnormSrgb,
}

// pickFormat prefers an sRGB format so shading stays linear.
func pickFormat(formats []wgpu.TextureFormat) wgpu.TextureFormat {
	for _, f := range formats {
		if slices.Contains(srgbFormats, f) {
			return f
		}
	}
	return formats[0]
}

func clampSize(n int) uint32 {
	if n < 1 {
		return 1
	}
	return uint32(n)
}

func (r *Renderer) createPipeline() error {
	src, err := shader.Source()
	if err != nil {
		return err
	}
	raw := r.dev.Raw()

	r.module, err = raw.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: "raymarch",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: src,
		},
	})
	if err != nil {
		return fmt.Errorf("renderer: compile shader: %w", err)
	}

	layout, err := raw.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "raymarch",
		BindGroupLayouts: r.layouts.Raw(),
	})
	if err != nil {
		return fmt.Errorf("renderer: create pipeline layout: %w", err)
	}
	defer layout.Release()

	r.pipeline, err = raw.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "raymarch",
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     r.module,
			EntryPoint: shader.VertexEntry,
		},
		Fragment: &wgpu.FragmentState{
			Module:     r.module,
			EntryPoint: shader.FragmentEntry,
			Targets: []wgpu.ColorTargetState{{
				Format:    r.format,
				Blend:     &wgpu.BlendStateReplace,
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		// The camera may sit inside a proxy box, so back faces must draw too.
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            depthFormat,
			DepthWriteEnabled: true,
			DepthCompare:      wgpu.CompareFunctionLess,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("renderer: create pipeline: %w", err)
	}
	return nil
}

// configure applies the current size to the surface and rebuilds the depth
// attachment.
func (r *Renderer) configure() error {
	r.surface.Configure(r.dev.Adapter(), r.dev.Raw(), &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      r.format,
		Width:       r.width,
		Height:      r.height,
		PresentMode: r.presentMode,
		AlphaMode:   r.alphaMode,
	})

	r.releaseDepth()
	depth, err := r.dev.Raw().CreateTexture(&wgpu.TextureDescriptor{
		Label: "depth",
		Size: wgpu.Extent3D{
			Width:              r.width,
			Height:             r.height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        depthFormat,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return fmt.Errorf("renderer: create depth texture: %w", err)
	}
	view, err := depth.CreateView(nil)
	if err != nil {
		depth.Release()
		return fmt.Errorf("renderer: create depth view: %w", err)
	}
	r.depth, r.depthV = depth, view
	return nil
}

func (r *Renderer) releaseDepth() {
	if r.depthV != nil {
		r.depthV.Release()
		r.depthV = nil
	}
	if r.depth != nil {
		r.depth.Release()
		r.depth = nil
	}
}

// NewAssets returns an asset manager bound to this renderer's layouts.
func (r *Renderer) NewAssets() *asset.Manager {
	return asset.NewManager(asset.Layouts{
		CSG:      r.layouts.CSG,
		Material: r.layouts.Material,
	})
}

// Size returns the configured surface size.
func (r *Renderer) Size() (width, height uint32) { return r.width, r.height }

// Resize reconfigures the surface. Zero sizes, as reported for minimized
// windows, are ignored.
func (r *Renderer) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return nil
	}
	w, h := uint32(width), uint32(height)
	if w == r.width && h == r.height {
		return nil
	}
	r.width, r.height = w, h
	if err := r.configure(); err != nil {
		return err
	}
	return r.frame.resize(w, h)
}

// Reconfigure re-applies the surface configuration after the surface was
// lost or became outdated, picking up the target's current size.
func (r *Renderer) Reconfigure() error {
	w, h := r.target.FramebufferSize()
	if w > 0 && h > 0 && (uint32(w) != r.width || uint32(h) != r.height) {
		return r.Resize(w, h)
	}
	return r.configure()
}

// Render draws one frame of w. The surface texture is acquired before any
// state changes, so a failed acquisition leaves assets staged for the next
// frame. Asset commit failures are returned wrapped in ErrCommit after the
// frame has been presented.
func (r *Renderer) Render(w *world.World, assets *asset.Manager) error {
	texture, err := r.surface.GetCurrentTexture()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSurface, err)
	}
	defer texture.Release()

	draws, commitErr := r.frame.prepare(w, assets)
	if commitErr != nil && !errors.Is(commitErr, ErrCommit) {
		return commitErr
	}

	view, err := texture.CreateView(nil)
	if err != nil {
		return fmt.Errorf("%w: create view: %w", ErrSurface, err)
	}
	defer view.Release()

	encoder, err := r.dev.Raw().CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("renderer: create command encoder: %w", err)
	}
	defer encoder.Release()

	cc := r.cfg.ClearColor
	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{R: cc[0], G: cc[1], B: cc[2], A: 1},
		}},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            r.depthV,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpDiscard,
			DepthClearValue: 1,
		},
	})
	pass.SetPipeline(r.pipeline)
	pass.SetBindGroup(shader.GroupFrame, wgpudev.RawBindGroup(r.frame.frameGroup), nil)
	for _, d := range draws {
		pass.SetBindGroup(shader.GroupMaterial, wgpudev.RawBindGroup(d.material), nil)
		pass.SetBindGroup(shader.GroupCSG, wgpudev.RawBindGroup(d.csg), nil)
		pass.SetBindGroup(shader.GroupInstance, wgpudev.RawBindGroup(d.instance), nil)
		pass.Draw(shader.ProxyVertices, 1, 0, 0)
	}
	pass.End()
	pass.Release()

	cmd, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("renderer: finish commands: %w", err)
	}
	defer cmd.Release()

	r.dev.Queue().Submit(cmd)
	r.surface.Present()
	return commitErr
}

// Frame renders one frame and applies the error policy: commit failures are
// logged and the frame counts as presented, lost or outdated surfaces are
// reconfigured, other failures skip the frame. Too many consecutive skipped
// frames, or an out of memory error, are fatal.
func (r *Renderer) Frame(w *world.World, assets *asset.Manager) (Action, error) {
	err := r.Render(w, assets)
	if errors.Is(err, ErrCommit) {
		logging.Logger().Warn("asset commit failed", "err", err)
		err = nil
	}

	action := Classify(err)
	switch action {
	case ActionNone:
		r.skipped = 0
		return action, nil
	case ActionReconfigure:
		logging.Logger().Warn("surface reconfigured", "err", err)
		if cerr := r.Reconfigure(); cerr != nil {
			return ActionFatal, errors.Join(err, cerr)
		}
	case ActionFatal:
		return action, err
	}

	r.skipped++
	if limit := r.cfg.MaxSkippedFrames; limit > 0 && r.skipped > limit {
		return ActionFatal, fmt.Errorf("renderer: %d consecutive frames failed: %w", r.skipped, err)
	}
	logging.Logger().Warn("frame skipped", "err", err, "skipped", r.skipped)
	return action, nil
}

// Release frees every device resource. Assets created by NewAssets must be
// closed first.
func (r *Renderer) Release() {
	if r.frame != nil {
		r.frame.release()
		r.frame = nil
	}
	r.releaseDepth()
	if r.pipeline != nil {
		r.pipeline.Release()
		r.pipeline = nil
	}
	if r.module != nil {
		r.module.Release()
		r.module = nil
	}
	if r.layouts != nil {
		r.layouts.Release()
		r.layouts = nil
	}
	if r.dev != nil {
		r.dev.Release()
		r.dev = nil
	}
	if r.surface != nil {
		r.surface.Release()
		r.surface = nil
	}
	if r.instance != nil {
		r.instance.Release()
		r.instance = nil
	}
}
