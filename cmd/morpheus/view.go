package main

import (
	"context"
	"runtime"

	"github.com/chazu/morpheus/pkg/logging"
	"github.com/chazu/morpheus/pkg/renderer"
	"github.com/chazu/morpheus/pkg/scene"
	"github.com/chazu/morpheus/pkg/world"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spf13/cobra"
)

// glfw calls must come from the main thread.
func init() { runtime.LockOSThread() }

// window adapts a glfw window to renderer.Target.
type window struct {
	*glfw.Window

	// windowed geometry restored when leaving fullscreen
	x, y, w, h int
}

func (w *window) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return wgpuglfw.GetSurfaceDescriptor(w.Window)
}

func (w *window) FramebufferSize() (int, int) { return w.GetFramebufferSize() }

func (w *window) toggleFullscreen() {
	if m := w.GetMonitor(); m != nil {
		w.SetMonitor(nil, w.x, w.y, w.w, w.h, 0)
		return
	}
	w.x, w.y = w.GetPos()
	w.w, w.h = w.GetSize()
	m := glfw.GetPrimaryMonitor()
	if m == nil {
		return
	}
	mode := m.GetVideoMode()
	w.SetMonitor(m, 0, 0, mode.Width, mode.Height, mode.RefreshRate)
}

func defaultCamera() world.Camera {
	return world.NewCamera(mgl32.Vec3{0, 2, 8}).LookAt(mgl32.Vec3{})
}

func newViewCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "view FILE",
		Short: "Open a window on a scene and reload it when the file changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return view(cmd.Context(), opts, args[0])
		},
	}
}

func view(ctx context.Context, opts *options, path string) error {
	ld := newLoader(opts.cfg)
	sc, err := ld.load(path)
	if err != nil {
		return err
	}

	if err := glfw.Init(); err != nil {
		return err
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	gw, err := glfw.CreateWindow(opts.cfg.Window.Width, opts.cfg.Window.Height, opts.cfg.Window.Title, nil, nil)
	if err != nil {
		return err
	}
	defer gw.Destroy()
	win := &window{Window: gw}

	r, err := renderer.New(win, opts.cfg.Render)
	if err != nil {
		return err
	}
	defer r.Release()
	assets := r.NewAssets()
	defer assets.Close()

	w := world.New(defaultCamera())
	sync := scene.NewSync(w, assets)
	sync.Apply(sc)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	reloads, err := watch(ctx, ld, path)
	if err != nil {
		return err
	}

	gw.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		if err := r.Resize(width, height); err != nil {
			logging.Logger().Warn("resize failed", "err", err)
		}
	})
	gw.SetKeyCallback(func(gw *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if action != glfw.Press {
			return
		}
		switch key {
		case glfw.KeyEscape:
			gw.SetShouldClose(true)
		case glfw.KeyF:
			win.toggleFullscreen()
		}
	})

	for !gw.ShouldClose() {
		if ctx.Err() != nil {
			return nil
		}
		glfw.PollEvents()

		select {
		case sc := <-reloads:
			sync.Apply(sc)
		default:
		}

		action, err := r.Frame(w, assets)
		if action == renderer.ActionFatal {
			return err
		}
	}
	return nil
}
