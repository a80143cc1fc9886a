package world

import "github.com/go-gl/mathgl/mgl32"

// DirectionalLight is a light at infinity shining along Direction.
type DirectionalLight struct {
	Direction   mgl32.Vec3
	Color       mgl32.Vec3
	Intensity   float32
	CastsShadow bool
}

// DefaultSun is a white light from above and behind the default camera.
func DefaultSun() DirectionalLight {
	return DirectionalLight{
		Direction:   mgl32.Vec3{-0.4, -1, -0.6}.Normalize(),
		Color:       mgl32.Vec3{1, 1, 1},
		Intensity:   1,
		CastsShadow: true,
	}
}

// Std140 packs the light as the shader's Sun struct.
func (l DirectionalLight) Std140() []byte {
	var w writer
	dir := l.Direction
	if dir.Len() > 0 {
		dir = dir.Normalize()
	}
	w.vec3(dir)
	if l.CastsShadow {
		w.u32(1)
	} else {
		w.u32(0)
	}
	w.vec3(l.Color)
	w.f32(l.Intensity)
	return w.b
}

// ScreenResolution is the framebuffer size block read by the ray marcher.
type ScreenResolution struct {
	Width, Height uint32
}

// Std140 packs the resolution as the shader's Screen struct.
func (s ScreenResolution) Std140() []byte {
	var w writer
	w.u32(s.Width)
	w.u32(s.Height)
	return w.b
}
