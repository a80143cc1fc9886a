package world

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Camera defaults.
const (
	DefaultFovY  = 1.5
	DefaultPitch = -0.3
	DefaultNear  = 0.1
)

// Camera is a perspective camera. View is the camera's orientation; it looks
// down its local -Z axis.
type Camera struct {
	Position mgl32.Vec3
	View     mgl32.Quat
	FovY     float32
	Near     float32
}

// NewCamera returns a camera at p looking slightly downwards.
func NewCamera(p mgl32.Vec3) Camera {
	return Camera{
		Position: p,
		View:     mgl32.QuatRotate(DefaultPitch, mgl32.Vec3{1, 0, 0}),
		FovY:     DefaultFovY,
		Near:     DefaultNear,
	}
}

// LookAt returns c oriented towards target with +Y up.
func (c Camera) LookAt(target mgl32.Vec3) Camera {
	dir := target.Sub(c.Position)
	if dir.Len() == 0 {
		return c
	}
	dir = dir.Normalize()
	rot := mgl32.QuatBetweenVectors(mgl32.Vec3{0, 0, -1}, dir)

	// Remove the roll so the camera's up stays in the plane of dir and +Y.
	right := dir.Cross(mgl32.Vec3{0, 1, 0})
	if right.Len() < 1e-6 {
		c.View = rot
		return c
	}
	want := right.Normalize().Cross(dir)
	have := rot.Rotate(mgl32.Vec3{0, 1, 0})
	c.View = mgl32.QuatBetweenVectors(have, want).Mul(rot).Normalize()
	return c
}

// Aspect returns width/height, or 1 for a zero height.
func Aspect(width, height uint32) float32 {
	if height == 0 {
		return 1
	}
	return float32(width) / float32(height)
}

// Projection returns an infinite right-handed perspective projection with
// depth in [0, 1], 0 at the near plane.
func (c Camera) Projection(aspect float32) mgl32.Mat4 {
	f := float32(1 / math.Tan(float64(c.FovY)/2))
	var m mgl32.Mat4
	m[0] = f / aspect
	m[5] = f
	m[10] = -1
	m[11] = -1
	m[14] = -c.Near
	return m
}

// ViewMatrix returns the world-to-camera matrix.
func (c Camera) ViewMatrix() mgl32.Mat4 {
	toWorld := mgl32.Translate3D(c.Position[0], c.Position[1], c.Position[2]).Mul4(c.View.Normalize().Mat4())
	return toWorld.Inv()
}

// CameraUniform is the camera block read by the ray marcher.
type CameraUniform struct {
	ProjView mgl32.Mat4
	InvRot   mgl32.Mat4
	Position mgl32.Vec3
	FovY     float32
}

// Uniform builds the shader block for the given viewport aspect ratio.
func (c Camera) Uniform(aspect float32) CameraUniform {
	return CameraUniform{
		ProjView: c.Projection(aspect).Mul4(c.ViewMatrix()),
		InvRot:   c.View.Normalize().Conjugate().Mat4(),
		Position: c.Position,
		FovY:     c.FovY,
	}
}

// Std140 packs the uniform as the shader's Camera struct.
func (u CameraUniform) Std140() []byte {
	var w writer
	w.mat4(u.ProjView)
	w.mat4(u.InvRot)
	w.vec3(u.Position)
	w.f32(u.FovY)
	return w.b
}
