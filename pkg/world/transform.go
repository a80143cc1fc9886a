package world

import "github.com/go-gl/mathgl/mgl32"

// Transform places an entity: scale, then rotation, then translation.
type Transform struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
}

// Origin is the identity transform.
func Origin() Transform {
	return Transform{
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

// At returns t moved to p.
func (t Transform) At(p mgl32.Vec3) Transform {
	t.Position = p
	return t
}

// Rotated returns t with rotation q.
func (t Transform) Rotated(q mgl32.Quat) Transform {
	t.Rotation = q
	return t
}

// Scaled returns t with scale s.
func (t Transform) Scaled(s mgl32.Vec3) Transform {
	t.Scale = s
	return t
}

// Model returns the local-to-world matrix.
func (t Transform) Model() mgl32.Mat4 {
	return mgl32.Translate3D(t.Position[0], t.Position[1], t.Position[2]).
		Mul4(t.Rotation.Normalize().Mat4()).
		Mul4(mgl32.Scale3D(t.Scale[0], t.Scale[1], t.Scale[2]))
}

// InverseModel returns the world-to-local matrix.
func (t Transform) InverseModel() mgl32.Mat4 {
	return t.Model().Inv()
}

// InstanceUniform is the per-entity block read by the ray marcher.
type InstanceUniform struct {
	Model        mgl32.Mat4
	InverseModel mgl32.Mat4
	BoundsMin    mgl32.Vec3
	BoundsMax    mgl32.Vec3
}

// Instance builds the uniform for t around the local bounds of its tree.
func (t Transform) Instance(boundsMin, boundsMax mgl32.Vec3) InstanceUniform {
	m := t.Model()
	return InstanceUniform{
		Model:        m,
		InverseModel: m.Inv(),
		BoundsMin:    boundsMin,
		BoundsMax:    boundsMax,
	}
}

// Std140 packs the uniform as the shader's Instance struct.
func (u InstanceUniform) Std140() []byte {
	var w writer
	w.mat4(u.Model)
	w.mat4(u.InverseModel)
	w.vec3(u.BoundsMin)
	w.f32(0)
	w.vec3(u.BoundsMax)
	w.f32(0)
	return w.b
}
