// Package tessellate turns a scene into triangle meshes using a geometry
// kernel. One mesh is produced per scene object, in world space.
package tessellate

import (
	"fmt"

	"github.com/chazu/morpheus/pkg/csg"
	"github.com/chazu/morpheus/pkg/kernel"
	"github.com/chazu/morpheus/pkg/logging"
	"github.com/chazu/morpheus/pkg/scene"
	"github.com/chazu/morpheus/pkg/world"
	"github.com/go-gl/mathgl/mgl32"
)

// Tessellate produces one mesh per object of sc using k. Objects that are
// empty after simplification produce no mesh. The scene is never mutated.
func Tessellate(sc *scene.Scene, k kernel.Kernel) ([]*kernel.Mesh, error) {
	if sc == nil {
		return nil, nil
	}

	var meshes []*kernel.Mesh
	for _, e := range sc.Objects {
		mesh, err := Entry(e, k)
		if err != nil {
			return nil, fmt.Errorf("tessellate: %s: %w", e.Name, err)
		}
		if mesh == nil {
			logging.Logger().Debug("skipping empty object", "name", e.Name)
			continue
		}
		meshes = append(meshes, mesh)
	}
	return meshes, nil
}

// Entry meshes a single scene object with its transform applied. It returns
// a nil mesh for an empty object.
func Entry(e scene.Entry, k kernel.Kernel) (*kernel.Mesh, error) {
	solid, err := kernel.Build(k, Place(e.Object, e.Transform))
	if err != nil {
		return nil, err
	}
	if solid == nil {
		return nil, nil
	}

	mesh, err := k.ToMesh(solid)
	if err != nil {
		return nil, fmt.Errorf("ToMesh failed: %w", err)
	}
	mesh.Name = e.Name
	return mesh, nil
}

// Place bakes t into the primitives of obj: scale first, then rotation, then
// translation, matching Transform.Model. Spheres under a non-uniform scale
// take the largest component.
func Place(obj csg.Object, t world.Transform) csg.Object {
	if obj == nil {
		return nil
	}
	scale := t.Scale
	if scale == (mgl32.Vec3{}) {
		scale = mgl32.Vec3{1, 1, 1}
	}
	rot := t.Rotation
	if rot == (mgl32.Quat{}) {
		rot = mgl32.QuatIdent()
	}
	rot = rot.Normalize()

	return csg.MapPrimitives(obj, func(p csg.Primitive) csg.Primitive {
		off := mgl32.Vec3{p.Offset[0] * scale[0], p.Offset[1] * scale[1], p.Offset[2] * scale[2]}
		p = p.Scaled(scale)
		p = p.At(rot.Rotate(off)).Rotated(rot)
		return p.At(p.Offset.Add(t.Position))
	})
}
