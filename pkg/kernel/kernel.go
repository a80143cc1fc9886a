// Package kernel defines the CPU geometry kernel used next to the GPU ray
// marcher: bounding boxes for proxy geometry, reference distances for tests
// and preview meshes. Backends (sdfx) implement Kernel; Build maps a CSG
// object onto any backend.
package kernel

import "github.com/go-gl/mathgl/mgl32"

// Solid is an opaque handle to a kernel solid.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
	// Distance returns the signed distance from p to the surface.
	Distance(p [3]float64) float64
}

// Kernel is the abstract geometry kernel. Primitives are centered at the
// origin.
type Kernel interface {
	// Primitives
	Sphere(radius float64) (Solid, error)
	Box(x, y, z float64) (Solid, error)

	// Boolean operations
	Union(a, b Solid) Solid
	Difference(a, b Solid) Solid
	Intersection(a, b Solid) Solid

	// Transforms
	Translate(s Solid, x, y, z float64) Solid
	Rotate(s Solid, q mgl32.Quat) Solid

	// Mesh output
	ToMesh(s Solid) (*Mesh, error)
}
