package kernel

import (
	"fmt"

	"github.com/chazu/morpheus/pkg/csg"
	"github.com/go-gl/mathgl/mgl32"
)

// Build maps obj onto k. The object is binarized first so the kernel sees the
// same tree as the GPU evaluator. An empty object returns a nil Solid.
func Build(k Kernel, obj csg.Object) (Solid, error) {
	tree, err := csg.Binarize(obj)
	if err != nil {
		return nil, err
	}
	if tree == nil {
		return nil, nil
	}
	return build(k, tree, tree.Root())
}

func build(k Kernel, tree *csg.BinaryTree, id uint32) (Solid, error) {
	n := tree.Node(id)
	if n.IsLeaf() {
		return primitive(k, n.Primitive)
	}

	left, err := build(k, tree, n.Left)
	if err != nil {
		return nil, err
	}
	right, err := build(k, tree, n.Right)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case csg.OpUnion:
		return k.Union(left, right), nil
	case csg.OpIntersection:
		return k.Intersection(left, right), nil
	case csg.OpDifference:
		return k.Difference(left, right), nil
	}
	return nil, fmt.Errorf("kernel: node %d has unknown op %v", n.ID, n.Op)
}

func primitive(k Kernel, p csg.Primitive) (Solid, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("kernel: %w", err)
	}

	var s Solid
	var err error
	switch p.Kind {
	case csg.KindSphere:
		s, err = k.Sphere(float64(p.Radius))
	case csg.KindCube:
		s, err = k.Box(float64(p.Size[0]), float64(p.Size[1]), float64(p.Size[2]))
		if err == nil && p.Rotation != mgl32.QuatIdent() {
			s = k.Rotate(s, p.Rotation)
		}
	}
	if err != nil {
		return nil, err
	}

	if p.Offset != (mgl32.Vec3{}) {
		s = k.Translate(s, float64(p.Offset[0]), float64(p.Offset[1]), float64(p.Offset[2]))
	}
	return s, nil
}

// Bounds returns the bounding box of obj. Empty objects have an empty box at
// the origin.
func Bounds(k Kernel, obj csg.Object) (min, max mgl32.Vec3, err error) {
	s, err := Build(k, obj)
	if err != nil || s == nil {
		return min, max, err
	}
	lo, hi := s.BoundingBox()
	for i := 0; i < 3; i++ {
		min[i] = float32(lo[i])
		max[i] = float32(hi[i])
	}
	return min, max, nil
}
