// Package csg defines the constructive solid geometry object model and the
// binarizer that normalizes n-ary boolean trees into binary trees for the
// ray-marching evaluator.
//
// Objects are values. Builders never mutate their receiver, so a primitive or
// operation can be shared between several trees.
package csg

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Object is either a Primitive or an Op. The set is closed.
type Object interface {
	isObject()
}

// PrimitiveKind tags the shape stored in a Primitive.
type PrimitiveKind uint8

const (
	KindSphere PrimitiveKind = iota + 1
	KindCube
)

func (k PrimitiveKind) String() string {
	switch k {
	case KindSphere:
		return "sphere"
	case KindCube:
		return "cube"
	}
	return fmt.Sprintf("PrimitiveKind(%d)", uint8(k))
}

// Primitive is a leaf shape. Radius is meaningful for spheres; Rotation and
// Size for cubes. Size is the full edge length on each axis.
type Primitive struct {
	Kind     PrimitiveKind
	Offset   mgl32.Vec3
	Radius   float32
	Rotation mgl32.Quat
	Size     mgl32.Vec3
}

func (Primitive) isObject() {}

// Sphere returns a sphere of the given radius centered at the origin.
func Sphere(radius float32) Primitive {
	return Primitive{Kind: KindSphere, Radius: radius, Rotation: mgl32.QuatIdent()}
}

// Cube returns an axis-aligned box with the given edge lengths, centered at
// the origin.
func Cube(size mgl32.Vec3) Primitive {
	return Primitive{Kind: KindCube, Size: size, Rotation: mgl32.QuatIdent()}
}

// At returns a copy of p centered at offset.
func (p Primitive) At(offset mgl32.Vec3) Primitive {
	p.Offset = offset
	return p
}

// Rotated returns a copy of p with q composed onto its orientation. The
// offset is unchanged. Rotating a sphere is a no-op.
func (p Primitive) Rotated(q mgl32.Quat) Primitive {
	if p.Kind == KindCube {
		p.Rotation = q.Mul(p.Rotation).Normalize()
	}
	return p
}

// Scaled returns a copy of p scaled in its local frame. Spheres stay spheres:
// the radius is scaled by the largest component.
func (p Primitive) Scaled(s mgl32.Vec3) Primitive {
	switch p.Kind {
	case KindSphere:
		p.Radius *= maxComponent(s)
	case KindCube:
		p.Size = mgl32.Vec3{p.Size[0] * s[0], p.Size[1] * s[1], p.Size[2] * s[2]}
	}
	return p
}

// Validate reports primitives the evaluator cannot render.
func (p Primitive) Validate() error {
	if !finite(p.Offset[:]...) {
		return fmt.Errorf("%s: offset is not finite", p.Kind)
	}
	switch p.Kind {
	case KindSphere:
		if !finite(p.Radius) || p.Radius <= 0 {
			return fmt.Errorf("sphere: radius must be positive, got %g", p.Radius)
		}
	case KindCube:
		if !finite(p.Size[:]...) || p.Size[0] <= 0 || p.Size[1] <= 0 || p.Size[2] <= 0 {
			return fmt.Errorf("cube: size must be positive, got %v", p.Size)
		}
		if !finite(p.Rotation.W, p.Rotation.V[0], p.Rotation.V[1], p.Rotation.V[2]) || p.Rotation.Len() == 0 {
			return fmt.Errorf("cube: invalid rotation %v", p.Rotation)
		}
	default:
		return fmt.Errorf("unknown primitive kind %d", p.Kind)
	}
	return nil
}

// OpKind is the boolean operation of an Op.
type OpKind uint8

const (
	OpUnion OpKind = iota + 1
	OpIntersection
	OpDifference
)

func (k OpKind) String() string {
	switch k {
	case OpUnion:
		return "union"
	case OpIntersection:
		return "intersection"
	case OpDifference:
		return "difference"
	}
	return fmt.Sprintf("OpKind(%d)", uint8(k))
}

// Op is an n-ary boolean operation over ordered children. An Op with no
// children is empty and denotes no geometry.
type Op struct {
	Kind     OpKind
	Children []Object
}

func (Op) isObject() {}

func newOp(kind OpKind, children []Object) Op {
	c := make([]Object, len(children))
	copy(c, children)
	return Op{Kind: kind, Children: c}
}

// Union returns the union of children.
func Union(children ...Object) Op { return newOp(OpUnion, children) }

// Intersection returns the intersection of children.
func Intersection(children ...Object) Op { return newOp(OpIntersection, children) }

// Difference returns the first child minus every following child, in order.
func Difference(children ...Object) Op { return newOp(OpDifference, children) }

// Empty returns an operation of the given kind with no children.
func Empty(kind OpKind) Op { return Op{Kind: kind} }

// IsEmpty reports whether the op has no children at all. Nested empties are
// resolved by Binarize.
func (o Op) IsEmpty() bool { return len(o.Children) == 0 }

// Translated returns a copy of o with every descendant primitive moved by v.
func (o Op) Translated(v mgl32.Vec3) Op {
	return o.mapPrimitives(func(p Primitive) Primitive {
		return p.At(p.Offset.Add(v))
	})
}

// Rotated returns a copy of o rotated by q about the origin: offsets are
// rotated and cube orientations composed with q.
func (o Op) Rotated(q mgl32.Quat) Op {
	return o.mapPrimitives(func(p Primitive) Primitive {
		return p.At(q.Rotate(p.Offset)).Rotated(q)
	})
}

// Scaled returns a copy of o scaled about the origin. Non-uniform scales are
// applied to cube sizes in their local frame, which is exact only for
// axis-aligned cubes.
func (o Op) Scaled(s mgl32.Vec3) Op {
	return o.mapPrimitives(func(p Primitive) Primitive {
		return p.At(mgl32.Vec3{p.Offset[0] * s[0], p.Offset[1] * s[1], p.Offset[2] * s[2]}).Scaled(s)
	})
}

func (o Op) mapPrimitives(fn func(Primitive) Primitive) Op {
	out := Op{Kind: o.Kind, Children: make([]Object, len(o.Children))}
	for i, c := range o.Children {
		out.Children[i] = MapPrimitives(c, fn)
	}
	return out
}

// MapPrimitives returns a copy of obj with fn applied to every primitive.
func MapPrimitives(obj Object, fn func(Primitive) Primitive) Object {
	switch v := obj.(type) {
	case Primitive:
		return fn(v)
	case Op:
		return v.mapPrimitives(fn)
	}
	return obj
}

// Count returns the number of primitives in obj.
func Count(obj Object) int {
	switch v := obj.(type) {
	case Primitive:
		return 1
	case Op:
		n := 0
		for _, c := range v.Children {
			n += Count(c)
		}
		return n
	}
	return 0
}

func maxComponent(v mgl32.Vec3) float32 {
	m := v[0]
	if v[1] > m {
		m = v[1]
	}
	if v[2] > m {
		m = v[2]
	}
	return m
}

func finite(vs ...float32) bool {
	for _, v := range vs {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
