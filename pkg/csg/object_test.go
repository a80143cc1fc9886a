package csg

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestBuildersDoNotMutate(t *testing.T) {
	s := Sphere(1)
	moved := s.At(mgl32.Vec3{1, 2, 3})
	if s.Offset != (mgl32.Vec3{}) {
		t.Errorf("At mutated receiver: %v", s.Offset)
	}
	if moved.Offset != (mgl32.Vec3{1, 2, 3}) {
		t.Errorf("moved offset = %v", moved.Offset)
	}

	children := []Object{s, Sphere(2)}
	u := Union(children...)
	children[0] = Sphere(9)
	if u.Children[0].(Primitive).Radius != 1 {
		t.Error("Union aliases the caller's slice")
	}

	shifted := u.Translated(mgl32.Vec3{1, 0, 0})
	if u.Children[0].(Primitive).Offset != (mgl32.Vec3{}) {
		t.Error("Translated mutated receiver")
	}
	if shifted.Children[1].(Primitive).Offset != (mgl32.Vec3{1, 0, 0}) {
		t.Errorf("translated offset = %v", shifted.Children[1].(Primitive).Offset)
	}
}

func TestPrimitiveScaled(t *testing.T) {
	s := Sphere(1).Scaled(mgl32.Vec3{1, 3, 2})
	if s.Radius != 3 {
		t.Errorf("sphere radius = %g, want 3", s.Radius)
	}
	c := Cube(mgl32.Vec3{1, 2, 3}).Scaled(mgl32.Vec3{2, 2, 0.5})
	if c.Size != (mgl32.Vec3{2, 4, 1.5}) {
		t.Errorf("cube size = %v", c.Size)
	}
}

// near compares vectors with an absolute tolerance. mgl32's ApproxEqual
// helpers are relative and reject tiny residues next to an exact zero.
func near(a, b mgl32.Vec3) bool { return a.Sub(b).Len() < 1e-5 }

func nearQuat(a, b mgl32.Quat) bool {
	return near(a.V, b.V) && math.Abs(float64(a.W-b.W)) < 1e-5
}

func TestOpRotated(t *testing.T) {
	q := mgl32.QuatRotate(math.Pi/2, mgl32.Vec3{0, 0, 1})
	op := Union(Cube(mgl32.Vec3{1, 1, 1}).At(mgl32.Vec3{1, 0, 0})).Rotated(q)
	c := op.Children[0].(Primitive)
	if !near(c.Offset, mgl32.Vec3{0, 1, 0}) {
		t.Errorf("rotated offset = %v, want (0,1,0)", c.Offset)
	}
	if !nearQuat(c.Rotation, q) {
		t.Errorf("rotation = %v, want %v", c.Rotation, q)
	}
}

func TestCount(t *testing.T) {
	obj := Union(Sphere(1), Difference(Sphere(1), Sphere(2)), Intersection())
	if got := Count(obj); got != 3 {
		t.Errorf("Count = %d, want 3", got)
	}
}

func TestPrimitiveValidate(t *testing.T) {
	nan := float32(math.NaN())
	tests := []struct {
		name    string
		p       Primitive
		wantErr bool
	}{
		{"sphere", Sphere(1), false},
		{"cube", Cube(mgl32.Vec3{1, 1, 1}), false},
		{"zero radius", Sphere(0), true},
		{"negative size", Cube(mgl32.Vec3{1, -1, 1}), true},
		{"nan offset", Sphere(1).At(mgl32.Vec3{nan, 0, 0}), true},
		{"zero rotation", Primitive{Kind: KindCube, Size: mgl32.Vec3{1, 1, 1}}, true},
		{"unknown kind", Primitive{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
