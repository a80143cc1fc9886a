package scene

import (
	"testing"

	"github.com/chazu/morpheus/pkg/csg"
	"github.com/chazu/morpheus/pkg/world"
	"github.com/go-gl/mathgl/mgl32"
)

func ball(name string) Entry {
	return Entry{Name: name, Object: csg.Sphere(1), Transform: world.Origin()}
}

func TestLookup(t *testing.T) {
	s := New()
	s.Add(ball("a"))
	s.Add(Entry{Name: "b", Object: csg.Union(csg.Sphere(1), csg.Cube(mgl32.Vec3{1, 1, 1})), Transform: world.Origin()})

	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Len())
	}
	if e := s.Lookup("b"); e == nil || e.Name != "b" {
		t.Fatalf("Lookup(b) = %v", e)
	}
	if e := s.Lookup("missing"); e != nil {
		t.Errorf("Lookup(missing) = %v, want nil", e)
	}
	if got := s.Primitives(); got != 3 {
		t.Errorf("Primitives() = %d, want 3", got)
	}
}

func TestLookupDuplicateReturnsLast(t *testing.T) {
	s := New()
	s.Add(ball("a"))
	second := ball("a")
	second.Transform = second.Transform.At(mgl32.Vec3{1, 0, 0})
	s.Add(second)

	if e := s.Lookup("a"); e.Transform.Position != (mgl32.Vec3{1, 0, 0}) {
		t.Errorf("Lookup returned the first entry")
	}
}

func TestZeroSceneAdd(t *testing.T) {
	var s Scene
	s.Add(ball("a"))
	if s.Lookup("a") == nil {
		t.Error("Add on a zero Scene must index the entry")
	}
}

func TestMaterialSpecDefault(t *testing.T) {
	if !(MaterialSpec{}).IsDefault() {
		t.Error("zero material must be the default")
	}
	if (MaterialSpec{Roughness: 0.5}).IsDefault() {
		t.Error("named material is not the default")
	}
}

func TestCameraSpec(t *testing.T) {
	c := CameraSpec{Position: mgl32.Vec3{0, 0, 5}}.Camera()
	if c.FovY != world.DefaultFovY {
		t.Errorf("FovY = %g, want default", c.FovY)
	}
	fwd := c.View.Rotate(mgl32.Vec3{0, 0, -1})
	if fwd.Sub(mgl32.Vec3{0, 0, -1}).Len() > 1e-5 {
		t.Errorf("forward = %v, want -Z", fwd)
	}

	c = CameraSpec{Position: mgl32.Vec3{0, 0, 5}, FovY: 0.8}.Camera()
	if c.FovY != 0.8 {
		t.Errorf("FovY = %g, want 0.8", c.FovY)
	}
}

func TestLightSpec(t *testing.T) {
	l := LightSpec{Direction: mgl32.Vec3{0, -1, 0}, Color: mgl32.Vec3{1, 0.5, 0}, Intensity: 2, CastsShadow: true}.Light()
	if l.Intensity != 2 || !l.CastsShadow || l.Color != (mgl32.Vec3{1, 0.5, 0}) {
		t.Errorf("Light() = %+v", l)
	}
}
