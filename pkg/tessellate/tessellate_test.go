package tessellate_test

import (
	"math"
	"testing"

	"github.com/chazu/morpheus/pkg/csg"
	"github.com/chazu/morpheus/pkg/kernel"
	"github.com/chazu/morpheus/pkg/kernel/sdfx"
	"github.com/chazu/morpheus/pkg/scene"
	"github.com/chazu/morpheus/pkg/tessellate"
	"github.com/chazu/morpheus/pkg/world"
	"github.com/go-gl/mathgl/mgl32"
)

// near compares vectors with an absolute tolerance. mgl32's ApproxEqual
// helpers are relative and reject tiny residues next to an exact zero.
func near(a, b mgl32.Vec3) bool { return a.Sub(b).Len() < 1e-5 }

func nearQuat(a, b mgl32.Quat) bool {
	return near(a.V, b.V) && math.Abs(float64(a.W-b.W)) < 1e-5
}

// newKernel returns a fresh sdfx kernel for testing.
func newKernel() kernel.Kernel {
	return sdfx.New(40)
}

// entry creates a scene object with the identity transform.
func entry(name string, obj csg.Object) scene.Entry {
	return scene.Entry{Name: name, Object: obj, Transform: world.Origin()}
}

func centroid(m *kernel.Mesh) mgl32.Vec3 {
	var c mgl32.Vec3
	n := m.VertexCount()
	for i := 0; i < n; i++ {
		c = c.Add(mgl32.Vec3{m.Vertices[i*3], m.Vertices[i*3+1], m.Vertices[i*3+2]})
	}
	return c.Mul(1 / float32(n))
}

func TestSingleCube(t *testing.T) {
	sc := scene.New()
	sc.Add(entry("crate", csg.Cube(mgl32.Vec3{6, 3, 2})))

	meshes, err := tessellate.Tessellate(sc, newKernel())
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	if len(meshes) != 1 {
		t.Fatalf("expected 1 mesh, got %d", len(meshes))
	}

	m := meshes[0]
	if m.IsEmpty() {
		t.Fatal("mesh should not be empty")
	}
	if m.Name != "crate" {
		t.Errorf("expected Name %q, got %q", "crate", m.Name)
	}
	if m.TriangleCount() == 0 {
		t.Error("mesh should have triangles")
	}
}

func TestTwoObjects(t *testing.T) {
	sc := scene.New()
	sc.Add(entry("ball", csg.Sphere(1)))
	sc.Add(entry("box", csg.Cube(mgl32.Vec3{1, 1, 1})))

	meshes, err := tessellate.Tessellate(sc, newKernel())
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	if len(meshes) != 2 {
		t.Fatalf("expected 2 meshes, got %d", len(meshes))
	}
	if meshes[0].Name != "ball" || meshes[1].Name != "box" {
		t.Errorf("meshes out of scene order: %q, %q", meshes[0].Name, meshes[1].Name)
	}
}

func TestObjectWithTransform(t *testing.T) {
	e := entry("shelf", csg.Cube(mgl32.Vec3{10, 5, 1}))
	e.Transform = e.Transform.At(mgl32.Vec3{20, 10, 5})

	m, err := tessellate.Entry(e, newKernel())
	if err != nil {
		t.Fatalf("Entry failed: %v", err)
	}

	// The cube is centered on its position.
	c := centroid(m)
	const tol = 1.0
	want := mgl32.Vec3{20, 10, 5}
	for i := range 3 {
		if math.Abs(float64(c[i]-want[i])) > tol {
			t.Errorf("centroid = %v, expected near %v", c, want)
			break
		}
	}
}

func TestEmptyObjectSkipped(t *testing.T) {
	sc := scene.New()
	sc.Add(entry("nothing", csg.Intersection(csg.Sphere(1), csg.Empty(csg.OpUnion))))
	sc.Add(entry("ball", csg.Sphere(1)))

	meshes, err := tessellate.Tessellate(sc, newKernel())
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	if len(meshes) != 1 || meshes[0].Name != "ball" {
		t.Fatalf("expected only the ball mesh, got %d meshes", len(meshes))
	}
}

func TestEmptyScene(t *testing.T) {
	meshes, err := tessellate.Tessellate(scene.New(), newKernel())
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	if len(meshes) != 0 {
		t.Fatalf("expected 0 meshes, got %d", len(meshes))
	}

	meshes, err = tessellate.Tessellate(nil, newKernel())
	if err != nil || meshes != nil {
		t.Fatalf("nil scene: got %v, %v", meshes, err)
	}
}

func TestInvalidPrimitiveFails(t *testing.T) {
	sc := scene.New()
	sc.Add(entry("bad", csg.Sphere(-1)))
	if _, err := tessellate.Tessellate(sc, newKernel()); err == nil {
		t.Fatal("expected error for negative radius")
	}
}

func TestPlace(t *testing.T) {
	tr := world.Origin().
		At(mgl32.Vec3{0, 0, 5}).
		Rotated(mgl32.QuatRotate(math.Pi/2, mgl32.Vec3{0, 0, 1})).
		Scaled(mgl32.Vec3{2, 2, 2})

	obj := csg.Union(csg.Sphere(1).At(mgl32.Vec3{1, 0, 0}), csg.Cube(mgl32.Vec3{1, 1, 1}))
	placed := tessellate.Place(obj, tr).(csg.Op)

	s := placed.Children[0].(csg.Primitive)
	if s.Radius != 2 {
		t.Errorf("radius = %g, want 2", s.Radius)
	}
	if !near(s.Offset, mgl32.Vec3{0, 2, 5}) {
		t.Errorf("sphere offset = %v, want (0 2 5)", s.Offset)
	}

	c := placed.Children[1].(csg.Primitive)
	if c.Size != (mgl32.Vec3{2, 2, 2}) {
		t.Errorf("cube size = %v, want (2 2 2)", c.Size)
	}
	if !nearQuat(c.Rotation, tr.Rotation) {
		t.Errorf("cube rotation = %v, want %v", c.Rotation, tr.Rotation)
	}

	// Placed objects agree with the model matrix.
	p := tr.Model().Mul4x1(mgl32.Vec4{1, 0, 0, 1}).Vec3()
	if !near(p, s.Offset) {
		t.Errorf("model maps (1 0 0) to %v, Place put the sphere at %v", p, s.Offset)
	}
}
