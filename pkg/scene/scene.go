// Package scene holds the result of evaluating a scene program: named CSG
// objects placed in the world, plus optional camera and sun overrides.
//
// A Scene is never mutated after evaluation; each evaluation produces a new
// one, and Sync reconciles successive scenes into a world and asset manager.
package scene

import (
	"math"

	"github.com/chazu/morpheus/pkg/csg"
	"github.com/chazu/morpheus/pkg/world"
	"github.com/go-gl/mathgl/mgl32"
)

// MaterialSpec describes a surface. The zero value selects the default
// material.
type MaterialSpec struct {
	Name      string     `json:"name,omitempty"`
	Albedo    mgl32.Vec3 `json:"albedo"`
	Roughness float32    `json:"roughness"`
}

// IsDefault reports whether m selects the default material.
func (m MaterialSpec) IsDefault() bool { return m == MaterialSpec{} }

// Entry is one named object.
type Entry struct {
	Name      string
	Object    csg.Object
	Transform world.Transform
	Material  MaterialSpec
}

// CameraSpec positions the camera. A zero FovY keeps the default.
type CameraSpec struct {
	Position mgl32.Vec3
	Target   mgl32.Vec3
	FovY     float32
}

// Camera returns the world camera described by c.
func (c CameraSpec) Camera() world.Camera {
	cam := world.NewCamera(c.Position).LookAt(c.Target)
	if c.FovY > 0 {
		cam.FovY = c.FovY
	}
	return cam
}

// LightSpec describes the sun.
type LightSpec struct {
	Direction   mgl32.Vec3
	Color       mgl32.Vec3
	Intensity   float32
	CastsShadow bool
}

// Light returns the world light described by l.
func (l LightSpec) Light() world.DirectionalLight {
	return world.DirectionalLight{
		Direction:   l.Direction,
		Color:       l.Color,
		Intensity:   l.Intensity,
		CastsShadow: l.CastsShadow,
	}
}

// Scene is the evaluated program.
type Scene struct {
	Objects []Entry
	Camera  *CameraSpec
	Sun     *LightSpec

	names map[string]int
}

// New returns an empty scene.
func New() *Scene {
	return &Scene{names: make(map[string]int)}
}

// Add appends e. Duplicate names are not rejected here; Validate reports
// them and Lookup returns the last one added.
func (s *Scene) Add(e Entry) {
	if s.names == nil {
		s.names = make(map[string]int)
	}
	s.Objects = append(s.Objects, e)
	s.names[e.Name] = len(s.Objects) - 1
}

// Lookup returns the entry with the given name, or nil.
func (s *Scene) Lookup(name string) *Entry {
	i, ok := s.names[name]
	if !ok {
		return nil
	}
	return &s.Objects[i]
}

// Len returns the number of entries.
func (s *Scene) Len() int { return len(s.Objects) }

// Primitives returns the total primitive count over all entries.
func (s *Scene) Primitives() int {
	n := 0
	for _, e := range s.Objects {
		if e.Object != nil {
			n += csg.Count(e.Object)
		}
	}
	return n
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
