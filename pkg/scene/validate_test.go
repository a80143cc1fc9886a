package scene

import (
	"math"
	"strings"
	"testing"

	"github.com/chazu/morpheus/pkg/csg"
	"github.com/chazu/morpheus/pkg/world"
	"github.com/go-gl/mathgl/mgl32"
)

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func hasCode(errs []ValidationError, code string) bool {
	for _, e := range errs {
		if e.Code == code {
			return true
		}
	}
	return false
}

func TestValidateClean(t *testing.T) {
	s := New()
	s.Add(ball("a"))
	s.Add(Entry{
		Name:      "b",
		Object:    csg.Difference(csg.Cube(mgl32.Vec3{2, 2, 2}), csg.Sphere(1.2)),
		Transform: world.Origin().At(mgl32.Vec3{3, 0, 0}).Scaled(mgl32.Vec3{2, 2, 2}),
		Material:  MaterialSpec{Name: "red", Albedo: mgl32.Vec3{1, 0, 0}, Roughness: 0.3},
	})
	s.Camera = &CameraSpec{Position: mgl32.Vec3{0, 2, 8}}
	s.Sun = &LightSpec{Direction: mgl32.Vec3{0, -1, 0}, Color: mgl32.Vec3{1, 1, 1}, Intensity: 1}

	if errs := s.Validate(); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
}

func TestValidateEntries(t *testing.T) {
	nan := float32(math.NaN())
	tests := []struct {
		name     string
		entry    Entry
		code     string
		severity Severity
	}{
		{"empty name", Entry{Object: csg.Sphere(1), Transform: world.Origin()}, CodeEmptyName, SeverityError},
		{"no object", Entry{Name: "x", Transform: world.Origin()}, CodeMissingObject, SeverityError},
		{"negative radius", Entry{Name: "x", Object: csg.Sphere(-1), Transform: world.Origin()}, CodeInvalidPrimitive, SeverityError},
		{"nested zero cube", Entry{Name: "x", Object: csg.Union(csg.Sphere(1), csg.Cube(mgl32.Vec3{1, 0, 1})), Transform: world.Origin()}, CodeInvalidPrimitive, SeverityError},
		{"nan offset", Entry{Name: "x", Object: csg.Sphere(1).At(mgl32.Vec3{nan, 0, 0}), Transform: world.Origin()}, CodeInvalidPrimitive, SeverityError},
		{"empty op", Entry{Name: "x", Object: csg.Union(csg.Sphere(1), csg.Empty(csg.OpIntersection)), Transform: world.Origin()}, CodeEmptyOperation, SeverityWarning},
		{"zero scale", Entry{Name: "x", Object: csg.Sphere(1), Transform: world.Origin().Scaled(mgl32.Vec3{1, 0, 1})}, CodeInvalidTransform, SeverityError},
		{"nan position", Entry{Name: "x", Object: csg.Sphere(1), Transform: world.Origin().At(mgl32.Vec3{0, nan, 0})}, CodeInvalidTransform, SeverityError},
		{"zero rotation", Entry{Name: "x", Object: csg.Sphere(1), Transform: world.Origin().Rotated(mgl32.Quat{})}, CodeInvalidTransform, SeverityError},
		{"stretched", Entry{Name: "x", Object: csg.Sphere(1), Transform: world.Origin().Scaled(mgl32.Vec3{1, 2, 1})}, CodeNonUniformScale, SeverityWarning},
		{"rough material", Entry{Name: "x", Object: csg.Sphere(1), Transform: world.Origin(), Material: MaterialSpec{Roughness: 2}}, CodeInvalidMaterial, SeverityError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			s.Add(tt.entry)
			errs := s.Validate()
			if len(errs) != 1 {
				t.Fatalf("got %v, want exactly one %s", codes(errs), tt.code)
			}
			if errs[0].Code != tt.code {
				t.Errorf("code = %s, want %s", errs[0].Code, tt.code)
			}
			if errs[0].Severity != tt.severity {
				t.Errorf("severity = %s, want %s", errs[0].Severity, tt.severity)
			}
		})
	}
}

func TestValidateDuplicateName(t *testing.T) {
	s := New()
	s.Add(ball("a"))
	s.Add(ball("a"))
	errs := s.Validate()
	if !hasCode(errs, CodeDuplicateName) {
		t.Fatalf("expected %s, got %v", CodeDuplicateName, codes(errs))
	}
	if errs[0].Name != "a" {
		t.Errorf("Name = %q, want a", errs[0].Name)
	}
	if !strings.Contains(errs[0].Error(), "(object: a)") {
		t.Errorf("Error() = %q", errs[0].Error())
	}
}

func TestValidateTooDeep(t *testing.T) {
	var nested csg.Object = csg.Sphere(1)
	flat := []csg.Object{csg.Sphere(1)}
	for i := 0; i < 40; i++ {
		nested = csg.Union(csg.Sphere(1), nested)
		flat = append(flat, csg.Sphere(1))
	}

	s := New()
	s.Add(Entry{Name: "deep", Object: nested, Transform: world.Origin()})
	if !hasCode(s.Validate(), CodeTooDeep) {
		t.Errorf("expected %s", CodeTooDeep)
	}

	s = New()
	s.Add(Entry{Name: "row", Object: csg.Union(flat...), Transform: world.Origin()})
	if errs := s.Validate(); hasCode(errs, CodeTooDeep) {
		t.Errorf("flat union flagged: %v", codes(errs))
	}
}

func TestValidateCameraAndSun(t *testing.T) {
	s := New()
	s.Camera = &CameraSpec{Position: mgl32.Vec3{1, 1, 1}, Target: mgl32.Vec3{1, 1, 1}}
	s.Sun = &LightSpec{Color: mgl32.Vec3{1, 1, 1}, Intensity: 1}
	errs := s.Validate()
	if !hasCode(errs, CodeInvalidCamera) || !hasCode(errs, CodeInvalidSun) {
		t.Errorf("got %v", codes(errs))
	}
}

func TestErrorsFiltersWarnings(t *testing.T) {
	errs := []ValidationError{
		{Code: CodeEmptyOperation, Severity: SeverityWarning},
		{Code: CodeMissingObject, Severity: SeverityError},
	}
	got := Errors(errs)
	if len(got) != 1 || got[0].Code != CodeMissingObject {
		t.Errorf("Errors() = %v", got)
	}
	if Errors(errs[:1]) != nil {
		t.Error("warnings only must yield nil")
	}
}
