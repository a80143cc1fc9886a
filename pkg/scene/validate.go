package scene

import (
	"fmt"

	"github.com/chazu/morpheus/pkg/csg"
	"github.com/chazu/morpheus/pkg/shader"
)

// Severity of a ValidationError.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// Validation codes.
const (
	CodeEmptyName        = "EMPTY_NAME"
	CodeDuplicateName    = "DUPLICATE_NAME"
	CodeMissingObject    = "MISSING_OBJECT"
	CodeInvalidPrimitive = "INVALID_PRIMITIVE"
	CodeEmptyOperation   = "EMPTY_OPERATION"
	CodeTooManyNodes     = "TOO_MANY_NODES"
	CodeTooDeep          = "TOO_DEEP"
	CodeInvalidTransform = "INVALID_TRANSFORM"
	CodeNonUniformScale  = "NON_UNIFORM_SCALE"
	CodeInvalidMaterial  = "INVALID_MATERIAL"
	CodeInvalidCamera    = "INVALID_CAMERA"
	CodeInvalidSun       = "INVALID_SUN"
)

// ValidationError is one problem found in a scene.
type ValidationError struct {
	Code     string
	Message  string
	Name     string
	Severity Severity
}

func (e ValidationError) Error() string {
	context := ""
	if e.Name != "" {
		context = fmt.Sprintf(" (object: %s)", e.Name)
	}
	return fmt.Sprintf("%s: %s%s", e.Code, e.Message, context)
}

// Validate reports problems in s. Warnings do not prevent rendering.
func (s *Scene) Validate() []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool, len(s.Objects))

	for _, e := range s.Objects {
		switch {
		case e.Name == "":
			errs = append(errs, ValidationError{
				Code:    CodeEmptyName,
				Message: "object has no name",
			})
		case seen[e.Name]:
			errs = append(errs, ValidationError{
				Code:    CodeDuplicateName,
				Message: "name is used by more than one object",
				Name:    e.Name,
			})
		}
		seen[e.Name] = true

		errs = append(errs, validateEntry(e)...)
	}

	if c := s.Camera; c != nil {
		if !finite(c.Position[:]...) || !finite(c.Target[:]...) || !finite(c.FovY) ||
			c.FovY < 0 || c.Position == c.Target {
			errs = append(errs, ValidationError{
				Code:    CodeInvalidCamera,
				Message: fmt.Sprintf("camera at %v looking at %v with fovy %g", c.Position, c.Target, c.FovY),
			})
		}
	}
	if l := s.Sun; l != nil {
		if !finite(l.Direction[:]...) || l.Direction.Len() == 0 || !finite(l.Color[:]...) ||
			!finite(l.Intensity) || l.Intensity < 0 {
			errs = append(errs, ValidationError{
				Code:    CodeInvalidSun,
				Message: fmt.Sprintf("sun direction %v intensity %g", l.Direction, l.Intensity),
			})
		}
	}
	return errs
}

// Errors returns only the entries of errs with error severity.
func Errors(errs []ValidationError) []ValidationError {
	var out []ValidationError
	for _, e := range errs {
		if e.Severity == SeverityError {
			out = append(out, e)
		}
	}
	return out
}

func validateEntry(e Entry) []ValidationError {
	var errs []ValidationError
	add := func(code string, sev Severity, format string, args ...any) {
		errs = append(errs, ValidationError{
			Code:     code,
			Message:  fmt.Sprintf(format, args...),
			Name:     e.Name,
			Severity: sev,
		})
	}

	if e.Object == nil {
		add(CodeMissingObject, SeverityError, "object has no geometry")
	} else {
		walk(e.Object, func(obj csg.Object) {
			switch v := obj.(type) {
			case csg.Primitive:
				if err := v.Validate(); err != nil {
					add(CodeInvalidPrimitive, SeverityError, "%v", err)
				}
			case csg.Op:
				if v.IsEmpty() {
					add(CodeEmptyOperation, SeverityWarning, "empty %s contributes no geometry", v.Kind)
				}
			}
		})
		if tree, err := csg.Binarize(e.Object); err != nil {
			add(CodeTooManyNodes, SeverityError, "%v", err)
		} else if tree != nil && tree.StackDepth() > shader.MaxStackDepth {
			add(CodeTooDeep, SeverityError, "tree needs %d stack slots, the renderer has %d",
				tree.StackDepth(), shader.MaxStackDepth)
		}
	}

	t := e.Transform
	r := t.Rotation
	switch {
	case !finite(t.Position[:]...) || !finite(t.Scale[:]...) || !finite(r.W, r.V[0], r.V[1], r.V[2]):
		add(CodeInvalidTransform, SeverityError, "transform is not finite")
	case t.Scale[0] <= 0 || t.Scale[1] <= 0 || t.Scale[2] <= 0:
		add(CodeInvalidTransform, SeverityError, "scale must be positive, got %v", t.Scale)
	case r.Len() == 0:
		add(CodeInvalidTransform, SeverityError, "rotation is zero")
	case t.Scale[0] != t.Scale[1] || t.Scale[1] != t.Scale[2]:
		add(CodeNonUniformScale, SeverityWarning, "non-uniform scale %v distorts distances", t.Scale)
	}

	m := e.Material
	if !finite(m.Albedo[:]...) || !finite(m.Roughness) || m.Roughness < 0 || m.Roughness > 1 {
		add(CodeInvalidMaterial, SeverityError, "albedo %v roughness %g", m.Albedo, m.Roughness)
	}
	return errs
}

// walk calls fn for obj and every descendant, parents first.
func walk(obj csg.Object, fn func(csg.Object)) {
	fn(obj)
	if op, ok := obj.(csg.Op); ok {
		for _, c := range op.Children {
			walk(c, fn)
		}
	}
}
