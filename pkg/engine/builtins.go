package engine

import (
	"fmt"
	"strings"

	"github.com/chazu/morpheus/pkg/csg"
	"github.com/chazu/morpheus/pkg/scene"
	"github.com/chazu/morpheus/pkg/world"
	zygo "github.com/glycerine/zygomys/zygo"
	"github.com/go-gl/mathgl/mgl32"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource rewrites scene source before passing it to zygomys:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal), so
//     keywords need no global registration and cannot clash with user
//     variables of the same name.
//
//  2. Kebab-case to underscore: look-at -> look_at. zygomys reads a hyphen
//     inside an identifier as subtraction.
//
//  3. Line comments: ; and ;; become //, the zygomys comment syntax.
//
// String literals are copied through untouched.
func preprocessSource(source string) string {
	b := []byte(source)
	out := make([]byte, 0, len(b)+len(b)/4)

	for i := 0; i < len(b); {
		switch c := b[i]; {
		case c == '"':
			j := skipString(b, i, '"', true)
			out = append(out, b[i:j]...)
			i = j

		case c == '`':
			j := skipString(b, i, '`', false)
			out = append(out, b[i:j]...)
			i = j

		case c == ';':
			out = append(out, '/', '/')
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				out = append(out, b[i])
				i++
			}

		case c == ':' && i+1 < len(b) && b[i+1] == '=':
			out = append(out, ':', '=')
			i += 2

		case c == ':' && i+1 < len(b) && isLetter(b[i+1]):
			j := i + 1
			for j < len(b) && isKWChar(b[j]) {
				j++
			}
			out = append(out, '"')
			out = append(out, kwPrefix...)
			out = append(out, b[i+1:j]...)
			out = append(out, '"')
			i = j

		case c == '-' && i > 0 && i+1 < len(b) && isIdentChar(b[i-1]) && isLetter(b[i+1]):
			out = append(out, '_')
			i++

		default:
			out = append(out, c)
			i++
		}
	}
	return string(out)
}

// skipString returns the index just past the literal opening at i.
func skipString(b []byte, i int, quote byte, escapes bool) int {
	j := i + 1
	for j < len(b) && b[j] != quote {
		if escapes && b[j] == '\\' && j+1 < len(b) {
			j++
		}
		j++
	}
	if j < len(b) {
		j++
	}
	return j
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

// ---------------------------------------------------------------------------
// Go values passed through the zygomys environment
// ---------------------------------------------------------------------------

type sexpVec3 struct {
	vec mgl32.Vec3
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec[0], v.vec[1], v.vec[2])
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

type sexpQuat struct {
	q mgl32.Quat
}

func (q *sexpQuat) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(quat %g %g %g %g)", q.q.W, q.q.V[0], q.q.V[1], q.q.V[2])
}
func (q *sexpQuat) Type() *zygo.RegisteredType { return nil }

// sexpObject carries a csg.Object between builtins.
type sexpObject struct {
	obj csg.Object
}

func (o *sexpObject) SexpString(ps *zygo.PrintState) string {
	switch v := o.obj.(type) {
	case csg.Primitive:
		return "(" + v.String() + ")"
	case csg.Op:
		return fmt.Sprintf("(%s %d children)", v.Kind, len(v.Children))
	}
	return "(object)"
}
func (o *sexpObject) Type() *zygo.RegisteredType { return nil }

type sexpMaterial struct {
	spec scene.MaterialSpec
}

func (m *sexpMaterial) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(material %q)", m.spec.Name)
}
func (m *sexpMaterial) Type() *zygo.RegisteredType { return nil }

// sexpEntryRef is returned by object so programs can print what they placed.
type sexpEntryRef struct {
	name string
}

func (r *sexpEntryRef) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(object %q)", r.name)
}
func (r *sexpEntryRef) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok || !strings.HasPrefix(str.S, kwPrefix) {
		return "", false
	}
	return str.S[len(kwPrefix):], true
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			continue
		}
		if i+1 < len(args) {
			result.kw[name] = args[i+1]
			i++
		} else {
			result.kw[name] = zygo.SexpNull
		}
	}
	return result
}

// unknown reports the first keyword not in allowed.
func (a kwArgs) unknown(allowed ...string) error {
	for name := range a.kw {
		found := false
		for _, n := range allowed {
			if n == name {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("unknown keyword :%s", name)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat extracts a number from a SexpInt or SexpFloat.
func toFloat(s zygo.Sexp) (float32, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float32(v.Val), nil
	case *zygo.SexpFloat:
		return float32(v.Val), nil
	}
	return 0, fmt.Errorf("expected number, got %s", s.SexpString(nil))
}

func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %s", s.SexpString(nil))
}

func toBool(s zygo.Sexp) (bool, error) {
	if b, ok := s.(*zygo.SexpBool); ok {
		return b.Val, nil
	}
	return false, fmt.Errorf("expected true or false, got %s", s.SexpString(nil))
}

func toVec3(s zygo.Sexp) (mgl32.Vec3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return mgl32.Vec3{}, fmt.Errorf("expected vec3, got %s", s.SexpString(nil))
}

// toScale accepts a vec3 or a single number for a uniform scale.
func toScale(s zygo.Sexp) (mgl32.Vec3, error) {
	if f, err := toFloat(s); err == nil {
		return mgl32.Vec3{f, f, f}, nil
	}
	v, err := toVec3(s)
	if err != nil {
		return mgl32.Vec3{}, fmt.Errorf("expected number or vec3, got %s", s.SexpString(nil))
	}
	return v, nil
}

func toQuat(s zygo.Sexp) (mgl32.Quat, error) {
	if q, ok := s.(*sexpQuat); ok {
		return q.q, nil
	}
	return mgl32.Quat{}, fmt.Errorf("expected quat, got %s", s.SexpString(nil))
}

func toObject(s zygo.Sexp) (csg.Object, error) {
	if o, ok := s.(*sexpObject); ok {
		return o.obj, nil
	}
	return nil, fmt.Errorf("expected solid, got %s", s.SexpString(nil))
}

func toMaterial(s zygo.Sexp) (scene.MaterialSpec, error) {
	if m, ok := s.(*sexpMaterial); ok {
		return m.spec, nil
	}
	return scene.MaterialSpec{}, fmt.Errorf("expected material, got %s", s.SexpString(nil))
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, bool) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		items, err := zygo.ListToArray(v)
		return items, err == nil
	case *zygo.SexpArray:
		return v.Val, true
	}
	return nil, false
}

// toObjects flattens args into solids. Lists and arrays of solids are
// spliced in, so (union (list a b) c) and (union a b c) agree.
func toObjects(args []zygo.Sexp) ([]csg.Object, error) {
	var out []csg.Object
	for i, a := range args {
		if items, ok := sexpListToSlice(a); ok {
			nested, err := toObjects(items)
			if err != nil {
				return nil, err
			}
			out = append(out, nested...)
			continue
		}
		obj, err := toObject(a)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		out = append(out, obj)
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Object transforms
// ---------------------------------------------------------------------------

func translate(obj csg.Object, v mgl32.Vec3) csg.Object {
	return csg.MapPrimitives(obj, func(p csg.Primitive) csg.Primitive {
		return p.At(p.Offset.Add(v))
	})
}

func rotate(obj csg.Object, q mgl32.Quat) csg.Object {
	return csg.MapPrimitives(obj, func(p csg.Primitive) csg.Primitive {
		return p.At(q.Rotate(p.Offset)).Rotated(q)
	})
}

func scale(obj csg.Object, s mgl32.Vec3) csg.Object {
	return csg.MapPrimitives(obj, func(p csg.Primitive) csg.Primitive {
		return p.At(mgl32.Vec3{p.Offset[0] * s[0], p.Offset[1] * s[1], p.Offset[2] * s[2]}).Scaled(s)
	})
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

type builtin func(args []zygo.Sexp) (zygo.Sexp, error)

// registerBuiltins installs the scene builtins into env. Builtins that place
// things write into sc.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, sc *scene.Scene) {
	add := func(name string, fn builtin) {
		env.AddFunction(name, func(env *zygo.Zlisp, _ string, args []zygo.Sexp) (zygo.Sexp, error) {
			v, err := fn(args)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", name, err)
			}
			return v, nil
		})
	}

	// (vec3 1 2 3)
	add("vec3", func(args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return nil, fmt.Errorf("requires exactly 3 arguments, got %d", len(args))
		}
		var v mgl32.Vec3
		for i := range v {
			f, err := toFloat(args[i])
			if err != nil {
				return nil, fmt.Errorf("component %d: %w", i, err)
			}
			v[i] = f
		}
		return &sexpVec3{vec: v}, nil
	})

	// (quat (vec3 0 1 0) 45): rotation of 45 degrees about +Y.
	add("quat", func(args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("requires an axis and an angle in degrees")
		}
		axis, err := toVec3(args[0])
		if err != nil {
			return nil, fmt.Errorf("axis: %w", err)
		}
		if axis.Len() == 0 {
			return nil, fmt.Errorf("axis must not be zero")
		}
		deg, err := toFloat(args[1])
		if err != nil {
			return nil, fmt.Errorf("angle: %w", err)
		}
		return &sexpQuat{q: mgl32.QuatRotate(mgl32.DegToRad(deg), axis.Normalize())}, nil
	})

	// (sphere 1.5)
	add("sphere", func(args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("requires a radius")
		}
		r, err := toFloat(args[0])
		if err != nil {
			return nil, fmt.Errorf("radius: %w", err)
		}
		return &sexpObject{obj: csg.Sphere(r)}, nil
	})

	// (cube 2), (cube 1 2 3) or (cube (vec3 1 2 3)); sizes are edge lengths.
	add("cube", func(args []zygo.Sexp) (zygo.Sexp, error) {
		var size mgl32.Vec3
		switch len(args) {
		case 1:
			s, err := toScale(args[0])
			if err != nil {
				return nil, fmt.Errorf("size: %w", err)
			}
			size = s
		case 3:
			for i := range size {
				f, err := toFloat(args[i])
				if err != nil {
					return nil, fmt.Errorf("size %d: %w", i, err)
				}
				size[i] = f
			}
		default:
			return nil, fmt.Errorf("requires 1 or 3 size arguments, got %d", len(args))
		}
		return &sexpObject{obj: csg.Cube(size)}, nil
	})

	// (at solid (vec3 1 0 0))
	add("at", func(args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("requires a solid and a vec3")
		}
		obj, err := toObject(args[0])
		if err != nil {
			return nil, err
		}
		v, err := toVec3(args[1])
		if err != nil {
			return nil, err
		}
		return &sexpObject{obj: translate(obj, v)}, nil
	})

	// (rotated solid (quat (vec3 0 0 1) 30))
	add("rotated", func(args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("requires a solid and a quat")
		}
		obj, err := toObject(args[0])
		if err != nil {
			return nil, err
		}
		q, err := toQuat(args[1])
		if err != nil {
			return nil, err
		}
		return &sexpObject{obj: rotate(obj, q)}, nil
	})

	// (scaled solid 2) or (scaled solid (vec3 1 2 1))
	add("scaled", func(args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("requires a solid and a scale")
		}
		obj, err := toObject(args[0])
		if err != nil {
			return nil, err
		}
		s, err := toScale(args[1])
		if err != nil {
			return nil, err
		}
		return &sexpObject{obj: scale(obj, s)}, nil
	})

	ops := []struct {
		name string
		fn   func(...csg.Object) csg.Op
	}{
		{"union", csg.Union},
		{"intersection", csg.Intersection},
		{"difference", csg.Difference},
	}
	for _, op := range ops {
		// (union a b c ...)
		add(op.name, func(args []zygo.Sexp) (zygo.Sexp, error) {
			children, err := toObjects(args)
			if err != nil {
				return nil, err
			}
			return &sexpObject{obj: op.fn(children...)}, nil
		})
	}

	// (material "brass" :albedo (vec3 0.8 0.6 0.2) :roughness 0.3)
	add("material", func(args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if err := pa.unknown("albedo", "roughness"); err != nil {
			return nil, err
		}
		spec := scene.MaterialSpec{Albedo: mgl32.Vec3{0.8, 0.8, 0.8}, Roughness: 0.5}
		if len(pa.positional) > 0 {
			name, err := toString(pa.positional[0])
			if err != nil {
				return nil, fmt.Errorf("name: %w", err)
			}
			spec.Name = name
		}
		if v, ok := pa.kw["albedo"]; ok {
			a, err := toVec3(v)
			if err != nil {
				return nil, fmt.Errorf("albedo: %w", err)
			}
			spec.Albedo = a
		}
		if v, ok := pa.kw["roughness"]; ok {
			r, err := toFloat(v)
			if err != nil {
				return nil, fmt.Errorf("roughness: %w", err)
			}
			spec.Roughness = r
		}
		return &sexpMaterial{spec: spec}, nil
	})

	// (object "name" solid :at (vec3 ..) :rotate (quat ..) :scale 2 :material m)
	add("object", func(args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if err := pa.unknown("at", "rotate", "scale", "material"); err != nil {
			return nil, err
		}
		if len(pa.positional) != 2 {
			return nil, fmt.Errorf("requires a name and a solid")
		}
		name, err := toString(pa.positional[0])
		if err != nil {
			return nil, fmt.Errorf("name: %w", err)
		}
		obj, err := toObject(pa.positional[1])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}

		e := scene.Entry{Name: name, Object: obj, Transform: world.Origin()}
		if v, ok := pa.kw["at"]; ok {
			p, err := toVec3(v)
			if err != nil {
				return nil, fmt.Errorf("%s: at: %w", name, err)
			}
			e.Transform = e.Transform.At(p)
		}
		if v, ok := pa.kw["rotate"]; ok {
			q, err := toQuat(v)
			if err != nil {
				return nil, fmt.Errorf("%s: rotate: %w", name, err)
			}
			e.Transform = e.Transform.Rotated(q)
		}
		if v, ok := pa.kw["scale"]; ok {
			s, err := toScale(v)
			if err != nil {
				return nil, fmt.Errorf("%s: scale: %w", name, err)
			}
			e.Transform = e.Transform.Scaled(s)
		}
		if v, ok := pa.kw["material"]; ok {
			m, err := toMaterial(v)
			if err != nil {
				return nil, fmt.Errorf("%s: material: %w", name, err)
			}
			e.Material = m
		}

		sc.Add(e)
		return &sexpEntryRef{name: name}, nil
	})

	// (camera :position (vec3 0 2 8) :target (vec3 0 0 0) :fovy 60)
	add("camera", func(args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if err := pa.unknown("position", "target", "fovy"); err != nil {
			return nil, err
		}
		c := scene.CameraSpec{Position: mgl32.Vec3{0, 2, 8}}
		if v, ok := pa.kw["position"]; ok {
			p, err := toVec3(v)
			if err != nil {
				return nil, fmt.Errorf("position: %w", err)
			}
			c.Position = p
		}
		if v, ok := pa.kw["target"]; ok {
			t, err := toVec3(v)
			if err != nil {
				return nil, fmt.Errorf("target: %w", err)
			}
			c.Target = t
		}
		if v, ok := pa.kw["fovy"]; ok {
			deg, err := toFloat(v)
			if err != nil {
				return nil, fmt.Errorf("fovy: %w", err)
			}
			c.FovY = mgl32.DegToRad(deg)
		}
		sc.Camera = &c
		return zygo.SexpNull, nil
	})

	// (sun :direction (vec3 -1 -2 -1) :color (vec3 1 1 1) :intensity 1 :shadows true)
	add("sun", func(args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if err := pa.unknown("direction", "color", "intensity", "shadows"); err != nil {
			return nil, err
		}
		def := world.DefaultSun()
		l := scene.LightSpec{
			Direction:   def.Direction,
			Color:       def.Color,
			Intensity:   def.Intensity,
			CastsShadow: def.CastsShadow,
		}
		if v, ok := pa.kw["direction"]; ok {
			d, err := toVec3(v)
			if err != nil {
				return nil, fmt.Errorf("direction: %w", err)
			}
			l.Direction = d
		}
		if v, ok := pa.kw["color"]; ok {
			c, err := toVec3(v)
			if err != nil {
				return nil, fmt.Errorf("color: %w", err)
			}
			l.Color = c
		}
		if v, ok := pa.kw["intensity"]; ok {
			f, err := toFloat(v)
			if err != nil {
				return nil, fmt.Errorf("intensity: %w", err)
			}
			l.Intensity = f
		}
		if v, ok := pa.kw["shadows"]; ok {
			b, err := toBool(v)
			if err != nil {
				return nil, fmt.Errorf("shadows: %w", err)
			}
			l.CastsShadow = b
		}
		sc.Sun = &l
		return zygo.SexpNull, nil
	})
}
