package gpunode

import (
	"errors"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// ErrMalformed is returned by Distance when the record stream does not
// reduce to a single value.
var ErrMalformed = errors.New("gpunode: malformed record stream")

// Distance evaluates the signed distance of p against a record stream the
// same way the shader does: one forward pass, leaves push their distance,
// operations pop the right operand then the left one and push the result.
// The empty record evaluates to +Inf.
func Distance(records []Record, p mgl32.Vec3) (float32, error) {
	stack := make([]float32, 0, 16)
	pop := func() float32 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v
	}

	for _, r := range records {
		switch r.Kind {
		case KindEmpty:
			stack = append(stack, float32(math.Inf(1)))
		case KindSphere:
			stack = append(stack, sphereDistance(r, p))
		case KindCube:
			stack = append(stack, cubeDistance(r, p))
		default:
			if !r.Kind.IsOp() || len(stack) < 2 {
				return 0, ErrMalformed
			}
			right := pop()
			left := pop()
			stack = append(stack, combine(r.Kind, left, right))
		}
	}
	if len(stack) != 1 {
		return 0, ErrMalformed
	}
	return stack[0], nil
}

func combine(k Kind, a, b float32) float32 {
	switch k {
	case KindUnion:
		return min(a, b)
	case KindIntersection:
		return max(a, b)
	}
	return max(a, -b)
}

func sphereDistance(r Record, p mgl32.Vec3) float32 {
	return p.Sub(r.Offset).Len() - r.Radius
}

func cubeDistance(r Record, p mgl32.Vec3) float32 {
	local := r.Rotation.Conjugate().Rotate(p.Sub(r.Offset))
	var q, outside mgl32.Vec3
	for i := 0; i < 3; i++ {
		q[i] = float32(math.Abs(float64(local[i]))) - r.Size[i]/2
		outside[i] = max(q[i], 0)
	}
	inside := min(max(q[0], q[1], q[2]), 0)
	return outside.Len() + inside
}
