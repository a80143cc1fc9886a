package world

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// writer appends native-endian scalars. Callers insert the padding the WGSL
// struct layout requires.
type writer struct {
	b []byte
}

func (w *writer) u32(v uint32) {
	w.b = binary.NativeEndian.AppendUint32(w.b, v)
}

func (w *writer) f32(v float32) {
	w.u32(math.Float32bits(v))
}

func (w *writer) vec3(v mgl32.Vec3) {
	w.f32(v[0])
	w.f32(v[1])
	w.f32(v[2])
}

// mat4 writes m column by column, which is both mgl32's storage order and
// WGSL's.
func (w *writer) mat4(m mgl32.Mat4) {
	for _, v := range m {
		w.f32(v)
	}
}
