// Package gpunode serializes binarized CSG trees into the fixed-stride node
// records read by the ray-marching shader.
//
// Record layout (native-endian, RecordSize bytes):
//
//	offset  field
//	0       id        u32
//	4       offset    f32 x3
//	16      radius    f32      (sphere)
//	16      rotation  f32 x4   (cube, x y z w)
//	32      size      f32 x3   (cube, full edge lengths)
//	44      kind      u32
//
// Bytes 4 to 44 form the payload, zero for operations and for the empty
// record. The shader is generated from these constants; changing any of them
// is a protocol change.
//
// The kind word extends the basic protocol, in which an operation's kind is
// recovered from its id and position in the stream. It lives in the tail
// padding that 16-byte alignment requires anyway, so an operation record
// still has a zero payload and a reader that ignores the word sees the same
// bytes. Operands appear left subtree first, so an operation finds its right
// operand on top of the evaluator stack.
package gpunode

import "fmt"

const (
	RecordSize = 48
	HeaderSize = 4

	OffsetID       = 0
	OffsetPosition = 4
	OffsetRadius   = 16
	OffsetRotation = 16
	OffsetSize     = 32
	OffsetKind     = 44

	// PayloadStart and PayloadEnd bound the primitive parameters.
	PayloadStart = OffsetPosition
	PayloadEnd   = OffsetKind

	// Words is the record size in 32-bit words.
	Words = RecordSize / 4
)

// Kind is the node tag stored at OffsetKind.
type Kind uint32

const (
	KindEmpty Kind = iota
	KindSphere
	KindCube
	KindUnion
	KindIntersection
	KindDifference
)

var kindNames = [...]string{"empty", "sphere", "cube", "union", "intersection", "difference"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint32(k))
}

// IsOp reports whether k is a binary operation.
func (k Kind) IsOp() bool {
	return k == KindUnion || k == KindIntersection || k == KindDifference
}
