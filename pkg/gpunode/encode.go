package gpunode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/chazu/morpheus/pkg/csg"
	"github.com/go-gl/mathgl/mgl32"
)

// ErrMisaligned is returned by Decode for buffers that are not a whole
// number of records.
var ErrMisaligned = errors.New("gpunode: buffer length is not a multiple of the record size")

// Record is the decoded form of one node record.
type Record struct {
	ID       uint32
	Kind     Kind
	Offset   mgl32.Vec3
	Radius   float32
	Rotation mgl32.Quat
	Size     mgl32.Vec3
}

// NodeCount returns the number of records Encode produces for tree. A nil
// tree still produces the single empty record.
func NodeCount(tree *csg.BinaryTree) uint32 {
	if tree == nil {
		return 1
	}
	return uint32(tree.Size())
}

// Encode serializes tree into NodeCount(tree) records, in the reverse of
// identifier order: children come before their parent and the root is last.
// A nil tree encodes as one all-zero record.
func Encode(tree *csg.BinaryTree) []byte {
	if tree == nil {
		return make([]byte, RecordSize)
	}
	nodes := tree.Nodes()
	buf := make([]byte, len(nodes)*RecordSize)
	for i := range nodes {
		n := nodes[len(nodes)-1-i]
		putNode(buf[i*RecordSize:(i+1)*RecordSize], n)
	}
	return buf
}

// EncodeHeader returns the header buffer contents for a node count.
func EncodeHeader(count uint32) []byte {
	b := make([]byte, HeaderSize)
	binary.NativeEndian.PutUint32(b, count)
	return b
}

func putNode(b []byte, n csg.Node) {
	putU32(b, OffsetID, n.ID)
	if !n.IsLeaf() {
		putU32(b, OffsetKind, uint32(opKind(n.Op)))
		return
	}

	p := n.Primitive
	putVec3(b, OffsetPosition, p.Offset)
	switch p.Kind {
	case csg.KindSphere:
		putF32(b, OffsetRadius, p.Radius)
		putU32(b, OffsetKind, uint32(KindSphere))
	case csg.KindCube:
		putVec3(b, OffsetRotation, p.Rotation.V)
		putF32(b, OffsetRotation+12, p.Rotation.W)
		putVec3(b, OffsetSize, p.Size)
		putU32(b, OffsetKind, uint32(KindCube))
	}
}

func opKind(op csg.OpKind) Kind {
	switch op {
	case csg.OpUnion:
		return KindUnion
	case csg.OpIntersection:
		return KindIntersection
	case csg.OpDifference:
		return KindDifference
	}
	return KindEmpty
}

// Decode parses records produced by Encode.
func Decode(b []byte) ([]Record, error) {
	if len(b)%RecordSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrMisaligned, len(b))
	}
	out := make([]Record, len(b)/RecordSize)
	for i := range out {
		r := b[i*RecordSize : (i+1)*RecordSize]
		rec := Record{
			ID:     getU32(r, OffsetID),
			Kind:   Kind(getU32(r, OffsetKind)),
			Offset: getVec3(r, OffsetPosition),
		}
		switch rec.Kind {
		case KindSphere:
			rec.Radius = getF32(r, OffsetRadius)
		case KindCube:
			rec.Rotation = mgl32.Quat{V: getVec3(r, OffsetRotation), W: getF32(r, OffsetRotation+12)}
			rec.Size = getVec3(r, OffsetSize)
		}
		out[i] = rec
	}
	return out, nil
}

// DecodeHeader reads the node count from a header buffer.
func DecodeHeader(b []byte) (uint32, error) {
	if len(b) < HeaderSize {
		return 0, fmt.Errorf("gpunode: header needs %d bytes, got %d", HeaderSize, len(b))
	}
	return binary.NativeEndian.Uint32(b), nil
}

func putU32(b []byte, off int, v uint32) { binary.NativeEndian.PutUint32(b[off:], v) }
func putF32(b []byte, off int, v float32) { putU32(b, off, math.Float32bits(v)) }

func putVec3(b []byte, off int, v mgl32.Vec3) {
	putF32(b, off, v[0])
	putF32(b, off+4, v[1])
	putF32(b, off+8, v[2])
}

func getU32(b []byte, off int) uint32  { return binary.NativeEndian.Uint32(b[off:]) }
func getF32(b []byte, off int) float32 { return math.Float32frombits(getU32(b, off)) }

func getVec3(b []byte, off int) mgl32.Vec3 {
	return mgl32.Vec3{getF32(b, off), getF32(b, off+4), getF32(b, off+8)}
}
