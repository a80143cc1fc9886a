package csg

import (
	"errors"
	"fmt"
	"math"
)

// ErrTooManyNodes is returned when a tree has more nodes than a uint32
// identifier can address. The scene cannot be rendered.
var ErrTooManyNodes = errors.New("csg: node count exceeds uint32 identifier range")

// maxNodes is the largest tree that can be encoded. The node count travels in
// a uint32 header, so it must fit there too.
const maxNodes = uint64(math.MaxUint32)

// Node is one node of a BinaryTree. Leaves have Op == 0 and carry a
// Primitive; operation nodes reference their children by identifier.
type Node struct {
	ID        uint32
	Op        OpKind
	Primitive Primitive
	Left      uint32
	Right     uint32
}

// IsLeaf reports whether n is a primitive.
func (n Node) IsLeaf() bool { return n.Op == 0 }

// BinaryTree is the normalized form of an Object: every operation has exactly
// two children.
//
// Identifiers are assigned depth first, parent then right subtree then left
// subtree, starting at 0. The root is always id 0 and Nodes()[i].ID == i.
// Encoding the nodes in reverse id order gives a left-first post-order stream
// in which the root is the last record and each operation finds its right
// operand on top of the stack.
type BinaryTree struct {
	nodes  []Node
	height int
	stack  int
}

// Size returns the number of nodes. Always at least 1.
func (t *BinaryTree) Size() int { return len(t.nodes) }

// Height returns the longest root-to-leaf path counted in nodes. A tree
// holding a single primitive has height 1.
func (t *BinaryTree) Height() int { return t.height }

// StackDepth returns the number of stack slots the reversed-order evaluator
// needs. It never exceeds Height. Left-deep folds such as a flat Union need
// two slots however many children they have.
func (t *BinaryTree) StackDepth() int { return t.stack }

// Root returns the root identifier.
func (t *BinaryTree) Root() uint32 { return 0 }

// Nodes returns the nodes in identifier order. The slice must not be modified.
func (t *BinaryTree) Nodes() []Node { return t.nodes }

// Node returns the node with the given identifier.
func (t *BinaryTree) Node(id uint32) Node { return t.nodes[id] }

// Binarize normalizes obj into a BinaryTree.
//
// Empty operations are resolved with boolean semantics first: they vanish
// from unions, make intersections empty, make a difference empty when they
// are its first operand and vanish when subtracted. An operation with one
// remaining child is replaced by that child. Two or more children fold left
// to right, so Union(a, b, c) becomes Union(Union(a, b), c).
//
// A tree that is empty after simplification returns (nil, nil). Callers
// encode it as the reserved empty record.
func Binarize(obj Object) (*BinaryTree, error) {
	return binarize(obj, maxNodes)
}

func binarize(obj Object, limit uint64) (*BinaryTree, error) {
	root := simplify(obj)
	if root == nil {
		return nil, nil
	}
	if n := root.count(); n > limit {
		return nil, fmt.Errorf("%w: %d nodes", ErrTooManyNodes, n)
	}

	t := &BinaryTree{}
	_, t.height, t.stack = t.assign(root)
	return t, nil
}

// bnode is the intermediate binary tree built by simplify.
type bnode struct {
	op          OpKind
	prim        Primitive
	left, right *bnode
}

func (b *bnode) count() uint64 {
	if b.op == 0 {
		return 1
	}
	return 1 + b.left.count() + b.right.count()
}

func simplify(obj Object) *bnode {
	switch v := obj.(type) {
	case Primitive:
		return &bnode{prim: v}
	case Op:
		return simplifyOp(v)
	}
	return nil
}

func simplifyOp(o Op) *bnode {
	var kids []*bnode
	for i, c := range o.Children {
		k := simplify(c)
		if k != nil {
			kids = append(kids, k)
			continue
		}
		switch {
		case o.Kind == OpIntersection:
			return nil
		case o.Kind == OpDifference && i == 0:
			return nil
		}
	}
	if len(kids) == 0 {
		return nil
	}
	acc := kids[0]
	for _, k := range kids[1:] {
		acc = &bnode{op: o.Kind, left: acc, right: k}
	}
	return acc
}

// assign appends b and its subtree (right before left) and returns the id of
// b, the subtree height and the stack depth needed to evaluate it.
func (t *BinaryTree) assign(b *bnode) (id uint32, height, stack int) {
	id = uint32(len(t.nodes))
	t.nodes = append(t.nodes, Node{ID: id, Op: b.op, Primitive: b.prim})
	if b.op == 0 {
		return id, 1, 1
	}

	right, rh, rs := t.assign(b.right)
	left, lh, ls := t.assign(b.left)
	t.nodes[id].Left = left
	t.nodes[id].Right = right

	// The left operand is evaluated first and waits on the stack while the
	// right one is evaluated.
	return id, 1 + max(lh, rh), max(ls, rs+1)
}
