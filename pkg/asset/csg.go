package asset

import (
	"errors"
	"fmt"

	"github.com/chazu/morpheus/pkg/csg"
	"github.com/chazu/morpheus/pkg/csgbuf"
	"github.com/chazu/morpheus/pkg/gpu"
	"github.com/chazu/morpheus/pkg/gpunode"
	"github.com/chazu/morpheus/pkg/kernel"
	"github.com/chazu/morpheus/pkg/kernel/sdfx"
	"github.com/chazu/morpheus/pkg/shader"
	"github.com/go-gl/mathgl/mgl32"
)

// ErrTooDeep is returned when a tree needs more evaluator stack slots than
// the shader provides.
var ErrTooDeep = errors.New("asset: csg tree exceeds shader stack depth")

// boundsPadding widens proxy boxes so surfaces lying on the box faces are
// still reached by the marcher.
const boundsPadding = 0.01

var boundsKernel kernel.Kernel = sdfx.New(0)

// CSGAsset is a CSG object made resident as an encoded node buffer.
type CSGAsset struct {
	label string
	obj   csg.Object

	tree     *csg.BinaryTree
	buf      *csgbuf.Buffer
	min, max mgl32.Vec3
}

// NewCSG wraps obj for loading. label names the device resources.
func NewCSG(label string, obj csg.Object) *CSGAsset {
	return &CSGAsset{label: label, obj: obj}
}

// Commit binarizes, encodes and uploads the object. When prev holds a node
// buffer it is taken over and updated in place where possible.
func (a *CSGAsset) Commit(ctx Context, prev *CSGAsset) error {
	tree, err := csg.Binarize(a.obj)
	if err != nil {
		return err
	}
	if tree != nil && tree.StackDepth() > shader.MaxStackDepth {
		return fmt.Errorf("%w: needs %d slots, have %d", ErrTooDeep, tree.StackDepth(), shader.MaxStackDepth)
	}
	lo, hi, err := kernel.Bounds(boundsKernel, a.obj)
	if err != nil {
		return err
	}

	payload := gpunode.Encode(tree)
	count := gpunode.NodeCount(tree)

	var buf *csgbuf.Buffer
	if prev != nil && prev.buf != nil {
		if err := prev.buf.Update(ctx.Device, payload, count); err != nil {
			return err
		}
		buf, prev.buf = prev.buf, nil
	} else {
		buf, err = csgbuf.Create(ctx.Device, ctx.Layouts.CSG, a.label, payload, count)
		if err != nil {
			return err
		}
	}

	if a.buf != nil && a.buf != buf {
		a.buf.Release()
	}
	a.buf = buf
	a.tree = tree
	if tree != nil {
		pad := mgl32.Vec3{boundsPadding, boundsPadding, boundsPadding}
		a.min, a.max = lo.Sub(pad), hi.Add(pad)
	} else {
		a.min, a.max = mgl32.Vec3{}, mgl32.Vec3{}
	}
	return nil
}

// Release frees the node buffer.
func (a *CSGAsset) Release() {
	if a.buf != nil {
		a.buf.Release()
		a.buf = nil
	}
}

// Label returns the resource label.
func (a *CSGAsset) Label() string { return a.label }

// Object returns the source object.
func (a *CSGAsset) Object() csg.Object { return a.obj }

// Tree returns the binarized tree from the last commit, nil for an empty
// object or before the first commit.
func (a *CSGAsset) Tree() *csg.BinaryTree { return a.tree }

// Empty reports whether the committed object has no geometry.
func (a *CSGAsset) Empty() bool { return a.tree == nil }

// Bounds returns the padded local bounding box of the committed object.
func (a *CSGAsset) Bounds() (min, max mgl32.Vec3) { return a.min, a.max }

// Buffer returns the node buffer, nil before the first commit.
func (a *CSGAsset) Buffer() *csgbuf.Buffer { return a.buf }

// BindGroup returns the bind group exposing the nodes to the shader.
func (a *CSGAsset) BindGroup() gpu.BindGroup {
	if a.buf == nil {
		return nil
	}
	return a.buf.BindGroup()
}
