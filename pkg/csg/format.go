package csg

import (
	"fmt"
	"strings"
)

func (p Primitive) String() string {
	switch p.Kind {
	case KindSphere:
		return fmt.Sprintf("sphere r=%g at %v", p.Radius, p.Offset)
	case KindCube:
		return fmt.Sprintf("cube size=%v at %v rot=%v", p.Size, p.Offset, p.Rotation)
	}
	return p.Kind.String()
}

// String renders the tree one node per line, indented by depth.
func (t *BinaryTree) String() string {
	if t == nil {
		return "<empty>\n"
	}
	var sb strings.Builder
	t.format(&sb, t.Root(), 0)
	return sb.String()
}

func (t *BinaryTree) format(sb *strings.Builder, id uint32, depth int) {
	n := t.nodes[id]
	sb.WriteString(strings.Repeat("  ", depth))
	if n.IsLeaf() {
		fmt.Fprintf(sb, "#%d %s\n", n.ID, n.Primitive)
		return
	}
	fmt.Fprintf(sb, "#%d %s\n", n.ID, n.Op)
	t.format(sb, n.Left, depth+1)
	t.format(sb, n.Right, depth+1)
}
