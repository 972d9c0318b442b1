package fdt

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/u-root/u-root/pkg/dt"

	"github.com/ardnew/devcore/pkg"
)

// NotFound is the offset returned when a lookup finds no node.
const NotFound = -1

// Tree is read-only access to a flattened hardware-description tree. Nodes
// are addressed by offset, a stable integer assigned in depth-first order
// with the root at zero.
type Tree interface {
	// Name returns the node name including any unit address.
	Name(off int) string

	// Parent returns the offset of the parent node, or [NotFound] for the
	// root.
	Parent(off int) int

	// Property returns the raw big-endian value of a property.
	Property(off int, name string) ([]byte, bool)

	// NodeByCompatible returns the first node after offset start whose
	// compatible list contains compatible. Pass [NotFound] to search from
	// the root.
	NodeByCompatible(start int, compatible string) int

	// NodeByPhandle returns the node with the given phandle.
	NodeByPhandle(phandle uint32) int

	// NodeByPath resolves an absolute path such as "/soc/serial@30860000".
	NodeByPath(path string) int

	// Children returns the offsets of the direct subnodes of off.
	Children(off int) []int
}

type entry struct {
	node     *dt.Node
	parent   int
	path     string
	children []int
}

// Blob is a [Tree] built over a parsed u-root device tree.
type Blob struct {
	nodes    []entry
	phandles map[uint32]int
}

// Read parses a flattened device tree blob.
func Read(r io.ReadSeeker) (*Blob, error) {
	f, err := dt.ReadFDT(r)
	if err != nil {
		return nil, fmt.Errorf("fdt: %w", err)
	}
	b := New(f.RootNode)
	pkg.LogDebug(pkg.ComponentFDT, "loaded tree", "nodes", len(b.nodes), "phandles", len(b.phandles))
	return b, nil
}

// New indexes the tree rooted at root.
func New(root *dt.Node) *Blob {
	b := &Blob{phandles: make(map[uint32]int)}
	if root != nil {
		b.walk(root, NotFound, "")
	}
	return b
}

func (b *Blob) walk(n *dt.Node, parent int, parentPath string) {
	path := "/"
	if parent != NotFound {
		path = strings.TrimSuffix(parentPath, "/") + "/" + n.Name
	}
	off := len(b.nodes)
	b.nodes = append(b.nodes, entry{node: n, parent: parent, path: path})

	for _, name := range []string{"phandle", "linux,phandle"} {
		if v, ok := b.Property(off, name); ok && len(v) >= 4 {
			b.phandles[be32(v)] = off
			break
		}
	}
	for _, c := range n.Children {
		b.nodes[off].children = append(b.nodes[off].children, len(b.nodes))
		b.walk(c, off, path)
	}
}

func (b *Blob) valid(off int) bool { return off >= 0 && off < len(b.nodes) }

// Len returns the number of nodes.
func (b *Blob) Len() int { return len(b.nodes) }

// Name implements [Tree].
func (b *Blob) Name(off int) string {
	if !b.valid(off) {
		return ""
	}
	return b.nodes[off].node.Name
}

// Path returns the absolute path of the node.
func (b *Blob) Path(off int) string {
	if !b.valid(off) {
		return ""
	}
	return b.nodes[off].path
}

// Parent implements [Tree].
func (b *Blob) Parent(off int) int {
	if !b.valid(off) {
		return NotFound
	}
	return b.nodes[off].parent
}

// Property implements [Tree].
func (b *Blob) Property(off int, name string) ([]byte, bool) {
	if !b.valid(off) {
		return nil, false
	}
	for _, p := range b.nodes[off].node.Properties {
		if p.Name == name {
			return p.Value, true
		}
	}
	return nil, false
}

// NodeByCompatible implements [Tree].
func (b *Blob) NodeByCompatible(start int, compatible string) int {
	for off := start + 1; off < len(b.nodes); off++ {
		v, ok := b.Property(off, "compatible")
		if !ok {
			continue
		}
		for _, s := range splitStrings(v) {
			if s == compatible {
				return off
			}
		}
	}
	return NotFound
}

// NodeByPhandle implements [Tree].
func (b *Blob) NodeByPhandle(phandle uint32) int {
	if phandle == 0 || phandle == 0xffffffff {
		return NotFound
	}
	if off, ok := b.phandles[phandle]; ok {
		return off
	}
	return NotFound
}

// Children implements [Tree].
func (b *Blob) Children(off int) []int {
	if !b.valid(off) {
		return nil
	}
	return b.nodes[off].children
}

// NodeByPath implements [Tree].
func (b *Blob) NodeByPath(path string) int {
	for off, e := range b.nodes {
		if e.path == path {
			return off
		}
	}
	return NotFound
}

func splitStrings(v []byte) []string {
	v = bytes.TrimRight(v, "\x00")
	if len(v) == 0 {
		return nil
	}
	return strings.Split(string(v), "\x00")
}
