package fdt

import (
	"encoding/binary"
	"fmt"

	"github.com/ardnew/devcore/pkg"
)

// MaxPhandleArgs bounds the argument cells kept for one phandle reference.
const MaxPhandleArgs = 16

// Default cell counts when a parent omits #address-cells or #size-cells.
const (
	DefaultAddressCells = 2
	DefaultSizeCells    = 1
)

func be32(p []byte) uint32 { return binary.BigEndian.Uint32(p) }

// StringList returns the NUL-separated strings of a property.
func StringList(t Tree, off int, name string) []string {
	v, ok := t.Property(off, name)
	if !ok {
		return nil
	}
	return splitStrings(v)
}

// String returns the first string of a property.
func String(t Tree, off int, name string) (string, bool) {
	list := StringList(t, off, name)
	if len(list) == 0 {
		return "", false
	}
	return list[0], true
}

// Bool reports whether a property is present.
func Bool(t Tree, off int, name string) bool {
	_, ok := t.Property(off, name)
	return ok
}

// Uint32 returns the first cell of a property.
func Uint32(t Tree, off int, name string) (uint32, error) {
	v, ok := t.Property(off, name)
	if !ok || len(v) < 4 {
		return 0, fmt.Errorf("fdt: %s: property %q: %w", t.Name(off), name, pkg.ErrNotFound)
	}
	return be32(v), nil
}

// Uint32Array decodes every whole cell of a property.
func Uint32Array(t Tree, off int, name string) ([]uint32, error) {
	v, ok := t.Property(off, name)
	if !ok {
		return nil, fmt.Errorf("fdt: %s: property %q: %w", t.Name(off), name, pkg.ErrNotFound)
	}
	out := make([]uint32, len(v)/4)
	for i := range out {
		out[i] = be32(v[i*4:])
	}
	return out, nil
}

// ReadCells folds n consecutive cells starting at cell index i into one
// value, most significant first.
func ReadCells(cells []uint32, i, n int) (uint64, error) {
	if i < 0 || n < 0 || i+n > len(cells) {
		return 0, fmt.Errorf("fdt: cells [%d:%d] of %d: %w", i, i+n, len(cells), pkg.ErrInvalidArgs)
	}
	var v uint64
	for _, c := range cells[i : i+n] {
		v = v<<32 | uint64(c)
	}
	return v, nil
}

// AddressCells returns #address-cells of node off.
func AddressCells(t Tree, off int) int {
	if v, err := Uint32(t, off, "#address-cells"); err == nil {
		return int(v)
	}
	return DefaultAddressCells
}

// SizeCells returns #size-cells of node off.
func SizeCells(t Tree, off int) int {
	if v, err := Uint32(t, off, "#size-cells"); err == nil {
		return int(v)
	}
	return DefaultSizeCells
}

// Alias resolves an entry of the /aliases node to a node offset.
func Alias(t Tree, name string) int {
	aliases := t.NodeByPath("/aliases")
	if aliases == NotFound {
		return NotFound
	}
	path, ok := String(t, aliases, name)
	if !ok {
		return NotFound
	}
	return t.NodeByPath(path)
}

// Args is one decoded phandle reference: the target node and the argument
// cells that follow the phandle.
type Args struct {
	Node int
	Args []uint32
}

// PhandleArgs decodes entry index of a phandle-with-arguments list such as
// "dmas" or "gpios". The number of argument cells of each entry is read
// from the cellsName property ("#dma-cells") of the referenced node.
func PhandleArgs(t Tree, src int, listName, cellsName string, index int) (Args, error) {
	if index < 0 {
		return Args{}, fmt.Errorf("fdt: index %d: %w", index, pkg.ErrInvalidArgs)
	}
	cells, err := Uint32Array(t, src, listName)
	if err != nil {
		return Args{}, err
	}

	j := 0
	for i := 0; ; i++ {
		if j >= len(cells) {
			return Args{}, fmt.Errorf("fdt: %s: %s[%d]: %w", t.Name(src), listName, index, pkg.ErrNotFound)
		}
		phandle := cells[j]
		if phandle == 0 {
			return Args{}, fmt.Errorf("fdt: %s: %s[%d]: null phandle: %w", t.Name(src), listName, i, pkg.ErrNotFound)
		}
		node := t.NodeByPhandle(phandle)
		if node == NotFound {
			return Args{}, fmt.Errorf("fdt: %s: phandle %#x: %w", t.Name(src), phandle, pkg.ErrNotFound)
		}
		count, err := Uint32(t, node, cellsName)
		if err != nil {
			return Args{}, fmt.Errorf("fdt: %s: %s of %s: %w", t.Name(src), cellsName, t.Name(node), pkg.ErrNotFound)
		}
		n := int(count)
		if j+1+n > len(cells) {
			return Args{}, fmt.Errorf("fdt: %s: %s: not enough arguments: %w", t.Name(src), listName, pkg.ErrNotFound)
		}
		if i == index {
			kept := min(n, MaxPhandleArgs)
			if n > MaxPhandleArgs {
				pkg.LogWarn(pkg.ComponentFDT, "too many phandle arguments",
					"node", t.Name(src), "list", listName, "count", n)
			}
			return Args{Node: node, Args: append([]uint32(nil), cells[j+1:j+1+kept]...)}, nil
		}
		j += 1 + n
	}
}

// U32 encodes cells as a big-endian property value.
func U32(cells ...uint32) []byte {
	out := make([]byte, 4*len(cells))
	for i, c := range cells {
		binary.BigEndian.PutUint32(out[i*4:], c)
	}
	return out
}

// Strings encodes a NUL-separated string list property value.
func Strings(list ...string) []byte {
	var out []byte
	for _, s := range list {
		out = append(out, s...)
		out = append(out, 0)
	}
	return out
}

// Compatible reports whether node off lists compatible.
func Compatible(t Tree, off int, compatible string) bool {
	for _, s := range StringList(t, off, "compatible") {
		if s == compatible {
			return true
		}
	}
	return false
}
