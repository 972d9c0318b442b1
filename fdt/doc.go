// Package fdt reads the flattened hardware-description tree used for device
// enumeration.
//
// The [Tree] interface is the narrow view the driver model needs: property
// lookup, compatible and phandle search, and parent links. [Blob] implements
// it over github.com/u-root/u-root/pkg/dt, either from a DTB image with
// [Read] or from an in-memory node tree with [New].
//
// The helpers in this package decode property values with explicit bounds:
// cell arrays, string lists, #address-cells / #size-cells folding and
// phandle-with-arguments lists:
//
//	args, err := fdt.PhandleArgs(tree, node, "dmas", "#dma-cells", 0)
//	if err != nil {
//	    return err
//	}
//	ctrl := args.Node
package fdt
