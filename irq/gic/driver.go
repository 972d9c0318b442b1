package gic

import (
	"context"
	"fmt"

	"github.com/ardnew/devcore/driver"
	"github.com/ardnew/devcore/fdt"
	"github.com/ardnew/devcore/hal"
	"github.com/ardnew/devcore/irq"
	"github.com/ardnew/devcore/pkg"
)

// Compatible is the tree compatible string of a GICv3 distributor node.
const Compatible = "arm,gic-v3"

// DefaultStride is the redistributor stride used when the node has no
// "redistributor-stride" property: a control frame and an SGI frame.
const DefaultStride = 0x20000

// Mapper maps the physical range [base, base+size) as a register window.
type Mapper func(base uint64, size int) (hal.Registers, error)

// Platform is what the GIC binding needs besides the tree node.
type Platform struct {
	Manager *irq.Manager
	Sys     hal.GICSysRegs
	CPU     hal.CPU
	Map     Mapper
	IPIBase uint
}

// Driver returns a driver that brings up the GIC described by a node at
// the platform-early level. The node's first "reg" entry is the
// distributor, the second the redistributor region. On success the
// device's State holds the *GIC.
func Driver(p Platform) *driver.Driver {
	return &driver.Driver{
		Compatible: Compatible,
		Class:      "irq",
		Ops:        &binding{p: p},
		Level:      driver.LevelPlatformEarly,
	}
}

type binding struct {
	p Platform
}

// Init implements [driver.Initializer].
func (b *binding) Init(_ context.Context, dev *driver.Device) error {
	if b.p.Manager == nil || b.p.Map == nil {
		return pkg.ErrNotConfigured
	}
	regs := dev.Config.Regs
	if len(regs) < 2 {
		return fmt.Errorf("gic: %s: need distributor and redistributor regs: %w", dev.Name, pkg.ErrNotValid)
	}
	gicd, gicr := regs[0], regs[1]

	lo := min(gicd.Base, gicr.Base)
	hi := max(gicd.Base+gicd.Length, gicr.Base+gicr.Length)
	w, err := b.p.Map(lo, int(hi-lo))
	if err != nil {
		return fmt.Errorf("gic: %s: map %#x+%#x: %w", dev.Name, lo, hi-lo, err)
	}

	stride := uint64(DefaultStride)
	if v, err := fdt.Uint32(dev.Tree(), dev.Node, "redistributor-stride"); err == nil && v != 0 {
		stride = uint64(v)
	}

	g := New(b.p.Manager, w, b.p.Sys, b.p.CPU, Config{
		GICDOffset: uintptr(gicd.Base - lo),
		GICROffset: uintptr(gicr.Base - lo),
		GICRStride: uintptr(stride),
		IPIBase:    b.p.IPIBase,
	})
	if err := g.Init(); err != nil {
		return err
	}
	dev.State = g
	pkg.LogInfo(pkg.ComponentGIC, "controller bound", "device", dev.Name,
		"gicd", fmt.Sprintf("%#x", gicd.Base), "gicr", fmt.Sprintf("%#x", gicr.Base))
	return nil
}
