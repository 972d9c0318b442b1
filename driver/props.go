package driver

import (
	"fmt"

	"github.com/ardnew/devcore/fdt"
	"github.com/ardnew/devcore/pkg"
)

// Limits of a named configuration.
const (
	MaxClocksPerConfig = 8
	MaxPLLsPerConfig   = 6
	MaxGPRRegs         = 4
)

// NamedConfig is a named operating mode of a device, assembled from the
// "config-<name>", "pll-mask-<name>", "gpr-<name>", "gpio-<name>" and
// "sai-<name>" properties of its node.
type NamedConfig struct {
	Name string

	// Clocks are the device clocks listed by "config-<name>".
	Clocks []*Clock

	// PLLMask selects the PLLs to bring up. All of them by default.
	PLLMask uint32

	// GPR holds up to 3*MaxGPRRegs general purpose register triplets.
	GPR []uint32

	// GPIO references the controller pin from "gpio-<name>". Node is
	// [fdt.NotFound] when the property is absent.
	GPIO fdt.Args

	// ClkMode is the SAI clocking mode, 0 by default.
	ClkMode uint32
}

func (d *Device) tr() (fdt.Tree, error) {
	if d == nil || d.tree == nil {
		return nil, pkg.ErrNotFound
	}
	return d.tree, nil
}

// Uint32 returns the first cell of property name.
func (d *Device) Uint32(name string) (uint32, error) {
	t, err := d.tr()
	if err != nil {
		return 0, err
	}
	return fdt.Uint32(t, d.Node, name)
}

// Uint32Array returns every cell of property name.
func (d *Device) Uint32Array(name string) ([]uint32, error) {
	t, err := d.tr()
	if err != nil {
		return nil, err
	}
	return fdt.Uint32Array(t, d.Node, name)
}

// Bool reports whether property name is present.
func (d *Device) Bool(name string) bool {
	t, err := d.tr()
	return err == nil && fdt.Bool(t, d.Node, name)
}

// Strings returns the string list of property name.
func (d *Device) Strings(name string) []string {
	t, err := d.tr()
	if err != nil {
		return nil
	}
	return fdt.StringList(t, d.Node, name)
}

// ParentBusID returns the "bus-id" of the parent node.
func (d *Device) ParentBusID() (uint32, error) {
	t, err := d.tr()
	if err != nil {
		return 0, err
	}
	return fdt.Uint32(t, t.Parent(d.Node), "bus-id")
}

// PhandleArgs decodes entry index of a phandle list of the device node.
func (d *Device) PhandleArgs(list, cells string, index int) (fdt.Args, error) {
	t, err := d.tr()
	if err != nil {
		return fdt.Args{}, err
	}
	return fdt.PhandleArgs(t, d.Node, list, cells, index)
}

// ConfigByName assembles the named configuration name. It fails with
// [pkg.ErrNotFound] when "config-<name>" lists no clock. A listed clock
// missing from the device's clock configuration panics.
func (d *Device) ConfigByName(name string) (*NamedConfig, error) {
	t, err := d.tr()
	if err != nil {
		return nil, err
	}

	clocks := fdt.StringList(t, d.Node, "config-"+name)
	if len(clocks) == 0 {
		return nil, fmt.Errorf("%s: config %q: %w", d.Name, name, pkg.ErrNotFound)
	}
	if len(clocks) > MaxClocksPerConfig {
		panic(fmt.Sprintf("driver: %s: config %q lists %d clocks, limit %d",
			d.Name, name, len(clocks), MaxClocksPerConfig))
	}

	nc := &NamedConfig{
		Name:    name,
		PLLMask: 1<<MaxPLLsPerConfig - 1,
		GPIO:    fdt.Args{Node: fdt.NotFound},
	}
	for _, clk := range clocks {
		c := d.Config.ClockByName(clk)
		if c == nil {
			panic(fmt.Sprintf("driver: %s: config %q: clock %q does not exist", d.Name, name, clk))
		}
		nc.Clocks = append(nc.Clocks, c)
	}

	if v, err := fdt.Uint32(t, d.Node, "pll-mask-"+name); err == nil {
		nc.PLLMask = v
	}
	if gpr, err := fdt.Uint32Array(t, d.Node, "gpr-"+name); err == nil {
		nc.GPR = gpr[:min(len(gpr), 3*MaxGPRRegs)]
	}
	if args, err := fdt.PhandleArgs(t, d.Node, "gpio-"+name, "#gpio-cells", 0); err == nil {
		nc.GPIO = args
	}
	if v, err := fdt.Uint32(t, d.Node, "sai-"+name); err == nil {
		nc.ClkMode = v
	}
	return nc, nil
}
