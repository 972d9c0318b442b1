package driver

import (
	"fmt"

	"github.com/ardnew/devcore/fdt"
	"github.com/ardnew/devcore/pkg"
)

// Cells per entry of the fixed-layout configuration arrays.
const (
	pinCells   = 7
	clockCells = 7
	pllCells   = 7
)

// Reg is one register range from the "reg" property.
type Reg struct {
	Base   uint64
	Length uint64
	Name   string
}

// IRQ is one interrupt from the "interrupts" property.
type IRQ struct {
	Num  uint32
	Name string
}

// Pin is one pin-mux entry of a "pinctrl-N" property.
type Pin struct {
	MuxRegister    uint32
	MuxMode        uint32
	InputRegister  uint32
	InputDaisy     uint32
	ConfigRegister uint32
	InputOnfield   uint32
	ConfigValue    uint32
}

// Pins is a named pin-mux state.
type Pins struct {
	Name string
	Pins []Pin
}

// Clock is one entry of the "clock-cfg" property.
type Clock struct {
	Name          string
	RootClkIdx    uint32
	RootClkMuxIdx uint32
	PreDivider    uint32
	PostDivider   uint32
	CCGR          uint32
	CCGRRoot      uint32
	Rate          uint32
}

// PLL is one entry of the "pll-cfg" property. The output frequency is
// ref * (MDiv*65536 + KDiv) / (65536 * PDiv * (1 << SDiv)).
type PLL struct {
	Name   string
	Rate   uint32
	MDiv   uint32
	PDiv   uint32
	SDiv   uint32
	KDiv   uint32
	RefSel uint32
	ID     uint32
}

// DMAChannel is a client DMA channel from "dma-names" and "dmas".
type DMAChannel struct {
	Name string

	// ChanID is assigned by the DMA controller when the channel is
	// requested.
	ChanID uint

	// Spec references the controller node and its request arguments. Node
	// is [fdt.NotFound] when the reference could not be resolved.
	Spec fdt.Args
}

// Config is the configuration of a device parsed from its tree node.
type Config struct {
	// BusID is the "bus-id" property, or -1.
	BusID int

	Regs        []Reg
	IRQs        []IRQ
	Pins        []Pins
	Clocks      []Clock
	PLLs        []PLL
	DMAChannels []DMAChannel

	// DMAController reports whether the node provides DMA channels
	// ("#dma-cells" is present).
	DMAController bool
}

// ParseConfig reads the configuration of node off. Malformed mandatory
// properties panic.
func ParseConfig(t fdt.Tree, off int) *Config {
	return &Config{
		BusID:         parseBusID(t, off),
		Regs:          parseRegs(t, off),
		IRQs:          parseIRQs(t, off),
		Pins:          parsePins(t, off),
		Clocks:        parseClocks(t, off),
		PLLs:          parsePLLs(t, off),
		DMAChannels:   parseDMAChannels(t, off),
		DMAController: fdt.Bool(t, off, "#dma-cells"),
	}
}

func parseRegs(t fdt.Tree, off int) []Reg {
	cells, err := fdt.Uint32Array(t, off, "reg")
	if err != nil {
		return nil
	}
	parent := t.Parent(off)
	ac := fdt.AddressCells(t, parent)
	sc := max(fdt.SizeCells(t, parent), 0)
	if ac+sc == 0 {
		return nil
	}

	regs := make([]Reg, len(cells)/(ac+sc))
	for i := range regs {
		j := i * (ac + sc)
		regs[i].Base, _ = fdt.ReadCells(cells, j, ac)
		regs[i].Length, _ = fdt.ReadCells(cells, j+ac, sc)
	}
	names := fdt.StringList(t, off, "reg-names")
	for i := 0; i < len(names) && i < len(regs); i++ {
		regs[i].Name = names[i]
	}
	return regs
}

func parseIRQs(t fdt.Tree, off int) []IRQ {
	cells, err := fdt.Uint32Array(t, off, "interrupts")
	if err != nil {
		return nil
	}
	irqs := make([]IRQ, len(cells))
	for i, c := range cells {
		irqs[i].Num = c
	}
	names := fdt.StringList(t, off, "interrupt-names")
	for i := 0; i < len(names) && i < len(irqs); i++ {
		irqs[i].Name = names[i]
	}
	return irqs
}

func parsePins(t fdt.Tree, off int) []Pins {
	names := fdt.StringList(t, off, "pinctrl-names")
	if len(names) == 0 {
		return nil
	}
	out := make([]Pins, len(names))
	for i, name := range names {
		prop := fmt.Sprintf("pinctrl-%d", i)
		cells, err := fdt.Uint32Array(t, off, prop)
		if err != nil {
			panic(fmt.Sprintf("driver: %s: %s named %q: %v", t.Name(off), prop, name, err))
		}
		out[i].Name = name
		out[i].Pins = make([]Pin, len(cells)/pinCells)
		for k := range out[i].Pins {
			c := cells[k*pinCells:]
			out[i].Pins[k] = Pin{c[0], c[1], c[2], c[3], c[4], c[5], c[6]}
		}
	}
	return out
}

// namedGroups pairs a name list with a fixed-stride cell array.
func namedGroups(t fdt.Tree, off int, namesProp, cfgProp string, stride int) ([]string, []uint32) {
	names := fdt.StringList(t, off, namesProp)
	if len(names) == 0 {
		return nil, nil
	}
	cells, err := fdt.Uint32Array(t, off, cfgProp)
	if err != nil {
		return nil, nil
	}
	if n := len(cells) / stride; n < len(names) {
		pkg.LogWarn(pkg.ComponentDriver, "configuration shorter than name list",
			"node", t.Name(off), "property", cfgProp, "names", len(names), "entries", n)
		names = names[:n]
	}
	return names, cells
}

func parseClocks(t fdt.Tree, off int) []Clock {
	names, cells := namedGroups(t, off, "clock-names", "clock-cfg", clockCells)
	if len(names) == 0 {
		return nil
	}
	clks := make([]Clock, len(names))
	for i, name := range names {
		c := cells[i*clockCells:]
		clks[i] = Clock{name, c[0], c[1], c[2], c[3], c[4], c[5], c[6]}
	}
	return clks
}

func parsePLLs(t fdt.Tree, off int) []PLL {
	names, cells := namedGroups(t, off, "pll-names", "pll-cfg", pllCells)
	if len(names) == 0 {
		return nil
	}
	plls := make([]PLL, len(names))
	for i, name := range names {
		c := cells[i*pllCells:]
		plls[i] = PLL{name, c[0], c[1], c[2], c[3], c[4], c[5], c[6]}
	}
	return plls
}

func parseDMAChannels(t fdt.Tree, off int) []DMAChannel {
	names := fdt.StringList(t, off, "dma-names")
	if len(names) == 0 || !fdt.Bool(t, off, "dmas") {
		return nil
	}
	chans := make([]DMAChannel, len(names))
	for i, name := range names {
		chans[i].Name = name
		spec, err := fdt.PhandleArgs(t, off, "dmas", "#dma-cells", i)
		if err != nil {
			pkg.LogWarn(pkg.ComponentDriver, "unresolved dma channel",
				"node", t.Name(off), "channel", name, "error", err)
			spec = fdt.Args{Node: fdt.NotFound}
		}
		chans[i].Spec = spec
	}
	return chans
}

func parseBusID(t fdt.Tree, off int) int {
	v, err := fdt.Uint32(t, off, "bus-id")
	if err != nil || int32(v) < 0 {
		return -1
	}
	return int(v)
}

// RegByName returns the register range called name, or nil.
func (c *Config) RegByName(name string) *Reg {
	for i := range c.Regs {
		if c.Regs[i].Name == name {
			return &c.Regs[i]
		}
	}
	return nil
}

// IRQByName returns the interrupt called name, or nil.
func (c *Config) IRQByName(name string) *IRQ {
	for i := range c.IRQs {
		if c.IRQs[i].Name == name {
			return &c.IRQs[i]
		}
	}
	return nil
}

// ClockByName returns the clock called name, or nil.
func (c *Config) ClockByName(name string) *Clock {
	if c == nil {
		return nil
	}
	for i := range c.Clocks {
		if c.Clocks[i].Name == name {
			return &c.Clocks[i]
		}
	}
	return nil
}

// PLLByName returns the PLL called name, or nil.
func (c *Config) PLLByName(name string) *PLL {
	for i := range c.PLLs {
		if c.PLLs[i].Name == name {
			return &c.PLLs[i]
		}
	}
	return nil
}

// PinsByName returns the pin-mux state called name, or nil.
func (c *Config) PinsByName(name string) *Pins {
	for i := range c.Pins {
		if c.Pins[i].Name == name {
			return &c.Pins[i]
		}
	}
	return nil
}

// DMAChannelByName returns the client DMA channel called name, or nil.
func (c *Config) DMAChannelByName(name string) *DMAChannel {
	if c == nil {
		return nil
	}
	for i := range c.DMAChannels {
		if c.DMAChannels[i].Name == name {
			return &c.DMAChannels[i]
		}
	}
	return nil
}
