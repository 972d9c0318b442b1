package driver

import (
	"github.com/ardnew/devcore/fdt"
	"github.com/ardnew/devcore/pkg"
)

// Configurator programs the SoC pin mux and clock tree. Platforms supply
// one; the registry only decides which entries to apply.
type Configurator interface {
	SetPin(p Pin)
	SetClock(c Clock)
	SetDPLL(p PLL)
}

type nopConfigurator struct{}

func (nopConfigurator) SetPin(Pin)     {}
func (nopConfigurator) SetClock(Clock) {}
func (nopConfigurator) SetDPLL(PLL)    {}

// Clock nodes handled by [Registry.SetupClocks].
const (
	clocksCompatible   = "nxp,clocks"
	audioPLLCompatible = "nxp,clocks,audiopll"
)

// SetClocks applies every clock in clks.
func (r *Registry) SetClocks(clks []Clock) {
	for _, c := range clks {
		pkg.LogDebug(pkg.ComponentDriver, "configuring clock", "clock", c.Name)
		r.opts.Configurator.SetClock(c)
	}
}

// SetPins applies a pin-mux state.
func (r *Registry) SetPins(p *Pins) {
	if p == nil {
		return
	}
	pkg.LogDebug(pkg.ComponentDriver, "configuring pins", "state", p.Name)
	for _, pin := range p.Pins {
		r.opts.Configurator.SetPin(pin)
	}
}

// SetPinsByName applies the pin-mux state called name from states.
func (r *Registry) SetPinsByName(states []Pins, name string) error {
	if name == "" || states == nil {
		return pkg.ErrInvalidArgs
	}
	for i := range states {
		if states[i].Name == name {
			r.SetPins(&states[i])
			return nil
		}
	}
	return pkg.ErrNotFound
}

// SetupClocks programs the audio PLLs described under every clocks node.
func (r *Registry) SetupClocks() {
	t := r.Tree()
	if t == nil {
		return
	}
	for off := t.NodeByCompatible(fdt.NotFound, clocksCompatible); off != fdt.NotFound; off = t.NodeByCompatible(off, clocksCompatible) {
		for _, node := range t.Children(off) {
			if !fdt.Compatible(t, node, audioPLLCompatible) {
				continue
			}
			cells, err := fdt.Uint32Array(t, node, "settings")
			if err != nil || len(cells) < pllCells {
				pkg.LogWarn(pkg.ComponentDriver, "audio pll without settings", "node", t.Name(node))
				continue
			}
			pll := PLL{t.Name(node), cells[0], cells[1], cells[2], cells[3], cells[4], cells[5], cells[6]}
			pkg.LogDebug(pkg.ComponentDriver, "configuring pll", "node", pll.Name, "rate", pll.Rate)
			r.opts.Configurator.SetDPLL(pll)
		}
	}
}
