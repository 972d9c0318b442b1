package gpio

import (
	"fmt"
	"sync"
	"time"

	pgpio "periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"

	"github.com/ardnew/devcore/pkg"
)

// Pin exposes a descriptor as a periph.io [pgpio.PinIO] so portable device
// drivers can use class GPIOs. Edge detection, pull resistors and PWM are
// not available through a descriptor.
type Pin struct {
	name string

	mu   sync.Mutex
	desc Desc
}

// NewPin returns a pin for d. The descriptor is copied.
func NewPin(name string, d Desc) *Pin {
	return &Pin{name: name, desc: d}
}

var _ pgpio.PinIO = (*Pin)(nil)

func (p *Pin) String() string { return p.name }
func (p *Pin) Name() string   { return p.name }
func (p *Pin) Halt() error    { return nil }

// Number returns the global pin number, or -1 when the controller is gone.
func (p *Pin) Number() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	c := ControllerOf(p.desc.Dev)
	if c == nil {
		return -1
	}
	return int(c.Base + p.desc.Nr)
}

// Function returns "Out", "In" or "" when no direction has been set.
func (p *Pin) Function() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case p.desc.Flags&FlagOutput != 0:
		return "Out"
	case p.desc.Flags&FlagInput != 0:
		return "In"
	}
	return ""
}

// In switches the pin to input. Only [pgpio.PullNoChange] or
// [pgpio.Float] and [pgpio.NoEdge] are accepted.
func (p *Pin) In(pull pgpio.Pull, edge pgpio.Edge) error {
	if edge != pgpio.NoEdge {
		return fmt.Errorf("gpio %s: edge %s: %w", p.name, edge, pkg.ErrNotSupported)
	}
	if pull != pgpio.PullNoChange && pull != pgpio.Float {
		return fmt.Errorf("gpio %s: pull %s: %w", p.name, pull, pkg.ErrNotSupported)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.desc.Flags = p.desc.Flags&^(FlagOutput|FlagOutputActive) | FlagInput
	return SetDirection(&p.desc)
}

// Read returns the logical level. Read errors yield [pgpio.Low].
func (p *Pin) Read() pgpio.Level {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, err := GetValue(&p.desc)
	if err != nil {
		pkg.LogDebug(pkg.ComponentGPIO, "read failed", "pin", p.name, "error", err)
		return pgpio.Low
	}
	return v != 0
}

func (p *Pin) WaitForEdge(time.Duration) bool { return false }
func (p *Pin) Pull() pgpio.Pull               { return pgpio.PullNoChange }
func (p *Pin) DefaultPull() pgpio.Pull        { return pgpio.PullNoChange }

// Out drives the pin to l, switching it to output first when needed.
func (p *Pin) Out(l pgpio.Level) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.desc.Flags&FlagOutput == 0 {
		p.desc.Flags = p.desc.Flags&^(FlagInput|FlagOutputActive) | FlagOutput
		if l {
			p.desc.Flags |= FlagOutputActive
		}
		return SetDirection(&p.desc)
	}
	v := 0
	if l {
		v = 1
	}
	return SetValue(&p.desc, v)
}

func (p *Pin) PWM(pgpio.Duty, physic.Frequency) error {
	return fmt.Errorf("gpio %s: pwm: %w", p.name, pkg.ErrNotSupported)
}
