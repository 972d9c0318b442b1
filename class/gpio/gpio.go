// Package gpio implements the GPIO class: controller registration with a
// flat global pin numbering, and pin descriptors that dispatch to the
// controller driver.
//
// A descriptor names a controller device, a pin number local to that
// controller and a set of [Flags]. Values seen through a descriptor are
// logical: [FlagActiveLow] inverts them on the way to the controller.
package gpio

import (
	"fmt"

	"github.com/ardnew/devcore/driver"
	"github.com/ardnew/devcore/fdt"
	"github.com/ardnew/devcore/pkg"
)

// Class is the driver class served by GPIO controller drivers.
const Class = "gpio"

// fallback is returned when the controller driver lacks an operation.
var fallback = pkg.ErrNotSupported

// Flags describe a descriptor's direction and polarity.
type Flags uint32

// Descriptor flags.
const (
	FlagRequested Flags = 1 << iota
	FlagOutput
	FlagInput
	FlagActiveLow
	FlagOutputActive // initial logical level of an output
)

// Desc references one pin of a controller. It does not own the controller.
type Desc struct {
	Dev   *driver.Device
	Flags Flags
	Nr    uint
}

// Capability interfaces implemented by controller driver operations. Value
// getters return 0 or 1, or -1 when the pin state cannot be read.
type (
	Requester interface {
		Request(dev *driver.Device, nr uint, label string) error
	}
	Freer interface {
		Free(dev *driver.Device, nr uint) error
	}
	InputSetter interface {
		DirectionInput(dev *driver.Device, nr uint) error
	}
	OutputSetter interface {
		DirectionOutput(dev *driver.Device, nr uint, value int) error
	}
	ValueGetter interface {
		GetValue(dev *driver.Device, nr uint) int
	}
	ValueSetter interface {
		SetValue(dev *driver.Device, nr uint, value int) error
	}
	OpenDrainGetter interface {
		GetOpenDrain(dev *driver.Device, nr uint) int
	}
	OpenDrainSetter interface {
		SetOpenDrain(dev *driver.Device, nr uint, value int) int
	}
	DescGetter interface {
		GetDesc(dev *driver.Device, args fdt.Args) (Desc, error)
	}
)

// check verifies that d references a registered controller and a pin it
// owns.
func (d *Desc) check() error {
	if d == nil || d.Dev == nil {
		return pkg.ErrInvalidArgs
	}
	c := ControllerOf(d.Dev)
	if c == nil {
		return fmt.Errorf("%s: no gpio controller: %w", d.Dev.Name, pkg.ErrNotReady)
	}
	if d.Nr >= c.Count {
		pkg.LogDebug(pkg.ComponentGPIO, "pin out of range", "device", d.Dev.Name, "nr", d.Nr, "count", c.Count)
		return fmt.Errorf("%s: pin %d of %d: %w", d.Dev.Name, d.Nr, c.Count, pkg.ErrInvalidArgs)
	}
	return nil
}

func logical(v int, f Flags) int {
	if f&FlagActiveLow != 0 {
		if v == 0 {
			return 1
		}
		return 0
	}
	return v
}

// GetDesc builds a descriptor for dev from a decoded phandle reference. The
// controller driver may decode args itself; otherwise the first argument
// is the pin number and the optional second one the flags.
func GetDesc(dev *driver.Device, args fdt.Args) (Desc, error) {
	ops := dev.Ops()
	if ops == nil {
		return Desc{}, pkg.ErrNotConfigured
	}
	if g, ok := ops.(DescGetter); ok {
		return g.GetDesc(dev, args)
	}
	if len(args.Args) < 1 {
		return Desc{}, pkg.ErrInvalidArgs
	}
	d := Desc{Dev: dev, Nr: uint(args.Args[0])}
	if len(args.Args) > 1 {
		d.Flags = Flags(args.Args[1])
	}
	return d, nil
}

// SetDirection applies the direction in d.Flags. An output is driven to its
// logical level from [FlagOutputActive]. Neither direction set fails with
// [pkg.ErrInvalidArgs].
func SetDirection(d *Desc) error {
	if err := d.check(); err != nil {
		return err
	}
	switch {
	case d.Flags&FlagOutput != 0:
		v := 0
		if d.Flags&FlagOutputActive != 0 {
			v = 1
		}
		v = logical(v, d.Flags)
		pkg.LogDebug(pkg.ComponentGPIO, "direction output", "device", d.Dev.Name, "nr", d.Nr, "value", v)
		return driver.Call(d.Dev, fallback, func(o OutputSetter) error {
			return o.DirectionOutput(d.Dev, d.Nr, v)
		})
	case d.Flags&FlagInput != 0:
		pkg.LogDebug(pkg.ComponentGPIO, "direction input", "device", d.Dev.Name, "nr", d.Nr)
		return driver.Call(d.Dev, fallback, func(o InputSetter) error {
			return o.DirectionInput(d.Dev, d.Nr)
		})
	}
	return pkg.ErrInvalidArgs
}

// GetValue returns the logical level of the pin.
func GetValue(d *Desc) (int, error) {
	if err := d.check(); err != nil {
		return 0, err
	}
	var v int
	err := driver.Call(d.Dev, fallback, func(o ValueGetter) error {
		if v = o.GetValue(d.Dev, d.Nr); v == -1 {
			return pkg.ErrNotValid
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return logical(v, d.Flags), nil
}

// SetValue drives the pin to logical level v.
func SetValue(d *Desc, v int) error {
	if err := d.check(); err != nil {
		return err
	}
	if v != 0 {
		v = 1
	}
	return driver.Call(d.Dev, fallback, func(o ValueSetter) error {
		return o.SetValue(d.Dev, d.Nr, logical(v, d.Flags))
	})
}

// GetOpenDrain reports the open-drain mode of the pin.
func GetOpenDrain(d *Desc) (int, error) {
	if err := d.check(); err != nil {
		return 0, err
	}
	var v int
	err := driver.Call(d.Dev, fallback, func(o OpenDrainGetter) error {
		if v = o.GetOpenDrain(d.Dev, d.Nr); v == -1 {
			return pkg.ErrNotValid
		}
		return nil
	})
	return v, err
}

// SetOpenDrain selects the open-drain mode of the pin and returns the
// driver's result.
func SetOpenDrain(d *Desc, v int) (int, error) {
	if err := d.check(); err != nil {
		return 0, err
	}
	var ret int
	err := driver.Call(d.Dev, fallback, func(o OpenDrainSetter) error {
		if ret = o.SetOpenDrain(d.Dev, d.Nr, v); ret == -1 {
			return pkg.ErrNotValid
		}
		return nil
	})
	return ret, err
}

// RequestByName resolves the pin referenced by property name of dev's node
// (a phandle followed by "#gpio-cells" arguments), claims it under label
// name, adds flags and applies the resulting direction.
func RequestByName(reg *driver.Registry, dev *driver.Device, name string, flags Flags) (Desc, error) {
	args, err := dev.PhandleArgs(name, "#gpio-cells", 0)
	if err != nil {
		return Desc{}, fmt.Errorf("%s: %s: %w", dev.Name, name, pkg.ErrInvalidArgs)
	}
	return FromArgs(reg, args, name, flags)
}

// FromArgs is [RequestByName] for an already decoded reference, such as the
// GPIO of a [driver.NamedConfig].
func FromArgs(reg *driver.Registry, args fdt.Args, label string, flags Flags) (Desc, error) {
	ctrl := reg.FindByNode(args.Node)
	if ctrl == nil {
		return Desc{}, fmt.Errorf("gpio %s: no controller device: %w", label, pkg.ErrNotFound)
	}
	if !ctrl.Bool("gpio-controller") {
		return Desc{}, fmt.Errorf("gpio %s: %s is not a gpio controller: %w", label, ctrl.Name, pkg.ErrNotFound)
	}

	d, err := GetDesc(ctrl, args)
	if err != nil {
		return Desc{}, err
	}
	if err := d.check(); err != nil {
		return Desc{}, err
	}
	pkg.LogDebug(pkg.ComponentGPIO, "request", "device", ctrl.Name, "nr", d.Nr, "label", label)
	if r, ok := ctrl.Ops().(Requester); ok {
		if err := r.Request(ctrl, d.Nr, label); err != nil {
			return Desc{}, err
		}
	}
	d.Flags |= flags | FlagRequested
	if d.Flags&(FlagInput|FlagOutput) == 0 {
		return d, nil
	}
	return d, SetDirection(&d)
}

// Free releases a pin claimed by [RequestByName].
func Free(d *Desc) error {
	if err := d.check(); err != nil {
		return err
	}
	err := driver.Call(d.Dev, fallback, func(o Freer) error { return o.Free(d.Dev, d.Nr) })
	if err == nil {
		d.Flags &^= FlagRequested
	}
	return err
}
