package driver

import (
	"context"
	"fmt"

	"github.com/Masterminds/semver/v3"

	"github.com/ardnew/devcore/fdt"
	"github.com/ardnew/devcore/pkg"
)

// Level is a bitmask of initialization stages.
type Level uint32

// Initialization stages, run in ascending order.
const (
	LevelCore Level = 1 << iota
	LevelPlatformEarly
	LevelPlatform
	LevelTarget
	LevelHAL
	LevelHALVendor
	LevelApp

	LevelAll = LevelCore | LevelPlatformEarly | LevelPlatform | LevelTarget |
		LevelHAL | LevelHALVendor | LevelApp
)

var levelNames = [...]string{"core", "platform-early", "platform", "target", "hal", "hal-vendor", "app"}

// String returns a string representation of a single level bit.
func (l Level) String() string {
	for i, name := range levelNames {
		if l == 1<<i {
			return name
		}
	}
	return fmt.Sprintf("level(%#x)", uint32(l))
}

// Driver describes how to bind and bring up devices whose tree node lists
// Compatible.
type Driver struct {
	// Compatible is matched against the node's compatible list.
	Compatible string

	// Version orders drivers registered for the same compatible string.
	// Empty means 0.0.0.
	Version string

	// Class names the device class the driver serves, such as "sai" or
	// "gpio". Used by [Registry.FindByClassAndID].
	Class string

	// Ops is the class operations value. Class packages type-assert it to
	// single-method capability interfaces.
	Ops any

	// Level selects the initialization stages that run [Initializer.Init].
	Level Level

	version *semver.Version
}

// Initializer is implemented by driver operations that bring up a device.
type Initializer interface {
	Init(ctx context.Context, dev *Device) error
}

// Device binds one tree node to one driver.
type Device struct {
	Name   string
	Driver *Driver
	Node   int
	Config *Config

	// State is owned by the driver, typically set during Init.
	State any

	tree fdt.Tree
}

// Ops returns the operations of the bound driver, or nil.
func (d *Device) Ops() any {
	if d == nil || d.Driver == nil {
		return nil
	}
	return d.Driver.Ops
}

// Tree returns the tree the device was discovered in.
func (d *Device) Tree() fdt.Tree { return d.tree }

// Call invokes fn with the device's operations as capability T. A device
// without operations fails with [pkg.ErrNotConfigured]; operations that do
// not provide T fail with fallback. Otherwise fn's result is returned
// unchanged.
func Call[T any](dev *Device, fallback error, fn func(T) error) error {
	ops := dev.Ops()
	if ops == nil {
		return pkg.ErrNotConfigured
	}
	c, ok := ops.(T)
	if !ok {
		return fallback
	}
	return fn(c)
}

// CallDir is [Call] for direction-flagged operations: rx is used with
// capability R when read is true, tx with capability T otherwise.
func CallDir[R, T any](dev *Device, read bool, fallback error, rx func(R) error, tx func(T) error) error {
	if read {
		return Call(dev, fallback, rx)
	}
	return Call(dev, fallback, tx)
}
