// Package gpt dispatches general purpose timer operations to the bound
// driver. Missing operations fail with [pkg.ErrNotSupported].
package gpt

import (
	"github.com/ardnew/devcore/driver"
	"github.com/ardnew/devcore/pkg"
)

// Class is the driver class served by timer drivers.
const Class = "gpt"

// Callback runs from the timer interrupt on expiry or capture.
type Callback func()

type (
	Opener interface {
		Open(dev *driver.Device, cfg any, cb Callback) error
	}
	Closer interface {
		Close(dev *driver.Device) error
	}
	Stopper interface {
		Stop(dev *driver.Device) error
	}
	Starter interface {
		Start(dev *driver.Device) error
	}
	CounterGetter interface {
		GetCounter(dev *driver.Device) (uint32, error)
	}
	CaptureSetter interface {
		SetupCapture(dev *driver.Device, cfg any, cb Callback) error
	}
	CaptureEnabler interface {
		EnableCapture(dev *driver.Device, ch uint, on bool) error
	}
	CaptureGetter interface {
		GetCapture(dev *driver.Device, ch uint) (uint32, error)
	}
	CaptureCloser interface {
		CloseCapture(dev *driver.Device, ch uint) error
	}
)

var fallback = pkg.ErrNotSupported

// Open configures the timer with the driver-specific cfg. cb may be nil.
func Open(dev *driver.Device, cfg any, cb Callback) error {
	return driver.Call(dev, fallback, func(o Opener) error { return o.Open(dev, cfg, cb) })
}

// Close releases the timer so it can be reconfigured.
func Close(dev *driver.Device) error {
	return driver.Call(dev, fallback, func(o Closer) error { return o.Close(dev) })
}

func Stop(dev *driver.Device) error {
	return driver.Call(dev, fallback, func(o Stopper) error { return o.Stop(dev) })
}

func Start(dev *driver.Device) error {
	return driver.Call(dev, fallback, func(o Starter) error { return o.Start(dev) })
}

// GetCounter returns the current counter value.
func GetCounter(dev *driver.Device) (uint32, error) {
	var v uint32
	err := driver.Call(dev, fallback, func(o CounterGetter) (err error) {
		v, err = o.GetCounter(dev)
		return err
	})
	return v, err
}

func SetupCapture(dev *driver.Device, cfg any, cb Callback) error {
	return driver.Call(dev, fallback, func(o CaptureSetter) error { return o.SetupCapture(dev, cfg, cb) })
}

func EnableCapture(dev *driver.Device, ch uint, on bool) error {
	return driver.Call(dev, fallback, func(o CaptureEnabler) error { return o.EnableCapture(dev, ch, on) })
}

// GetCapture returns the counter latched by the last capture on ch.
func GetCapture(dev *driver.Device, ch uint) (uint32, error) {
	var v uint32
	err := driver.Call(dev, fallback, func(o CaptureGetter) (err error) {
		v, err = o.GetCapture(dev, ch)
		return err
	})
	return v, err
}

func CloseCapture(dev *driver.Device, ch uint) error {
	return driver.Call(dev, fallback, func(o CaptureCloser) error { return o.CloseCapture(dev, ch) })
}

func DeviceByID(reg *driver.Registry, busID int) *driver.Device {
	return reg.FindByClassAndID(Class, busID)
}
