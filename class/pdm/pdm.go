// Package pdm dispatches PDM microphone interface operations to the bound
// driver. Stream operations take a read flag selecting the capture (RX) or
// playback (TX) side. Missing operations fail with [pkg.ErrNotSupported].
package pdm

import (
	"github.com/ardnew/devcore/driver"
	"github.com/ardnew/devcore/pkg"
)

// Class is the driver class served by PDM drivers.
const Class = "pdm"

// Stream sides.
const (
	RX = true
	TX = false
)

// HWParams are the stream parameters given to [Setup].
type HWParams struct {
	SampleRate   uint32 // Hz
	BitWidth     uint32
	Channels     uint32
	PeriodSize   uint32
	StartChannel uint32
}

type (
	TxOpener  interface{ TxOpen(dev *driver.Device) error }
	RxOpener  interface{ RxOpen(dev *driver.Device) error }
	TxCloser  interface{ TxClose(dev *driver.Device) error }
	RxCloser  interface{ RxClose(dev *driver.Device) error }
	TxStarter interface{ TxStart(dev *driver.Device) error }
	RxStarter interface{ RxStart(dev *driver.Device) error }
	TxStopper interface{ TxStop(dev *driver.Device) error }
	RxStopper interface{ RxStop(dev *driver.Device) error }

	TxSetuper interface {
		TxSetup(dev *driver.Device, params *HWParams) error
	}
	RxSetuper interface {
		RxSetup(dev *driver.Device, params *HWParams) error
	}
	Writer interface {
		Write(dev *driver.Device, p []byte) error
	}
	Reader interface {
		Read(dev *driver.Device, p []byte) error
	}
)

var fallback = pkg.ErrNotSupported

func Open(dev *driver.Device, read bool) error {
	return driver.CallDir(dev, read, fallback,
		func(o RxOpener) error { return o.RxOpen(dev) },
		func(o TxOpener) error { return o.TxOpen(dev) })
}

func Close(dev *driver.Device, read bool) error {
	return driver.CallDir(dev, read, fallback,
		func(o RxCloser) error { return o.RxClose(dev) },
		func(o TxCloser) error { return o.TxClose(dev) })
}

func Start(dev *driver.Device, read bool) error {
	return driver.CallDir(dev, read, fallback,
		func(o RxStarter) error { return o.RxStart(dev) },
		func(o TxStarter) error { return o.TxStart(dev) })
}

func Stop(dev *driver.Device, read bool) error {
	return driver.CallDir(dev, read, fallback,
		func(o RxStopper) error { return o.RxStop(dev) },
		func(o TxStopper) error { return o.TxStop(dev) })
}

// Setup configures one side of the interface.
func Setup(dev *driver.Device, read bool, params *HWParams) error {
	return driver.CallDir(dev, read, fallback,
		func(o RxSetuper) error { return o.RxSetup(dev, params) },
		func(o TxSetuper) error { return o.TxSetup(dev, params) })
}

func Write(dev *driver.Device, p []byte) error {
	return driver.Call(dev, fallback, func(o Writer) error { return o.Write(dev, p) })
}

func Read(dev *driver.Device, p []byte) error {
	return driver.Call(dev, fallback, func(o Reader) error { return o.Read(dev, p) })
}

func DeviceByID(reg *driver.Registry, busID int) *driver.Device {
	return reg.FindByClassAndID(Class, busID)
}
