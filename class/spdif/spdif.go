// Package spdif dispatches S/PDIF transceiver operations to the bound
// driver. Missing operations fail with [pkg.ErrNotSupported].
package spdif

import (
	"github.com/ardnew/devcore/driver"
	"github.com/ardnew/devcore/pkg"
)

// Class is the driver class served by S/PDIF drivers.
const Class = "spdif"

// Stream sides.
const (
	RX = true
	TX = false
)

// Format is the packet format on the wire.
type Format uint8

const (
	FormatIEC60958 Format = iota
	FormatIEC60958Outband
)

// HWParams are the stream parameters given to [Setup].
type HWParams struct {
	Format     Format
	BitWidth   uint32
	PeriodSize uint32
}

// Event is an asynchronous notification delivered to a [Callback].
type Event int

const (
	EventSampleRate Event = iota
	EventLink
	EventChannelStatus
	EventClockLost
	EventError
)

// Callback receives asynchronous events.
type Callback func(ev Event, param any) int

type (
	TxOpener  interface{ TxOpen(dev *driver.Device) error }
	RxOpener  interface{ RxOpen(dev *driver.Device) error }
	TxCloser  interface{ TxClose(dev *driver.Device) error }
	RxCloser  interface{ RxClose(dev *driver.Device) error }
	TxStarter interface{ TxStart(dev *driver.Device) error }
	RxStarter interface{ RxStart(dev *driver.Device) error }
	TxStopper interface{ TxStop(dev *driver.Device) error }
	RxStopper interface{ RxStop(dev *driver.Device) error }
	TxFlusher interface{ TxFlush(dev *driver.Device) error }
	RxFlusher interface{ RxFlush(dev *driver.Device) error }

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
	CallbackSetter interface {
		SetCallback(dev *driver.Device, cb Callback) error
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

// Flush drops pending samples of one side.
func Flush(dev *driver.Device, read bool) error {
	return driver.CallDir(dev, read, fallback,
		func(o RxFlusher) error { return o.RxFlush(dev) },
		func(o TxFlusher) error { return o.TxFlush(dev) })
}

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

// SetCallback registers cb for receiver events.
func SetCallback(dev *driver.Device, cb Callback) error {
	return driver.Call(dev, fallback, func(o CallbackSetter) error { return o.SetCallback(dev, cb) })
}

func DeviceByID(reg *driver.Registry, busID int) *driver.Device {
	return reg.FindByClassAndID(Class, busID)
}
