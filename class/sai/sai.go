// Package sai dispatches serial audio interface operations to the bound
// driver.
//
// Every stream operation takes a read flag: [RX] selects the receiver and
// [TX] the transmitter. Operations the driver does not provide fail with
// [pkg.ErrNotSupported] and touch nothing.
//
//	dev := sai.DeviceByID(reg, 3)
//	if err := sai.Setup(dev, sai.TX, &sai.Format{Protocol: sai.ProtocolI2S, SampleRate: 48000}); err != nil {
//	    return err
//	}
//	err := sai.Start(dev, sai.TX)
package sai

import (
	"github.com/ardnew/devcore/driver"
	"github.com/ardnew/devcore/pkg"
)

// Class is the driver class served by SAI drivers.
const Class = "sai"

// Stream sides.
const (
	RX = true
	TX = false
)

// Event is an asynchronous notification delivered to a [Callback].
type Event int

const (
	EventPeriodElapsed Event = iota
	EventDrain
	EventActive
	EventError
	EventRateChange // estimated rate change
	EventSilence
)

// Count is the payload of [EventPeriodElapsed] and [EventSilence].
type Count struct {
	N uint64
}

// Callback receives asynchronous events. param is a *[Count] for period
// and silence events.
type Callback func(ev Event, param any) int

// Polarity forces the bit clock polarity.
type Polarity uint8

const (
	PolarityActiveHigh Polarity = iota
	PolarityActiveLow
	PolarityUnused
)

// Role selects bit clock and frame sync ownership.
type Role uint8

const (
	Slave Role = iota
	Master
)

// BitClockSource selects the bit clock origin.
type BitClockSource uint8

const (
	BitClockBus BitClockSource = iota
	BitClockMCLKDiv
	BitClockOtherSAI0
	BitClockOtherSAI1
)

// Protocol is the serial framing.
type Protocol uint8

const (
	ProtocolLeftJustified Protocol = iota
	ProtocolRightJustified
	ProtocolI2S
	ProtocolPCMA
	ProtocolPCMB
	ProtocolI2SAES3
	ProtocolPDM
)

// Format are the stream parameters given to [Setup].
type Format struct {
	Protocol   Protocol
	SampleRate uint32 // Hz
	BitWidth   uint32
	Channels   uint32
	Slots      uint32 // TDM slots per frame
	PeriodSize uint32
	Polarity   Polarity
	Role       Role
	BitClock   BitClockSource
}

// Counters are the bit counter and its timestamps.
type Counters struct {
	BitCount   uint32
	BitCountTS uint32
	CPUTS      uint64
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
	TxFlusher interface{ TxFlush(dev *driver.Device) error }
	RxFlusher interface{ RxFlush(dev *driver.Device) error }

	TxSetuper interface {
		TxSetup(dev *driver.Device, f *Format) error
	}
	RxSetuper interface {
		RxSetup(dev *driver.Device, f *Format) error
	}
	TxCounterGetter interface {
		TxCounters(dev *driver.Device) (Counters, error)
	}
	RxCounterGetter interface {
		RxCounters(dev *driver.Device) (Counters, error)
	}
	TxCounterEnabler interface {
		TxEnableCounters(dev *driver.Device, en bool) error
	}
	RxCounterEnabler interface {
		RxEnableCounters(dev *driver.Device, en bool) error
	}
	TxCallbackSetter interface {
		TxSetCallback(dev *driver.Device, cb Callback) error
	}
	RxCallbackSetter interface {
		RxSetCallback(dev *driver.Device, cb Callback) error
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

func Flush(dev *driver.Device, read bool) error {
	return driver.CallDir(dev, read, fallback,
		func(o RxFlusher) error { return o.RxFlush(dev) },
		func(o TxFlusher) error { return o.TxFlush(dev) })
}

// Setup configures one side of the interface with f.
func Setup(dev *driver.Device, read bool, f *Format) error {
	return driver.CallDir(dev, read, fallback,
		func(o RxSetuper) error { return o.RxSetup(dev, f) },
		func(o TxSetuper) error { return o.TxSetup(dev, f) })
}

func Write(dev *driver.Device, p []byte) error {
	return driver.Call(dev, fallback, func(o Writer) error { return o.Write(dev, p) })
}

func Read(dev *driver.Device, p []byte) error {
	return driver.Call(dev, fallback, func(o Reader) error { return o.Read(dev, p) })
}

// GetCounters samples the bit counter of one side.
func GetCounters(dev *driver.Device, read bool) (Counters, error) {
	var c Counters
	err := driver.CallDir(dev, read, fallback,
		func(o RxCounterGetter) (err error) {
			c, err = o.RxCounters(dev)
			return err
		},
		func(o TxCounterGetter) (err error) {
			c, err = o.TxCounters(dev)
			return err
		})
	return c, err
}

func EnableCounters(dev *driver.Device, en, read bool) error {
	return driver.CallDir(dev, read, fallback,
		func(o RxCounterEnabler) error { return o.RxEnableCounters(dev, en) },
		func(o TxCounterEnabler) error { return o.TxEnableCounters(dev, en) })
}

// SetCallback registers cb for the events of one side.
func SetCallback(dev *driver.Device, cb Callback, read bool) error {
	return driver.CallDir(dev, read, fallback,
		func(o RxCallbackSetter) error { return o.RxSetCallback(dev, cb) },
		func(o TxCallbackSetter) error { return o.TxSetCallback(dev, cb) })
}

// DeviceByID returns the SAI whose bus-id is busID, or nil.
func DeviceByID(reg *driver.Registry, busID int) *driver.Device {
	return reg.FindByClassAndID(Class, busID)
}
