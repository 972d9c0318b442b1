// Package dma implements the DMA slave class. Clients request a named
// channel from the "dmas" references of their tree node, prepare cyclic
// transfers on it and control them; every operation is delegated to the
// DMA controller driver bound to the channel.
//
//	ch, err := dma.RequestChannel(reg, dev, "tx")
//	if err != nil {
//	    return err
//	}
//	desc, err := ch.PrepCyclic(buf.PhysAddr(), 4096, 1024, dma.MemToDev)
//	if err != nil {
//	    return err
//	}
//	err = desc.Submit()
package dma

import (
	"fmt"

	"github.com/ardnew/devcore/driver"
	"github.com/ardnew/devcore/pkg"
)

// Class is the driver class served by DMA controller drivers.
const Class = "sdma"

// BusWidth is the slave port access width in bytes.
type BusWidth uint8

const (
	BusWidthUndefined BusWidth = 0
	BusWidth1         BusWidth = 1
	BusWidth2         BusWidth = 2
	BusWidth3         BusWidth = 3
	BusWidth4         BusWidth = 4
	BusWidth8         BusWidth = 8
	BusWidth16        BusWidth = 16
	BusWidth32        BusWidth = 32
	BusWidth64        BusWidth = 64
)

// Direction is the data flow of a transfer.
type Direction uint8

const (
	MemToMem Direction = iota
	MemToDev
	DevToMem
	DevToDev
	TransNone
)

var directionNames = [...]string{"mem-to-mem", "mem-to-dev", "dev-to-mem", "dev-to-dev", "none"}

func (d Direction) String() string {
	if int(d) < len(directionNames) {
		return directionNames[d]
	}
	return fmt.Sprintf("direction(%d)", uint8(d))
}

// SlaveConfig describes the peripheral side of a channel.
type SlaveConfig struct {
	Name      string
	SlaveID   uint
	Direction Direction

	SrcAddr, DstAddr           uint64
	SrcWidth, DstWidth         BusWidth
	SrcMaxBurst, DstMaxBurst   uint32
	SrcFIFONum, DstFIFONum     uint32
	SrcSampleNum, DstSampleNum uint32
}

// Status is the progress of a transfer.
type Status uint8

const (
	StatusComplete Status = iota
	StatusRunning
	StatusPaused
	StatusError
)

// Mode selects the buffer handling of a descriptor.
type Mode uint32

const (
	ModePrivate Mode = iota
	ModeUncachedZeroCopy
	ModeCachedZeroCopy
)

// Chan is a channel allocated by a DMA controller for a client device.
type Chan struct {
	Name         string
	DMADevice    *driver.Device
	ClientDevice *driver.Device
	Available    bool
	SlaveConfig  SlaveConfig
	Desc         *Descriptor

	// Private is owned by the client.
	Private any
}

// Descriptor tracks one transfer. Its memory is owned by the controller
// driver; clients hold it only while the transfer is outstanding.
type Descriptor struct {
	Chan *Chan

	// Callback runs on completion or error. ZeroCopyCallback updates the
	// buffer descriptor in the zero-copy modes.
	Callback         func(d *Descriptor) bool
	Mode             Mode
	ZeroCopyCallback func(d *Descriptor, off, n *uint32) bool

	// Cookie is client data, unused by the controller.
	Cookie any

	BytesTransferred uint64
	PeriodElapsed    uint64
	Status           Status
}

// Capability interfaces implemented by DMA controller driver operations.
type (
	ChannelRequester interface {
		RequestChannel(dev *driver.Device) (*Chan, error)
	}
	CyclicPreparer interface {
		PrepareCyclic(dev *driver.Device, ch *Chan, buf uint64, bufLen, periodLen int, dir Direction) (*Descriptor, error)
	}
	SlaveConfigurer interface {
		SlaveConfig(dev *driver.Device, ch *Chan, cfg *SlaveConfig) error
	}
	Submitter interface {
		Submit(dev *driver.Device, d *Descriptor) error
	}
	Terminator interface {
		Terminate(dev *driver.Device, ch *Chan) error
	}
	Resumer interface {
		ResumeChannel(dev *driver.Device, ch *Chan) error
	}
	Pauser interface {
		PauseChannel(dev *driver.Device, ch *Chan) error
	}
)

var fallback = pkg.ErrNotSupported

// AllocChannel asks controller dev for a free channel.
func AllocChannel(dev *driver.Device) (*Chan, error) {
	var ch *Chan
	err := driver.Call(dev, fallback, func(o ChannelRequester) (err error) {
		ch, err = o.RequestChannel(dev)
		return err
	})
	return ch, err
}

// PrepareCyclic asks controller dev for a cyclic transfer descriptor.
func PrepareCyclic(dev *driver.Device, ch *Chan, buf uint64, bufLen, periodLen int, dir Direction) (*Descriptor, error) {
	var d *Descriptor
	err := driver.Call(dev, fallback, func(o CyclicPreparer) (err error) {
		d, err = o.PrepareCyclic(dev, ch, buf, bufLen, periodLen, dir)
		return err
	})
	return d, err
}

func ConfigureSlave(dev *driver.Device, ch *Chan, cfg *SlaveConfig) error {
	return driver.Call(dev, fallback, func(o SlaveConfigurer) error { return o.SlaveConfig(dev, ch, cfg) })
}

func SubmitDescriptor(dev *driver.Device, d *Descriptor) error {
	return driver.Call(dev, fallback, func(o Submitter) error { return o.Submit(dev, d) })
}

func Terminate(dev *driver.Device, ch *Chan) error {
	return driver.Call(dev, fallback, func(o Terminator) error { return o.Terminate(dev, ch) })
}

func ResumeChannel(dev *driver.Device, ch *Chan) error {
	return driver.Call(dev, fallback, func(o Resumer) error { return o.ResumeChannel(dev, ch) })
}

func PauseChannel(dev *driver.Device, ch *Chan) error {
	return driver.Call(dev, fallback, func(o Pauser) error { return o.PauseChannel(dev, ch) })
}

// DeviceByID returns the DMA controller whose bus-id is busID, or nil.
func DeviceByID(reg *driver.Registry, busID int) *driver.Device {
	return reg.FindByClassAndID(Class, busID)
}
