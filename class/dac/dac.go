// Package dac dispatches audio DAC operations to the bound driver.
package dac

import (
	"github.com/ardnew/devcore/driver"
	"github.com/ardnew/devcore/pkg"
)

// Class is the driver class served by DAC drivers.
const Class = "dac"

// Capability is a bitmask reported by [GetCapabilities].
type Capability uint32

const (
	CapPacketPCM Capability = 1 << iota
	CapPacketDSD
	CapRawPDM
)

// Packet is the audio packet type.
type Packet uint8

const (
	PacketPCM Packet = iota
	PacketDSD
)

// Format is the serial audio framing.
type Format uint8

const (
	FormatI2S Format = iota
	FormatLeftJustified
	FormatRightJustified
	FormatDSPA
	FormatDSPB
	FormatAC97
	FormatPDM
)

// PCMFormat is the sample width.
type PCMFormat uint8

const (
	PCM16 PCMFormat = iota
	PCM24
	PCM32
)

// HWParams are the stream parameters given to [SetFormat]. Slots is the
// TDM slot count per frame.
type HWParams struct {
	PCMFormat PCMFormat
	Format    Format
	Packet    Packet
	Channels  uint8
	Slots     uint8
	Rate      uint32
}

type (
	Opener interface {
		Open(dev *driver.Device) error
	}
	Closer interface {
		Close(dev *driver.Device) error
	}
	CapabilityGetter interface {
		GetCapabilities(dev *driver.Device) (Capability, error)
	}
	FormatSetter interface {
		SetFormat(dev *driver.Device, params *HWParams) error
	}
)

func Open(dev *driver.Device) error {
	return driver.Call(dev, pkg.ErrNotImplemented, func(o Opener) error { return o.Open(dev) })
}

func Close(dev *driver.Device) error {
	return driver.Call(dev, pkg.ErrNotImplemented, func(o Closer) error { return o.Close(dev) })
}

func GetCapabilities(dev *driver.Device) (Capability, error) {
	var caps Capability
	err := driver.Call(dev, pkg.ErrNotImplemented, func(o CapabilityGetter) (err error) {
		caps, err = o.GetCapabilities(dev)
		return err
	})
	return caps, err
}

func SetFormat(dev *driver.Device, params *HWParams) error {
	return driver.Call(dev, pkg.ErrNotImplemented, func(o FormatSetter) error { return o.SetFormat(dev, params) })
}

// DeviceByID returns the DAC whose bus-id is busID, or nil.
func DeviceByID(reg *driver.Registry, busID int) *driver.Device {
	return reg.FindByClassAndID(Class, busID)
}
