// Package adc dispatches audio ADC operations to the bound driver.
//
// Operations the driver does not provide fail with [pkg.ErrNotImplemented].
package adc

import (
	"github.com/ardnew/devcore/driver"
	"github.com/ardnew/devcore/pkg"
)

// Class is the driver class served by ADC drivers.
const Class = "adc"

// Capability is a bitmask reported by [GetCapabilities].
type Capability uint32

// Capabilities.
const (
	CapPacketPCM Capability = 1 << iota
	CapPacketDSD
	CapRawPDM
)

// Packet is the audio packet type.
type Packet uint8

// Packet types.
const (
	PacketPCM Packet = iota
	PacketDSD
)

// Format is the serial audio framing.
type Format uint8

// Framing formats.
const (
	FormatI2S Format = iota
	FormatLeftJustified
	FormatRightJustified
	FormatDSPA
	FormatDSPB
	FormatAC97
)

// PCMFormat is the sample width.
type PCMFormat uint8

// Sample widths.
const (
	PCM16 PCMFormat = iota
	PCM24
	PCM32
)

// HWParams are the stream parameters given to [SetFormat].
type HWParams struct {
	PCMFormat PCMFormat
	Format    Format
	Packet    Packet
	Channels  uint8
	Rate      uint32
}

// Capability interfaces implemented by ADC driver operations.
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
	PowerResetter interface {
		ResetPower(dev *driver.Device) error
	}
)

var fallback = pkg.ErrNotImplemented

func Open(dev *driver.Device) error {
	return driver.Call(dev, fallback, func(o Opener) error { return o.Open(dev) })
}

func Close(dev *driver.Device) error {
	return driver.Call(dev, fallback, func(o Closer) error { return o.Close(dev) })
}

// GetCapabilities returns the capability mask of dev.
func GetCapabilities(dev *driver.Device) (Capability, error) {
	var caps Capability
	err := driver.Call(dev, fallback, func(o CapabilityGetter) (err error) {
		caps, err = o.GetCapabilities(dev)
		return err
	})
	return caps, err
}

func SetFormat(dev *driver.Device, params *HWParams) error {
	return driver.Call(dev, fallback, func(o FormatSetter) error { return o.SetFormat(dev, params) })
}

// ResetPower power-cycles the converter.
func ResetPower(dev *driver.Device) error {
	return driver.Call(dev, fallback, func(o PowerResetter) error { return o.ResetPower(dev) })
}

// DeviceByID returns the ADC whose bus-id is busID, or nil.
func DeviceByID(reg *driver.Registry, busID int) *driver.Device {
	return reg.FindByClassAndID(Class, busID)
}
