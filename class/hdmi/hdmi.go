// Package hdmi dispatches HDMI switch and repeater audio operations to the
// bound driver. Missing operations fail with [pkg.ErrNotImplemented].
package hdmi

import (
	"github.com/ardnew/devcore/driver"
	"github.com/ardnew/devcore/pkg"
)

// Class is the driver class served by HDMI drivers.
const Class = "hdmi"

// Event is an asynchronous notification delivered to a [Callback].
type Event int

// Events.
const (
	EventSampleRate Event = iota
	EventStreamType
	EventLink
	EventMCLK
	EventInfoframe
	EventChannelStatus
	EventLayoutChange
	EventError
)

// Capability is a bitmask reported by [GetCapabilities].
type Capability uint32

// Capabilities.
const (
	CapSampleRateChange Capability = 1 << 0
	CapStreamTypeChange Capability = 1 << 2
	CapChannelStatus    Capability = 1 << 3
	CapLinkChange       Capability = 1 << 4
	CapInfoframe        Capability = 1 << 5
	CapLayoutChange     Capability = 1 << 6
	CapFormat60958      Capability = 1 << 24
	CapFormat61937      Capability = 1 << 25
	CapFormatCustom     Capability = 1 << 26
)

// Direction is the audio flow relative to the switch.
type Direction uint8

const (
	Source Direction = iota // to the switch
	Sink                    // from the switch
)

// Interface is an audio port of the switch.
type Interface uint8

const (
	InterfaceNone Interface = iota
	InterfaceHDMI
	InterfaceSPDIF
	InterfaceARC
	InterfaceI2S
)

// Packet is the audio packet type.
type Packet uint8

const (
	PacketNone Packet = iota
	PacketStandard
	PacketHBR
	PacketDSD
	PacketDST
	PacketInvalid
)

// Layout is the audio packet layout.
type Layout uint8

const (
	Layout0 Layout = iota // up to 2 channels
	Layout1               // up to 8 channels
)

// Format is the audio sample format.
type Format uint8

const (
	Format60958 Format = iota
	Format61937
	FormatCustom
)

// Callback receives asynchronous events. param is event specific.
type Callback func(ev Event, param any) int

// InfoframePacket is a raw CEA-861-D audio infoframe payload.
type InfoframePacket [5]byte

// ChannelCount returns the coded channel count.
func (p InfoframePacket) ChannelCount() int { return int(p[0]&0x7) + 1 }

// CodingType returns the coding type field.
func (p InfoframePacket) CodingType() uint8 { return p[0] >> 4 & 0xf }

// SpeakerAllocation returns the channel/speaker allocation field.
func (p InfoframePacket) SpeakerAllocation() uint8 { return p[3] }

// ChannelStatus is a received channel status block and the mask of its
// valid fields.
type ChannelStatus struct {
	Status IEC60958Status
	Mask   uint32
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
	CallbackSetter interface {
		SetCallback(dev *driver.Device, cb Callback) error
	}
	AudioFormatSetter interface {
		SetAudioFormat(dev *driver.Device, dir Direction, f Format) error
	}
	AudioPacketSetter interface {
		SetAudioPacket(dev *driver.Device, dir Direction, p Packet) error
	}
	AudioInterfaceSetter interface {
		SetAudioInterface(dev *driver.Device, dir Direction, in, out Interface) error
	}
	ChannelStatusGetter interface {
		GetChannelStatus(dev *driver.Device) (ChannelStatus, error)
	}
	InfoframeGetter interface {
		GetAudioInfoframePkt(dev *driver.Device) (InfoframePacket, error)
	}
	CustomLayoutGetter interface {
		GetAudioCustomFmtLayout(dev *driver.Device) (CustomFormatLayout, error)
	}
	PacketTypeGetter interface {
		GetAudioPktType(dev *driver.Device) (Packet, error)
	}
	PacketLayoutGetter interface {
		GetAudioPktLayout(dev *driver.Device) (Layout, error)
	}
)

var fallback = pkg.ErrNotImplemented

func Open(dev *driver.Device) error {
	return driver.Call(dev, fallback, func(o Opener) error { return o.Open(dev) })
}

func Close(dev *driver.Device) error {
	return driver.Call(dev, fallback, func(o Closer) error { return o.Close(dev) })
}

// GetCapabilities returns the capability mask of the switch.
func GetCapabilities(dev *driver.Device) (Capability, error) {
	return get(dev, func(o CapabilityGetter) (Capability, error) { return o.GetCapabilities(dev) })
}

// SetCallback registers cb for asynchronous events.
func SetCallback(dev *driver.Device, cb Callback) error {
	return driver.Call(dev, fallback, func(o CallbackSetter) error { return o.SetCallback(dev, cb) })
}

// SetAudioFormat fails with [pkg.ErrNotSupported] when the switch cannot
// carry f.
func SetAudioFormat(dev *driver.Device, dir Direction, f Format) error {
	return driver.Call(dev, fallback, func(o AudioFormatSetter) error { return o.SetAudioFormat(dev, dir, f) })
}

func SetAudioPacket(dev *driver.Device, dir Direction, p Packet) error {
	return driver.Call(dev, fallback, func(o AudioPacketSetter) error { return o.SetAudioPacket(dev, dir, p) })
}

// SetAudioInterface routes audio from in to out.
func SetAudioInterface(dev *driver.Device, dir Direction, in, out Interface) error {
	return driver.Call(dev, fallback, func(o AudioInterfaceSetter) error { return o.SetAudioInterface(dev, dir, in, out) })
}

func GetChannelStatus(dev *driver.Device) (ChannelStatus, error) {
	return get(dev, func(o ChannelStatusGetter) (ChannelStatus, error) { return o.GetChannelStatus(dev) })
}

func GetAudioInfoframePkt(dev *driver.Device) (InfoframePacket, error) {
	return get(dev, func(o InfoframeGetter) (InfoframePacket, error) { return o.GetAudioInfoframePkt(dev) })
}

func GetAudioCustomFmtLayout(dev *driver.Device) (CustomFormatLayout, error) {
	return get(dev, func(o CustomLayoutGetter) (CustomFormatLayout, error) { return o.GetAudioCustomFmtLayout(dev) })
}

func GetAudioPktType(dev *driver.Device) (Packet, error) {
	return get(dev, func(o PacketTypeGetter) (Packet, error) { return o.GetAudioPktType(dev) })
}

func GetAudioPktLayout(dev *driver.Device) (Layout, error) {
	return get(dev, func(o PacketLayoutGetter) (Layout, error) { return o.GetAudioPktLayout(dev) })
}

func get[C, V any](dev *driver.Device, fn func(C) (V, error)) (V, error) {
	var v V
	err := driver.Call(dev, fallback, func(o C) (err error) {
		v, err = fn(o)
		return err
	})
	return v, err
}

// DeviceByID returns the HDMI device whose bus-id is busID, or nil.
func DeviceByID(reg *driver.Registry, busID int) *driver.Device {
	return reg.FindByClassAndID(Class, busID)
}
