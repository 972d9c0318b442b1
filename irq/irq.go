package irq

import (
	"github.com/ardnew/devcore/hal"
)

// Table dimensions.
const (
	// MaxVectors is the number of directly indexed vectors.
	MaxVectors = 1024
	// MaxChained is the number of shared slots for second and later
	// handlers on a vector.
	MaxChained = 256
)

// HandlerReturn tells the exception exit path whether to reschedule.
type HandlerReturn int

// Handler return values.
const (
	NoReschedule HandlerReturn = iota
	Reschedule
)

// String returns a string representation of the handler return.
func (r HandlerReturn) String() string {
	if r == Reschedule {
		return "reschedule"
	}
	return "no-reschedule"
}

// Handler services one interrupt. It runs in interrupt context with local
// interrupts masked and must not block.
type Handler func(arg any) HandlerReturn

// TriggerMode selects edge or level sensitivity.
type TriggerMode int

// Trigger modes.
const (
	TriggerEdge TriggerMode = iota
	TriggerLevel
)

// String returns a string representation of the trigger mode.
func (m TriggerMode) String() string {
	if m == TriggerLevel {
		return "level"
	}
	return "edge"
}

// Polarity selects the active signal level.
type Polarity int

// Polarities.
const (
	PolarityActiveHigh Polarity = iota
	PolarityActiveLow
)

// String returns a string representation of the polarity.
func (p Polarity) String() string {
	if p == PolarityActiveLow {
		return "active-low"
	}
	return "active-high"
}

// IPI identifies an inter-processor interrupt.
type IPI int

// Inter-processor interrupts.
const (
	IPIGeneric IPI = iota
	IPIReschedule
	IPIInterrupt
	IPIHalt
	NumIPIs
)

// String returns a string representation of the IPI.
func (i IPI) String() string {
	switch i {
	case IPIGeneric:
		return "generic"
	case IPIReschedule:
		return "reschedule"
	case IPIInterrupt:
		return "interrupt"
	case IPIHalt:
		return "halt"
	default:
		return "unknown"
	}
}

// Controller is the operation set of an interrupt controller driver.
// Exactly one controller is active at a time; see [Manager.RegisterController].
type Controller interface {
	Mask(vector uint) error
	Unmask(vector uint) error
	Configure(vector uint, tm TriggerMode, pol Polarity) error
	GetConfig(vector uint) (TriggerMode, Polarity, error)
	IsValid(vector uint, flags uint32) bool
	BaseVector() uint
	MaxVector() uint
	Remap(vector uint) uint
	SendIPI(target hal.CPUMask, ipi IPI) error
	InitPerCPUEarly()
	InitPerCPU()
	HandleIRQ(frame *hal.Frame) HandlerReturn
	HandleFIQ(frame *hal.Frame)
	Shutdown()
	ShutdownCPU()
}

// Tracer receives interrupt entry and exit events.
type Tracer interface {
	IRQEnter(vector uint)
	IRQExit(vector uint)
}
