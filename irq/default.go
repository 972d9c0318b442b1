package irq

import (
	"github.com/ardnew/devcore/hal"
	"github.com/ardnew/devcore/pkg"
)

// unconfigured is the controller in effect before a driver registers one.
type unconfigured struct{}

func (unconfigured) Mask(uint) error   { return pkg.ErrNotConfigured }
func (unconfigured) Unmask(uint) error { return pkg.ErrNotConfigured }

func (unconfigured) Configure(uint, TriggerMode, Polarity) error {
	return pkg.ErrNotConfigured
}

func (unconfigured) GetConfig(uint) (TriggerMode, Polarity, error) {
	return TriggerEdge, PolarityActiveHigh, pkg.ErrNotConfigured
}

func (unconfigured) IsValid(uint, uint32) bool          { return false }
func (unconfigured) BaseVector() uint                   { return 0 }
func (unconfigured) MaxVector() uint                    { return 0 }
func (unconfigured) Remap(uint) uint                    { return 0 }
func (unconfigured) SendIPI(hal.CPUMask, IPI) error     { return pkg.ErrNotConfigured }
func (unconfigured) InitPerCPUEarly()                   {}
func (unconfigured) InitPerCPU()                        {}
func (unconfigured) HandleIRQ(*hal.Frame) HandlerReturn { return NoReschedule }
func (unconfigured) HandleFIQ(*hal.Frame)               {}
func (unconfigured) Shutdown()                          {}
func (unconfigured) ShutdownCPU()                       {}
