package gic

import (
	"fmt"

	"github.com/ardnew/devcore/hal"
	"github.com/ardnew/devcore/irq"
	"github.com/ardnew/devcore/pkg"
	"github.com/ardnew/devcore/pkg/ksync"
)

// DefaultRWPRetries bounds the register-write-pending poll.
const DefaultRWPRetries = 1000000

// Config describes where the distributor and redistributors sit inside the
// register window and which SGIs carry inter-processor interrupts.
type Config struct {
	// GICDOffset is the distributor base within the window.
	GICDOffset uintptr

	// GICROffset is the first redistributor within the window.
	GICROffset uintptr

	// GICRStride is the distance between consecutive CPUs' redistributors.
	GICRStride uintptr

	// IPIBase is the first SGI used for IPIs. IPIBase+[irq.NumIPIs] must
	// not exceed 16.
	IPIBase uint

	// RWPRetries bounds the write-pending poll. Zero selects
	// [DefaultRWPRetries].
	RWPRetries int
}

// GIC is a GICv3 interrupt controller. It implements [irq.Controller].
type GIC struct {
	mgr  *irq.Manager
	regs hal.Registers
	sys  hal.GICSysRegs
	cpu  hal.CPU
	cfg  Config

	lock   ksync.SpinLock
	maxInt uint
}

// New returns a controller over regs. The controller is not active until
// [GIC.Init] succeeds. mgr may be nil: interrupts are then completed
// unhandled and [GIC.RegisterIPIHandler] fails with [pkg.ErrNotConfigured].
func New(mgr *irq.Manager, regs hal.Registers, sys hal.GICSysRegs, cpu hal.CPU, cfg Config) *GIC {
	if cfg.RWPRetries <= 0 {
		cfg.RWPRetries = DefaultRWPRetries
	}
	return &GIC{mgr: mgr, regs: regs, sys: sys, cpu: cpu, cfg: cfg}
}

func (g *GIC) gicd(off uintptr) uintptr { return g.cfg.GICDOffset + off }

func (g *GIC) gicr(cpu uint, off uintptr) uintptr {
	return g.cfg.GICROffset + g.cfg.GICRStride*uintptr(cpu) + off
}

func (g *GIC) waitForRWP(off uintptr) {
	for count := 0; count < g.cfg.RWPRetries; count++ {
		if g.regs.Read32(off)&ctlrRWP == 0 {
			return
		}
	}
	pkg.LogWarn(pkg.ComponentGIC, "write pending timeout", "reg", fmt.Sprintf("%#x", off))
}

// Init probes and enables the distributor, routes SPIs, prepares the
// calling CPU and installs the controller in the manager.
func (g *GIC) Init() error {
	rev := bits(g.regs.Read32(g.gicd(gicdPIDR2)), 7, 4)
	if rev != revGICv3 && rev != revGICv4 {
		return fmt.Errorf("gic: unsupported architecture revision %d: %w", rev, pkg.ErrNotFound)
	}

	typer := g.regs.Read32(g.gicd(gicdTYPER))
	idbits := bits(typer, 23, 19)
	g.maxInt = uint(idbits+1) * 32

	g.regs.Write32(g.gicd(gicdCTLR), 0)
	g.waitForRWP(g.gicd(gicdCTLR))

	for i := uint(BaseSPI); i < g.maxInt; i += 32 {
		g.regs.Write32(g.gicd(gicdICENABLER(i/32)), ^uint32(0))
		g.regs.Write32(g.gicd(gicdICPENDR(i/32)), ^uint32(0))
		g.regs.Write32(g.gicd(gicdIGROUPR(i/32)), ^uint32(0))
		g.regs.Write32(g.gicd(gicdIGRPMODR(i/32)), 0)
	}
	g.waitForRWP(g.gicd(gicdCTLR))

	g.regs.Write32(g.gicd(gicdCTLR), ctlrEnableG0|ctlrEnableG1NS|ctlrARES)
	g.waitForRWP(g.gicd(gicdCTLR))

	// Route every SPI to affinity 0.0.0 when more than one CPU is wired.
	if bits(typer, 7, 5) > 0 {
		for i := uint(BaseSPI); i < g.maxInt; i++ {
			g.regs.Write64(g.gicd(gicdIROUTER(i)), 0)
		}
	}

	g.InitPerCPUEarly()

	pkg.LogInfo(pkg.ComponentGIC, "distributor enabled", "revision", rev, "vectors", g.maxInt)
	if g.mgr != nil {
		g.mgr.RegisterController(g)
	}
	return nil
}

// InitPerCPUEarly configures the calling CPU's redistributor and CPU
// interface: SGIs and PPIs in group 1 and disabled, priority mask open,
// group 1 enabled.
func (g *GIC) InitPerCPUEarly() {
	cpu := g.cpu.Current()

	g.regs.Write32(g.gicr(cpu, gicrIGROUPR0), ^uint32(0))
	g.waitForRWP(g.gicr(cpu, gicrCTLR))

	g.regs.Write32(g.gicr(cpu, gicrICENABLER0), 0xffffffff)
	g.regs.Write32(g.gicr(cpu, gicrICPENDR0), ^uint32(0))
	g.waitForRWP(g.gicr(cpu, gicrCTLR))

	if sre := g.sys.ReadSRE(); sre&0x1 == 0 {
		g.sys.WriteSRE(sre | 0x1)
	}

	g.sys.WritePMR(0xff)
	g.sys.WriteCTLR(0)
	g.sys.WriteIGRPEN1(1)
}

// InitPerCPU unmasks the IPI vectors on the calling CPU.
func (g *GIC) InitPerCPU() {
	for ipi := irq.IPIGeneric; ipi < irq.NumIPIs; ipi++ {
		vector := g.cfg.IPIBase + uint(ipi)
		if err := g.Unmask(vector); err != nil {
			pkg.LogWarn(pkg.ComponentGIC, "ipi unmask failed",
				"cpu", g.cpu.Current(), "ipi", int(ipi), "vector", vector, "error", err)
		}
	}
}

func (g *GIC) setEnable(vector uint, enable bool) {
	mask := uint32(1) << (vector % 32)

	if vector < BaseSPI {
		for cpu := uint(0); cpu < g.cpu.Count(); cpu++ {
			if enable {
				g.regs.Write32(g.gicr(cpu, gicrISENABLER0), mask)
			} else {
				g.regs.Write32(g.gicr(cpu, gicrICENABLER0), mask)
			}
			g.waitForRWP(g.gicr(cpu, gicrCTLR))
		}
		return
	}

	if enable {
		g.regs.Write32(g.gicd(gicdISENABLER(vector/32)), mask)
	} else {
		g.regs.Write32(g.gicd(gicdICENABLER(vector/32)), mask)
	}
	g.waitForRWP(g.gicd(gicdCTLR))
}

// Mask disables delivery of vector.
func (g *GIC) Mask(vector uint) error {
	if vector >= g.maxInt {
		return pkg.ErrInvalidArgs
	}
	g.setEnable(vector, false)
	return nil
}

// Unmask enables delivery of vector.
func (g *GIC) Unmask(vector uint) error {
	if vector >= g.maxInt {
		return pkg.ErrInvalidArgs
	}
	g.setEnable(vector, true)
	return nil
}

// Configure sets the trigger mode of a PPI or SPI. Only active-high
// polarity is supported.
func (g *GIC) Configure(vector uint, tm irq.TriggerMode, pol irq.Polarity) error {
	if vector <= 15 || vector >= g.maxInt {
		return pkg.ErrInvalidArgs
	}
	if pol != irq.PolarityActiveHigh {
		return pkg.ErrNotSupported
	}

	reg := vector / 16
	mask := uint32(0x2) << ((vector % 16) * 2)

	s := g.lock.LockIRQSave(g.cpu)
	defer g.lock.UnlockIRQRestore(g.cpu, s)

	val := g.regs.Read32(g.gicd(gicdICFGR(reg)))
	if tm == irq.TriggerEdge {
		val |= mask
	} else {
		val &^= mask
	}
	g.regs.Write32(g.gicd(gicdICFGR(reg)), val)
	return nil
}

// GetConfig always reports edge, active-high.
func (g *GIC) GetConfig(vector uint) (irq.TriggerMode, irq.Polarity, error) {
	if vector >= g.maxInt {
		return irq.TriggerEdge, irq.PolarityActiveHigh, pkg.ErrInvalidArgs
	}
	return irq.TriggerEdge, irq.PolarityActiveHigh, nil
}

// IsValid reports whether vector is implemented by the distributor.
func (g *GIC) IsValid(vector uint, _ uint32) bool { return vector < g.maxInt }

// BaseVector returns the first PPI.
func (g *GIC) BaseVector() uint { return BasePPI }

// MaxVector returns the number of implemented interrupt IDs.
func (g *GIC) MaxVector() uint { return g.maxInt }

// Remap is the identity.
func (g *GIC) Remap(vector uint) uint { return vector }

// SGI raises software-generated interrupt sgi on every CPU in target. Only
// non-secure group 1 SGIs are supported.
func (g *GIC) SGI(sgi uint, flags uint32, target hal.CPUMask) error {
	if flags != SGIFlagNS || sgi >= BasePPI {
		return pkg.ErrInvalidArgs
	}

	n := g.cpu.Count()
	cpu := uint(0)
	for cluster := uint(0); target != 0 && cpu < n; cluster++ {
		var list uint32
		for cpu < n {
			c, id := g.cpu.Affinity(cpu)
			if c != cluster {
				break
			}
			if target.Has(cpu) {
				list |= 1 << id
				target &^= 1 << cpu
			}
			cpu++
		}
		if list == 0 {
			continue
		}
		val := uint64(sgi&0xf)<<24 | uint64(cluster&0xff)<<16 | uint64(list&0xff)
		g.sys.WriteSGI1R(val)
	}
	return nil
}

// SendIPI signals ipi to the present CPUs in target.
func (g *GIC) SendIPI(target hal.CPUMask, ipi irq.IPI) error {
	if ipi < 0 || ipi >= irq.NumIPIs {
		return pkg.ErrInvalidArgs
	}
	target &= hal.Present(g.cpu.Count())
	if target == 0 {
		return nil
	}
	return g.SGI(g.cfg.IPIBase+uint(ipi), SGIFlagNS, target)
}

// RegisterIPIHandler installs fn on the SGI that carries ipi.
func (g *GIC) RegisterIPIHandler(ipi irq.IPI, fn irq.Handler, arg any) error {
	if ipi < 0 || ipi >= irq.NumIPIs {
		return pkg.ErrInvalidArgs
	}
	vector := g.cfg.IPIBase + uint(ipi)
	if vector >= BasePPI {
		return pkg.ErrInvalidArgs
	}
	if g.mgr == nil {
		return pkg.ErrNotConfigured
	}
	return g.mgr.RegisterHandler(vector, fn, arg)
}

// HandleIRQ acknowledges the highest priority pending interrupt, runs its
// handlers and signals end of interrupt. Without a manager the interrupt is
// acknowledged and completed unhandled.
func (g *GIC) HandleIRQ(_ *hal.Frame) irq.HandlerReturn {
	iar := g.sys.ReadIAR1()
	vector := uint(iar & iarIntIDMask)

	if vector >= spuriousFirst {
		return irq.NoReschedule
	}
	if g.mgr == nil {
		pkg.LogWarn(pkg.ComponentGIC, "interrupt without manager", "vector", vector)
		g.sys.WriteEOIR1(uint32(vector))
		return irq.NoReschedule
	}

	tr := g.mgr.Tracer()
	if tr != nil {
		tr.IRQEnter(vector)
	}

	ret := g.mgr.Dispatch(vector)
	g.sys.WriteEOIR1(uint32(vector))

	if tr != nil {
		tr.IRQExit(vector)
	}
	return ret
}

// HandleFIQ panics; FIQs are never routed to this kernel.
func (g *GIC) HandleFIQ(frame *hal.Frame) {
	panic(fmt.Sprintf("gic: unimplemented fiq at pc %#x", frame.PC))
}

// Shutdown disables the distributor.
func (g *GIC) Shutdown() {
	g.regs.Write32(g.gicd(gicdCTLR), 0)
}

// ShutdownCPU disables group 1 delivery on the calling CPU. Every PPI must
// already be disabled and no SPI may route to the CPU.
func (g *GIC) ShutdownCPU() {
	cpu := g.cpu.Current()

	if g.regs.Read32(g.gicr(cpu, gicrICENABLER0))&0xffff0000 != 0 {
		panic(fmt.Sprintf("gic: cpu %d shut down with ppis enabled", cpu))
	}

	cluster, id := g.cpu.Affinity(cpu)
	aff := uint64(cluster)<<8 + uint64(id)
	for i := uint(BaseSPI); i < g.maxInt; i++ {
		if g.regs.Read64(g.gicd(gicdIROUTER(i)))&aff != 0 {
			panic(fmt.Sprintf("gic: cpu %d shut down with spi %d routed to it", cpu, i))
		}
	}

	g.sys.WriteIGRPEN1(0)
}

var _ irq.Controller = (*GIC)(nil)
