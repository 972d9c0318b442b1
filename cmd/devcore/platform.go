package main

import (
	"context"
	"fmt"

	"github.com/ardnew/devcore/driver"
	"github.com/ardnew/devcore/fdt"
	"github.com/ardnew/devcore/hal"
	"github.com/ardnew/devcore/hal/sim"
	"github.com/ardnew/devcore/irq"
	"github.com/ardnew/devcore/irq/gic"
	"github.com/ardnew/devcore/pkg"
	"github.com/ardnew/devcore/trace"
)

// Interrupt IDs of the simulated machine.
const (
	timerPPI = 30 // EL1 physical timer
	ipiBase  = 0
)

// Distributor identification for simulated register windows: a GICv3
// (PIDR2.ArchRev) with 96 interrupt IDs and more than one CPU (TYPER).
const (
	simPIDR2Off = 0xffe8
	simPIDR2    = 3 << 4
	simTYPEROff = 0x0004
	simTYPER    = 2<<19 | 1<<5
)

// simMapper backs every mapping with zeroed memory that identifies as a
// GICv3 distributor at offset gicd.
func simMapper(gicdBase uint64) gic.Mapper {
	return func(base uint64, size int) (hal.Registers, error) {
		r := sim.NewRegs(size, false)
		off := uintptr(gicdBase - base)
		r.Poke(off+simPIDR2Off, simPIDR2)
		r.Poke(off+simTYPEROff, simTYPER)
		return r, nil
	}
}

// platform is a simulated machine booted from a device tree.
type platform struct {
	cpu *sim.CPU
	sys *sim.GICSysRegs
	mgr *irq.Manager
	reg *driver.Registry
}

// boot binds the tree's interrupt controller and brings the board up.
// With a nil mapper, register windows are simulated.
func boot(ctx context.Context, tree fdt.Tree, cpus, perCluster uint, mapper gic.Mapper) (*platform, error) {
	off := tree.NodeByCompatible(fdt.NotFound, gic.Compatible)
	if off == fdt.NotFound {
		return nil, fmt.Errorf("no %s node: %w", gic.Compatible, pkg.ErrNotFound)
	}
	if mapper == nil {
		regs := driver.ParseConfig(tree, off).Regs
		if len(regs) == 0 {
			return nil, fmt.Errorf("%s: no reg: %w", tree.Name(off), pkg.ErrNotValid)
		}
		mapper = simMapper(regs[0].Base)
	}

	p := &platform{
		cpu: sim.NewCPU(cpus, perCluster),
		sys: &sim.GICSysRegs{},
	}
	p.mgr = irq.NewManager(p.cpu)
	p.reg = driver.NewRegistry(driver.Options{Interrupts: p.cpu})

	err := p.reg.Register(gic.Driver(gic.Platform{
		Manager: p.mgr,
		Sys:     p.sys,
		CPU:     p.cpu,
		Map:     mapper,
		IPIBase: ipiBase,
	}))
	if err != nil {
		return nil, err
	}
	if err := p.reg.Populate(tree); err != nil {
		return nil, err
	}
	if err := p.reg.Boot(ctx); err != nil {
		return nil, err
	}
	if _, ok := p.mgr.Controller().(*gic.GIC); !ok {
		return nil, fmt.Errorf("interrupt controller not bound: %w", pkg.ErrNotReady)
	}
	for cpu := uint(1); cpu < cpus; cpu++ {
		p.cpu.SetCurrent(cpu)
		p.mgr.InitPerCPUEarly()
		p.mgr.InitPerCPU()
	}
	p.cpu.SetCurrent(0)
	p.mgr.InitPerCPU()
	return p, nil
}

// scheduler is a round-robin of fake threads driven by the timer.
type scheduler struct {
	log     *trace.Log
	threads []*trace.Thread
	running []int // per CPU index into threads
	ticks   int
	slice   int
}

func newScheduler(log *trace.Log, cpus uint, slice int) *scheduler {
	s := &scheduler{log: log, running: make([]int, cpus), slice: max(slice, 1)}
	for i := range cpus * 2 {
		s.threads = append(s.threads, &trace.Thread{
			Name:     fmt.Sprintf("worker-%d", i),
			ID:       uint32(i + 1),
			Priority: 16,
		})
	}
	for cpu := range s.running {
		s.running[cpu] = cpu
	}
	return s
}

// tick is the timer interrupt handler. arg is the CPU taking the tick.
func (s *scheduler) tick(arg any) irq.HandlerReturn {
	cpu := arg.(*sim.CPU).Current()
	s.log.TimerTick()
	s.ticks++
	if s.ticks%s.slice != 0 {
		return irq.NoReschedule
	}
	prev := s.threads[s.running[cpu]]
	s.running[cpu] = (s.running[cpu] + len(s.running)) % len(s.threads)
	next := s.threads[s.running[cpu]]
	s.log.Preempt(prev)
	s.log.ContextSwitch(prev, next)
	return irq.Reschedule
}

// attach routes the timer to the scheduler.
func (p *platform) attach(s *scheduler) error {
	if err := p.mgr.RegisterHandler(timerPPI, s.tick, p.cpu); err != nil {
		return err
	}
	if err := p.mgr.Configure(timerPPI, irq.TriggerLevel, irq.PolarityActiveHigh); err != nil {
		return err
	}
	return p.mgr.Unmask(timerPPI)
}

// step raises the timer on every CPU in turn and takes the interrupt.
func (p *platform) step() {
	for cpu := range p.cpu.Count() {
		p.cpu.SetCurrent(cpu)
		s := p.cpu.Disable()
		p.sys.Raise(timerPPI)
		p.mgr.PlatformIRQ(nil)
		p.cpu.Restore(s)
	}
	p.cpu.SetCurrent(0)
}
