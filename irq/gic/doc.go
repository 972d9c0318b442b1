// Package gic drives an ARM Generic Interrupt Controller version 3 or 4.
//
// The distributor and redistributors are reached through a [hal.Registers]
// window and the CPU interface through [hal.GICSysRegs]. Once [GIC.Init]
// succeeds the controller is installed in the [irq.Manager], which then
// routes every acknowledged interrupt to the registered handlers.
//
//	g := gic.New(mgr, regs, sysregs, cpus, gic.Config{
//	    GICROffset: 0xa0000,
//	    GICRStride: 0x20000,
//	})
//	if err := g.Init(); err != nil {
//	    return err
//	}
//
// On a tree-described platform, register [Driver] with a driver.Registry
// instead; it maps the node's "reg" ranges and runs Init at the
// platform-early level.
//
// SGIs 0 through 15 carry inter-processor interrupts starting at
// [Config.IPIBase]. FIQs are not supported.
package gic
