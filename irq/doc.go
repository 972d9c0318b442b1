// Package irq implements the kernel interrupt dispatch framework.
//
// A [Manager] holds a fixed vector table and the active [Controller]. Driver
// code registers handlers by vector number; the controller driver's IRQ
// entry acknowledges the hardware, calls [Manager.Dispatch] and signals end
// of interrupt.
//
// # Shared Vectors
//
// Several handlers may share one vector. The first occupies the vector's
// own slot and the rest are chained from a pool of [MaxChained] slots
// shared by all vectors. Handlers run in registration order and the
// dispatcher reports [Reschedule] if any of them requests it:
//
//	m := irq.NewManager(cpu)
//	m.RegisterController(gicv3)
//	m.RegisterHandler(72, uartRx, port)
//	m.RegisterHandler(72, uartTx, port)
//
// # Controller
//
// Until a controller driver calls [Manager.RegisterController], every
// operation reports [pkg.ErrNotConfigured] and every vector is invalid.
//
// [pkg.ErrNotConfigured]: github.com/ardnew/devcore/pkg#ErrNotConfigured
package irq
