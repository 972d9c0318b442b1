package irq

import (
	"fmt"
	"sync/atomic"

	"github.com/ardnew/devcore/hal"
	"github.com/ardnew/devcore/pkg"
	"github.com/ardnew/devcore/pkg/ksync"
)

const none = -1

type slot struct {
	fn   Handler
	arg  any
	next int
}

type controllerBox struct{ c Controller }

// Manager owns the vector table and the active interrupt controller.
//
// Each vector has one primary slot. Further handlers registered on the same
// vector are chained through slots drawn from a pool of [MaxChained]
// entries shared by all vectors. Slots are never returned to the pool.
type Manager struct {
	lock  ksync.SpinLock
	irq   ksync.Interrupts
	table [MaxVectors + MaxChained]slot

	ctrl   atomic.Pointer[controllerBox]
	tracer atomic.Pointer[tracerBox]
}

type tracerBox struct{ t Tracer }

// NewManager returns a manager with the unconfigured controller installed.
// irq masks local interrupts while the table lock is held; it may be nil.
func NewManager(irq ksync.Interrupts) *Manager {
	m := &Manager{irq: irq}
	for i := range m.table {
		m.table[i].next = none
	}
	m.ctrl.Store(&controllerBox{unconfigured{}})
	return m
}

// RegisterController makes c the active controller. A nil c restores the
// unconfigured controller.
func (m *Manager) RegisterController(c Controller) {
	if c == nil {
		c = unconfigured{}
	}
	m.ctrl.Store(&controllerBox{c})
}

// Controller returns the active controller.
func (m *Manager) Controller() Controller { return m.ctrl.Load().c }

// SetTracer attaches t to receive interrupt entry and exit events.
func (m *Manager) SetTracer(t Tracer) {
	if t == nil {
		m.tracer.Store(nil)
		return
	}
	m.tracer.Store(&tracerBox{t})
}

// Tracer returns the attached tracer, or nil.
func (m *Manager) Tracer() Tracer {
	if b := m.tracer.Load(); b != nil {
		return b.t
	}
	return nil
}

func (m *Manager) freeChained() int {
	for i := MaxVectors; i < len(m.table); i++ {
		if m.table[i].fn == nil {
			return i
		}
	}
	return none
}

// RegisterHandler installs fn for vector. The first handler occupies the
// primary slot; later ones are appended to the vector's chain. A nil fn
// clears the primary slot and leaves any chain in place.
//
// It returns [pkg.ErrInvalidArgs] when the active controller rejects the
// vector and [pkg.ErrAlreadyBound] when the chained pool is exhausted.
func (m *Manager) RegisterHandler(vector uint, fn Handler, arg any) error {
	if vector >= MaxVectors || !m.IsValid(vector, 0) {
		return fmt.Errorf("irq: vector %d: %w", vector, pkg.ErrInvalidArgs)
	}

	s := m.lock.LockIRQSave(m.irq)
	defer m.lock.UnlockIRQRestore(m.irq, s)

	h := int(vector)
	if fn != nil && m.table[h].fn != nil {
		for m.table[h].next != none {
			h = m.table[h].next
		}
		next := m.freeChained()
		if next == none {
			pkg.LogWarn(pkg.ComponentIRQ, "chained handler pool exhausted", "vector", vector)
			return fmt.Errorf("irq: vector %d: %w", vector, pkg.ErrAlreadyBound)
		}
		m.table[h].next = next
		h = next
	}
	m.table[h].fn = fn
	m.table[h].arg = arg
	return nil
}

// Dispatch runs every handler registered on vector in registration order
// and returns [Reschedule] if any of them asked for it. A vector with no
// handlers runs nothing.
func (m *Manager) Dispatch(vector uint) HandlerReturn {
	if vector >= MaxVectors {
		return NoReschedule
	}
	ret := NoReschedule
	for h := int(vector); h != none; {
		s := m.lock.LockIRQSave(m.irq)
		sl := m.table[h]
		m.lock.UnlockIRQRestore(m.irq, s)

		if sl.fn != nil && sl.fn(sl.arg) == Reschedule {
			ret = Reschedule
		}
		h = sl.next
	}
	return ret
}

// Handlers returns the number of handlers installed on vector.
func (m *Manager) Handlers(vector uint) int {
	if vector >= MaxVectors {
		return 0
	}
	s := m.lock.LockIRQSave(m.irq)
	defer m.lock.UnlockIRQRestore(m.irq, s)
	n := 0
	for h := int(vector); h != none; h = m.table[h].next {
		if m.table[h].fn != nil {
			n++
		}
	}
	return n
}

// Mask disables delivery of vector.
func (m *Manager) Mask(vector uint) error { return m.Controller().Mask(vector) }

// Unmask enables delivery of vector.
func (m *Manager) Unmask(vector uint) error { return m.Controller().Unmask(vector) }

// Configure sets trigger mode and polarity. It must precede handler
// registration for the vector.
func (m *Manager) Configure(vector uint, tm TriggerMode, pol Polarity) error {
	return m.Controller().Configure(vector, tm, pol)
}

// GetConfig reports trigger mode and polarity.
func (m *Manager) GetConfig(vector uint) (TriggerMode, Polarity, error) {
	return m.Controller().GetConfig(vector)
}

// IsValid reports whether the active controller accepts vector.
func (m *Manager) IsValid(vector uint, flags uint32) bool {
	return m.Controller().IsValid(vector, flags)
}

// BaseVector returns the first vector usable by drivers.
func (m *Manager) BaseVector() uint { return m.Controller().BaseVector() }

// MaxVector returns one past the last vector usable by drivers.
func (m *Manager) MaxVector() uint { return m.Controller().MaxVector() }

// Remap translates a platform vector number.
func (m *Manager) Remap(vector uint) uint { return m.Controller().Remap(vector) }

// SendIPI raises ipi on every CPU in target.
func (m *Manager) SendIPI(target hal.CPUMask, ipi IPI) error {
	return m.Controller().SendIPI(target, ipi)
}

// InitPerCPUEarly prepares the calling CPU's interface before interrupts
// are enabled.
func (m *Manager) InitPerCPUEarly() { m.Controller().InitPerCPUEarly() }

// InitPerCPU completes per-CPU setup once the scheduler runs.
func (m *Manager) InitPerCPU() { m.Controller().InitPerCPU() }

// PlatformIRQ is the IRQ exception entry point.
func (m *Manager) PlatformIRQ(frame *hal.Frame) HandlerReturn {
	return m.Controller().HandleIRQ(frame)
}

// PlatformFIQ is the FIQ exception entry point.
func (m *Manager) PlatformFIQ(frame *hal.Frame) { m.Controller().HandleFIQ(frame) }

// Shutdown quiesces the controller for the whole system.
func (m *Manager) Shutdown() { m.Controller().Shutdown() }

// ShutdownCPU quiesces the controller for the calling CPU before it is
// powered off.
func (m *Manager) ShutdownCPU() { m.Controller().ShutdownCPU() }
