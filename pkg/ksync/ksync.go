package ksync

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
)

// IRQState is the opaque interrupt-enable state returned by
// [Interrupts.Disable] and consumed by [Interrupts.Restore].
type IRQState uint64

// Interrupts masks and restores local interrupt delivery on the calling CPU.
type Interrupts interface {
	Disable() IRQState
	Restore(IRQState)
}

// SpinLock is a busy-waiting mutual exclusion lock. The zero value is
// unlocked. Lock holders must not block.
type SpinLock struct {
	state atomic.Uint32
}

// Lock acquires the lock, spinning until it is free.
func (l *SpinLock) Lock() {
	for !l.state.CompareAndSwap(0, 1) {
		runtime.Gosched()
	}
}

// TryLock acquires the lock if it is free and reports whether it did.
func (l *SpinLock) TryLock() bool {
	return l.state.CompareAndSwap(0, 1)
}

// Unlock releases the lock.
func (l *SpinLock) Unlock() {
	l.state.Store(0)
}

// Held reports whether the lock is currently held by anyone.
func (l *SpinLock) Held() bool {
	return l.state.Load() != 0
}

// LockIRQSave disables local interrupts through irq, then acquires the lock.
// A nil irq skips interrupt masking.
func (l *SpinLock) LockIRQSave(irq Interrupts) IRQState {
	var s IRQState
	if irq != nil {
		s = irq.Disable()
	}
	l.Lock()
	return s
}

// TryLockIRQSave is the non-spinning form of [SpinLock.LockIRQSave]. When
// the lock is busy the interrupt state is restored before returning false.
func (l *SpinLock) TryLockIRQSave(irq Interrupts) (IRQState, bool) {
	var s IRQState
	if irq != nil {
		s = irq.Disable()
	}
	if !l.TryLock() {
		if irq != nil {
			irq.Restore(s)
		}
		return 0, false
	}
	return s, true
}

// UnlockIRQRestore releases the lock and restores the interrupt state saved
// by [SpinLock.LockIRQSave].
func (l *SpinLock) UnlockIRQRestore(irq Interrupts, s IRQState) {
	l.Unlock()
	if irq != nil {
		irq.Restore(s)
	}
}

// Event is a manual-reset event. Once signaled it stays signaled, releasing
// every waiter, until [Event.Unsignal] is called.
type Event struct {
	mu       sync.Mutex
	signaled bool
	ch       chan struct{}
}

// NewEvent returns an event in the given initial state.
func NewEvent(signaled bool) *Event {
	e := &Event{}
	if signaled {
		e.Signal()
	}
	return e
}

func (e *Event) wakeup() chan struct{} {
	if e.ch == nil {
		e.ch = make(chan struct{})
	}
	return e.ch
}

// Signal sets the event and wakes all waiters. It never blocks.
func (e *Event) Signal() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.signaled {
		return
	}
	e.signaled = true
	close(e.wakeup())
}

// Unsignal clears the event.
func (e *Event) Unsignal() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.signaled {
		return
	}
	e.signaled = false
	e.ch = make(chan struct{})
}

// Signaled reports whether the event is currently set.
func (e *Event) Signaled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.signaled
}

// Wait blocks until the event is signaled or ctx is done.
func (e *Event) Wait(ctx context.Context) error {
	e.mu.Lock()
	if e.signaled {
		e.mu.Unlock()
		return nil
	}
	ch := e.wakeup()
	e.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
