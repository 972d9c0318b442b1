// Package ksync provides the two synchronization primitives the device layer
// is built on: a spinlock that masks local interrupts while held, and a
// manual-reset event used to park thread-context consumers.
//
// Lock holders must not block and must not call back into code that may
// take the same lock. Interrupt masking is delegated to an [Interrupts]
// implementation supplied by the hardware abstraction layer:
//
//	s := lock.LockIRQSave(cpu)
//	defer lock.UnlockIRQRestore(cpu, s)
package ksync
