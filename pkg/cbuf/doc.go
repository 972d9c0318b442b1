// Package cbuf implements the kernel circular byte buffer.
//
// A [Buffer] has power-of-two capacity C and stores at most C-1 bytes so
// that head == tail always means empty. Writers append at the head and
// readers consume from the tail; both take the buffer spinlock with local
// interrupts masked, so a producer may run in interrupt context while the
// consumer runs in a thread:
//
//	b, _ := cbuf.New(4096, cbuf.WithInterrupts(cpu))
//	n := b.Write(frame, false)          // interrupt handler
//	n, err := b.Read(ctx, out, true)    // reader goroutine
//
// Either side may be a hardware master, declared with [FlagHWWriter] or
// [FlagHWReader]. The hardware side moves data on its own; the software API
// then only moves indices, and with [FlagCacheable] it performs the cache
// maintenance needed for the two to agree on memory contents.
//
// Writes never block. A short count means the buffer filled up and the
// caller decides whether to retry or drop.
package cbuf
