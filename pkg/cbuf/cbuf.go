package cbuf

import (
	"context"
	"fmt"
	"math/bits"
	"runtime"

	"github.com/ardnew/devcore/hal"
	"github.com/ardnew/devcore/pkg"
	"github.com/ardnew/devcore/pkg/ksync"
)

// Flags describe who produces and consumes the buffer contents.
type Flags uint32

// Buffer flags. The zero value is a software writer and a software reader
// over uncached memory.
const (
	// FlagHWWriter marks the producer as a hardware master. Writes only
	// advance the head; the data is already in place.
	FlagHWWriter Flags = 1 << iota
	// FlagHWReader marks the consumer as a hardware master. Reads only
	// advance the tail.
	FlagHWReader
	// FlagCacheable requests cache maintenance on the side shared with
	// hardware.
	FlagCacheable
)

// Option configures a Buffer at construction.
type Option func(*Buffer)

// WithStorage uses buf as backing storage instead of allocating.
func WithStorage(buf []byte) Option {
	return func(b *Buffer) { b.buf = buf }
}

// WithFlags sets the producer and consumer kinds.
func WithFlags(f Flags) Option {
	return func(b *Buffer) { b.flags = f }
}

// WithCache sets the cache maintenance provider used with [FlagCacheable].
func WithCache(c hal.Cache) Option {
	return func(b *Buffer) { b.cache = c }
}

// WithInterrupts masks local interrupts through irq while the buffer lock
// is held.
func WithInterrupts(irq ksync.Interrupts) Option {
	return func(b *Buffer) { b.irq = irq }
}

// WithoutEvent disables the data-available event. Blocking reads then
// poll.
func WithoutEvent() Option {
	return func(b *Buffer) { b.noEvent = true }
}

// Buffer is a single-producer single-consumer byte ring of power-of-two
// capacity C. It holds at most C-1 bytes; head == tail means empty.
type Buffer struct {
	head    uint
	tail    uint
	lenPow2 uint
	buf     []byte

	lock    ksync.SpinLock
	event   ksync.Event
	irq     ksync.Interrupts
	cache   hal.Cache
	flags   Flags
	noEvent bool
	isReset bool
}

// New returns an empty buffer of the given capacity, which must be a
// non-zero power of two. When [WithStorage] is given its length must equal
// capacity.
func New(capacity int, opts ...Option) (*Buffer, error) {
	if capacity <= 0 || capacity&(capacity-1) != 0 {
		return nil, fmt.Errorf("cbuf: capacity %d: %w", capacity, pkg.ErrInvalidArgs)
	}
	b := &Buffer{lenPow2: uint(bits.TrailingZeros(uint(capacity)))}
	for _, opt := range opts {
		opt(b)
	}
	if b.buf == nil {
		b.buf = make([]byte, capacity)
	} else if len(b.buf) != capacity {
		return nil, fmt.Errorf("cbuf: storage length %d, capacity %d: %w",
			len(b.buf), capacity, pkg.ErrInvalidArgs)
	}
	pkg.LogDebug(pkg.ComponentCbuf, "initialized", "len", capacity, "lenPow2", b.lenPow2)
	return b, nil
}

func (b *Buffer) size() uint { return 1 << b.lenPow2 }

func (b *Buffer) inc(ptr, n uint) uint { return (ptr + n) & (b.size() - 1) }

func (b *Buffer) swWriter() bool { return b.flags&FlagHWWriter == 0 }
func (b *Buffer) swReader() bool { return b.flags&FlagHWReader == 0 }
func (b *Buffer) cacheable() bool {
	return b.flags&FlagCacheable != 0 && b.cache != nil
}

// Size returns the capacity C.
func (b *Buffer) Size() int { return int(b.size()) }

// Storage returns the backing array. It is meant for hardware producers and
// consumers that address the memory directly.
func (b *Buffer) Storage() []byte { return b.buf }

// SpaceUsed returns the number of unread bytes.
func (b *Buffer) SpaceUsed() int {
	return int((b.head - b.tail) & (b.size() - 1))
}

// SpaceAvail returns how many bytes can be written before the buffer is
// full. SpaceAvail() + SpaceUsed() == Size() - 1.
func (b *Buffer) SpaceAvail() int {
	return int(b.size()) - b.SpaceUsed() - 1
}

// Event returns the data-available event.
func (b *Buffer) Event() *ksync.Event { return &b.event }

func (b *Buffer) contiguousSpace(n, pos uint) uint {
	switch {
	case b.head >= b.tail && b.tail == 0:
		// Writing to the end would make head wrap onto tail and read as empty.
		return min(b.size()-b.head-1, n-pos)
	case b.head >= b.tail:
		return min(b.size()-b.head, n-pos)
	default:
		return min(b.tail-b.head-1, n-pos)
	}
}

func (b *Buffer) write(p []byte, n uint) uint {
	enable := b.swWriter()
	var pos uint
	for pos < n && b.SpaceAvail() > 0 {
		wl := b.contiguousSpace(n, pos)
		if wl == 0 {
			break
		}
		span := b.buf[b.head : b.head+wl]
		if p == nil {
			if !b.isReset && enable {
				clear(span)
			}
		} else {
			if enable {
				copy(span, p[pos:pos+wl])
			}
			b.isReset = false
		}
		if b.cacheable() && !b.swReader() {
			b.cache.CleanInvalidate(span)
		}
		b.head = b.inc(b.head, wl)
		pos += wl
	}
	if !b.noEvent && b.head != b.tail {
		b.event.Signal()
	}
	return pos
}

// Write copies as much of p as fits and returns the count written. A short
// count means the buffer filled. When reschedule is true the caller yields
// the processor afterwards.
func (b *Buffer) Write(p []byte, reschedule bool) int {
	s := b.lock.LockIRQSave(b.irq)
	n := b.write(p, uint(len(p)))
	b.lock.UnlockIRQRestore(b.irq, s)
	if reschedule {
		runtime.Gosched()
	}
	return int(n)
}

// Advance moves the head forward by up to n bytes without copying. With a
// software writer the skipped bytes are zeroed unless the buffer was just
// reset with [Buffer.ResetWithZero].
func (b *Buffer) Advance(n int, reschedule bool) int {
	if n <= 0 {
		return 0
	}
	s := b.lock.LockIRQSave(b.irq)
	w := b.write(nil, uint(n))
	b.lock.UnlockIRQRestore(b.irq, s)
	if reschedule {
		runtime.Gosched()
	}
	return int(w)
}

// WriteChar appends a single byte if there is room and reports the count
// written.
func (b *Buffer) WriteChar(c byte, reschedule bool) int {
	s := b.lock.LockIRQSave(b.irq)
	n := 0
	if b.SpaceAvail() > 0 {
		b.buf[b.head] = c
		b.head = b.inc(b.head, 1)
		n = 1
		if !b.noEvent && b.head != b.tail {
			b.event.Signal()
		}
	}
	b.lock.UnlockIRQRestore(b.irq, s)
	if reschedule && n > 0 {
		runtime.Gosched()
	}
	return n
}

func (b *Buffer) contiguousUsed(n, pos uint) uint {
	if b.head > b.tail {
		return min(b.head-b.tail, n-pos)
	}
	return min(b.size()-b.tail, n-pos)
}

func (b *Buffer) read(p []byte, n uint) uint {
	if b.tail == b.head {
		return 0
	}
	enable := b.swReader()
	var pos uint
	for pos < n && b.tail != b.head {
		rl := b.contiguousUsed(n, pos)
		span := b.buf[b.tail : b.tail+rl]
		if b.cacheable() && !b.swWriter() {
			b.cache.Invalidate(span)
		}
		if p != nil && enable {
			copy(p[pos:pos+rl], span)
		}
		b.tail = b.inc(b.tail, rl)
		pos += rl
	}
	if !b.noEvent && b.tail == b.head {
		b.event.Unsignal()
	}
	return pos
}

// Read copies up to len(p) unread bytes into p. When block is true and the
// buffer is empty, Read waits for data or for ctx to be done. Read must not
// be called with block set from interrupt context.
func (b *Buffer) Read(ctx context.Context, p []byte, block bool) (int, error) {
	return b.readN(ctx, p, uint(len(p)), block)
}

// Discard consumes up to n bytes without copying them.
func (b *Buffer) Discard(n int) int {
	if n <= 0 {
		return 0
	}
	got, _ := b.readN(context.Background(), nil, uint(n), false)
	return got
}

func (b *Buffer) readN(ctx context.Context, p []byte, n uint, block bool) (int, error) {
	for {
		if block {
			if err := b.wait(ctx); err != nil {
				return 0, err
			}
		}
		s := b.lock.LockIRQSave(b.irq)
		got := b.read(p, n)
		b.lock.UnlockIRQRestore(b.irq, s)

		// A wakeup can race with another reader draining the buffer.
		if !block || got > 0 || n == 0 {
			return int(got), nil
		}
	}
}

func (b *Buffer) wait(ctx context.Context) error {
	if !b.noEvent {
		return b.event.Wait(ctx)
	}
	runtime.Gosched()
	return ctx.Err()
}

// ReadChar consumes one byte. ok is false when the buffer was empty and
// block was false.
func (b *Buffer) ReadChar(ctx context.Context, block bool) (c byte, ok bool, err error) {
	for {
		if block {
			if err := b.wait(ctx); err != nil {
				return 0, false, err
			}
		}
		s := b.lock.LockIRQSave(b.irq)
		if b.tail != b.head {
			c = b.buf[b.tail]
			b.tail = b.inc(b.tail, 1)
			if !b.noEvent && b.tail == b.head {
				b.event.Unsignal()
			}
			ok = true
		}
		b.lock.UnlockIRQRestore(b.irq, s)
		if ok || !block {
			return c, ok, nil
		}
	}
}

// Peek returns up to two spans covering the unread data, in order, and
// their total length. Nothing is consumed. The spans alias the buffer and
// are valid until the next read.
func (b *Buffer) Peek() (regions [2][]byte, n int) {
	s := b.lock.LockIRQSave(b.irq)
	defer b.lock.UnlockIRQRestore(b.irq, s)
	return b.peek()
}

func (b *Buffer) peek() (regions [2][]byte, n int) {
	used := uint(b.SpaceUsed())
	sz := b.size()
	if used == 0 {
		return regions, 0
	}
	if used+b.tail > sz {
		regions[0] = b.buf[b.tail:sz]
		regions[1] = b.buf[:used-(sz-b.tail)]
	} else {
		regions[0] = b.buf[b.tail : b.tail+used]
	}
	return regions, int(used)
}

// Trash advances both head and tail by n. It is meaningful only when one
// side is a hardware master and is a no-op for a software-only buffer. n
// must lie in [0, Size); other values leave the indices untouched.
func (b *Buffer) Trash(n int) {
	if b.swWriter() && b.swReader() || n == 0 {
		return
	}
	if n < 0 || n >= b.Size() {
		pkg.LogWarn(pkg.ComponentCbuf, "trash count out of range", "n", n, "size", b.Size())
		return
	}
	s := b.lock.LockIRQSave(b.irq)
	b.head = b.inc(b.head, uint(n))
	b.tail = b.inc(b.tail, uint(n))
	b.lock.UnlockIRQRestore(b.irq, s)
}

// Reset discards all unread data.
func (b *Buffer) Reset() {
	b.Discard(b.Size())
}

// ResetIndexes discards all unread data and rewinds head and tail to zero.
func (b *Buffer) ResetIndexes() {
	b.Reset()
	s := b.lock.LockIRQSave(b.irq)
	b.head, b.tail = 0, 0
	b.lock.UnlockIRQRestore(b.irq, s)
}

// ResetWithZero clears the storage and resets the buffer. Until the next
// write of real data, [Buffer.Advance] skips zero filling.
func (b *Buffer) ResetWithZero() {
	clear(b.buf)
	if b.swWriter() && b.swReader() {
		b.Reset()
	} else {
		b.ResetIndexes()
		if b.cacheable() && !b.swReader() {
			b.cache.CleanInvalidate(b.buf)
		}
	}
	b.isReset = true
}

// TryLock acquires the buffer lock without spinning. It is used by
// producers that must never wait, such as the trace log, together with the
// Locked variants below.
func (b *Buffer) TryLock() (ksync.IRQState, bool) {
	return b.lock.TryLockIRQSave(b.irq)
}

// Lock acquires the buffer lock, spinning until it is free.
func (b *Buffer) Lock() ksync.IRQState {
	return b.lock.LockIRQSave(b.irq)
}

// Unlock releases a lock taken with [Buffer.TryLock] or [Buffer.Lock].
func (b *Buffer) Unlock(s ksync.IRQState) {
	b.lock.UnlockIRQRestore(b.irq, s)
}

// WriteLocked is [Buffer.Write] for callers holding the lock.
func (b *Buffer) WriteLocked(p []byte) int {
	return int(b.write(p, uint(len(p))))
}

// ReadLocked is a non-blocking [Buffer.Read] for callers holding the lock.
// A nil p discards up to n bytes.
func (b *Buffer) ReadLocked(p []byte, n int) int {
	if p != nil {
		n = len(p)
	}
	return int(b.read(p, uint(n)))
}

// PeekLocked is [Buffer.Peek] for callers holding the lock.
func (b *Buffer) PeekLocked() ([2][]byte, int) {
	return b.peek()
}
