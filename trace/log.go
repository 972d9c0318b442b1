package trace

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ardnew/devcore/hal"
	"github.com/ardnew/devcore/irq"
	"github.com/ardnew/devcore/pkg"
	"github.com/ardnew/devcore/pkg/cbuf"
)

// Defaults applied by [New].
const (
	DefaultRingSize      = 1 << 16
	DefaultFlushInterval = 50 * time.Millisecond
)

// MaxCPUs is the number of CPUs a record header can name.
const MaxCPUs = 256

// Options configures a [Log].
type Options struct {
	// CPUs is the number of per-CPU rings. Zero takes CPU.Count(), or one
	// without a CPU provider.
	CPUs uint

	// RingSize is the capacity in bytes of each ring. It must be a power of
	// two of at least twice [EntryMaxSize]. Zero selects [DefaultRingSize].
	RingSize int

	// CPU names the executing CPU and masks its interrupts while a ring is
	// locked. Nil records everything on CPU 0.
	CPU hal.CPU

	// Clock returns the record timestamp in nanoseconds. Nil uses the time
	// elapsed since [New].
	Clock func() uint64

	// CurrentThread returns the running thread, consulted to keep trace
	// plumbing threads out of kernel events. May be nil.
	CurrentThread func() *Thread

	// Sink receives flushed data on Channel.
	Sink    Sink
	Channel uint32

	// FlushInterval is the period of [Log.Run]. Zero selects
	// [DefaultFlushInterval].
	FlushInterval time.Duration

	// FlushParallelism bounds how many rings flush at once. Zero or one
	// flushes them in CPU order.
	FlushParallelism int
}

var _ irq.Tracer = (*Log)(nil)

type ring struct {
	buf         *cbuf.Buffer
	dropped     atomic.Uint64
	overwritten atomic.Uint64
	scratch     []byte
}

// Log is a set of per-CPU rings of trace records. Writers never wait: a
// record that finds its ring locked is dropped, and a full ring discards
// its oldest whole records to make room.
type Log struct {
	opts  Options
	rings []*ring

	// Serializes users of the ring scratch buffers.
	flushMu sync.Mutex
}

// New returns an empty log.
func New(opts Options) (*Log, error) {
	if opts.CPUs == 0 {
		opts.CPUs = 1
		if opts.CPU != nil && opts.CPU.Count() > 0 {
			opts.CPUs = opts.CPU.Count()
		}
	}
	if opts.CPUs > MaxCPUs {
		return nil, fmt.Errorf("trace: %d cpus, limit %d: %w", opts.CPUs, MaxCPUs, pkg.ErrInvalidArgs)
	}
	if opts.RingSize == 0 {
		opts.RingSize = DefaultRingSize
	}
	if opts.RingSize < 2*EntryMaxSize {
		return nil, fmt.Errorf("trace: ring size %d below %d: %w", opts.RingSize, 2*EntryMaxSize, pkg.ErrInvalidArgs)
	}
	if opts.Clock == nil {
		start := time.Now()
		opts.Clock = func() uint64 { return uint64(time.Since(start)) }
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = DefaultFlushInterval
	}
	if opts.FlushParallelism < 1 {
		opts.FlushParallelism = 1
	}

	l := &Log{opts: opts, rings: make([]*ring, opts.CPUs)}
	for cpu := range l.rings {
		buf, err := cbuf.New(opts.RingSize, cbuf.WithoutEvent(), cbuf.WithInterrupts(opts.CPU))
		if err != nil {
			return nil, fmt.Errorf("trace: cpu %d ring: %w", cpu, err)
		}
		l.rings[cpu] = &ring{buf: buf, scratch: make([]byte, opts.RingSize)}
	}
	pkg.LogDebug(pkg.ComponentTrace, "initialized", "cpus", opts.CPUs, "ringSize", opts.RingSize)
	return l, nil
}

func (l *Log) currentCPU() uint {
	if l.opts.CPU == nil {
		return 0
	}
	return l.opts.CPU.Current()
}

// Write records an event of type typ on the executing CPU. The meaning of
// arg0 and arg1 depends on the kind:
//
//   - [TypeString]: arg0 is a string, []byte or fmt.Stringer.
//   - [TypeKernel]: see the [KernelEvent] helpers on Log.
//   - [TypeBinary]: arg0 is a []byte, arg1 an optional length.
//
// Payloads longer than [MaxDataSize] are truncated. Unknown kinds are
// ignored.
func (l *Log) Write(typ Type, arg0, arg1 any) {
	k := typ.Kind()
	if k >= numTypes {
		return
	}
	cpu := l.currentCPU()
	if cpu >= uint(len(l.rings)) {
		return
	}

	h := Header{
		Magic:     Magic,
		Timestamp: l.opts.Clock(),
		Type:      typ,
		CPU:       uint8(cpu),
	}
	hk := hooks[k]
	if hk.noTrace != nil && hk.noTrace(l, h, arg0, arg1) {
		return
	}

	var rec [EntryMaxSize]byte
	n := hk.store(h, arg0, arg1, rec[HeaderSize:])
	if n < 0 {
		return
	}
	h.Len = uint16(n)
	h.Put(rec[:])
	l.rings[cpu].write(rec[:h.Size()])
}

func (r *ring) write(rec []byte) {
	s, ok := r.buf.TryLock()
	if !ok {
		// Re-entered from an interrupt on this CPU, or raced with a flush.
		r.dropped.Add(1)
		return
	}
	defer r.buf.Unlock(s)

	var hdr [HeaderSize]byte
	for r.buf.SpaceAvail() < len(rec) {
		if r.buf.ReadLocked(hdr[:], 0) < HeaderSize {
			break
		}
		h, _ := ParseHeader(hdr[:])
		if h.Len > 0 {
			r.buf.ReadLocked(nil, int(h.Len))
		}
		r.overwritten.Add(1)
	}
	if r.buf.SpaceAvail() < len(rec) {
		r.dropped.Add(1)
		return
	}
	r.buf.WriteLocked(rec)
}

// Print records s as a string event.
func (l *Log) Print(s string) { l.Write(TypeString, s, nil) }

// Printf records a formatted string event.
func (l *Log) Printf(format string, args ...any) {
	l.Write(TypeString, fmt.Sprintf(format, args...), nil)
}

// Binary records p as an opaque binary event.
func (l *Log) Binary(p []byte) { l.Write(TypeBinary, p, len(p)) }

// ContextSwitch records a switch from prev to next.
func (l *Log) ContextSwitch(prev, next *Thread) { l.Write(ContextSwitch.Type(), prev, next) }

// Preempt records the preemption of t.
func (l *Log) Preempt(t *Thread) { l.Write(Preempt.Type(), t, nil) }

// TimerTick records a timer tick.
func (l *Log) TimerTick() { l.Write(TimerTick.Type(), nil, nil) }

// TimerCall records a timer callback invocation.
func (l *Log) TimerCall(callback, arg uint64) { l.Write(TimerCall.Type(), callback, arg) }

// IRQEnter records entry into the handler of vector. Only the low eight
// bits of the vector are kept.
func (l *Log) IRQEnter(vector uint) { l.Write(IRQEnter.Type(), vector, nil) }

// IRQExit records exit from the handler of vector.
func (l *Log) IRQExit(vector uint) { l.Write(IRQExit.Type(), vector, nil) }

// Dropped returns how many records were lost to lock contention.
func (l *Log) Dropped() uint64 {
	var n uint64
	for _, r := range l.rings {
		n += r.dropped.Load()
	}
	return n
}

// Overwritten returns how many old records were discarded to make room.
func (l *Log) Overwritten() uint64 {
	var n uint64
	for _, r := range l.rings {
		n += r.overwritten.Load()
	}
	return n
}

// Flush drains every ring and hands each non-empty drain to the sink. It
// fails with [pkg.ErrNotConfigured] without a sink. Data handed to a
// failing sink is lost.
func (l *Log) Flush(ctx context.Context) error {
	if l.opts.Sink == nil {
		return pkg.ErrNotConfigured
	}
	l.flushMu.Lock()
	defer l.flushMu.Unlock()

	var g errgroup.Group
	g.SetLimit(l.opts.FlushParallelism)
	for cpu, r := range l.rings {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			n, _ := r.buf.Read(ctx, r.scratch, false)
			if n == 0 {
				return nil
			}
			if err := l.opts.Sink.WriteBuf(l.opts.Channel, r.scratch[:n]); err != nil {
				return fmt.Errorf("trace: cpu %d: %w", cpu, err)
			}
			pkg.LogDebug(pkg.ComponentTrace, "flushed", "cpu", cpu, "bytes", n)
			return nil
		})
	}
	return g.Wait()
}

// Run flushes the log every FlushInterval until ctx is done, then flushes
// once more and returns. Sink errors are logged and do not stop the loop.
func (l *Log) Run(ctx context.Context) error {
	t := time.NewTicker(l.opts.FlushInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return l.Flush(context.WithoutCancel(ctx))
		case <-t.C:
			if err := l.Flush(ctx); err != nil && ctx.Err() == nil {
				pkg.LogWarn(pkg.ComponentTrace, "flush failed", "error", err)
			}
		}
	}
}

// List prints every buffered record to w, CPU by CPU, without consuming
// anything. Records of unknown kind are skipped. A record with a wrong
// magic stops the listing with [ErrBadMagic].
func (l *Log) List(w io.Writer) error {
	l.flushMu.Lock()
	defer l.flushMu.Unlock()

	for cpu, r := range l.rings {
		n := r.snapshot()
		_, err := Decode(r.scratch[:n], func(h Header, data []byte) error {
			if h.Type.Kind() >= numTypes {
				return nil
			}
			return Print(w, h, data)
		})
		if err != nil {
			return fmt.Errorf("trace: cpu %d: %w", cpu, err)
		}
	}
	return nil
}

func (r *ring) snapshot() int {
	s := r.buf.Lock()
	defer r.buf.Unlock(s)
	regions, _ := r.buf.PeekLocked()
	n := copy(r.scratch, regions[0])
	n += copy(r.scratch[n:], regions[1])
	return n
}
