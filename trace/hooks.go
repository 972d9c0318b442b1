package trace

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/ardnew/devcore/pkg"
)

// KernelEvent is the subtype of a [TypeKernel] record.
type KernelEvent uint8

// Kernel events.
const (
	ContextSwitch KernelEvent = iota
	Preempt
	TimerTick
	TimerCall
	IRQEnter
	IRQExit
	numKernelEvents
)

var kernelEventNames = [...]string{
	ContextSwitch: "context-switch",
	Preempt:       "preempt",
	TimerTick:     "timer-tick",
	TimerCall:     "timer-call",
	IRQEnter:      "irq-enter",
	IRQExit:       "irq-exit",
}

// String returns a string representation of the event.
func (e KernelEvent) String() string {
	if e < numKernelEvents {
		return kernelEventNames[e]
	}
	return fmt.Sprintf("event(%d)", uint8(e))
}

// Type returns the record type carrying e.
func (e KernelEvent) Type() Type { return MakeType(TypeKernel, uint8(e)) }

// CommSize is the fixed width of a thread name in kernel records.
const CommSize = 32

// Kernel payload sizes.
const (
	switchSize    = 2*CommSize + 4*4
	preemptSize   = CommSize + 2*4
	timerCallSize = 2 * 8
	irqSize       = 1
)

// Thread identifies a scheduled thread in kernel records.
type Thread struct {
	Name     string
	ID       uint32
	Priority int32
}

// Threads whose names carry one of these prefixes take part in moving trace
// data out of the system. Kernel events raised by or switching to them are
// not recorded.
var noTracePrefixes = []string{"ivshm-", "binary-", "tracelog-"}

func noTraceThread(t *Thread) bool {
	if t == nil {
		return false
	}
	for _, p := range noTracePrefixes {
		if strings.HasPrefix(t.Name, p) {
			return true
		}
	}
	return false
}

// hook stores and prints one record kind. store fills data, which holds
// [MaxDataSize] bytes, and returns the payload length, or -1 when the
// arguments cannot be recorded.
type hook struct {
	store   func(h Header, arg0, arg1 any, data []byte) int
	print   func(w io.Writer, h Header, data []byte) error
	noTrace func(l *Log, h Header, arg0, arg1 any) bool
}

var hooks = [numTypes]hook{
	TypeString: {store: stringStore, print: stringPrint},
	TypeKernel: {store: kernelStore, print: kernelPrint, noTrace: kernelNoTrace},
	TypeBinary: {store: binaryStore, print: binaryPrint},
}

func stringStore(_ Header, arg0, _ any, data []byte) int {
	switch s := arg0.(type) {
	case string:
		return copy(data, s)
	case []byte:
		return copy(data, s)
	case fmt.Stringer:
		return copy(data, s.String())
	}
	return 0
}

func stringPrint(w io.Writer, _ Header, data []byte) error {
	_, err := fmt.Fprintf(w, "%s\n", data)
	return err
}

// binaryStore copies arg0, a byte slice, truncated to the length in arg1
// when one is given.
func binaryStore(_ Header, arg0, arg1 any, data []byte) int {
	p, _ := arg0.([]byte)
	if n, ok := toUint64(arg1); ok && n < uint64(len(p)) {
		p = p[:n]
	}
	return copy(data, p)
}

func binaryPrint(w io.Writer, h Header, _ []byte) error {
	_, err := fmt.Fprintf(w, "Binary data size: %d bytes\n", h.Len)
	return err
}

func kernelNoTrace(l *Log, h Header, _, arg1 any) bool {
	ev := KernelEvent(h.Type.Subtype())
	if ev >= numKernelEvents {
		return false
	}
	if ev == ContextSwitch {
		if next, _ := arg1.(*Thread); noTraceThread(next) {
			return true
		}
	}
	return l.opts.CurrentThread != nil && noTraceThread(l.opts.CurrentThread())
}

func putComm(p []byte, name string) {
	// Keep room for the terminating NUL.
	copy(p[:CommSize-1], name)
}

func comm(p []byte) []byte {
	if i := bytes.IndexByte(p[:CommSize], 0); i >= 0 {
		return p[:i]
	}
	return p[:CommSize]
}

func kernelStore(h Header, arg0, arg1 any, data []byte) int {
	le := binary.LittleEndian
	switch KernelEvent(h.Type.Subtype()) {
	case ContextSwitch:
		prev, _ := arg0.(*Thread)
		next, _ := arg1.(*Thread)
		if prev == nil || next == nil {
			return -1
		}
		putComm(data[0:], prev.Name)
		putComm(data[CommSize:], next.Name)
		le.PutUint32(data[2*CommSize:], prev.ID)
		le.PutUint32(data[2*CommSize+4:], next.ID)
		le.PutUint32(data[2*CommSize+8:], uint32(prev.Priority))
		le.PutUint32(data[2*CommSize+12:], uint32(next.Priority))
		return switchSize
	case Preempt:
		t, _ := arg0.(*Thread)
		if t == nil {
			return -1
		}
		putComm(data, t.Name)
		le.PutUint32(data[CommSize:], t.ID)
		le.PutUint32(data[CommSize+4:], uint32(t.Priority))
		return preemptSize
	case TimerCall:
		cb, _ := toUint64(arg0)
		arg, _ := toUint64(arg1)
		le.PutUint64(data[0:], cb)
		le.PutUint64(data[8:], arg)
		return timerCallSize
	case IRQEnter, IRQExit:
		v, _ := toUint64(arg0)
		data[0] = uint8(v)
		return irqSize
	}
	return 0
}

func kernelPrint(w io.Writer, h Header, data []byte) error {
	le := binary.LittleEndian
	var err error
	switch ev := KernelEvent(h.Type.Subtype()); ev {
	case ContextSwitch:
		if len(data) < switchSize {
			return errShort(ev, len(data))
		}
		_, err = fmt.Fprintf(w, "Context switch from \"%s\" [TID: %d, prio: %d] to \"%s\" [TID: %d, prio: %d]\n",
			comm(data[0:]), le.Uint32(data[2*CommSize:]), int32(le.Uint32(data[2*CommSize+8:])),
			comm(data[CommSize:]), le.Uint32(data[2*CommSize+4:]), int32(le.Uint32(data[2*CommSize+12:])))
	case Preempt:
		if len(data) < preemptSize {
			return errShort(ev, len(data))
		}
		_, err = fmt.Fprintf(w, "Thread \"%s\" [TID: %d, prio: %d] preempted\n",
			comm(data), le.Uint32(data[CommSize:]), int32(le.Uint32(data[CommSize+4:])))
	case TimerTick:
		_, err = fmt.Fprintln(w, "Timer tick")
	case TimerCall:
		if len(data) < timerCallSize {
			return errShort(ev, len(data))
		}
		_, err = fmt.Fprintf(w, "Timer call callback: %#x arg: %#x\n", le.Uint64(data[0:]), le.Uint64(data[8:]))
	case IRQEnter, IRQExit:
		if len(data) < irqSize {
			return errShort(ev, len(data))
		}
		dir := "Enter"
		if ev == IRQExit {
			dir = "Exit"
		}
		_, err = fmt.Fprintf(w, "%s handler IRQ #%d\n", dir, data[0])
	}
	return err
}

func errShort(ev KernelEvent, n int) error {
	return fmt.Errorf("trace: %s payload of %d bytes: %w", ev, n, pkg.ErrNotValid)
}

func toUint64(v any) (uint64, bool) {
	switch x := v.(type) {
	case uint64:
		return x, true
	case uintptr:
		return uint64(x), true
	case uint:
		return uint64(x), true
	case uint32:
		return uint64(x), true
	case uint8:
		return uint64(x), true
	case int:
		return uint64(x), x >= 0
	case int64:
		return uint64(x), x >= 0
	}
	return 0, false
}

// Print writes the human-readable form of one record: a bracketed prefix
// with timestamp, CPU, type and subtype, then the kind-specific text.
// Records of unknown kind print the prefix only.
func Print(w io.Writer, h Header, data []byte) error {
	if _, err := fmt.Fprintf(w, "[ %d.%d | type: %d | subtype: %d ]: ",
		h.Timestamp, h.CPU, h.Type.Kind(), h.Type.Subtype()); err != nil {
		return err
	}
	if k := h.Type.Kind(); k < numTypes {
		return hooks[k].print(w, h, data)
	}
	_, err := fmt.Fprintln(w)
	return err
}
