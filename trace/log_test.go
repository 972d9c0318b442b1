package trace

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"github.com/ardnew/devcore/hal/sim"
	"github.com/ardnew/devcore/pkg"
	"github.com/ardnew/devcore/trace/tracemock"
)

func mustNew(t *testing.T, opts Options) *Log {
	t.Helper()
	l, err := New(opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return l
}

func fixedClock() uint64 { return 1000 }

// collect decodes everything flushed to it.
type collect struct {
	mu      sync.Mutex
	headers []Header
	data    [][]byte
}

func (c *collect) WriteBuf(_ uint32, p []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := Decode(p, func(h Header, data []byte) error {
		c.headers = append(c.headers, h)
		c.data = append(c.data, bytes.Clone(data))
		return nil
	})
	return err
}

func (c *collect) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.headers)
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"not a power of two", Options{RingSize: 1000}},
		{"too small", Options{RingSize: 256}},
		{"too many cpus", Options{CPUs: MaxCPUs + 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.opts); !errors.Is(err, pkg.ErrInvalidArgs) {
				t.Errorf("New() error = %v, want %v", err, pkg.ErrInvalidArgs)
			}
		})
	}
}

func TestNew_CPUsFromProvider(t *testing.T) {
	l := mustNew(t, Options{CPU: sim.NewCPU(4, 2), RingSize: 512})
	if got := len(l.rings); got != 4 {
		t.Errorf("len(rings) = %d, want 4", got)
	}
}

func TestHeader(t *testing.T) {
	h := Header{Magic: Magic, Timestamp: 0x0102030405060708, Type: IRQExit.Type(), CPU: 3, Len: 17}
	var p [HeaderSize]byte
	h.Put(p[:])
	want := []byte{
		0xef, 0xbe, 0xad, 0xde,
		0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01,
		0x51, 0x03, 0x11, 0x00,
	}
	if !bytes.Equal(p[:], want) {
		t.Errorf("Put() = % x, want % x", p, want)
	}
	got, err := ParseHeader(p[:])
	if err != nil {
		t.Fatalf("ParseHeader() error = %v", err)
	}
	if got != h {
		t.Errorf("ParseHeader() = %+v, want %+v", got, h)
	}
	if got.Type.Kind() != TypeKernel || KernelEvent(got.Type.Subtype()) != IRQExit {
		t.Errorf("Type = %v, want %v", got.Type, IRQExit.Type())
	}
	if _, err := ParseHeader(p[:8]); !errors.Is(err, pkg.ErrInvalidArgs) {
		t.Errorf("ParseHeader(short) error = %v, want %v", err, pkg.ErrInvalidArgs)
	}
}

func TestWrite_OverwriteOldest(t *testing.T) {
	sink := &collect{}
	l := mustNew(t, Options{RingSize: 512, Sink: sink})

	// 511 usable bytes hold 30 interrupt records of 17 bytes.
	for v := uint(0); v < 40; v++ {
		l.IRQEnter(v)
	}
	if got := l.Overwritten(); got != 10 {
		t.Errorf("Overwritten() = %d, want 10", got)
	}
	if err := l.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if len(sink.headers) != 30 {
		t.Fatalf("flushed %d records, want 30", len(sink.headers))
	}
	for i, d := range sink.data {
		if want := byte(10 + i); d[0] != want {
			t.Errorf("record %d vector = %d, want %d", i, d[0], want)
		}
	}
	if got := l.rings[0].buf.SpaceUsed(); got != 0 {
		t.Errorf("SpaceUsed() after Flush = %d, want 0", got)
	}
}

func TestWrite_Reentrant(t *testing.T) {
	l := mustNew(t, Options{RingSize: 512})
	r := l.rings[0]

	s, ok := r.buf.TryLock()
	if !ok {
		t.Fatal("TryLock() = false")
	}
	l.TimerTick()
	r.buf.Unlock(s)

	if got := l.Dropped(); got != 1 {
		t.Errorf("Dropped() = %d, want 1", got)
	}
	if got := r.buf.SpaceUsed(); got != 0 {
		t.Errorf("SpaceUsed() = %d, want 0", got)
	}
}

func TestWrite_NoTrace(t *testing.T) {
	current := &Thread{Name: "worker", ID: 2}
	l := mustNew(t, Options{
		RingSize:      512,
		CurrentThread: func() *Thread { return current },
	})
	r := l.rings[0]

	l.ContextSwitch(current, &Thread{Name: "ivshm-rx", ID: 3})
	if got := r.buf.SpaceUsed(); got != 0 {
		t.Errorf("switch to ivshm-rx stored %d bytes, want 0", got)
	}

	current = &Thread{Name: "tracelog-flush", ID: 4}
	l.TimerTick()
	l.IRQEnter(5)
	if got := r.buf.SpaceUsed(); got != 0 {
		t.Errorf("kernel events from tracelog-flush stored %d bytes, want 0", got)
	}

	// Only kernel events are filtered.
	l.Print("still here")
	if got, want := r.buf.SpaceUsed(), HeaderSize+len("still here"); got != want {
		t.Errorf("SpaceUsed() = %d, want %d", got, want)
	}

	current = &Thread{Name: "binary", ID: 5}
	l.TimerTick()
	if got, want := r.buf.SpaceUsed(), 2*HeaderSize+len("still here"); got != want {
		t.Errorf("SpaceUsed() = %d, want %d", got, want)
	}
}

func TestWrite_Truncate(t *testing.T) {
	sink := &collect{}
	l := mustNew(t, Options{RingSize: 1024, Sink: sink})

	l.Print(strings.Repeat("x", 300))
	l.Binary(make([]byte, 500))
	l.Write(TypeBinary, []byte("abcdef"), 2)
	l.Write(Type(7), "unknown kind", nil)
	l.Preempt(nil)

	if err := l.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	wantLen := []uint16{MaxDataSize, MaxDataSize, 2}
	if len(sink.headers) != len(wantLen) {
		t.Fatalf("flushed %d records, want %d", len(sink.headers), len(wantLen))
	}
	for i, h := range sink.headers {
		if h.Len != wantLen[i] {
			t.Errorf("record %d Len = %d, want %d", i, h.Len, wantLen[i])
		}
		if h.Size() > EntryMaxSize {
			t.Errorf("record %d Size() = %d, exceeds %d", i, h.Size(), EntryMaxSize)
		}
	}
	if got := string(sink.data[2]); got != "ab" {
		t.Errorf("binary payload = %q, want %q", got, "ab")
	}
}

func TestList(t *testing.T) {
	l := mustNew(t, Options{RingSize: 1024, Clock: fixedClock})
	idle := &Thread{Name: "idle", ID: 1}
	worker := &Thread{Name: "worker", ID: 2, Priority: 16}

	l.ContextSwitch(idle, worker)
	l.Preempt(worker)
	l.TimerTick()
	l.TimerCall(0x1000, 0x20)
	l.IRQEnter(33)
	l.IRQExit(33)
	l.Print("hello")
	l.Binary([]byte{1, 2, 3})

	var out strings.Builder
	if err := l.List(&out); err != nil {
		t.Fatalf("List() error = %v", err)
	}
	want := strings.Join([]string{
		`[ 1000.0 | type: 1 | subtype: 0 ]: Context switch from "idle" [TID: 1, prio: 0] to "worker" [TID: 2, prio: 16]`,
		`[ 1000.0 | type: 1 | subtype: 1 ]: Thread "worker" [TID: 2, prio: 16] preempted`,
		`[ 1000.0 | type: 1 | subtype: 2 ]: Timer tick`,
		`[ 1000.0 | type: 1 | subtype: 3 ]: Timer call callback: 0x1000 arg: 0x20`,
		`[ 1000.0 | type: 1 | subtype: 4 ]: Enter handler IRQ #33`,
		`[ 1000.0 | type: 1 | subtype: 5 ]: Exit handler IRQ #33`,
		`[ 1000.0 | type: 0 | subtype: 0 ]: hello`,
		`[ 1000.0 | type: 2 | subtype: 0 ]: Binary data size: 3 bytes`,
	}, "\n") + "\n"
	if got := out.String(); got != want {
		t.Errorf("List() =\n%s\nwant\n%s", got, want)
	}

	// Listing consumes nothing.
	if got := l.rings[0].buf.SpaceUsed(); got == 0 {
		t.Error("SpaceUsed() after List = 0, want records kept")
	}
}

func TestList_LongName(t *testing.T) {
	l := mustNew(t, Options{RingSize: 512, Clock: fixedClock})
	l.Preempt(&Thread{Name: strings.Repeat("n", 40), ID: 9})

	var out strings.Builder
	if err := l.List(&out); err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if want := `"` + strings.Repeat("n", CommSize-1) + `"`; !strings.Contains(out.String(), want) {
		t.Errorf("List() = %q, want name truncated to %d bytes", out.String(), CommSize-1)
	}
}

func TestList_BadMagic(t *testing.T) {
	l := mustNew(t, Options{RingSize: 512})
	l.TimerTick()
	l.rings[0].buf.Write(make([]byte, HeaderSize), false)

	var out strings.Builder
	err := l.List(&out)
	if !errors.Is(err, ErrBadMagic) || !errors.Is(err, pkg.ErrNotValid) {
		t.Errorf("List() error = %v, want %v", err, ErrBadMagic)
	}
	if got := strings.Count(out.String(), "\n"); got != 1 {
		t.Errorf("List() printed %d records before the bad one, want 1", got)
	}
}

func TestFlush_PerCPU(t *testing.T) {
	ctrl := gomock.NewController(t)
	sink := tracemock.NewMockSink(ctrl)
	cpu := sim.NewCPU(2, 0)
	l := mustNew(t, Options{CPU: cpu, RingSize: 512, Sink: sink, Channel: 7})

	cpu.SetCurrent(0)
	l.TimerTick()
	cpu.SetCurrent(1)
	l.IRQEnter(1)
	l.IRQExit(1)

	var got []uint8
	sink.EXPECT().WriteBuf(uint32(7), gomock.Any()).DoAndReturn(func(_ uint32, p []byte) error {
		_, err := Decode(p, func(h Header, _ []byte) error {
			got = append(got, h.CPU)
			return nil
		})
		return err
	}).Times(2)

	if err := l.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	want := []uint8{0, 1, 1}
	if !bytes.Equal(got, want) {
		t.Errorf("flushed cpus = %v, want %v", got, want)
	}
	if cpu.Masked() {
		t.Error("interrupts still masked after Flush")
	}

	// Nothing left: the sink is not called again.
	if err := l.Flush(context.Background()); err != nil {
		t.Errorf("second Flush() error = %v", err)
	}
}

func TestFlush_Errors(t *testing.T) {
	l := mustNew(t, Options{RingSize: 512})
	if err := l.Flush(context.Background()); !errors.Is(err, pkg.ErrNotConfigured) {
		t.Errorf("Flush() without sink error = %v, want %v", err, pkg.ErrNotConfigured)
	}

	errLink := errors.New("link down")
	ctrl := gomock.NewController(t)
	sink := tracemock.NewMockSink(ctrl)
	sink.EXPECT().WriteBuf(gomock.Any(), gomock.Any()).Return(errLink)

	l = mustNew(t, Options{RingSize: 512, Sink: sink})
	l.TimerTick()
	if err := l.Flush(context.Background()); !errors.Is(err, errLink) {
		t.Errorf("Flush() error = %v, want %v", err, errLink)
	}
}

func TestRun(t *testing.T) {
	sink := &collect{}
	l := mustNew(t, Options{RingSize: 512, Sink: sink, FlushInterval: time.Millisecond})

	l.TimerTick()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for sink.len() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if sink.len() == 0 {
		t.Fatal("Run() never flushed")
	}

	l.Print("last")
	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run() error = %v", err)
	}
	// A record racing a periodic flush is dropped, never lost silently.
	if got, want := sink.len(), 2-int(l.Dropped()); got != want {
		t.Errorf("flushed %d records, want %d", got, want)
	}
}

func TestDecode_Partial(t *testing.T) {
	var stream []byte
	sink := SinkFunc(func(_ uint32, p []byte) error {
		stream = append(stream, p...)
		return nil
	})
	l := mustNew(t, Options{RingSize: 512, Sink: sink})
	l.Print("one")
	l.Print("two")
	if err := l.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	cut := len(stream) - 1
	var n int
	got, err := Decode(stream[:cut], func(Header, []byte) error {
		n++
		return nil
	})
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if want := HeaderSize + len("one"); got != want || n != 1 {
		t.Errorf("Decode() = %d after %d records, want %d after 1", got, n, want)
	}
}
