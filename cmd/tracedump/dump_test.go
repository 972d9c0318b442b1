package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ardnew/devcore/trace"
	"github.com/ardnew/devcore/trace/transport"
)

// syncBuffer is a bytes.Buffer safe for one writer and one poller.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newLog(t *testing.T, sink trace.Sink, channel uint32) *trace.Log {
	t.Helper()
	var now uint64
	l, err := trace.New(trace.Options{
		CPUs:     1,
		RingSize: 1 << 12,
		Sink:     sink,
		Channel:  channel,
		Clock:    func() uint64 { now++; return now },
	})
	if err != nil {
		t.Fatalf("trace.New() error = %v", err)
	}
	return l
}

func TestPrinter_Dump(t *testing.T) {
	var stream bytes.Buffer
	w := transport.NewWriter(&stream)

	l := newLog(t, w, 1)
	l.Print("boot")
	l.IRQEnter(30)
	if err := l.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	l2 := newLog(t, w, 2)
	l2.TimerTick()
	if err := l2.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	tests := []struct {
		name    string
		channel int64
		want    string
	}{
		{
			name:    "all channels",
			channel: -1,
			want: "[ 1.0 | type: 0 | subtype: 0 ]: boot\n" +
				"[ 2.0 | type: 1 | subtype: 4 ]: Enter handler IRQ #30\n" +
				"[ 1.0 | type: 1 | subtype: 2 ]: Timer tick\n",
		},
		{
			name:    "one channel",
			channel: 2,
			want:    "[ 1.0 | type: 1 | subtype: 2 ]: Timer tick\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			p := &printer{w: &out, channel: tt.channel}
			if err := p.dump(bytes.NewReader(stream.Bytes())); err != nil {
				t.Fatalf("dump() error = %v", err)
			}
			if out.String() != tt.want {
				t.Errorf("dump() output =\n%s\nwant\n%s", out.String(), tt.want)
			}
		})
	}
}

func TestPrinter_Source(t *testing.T) {
	var out bytes.Buffer
	p := &printer{w: &out, channel: -1}

	rec := make([]byte, trace.HeaderSize+1)
	trace.Header{Magic: trace.Magic, Timestamp: 9, Type: trace.IRQExit.Type(), CPU: 3, Len: 1}.Put(rec)
	rec[trace.HeaderSize] = 42

	if err := p.message("10.0.0.2:4433", 5, rec); err != nil {
		t.Fatalf("message() error = %v", err)
	}
	want := "10.0.0.2:4433 ch5 [ 9.3 | type: 1 | subtype: 5 ]: Exit handler IRQ #42\n"
	if out.String() != want {
		t.Errorf("message() output = %q, want %q", out.String(), want)
	}

	if err := p.message("", 5, rec[:trace.HeaderSize]); err == nil {
		t.Error("message() with a truncated record: error = nil, want trailing bytes error")
	}
	if err := p.message("", 5, make([]byte, trace.HeaderSize)); !errors.Is(err, trace.ErrBadMagic) {
		t.Errorf("message() with zeroed header: error = %v, want %v", err, trace.ErrBadMagic)
	}
}

func TestFollow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.bin")
	sink, err := transport.CreateFile(path)
	if err != nil {
		t.Fatalf("CreateFile() error = %v", err)
	}
	defer sink.Close()
	l := newLog(t, sink, 0)
	l.Print("first")
	if err := l.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	f, err := follow(ctx, path)
	if err != nil {
		t.Fatalf("follow() error = %v", err)
	}
	defer f.Close()

	out := &syncBuffer{}
	p := &printer{w: out, channel: -1}
	done := make(chan error, 1)
	go func() { done <- p.dump(f) }()

	waitFor := func(s string) {
		t.Helper()
		for !strings.Contains(out.String(), s) {
			select {
			case <-ctx.Done():
				t.Fatalf("output %q never contained %q", out.String(), s)
			case <-time.After(10 * time.Millisecond):
			}
		}
	}
	waitFor("first")

	l.Print("second")
	if err := l.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	waitFor("second")

	cancel()
	if err := <-done; err != nil {
		t.Errorf("dump() error = %v", err)
	}
}
