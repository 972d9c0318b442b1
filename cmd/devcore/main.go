// Command devcore boots a simulated multi-core machine from a flattened
// device tree and traces its interrupt and scheduling activity.
//
// The tree must describe an "arm,gic-v3" interrupt controller. Every CPU
// takes a timer interrupt each period; the handler records timer ticks,
// preemptions and context switches into the per-CPU trace log, which is
// flushed to the selected transport.
//
// Usage:
//
//	devcore [options] board.dtb
//
// Options:
//
//	-v                  Enable verbose (debug) logging
//	-json               Use JSON log format
//	-cpus n             Number of simulated CPUs (default: 4)
//	-cluster n          CPUs per cluster (default: 2)
//	-ring bytes         Per-CPU trace ring size (default: 65536)
//	-period duration    Timer period (default: 10ms)
//	-slice n            Ticks per time slice (default: 4)
//	-duration duration  Stop after this long, 0 runs until interrupted
//	-out path           Write the trace stream to a file
//	-fifo path          Write the trace stream to a named pipe
//	-quic addr          Send the trace stream to a QUIC receiver
//	-mem path           Map registers from a physical memory device
//	-list               Print the buffered trace on exit
//	-cpuprofile path    Write a CPU profile (needs the "profile" tag)
//	-heapprofile path   Write a heap profile on exit
//	-pprof addr         Serve pprof handlers on addr
package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardnew/devcore/fdt"
	"github.com/ardnew/devcore/irq/gic"
	"github.com/ardnew/devcore/pkg"
	"github.com/ardnew/devcore/pkg/prof"
	"github.com/ardnew/devcore/trace"
	"github.com/ardnew/devcore/trace/transport"
)

// component identifies this executable for structured logging.
const component = pkg.ComponentCmd

type options struct {
	cpus, cluster uint
	ring          int
	period        time.Duration
	slice         int
	duration      time.Duration
	out, fifo     string
	quic          string
	mem           string
	list          bool
}

func main() {
	verbose := flag.Bool("v", false, "enable verbose (debug) logging")
	jsonLog := flag.Bool("json", false, "use JSON log format")
	cpuProfile := flag.String("cpuprofile", "", "write a CPU profile to `path`")
	heapProfile := flag.String("heapprofile", "", "write a heap profile to `path` on exit")
	pprofAddr := flag.String("pprof", "", "serve pprof handlers on `addr`")

	var opts options
	flag.UintVar(&opts.cpus, "cpus", 4, "number of simulated CPUs")
	flag.UintVar(&opts.cluster, "cluster", 2, "CPUs per cluster")
	flag.IntVar(&opts.ring, "ring", trace.DefaultRingSize, "per-CPU trace ring size in bytes")
	flag.DurationVar(&opts.period, "period", 10*time.Millisecond, "timer period")
	flag.IntVar(&opts.slice, "slice", 4, "timer ticks per time slice")
	flag.DurationVar(&opts.duration, "duration", 0, "stop after this long (0 runs until interrupted)")
	flag.StringVar(&opts.out, "out", "", "write the trace stream to `path`")
	flag.StringVar(&opts.fifo, "fifo", "", "write the trace stream to the named pipe at `path`")
	flag.StringVar(&opts.quic, "quic", "", "send the trace stream to the QUIC receiver at `addr`")
	flag.StringVar(&opts.mem, "mem", "", "map registers from the physical memory device at `path`")
	flag.BoolVar(&opts.list, "list", false, "print the buffered trace on exit")
	flag.Parse()

	if flag.NArg() < 1 {
		pkg.LogError(component, "missing device tree argument",
			"usage", "devcore [options] <board.dtb>")
		os.Exit(1)
	}

	if *verbose {
		pkg.SetLogLevel(slog.LevelDebug)
	}
	if *jsonLog {
		pkg.SetLogFormat(pkg.LogFormatJSON)
	}

	stop, err := prof.Start(prof.Options{CPUProfile: *cpuProfile, HeapProfile: *heapProfile})
	if err != nil {
		pkg.LogError(component, "failed to start profiling", "error", err)
		os.Exit(1)
	}
	if *pprofAddr != "" {
		go func() {
			if err := prof.Serve(*pprofAddr); err != nil {
				pkg.LogWarn(component, "pprof server stopped", "error", err)
			}
		}()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	if opts.duration > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, opts.duration)
		defer cancelTimeout()
	}

	err = run(ctx, flag.Arg(0), opts)
	cancel()
	if perr := stop(); perr != nil {
		pkg.LogWarn(component, "failed to write profile", "error", perr)
	}
	if err != nil {
		pkg.LogError(component, "run failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, dtb string, opts options) error {
	f, err := os.Open(dtb)
	if err != nil {
		return err
	}
	tree, err := fdt.Read(f)
	f.Close()
	if err != nil {
		return err
	}

	var mapper gic.Mapper
	if opts.mem != "" {
		if mapper, err = physMapper(opts.mem); err != nil {
			return err
		}
	}
	p, err := boot(ctx, tree, opts.cpus, opts.cluster, mapper)
	if err != nil {
		return err
	}

	sink, closeSink, err := openSink(ctx, opts)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeSink(); err != nil {
			pkg.LogWarn(component, "failed to close trace sink", "error", err)
		}
	}()

	log, err := trace.New(trace.Options{
		RingSize: opts.ring,
		CPU:      p.cpu,
		Sink:     sink,
	})
	if err != nil {
		return err
	}
	p.mgr.SetTracer(log)
	defer p.mgr.SetTracer(nil)

	sched := newScheduler(log, opts.cpus, opts.slice)
	if err := p.attach(sched); err != nil {
		return err
	}
	log.Printf("devcore: %d cpus, timer every %s", opts.cpus, opts.period)
	pkg.LogInfo(component, "machine running", "cpus", opts.cpus, "period", opts.period)

	flushed := make(chan error, 1)
	if sink != nil {
		go func() { flushed <- log.Run(ctx) }()
	} else {
		close(flushed)
	}

	t := time.NewTicker(opts.period)
	defer t.Stop()
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-t.C:
			p.step()
		}
	}

	err = <-flushed
	pkg.LogInfo(component, "machine stopped",
		"ticks", sched.ticks, "dropped", log.Dropped(), "overwritten", log.Overwritten())
	if opts.list {
		if lerr := log.List(os.Stdout); lerr != nil {
			err = errors.Join(err, lerr)
		}
	}
	return err
}

// openSink opens at most one transport. A nil sink keeps the trace in the
// rings only.
func openSink(ctx context.Context, opts options) (trace.Sink, func() error, error) {
	nop := func() error { return nil }
	var (
		s   io.Closer
		err error
	)
	switch {
	case opts.out != "":
		s, err = transport.CreateFile(opts.out)
	case opts.fifo != "":
		s, err = transport.CreateFIFO(opts.fifo)
	case opts.quic != "":
		s, err = transport.DialQUIC(ctx, opts.quic, transport.InsecureClientTLS())
	default:
		return nil, nop, nil
	}
	if err != nil {
		return nil, nop, err
	}
	return s.(trace.Sink), s.Close, nil
}
