// Command tracedump prints trace streams written by devcore.
//
// It reads a stream file, or a named pipe, to its end. With -follow it
// keeps reading as the file grows. With -listen it instead accepts
// streams from devcore -quic and prints records as they arrive, prefixed
// with the sender's address.
//
// Usage:
//
//	tracedump [options] trace.bin
//	tracedump [options] -listen :4433
//
// Options:
//
//	-v               Enable verbose (debug) logging
//	-json            Use JSON log format
//	-follow          Keep reading as the file grows
//	-listen addr     Accept QUIC streams on addr
//	-host name       Certificate host name for -listen (default: localhost)
//	-channel n       Print only channel n (default: all)
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardnew/devcore/pkg"
	"github.com/ardnew/devcore/trace/transport"
)

// component identifies this executable for structured logging.
const component = pkg.ComponentCmd

func main() {
	verbose := flag.Bool("v", false, "enable verbose (debug) logging")
	jsonLog := flag.Bool("json", false, "use JSON log format")
	followFile := flag.Bool("follow", false, "keep reading as the file grows")
	listen := flag.String("listen", "", "accept QUIC trace streams on `addr`")
	host := flag.String("host", "localhost", "certificate host name for -listen")
	channel := flag.Int64("channel", -1, "print only channel `n`")
	flag.Parse()

	if *verbose {
		pkg.SetLogLevel(slog.LevelDebug)
	}
	if *jsonLog {
		pkg.SetLogFormat(pkg.LogFormatJSON)
	}

	if *listen == "" && flag.NArg() < 1 {
		pkg.LogError(component, "missing stream argument",
			"usage", "tracedump [options] <trace.bin> | -listen <addr>")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	out := bufio.NewWriter(os.Stdout)
	p := &printer{w: out, channel: *channel}

	var err error
	if *listen != "" {
		err = serve(ctx, *listen, *host, p, out)
	} else {
		err = dumpFile(ctx, flag.Arg(0), *followFile, p)
	}
	if ferr := out.Flush(); err == nil {
		err = ferr
	}
	pkg.LogDebug(component, "done", "records", p.records)
	if err != nil {
		pkg.LogError(component, "dump failed", "error", err)
		os.Exit(1)
	}
}

func dumpFile(ctx context.Context, path string, tail bool, p *printer) error {
	var r io.ReadCloser
	if tail {
		f, err := follow(ctx, path)
		if err != nil {
			return err
		}
		r = f
	} else {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		r = f
	}
	defer r.Close()

	err := p.dump(r)
	if errors.Is(err, io.ErrUnexpectedEOF) && ctx.Err() != nil {
		// Stopped while a message was in flight.
		return nil
	}
	return err
}

func serve(ctx context.Context, addr, host string, p *printer, out *bufio.Writer) error {
	tlsConf, err := transport.GenerateSelfSignedTLS([]string{host}, 24*time.Hour)
	if err != nil {
		return err
	}
	rcv, err := transport.Listen(addr, tlsConf)
	if err != nil {
		return err
	}
	defer rcv.Close()

	return rcv.Serve(ctx, func(remote net.Addr, channel uint32, data []byte) error {
		if err := p.message(remote.String(), channel, data); err != nil {
			return err
		}
		return out.Flush()
	})
}
