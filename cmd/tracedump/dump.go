package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/ardnew/devcore/trace"
	"github.com/ardnew/devcore/trace/transport"
)

// printer writes decoded records, optionally prefixed with their source.
type printer struct {
	w       io.Writer
	channel int64 // -1 prints every channel
	records int
}

// message decodes one flushed ring.
func (p *printer) message(source string, channel uint32, data []byte) error {
	if p.channel >= 0 && int64(channel) != p.channel {
		return nil
	}
	n, err := trace.Decode(data, func(h trace.Header, payload []byte) error {
		if source != "" {
			if _, err := fmt.Fprintf(p.w, "%s ch%d ", source, channel); err != nil {
				return err
			}
		}
		p.records++
		return trace.Print(p.w, h, payload)
	})
	if err != nil {
		return err
	}
	if n != len(data) {
		return fmt.Errorf("channel %d: %d trailing bytes", channel, len(data)-n)
	}
	return nil
}

// dump prints every record of the stream r until it ends.
func (p *printer) dump(r io.Reader) error {
	rd := transport.NewReader(r)
	for {
		channel, data, err := rd.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := p.message("", channel, data); err != nil {
			return err
		}
	}
}
