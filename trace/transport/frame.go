package transport

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/Masterminds/semver/v3"

	"github.com/ardnew/devcore/pkg"
)

// FormatVersion is the version of the record stream written by [Writer].
const FormatVersion = "1.0.0"

// FormatConstraint selects the stream versions a [Reader] accepts.
const FormatConstraint = "^1.0"

// Message types.
const (
	msgPreamble = 0x01 // stream format version, once per writer
	msgData     = 0x02 // one flushed ring
)

// Header size for messages.
const headerSize = 9 // type (1) + channel (4) + length (4)

// MaxMessageSize bounds the payload of one message.
const MaxMessageSize = 1 << 24

// Writer frames trace flushes onto a byte stream. The first message is a
// preamble carrying [FormatVersion]. A Writer is a trace.Sink and is safe
// for concurrent use.
type Writer struct {
	mu      sync.Mutex
	w       io.Writer
	started bool
	hdr     [headerSize]byte
}

// NewWriter returns a writer framing onto w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteBuf writes p as one data message on channel.
func (w *Writer) WriteBuf(channel uint32, p []byte) error {
	if len(p) > MaxMessageSize {
		return fmt.Errorf("transport: message of %d bytes: %w", len(p), pkg.ErrInvalidArgs)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		if err := w.writeMessage(msgPreamble, 0, []byte(FormatVersion)); err != nil {
			return err
		}
		w.started = true
	}
	return w.writeMessage(msgData, channel, p)
}

// writeMessage sends [type, channel, length, data...].
func (w *Writer) writeMessage(typ byte, channel uint32, p []byte) error {
	w.hdr[0] = typ
	binary.LittleEndian.PutUint32(w.hdr[1:5], channel)
	binary.LittleEndian.PutUint32(w.hdr[5:9], uint32(len(p)))
	if err := writeFull(w.w, w.hdr[:]); err != nil {
		return err
	}
	return writeFull(w.w, p)
}

func writeFull(w io.Writer, p []byte) error {
	for written := 0; written < len(p); {
		n, err := w.Write(p[written:])
		written += n
		if err != nil {
			return err
		}
	}
	return nil
}

// Reader decodes a stream produced by [Writer]. Every preamble is checked
// against [FormatConstraint].
type Reader struct {
	r          io.Reader
	constraint *semver.Constraints
	version    *semver.Version
	hdr        [headerSize]byte
	buf        []byte
}

// NewReader returns a reader decoding r.
func NewReader(r io.Reader) *Reader {
	c, err := semver.NewConstraint(FormatConstraint)
	if err != nil {
		panic(err)
	}
	return &Reader{r: r, constraint: c}
}

// Version returns the stream format version from the last preamble, or nil
// before the first one.
func (r *Reader) Version() *semver.Version { return r.version }

// Next returns the next data message. p is valid until the following call.
// A clean end of stream between messages returns io.EOF. A stream without
// a leading preamble or with an unknown message type fails with
// [pkg.ErrNotValid]; an incompatible preamble fails with
// [pkg.ErrNotSupported].
func (r *Reader) Next() (channel uint32, p []byte, err error) {
	for {
		if _, err := io.ReadFull(r.r, r.hdr[:]); err != nil {
			return 0, nil, err
		}
		typ := r.hdr[0]
		channel = binary.LittleEndian.Uint32(r.hdr[1:5])
		length := binary.LittleEndian.Uint32(r.hdr[5:9])
		if length > MaxMessageSize {
			return 0, nil, fmt.Errorf("transport: message of %d bytes: %w", length, pkg.ErrNotValid)
		}
		if cap(r.buf) < int(length) {
			r.buf = make([]byte, length)
		}
		p = r.buf[:length]
		if _, err := io.ReadFull(r.r, p); err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return 0, nil, err
		}

		switch typ {
		case msgPreamble:
			if err := r.checkVersion(string(p)); err != nil {
				return 0, nil, err
			}
		case msgData:
			if r.version == nil {
				return 0, nil, fmt.Errorf("transport: data before preamble: %w", pkg.ErrNotValid)
			}
			return channel, p, nil
		default:
			return 0, nil, fmt.Errorf("transport: message type %#02x: %w", typ, pkg.ErrNotValid)
		}
	}
}

func (r *Reader) checkVersion(s string) error {
	v, err := semver.NewVersion(s)
	if err != nil {
		return fmt.Errorf("transport: format version %q: %w", s, pkg.ErrNotValid)
	}
	if !r.constraint.Check(v) {
		return fmt.Errorf("transport: format version %s, want %s: %w", v, FormatConstraint, pkg.ErrNotSupported)
	}
	r.version = v
	pkg.LogDebug(pkg.ComponentTransport, "stream preamble", "version", v.String())
	return nil
}
