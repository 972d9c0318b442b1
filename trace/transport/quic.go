package transport

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net"
	"sync"
	"time"

	"github.com/quic-go/quic-go"
	"golang.org/x/sync/errgroup"

	"github.com/ardnew/devcore/pkg"
)

// ALPN is the application protocol negotiated by trace streams.
const ALPN = "devcore-trace"

// How long Close waits for the receiver to acknowledge the end of stream.
const closeTimeout = 2 * time.Second

var quicConfig = &quic.Config{
	KeepAlivePeriod: 10 * time.Second,
	MaxIdleTimeout:  30 * time.Second,
}

// GenerateSelfSignedTLS returns an in-memory server configuration with a
// self-signed certificate for hosts.
func GenerateSelfSignedTLS(hosts []string, validFor time.Duration) (*tls.Config, error) {
	if validFor <= 0 {
		validFor = 24 * time.Hour
	}
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(validFor),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	for _, h := range hosts {
		if ip := net.ParseIP(h); ip != nil {
			tmpl.IPAddresses = append(tmpl.IPAddresses, ip)
		} else {
			tmpl.DNSNames = append(tmpl.DNSNames, h)
		}
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		return nil, err
	}
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	pair, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		Certificates: []tls.Certificate{pair},
		MinVersion:   tls.VersionTLS13,
		NextProtos:   []string{ALPN},
	}, nil
}

// InsecureClientTLS returns a client configuration that accepts any server
// certificate. It is meant for lab setups using [GenerateSelfSignedTLS].
func InsecureClientTLS() *tls.Config {
	return &tls.Config{
		InsecureSkipVerify: true,
		MinVersion:         tls.VersionTLS13,
		NextProtos:         []string{ALPN},
	}
}

// QUICSink sends a framed trace stream over one QUIC stream.
type QUICSink struct {
	*Writer
	conn   *quic.Conn
	stream *quic.Stream
}

// DialQUIC connects to a [Receiver] at addr.
func DialQUIC(ctx context.Context, addr string, tlsConf *tls.Config) (*QUICSink, error) {
	conn, err := quic.DialAddr(ctx, addr, tlsConf, quicConfig)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		conn.CloseWithError(0, "")
		return nil, fmt.Errorf("open stream to %s: %w", addr, err)
	}
	pkg.LogInfo(pkg.ComponentTransport, "quic sink connected", "addr", conn.RemoteAddr().String())
	return &QUICSink{Writer: NewWriter(stream), conn: conn, stream: stream}, nil
}

// Close ends the stream and waits briefly for the receiver to drain it
// before closing the connection.
func (s *QUICSink) Close() error {
	s.mu.Lock()
	err := s.stream.Close()
	s.mu.Unlock()

	select {
	case <-s.conn.Context().Done():
	case <-time.After(closeTimeout):
	}
	return errors.Join(err, s.conn.CloseWithError(0, ""))
}

// Handler consumes one data message. p is only valid during the call.
type Handler func(remote net.Addr, channel uint32, p []byte) error

// Receiver accepts trace streams over QUIC.
type Receiver struct {
	ln *quic.Listener
}

// Listen starts a receiver on addr.
func Listen(addr string, tlsConf *tls.Config) (*Receiver, error) {
	ln, err := quic.ListenAddr(addr, tlsConf, quicConfig)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	pkg.LogInfo(pkg.ComponentTransport, "quic receiver listening", "addr", ln.Addr().String())
	return &Receiver{ln: ln}, nil
}

// Addr returns the local address of the receiver.
func (r *Receiver) Addr() net.Addr { return r.ln.Addr() }

// Close stops accepting connections.
func (r *Receiver) Close() error { return r.ln.Close() }

// Serve accepts connections until ctx is done or the receiver is closed
// and hands every data message to h. Calls to h are serialized. A stream
// failing to decode, or h returning an error, closes that connection only.
func (r *Receiver) Serve(ctx context.Context, h Handler) error {
	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	serialized := func(remote net.Addr, channel uint32, p []byte) error {
		mu.Lock()
		defer mu.Unlock()
		return h(remote, channel, p)
	}

	var err error
	for {
		var conn *quic.Conn
		conn, err = r.ln.Accept(ctx)
		if err != nil {
			break
		}
		g.Go(func() error {
			if err := serveConn(ctx, conn, serialized); err != nil {
				pkg.LogWarn(pkg.ComponentTransport, "trace stream failed",
					"remote", conn.RemoteAddr().String(), "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
	if ctx.Err() != nil || errors.Is(err, quic.ErrServerClosed) {
		return nil
	}
	return err
}

func serveConn(ctx context.Context, conn *quic.Conn, h Handler) error {
	defer conn.CloseWithError(0, "")
	stop := context.AfterFunc(ctx, func() { conn.CloseWithError(0, "shutdown") })
	defer stop()

	stream, err := conn.AcceptStream(ctx)
	if err != nil {
		return err
	}
	remote := conn.RemoteAddr()
	pkg.LogDebug(pkg.ComponentTransport, "trace stream accepted", "remote", remote.String())

	rd := NewReader(stream)
	for {
		channel, p, err := rd.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := h(remote, channel, p); err != nil {
			return err
		}
	}
}
