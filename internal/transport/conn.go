// Package transport opens the byte stream a session rides on: plain TCP or
// TLS, plus the telnet IAC framing layer every TN5250E record travels
// inside. It deliberately knows nothing about 5250 records or opcodes —
// that is the stream and vt packages' job.
package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"time"
)

// SSLType selects how Dial secures the connection.
type SSLType int

const (
	SSLNone SSLType = iota
	SSLImplicit
	SSLStartTLS // kept for parity with session config's ssl_type enum; Dial gives it the same immediate TLS handshake as SSLImplicit
)

// DialConfig carries the subset of session configuration that the
// transport layer needs.
type DialConfig struct {
	Host             string
	Port             int
	SSL              SSLType
	TLSConfig        *tls.Config // optional; a sane default is used when nil
	ConnectTimeoutMs int
}

func (c DialConfig) timeout() time.Duration {
	if c.ConnectTimeoutMs <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.ConnectTimeoutMs) * time.Millisecond
}

// Conn is an opaque, encryption-aware byte stream. It is the foundation
// FramedConn builds telnet IAC handling on top of.
type Conn struct {
	net.Conn
	encrypted bool
}

// IsEncrypted reports whether this connection is carried over TLS.
func (c *Conn) IsEncrypted() bool { return c.encrypted }

// Dial opens a TCP or TLS connection per cfg, honoring ctx cancellation and
// the configured connect timeout. Failure modes: ConnectTimeoutError,
// ConnectionResetError, TLSHandshakeFailedError.
func Dial(ctx context.Context, cfg DialConfig) (*Conn, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	dialCtx, cancel := context.WithTimeout(ctx, cfg.timeout())
	defer cancel()

	dialer := net.Dialer{}
	raw, err := dialer.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		if dialCtx.Err() == context.DeadlineExceeded {
			return nil, &ConnectTimeoutError{Host: cfg.Host, Port: cfg.Port}
		}
		return nil, &ConnectionResetError{Err: err}
	}

	if cfg.SSL == SSLNone {
		log.Printf("INFO: transport: connected to %s (plaintext)", addr)
		return &Conn{Conn: raw}, nil
	}

	tlsCfg := cfg.TLSConfig
	if tlsCfg == nil {
		tlsCfg = &tls.Config{ServerName: cfg.Host}
	}
	tlsConn := tls.Client(raw, tlsCfg)
	if err := tlsConn.HandshakeContext(dialCtx); err != nil {
		raw.Close()
		return nil, &TLSHandshakeFailedError{Err: err}
	}
	log.Printf("INFO: transport: connected to %s (TLS)", addr)
	return &Conn{Conn: tlsConn, encrypted: true}, nil
}

// EOFError normalizes io.EOF and the common "closed network connection"
// shapes into one sentinel callers can errors.Is against.
var EOFError = errors.New("transport: connection closed")

// NormalizeReadErr maps a net.Conn read error onto EOFError when it
// represents an orderly close, leaving other errors (timeouts, resets)
// untouched for the caller to classify.
func NormalizeReadErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return EOFError
	}
	return err
}
