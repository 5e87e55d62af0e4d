// Package transport provides the byte-stream connection a link runs over.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
)

var (
	ErrTimeout       = errors.New("transport: connect timed out")
	ErrRefused       = errors.New("transport: connection refused")
	ErrUnresolvable  = errors.New("transport: host unresolvable")
	ErrTransport     = errors.New("transport: i/o failure")
	ErrNotConnected  = errors.New("transport: not connected")
	ErrAlreadyActive = errors.New("transport: already connected")
)

// Transport is a full-duplex byte stream. Receive may return zero bytes with a
// nil error when no data arrived within its poll window.
type Transport interface {
	Connect(ctx context.Context, host string, port int) error
	Send(ctx context.Context, b []byte) error
	Receive(ctx context.Context, max int) ([]byte, error)
	Disconnect() error
}

// ConnectKind classifies a failed connect attempt.
type ConnectKind int

const (
	ConnectUnknown ConnectKind = iota
	ConnectTimeout
	ConnectRefused
	ConnectUnresolvable
)

func (k ConnectKind) String() string {
	switch k {
	case ConnectTimeout:
		return "timeout"
	case ConnectRefused:
		return "refused"
	case ConnectUnresolvable:
		return "unresolvable"
	default:
		return "unknown"
	}
}

func (k ConnectKind) sentinel() error {
	switch k {
	case ConnectTimeout:
		return ErrTimeout
	case ConnectRefused:
		return ErrRefused
	case ConnectUnresolvable:
		return ErrUnresolvable
	default:
		return nil
	}
}

// ConnectError reports why a connect attempt failed. It matches ErrTimeout,
// ErrRefused or ErrUnresolvable through errors.Is according to Kind.
type ConnectError struct {
	Kind ConnectKind
	Addr string
	Err  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("transport: connect %s: %s: %v", e.Addr, e.Kind, e.Err)
}

func (e *ConnectError) Unwrap() []error {
	if s := e.Kind.sentinel(); s != nil {
		return []error{s, e.Err}
	}
	return []error{e.Err}
}

// ClassifyConnect wraps a dial error in a ConnectError.
func ClassifyConnect(addr string, err error) *ConnectError {
	return &ConnectError{Kind: connectKind(err), Addr: addr, Err: err}
}

func connectKind(err error) ConnectKind {
	var dnsErr *net.DNSError
	switch {
	case errors.As(err, &dnsErr):
		if dnsErr.IsTimeout {
			return ConnectTimeout
		}
		return ConnectUnresolvable
	case errors.Is(err, syscall.ECONNREFUSED):
		return ConnectRefused
	case errors.Is(err, context.DeadlineExceeded):
		return ConnectTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ConnectTimeout
	}
	return ConnectUnknown
}

// Error wraps a read or write failure on an established connection.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{ErrTransport, e.Err}
}
