package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	logs "github.com/danmuck/igtlctl/internal/logging"
	"github.com/danmuck/igtlctl/internal/protocol/session"
)

// TCP is a Transport over a single TCP connection. One goroutine may send
// while another receives.
type TCP struct {
	cfg session.Config

	mu   sync.Mutex
	conn net.Conn
	buf  []byte
}

func NewTCP(cfg session.Config) *TCP {
	return &TCP{cfg: cfg.WithDefaults()}
}

func (t *TCP) Connect(ctx context.Context, host string, port int) error {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn != nil {
		return ErrAlreadyActive
	}

	dialer := net.Dialer{Timeout: t.cfg.ConnectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		cerr := ClassifyConnect(addr, err)
		logs.Warnf("transport.TCP.Connect addr=%q kind=%s err=%v", addr, cerr.Kind, err)
		return cerr
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}
	t.conn = conn
	t.buf = make([]byte, t.cfg.ReceiveChunk)
	logs.Infof("transport.TCP.Connect addr=%q local=%q", addr, conn.LocalAddr())
	return nil
}

func (t *TCP) current() net.Conn {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn
}

// Send writes all of b or fails.
func (t *TCP) Send(ctx context.Context, b []byte) error {
	conn := t.current()
	if conn == nil {
		return ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	deadline := time.Now().Add(t.cfg.WriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetWriteDeadline(deadline)
	for len(b) > 0 {
		n, err := conn.Write(b)
		if err != nil {
			return &Error{Op: "write", Err: err}
		}
		b = b[n:]
	}
	return nil
}

// Receive reads up to max bytes, waiting at most ReadPoll. A poll that sees no
// data returns an empty slice and a nil error.
func (t *TCP) Receive(ctx context.Context, max int) ([]byte, error) {
	conn := t.current()
	if conn == nil {
		return nil, ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if max <= 0 || max > len(t.buf) {
		max = len(t.buf)
	}
	_ = conn.SetReadDeadline(time.Now().Add(t.cfg.ReadPoll))
	n, err := conn.Read(t.buf[:max])
	if n > 0 {
		out := make([]byte, n)
		copy(out, t.buf[:n])
		return out, nil
	}
	switch {
	case err == nil:
		return nil, nil
	case errors.Is(err, os.ErrDeadlineExceeded):
		return nil, nil
	case errors.Is(err, io.EOF):
		return nil, &Error{Op: "read", Err: io.ErrUnexpectedEOF}
	default:
		return nil, &Error{Op: "read", Err: err}
	}
}

// Disconnect closes the connection. It is safe to call more than once.
func (t *TCP) Disconnect() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	logs.Infof("transport.TCP.Disconnect err=%v", err)
	return err
}
