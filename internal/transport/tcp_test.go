package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/danmuck/igtlctl/internal/protocol/session"
	"github.com/danmuck/igtlctl/internal/testutil/testlog"
)

func testConfig() session.Config {
	cfg := session.DefaultConfig()
	cfg.ConnectTimeout = 500 * time.Millisecond
	cfg.ReadPoll = 30 * time.Millisecond
	cfg.WriteTimeout = 500 * time.Millisecond
	cfg.ReceiveChunk = 16
	return cfg
}

func listen(t *testing.T) (net.Listener, int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })
	return ln, ln.Addr().(*net.TCPAddr).Port
}

func TestTCPSendReceive(t *testing.T) {
	testlog.Start(t)
	ln, port := listen(t)
	accepted := make(chan net.Conn, 1)
	go func() {
		c, err := ln.Accept()
		if err == nil {
			accepted <- c
		}
	}()

	tr := NewTCP(testConfig())
	ctx := context.Background()
	if err := tr.Connect(ctx, "127.0.0.1", port); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer tr.Disconnect()
	if err := tr.Connect(ctx, "127.0.0.1", port); !errors.Is(err, ErrAlreadyActive) {
		t.Fatalf("expected ErrAlreadyActive, got %v", err)
	}

	var peer net.Conn
	select {
	case peer = <-accepted:
	case <-time.After(2 * time.Second):
		t.Fatalf("peer never accepted")
	}
	defer peer.Close()

	if err := tr.Send(ctx, []byte("hello")); err != nil {
		t.Fatalf("send: %v", err)
	}
	got := make([]byte, 5)
	_ = peer.SetReadDeadline(time.Now().Add(time.Second))
	if _, err := peer.Read(got); err != nil || string(got) != "hello" {
		t.Fatalf("peer read %q err=%v", got, err)
	}

	// No data yet: empty read without error.
	b, err := tr.Receive(ctx, 0)
	if err != nil || len(b) != 0 {
		t.Fatalf("expected empty poll, got %q err=%v", b, err)
	}

	payload := bytes.Repeat([]byte{0xAB}, 40)
	if _, err := peer.Write(payload); err != nil {
		t.Fatalf("peer write: %v", err)
	}
	var collected []byte
	deadline := time.Now().Add(2 * time.Second)
	for len(collected) < len(payload) && time.Now().Before(deadline) {
		b, err := tr.Receive(ctx, 0)
		if err != nil {
			t.Fatalf("receive: %v", err)
		}
		if len(b) > 16 {
			t.Fatalf("receive exceeded chunk size: %d", len(b))
		}
		collected = append(collected, b...)
	}
	if !bytes.Equal(collected, payload) {
		t.Fatalf("collected %d bytes, want %d", len(collected), len(payload))
	}
}

func TestTCPReceiveAfterPeerClose(t *testing.T) {
	testlog.Start(t)
	ln, port := listen(t)
	go func() {
		c, err := ln.Accept()
		if err == nil {
			_ = c.Close()
		}
	}()
	tr := NewTCP(testConfig())
	if err := tr.Connect(context.Background(), "127.0.0.1", port); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer tr.Disconnect()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		_, err := tr.Receive(context.Background(), 0)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrTransport) {
			t.Fatalf("expected ErrTransport, got %v", err)
		}
		return
	}
	t.Fatalf("peer close never surfaced")
}

func TestTCPConnectRefused(t *testing.T) {
	testlog.Start(t)
	ln, port := listen(t)
	_ = ln.Close()

	tr := NewTCP(testConfig())
	err := tr.Connect(context.Background(), "127.0.0.1", port)
	if !errors.Is(err, ErrRefused) {
		t.Fatalf("expected ErrRefused, got %v", err)
	}
	var cerr *ConnectError
	if !errors.As(err, &cerr) || cerr.Kind != ConnectRefused {
		t.Fatalf("expected refused ConnectError, got %#v", err)
	}
}

func TestTCPUseBeforeConnect(t *testing.T) {
	tr := NewTCP(testConfig())
	if err := tr.Send(context.Background(), []byte{1}); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("send: expected ErrNotConnected, got %v", err)
	}
	if _, err := tr.Receive(context.Background(), 1); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("receive: expected ErrNotConnected, got %v", err)
	}
	if err := tr.Disconnect(); err != nil {
		t.Fatalf("disconnect on idle transport: %v", err)
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassifyConnect(t *testing.T) {
	cases := []struct {
		err  error
		kind ConnectKind
		want error
	}{
		{&net.DNSError{Err: "no such host", Name: "nowhere.invalid", IsNotFound: true}, ConnectUnresolvable, ErrUnresolvable},
		{&net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}, ConnectRefused, ErrRefused},
		{&net.OpError{Op: "dial", Err: timeoutErr{}}, ConnectTimeout, ErrTimeout},
		{fmt.Errorf("dial: %w", context.DeadlineExceeded), ConnectTimeout, ErrTimeout},
	}
	for _, tc := range cases {
		cerr := ClassifyConnect("h:1", tc.err)
		if cerr.Kind != tc.kind {
			t.Fatalf("%v: kind=%s want=%s", tc.err, cerr.Kind, tc.kind)
		}
		if !errors.Is(cerr, tc.want) {
			t.Fatalf("%v: errors.Is(%v) failed", tc.err, tc.want)
		}
		if !errors.Is(cerr, tc.err) {
			t.Fatalf("%v: cause not preserved", tc.err)
		}
	}
	if cerr := ClassifyConnect("h:1", errors.New("boom")); cerr.Kind != ConnectUnknown {
		t.Fatalf("expected unknown kind, got %s", cerr.Kind)
	}
}
