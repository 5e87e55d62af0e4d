// Package link drives a connection to a navigation server: it streams entity
// poses out and routes inbound poses and images to sinks.
//
// A Client is connected explicitly and never reconnects on its own. After a
// loop reports EventDisconnected the caller decides whether to call Disconnect
// and reconnect.
package link

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	logs "github.com/danmuck/igtlctl/internal/logging"
	"github.com/danmuck/igtlctl/internal/observability"
	"github.com/danmuck/igtlctl/internal/protocol/message"
	"github.com/danmuck/igtlctl/internal/protocol/session"
	"github.com/danmuck/igtlctl/internal/scene"
	"github.com/danmuck/igtlctl/internal/transport"
)

var (
	ErrNotConnected     = errors.New("link: not connected")
	ErrAlreadyConnected = errors.New("link: already connected")
	ErrAlreadyRunning   = errors.New("link: loops already running")
)

const eventBuffer = 16

type Config struct {
	// Name labels logs and metrics for this link.
	Name    string
	Session session.Config
	Codec   message.Codec
}

func DefaultConfig() Config {
	return Config{
		Name:    "default",
		Session: session.DefaultConfig(),
		Codec:   message.DefaultCodec(),
	}
}

type Client struct {
	cfg       Config
	transport transport.Transport
	rng       *rand.Rand

	state  atomic.Int32
	events chan Event

	mu      sync.Mutex
	cancel  context.CancelFunc
	group   *errgroup.Group
	running bool
}

func NewClient(tr transport.Transport, cfg Config) *Client {
	if cfg.Name == "" {
		cfg.Name = DefaultConfig().Name
	}
	cfg.Session = cfg.Session.WithDefaults()
	if cfg.Codec.Table == nil {
		cfg.Codec = message.DefaultCodec()
	}
	c := &Client{
		cfg:       cfg,
		transport: tr,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		events:    make(chan Event, eventBuffer),
	}
	observability.RecordState(cfg.Name, int(Disconnected))
	return c
}

func (c *Client) State() State {
	return State(c.state.Load())
}

// Events delivers connection state changes. Events are dropped when the
// buffer is full.
func (c *Client) Events() <-chan Event {
	return c.events
}

func (c *Client) setState(s State) {
	prev := State(c.state.Swap(int32(s)))
	if prev != s {
		logs.Debugf("link.Client state name=%q from=%s to=%s", c.cfg.Name, prev, s)
	}
	observability.RecordState(c.cfg.Name, int(s))
}

func (c *Client) emit(kind EventKind, loop string, err error) {
	ev := Event{Kind: kind, Loop: loop, Err: err, At: time.Now()}
	select {
	case c.events <- ev:
	default:
		logs.Warnf("link.Client event dropped name=%q kind=%s loop=%s", c.cfg.Name, kind, loop)
	}
}

// Connect opens the transport. On failure the client stays Disconnected and
// the transport error, usually a *transport.ConnectError, is returned.
func (c *Client) Connect(ctx context.Context, host string, port int) error {
	if !c.state.CompareAndSwap(int32(Disconnected), int32(Connecting)) {
		return ErrAlreadyConnected
	}
	observability.RecordState(c.cfg.Name, int(Connecting))
	logs.Infof("link.Client.Connect name=%q host=%q port=%d", c.cfg.Name, host, port)

	if err := c.transport.Connect(ctx, host, port); err != nil {
		c.setState(Disconnected)
		return err
	}
	c.setState(Connected)
	c.emit(EventConnected, LoopControl, nil)
	return nil
}

// ConnectWithRetry calls Connect until it succeeds, the context ends or
// MaxConnectAttempts is reached, sleeping with backoff between attempts.
func (c *Client) ConnectWithRetry(ctx context.Context, host string, port int) error {
	var attempt int
	for {
		attempt++
		err := c.Connect(ctx, host, port)
		if err == nil || errors.Is(err, ErrAlreadyConnected) {
			return err
		}
		logs.Warnf("link.Client.ConnectWithRetry name=%q attempt=%d err=%v", c.cfg.Name, attempt, err)
		if !c.cfg.Session.RetryAllowed(attempt) {
			return fmt.Errorf("link: gave up after %d attempts: %w", attempt, err)
		}
		if err := c.sleepBackoff(ctx, attempt); err != nil {
			return err
		}
	}
}

func (c *Client) sleepBackoff(ctx context.Context, attempt int) error {
	delay := session.NextBackoffDelay(c.cfg.Session.Backoff, attempt, c.rng)
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Start launches the send and receive loops. They run until Disconnect or
// until each fails on its own; one loop failing does not stop the other.
func (c *Client) Start(source scene.Source, poses scene.PoseSink, images scene.ImageSink) error {
	if c.State() != Connected {
		return ErrNotConnected
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(context.Background())
	g := new(errgroup.Group)
	g.Go(func() error { return c.RunSendLoop(ctx, source) })
	g.Go(func() error { return c.RunReceiveLoop(ctx, poses, images) })
	c.cancel = cancel
	c.group = g
	c.running = true
	logs.Infof("link.Client.Start name=%q", c.cfg.Name)
	return nil
}

// Disconnect stops both loops, waits for them to exit and then closes the
// transport. Calling it on a disconnected client is a no-op.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	cancel, g, running := c.cancel, c.group, c.running
	c.cancel, c.group, c.running = nil, nil, false
	c.mu.Unlock()

	if running {
		cancel()
		if err := g.Wait(); err != nil {
			logs.Debugf("link.Client.Disconnect name=%q loop err=%v", c.cfg.Name, err)
		}
	}
	if !running && c.State() == Disconnected {
		return nil
	}
	err := c.transport.Disconnect()
	c.setState(Disconnected)
	c.emit(EventDisconnected, LoopControl, nil)
	logs.Infof("link.Client.Disconnect name=%q err=%v", c.cfg.Name, err)
	return err
}

// Wait blocks until both loops started by Start have exited.
func (c *Client) Wait() error {
	c.mu.Lock()
	g := c.group
	c.mu.Unlock()
	if g == nil {
		return nil
	}
	return g.Wait()
}

func (c *Client) loopFailed(loop string, err error) error {
	c.setState(Disconnected)
	c.emit(EventDisconnected, loop, err)
	logs.Errf("link.Client %s loop name=%q err=%v", loop, c.cfg.Name, err)
	return fmt.Errorf("link: %s loop: %w", loop, err)
}
