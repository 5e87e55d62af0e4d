package main

import (
	"context"
	"errors"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/danmuck/igtlctl/internal/geom"
	logs "github.com/danmuck/igtlctl/internal/logging"
	"github.com/danmuck/igtlctl/internal/protocol/frame"
	"github.com/danmuck/igtlctl/internal/protocol/message"
	"github.com/danmuck/igtlctl/internal/protocol/schema"
)

func mockCmd() *cobra.Command {
	var (
		addr       string
		interval   time.Duration
		imageEvery int
		imageSize  int
	)

	cmd := &cobra.Command{
		Use:   "mock",
		Short: "Run a loopback server that echoes poses and streams test images",
		RunE: func(cmd *cobra.Command, args []string) error {
			logs.ConfigureRuntime()
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			m := newMockServer(interval, imageEvery, imageSize)
			return m.Serve(ctx, ln)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:18944", "listen address")
	cmd.Flags().DurationVar(&interval, "interval", 100*time.Millisecond, "outbound TRANSFORM interval")
	cmd.Flags().IntVar(&imageEvery, "image-every", 10, "send an IMAGE every N transforms; 0 disables")
	cmd.Flags().IntVar(&imageSize, "image-size", 64, "test image width and height")

	return cmd
}

// mockServer accepts clients, records the poses they stream and sends back a
// slowly rotating plane pose plus a gradient image.
type mockServer struct {
	interval   time.Duration
	imageEvery int
	imageSize  uint16
	codec      message.Codec

	mu       sync.Mutex
	received map[string]geom.Pose
}

func newMockServer(interval time.Duration, imageEvery, imageSize int) *mockServer {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	if imageSize <= 0 || imageSize > 1024 {
		imageSize = 64
	}
	return &mockServer{
		interval:   interval,
		imageEvery: imageEvery,
		imageSize:  uint16(imageSize),
		codec:      message.DefaultCodec(),
		received:   make(map[string]geom.Pose),
	}
}

func (m *mockServer) Serve(ctx context.Context, ln net.Listener) error {
	logs.Infof("igtlctl.mock listening addr=%q", ln.Addr())
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.handle(ctx, conn)
		}()
	}
}

func (m *mockServer) handle(ctx context.Context, conn net.Conn) {
	remote := conn.RemoteAddr().String()
	logs.Infof("igtlctl.mock accepted remote=%q", remote)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		return conn.Close()
	})
	g.Go(func() error { return m.readLoop(conn) })
	g.Go(func() error { return m.writeLoop(gctx, conn) })
	if err := g.Wait(); err != nil && !errors.Is(err, net.ErrClosed) {
		logs.Infof("igtlctl.mock closed remote=%q err=%v", remote, err)
	}
}

func (m *mockServer) readLoop(conn net.Conn) error {
	for {
		f, err := frame.ReadFrame(conn, frame.DefaultLimits())
		if err != nil {
			return err
		}
		if f.Header.Type != schema.TypeTransform {
			logs.Debugf("igtlctl.mock ignore type=%q device=%q", f.Header.Type, f.Header.DeviceName)
			continue
		}
		pose, _, err := message.DecodeTransform(f, m.codec)
		if err != nil {
			logs.Warnf("igtlctl.mock decode device=%q err=%v", f.Header.DeviceName, err)
			continue
		}
		m.mu.Lock()
		_, seen := m.received[f.Header.DeviceName]
		m.received[f.Header.DeviceName] = pose
		m.mu.Unlock()
		if !seen {
			logs.Infof("igtlctl.mock first pose device=%q position=%+v", f.Header.DeviceName, pose.Position)
		}
	}
}

func (m *mockServer) writeLoop(ctx context.Context, conn net.Conn) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for tick := 1; ; tick++ {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		b, err := message.EncodeTransform("ClippingPlane_T", planePose(tick), nil, m.codec)
		if err != nil {
			return err
		}
		if _, err := conn.Write(b); err != nil {
			return err
		}
		if m.imageEvery > 0 && tick%m.imageEvery == 0 {
			img, err := message.EncodeImage("US", gradient(m.imageSize, tick), m.codec)
			if err != nil {
				return err
			}
			if _, err := conn.Write(img); err != nil {
				return err
			}
		}
	}
}

func (m *mockServer) Received() map[string]geom.Pose {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]geom.Pose, len(m.received))
	for k, v := range m.received {
		out[k] = v
	}
	return out
}

// planePose turns 2 degrees about y per tick.
func planePose(tick int) geom.Pose {
	p := geom.IdentityPose()
	p.Position = geom.Vec3{Z: 0.1}
	p.Rotation = geom.FromEulerDegrees(0, float64((tick*2)%360), 0)
	return p
}

func gradient(size uint16, tick int) message.Image {
	n := int(size) * int(size)
	pixels := make([]byte, n)
	for i := range pixels {
		x, y := i%int(size), i/int(size)
		pixels[i] = byte((x + y + tick) % 256)
	}
	return message.NewGrayscale(size, size, pixels)
}
