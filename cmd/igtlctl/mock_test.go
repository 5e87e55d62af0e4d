package main

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/danmuck/igtlctl/internal/geom"
	"github.com/danmuck/igtlctl/internal/link"
	"github.com/danmuck/igtlctl/internal/scene"
	"github.com/danmuck/igtlctl/internal/testutil/testlog"
	"github.com/danmuck/igtlctl/internal/transport"
)

type sinkRecorder struct {
	mu     sync.Mutex
	poses  []scene.PoseUpdate
	images []scene.ImageUpdate
}

func (s *sinkRecorder) ApplyPose(u scene.PoseUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.poses = append(s.poses, u)
}

func (s *sinkRecorder) ApplyImage(u scene.ImageUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.images = append(s.images, u)
}

func (s *sinkRecorder) counts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.poses), len(s.images)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestMockServerExchangesWithClient(t *testing.T) {
	testlog.Start(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mock := newMockServer(10*time.Millisecond, 2, 8)
	served := make(chan error, 1)
	go func() { served <- mock.Serve(ctx, ln) }()

	screw := scene.Entity{ID: "Screw-1", Index: 1, Color: "red", Diameter: 6.5, Length: 45, Pose: geom.IdentityPose()}
	screw.Pose.Position = geom.Vec3{X: 0.01, Y: 0.02, Z: 0.03}
	reg, err := scene.NewRegistry(screw)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}

	cfg := link.DefaultConfig()
	cfg.Session.SendInterval = 10 * time.Millisecond
	cfg.Session.ReadPoll = 20 * time.Millisecond
	cfg.Session.VerifyChecksum = true
	client := link.NewClient(transport.NewTCP(cfg.Session), cfg)

	addr := ln.Addr().(*net.TCPAddr)
	if err := client.Connect(ctx, "127.0.0.1", addr.Port); err != nil {
		t.Fatalf("connect: %v", err)
	}
	rec := &sinkRecorder{}
	if err := client.Start(reg, rec, rec); err != nil {
		t.Fatalf("start: %v", err)
	}

	waitFor(t, "mock to receive Screw-1_T", func() bool {
		_, ok := mock.Received()["Screw-1_T"]
		return ok
	})
	waitFor(t, "client to receive a pose and an image", func() bool {
		poses, images := rec.counts()
		return poses > 0 && images > 0
	})

	got := mock.Received()["Screw-1_T"]
	if d := got.Position.Add(screw.Pose.Position.Scale(-1)).MaxAbs(); d > 1e-4 {
		t.Fatalf("mock pose = %+v, want %+v", got.Position, screw.Pose.Position)
	}

	rec.mu.Lock()
	pose := rec.poses[0]
	img := rec.images[0]
	rec.mu.Unlock()
	if pose.TargetID != "ClippingPlane" || pose.Fallback {
		t.Fatalf("pose update = %+v", pose)
	}
	if img.Width != 8 || img.Height != 8 || len(img.Pixels) != 64 {
		t.Fatalf("image update = %dx%d (%d pixels)", img.Width, img.Height, len(img.Pixels))
	}

	if err := client.Disconnect(); err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	cancel()
	select {
	case err := <-served:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("mock did not stop")
	}
}

func TestGradientPixels(t *testing.T) {
	testlog.Start(t)

	img := gradient(4, 0)
	if img.Width() != 4 || img.Height() != 4 {
		t.Fatalf("size = %dx%d", img.Width(), img.Height())
	}
	if img.Pixels[0] != 0 || img.Pixels[5] != 2 {
		t.Fatalf("pixels = %v", img.Pixels)
	}
}

func TestWatchEventsReturnsOnLinkLoss(t *testing.T) {
	testlog.Start(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	mockCtx, stopMock := context.WithCancel(context.Background())
	defer stopMock()
	go func() { _ = newMockServer(10*time.Millisecond, 0, 8).Serve(mockCtx, ln) }()

	cfg := link.DefaultConfig()
	cfg.Session.ReadPoll = 20 * time.Millisecond
	client := link.NewClient(transport.NewTCP(cfg.Session), cfg)
	if err := client.Connect(context.Background(), "127.0.0.1", ln.Addr().(*net.TCPAddr).Port); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Disconnect()
	reg, _ := scene.NewRegistry()
	if err := client.Start(reg, scene.Discard, scene.Discard); err != nil {
		t.Fatalf("start: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- watchEvents(context.Background(), client) }()

	stopMock()
	select {
	case err := <-done:
		if err == nil {
			t.Fatalf("expected link loss error")
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("watchEvents did not return")
	}
}
