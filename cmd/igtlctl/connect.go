package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/danmuck/igtlctl/internal/bridge"
	"github.com/danmuck/igtlctl/internal/config"
	"github.com/danmuck/igtlctl/internal/link"
	logs "github.com/danmuck/igtlctl/internal/logging"
	"github.com/danmuck/igtlctl/internal/scene"
	"github.com/danmuck/igtlctl/internal/server"
	"github.com/danmuck/igtlctl/internal/transport"
)

func connectCmd() *cobra.Command {
	var (
		configPath string
		host       string
		port       int
		manifest   string
		httpAddr   string
		retry      bool
	)

	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Connect to a server and stream the manifest entities",
		RunE: func(cmd *cobra.Command, args []string) error {
			logs.ConfigureRuntime()

			cfg := defaultClientConfig()
			if configPath != "" {
				loaded, err := loadClientConfig(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			flags := cmd.Flags()
			if flags.Changed("host") {
				cfg.Host = host
			}
			if flags.Changed("port") {
				cfg.Port = port
			}
			if flags.Changed("manifest") {
				cfg.Manifest = manifest
			}
			if flags.Changed("http") {
				cfg.HTTPAddr = httpAddr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runConnect(ctx, cfg, retry)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "client config (TOML)")
	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "server host")
	cmd.Flags().IntVarP(&port, "port", "p", 18944, "server port")
	cmd.Flags().StringVarP(&manifest, "manifest", "m", "", "entity manifest (TOML), watched for changes")
	cmd.Flags().StringVar(&httpAddr, "http", "127.0.0.1:9180", "status server address; empty disables it")
	cmd.Flags().BoolVar(&retry, "retry", false, "retry the initial connect with backoff")

	return cmd
}

// runConnect connects once and runs until ctx ends or a loop loses the link.
func runConnect(ctx context.Context, cfg clientConfig, retry bool) error {
	reg, err := scene.NewRegistry()
	if err != nil {
		return err
	}
	var watcher *config.Watcher
	if cfg.Manifest != "" {
		watcher = config.NewWatcher(cfg.Manifest, reg)
		if err := watcher.Reload(); err != nil {
			return err
		}
	}

	client := link.NewClient(transport.NewTCP(cfg.Link.Session), cfg.Link)
	connect := client.Connect
	if retry {
		connect = client.ConnectWithRetry
	}
	if err := connect(ctx, cfg.Host, cfg.Port); err != nil {
		return fmt.Errorf("connect %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	defer func() {
		if err := client.Disconnect(); err != nil {
			logs.Warnf("igtlctl.connect disconnect err=%v", err)
		}
	}()

	hub := bridge.NewHub()
	sinks := bridge.Fanout{
		Poses:  []scene.PoseSink{hub},
		Images: []scene.ImageSink{hub},
	}
	if cfg.ApplyInbound {
		sinks.Poses = append(sinks.Poses, reg.Applier())
	}
	if err := client.Start(reg, sinks, sinks); err != nil {
		return err
	}
	logs.Infof("igtlctl.connect streaming name=%q entities=%d addr=%s:%d", cfg.Link.Name, reg.Len(), cfg.Host, cfg.Port)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	if watcher != nil {
		g.Go(func() error { return watcher.Run(gctx) })
	}
	if cfg.HTTPAddr != "" {
		srv := server.New(cfg.Link.Name, cfg.HTTPAddr, client, hub, reg, server.WithToken(cfg.HTTPToken))
		g.Go(func() error { return srv.Run(gctx) })
	}
	g.Go(func() error { return watchEvents(gctx, client) })
	return g.Wait()
}

// watchEvents returns an error once either loop reports that the link is gone.
func watchEvents(ctx context.Context, client *link.Client) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-client.Events():
			logs.Infof("igtlctl.connect event kind=%s loop=%s err=%v", ev.Kind, ev.Loop, ev.Err)
			if ev.Kind == link.EventDisconnected && ev.Loop != link.LoopControl {
				return fmt.Errorf("link lost on %s loop: %w", ev.Loop, ev.Err)
			}
		}
	}
}
