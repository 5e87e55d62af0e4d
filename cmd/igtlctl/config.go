package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/danmuck/igtlctl/internal/geom"
	"github.com/danmuck/igtlctl/internal/link"
)

type fileConfig struct {
	Name               string  `toml:"name"`
	Host               string  `toml:"host"`
	Port               int     `toml:"port"`
	Manifest           string  `toml:"manifest"`
	HTTPAddr           string  `toml:"http_addr"`
	HTTPToken          string  `toml:"http_token"`
	ApplyInbound       bool    `toml:"apply_inbound"`
	UnitScale          float64 `toml:"unit_scale"`
	MirrorAxis         string  `toml:"mirror_axis"`
	TranslationLimit   float64 `toml:"translation_limit"`
	SendInterval       string  `toml:"send_interval"`
	ReadPoll           string  `toml:"read_poll"`
	ConnectTimeout     string  `toml:"connect_timeout"`
	WriteTimeout       string  `toml:"write_timeout"`
	ReceiveChunk       int     `toml:"receive_chunk"`
	MaxBodyBytes       uint64  `toml:"max_body_bytes"`
	MaxConnectAttempts int     `toml:"max_connect_attempts"`
	VerifyChecksum     bool    `toml:"verify_checksum"`
}

type clientConfig struct {
	Host         string
	Port         int
	Manifest     string
	HTTPAddr     string
	HTTPToken    string
	ApplyInbound bool
	Link         link.Config
}

func defaultClientConfig() clientConfig {
	cfg := clientConfig{
		Host:     "127.0.0.1",
		Port:     18944,
		HTTPAddr: "127.0.0.1:9180",
		Link:     link.DefaultConfig(),
	}
	cfg.Link.Name = "igtlctl"
	return cfg
}

func loadClientConfig(path string) (clientConfig, error) {
	cfg := defaultClientConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return clientConfig{}, fmt.Errorf("load client config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return clientConfig{}, fmt.Errorf("load client config: unknown keys %v", undecoded)
	}

	if meta.IsDefined("name") {
		if name := strings.TrimSpace(raw.Name); name != "" {
			cfg.Link.Name = name
		}
	}
	if meta.IsDefined("host") {
		cfg.Host = strings.TrimSpace(raw.Host)
	}
	if meta.IsDefined("port") {
		if raw.Port <= 0 || raw.Port > 65535 {
			return clientConfig{}, fmt.Errorf("invalid port: %d", raw.Port)
		}
		cfg.Port = raw.Port
	}
	if meta.IsDefined("manifest") {
		cfg.Manifest = resolveRelative(path, strings.TrimSpace(raw.Manifest))
	}
	if meta.IsDefined("http_addr") {
		cfg.HTTPAddr = strings.TrimSpace(raw.HTTPAddr)
	}
	if meta.IsDefined("http_token") {
		cfg.HTTPToken = strings.TrimSpace(raw.HTTPToken)
	}
	if meta.IsDefined("apply_inbound") {
		cfg.ApplyInbound = raw.ApplyInbound
	}

	if meta.IsDefined("unit_scale") {
		if raw.UnitScale <= 0 {
			return clientConfig{}, fmt.Errorf("unit_scale must be positive: %v", raw.UnitScale)
		}
		cfg.Link.Codec.UnitScale = raw.UnitScale
	}
	if meta.IsDefined("mirror_axis") {
		axis, err := geom.ParseAxis(raw.MirrorAxis)
		if err != nil {
			return clientConfig{}, fmt.Errorf("parse mirror_axis: %w", err)
		}
		cfg.Link.Codec.Mirror = axis
	}
	if meta.IsDefined("translation_limit") {
		if raw.TranslationLimit <= 0 {
			return clientConfig{}, fmt.Errorf("translation_limit must be positive: %v", raw.TranslationLimit)
		}
		cfg.Link.Codec.TranslationLimit = raw.TranslationLimit
	}

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"send_interval", raw.SendInterval, &cfg.Link.Session.SendInterval},
		{"read_poll", raw.ReadPoll, &cfg.Link.Session.ReadPoll},
		{"connect_timeout", raw.ConnectTimeout, &cfg.Link.Session.ConnectTimeout},
		{"write_timeout", raw.WriteTimeout, &cfg.Link.Session.WriteTimeout},
	}
	for _, d := range durations {
		if !meta.IsDefined(d.key) {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return clientConfig{}, fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = v
	}

	if meta.IsDefined("receive_chunk") {
		cfg.Link.Session.ReceiveChunk = raw.ReceiveChunk
	}
	if meta.IsDefined("max_body_bytes") {
		cfg.Link.Session.MaxBodyBytes = raw.MaxBodyBytes
	}
	if meta.IsDefined("max_connect_attempts") {
		cfg.Link.Session.MaxConnectAttempts = raw.MaxConnectAttempts
	}
	if meta.IsDefined("verify_checksum") {
		cfg.Link.Session.VerifyChecksum = raw.VerifyChecksum
	}

	if err := cfg.Link.Session.Validate(); err != nil {
		return clientConfig{}, err
	}
	return cfg, nil
}

func resolveRelative(configPath, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(filepath.Dir(configPath), p)
}
