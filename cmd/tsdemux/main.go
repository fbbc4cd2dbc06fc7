// Command tsdemux extracts elementary streams from an MPEG-2 transport stream.
package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/zsiec/tsdemux/internal/extract"
	"github.com/zsiec/tsdemux/internal/sink"
	"github.com/zsiec/tsdemux/internal/source"
)

var version = "dev"

func main() {
	cfg, err := parseConfig(os.Args[1:], os.Getenv, os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	level := slog.LevelInfo
	if cfg.Verbose || os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})).
		With("run", uuid.NewString())
	slog.SetDefault(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx, cfg, log); err != nil {
		slog.Error("tsdemux failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config, log *slog.Logger) error {
	log.Info("tsdemux starting",
		"version", version,
		"input", cfg.Input,
		"targets", len(cfg.Targets),
		"mode", cfg.Mode.String(),
		"strict", cfg.Strict,
	)

	in, err := source.Open(ctx, cfg.Input, source.Config{DialTimeout: cfg.DialTimeout, Log: log})
	if err != nil {
		return err
	}
	defer func() {
		in.Close()
		stats := in.Stats()
		log.Info("input closed",
			"remote", stats.RemoteAddr,
			"bytes", stats.BytesReceived,
			"reads", stats.ReadCount,
			"uptime_ms", stats.UptimeMs)
	}()

	sinkCfg := sink.Config{
		Fingerprint: cfg.Fingerprint,
		DialTimeout: cfg.DialTimeout,
		Log:         log,
	}
	res, err := extract.Run(ctx, extract.Job{
		Input:    in,
		Targets:  cfg.Targets,
		Mode:     cfg.Mode,
		Strict:   cfg.Strict,
		Captions: cfg.Captions,
		OpenSink: func(ctx context.Context, uri string) (io.WriteCloser, error) {
			return sink.Create(ctx, uri, sinkCfg)
		},
		Log: log,
	})
	if err != nil {
		return err
	}
	log.Info("tsdemux finished", "packets", res.Packets)
	return nil
}
