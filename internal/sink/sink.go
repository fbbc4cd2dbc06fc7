// Package sink creates the outputs extracted streams are written to: local
// files, stdout, and unidirectional QUIC streams.
package sink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// ErrUnsupportedScheme is returned by Create for URIs it cannot serve.
var ErrUnsupportedScheme = errors.New("sink: unsupported scheme")

const defaultDialTimeout = 10 * time.Second

// Config carries the settings shared by all output kinds.
type Config struct {
	// Fingerprint pins the QUIC peer's certificate to a base64 SHA-256
	// fingerprint. Empty means regular certificate verification.
	Fingerprint string
	// DialTimeout bounds QUIC connection setup and the wait for the peer to
	// acknowledge the end of the stream. Zero means 10s.
	DialTimeout time.Duration
	Log         *slog.Logger
}

func (c Config) dialTimeout() time.Duration {
	if c.DialTimeout <= 0 {
		return defaultDialTimeout
	}
	return c.DialTimeout
}

// Create opens the output named by uri:
//
//	-                      standard output
//	path, file:///path     a local file, created or truncated
//	quic://host:port       one unidirectional stream on a new QUIC connection
func Create(ctx context.Context, uri string, cfg Config) (io.WriteCloser, error) {
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}

	if uri == "-" {
		return nopWriteCloser{os.Stdout}, nil
	}

	scheme, rest, found := strings.Cut(uri, "://")
	if !found {
		return createFile(uri)
	}
	switch strings.ToLower(scheme) {
	case "file":
		return createFile(rest)
	case "quic":
		return dialQUIC(ctx, rest, cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, scheme)
	}
}

func createFile(path string) (io.WriteCloser, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("sink: %w", err)
	}
	return f, nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
