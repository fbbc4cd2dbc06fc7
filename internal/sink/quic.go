package sink

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/quic-go/quic-go"

	"github.com/zsiec/tsdemux/internal/certs"
)

// ALPN is the application protocol negotiated on QUIC outputs.
const ALPN = "tsdemux"

// quicWriter writes to a unidirectional QUIC stream. Close finishes the
// stream and waits for the receiver to close the connection, so no data is
// lost to an early CONNECTION_CLOSE.
type quicWriter struct {
	conn   quic.Connection
	stream quic.SendStream
	linger time.Duration
	log    *slog.Logger
}

func (w *quicWriter) Write(p []byte) (int, error) {
	return w.stream.Write(p)
}

func (w *quicWriter) Close() error {
	streamErr := w.stream.Close()

	timer := time.NewTimer(w.linger)
	defer timer.Stop()
	select {
	case <-w.conn.Context().Done():
	case <-timer.C:
		w.log.Warn("receiver did not close the connection", "timeout", w.linger)
	}

	if err := w.conn.CloseWithError(0, ""); err != nil {
		w.log.Debug("close connection", "error", err)
	}
	if streamErr != nil {
		return fmt.Errorf("sink: close QUIC stream: %w", streamErr)
	}
	return nil
}

func tlsConfig(addr string, fingerprint string) (*tls.Config, error) {
	conf := &tls.Config{NextProtos: []string{ALPN}}
	if fingerprint == "" {
		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, fmt.Errorf("sink: QUIC address %q: %w", addr, err)
		}
		conf.ServerName = host
		return conf, nil
	}

	fp, err := certs.ParseFingerprint(fingerprint)
	if err != nil {
		return nil, err
	}
	// The pinned fingerprint replaces chain verification.
	conf.InsecureSkipVerify = true
	conf.VerifyPeerCertificate = certs.VerifyFingerprint(fp)
	return conf, nil
}

func dialQUIC(ctx context.Context, addr string, cfg Config) (io.WriteCloser, error) {
	log := cfg.Log.With("component", "quic-sink", "addr", addr)

	tlsConf, err := tlsConfig(addr, cfg.Fingerprint)
	if err != nil {
		return nil, err
	}

	dialCtx, cancel := context.WithTimeout(ctx, cfg.dialTimeout())
	defer cancel()

	conn, err := quic.DialAddr(dialCtx, addr, tlsConf, &quic.Config{
		MaxIdleTimeout:  30 * time.Second,
		KeepAlivePeriod: 10 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("sink: QUIC dial %s: %w", addr, err)
	}

	stream, err := conn.OpenUniStreamSync(dialCtx)
	if err != nil {
		conn.CloseWithError(0, "")
		return nil, fmt.Errorf("sink: open QUIC stream: %w", err)
	}

	log.Info("connected")
	return &quicWriter{conn: conn, stream: stream, linger: cfg.dialTimeout(), log: log}, nil
}
