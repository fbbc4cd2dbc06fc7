package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	srtgo "github.com/zsiec/srtgo"
)

// srtLatencyNs is the SRT latency setting in nanoseconds (120ms).
const srtLatencyNs = 120_000_000

type srtTarget struct {
	address  string
	streamID string
}

func parseSRT(u *url.URL) (srtTarget, error) {
	if u.Hostname() == "" || u.Port() == "" {
		return srtTarget{}, fmt.Errorf("source: SRT address %q needs host and port", u.Host)
	}
	return srtTarget{
		address:  u.Host,
		streamID: u.Query().Get("streamid"),
	}, nil
}

// srtConn adapts an SRT connection to io.ReadCloser.
type srtConn struct {
	conn *srtgo.Conn
}

func (c srtConn) Read(p []byte) (int, error) {
	return c.conn.Read(p)
}

func (c srtConn) Close() error {
	c.conn.Close()
	return nil
}

func openSRT(ctx context.Context, u *url.URL, dialTimeout time.Duration, log *slog.Logger) (*Input, error) {
	target, err := parseSRT(u)
	if err != nil {
		return nil, err
	}

	cfg := srtgo.DefaultConfig()
	cfg.Latency = srtLatencyNs
	if target.streamID != "" {
		cfg.StreamID = target.streamID
	}

	log.Info("dialing", "address", target.address, "stream_id", target.streamID)

	ch := make(chan srtDialResult, 1)
	go func() {
		conn, err := srtgo.Dial(target.address, cfg)
		ch <- srtDialResult{conn, err}
	}()

	timer := time.NewTimer(dialTimeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		if res.err != nil {
			return nil, fmt.Errorf("source: SRT dial failed: %w", res.err)
		}
		log.Info("connected", "address", target.address)
		return newInput(srtConn{conn: res.conn}, target.address), nil
	case <-timer.C:
		go drainDial(ch)
		return nil, fmt.Errorf("source: SRT dial timed out after %s", dialTimeout)
	case <-ctx.Done():
		go drainDial(ch)
		return nil, ctx.Err()
	}
}

type srtDialResult struct {
	conn *srtgo.Conn
	err  error
}

// drainDial closes a connection that completes after the caller gave up.
func drainDial(ch <-chan srtDialResult) {
	if res := <-ch; res.conn != nil {
		res.conn.Close()
	}
}
