package source

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/valyala/fasthttp"
)

const maxRedirects = 5

func openHTTP(uri string, dialTimeout time.Duration, log *slog.Logger) (*Input, error) {
	client := &fasthttp.Client{
		Dial: func(addr string) (net.Conn, error) {
			return fasthttp.DialTimeout(addr, dialTimeout)
		},
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(uri)
	req.Header.SetMethod(fasthttp.MethodGet)

	log.Info("fetching", "url", uri)
	if err := client.DoRedirects(req, resp, maxRedirects); err != nil {
		return nil, fmt.Errorf("source: GET %s: %w", uri, err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("source: GET %s: status %d", uri, resp.StatusCode())
	}

	// The response is released on return, so its body is copied out.
	body := append([]byte(nil), resp.Body()...)
	log.Info("fetched", "url", uri, "bytes", len(body))
	return newInput(io.NopCloser(bytes.NewReader(body)), uri), nil
}
