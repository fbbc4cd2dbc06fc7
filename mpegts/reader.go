package mpegts

import (
	"context"
	"errors"
	"io"
	"log/slog"
)

// PacketReader reads fixed-size packets from an io.Reader and parses them one
// at a time. A trailing read shorter than PacketSize is discarded. The first
// parse error ends the sequence: every later call returns the same error.
type PacketReader struct {
	ctx     context.Context
	reader  io.Reader
	log     *slog.Logger
	readBuf []byte
	opts    ParseOptions
	count   int
	err     error
}

// NewPacketReader creates a PacketReader over r.
func NewPacketReader(ctx context.Context, r io.Reader, opts ...func(*PacketReader)) *PacketReader {
	pr := &PacketReader{
		ctx:     ctx,
		reader:  r,
		log:     slog.Default(),
		readBuf: make([]byte, PacketSize),
	}
	for _, opt := range opts {
		opt(pr)
	}
	pr.log = pr.log.With("component", "packet-reader")
	return pr
}

// ReaderOptParsePES enables PES header decoding on payload-unit-start packets.
func ReaderOptParsePES(enabled bool) func(*PacketReader) {
	return func(pr *PacketReader) {
		pr.opts.ParsePES = enabled
	}
}

// ReaderOptStrictAdaptationField makes adaptation field overruns fatal.
func ReaderOptStrictAdaptationField(enabled bool) func(*PacketReader) {
	return func(pr *PacketReader) {
		pr.opts.StrictAdaptationField = enabled
	}
}

// ReaderOptLogger sets the logger used for diagnostics. A nil logger keeps
// slog.Default().
func ReaderOptLogger(l *slog.Logger) func(*PacketReader) {
	return func(pr *PacketReader) {
		if l != nil {
			pr.log = l
		}
	}
}

// Next returns the next parsed packet, or io.EOF once fewer than PacketSize
// bytes remain.
func (pr *PacketReader) Next() (*Packet, error) {
	if pr.err != nil {
		return nil, pr.err
	}
	if err := pr.ctx.Err(); err != nil {
		return nil, err
	}

	n, err := io.ReadFull(pr.reader, pr.readBuf)
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			pr.log.Debug("discarding trailing partial packet", "bytes", n, "packets", pr.count)
			err = io.EOF
		}
		pr.err = err
		return nil, err
	}

	pkt, err := ParsePacket(pr.readBuf, pr.opts)
	if err != nil {
		pr.err = &PacketError{Index: pr.count, Offset: int64(pr.count) * PacketSize, Err: err}
		return nil, pr.err
	}

	if af := pkt.AdaptationField; af != nil && af.RawStuffing < 0 {
		pr.log.Debug("adaptation field overrun clamped",
			"packet", pr.count,
			"pid", pkt.Header.PID,
			"length", af.Length,
			"remainder", af.RawStuffing)
	}

	pr.count++
	return pkt, nil
}

// Count returns the number of packets returned so far.
func (pr *PacketReader) Count() int {
	return pr.count
}

// Reset restarts the sequence over r, clearing any terminal error.
func (pr *PacketReader) Reset(r io.Reader) {
	pr.reader = r
	pr.count = 0
	pr.err = nil
}
