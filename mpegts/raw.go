package mpegts

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// matches is the filter shared by both reassembly modes: the packet must be
// on the target PID and carry a payload.
func matches(p *Packet, pid uint16) bool {
	return p.Header.PID == pid && p.Payload != nil
}

// RawAssembler concatenates the payload data of every packet on one PID, in
// arrival order, into a writer. No PES framing is interpreted beyond what the
// packet parser already decoded.
type RawAssembler struct {
	pid     uint16
	w       io.Writer
	written int64
	packets int
}

// NewRawAssembler creates a RawAssembler writing the data of pid to w.
func NewRawAssembler(pid uint16, w io.Writer) *RawAssembler {
	return &RawAssembler{pid: pid, w: w}
}

// Add writes the packet's data if it belongs to the target PID.
func (a *RawAssembler) Add(p *Packet) error {
	if !matches(p, a.pid) {
		return nil
	}
	n, err := a.w.Write(p.Data())
	a.written += int64(n)
	if err != nil {
		return fmt.Errorf("mpegts: write PID %d: %w", a.pid, err)
	}
	a.packets++
	return nil
}

// Written returns the number of bytes written so far.
func (a *RawAssembler) Written() int64 {
	return a.written
}

// Packets returns the number of packets that contributed data.
func (a *RawAssembler) Packets() int {
	return a.packets
}

// ExtractRaw reads r to the end and writes the concatenated payload of pid to
// w, returning the number of bytes written. By default payloads are opaque;
// pass ReaderOptParsePES(true) to strip PES headers and write only the
// elementary stream data.
func ExtractRaw(ctx context.Context, r io.Reader, pid uint16, w io.Writer, opts ...func(*PacketReader)) (int64, error) {
	pr := NewPacketReader(ctx, r, opts...)
	a := NewRawAssembler(pid, w)
	for {
		pkt, err := pr.Next()
		if errors.Is(err, io.EOF) {
			return a.Written(), nil
		}
		if err != nil {
			return a.Written(), err
		}
		if err := a.Add(pkt); err != nil {
			return a.Written(), err
		}
	}
}
