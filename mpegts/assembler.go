package mpegts

import (
	"context"
	"errors"
	"io"
)

type assemblerState int

const (
	stateIdle assemblerState = iota
	stateCollecting
)

// PESAssembler rebuilds complete PES units for one PID.
//
// A unit opens on a payload-unit-start packet and collects the payloads of
// the continuation packets that follow. The collected bytes are flushed into
// the unit exactly once: when the next matching packet starts a new unit, or
// when the input ends and Flush is called.
type PESAssembler struct {
	pid     uint16
	state   assemblerState
	open    *PESPacket
	pending []byte
	packets int
	units   int
	orphans int
}

// NewPESAssembler creates a PESAssembler for pid.
func NewPESAssembler(pid uint16) *PESAssembler {
	return &PESAssembler{pid: pid}
}

// Add feeds the next packet of the stream. It returns the unit finalized by
// this packet, if any. Packets on other PIDs or without payload are ignored.
func (a *PESAssembler) Add(p *Packet) (*PESPacket, error) {
	if !matches(p, a.pid) {
		return nil, nil
	}
	a.packets++

	if p.Header.PayloadUnitStartIndicator {
		start := p.PES
		if start == nil {
			var err error
			start, err = ParsePESHeader(p.Payload)
			if err != nil {
				return nil, err
			}
		}
		done := a.finalize()
		a.open = &PESPacket{
			Header: start.Header,
			Data:   append([]byte(nil), start.Data...),
		}
		a.state = stateCollecting
		return done, nil
	}

	switch a.state {
	case stateIdle:
		// Continuation of a unit whose start was never seen.
		a.orphans++
	case stateCollecting:
		a.pending = append(a.pending, p.Payload...)
	}
	return nil, nil
}

// Flush finalizes the open unit at end of input. It returns nil when no unit
// is open.
func (a *PESAssembler) Flush() *PESPacket {
	return a.finalize()
}

// finalize is the pending-flush transition from collecting to idle.
func (a *PESAssembler) finalize() *PESPacket {
	if a.state != stateCollecting {
		return nil
	}
	done := a.open
	done.Data = append(done.Data, a.pending...)
	a.open = nil
	a.pending = a.pending[:0]
	a.state = stateIdle
	a.units++
	return done
}

// Packets returns the number of packets on the PID that carried a payload,
// orphans included.
func (a *PESAssembler) Packets() int {
	return a.packets
}

// Units returns the number of units finalized so far.
func (a *PESAssembler) Units() int {
	return a.units
}

// Orphans returns the number of continuation packets discarded because no
// unit was open.
func (a *PESAssembler) Orphans() int {
	return a.orphans
}

// ReassemblePES reads r to the end and returns every PES unit carried on pid,
// in stream order. PES header decoding is always enabled.
func ReassemblePES(ctx context.Context, r io.Reader, pid uint16, opts ...func(*PacketReader)) ([]*PESPacket, error) {
	opts = append(opts, ReaderOptParsePES(true))
	pr := NewPacketReader(ctx, r, opts...)
	a := NewPESAssembler(pid)

	var units []*PESPacket
	for {
		pkt, err := pr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return units, err
		}
		unit, err := a.Add(pkt)
		if err != nil {
			return units, &PacketError{Index: pr.Count() - 1, Offset: int64(pr.Count()-1) * PacketSize, Err: err}
		}
		if unit != nil {
			units = append(units, unit)
		}
	}
	if unit := a.Flush(); unit != nil {
		units = append(units, unit)
	}
	return units, nil
}
