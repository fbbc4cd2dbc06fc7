// Package mpegts decodes MPEG-2 transport stream packets and reassembles the
// elementary streams they carry. It decodes the fixed packet header, the
// adaptation field and the PES header with its PTS/DTS timestamps, and offers
// two reassembly strategies for a caller-supplied PID: raw payload
// concatenation ([RawAssembler]) and PES-boundary-aware reassembly
// ([PESAssembler]).
//
// Packets are produced lazily by [PacketReader], so a stream of any length can
// be processed with a single packet resident per tracked PID.
package mpegts

import "time"

// AdaptationFieldControl is the 2-bit code in the packet header that selects
// whether an adaptation field, a payload, or both follow the header.
type AdaptationFieldControl uint8

const (
	AFCReserved             AdaptationFieldControl = iota // 0b00
	AFCPayloadOnly                                        // 0b01
	AFCAdaptationOnly                                     // 0b10
	AFCAdaptationAndPayload                               // 0b11
)

// Packet is a parsed 188-byte transport stream packet. It does not alias the
// buffer it was parsed from and is not modified after parsing.
type Packet struct {
	Header          PacketHeader
	AdaptationField *AdaptationField

	// Payload is the region after the header and adaptation field. It is nil
	// when the adaptation field control carries no payload.
	Payload []byte

	// PES is set when PES headers were requested and the packet starts a
	// payload unit.
	PES *PESPacket
}

// Data returns the elementary stream bytes of the packet: the PES data when a
// PES header was parsed, the opaque payload otherwise.
func (p *Packet) Data() []byte {
	if p.PES != nil {
		return p.PES.Data
	}
	return p.Payload
}

// PacketHeader contains the fixed 4-byte header fields of a packet.
type PacketHeader struct {
	PID                        uint16
	ContinuityCounter          uint8
	TransportScramblingControl uint8
	AdaptationFieldControl     AdaptationFieldControl
	TransportErrorIndicator    bool
	PayloadUnitStartIndicator  bool
	TransportPriority          bool
}

// HasAdaptationField reports whether an adaptation field follows the header.
func (h PacketHeader) HasAdaptationField() bool {
	return h.AdaptationFieldControl == AFCAdaptationOnly || h.AdaptationFieldControl == AFCAdaptationAndPayload
}

// HasPayload reports whether the packet carries payload bytes.
func (h PacketHeader) HasPayload() bool {
	return h.AdaptationFieldControl == AFCPayloadOnly || h.AdaptationFieldControl == AFCAdaptationAndPayload
}

// AdaptationField is the optional per-packet field carrying timing and
// control flags plus stuffing.
type AdaptationField struct {
	Length uint8

	Discontinuity  bool
	RandomAccess   bool
	StreamPriority bool

	PCRFlag                  bool
	OPCRFlag                 bool
	SplicingPointFlag        bool
	TransportPrivateDataFlag bool
	ExtensionFlag            bool

	TransportPrivateDataLength uint8
	ExtensionLength            uint8

	// RawStuffing is the declared length minus the flags byte and every
	// present optional subfield. A negative value means the declared length
	// is too short for the subfields its flags announce.
	RawStuffing int
}

// StuffingBytes returns the stuffing byte count, floored at zero.
func (af *AdaptationField) StuffingBytes() int {
	return max(0, af.RawStuffing)
}

// PayloadOffset returns the packet offset at which the payload begins when
// this adaptation field is followed by one.
func (af *AdaptationField) PayloadOffset() int {
	return 5 + int(af.Length)
}

// PESPacket is a Packetized Elementary Stream unit, or the first fragment of
// one. Header is nil when the payload did not begin with a start code and was
// passed through unmodified.
type PESPacket struct {
	Header *PESHeader
	Data   []byte
}

// PacketLength returns the declared PES_packet_length, or 0 when the unit has
// no header or an unbounded length.
func (p *PESPacket) PacketLength() int {
	if p.Header == nil {
		return 0
	}
	return int(p.Header.PacketLength)
}

// HeaderLength returns the part of the declared packet length not covered by
// Data. It is only meaningful for bounded, complete units: for an unbounded
// unit (PacketLength 0) it is -len(Data).
func (p *PESPacket) HeaderLength() int {
	return p.PacketLength() - len(p.Data)
}

// PESHeader contains the fixed PES header fields.
type PESHeader struct {
	Optional     *PESOptionalHeader
	PacketLength uint16
	StreamID     uint8
}

// PESOptionalHeader is the extended header present for every stream id other
// than padding_stream and private_stream_2.
type PESOptionalHeader struct {
	PTS *ClockReference
	DTS *ClockReference

	ScramblingControl uint8
	PTSDTSIndicator   uint8
	HeaderDataLength  uint8

	Priority               bool
	DataAlignment          bool
	Copyright              bool
	Original               bool
	ESCRFlag               bool
	ESRateFlag             bool
	DSMTrickModeFlag       bool
	AdditionalCopyInfoFlag bool
	CRCFlag                bool
	ExtensionFlag          bool
}

// ClockReference holds a 33-bit timestamp base value in the 90 kHz domain.
type ClockReference struct {
	Base int64
}

// Duration converts the 90 kHz base to a time.Duration.
func (c ClockReference) Duration() time.Duration {
	return time.Duration(c.Base) * time.Millisecond / 90
}
