package mpegts

const (
	// PacketSize is the fixed ISO/IEC 13818-1 transport packet size.
	PacketSize = 188
	// SyncByte is the marker every packet must begin with.
	SyncByte = 0x47
	// MaxPID is the largest 13-bit packet identifier.
	MaxPID = 0x1FFF
)

// ParseOptions controls the optional stages of ParsePacket.
type ParseOptions struct {
	// ParsePES decodes the PES header of payload-unit-start packets. When
	// unset the payload is left as opaque bytes.
	ParsePES bool

	// StrictAdaptationField turns an adaptation field overrun into an
	// *AdaptationFieldError instead of clamping the stuffing count to zero.
	StrictAdaptationField bool
}

// ParsePacket decodes one 188-byte packet. A first byte other than SyncByte
// yields a *FormatError.
func ParsePacket(buf []byte, opts ParseOptions) (*Packet, error) {
	if len(buf) != PacketSize {
		return nil, &TruncatedPacketError{Field: "packet", Need: PacketSize, Have: len(buf)}
	}
	if buf[0] != SyncByte {
		return nil, &FormatError{Got: buf[0]}
	}

	p := &Packet{}
	p.Header.TransportErrorIndicator = buf[1]&0x80 != 0
	p.Header.PayloadUnitStartIndicator = buf[1]&0x40 != 0
	p.Header.TransportPriority = buf[1]&0x20 != 0
	p.Header.PID = uint16(buf[1]&0x1F)<<8 | uint16(buf[2])
	p.Header.TransportScramblingControl = buf[3] >> 6 & 0x03
	p.Header.AdaptationFieldControl = AdaptationFieldControl(buf[3] >> 4 & 0x03)
	p.Header.ContinuityCounter = buf[3] & 0x0F

	offset := 4

	if p.Header.HasAdaptationField() {
		af, err := parseAdaptationField(buf[offset:])
		if err != nil {
			return nil, err
		}
		if opts.StrictAdaptationField && af.RawStuffing < 0 {
			return nil, &AdaptationFieldError{Length: af.Length, Remainder: af.RawStuffing}
		}
		p.AdaptationField = af
		offset = af.PayloadOffset()
	}

	if !p.Header.HasPayload() {
		return p, nil
	}
	if offset > PacketSize {
		return nil, &TruncatedPacketError{Field: "adaptation field", Need: offset, Have: PacketSize}
	}

	p.Payload = make([]byte, PacketSize-offset)
	copy(p.Payload, buf[offset:])

	if opts.ParsePES && p.Header.PayloadUnitStartIndicator {
		pes, err := ParsePESHeader(p.Payload)
		if err != nil {
			return nil, err
		}
		p.PES = pes
	}

	return p, nil
}
