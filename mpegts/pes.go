package mpegts

import (
	"bytes"
	"fmt"

	"github.com/32bitkid/bitreader"
)

// Stream ids that carry no optional PES header.
const (
	streamIDPaddingStream  = 0xBE
	streamIDPrivateStream2 = 0xBF
)

// PTS_DTS_flags values.
const (
	ptsDTSNone     = 0x0
	ptsDTSReserved = 0x1
	ptsDTSPTSOnly  = 0x2
	ptsDTSBoth     = 0x3
)

const (
	pesFixedHeaderSize    = 6
	pesOptionalHeaderSize = 9
	pesPTSOffset          = 9
	pesDTSOffset          = pesPTSOffset + timestampSize
)

// isPESPayload checks for the PES start code prefix (0x000001).
func isPESPayload(data []byte) bool {
	return len(data) >= 3 && data[0] == 0x00 && data[1] == 0x00 && data[2] == 0x01
}

// ParsePESHeader decodes the PES header at the start of a payload-unit-start
// payload. A payload without the start code prefix is not a PES header and is
// returned as a header-less PESPacket holding the payload unmodified.
//
// Data aliases payload.
func ParsePESHeader(payload []byte) (*PESPacket, error) {
	if !isPESPayload(payload) {
		return &PESPacket{Data: payload}, nil
	}
	if len(payload) < pesFixedHeaderSize {
		return nil, &TruncatedPacketError{Field: "PES header", Need: pesFixedHeaderSize, Have: len(payload)}
	}

	h := &PESHeader{
		StreamID:     payload[3],
		PacketLength: uint16(payload[4])<<8 | uint16(payload[5]),
	}

	if h.StreamID == streamIDPaddingStream || h.StreamID == streamIDPrivateStream2 {
		return &PESPacket{Header: h, Data: []byte{}}, nil
	}

	if len(payload) < pesOptionalHeaderSize {
		return nil, &TruncatedPacketError{Field: "PES optional header", Need: pesOptionalHeaderSize, Have: len(payload)}
	}

	opt, err := parseOptionalFlags(payload[6:9])
	if err != nil {
		return nil, err
	}
	h.Optional = opt

	dataStart := pesOptionalHeaderSize + int(opt.HeaderDataLength)
	if dataStart > len(payload) {
		return nil, &TruncatedPacketError{Field: "PES header data", Need: dataStart, Have: len(payload)}
	}

	switch opt.PTSDTSIndicator {
	case ptsDTSPTSOnly, ptsDTSBoth:
		if opt.PTS, err = timestampAt(payload, pesPTSOffset, "PTS"); err != nil {
			return nil, err
		}
		if opt.PTSDTSIndicator == ptsDTSBoth {
			if opt.DTS, err = timestampAt(payload, pesDTSOffset, "DTS"); err != nil {
				return nil, err
			}
		}
	case ptsDTSNone, ptsDTSReserved:
	}

	return &PESPacket{Header: h, Data: payload[dataStart:]}, nil
}

// parseOptionalFlags decodes the two flag bytes and the header data length
// that open the optional PES header.
//
//	'10'(2) scrambling(2) priority(1) alignment(1) copyright(1) original(1)
//	PTS_DTS(2) ESCR(1) ES_rate(1) DSM_trick(1) additional_copy(1) CRC(1) extension(1)
//	PES_header_data_length(8)
func parseOptionalFlags(b []byte) (*PESOptionalHeader, error) {
	br := bitreader.NewReader(bytes.NewReader(b))
	var fields [14]uint32
	widths := [14]uint{2, 2, 1, 1, 1, 1, 2, 1, 1, 1, 1, 1, 1, 8}
	for i, w := range widths {
		v, err := br.Read32(w)
		if err != nil {
			return nil, fmt.Errorf("PES optional header flags: %w", err)
		}
		fields[i] = v
	}
	// fields[0] is the '10' marker; it is not validated.
	return &PESOptionalHeader{
		ScramblingControl:      uint8(fields[1]),
		Priority:               fields[2] == 1,
		DataAlignment:          fields[3] == 1,
		Copyright:              fields[4] == 1,
		Original:               fields[5] == 1,
		PTSDTSIndicator:        uint8(fields[6]),
		ESCRFlag:               fields[7] == 1,
		ESRateFlag:             fields[8] == 1,
		DSMTrickModeFlag:       fields[9] == 1,
		AdditionalCopyInfoFlag: fields[10] == 1,
		CRCFlag:                fields[11] == 1,
		ExtensionFlag:          fields[12] == 1,
		HeaderDataLength:       uint8(fields[13]),
	}, nil
}

func timestampAt(payload []byte, offset int, field string) (*ClockReference, error) {
	end := offset + timestampSize
	if end > len(payload) {
		return nil, &TruncatedPacketError{Field: field, Need: end, Have: len(payload)}
	}
	return decodeClock(payload[offset:end])
}
