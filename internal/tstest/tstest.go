// Package tstest builds synthetic transport streams for tests: single packets
// with or without adaptation fields, PES units with timestamps, packetized PES
// streams and A/53 caption SEI NAL units.
package tstest

// PacketSize is the fixed size of an MPEG-TS packet.
const PacketSize = 188

// MakePacket builds a payload-only packet. The payload is zero-padded to fill
// the packet.
func MakePacket(pid uint16, cc uint8, pusi bool, payload []byte) []byte {
	buf := make([]byte, PacketSize)
	buf[0] = 0x47
	buf[1] = byte(pid>>8) & 0x1F
	buf[2] = byte(pid)
	buf[3] = 0x10 | (cc & 0x0F)
	if pusi {
		buf[1] |= 0x40
	}
	copy(buf[4:], payload)
	return buf
}

// MakePacketWithAF builds a packet whose adaptation field is af, given
// including its length byte. With a nil payload the packet is adaptation-only;
// otherwise the payload is copied right after the field.
func MakePacketWithAF(pid uint16, cc uint8, pusi bool, af []byte, payload []byte) []byte {
	buf := make([]byte, PacketSize)
	buf[0] = 0x47
	buf[1] = byte(pid>>8) & 0x1F
	buf[2] = byte(pid)
	if pusi {
		buf[1] |= 0x40
	}
	if payload != nil {
		buf[3] = 0x30 | (cc & 0x0F)
	} else {
		buf[3] = 0x20 | (cc & 0x0F)
	}
	copy(buf[4:], af)
	if offset := 4 + len(af); offset < PacketSize {
		copy(buf[offset:], payload)
	}
	return buf
}

// StuffingAF returns an adaptation field of the given declared length with no
// flags set and 0xFF stuffing.
func StuffingAF(length int) []byte {
	af := make([]byte, 1+length)
	af[0] = byte(length)
	for i := 2; i < len(af); i++ {
		af[i] = 0xFF
	}
	return af
}

// PES describes a PES unit to build.
type PES struct {
	StreamID byte
	PTS      int64
	DTS      int64
	HasPTS   bool
	HasDTS   bool

	// Unbounded writes a PES_packet_length of 0, as video streams do.
	Unbounded bool
}

// BuildPES encodes a PES unit carrying data.
func BuildPES(h PES, data []byte) []byte {
	var optHeader []byte
	ptsDTSIndicator := byte(0)
	switch {
	case h.HasPTS && h.HasDTS:
		ptsDTSIndicator = 3
		optHeader = append(optHeader, encodeTimestamp(0x03, h.PTS)...)
		optHeader = append(optHeader, encodeTimestamp(0x01, h.DTS)...)
	case h.HasPTS:
		ptsDTSIndicator = 2
		optHeader = append(optHeader, encodeTimestamp(0x02, h.PTS)...)
	}

	headerDataLen := len(optHeader)
	packetLength := 3 + headerDataLen + len(data)
	if h.Unbounded || packetLength > 0xFFFF {
		packetLength = 0
	}

	buf := make([]byte, 0, 9+headerDataLen+len(data))
	buf = append(buf, 0x00, 0x00, 0x01)
	buf = append(buf, h.StreamID)
	buf = append(buf, byte(packetLength>>8), byte(packetLength))
	buf = append(buf, 0x80)
	buf = append(buf, ptsDTSIndicator<<6)
	buf = append(buf, byte(headerDataLen))
	buf = append(buf, optHeader...)
	buf = append(buf, data...)
	return buf
}

// Packetize splits pesData into packets on pid, setting PUSI on the first and
// padding the last with adaptation field stuffing. cc is advanced per packet.
func Packetize(pesData []byte, pid uint16, cc *byte) []byte {
	var result []byte
	offset := 0
	first := true

	for offset < len(pesData) {
		var pkt [PacketSize]byte
		pkt[0] = 0x47
		pkt[1] = byte(pid>>8) & 0x1F
		pkt[2] = byte(pid)
		if first {
			pkt[1] |= 0x40
			first = false
		}
		pkt[3] = 0x10 | (*cc & 0x0F)
		*cc = (*cc + 1) & 0x0F

		remaining := len(pesData) - offset
		capacity := PacketSize - 4

		if remaining < capacity {
			stuffLen := capacity - remaining
			pkt[3] |= 0x20
			pkt[4] = byte(stuffLen - 1)
			if stuffLen > 1 {
				pkt[5] = 0
				for i := 6; i < 4+stuffLen; i++ {
					pkt[i] = 0xFF
				}
			}
			copy(pkt[4+stuffLen:], pesData[offset:])
			offset = len(pesData)
		} else {
			copy(pkt[4:], pesData[offset:offset+capacity])
			offset += capacity
		}

		result = append(result, pkt[:]...)
	}

	return result
}

func encodeTimestamp(prefix byte, v int64) []byte {
	return []byte{
		prefix<<4 | byte(v>>29&0x0E) | 0x01,
		byte(v >> 22),
		byte(v>>14&0xFE) | 0x01,
		byte(v >> 7),
		byte(v<<1&0xFE) | 0x01,
	}
}
