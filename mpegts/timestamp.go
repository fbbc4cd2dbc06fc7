package mpegts

// timestampSize is the encoded size of a PTS or DTS field.
const timestampSize = 5

// DecodeTimestamp extracts a 33-bit PTS/DTS value from 5 bytes laid out as
// prefix(4) ts[32..30](3) marker(1) ts[29..15](15) marker(1) ts[14..0](15) marker(1).
func DecodeTimestamp(b []byte) (int64, error) {
	if len(b) < timestampSize {
		return 0, &TruncatedPacketError{Field: "timestamp", Need: timestampSize, Have: len(b)}
	}
	return int64(b[0]>>1&0x07)<<30 |
		int64(b[1])<<22 |
		int64(b[2]>>1)<<15 |
		int64(b[3])<<7 |
		int64(b[4]>>1), nil
}

// EncodeTimestamp is the inverse of DecodeTimestamp. prefix is the 4-bit
// code in the top nibble (0b0010 for a lone PTS, 0b0011/0b0001 for a
// PTS/DTS pair); all marker bits are set.
func EncodeTimestamp(prefix uint8, v int64) [timestampSize]byte {
	var b [timestampSize]byte
	b[0] = prefix<<4 | byte(v>>29&0x0E) | 0x01
	b[1] = byte(v >> 22)
	b[2] = byte(v>>14&0xFE) | 0x01
	b[3] = byte(v >> 7)
	b[4] = byte(v<<1&0xFE) | 0x01
	return b
}

func decodeClock(b []byte) (*ClockReference, error) {
	base, err := DecodeTimestamp(b)
	if err != nil {
		return nil, err
	}
	return &ClockReference{Base: base}, nil
}
