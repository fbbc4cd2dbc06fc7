package tstest

// CCPair is one CEA-608 byte pair to carry in a caption SEI. Field selects
// cc_type 0 (field 1) or 1 (field 2).
type CCPair struct {
	Field byte
	Data1 byte
	Data2 byte
}

// BuildCaptionSEI builds an Annex-B H.264 SEI NAL unit, start code included,
// carrying ATSC A/53 GA94 cc_data for pairs.
func BuildCaptionSEI(pairs []CCPair) []byte {
	seiMessage := EncodeSEIMessage(4, buildA53Payload(pairs))
	seiMessage = append(seiMessage, 0x80) // rbsp trailing bits

	var nal []byte
	nal = append(nal, 0x00, 0x00, 0x00, 0x01)
	nal = append(nal, 0x06)
	nal = append(nal, AddEPB(seiMessage)...)
	return nal
}

func buildA53Payload(pairs []CCPair) []byte {
	ccCount := min(len(pairs), 31)

	var payload []byte
	payload = append(payload, 0xB5)       // itu_t_t35_country_code
	payload = append(payload, 0x00, 0x31) // itu_t_t35_provider_code
	payload = append(payload, 'G', 'A', '9', '4')
	payload = append(payload, 0x03)                    // user_data_type_code: cc_data
	payload = append(payload, 0x40|byte(ccCount)&0x1F) // process_cc_data_flag
	payload = append(payload, 0xFF)                    // em_data

	for _, p := range pairs[:ccCount] {
		marker := byte(0xFC) | (p.Field & 0x03)
		payload = append(payload, marker, AddParity(p.Data1), AddParity(p.Data2))
	}

	payload = append(payload, 0xFF)
	return payload
}

// AddParity sets the high bit so b has odd parity, as CEA-608 requires.
func AddParity(b byte) byte {
	b &= 0x7F
	ones := 0
	for v := b; v != 0; v >>= 1 {
		ones += int(v & 1)
	}
	if ones%2 == 0 {
		return b | 0x80
	}
	return b
}

// EncodeSEIMessage encodes an H.264 SEI message with the given payload type,
// using the multi-byte size encoding when needed.
func EncodeSEIMessage(payloadType int, payload []byte) []byte {
	var out []byte
	pt := payloadType
	for pt >= 255 {
		out = append(out, 0xFF)
		pt -= 255
	}
	out = append(out, byte(pt))

	ps := len(payload)
	for ps >= 255 {
		out = append(out, 0xFF)
		ps -= 255
	}
	out = append(out, byte(ps))
	out = append(out, payload...)
	return out
}

// AddEPB inserts emulation prevention bytes: 0x03 before any byte <= 0x03
// that follows two zero bytes.
func AddEPB(data []byte) []byte {
	var out []byte
	zeroCount := 0
	for _, b := range data {
		if zeroCount >= 2 && b <= 0x03 {
			out = append(out, 0x03)
			zeroCount = 0
		}
		out = append(out, b)
		if b == 0x00 {
			zeroCount++
		} else {
			zeroCount = 0
		}
	}
	return out
}
