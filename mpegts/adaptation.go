package mpegts

import (
	"bytes"
	"fmt"

	"github.com/32bitkid/bitreader"
)

// Fixed sizes of the adaptation field's optional subfields.
const (
	pcrSize           = 6
	opcrSize          = 6
	spliceCountdownSz = 1
)

// parseAdaptationField decodes the adaptation field at the start of b, which
// begins at packet offset 4. Subfields are consumed in their fixed order so
// that the length bytes of the private data and extension are read at the
// running offset.
func parseAdaptationField(b []byte) (*AdaptationField, error) {
	if len(b) < 1 {
		return nil, &TruncatedPacketError{Field: "adaptation field length", Need: 1, Have: 0}
	}

	af := &AdaptationField{Length: b[0]}
	if af.Length == 0 {
		// A zero-length field is a single stuffing byte with no flags.
		return af, nil
	}
	if len(b) < 2 {
		return nil, &TruncatedPacketError{Field: "adaptation field flags", Need: 2, Have: len(b)}
	}

	flags, err := readFlags(b[1])
	if err != nil {
		return nil, err
	}
	af.Discontinuity = flags[0]
	af.RandomAccess = flags[1]
	af.StreamPriority = flags[2]
	af.PCRFlag = flags[3]
	af.OPCRFlag = flags[4]
	af.SplicingPointFlag = flags[5]
	af.TransportPrivateDataFlag = flags[6]
	af.ExtensionFlag = flags[7]

	remaining := int(af.Length) - 1
	cursor := 2

	if af.PCRFlag {
		remaining -= pcrSize
		cursor += pcrSize
	}
	if af.OPCRFlag {
		remaining -= opcrSize
		cursor += opcrSize
	}
	if af.SplicingPointFlag {
		remaining -= spliceCountdownSz
		cursor += spliceCountdownSz
	}
	if af.TransportPrivateDataFlag {
		n, err := lengthByte(b, cursor, "transport private data length")
		if err != nil {
			return nil, err
		}
		af.TransportPrivateDataLength = n
		remaining -= 1 + int(n)
		cursor += 1 + int(n)
	}
	if af.ExtensionFlag {
		n, err := lengthByte(b, cursor, "adaptation field extension length")
		if err != nil {
			return nil, err
		}
		af.ExtensionLength = n
		remaining -= 1 + int(n)
	}

	af.RawStuffing = remaining
	return af, nil
}

// readFlags splits the adaptation field flags byte MSB-first.
func readFlags(b byte) ([8]bool, error) {
	var flags [8]bool
	br := bitreader.NewReader(bytes.NewReader([]byte{b}))
	for i := range flags {
		v, err := br.Read32(1)
		if err != nil {
			return flags, fmt.Errorf("adaptation field flags: %w", err)
		}
		flags[i] = v == 1
	}
	return flags, nil
}

func lengthByte(b []byte, at int, field string) (uint8, error) {
	if at >= len(b) {
		return 0, &TruncatedPacketError{Field: field, Need: at + 1, Have: len(b)}
	}
	return b[at], nil
}
