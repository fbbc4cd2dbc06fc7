package captions

// nalTypeSEI is the H.264 supplemental enhancement information NAL type.
const nalTypeSEI = 6

// nalUnit is one H.264 NAL unit without its start code.
type nalUnit struct {
	typ  byte
	data []byte // includes the NAL header byte
}

// splitAnnexB returns the NAL units of an Annex B byte stream. Both 3- and
// 4-byte start codes are recognized; bytes before the first start code are
// ignored.
func splitAnnexB(data []byte) []nalUnit {
	n := len(data)
	if n < 4 {
		return nil
	}

	type span struct{ scStart, dataStart int }
	var spans []span
	for i := 0; i < n-2; {
		if data[i] == 0 && data[i+1] == 0 {
			if i < n-3 && data[i+2] == 0 && data[i+3] == 1 {
				spans = append(spans, span{i, i + 4})
				i += 4
				continue
			}
			if data[i+2] == 1 {
				spans = append(spans, span{i, i + 3})
				i += 3
				continue
			}
		}
		i++
	}

	units := make([]nalUnit, 0, len(spans))
	for idx, s := range spans {
		end := n
		if idx+1 < len(spans) {
			end = spans[idx+1].scStart
		}
		if s.dataStart >= end {
			continue
		}
		nal := data[s.dataStart:end]
		units = append(units, nalUnit{typ: nal[0] & 0x1F, data: nal})
	}
	return units
}
