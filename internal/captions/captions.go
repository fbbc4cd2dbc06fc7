// Package captions decodes CEA-608 closed captions carried in H.264 SEI
// messages of reassembled video PES units.
package captions

import (
	"log/slog"

	"github.com/zsiec/ccx"

	"github.com/zsiec/tsdemux/mpegts"
)

// Caption is decoded caption text from one CEA-608 channel.
type Caption struct {
	PTS     int64 // 90 kHz, -1 when the unit carried no PTS
	Channel int
	Text    string
}

// Inspector extracts captions from a sequence of video PES units of one
// stream. Control code redundancy is tracked per field across units, so one
// Inspector must see the units in stream order.
type Inspector struct {
	log      *slog.Logger
	decoders map[int]*ccx.CEA608Decoder

	lastCtrl    [2][2]byte
	lastWasCtrl [2]bool

	pairs int
	seis  int
}

// NewInspector creates an Inspector. If log is nil, slog.Default() is used.
func NewInspector(log *slog.Logger) *Inspector {
	if log == nil {
		log = slog.Default()
	}
	return &Inspector{
		log: log.With("component", "captions"),
		decoders: map[int]*ccx.CEA608Decoder{
			1: ccx.NewCEA608Decoder(),
			2: ccx.NewCEA608Decoder(),
			3: ccx.NewCEA608Decoder(),
			4: ccx.NewCEA608Decoder(),
		},
	}
}

// Inspect scans the unit's data for caption SEI messages and returns any
// caption text the decoders produced.
func (in *Inspector) Inspect(unit *mpegts.PESPacket) []Caption {
	if unit == nil || len(unit.Data) == 0 {
		return nil
	}
	pts := int64(-1)
	if h := unit.Header; h != nil && h.Optional != nil && h.Optional.PTS != nil {
		pts = h.Optional.PTS.Base
	}

	var out []Caption
	for _, nal := range splitAnnexB(unit.Data) {
		if nal.typ != nalTypeSEI {
			continue
		}
		out = append(out, in.decodeSEI(nal.data, pts)...)
	}
	return out
}

func (in *Inspector) decodeSEI(sei []byte, pts int64) []Caption {
	cd := ccx.ExtractCaptions(sei)
	if cd == nil {
		return nil
	}
	in.seis++

	var out []Caption
	for _, pair := range cd.CC608Pairs {
		in.pairs++
		cc1, cc2 := pair.Data[0], pair.Data[1]

		// Control codes are sent twice; the repeat is dropped.
		f := pair.Field & 1
		if cc1 >= 0x10 && cc1 <= 0x1F {
			cp := [2]byte{cc1, cc2}
			if in.lastWasCtrl[f] && in.lastCtrl[f] == cp {
				in.lastWasCtrl[f] = false
				continue
			}
			in.lastCtrl[f] = cp
			in.lastWasCtrl[f] = true
		} else {
			in.lastWasCtrl[f] = false
		}

		dec := in.decoders[pair.Channel]
		if dec == nil {
			continue
		}
		if text := dec.Decode(cc1, cc2); text != "" {
			in.log.Debug("caption", "channel", pair.Channel, "pts", pts, "text", text)
			out = append(out, Caption{PTS: pts, Channel: pair.Channel, Text: text})
		}
	}
	return out
}

// Pairs returns the number of CEA-608 byte pairs seen so far.
func (in *Inspector) Pairs() int {
	return in.pairs
}

// SEIs returns the number of SEI NAL units that carried caption data.
func (in *Inspector) SEIs() int {
	return in.seis
}
