package mpegts

import (
	"testing"

	"github.com/zsiec/tsdemux/internal/tstest"
)

func FuzzParsePacket(f *testing.F) {
	f.Add(tstest.MakePacket(0x100, 0, true, tstest.BuildPES(tstest.PES{StreamID: 0xE0, PTS: 1, HasPTS: true}, []byte{0x01})))
	f.Add(tstest.MakePacketWithAF(0x101, 0, false, tstest.StuffingAF(7), []byte{0x01}))
	f.Add(tstest.MakePacketWithAF(0x101, 0, false, []byte{0x02, 0x1F}, []byte{0x01}))

	f.Fuzz(func(t *testing.T, data []byte) {
		if len(data) != PacketSize {
			return
		}
		p, err := ParsePacket(data, ParseOptions{ParsePES: true})
		if err != nil {
			return
		}
		if len(p.Payload) > PacketSize-4 {
			t.Fatalf("payload length %d exceeds packet", len(p.Payload))
		}
		if p.AdaptationField != nil && p.AdaptationField.StuffingBytes() < 0 {
			t.Fatal("negative stuffing count")
		}
	})
}

func FuzzParsePESHeader(f *testing.F) {
	f.Add(tstest.BuildPES(tstest.PES{StreamID: 0xE0, PTS: 2790000, DTS: 2782492, HasPTS: true, HasDTS: true}, []byte{0x65}))
	f.Add([]byte{0x00, 0x00, 0x01, 0xBE, 0x00, 0x00})
	f.Add([]byte{0x00, 0x00, 0x01, 0xC0, 0x00, 0x00, 0x80, 0xC0, 0xFF})

	f.Fuzz(func(t *testing.T, data []byte) {
		pes, err := ParsePESHeader(data)
		if err != nil {
			return
		}
		if len(pes.Data) > len(data) {
			t.Fatalf("data length %d exceeds payload %d", len(pes.Data), len(data))
		}
	})
}
