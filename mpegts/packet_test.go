package mpegts

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"github.com/zsiec/tsdemux/internal/tstest"
)

func TestParsePacket_Normal(t *testing.T) {
	t.Parallel()
	payload := []byte{0x01, 0x02, 0x03}
	buf := tstest.MakePacket(0x100, 5, false, payload)

	p, err := ParsePacket(buf, ParseOptions{})
	if err != nil {
		t.Fatal(err)
	}

	if p.Header.PID != 0x100 {
		t.Errorf("PID = %d, want %d", p.Header.PID, 0x100)
	}
	if p.Header.ContinuityCounter != 5 {
		t.Errorf("CC = %d, want 5", p.Header.ContinuityCounter)
	}
	if p.Header.PayloadUnitStartIndicator {
		t.Error("PUSI should be false")
	}
	if p.Header.AdaptationFieldControl != AFCPayloadOnly {
		t.Errorf("AFC = %d, want %d", p.Header.AdaptationFieldControl, AFCPayloadOnly)
	}
	if p.AdaptationField != nil {
		t.Error("adaptation field should be nil")
	}
	if len(p.Payload) != 184 {
		t.Errorf("payload length = %d, want 184", len(p.Payload))
	}
	if !bytes.Equal(p.Payload[:3], payload) {
		t.Error("payload content mismatch")
	}
	if p.PES != nil {
		t.Error("PES should not be parsed by default")
	}
}

func TestParsePacket_HeaderBits(t *testing.T) {
	t.Parallel()
	buf := tstest.MakePacket(0x1E1, 15, true, nil)
	buf[1] |= 0x80 | 0x20 // TEI, transport priority
	buf[3] |= 0x80        // scrambling control 0b10

	p, err := ParsePacket(buf, ParseOptions{})
	if err != nil {
		t.Fatal(err)
	}
	h := p.Header
	if !h.TransportErrorIndicator {
		t.Error("TEI should be true")
	}
	if !h.PayloadUnitStartIndicator {
		t.Error("PUSI should be true")
	}
	if !h.TransportPriority {
		t.Error("transport priority should be true")
	}
	if h.PID != 0x1E1 {
		t.Errorf("PID = 0x%X, want 0x1E1", h.PID)
	}
	if h.TransportScramblingControl != 2 {
		t.Errorf("TSC = %d, want 2", h.TransportScramblingControl)
	}
	if h.ContinuityCounter != 15 {
		t.Errorf("CC = %d, want 15", h.ContinuityCounter)
	}
}

func TestParsePacket_PayloadOffset(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		buf        []byte
		wantAFC    AdaptationFieldControl
		wantPayLen int
		noPayload  bool
	}{
		{"payload_only", tstest.MakePacket(0x100, 0, false, []byte{0xAA}), AFCPayloadOnly, 184, false},
		{"af_0_bytes", tstest.MakePacketWithAF(0x100, 0, false, tstest.StuffingAF(0), []byte{0xAA}), AFCAdaptationAndPayload, 188 - 5, false},
		{"af_1_byte", tstest.MakePacketWithAF(0x100, 0, false, tstest.StuffingAF(1), []byte{0xAA}), AFCAdaptationAndPayload, 188 - 6, false},
		{"af_10_bytes", tstest.MakePacketWithAF(0x100, 0, false, tstest.StuffingAF(10), []byte{0xBB}), AFCAdaptationAndPayload, 188 - 15, false},
		{"af_182_bytes", tstest.MakePacketWithAF(0x100, 0, false, tstest.StuffingAF(182), []byte{0xCC}), AFCAdaptationAndPayload, 1, false},
		{"af_183_bytes_no_payload", tstest.MakePacketWithAF(0x100, 0, false, tstest.StuffingAF(183), nil), AFCAdaptationOnly, 0, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			p, err := ParsePacket(tc.buf, ParseOptions{})
			if err != nil {
				t.Fatal(err)
			}
			if p.Header.AdaptationFieldControl != tc.wantAFC {
				t.Errorf("AFC = %d, want %d", p.Header.AdaptationFieldControl, tc.wantAFC)
			}
			if tc.noPayload {
				if p.Payload != nil {
					t.Errorf("expected no payload, got %d bytes", len(p.Payload))
				}
				if p.Header.HasPayload() {
					t.Error("HasPayload should be false")
				}
				return
			}
			if len(p.Payload) != tc.wantPayLen {
				t.Errorf("payload length = %d, want %d", len(p.Payload), tc.wantPayLen)
			}
			if offset := PacketSize - len(p.Payload); p.AdaptationField != nil && offset != p.AdaptationField.PayloadOffset() {
				t.Errorf("payload offset = %d, want %d", offset, p.AdaptationField.PayloadOffset())
			}
		})
	}
}

func TestParsePacket_ReservedAFC(t *testing.T) {
	t.Parallel()
	buf := tstest.MakePacket(0x100, 0, false, []byte{0x01})
	buf[3] &^= 0x30

	p, err := ParsePacket(buf, ParseOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if p.Payload != nil || p.AdaptationField != nil {
		t.Error("reserved AFC should carry neither payload nor adaptation field")
	}
}

func TestParsePacket_AdaptationFieldTooLong(t *testing.T) {
	t.Parallel()
	buf := tstest.MakePacket(0x100, 0, false, nil)
	buf[3] = 0x30
	buf[4] = 200

	_, err := ParsePacket(buf, ParseOptions{})
	if !errors.Is(err, ErrTruncated) {
		t.Errorf("expected ErrTruncated, got %v", err)
	}
}

func TestParsePacket_BadSyncByte(t *testing.T) {
	t.Parallel()
	valid := tstest.MakePacket(0x100, 0, true, []byte{0x00, 0x00, 0x01, 0xE0})
	for b := 0; b < 256; b++ {
		if b == SyncByte {
			continue
		}
		buf := append([]byte(nil), valid...)
		buf[0] = byte(b)
		_, err := ParsePacket(buf, ParseOptions{ParsePES: true})
		if !errors.Is(err, ErrBadSyncByte) {
			t.Fatalf("sync 0x%02X: expected ErrBadSyncByte, got %v", b, err)
		}
		var fe *FormatError
		if !errors.As(err, &fe) || fe.Got != byte(b) {
			t.Fatalf("sync 0x%02X: expected *FormatError with Got set, got %v", b, err)
		}
	}
}

func TestParsePacket_WrongSize(t *testing.T) {
	t.Parallel()
	_, err := ParsePacket([]byte{0x47, 0x00, 0x00}, ParseOptions{})
	var te *TruncatedPacketError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TruncatedPacketError, got %v", err)
	}
	if te.Need != PacketSize || te.Have != 3 {
		t.Errorf("need/have = %d/%d, want %d/3", te.Need, te.Have, PacketSize)
	}
}

func TestParsePacket_MaxPID(t *testing.T) {
	t.Parallel()
	buf := tstest.MakePacket(MaxPID, 0, false, nil)
	p, err := ParsePacket(buf, ParseOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if p.Header.PID != MaxPID {
		t.Errorf("PID = 0x%X, want 0x%X", p.Header.PID, MaxPID)
	}
}

func TestParsePacket_Idempotent(t *testing.T) {
	t.Parallel()
	pes := tstest.BuildPES(tstest.PES{StreamID: 0xE0, PTS: 2790000, DTS: 2782492, HasPTS: true, HasDTS: true}, []byte{0x65, 0x88})
	af := []byte{0x07, 0x50, 0, 0, 0, 0, 0, 0}
	buf := tstest.MakePacketWithAF(0x100, 7, true, af, pes)

	opts := ParseOptions{ParsePES: true}
	first, err := ParsePacket(buf, opts)
	if err != nil {
		t.Fatal(err)
	}
	second, err := ParsePacket(buf, opts)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("re-parse differs:\n%+v\n%+v", first, second)
	}

	// The packet must not alias the input buffer.
	buf[len(buf)-1] ^= 0xFF
	if first.Payload[len(first.Payload)-1] == buf[len(buf)-1] {
		t.Error("payload aliases the input buffer")
	}
}

func TestParsePacket_StrictAdaptationField(t *testing.T) {
	t.Parallel()
	af := []byte{0x02, 0x10, 0x00}
	buf := tstest.MakePacketWithAF(0x100, 0, false, af, []byte{0x01})

	p, err := ParsePacket(buf, ParseOptions{})
	if err != nil {
		t.Fatalf("tolerant mode should clamp: %v", err)
	}
	if p.AdaptationField.RawStuffing != -5 {
		t.Errorf("raw stuffing = %d, want -5", p.AdaptationField.RawStuffing)
	}
	if p.AdaptationField.StuffingBytes() != 0 {
		t.Errorf("stuffing = %d, want 0", p.AdaptationField.StuffingBytes())
	}

	_, err = ParsePacket(buf, ParseOptions{StrictAdaptationField: true})
	if !errors.Is(err, ErrAdaptationOverrun) {
		t.Fatalf("expected ErrAdaptationOverrun, got %v", err)
	}
	var afe *AdaptationFieldError
	if !errors.As(err, &afe) || afe.Remainder != -5 || afe.Length != 2 {
		t.Errorf("unexpected adaptation field error: %v", err)
	}
}

func TestParsePacket_PESOnRequest(t *testing.T) {
	t.Parallel()
	data := []byte{0xAA, 0xBB, 0xCC}
	pes := tstest.BuildPES(tstest.PES{StreamID: 0xC0, PTS: 90000, HasPTS: true}, data)
	buf := tstest.MakePacket(0x101, 0, true, pes)

	raw, err := ParsePacket(buf, ParseOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if raw.PES != nil {
		t.Error("PES should be nil without ParsePES")
	}
	if !bytes.Equal(raw.Data(), raw.Payload) {
		t.Error("Data should be the opaque payload without ParsePES")
	}

	p, err := ParsePacket(buf, ParseOptions{ParsePES: true})
	if err != nil {
		t.Fatal(err)
	}
	if p.PES == nil || p.PES.Header == nil {
		t.Fatal("expected parsed PES header")
	}
	if p.PES.Header.StreamID != 0xC0 {
		t.Errorf("stream ID = 0x%02X, want 0xC0", p.PES.Header.StreamID)
	}
	// PES data starts after the 14-byte header and runs to the end of the packet.
	if !bytes.Equal(p.Data()[:3], data) {
		t.Errorf("data = % X, want % X", p.Data()[:3], data)
	}
	if len(p.Data()) != 184-14 {
		t.Errorf("data length = %d, want %d", len(p.Data()), 184-14)
	}
}

func TestParsePacket_PESOnlyOnUnitStart(t *testing.T) {
	t.Parallel()
	// A continuation payload that happens to begin with a start code.
	buf := tstest.MakePacket(0x101, 1, false, []byte{0x00, 0x00, 0x01, 0xC0, 0x00, 0x00})
	p, err := ParsePacket(buf, ParseOptions{ParsePES: true})
	if err != nil {
		t.Fatal(err)
	}
	if p.PES != nil {
		t.Error("continuation packets must not be parsed as PES headers")
	}
}
