package mpegts

import (
	"errors"
	"fmt"
)

// Sentinel errors for transport stream parsing. The typed errors below wrap
// one of these so callers can match failure modes with errors.Is.
var (
	ErrBadSyncByte       = errors.New("mpegts: bad sync byte")
	ErrTruncated         = errors.New("mpegts: truncated packet")
	ErrAdaptationOverrun = errors.New("mpegts: adaptation field overrun")
)

// FormatError reports a packet that does not begin with the sync byte. It is
// fatal for the whole stream; no resynchronization is attempted.
type FormatError struct {
	Got byte
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("bad sync byte 0x%02X", e.Got)
}

func (e *FormatError) Unwrap() error {
	return ErrBadSyncByte
}

// TruncatedPacketError reports a structure that needs more bytes than the
// packet or payload holds.
type TruncatedPacketError struct {
	Field string
	Need  int
	Have  int
}

func (e *TruncatedPacketError) Error() string {
	return fmt.Sprintf("truncated %s: need %d bytes, have %d", e.Field, e.Need, e.Have)
}

func (e *TruncatedPacketError) Unwrap() error {
	return ErrTruncated
}

// AdaptationFieldError reports an adaptation field whose declared length is
// shorter than its optional subfields. It is only returned in strict mode;
// otherwise the remainder is clamped to zero.
type AdaptationFieldError struct {
	Length    uint8
	Remainder int
}

func (e *AdaptationFieldError) Error() string {
	return fmt.Sprintf("adaptation field length %d overrun by %d bytes", e.Length, -e.Remainder)
}

func (e *AdaptationFieldError) Unwrap() error {
	return ErrAdaptationOverrun
}

// PacketError records which packet of a stream failed to parse.
type PacketError struct {
	Index  int
	Offset int64
	Err    error
}

func (e *PacketError) Error() string {
	return fmt.Sprintf("mpegts: packet %d at offset %d: %v", e.Index, e.Offset, e.Err)
}

func (e *PacketError) Unwrap() error {
	return e.Err
}
