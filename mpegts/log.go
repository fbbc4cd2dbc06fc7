package mpegts

import "log/slog"

// LogValue renders the header fields for structured logging.
func (h PacketHeader) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("pid", int(h.PID)),
		slog.Bool("tei", h.TransportErrorIndicator),
		slog.Bool("pusi", h.PayloadUnitStartIndicator),
		slog.Bool("priority", h.TransportPriority),
		slog.Int("tsc", int(h.TransportScramblingControl)),
		slog.Int("afc", int(h.AdaptationFieldControl)),
		slog.Int("cc", int(h.ContinuityCounter)),
	)
}

func (af *AdaptationField) LogValue() slog.Value {
	if af == nil {
		return slog.Value{}
	}
	return slog.GroupValue(
		slog.Int("length", int(af.Length)),
		slog.Bool("discontinuity", af.Discontinuity),
		slog.Bool("random_access", af.RandomAccess),
		slog.Bool("stream_priority", af.StreamPriority),
		slog.Bool("pcr", af.PCRFlag),
		slog.Bool("opcr", af.OPCRFlag),
		slog.Bool("splicing_point", af.SplicingPointFlag),
		slog.Bool("private_data", af.TransportPrivateDataFlag),
		slog.Bool("extension", af.ExtensionFlag),
		slog.Int("stuffing", af.StuffingBytes()),
	)
}

func (h *PESHeader) LogValue() slog.Value {
	if h == nil {
		return slog.Value{}
	}
	attrs := []slog.Attr{
		slog.Int("stream_id", int(h.StreamID)),
		slog.Int("length", int(h.PacketLength)),
	}
	if opt := h.Optional; opt != nil {
		if opt.PTS != nil {
			attrs = append(attrs, slog.Int64("pts", opt.PTS.Base), slog.Duration("pts_time", opt.PTS.Duration()))
		}
		if opt.DTS != nil {
			attrs = append(attrs, slog.Int64("dts", opt.DTS.Base))
		}
	}
	return slog.GroupValue(attrs...)
}

// LogValue summarizes a unit with its declared, header and data lengths.
// Unbounded units have no header length.
func (p *PESPacket) LogValue() slog.Value {
	if p == nil {
		return slog.Value{}
	}
	attrs := []slog.Attr{
		slog.Any("header", p.Header),
		slog.Int("packet_length", p.PacketLength()),
	}
	if p.PacketLength() > 0 {
		attrs = append(attrs, slog.Int("header_length", p.HeaderLength()))
	}
	attrs = append(attrs, slog.Int("data_length", len(p.Data)))
	return slog.GroupValue(attrs...)
}
