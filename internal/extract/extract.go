// Package extract runs one demultiplexing pass over a transport stream,
// fanning packets out to one assembler per target PID and writing the
// results to sinks.
package extract

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/zsiec/tsdemux/internal/captions"
	"github.com/zsiec/tsdemux/mpegts"
)

// Mode selects what is written for each target PID.
type Mode int

const (
	// ModeRaw writes the opaque concatenation of every payload.
	ModeRaw Mode = iota
	// ModeES writes the payloads with PES headers stripped.
	ModeES
	// ModePES reassembles complete PES units and writes their data.
	ModePES
)

func (m Mode) String() string {
	switch m {
	case ModeRaw:
		return "raw"
	case ModeES:
		return "es"
	case ModePES:
		return "pes"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode parses the name of a mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "raw":
		return ModeRaw, nil
	case "es":
		return ModeES, nil
	case "pes":
		return ModePES, nil
	default:
		return 0, fmt.Errorf("unknown mode %q (want raw, es or pes)", s)
	}
}

// Target names one PID to extract and the URI its output goes to.
type Target struct {
	PID    uint16
	Output string
}

// OpenSinkFunc opens the output for a target.
type OpenSinkFunc func(ctx context.Context, uri string) (io.WriteCloser, error)

// Job describes one extraction run.
type Job struct {
	Input    io.Reader
	Targets  []Target
	Mode     Mode
	Strict   bool
	Captions bool
	OpenSink OpenSinkFunc
	Log      *slog.Logger
}

// TargetResult reports what was extracted for one target.
type TargetResult struct {
	Target
	Bytes    int64
	Packets  int
	Units    int
	Orphans  int
	Captions int

	// CaptionSEIs and CaptionPairs count the caption-bearing SEI messages
	// and CEA-608 byte pairs seen when caption decoding is enabled.
	CaptionSEIs  int
	CaptionPairs int
}

// Result reports the outcome of a run.
type Result struct {
	Packets int
	Targets []TargetResult
}

// Run executes the job. Sinks are opened before the first packet is read and
// closed when the input ends, even on error.
func Run(ctx context.Context, job Job) (_ *Result, err error) {
	log := job.Log
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "extract", "mode", job.Mode.String())

	if err := validate(job); err != nil {
		return nil, err
	}

	writers, err := openSinks(ctx, job)
	if err != nil {
		return nil, err
	}

	handlers := make(map[uint16]*handler, len(job.Targets))
	ordered := make([]*handler, len(job.Targets))
	for i, t := range job.Targets {
		h := newHandler(t, writers[i], job, log)
		handlers[t.PID] = h
		ordered[i] = h
	}
	defer func() {
		if cerr := closeSinks(ordered); cerr != nil && err == nil {
			err = cerr
		}
	}()

	pr := mpegts.NewPacketReader(ctx, job.Input,
		mpegts.ReaderOptParsePES(job.Mode != ModeRaw),
		mpegts.ReaderOptStrictAdaptationField(job.Strict),
		mpegts.ReaderOptLogger(log),
	)

	debug := log.Enabled(ctx, slog.LevelDebug)
	for {
		pkt, err := pr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return result(pr.Count(), ordered), err
		}
		if debug {
			log.Debug("packet",
				"index", pr.Count()-1,
				"header", pkt.Header,
				"adaptation", pkt.AdaptationField,
				"pes", pkt.PES)
		}

		h, ok := handlers[pkt.Header.PID]
		if !ok {
			continue
		}
		if err := h.add(pkt); err != nil {
			index := pr.Count() - 1
			return result(pr.Count(), ordered), &mpegts.PacketError{Index: index, Offset: int64(index) * mpegts.PacketSize, Err: err}
		}
	}

	for _, h := range ordered {
		if err := h.flush(); err != nil {
			return result(pr.Count(), ordered), err
		}
	}

	res := result(pr.Count(), ordered)
	for _, tr := range res.Targets {
		log.Info("target done",
			"pid", tr.PID,
			"output", tr.Output,
			"bytes", tr.Bytes,
			"packets", tr.Packets,
			"units", tr.Units,
			"orphans", tr.Orphans,
			"captions", tr.Captions,
			"caption_seis", tr.CaptionSEIs,
			"caption_pairs", tr.CaptionPairs)
	}
	return res, nil
}

func validate(job Job) error {
	if job.Input == nil {
		return errors.New("extract: no input")
	}
	if job.OpenSink == nil {
		return errors.New("extract: no sink opener")
	}
	if len(job.Targets) == 0 {
		return errors.New("extract: no target PIDs")
	}
	seen := make(map[uint16]bool, len(job.Targets))
	for _, t := range job.Targets {
		if t.PID > mpegts.MaxPID {
			return fmt.Errorf("extract: PID %d out of range", t.PID)
		}
		if seen[t.PID] {
			return fmt.Errorf("extract: duplicate PID %d", t.PID)
		}
		seen[t.PID] = true
	}
	return nil
}

// openSinks opens every target's output concurrently. On failure the sinks
// that did open are closed again.
func openSinks(ctx context.Context, job Job) ([]io.WriteCloser, error) {
	writers := make([]io.WriteCloser, len(job.Targets))
	g, gctx := errgroup.WithContext(ctx)
	for i, t := range job.Targets {
		g.Go(func() error {
			w, err := job.OpenSink(gctx, t.Output)
			if err != nil {
				return fmt.Errorf("extract: open output for PID %d: %w", t.PID, err)
			}
			writers[i] = w
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, w := range writers {
			if w != nil {
				w.Close()
			}
		}
		return nil, err
	}
	return writers, nil
}

func closeSinks(handlers []*handler) error {
	var g errgroup.Group
	for _, h := range handlers {
		g.Go(h.close)
	}
	return g.Wait()
}

func result(packets int, handlers []*handler) *Result {
	res := &Result{Packets: packets, Targets: make([]TargetResult, len(handlers))}
	for i, h := range handlers {
		res.Targets[i] = h.result()
	}
	return res
}

// handler owns the assemblers and the output of one target PID.
type handler struct {
	target Target
	mode   Mode
	log    *slog.Logger

	sink io.WriteCloser
	buf  *bufio.Writer

	raw      *mpegts.RawAssembler
	pes      *mpegts.PESAssembler
	inspect  *captions.Inspector
	captions int
	written  int64
}

func newHandler(t Target, sink io.WriteCloser, job Job, log *slog.Logger) *handler {
	h := &handler{
		target: t,
		mode:   job.Mode,
		log:    log.With("pid", t.PID),
		sink:   sink,
		buf:    bufio.NewWriterSize(sink, 64*1024),
	}
	if job.Mode != ModePES {
		h.raw = mpegts.NewRawAssembler(t.PID, h.buf)
	}
	if job.Mode == ModePES || job.Captions {
		h.pes = mpegts.NewPESAssembler(t.PID)
	}
	if job.Captions {
		h.inspect = captions.NewInspector(log)
	}
	return h
}

func (h *handler) add(pkt *mpegts.Packet) error {
	if h.raw != nil {
		if err := h.raw.Add(pkt); err != nil {
			return err
		}
	}
	if h.pes == nil {
		return nil
	}
	unit, err := h.pes.Add(pkt)
	if err != nil {
		return err
	}
	return h.unit(unit)
}

func (h *handler) flush() error {
	if h.pes == nil {
		return nil
	}
	return h.unit(h.pes.Flush())
}

func (h *handler) unit(u *mpegts.PESPacket) error {
	if u == nil {
		return nil
	}
	h.log.Debug("pes unit", "unit", u)

	if h.inspect != nil {
		for _, c := range h.inspect.Inspect(u) {
			h.captions++
			h.log.Info("caption", "channel", c.Channel, "pts", c.PTS, "text", c.Text)
		}
	}

	if h.mode != ModePES {
		return nil
	}
	n, err := h.buf.Write(u.Data)
	h.written += int64(n)
	if err != nil {
		return fmt.Errorf("extract: write PID %d: %w", h.target.PID, err)
	}
	return nil
}

func (h *handler) close() error {
	ferr := h.buf.Flush()
	cerr := h.sink.Close()
	if ferr != nil {
		return fmt.Errorf("extract: flush PID %d: %w", h.target.PID, ferr)
	}
	if cerr != nil {
		return fmt.Errorf("extract: close PID %d: %w", h.target.PID, cerr)
	}
	return nil
}

func (h *handler) result() TargetResult {
	tr := TargetResult{Target: h.target, Captions: h.captions}
	if h.raw != nil {
		tr.Bytes = h.raw.Written()
		tr.Packets = h.raw.Packets()
	} else {
		tr.Bytes = h.written
	}
	if h.pes != nil {
		tr.Units = h.pes.Units()
		tr.Orphans = h.pes.Orphans()
		if h.raw == nil {
			tr.Packets = h.pes.Packets()
		}
	}
	if h.inspect != nil {
		tr.CaptionSEIs = h.inspect.SEIs()
		tr.CaptionPairs = h.inspect.Pairs()
	}
	return tr
}
