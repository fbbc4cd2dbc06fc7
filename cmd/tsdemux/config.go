package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/zsiec/tsdemux/internal/extract"
	"github.com/zsiec/tsdemux/mpegts"
)

type config struct {
	Input       string
	Targets     []extract.Target
	Mode        extract.Mode
	Strict      bool
	Captions    bool
	Verbose     bool
	DialTimeout time.Duration
	Fingerprint string
}

// targetList collects repeated -pid flags.
type targetList struct {
	targets []extract.Target
	seen    map[uint16]bool
}

func (l *targetList) String() string {
	parts := make([]string, len(l.targets))
	for i, t := range l.targets {
		parts[i] = fmt.Sprintf("%d=%s", t.PID, t.Output)
	}
	return strings.Join(parts, ",")
}

// Set parses PID or PID=URI. Without a URI the output is pid<N>.es in the
// working directory.
func (l *targetList) Set(v string) error {
	pidStr, output, _ := strings.Cut(v, "=")
	pid, err := parsePID(pidStr)
	if err != nil {
		return err
	}
	if l.seen == nil {
		l.seen = make(map[uint16]bool)
	}
	if l.seen[pid] {
		return fmt.Errorf("PID %d given more than once", pid)
	}
	l.seen[pid] = true
	if output == "" {
		output = fmt.Sprintf("pid%d.es", pid)
	}
	l.targets = append(l.targets, extract.Target{PID: pid, Output: output})
	return nil
}

func parsePID(s string) (uint16, error) {
	digits, base := strings.TrimSpace(s), 10
	if rest, ok := strings.CutPrefix(strings.ToLower(digits), "0x"); ok {
		digits, base = rest, 16
	}
	v, err := strconv.ParseUint(digits, base, 16)
	if err != nil || v > mpegts.MaxPID {
		return 0, fmt.Errorf("invalid PID %q (want 0..%d, decimal or 0x hex)", s, mpegts.MaxPID)
	}
	return uint16(v), nil
}

func envOr(getenv func(string) string, key, fallback string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return fallback
}

// envBool parses a boolean environment variable. Unset means false.
func envBool(getenv func(string) string, key string) (bool, error) {
	v := getenv(key)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q", key, v)
	}
	return b, nil
}

// parseConfig reads flags from args, falling back to TSDEMUX_* environment
// variables for the settings that have one.
func parseConfig(args []string, getenv func(string) string, stderr io.Writer) (*config, error) {
	fs := flag.NewFlagSet("tsdemux", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: tsdemux -i INPUT -pid PID[=OUTPUT] [-pid ...] [flags]\n\n")
		fmt.Fprintf(stderr, "INPUT is a file, - for stdin, srt://host:port[?streamid=ID] or http(s)://...\n")
		fmt.Fprintf(stderr, "OUTPUT is a file, - for stdout or quic://host:port\n\n")
		fs.PrintDefaults()
	}

	strictDefault, err := envBool(getenv, "TSDEMUX_STRICT_AF")
	if err != nil {
		return nil, err
	}

	var targets targetList
	cfg := &config{}
	var mode, dialTimeout string
	fs.StringVar(&cfg.Input, "i", envOr(getenv, "TSDEMUX_INPUT", ""), "input URI (env TSDEMUX_INPUT)")
	fs.Var(&targets, "pid", "PID to extract as PID[=OUTPUT]; repeatable")
	fs.StringVar(&mode, "mode", envOr(getenv, "TSDEMUX_MODE", "es"), "output mode: raw, es or pes (env TSDEMUX_MODE)")
	fs.BoolVar(&cfg.Strict, "strict", strictDefault, "fail on adaptation field overruns (env TSDEMUX_STRICT_AF)")
	fs.BoolVar(&cfg.Captions, "captions", false, "decode CEA-608 captions from video PES units")
	fs.BoolVar(&cfg.Verbose, "v", false, "debug logging, one line per packet")
	fs.StringVar(&dialTimeout, "dial-timeout", envOr(getenv, "TSDEMUX_DIAL_TIMEOUT", "10s"), "SRT and QUIC connect timeout (env TSDEMUX_DIAL_TIMEOUT)")
	fs.StringVar(&cfg.Fingerprint, "quic-fingerprint", envOr(getenv, "TSDEMUX_QUIC_FINGERPRINT", ""), "pinned base64 SHA-256 certificate fingerprint for quic:// outputs (env TSDEMUX_QUIC_FINGERPRINT)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if cfg.Input == "" {
		return nil, errors.New("no input: use -i or TSDEMUX_INPUT")
	}
	if len(targets.targets) == 0 {
		return nil, errors.New("no PIDs: use -pid at least once")
	}
	cfg.Targets = targets.targets

	if cfg.Mode, err = extract.ParseMode(mode); err != nil {
		return nil, err
	}
	if cfg.DialTimeout, err = time.ParseDuration(dialTimeout); err != nil || cfg.DialTimeout <= 0 {
		return nil, fmt.Errorf("invalid -dial-timeout %q", dialTimeout)
	}
	return cfg, nil
}
