// Copyright 2026 The Tapscope Authors
// SPDX-License-Identifier: Apache-2.0

package scope

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/tapscope/tapscope/config"
	"github.com/tapscope/tapscope/device"
	"github.com/tapscope/tapscope/lib/clock"
	"github.com/tapscope/tapscope/manifest"
	"github.com/tapscope/tapscope/trace"
	"github.com/tapscope/tapscope/vcd"
)

// WidthMismatchError reports a tap whose width on the device differs
// from the manifest's declaration. Decoding with the wrong width
// would misassign every bit after the first divergence, so the
// session refuses to start.
type WidthMismatchError struct {
	Tap      uint32
	Manifest uint64
	Reported uint64
}

func (e *WidthMismatchError) Error() string {
	return fmt.Sprintf("scope: tap %d is %d bits wide on the device but %d in the manifest",
		e.Tap, e.Reported, e.Manifest)
}

// Session is a running capture. One session owns the debug unit's
// register bus from Start until Stop returns.
type Session struct {
	device   *device.Client
	manifest *manifest.Manifest
	cfg      config.Config
	clock    clock.Clock
	logger   *slog.Logger

	startCycle uint64
	stopCycle  uint64
	armStart   bool
	armStop    bool

	// mu serializes Stop against the watchdog and guards running.
	// The register protocol has no concurrent framing, so the whole
	// drain runs under it.
	mu        sync.Mutex
	running   bool
	watchdog  *clock.Timer
	startedAt time.Time
}

// Option configures a Session before it starts.
type Option func(*Session)

// WithLogger sets the session's logger. The default is
// slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(session *Session) {
		if logger != nil {
			session.logger = logger
		}
	}
}

// WithClock sets the clock used for the watchdog and elapsed-time
// reporting. The default is clock.Real(). Tests inject clock.Fake()
// for deterministic control.
func WithClock(c clock.Clock) Option {
	return func(session *Session) {
		session.clock = c
	}
}

// WithStartCycle programs every tap to begin capturing at the given
// cycle. Without it the hardware's configured trigger stands.
func WithStartCycle(cycle uint64) Option {
	return func(session *Session) {
		session.startCycle = cycle
		session.armStart = true
	}
}

// WithStopCycle programs every tap to stop capturing at the given
// cycle. Without it taps run until Stop halts them.
func WithStopCycle(cycle uint64) Option {
	return func(session *Session) {
		session.stopCycle = cycle
		session.armStop = true
	}
}

// Start opens a capture session on the debug unit behind bus.
//
// It loads the manifest named by cfg.ManifestPath, verifies each
// tap's width against the hardware, then arms the taps: capture
// depth when cfg.CaptureDepth is nonzero, stop and start cycles when
// the corresponding options were given. No register is written until
// the whole manifest has validated. A zero cfg.Timeout or empty
// cfg.OutputPath falls back to the default; other zero fields are
// honored as configured.
//
// The returned session's watchdog stops the capture when cfg.Timeout
// elapses without a manual Stop.
func Start(bus device.RegisterBus, cfg config.Config, options ...Option) (*Session, error) {
	session := &Session{
		device: device.NewClient(bus),
		cfg:    normalize(cfg),
		clock:  clock.Real(),
		logger: slog.Default(),
	}
	for _, option := range options {
		option(session)
	}

	if session.cfg.ManifestPath == "" {
		return nil, errors.New("scope: no manifest path configured")
	}
	m, err := manifest.Load(session.cfg.ManifestPath)
	if err != nil {
		return nil, err
	}
	session.manifest = m

	for _, tap := range m.Taps {
		width, err := session.device.Width(tap.ID)
		if err != nil {
			return nil, err
		}
		if width != tap.Width {
			return nil, &WidthMismatchError{Tap: tap.ID, Manifest: tap.Width, Reported: width}
		}
	}

	for _, tap := range m.Taps {
		if session.cfg.CaptureDepth > 0 {
			if err := session.device.SetCaptureDepth(tap.ID, session.cfg.CaptureDepth); err != nil {
				return nil, err
			}
		}
		if session.armStop {
			if err := session.device.SetStopCycle(tap.ID, session.stopCycle); err != nil {
				return nil, err
			}
		}
		if session.armStart {
			if err := session.device.SetStartCycle(tap.ID, session.startCycle); err != nil {
				return nil, err
			}
		}
	}
	if session.cfg.CaptureDepth > 0 {
		session.logger.Debug("capture depth programmed", "depth", session.cfg.CaptureDepth)
	}
	if session.armStop {
		session.logger.Debug("stop cycle armed", "cycle", session.stopCycle)
	}
	if session.armStart {
		session.logger.Debug("start cycle armed", "cycle", session.startCycle)
	}

	// The watchdog callback takes session.mu, so a short timeout
	// firing immediately still observes the fully armed session.
	session.mu.Lock()
	session.running = true
	session.startedAt = session.clock.Now()
	session.watchdog = session.clock.AfterFunc(session.cfg.Timeout, session.timeoutStop)
	session.mu.Unlock()

	session.logger.Info("capture session started",
		"taps", len(m.Taps),
		"manifest", session.cfg.ManifestPath,
		"output", session.cfg.OutputPath,
		"timeout", session.cfg.Timeout)
	return session, nil
}

// normalize fills the config fields whose zero value cannot run: a
// session needs a finite timeout for the watchdog and somewhere to
// write.
func normalize(cfg config.Config) config.Config {
	defaults := config.Default()
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.OutputPath == "" {
		cfg.OutputPath = defaults.OutputPath
	}
	return cfg
}

// Running reports whether the session is still capturing.
func (session *Session) Running() bool {
	session.mu.Lock()
	defer session.mu.Unlock()
	return session.running
}

// Stop halts capture on every tap, drains the capture buffers, and
// writes the merged waveform to the configured output path. The
// first call does all the work; once it has begun, every later call
// returns nil without touching the device, whether the drain
// succeeded or not — the buffers read destructively, so there is
// nothing left to retry.
func (session *Session) Stop() error {
	session.mu.Lock()
	defer session.mu.Unlock()

	if !session.running {
		return nil
	}
	session.running = false
	session.watchdog.Stop()

	for _, tap := range session.manifest.Taps {
		if err := session.device.SetStopCycle(tap.ID, 0); err != nil {
			return err
		}
	}

	taps := trace.NewTapStates(session.manifest)
	for _, tap := range taps {
		count, err := session.device.SampleCount(tap.ID)
		if err != nil {
			return err
		}
		if count == 0 {
			session.logger.Info("tap captured nothing", "tap", tap.ID, "path", tap.Path)
			continue
		}
		start, err := session.device.StartCycle(tap.ID)
		if err != nil {
			return err
		}
		// The first word of a tap's data stream is its initial delay.
		delta, err := session.device.NextWord(tap.ID)
		if err != nil {
			return err
		}
		tap.Samples = count
		tap.CycleTime = 1 + start + delta
		session.logger.Info("tap capture summary",
			"tap", tap.ID,
			"path", tap.Path,
			"width", tap.Width,
			"samples", count,
			"first_cycle", tap.CycleTime)
	}

	cycles, err := session.writeWaveform(taps)
	if err != nil {
		return err
	}

	session.logger.Info("capture session complete",
		"cycles", cycles,
		"output", session.cfg.OutputPath,
		"elapsed", session.clock.Now().Sub(session.startedAt))
	return nil
}

// timeoutStop is the watchdog callback.
func (session *Session) timeoutStop() {
	session.logger.Warn("session timeout reached, stopping capture",
		"timeout", session.cfg.Timeout)
	if err := session.Stop(); err != nil {
		session.logger.Error("timeout stop failed", "error", err)
	}
}

// writeWaveform decodes and merges every tap into a VCD file at the
// configured output path. Returns the trace's final cycle count.
func (session *Session) writeWaveform(taps []*trace.TapState) (uint64, error) {
	out, err := os.Create(session.cfg.OutputPath)
	if err != nil {
		return 0, fmt.Errorf("create waveform output: %w", err)
	}
	defer out.Close()

	var sink io.Writer = out
	var gz *gzip.Writer
	if strings.HasSuffix(session.cfg.OutputPath, ".gz") {
		gz = gzip.NewWriter(out)
		sink = gz
	}

	writer := vcd.NewWriter(sink)
	if err := writer.WriteHeader(trace.Declarations(taps)); err != nil {
		return 0, err
	}

	decoder := trace.NewDecoder(session.device, writer, session.logger, session.cfg.ProgressInterval)
	merger := &trace.Merger{GapCycles: session.cfg.GapCycles}
	cycles, err := merger.Drain(taps, decoder, writer)
	if err != nil {
		return 0, err
	}
	if err := writer.Flush(); err != nil {
		return 0, err
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			return 0, err
		}
	}
	if err := out.Close(); err != nil {
		return 0, fmt.Errorf("close waveform output: %w", err)
	}
	return cycles, nil
}
