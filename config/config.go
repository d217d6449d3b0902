// Copyright 2026 The Tapscope Authors
// SPDX-License-Identifier: Apache-2.0

// Package config resolves tapscope's runtime settings from defaults,
// an optional YAML file, and environment variables, in that order.
//
// Resolution is deliberately forgiving: a capture session about to
// talk to live hardware should not abort over one malformed setting,
// so values that fail to parse are logged and skipped rather than
// surfaced as errors.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tapscope/tapscope/trace"
)

// Environment variables consulted by Load. TAPSCOPE_CONFIG names a
// YAML file; the rest override individual settings.
const (
	EnvConfig   = "TAPSCOPE_CONFIG"
	EnvManifest = "TAPSCOPE_MANIFEST"
	EnvDepth    = "TAPSCOPE_DEPTH"
	EnvTimeout  = "TAPSCOPE_TIMEOUT"
	EnvOutput   = "TAPSCOPE_OUTPUT"
)

// Config carries every tunable of a capture session. Construct one
// with Default or Load rather than a literal, so the zero fields that
// have non-zero defaults are filled in.
type Config struct {
	// ManifestPath locates the tap manifest. Sessions refuse to
	// start while it is empty.
	ManifestPath string

	// CaptureDepth, when nonzero, is programmed into every tap's
	// capture buffer at session start. Zero leaves the hardware's
	// configured depth alone.
	CaptureDepth uint64

	// Timeout bounds the session; a watchdog force-stops the capture
	// when it elapses.
	Timeout time.Duration

	// OutputPath is where the waveform lands. A .gz suffix gzips the
	// output.
	OutputPath string

	// GapCycles is the idle-gap threshold above which the merged
	// clock collapses instead of toggling cycle by cycle.
	GapCycles uint64

	// ProgressInterval is the sample count between progress flushes
	// while draining a tap. Zero disables progress reporting.
	ProgressInterval uint64
}

// Default returns the built-in configuration, complete enough to run
// against hardware with nothing set but the manifest path.
func Default() Config {
	return Config{
		Timeout:          time.Hour,
		OutputPath:       "scope.vcd",
		GapCycles:        trace.DefaultGapCycles,
		ProgressInterval: trace.DefaultProgressInterval,
	}
}

// fileConfig mirrors Config for YAML decoding. Pointer fields
// distinguish an absent key from an explicit zero.
type fileConfig struct {
	ManifestPath     *string `yaml:"manifest_path"`
	CaptureDepth     *uint64 `yaml:"capture_depth"`
	Timeout          *string `yaml:"timeout"`
	OutputPath       *string `yaml:"output_path"`
	GapCycles        *uint64 `yaml:"gap_cycles"`
	ProgressInterval *uint64 `yaml:"progress_interval"`
}

// Load resolves the effective configuration: defaults, then the YAML
// file named by TAPSCOPE_CONFIG if set, then per-setting environment
// overrides. Load never fails; unusable values are logged to logger
// and skipped. A nil logger falls back to slog.Default().
func Load(logger *slog.Logger) Config {
	if logger == nil {
		logger = slog.Default()
	}
	cfg := Default()
	if path := os.Getenv(EnvConfig); path != "" {
		cfg.applyFile(path, logger)
	}
	cfg.applyEnvironment(logger)
	return cfg
}

func (c *Config) applyFile(path string, logger *slog.Logger) {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("config file unreadable", "path", path, "error", err)
		return
	}
	var file fileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		logger.Warn("config file malformed", "path", path, "error", err)
		return
	}

	if file.ManifestPath != nil {
		c.ManifestPath = *file.ManifestPath
	}
	if file.CaptureDepth != nil {
		c.CaptureDepth = *file.CaptureDepth
	}
	if file.Timeout != nil {
		timeout, err := ParseTimeout(*file.Timeout)
		if err != nil {
			logger.Warn("config file timeout unusable",
				"path", path, "value", *file.Timeout, "error", err)
		} else {
			c.Timeout = timeout
		}
	}
	if file.OutputPath != nil {
		c.OutputPath = *file.OutputPath
	}
	if file.GapCycles != nil {
		c.GapCycles = *file.GapCycles
	}
	if file.ProgressInterval != nil {
		c.ProgressInterval = *file.ProgressInterval
	}
}

func (c *Config) applyEnvironment(logger *slog.Logger) {
	if path := os.Getenv(EnvManifest); path != "" {
		c.ManifestPath = path
	}
	if raw := os.Getenv(EnvDepth); raw != "" {
		depth, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			logger.Warn("capture depth unusable",
				"var", EnvDepth, "value", raw, "error", err)
		} else {
			c.CaptureDepth = depth
		}
	}
	if raw := os.Getenv(EnvTimeout); raw != "" {
		timeout, err := ParseTimeout(raw)
		if err != nil {
			logger.Warn("timeout unusable",
				"var", EnvTimeout, "value", raw, "error", err)
		} else {
			c.Timeout = timeout
		}
	}
	if path := os.Getenv(EnvOutput); path != "" {
		c.OutputPath = path
	}
}

// ParseTimeout reads a session timeout. A bare integer counts as
// seconds; anything else must parse as a Go duration such as "90m"
// or "1h30m". The result must be positive.
func ParseTimeout(raw string) (time.Duration, error) {
	var timeout time.Duration
	if seconds, err := strconv.ParseUint(raw, 10, 32); err == nil {
		timeout = time.Duration(seconds) * time.Second
	} else {
		timeout, err = time.ParseDuration(raw)
		if err != nil {
			return 0, err
		}
	}
	if timeout <= 0 {
		return 0, fmt.Errorf("timeout %q must be positive", raw)
	}
	return timeout, nil
}
