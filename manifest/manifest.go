// Copyright 2026 The Tapscope Authors
// SPDX-License-Identifier: Apache-2.0

// Package manifest loads and validates the tap manifest: the document
// describing which probe groups the synthesized hardware exposes.
//
// The manifest is authored as JSONC (JSON extended with // line
// comments, /* block comments */, and trailing commas):
//
//	{
//	  "taps": [
//	    {
//	      "id": 0,
//	      "width": 8,
//	      "path": "core.cache",
//	      "signals": [["valid", 1], ["data", 7]],
//	    },
//	  ],
//	}
//
// Signal declaration order is load-bearing: the trace decoder assigns
// captured bits to signals in reverse declaration order, and the
// waveform header declares variables in declaration order. Widths of a
// tap's signals must sum exactly to the tap's declared width.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/tapscope/tapscope/device"
)

// Signal is one named bit field within a tap's sample.
type Signal struct {
	Name  string
	Width uint32
}

// UnmarshalJSON accepts the manifest's tuple form: ["name", width].
func (s *Signal) UnmarshalJSON(data []byte) error {
	var tuple []json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return fmt.Errorf("signal must be a [name, width] pair: %w", err)
	}
	if len(tuple) != 2 {
		return fmt.Errorf("signal must be a [name, width] pair, got %d elements", len(tuple))
	}
	if err := json.Unmarshal(tuple[0], &s.Name); err != nil {
		return fmt.Errorf("signal name: %w", err)
	}
	if err := json.Unmarshal(tuple[1], &s.Width); err != nil {
		return fmt.Errorf("signal %q width: %w", s.Name, err)
	}
	return nil
}

// Tap describes one hardware probe group.
type Tap struct {
	// ID is the tap's identifier in the register command protocol.
	// Must fit the command word's 8-bit tap field.
	ID uint32 `json:"id"`

	// Width is the tap's total sample width in bits.
	Width uint64 `json:"width"`

	// Path is the tap's dotted position in the design hierarchy,
	// e.g. "core.cache".
	Path string `json:"path"`

	// Signals subdivides each sample into named bit fields, in
	// declaration order.
	Signals []Signal `json:"signals"`
}

// Manifest is the full set of taps the hardware exposes.
type Manifest struct {
	Taps []Tap `json:"taps"`
}

// Validate checks the manifest's structural invariants. All findings
// are reported, not just the first.
func (m *Manifest) Validate() error {
	var errs []error

	seen := make(map[uint32]bool)
	for i := range m.Taps {
		tap := &m.Taps[i]

		if tap.ID > device.MaxTapID {
			errs = append(errs, fmt.Errorf("tap %d: identifier exceeds protocol maximum %d", tap.ID, device.MaxTapID))
		}
		if seen[tap.ID] {
			errs = append(errs, fmt.Errorf("tap %d: duplicate identifier", tap.ID))
		}
		seen[tap.ID] = true

		if tap.Path == "" {
			errs = append(errs, fmt.Errorf("tap %d: path is required", tap.ID))
		} else {
			for _, segment := range strings.Split(tap.Path, ".") {
				if segment == "" {
					errs = append(errs, fmt.Errorf("tap %d: path %q has an empty segment", tap.ID, tap.Path))
					break
				}
			}
		}

		if len(tap.Signals) == 0 {
			errs = append(errs, fmt.Errorf("tap %d: at least one signal is required", tap.ID))
		}
		var sum uint64
		for _, signal := range tap.Signals {
			if signal.Name == "" {
				errs = append(errs, fmt.Errorf("tap %d: signal name is required", tap.ID))
			}
			if signal.Width == 0 {
				errs = append(errs, fmt.Errorf("tap %d: signal %q has zero width", tap.ID, signal.Name))
			}
			sum += uint64(signal.Width)
		}
		if sum != tap.Width {
			errs = append(errs, fmt.Errorf("tap %d: signal widths sum to %d, declared width is %d", tap.ID, sum, tap.Width))
		}
	}

	return errors.Join(errs...)
}

// Parse strips JSONC comments and trailing commas from data, then
// unmarshals and validates the manifest.
func Parse(data []byte) (*Manifest, error) {
	stripped := jsonc.ToJSON(data)

	var m Manifest
	if err := json.Unmarshal(stripped, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	return &m, nil
}

// Load reads a JSONC manifest file from disk and parses it. Returns a
// descriptive error if the file cannot be read or the document is
// malformed.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}
