// Copyright 2026 The Tapscope Authors
// SPDX-License-Identifier: Apache-2.0

package trace

import (
	"github.com/tapscope/tapscope/manifest"
	"github.com/tapscope/tapscope/vcd"
)

// SignalRef resolves one manifest signal for emission.
type SignalRef struct {
	// ID is the waveform variable identifier. Identifiers are
	// assigned once per session, starting at 1 in manifest encounter
	// order across all taps; vcd.ClockID is reserved for the clock.
	ID uint32

	Name  string
	Width uint32

	// Tap points back to the owning tap, for lookup only.
	Tap *TapState
}

// TapState tracks one tap through a drain: how many samples it
// captured, how many were read, and the absolute cycle of its next
// unread sample. Built fresh at stop time and discarded after the
// drain; never persisted across sessions.
type TapState struct {
	ID    uint32
	Width uint64
	Path  string

	// Samples is the captured sample count reported by the hardware.
	// Zero means the tap never triggered.
	Samples uint64

	// Cursor counts samples already drained. Never exceeds Samples.
	Cursor uint64

	// CycleTime is the absolute cycle of the next unread sample.
	// Non-decreasing as Cursor advances.
	CycleTime uint64

	// Signals in declaration order.
	Signals []SignalRef
}

// Exhausted reports whether the tap has no samples left to drain.
// Exhausted taps are excluded from merge selection.
func (t *TapState) Exhausted() bool {
	return t.Samples == 0 || t.Cursor >= t.Samples
}

// NewTapStates builds runtime state for every manifest tap and
// assigns the global variable identifiers: 1, 2, ... in manifest
// encounter order across all taps.
func NewTapStates(m *manifest.Manifest) []*TapState {
	states := make([]*TapState, 0, len(m.Taps))
	id := uint32(vcd.ClockID + 1)
	for _, tap := range m.Taps {
		state := &TapState{
			ID:    tap.ID,
			Width: tap.Width,
			Path:  tap.Path,
		}
		for _, signal := range tap.Signals {
			state.Signals = append(state.Signals, SignalRef{
				ID:    id,
				Name:  signal.Name,
				Width: signal.Width,
				Tap:   state,
			})
			id++
		}
		states = append(states, state)
	}
	return states
}

// FindSignal resolves a variable identifier to its signal. Returns
// nil when no tap declares the identifier.
func FindSignal(taps []*TapState, id uint32) *SignalRef {
	for _, tap := range taps {
		for i := range tap.Signals {
			if tap.Signals[i].ID == id {
				return &tap.Signals[i]
			}
		}
	}
	return nil
}

// Declarations converts tap states into the writer's header
// declaration form, preserving manifest order.
func Declarations(taps []*TapState) []vcd.Tap {
	declarations := make([]vcd.Tap, 0, len(taps))
	for _, tap := range taps {
		vars := make([]vcd.Var, 0, len(tap.Signals))
		for _, signal := range tap.Signals {
			vars = append(vars, vcd.Var{ID: signal.ID, Width: signal.Width, Name: signal.Name})
		}
		declarations = append(declarations, vcd.Tap{Path: tap.Path, Vars: vars})
	}
	return declarations
}
