// Copyright 2026 The Tapscope Authors
// SPDX-License-Identifier: Apache-2.0

package trace

import "github.com/tapscope/tapscope/vcd"

// DefaultGapCycles is the default idle-gap threshold above which the
// clock advance collapses to a single unknown marker pair.
const DefaultGapCycles = 10000

// Merger orders multiple tap streams into one globally non-decreasing
// timeline.
type Merger struct {
	// GapCycles is the collapse threshold. Gaps strictly larger emit
	// one unknown pair and jump; gaps at or below it toggle in full.
	GapCycles uint64
}

// EarliestTap returns the non-exhausted tap with the smallest cycle
// time, or nil when every tap is exhausted. Ties go to the earliest
// tap in manifest order: the scan compares with a strict less-than,
// so a later tap never displaces an equal earlier one.
func EarliestTap(taps []*TapState) *TapState {
	var earliest *TapState
	for _, tap := range taps {
		if tap.Exhausted() {
			continue
		}
		if earliest == nil || tap.CycleTime < earliest.CycleTime {
			earliest = tap
		}
	}
	return earliest
}

// AdvanceClock moves the shared virtual clock from current to target,
// emitting one low/high toggle pair per cycle: tick 2c low, tick
// 2c+1 high. A gap strictly larger than GapCycles emits exactly one
// unknown pair at the current position instead, jumps to
// target−GapCycles, and toggles only the remaining window, so output
// stays bounded however long the hardware idled. Returns the new
// clock position.
func (m *Merger) AdvanceClock(writer *vcd.Writer, current, target uint64) (uint64, error) {
	if target <= current {
		return current, nil
	}
	if target-current > m.GapCycles {
		if err := writer.ClockTick(2*current, vcd.ClockUnknown); err != nil {
			return current, err
		}
		if err := writer.ClockTick(2*current+1, vcd.ClockUnknown); err != nil {
			return current, err
		}
		current = target - m.GapCycles
	}
	for ; current < target; current++ {
		if err := writer.ClockTick(2*current, vcd.ClockLow); err != nil {
			return current, err
		}
		if err := writer.ClockTick(2*current+1, vcd.ClockHigh); err != nil {
			return current, err
		}
	}
	return current, nil
}

// Drain runs the merge loop to completion: select the earliest tap,
// advance the clock to its cycle, drain one sample from it, repeat
// until every tap is exhausted, then advance one final cycle to close
// the trace. A tap's value changes land immediately after the high
// tick of the cycle before its sample, with no extra time marker.
//
// Returns the final cycle count. When no tap captured anything,
// nothing is emitted and the count is zero.
func (m *Merger) Drain(taps []*TapState, decoder *Decoder, writer *vcd.Writer) (uint64, error) {
	var current uint64
	drained := false
	for tap := EarliestTap(taps); tap != nil; tap = EarliestTap(taps) {
		drained = true
		advanced, err := m.AdvanceClock(writer, current, tap.CycleTime)
		if err != nil {
			return advanced, err
		}
		current = advanced
		if err := decoder.DecodeSample(tap); err != nil {
			return current, err
		}
	}
	if !drained {
		return 0, nil
	}
	return m.AdvanceClock(writer, current, current+1)
}
