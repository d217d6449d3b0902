// Copyright 2026 The Tapscope Authors
// SPDX-License-Identifier: Apache-2.0

// Package vcd emits value-change-dump waveform text.
//
// The grammar is the subset waveform viewers such as GTKWave consume:
// a version/timescale header, nested $scope module blocks declaring
// $var wire entries, an enddefinitions marker (no leading $), then
// #timestamp markers followed by b<bits> <id> value-change lines. The
// emitted bytes must match this grammar exactly; viewers are strict.
//
// A Writer has two phases. WriteHeader builds the scope hierarchy from
// tap paths and declares every variable. The body primitives
// (Timestamp, Change, ClockTick) then stream value changes in merge
// order. Output is buffered; call Flush to push it to the underlying
// writer.
package vcd

import (
	"bufio"
	"fmt"
	"io"
)

// ClockID is the variable identifier reserved for the synthetic
// clock declared at the outermost scope. Tap signal identifiers start
// at 1.
const ClockID = 0

// versionText identifies the generator in the $version header section.
const versionText = "Generated by tapscope"

// ClockValue is the level carried by a clock tick.
type ClockValue byte

const (
	// ClockLow is the first half of a cycle's toggle pair.
	ClockLow ClockValue = '0'

	// ClockHigh is the second half of a cycle's toggle pair.
	ClockHigh ClockValue = '1'

	// ClockUnknown marks a collapsed idle gap.
	ClockUnknown ClockValue = 'x'
)

// Writer emits VCD text to an underlying io.Writer through a buffer.
// Methods are not safe for concurrent use.
type Writer struct {
	w *bufio.Writer
}

// NewWriter returns a Writer emitting to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// WriteHeader emits the version and timescale sections and the full
// scope hierarchy built from the given taps: an outermost TOP scope
// declaring the synthetic clock, then one nested scope per path
// segment, with each tap's variables declared at its leaf scope in
// declaration order. The section closes with enddefinitions.
func (w *Writer) WriteHeader(taps []Tap) error {
	if _, err := fmt.Fprintf(w.w, "$version %s $end\n", versionText); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w.w, "$timescale 1 ns $end\n"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w.w, "$scope module TOP $end\n"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w.w, " $var wire 1 %d clk $end\n", ClockID); err != nil {
		return err
	}
	root := buildScopeTree(taps)
	for _, child := range root.children {
		if err := w.writeScope(child, 1); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w.w, "$upscope $end\n"); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w.w, "enddefinitions $end\n")
	return err
}

// Timestamp emits a #tick time marker. All value changes until the
// next marker occur at this tick.
func (w *Writer) Timestamp(tick uint64) error {
	_, err := fmt.Fprintf(w.w, "#%d\n", tick)
	return err
}

// Change emits a value-change line for the given variable identifier.
// bits is the new value rendered most-significant-bit first.
func (w *Writer) Change(id uint32, bits string) error {
	_, err := fmt.Fprintf(w.w, "b%s %d\n", bits, id)
	return err
}

// ClockTick emits a time marker followed by the clock's change line.
func (w *Writer) ClockTick(tick uint64, value ClockValue) error {
	if err := w.Timestamp(tick); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w.w, "b%c %d\n", value, ClockID)
	return err
}

// Flush pushes buffered output to the underlying writer.
func (w *Writer) Flush() error {
	return w.w.Flush()
}
