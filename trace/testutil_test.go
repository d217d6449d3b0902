// Copyright 2026 The Tapscope Authors
// SPDX-License-Identifier: Apache-2.0

package trace

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/tapscope/tapscope/device"
	"github.com/tapscope/tapscope/manifest"
	"github.com/tapscope/tapscope/vcd"
)

var errBusWedged = errors.New("bus wedged")

// wordBus is a RegisterBus that answers every read with the next
// scripted word. The drain only issues get-data queries, so written
// command words need no interpretation; reads beyond the script
// return zero.
type wordBus struct {
	words  []uint64
	next   int
	reads  int
	err    error // returned once reads reaches failAt
	failAt int
}

func (b *wordBus) WriteRegister(word uint64) error { return nil }

func (b *wordBus) ReadRegister() (uint64, error) {
	if b.err != nil && b.reads == b.failAt {
		return 0, b.err
	}
	b.reads++
	if b.next >= len(b.words) {
		return 0, nil
	}
	word := b.words[b.next]
	b.next++
	return word, nil
}

// testTaps builds runtime states from a literal manifest, with the
// usual global identifier assignment.
func testTaps(t *testing.T, taps ...manifest.Tap) []*TapState {
	t.Helper()
	m := &manifest.Manifest{Taps: taps}
	if err := m.Validate(); err != nil {
		t.Fatalf("test manifest invalid: %v", err)
	}
	return NewTapStates(m)
}

// testDecoder wires a Decoder to a scripted bus and a buffered
// writer, logging to nowhere.
func testDecoder(bus device.RegisterBus, buffer *bytes.Buffer, progressInterval uint64) (*Decoder, *vcd.Writer) {
	writer := vcd.NewWriter(buffer)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	decoder := NewDecoder(device.NewClient(bus), writer, logger, progressInterval)
	return decoder, writer
}
