// Copyright 2026 The Tapscope Authors
// SPDX-License-Identifier: Apache-2.0

package trace

import (
	"fmt"
	"log/slog"

	"github.com/tapscope/tapscope/device"
	"github.com/tapscope/tapscope/vcd"
)

// WordBits is the width of one capture buffer word on the register
// bus.
const WordBits = 64

// DefaultProgressInterval is the default sample count between
// progress flushes during a drain.
const DefaultProgressInterval = 100

// Decoder converts a tap's captured words into value-change events.
// One Decoder serves every tap of a session; per-tap position lives
// on the TapState.
type Decoder struct {
	device           *device.Client
	writer           *vcd.Writer
	logger           *slog.Logger
	progressInterval uint64
}

// NewDecoder returns a Decoder reading capture words from client and
// emitting value changes to writer. Every progressInterval drained
// samples the writer is flushed and a progress record logged; zero
// disables the cadence. A nil logger falls back to slog.Default().
func NewDecoder(client *device.Client, writer *vcd.Writer, logger *slog.Logger, progressInterval uint64) *Decoder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Decoder{
		device:           client,
		writer:           writer,
		logger:           logger,
		progressInterval: progressInterval,
	}
}

// DecodeSample drains exactly one sample from the tap. Capture words
// are fetched as needed; their bits are distributed to the tap's
// signals in reverse declaration order, least significant bit first,
// and one value change is emitted per signal as it fills. The first
// bit consumed lands in the last character of the signal's bit string
// (bit strings render most-significant-bit first). Each sample starts
// from a fresh word; leftover bits in a sample's final word are
// discarded.
//
// After the sample, the cursor advances. If samples remain, one more
// word is fetched as the inter-sample delta and the tap's cycle time
// advances by 1 + delta.
//
// Callers must invoke DecodeSample in merge order: it always appends
// at the current cursor, never rewinds. Calling it on an exhausted
// tap is an error. A device failure aborts mid-sample and propagates;
// previously written output is not rolled back.
func (d *Decoder) DecodeSample(tap *TapState) error {
	if tap.Exhausted() {
		return fmt.Errorf("trace: tap %d is exhausted", tap.ID)
	}

	signalIndex := len(tap.Signals) - 1
	signal := &tap.Signals[signalIndex]
	bits := make([]byte, signal.Width)
	var sampleOffset uint64
	var signalOffset uint32

	for sampleOffset < tap.Width {
		word, err := d.device.NextWord(tap.ID)
		if err != nil {
			return err
		}
		for {
			bit := byte('0')
			if word>>(sampleOffset%WordBits)&1 == 1 {
				bit = '1'
			}
			bits[signal.Width-1-signalOffset] = bit
			signalOffset++
			sampleOffset++

			if signalOffset == signal.Width {
				if err := d.writer.Change(signal.ID, string(bits)); err != nil {
					return err
				}
				if sampleOffset == tap.Width {
					break
				}
				signalIndex--
				signal = &tap.Signals[signalIndex]
				bits = make([]byte, signal.Width)
				signalOffset = 0
			}
			if sampleOffset%WordBits == 0 {
				break
			}
		}
	}

	tap.Cursor++
	if tap.Cursor == tap.Samples {
		return nil
	}

	delta, err := d.device.NextWord(tap.ID)
	if err != nil {
		return err
	}
	tap.CycleTime += 1 + delta

	if d.progressInterval > 0 && tap.Cursor%d.progressInterval == 0 {
		if err := d.writer.Flush(); err != nil {
			return err
		}
		d.logger.Debug("tap drain progress",
			"tap", tap.ID,
			"drained", tap.Cursor,
			"samples", tap.Samples,
			"next_cycle", tap.CycleTime)
	}
	return nil
}
