// Copyright 2026 The Tapscope Authors
// SPDX-License-Identifier: Apache-2.0

package device

import "fmt"

// Opcode selects the operation a command word requests from the debug
// unit. Opcode values are protocol constants — changing them breaks
// compatibility with deployed hardware.
type Opcode uint8

const (
	// OpGetWidth queries a tap's total sample width in bits.
	OpGetWidth Opcode = 0

	// OpGetCount queries how many samples a tap has captured.
	OpGetCount Opcode = 1

	// OpGetStart queries the cycle at which a tap's capture started.
	OpGetStart Opcode = 2

	// OpGetData streams the tap's capture buffer. Each query returns
	// the next buffer word; the hardware advances its read pointer on
	// every read.
	OpGetData Opcode = 3

	// OpSetStart arms the cycle at which capture begins.
	OpSetStart Opcode = 4

	// OpSetStop arms the cycle at which capture halts. Zero halts
	// capture immediately.
	OpSetStop Opcode = 5

	// OpSetDepth overrides the capture buffer depth in samples.
	OpSetDepth Opcode = 6
)

// String returns the human-readable name of an opcode.
func (op Opcode) String() string {
	switch op {
	case OpGetWidth:
		return "get-width"
	case OpGetCount:
		return "get-count"
	case OpGetStart:
		return "get-start"
	case OpGetData:
		return "get-data"
	case OpSetStart:
		return "set-start"
	case OpSetStop:
		return "set-stop"
	case OpSetDepth:
		return "set-depth"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(op))
	}
}

// Command word layout: opcode in the low 3 bits, tap identifier in the
// 8 bits above, payload value from bit 11 upward.
const (
	tapShift   = 3
	valueShift = 11
	opcodeMask = 1<<tapShift - 1
	tapMask    = 1<<(valueShift-tapShift) - 1
)

// MaxTapID is the largest tap identifier expressible in a command
// word. Larger identifiers would alias into the payload field.
const MaxTapID = tapMask

// Command packs a query command word for the given opcode and tap.
func Command(op Opcode, tapID uint32) uint64 {
	return uint64(tapID)<<tapShift | uint64(op)
}

// ConfigCommand packs a configuration command word carrying a payload
// value above the tap identifier field.
func ConfigCommand(op Opcode, tapID uint32, value uint64) uint64 {
	return value<<valueShift | Command(op, tapID)
}

// SplitCommand unpacks a command word into opcode, tap identifier, and
// payload value. Hardware shims and test fakes use it to interpret
// written words.
func SplitCommand(word uint64) (Opcode, uint32, uint64) {
	return Opcode(word & opcodeMask), uint32(word >> tapShift & tapMask), word >> valueShift
}
