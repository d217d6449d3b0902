// Copyright 2026 The Tapscope Authors
// SPDX-License-Identifier: Apache-2.0

// Package trace reconstructs waveforms from captured tap streams.
//
// A tap's capture buffer is a sequence of 64-bit words retrieved one
// at a time over the register bus. Each sample occupies the low bits
// of one or more fresh words: bits are consumed least-significant
// first and distributed to the tap's signals in reverse declaration
// order, the last-declared signal filling first. Between samples the
// hardware stores a delta word counting the idle cycles since the
// previous sample.
//
// Decoder drains one sample at a time, emitting a value change per
// signal. Merger interleaves multiple tap streams into one globally
// non-decreasing timeline, toggling a synthetic clock once per
// hardware cycle and collapsing idle gaps larger than a threshold so
// output stays bounded.
package trace
