// Copyright 2026 The Tapscope Authors
// SPDX-License-Identifier: Apache-2.0

// Package scope runs capture sessions against an on-chip trace unit.
//
// The central type is [Session], created by [Start]. Start loads and
// validates the tap manifest, checks each tap's declared width against
// the hardware, optionally programs capture depth and start/stop
// cycles, and arms a watchdog that force-stops the session when the
// configured timeout elapses. [Session.Stop] halts capture on every
// tap, drains the per-tap capture buffers through the trace decoder
// and merger, and writes the merged waveform as VCD text to the
// configured output path (gzipped when the path ends in .gz).
//
// Stop is idempotent and safe to call concurrently with the watchdog:
// exactly one caller drains the hardware, every other call returns
// nil. The hardware's capture buffers are read destructively, so a
// session cannot be drained twice.
//
// Sessions talk to the debug unit through [device.RegisterBus], so
// anything that moves 64-bit words — JTAG, PCIe BAR, a simulator
// socket — can back a session. Tests inject a scripted bus and a fake
// clock.
package scope
