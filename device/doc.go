// Copyright 2026 The Tapscope Authors
// SPDX-License-Identifier: Apache-2.0

// Package device speaks the register command protocol of the on-chip
// debug unit.
//
// The transport is an injected RegisterBus with two blocking
// operations: write a command word, read a response word. A command
// packs an opcode, a tap identifier, and (for configuration opcodes) a
// payload value into a single word:
//
//	bit  0..2   opcode
//	bit  3..10  tap identifier
//	bit 11..    payload value (configuration opcodes only)
//
// Every command is one write followed by one read. The response is
// meaningful only for query opcodes; configuration responses are
// discarded. Calls are strictly sequential — no pipelining — and any
// bus failure aborts the enclosing operation with an *IOError. No
// retry is attempted.
package device
