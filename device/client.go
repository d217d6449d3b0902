// Copyright 2026 The Tapscope Authors
// SPDX-License-Identifier: Apache-2.0

package device

import "fmt"

// RegisterBus is the injected transport primitive: write a command
// word, read a response word. Implementations are blocking and need
// not be safe for concurrent use; Client issues calls strictly
// sequentially.
type RegisterBus interface {
	WriteRegister(word uint64) error
	ReadRegister() (uint64, error)
}

// IOError reports a failed register exchange together with the command
// that failed.
type IOError struct {
	Op  Opcode
	Tap uint32
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("device: %s for tap %d: %v", e.Op, e.Tap, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Client issues tap commands over a RegisterBus. Every command is one
// write of the packed command word followed by one read of the
// response word; responses to configuration commands are discarded.
type Client struct {
	bus RegisterBus
}

// NewClient returns a Client that speaks the tap command protocol over
// the given bus.
func NewClient(bus RegisterBus) *Client {
	return &Client{bus: bus}
}

// exchange writes a command word and reads the response word. Any bus
// failure aborts with an *IOError; no retry.
func (c *Client) exchange(op Opcode, tapID uint32, word uint64) (uint64, error) {
	if err := c.bus.WriteRegister(word); err != nil {
		return 0, &IOError{Op: op, Tap: tapID, Err: err}
	}
	response, err := c.bus.ReadRegister()
	if err != nil {
		return 0, &IOError{Op: op, Tap: tapID, Err: err}
	}
	return response, nil
}

// Width returns the tap's total sample width in bits as reported by
// the hardware.
func (c *Client) Width(tapID uint32) (uint64, error) {
	return c.exchange(OpGetWidth, tapID, Command(OpGetWidth, tapID))
}

// SampleCount returns how many samples the tap captured.
func (c *Client) SampleCount(tapID uint32) (uint64, error) {
	return c.exchange(OpGetCount, tapID, Command(OpGetCount, tapID))
}

// StartCycle returns the cycle at which the tap's capture started.
func (c *Client) StartCycle(tapID uint32) (uint64, error) {
	return c.exchange(OpGetStart, tapID, Command(OpGetStart, tapID))
}

// NextWord returns the next word of the tap's capture buffer. Repeated
// calls stream the buffer in capture order.
func (c *Client) NextWord(tapID uint32) (uint64, error) {
	return c.exchange(OpGetData, tapID, Command(OpGetData, tapID))
}

// SetStartCycle arms the cycle at which the tap begins capturing.
func (c *Client) SetStartCycle(tapID uint32, cycle uint64) error {
	_, err := c.exchange(OpSetStart, tapID, ConfigCommand(OpSetStart, tapID, cycle))
	return err
}

// SetStopCycle arms the cycle at which the tap halts capturing. Zero
// halts immediately.
func (c *Client) SetStopCycle(tapID uint32, cycle uint64) error {
	_, err := c.exchange(OpSetStop, tapID, ConfigCommand(OpSetStop, tapID, cycle))
	return err
}

// SetCaptureDepth overrides the tap's capture buffer depth in samples.
func (c *Client) SetCaptureDepth(tapID uint32, depth uint64) error {
	_, err := c.exchange(OpSetDepth, tapID, ConfigCommand(OpSetDepth, tapID, depth))
	return err
}
