// Copyright 2026 The Tapscope Authors
// SPDX-License-Identifier: Apache-2.0

package vcd

import (
	"bytes"
	"strings"
	"testing"
)

// header renders a flushed header for the given taps.
func header(t *testing.T, taps []Tap) string {
	t.Helper()
	var buffer bytes.Buffer
	writer := NewWriter(&buffer)
	if err := writer.WriteHeader(taps); err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}
	if err := writer.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	return buffer.String()
}

func TestWriteHeaderSingleTap(t *testing.T) {
	t.Parallel()

	got := header(t, []Tap{
		{Path: "core.cache", Vars: []Var{
			{ID: 1, Width: 1, Name: "valid"},
			{ID: 2, Width: 7, Name: "data"},
		}},
	})

	want := strings.Join([]string{
		"$version Generated by tapscope $end",
		"$timescale 1 ns $end",
		"$scope module TOP $end",
		" $var wire 1 0 clk $end",
		" $scope module core $end",
		"  $scope module cache $end",
		"   $var wire 1 1 valid $end",
		"   $var wire 7 2 data $end",
		"  $upscope $end",
		" $upscope $end",
		"$upscope $end",
		"enddefinitions $end",
		"",
	}, "\n")
	if got != want {
		t.Errorf("header mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestWriteHeaderNoTaps(t *testing.T) {
	t.Parallel()

	got := header(t, nil)

	want := strings.Join([]string{
		"$version Generated by tapscope $end",
		"$timescale 1 ns $end",
		"$scope module TOP $end",
		" $var wire 1 0 clk $end",
		"$upscope $end",
		"enddefinitions $end",
		"",
	}, "\n")
	if got != want {
		t.Errorf("header mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestTimestampFormat(t *testing.T) {
	t.Parallel()

	var buffer bytes.Buffer
	writer := NewWriter(&buffer)
	if err := writer.Timestamp(42); err != nil {
		t.Fatalf("Timestamp: %v", err)
	}
	writer.Flush()

	if got, want := buffer.String(), "#42\n"; got != want {
		t.Errorf("Timestamp output = %q, want %q", got, want)
	}
}

func TestChangeFormat(t *testing.T) {
	t.Parallel()

	var buffer bytes.Buffer
	writer := NewWriter(&buffer)
	if err := writer.Change(3, "0101010"); err != nil {
		t.Fatalf("Change: %v", err)
	}
	writer.Flush()

	if got, want := buffer.String(), "b0101010 3\n"; got != want {
		t.Errorf("Change output = %q, want %q", got, want)
	}
}

func TestClockTick(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		tick  uint64
		value ClockValue
		want  string
	}{
		{name: "low", tick: 0, value: ClockLow, want: "#0\nb0 0\n"},
		{name: "high", tick: 1, value: ClockHigh, want: "#1\nb1 0\n"},
		{name: "unknown", tick: 20, value: ClockUnknown, want: "#20\nbx 0\n"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			var buffer bytes.Buffer
			writer := NewWriter(&buffer)
			if err := writer.ClockTick(test.tick, test.value); err != nil {
				t.Fatalf("ClockTick: %v", err)
			}
			writer.Flush()
			if got := buffer.String(); got != test.want {
				t.Errorf("ClockTick output = %q, want %q", got, test.want)
			}
		})
	}
}

func TestFlushWritesThrough(t *testing.T) {
	t.Parallel()

	var buffer bytes.Buffer
	writer := NewWriter(&buffer)
	writer.Timestamp(1)

	if buffer.Len() != 0 {
		t.Fatalf("output reached the underlying writer before Flush: %q", buffer.String())
	}
	if err := writer.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if buffer.Len() == 0 {
		t.Fatal("Flush wrote nothing")
	}
}
