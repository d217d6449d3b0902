// Copyright 2026 The Tapscope Authors
// SPDX-License-Identifier: Apache-2.0

package vcd

import (
	"strings"
	"testing"
)

func TestHeaderSharedPrefix(t *testing.T) {
	// Taps a.b.x and a.b.y share the interior nodes a and b: each is
	// opened and closed exactly once, and both leaves sit inside b.
	t.Parallel()

	got := header(t, []Tap{
		{Path: "a.b.x", Vars: []Var{{ID: 1, Width: 1, Name: "u"}}},
		{Path: "a.b.y", Vars: []Var{{ID: 2, Width: 4, Name: "v"}}},
	})

	want := strings.Join([]string{
		"$version Generated by tapscope $end",
		"$timescale 1 ns $end",
		"$scope module TOP $end",
		" $var wire 1 0 clk $end",
		" $scope module a $end",
		"  $scope module b $end",
		"   $scope module x $end",
		"    $var wire 1 1 u $end",
		"   $upscope $end",
		"   $scope module y $end",
		"    $var wire 4 2 v $end",
		"   $upscope $end",
		"  $upscope $end",
		" $upscope $end",
		"$upscope $end",
		"enddefinitions $end",
		"",
	}, "\n")
	if got != want {
		t.Errorf("header mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}

	if n := strings.Count(got, "$scope module a $end"); n != 1 {
		t.Errorf("scope a opened %d times, want 1", n)
	}
	if n := strings.Count(got, "$scope module b $end"); n != 1 {
		t.Errorf("scope b opened %d times, want 1", n)
	}
	if open, close := strings.Count(got, "$scope"), strings.Count(got, "$upscope"); open != close {
		t.Errorf("%d scopes opened, %d closed", open, close)
	}
}

func TestHeaderSeparateBranchesSameLeafName(t *testing.T) {
	// core.cache and mem.cache share only a segment name, not a path
	// prefix: they get distinct cache scopes, each with its own tap's
	// variables.
	t.Parallel()

	got := header(t, []Tap{
		{Path: "core.cache", Vars: []Var{{ID: 1, Width: 1, Name: "hit"}}},
		{Path: "mem.cache", Vars: []Var{{ID: 2, Width: 1, Name: "dirty"}}},
	})

	want := strings.Join([]string{
		"$version Generated by tapscope $end",
		"$timescale 1 ns $end",
		"$scope module TOP $end",
		" $var wire 1 0 clk $end",
		" $scope module core $end",
		"  $scope module cache $end",
		"   $var wire 1 1 hit $end",
		"  $upscope $end",
		" $upscope $end",
		" $scope module mem $end",
		"  $scope module cache $end",
		"   $var wire 1 2 dirty $end",
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

func TestHeaderSingleSegmentPath(t *testing.T) {
	t.Parallel()

	got := header(t, []Tap{
		{Path: "top", Vars: []Var{{ID: 1, Width: 2, Name: "state"}}},
	})

	want := strings.Join([]string{
		"$version Generated by tapscope $end",
		"$timescale 1 ns $end",
		"$scope module TOP $end",
		" $var wire 1 0 clk $end",
		" $scope module top $end",
		"  $var wire 2 1 state $end",
		" $upscope $end",
		"$upscope $end",
		"enddefinitions $end",
		"",
	}, "\n")
	if got != want {
		t.Errorf("header mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestHeaderIdenticalPathsAppend(t *testing.T) {
	// Two taps probing the same hierarchy position declare their
	// variables in the same scope, in tap order.
	t.Parallel()

	got := header(t, []Tap{
		{Path: "core.lsu", Vars: []Var{{ID: 1, Width: 1, Name: "req"}}},
		{Path: "core.lsu", Vars: []Var{{ID: 2, Width: 1, Name: "ack"}}},
	})

	wantFragment := strings.Join([]string{
		"  $scope module lsu $end",
		"   $var wire 1 1 req $end",
		"   $var wire 1 2 ack $end",
		"  $upscope $end",
	}, "\n")
	if !strings.Contains(got, wantFragment) {
		t.Errorf("header missing merged scope:\ngot:\n%s\nwant fragment:\n%s", got, wantFragment)
	}
	if n := strings.Count(got, "$scope module lsu $end"); n != 1 {
		t.Errorf("scope lsu opened %d times, want 1", n)
	}
}

func TestScopeTreeChildOrder(t *testing.T) {
	// Sibling order is first-encounter order of the tap list.
	t.Parallel()

	root := buildScopeTree([]Tap{
		{Path: "b.z"},
		{Path: "a"},
		{Path: "b.y"},
	})

	if len(root.children) != 2 {
		t.Fatalf("root has %d children, want 2", len(root.children))
	}
	if root.children[0].name != "b" || root.children[1].name != "a" {
		t.Errorf("root children = [%s %s], want [b a]",
			root.children[0].name, root.children[1].name)
	}
	b := root.children[0]
	if len(b.children) != 2 || b.children[0].name != "z" || b.children[1].name != "y" {
		t.Errorf("b children out of order: %+v", b.children)
	}
}
