// Copyright 2026 The Tapscope Authors
// SPDX-License-Identifier: Apache-2.0

package vcd

import (
	"fmt"
	"strings"
)

// Var declares one waveform variable.
type Var struct {
	ID    uint32
	Width uint32
	Name  string
}

// Tap groups the variables declared at one hierarchical path.
type Tap struct {
	// Path is the dotted position in the hierarchy, e.g. "core.cache".
	// The variables are declared at the scope named by the final
	// segment.
	Path string

	// Vars are declared in order.
	Vars []Var
}

// scopeNode is an ephemeral tree node used while emitting the
// hierarchy header. Taps sharing a path prefix share the corresponding
// interior nodes; children are deduplicated and keep first-encounter
// order.
type scopeNode struct {
	name     string
	children []*scopeNode
	vars     []Var
}

// child returns the named child, creating it if absent.
func (n *scopeNode) child(name string) *scopeNode {
	for _, existing := range n.children {
		if existing.name == name {
			return existing
		}
	}
	created := &scopeNode{name: name}
	n.children = append(n.children, created)
	return created
}

// buildScopeTree inserts every tap path into a tree rooted at the
// implicit TOP scope. A tap's variables land on its leaf node; two
// taps with the identical full path append to the same node.
func buildScopeTree(taps []Tap) *scopeNode {
	root := &scopeNode{}
	for _, tap := range taps {
		node := root
		for _, segment := range strings.Split(tap.Path, ".") {
			node = node.child(segment)
		}
		node.vars = append(node.vars, tap.Vars...)
	}
	return root
}

// writeScope emits one scope block: the scope marker, the node's
// variables, its children depth-first, and the closing upscope.
// Nesting depth sets the indentation, one space per level; variable
// lines sit one space past their scope.
func (w *Writer) writeScope(node *scopeNode, depth int) error {
	indent := strings.Repeat(" ", depth)
	if _, err := fmt.Fprintf(w.w, "%s$scope module %s $end\n", indent, node.name); err != nil {
		return err
	}
	for _, variable := range node.vars {
		if _, err := fmt.Fprintf(w.w, "%s $var wire %d %d %s $end\n", indent, variable.Width, variable.ID, variable.Name); err != nil {
			return err
		}
	}
	for _, child := range node.children {
		if err := w.writeScope(child, depth+1); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w.w, "%s$upscope $end\n", indent)
	return err
}
