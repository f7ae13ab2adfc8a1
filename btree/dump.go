// Copyright 2025 dacapoday
// SPDX-License-Identifier: Apache-2.0

package btree

import (
	"fmt"
	"slices"

	"github.com/dacapoday/blocktree/collection"
)

// InOrderDump passes every value to sink in ascending key order.
// Values with equal keys come out in an arbitrary but deterministic order.
// Traversal stops early when sink returns false.
//
// Because leaves keep their values unordered in-block, each leaf is sorted
// at emit time.
func (t *Tree[K, V]) InOrderDump(sink func(V) bool) error {
	if t.blocks == nil {
		return fmt.Errorf("btree.InOrderDump: %w", ErrClosed)
	}
	if t.root == Null {
		return nil
	}
	if _, err := t.dump(t.root, t.height, sink); err != nil {
		return fmt.Errorf("btree.InOrderDump: %w", err)
	}
	return nil
}

func (t *Tree[K, V]) dump(h Handle, leafDistance int, sink func(V) bool) (more bool, err error) {
	var buf collection.Buffer
	if err = t.blocks.Read(h, &buf); err != nil {
		return
	}

	if leafDistance == 0 {
		lf := t.asLeaf(&buf)
		vals := lf.values(0)
		slices.SortStableFunc(vals, t.lay.compare)
		for _, v := range vals {
			if !sink(v) {
				return false, nil
			}
		}
		return true, nil
	}

	n := t.asNode(&buf)
	d := n.degree()
	for i := 0; i < d; i++ {
		child := n.child(i)
		if child == Null {
			return false, fmt.Errorf("btree: null child at leaf distance %d: %w", leafDistance, ErrInvariant)
		}
		if more, err = t.dump(child, leafDistance-1, sink); !more || err != nil {
			return
		}
	}
	return true, nil
}
