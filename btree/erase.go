// Copyright 2025 dacapoday
// SPDX-License-Identifier: Apache-2.0

package btree

import (
	"fmt"

	"github.com/dacapoday/blocktree/collection"
)

// Erase removes the value with the given key, failing with ErrKeyNotFound
// when absent.
//
// An underfull leaf is rebalanced against a sibling: either the pair
// shares entries (replacing the parent separator) or the right sibling is
// merged into the left and freed. A merge may leave the parent underfull,
// cascading the rebalance upward; when the root is reduced to a single
// child, that child becomes the new root and the tree shrinks by a level.
func (t *Tree[K, V]) Erase(k K) error {
	if t.blocks == nil {
		return fmt.Errorf("btree.Erase: %w", ErrClosed)
	}
	if t.root == Null {
		return fmt.Errorf("btree.Erase: %w", ErrKeyNotFound)
	}
	if err := t.erase(k); err != nil {
		return fmt.Errorf("btree.Erase: %w", err)
	}
	t.size--
	return nil
}

func (t *Tree[K, V]) erase(k K) error {
	var buf collection.Buffer
	var p path
	if err := t.keyPath(k, &buf, &p); err != nil {
		return err
	}

	lf := t.asLeaf(&buf)
	if !lf.erase(k) {
		return ErrKeyNotFound
	}
	if err := t.blocks.Write(&buf); err != nil {
		return err
	}

	if p.empty() {
		// The root is a leaf. An empty leaf root is released so the empty
		// tree holds no blocks.
		if lf.empty() {
			if err := t.blocks.Free(t.root); err != nil {
				return err
			}
			t.root = Null
		}
		return nil
	}
	if !lf.underfull() {
		return nil
	}
	return t.rebalance(&p)
}

// rebalance walks the path upward from an underfull leaf, fusing sibling
// pairs until a share stops the cascade or the root is reached.
func (t *Tree[K, V]) rebalance(p *path) error {
	var parentBuf, leftBuf, rightBuf collection.Buffer
	leafLevel := true

	for {
		h, index := p.pop()
		if err := t.blocks.Read(h, &parentBuf); err != nil {
			return err
		}
		parent := t.asNode(&parentBuf)

		rightIndex := max(index, 1)
		leftHandle := parent.child(rightIndex - 1)
		rightHandle := parent.child(rightIndex)
		if err := t.blocks.Read(leftHandle, &leftBuf); err != nil {
			return err
		}
		if err := t.blocks.Read(rightHandle, &rightBuf); err != nil {
			return err
		}

		var res fuseResult
		if leafLevel {
			res = parent.fuseLeaves(rightIndex, t.asLeaf(&leftBuf), t.asLeaf(&rightBuf))
		} else {
			res = parent.fuse(rightIndex, t.asNode(&leftBuf), t.asNode(&rightBuf))
		}

		if err := t.blocks.Write(&parentBuf); err != nil {
			return err
		}
		if err := t.blocks.Write(&leftBuf); err != nil {
			return err
		}
		if res == fuseShare {
			return t.blocks.Write(&rightBuf)
		}

		if err := t.blocks.Free(rightHandle); err != nil {
			return err
		}
		leafLevel = false

		if p.empty() {
			if parent.degree() == 1 {
				t.root = parent.child(0)
				t.height--
				return t.blocks.Free(h)
			}
			return nil
		}
		if !parent.underfull() {
			return nil
		}
	}
}
