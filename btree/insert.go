// Copyright 2025 dacapoday
// SPDX-License-Identifier: Apache-2.0

package btree

import (
	"fmt"

	"github.com/dacapoday/blocktree/collection"
)

// Insert adds v to the tree. Values with equal keys may coexist; the tree
// does not deduplicate.
//
// A full leaf is split around its median, and the promotion of the pivot
// key propagates upward through full ancestors, growing the tree by one
// level when the root itself splits.
func (t *Tree[K, V]) Insert(v V) error {
	if t.blocks == nil {
		return fmt.Errorf("btree.Insert: %w", ErrClosed)
	}
	if err := t.insert(v); err != nil {
		return fmt.Errorf("btree.Insert: %w", err)
	}
	t.size++
	return nil
}

func (t *Tree[K, V]) insert(v V) error {
	var buf collection.Buffer

	if t.root == Null {
		if err := t.blocks.AllocateBlock(&buf); err != nil {
			return err
		}
		lf := t.asLeaf(&buf)
		lf.clear()
		lf.insert(v)
		if err := t.blocks.Write(&buf); err != nil {
			return err
		}
		t.root = buf.Handle()
		return nil
	}

	var p path
	k := t.lay.KeyOf(v)
	if err := t.keyPath(k, &buf, &p); err != nil {
		return err
	}

	lf := t.asLeaf(&buf)
	if !lf.full() {
		lf.insert(v)
		return t.blocks.Write(&buf)
	}

	var rightBuf collection.Buffer
	if err := t.blocks.AllocateBlock(&rightBuf); err != nil {
		return err
	}
	rl := t.asLeaf(&rightBuf)
	rl.clear()

	pivot := lf.splitInsert(v, rl)
	if err := t.blocks.Write(&buf); err != nil {
		return err
	}
	if err := t.blocks.Write(&rightBuf); err != nil {
		return err
	}

	return t.propagate(pivot, buf.Handle(), rightBuf.Handle(), &p)
}

// propagate pushes a pending (pivot, left, right) separator up the path
// until it finds a non-full ancestor or mints a new root.
func (t *Tree[K, V]) propagate(pivot K, left, right Handle, p *path) error {
	var parentBuf, leftBuf, rightBuf collection.Buffer

	for !p.empty() {
		h, index := p.pop()
		if err := t.blocks.Read(h, &parentBuf); err != nil {
			return err
		}
		parent := t.asNode(&parentBuf)

		if !parent.full() {
			parent.insert(index, pivot, left, right)
			return t.blocks.Write(&parentBuf)
		}

		if err := t.blocks.AllocateBlock(&leftBuf); err != nil {
			return err
		}
		if err := t.blocks.AllocateBlock(&rightBuf); err != nil {
			return err
		}
		ln, rn := t.asNode(&leftBuf), t.asNode(&rightBuf)
		ln.clear()
		rn.clear()

		pivot = parent.splitInsert(index, pivot, left, right, ln, rn)
		if err := t.blocks.Write(&leftBuf); err != nil {
			return err
		}
		if err := t.blocks.Write(&rightBuf); err != nil {
			return err
		}
		if err := t.blocks.Free(h); err != nil {
			return err
		}
		left, right = leftBuf.Handle(), rightBuf.Handle()
	}

	if err := t.blocks.AllocateBlock(&parentBuf); err != nil {
		return err
	}
	root := t.asNode(&parentBuf)
	root.clear()
	root.newRoot(pivot, left, right)
	if err := t.blocks.Write(&parentBuf); err != nil {
		return err
	}
	t.root = parentBuf.Handle()
	t.height++
	return nil
}
