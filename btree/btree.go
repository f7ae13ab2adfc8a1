// Copyright 2025 dacapoday
// SPDX-License-Identifier: Apache-2.0

// Package btree implements an external-memory B+ tree over a block
// collection: ordered insertion, deletion, point lookup, in-order
// traversal and bottom-up bulk construction over datasets larger than RAM.
package btree

import (
	"fmt"

	"github.com/dacapoday/blocktree/collection"
)

// Handle identifies a block of the underlying collection.
type Handle = collection.Handle

// Null is the reserved zero handle, used as the "no root" sentinel.
const Null = collection.Null

// Options configures a tree at open time.
type Options struct {
	// BlockSize is the fixed block size of the underlying collection.
	// Zero means collection.DefaultBlockSize.
	BlockSize int

	// ReadOnly opens the collection without write access.
	ReadOnly bool

	// MemoryBudget is an advisory bound in bytes. It only influences the
	// default fanout; it is not enforced.
	MemoryBudget int64
}

// Tree is an external-memory B+ tree.
//
// The tree persists its nodes in a block collection but not its own root
// handle, height or size: callers that reopen a collection must restore
// that state with Attach (see the btview tool for a manifest example).
//
// A Tree is not safe for concurrent use.
type Tree[K, V any] struct {
	lay    Layout[K, V]
	params Parameters

	blocks    *collection.Collection
	ownBlocks bool

	root   Handle
	height int
	size   int64
}

// New creates a closed tree with the given layout.
func New[K, V any](lay Layout[K, V]) *Tree[K, V] {
	return &Tree[K, V]{lay: lay}
}

// SetParameters overrides the derived occupancy bounds.
// It fails on an already-open tree and on out-of-range bounds, leaving the
// previous parameters in effect.
func (t *Tree[K, V]) SetParameters(p Parameters) error {
	if t.blocks != nil {
		return fmt.Errorf("btree.SetParameters: %w", ErrOpened)
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("btree.SetParameters: %w", err)
	}
	t.params = p
	return nil
}

// Parameters returns the occupancy bounds in effect.
func (t *Tree[K, V]) Parameters() Parameters {
	return t.params
}

// Open attaches the tree to the named block file, creating it unless
// opt.ReadOnly is set.
// A fresh tree has no root and height 0.
func (t *Tree[K, V]) Open(path string, opt Options) error {
	if t.blocks != nil {
		return fmt.Errorf("btree.Open: %w", ErrOpened)
	}
	blocks, err := collection.Open(path, !opt.ReadOnly, collection.Options{BlockSize: opt.BlockSize})
	if err != nil {
		return fmt.Errorf("btree.Open: %w", err)
	}
	if err = t.bind(blocks, opt.MemoryBudget); err != nil {
		blocks.Close()
		return err
	}
	t.ownBlocks = true
	return nil
}

// Bind attaches the tree to a caller-opened collection. The collection
// remains owned by the caller and is not closed by Close.
func (t *Tree[K, V]) Bind(blocks *collection.Collection, memoryBudget int64) error {
	if t.blocks != nil {
		return fmt.Errorf("btree.Bind: %w", ErrOpened)
	}
	return t.bind(blocks, memoryBudget)
}

func (t *Tree[K, V]) bind(blocks *collection.Collection, memoryBudget int64) error {
	blockSize := blocks.BlockSize()
	keySize, valueSize := t.lay.Key.Size(), t.lay.Value.Size()

	if t.params == (Parameters{}) {
		t.params = DefaultParameters(blockSize, keySize, valueSize, memoryBudget)
	}
	if err := t.params.Validate(); err != nil {
		return fmt.Errorf("btree: %w", err)
	}
	if !t.params.fits(blockSize, keySize, valueSize) {
		return fmt.Errorf("btree: parameters exceed block size %d: %w", blockSize, ErrInvalidParameters)
	}

	t.blocks = blocks
	t.root = Null
	t.height = 0
	t.size = 0
	return nil
}

// Attach restores externally persisted tree state after Open or Bind.
func (t *Tree[K, V]) Attach(root Handle, height int, size int64) error {
	if t.blocks == nil {
		return fmt.Errorf("btree.Attach: %w", ErrClosed)
	}
	if height < 0 || height >= maxDepth || (root == Null && height != 0) {
		return fmt.Errorf("btree.Attach: root %d height %d: %w", root, height, ErrInvariant)
	}
	t.root = root
	t.height = height
	t.size = size
	return nil
}

// Close detaches the tree, closing the collection if the tree opened it.
// Close is idempotent.
func (t *Tree[K, V]) Close() error {
	if t.blocks == nil {
		return nil
	}
	blocks := t.blocks
	t.blocks = nil
	if t.ownBlocks {
		t.ownBlocks = false
		if err := blocks.Close(); err != nil {
			return fmt.Errorf("btree.Close: %w", err)
		}
	}
	return nil
}

// Root returns the handle of the root block, or Null for an empty tree.
func (t *Tree[K, V]) Root() Handle {
	return t.root
}

// Height returns the number of internal levels above the leaves.
// Height 0 means the root is a leaf.
func (t *Tree[K, V]) Height() int {
	return t.height
}

// Size returns the number of values in the tree.
func (t *Tree[K, V]) Size() int64 {
	return t.size
}

// Blocks returns the underlying collection.
func (t *Tree[K, V]) Blocks() *collection.Collection {
	return t.blocks
}

func (t *Tree[K, V]) asLeaf(buf *collection.Buffer) leaf[K, V] {
	return leaf[K, V]{data: buf.Data(), lay: &t.lay, p: t.params}
}

func (t *Tree[K, V]) asNode(buf *collection.Buffer) node[K, V] {
	return node[K, V]{data: buf.Data(), lay: &t.lay, p: t.params}
}

// keyPath descends from the root to the leaf responsible for k, recording
// the (handle, child index) taken at each internal level. At every level
// it follows the first child whose separator exceeds k, so values equal
// to a separator are found to its right.
func (t *Tree[K, V]) keyPath(k K, buf *collection.Buffer, p *path) error {
	h := t.root
	for level := 0; level < t.height; level++ {
		if err := t.blocks.Read(h, buf); err != nil {
			return err
		}
		n := t.asNode(buf)

		i := 0
		for nk := n.numKeys(); i < nk; i++ {
			if t.lay.Less(k, n.key(i)) {
				break
			}
		}

		child := n.child(i)
		if child == Null {
			return fmt.Errorf("btree: null child at level %d of %d: %w", level, t.height, ErrInvariant)
		}
		p.push(h, i)
		h = child
	}
	return t.blocks.Read(h, buf)
}

// Count returns the number of values with the given key (0 or 1).
func (t *Tree[K, V]) Count(k K) (int, error) {
	if t.blocks == nil {
		return 0, fmt.Errorf("btree.Count: %w", ErrClosed)
	}
	if t.root == Null {
		return 0, nil
	}
	var buf collection.Buffer
	var p path
	if err := t.keyPath(k, &buf, &p); err != nil {
		return 0, fmt.Errorf("btree.Count: %w", err)
	}
	return t.asLeaf(&buf).count(k), nil
}

// TryFind returns the value with the given key, reporting its presence.
func (t *Tree[K, V]) TryFind(k K) (v V, ok bool, err error) {
	if t.blocks == nil {
		err = fmt.Errorf("btree.TryFind: %w", ErrClosed)
		return
	}
	if t.root == Null {
		return
	}
	var buf collection.Buffer
	var p path
	if err = t.keyPath(k, &buf, &p); err != nil {
		err = fmt.Errorf("btree.TryFind: %w", err)
		return
	}
	lf := t.asLeaf(&buf)
	i := lf.indexOf(k)
	if i == lf.degree() {
		return
	}
	return lf.value(i), true, nil
}

// Find returns the value with the given key, failing with ErrKeyNotFound
// when absent.
func (t *Tree[K, V]) Find(k K) (v V, err error) {
	v, ok, err := t.TryFind(k)
	if err == nil && !ok {
		err = fmt.Errorf("btree.Find: %w", ErrKeyNotFound)
	}
	return
}
