// Copyright 2025 dacapoday
// SPDX-License-Identifier: Apache-2.0

package btree

import (
	"fmt"

	"github.com/dacapoday/blocktree/collection"
)

type builderState int

const (
	// builderEmpty: no values have been pushed.
	builderEmpty builderState = iota
	// builderBuilding: values have been pushed, End has not been called.
	builderBuilding
	// builderBuilt: End has been called.
	builderBuilt
)

// handleKey is a finished subtree: its root handle and its smallest key.
type handleKey[K any] struct {
	handle Handle
	key    K
}

// fifo is a queue of finished subtrees of one height.
type fifo[K any] struct {
	items []handleKey[K]
	head  int
}

func (f *fifo[K]) size() int { return len(f.items) - f.head }

func (f *fifo[K]) front() handleKey[K] { return f.items[f.head] }

func (f *fifo[K]) push(hk handleKey[K]) {
	f.items = append(f.items, hk)
}

func (f *fifo[K]) popFront() handleKey[K] {
	hk := f.items[f.head]
	f.head++
	if f.head == len(f.items) {
		f.items = f.items[:0]
		f.head = 0
	}
	return hk
}

// Builder assembles a balanced tree bottom-up from values pushed in
// ascending key order, without per-value descents: a single sequential
// pass that produces no split or fuse work.
//
// It keeps one queue of finished subtrees per level. A leaf is emitted to
// level 0 when full; whenever a level holds more than NodeMin+NodeMax
// subtrees, batches of NodeMax are joined into a node one level up.
// Joining eagerly at NodeMax instead could leave the final right spine
// underfull: the looser threshold guarantees that the last node emitted
// into every level keeps at least NodeMin children.
type Builder[K, V any] struct {
	tree  *Tree[K, V]
	state builderState

	leafBuf collection.Buffer
	leafKey K
	hasLeaf bool

	nodeBuf collection.Buffer
	layers  []fifo[K]
	count   int64
}

// NewBuilder prepares bulk construction into tree, which must be open and
// empty.
func NewBuilder[K, V any](tree *Tree[K, V]) (*Builder[K, V], error) {
	if tree.blocks == nil {
		return nil, fmt.Errorf("btree.NewBuilder: %w", ErrClosed)
	}
	if tree.root != Null {
		return nil, fmt.Errorf("btree.NewBuilder: tree is not empty: %w", ErrOpened)
	}
	return &Builder[K, V]{tree: tree}, nil
}

// Push appends v, whose key must not be less than any key pushed before.
func (b *Builder[K, V]) Push(v V) error {
	if b.state == builderBuilt {
		return fmt.Errorf("builder.Push: %w", ErrBuilderFinalized)
	}
	b.state = builderBuilding

	if !b.hasLeaf {
		if err := b.newLeaf(); err != nil {
			return fmt.Errorf("builder.Push: %w", err)
		}
	}

	lf := b.tree.asLeaf(&b.leafBuf)
	if lf.full() {
		if err := b.flushLeaf(); err != nil {
			return fmt.Errorf("builder.Push: %w", err)
		}
		if err := b.newLeaf(); err != nil {
			return fmt.Errorf("builder.Push: %w", err)
		}
		lf = b.tree.asLeaf(&b.leafBuf)
	}

	if lf.empty() {
		b.leafKey = b.tree.lay.KeyOf(v)
	}
	lf.insert(v)
	b.count++
	return nil
}

// End finalizes the tree. Calling End on a builder that never saw a Push
// leaves the tree empty.
func (b *Builder[K, V]) End() error {
	switch b.state {
	case builderBuilt:
		return fmt.Errorf("builder.End: %w", ErrBuilderFinalized)
	case builderEmpty:
		b.state = builderBuilt
		return nil
	}

	if b.hasLeaf && !b.tree.asLeaf(&b.leafBuf).empty() {
		if err := b.flushLeaf(); err != nil {
			return fmt.Errorf("builder.End: %w", err)
		}
	}

	for level := 0; level < len(b.layers); level++ {
		if level == len(b.layers)-1 && b.layers[level].size() == 1 {
			break
		}
		if err := b.finishLayer(level); err != nil {
			return fmt.Errorf("builder.End: %w", err)
		}
	}

	top := len(b.layers) - 1
	b.tree.root = b.layers[top].front().handle
	b.tree.height = top
	b.tree.size = b.count
	b.state = builderBuilt
	return nil
}

func (b *Builder[K, V]) newLeaf() error {
	if err := b.tree.blocks.AllocateBlock(&b.leafBuf); err != nil {
		return err
	}
	b.tree.asLeaf(&b.leafBuf).clear()
	b.hasLeaf = true
	return nil
}

// flushLeaf emits the in-progress leaf to level 0 and reduces.
func (b *Builder[K, V]) flushLeaf() error {
	if len(b.layers) == 0 {
		b.layers = append(b.layers, fifo[K]{})
	}
	if err := b.tree.blocks.Write(&b.leafBuf); err != nil {
		return err
	}
	b.layers[0].push(handleKey[K]{handle: b.leafBuf.Handle(), key: b.leafKey})
	b.hasLeaf = false
	return b.reduceLayer(0)
}

// reduceLayer joins batches of NodeMax subtrees while the layer exceeds
// NodeMin+NodeMax, then recurses into the layer above.
func (b *Builder[K, V]) reduceLayer(level int) error {
	mn := int(b.tree.params.NodeMin)
	mx := int(b.tree.params.NodeMax)
	if b.layers[level].size() <= mn+mx {
		return nil
	}
	for b.layers[level].size() > mn+mx {
		if err := b.pushNode(mx, level+1); err != nil {
			return err
		}
	}
	return b.reduceLayer(level + 1)
}

// finishLayer drains a layer into the one above. The second step emits a
// short node on purpose so that the final node consumes at least NodeMin
// subtrees.
func (b *Builder[K, V]) finishLayer(level int) error {
	mn := int(b.tree.params.NodeMin)
	mx := int(b.tree.params.NodeMax)
	for b.layers[level].size() > mn+mx {
		if err := b.pushNode(mx, level+1); err != nil {
			return err
		}
	}
	if s := b.layers[level].size(); s > mx {
		if err := b.pushNode(s-mn, level+1); err != nil {
			return err
		}
	}
	if s := b.layers[level].size(); s > 0 {
		if err := b.pushNode(s, level+1); err != nil {
			return err
		}
	}
	return nil
}

// pushNode joins the first children subtrees of level-1 into one node
// emitted to level.
func (b *Builder[K, V]) pushNode(children, level int) error {
	if level == len(b.layers) {
		b.layers = append(b.layers, fifo[K]{})
	}

	if err := b.tree.blocks.AllocateBlock(&b.nodeBuf); err != nil {
		return err
	}
	n := b.tree.asNode(&b.nodeBuf)
	n.clear()

	below := &b.layers[level-1]
	b.layers[level].push(handleKey[K]{handle: b.nodeBuf.Handle(), key: below.front().key})

	for i := 0; i < children; i++ {
		hk := below.popFront()
		if i == 0 {
			n.pushFirstChild(hk.handle)
		} else {
			n.pushChild(hk.key, hk.handle)
		}
	}
	return b.tree.blocks.Write(&b.nodeBuf)
}
