// Copyright 2025 dacapoday
// SPDX-License-Identifier: Apache-2.0

package btree

import (
	"encoding/binary"

	"github.com/dacapoday/blocktree/collection"
)

// fuseResult is the outcome of rebalancing two siblings.
type fuseResult int

const (
	// fuseShare: both siblings are still in use; entries were
	// redistributed and the parent separator was replaced.
	fuseShare fuseResult = iota

	// fuseMerge: all of the right sibling was merged into the left.
	fuseMerge
)

// node is a view over the block image of an internal node: the header,
// NodeMax child handle slots, then NodeMax-1 key slots. The first degree
// children and degree-1 keys are live. Keys and children interleave
// logically as c0 k0 c1 k1 ... c(degree-1): every value reachable through
// ci has a key < ki and >= k(i-1).
type node[K, V any] struct {
	data []byte
	lay  *Layout[K, V]
	p    Parameters
}

func (n node[K, V]) degree() int     { return degreeOf(n.data) }
func (n node[K, V]) numKeys() int    { return n.degree() - 1 }
func (n node[K, V]) full() bool      { return n.degree() == int(n.p.NodeMax) }
func (n node[K, V]) underfull() bool { return n.degree() < int(n.p.NodeMin) }
func (n node[K, V]) empty() bool     { return n.degree() == 0 }
func (n node[K, V]) clear()          { setDegreeOf(n.data, 0) }
func (n node[K, V]) setDegree(d int) { setDegreeOf(n.data, d) }

func (n node[K, V]) childOffset(i int) int {
	return headerSize + i*handleSize
}

func (n node[K, V]) keyOffset(i int) int {
	return headerSize + int(n.p.NodeMax)*handleSize + i*n.lay.Key.Size()
}

func (n node[K, V]) child(i int) collection.Handle {
	return collection.Handle(binary.LittleEndian.Uint64(n.data[n.childOffset(i):]))
}

func (n node[K, V]) setChild(i int, h collection.Handle) {
	binary.LittleEndian.PutUint64(n.data[n.childOffset(i):], uint64(h))
}

func (n node[K, V]) key(i int) K {
	return n.lay.Key.Decode(n.data[n.keyOffset(i):])
}

func (n node[K, V]) setKey(i int, k K) {
	n.lay.Key.Encode(n.data[n.keyOffset(i):], k)
}

// newRoot initializes an empty node as a root with one key and two
// children.
func (n node[K, V]) newRoot(k K, left, right collection.Handle) {
	n.setDegree(2)
	n.setKey(0, k)
	n.setChild(0, left)
	n.setChild(1, right)
}

// pushFirstChild starts a node under construction.
// Pre-condition: empty().
func (n node[K, V]) pushFirstChild(h collection.Handle) {
	n.setChild(0, h)
	n.setDegree(1)
}

// pushChild appends a separator key and the child to its right.
// Pre-condition: !full().
func (n node[K, V]) pushChild(k K, h collection.Handle) {
	d := n.degree() + 1
	n.setDegree(d)
	n.setKey(d-2, k)
	n.setChild(d-1, h)
}

// insert places k at key position i, replacing the child at i with
// leftChild and inserting rightChild at child position i+1, shifting
// higher keys and children right. Pre-condition: !full().
func (n node[K, V]) insert(i int, k K, leftChild, rightChild collection.Handle) {
	nk := n.numKeys()
	n.setChild(i, leftChild)

	c := rightChild
	for ; i < nk; i++ {
		c, k = n.swapChildKey(i, c, k)
	}
	n.setChild(i+1, c)
	n.setKey(i, k)
	n.setDegree(n.degree() + 1)
}

func (n node[K, V]) swapChildKey(i int, c collection.Handle, k K) (collection.Handle, K) {
	oc, ok := n.child(i+1), n.key(i)
	n.setChild(i+1, c)
	n.setKey(i, k)
	return oc, ok
}

// splitInsert distributes this full node's keys and children plus the
// inserted separator over left and right, partitioned at the middle of
// the child list the same way fuse shares: the key before the split point
// is returned as the median and placed in neither half. Both halves
// receive at least NodeMin children at every legal fanout.
// Pre-condition: full(), left and right are empty.
func (n node[K, V]) splitInsert(insertIndex int, insertKey K, leftChild, rightChild collection.Handle, left, right node[K, V]) K {
	nk := n.numKeys()
	keys := make([]K, nk+1)
	children := make([]collection.Handle, n.degree()+1)

	for i := 0; i < nk; i++ {
		dest := i
		if insertIndex <= i {
			dest++
		}
		keys[dest] = n.key(i)
		children[dest] = n.child(i)
	}
	children[n.degree()] = n.child(n.degree() - 1)

	keys[insertIndex] = insertKey
	children[insertIndex] = leftChild
	children[insertIndex+1] = rightChild

	half := len(children) / 2
	for i := 0; i < half-1; i++ {
		left.setKey(i, keys[i])
	}
	for i := 0; i < half; i++ {
		left.setChild(i, children[i])
	}
	left.setDegree(half)

	mid := keys[half-1]

	for i := half; i < len(keys); i++ {
		right.setKey(i-half, keys[i])
	}
	for i := half; i < len(children); i++ {
		right.setChild(i-half, children[i])
	}
	right.setDegree(len(children) - half)

	return mid
}

// removeChild drops the separator at rightIndex-1 and the child at
// rightIndex after a merge, shifting higher entries down.
func (n node[K, V]) removeChild(rightIndex int) {
	nk := n.numKeys()
	for i := rightIndex; i < nk; i++ {
		n.setKey(i-1, n.key(i))
	}
	d := n.degree()
	for i := rightIndex + 1; i < d; i++ {
		n.setChild(i-1, n.child(i))
	}
	n.setDegree(d - 1)
}

// fuseLeaves rebalances the leaf children at rightIndex-1 and rightIndex.
// On merge the separator and the right child are removed from this node;
// on share the separator is replaced with the new pivot.
func (n node[K, V]) fuseLeaves(rightIndex int, left, right leaf[K, V]) fuseResult {
	res, pivot := left.fuseWith(right)
	switch res {
	case fuseMerge:
		n.removeChild(rightIndex)
	case fuseShare:
		n.setKey(rightIndex-1, pivot)
	}
	return res
}

// fuse rebalances the internal-node children at rightIndex-1 and
// rightIndex: the concatenation of left's entries, the separator and
// right's entries either fits into left (merge) or is split at the middle
// with the key before the split point becoming the new separator (share).
func (n node[K, V]) fuse(rightIndex int, left, right node[K, V]) fuseResult {
	lk, rk := left.numKeys(), right.numKeys()
	keys := make([]K, 0, lk+1+rk)
	children := make([]collection.Handle, 0, left.degree()+right.degree())

	for i := 0; i < lk; i++ {
		keys = append(keys, left.key(i))
		children = append(children, left.child(i))
	}
	keys = append(keys, n.key(rightIndex-1))
	children = append(children, left.child(lk))
	for i := 0; i < rk; i++ {
		keys = append(keys, right.key(i))
		children = append(children, right.child(i))
	}
	children = append(children, right.child(rk))

	if len(children) <= int(n.p.NodeMax) {
		for i, k := range keys {
			left.setKey(i, k)
		}
		for i, c := range children {
			left.setChild(i, c)
		}
		left.setDegree(len(children))
		n.removeChild(rightIndex)
		return fuseMerge
	}

	half := len(children) / 2
	for i := 0; i < half-1; i++ {
		left.setKey(i, keys[i])
	}
	for i := 0; i < half; i++ {
		left.setChild(i, children[i])
	}
	left.setDegree(half)

	n.setKey(rightIndex-1, keys[half-1])

	for i := half; i < len(keys); i++ {
		right.setKey(i-half, keys[i])
	}
	for i := half; i < len(children); i++ {
		right.setChild(i-half, children[i])
	}
	right.setDegree(len(children) - half)
	return fuseShare
}
