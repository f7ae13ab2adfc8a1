// Copyright 2025 dacapoday
// SPDX-License-Identifier: Apache-2.0

package btree

import "github.com/dacapoday/blocktree/collection"

// maxDepth bounds the descent path. The collection caps out at
// 8*blockSize blocks, so with NodeMin >= 2 a tree can never come close to
// this many internal levels.
const maxDepth = 64

type pathEntry struct {
	handle collection.Handle
	index  int
}

// path is the descent stack: (handle, child index) per internal level,
// root first. It is inline and fixed-capacity so descents allocate
// nothing.
type path struct {
	entries [maxDepth]pathEntry
	depth   int
}

func (p *path) empty() bool {
	return p.depth == 0
}

func (p *path) push(h collection.Handle, index int) {
	p.entries[p.depth] = pathEntry{handle: h, index: index}
	p.depth++
}

func (p *path) pop() (collection.Handle, int) {
	p.depth--
	e := p.entries[p.depth]
	return e.handle, e.index
}
