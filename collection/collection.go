// Copyright 2025 dacapoday
// SPDX-License-Identifier: Apache-2.0

// Package collection implements a block-addressed file: a paged file that
// allocates, frees, reads and writes fixed-size blocks, persisting its own
// allocation state in block 0.
package collection

import (
	"fmt"
	"io"
	"os"

	"github.com/dacapoday/blocktree"
)

// DefaultBlockSize is the block size used when Options.BlockSize is zero.
const DefaultBlockSize = 16 * 1024

// Options configures a collection at open time.
// The zero value means 16 KiB blocks. Write access is chosen separately by
// the writable argument of Open and New.
type Options struct {
	// BlockSize is the fixed size of every block in the file.
	// Must be a multiple of 8 and at least 512.
	// The same size must be used for all sessions of a given file.
	BlockSize int
}

func (opt Options) blockSize() int {
	if opt.BlockSize == 0 {
		return DefaultBlockSize
	}
	return opt.BlockSize
}

// Collection is a block-addressed file.
//
// Block 0 holds an allocation bitmap of 8*blockSize bits, which caps the
// collection at 8*blockSize blocks. The bitmap is read at open, mutated in
// memory on Allocate/Free, and written back on Flush and Close.
//
// A Collection is not safe for concurrent use.
type Collection struct {
	file     blocktree.File
	bitmap   bitmap
	size     int64 // block size
	limit    int64 // file length in blocks
	writable bool
	opened   bool
}

// Open opens the named file, creating it when writable, and attaches a
// collection to it.
// The collection owns the file and closes it on Close.
func Open(path string, writable bool, opt Options) (*Collection, error) {
	flag := os.O_RDONLY
	if writable {
		flag = os.O_RDWR | os.O_CREATE
	}
	file, err := os.OpenFile(path, flag, 0o644)
	if err != nil {
		return nil, fmt.Errorf("collection.Open: %w", err)
	}

	c, err := New(file, writable, opt)
	if err != nil {
		file.Close()
		return nil, err
	}
	return c, nil
}

// New attaches a collection to an already-open storage backend.
// The collection takes ownership of the file and closes it on Close.
//
// An empty file is initialized with a fresh allocation bitmap when
// writable and fails with ErrFileTruncated when read-only; a non-empty
// file must start with a bitmap block written by a previous session using
// the same block size.
func New(file blocktree.File, writable bool, opt Options) (c *Collection, err error) {
	size := opt.blockSize()
	if size < 512 || size%8 != 0 {
		err = fmt.Errorf("collection.New: %d: %w", size, ErrInvalidBlockSize)
		return
	}

	c = &Collection{
		file:     file,
		size:     int64(size),
		writable: writable,
		opened:   true,
	}

	buffer := make([]byte, size)
	n, err := file.ReadAt(buffer, 0)
	if err == io.EOF && n > 0 {
		// A file shorter than one block cannot hold a bitmap.
		c = nil
		err = fmt.Errorf("collection.New: bitmap block: %w", ErrFileTruncated)
		return
	}
	if err == io.EOF {
		// Fresh file.
		if !writable {
			c = nil
			err = fmt.Errorf("collection.New: read-only: %w", ErrFileTruncated)
			return
		}
		c.bitmap.init(size)
		c.limit = 1
		if err = c.writeBitmap(); err != nil {
			c = nil
			return
		}
		return c, nil
	}
	if err != nil {
		c = nil
		err = fmt.Errorf("collection.New: read bitmap: %w", err)
		return
	}

	c.bitmap.load(buffer)
	c.limit = int64(c.bitmap.highest()) + 1
	return c, nil
}

// BlockSize returns the fixed block size of the collection.
func (c *Collection) BlockSize() int {
	return int(c.size)
}

// Writable reports whether the collection was opened for writing.
func (c *Collection) Writable() bool {
	return c.writable
}

// Close flushes the allocation bitmap and closes the file.
// Close is idempotent.
func (c *Collection) Close() (err error) {
	if !c.opened {
		return nil
	}
	c.opened = false

	if c.writable {
		err = c.writeBitmap()
	}
	if cerr := c.file.Close(); err == nil {
		err = cerr
	}
	c.file = nil
	c.bitmap = bitmap{}
	return
}

// Flush writes the allocation bitmap to block 0 and syncs the file.
func (c *Collection) Flush() error {
	if !c.opened {
		return ErrClosed
	}
	if !c.writable {
		return ErrReadOnly
	}
	return c.writeBitmap()
}

func (c *Collection) writeBitmap() (err error) {
	buffer := make([]byte, c.size)
	c.bitmap.store(buffer)
	if _, err = c.file.WriteAt(buffer, 0); err != nil {
		return fmt.Errorf("collection: write bitmap: %w", err)
	}
	if err = c.file.Sync(); err != nil {
		return fmt.Errorf("collection: sync bitmap: %w", err)
	}
	return
}

// Allocate returns a previously-free handle and marks it allocated.
// It never returns Null. The file is extended as needed so that the new
// block can be read back before its first write.
func (c *Collection) Allocate() (h Handle, err error) {
	if !c.opened {
		err = ErrClosed
		return
	}
	if !c.writable {
		err = ErrReadOnly
		return
	}

	h, ok := c.bitmap.allocate()
	if !ok {
		err = ErrOutOfBlocks
		return
	}

	if blocks := int64(h) + 1; blocks > c.limit {
		if err = c.file.Truncate(blocks * c.size); err != nil {
			c.bitmap.free(h)
			h = Null
			err = fmt.Errorf("collection.Allocate: grow: %w", err)
			return
		}
		c.limit = blocks
	}
	return
}

// AllocateBlock allocates a handle and binds buf to it with a zeroed
// block-sized byte array.
func (c *Collection) AllocateBlock(buf *Buffer) error {
	h, err := c.Allocate()
	if err != nil {
		return err
	}
	buf.SetHandle(h)
	buf.resize(int(c.size))
	return nil
}

// Free clears the allocation bit for h.
// Subsequent allocations may return h again.
func (c *Collection) Free(h Handle) error {
	if !c.opened {
		return ErrClosed
	}
	if !c.writable {
		return ErrReadOnly
	}
	if h == Null || int(h) >= c.bitmap.capacity() {
		return fmt.Errorf("collection.Free(%d): %w", h, ErrInvalidHandle)
	}
	c.bitmap.free(h)
	return nil
}

// Read reads the block at h into buf, binding buf to h.
func (c *Collection) Read(h Handle, buf *Buffer) error {
	if !c.opened {
		return ErrClosed
	}
	if h == Null || int(h) >= c.bitmap.capacity() {
		return fmt.Errorf("collection.Read(%d): %w", h, ErrInvalidHandle)
	}

	buf.SetHandle(h)
	buf.reserve(int(c.size))
	if _, err := c.file.ReadAt(buf.data, int64(h)*c.size); err != nil {
		return fmt.Errorf("collection.Read(%d): %w", h, err)
	}
	return nil
}

// Write writes buf to the block identified by its handle.
func (c *Collection) Write(buf *Buffer) error {
	if !c.opened {
		return ErrClosed
	}
	if !c.writable {
		return ErrReadOnly
	}
	h := buf.Handle()
	if h == Null || int(h) >= c.bitmap.capacity() {
		return fmt.Errorf("collection.Write(%d): %w", h, ErrInvalidHandle)
	}
	assertBlockData("collection.Write", len(buf.data), int(c.size))

	if _, err := c.file.WriteAt(buf.data, int64(h)*c.size); err != nil {
		return fmt.Errorf("collection.Write(%d): %w", h, err)
	}
	return nil
}

// IsAllocated reports whether h is marked allocated in the bitmap.
func (c *Collection) IsAllocated(h Handle) bool {
	if !c.opened || int(h) >= c.bitmap.capacity() {
		return false
	}
	return c.bitmap.test(h)
}

// Stats reports the number of allocated blocks (including the bitmap
// block) and the total capacity of the collection.
func (c *Collection) Stats() (allocated, capacity int) {
	if !c.opened {
		return 0, 0
	}
	return c.bitmap.count(), c.bitmap.capacity()
}
