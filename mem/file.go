// Copyright 2025 dacapoday
// SPDX-License-Identifier: Apache-2.0

// Package mem provides an in-memory implementation of the blocktree.File
// interface, intended for tests and examples.
package mem

import (
	"io"
	"sync"

	"github.com/dacapoday/blocktree"
)

const segmentSize = 32 * 1024

// File is an in-memory implementation of the blocktree.File interface.
// It is safe for concurrent use by multiple goroutines.
//
// File requires no initialization - just declare and use:
//
//	var f File
//	f.WriteAt([]byte("hello"), 0)
type File struct {
	rw       sync.RWMutex
	segments [][]byte
	size     int64
}

var _ blocktree.File = new(File)

// Close clears all data stored in the File and releases memory.
// After Close, the file size becomes 0.
// It is safe to write to the file again after closing.
func (file *File) Close() error {
	file.rw.Lock()
	file.segments = nil
	file.size = 0
	file.rw.Unlock()
	return nil
}

// Size returns the current size of the file in bytes.
func (file *File) Size() int64 {
	file.rw.RLock()
	defer file.rw.RUnlock()
	return file.size
}

// Sync is a no-op for in-memory files.
func (file *File) Sync() error {
	return nil
}

// Truncate changes the size of the file.
// Growing the file fills the gap with zero bytes.
func (file *File) Truncate(size int64) error {
	if size < 0 {
		return io.ErrUnexpectedEOF
	}
	file.rw.Lock()
	defer file.rw.Unlock()
	file.grow(size)
	if size < file.size {
		for i := segmentIndex(size); i < len(file.segments); i++ {
			beg := int64(i) * segmentSize
			seg := file.segments[i]
			if beg >= size {
				clearBytes(seg)
				continue
			}
			clearBytes(seg[size-beg:])
		}
		file.size = size
	}
	return nil
}

// ReadAt reads len(p) bytes from the file starting at byte offset off.
// It implements the io.ReaderAt interface: a read past the current file
// size returns the number of bytes read and io.EOF.
func (file *File) ReadAt(p []byte, off int64) (n int, err error) {
	if off < 0 {
		return 0, io.ErrUnexpectedEOF
	}

	file.rw.RLock()
	defer file.rw.RUnlock()

	if off >= file.size {
		return 0, io.EOF
	}

	rest := file.size - off
	if int64(len(p)) > rest {
		err = io.EOF
		p = p[:rest]
	}

	for len(p) > 0 {
		seg := file.segments[segmentIndex(off)]
		beg := off % segmentSize
		c := copy(p, seg[beg:])
		n += c
		off += int64(c)
		p = p[c:]
	}
	return
}

// WriteAt writes len(p) bytes from p to the file starting at byte offset off.
// If the write position extends beyond the current file size, the file is
// automatically grown and the gap is filled with zero bytes.
func (file *File) WriteAt(p []byte, off int64) (n int, err error) {
	if off < 0 {
		return 0, io.ErrUnexpectedEOF
	}
	if len(p) == 0 {
		return 0, nil
	}

	file.rw.Lock()
	defer file.rw.Unlock()

	end := off + int64(len(p))
	file.grow(end)

	for len(p) > 0 {
		seg := file.segments[segmentIndex(off)]
		beg := off % segmentSize
		c := copy(seg[beg:], p)
		n += c
		off += int64(c)
		p = p[c:]
	}
	return
}

// WriteTo writes the entire file content to w.
// It implements the io.WriterTo interface, used by tests to snapshot a
// file image before reopening it.
func (file *File) WriteTo(w io.Writer) (n int64, err error) {
	file.rw.RLock()
	defer file.rw.RUnlock()

	rest := file.size
	for _, seg := range file.segments {
		if rest <= 0 {
			break
		}
		if int64(len(seg)) > rest {
			seg = seg[:rest]
		}
		c, err := w.Write(seg)
		n += int64(c)
		rest -= int64(c)
		if err != nil {
			return n, err
		}
	}
	return
}

// ReadFrom reads data from r until EOF and replaces the entire file content.
// It implements the io.ReaderFrom interface.
func (file *File) ReadFrom(r io.Reader) (n int64, err error) {
	file.rw.Lock()
	defer file.rw.Unlock()

	file.segments = nil
	file.size = 0
	for {
		seg := make([]byte, segmentSize)
		c, err := io.ReadFull(r, seg)
		if c > 0 {
			n += int64(c)
			file.segments = append(file.segments, seg)
			file.size = n
		}
		if err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				err = nil
			}
			return n, err
		}
	}
}

// grow extends the segment list to cover size bytes.
// Caller must hold the write lock.
func (file *File) grow(size int64) {
	for int64(len(file.segments))*segmentSize < size {
		file.segments = append(file.segments, make([]byte, segmentSize))
	}
	if size > file.size {
		file.size = size
	}
}

func segmentIndex(off int64) int {
	return int(off / segmentSize)
}

func clearBytes(p []byte) {
	for i := range p {
		p[i] = 0
	}
}
