// Package blocktree defines basic interfaces for building an external-memory
// B+ tree over a block-addressed file.
package blocktree

import "io"

// File provides access to a storage backend for a block collection.
// The File interface is the minimum implementation required.
//
// The *os.File type satisfies this interface.
type File interface {
	io.ReaderAt
	io.WriterAt
	io.Closer

	// Truncate changes the size of the file.
	Truncate(size int64) error

	// Sync commits the current contents of the file to stable storage.
	// Typically, this means flushing the file system's in-memory copy
	// of recently written data to disk.
	Sync() error
}
