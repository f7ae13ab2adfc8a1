package collection

import (
	"github.com/dacapoday/blocktree"
)

var (
	ErrClosed           = blocktree.ErrClosed
	ErrOpened           = blocktree.ErrOpened
	ErrReadOnly         = blocktree.ErrReadOnly
	ErrInvalidBlockSize = blocktree.ErrInvalidBlockSize
	ErrInvalidHandle    = blocktree.ErrInvalidHandle
	ErrOutOfBlocks      = blocktree.ErrOutOfBlocks
	ErrFileTruncated    = blocktree.ErrFileTruncated
)
