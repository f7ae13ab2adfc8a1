package blocktree

import "errors"

var (
	ErrClosed            = errors.New("closed")
	ErrOpened            = errors.New("opened")
	ErrReadOnly          = errors.New("read-only")
	ErrInvalidBlockSize  = errors.New("invalid block size")
	ErrInvalidHandle     = errors.New("invalid block handle")
	ErrInvalidParameters = errors.New("invalid parameters")
	ErrOutOfBlocks       = errors.New("out of blocks")
	ErrFileTruncated     = errors.New("file truncated")
	ErrKeyNotFound       = errors.New("key not found")
	ErrBuilderFinalized  = errors.New("builder finalized")
	ErrInvariant         = errors.New("invariant violated")
)
