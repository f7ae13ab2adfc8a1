package btree

import (
	"github.com/dacapoday/blocktree"
)

var (
	ErrClosed            = blocktree.ErrClosed
	ErrOpened            = blocktree.ErrOpened
	ErrKeyNotFound       = blocktree.ErrKeyNotFound
	ErrInvalidParameters = blocktree.ErrInvalidParameters
	ErrBuilderFinalized  = blocktree.ErrBuilderFinalized
	ErrInvariant         = blocktree.ErrInvariant
)
