package btree

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dacapoday/blocktree/collection"
	"github.com/dacapoday/blocktree/mem"
)

func newTestTree(t *testing.T, p Parameters) *Tree[uint64, uint64] {
	t.Helper()

	var f mem.File
	blocks, err := collection.New(&f, true, collection.Options{BlockSize: 512})
	require.NoError(t, err, "collection.New")
	t.Cleanup(func() { blocks.Close() })

	tree := New(Uint64Layout())
	require.NoError(t, tree.SetParameters(p), "SetParameters")
	require.NoError(t, tree.Bind(blocks, 0), "Bind")
	return tree
}

func dumpAll(t *testing.T, tree *Tree[uint64, uint64]) []uint64 {
	t.Helper()
	var out []uint64
	require.NoError(t, tree.InOrderDump(func(v uint64) bool {
		out = append(out, v)
		return true
	}))
	return out
}

func sequence(begin, end, step uint64) []uint64 {
	var out []uint64
	for v := begin; v < end; v += step {
		out = append(out, v)
	}
	return out
}

func TestEmptyTree(t *testing.T) {
	tree := newTestTree(t, testParams)

	n, err := tree.Count(7)
	require.NoError(t, err)
	require.Equal(t, 0, n)

	_, ok, err := tree.TryFind(7)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = tree.Find(7)
	require.ErrorIs(t, err, ErrKeyNotFound)

	require.ErrorIs(t, tree.Erase(7), ErrKeyNotFound)

	require.Empty(t, dumpAll(t, tree))
	require.Equal(t, 0, tree.Height())
	require.Equal(t, int64(0), tree.Size())
}

func TestSingleValue(t *testing.T) {
	tree := newTestTree(t, testParams)
	require.NoError(t, tree.Insert(42))

	require.Equal(t, 0, tree.Height(), "single value lives in a leaf root")
	require.NotEqual(t, Null, tree.Root())
	require.Equal(t, int64(1), tree.Size())

	v, err := tree.Find(42)
	require.NoError(t, err)
	require.Equal(t, uint64(42), v)

	require.Equal(t, []uint64{42}, dumpAll(t, tree))
}

func TestRootLeafSplit(t *testing.T) {
	tree := newTestTree(t, testParams)

	// leafMax inserts stay in the root leaf; one more splits it.
	for _, v := range sequence(0, testParams.LeafMax, 1) {
		require.NoError(t, tree.Insert(v))
	}
	require.Equal(t, 0, tree.Height())

	require.NoError(t, tree.Insert(testParams.LeafMax))
	require.Equal(t, 1, tree.Height())
	checkInvariants(t, tree, false)

	require.Equal(t, sequence(0, testParams.LeafMax+1, 1), dumpAll(t, tree))
}

func TestTwoLeafMergeToRoot(t *testing.T) {
	tree := newTestTree(t, testParams)
	for _, v := range sequence(0, testParams.LeafMax+1, 1) {
		require.NoError(t, tree.Insert(v))
	}
	require.Equal(t, 1, tree.Height())

	// Draining to a single value merges the leaves and drops the level.
	for v := uint64(0); v < testParams.LeafMax; v++ {
		require.NoError(t, tree.Erase(v))
		checkInvariants(t, tree, false)
	}
	require.Equal(t, 0, tree.Height())
	require.Equal(t, []uint64{testParams.LeafMax}, dumpAll(t, tree))
}

func TestScenarioBasicInsertDump(t *testing.T) {
	// Insert 3*i mod 100 for i in [0,100): every residue exactly once.
	tree := newTestTree(t, testParams)
	for i := uint64(0); i < 100; i++ {
		require.NoError(t, tree.Insert(3 * i % 100))
	}
	checkInvariants(t, tree, false)
	require.Equal(t, sequence(0, 100, 1), dumpAll(t, tree))
	require.Equal(t, int64(100), tree.Size())
}

func TestScenarioEraseHalf(t *testing.T) {
	tree := newTestTree(t, testParams)
	for _, v := range sequence(0, 1000, 1) {
		require.NoError(t, tree.Insert(v))
	}

	for _, v := range sequence(1, 1000, 2) {
		require.NoError(t, tree.Erase(v))
	}
	checkInvariants(t, tree, false)

	got := dumpAll(t, tree)
	require.Equal(t, sequence(0, 1000, 2), got)
	require.Equal(t, int64(500), tree.Size())

	// Re-insert after erase restores the full range.
	for _, v := range sequence(1, 1000, 2) {
		require.NoError(t, tree.Insert(v))
	}
	checkInvariants(t, tree, false)
	require.Equal(t, sequence(0, 1000, 1), dumpAll(t, tree))
}

func TestInsertEraseIsNoOp(t *testing.T) {
	tree := newTestTree(t, testParams)
	for _, v := range sequence(0, 50, 1) {
		require.NoError(t, tree.Insert(v))
	}
	before := dumpAll(t, tree)

	require.NoError(t, tree.Insert(1000))
	require.NoError(t, tree.Erase(1000))

	require.Equal(t, before, dumpAll(t, tree))
	checkInvariants(t, tree, false)
}

func TestEraseMissingKey(t *testing.T) {
	tree := newTestTree(t, testParams)
	for _, v := range sequence(0, 20, 2) {
		require.NoError(t, tree.Insert(v))
	}

	require.ErrorIs(t, tree.Erase(3), ErrKeyNotFound)
	require.Equal(t, int64(10), tree.Size(), "failed erase leaves the size unchanged")
}

func TestFullDrainByInsertion(t *testing.T) {
	tree := newTestTree(t, testParams)
	for _, v := range sequence(0, 300, 1) {
		require.NoError(t, tree.Insert(v))
	}
	for _, v := range sequence(0, 300, 1) {
		require.NoError(t, tree.Erase(v))
	}

	require.Empty(t, dumpAll(t, tree))
	require.Equal(t, 0, tree.Height())
	require.Equal(t, Null, tree.Root())
	require.Equal(t, int64(0), tree.Size())

	allocated, _ := tree.Blocks().Stats()
	require.Equal(t, 1, allocated, "only the bitmap block stays allocated")
}

func TestParameterFloor(t *testing.T) {
	// The smallest legal configuration.
	floor := Parameters{NodeMin: 2, NodeMax: 3, LeafMin: 2, LeafMax: 3}

	tree := newTestTree(t, floor)
	for i := uint64(0); i < 100; i++ {
		require.NoError(t, tree.Insert(3*i%100))
		checkInvariants(t, tree, false)
	}
	require.Equal(t, sequence(0, 100, 1), dumpAll(t, tree))

	for _, v := range sequence(1, 100, 2) {
		require.NoError(t, tree.Erase(v))
		checkInvariants(t, tree, false)
	}
	require.Equal(t, sequence(0, 100, 2), dumpAll(t, tree))
}

func TestDuplicateKeys(t *testing.T) {
	tree := newTestTree(t, testParams)
	for i := 0; i < 10; i++ {
		require.NoError(t, tree.Insert(7))
	}
	require.Equal(t, int64(10), tree.Size())

	n, err := tree.Count(7)
	require.NoError(t, err)
	require.Equal(t, 1, n, "count reports presence, not multiplicity")

	require.Equal(t, []uint64{7, 7, 7, 7, 7, 7, 7, 7, 7, 7}, dumpAll(t, tree))
}

func TestDumpStopsEarly(t *testing.T) {
	tree := newTestTree(t, testParams)
	for _, v := range sequence(0, 100, 1) {
		require.NoError(t, tree.Insert(v))
	}

	var got []uint64
	require.NoError(t, tree.InOrderDump(func(v uint64) bool {
		got = append(got, v)
		return len(got) < 10
	}))
	require.Equal(t, sequence(0, 10, 1), got)
}

func TestSetParameters(t *testing.T) {
	tree := New(Uint64Layout())

	err := tree.SetParameters(Parameters{NodeMin: 1, NodeMax: 4, LeafMin: 2, LeafMax: 4})
	require.ErrorIs(t, err, ErrInvalidParameters)

	err = tree.SetParameters(Parameters{NodeMin: 2, NodeMax: 2, LeafMin: 2, LeafMax: 4})
	require.ErrorIs(t, err, ErrInvalidParameters)

	err = tree.SetParameters(Parameters{NodeMin: 2, NodeMax: 4, LeafMin: 2, LeafMax: 2})
	require.ErrorIs(t, err, ErrInvalidParameters)

	require.NoError(t, tree.SetParameters(testParams))

	var f mem.File
	blocks, err := collection.New(&f, true, collection.Options{BlockSize: 512})
	require.NoError(t, err)
	defer blocks.Close()
	require.NoError(t, tree.Bind(blocks, 0))

	require.ErrorIs(t, tree.SetParameters(testParams), ErrOpened,
		"parameters are frozen once open")
}

func TestClosedTreeOperations(t *testing.T) {
	tree := New(Uint64Layout())

	require.ErrorIs(t, tree.Insert(1), ErrClosed)
	require.ErrorIs(t, tree.Erase(1), ErrClosed)
	_, err := tree.Count(1)
	require.ErrorIs(t, err, ErrClosed)
	_, _, err = tree.TryFind(1)
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, tree.InOrderDump(func(uint64) bool { return true }), ErrClosed)

	require.NoError(t, tree.Close(), "closing a closed tree is a no-op")
}

func TestReopenWithAttach(t *testing.T) {
	var f mem.File
	blocks, err := collection.New(&f, true, collection.Options{BlockSize: 512})
	require.NoError(t, err)

	tree := New(Uint64Layout())
	require.NoError(t, tree.SetParameters(testParams))
	require.NoError(t, tree.Bind(blocks, 0))

	for _, v := range sequence(0, 200, 1) {
		require.NoError(t, tree.Insert(v))
	}
	root, height, size := tree.Root(), tree.Height(), tree.Size()
	require.NoError(t, tree.Close())
	require.NoError(t, blocks.Flush())

	// The collection stays open; a second tree attaches to the same
	// blocks and restores the externally persisted state.
	tree2 := New(Uint64Layout())
	require.NoError(t, tree2.SetParameters(testParams))
	require.NoError(t, tree2.Bind(blocks, 0))
	require.NoError(t, tree2.Attach(root, height, size))

	require.Equal(t, sequence(0, 200, 1), dumpAll(t, tree2))
	checkInvariants(t, tree2, false)

	require.NoError(t, tree2.Close())
	require.NoError(t, blocks.Close())
}
