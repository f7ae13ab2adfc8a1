package btree

import (
	"bytes"
	"slices"
	"testing"

	"github.com/go-faker/faker/v4"
	"github.com/stretchr/testify/require"

	"github.com/dacapoday/blocktree/collection"
	"github.com/dacapoday/blocktree/mem"
)

func TestUint64CodecRoundTrip(t *testing.T) {
	var c Uint64Codec
	buf := make([]byte, c.Size())
	c.Encode(buf, 0xDEADBEEFCAFE)
	require.Equal(t, uint64(0xDEADBEEFCAFE), c.Decode(buf))
}

func TestInt64CodecRoundTrip(t *testing.T) {
	var c Int64Codec
	buf := make([]byte, c.Size())
	c.Encode(buf, -42)
	require.Equal(t, int64(-42), c.Decode(buf))
}

func TestBytesCodec(t *testing.T) {
	c := BytesCodec(8)
	buf := make([]byte, c.Size())

	c.Encode(buf, []byte("ab"))
	require.Equal(t, []byte{'a', 'b', 0, 0, 0, 0, 0, 0}, c.Decode(buf))

	c.Encode(buf, []byte("0123456789"))
	require.Equal(t, []byte("01234567"), c.Decode(buf), "oversized input is truncated")
}

// bytesLayout is an identity layout over fixed-width byte strings.
func bytesLayout(width int) Layout[[]byte, []byte] {
	codec := BytesCodec(width)
	return Layout[[]byte, []byte]{
		Key:   codec,
		Value: codec,
		Less:  func(a, b []byte) bool { return bytes.Compare(a, b) < 0 },
		KeyOf: func(v []byte) []byte { return v },
	}
}

func TestStringTree(t *testing.T) {
	const width = 24

	var f mem.File
	blocks, err := collection.New(&f, true, collection.Options{BlockSize: 512})
	require.NoError(t, err)
	defer blocks.Close()

	tree := New(bytesLayout(width))
	require.NoError(t, tree.Bind(blocks, 0))
	defer tree.Close()

	codec := BytesCodec(width)
	pad := func(s string) []byte {
		buf := make([]byte, width)
		codec.Encode(buf, []byte(s))
		return buf
	}

	words := map[string][]byte{}
	for len(words) < 300 {
		w := faker.Word() + "-" + faker.Word() + "-" + faker.Word()
		words[w] = pad(w)
	}

	for _, w := range words {
		require.NoError(t, tree.Insert(w))
	}

	var want [][]byte
	for _, w := range words {
		want = append(want, w)
	}
	slices.SortFunc(want, bytes.Compare)

	var got [][]byte
	require.NoError(t, tree.InOrderDump(func(v []byte) bool {
		got = append(got, v)
		return true
	}))
	require.Equal(t, want, got)

	for _, w := range words {
		v, err := tree.Find(w)
		require.NoError(t, err)
		require.Equal(t, w, v)
	}

	// Faker words are lowercase, so this key cannot collide.
	_, err = tree.Find(pad("ZZZ-not-present"))
	require.ErrorIs(t, err, ErrKeyNotFound)
}
