//go:build debug

package collection

import "fmt"

// assertBlockData panics if a buffer is not exactly one block.
// Only enabled with -tags debug.
func assertBlockData(method string, size, blockSize int) {
	if size != blockSize {
		panic(fmt.Sprintf("%s: buffer size %d != block size %d", method, size, blockSize))
	}
}
