//go:build !debug

package collection

// assertBlockData is a no-op in production.
// Enable with -tags debug for runtime checks.
func assertBlockData(string, int, int) {}
