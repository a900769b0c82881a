// Package allocator implements the Allocator contract described in spec
// §6.2: an alloc/free pair with size-aware free, used by the core to obtain
// the scratch buffers each operation needs (spec §5, "Shared resource
// policy"). It provides a byte-granular PoolAllocator over a fixed arena and
// a HeapAllocator backed by the Go heap (the core's default) — the core only
// ever asks for sector- and cluster-sized buffers and releases them on every
// exit path.
package allocator

// Allocator is the contract spec §6.2 describes. Alloc returns
// zero-initialized memory; Free must be called with the same size that was
// passed to the matching Alloc, which lets pool-style allocators recover
// the exact run of blocks to release.
type Allocator interface {
	Init() error
	Alloc(size uint) ([]byte, error)
	Free(buf []byte, size uint) error
}
