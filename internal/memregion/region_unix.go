//go:build unix

package memregion

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// newRegion acquires the managed region as an anonymous, page-backed mmap
// mapping. This gives the region a genuine address range outside the host
// Go runtime's own heap bookkeeping, which matters for the conservative
// scan: a word copied out of this region must never be mistaken by the
// *host* runtime's garbage collector for a live pointer into its own heap.
func newRegion(capacityWords int) (*region, error) {
	size := capacityWords * int(wordSize)

	buf, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("mmap managed region of %d bytes: %w", size, err)
	}

	mem := unsafe.Slice((*uintptr)(unsafe.Pointer(&buf[0])), capacityWords)

	return &region{
		mem:     mem,
		release: func() error { return unix.Munmap(buf) },
	}, nil
}
