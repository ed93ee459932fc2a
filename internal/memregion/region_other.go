//go:build !unix

package memregion

// newRegion acquires the managed region as a plain Go-allocated slice on
// platforms without a wired mmap primitive (see region_unix.go).
func newRegion(capacityWords int) (*region, error) {
	return &region{mem: make([]uintptr, capacityWords)}, nil
}
