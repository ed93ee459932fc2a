package memregion

import (
	"fmt"
	"io"
)

// Chunk is a half-open interval over the managed region: [Start, Start +
// Size*wordSize). Size is a word count, not a byte count.
type Chunk struct {
	Start uintptr
	Size  uintptr
}

// end returns the address one past the last byte of the chunk.
func (c Chunk) end() uintptr { return c.Start + c.Size*wordSize }

// Registry is a bounded, strictly start-ascending, non-overlapping sequence
// of Chunks. It never allocates from the region it tracks; the allocator's
// own bookkeeping cannot depend on the thing it is bookkeeping.
type Registry struct {
	name     string
	capacity int
	chunks   []Chunk
}

func newRegistry(name string, capacity int) *Registry {
	return &Registry{
		name:     name,
		capacity: capacity,
		chunks:   make([]Chunk, 0, capacity),
	}
}

// Count returns the number of chunks currently tracked.
func (r *Registry) Count() int { return len(r.chunks) }

// At returns the chunk at position i. i must be in [0, Count()).
func (r *Registry) At(i int) Chunk { return r.chunks[i] }

// insert appends (start, size) and bubbles it left until the predecessor's
// start is less, restoring sorted order in the common case of an
// already-almost-sorted list. Panics on capacity overflow.
func (r *Registry) insert(start, size uintptr) {
	if len(r.chunks) >= r.capacity {
		panic(registryOverflow(r.name))
	}

	r.chunks = append(r.chunks, Chunk{Start: start, Size: size})

	for i := len(r.chunks) - 1; i > 0 && r.chunks[i].Start < r.chunks[i-1].Start; i-- {
		r.chunks[i], r.chunks[i-1] = r.chunks[i-1], r.chunks[i]
	}
}

// find returns the index of the chunk whose Start equals addr exactly, or
// -1 if none does.
func (r *Registry) find(addr uintptr) int {
	for i, c := range r.chunks {
		if c.Start == addr {
			return i
		}
	}

	return -1
}

// remove deletes the chunk at index, shifting the suffix left by one.
// Panics if index is out of range.
func (r *Registry) remove(index int) {
	if index < 0 || index >= len(r.chunks) {
		panic(badIndex(index, len(r.chunks), r.name))
	}

	copy(r.chunks[index:], r.chunks[index+1:])
	r.chunks = r.chunks[:len(r.chunks)-1]
}

// reset empties the registry without releasing its backing array.
func (r *Registry) reset() { r.chunks = r.chunks[:0] }

// coalesceFrom rebuilds r from src: r is reset to empty, then each chunk of
// src (visited in order, since src is sorted and non-overlapping) either
// extends r's last chunk when the two are adjacent or is inserted as a new
// chunk. The result is sorted, non-overlapping, and contains no
// adjacent-contiguous pair.
func (r *Registry) coalesceFrom(src *Registry) {
	r.reset()

	for i := 0; i < len(src.chunks); i++ {
		c := src.chunks[i]

		if len(r.chunks) > 0 {
			top := &r.chunks[len(r.chunks)-1]
			if top.end() == c.Start {
				top.Size += c.Size
				continue
			}
		}

		r.insert(c.Start, c.Size)
	}
}

// assignFrom replaces r's contents with a copy of src's, preserving r's own
// name and capacity. Used to publish a coalesced scratch registry back into
// the free registry it was coalesced from.
func (r *Registry) assignFrom(src *Registry) {
	r.chunks = append(r.chunks[:0], src.chunks...)
}

// sumSizes returns the total word count tracked by the registry.
func (r *Registry) sumSizes() uintptr {
	var total uintptr
	for _, c := range r.chunks {
		total += c.Size
	}

	return total
}

// snapshot returns a defensive copy of the tracked chunks.
func (r *Registry) snapshot() []Chunk {
	out := make([]Chunk, len(r.chunks))
	copy(out, r.chunks)

	return out
}

// dump writes a human-readable listing of the registry's chunks. The format
// is not a stable interface.
func (r *Registry) dump(w io.Writer) {
	fmt.Fprintf(w, "%s Chunks (%d):\n", r.name, len(r.chunks))

	for _, c := range r.chunks {
		fmt.Fprintf(w, "  start: 0x%x, size: %d\n", c.Start, c.Size)
	}
}
