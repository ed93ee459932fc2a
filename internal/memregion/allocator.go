// Package memregion implements a fixed-capacity bump-style region allocator
// and a conservative mark-and-sweep collector over that region. The managed
// region is a real mmap-backed address range (region_unix.go) rather than a
// static array, and the conservative mark phase walks an explicit worklist
// instead of recursing.
package memregion

import (
	"fmt"
	"io"
)

// Selector names one of the allocator's two externally visible registries.
type Selector int

const (
	SelectorAllocated Selector = iota
	SelectorFree
)

func (s Selector) String() string {
	if s == SelectorAllocated {
		return "Alloced"
	}

	return "Freed"
}

// Stats reports cumulative allocator activity.
type Stats struct {
	AllocationCount uint64
	FreeCount       uint64
	BytesAllocated  uintptr
	BytesFreed      uintptr
}

// Allocator owns a single contiguous, word-aligned managed region and the
// registries that partition it. It is not safe for concurrent use: callers
// must serialize access externally.
type Allocator struct {
	cfg *Config
	reg *region

	allocated *Registry
	free      *Registry
	scratch   *Registry

	stats Stats
}

// New constructs an Allocator whose managed region starts out as a single
// free chunk covering its entirety.
func New(opts ...Option) (*Allocator, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.RegionCapacityBytes == 0 || cfg.RegionCapacityBytes%wordSize != 0 {
		return nil, fmt.Errorf("region capacity %d bytes is not a positive multiple of the machine word size %d", cfg.RegionCapacityBytes, wordSize)
	}

	if cfg.ChunkListCapacity <= 0 {
		return nil, fmt.Errorf("chunk list capacity must be positive, got %d", cfg.ChunkListCapacity)
	}

	words := int(cfg.RegionCapacityBytes / wordSize)

	reg, err := newRegion(words)
	if err != nil {
		return nil, err
	}

	a := &Allocator{
		cfg:       cfg,
		reg:       reg,
		allocated: newRegistry(SelectorAllocated.String(), cfg.ChunkListCapacity),
		free:      newRegistry(SelectorFree.String(), cfg.ChunkListCapacity),
		scratch:   newRegistry("", cfg.ChunkListCapacity),
	}
	a.free.insert(reg.base(), uintptr(words))

	return a, nil
}

// Close releases platform resources backing the managed region.
func (a *Allocator) Close() error { return a.reg.close() }

// RegionCapacityWords returns the region's total capacity in machine words.
func (a *Allocator) RegionCapacityWords() uintptr { return uintptr(a.reg.words()) }

// Allocate rounds sizeBytes up to a whole number of machine words and
// serves it from the lowest-addressed free chunk that fits, coalescing the
// free registry first. It returns (0, false) for a zero-byte request or
// when no chunk fits; both are ordinary, recoverable outcomes, never
// errors.
func (a *Allocator) Allocate(sizeBytes uintptr) (uintptr, bool) {
	sizeWords := (sizeBytes + wordSize - 1) / wordSize
	if sizeWords == 0 {
		return 0, false
	}

	a.scratch.coalesceFrom(a.free)
	a.free.assignFrom(a.scratch)

	for i := 0; i < a.free.Count(); i++ {
		chunk := a.free.At(i)
		if chunk.Size < sizeWords {
			continue
		}

		a.free.remove(i)
		a.allocated.insert(chunk.Start, sizeWords)

		if tailWords := chunk.Size - sizeWords; tailWords > 0 {
			a.free.insert(chunk.Start+sizeWords*wordSize, tailWords)
		}

		a.stats.AllocationCount++
		a.stats.BytesAllocated += sizeWords * wordSize

		return chunk.Start, true
	}

	return 0, false
}

// Free returns the chunk starting at ptr to the free registry. A zero
// pointer is a silent no-op. Any other address that is not the start of a
// live allocation is a programming error and panics.
func (a *Allocator) Free(ptr uintptr) {
	if ptr == 0 {
		return
	}

	idx := a.allocated.find(ptr)
	if idx < 0 {
		panic(unknownAddress(ptr))
	}

	chunk := a.allocated.At(idx)
	a.free.insert(chunk.Start, chunk.Size)
	a.allocated.remove(idx)

	a.stats.FreeCount++
	a.stats.BytesFreed += chunk.Size * wordSize
}

// Dump writes the diagnostic listing for the selected registry. The format
// is not a stable interface.
func (a *Allocator) Dump(w io.Writer, which Selector) {
	a.registry(which).dump(w)
}

// Snapshot returns a defensive copy of the selected registry's chunks.
func (a *Allocator) Snapshot(which Selector) []Chunk {
	return a.registry(which).snapshot()
}

func (a *Allocator) registry(which Selector) *Registry {
	if which == SelectorAllocated {
		return a.allocated
	}

	return a.free
}

// Stats returns cumulative allocation statistics.
func (a *Allocator) Stats() Stats { return a.stats }

// ReadWord and WriteWord expose the region's unsafe word accessors so
// callers can lay out pointer-containing structures (e.g. tree nodes) inside
// allocated chunks for the collector to trace conservatively.
func (a *Allocator) ReadWord(addr uintptr) uintptr { return readWord(addr) }

func (a *Allocator) WriteWord(addr uintptr, value uintptr) { writeWord(addr, value) }
