package memregion

// CollectStats reports cumulative collector activity.
type CollectStats struct {
	Collections     uint64
	ChunksReclaimed uint64
	BytesReclaimed  uintptr
	LastMarked      int
}

// Collector performs a conservative mark-and-sweep over an Allocator's
// allocated registry, treating every word-aligned value in the root region
// (the native call stack between InitRoot and the current frame) as a
// candidate address. It holds no state between calls beyond stackBase and
// its cumulative CollectStats; the bitmap and deferred-free list are rebuilt
// from scratch every Collect.
type Collector struct {
	alloc *Allocator

	stackBase uintptr
	rootInit  bool

	bitmap   []bool
	pending  []span
	toFree   []uintptr

	stats CollectStats
}

type span struct{ start, end uintptr }

// NewCollector creates a collector over the given allocator. InitRoot must
// be called on it before the first Collect.
func NewCollector(a *Allocator) *Collector {
	return &Collector{alloc: a}
}

// InitRoot captures stack_base: the address bracketing the deep end of the
// root region. It must be called exactly once, before any allocation whose
// surviving chunks should be traceable, and from the goroutine whose stack
// is to serve as the root region: goroutines don't share one native call
// stack, so the caller must pick and stick to a single goroutine.
func (c *Collector) InitRoot() {
	c.stackBase = currentFrameAddress()
	c.rootInit = true
}

// Collect reclaims every allocated chunk not transitively reachable, by
// conservative pointer interpretation, from the root region. It is safe to
// call at any point after InitRoot; the partition invariant holds again
// once it returns.
func (c *Collector) Collect() CollectStats {
	if !c.rootInit {
		panic(rootNotInitialized())
	}

	stackTop := currentFrameAddress()
	if stackTop > c.stackBase {
		panic(stackDirectionViolation(stackTop, c.stackBase))
	}

	n := c.alloc.allocated.Count()
	if cap(c.bitmap) < n {
		c.bitmap = make([]bool, n)
	} else {
		c.bitmap = c.bitmap[:n]
		for i := range c.bitmap {
			c.bitmap[i] = false
		}
	}

	c.markRegion(stackTop, c.stackBase+wordSize)

	// Gather, in declaration order of the allocated registry, every chunk
	// whose bitmap entry is false. The whole bitmap is built before any
	// Free runs, since Free mutates the allocated registry's indices.
	c.toFree = c.toFree[:0]

	for i := 0; i < n; i++ {
		if !c.bitmap[i] {
			c.toFree = append(c.toFree, c.alloc.allocated.At(i).Start)
		}
	}

	var reclaimedBytes uintptr

	for _, ptr := range c.toFree {
		if idx := c.alloc.allocated.find(ptr); idx >= 0 {
			reclaimedBytes += c.alloc.allocated.At(idx).Size * wordSize
		}

		c.alloc.Free(ptr)
	}

	c.stats.Collections++
	c.stats.ChunksReclaimed += uint64(len(c.toFree))
	c.stats.BytesReclaimed += reclaimedBytes
	c.stats.LastMarked = countTrue(c.bitmap)

	return c.stats
}

// markRegion walks [start, end) one machine word at a time, interpreting
// each word's value as a candidate address. Any candidate that falls inside
// a live chunk marks that chunk and schedules its contents for the same
// treatment. This is an explicit LIFO worklist rather than recursion, since
// recursion depth here would otherwise be bounded only by chunk-list
// capacity plus root region length, which is unnecessary stack risk for no
// benefit.
func (c *Collector) markRegion(start, end uintptr) {
	c.pending = append(c.pending[:0], span{start, end})

	for len(c.pending) > 0 {
		s := c.pending[len(c.pending)-1]
		c.pending = c.pending[:len(c.pending)-1]

		for p := s.start; p < s.end; p += wordSize {
			candidate := readWord(p)

			for i := 0; i < c.alloc.allocated.Count(); i++ {
				chunk := c.alloc.allocated.At(i)
				if candidate < chunk.Start || candidate >= chunk.end() {
					continue
				}

				if !c.bitmap[i] {
					c.bitmap[i] = true
					c.pending = append(c.pending, span{chunk.Start, chunk.end()})
				}
			}
		}
	}
}

func countTrue(bs []bool) int {
	n := 0

	for _, b := range bs {
		if b {
			n++
		}
	}

	return n
}
