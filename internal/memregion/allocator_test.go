package memregion

import "testing"

func newTestAllocator(t *testing.T) *Allocator {
	t.Helper()

	a, err := New(WithRegionCapacity(64*wordSize), WithChunkListCapacity(32))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	t.Cleanup(func() { _ = a.Close() })

	return a
}

// assertPartitionCoverage checks that allocated+free sizes sum to the
// region's total word capacity.
func assertPartitionCoverage(t *testing.T, a *Allocator) {
	t.Helper()

	sum := a.allocated.sumSizes() + a.free.sumSizes()
	if sum != a.RegionCapacityWords() {
		t.Fatalf("partition coverage violated: allocated+free=%d, capacity=%d", sum, a.RegionCapacityWords())
	}
}

// assertNonOverlapAndSorted checks that a registry's chunks are strictly
// start-ascending and non-overlapping.
func assertNonOverlapAndSorted(t *testing.T, r *Registry) {
	t.Helper()

	for i := 0; i+1 < r.Count(); i++ {
		if r.At(i).Start >= r.At(i+1).Start {
			t.Fatalf("%s: chunks not strictly sorted at %d: %v", r.name, i, r.snapshot())
		}

		if r.At(i).end() > r.At(i+1).Start {
			t.Fatalf("%s: chunks overlap at %d: %v", r.name, i, r.snapshot())
		}
	}
}

func TestAllocateZeroBytesReturnsNull(t *testing.T) {
	a := newTestAllocator(t)

	before := a.Snapshot(SelectorFree)

	ptr, ok := a.Allocate(0)
	if ok || ptr != 0 {
		t.Fatalf("Allocate(0) = (%d, %v), want (0, false)", ptr, ok)
	}

	after := a.Snapshot(SelectorFree)
	if len(before) != 1 || len(after) != 1 || before[0] != after[0] {
		t.Fatalf("registries mutated by zero-size request: before=%v after=%v", before, after)
	}
}

func TestFreeNullIsNoOp(t *testing.T) {
	a := newTestAllocator(t)

	before := a.Snapshot(SelectorFree)
	a.Free(0)
	after := a.Snapshot(SelectorFree)

	if len(before) != len(after) || before[0] != after[0] {
		t.Fatalf("Free(0) mutated registries: before=%v after=%v", before, after)
	}
}

func TestFreeUnknownAddressPanics(t *testing.T) {
	a := newTestAllocator(t)

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic freeing an unknown address")
		}
	}()

	a.Free(a.reg.base() + 4*wordSize)
}

func TestAllocateRoundTrip(t *testing.T) {
	a := newTestAllocator(t)

	ptr, ok := a.Allocate(3 * wordSize)
	if !ok {
		t.Fatal("Allocate failed unexpectedly")
	}

	idx := a.allocated.find(ptr)
	if idx < 0 {
		t.Fatal("allocated chunk missing from allocated registry")
	}

	if got := a.allocated.At(idx).Size; got != 3 {
		t.Fatalf("allocated size = %d words, want 3", got)
	}

	if a.free.find(ptr) >= 0 {
		t.Fatal("allocated address still present in free registry")
	}

	assertPartitionCoverage(t, a)
	assertNonOverlapAndSorted(t, a.allocated)
	assertNonOverlapAndSorted(t, a.free)
}

func TestFreeRoundTrip(t *testing.T) {
	a := newTestAllocator(t)

	ptr, ok := a.Allocate(2 * wordSize)
	if !ok {
		t.Fatal("Allocate failed unexpectedly")
	}

	a.Free(ptr)

	if a.allocated.find(ptr) >= 0 {
		t.Fatal("freed address still present in allocated registry")
	}

	if idx := a.free.find(ptr); idx < 0 || a.free.At(idx).Size != 2 {
		t.Fatalf("freed chunk missing or wrong size: idx=%d", idx)
	}

	assertPartitionCoverage(t, a)
}

// TestScenarioS1SimpleAllocFreeRefill allocates ten growing requests, frees
// every other one, then confirms a refill lands at the lowest fitting
// address rather than anywhere else in the free list.
func TestScenarioS1SimpleAllocFreeRefill(t *testing.T) {
	a, err := New(WithRegionCapacity(640_000), WithChunkListCapacity(1024))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	t.Cleanup(func() { _ = a.Close() })

	ptrs := make([]uintptr, 10)

	for i := 0; i < 10; i++ {
		ptr, ok := a.Allocate(uintptr(i))
		if i == 0 {
			// zero-byte request: must be the null/false case, not a failure.
			if ok {
				t.Fatalf("Allocate(0) unexpectedly succeeded")
			}

			continue
		}

		if !ok {
			t.Fatalf("Allocate(%d) failed unexpectedly", i)
		}

		ptrs[i] = ptr
	}

	for i := 0; i < 10; i += 2 {
		if ptrs[i] != 0 {
			a.Free(ptrs[i])
		}
	}

	for i := 2; i < 10; i += 2 {
		if idx := a.free.find(ptrs[i]); idx < 0 {
			t.Fatalf("freed chunk for index %d not present in free registry", i)
		}
	}

	refillWords := (uintptr(10) + wordSize - 1) / wordSize

	wantStart := uintptr(0)
	wantFound := false

	for i := 0; i < a.free.Count(); i++ {
		if a.free.At(i).Size >= refillWords {
			wantStart = a.free.At(i).Start
			wantFound = true

			break
		}
	}

	if !wantFound {
		t.Fatal("no free chunk large enough for the refill request before allocating")
	}

	ptr, ok := a.Allocate(10)
	if !ok {
		t.Fatal("refill allocation failed")
	}

	if ptr != wantStart {
		t.Fatalf("refill placed at 0x%x, want lowest fitting address 0x%x", ptr, wantStart)
	}

	assertPartitionCoverage(t, a)
	assertNonOverlapAndSorted(t, a.allocated)
	assertNonOverlapAndSorted(t, a.free)
}

// TestScenarioS3Exhaustion allocates fixed-size chunks until the region can
// no longer fit another one, then checks no remaining free chunk was in
// fact large enough to have been missed.
func TestScenarioS3Exhaustion(t *testing.T) {
	a := newTestAllocator(t)

	const chunkWords = 4

	var allocated uintptr

	for {
		ptr, ok := a.Allocate(chunkWords * wordSize)
		if !ok {
			break
		}

		allocated += chunkWords
		_ = ptr
	}

	if allocated != a.RegionCapacityWords() {
		for i := 0; i < a.free.Count(); i++ {
			if a.free.At(i).Size >= chunkWords {
				t.Fatalf("free chunk %v still fits another request", a.free.At(i))
			}
		}
	}

	assertPartitionCoverage(t, a)
}

func TestAllocateNoFitReturnsNull(t *testing.T) {
	a := newTestAllocator(t)

	ptr, ok := a.Allocate(a.RegionCapacityWords()*wordSize + wordSize)
	if ok || ptr != 0 {
		t.Fatalf("Allocate(oversized) = (%d, %v), want (0, false)", ptr, ok)
	}
}

func TestTwoConsecutiveFreesLeaveUncoalescedUntilNextAllocate(t *testing.T) {
	a := newTestAllocator(t)

	p1, _ := a.Allocate(wordSize)
	p2, _ := a.Allocate(wordSize)

	a.Free(p1)
	a.Free(p2)

	// Two adjacent free fragments exist right after the frees...
	foundAdjacentPair := false

	for i := 0; i+1 < a.free.Count(); i++ {
		if a.free.At(i).end() == a.free.At(i+1).Start {
			foundAdjacentPair = true
		}
	}

	if !foundAdjacentPair {
		t.Fatalf("Free coalesced the free registry: %v", a.free.snapshot())
	}

	// ...but the next allocate must coalesce them before searching, so a
	// two-word request lands where the two one-word fragments were.
	ptr, ok := a.Allocate(2 * wordSize)
	if !ok {
		t.Fatal("allocate after two frees should have coalesced the adjacent fragments")
	}

	if ptr != p1 {
		t.Fatalf("allocate after two frees placed at 0x%x, want the coalesced fragment at 0x%x", ptr, p1)
	}
}
