package memregion

// treeNode is a three-word on-region record used by the collector scenario
// tests to exercise conservative tracing without pulling in a real
// serializer: [value, left, right].
const (
	nodeValueOffset = 0
	nodeLeftOffset  = 1
	nodeRightOffset = 2
	nodeWords       = 3
)

func allocNode(a *Allocator, value uintptr, left, right uintptr) uintptr {
	ptr, ok := a.Allocate(nodeWords * wordSize)
	if !ok {
		panic("allocNode: out of memory")
	}

	a.WriteWord(ptr+nodeValueOffset*wordSize, value)
	a.WriteWord(ptr+nodeLeftOffset*wordSize, left)
	a.WriteWord(ptr+nodeRightOffset*wordSize, right)

	return ptr
}

// buildFullTree builds a full binary tree of the given depth (depth 3 ->
// 15 nodes) and returns the root pointer.
func buildFullTree(a *Allocator, depth int, next *uintptr) uintptr {
	if depth < 0 {
		return 0
	}

	left := buildFullTree(a, depth-1, next)
	right := buildFullTree(a, depth-1, next)

	value := *next
	*next++

	return allocNode(a, value, left, right)
}

func nodeLeft(a *Allocator, ptr uintptr) uintptr {
	return a.ReadWord(ptr + nodeLeftOffset*wordSize)
}

func nodeRight(a *Allocator, ptr uintptr) uintptr {
	return a.ReadWord(ptr + nodeRightOffset*wordSize)
}
