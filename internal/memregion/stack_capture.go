package memregion

import "unsafe"

// currentFrameAddress approximates __builtin_frame_address(0): the address
// of a word on the caller's native call stack. Go gives no portable
// frame-address intrinsic, so this package isolates the approximation
// behind one function: the address of a local variable that has not
// escaped to the heap.
//
//go:noinline
func currentFrameAddress() uintptr {
	var probe uintptr

	return uintptr(unsafe.Pointer(&probe))
}
