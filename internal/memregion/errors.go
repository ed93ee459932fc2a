package memregion

import (
	"fmt"
	"runtime"
)

// ErrorCategory groups the programming-error taxonomy this package panics
// with. These are never returned as ordinary error values: they are fatal
// assertions, not recoverable conditions.
type ErrorCategory string

const (
	CategoryMemory ErrorCategory = "MEMORY"
	CategoryBounds ErrorCategory = "BOUNDS"
	CategorySystem ErrorCategory = "SYSTEM"
)

// StandardError is a consistently formatted fatal error for programming
// errors: callers recover() and re-panic, or let the process abort.
type StandardError struct {
	Category ErrorCategory
	Code     string
	Message  string
	Caller   string
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("[%s:%s] %s (caller: %s)", e.Category, e.Code, e.Message, e.Caller)
}

func newStandardError(category ErrorCategory, code, message string) *StandardError {
	pc, _, _, ok := runtime.Caller(2)

	caller := "unknown"
	if ok {
		if fn := runtime.FuncForPC(pc); fn != nil {
			caller = fn.Name()
		}
	}

	return &StandardError{Category: category, Code: code, Message: message, Caller: caller}
}

// registryOverflow reports an insert that would exceed a registry's capacity.
func registryOverflow(name string) *StandardError {
	return newStandardError(CategoryBounds, "REGISTRY_OVERFLOW",
		fmt.Sprintf("registry %q exceeded its capacity", name))
}

// unknownAddress reports Free called with an address that is not the start
// of a live allocation.
func unknownAddress(addr uintptr) *StandardError {
	return newStandardError(CategoryMemory, "UNKNOWN_ADDRESS",
		fmt.Sprintf("free called with address 0x%x that is not the start of a live allocation", addr))
}

// badIndex reports remove called with an out-of-range index.
func badIndex(index, count int, name string) *StandardError {
	return newStandardError(CategoryBounds, "BAD_INDEX",
		fmt.Sprintf("index %d out of range for registry %q of length %d", index, name, count))
}

// stackDirectionViolation reports that the captured root region does not
// satisfy the stack-grows-down assumption this package relies on.
func stackDirectionViolation(top, base uintptr) *StandardError {
	return newStandardError(CategorySystem, "STACK_DIRECTION",
		fmt.Sprintf("root region scan requires stack_top (0x%x) <= stack_base (0x%x)", top, base))
}

// rootNotInitialized reports Collect called before InitRoot.
func rootNotInitialized() *StandardError {
	return newStandardError(CategorySystem, "ROOT_NOT_INITIALIZED",
		"InitRoot must be called once before the first Collect")
}
