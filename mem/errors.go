package mem

import "errors"

var (
	// ErrAllocFailed indicates the facade could not satisfy an allocation.
	// On the object path this is fatal: callers must not construct a
	// managed object against a failed reservation.
	ErrAllocFailed = errors.New("mem: allocation failed")

	// ErrBadSize indicates a zero or negative size, or a count*size
	// product that overflows.
	ErrBadSize = errors.New("mem: bad allocation size")

	// ErrBadAlign indicates an alignment that is not a power of two.
	ErrBadAlign = errors.New("mem: alignment must be a power of two")

	// ErrBadPointer indicates a buffer that was not produced by this
	// facade, or was already deallocated.
	ErrBadPointer = errors.New("mem: pointer not owned by facade")

	// ErrClosed indicates use of a facade after Close.
	ErrClosed = errors.New("mem: facade closed")
)
