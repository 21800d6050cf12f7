package pool

import "errors"

var (
	// ErrExhausted is returned by Acquire when the pool is at capacity
	// and its strategy does not allow making room.
	ErrExhausted = errors.New("pool: exhausted")

	// ErrClosed is returned by Acquire after Close.
	ErrClosed = errors.New("pool: closed")

	// ErrDuplicate is returned by Manager.Add for an already-used name.
	ErrDuplicate = errors.New("pool: duplicate pool name")
)
