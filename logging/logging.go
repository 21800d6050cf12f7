// Package logging provides the structured log sink shared by the memkit
// packages.
//
// Logging is discarded by default so that library consumers pay nothing
// unless they opt in. Call Init from main() (or a test) to enable output.
// Each subsystem obtains a category-scoped logger (GC, Memory, Pool) so
// downstream filtering can key on the "category" field.
package logging

import (
	"io"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Category names attached to every event via the "category" field.
const (
	CategoryGC     = "gc"
	CategoryMemory = "memory"
	CategoryPool   = "pool"
)

// root holds the active base logger. Swapped atomically so concurrent
// subsystems never observe a half-initialized logger.
var root atomic.Pointer[zerolog.Logger]

func init() {
	l := zerolog.Nop()
	root.Store(&l)
}

// Options configures the log sink.
type Options struct {
	// Enabled turns logging on. When false all output is discarded.
	Enabled bool

	// Writer receives the log stream. Required when Enabled is true.
	Writer io.Writer

	// Level is the minimum level emitted. Default: zerolog.InfoLevel.
	Level zerolog.Level
}

// Init configures the package logger. Safe to call more than once; the
// last call wins. Passing Options{} restores the discard state.
func Init(opts Options) {
	if !opts.Enabled || opts.Writer == nil {
		l := zerolog.Nop()
		root.Store(&l)
		return
	}
	l := zerolog.New(opts.Writer).Level(opts.Level).With().Timestamp().Logger()
	root.Store(&l)
}

// ForCategory returns a logger stamped with the given category. The
// pointer return keeps the zerolog level methods, which have pointer
// receivers, callable on a direct chain.
func ForCategory(category string) *zerolog.Logger {
	l := root.Load().With().Str("category", category).Logger()
	return &l
}

// GC returns the collector's logger.
func GC() *zerolog.Logger { return ForCategory(CategoryGC) }

// Memory returns the allocator's logger.
func Memory() *zerolog.Logger { return ForCategory(CategoryMemory) }

// Pool returns the object pool's logger.
func Pool() *zerolog.Logger { return ForCategory(CategoryPool) }
