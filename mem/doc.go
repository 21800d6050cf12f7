// Package mem implements the allocator facade backing the managed-object
// runtime.
//
// # Overview
//
// The facade is the only sanctioned source of raw memory for managed
// objects and their support structures. It serves two kinds of traffic:
//
//   - Raw buffers: Allocate/Deallocate/Reallocate/AllocateZeroed and the
//     aligned variants hand out byte slices carved from mmap'd arenas
//     using a first-fit free list with forward coalescing.
//   - Object accounting: AllocateObject/DeallocateObject track the bytes
//     consumed by managed objects constructed on the Go heap. Failure on
//     this path (budget exhaustion) is fatal for the caller: a managed
//     object must never be constructed against a failed reservation.
//
// # Arena layout
//
// Each arena is a page-multiple mmap region carved into cells. A cell
// starts with a 4-byte size tag: positive means free (tag = total cell
// size), negative means allocated (tag = -total). Payloads start 8 bytes
// into the cell so they stay 8-byte aligned. Cells never span arenas.
//
// # Statistics
//
// Every call updates process-wide counters (bytes allocated/deallocated,
// current and peak usage, call counts) under a dedicated lock that is
// never held while carving memory, so accounting cannot stall allocation.
//
// # Diagnostics
//
// VerifyHeap walks every arena checking cell-chain integrity and returns
// a boolean (plus log output) so it can run inside periodic health checks.
// ReleaseMemoryToSystem advises the kernel that fully-free arenas may be
// reclaimed; it is best effort and makes no guarantee.
package mem
