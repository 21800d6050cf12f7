// Package obj defines the managed-object base type every engine entity
// builds on.
//
// # Overview
//
// A managed object embeds Base and is constructed exclusively through the
// New/NewUntracked factories, which reserve its footprint against the
// allocator facade, assign a process-wide identity, and (for New) register
// it with the installed collector registry. Zero-value construction is
// diagnosed at runtime: an uninitialized Base refuses reference-count
// traffic, which is as close as Go gets to the original design's deleted
// allocation operators.
//
// # Reclamation capabilities
//
// Three reclamation mechanisms interoperate, and an object opts into them
// separately:
//
//   - Intrusive counting: AddRef/Release on every object; Release on the
//     zero transition runs Destroy exactly once.
//   - Tracing collection: objects built with New are registered with the
//     collector; a type that owns other managed objects implements
//     Referencer so the mark phase can walk its edges.
//   - Shared handles: the handle package wraps any pointer; when the
//     pointee is a managed object the handle family bridges into the
//     intrusive count so tracing and handles cannot fight over a live
//     object.
//
// Destroy is the only sanctioned termination path. It is idempotent: a
// second call is a no-op. Client code never frees a managed object by any
// other means.
package obj
