// Package gc implements the tracing garbage collector for managed
// objects: a non-moving mark-sweep collector with registry-based object
// discovery and an optional background worker.
//
// # Collection cycle
//
// A cycle walks Idle -> Marking -> Sweeping -> Finalizing -> Idle and
// runs to completion; a second request while one is in flight is logged
// and dropped. Mark clears every registered object's trace bit and then
// traverses depth-first from the root set over CollectReferences edges
// (mark bits make cycles terminate). Sweep removes every unmarked
// registered object from the registry and destroys it — unless the
// object's intrusive strong count is above zero, in which case external
// ownership wins and the object is skipped. Finalize is a reserved
// post-sweep hook.
//
// # Discovery, not stack scanning
//
// The collector only knows objects that registered with it (obj.New does
// this through the installed Registry hook). There is no stack scanning:
// an object registered while a mark phase is already running is not
// guaranteed to be marked in that cycle even if reachable, and can be
// swept by it. Pin such objects with a root or an intrusive reference
// until they are linked into the graph.
//
// # Triggering
//
// Registration runs a trigger check: when the facade's usage ratio
// crosses TriggerThreshold a Minor collection is requested, escalating
// to Major above EscalateThreshold; independently, MaxInterval without a
// cycle requests a Minor one. MinInterval suppresses thrashing. The
// background worker sleeps up to MaxInterval between wakeups and
// re-evaluates the policy on each.
//
// # Lifecycle
//
// Init creates the process collector, installs it as the obj package's
// registry and starts the worker; Shutdown runs a final full collection
// and detaches. The explicit pair keeps shutdown ordering between the
// allocator, the collector and their callers a visible caller decision.
package gc
