package handle

import "errors"

// ErrNilPointer indicates a non-nil handle (Ref, WeakRef) constructed
// from a nil pointer. It fails at the construction site so use sites
// need no nil checks.
var ErrNilPointer = errors.New("handle: nil pointer for non-nil handle")
