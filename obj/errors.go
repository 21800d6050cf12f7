package obj

import "errors"

var (
	// ErrNotManaged indicates a factory type parameter that does not
	// embed Base.
	ErrNotManaged = errors.New("obj: type does not embed obj.Base")

	// ErrAllocFailed indicates the facade rejected the object's
	// footprint reservation. Fatal for the construction path.
	ErrAllocFailed = errors.New("obj: object allocation failed")
)
