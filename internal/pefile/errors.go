package pefile

import "errors"

// Static errors
var (
	// ErrNoResourceTable indicates the image carries no resource table.
	ErrNoResourceTable = errors.New("image has no resource table")

	// ErrResourceNotFound indicates a resource directory entry could not
	// be resolved within the mapped image.
	ErrResourceNotFound = errors.New("resource directory entry not found")

	// ErrBadDirectory indicates the resource directory tree is malformed.
	ErrBadDirectory = errors.New("malformed resource directory")

	// ErrEmptyResource indicates a resource whose reported size is not
	// positive.
	ErrEmptyResource = errors.New("resource has no data")
)
