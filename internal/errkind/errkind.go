// Package errkind holds the error classes every pipeline failure is wrapped with.
// Callers classify failures with errors.Is.
package errkind

import "errors"

var (
	// ErrConfig reports an unusable request: no bands at the target
	// resolution, missing archive substructure, invalid polygon input.
	ErrConfig = errors.New("configuration error")
	// ErrIO reports an unreadable or unwritable raster, model or table.
	ErrIO = errors.New("i/o error")
	// ErrGeometry reports a malformed region or a failed coordinate transform.
	ErrGeometry = errors.New("geometry error")
)
