package lumen

import "errors"

var (
	// ErrInvalidResolution is returned by Viewport.Resize for zero or
	// oversized dimensions.
	ErrInvalidResolution = errors.New("lumen: invalid viewport resolution")

	// ErrInvalidParams is returned when a rendering parameter is outside
	// its documented range.
	ErrInvalidParams = errors.New("lumen: invalid rendering parameters")

	// ErrMissingRenderer is returned by Viewport.Render when no renderer
	// has been set.
	ErrMissingRenderer = errors.New("lumen: missing renderer")

	// ErrBVHInvariant is returned when a finished build violates the leaf
	// count invariant; it indicates a bug, not bad input.
	ErrBVHInvariant = errors.New("lumen: BVH invariant violation")
)
