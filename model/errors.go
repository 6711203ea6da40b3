package model

import "errors"

var (
	// ErrNotFound is returned when an object, resource or file is absent.
	ErrNotFound = errors.New("data not found")
	// ErrCorrupt signals a store invariant violation, e.g. a container child
	// key that does not resolve or a record of the wrong variant.
	ErrCorrupt = errors.New("library corrupt")
	// ErrNotAContainer is returned when a container operation targets an item.
	ErrNotAContainer = errors.New("object is not a container")
	// ErrParentMismatch is returned by batch insertion when an item names a
	// different parent than the batch target.
	ErrParentMismatch = errors.New("item parent mismatch")
)
