package domain

import "errors"

// Classified core startup failures. A core factory returns exactly one of
// these (possibly wrapped) when it cannot produce a running instance.
var (
	// ErrBadProxy means the proxy configuration was rejected before any
	// identity work happened.
	ErrBadProxy = errors.New("bad proxy configuration")

	// ErrCoreAlloc means a resource needed by the core could not be acquired.
	ErrCoreAlloc = errors.New("core allocation failed")

	// ErrInvalidSave means the serialized state could not be parsed.
	ErrInvalidSave = errors.New("invalid save data")

	// ErrFailedToStart is the generic startup failure.
	ErrFailedToStart = errors.New("core failed to start")
)
