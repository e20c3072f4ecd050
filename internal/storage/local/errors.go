package local

import "errors"

var (
	// ErrNotFound is returned when a slot has never been written
	ErrNotFound = errors.New("not found")

	// ErrCorrupt is returned when a slot exists but cannot be decoded
	ErrCorrupt = errors.New("corrupt slot")

	// ErrInvalidKey is returned for keys that would escape the store directory
	ErrInvalidKey = errors.New("invalid key")
)
