package types

import "errors"

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateEntry is returned when inserting a record that already exists.
	ErrDuplicateEntry = errors.New("record already exists")
	// ErrPersistence is returned when a store write fails.
	ErrPersistence = errors.New("failed to persist record")
	// ErrAdminModeUnset is returned when a guild has no admin mode configured.
	ErrAdminModeUnset = errors.New("admin mode is not configured for this guild")
)
