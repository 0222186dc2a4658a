package domain

import "errors"

// Common domain errors
var (
	ErrSnapshotCorrupt  = errors.New("snapshot is corrupt")
	ErrDisallowedType   = errors.New("snapshot contains a disallowed type")
	ErrSnapshotNotFound = errors.New("snapshot not found")
)
