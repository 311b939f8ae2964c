package domain

import "errors"

var (
	// ErrInvalidAddress is returned when a contract address is not a valid hex address
	ErrInvalidAddress = errors.New("invalid address")

	// ErrInvalidTopN is returned when the requested holder count is out of bounds
	ErrInvalidTopN = errors.New("invalid top n")

	// ErrSnapshotNotFound is returned when no holder snapshot is stored for a contract
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrCacheMiss is returned when a snapshot is not present in the cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrStoreNotConfigured is returned by operations that need persistence when no store is wired
	ErrStoreNotConfigured = errors.New("store not configured")
)
