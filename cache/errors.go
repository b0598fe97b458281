package cache

import "errors"

// Sentinel errors for cache operations.
var (
	// ErrIO is returned when the cache directory or a cache file cannot be
	// created, read or written.
	ErrIO = errors.New("cache: i/o")

	// ErrRemoteDigest is returned when the manifest-only fetch used for the
	// freshness check fails.
	ErrRemoteDigest = errors.New("cache: fetch remote digest")
)
