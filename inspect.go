package ocifetch

import (
	"github.com/meigma/ocifetch/cache"
)

// CacheStatus describes the local cache state of a reference.
type CacheStatus struct {
	// Reference is the normalized reference.
	Reference string

	// Entry locates the cache files.
	Entry cache.Entry

	// Cached reports whether a content file exists.
	Cached bool

	// LocalDigest is the stored manifest digest, empty if there is none.
	LocalDigest string
}

// Inspect reports the cache state for ref without contacting the registry.
//
// The reference is normalized and checked against the policy exactly as a
// fetch would be.
func (f *Fetcher) Inspect(ref string) (*CacheStatus, error) {
	normalized, _, err := f.resolve(ref)
	if err != nil {
		return nil, err
	}
	return &CacheStatus{
		Reference:   normalized,
		Entry:       f.store.Entry(normalized),
		Cached:      f.store.Exists(normalized),
		LocalDigest: f.store.LocalDigest(normalized),
	}, nil
}
