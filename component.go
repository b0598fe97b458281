package ocifetch

import (
	"context"
	"slices"

	"github.com/meigma/ocifetch/registry"
)

var componentMediaTypes = []string{
	registry.MediaTypeWasmModule,
	registry.MediaTypeOCILayer,
	registry.MediaTypeWasmLayer,
}

// ComponentMediaTypes returns the layer media types accepted for components.
func ComponentMediaTypes() []string {
	return slices.Clone(componentMediaTypes)
}

// FetchComponent fetches a wasm component and returns its bytes.
//
// The cache is always updated, and the bytes are read back from the cache
// file so callers see exactly what a later cache hit would serve.
func (f *Fetcher) FetchComponent(ctx context.Context, ref string) ([]byte, error) {
	normalized, parsed, err := f.resolve(ref)
	if err != nil {
		return nil, err
	}
	if _, err := f.fetch(ctx, normalized, parsed, componentMediaTypes, CacheUpdate); err != nil {
		return nil, err
	}
	data, err := f.store.ReadContent(normalized)
	if err != nil {
		return nil, newError(KindCacheIO, opReadCache, normalized, err)
	}
	return data, nil
}
