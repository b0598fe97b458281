package ocifetch

import (
	"context"
	"slices"

	"github.com/meigma/ocifetch/registry"
)

var providerMediaTypes = []string{
	registry.MediaTypeProviderArchive,
	registry.MediaTypeOCILayer,
}

// ProviderMediaTypes returns the layer media types accepted for providers.
func ProviderMediaTypes() []string {
	return slices.Clone(providerMediaTypes)
}

// ProviderArchiveReader parses a cached provider archive.
//
// Implementations extract signatures and capability claims; hostID and ref
// identify the requesting host and the reference as the caller wrote it.
type ProviderArchiveReader interface {
	ReadProviderArchive(ctx context.Context, path, hostID, ref string) (any, error)
}

// ProviderArchiveReaderFunc is an adapter to allow ordinary functions as readers.
type ProviderArchiveReaderFunc func(ctx context.Context, path, hostID, ref string) (any, error)

// ReadProviderArchive calls fn(ctx, path, hostID, ref).
func (fn ProviderArchiveReaderFunc) ReadProviderArchive(ctx context.Context, path, hostID, ref string) (any, error) {
	return fn(ctx, path, hostID, ref)
}

// Provider is a fetched capability provider.
type Provider struct {
	// Path is the cached archive file.
	Path string

	// Archive is what the ProviderArchiveReader returned, or nil when the
	// Fetcher has no reader.
	Archive any
}

// FetchProvider fetches a capability provider archive into the cache and
// hands it to the configured ProviderArchiveReader.
func (f *Fetcher) FetchProvider(ctx context.Context, ref, hostID string) (*Provider, error) {
	path, err := f.FetchPath(ctx, ref, providerMediaTypes, CacheUpdate)
	if err != nil {
		return nil, err
	}

	p := &Provider{Path: path}
	if f.archives == nil {
		return p, nil
	}
	archive, err := f.archives.ReadProviderArchive(ctx, path, hostID, ref)
	if err != nil {
		return nil, newError(KindProviderArchive, opReadProvider, ref, err)
	}
	p.Archive = archive
	return p, nil
}
