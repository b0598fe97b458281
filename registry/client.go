package registry

import (
	"bytes"
	"context"
)

// Client defines the registry operations the fetcher depends on.
//
// Implementations must not retry; retry policy belongs to the caller.
type Client interface {
	// ManifestDigest fetches only the manifest descriptor for ref and returns
	// its digest. No layer content is transferred.
	ManifestDigest(ctx context.Context, ref Reference) (string, error)

	// Pull fetches the manifest and every layer of ref. Layers whose media
	// type is not in accepted cause the pull to fail.
	Pull(ctx context.Context, ref Reference, accepted []string) (*PulledArtifact, error)
}

// Manifest is the subset of an OCI manifest the fetcher reasons about.
type Manifest struct {
	// MediaType is the manifest media type.
	MediaType string

	// ConfigMediaType is the media type of the config descriptor.
	ConfigMediaType string

	// ArtifactType is the OCI 1.1 artifact type, if set.
	ArtifactType string

	// Digest is the manifest digest as reported by the registry.
	Digest string
}

// PulledArtifact is the result of a full pull.
type PulledArtifact struct {
	Manifest Manifest

	// Layers holds raw layer content in manifest order.
	Layers [][]byte
}

// Content returns the concatenation of all layers in manifest order.
func (a *PulledArtifact) Content() []byte {
	return bytes.Join(a.Layers, nil)
}

// Size returns the total number of content bytes.
func (a *PulledArtifact) Size() int64 {
	var n int64
	for _, l := range a.Layers {
		n += int64(len(l))
	}
	return n
}
