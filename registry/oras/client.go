package oras

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"oras.land/oras-go/v2/content"
	"oras.land/oras-go/v2/errdef"
	"oras.land/oras-go/v2/registry/remote"
	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/credentials"
	"oras.land/oras-go/v2/registry/remote/errcode"

	"github.com/meigma/ocifetch/registry"
)

// supportedManifestTypes lists the manifest formats Pull understands.
var supportedManifestTypes = []string{
	ocispec.MediaTypeImageManifest,
	registry.MediaTypeDockerManifest,
}

// Client implements [registry.Client] using ORAS.
//
// Requests are never retried; a failed request surfaces to the caller.
type Client struct {
	transport *TransportPolicy
	userAgent string
	anonymous bool // skip credential lookup entirely
	credStore credentials.Store
	hostCreds map[string]auth.Credential
	logger    *slog.Logger

	authClient func() (*auth.Client, error)
}

var _ registry.Client = (*Client)(nil)

// New creates a new ORAS-backed registry client with the given options.
func New(opts ...Option) *Client {
	c := &Client{
		userAgent: "ocifetch/1.0",
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.transport == nil {
		c.transport = NewTransportPolicy(false, nil, nil)
	}
	if len(c.hostCreds) > 0 {
		c.credStore = HostCredentials(c.hostCreds, c.credStore)
	}
	c.authClient = sync.OnceValues(c.buildAuthClient)
	return c
}

func (c *Client) addHostCredential(registry string, cred auth.Credential) {
	if c.hostCreds == nil {
		c.hostCreds = make(map[string]auth.Credential)
	}
	c.hostCreds[registry] = cred
}

// log returns the logger, falling back to a discard logger if nil.
func (c *Client) log() *slog.Logger {
	if c.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.logger
}

// buildAuthClient creates the shared auth client with token cache.
func (c *Client) buildAuthClient() (*auth.Client, error) {
	httpClient, err := c.transport.HTTPClient()
	if err != nil {
		return nil, err
	}
	return &auth.Client{
		Client: httpClient,
		Cache:  auth.NewCache(),
		Credential: func(ctx context.Context, hostport string) (auth.Credential, error) {
			if c.anonymous || c.credStore == nil {
				return auth.EmptyCredential, nil
			}
			return c.credStore.Get(ctx, hostport)
		},
		Header: http.Header{
			"User-Agent": []string{c.userAgent},
		},
	}, nil
}

// repository creates a Repository for ref.
//
// Plain HTTP is decided from ref's own registry host only.
func (c *Client) repository(ref registry.Reference) (*remote.Repository, error) {
	authClient, err := c.authClient()
	if err != nil {
		return nil, err
	}

	repo, err := remote.NewRepository(registryHost(ref.Registry) + "/" + ref.Repository)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", registry.ErrInvalidReference, err)
	}
	repo.PlainHTTP = c.transport.PlainHTTP(ref.Registry)
	repo.Client = authClient
	repo.ManifestMediaTypes = supportedManifestTypes

	return repo, nil
}

// ManifestDigest resolves ref to its manifest digest without fetching content.
func (c *Client) ManifestDigest(ctx context.Context, ref registry.Reference) (string, error) {
	repo, err := c.repository(ref)
	if err != nil {
		return "", err
	}

	desc, err := repo.Resolve(ctx, ref.Reference())
	if err != nil {
		return "", mapError(err)
	}

	c.log().Debug("resolved manifest", "ref", ref.String(), "digest", desc.Digest.String(), "plain_http", repo.PlainHTTP)
	return desc.Digest.String(), nil
}

// Pull fetches the manifest for ref and every layer it lists.
//
// Every layer media type must appear in accepted. Layer content is verified
// against its descriptor while reading.
func (c *Client) Pull(ctx context.Context, ref registry.Reference, accepted []string) (*registry.PulledArtifact, error) {
	repo, err := c.repository(ref)
	if err != nil {
		return nil, err
	}

	desc, rc, err := repo.FetchReference(ctx, ref.Reference())
	if err != nil {
		return nil, mapError(err)
	}
	raw, err := content.ReadAll(rc, desc)
	_ = rc.Close()
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", mapError(err))
	}

	manifest, err := parseManifest(desc, raw)
	if err != nil {
		return nil, err
	}
	if err := checkLayerTypes(&manifest, accepted); err != nil {
		return nil, err
	}

	c.log().Debug("fetched manifest",
		"ref", ref.String(),
		"digest", desc.Digest.String(),
		"layers", len(manifest.Layers),
	)

	layers := make([][]byte, 0, len(manifest.Layers))
	for i, layer := range manifest.Layers {
		data, err := content.FetchAll(ctx, repo.Blobs(), layer)
		if err != nil {
			return nil, fmt.Errorf("fetch layer %d (%s): %w", i, layer.Digest, mapError(err))
		}
		layers = append(layers, data)
	}

	mediaType := manifest.MediaType
	if mediaType == "" {
		mediaType = desc.MediaType
	}
	return &registry.PulledArtifact{
		Manifest: registry.Manifest{
			MediaType:       mediaType,
			ConfigMediaType: manifest.Config.MediaType,
			ArtifactType:    manifest.ArtifactType,
			Digest:          desc.Digest.String(),
		},
		Layers: layers,
	}, nil
}

// parseManifest decodes an image manifest, rejecting indexes and unknown formats.
func parseManifest(desc ocispec.Descriptor, raw []byte) (ocispec.Manifest, error) {
	if desc.MediaType != "" && !slices.Contains(supportedManifestTypes, desc.MediaType) {
		return ocispec.Manifest{}, fmt.Errorf("%w: unsupported media type %s", registry.ErrManifestInvalid, desc.MediaType)
	}
	var manifest ocispec.Manifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return ocispec.Manifest{}, fmt.Errorf("%w: %v", registry.ErrManifestInvalid, err)
	}
	return manifest, nil
}

// checkLayerTypes verifies that every layer has an accepted media type.
func checkLayerTypes(manifest *ocispec.Manifest, accepted []string) error {
	for _, layer := range manifest.Layers {
		if !slices.Contains(accepted, layer.MediaType) {
			return fmt.Errorf("%w: %s", registry.ErrMediaTypeNotAccepted, layer.MediaType)
		}
	}
	return nil
}

// mapError maps ORAS errors to registry sentinel errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, errdef.ErrNotFound) {
		return fmt.Errorf("%w: %v", registry.ErrNotFound, err)
	}
	if errors.Is(err, auth.ErrBasicCredentialNotFound) {
		return fmt.Errorf("%w: %v", registry.ErrUnauthorized, err)
	}
	// ORAS wraps HTTP errors, check for specific error types
	var errResp *errcode.ErrorResponse
	if errors.As(err, &errResp) {
		switch errResp.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %v", registry.ErrNotFound, err)
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: %v", registry.ErrUnauthorized, err)
		case http.StatusForbidden:
			return fmt.Errorf("%w: %v", registry.ErrForbidden, err)
		}
	}
	return err
}
