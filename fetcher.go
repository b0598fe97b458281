package ocifetch

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/meigma/ocifetch/cache"
	"github.com/meigma/ocifetch/registry"
	"github.com/meigma/ocifetch/registry/oras"
)

// DefaultCacheDirName is the directory under os.TempDir used when no cache
// directory is configured.
const DefaultCacheDirName = "wasmcloud_ocicache"

// DefaultCacheDir returns the default cache root.
func DefaultCacheDir() string {
	return filepath.Join(os.TempDir(), DefaultCacheDirName)
}

// CacheMode selects whether a fetch writes what it pulls to the cache.
type CacheMode int

const (
	// CacheIgnore pulls without writing the cache.
	CacheIgnore CacheMode = iota

	// CacheUpdate writes pulled content and its digest to the cache.
	CacheUpdate
)

// Fetcher pulls artifacts from OCI registries into a local cache.
//
// A Fetcher is safe for concurrent use. Its policy is fixed at construction.
// Concurrent fetches of the same reference share a single pull.
type Fetcher struct {
	policy   FetchPolicy
	cacheDir string
	store    *cache.Store
	client   registry.Client
	archives ProviderArchiveReader
	logger   *slog.Logger

	// orasOpts are options for the default ORAS client.
	orasOpts []oras.Option

	flight singleflight.Group
}

// New creates a Fetcher with the given options.
//
// Without options the Fetcher uses [DefaultPolicy], [DefaultCacheDir] and an
// anonymous ORAS client.
func New(opts ...Option) (*Fetcher, error) {
	f := &Fetcher{}
	for _, opt := range opts {
		if err := opt(f); err != nil {
			return nil, err
		}
	}
	if f.cacheDir == "" {
		f.cacheDir = DefaultCacheDir()
	}

	var storeOpts []cache.Option
	if f.logger != nil {
		storeOpts = append(storeOpts, cache.WithLogger(f.logger))
	}
	store, err := cache.New(f.cacheDir, storeOpts...)
	if err != nil {
		return nil, err
	}
	f.store = store

	if f.client == nil {
		f.client = oras.New(f.defaultClientOptions()...)
	}
	return f, nil
}

// defaultClientOptions derives ORAS options from the policy.
func (f *Fetcher) defaultClientOptions() []oras.Option {
	p := f.policy
	var transportOpts []oras.TransportOption
	if f.logger != nil {
		transportOpts = append(transportOpts, oras.WithTransportLogger(f.logger))
	}
	opts := []oras.Option{
		oras.WithTransportPolicy(oras.NewTransportPolicy(p.AllowInsecure, p.InsecureRegistries, p.AdditionalCAPaths, transportOpts...)),
	}
	switch {
	case p.Auth.Token != "":
		opts = append(opts, oras.WithToken(p.Auth.Token))
	case !p.Auth.Anonymous():
		opts = append(opts, oras.WithCredentials(p.Auth.Username, p.Auth.Password))
	}
	if f.logger != nil {
		opts = append(opts, oras.WithLogger(f.logger))
	}
	return append(opts, f.orasOpts...)
}

// log returns the logger, falling back to a discard logger if nil.
func (f *Fetcher) log() *slog.Logger {
	if f.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return f.logger
}

// Policy returns a copy of the Fetcher's policy.
func (f *Fetcher) Policy() FetchPolicy {
	return f.policy.clone()
}

// CacheDir returns the cache root directory.
func (f *Fetcher) CacheDir() string {
	return f.store.Dir()
}

// resolve normalizes ref, applies the latest-tag rule and parses it.
func (f *Fetcher) resolve(ref string) (string, registry.Reference, error) {
	normalized, err := registry.Normalize(ref, f.policy.AllowLatest)
	if err != nil {
		return "", registry.Reference{}, newError(KindPolicyViolation, opNormalize, ref, err)
	}
	parsed, err := registry.ParseReference(normalized)
	if err != nil {
		return "", registry.Reference{}, newError(KindInvalidReference, opParse, normalized, err)
	}
	return normalized, parsed, nil
}

// FetchPath fetches ref and returns the path of its cached content.
//
// The steps run in order: normalize, check the cache against the registry's
// manifest digest, pull, validate, write the cache. On a cache hit nothing is
// downloaded beyond the manifest descriptor. Every layer must have a media
// type in accepted. With CacheIgnore the returned path is where the content
// would be cached and may not exist.
//
// Identical concurrent fetches share one pipeline run. The shared run is not
// cancelled by any single caller; a caller whose ctx ends while waiting gets
// a KindPull error wrapping ctx.Err(), and the run finishes for the others.
func (f *Fetcher) FetchPath(ctx context.Context, ref string, accepted []string, mode CacheMode) (string, error) {
	normalized, parsed, err := f.resolve(ref)
	if err != nil {
		return "", err
	}
	return f.fetch(ctx, normalized, parsed, accepted, mode)
}

// fetch runs the pipeline for a resolved reference, sharing it with
// identical in-flight fetches.
func (f *Fetcher) fetch(ctx context.Context, normalized string, parsed registry.Reference, accepted []string, mode CacheMode) (string, error) {
	key := flightKey(normalized, accepted, mode)
	shared := context.WithoutCancel(ctx)
	ch := f.flight.DoChan(key, func() (any, error) {
		return f.fetchPath(shared, normalized, parsed, accepted, mode)
	})
	select {
	case <-ctx.Done():
		return "", newError(KindPull, opWait, normalized, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		if res.Shared {
			f.log().Debug("shared in-flight fetch", "ref", normalized)
		}
		return res.Val.(string), nil
	}
}

func (f *Fetcher) fetchPath(ctx context.Context, normalized string, parsed registry.Reference, accepted []string, mode CacheMode) (string, error) {
	entry, hit, err := f.store.Lookup(ctx, normalized, func(ctx context.Context) (string, error) {
		return f.client.ManifestDigest(ctx, parsed)
	})
	if err != nil {
		return "", classify(KindManifestFetch, opCheckCache, normalized, err)
	}
	if hit {
		return entry.ContentPath, nil
	}

	f.log().Info("pulling artifact", "ref", normalized)
	artifact, err := f.client.Pull(ctx, parsed, accepted)
	if err != nil {
		return "", classify(KindPull, opPull, normalized, err)
	}

	if err := ValidateArtifact(artifact); err != nil {
		f.log().Warn("rejected invalid artifact", "ref", normalized, "error", err.Error())
		return "", newError(KindValidation, opValidate, normalized, err)
	}

	if mode == CacheUpdate {
		entry, err = f.store.Put(normalized, artifact.Content(), artifact.Manifest.Digest)
		if err != nil {
			return "", newError(KindCacheIO, opWriteCache, normalized, err)
		}
	}

	f.log().Info("fetched artifact",
		"ref", normalized,
		"digest", artifact.Manifest.Digest,
		"layers", len(artifact.Layers),
		"size", artifact.Size(),
	)
	return entry.ContentPath, nil
}

// classify picks the error kind for a registry failure. Certificate and
// reference errors keep their own kind regardless of the step.
func classify(kind Kind, op, ref string, err error) *Error {
	switch {
	case errors.Is(err, registry.ErrCertLoad):
		kind = KindCertLoad
	case errors.Is(err, registry.ErrInvalidReference):
		kind = KindInvalidReference
	}
	return newError(kind, op, ref, err)
}

// flightKey identifies fetches that can share one pull.
func flightKey(ref string, accepted []string, mode CacheMode) string {
	types := slices.Clone(accepted)
	slices.Sort(types)
	return ref + "|" + strings.Join(types, ",") + "|" + strconv.Itoa(int(mode))
}
