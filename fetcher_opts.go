package ocifetch

import (
	"errors"
	"log/slog"

	"github.com/meigma/ocifetch/registry"
	"github.com/meigma/ocifetch/registry/oras"
)

// Option configures a Fetcher.
type Option func(*Fetcher) error

// WithPolicy sets the fetch policy. The policy is copied; later changes to
// p's slices do not affect the Fetcher.
func WithPolicy(p FetchPolicy) Option {
	return func(f *Fetcher) error {
		f.policy = p.clone()
		return nil
	}
}

// WithCacheDir sets the cache root directory. Defaults to [DefaultCacheDir].
func WithCacheDir(dir string) Option {
	return func(f *Fetcher) error {
		if dir == "" {
			return errors.New("cache dir is empty")
		}
		f.cacheDir = dir
		return nil
	}
}

// WithRegistryClient replaces the ORAS client, typically with a fake in tests.
//
// A custom client is responsible for its own transport policy and credentials.
func WithRegistryClient(c registry.Client) Option {
	return func(f *Fetcher) error {
		if c == nil {
			return errors.New("registry client is nil")
		}
		f.client = c
		return nil
	}
}

// WithProviderArchiveReader sets the reader that parses provider archives.
func WithProviderArchiveReader(r ProviderArchiveReader) Option {
	return func(f *Fetcher) error {
		f.archives = r
		return nil
	}
}

// WithLogger sets the logger for the fetcher, its cache and its registry client.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) error {
		f.logger = logger
		return nil
	}
}

// WithDockerConfig reads registry credentials from ~/.docker/config.json.
// It takes precedence over FetchPolicy.Auth.
func WithDockerConfig() Option {
	return func(f *Fetcher) error {
		f.orasOpts = append(f.orasOpts, oras.WithDockerConfig())
		return nil
	}
}

// WithStaticCredentials sets username/password credentials for one registry
// host, overriding FetchPolicy.Auth and the Docker config for that host.
func WithStaticCredentials(registry, username, password string) Option {
	return func(f *Fetcher) error {
		if registry == "" {
			return errors.New("registry host is empty")
		}
		f.orasOpts = append(f.orasOpts, oras.WithStaticCredentials(registry, username, password))
		return nil
	}
}

// WithStaticToken sets a bearer token for one registry host.
func WithStaticToken(registry, token string) Option {
	return func(f *Fetcher) error {
		if registry == "" {
			return errors.New("registry host is empty")
		}
		f.orasOpts = append(f.orasOpts, oras.WithStaticToken(registry, token))
		return nil
	}
}

// WithUserAgent sets the User-Agent header for registry requests.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) error {
		f.orasOpts = append(f.orasOpts, oras.WithUserAgent(ua))
		return nil
	}
}
