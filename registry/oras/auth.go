package oras

import (
	"context"
	"errors"
	"strings"

	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/credentials"
)

// DefaultCredentialStore returns a credential store that reads from
// Docker config (~/.docker/config.json) and credential helpers.
func DefaultCredentialStore() (credentials.Store, error) {
	store, err := credentials.NewStoreFromDocker(credentials.StoreOptions{})
	if err != nil {
		return nil, err
	}
	return &dockerHubFallbackStore{store: store}, nil
}

// GlobalCredentials returns a credential store that hands the same
// credential to every registry host. An empty username and token yields
// anonymous access.
func GlobalCredentials(username, password, token string) credentials.Store {
	return &staticStore{
		cred: auth.Credential{
			Username:    username,
			Password:    password,
			AccessToken: token,
		},
	}
}

// HostCredentials returns a credential store serving creds by registry host.
// Keys may carry a scheme or path; Docker Hub aliases share one entry. Hosts
// without an entry are looked up in fallback, which may be nil.
func HostCredentials(creds map[string]auth.Credential, fallback credentials.Store) credentials.Store {
	s := &hostStore{
		creds:    make(map[string]auth.Credential, len(creds)),
		fallback: fallback,
	}
	for host, cred := range creds {
		s.creds[normalizeServerAddress(host)] = cred
	}
	return s
}

// staticStore hands one credential to every host.
type staticStore struct {
	cred auth.Credential
}

// Get retrieves credentials for the given server address.
func (s *staticStore) Get(_ context.Context, _ string) (auth.Credential, error) {
	if isEmptyCredential(s.cred) {
		return auth.EmptyCredential, nil
	}
	return s.cred, nil
}

// Put is not supported for static credentials.
func (s *staticStore) Put(_ context.Context, _ string, _ auth.Credential) error {
	return errReadOnlyStore
}

// Delete is not supported for static credentials.
func (s *staticStore) Delete(_ context.Context, _ string) error {
	return errReadOnlyStore
}

var errReadOnlyStore = errors.New("static credential store is read-only")

// hostStore serves static credentials per registry host.
type hostStore struct {
	creds    map[string]auth.Credential
	fallback credentials.Store
}

// Get retrieves credentials for the given server address.
func (s *hostStore) Get(ctx context.Context, serverAddress string) (auth.Credential, error) {
	server := normalizeServerAddress(serverAddress)
	if cred, ok := s.creds[server]; ok {
		return cred, nil
	}
	if isDockerHubHost(server) {
		for host, cred := range s.creds {
			if isDockerHubHost(host) {
				return cred, nil
			}
		}
	}
	if s.fallback == nil {
		return auth.EmptyCredential, nil
	}
	return s.fallback.Get(ctx, serverAddress)
}

// Put is not supported for static credentials.
func (s *hostStore) Put(_ context.Context, _ string, _ auth.Credential) error {
	return errReadOnlyStore
}

// Delete is not supported for static credentials.
func (s *hostStore) Delete(_ context.Context, _ string) error {
	return errReadOnlyStore
}

// dockerHubFallbackStore wraps a credential store and tries multiple
// Docker Hub hostnames when looking up credentials.
type dockerHubFallbackStore struct {
	store credentials.Store
}

// Get retrieves credentials, trying Docker Hub fallback addresses if needed.
func (s *dockerHubFallbackStore) Get(ctx context.Context, serverAddress string) (auth.Credential, error) {
	cred, err := s.store.Get(ctx, serverAddress)
	if err == nil && !isEmptyCredential(cred) {
		return cred, nil
	}

	for _, alt := range dockerHubFallbacks(serverAddress) {
		if alt == serverAddress {
			continue
		}
		fallbackCred, fallbackErr := s.store.Get(ctx, alt)
		if fallbackErr == nil && !isEmptyCredential(fallbackCred) {
			return fallbackCred, nil
		}
	}

	return cred, err
}

// Put saves credentials to the underlying store.
func (s *dockerHubFallbackStore) Put(ctx context.Context, serverAddress string, cred auth.Credential) error {
	return s.store.Put(ctx, serverAddress, cred)
}

// Delete removes credentials from the underlying store.
func (s *dockerHubFallbackStore) Delete(ctx context.Context, serverAddress string) error {
	return s.store.Delete(ctx, serverAddress)
}

// dockerHubFallbacks returns alternative addresses to try for Docker Hub.
func dockerHubFallbacks(serverAddress string) []string {
	if !isDockerHubHost(normalizeServerAddress(serverAddress)) {
		return nil
	}
	return []string{
		"https://index.docker.io/v1/",
		"index.docker.io",
		"registry-1.docker.io",
		"docker.io",
	}
}

// isDockerHubHost returns true if the address is a Docker Hub hostname.
// Handles addresses with or without ports (e.g., "docker.io" or "docker.io:443").
func isDockerHubHost(hostport string) bool {
	switch extractHost(hostport) {
	case "docker.io", "registry-1.docker.io", "index.docker.io":
		return true
	default:
		return false
	}
}

// registryHost maps the docker.io name used in references to the host that
// actually serves the distribution API.
func registryHost(host string) string {
	if host == "docker.io" || host == "index.docker.io" {
		return "registry-1.docker.io"
	}
	return host
}

// extractHost returns just the hostname from a host[:port] string.
func extractHost(hostport string) string {
	// Handle IPv6 addresses like [::1]:8080
	if strings.HasPrefix(hostport, "[") {
		if idx := strings.LastIndex(hostport, "]"); idx != -1 {
			return hostport[:idx+1]
		}
		return hostport
	}
	if idx := strings.LastIndex(hostport, ":"); idx != -1 {
		return hostport[:idx]
	}
	return hostport
}

// normalizeServerAddress extracts the host[:port] from a server address.
// It strips the scheme and path but preserves the port for credential matching.
func normalizeServerAddress(addr string) string {
	addr = strings.TrimPrefix(addr, "http://")
	addr = strings.TrimPrefix(addr, "https://")
	addr, _, _ = strings.Cut(addr, "/")
	return addr
}

// isEmptyCredential returns true if the credential has no authentication data.
func isEmptyCredential(cred auth.Credential) bool {
	return cred == auth.EmptyCredential ||
		(cred.Username == "" && cred.Password == "" && cred.AccessToken == "" && cred.RefreshToken == "")
}
