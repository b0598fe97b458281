package oras

import (
	"log/slog"

	"oras.land/oras-go/v2/registry/remote/auth"
)

// Option configures a Client.
type Option func(*Client)

// WithTransportPolicy sets the policy deciding plain HTTP and trusted roots.
func WithTransportPolicy(p *TransportPolicy) Option {
	return func(c *Client) {
		c.transport = p
	}
}

// WithCredentials sets a username/password used for every registry.
func WithCredentials(username, password string) Option {
	return func(c *Client) {
		c.credStore = GlobalCredentials(username, password, "")
	}
}

// WithToken sets a bearer token used for every registry.
func WithToken(token string) Option {
	return func(c *Client) {
		c.credStore = GlobalCredentials("", "", token)
	}
}

// WithStaticCredentials sets username/password credentials for one registry
// host. They take precedence over every other credential source for that host.
func WithStaticCredentials(registry, username, password string) Option {
	return func(c *Client) {
		c.addHostCredential(registry, auth.Credential{Username: username, Password: password})
	}
}

// WithStaticToken sets a bearer token for one registry host.
func WithStaticToken(registry, token string) Option {
	return func(c *Client) {
		c.addHostCredential(registry, auth.Credential{AccessToken: token})
	}
}

// WithDockerConfig enables reading credentials from ~/.docker/config.json.
// If the docker config cannot be loaded (common in environments without docker),
// the client falls back to no credentials.
func WithDockerConfig() Option {
	return func(c *Client) {
		store, err := DefaultCredentialStore()
		if err != nil {
			return
		}
		c.credStore = store
	}
}

// WithAnonymous disables all authentication, including credential store lookups.
func WithAnonymous() Option {
	return func(c *Client) {
		c.anonymous = true
	}
}

// WithUserAgent sets the User-Agent header for requests.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithLogger sets the logger for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}
