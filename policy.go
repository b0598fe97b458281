package ocifetch

import "slices"

// FetchPolicy controls which references may be fetched and how.
//
// The zero value is the most restrictive policy: latest tags are refused,
// TLS is required, no extra CAs are trusted and access is anonymous.
type FetchPolicy struct {
	// AllowLatest permits references ending in ":latest".
	AllowLatest bool

	// AllowInsecure permits plain HTTP to the registry named by the
	// reference being fetched. It never applies to any other host.
	AllowInsecure bool

	// InsecureRegistries, when non-empty, restricts AllowInsecure to the
	// listed registry hosts. Entries may be glob patterns like "localhost:*".
	InsecureRegistries []string

	// AdditionalCAPaths lists certificate files trusted in addition to the
	// system roots. Any unreadable path fails the fetch.
	AdditionalCAPaths []string

	// Auth is presented to every registry. The zero value is anonymous.
	Auth Credentials
}

// Credentials authenticate to a registry.
type Credentials struct {
	Username string
	Password string

	// Token is a bearer token used instead of username and password.
	Token string
}

// Anonymous reports whether c carries no credentials.
func (c Credentials) Anonymous() bool {
	return c.Username == "" && c.Password == "" && c.Token == ""
}

// DefaultPolicy returns the restrictive default policy.
func DefaultPolicy() FetchPolicy {
	return FetchPolicy{}
}

// clone returns a deep copy so callers cannot mutate a Fetcher's policy.
func (p FetchPolicy) clone() FetchPolicy {
	p.InsecureRegistries = slices.Clone(p.InsecureRegistries)
	p.AdditionalCAPaths = slices.Clone(p.AdditionalCAPaths)
	return p
}
