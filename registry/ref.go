package registry

import (
	"fmt"
	"strings"

	"github.com/distribution/reference"
)

// LatestTag is the floating tag rejected unless policy allows it.
const LatestTag = "latest"

// Reference is a parsed OCI reference.
type Reference struct {
	// Registry is the registry host, including any port.
	Registry string

	// Repository is the repository path within the registry.
	Repository string

	// Tag is the tag, if the reference has one.
	Tag string

	// Digest is the manifest digest, if the reference is pinned.
	Digest string
}

// Normalize lowercases ref and enforces the latest-tag rule.
//
// OCI references may not contain uppercase characters, so lowercasing
// happens before anything else looks at the string.
func Normalize(ref string, allowLatest bool) (string, error) {
	normalized := strings.ToLower(ref)
	if !allowLatest && strings.HasSuffix(normalized, ":"+LatestTag) {
		return "", fmt.Errorf("%w: %q", ErrLatestTag, normalized)
	}
	return normalized, nil
}

// ParseReference parses an already-normalized reference string.
//
// Short names are expanded the way the Docker CLI does it, so
// "acme/widget:v1" resolves to "docker.io/acme/widget:v1".
func ParseReference(ref string) (Reference, error) {
	if ref == "" {
		return Reference{}, fmt.Errorf("%w: empty reference", ErrInvalidReference)
	}
	named, err := reference.ParseNormalizedNamed(ref)
	if err != nil {
		return Reference{}, fmt.Errorf("%w: %q: %v", ErrInvalidReference, ref, err)
	}

	r := Reference{
		Registry:   reference.Domain(named),
		Repository: reference.Path(named),
	}
	if tagged, ok := named.(reference.Tagged); ok {
		r.Tag = tagged.Tag()
	}
	if digested, ok := named.(reference.Digested); ok {
		r.Digest = digested.Digest().String()
	}
	return r, nil
}

// Reference returns the tag or digest to resolve, preferring the digest.
// A reference with neither resolves the latest tag, as registries do.
func (r Reference) Reference() string {
	switch {
	case r.Digest != "":
		return r.Digest
	case r.Tag != "":
		return r.Tag
	default:
		return LatestTag
	}
}

// Name returns registry/repository without tag or digest.
func (r Reference) Name() string {
	return r.Registry + "/" + r.Repository
}

// String returns the fully qualified reference.
func (r Reference) String() string {
	var b strings.Builder
	b.WriteString(r.Name())
	if r.Tag != "" {
		b.WriteString(":")
		b.WriteString(r.Tag)
	}
	if r.Digest != "" {
		b.WriteString("@")
		b.WriteString(r.Digest)
	}
	return b.String()
}
