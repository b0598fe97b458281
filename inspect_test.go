package ocifetch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInspect(t *testing.T) {
	t.Parallel()

	reg := &fakeRegistry{digest: "sha256:abc", artifact: componentArtifact("sha256:abc", "x")}
	f := newTestFetcher(t, reg)

	status, err := f.Inspect("Registry.Example.com/acme/widget:v1")
	require.NoError(t, err)
	assert.Equal(t, widgetRef, status.Reference)
	assert.False(t, status.Cached)
	assert.Empty(t, status.LocalDigest)

	path, err := f.FetchPath(context.Background(), widgetRef, ComponentMediaTypes(), CacheUpdate)
	require.NoError(t, err)

	status, err = f.Inspect(widgetRef)
	require.NoError(t, err)
	assert.True(t, status.Cached)
	assert.Equal(t, "sha256:abc", status.LocalDigest)
	assert.Equal(t, path, status.Entry.ContentPath)

	digestCalls, pullCalls := reg.calls()
	assert.Zero(t, digestCalls, "inspect must not contact the registry")
	assert.Equal(t, 1, pullCalls)
}

func TestInspectAppliesPolicy(t *testing.T) {
	t.Parallel()

	f := newTestFetcher(t, &fakeRegistry{})
	_, err := f.Inspect("registry.example.com/acme/widget:latest")
	assert.ErrorIs(t, err, ErrPolicyViolation)
}
