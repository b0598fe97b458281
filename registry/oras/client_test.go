package oras

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/ocifetch/internal/testutil"
	"github.com/meigma/ocifetch/registry"
)

var componentArtifact = testutil.Artifact{
	ConfigMediaType: registry.MediaTypeWasmConfig,
	Layers: []testutil.Layer{
		{MediaType: registry.MediaTypeWasmLayer, Data: []byte("\x00asm\x01\x00\x00\x00")},
	},
}

func mustParse(t *testing.T, ref string) registry.Reference {
	t.Helper()
	r, err := registry.ParseReference(ref)
	require.NoError(t, err)
	return r
}

func TestClientPull(t *testing.T) {
	t.Parallel()

	reg := testutil.NewRegistry(t)
	dgst := reg.Push(t, "acme/widget:v1", testutil.Artifact{
		Layers: []testutil.Layer{
			{MediaType: registry.MediaTypeOCILayer, Data: []byte("first-")},
			{MediaType: registry.MediaTypeOCILayer, Data: []byte("second")},
		},
	})

	c := New(WithTransportPolicy(NewTransportPolicy(true, nil, nil)), WithAnonymous())
	ref := mustParse(t, reg.Ref("acme/widget:v1"))

	artifact, err := c.Pull(context.Background(), ref, []string{registry.MediaTypeOCILayer})
	require.NoError(t, err)
	assert.Equal(t, dgst, artifact.Manifest.Digest)
	require.Len(t, artifact.Layers, 2)
	assert.Equal(t, []byte("first-second"), artifact.Content())

	got, err := c.ManifestDigest(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, dgst, got)
}

func TestClientPullComponentManifest(t *testing.T) {
	t.Parallel()

	reg := testutil.NewRegistry(t)
	reg.Push(t, "acme/component:v1", componentArtifact)

	c := New(WithTransportPolicy(NewTransportPolicy(true, nil, nil)))
	artifact, err := c.Pull(context.Background(), mustParse(t, reg.Ref("acme/component:v1")), []string{registry.MediaTypeWasmLayer})
	require.NoError(t, err)
	assert.Equal(t, registry.MediaTypeWasmConfig, artifact.Manifest.ConfigMediaType)
	assert.True(t, registry.IsComponentManifest(artifact.Manifest))
}

func TestClientPullRejectsUnacceptedLayer(t *testing.T) {
	t.Parallel()

	reg := testutil.NewRegistry(t)
	reg.Push(t, "acme/widget:v1", componentArtifact)
	reg.ResetCounts()

	c := New(WithTransportPolicy(NewTransportPolicy(true, nil, nil)))
	_, err := c.Pull(context.Background(), mustParse(t, reg.Ref("acme/widget:v1")), []string{registry.MediaTypeProviderArchive})
	require.ErrorIs(t, err, registry.ErrMediaTypeNotAccepted)
	assert.Zero(t, reg.Requests(http.MethodGet, testutil.KindBlob), "no layer should be downloaded")
}

func TestClientNotFound(t *testing.T) {
	t.Parallel()

	reg := testutil.NewRegistry(t)
	c := New(WithTransportPolicy(NewTransportPolicy(true, nil, nil)))
	ref := mustParse(t, reg.Ref("acme/missing:v1"))

	_, err := c.ManifestDigest(context.Background(), ref)
	assert.ErrorIs(t, err, registry.ErrNotFound)

	_, err = c.Pull(context.Background(), ref, []string{registry.MediaTypeOCILayer})
	assert.ErrorIs(t, err, registry.ErrNotFound)
}

func TestClientInsecureScopedToReferenceHost(t *testing.T) {
	t.Parallel()

	plain := testutil.NewRegistry(t)
	plain.Push(t, "acme/widget:v1", componentArtifact)

	// Only the other host may use plain HTTP, so this registry must be reached over TLS.
	c := New(WithTransportPolicy(NewTransportPolicy(true, []string{"other.example.com:5000"}, nil)))
	_, err := c.ManifestDigest(context.Background(), mustParse(t, plain.Ref("acme/widget:v1")))
	require.Error(t, err)

	repo, err := c.repository(mustParse(t, plain.Ref("acme/widget:v1")))
	require.NoError(t, err)
	assert.False(t, repo.PlainHTTP)

	repo, err = c.repository(mustParse(t, "other.example.com:5000/acme/widget:v1"))
	require.NoError(t, err)
	assert.True(t, repo.PlainHTTP)
}

func TestClientTLSWithAdditionalCA(t *testing.T) {
	t.Parallel()

	reg := testutil.NewTLSRegistry(t)
	dgst := reg.Push(t, "acme/widget:v1", componentArtifact)
	ref := mustParse(t, reg.Ref("acme/widget:v1"))

	t.Run("untrusted", func(t *testing.T) {
		t.Parallel()
		c := New()
		_, err := c.ManifestDigest(context.Background(), ref)
		assert.Error(t, err)
	})

	t.Run("trusted via CA path", func(t *testing.T) {
		t.Parallel()
		c := New(WithTransportPolicy(NewTransportPolicy(false, nil, []string{reg.CAFile(t)})))
		got, err := c.ManifestDigest(context.Background(), ref)
		require.NoError(t, err)
		assert.Equal(t, dgst, got)
	})

	t.Run("bad CA path fails before any request", func(t *testing.T) {
		t.Parallel()
		c := New(WithTransportPolicy(NewTransportPolicy(false, nil, []string{"/nonexistent/ca.pem"})))
		_, err := c.Pull(context.Background(), ref, []string{registry.MediaTypeWasmLayer})
		assert.ErrorIs(t, err, registry.ErrCertLoad)
	})
}

func TestClientStaticCredentials(t *testing.T) {
	t.Parallel()

	reg := testutil.NewAuthRegistry(t, "alice", "secret")
	dgst := reg.Push(t, "acme/widget:v1", componentArtifact)
	ref := mustParse(t, reg.Ref("acme/widget:v1"))
	insecure := WithTransportPolicy(NewTransportPolicy(true, nil, nil))

	t.Run("anonymous is rejected", func(t *testing.T) {
		t.Parallel()
		_, err := New(insecure).ManifestDigest(context.Background(), ref)
		assert.ErrorIs(t, err, registry.ErrUnauthorized)
	})

	t.Run("host credentials", func(t *testing.T) {
		t.Parallel()
		c := New(insecure, WithStaticCredentials(reg.Host, "alice", "secret"))
		got, err := c.ManifestDigest(context.Background(), ref)
		require.NoError(t, err)
		assert.Equal(t, dgst, got)
	})

	t.Run("host credentials override global", func(t *testing.T) {
		t.Parallel()
		c := New(insecure, WithCredentials("bob", "wrong"), WithStaticCredentials(reg.Host, "alice", "secret"))
		_, err := c.Pull(context.Background(), ref, []string{registry.MediaTypeWasmLayer})
		require.NoError(t, err)
	})

	t.Run("credentials for another host are not sent", func(t *testing.T) {
		t.Parallel()
		c := New(insecure, WithStaticCredentials("other.example.com", "alice", "secret"))
		_, err := c.ManifestDigest(context.Background(), ref)
		assert.ErrorIs(t, err, registry.ErrUnauthorized)
	})
}

func TestRegistryHost(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "registry-1.docker.io", registryHost("docker.io"))
	assert.Equal(t, "ghcr.io", registryHost("ghcr.io"))
}
