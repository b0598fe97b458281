//go:build integration

package integration

import (
	"context"
	"os"
	"testing"

	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/ocifetch"
	"github.com/meigma/ocifetch/internal/testutil"
	"github.com/meigma/ocifetch/registry"
)

func TestFetchComponentRoundTrip(t *testing.T) {
	addr := getRegistry(t)
	ref := testRef(addr, "component-roundtrip", "v1")
	pushed := pushComponent(t, ref, wasmBytes)

	f := newTestFetcher(t, addr, ocifetch.DefaultPolicy())
	ctx := context.Background()

	data, err := f.FetchComponent(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, wasmBytes, data)

	status, err := f.Inspect(ref)
	require.NoError(t, err)
	require.True(t, status.Cached)

	stored, err := digest.Parse(status.LocalDigest)
	require.NoError(t, err)
	assert.Equal(t, digest.SHA256, stored.Algorithm())
	assert.Equal(t, pushed, stored.String())

	again, err := f.FetchComponent(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func TestFetchComponentRepush(t *testing.T) {
	addr := getRegistry(t)
	ref := testRef(addr, "component-repush", "v1")
	pushComponent(t, ref, []byte("first"))

	f := newTestFetcher(t, addr, ocifetch.DefaultPolicy())
	ctx := context.Background()

	data, err := f.FetchComponent(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), data)

	second := pushComponent(t, ref, []byte("second"))
	data, err = f.FetchComponent(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), data)

	status, err := f.Inspect(ref)
	require.NoError(t, err)
	assert.Equal(t, second, status.LocalDigest)
}

func TestFetchRejectsMultiLayerComponent(t *testing.T) {
	addr := getRegistry(t)
	ref := testRef(addr, "component-two-layers", "v1")
	testutil.PushArtifact(t, ref, testutil.Artifact{
		ConfigMediaType: registry.MediaTypeWasmConfig,
		Layers: []testutil.Layer{
			{MediaType: registry.MediaTypeWasmLayer, Data: []byte("a")},
			{MediaType: registry.MediaTypeWasmLayer, Data: []byte("b")},
		},
	})

	f := newTestFetcher(t, addr, ocifetch.DefaultPolicy())
	_, err := f.FetchComponent(context.Background(), ref)
	assert.ErrorIs(t, err, ocifetch.ErrValidation)
}

func TestFetchProviderConcatenatesLayers(t *testing.T) {
	addr := getRegistry(t)
	ref := testRef(addr, "provider", "v1")
	testutil.PushArtifact(t, ref, testutil.Artifact{
		Layers: []testutil.Layer{
			{MediaType: registry.MediaTypeProviderArchive, Data: []byte("part-1,")},
			{MediaType: registry.MediaTypeOCILayer, Data: []byte("part-2")},
		},
	})

	f := newTestFetcher(t, addr, ocifetch.DefaultPolicy())
	p, err := f.FetchProvider(context.Background(), ref, "host-1")
	require.NoError(t, err)

	data, err := os.ReadFile(p.Path)
	require.NoError(t, err)
	assert.Equal(t, []byte("part-1,part-2"), data)
}

func TestFetchLatestPolicy(t *testing.T) {
	addr := getRegistry(t)
	ref := testRef(addr, "latest", "latest")
	pushComponent(t, ref, wasmBytes)

	denied := newTestFetcher(t, addr, ocifetch.DefaultPolicy())
	_, err := denied.FetchComponent(context.Background(), ref)
	assert.ErrorIs(t, err, ocifetch.ErrPolicyViolation)

	allowed := newTestFetcher(t, addr, ocifetch.FetchPolicy{AllowLatest: true})
	data, err := allowed.FetchComponent(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, wasmBytes, data)
}

func TestFetchInsecureScopedToListedHosts(t *testing.T) {
	addr := getRegistry(t)
	ref := testRef(addr, "insecure-scope", "v1")
	pushComponent(t, ref, wasmBytes)

	f, err := ocifetch.New(
		ocifetch.WithCacheDir(t.TempDir()),
		ocifetch.WithPolicy(ocifetch.FetchPolicy{
			AllowInsecure:      true,
			InsecureRegistries: []string{"other.example.com:5000"},
		}),
	)
	require.NoError(t, err)

	_, err = f.FetchComponent(context.Background(), ref)
	assert.ErrorIs(t, err, ocifetch.ErrPull)
}

func TestFetchNotFound(t *testing.T) {
	addr := getRegistry(t)
	f := newTestFetcher(t, addr, ocifetch.DefaultPolicy())

	_, err := f.FetchComponent(context.Background(), testRef(addr, "does-not-exist", "v1"))
	assert.ErrorIs(t, err, ocifetch.ErrPull)
	assert.ErrorIs(t, err, registry.ErrNotFound)
}
