//go:build integration

package integration

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/meigma/ocifetch"
	"github.com/meigma/ocifetch/internal/testutil"
	"github.com/meigma/ocifetch/registry"
)

// --- Registry Container Setup ---

var (
	registryOnce sync.Once
	registryAddr string
	registryErr  error
)

// getRegistry returns the shared registry address, starting the container if needed.
// The container is shared across all tests for performance.
func getRegistry(tb testing.TB) string {
	tb.Helper()

	if os.Getenv("SKIP_DOCKER_TESTS") == "1" {
		tb.Skip("SKIP_DOCKER_TESTS is set")
	}

	registryOnce.Do(func() {
		registryAddr, registryErr = startRegistryContainer(context.Background())
	})

	if registryErr != nil {
		tb.Fatalf("start registry container: %v", registryErr)
	}

	return registryAddr
}

// startRegistryContainer starts a registry:2 container and returns the host:port address.
func startRegistryContainer(ctx context.Context) (string, error) {
	req := testcontainers.ContainerRequest{
		Image:        "registry:2",
		ExposedPorts: []string{"5000/tcp"},
		WaitingFor:   wait.ForHTTP("/v2/").WithPort("5000/tcp").WithStatusCodeMatcher(isOKStatus),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return "", fmt.Errorf("start registry container: %w", err)
	}

	// Cleanup is left to the testcontainers reaper.

	host, err := container.Host(ctx)
	if err != nil {
		return "", fmt.Errorf("resolve registry host: %w", err)
	}

	port, err := container.MappedPort(ctx, "5000/tcp")
	if err != nil {
		return "", fmt.Errorf("resolve registry port: %w", err)
	}

	return fmt.Sprintf("%s:%s", host, port.Port()), nil
}

func isOKStatus(status int) bool {
	return status >= 200 && status < 300
}

// --- Fetcher Factory ---

// newTestFetcher creates a Fetcher allowed to use plain HTTP to the test registry only.
func newTestFetcher(tb testing.TB, registryAddr string, policy ocifetch.FetchPolicy, opts ...ocifetch.Option) *ocifetch.Fetcher {
	tb.Helper()

	policy.AllowInsecure = true
	policy.InsecureRegistries = []string{registryAddr}

	allOpts := append([]ocifetch.Option{
		ocifetch.WithCacheDir(tb.TempDir()),
		ocifetch.WithPolicy(policy),
	}, opts...)

	f, err := ocifetch.New(allOpts...)
	require.NoError(tb, err, "create test fetcher")
	return f
}

// --- Test Reference Helpers ---

// testRef generates a unique reference for a test to avoid collisions.
func testRef(registryAddr, testName, tag string) string {
	return fmt.Sprintf("%s/test/%s:%s", registryAddr, testName, tag)
}

// --- Artifact Helpers ---

var wasmBytes = []byte("\x00asm\x01\x00\x00\x00")

// pushComponent pushes a single-layer wasm component and returns its manifest digest.
func pushComponent(tb testing.TB, ref string, data []byte) string {
	tb.Helper()
	return testutil.PushArtifact(tb, ref, testutil.Artifact{
		ConfigMediaType: registry.MediaTypeWasmConfig,
		Layers:          []testutil.Layer{{MediaType: registry.MediaTypeWasmLayer, Data: data}},
	})
}
