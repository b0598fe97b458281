package testutil

import (
	"encoding/pem"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	ggcrregistry "github.com/google/go-containerregistry/pkg/registry"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/empty"
	"github.com/google/go-containerregistry/pkg/v1/mutate"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	"github.com/google/go-containerregistry/pkg/v1/static"
	"github.com/google/go-containerregistry/pkg/v1/types"
)

// Request kinds tracked by Registry.
const (
	KindManifest = "manifests"
	KindBlob     = "blobs"
)

// Layer is one layer of a test artifact.
type Layer struct {
	MediaType string
	Data      []byte
}

// Artifact describes an artifact to push to a test registry.
type Artifact struct {
	// ConfigMediaType overrides the config descriptor media type when set.
	ConfigMediaType string
	Layers          []Layer
}

// Registry is an in-process OCI registry that counts requests.
type Registry struct {
	Server *httptest.Server

	// Host is the host:port to use in references.
	Host string

	mu     sync.Mutex
	counts map[string]int

	// username and password, when set, are required as basic auth.
	username string
	password string
}

// NewRegistry starts a plain HTTP registry that is closed with the test.
func NewRegistry(tb testing.TB) *Registry {
	tb.Helper()
	r := &Registry{counts: make(map[string]int)}
	r.Server = httptest.NewServer(r.handler())
	tb.Cleanup(r.Server.Close)
	r.Host = strings.TrimPrefix(r.Server.URL, "http://")
	return r
}

// NewAuthRegistry starts a plain HTTP registry that requires basic auth.
func NewAuthRegistry(tb testing.TB, username, password string) *Registry {
	tb.Helper()
	r := &Registry{counts: make(map[string]int), username: username, password: password}
	r.Server = httptest.NewServer(r.handler())
	tb.Cleanup(r.Server.Close)
	r.Host = strings.TrimPrefix(r.Server.URL, "http://")
	return r
}

// NewTLSRegistry starts a registry behind a self-signed TLS certificate.
func NewTLSRegistry(tb testing.TB) *Registry {
	tb.Helper()
	r := &Registry{counts: make(map[string]int)}
	r.Server = httptest.NewTLSServer(r.handler())
	tb.Cleanup(r.Server.Close)
	r.Host = strings.TrimPrefix(r.Server.URL, "https://")
	return r
}

func (r *Registry) handler() http.Handler {
	inner := ggcrregistry.New(ggcrregistry.Logger(log.New(io.Discard, "", 0)))
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if kind := requestKind(req.URL.Path); kind != "" {
			r.mu.Lock()
			r.counts[req.Method+" "+kind]++
			r.mu.Unlock()
		}
		if r.username != "" {
			user, pass, ok := req.BasicAuth()
			if !ok || user != r.username || pass != r.password {
				w.Header().Set("WWW-Authenticate", `Basic realm="testutil"`)
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
		}
		inner.ServeHTTP(w, req)
	})
}

// Requests returns how many requests with method hit the given kind.
func (r *Registry) Requests(method, kind string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[method+" "+kind]
}

// ResetCounts clears the request counters.
func (r *Registry) ResetCounts() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.counts)
}

// Ref returns a reference to repo:tag on this registry.
func (r *Registry) Ref(repoTag string) string {
	return r.Host + "/" + repoTag
}

// CAFile writes the server certificate as PEM and returns its path.
func (r *Registry) CAFile(tb testing.TB) string {
	tb.Helper()
	cert := r.Server.Certificate()
	if cert == nil {
		tb.Fatal("registry has no TLS certificate")
	}
	path := filepath.Join(tb.TempDir(), "ca.pem")
	data := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw})
	if err := os.WriteFile(path, data, 0o600); err != nil {
		tb.Fatalf("write CA file: %v", err)
	}
	return path
}

// Push pushes a to repoTag and returns the manifest digest.
func (r *Registry) Push(tb testing.TB, repoTag string, a Artifact) string {
	tb.Helper()
	opts := []remote.Option{remote.WithTransport(r.Server.Client().Transport)}
	if r.username != "" {
		opts = append(opts, remote.WithAuth(&authn.Basic{Username: r.username, Password: r.password}))
	}
	return PushArtifact(tb, r.Ref(repoTag), a, opts...)
}

// PushArtifact pushes a to ref and returns the manifest digest.
func PushArtifact(tb testing.TB, ref string, a Artifact, opts ...remote.Option) string {
	tb.Helper()

	img, err := BuildImage(a)
	if err != nil {
		tb.Fatalf("build image: %v", err)
	}
	parsed, err := name.ParseReference(ref, name.Insecure)
	if err != nil {
		tb.Fatalf("parse reference %q: %v", ref, err)
	}
	if err := remote.Write(parsed, img, opts...); err != nil {
		tb.Fatalf("push %s: %v", ref, err)
	}
	dgst, err := img.Digest()
	if err != nil {
		tb.Fatalf("image digest: %v", err)
	}
	return dgst.String()
}

// BuildImage assembles an OCI image manifest from a.
func BuildImage(a Artifact) (v1.Image, error) {
	img := mutate.MediaType(empty.Image, types.OCIManifestSchema1)
	if a.ConfigMediaType != "" {
		img = mutate.ConfigMediaType(img, types.MediaType(a.ConfigMediaType))
	}
	for _, l := range a.Layers {
		var err error
		img, err = mutate.AppendLayers(img, static.NewLayer(l.Data, types.MediaType(l.MediaType)))
		if err != nil {
			return nil, err
		}
	}
	return img, nil
}

// requestKind classifies /v2/<name>/{manifests,blobs}/<ref> paths.
func requestKind(path string) string {
	if !strings.HasPrefix(path, "/v2/") {
		return ""
	}
	parts := strings.Split(path, "/")
	if len(parts) < 3 {
		return ""
	}
	switch parts[len(parts)-2] {
	case KindManifest:
		return KindManifest
	case KindBlob:
		return KindBlob
	default:
		return ""
	}
}
