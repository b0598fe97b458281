// Package ocifetch retrieves WebAssembly components and capability provider
// archives from OCI registries and keeps a local copy of each.
//
// A [Fetcher] turns an untrusted reference string into a validated file in
// the cache directory. It refuses floating "latest" tags unless the policy
// allows them, only downgrades to plain HTTP for the registry named by the
// reference, and skips the download when the registry still reports the
// manifest digest the cached copy was pulled at.
//
// # Quick Start
//
//	f, err := ocifetch.New(
//	    ocifetch.WithCacheDir("/var/cache/wasm"),
//	    ocifetch.WithPolicy(ocifetch.FetchPolicy{
//	        AdditionalCAPaths: []string{"/etc/ssl/internal-ca.pem"},
//	    }),
//	)
//	if err != nil {
//	    return err
//	}
//	wasm, err := f.FetchComponent(ctx, "ghcr.io/acme/widget:v1.2.0")
//
// # Errors
//
// Every failure is an [*Error] carrying a [Kind] and the step that failed.
// Match kinds with errors.Is:
//
//	if errors.Is(err, ocifetch.ErrPolicyViolation) {
//	    // reference used a prohibited tag
//	}
package ocifetch
