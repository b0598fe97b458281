// Package config loads the host's registry settings from the environment,
// an optional config file and command-line flags.
//
// Every setting has an environment variable with the WASMCLOUD_ prefix:
//
//	WASMCLOUD_OCI_ALLOW_LATEST         allow ":latest" references
//	WASMCLOUD_OCI_ALLOWED_INSECURE     comma-separated hosts or host globs reachable over plain HTTP
//	WASMCLOUD_OCI_REGISTRY_USER        registry username
//	WASMCLOUD_OCI_REGISTRY_PASSWORD    registry password
//	WASMCLOUD_OCI_REGISTRY_TOKEN       registry bearer token
//	WASMCLOUD_OCI_ADDITIONAL_CA_PATHS  comma-separated extra CA files
//	WASMCLOUD_OCI_CACHE_DIR            cache root directory
package config
