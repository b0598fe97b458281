// Package registry defines the domain types for retrieving WebAssembly
// components and capability providers from OCI registries.
//
// It owns reference normalization and parsing, the pulled artifact model,
// and the [Client] interface implemented by the oras subpackage. Higher
// layers depend only on this package so the transport can be swapped for a
// fake in tests.
package registry
