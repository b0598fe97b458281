// Package oras implements [registry.Client] on top of the ORAS library.
//
// Client handles authentication, per-host transport security and layer
// verification. Plain HTTP is only ever enabled for the registry host of the
// reference being fetched, and the TLS trust store is the system roots plus
// any configured CA files.
package oras
