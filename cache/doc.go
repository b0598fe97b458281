// Package cache stores fetched artifacts on the local filesystem.
//
// Each normalized reference maps to a content file and a sibling digest file
// holding the manifest digest the content was pulled at:
//
//	<root>/<key>         content bytes
//	<root>/<key>.digest  manifest digest
//
// Freshness is decided by comparing the stored digest with the digest the
// registry reports now; cached bytes are never re-hashed. Entries are
// overwritten on refresh and never evicted.
package cache
