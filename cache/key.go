package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// DigestSuffix is appended to a content path to form its digest path.
const DigestSuffix = ".digest"

const (
	// keyHashLen is the number of hex characters of the reference hash kept in a key.
	keyHashLen = 16

	// maxPrefixLen keeps keys, plus the digest and temp suffixes, under the
	// common 255 byte file name limit.
	maxPrefixLen = 200
)

var pruner = strings.NewReplacer(":", "_", "/", "_", ".", "_")

// PrunedName replaces ':', '/' and '.' in ref with '_'.
//
// The substitution is lossy: "ns/name:tag" and "ns.name_tag" both become
// "ns_name_tag". Key adds a hash of the full reference to tell them apart.
func PrunedName(ref string) string {
	return pruner.Replace(ref)
}

// Key returns the cache file name for a normalized reference.
//
// The readable pruned prefix is followed by a truncated SHA-256 of the
// untouched reference, so distinct references never share a key.
func Key(ref string) string {
	sum := sha256.Sum256([]byte(ref))
	prefix := PrunedName(ref)
	if len(prefix) > maxPrefixLen {
		prefix = prefix[:maxPrefixLen]
	}
	return prefix + "-" + hex.EncodeToString(sum[:])[:keyHashLen]
}
