package cache

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrunedName(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "registry_example_com_acme_widget_v1", PrunedName("registry.example.com/acme/widget:v1"))
}

func TestPrunedNameCollision(t *testing.T) {
	t.Parallel()

	// The substitution alone is lossy; these two references collide.
	assert.Equal(t, PrunedName("ns/name:tag"), PrunedName("ns.name_tag"))

	// Keys carry a hash of the full reference and stay distinct.
	assert.NotEqual(t, Key("ns/name:tag"), Key("ns.name_tag"))
}

func TestKeyDeterministic(t *testing.T) {
	t.Parallel()

	ref := "registry.example.com/acme/widget:v1"
	assert.Equal(t, Key(ref), Key(ref))
	assert.True(t, strings.HasPrefix(Key(ref), PrunedName(ref)+"-"))
	assert.Len(t, Key(ref), len(PrunedName(ref))+1+keyHashLen)
}

func TestKeyLongReference(t *testing.T) {
	t.Parallel()

	long := "registry.example.com/" + strings.Repeat("a", 400) + ":v1"
	key := Key(long)
	assert.LessOrEqual(t, len(key+DigestSuffix), 255)
	assert.NotEqual(t, key, Key(long+"2"))
}
