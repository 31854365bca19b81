package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPolicyFor(t *testing.T) {
	assert.Equal(t, TrustGUID, PolicyFor(true, false))
	assert.Equal(t, TrustLink, PolicyFor(false, true))
	assert.Equal(t, TrustGUIDAndLink, PolicyFor(true, true))
	assert.Equal(t, TrustGUID, PolicyFor(false, false))
}

func TestIdentify(t *testing.T) {
	entry := &Entry{
		GUID:    "tag:example.org,2025:entry-1",
		Link:    "https://Example.org/posts/1#comments",
		Title:   "First post",
		Content: "<p>hello world</p>",
	}

	tests := []struct {
		name   string
		policy TrustPolicy
		want   string
	}{
		{"guid wins under trust-guid", TrustGUID, "tag:example.org,2025:entry-1"},
		{"link is normalized under trust-link", TrustLink, "https://example.org/posts/1"},
		{"composite under both", TrustGUIDAndLink, "tag:example.org,2025:entry-1\x00https://example.org/posts/1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Identify(entry, tt.policy))
		})
	}
}

func TestIdentify_GUIDAbsentFallsBackToLink(t *testing.T) {
	entry := &Entry{Link: "https://example.org/posts/2", Content: "body"}
	assert.Equal(t, "https://example.org/posts/2", Identify(entry, TrustGUID))
}

func TestIdentify_NoGUIDNoLink(t *testing.T) {
	a := &Entry{Title: "t", Content: "some   body\n\ttext"}
	b := &Entry{Title: "t", Content: "some body text"}

	// Whitespace-only differences must not change the identity, or every
	// reformatting upstream would look like a brand new entry.
	assert.Equal(t, Identify(a, TrustGUID), Identify(b, TrustGUID))
	assert.NotEmpty(t, Identify(a, TrustGUID))
}

func TestIdentify_EmptyContentFallsBackToTitle(t *testing.T) {
	a := &Entry{Title: "only a title"}
	b := &Entry{Title: "only a title"}
	c := &Entry{Title: "another title"}

	assert.Equal(t, Identify(a, TrustLink), Identify(b, TrustLink))
	assert.NotEqual(t, Identify(a, TrustLink), Identify(c, TrustLink))
}

func TestIdentify_Stability(t *testing.T) {
	entry := &Entry{GUID: "g-1", Link: "https://example.org/1", Content: "body"}
	for _, policy := range []TrustPolicy{TrustGUID, TrustLink, TrustGUIDAndLink} {
		first := Identify(entry, policy)
		for i := 0; i < 5; i++ {
			assert.Equal(t, first, Identify(entry, policy), policy.String())
		}
	}
}

func TestFingerprint(t *testing.T) {
	a := &Entry{Content: "hello   world"}
	b := &Entry{Content: "hello world"}
	c := &Entry{Content: "hello there"}

	assert.Equal(t, Fingerprint(a), Fingerprint(b))
	assert.NotEqual(t, Fingerprint(a), Fingerprint(c))
	assert.Empty(t, Fingerprint(&Entry{}))
}

func TestNormalizeLink(t *testing.T) {
	assert.Equal(t, "https://example.org/a", NormalizeLink("  HTTPS://Example.org/a#frag "))
	assert.Equal(t, "", NormalizeLink("   "))
}
