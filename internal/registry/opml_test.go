package registry

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedmail/internal/storage"
)

func TestOPML_RoundTrip(t *testing.T) {
	src, _ := newTestRegistry()
	_, err := src.Add("eff", "https://www.eff.org/rss/updates.xml", "")
	require.NoError(t, err)
	_, err = src.Add("lwn", "https://lwn.net/headlines/rss", "")
	require.NoError(t, err)
	require.NoError(t, src.Pause("lwn"))

	var buf bytes.Buffer
	require.NoError(t, src.ExportOPML(&buf))

	dst := New(storage.NewDatabase())
	res, err := dst.ImportOPML(&buf)
	require.NoError(t, err)
	assert.Equal(t, []string{"eff", "lwn"}, res.Added)
	assert.Empty(t, res.Skipped)

	feeds := dst.List()
	require.Len(t, feeds, 2)
	assert.Equal(t, "eff", feeds[0].Name)
	assert.Equal(t, "https://www.eff.org/rss/updates.xml", feeds[0].URL)
	assert.False(t, feeds[0].Paused)
	assert.Equal(t, "lwn", feeds[1].Name)
	assert.True(t, feeds[1].Paused)
}

func TestOPML_ImportSkipsDuplicates(t *testing.T) {
	r, _ := newTestRegistry()
	_, err := r.Add("eff", "https://www.eff.org/rss/updates.xml", "")
	require.NoError(t, err)

	doc := `<?xml version="1.0"?>
<opml version="1.0">
  <body>
    <outline type="rss" text="eff" xmlUrl="https://www.eff.org/rss/updates.xml"/>
    <outline type="rss" text="lwn" xmlUrl="https://lwn.net/headlines/rss"/>
  </body>
</opml>`
	res, err := r.ImportOPML(strings.NewReader(doc))
	require.NoError(t, err)

	// The duplicate is reported, not fatal; the rest of the import goes on.
	assert.Equal(t, []string{"lwn"}, res.Added)
	require.Len(t, res.Skipped, 1)
	assert.Contains(t, res.Skipped[0], "duplicate")
	assert.Len(t, r.List(), 2)
}

func TestOPML_ImportFlattensFolders(t *testing.T) {
	r, _ := newTestRegistry()

	doc := `<?xml version="1.0"?>
<opml version="1.0">
  <body>
    <outline text="News">
      <outline type="rss" text="lwn" xmlUrl="https://lwn.net/headlines/rss"/>
      <outline type="rss" xmlUrl="https://example.org/feed.xml"/>
    </outline>
  </body>
</opml>`
	res, err := r.ImportOPML(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, []string{"lwn", "feed-0"}, res.Added)
}

func TestOPML_ImportSlugsTitles(t *testing.T) {
	r, _ := newTestRegistry()

	doc := `<?xml version="1.0"?>
<opml version="1.0">
  <body>
    <outline type="rss" text="My Favorite Blog!" xmlUrl="https://blog.example/feed"/>
  </body>
</opml>`
	res, err := r.ImportOPML(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, res.Added, 1)
	assert.Equal(t, "My-Favorite-Blog", res.Added[0])
}

func TestOPML_ImportMalformed(t *testing.T) {
	r, _ := newTestRegistry()
	_, err := r.ImportOPML(strings.NewReader("this is not xml"))
	assert.Error(t, err)
}
