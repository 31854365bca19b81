// Package feed defines the entry model, the identity resolver that
// recognizes "the same entry" across fetches, the diff engine that splits a
// fetch into new/changed/unchanged entries, and the gofeed-backed fetcher.
package feed

import (
	"time"

	"github.com/mmcdole/gofeed"
)

// Entry is one item from a fetched feed, reduced to the fields the rest of
// the tool cares about.
type Entry struct {
	Title       string
	Link        string
	GUID        string
	Content     string
	AuthorName  string
	AuthorEmail string
	Tags        []string
	Enclosures  []string
	Published   time.Time
	Updated     time.Time
}

func fromItem(item *gofeed.Item) *Entry {
	e := &Entry{
		Title:   item.Title,
		Link:    item.Link,
		GUID:    item.GUID,
		Content: itemContent(item),
		Tags:    item.Categories,
	}
	if item.PublishedParsed != nil {
		e.Published = *item.PublishedParsed
	}
	if item.UpdatedParsed != nil {
		e.Updated = *item.UpdatedParsed
	}
	if len(item.Authors) > 0 {
		e.AuthorName = item.Authors[0].Name
		e.AuthorEmail = item.Authors[0].Email
	} else if item.Author != nil {
		e.AuthorName = item.Author.Name
		e.AuthorEmail = item.Author.Email
	}
	for _, enc := range item.Enclosures {
		if enc.URL != "" {
			e.Enclosures = append(e.Enclosures, enc.URL)
		}
	}
	return e
}

func itemContent(item *gofeed.Item) string {
	if item.Content != "" {
		return item.Content
	}
	return item.Description
}
