package registry

import (
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// OPML interchange. Export is a pure projection of (name, url, paused);
// import merges outlines into the registry with Add semantics per entry.
// The paused flag rides on a non-standard outline attribute so that an
// export/import cycle round-trips it; other tools simply ignore it.

type opmlDocument struct {
	XMLName xml.Name `xml:"opml"`
	Version string   `xml:"version,attr"`
	Head    opmlHead `xml:"head"`
	Body    opmlBody `xml:"body"`
}

type opmlHead struct {
	Title string `xml:"title"`
}

type opmlBody struct {
	Outlines []opmlOutline `xml:"outline"`
}

type opmlOutline struct {
	Type     string        `xml:"type,attr,omitempty"`
	Text     string        `xml:"text,attr"`
	XMLURL   string        `xml:"xmlUrl,attr,omitempty"`
	Paused   string        `xml:"paused,attr,omitempty"`
	Children []opmlOutline `xml:"outline"`
}

var nameSlugRegexp = regexp.MustCompile(`[^\w.-]+`)

// ExportOPML writes the registered feeds as an OPML outline document.
func (r *Registry) ExportOPML(w io.Writer) error {
	doc := opmlDocument{
		Version: "1.0",
		Head:    opmlHead{Title: "feedmail OPML export"},
	}
	for _, f := range r.db.Feeds {
		if f.URL == "" {
			continue
		}
		outline := opmlOutline{
			Type:   "rss",
			Text:   f.Name,
			XMLURL: f.URL,
		}
		if f.Paused {
			outline.Paused = "true"
		}
		doc.Body.Outlines = append(doc.Body.Outlines, outline)
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding OPML: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// ImportResult reports what an OPML import did. Duplicate names are
// recorded and skipped; the import continues with the remaining outlines.
type ImportResult struct {
	Added   []string
	Skipped []string
}

// ImportOPML merges outlines from an OPML document into the registry.
// Nested outline folders are flattened. Outlines without an xmlUrl
// attribute are treated as structure and descended into, not imported.
func (r *Registry) ImportOPML(reader io.Reader) (*ImportResult, error) {
	var doc opmlDocument
	if err := xml.NewDecoder(reader).Decode(&doc); err != nil {
		return nil, fmt.Errorf("reading OPML: %w", err)
	}

	res := &ImportResult{}
	r.importOutlines(doc.Body.Outlines, res)
	return res, nil
}

func (r *Registry) importOutlines(outlines []opmlOutline, res *ImportResult) {
	for _, o := range outlines {
		if o.XMLURL == "" {
			r.importOutlines(o.Children, res)
			continue
		}
		name := outlineName(o)
		cfg, err := r.Add(name, o.XMLURL, "")
		if err != nil {
			res.Skipped = append(res.Skipped, fmt.Sprintf("%s: %v", o.XMLURL, err))
			continue
		}
		if strings.EqualFold(o.Paused, "true") {
			cfg.Paused = true
		}
		res.Added = append(res.Added, cfg.Name)
	}
}

// outlineName slugs the outline title into a feed name, or returns "" to
// let Add pick the next free auto-generated name.
func outlineName(o opmlOutline) string {
	text := strings.TrimSpace(o.Text)
	if text == "" || text == o.XMLURL {
		return ""
	}
	return strings.Trim(nameSlugRegexp.ReplaceAllString(text, "-"), "-")
}
