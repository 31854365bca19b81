package hooks

import (
	"net/url"
	"strings"

	"feedmail/internal/feed"
)

// StripTracking removes campaign-tracking query parameters (utm_* and
// friends) from entry links, so two syndications of the same post don't
// look like different entries and mailed links stay clean.
type StripTracking struct{}

func (StripTracking) Name() string { return "strip-tracking" }

func (StripTracking) Apply(entry *feed.Entry) (*feed.Entry, error) {
	cleaned := *entry
	cleaned.Link = stripTrackingParams(entry.Link)
	return &cleaned, nil
}

func stripTrackingParams(link string) string {
	u, err := url.Parse(link)
	if err != nil || u.RawQuery == "" {
		return link
	}
	query := u.Query()
	for param := range query {
		if strings.HasPrefix(param, "utm_") || param == "fbclid" || param == "gclid" {
			query.Del(param)
		}
	}
	u.RawQuery = query.Encode()
	return u.String()
}
