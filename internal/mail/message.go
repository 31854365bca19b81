// Package mail composes and dispatches entry notifications. It is a thin
// collaborator: the orchestrator hands it entries, it hands them to an SMTP
// server or a sendmail binary.
package mail

import (
	"fmt"
	"html"
	"net/mail"
	"sort"
	"strings"
	"time"

	"feedmail/internal/config"
	"feedmail/internal/feed"
)

// Message is one composed notification ready for dispatch.
type Message struct {
	From    string
	To      string
	Subject string
	Date    time.Time
	Headers map[string]string
	Body    string
	HTML    bool
}

// ComposeOptions carries the per-feed settings that shape a message.
type ComposeOptions struct {
	FeedName          string
	FeedURL           string
	Identity          string
	Resolved          config.Resolved
	ForceFrom         bool
	UsePublisherEmail bool
	PublisherName     string
	PublisherEmail    string
	DateHeader        bool
}

// Compose builds the notification for one entry.
func Compose(entry *feed.Entry, opts ComposeOptions) *Message {
	msg := &Message{
		From:    senderFor(entry, opts),
		To:      opts.Resolved.Target,
		Subject: subjectFor(entry),
		Date:    dateFor(entry, opts.DateHeader),
		HTML:    opts.Resolved.HTML,
		Headers: map[string]string{
			"X-RSS-Feed": opts.FeedURL,
			"X-RSS-ID":   opts.Identity,
		},
	}
	if entry.Link != "" {
		msg.Headers["X-RSS-URL"] = entry.Link
	}
	if len(entry.Tags) > 0 {
		msg.Headers["X-RSS-TAGS"] = strings.Join(entry.Tags, ",")
	}

	if msg.HTML {
		msg.Body = htmlBody(entry)
	} else {
		msg.Body = plainBody(entry)
	}
	return msg
}

// senderFor picks the From address: the entry author when present and
// well-formed, then the feed's publisher when use_publisher_email is on,
// otherwise the configured address. force_from always uses the configured
// address.
func senderFor(entry *feed.Entry, opts ComposeOptions) string {
	if opts.ForceFrom {
		return opts.Resolved.From
	}
	if validAddress(entry.AuthorEmail) {
		return (&mail.Address{Name: entry.AuthorName, Address: entry.AuthorEmail}).String()
	}
	if opts.UsePublisherEmail && validAddress(opts.PublisherEmail) {
		return (&mail.Address{Name: opts.PublisherName, Address: opts.PublisherEmail}).String()
	}
	return opts.Resolved.From
}

func validAddress(addr string) bool {
	parts := strings.Split(addr, "@")
	return len(parts) == 2 && parts[0] != "" && parts[1] != ""
}

func subjectFor(entry *feed.Entry) string {
	subject := strings.Join(strings.Fields(entry.Title), " ")
	if subject == "" {
		subject = "(no title)"
	}
	return subject
}

// dateFor uses the entry's own timestamp when the date-header option is on,
// so mail clients sort entries by publication time.
func dateFor(entry *feed.Entry, dateHeader bool) time.Time {
	if dateHeader {
		if !entry.Published.IsZero() {
			return entry.Published
		}
		if !entry.Updated.IsZero() {
			return entry.Updated
		}
	}
	return time.Now()
}

func plainBody(entry *feed.Entry) string {
	var b strings.Builder
	b.WriteString(entry.Content)
	b.WriteString("\n\nURL: ")
	b.WriteString(entry.Link)
	for _, enc := range entry.Enclosures {
		b.WriteString("\nEnclosure: ")
		b.WriteString(enc)
	}
	b.WriteString("\n")
	return b.String()
}

func htmlBody(entry *feed.Entry) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<body>\n")
	fmt.Fprintf(&b, "<h1><a href=%q>%s</a></h1>\n",
		entry.Link, html.EscapeString(subjectFor(entry)))
	b.WriteString(entry.Content)
	fmt.Fprintf(&b, "\n<div class=\"footer\"><p>URL: <a href=%q>%s</a></p>",
		entry.Link, html.EscapeString(entry.Link))
	for _, enc := range entry.Enclosures {
		fmt.Fprintf(&b, "<p>Enclosure: <a href=%q>%s</a></p>", enc, html.EscapeString(enc))
	}
	b.WriteString("</div>\n</body>\n</html>\n")
	return b.String()
}

// Render serializes the message for transport.
func (m *Message) Render() []byte {
	var b strings.Builder
	writeHeader := func(key, value string) {
		b.WriteString(key)
		b.WriteString(": ")
		b.WriteString(value)
		b.WriteString("\r\n")
	}

	writeHeader("From", m.From)
	writeHeader("To", m.To)
	writeHeader("Subject", m.Subject)
	writeHeader("Date", m.Date.Format(time.RFC1123Z))
	writeHeader("MIME-Version", "1.0")
	if m.HTML {
		writeHeader("Content-Type", "text/html; charset=\"UTF-8\"")
	} else {
		writeHeader("Content-Type", "text/plain; charset=\"UTF-8\"")
	}

	keys := make([]string, 0, len(m.Headers))
	for key := range m.Headers {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		writeHeader(key, m.Headers[key])
	}

	b.WriteString("\r\n")
	b.WriteString(m.Body)
	return []byte(b.String())
}

// envelopeFrom extracts the bare address for the SMTP envelope.
func (m *Message) envelopeFrom() string {
	if addr, err := mail.ParseAddress(m.From); err == nil {
		return addr.Address
	}
	return m.From
}
