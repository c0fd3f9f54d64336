// Package rss reads RSS 0.9x/1.0/2.0 and Atom feeds.
package rss

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/CrestNiraj12/tapestry/app"
	"github.com/CrestNiraj12/tapestry/domain"
)

const ID = "rss"

var ErrNotAFeed = errors.New("document is neither RSS nor Atom")

// Connector implements app.Connector for syndication feeds. The feed's site
// is the feed document itself.
type Connector struct{}

var _ app.Connector = Connector{}

func New() Connector { return Connector{} }

func (Connector) ID() string { return ID }

func (Connector) DisplayName() string { return "RSS / Atom" }

func (Connector) Verify(ctx context.Context, s app.Session) {
	f, err := fetch(ctx, s)
	if err != nil {
		s.ProcessError(err)
		return
	}

	name := f.title
	if name == "" {
		name = s.Site()
	}
	v := domain.NewVerification(name)
	v.BaseURL = f.link
	if v.BaseURL == "" {
		v.BaseURL = s.Site()
	}
	v.Icon = f.icon
	if v.Icon == "" {
		icon, err := s.LookupIcon(ctx, v.BaseURL)
		if err == nil {
			v.Icon = icon
		}
	}
	s.ProcessVerification(v)
}

func (Connector) Load(ctx context.Context, s app.Session) {
	f, err := fetch(ctx, s)
	if err != nil {
		s.ProcessError(err)
		return
	}
	s.ProcessResults(f.items, true)
}

// feed is the part of a channel both operations need.
type feed struct {
	title string
	link  string
	icon  string
	items []domain.Item
}

func fetch(ctx context.Context, s app.Session) (feed, error) {
	body, err := s.SendRequest(ctx, app.Request{URL: s.Site()})
	if err != nil {
		return feed{}, fmt.Errorf("fetching feed: %w", err)
	}
	doc, err := s.XMLParse(body)
	if err != nil {
		return feed{}, fmt.Errorf("parsing feed: %w", err)
	}
	return parse(doc, time.Now())
}

// parse maps a feed document to items. Undated items take the feed's own
// date, or now when the feed has none either.
func parse(doc map[string]any, now time.Time) (feed, error) {
	if root, ok := doc["rss"]; ok {
		channel := child(root, "channel")
		return parseRSS(channel, list(child(channel, "item")), now), nil
	}
	if root, ok := doc["rdf:RDF"]; ok {
		return parseRSS(child(root, "channel"), list(child(root, "item")), now), nil
	}
	if root, ok := doc["feed"]; ok {
		return parseAtom(root, now), nil
	}
	return feed{}, ErrNotAFeed
}

func parseRSS(channel any, entries []any, now time.Time) feed {
	f := feed{
		title: first(channel, "title"),
		link:  rssLink(channel),
		icon:  first(child(channel, "image"), "url"),
	}
	if f.icon == "" {
		f.icon = attr(child(channel, "itunes:image"), "href")
	}
	fallback, ok := parseDate(first(channel, "lastBuildDate", "pubDate", "dc:date"))
	if !ok {
		fallback = now
	}
	for _, e := range entries {
		uri := rssLink(e)
		if uri == "" {
			uri = first(e, "guid")
		}
		date, ok := parseDate(first(e, "pubDate", "dc:date", "published", "updated"))
		if !ok {
			date = fallback
		}

		it := domain.NewItem(uri, date)
		it.Title = first(e, "title")
		it.Body = first(e, "content:encoded", "description", "summary")
		if name := first(e, "dc:creator", "author"); name != "" {
			author := domain.NewIdentity(name)
			it.Author = &author
		}
		it.Attachments = mediaAttachments(e)
		f.items = append(f.items, it)
	}
	return f
}

// rssLink prefers the plain <link> text over atom:link elements some RSS
// feeds mix in.
func rssLink(v any) string {
	for _, l := range list(child(v, "link")) {
		if s := strings.TrimSpace(text(l)); s != "" {
			return s
		}
		if href := attr(l, "href"); href != "" {
			return href
		}
	}
	return ""
}

func parseAtom(root any, now time.Time) feed {
	f := feed{
		title: first(root, "title"),
		link:  atomLink(root, "alternate"),
		icon:  first(root, "icon", "logo"),
	}
	fallback, ok := parseDate(first(root, "updated"))
	if !ok {
		fallback = now
	}
	for _, e := range list(child(root, "entry")) {
		uri := atomLink(e, "alternate")
		if uri == "" {
			uri = first(e, "id")
		}
		date, ok := parseDate(first(e, "published", "updated"))
		if !ok {
			date = fallback
		}

		it := domain.NewItem(uri, date)
		it.Title = first(e, "title")
		it.Body = first(e, "content", "summary")
		if author := child(e, "author"); author != nil {
			if name := first(author, "name"); name != "" {
				id := domain.NewIdentity(name)
				id.URI = first(author, "uri")
				it.Author = &id
			}
		}
		for _, l := range list(child(e, "link")) {
			if attr(l, "rel") == "enclosure" && attr(l, "href") != "" {
				m := domain.NewMediaAttachment(attr(l, "href"))
				m.MimeType = attr(l, "type")
				it.Attachments = append(it.Attachments, m)
			}
		}
		it.Attachments = append(it.Attachments, mediaAttachments(e)...)
		f.items = append(f.items, it)
	}
	return f
}

func atomLink(v any, rel string) string {
	var fallback string
	for _, l := range list(child(v, "link")) {
		href := attr(l, "href")
		if href == "" {
			continue
		}
		r := attr(l, "rel")
		if r == rel || (r == "" && rel == "alternate") {
			return href
		}
		if fallback == "" && r != "self" && r != "enclosure" {
			fallback = href
		}
	}
	return fallback
}

// mediaAttachments collects enclosures and Media RSS content, once per URL.
func mediaAttachments(e any) []domain.Attachment {
	var out []domain.Attachment
	seen := make(map[string]bool)
	add := func(m domain.MediaAttachment) {
		if m.URL == "" || seen[m.URL] {
			return
		}
		seen[m.URL] = true
		out = append(out, m)
	}

	for _, enc := range list(child(e, "enclosure")) {
		m := domain.NewMediaAttachment(attr(enc, "url"))
		m.MimeType = attr(enc, "type")
		add(m)
	}

	contents := list(child(e, "media:content"))
	for _, g := range list(child(e, "media:group")) {
		contents = append(contents, list(child(g, "media:content"))...)
	}
	thumb := attr(child(e, "media:thumbnail"), "url")
	for _, c := range contents {
		m := domain.NewMediaAttachment(attr(c, "url"))
		m.MimeType = attr(c, "type")
		if m.MimeType == "" {
			m.MimeType = attr(c, "medium")
		}
		m.Thumbnail = attr(child(c, "media:thumbnail"), "url")
		if m.Thumbnail == "" {
			m.Thumbnail = thumb
		}
		m.Text = first(c, "media:description", "media:title")
		w, werr := strconv.ParseFloat(attr(c, "width"), 64)
		h, herr := strconv.ParseFloat(attr(c, "height"), 64)
		if werr == nil && herr == nil && w > 0 && h > 0 {
			m.AspectSize = &domain.AspectSize{Width: w, Height: h}
		}
		add(m)
	}
	if len(contents) == 0 && thumb != "" {
		add(domain.NewMediaAttachment(thumb))
	}
	return out
}
