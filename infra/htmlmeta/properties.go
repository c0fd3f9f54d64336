// Package htmlmeta reads page metadata (Open Graph, Twitter cards, icons)
// out of HTML documents.
package htmlmeta

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ExtractProperties returns the metadata of an HTML page. Keys are the
// lower-cased meta property or name ("og:title", "twitter:image",
// "description"), plus "title" from <title> and "canonical" from
// <link rel="canonical">. The first occurrence of a key wins.
func ExtractProperties(text string) map[string]string {
	props := make(map[string]string)
	set := func(k, v string) {
		k = strings.ToLower(strings.TrimSpace(k))
		v = strings.TrimSpace(v)
		if k == "" || v == "" {
			return
		}
		if _, ok := props[k]; !ok {
			props[k] = v
		}
	}

	z := html.NewTokenizer(strings.NewReader(text))
	inTitle := false
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return props
		case html.TextToken:
			if inTitle {
				set("title", string(z.Text()))
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if atom.Lookup(name) == atom.Title {
				inTitle = false
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			switch atom.Lookup(name) {
			case atom.Title:
				inTitle = tt == html.StartTagToken
			case atom.Meta:
				if !hasAttr {
					continue
				}
				attrs := tagAttrs(z)
				key := attrs["property"]
				if key == "" {
					key = attrs["name"]
				}
				if key == "" {
					key = attrs["itemprop"]
				}
				set(key, attrs["content"])
			case atom.Link:
				if !hasAttr {
					continue
				}
				attrs := tagAttrs(z)
				if hasRel(attrs["rel"], "canonical") {
					set("canonical", attrs["href"])
				}
			}
		}
	}
}

func tagAttrs(z *html.Tokenizer) map[string]string {
	attrs := make(map[string]string)
	for {
		k, v, more := z.TagAttr()
		key := strings.ToLower(string(k))
		if _, ok := attrs[key]; !ok {
			attrs[key] = string(v)
		}
		if !more {
			return attrs
		}
	}
}

func hasRel(rel, want string) bool {
	for _, r := range strings.Fields(strings.ToLower(rel)) {
		if r == want {
			return true
		}
	}
	return false
}
