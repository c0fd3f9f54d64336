package htmlmeta

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Icon is an icon declared by a page.
type Icon struct {
	URL  string
	Rel  string
	Size int // largest declared edge, 0 when unknown
}

// IconCandidates returns the icons a page declares, best first: touch icons
// before regular icons, larger before smaller. Relative hrefs are resolved
// against pageURL or the page's <base href>.
func IconCandidates(text, pageURL string) []Icon {
	base, _ := url.Parse(pageURL)

	var icons []Icon
	z := html.NewTokenizer(strings.NewReader(text))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}
		name, hasAttr := z.TagName()
		if !hasAttr {
			continue
		}
		switch atom.Lookup(name) {
		case atom.Base:
			if href := tagAttrs(z)["href"]; href != "" && base != nil {
				if u, err := base.Parse(href); err == nil {
					base = u
				}
			}
		case atom.Link:
			attrs := tagAttrs(z)
			rel := strings.ToLower(strings.Join(strings.Fields(attrs["rel"]), " "))
			if !isIconRel(rel) || attrs["href"] == "" {
				continue
			}
			icons = append(icons, Icon{URL: resolve(base, attrs["href"]), Rel: rel, Size: largestSize(attrs["sizes"])})
		}
	}

	sort.SliceStable(icons, func(i, j int) bool {
		ri, rj := relRank(icons[i].Rel), relRank(icons[j].Rel)
		if ri != rj {
			return ri < rj
		}
		return icons[i].Size > icons[j].Size
	})
	return icons
}

func isIconRel(rel string) bool {
	return relRank(rel) < 3
}

func relRank(rel string) int {
	switch {
	case strings.HasPrefix(rel, "apple-touch-icon"):
		return 0
	case rel == "icon" || rel == "shortcut icon":
		return 1
	case strings.Contains(rel, "icon") && rel != "mask-icon":
		return 2
	}
	return 3
}

func largestSize(sizes string) int {
	best := 0
	for _, s := range strings.Fields(strings.ToLower(sizes)) {
		w, _, ok := strings.Cut(s, "x")
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(w); err == nil && n > best {
			best = n
		}
	}
	return best
}

func resolve(base *url.URL, href string) string {
	if base == nil {
		return href
	}
	u, err := base.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	return u.String()
}
