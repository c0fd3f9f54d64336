package rss

import (
	"strings"
	"time"

	"github.com/CrestNiraj12/tapestry/infra/xmlparse"
)

// Helpers over the generic values XMLParse produces.

func child(v any, name string) any {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	return m[name]
}

func list(v any) []any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		return t
	default:
		return []any{t}
	}
}

func text(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]any:
		s, _ := t[xmlparse.TextKey].(string)
		return s
	case []any:
		if len(t) > 0 {
			return text(t[0])
		}
	}
	return ""
}

func attr(v any, name string) string {
	attrs, ok := child(v, xmlparse.AttrsKey).(map[string]any)
	if !ok {
		return ""
	}
	s, _ := attrs[name].(string)
	return s
}

// first returns the first non-empty text among names.
func first(v any, names ...string) string {
	for _, n := range names {
		if s := strings.TrimSpace(text(child(v, n))); s != "" {
			return s
		}
	}
	return ""
}

var dateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
	time.RFC3339Nano,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2 Jan 2006 15:04:05 -0700",
	"Mon, 02 Jan 06 15:04:05 -0700",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// rfc822Zones are the zone names RFC 822 allows. time.Parse only resolves
// abbreviations of the local zone and reads the rest as +0000.
var rfc822Zones = map[string]string{
	"UT":  "+0000",
	"GMT": "+0000",
	"Z":   "+0000",
	"EST": "-0500",
	"EDT": "-0400",
	"CST": "-0600",
	"CDT": "-0500",
	"MST": "-0700",
	"MDT": "-0600",
	"PST": "-0800",
	"PDT": "-0700",
}

// numericZone rewrites a trailing RFC 822 zone name as an offset.
func numericZone(s string) string {
	i := strings.LastIndexByte(s, ' ')
	if i < 0 {
		return s
	}
	if off, ok := rfc822Zones[strings.ToUpper(s[i+1:])]; ok {
		return s[:i+1] + off
	}
	return s
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	s = numericZone(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
