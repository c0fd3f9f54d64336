package domain

import (
	"fmt"
	"net/url"
	"strings"
)

// Feed is one configured source: a connector pointed at a site, plus the
// per-feed variables the connector reads.
type Feed struct {
	Name      string            `json:"name" yaml:"name"`
	Connector string            `json:"connector" yaml:"connector"`
	Site      string            `json:"site" yaml:"site"`
	TokenFile string            `json:"token_file,omitempty" yaml:"token_file"`
	Variables map[string]string `json:"variables,omitempty" yaml:"variables"`
}

// Validate checks the fields every connector depends on.
func (f Feed) Validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return fmt.Errorf("feed: %w", ErrMissingName)
	}
	if f.Connector == "" {
		return fmt.Errorf("feed %q: connector is required", f.Name)
	}
	parsed, err := url.Parse(f.Site)
	if err != nil || parsed.Host == "" {
		return fmt.Errorf("feed %q: site must be an absolute URL", f.Name)
	}
	switch parsed.Scheme {
	case "http", "https":
	default:
		return fmt.Errorf("feed %q: site must use http or https", f.Name)
	}
	return nil
}

// Variable returns a feed variable, or def when it is unset.
func (f Feed) Variable(name, def string) string {
	if v, ok := f.Variables[name]; ok {
		return v
	}
	return def
}
