package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/CrestNiraj12/tapestry/domain"
)

// ErrNoFeeds is returned when the feeds file does not exist or lists nothing.
var ErrNoFeeds = errors.New("no feeds configured")

type feedsFile struct {
	Feeds []feedEntry `yaml:"feeds"`
}

// feedEntry accepts any scalar as a variable value so that
// `includeReplies: false` needs no quoting.
type feedEntry struct {
	Name      string         `yaml:"name"`
	Connector string         `yaml:"connector"`
	Site      string         `yaml:"site"`
	TokenFile string         `yaml:"token_file"`
	Variables map[string]any `yaml:"variables"`
}

// LoadFeeds reads and validates the feeds file. known reports whether a
// connector id exists; nil skips that check.
func LoadFeeds(path string, known func(id string) bool) ([]domain.Feed, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, ErrNoFeeds)
	}
	if err != nil {
		return nil, err
	}
	return ParseFeeds(data, known)
}

// ParseFeeds decodes a feeds document.
func ParseFeeds(data []byte, known func(id string) bool) ([]domain.Feed, error) {
	var file feedsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse feeds: %w", err)
	}
	if len(file.Feeds) == 0 {
		return nil, ErrNoFeeds
	}

	feeds := make([]domain.Feed, 0, len(file.Feeds))
	seen := make(map[string]bool, len(file.Feeds))
	for _, e := range file.Feeds {
		f := domain.Feed{
			Name:      strings.TrimSpace(e.Name),
			Connector: strings.TrimSpace(e.Connector),
			Site:      strings.TrimSpace(e.Site),
			TokenFile: expandHome(strings.TrimSpace(e.TokenFile)),
		}
		if len(e.Variables) > 0 {
			f.Variables = make(map[string]string, len(e.Variables))
			for k, v := range e.Variables {
				if v == nil {
					f.Variables[k] = ""
					continue
				}
				f.Variables[k] = fmt.Sprint(v)
			}
		}
		if err := f.Validate(); err != nil {
			return nil, err
		}
		if seen[f.Name] {
			return nil, fmt.Errorf("feed %q: duplicate name", f.Name)
		}
		seen[f.Name] = true
		if known != nil && !known(f.Connector) {
			return nil, fmt.Errorf("feed %q: connector %q: %w", f.Name, f.Connector, domain.ErrNotFound)
		}
		feeds = append(feeds, f)
	}
	return feeds, nil
}

// FindFeed returns the feed called name.
func FindFeed(feeds []domain.Feed, name string) (domain.Feed, error) {
	for _, f := range feeds {
		if f.Name == name {
			return f, nil
		}
	}
	return domain.Feed{}, fmt.Errorf("feed %q: %w", name, domain.ErrNotFound)
}

// WriteFeeds replaces the feeds file atomically.
func WriteFeeds(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
