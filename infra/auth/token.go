package auth

import (
	"fmt"
	"os"
	"strings"
)

// TokenProvider supplies the bearer token the host attaches to requests
// sent to a feed's site.
type TokenProvider interface {
	AccessToken() (string, error)
}

// FileTokenProvider reads a bearer token from a file on disk.
type FileTokenProvider struct {
	path string
}

// NewFileTokenProvider creates a TokenProvider that reads from the given file path.
func NewFileTokenProvider(path string) *FileTokenProvider {
	return &FileTokenProvider{path: path}
}

// AccessToken reads and returns the token, trimming whitespace.
func (f *FileTokenProvider) AccessToken() (string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return "", fmt.Errorf("reading token from %s: %w", f.path, err)
	}

	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("token file %s is empty", f.path)
	}

	return token, nil
}

// StaticTokenProvider returns a fixed token.
type StaticTokenProvider string

func (s StaticTokenProvider) AccessToken() (string, error) {
	if s == "" {
		return "", fmt.Errorf("static token is empty")
	}
	return string(s), nil
}

// ForFeed returns the provider configured for a feed, or nil when the feed
// does not authenticate.
func ForFeed(tokenFile string) TokenProvider {
	if strings.TrimSpace(tokenFile) == "" {
		return nil
	}
	return NewFileTokenProvider(tokenFile)
}
