// Package connectortest provides an in-memory app.Session for connector
// tests. Parsing goes through the real parsers; requests are answered from a
// table.
package connectortest

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"sync"

	"github.com/CrestNiraj12/tapestry/app"
	"github.com/CrestNiraj12/tapestry/domain"
	"github.com/CrestNiraj12/tapestry/infra/htmlmeta"
	"github.com/CrestNiraj12/tapestry/infra/xmlparse"
)

// Session records everything a connector reports.
type Session struct {
	SiteURL string
	Vars    map[string]string

	// Responses maps request URLs, without query string, to bodies.
	Responses map[string]string
	Icons     map[string]string
	Values    map[string]string

	mu       sync.Mutex
	Requests []app.Request
	Items    []domain.Item
	Complete bool
	Err      error
	Verified *domain.Verification
	Reports  int

	done     chan struct{}
	doneOnce sync.Once
}

var _ app.Session = (*Session)(nil)

// New returns a session for site answering from responses.
func New(site string, responses map[string]string) *Session {
	return &Session{
		SiteURL:   site,
		Vars:      map[string]string{},
		Responses: responses,
		Icons:     map[string]string{},
		Values:    map[string]string{},
		done:      make(chan struct{}),
	}
}

func (s *Session) SendRequest(_ context.Context, req app.Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Requests = append(s.Requests, req)
	key := req.URL
	if i := strings.Index(key, "?"); i >= 0 {
		key = key[:i]
	}
	body, ok := s.Responses[key]
	if !ok {
		return "", fmt.Errorf("GET %s: %w", req.URL, domain.ErrNotFound)
	}
	return body, nil
}

func (s *Session) XMLParse(text string) (map[string]any, error) { return xmlparse.Parse(text) }

func (s *Session) PlistParse(text string) (any, error) { return xmlparse.ParsePlist(text) }

func (s *Session) ExtractProperties(text string) map[string]string {
	return htmlmeta.ExtractProperties(text)
}

func (s *Session) LookupIcon(_ context.Context, pageURL string) (string, error) {
	return s.Icons[pageURL], nil
}

func (s *Session) SetItem(key string, value *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if value == nil {
		delete(s.Values, key)
		return nil
	}
	s.Values[key] = *value
	return nil
}

func (s *Session) GetItem(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.Values[key]
	return v, ok, nil
}

func (s *Session) ClearItems() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Values = map[string]string{}
	return nil
}

func (s *Session) ProcessResults(items []domain.Item, isComplete bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Items = append(s.Items, items...)
	s.Complete = isComplete
	s.Reports++
	if isComplete {
		s.finish()
	}
}

func (s *Session) ProcessError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Err = err
	s.Reports++
	s.finish()
}

func (s *Session) ProcessVerification(v domain.Verification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Verified = &v
	s.Reports++
	s.finish()
}

func (s *Session) finish() {
	s.doneOnce.Do(func() { close(s.done) })
}

func (s *Session) Site() string { return s.SiteURL }

func (s *Session) Variable(name string) string { return s.Vars[name] }

func (s *Session) Variables() map[string]string { return maps.Clone(s.Vars) }

// Done is closed by the first terminal report.
func (s *Session) Done() <-chan struct{} { return s.done }
