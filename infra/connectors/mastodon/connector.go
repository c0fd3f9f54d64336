// Package mastodon reads a Mastodon home timeline.
package mastodon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/CrestNiraj12/tapestry/app"
	"github.com/CrestNiraj12/tapestry/domain"
)

const (
	ID = "mastodon"

	lastIDKey    = "lastId"
	defaultLimit = 40
)

// Connector implements app.Connector against the Mastodon REST API. The
// bearer token comes from the feed's token file and is attached by the host.
type Connector struct{}

var _ app.Connector = Connector{}

func New() Connector { return Connector{} }

func (Connector) ID() string { return ID }

func (Connector) DisplayName() string { return "Mastodon" }

func (Connector) Verify(ctx context.Context, s app.Session) {
	data, err := s.SendRequest(ctx, app.Request{URL: endpoint(s.Site(), "/api/v1/accounts/verify_credentials", nil)})
	if err != nil {
		s.ProcessError(fmt.Errorf("fetching account: %w", err))
		return
	}

	var acct mastodonAccount
	if err := json.Unmarshal([]byte(data), &acct); err != nil {
		s.ProcessError(fmt.Errorf("parsing account: %w", err))
		return
	}

	m := newMapper(s.Site(), true)
	v := domain.NewVerification(m.handle(acct.Acct))
	v.Icon = acct.Avatar
	v.BaseURL = strings.TrimRight(s.Site(), "/")
	s.ProcessVerification(v)
}

func (Connector) Load(ctx context.Context, s app.Session) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(defaultLimit))

	sinceID, ok, err := s.GetItem(lastIDKey)
	if err != nil {
		s.ProcessError(fmt.Errorf("reading %s: %w", lastIDKey, err))
		return
	}
	if ok && sinceID != "" {
		params.Set("since_id", sinceID)
	}

	data, err := s.SendRequest(ctx, app.Request{URL: endpoint(s.Site(), "/api/v1/timelines/home", params)})
	if err != nil {
		s.ProcessError(fmt.Errorf("fetching timeline: %w", err))
		return
	}

	var statuses []mastodonStatus
	if err := json.Unmarshal([]byte(data), &statuses); err != nil {
		s.ProcessError(fmt.Errorf("parsing timeline: %w", err))
		return
	}

	if len(statuses) > 0 {
		newest := statuses[0].ID
		if err := s.SetItem(lastIDKey, &newest); err != nil {
			s.ProcessError(fmt.Errorf("saving %s: %w", lastIDKey, err))
			return
		}
	}

	m := newMapper(s.Site(), includeReplies(s.Variable("includeReplies")))
	s.ProcessResults(m.mapStatuses(statuses), true)
}

func includeReplies(v string) bool {
	if v == "" {
		return true
	}
	b, err := strconv.ParseBool(v)
	return err != nil || b
}

func endpoint(site, path string, params url.Values) string {
	u := strings.TrimRight(site, "/") + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}
