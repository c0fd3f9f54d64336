// Package icon implements the host's lookupIcon utility.
package icon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/CrestNiraj12/tapestry/app"
	"github.com/CrestNiraj12/tapestry/domain"
	"github.com/CrestNiraj12/tapestry/infra/htmlmeta"
)

const defaultCacheSize = 256

// Finder looks up page icons and remembers the answers, including sites
// that have none.
type Finder struct {
	req    app.Requester
	cache  *lru.Cache[string, string]
	logger *zap.Logger
}

// NewFinder creates a Finder that fetches pages through req.
func NewFinder(req app.Requester, cacheSize int, logger *zap.Logger) (*Finder, error) {
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	cache, err := lru.New[string, string](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating icon cache: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Finder{req: req, cache: cache, logger: logger.Named("icon")}, nil
}

var _ app.IconLookup = (*Finder)(nil)

// LookupIcon returns the best icon URL for pageURL, or "" when the page
// declares none and the site has no /favicon.ico.
func (f *Finder) LookupIcon(ctx context.Context, pageURL string) (string, error) {
	page, err := url.Parse(pageURL)
	if err != nil || page.Host == "" || (page.Scheme != "http" && page.Scheme != "https") {
		return "", fmt.Errorf("lookup icon: %q is not an absolute http(s) URL", pageURL)
	}
	if icon, ok := f.cache.Get(pageURL); ok {
		return icon, nil
	}

	icon, final, err := f.find(ctx, page)
	if err != nil {
		return "", err
	}
	if final {
		f.cache.Add(pageURL, icon)
	}
	return icon, nil
}

// find reports whether its answer is final. A miss is final only when the
// page and the favicon both answered; a miss caused by a failed request is
// retried on the next lookup.
func (f *Finder) find(ctx context.Context, page *url.URL) (string, bool, error) {
	final := true
	body, err := f.req.SendRequest(ctx, app.Request{URL: page.String()})
	switch {
	case err == nil:
		if icons := htmlmeta.IconCandidates(body, page.String()); len(icons) > 0 {
			return icons[0].URL, true, nil
		}
	case ctx.Err() != nil:
		return "", false, ctx.Err()
	default:
		final = errors.Is(err, domain.ErrNotFound)
		f.logger.Debug("page fetch failed, trying favicon.ico", zap.String("url", page.String()), zap.Error(err))
	}

	favicon := (&url.URL{Scheme: page.Scheme, Host: page.Host, Path: "/favicon.ico"}).String()
	headers, err := f.req.SendRequest(ctx, app.Request{URL: favicon, Method: http.MethodHead})
	if err != nil {
		if ctx.Err() != nil {
			return "", false, ctx.Err()
		}
		return "", final && errors.Is(err, domain.ErrNotFound), nil
	}
	var h map[string]string
	if json.Unmarshal([]byte(headers), &h) == nil && strings.HasPrefix(h["content-type"], "text/html") {
		// Some servers answer every path with an HTML page.
		return "", final, nil
	}
	return favicon, true, nil
}
