package request

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/CrestNiraj12/tapestry/domain"
)

// ErrBodyTooLarge is returned instead of a truncated response body.
var ErrBodyTooLarge = errors.New("response body too large")

// StatusError is returned for responses outside the 2xx range.
type StatusError struct {
	Method string
	URL    string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200] + "…"
	}
	return fmt.Sprintf("%s %s returned %d: %s", e.Method, e.URL, e.Code, body)
}

// Is maps auth and lookup failures onto the domain sentinels.
func (e *StatusError) Is(target error) bool {
	switch target {
	case domain.ErrUnauthorized:
		return e.Code == http.StatusUnauthorized || e.Code == http.StatusForbidden
	case domain.ErrNotFound:
		return e.Code == http.StatusNotFound || e.Code == http.StatusGone
	}
	return false
}

// Temporary reports whether retrying the request may succeed.
func (e *StatusError) Temporary() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}
