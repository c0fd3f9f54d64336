package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized indicates missing or invalid credentials.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound indicates a feed, connector or stored value does not exist.
	ErrNotFound = errors.New("not found")

	// ErrTimeout indicates a connector never sent a terminal report.
	ErrTimeout = errors.New("connector did not report before the deadline")

	// ErrNoResults indicates a load finished without producing any item.
	ErrNoResults = errors.New("no results")

	ErrMissingURI  = errors.New("uri is required")
	ErrMissingDate = errors.New("date is required")
	ErrMissingName = errors.New("name is required")
	ErrMissingText = errors.New("text is required")
	ErrMissingURL  = errors.New("url is required")
)

// ConnectorError is what a connector surfaced through ProcessError, tagged
// with the feed and the operation that was running.
type ConnectorError struct {
	Feed string
	Op   string // "verify" or "load"
	Err  error
}

func (e *ConnectorError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Feed, e.Op, e.Err)
}

func (e *ConnectorError) Unwrap() error { return e.Err }
