package app

import (
	"context"

	"github.com/CrestNiraj12/tapestry/domain"
)

// Reporter receives what a connector produced.
type Reporter interface {
	// ProcessResults hands items to the host. isComplete=false means more
	// batches follow.
	ProcessResults(items []domain.Item, isComplete bool)

	// ProcessError ends the current operation with err.
	ProcessError(err error)

	// ProcessVerification reports the site properties found by Verify.
	ProcessVerification(v domain.Verification)
}

// Session is the connector's view of one verify or load run.
type Session interface {
	Host
	Reporter

	// Site is the configured URL of the feed.
	Site() string

	// Variable returns a per-feed setting, or "" when unset.
	Variable(name string) string

	// Variables returns a copy of every per-feed setting.
	Variables() map[string]string

	// Done is closed once a terminal report was received or the run was
	// abandoned.
	Done() <-chan struct{}
}

// Connector feeds timeline content to the host. Neither method returns a
// result: the connector reports through the session, possibly from another
// goroutine, and the host waits for that report.
type Connector interface {
	ID() string
	Verify(ctx context.Context, s Session)
	Load(ctx context.Context, s Session)
}

// Describer is implemented by connectors that carry display metadata.
type Describer interface {
	DisplayName() string
}
