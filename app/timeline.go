package app

import (
	"context"
	"time"

	"github.com/CrestNiraj12/tapestry/domain"
)

// FeedStatus summarizes one feed's last load.
type FeedStatus struct {
	Feed     string
	Items    int
	Complete bool
	Err      error
	Elapsed  time.Duration
}

// TimelineService is what the timeline viewer works against.
type TimelineService interface {
	// Feeds returns the configured feeds in file order.
	Feeds() []domain.Feed

	// Entries returns cached entries newest first. An empty feed means all
	// feeds.
	Entries(ctx context.Context, feed string, limit int) ([]domain.Entry, error)

	// Refresh loads every feed, stores the results and reports per-feed
	// status.
	Refresh(ctx context.Context) ([]FeedStatus, error)
}
