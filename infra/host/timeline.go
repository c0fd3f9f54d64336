package host

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/CrestNiraj12/tapestry/app"
	"github.com/CrestNiraj12/tapestry/domain"
	"github.com/CrestNiraj12/tapestry/infra/cache"
)

// Timeline wires the runner to the item cache for the viewer.
type Timeline struct {
	runner    *Runner
	cache     *cache.Cache
	feeds     []domain.Feed
	retention time.Duration
	logger    *zap.Logger
}

var _ app.TimelineService = (*Timeline)(nil)

// NewTimeline creates a timeline over feeds. Items older than retention are
// pruned after every refresh; zero keeps everything.
func NewTimeline(runner *Runner, c *cache.Cache, feeds []domain.Feed, retention time.Duration, logger *zap.Logger) *Timeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Timeline{
		runner:    runner,
		cache:     c,
		feeds:     feeds,
		retention: retention,
		logger:    logger.Named("timeline"),
	}
}

func (t *Timeline) Feeds() []domain.Feed {
	return append([]domain.Feed(nil), t.feeds...)
}

func (t *Timeline) Entries(ctx context.Context, feed string, limit int) ([]domain.Entry, error) {
	return t.cache.List(ctx, cache.Query{Feed: feed, Limit: limit})
}

func (t *Timeline) Refresh(ctx context.Context) ([]app.FeedStatus, error) {
	results, err := t.runner.LoadAll(ctx, t.feeds)
	statuses := make([]app.FeedStatus, 0, len(results))
	for _, res := range results {
		st := app.FeedStatus{
			Feed:     res.Feed.Name,
			Items:    len(res.Items),
			Complete: res.Complete,
			Err:      res.Err,
			Elapsed:  res.Elapsed,
		}
		if len(res.Items) > 0 {
			if _, saveErr := t.cache.Save(ctx, res.Feed.Name, res.Items); saveErr != nil {
				t.logger.Error("cache save failed", zap.String("feed", res.Feed.Name), zap.Error(saveErr))
				if st.Err == nil {
					st.Err = saveErr
				}
			}
		}
		if res.Err != nil {
			t.logger.Warn("feed load failed", zap.String("feed", res.Feed.Name), zap.String("run", res.RunID), zap.Error(res.Err))
		}
		statuses = append(statuses, st)
	}
	if t.retention > 0 {
		if n, pruneErr := t.cache.Prune(ctx, time.Now().Add(-t.retention)); pruneErr != nil {
			t.logger.Error("cache prune failed", zap.Error(pruneErr))
		} else if n > 0 {
			t.logger.Debug("cache pruned", zap.Int64("items", n))
		}
	}
	return statuses, err
}
