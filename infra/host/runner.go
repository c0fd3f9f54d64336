package host

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/CrestNiraj12/tapestry/app"
	"github.com/CrestNiraj12/tapestry/domain"
	"github.com/CrestNiraj12/tapestry/infra/auth"
	"github.com/CrestNiraj12/tapestry/infra/request"
	"github.com/CrestNiraj12/tapestry/infra/storage"
)

const (
	DefaultTimeout     = 30 * time.Second
	defaultConcurrency = 4
)

// ConnectorLookup resolves connector ids.
type ConnectorLookup interface {
	Lookup(id string) (app.Connector, bool)
}

// RequesterFactory builds the requester a feed's connector talks through.
type RequesterFactory func(feed domain.Feed) app.Requester

// Result is the outcome of loading one feed. Items holds whatever was
// reported even when Err is set, so a timed out load keeps its partial
// results.
type Result struct {
	Feed     domain.Feed
	RunID    string
	Items    []domain.Item
	Complete bool
	Err      error
	Elapsed  time.Duration
}

// Runner drives connectors through verify and load.
type Runner struct {
	connectors   ConnectorLookup
	store        storage.Store
	icons        app.IconLookup
	newRequester RequesterFactory
	timeout      time.Duration
	concurrency  int
	logger       *zap.Logger
}

type RunnerOption func(*Runner)

// WithTimeout bounds every verify and load. Zero keeps the default.
func WithTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func WithConcurrency(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

func WithRequesterFactory(f RequesterFactory) RunnerOption {
	return func(r *Runner) { r.newRequester = f }
}

func WithRunnerLogger(l *zap.Logger) RunnerOption {
	return func(r *Runner) { r.logger = l.Named("host") }
}

// NewRunner creates a runner. Without WithRequesterFactory every feed gets a
// request.Client carrying the feed's token for its site.
func NewRunner(connectors ConnectorLookup, store storage.Store, icons app.IconLookup, opts ...RunnerOption) *Runner {
	r := &Runner{
		connectors:  connectors,
		store:       store,
		icons:       icons,
		timeout:     DefaultTimeout,
		concurrency: defaultConcurrency,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.newRequester == nil {
		logger := r.logger
		r.newRequester = func(feed domain.Feed) app.Requester {
			return request.NewClient(
				request.WithLogger(logger),
				request.WithToken(feed.Site, auth.ForFeed(feed.TokenFile)),
			)
		}
	}
	return r
}

// Verify asks the feed's connector to confirm the site and returns how the
// feed should be presented.
func (r *Runner) Verify(ctx context.Context, feed domain.Feed) (domain.Verification, error) {
	s, _, err := r.run(ctx, feed, opVerify, func(ctx context.Context, c app.Connector, s app.Session) {
		c.Verify(ctx, s)
	})
	if err != nil {
		return domain.Verification{}, err
	}
	snap := s.snapshot()
	if snap.err != nil {
		return domain.Verification{}, snap.err
	}
	if snap.verification == nil {
		return domain.Verification{}, fmt.Errorf("%s verify: no verification reported", feed.Name)
	}
	return *snap.verification, nil
}

// Load runs one load of the feed.
func (r *Runner) Load(ctx context.Context, feed domain.Feed) Result {
	start := time.Now()
	s, runID, err := r.run(ctx, feed, opLoad, func(ctx context.Context, c app.Connector, s app.Session) {
		c.Load(ctx, s)
	})
	res := Result{Feed: feed, RunID: runID, Err: err}
	if s != nil {
		snap := s.snapshot()
		res.Items = snap.items
		res.Complete = snap.complete
		if res.Err == nil {
			res.Err = snap.err
		}
	}
	res.Elapsed = time.Since(start)
	return res
}

// LoadAll loads feeds concurrently. Per-feed failures are reported in the
// matching Result; the returned error is only set when ctx ends first.
func (r *Runner) LoadAll(ctx context.Context, feeds []domain.Feed) ([]Result, error) {
	results := make([]Result, len(feeds))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, feed := range feeds {
		g.Go(func() error {
			results[i] = r.Load(gctx, feed)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}

func (r *Runner) run(
	ctx context.Context,
	feed domain.Feed,
	op string,
	call func(context.Context, app.Connector, app.Session),
) (*session, string, error) {
	runID := uuid.NewString()
	logger := r.logger.With(
		zap.String("run", runID),
		zap.String("feed", feed.Name),
		zap.String("connector", feed.Connector),
		zap.String("op", op),
	)

	conn, ok := r.connectors.Lookup(feed.Connector)
	if !ok {
		return nil, runID, fmt.Errorf("connector %q: %w", feed.Connector, domain.ErrNotFound)
	}

	h := feedHost{
		Requester:  r.newRequester(feed),
		IconLookup: r.icons,
		Store:      r.store.Scope(feed.Name),
	}
	s := newSession(h, feed, op, logger)

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	logger.Debug("connector started")
	go func() {
		defer func() {
			if p := recover(); p != nil {
				logger.Error("connector panicked", zap.Any("panic", p))
				s.ProcessError(fmt.Errorf("connector panicked: %v", p))
			}
		}()
		call(ctx, conn, s)
	}()

	select {
	case <-s.Done():
		logger.Debug("connector finished")
		return s, runID, nil
	case <-ctx.Done():
	}

	if !s.abandon() {
		return s, runID, nil
	}
	err := ctx.Err()
	if errors.Is(err, context.DeadlineExceeded) {
		err = domain.ErrTimeout
	}
	logger.Warn("connector abandoned", zap.Error(err))
	return s, runID, &domain.ConnectorError{Feed: feed.Name, Op: op, Err: err}
}
