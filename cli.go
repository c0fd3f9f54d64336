package main

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/CrestNiraj12/tapestry/app"
	"github.com/CrestNiraj12/tapestry/domain"
	"github.com/CrestNiraj12/tapestry/infra/auth"
	"github.com/CrestNiraj12/tapestry/infra/cache"
	"github.com/CrestNiraj12/tapestry/infra/config"
	"github.com/CrestNiraj12/tapestry/infra/connectors"
	"github.com/CrestNiraj12/tapestry/infra/host"
	"github.com/CrestNiraj12/tapestry/infra/icon"
	"github.com/CrestNiraj12/tapestry/infra/logging"
	"github.com/CrestNiraj12/tapestry/infra/request"
	"github.com/CrestNiraj12/tapestry/infra/script"
	"github.com/CrestNiraj12/tapestry/infra/storage"
)

// env is everything a command needs, built from the resolved config.
type env struct {
	cfg      config.Config
	logger   *zap.Logger
	registry *connectors.Registry
	feeds    []domain.Feed
	store    *storage.BoltStore
	cache    *cache.Cache
	runner   *host.Runner
}

// openEnv wires the host. needFeeds is false for commands that work without
// a feeds file.
func openEnv(needFeeds bool) (*env, error) {
	// 1. Load config from environment.
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogPath())
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}
	e := &env{cfg: cfg, logger: logger}

	// 2. Connectors: built-ins plus scripts from the data dir.
	e.registry = loadRegistry(cfg, logger)
	feeds, err := config.LoadFeeds(cfg.FeedsPath, knownConnector(e.registry))
	switch {
	case err == nil:
		e.feeds = feeds
	case !needFeeds && errors.Is(err, config.ErrNoFeeds):
	default:
		_ = logger.Sync()
		return nil, err
	}

	// 3. Storage and cache.
	e.store, err = storage.OpenBolt(cfg.StorePath())
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("store: %w", err)
	}
	e.cache, err = cache.Open(cfg.CachePath())
	if err != nil {
		_ = e.store.Close()
		_ = logger.Sync()
		return nil, fmt.Errorf("cache: %w", err)
	}

	// 4. Host runtime.
	icons, err := icon.NewFinder(request.NewClient(
		request.WithLogger(logger),
		request.WithUserAgent(cfg.UserAgent),
	), 0, logger)
	if err != nil {
		_ = e.Close()
		return nil, err
	}
	e.runner = host.NewRunner(e.registry, e.store, icons,
		host.WithTimeout(cfg.Timeout),
		host.WithRunnerLogger(logger),
		host.WithRequesterFactory(requesterFactory(cfg, logger)),
	)
	return e, nil
}

func loadRegistry(cfg config.Config, logger *zap.Logger) *connectors.Registry {
	registry := connectors.Default()
	scripts, err := script.Discover(cfg.ConnectorsDir(), logger)
	if err != nil {
		logger.Warn("some script connectors failed to load", zap.Error(err))
	}
	for _, c := range scripts {
		if err := registry.Register(c); err != nil {
			logger.Warn("script connector skipped", zap.String("id", c.ID()), zap.Error(err))
		}
	}
	return registry
}

func knownConnector(r *connectors.Registry) func(string) bool {
	return func(id string) bool {
		_, ok := r.Lookup(id)
		return ok
	}
}

func requesterFactory(cfg config.Config, logger *zap.Logger) host.RequesterFactory {
	return func(feed domain.Feed) app.Requester {
		return request.NewClient(
			request.WithLogger(logger),
			request.WithUserAgent(cfg.UserAgent),
			request.WithToken(feed.Site, auth.ForFeed(feed.TokenFile)),
		)
	}
}

// selectFeeds resolves names to feeds; no names selects every feed.
func (e *env) selectFeeds(names []string) ([]domain.Feed, error) {
	if len(names) == 0 {
		return e.feeds, nil
	}
	out := make([]domain.Feed, 0, len(names))
	for _, n := range names {
		f, err := config.FindFeed(e.feeds, n)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func (e *env) timeline() *host.Timeline {
	return host.NewTimeline(e.runner, e.cache, e.feeds, e.cfg.Retention, e.logger)
}

func (e *env) Close() error {
	var errs []error
	if e.cache != nil {
		errs = append(errs, e.cache.Close())
	}
	if e.store != nil {
		errs = append(errs, e.store.Close())
	}
	_ = e.logger.Sync()
	return errors.Join(errs...)
}

// withEnv opens the environment for one command and closes it afterwards.
func withEnv(needFeeds bool, fn func(*env) error) (err error) {
	e, err := openEnv(needFeeds)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := e.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(e)
}
