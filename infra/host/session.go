package host

import (
	"errors"
	"maps"
	"sync"

	"go.uber.org/zap"

	"github.com/CrestNiraj12/tapestry/app"
	"github.com/CrestNiraj12/tapestry/domain"
)

const (
	opVerify = "verify"
	opLoad   = "load"
)

var errUnknownConnectorError = errors.New("connector reported an error without details")

// session collects the reports of a single verify or load run. The first
// terminal report wins; anything after it is logged and dropped.
type session struct {
	feedHost
	feed   domain.Feed
	op     string
	logger *zap.Logger

	mu           sync.Mutex
	items        []domain.Item
	index        map[string]int
	complete     bool
	verification *domain.Verification
	err          error
	finished     bool
	done         chan struct{}
}

var _ app.Session = (*session)(nil)

func newSession(h feedHost, feed domain.Feed, op string, logger *zap.Logger) *session {
	return &session{
		feedHost: h,
		feed:     feed,
		op:       op,
		logger:   logger,
		index:    make(map[string]int),
		done:     make(chan struct{}),
	}
}

func (s *session) Site() string { return s.feed.Site }

func (s *session) Variable(name string) string { return s.feed.Variable(name, "") }

func (s *session) Variables() map[string]string { return maps.Clone(s.feed.Variables) }

func (s *session) Done() <-chan struct{} { return s.done }

func (s *session) ProcessResults(items []domain.Item, isComplete bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finished {
		s.logger.Warn("results after terminal report dropped", zap.Int("items", len(items)))
		return
	}
	if s.op != opLoad {
		s.logger.Warn("results reported during verify dropped", zap.Int("items", len(items)))
		return
	}

	for _, it := range items {
		if err := it.Validate(); err != nil {
			s.logger.Warn("invalid item dropped", zap.Error(err))
			continue
		}
		it = it.Clone()
		if i, ok := s.index[it.URI]; ok {
			s.items[i] = it
			continue
		}
		s.index[it.URI] = len(s.items)
		s.items = append(s.items, it)
	}

	if isComplete {
		s.complete = true
		s.finishLocked()
	}
}

func (s *session) ProcessError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finished {
		s.logger.Warn("error after terminal report dropped", zap.Error(err))
		return
	}
	if err == nil {
		err = errUnknownConnectorError
	}
	s.err = &domain.ConnectorError{Feed: s.feed.Name, Op: s.op, Err: err}
	s.finishLocked()
}

func (s *session) ProcessVerification(v domain.Verification) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finished {
		s.logger.Warn("verification after terminal report dropped")
		return
	}
	if s.op != opVerify {
		s.logger.Warn("verification reported during load dropped")
		return
	}
	s.verification = &v
	s.finishLocked()
}

// abandon ends the session without a terminal report. It reports whether
// the session was still open.
func (s *session) abandon() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return false
	}
	s.finishLocked()
	return true
}

func (s *session) finishLocked() {
	s.finished = true
	close(s.done)
}

type snapshot struct {
	items        []domain.Item
	complete     bool
	verification *domain.Verification
	err          error
}

func (s *session) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot{
		items:        append([]domain.Item(nil), s.items...),
		complete:     s.complete,
		verification: s.verification,
		err:          s.err,
	}
}
