// Package ledger implements the transactional core: entry validation,
// derived balance projection, filtered listing with aggregates, and the
// account/category operations built on top of them.
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"

	"kassa/internal/cache"
	"kassa/internal/core"
	"kassa/internal/events"
	"kassa/internal/log"
	"kassa/internal/storage"
)

// Publisher emits entry mutation events after a unit commits. Publishing is
// best-effort and never fails the mutation.
type Publisher interface {
	PublishEntryEvent(ctx context.Context, ev *events.EntryEvent) error
}

type Service struct {
	repo   storage.Repository
	pub    Publisher
	logger *log.Logger
	cats   *cache.LRU[[]core.Category]
	now    func() time.Time
	newID  func() string
}

type Option func(*Service)

// WithPublisher attaches an event publisher.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.pub = p }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides id generation, for tests.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) { s.newID = gen }
}

func NewService(repo storage.Repository, logger *log.Logger, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		logger: logger.WithComponent(log.ComponentLedger),
		cats:   cache.NewLRU[[]core.Category](4, 5*time.Minute),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CacheCleaner exposes the category cache so the server can run a periodic
// expiry sweep over it.
func (s *Service) CacheCleaner() cache.Cleaner {
	return s.cats
}

func (s *Service) publish(ctx context.Context, op events.Op, entryID, ownerID string) {
	if s.pub == nil {
		return
	}
	if err := s.pub.PublishEntryEvent(ctx, events.NewEntryEvent(op, entryID, ownerID)); err != nil {
		s.logger.Warn("event publish failed",
			log.FieldOperation, log.OpPublish,
			"op", op,
			"entry_id", entryID,
			"error", err)
	}
}
