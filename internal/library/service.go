// Package library orchestrates the bookshelf: books, reading progress, goals, loans, quotes and notes.
// Every successful mutation is announced on the notify hub.
package library

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bookshelf/internal/chart"
	"bookshelf/internal/notify"
	"bookshelf/internal/period"
	"bookshelf/internal/progress"
	"bookshelf/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrValidation wraps every input problem; the message names the field
	ErrValidation = errors.New("invalid input")
	// ErrBookLoaned is returned when lending a book that is already out
	ErrBookLoaned = errors.New("book is already loaned")
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Service implements the bookshelf use cases on top of a storage backend
type Service struct {
	store    storage.Storage
	hub      *notify.Hub
	logger   *zap.Logger
	resolver period.Resolver
	charts   chart.Aggregator
	calc     *progress.Calculator
	now      func() time.Time
	newID    func() string
}

// Option configures a Service
type Option func(*Service)

// WithClock replaces the wall clock
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithIDGenerator replaces uuid generation
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) {
		s.newID = newID
	}
}

// WithResolver sets the period resolver used for goals and charts
func WithResolver(r period.Resolver) Option {
	return func(s *Service) {
		s.resolver = r
	}
}

// WithChart sets how the reading chart buckets and labels entries.
// Its Resolver is replaced by the service's resolver.
func WithChart(a chart.Aggregator) Option {
	return func(s *Service) {
		s.charts = a
	}
}

// New creates the library service. hub may be nil when nobody listens for changes.
func New(store storage.Storage, hub *notify.Hub, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if hub == nil {
		hub = notify.NewHub(logger)
	}
	s := &Service{
		store:    store,
		hub:      hub,
		logger:   logger,
		resolver: period.Resolver{WeekStart: time.Sunday},
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.charts.Resolver = s.resolver
	s.calc = progress.NewCalculator(store,
		progress.WithClock(s.clock),
		progress.WithResolver(s.resolver))
	return s
}

// clock returns now in the chart location when one is configured, so every
// period boundary is computed on the user's calendar
func (s *Service) clock() time.Time {
	now := s.now()
	if s.charts.Location != nil {
		now = now.In(s.charts.Location)
	}
	return now
}

// Hub returns the change notification hub
func (s *Service) Hub() *notify.Hub {
	return s.hub
}

func (s *Service) publish(ctx context.Context, table string, op notify.Op, userID, id string) {
	s.hub.Publish(ctx, notify.Event{Table: table, Op: op, UserID: userID, ID: id})
}

// owned hides rows of other users behind ErrNotFound
func owned(userID, ownerID, table, id string) error {
	if userID != ownerID {
		return storage.NotFound(table, id)
	}
	return nil
}
