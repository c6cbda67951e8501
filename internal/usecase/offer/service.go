package offer

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"cashoffer/internal/bootstrap/logging"
	domainoffer "cashoffer/internal/domain/offer"
	"cashoffer/internal/errs"
	"cashoffer/internal/ports"
)

var (
	errRepositoriesRequired = errors.New("offer repositories are required")
	errUnitOfWorkRequired   = errors.New("offer unit of work is required")
)

// Options tunes the quote workflow.
type Options struct {
	MinWait              time.Duration
	MaxWait              time.Duration
	QuoteTTL             time.Duration
	StaleAfter           time.Duration
	MaxAttempts          int
	RetryBackoff         time.Duration
	AutoStartValuation   bool
	RequireVerifiedEmail bool
	Location             *time.Location
}

func DefaultOptions() Options {
	return Options{
		MinWait:              domainoffer.DefaultMinWait,
		MaxWait:              domainoffer.DefaultMaxWait,
		QuoteTTL:             7 * 24 * time.Hour,
		StaleAfter:           10 * time.Minute,
		MaxAttempts:          5,
		RetryBackoff:         15 * time.Second,
		AutoStartValuation:   true,
		RequireVerifiedEmail: true,
		Location:             time.Local,
	}
}

// Repositories groups the stores the service writes to.
type Repositories struct {
	Properties    ports.PropertyRepository
	Quotes        ports.QuoteRepository
	Inspections   ports.InspectionRepository
	Notifications ports.NotificationRepository
	History       ports.HistoryRepository
	Jobs          ports.ValuationJobRepository
}

func (r Repositories) complete() bool {
	return r.Properties != nil && r.Quotes != nil && r.Inspections != nil &&
		r.Notifications != nil && r.History != nil && r.Jobs != nil
}

type Service struct {
	repos  Repositories
	uow    ports.UnitOfWork
	events ports.QuoteEvents
	opts   Options

	now   func() time.Time
	rngMu sync.Mutex
	rng   domainoffer.Rand
}

// NewService wires quote usecases. events may be nil.
func NewService(repos Repositories, uow ports.UnitOfWork, events ports.QuoteEvents, opts Options) *Service {
	defaults := DefaultOptions()
	if opts.MinWait <= 0 {
		opts.MinWait = defaults.MinWait
	}
	if opts.MaxWait < opts.MinWait {
		opts.MaxWait = opts.MinWait
	}
	if opts.QuoteTTL <= 0 {
		opts.QuoteTTL = defaults.QuoteTTL
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = defaults.StaleAfter
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaults.MaxAttempts
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = defaults.RetryBackoff
	}
	if opts.Location == nil {
		opts.Location = defaults.Location
	}

	return &Service{
		repos:  repos,
		uow:    uow,
		events: events,
		opts:   opts,
		now:    time.Now,
		rng:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

func (s *Service) Options() Options {
	return s.opts
}

func (s *Service) ready(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}
	if !s.repos.complete() {
		return errRepositoriesRequired
	}
	if s.uow == nil {
		return errUnitOfWorkRequired
	}
	return nil
}

func (s *Service) clock() time.Time {
	return s.now().In(s.opts.Location)
}

func (s *Service) drawWait() time.Duration {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return domainoffer.DrawWait(s.rng, s.opts.MinWait, s.opts.MaxWait)
}

func (s *Service) priceRange(squareFeet *int) domainoffer.PriceRange {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return domainoffer.ComputePriceRange(squareFeet, s.rng)
}

func (s *Service) publish(ctx context.Context, kind ports.QuoteEventType, quote ports.QuoteRecord) {
	if s.events == nil {
		return
	}
	s.events.Publish(ctx, ports.QuoteEvent{
		Type:    kind,
		QuoteID: quote.ID,
		UserID:  quote.UserID,
		Status:  string(quote.Status),
		Amount:  quote.Amount,
		At:      s.now().UTC(),
	})
}

// ownedQuote loads a quote and checks it belongs to the session user.
func (s *Service) ownedQuote(ctx context.Context, session *ports.Session, quoteID string) (ports.QuoteRecord, error) {
	if session == nil {
		return ports.QuoteRecord{}, &domainoffer.PreconditionError{Missing: domainoffer.MissingSession}
	}
	quote, err := s.repos.Quotes.GetQuote(ctx, quoteID)
	if err != nil {
		return ports.QuoteRecord{}, err
	}
	if quote.UserID != session.UserID {
		return ports.QuoteRecord{}, domainoffer.ErrNotOwner
	}
	return quote, nil
}

func withQuoteAttrs(ctx context.Context, component string, quoteID string) context.Context {
	return logging.WithAttrs(ctx, slog.String("component", component), slog.String("quote_id", quoteID))
}

func stringPtr(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
