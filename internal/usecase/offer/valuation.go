package offer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"cashoffer/internal/bootstrap/logging"
	domainoffer "cashoffer/internal/domain/offer"
	"cashoffer/internal/errs"
	"cashoffer/internal/ports"
)

// StartValuation arms the valuation timer of a pending quote and returns when it is due.
// A quote that already has a timer keeps it.
func (s *Service) StartValuation(ctx context.Context, quoteID string) (time.Time, error) {
	if err := s.ready(ctx); err != nil {
		return time.Time{}, err
	}

	now := s.clock()
	var dueAt time.Time
	started := false
	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		quote, err := s.repos.Quotes.GetQuote(txCtx, quoteID)
		if err != nil {
			return err
		}
		if err := checkCalculating(quote); err != nil {
			return err
		}

		job, found, err := s.repos.Jobs.GetJob(txCtx, quoteID)
		if err != nil {
			return err
		}
		if found {
			dueAt = job.DueAt
			return nil
		}

		details := domainoffer.Calculating{StartedAt: now, EstimatedWait: s.drawWait()}
		ok, err := s.repos.Quotes.RestartCalculation(txCtx, quoteID, details, now)
		if err != nil {
			return err
		}
		if !ok {
			return domainoffer.ErrCalculationCompleted
		}

		job, created, err := s.repos.Jobs.EnsureJob(txCtx, ports.ValuationJob{
			QuoteID:   quoteID,
			DueAt:     details.ReadyAt(),
			Status:    ports.ValuationJobPending,
			CreatedAt: now,
		})
		if err != nil {
			return err
		}
		dueAt = job.DueAt
		started = created
		return nil
	}); err != nil {
		return time.Time{}, err
	}

	if started {
		logging.Info(withQuoteAttrs(ctx, "valuation", quoteID), "valuation started",
			slog.Time("due_at", dueAt),
		)
	}
	return dueAt, nil
}

// CompleteValuation prices the quote and moves it to awaiting_inspection.
// Only the first completion applies; later calls get ErrCalculationCompleted.
func (s *Service) CompleteValuation(ctx context.Context, quoteID string) (domainoffer.PriceRange, error) {
	if err := s.ready(ctx); err != nil {
		return domainoffer.PriceRange{}, err
	}

	now := s.clock()
	var (
		quote    ports.QuoteRecord
		property ports.PropertyRecord
		priced   domainoffer.PriceRange
	)
	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		quote, err = s.repos.Quotes.GetQuote(txCtx, quoteID)
		if err != nil {
			return err
		}
		if err := checkCalculating(quote); err != nil {
			return err
		}
		running := quote.Calculation.(domainoffer.Calculating)

		property, err = s.repos.Properties.GetProperty(txCtx, quote.PropertyID)
		if err != nil {
			return err
		}

		priced = s.priceRange(property.SquareFeet)
		completed := domainoffer.Completed{
			StartedAt:   running.StartedAt,
			CompletedAt: now,
			PriceRange:  priced,
		}
		ok, err := s.repos.Quotes.CompleteCalculation(txCtx, quoteID, completed, priced.Midpoint())
		if err != nil {
			return err
		}
		if !ok {
			return domainoffer.ErrCalculationCompleted
		}

		if _, err := s.repos.Notifications.CreateNotification(txCtx, ports.NotificationRecord{
			UserID:            quote.UserID,
			RelatedPropertyID: stringPtr(property.ID),
			RelatedQuoteID:    stringPtr(quote.ID),
			Title:             "Your cash offer is ready!",
			Message: fmt.Sprintf(
				"Your cash offer range for %s is %s - %s. Schedule an inspection to receive your formal offer.",
				property.Address, formatDollars(priced.Low), formatDollars(priced.High),
			),
			Type:      domainoffer.NotificationQuoteReady,
			CreatedAt: now,
		}); err != nil {
			return err
		}

		return s.repos.Jobs.MarkJobDone(txCtx, quoteID, now)
	}); err != nil {
		return domainoffer.PriceRange{}, err
	}

	quote.Status = domainoffer.QuoteStatusAwaitingInspection
	quote.Amount = priced.Midpoint()
	ctx = withQuoteAttrs(ctx, "valuation", quoteID)
	logging.Info(ctx, "valuation completed",
		slog.Int("low", priced.Low),
		slog.Int("high", priced.High),
		slog.Int("confidence", priced.Confidence),
	)
	s.publish(ctx, ports.QuoteEventValuationCompleted, quote)
	return priced, nil
}

// RunDueValuations completes every valuation whose timer has passed and returns how many completed.
func (s *Service) RunDueValuations(ctx context.Context, limit int) (int, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}

	now := s.clock()
	jobs, err := s.repos.Jobs.ListDueJobs(ctx, now, limit)
	if err != nil {
		return 0, err
	}

	completed := 0
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return completed, errs.Wrap(err, "check context")
		}

		_, err := s.CompleteValuation(ctx, job.QuoteID)
		switch {
		case err == nil:
			completed++
		case errors.Is(err, domainoffer.ErrCalculationCompleted),
			errors.Is(err, domainoffer.ErrInvalidTransition),
			errors.Is(err, domainoffer.ErrQuoteNotFound):
			// The quote moved on without this job; retire it.
			if markErr := s.repos.Jobs.MarkJobDone(ctx, job.QuoteID, now); markErr != nil {
				return completed, markErr
			}
		default:
			failure := s.jobFailure(job, err, now)
			jobCtx := withQuoteAttrs(ctx, "valuation", job.QuoteID)
			if failure.GiveUp {
				logging.Error(jobCtx, "valuation abandoned",
					slog.Int("attempts", job.Attempts+1),
					slog.Any("err", errs.Loggable(err)),
				)
			} else {
				logging.Warn(jobCtx, "valuation failed",
					slog.Int("attempts", job.Attempts+1),
					slog.Time("retry_at", failure.RetryAt),
					slog.Any("err", errs.Loggable(err)),
				)
			}
			if recErr := s.repos.Jobs.RecordJobFailure(ctx, failure); recErr != nil {
				return completed, recErr
			}
		}
	}
	return completed, nil
}

// jobFailure doubles the retry delay per attempt up to StaleAfter and gives up after MaxAttempts.
func (s *Service) jobFailure(job ports.ValuationJob, cause error, now time.Time) ports.ValuationJobFailure {
	attempts := job.Attempts + 1
	failure := ports.ValuationJobFailure{
		QuoteID: job.QuoteID,
		Message: cause.Error(),
		At:      now,
	}
	if attempts >= s.opts.MaxAttempts {
		failure.GiveUp = true
		return failure
	}

	delay := s.opts.RetryBackoff
	for i := 1; i < attempts && delay < s.opts.StaleAfter; i++ {
		delay *= 2
	}
	if delay > s.opts.StaleAfter {
		delay = s.opts.StaleAfter
	}
	failure.RetryAt = now.Add(delay)
	return failure
}

// ResumeStaleValuations arms a timer for every calculating quote of the session user that has none.
// It returns the number of timers started.
func (s *Service) ResumeStaleValuations(ctx context.Context, session *ports.Session) (int, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	if session == nil {
		return 0, &domainoffer.PreconditionError{Missing: domainoffer.MissingSession}
	}

	quotes, err := s.repos.Quotes.ListCalculating(ctx, session.UserID)
	if err != nil {
		return 0, err
	}

	resumed := 0
	for _, quote := range quotes {
		_, found, err := s.repos.Jobs.GetJob(ctx, quote.ID)
		if err != nil {
			return resumed, err
		}
		if found {
			continue
		}
		if _, err := s.StartValuation(ctx, quote.ID); err != nil {
			if errors.Is(err, domainoffer.ErrCalculationCompleted) {
				continue
			}
			return resumed, err
		}
		resumed++
	}
	return resumed, nil
}

// DetectStaleValuations reports quotes that have been calculating longer than the configured limit.
func (s *Service) DetectStaleValuations(ctx context.Context) ([]*domainoffer.StaleCalculationError, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	quotes, err := s.repos.Quotes.ListCalculating(ctx, "")
	if err != nil {
		return nil, err
	}

	now := s.clock()
	var stale []*domainoffer.StaleCalculationError
	for _, quote := range quotes {
		running, ok := quote.Calculation.(domainoffer.Calculating)
		if !ok {
			continue
		}
		deadline := running.StartedAt.Add(s.opts.StaleAfter)
		if ready := running.ReadyAt(); !ready.IsZero() {
			deadline = ready.Add(s.opts.StaleAfter)
		}
		if now.Before(deadline) {
			continue
		}
		stale = append(stale, &domainoffer.StaleCalculationError{
			QuoteID:   quote.ID,
			StartedAt: running.StartedAt,
			Age:       now.Sub(running.StartedAt),
		})
	}
	return stale, nil
}

// checkCalculating accepts only a pending quote whose valuation is still running.
func checkCalculating(quote ports.QuoteRecord) error {
	if _, ok := quote.Calculation.(domainoffer.Completed); ok {
		return domainoffer.ErrCalculationCompleted
	}
	if quote.Status != domainoffer.QuoteStatusPending {
		return fmt.Errorf("%w: quote %s is %s", domainoffer.ErrInvalidTransition, quote.ID, quote.Status)
	}
	if !quote.Calculating() {
		return fmt.Errorf("%w: quote %s has no running valuation", domainoffer.ErrInvalidCalculation, quote.ID)
	}
	return nil
}

// formatDollars renders 270000 as "$270,000".
func formatDollars(amount int) string {
	raw := strconv.Itoa(amount)
	sign := ""
	if amount < 0 {
		sign, raw = "-", raw[1:]
	}
	out := make([]byte, 0, len(raw)+len(raw)/3)
	for i := range raw {
		if i > 0 && (len(raw)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, raw[i])
	}
	return sign + "$" + string(out)
}
