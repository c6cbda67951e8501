package offer

import (
	"context"
	"log/slog"
	"strings"

	"cashoffer/internal/bootstrap/logging"
	domainoffer "cashoffer/internal/domain/offer"
	"cashoffer/internal/errs"
	"cashoffer/internal/ports"
)

// SubmitQuote persists the property and its pending quote in one transaction and returns the quote id.
func (s *Service) SubmitQuote(ctx context.Context, session *ports.Session, form domainoffer.IntakeForm) (string, error) {
	if err := s.ready(ctx); err != nil {
		return "", err
	}
	if session == nil || strings.TrimSpace(session.UserID) == "" {
		return "", &domainoffer.PreconditionError{Missing: domainoffer.MissingSession}
	}
	if s.opts.RequireVerifiedEmail && !session.EmailVerified() {
		return "", &domainoffer.PreconditionError{Missing: domainoffer.MissingEmailVerification}
	}

	now := s.clock()
	for _, step := range form.Steps() {
		if fields := domainoffer.ValidateStep(step, now); !fields.Valid() {
			return "", &domainoffer.ValidationError{Step: step.Step(), Fields: fields}
		}
	}

	numbers, err := domainoffer.ParseDetails(form.Details)
	if err != nil {
		return "", &domainoffer.PropertyCreationError{Err: err}
	}

	var quote ports.QuoteRecord
	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		property, err := s.repos.Properties.CreateProperty(txCtx, ports.PropertyRecord{
			UserID:       session.UserID,
			Address:      domainoffer.ComposeAddress(form.Address),
			City:         strings.TrimSpace(form.Address.City),
			State:        strings.TrimSpace(form.Address.State),
			ZipCode:      strings.TrimSpace(form.Address.ZipCode),
			Bedrooms:     numbers.Bedrooms,
			Bathrooms:    numbers.Bathrooms,
			SquareFeet:   numbers.SquareFeet,
			YearBuilt:    numbers.YearBuilt,
			PropertyType: domainoffer.PropertyType(strings.TrimSpace(form.Details.PropertyType)),
			LotSize:      strings.TrimSpace(form.Details.LotSize),
			Condition:    domainoffer.Condition(strings.TrimSpace(form.Condition.Condition)),
			Description:  stringPtr(strings.TrimSpace(form.Condition.AdditionalNotes)),
			Status:       domainoffer.PropertyStatusActive,
			CreatedAt:    now,
		})
		if err != nil {
			return &domainoffer.PropertyCreationError{Err: err}
		}

		created, err := s.repos.Quotes.CreateQuote(txCtx, ports.QuoteRecord{
			PropertyID:  property.ID,
			UserID:      session.UserID,
			Amount:      0,
			Status:      domainoffer.QuoteStatusPending,
			Timeline:    domainoffer.Timeline(strings.TrimSpace(form.Contact.Timeline)),
			Motivation:  strings.TrimSpace(form.Contact.Motivation),
			ExpiresAt:   now.Add(s.opts.QuoteTTL),
			Calculation: domainoffer.Calculating{StartedAt: now},
			CreatedAt:   now,
		})
		if err != nil {
			return &domainoffer.QuoteCreationError{PropertyID: property.ID, Err: err}
		}
		quote = created
		return nil
	}); err != nil {
		logging.Error(ctx, "quote submission failed",
			slog.String("component", "submission"),
			slog.String("user_id", session.UserID),
			slog.Any("err", errs.Loggable(err)),
		)
		return "", err
	}

	ctx = withQuoteAttrs(ctx, "submission", quote.ID)
	logging.Info(ctx, "quote submitted", slog.String("property_id", quote.PropertyID))
	s.publish(ctx, ports.QuoteEventSubmitted, quote)

	if s.opts.AutoStartValuation {
		if _, err := s.StartValuation(ctx, quote.ID); err != nil {
			logging.Warn(ctx, "start valuation after submit failed", slog.Any("err", errs.Loggable(err)))
		}
	}
	return quote.ID, nil
}
