package offer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cashoffer/internal/bootstrap/logging"
	domainoffer "cashoffer/internal/domain/offer"
	"cashoffer/internal/ports"
)

// MakeFormalOffer records the post-inspection offer amount and hands the quote to the customer.
func (s *Service) MakeFormalOffer(ctx context.Context, quoteID string, amount int) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if amount <= 0 {
		return fmt.Errorf("%w: %d", domainoffer.ErrInvalidAmount, amount)
	}

	now := s.clock()
	var quote ports.QuoteRecord
	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		view, err := s.repos.Quotes.GetQuoteView(txCtx, quoteID)
		if err != nil {
			return err
		}
		quote = view.Quote
		if err := s.transition(txCtx, quote, domainoffer.QuoteStatusAwaitingCustomerReview, &amount, now); err != nil {
			return err
		}

		_, err = s.repos.Notifications.CreateNotification(txCtx, ports.NotificationRecord{
			UserID:            quote.UserID,
			RelatedPropertyID: stringPtr(quote.PropertyID),
			RelatedQuoteID:    stringPtr(quote.ID),
			Title:             "Your formal offer is ready",
			Message: fmt.Sprintf(
				"We are offering %s for %s. Review the offer on your dashboard to accept or decline.",
				formatDollars(amount), view.Property.Address,
			),
			Type:      domainoffer.NotificationOfferMade,
			CreatedAt: now,
		})
		return err
	}); err != nil {
		return err
	}

	quote.Status = domainoffer.QuoteStatusAwaitingCustomerReview
	quote.Amount = amount
	ctx = withQuoteAttrs(ctx, "offer", quoteID)
	logging.Info(ctx, "formal offer made", slog.Int("amount", amount))
	s.publish(ctx, ports.QuoteEventOfferMade, quote)
	return nil
}

// RespondToQuote lets the owner accept or decline the formal offer.
func (s *Service) RespondToQuote(ctx context.Context, session *ports.Session, quoteID string, decision domainoffer.QuoteStatus) (ports.QuoteRecord, error) {
	if err := s.ready(ctx); err != nil {
		return ports.QuoteRecord{}, err
	}
	if decision != domainoffer.QuoteStatusAccepted && decision != domainoffer.QuoteStatusDeclined {
		return ports.QuoteRecord{}, fmt.Errorf("%w: must be accepted or declined, got %q", domainoffer.ErrInvalidQuoteStatus, decision)
	}

	now := s.clock()
	var quote ports.QuoteRecord
	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		owned, err := s.ownedQuote(txCtx, session, quoteID)
		if err != nil {
			return err
		}
		quote = owned
		if err := s.transition(txCtx, quote, decision, nil, now); err != nil {
			return err
		}

		property, err := s.repos.Properties.GetProperty(txCtx, quote.PropertyID)
		if err != nil {
			return err
		}

		notification := ports.NotificationRecord{
			UserID:            quote.UserID,
			RelatedPropertyID: stringPtr(quote.PropertyID),
			RelatedQuoteID:    stringPtr(quote.ID),
			CreatedAt:         now,
		}
		if decision == domainoffer.QuoteStatusAccepted {
			notification.Title = "Offer Accepted!"
			notification.Message = fmt.Sprintf(
				"You've accepted our offer of %s for %s. We'll contact you shortly to begin the closing process.",
				formatDollars(quote.Amount), property.Address,
			)
			notification.Type = domainoffer.NotificationOfferAccepted
		} else {
			notification.Title = "Offer Declined"
			notification.Message = fmt.Sprintf(
				"You've declined our offer for %s. Thank you for considering us.",
				property.Address,
			)
			notification.Type = domainoffer.NotificationOfferDeclined
		}
		if _, err := s.repos.Notifications.CreateNotification(txCtx, notification); err != nil {
			return err
		}

		return s.repos.History.AppendHistory(txCtx, ports.HistoryRecord{
			PropertyID: quote.PropertyID,
			ChangedBy:  session.UserID,
			ChangeType: "quote_" + string(decision),
			NewValues: map[string]any{
				"quote_id":  quote.ID,
				"status":    string(decision),
				"timestamp": now.UTC().Format(time.RFC3339),
			},
			CreatedAt: now,
		})
	}); err != nil {
		return ports.QuoteRecord{}, err
	}

	quote.Status = decision
	quote.UpdatedAt = now
	ctx = withQuoteAttrs(ctx, "offer", quoteID)
	logging.Info(ctx, "customer responded to offer", slog.String("decision", string(decision)))
	s.publish(ctx, ports.QuoteEventResponded, quote)
	return quote, nil
}

// CloseQuote finishes a quote the customer has decided on.
func (s *Service) CloseQuote(ctx context.Context, quoteID string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}

	now := s.clock()
	var quote ports.QuoteRecord
	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		quote, err = s.repos.Quotes.GetQuote(txCtx, quoteID)
		if err != nil {
			return err
		}
		return s.transition(txCtx, quote, domainoffer.QuoteStatusClosed, nil, now)
	}); err != nil {
		return err
	}

	quote.Status = domainoffer.QuoteStatusClosed
	ctx = withQuoteAttrs(ctx, "offer", quoteID)
	logging.Info(ctx, "quote closed")
	s.publish(ctx, ports.QuoteEventClosed, quote)
	return nil
}

// transition applies a forward status move guarded by the quote's current status.
func (s *Service) transition(ctx context.Context, quote ports.QuoteRecord, to domainoffer.QuoteStatus, amount *int, at time.Time) error {
	if err := domainoffer.EnsureTransition(quote.Status, to); err != nil {
		return err
	}
	ok, err := s.repos.Quotes.TransitionStatus(ctx, ports.QuoteTransition{
		QuoteID: quote.ID,
		From:    quote.Status,
		To:      to,
		Amount:  amount,
		At:      at,
	})
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: quote %s changed concurrently", domainoffer.ErrInvalidTransition, quote.ID)
	}
	return nil
}
