package offer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cashoffer/internal/bootstrap/logging"
	domainoffer "cashoffer/internal/domain/offer"
	"cashoffer/internal/errs"
	"cashoffer/internal/ports"
)

type ScheduleInspectionInput struct {
	QuoteID    string
	PropertyID string
	Date       time.Time
	Slot       string
	Notes      string
}

// ScheduleInspection books an inspection for a quote awaiting one and moves it to awaiting_formal_offer.
// Every failure is returned as *SchedulingError.
func (s *Service) ScheduleInspection(ctx context.Context, session *ports.Session, input ScheduleInspectionInput) (ports.InspectionRecord, error) {
	if err := s.ready(ctx); err != nil {
		return ports.InspectionRecord{}, err
	}

	fail := func(err error) (ports.InspectionRecord, error) {
		return ports.InspectionRecord{}, &domainoffer.SchedulingError{QuoteID: input.QuoteID, Err: err}
	}

	if session == nil {
		return fail(&domainoffer.PreconditionError{Missing: domainoffer.MissingSession})
	}
	slot, err := domainoffer.ParseTimeSlot(input.Slot)
	if err != nil {
		return fail(err)
	}
	now := s.clock()
	scheduledAt, err := domainoffer.InspectionTime(input.Date, slot, now)
	if err != nil {
		return fail(err)
	}

	var (
		inspection ports.InspectionRecord
		quote      ports.QuoteRecord
	)
	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		quote, err = s.ownedQuote(txCtx, session, input.QuoteID)
		if err != nil {
			return err
		}
		if propertyID := strings.TrimSpace(input.PropertyID); propertyID != "" && propertyID != quote.PropertyID {
			return domainoffer.ErrPropertyMismatch
		}
		if quote.Status != domainoffer.QuoteStatusAwaitingInspection {
			return fmt.Errorf("%w: quote is %s", domainoffer.ErrInvalidTransition, quote.Status)
		}
		if err := domainoffer.EnsureTransition(quote.Status, domainoffer.QuoteStatusAwaitingFormalOffer); err != nil {
			return err
		}

		property, err := s.repos.Properties.GetProperty(txCtx, quote.PropertyID)
		if err != nil {
			return err
		}

		inspection, err = s.repos.Inspections.CreateInspection(txCtx, ports.InspectionRecord{
			PropertyID:    quote.PropertyID,
			QuoteID:       quote.ID,
			ScheduledDate: scheduledAt,
			Status:        domainoffer.InspectionScheduled,
			Notes:         stringPtr(strings.TrimSpace(input.Notes)),
			CreatedAt:     now,
		})
		if err != nil {
			return err
		}

		if _, err := s.repos.Notifications.CreateNotification(txCtx, ports.NotificationRecord{
			UserID:            quote.UserID,
			RelatedPropertyID: stringPtr(quote.PropertyID),
			RelatedQuoteID:    stringPtr(quote.ID),
			Title:             "Inspection Scheduled",
			Message: fmt.Sprintf(
				"Your property inspection for %s is scheduled for %s (%s).",
				property.Address,
				scheduledAt.Format("Monday, January 2, 2006 at 3:04 PM"),
				slot,
			),
			Type:      domainoffer.NotificationInspectionScheduled,
			CreatedAt: now,
		}); err != nil {
			return err
		}

		ok, err := s.repos.Quotes.TransitionStatus(txCtx, ports.QuoteTransition{
			QuoteID: quote.ID,
			From:    domainoffer.QuoteStatusAwaitingInspection,
			To:      domainoffer.QuoteStatusAwaitingFormalOffer,
			At:      now,
		})
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: quote changed while scheduling", domainoffer.ErrInvalidTransition)
		}
		return nil
	}); err != nil {
		logging.Warn(withQuoteAttrs(ctx, "inspection", input.QuoteID), "schedule inspection failed",
			slog.Any("err", errs.Loggable(err)),
		)
		return fail(err)
	}

	quote.Status = domainoffer.QuoteStatusAwaitingFormalOffer
	ctx = withQuoteAttrs(ctx, "inspection", quote.ID)
	logging.Info(ctx, "inspection scheduled",
		slog.String("inspection_id", inspection.ID),
		slog.Time("scheduled_at", scheduledAt),
	)
	s.publish(ctx, ports.QuoteEventInspectionScheduled, quote)
	return inspection, nil
}
