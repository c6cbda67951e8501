package offer

import (
	"context"
	"log/slog"

	"cashoffer/internal/bootstrap/logging"
	domainoffer "cashoffer/internal/domain/offer"
	"cashoffer/internal/errs"
	"cashoffer/internal/ports"
)

const dashboardNotificationLimit = 10

type QuoteDetail struct {
	View        ports.QuoteView
	Inspections []ports.InspectionRecord
}

type DashboardStats struct {
	ActiveQuotes        int   `json:"active_quotes"`
	TotalQuotes         int   `json:"total_quotes"`
	Properties          int   `json:"properties"`
	CompletedQuotes     int   `json:"completed_quotes"`
	UnreadNotifications int64 `json:"unread_notifications"`
}

type Dashboard struct {
	Quotes        []ports.QuoteView
	Stats         DashboardStats
	Notifications []ports.NotificationRecord
}

func (s *Service) ListQuotes(ctx context.Context, session *ports.Session) ([]ports.QuoteView, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	if session == nil {
		return nil, &domainoffer.PreconditionError{Missing: domainoffer.MissingSession}
	}
	return s.repos.Quotes.ListQuotes(ctx, ports.QuoteFilter{UserID: session.UserID})
}

// ListAllQuotes is the operator view across users.
func (s *Service) ListAllQuotes(ctx context.Context, filter ports.QuoteFilter) ([]ports.QuoteView, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	return s.repos.Quotes.ListQuotes(ctx, filter)
}

func (s *Service) GetQuote(ctx context.Context, session *ports.Session, quoteID string) (QuoteDetail, error) {
	if err := s.ready(ctx); err != nil {
		return QuoteDetail{}, err
	}
	if _, err := s.ownedQuote(ctx, session, quoteID); err != nil {
		return QuoteDetail{}, err
	}

	view, err := s.repos.Quotes.GetQuoteView(ctx, quoteID)
	if err != nil {
		return QuoteDetail{}, err
	}
	inspections, err := s.repos.Inspections.ListInspections(ctx, quoteID)
	if err != nil {
		return QuoteDetail{}, err
	}
	return QuoteDetail{View: view, Inspections: inspections}, nil
}

// Dashboard loads the user's quotes and stats, re-arming any valuation left without a timer.
func (s *Service) Dashboard(ctx context.Context, session *ports.Session) (Dashboard, error) {
	if err := s.ready(ctx); err != nil {
		return Dashboard{}, err
	}
	if session == nil {
		return Dashboard{}, &domainoffer.PreconditionError{Missing: domainoffer.MissingSession}
	}

	if resumed, err := s.ResumeStaleValuations(ctx, session); err != nil {
		logging.Warn(ctx, "resume valuations on dashboard failed",
			slog.String("component", "dashboard"),
			slog.String("user_id", session.UserID),
			slog.Any("err", errs.Loggable(err)),
		)
	} else if resumed > 0 {
		logging.Info(ctx, "valuations resumed",
			slog.String("component", "dashboard"),
			slog.String("user_id", session.UserID),
			slog.Int("count", resumed),
		)
	}

	quotes, err := s.repos.Quotes.ListQuotes(ctx, ports.QuoteFilter{UserID: session.UserID})
	if err != nil {
		return Dashboard{}, err
	}
	unread, err := s.repos.Notifications.CountUnread(ctx, session.UserID)
	if err != nil {
		return Dashboard{}, err
	}
	notifications, err := s.repos.Notifications.ListNotifications(ctx, session.UserID, false, dashboardNotificationLimit)
	if err != nil {
		return Dashboard{}, err
	}

	stats := ComputeStats(quotes)
	stats.UnreadNotifications = unread
	return Dashboard{Quotes: quotes, Stats: stats, Notifications: notifications}, nil
}

// ComputeStats counts pending quotes as active and accepted or closed ones as completed.
func ComputeStats(quotes []ports.QuoteView) DashboardStats {
	properties := make(map[string]struct{}, len(quotes))
	stats := DashboardStats{TotalQuotes: len(quotes)}
	for _, q := range quotes {
		properties[q.Quote.PropertyID] = struct{}{}
		switch q.Quote.Status {
		case domainoffer.QuoteStatusPending:
			stats.ActiveQuotes++
		case domainoffer.QuoteStatusAccepted, domainoffer.QuoteStatusClosed:
			stats.CompletedQuotes++
		}
	}
	stats.Properties = len(properties)
	return stats
}

func (s *Service) ListNotifications(ctx context.Context, session *ports.Session, unreadOnly bool, limit int) ([]ports.NotificationRecord, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	if session == nil {
		return nil, &domainoffer.PreconditionError{Missing: domainoffer.MissingSession}
	}
	return s.repos.Notifications.ListNotifications(ctx, session.UserID, unreadOnly, limit)
}

// MarkNotificationsRead marks the given notifications read, or all of them when ids is empty.
func (s *Service) MarkNotificationsRead(ctx context.Context, session *ports.Session, ids []string) (int64, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	if session == nil {
		return 0, &domainoffer.PreconditionError{Missing: domainoffer.MissingSession}
	}
	return s.repos.Notifications.MarkRead(ctx, session.UserID, ids, s.clock())
}

// ValidateStep runs the validator of one wizard step without storing anything.
func (s *Service) ValidateStep(data domainoffer.StepData) domainoffer.FieldErrors {
	return domainoffer.ValidateStep(data, s.clock())
}
