package ports

import (
	"context"
	"time"

	"cashoffer/internal/domain/offer"
)

type PropertyRecord struct {
	ID           string
	UserID       string
	Address      string
	City         string
	State        string
	ZipCode      string
	Bedrooms     float64
	Bathrooms    float64
	SquareFeet   *int
	YearBuilt    *int
	PropertyType offer.PropertyType
	LotSize      string
	Condition    offer.Condition
	Description  *string
	Status       offer.PropertyStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type QuoteRecord struct {
	ID          string
	PropertyID  string
	UserID      string
	Amount      int
	Status      offer.QuoteStatus
	Timeline    offer.Timeline
	Motivation  string
	ExpiresAt   time.Time
	Calculation offer.CalculationDetails
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Calculating reports whether the valuation of the quote is still running.
func (q QuoteRecord) Calculating() bool {
	_, ok := q.Calculation.(offer.Calculating)
	return ok
}

// QuoteView is a quote joined with its property.
type QuoteView struct {
	Quote    QuoteRecord
	Property PropertyRecord
}

// DisplayAmount returns the amount to show, or false while the valuation runs.
func (v QuoteView) DisplayAmount() (int, bool) {
	if v.Quote.Calculating() {
		return 0, false
	}
	return v.Quote.Amount, true
}

type QuoteFilter struct {
	UserID   string
	Statuses []offer.QuoteStatus
	Limit    int
}

// QuoteTransition moves a quote from one status to another only while it still has From.
type QuoteTransition struct {
	QuoteID string
	From    offer.QuoteStatus
	To      offer.QuoteStatus
	Amount  *int
	At      time.Time
}

type InspectionRecord struct {
	ID            string
	PropertyID    string
	QuoteID       string
	InspectorID   *string
	ScheduledDate time.Time
	Status        offer.InspectionStatus
	Notes         *string
	CreatedAt     time.Time
}

type NotificationRecord struct {
	ID                string
	UserID            string
	RelatedPropertyID *string
	RelatedQuoteID    *string
	Title             string
	Message           string
	Type              offer.NotificationType
	IsRead            bool
	ReadAt            *time.Time
	CreatedAt         time.Time
}

type HistoryRecord struct {
	ID         string
	PropertyID string
	ChangedBy  string
	ChangeType string
	NewValues  map[string]any
	CreatedAt  time.Time
}

type ValuationJobStatus string

const (
	ValuationJobPending ValuationJobStatus = "pending"
	ValuationJobDone    ValuationJobStatus = "done"
	// ValuationJobFailed jobs exhausted their attempts and are no longer polled.
	ValuationJobFailed ValuationJobStatus = "failed"
)

// ValuationJobFailure records one failed attempt. RetryAt becomes the new due time unless GiveUp is set.
type ValuationJobFailure struct {
	QuoteID string
	Message string
	At      time.Time
	RetryAt time.Time
	GiveUp  bool
}

// ValuationJob is the durable timer of one quote's valuation.
type ValuationJob struct {
	QuoteID   string
	DueAt     time.Time
	Status    ValuationJobStatus
	Attempts  int
	LastError string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type PropertyRepository interface {
	CreateProperty(ctx context.Context, property PropertyRecord) (PropertyRecord, error)
	GetProperty(ctx context.Context, propertyID string) (PropertyRecord, error)
}

type QuoteRepository interface {
	CreateQuote(ctx context.Context, quote QuoteRecord) (QuoteRecord, error)
	GetQuote(ctx context.Context, quoteID string) (QuoteRecord, error)
	GetQuoteView(ctx context.Context, quoteID string) (QuoteView, error)
	ListQuotes(ctx context.Context, filter QuoteFilter) ([]QuoteView, error)
	ListCalculating(ctx context.Context, userID string) ([]QuoteRecord, error)
	// RestartCalculation rewrites the running calculation of a pending quote.
	RestartCalculation(ctx context.Context, quoteID string, details offer.Calculating, at time.Time) (bool, error)
	// CompleteCalculation applies only while the quote is pending and calculating.
	CompleteCalculation(ctx context.Context, quoteID string, details offer.Completed, amount int) (bool, error)
	TransitionStatus(ctx context.Context, transition QuoteTransition) (bool, error)
}

type InspectionRepository interface {
	CreateInspection(ctx context.Context, inspection InspectionRecord) (InspectionRecord, error)
	ListInspections(ctx context.Context, quoteID string) ([]InspectionRecord, error)
}

type NotificationRepository interface {
	CreateNotification(ctx context.Context, notification NotificationRecord) (NotificationRecord, error)
	ListNotifications(ctx context.Context, userID string, unreadOnly bool, limit int) ([]NotificationRecord, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
	// MarkRead marks the given notifications of userID as read; no ids means all of them.
	MarkRead(ctx context.Context, userID string, notificationIDs []string, at time.Time) (int64, error)
}

type HistoryRepository interface {
	AppendHistory(ctx context.Context, entry HistoryRecord) error
	ListHistory(ctx context.Context, propertyID string) ([]HistoryRecord, error)
}

type ValuationJobRepository interface {
	// EnsureJob inserts job unless one exists for the quote; it returns the stored job.
	EnsureJob(ctx context.Context, job ValuationJob) (ValuationJob, bool, error)
	GetJob(ctx context.Context, quoteID string) (ValuationJob, bool, error)
	ListDueJobs(ctx context.Context, now time.Time, limit int) ([]ValuationJob, error)
	MarkJobDone(ctx context.Context, quoteID string, at time.Time) error
	RecordJobFailure(ctx context.Context, failure ValuationJobFailure) error
}
