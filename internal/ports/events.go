package ports

import (
	"context"
	"time"
)

type QuoteEventType string

const (
	QuoteEventSubmitted           QuoteEventType = "quote_submitted"
	QuoteEventValuationCompleted  QuoteEventType = "valuation_completed"
	QuoteEventInspectionScheduled QuoteEventType = "inspection_scheduled"
	QuoteEventOfferMade           QuoteEventType = "offer_made"
	QuoteEventResponded           QuoteEventType = "quote_responded"
	QuoteEventClosed              QuoteEventType = "quote_closed"
)

// QuoteEvent tells listening UIs that a quote of UserID changed.
type QuoteEvent struct {
	Type    QuoteEventType `json:"type"`
	QuoteID string         `json:"quote_id"`
	UserID  string         `json:"user_id"`
	Status  string         `json:"status"`
	Amount  int            `json:"amount"`
	At      time.Time      `json:"at"`
}

// QuoteEvents publishes quote changes. Delivery is best effort.
type QuoteEvents interface {
	Publish(ctx context.Context, event QuoteEvent)
}
