package offer

import (
	"fmt"
	"strings"
)

type QuoteStatus string

const (
	QuoteStatusPending                QuoteStatus = "pending"
	QuoteStatusAwaitingInspection     QuoteStatus = "awaiting_inspection"
	QuoteStatusAwaitingFormalOffer    QuoteStatus = "awaiting_formal_offer"
	QuoteStatusAwaitingCustomerReview QuoteStatus = "awaiting_customer_review"
	QuoteStatusAccepted               QuoteStatus = "accepted"
	QuoteStatusDeclined               QuoteStatus = "declined"
	QuoteStatusClosed                 QuoteStatus = "closed"
)

// quoteTransitions lists the only forward moves a quote can make.
var quoteTransitions = map[QuoteStatus][]QuoteStatus{
	QuoteStatusPending:                {QuoteStatusAwaitingInspection},
	QuoteStatusAwaitingInspection:     {QuoteStatusAwaitingFormalOffer},
	QuoteStatusAwaitingFormalOffer:    {QuoteStatusAwaitingCustomerReview},
	QuoteStatusAwaitingCustomerReview: {QuoteStatusAccepted, QuoteStatusDeclined},
	QuoteStatusAccepted:               {QuoteStatusClosed},
	QuoteStatusDeclined:               {QuoteStatusClosed},
	QuoteStatusClosed:                 nil,
}

func ParseQuoteStatus(raw string) (QuoteStatus, error) {
	status := QuoteStatus(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := quoteTransitions[status]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidQuoteStatus, raw)
	}
	return status, nil
}

// IsTerminal reports whether a customer decision or closing has been reached.
func (s QuoteStatus) IsTerminal() bool {
	return s == QuoteStatusAccepted || s == QuoteStatusDeclined || s == QuoteStatusClosed
}

// IsActive matches the dashboard notion of an open request.
func (s QuoteStatus) IsActive() bool {
	return s == QuoteStatusPending
}

func CanTransition(from QuoteStatus, to QuoteStatus) bool {
	for _, next := range quoteTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// EnsureTransition returns ErrInvalidTransition for any move not in the table.
func EnsureTransition(from QuoteStatus, to QuoteStatus) error {
	if CanTransition(from, to) {
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}
