package offer

import (
	"errors"
	"testing"
)

func TestQuoteTransitionsAreForwardOnly(t *testing.T) {
	allowed := [][2]QuoteStatus{
		{QuoteStatusPending, QuoteStatusAwaitingInspection},
		{QuoteStatusAwaitingInspection, QuoteStatusAwaitingFormalOffer},
		{QuoteStatusAwaitingFormalOffer, QuoteStatusAwaitingCustomerReview},
		{QuoteStatusAwaitingCustomerReview, QuoteStatusAccepted},
		{QuoteStatusAwaitingCustomerReview, QuoteStatusDeclined},
		{QuoteStatusAccepted, QuoteStatusClosed},
		{QuoteStatusDeclined, QuoteStatusClosed},
	}
	for _, pair := range allowed {
		if err := EnsureTransition(pair[0], pair[1]); err != nil {
			t.Fatalf("EnsureTransition(%s, %s) error = %v", pair[0], pair[1], err)
		}
	}

	rejected := [][2]QuoteStatus{
		{QuoteStatusAwaitingInspection, QuoteStatusPending},
		{QuoteStatusPending, QuoteStatusAccepted},
		{QuoteStatusPending, QuoteStatusPending},
		{QuoteStatusAccepted, QuoteStatusDeclined},
		{QuoteStatusClosed, QuoteStatusPending},
	}
	for _, pair := range rejected {
		err := EnsureTransition(pair[0], pair[1])
		if !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("EnsureTransition(%s, %s) error = %v, want ErrInvalidTransition", pair[0], pair[1], err)
		}
	}
}

func TestParseQuoteStatus(t *testing.T) {
	got, err := ParseQuoteStatus(" Awaiting_Inspection ")
	if err != nil || got != QuoteStatusAwaitingInspection {
		t.Fatalf("ParseQuoteStatus() = %q, %v", got, err)
	}
	if _, err := ParseQuoteStatus("calculating"); !errors.Is(err, ErrInvalidQuoteStatus) {
		t.Fatalf("ParseQuoteStatus(calculating) error = %v", err)
	}
}

func TestQuoteStatusPredicates(t *testing.T) {
	if !QuoteStatusPending.IsActive() || QuoteStatusAwaitingInspection.IsActive() {
		t.Fatalf("IsActive() mismatch")
	}
	for _, s := range []QuoteStatus{QuoteStatusAccepted, QuoteStatusDeclined, QuoteStatusClosed} {
		if !s.IsTerminal() {
			t.Fatalf("%s.IsTerminal() = false", s)
		}
	}
	if QuoteStatusAwaitingCustomerReview.IsTerminal() {
		t.Fatalf("awaiting_customer_review should not be terminal")
	}
}

func TestStepParsing(t *testing.T) {
	for _, tc := range []struct {
		raw  string
		want Step
	}{
		{"address", StepAddress},
		{"2", StepDetails},
		{"condition", StepCondition},
		{"4", StepContact},
	} {
		got, ok := ParseStep(tc.raw)
		if !ok || got != tc.want {
			t.Fatalf("ParseStep(%q) = %v, %v", tc.raw, got, ok)
		}
	}
	if _, ok := ParseStep("5"); ok {
		t.Fatalf("ParseStep(5) should fail")
	}
}
