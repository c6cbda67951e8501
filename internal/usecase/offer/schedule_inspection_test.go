package offer

import (
	"context"
	"errors"
	"testing"
	"time"

	domainoffer "cashoffer/internal/domain/offer"
)

func TestScheduleInspectionMovesQuoteToAwaitingFormalOffer(t *testing.T) {
	env := setupEnv(t, nil)
	ctx := context.Background()
	session := verifiedSession("user-1")
	quoteID := valuate(t, env, "user-1")
	quote, _ := env.repos.Quotes.GetQuote(ctx, quoteID)

	day := env.clock.now.AddDate(0, 0, 5)
	inspection, err := env.svc.ScheduleInspection(ctx, session, ScheduleInspectionInput{
		QuoteID:    quoteID,
		PropertyID: quote.PropertyID,
		Date:       day,
		Slot:       "afternoon",
		Notes:      "Gate code 1234",
	})
	if err != nil {
		t.Fatalf("ScheduleInspection() error = %v", err)
	}

	want := time.Date(2026, time.March, 15, 14, 0, 0, 0, time.UTC)
	if !inspection.ScheduledDate.Equal(want) {
		t.Fatalf("scheduled = %v, want %v", inspection.ScheduledDate, want)
	}
	if inspection.Status != domainoffer.InspectionScheduled || inspection.Notes == nil || *inspection.Notes != "Gate code 1234" {
		t.Fatalf("inspection = %+v", inspection)
	}

	detail, err := env.svc.GetQuote(ctx, session, quoteID)
	if err != nil {
		t.Fatalf("GetQuote() error = %v", err)
	}
	if detail.View.Quote.Status != domainoffer.QuoteStatusAwaitingFormalOffer {
		t.Fatalf("status = %s", detail.View.Quote.Status)
	}
	if len(detail.Inspections) != 1 || detail.Inspections[0].ID != inspection.ID {
		t.Fatalf("inspections = %+v", detail.Inspections)
	}

	notes, _ := env.repos.Notifications.ListNotifications(ctx, "user-1", false, 10)
	found := false
	for _, n := range notes {
		if n.Type == domainoffer.NotificationInspectionScheduled && n.Title == "Inspection Scheduled" {
			found = true
		}
	}
	if !found {
		t.Fatalf("missing inspection notification in %+v", notes)
	}

	_, err = env.svc.ScheduleInspection(ctx, session, ScheduleInspectionInput{QuoteID: quoteID, Date: day, Slot: "morning"})
	if !errors.Is(err, domainoffer.ErrInvalidTransition) {
		t.Fatalf("second ScheduleInspection() error = %v", err)
	}
}

func TestScheduleInspectionRejections(t *testing.T) {
	env := setupEnv(t, nil)
	ctx := context.Background()
	pending := submitSample(t, env, "user-1")
	ready := valuate(t, env, "user-1")
	day := env.clock.now.AddDate(0, 0, 5)

	cases := []struct {
		name  string
		input ScheduleInspectionInput
		user  string
		want  error
	}{
		{
			name:  "pending quote",
			input: ScheduleInspectionInput{QuoteID: pending, Date: day, Slot: "afternoon"},
			user:  "user-1",
			want:  domainoffer.ErrInvalidTransition,
		},
		{
			name:  "tomorrow is too early",
			input: ScheduleInspectionInput{QuoteID: ready, Date: env.clock.now.AddDate(0, 0, 1), Slot: "morning"},
			user:  "user-1",
			want:  domainoffer.ErrOutsideSchedulingWindow,
		},
		{
			name:  "beyond the window",
			input: ScheduleInspectionInput{QuoteID: ready, Date: env.clock.now.AddDate(0, 0, 32), Slot: "morning"},
			user:  "user-1",
			want:  domainoffer.ErrOutsideSchedulingWindow,
		},
		{
			name:  "unknown slot",
			input: ScheduleInspectionInput{QuoteID: ready, Date: day, Slot: "midnight"},
			user:  "user-1",
			want:  domainoffer.ErrUnknownSlot,
		},
		{
			name:  "another user's quote",
			input: ScheduleInspectionInput{QuoteID: ready, Date: day, Slot: "evening"},
			user:  "user-2",
			want:  domainoffer.ErrNotOwner,
		},
		{
			name:  "wrong property",
			input: ScheduleInspectionInput{QuoteID: ready, PropertyID: "other", Date: day, Slot: "evening"},
			user:  "user-1",
			want:  domainoffer.ErrPropertyMismatch,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.svc.ScheduleInspection(ctx, verifiedSession(tc.user), tc.input)
			var schedErr *domainoffer.SchedulingError
			if !errors.As(err, &schedErr) {
				t.Fatalf("ScheduleInspection() error = %v, want *SchedulingError", err)
			}
			if !errors.Is(err, tc.want) {
				t.Fatalf("ScheduleInspection() error = %v, want %v", err, tc.want)
			}
		})
	}

	quote, _ := env.repos.Quotes.GetQuote(ctx, ready)
	if quote.Status != domainoffer.QuoteStatusAwaitingInspection {
		t.Fatalf("rejected scheduling changed status to %s", quote.Status)
	}
	inspections, _ := env.repos.Inspections.ListInspections(ctx, ready)
	if len(inspections) != 0 {
		t.Fatalf("rejected scheduling left %d inspections", len(inspections))
	}

	_, err := env.svc.ScheduleInspection(ctx, nil, ScheduleInspectionInput{QuoteID: ready, Date: day, Slot: "morning"})
	if !errors.Is(err, domainoffer.ErrPreconditionFailed) {
		t.Fatalf("ScheduleInspection(nil session) error = %v", err)
	}
}
