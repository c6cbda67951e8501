package offer

import (
	"context"
	"errors"
	"testing"

	domainoffer "cashoffer/internal/domain/offer"
	"cashoffer/internal/ports"
)

// inspected returns a quote of userID that awaits its formal offer.
func inspected(t *testing.T, env *testEnv, userID string) string {
	t.Helper()
	quoteID := valuate(t, env, userID)
	_, err := env.svc.ScheduleInspection(context.Background(), verifiedSession(userID), ScheduleInspectionInput{
		QuoteID: quoteID,
		Date:    env.clock.now.AddDate(0, 0, 3),
		Slot:    "morning",
	})
	if err != nil {
		t.Fatalf("ScheduleInspection() error = %v", err)
	}
	return quoteID
}

func TestFormalOfferAcceptAndClose(t *testing.T) {
	env := setupEnv(t, nil)
	ctx := context.Background()
	session := verifiedSession("user-1")
	quoteID := inspected(t, env, "user-1")

	if err := env.svc.MakeFormalOffer(ctx, quoteID, 0); !errors.Is(err, domainoffer.ErrInvalidAmount) {
		t.Fatalf("MakeFormalOffer(0) error = %v", err)
	}
	if err := env.svc.MakeFormalOffer(ctx, quoteID, 265000); err != nil {
		t.Fatalf("MakeFormalOffer() error = %v", err)
	}
	quote, _ := env.repos.Quotes.GetQuote(ctx, quoteID)
	if quote.Status != domainoffer.QuoteStatusAwaitingCustomerReview || quote.Amount != 265000 {
		t.Fatalf("quote after offer = %+v", quote)
	}

	if err := env.svc.CloseQuote(ctx, quoteID); !errors.Is(err, domainoffer.ErrInvalidTransition) {
		t.Fatalf("CloseQuote() before decision error = %v", err)
	}
	if _, err := env.svc.RespondToQuote(ctx, verifiedSession("user-2"), quoteID, domainoffer.QuoteStatusAccepted); !errors.Is(err, domainoffer.ErrNotOwner) {
		t.Fatalf("RespondToQuote(other user) error = %v", err)
	}
	if _, err := env.svc.RespondToQuote(ctx, session, quoteID, domainoffer.QuoteStatusClosed); !errors.Is(err, domainoffer.ErrInvalidQuoteStatus) {
		t.Fatalf("RespondToQuote(closed) error = %v", err)
	}

	responded, err := env.svc.RespondToQuote(ctx, session, quoteID, domainoffer.QuoteStatusAccepted)
	if err != nil {
		t.Fatalf("RespondToQuote() error = %v", err)
	}
	if responded.Status != domainoffer.QuoteStatusAccepted {
		t.Fatalf("responded status = %s", responded.Status)
	}
	if _, err := env.svc.RespondToQuote(ctx, session, quoteID, domainoffer.QuoteStatusDeclined); !errors.Is(err, domainoffer.ErrInvalidTransition) {
		t.Fatalf("second RespondToQuote() error = %v", err)
	}

	history, err := env.repos.History.ListHistory(ctx, quote.PropertyID)
	if err != nil {
		t.Fatalf("ListHistory() error = %v", err)
	}
	if len(history) != 1 || history[0].ChangeType != "quote_accepted" || history[0].NewValues["quote_id"] != quoteID {
		t.Fatalf("history = %+v", history)
	}

	notes, _ := env.repos.Notifications.ListNotifications(ctx, "user-1", false, 20)
	var titles []string
	for _, n := range notes {
		titles = append(titles, n.Title)
	}
	if !containsString(titles, "Offer Accepted!") || !containsString(titles, "Your formal offer is ready") {
		t.Fatalf("notification titles = %v", titles)
	}

	if err := env.svc.CloseQuote(ctx, quoteID); err != nil {
		t.Fatalf("CloseQuote() error = %v", err)
	}
	quote, _ = env.repos.Quotes.GetQuote(ctx, quoteID)
	if quote.Status != domainoffer.QuoteStatusClosed {
		t.Fatalf("status after close = %s", quote.Status)
	}
	if err := env.svc.CloseQuote(ctx, quoteID); !errors.Is(err, domainoffer.ErrInvalidTransition) {
		t.Fatalf("second CloseQuote() error = %v", err)
	}
}

func TestRespondToQuoteDeclineRecordsHistory(t *testing.T) {
	env := setupEnv(t, nil)
	ctx := context.Background()
	quoteID := inspected(t, env, "user-1")
	if err := env.svc.MakeFormalOffer(ctx, quoteID, 240000); err != nil {
		t.Fatalf("MakeFormalOffer() error = %v", err)
	}

	updates, cancel := env.broker.Subscribe("user-1")
	defer cancel()

	quote, err := env.svc.RespondToQuote(ctx, verifiedSession("user-1"), quoteID, domainoffer.QuoteStatusDeclined)
	if err != nil {
		t.Fatalf("RespondToQuote() error = %v", err)
	}
	history, _ := env.repos.History.ListHistory(ctx, quote.PropertyID)
	if len(history) != 1 || history[0].ChangeType != "quote_declined" || history[0].ChangedBy != "user-1" {
		t.Fatalf("history = %+v", history)
	}

	event := <-updates
	if event.Type != ports.QuoteEventResponded || event.Status != string(domainoffer.QuoteStatusDeclined) {
		t.Fatalf("event = %+v", event)
	}
}

func TestMakeFormalOfferRequiresInspection(t *testing.T) {
	env := setupEnv(t, nil)
	ctx := context.Background()
	quoteID := valuate(t, env, "user-1")

	if err := env.svc.MakeFormalOffer(ctx, quoteID, 250000); !errors.Is(err, domainoffer.ErrInvalidTransition) {
		t.Fatalf("MakeFormalOffer() error = %v", err)
	}
	quote, _ := env.repos.Quotes.GetQuote(ctx, quoteID)
	if quote.Status != domainoffer.QuoteStatusAwaitingInspection {
		t.Fatalf("status = %s", quote.Status)
	}
}

func TestDashboardStatsAndNotifications(t *testing.T) {
	env := setupEnv(t, nil)
	ctx := context.Background()
	session := verifiedSession("user-1")

	submitSample(t, env, "user-1")
	valuate(t, env, "user-1")
	closed := inspected(t, env, "user-1")
	if err := env.svc.MakeFormalOffer(ctx, closed, 250000); err != nil {
		t.Fatalf("MakeFormalOffer() error = %v", err)
	}
	if _, err := env.svc.RespondToQuote(ctx, session, closed, domainoffer.QuoteStatusAccepted); err != nil {
		t.Fatalf("RespondToQuote() error = %v", err)
	}
	submitSample(t, env, "user-2")

	dash, err := env.svc.Dashboard(ctx, session)
	if err != nil {
		t.Fatalf("Dashboard() error = %v", err)
	}
	want := DashboardStats{ActiveQuotes: 1, TotalQuotes: 3, Properties: 3, CompletedQuotes: 1}
	got := dash.Stats
	got.UnreadNotifications = 0
	if got != want {
		t.Fatalf("stats = %+v, want %+v", got, want)
	}
	if dash.Stats.UnreadNotifications == 0 || len(dash.Notifications) == 0 {
		t.Fatalf("dashboard notifications = %d unread, %d listed", dash.Stats.UnreadNotifications, len(dash.Notifications))
	}
	for _, view := range dash.Quotes {
		if view.Quote.UserID != "user-1" {
			t.Fatalf("dashboard leaked quote of %s", view.Quote.UserID)
		}
		if _, shown := view.DisplayAmount(); shown == view.Quote.Calculating() {
			t.Fatalf("display amount of %s shown=%v while calculating=%v", view.Quote.ID, shown, view.Quote.Calculating())
		}
	}

	// The pending quote had no timer; loading the dashboard arms it.
	pending, _ := env.repos.Quotes.ListCalculating(ctx, "user-1")
	if len(pending) != 1 {
		t.Fatalf("calculating quotes = %d", len(pending))
	}
	if _, found, _ := env.repos.Jobs.GetJob(ctx, pending[0].ID); !found {
		t.Fatalf("dashboard did not resume the pending valuation")
	}

	marked, err := env.svc.MarkNotificationsRead(ctx, session, nil)
	if err != nil || marked != dash.Stats.UnreadNotifications {
		t.Fatalf("MarkNotificationsRead() = %d, %v", marked, err)
	}
	unread, _ := env.svc.ListNotifications(ctx, session, true, 10)
	if len(unread) != 0 {
		t.Fatalf("unread after mark = %d", len(unread))
	}
}

func TestGetQuoteChecksOwnership(t *testing.T) {
	env := setupEnv(t, nil)
	ctx := context.Background()
	quoteID := submitSample(t, env, "user-1")

	if _, err := env.svc.GetQuote(ctx, verifiedSession("user-2"), quoteID); !errors.Is(err, domainoffer.ErrNotOwner) {
		t.Fatalf("GetQuote(other user) error = %v", err)
	}
	if _, err := env.svc.GetQuote(ctx, verifiedSession("user-1"), "missing"); !errors.Is(err, domainoffer.ErrQuoteNotFound) {
		t.Fatalf("GetQuote(missing) error = %v", err)
	}
	all, err := env.svc.ListAllQuotes(ctx, ports.QuoteFilter{Statuses: []domainoffer.QuoteStatus{domainoffer.QuoteStatusPending}})
	if err != nil || len(all) != 1 {
		t.Fatalf("ListAllQuotes() = %d, %v", len(all), err)
	}
}

func containsString(items []string, want string) bool {
	for _, item := range items {
		if item == want {
			return true
		}
	}
	return false
}
