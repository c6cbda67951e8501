package dashconsole

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	domainoffer "cashoffer/internal/domain/offer"
	"cashoffer/internal/ports"
	"cashoffer/internal/usecase/offer"
)

type fakeSource struct {
	dashboard offer.Dashboard
	responded []domainoffer.QuoteStatus
	marked    int
}

func (f *fakeSource) Dashboard(context.Context, *ports.Session) (offer.Dashboard, error) {
	return f.dashboard, nil
}

func (f *fakeSource) GetQuote(_ context.Context, _ *ports.Session, quoteID string) (offer.QuoteDetail, error) {
	for _, view := range f.dashboard.Quotes {
		if view.Quote.ID == quoteID {
			return offer.QuoteDetail{View: view}, nil
		}
	}
	return offer.QuoteDetail{}, domainoffer.ErrQuoteNotFound
}

func (f *fakeSource) RespondToQuote(_ context.Context, _ *ports.Session, quoteID string, decision domainoffer.QuoteStatus) (ports.QuoteRecord, error) {
	f.responded = append(f.responded, decision)
	return ports.QuoteRecord{ID: quoteID, Status: decision}, nil
}

func (f *fakeSource) MarkNotificationsRead(context.Context, *ports.Session, []string) (int64, error) {
	f.marked++
	return 2, nil
}

func quoteView(id string, status domainoffer.QuoteStatus, calc domainoffer.CalculationDetails, amount int) ports.QuoteView {
	return ports.QuoteView{
		Quote:    ports.QuoteRecord{ID: id, Status: status, Calculation: calc, Amount: amount},
		Property: ports.PropertyRecord{Address: "123 Main St, Springfield, IL 62704"},
	}
}

func newTestModel(source Source) *dashboardModel {
	return NewDashboardModel(context.Background(), source, Options{
		Session: &ports.Session{UserID: "user-1", Email: "seller@example.com"},
	}).(*dashboardModel)
}

func TestOfferText(t *testing.T) {
	priced := domainoffer.Completed{PriceRange: domainoffer.PriceRange{Low: 248400, High: 291600, Confidence: 88}}
	cases := []struct {
		name string
		view ports.QuoteView
		want string
	}{
		{name: "calculating", view: quoteView("q1", domainoffer.QuoteStatusPending, domainoffer.Calculating{}, 0), want: "calculating..."},
		{name: "range", view: quoteView("q2", domainoffer.QuoteStatusAwaitingInspection, priced, 270000), want: "$248,400 - $291,600"},
		{name: "formal", view: quoteView("q3", domainoffer.QuoteStatusAwaitingCustomerReview, priced, 265000), want: "$265,000"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := offerText(tc.view); got != tc.want {
				t.Fatalf("offerText() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestDashboardLoadedClampsSelectionAndLoadsDetail(t *testing.T) {
	source := &fakeSource{dashboard: offer.Dashboard{Quotes: []ports.QuoteView{
		quoteView("quote-a", domainoffer.QuoteStatusPending, domainoffer.Calculating{}, 0),
	}}}
	model := newTestModel(source)
	model.selectedIndex = 4

	next, cmd := model.Update(dashboardLoadedMsg{dashboard: source.dashboard})
	updated := next.(*dashboardModel)
	if updated.selectedIndex != 0 {
		t.Fatalf("selectedIndex = %d, want 0", updated.selectedIndex)
	}
	if cmd == nil {
		t.Fatalf("expected detail load command")
	}
	msg, ok := cmd().(quoteDetailLoadedMsg)
	if !ok || msg.quoteID != "quote-a" {
		t.Fatalf("detail message = %#v", msg)
	}
	updated.Update(msg)
	if !updated.hasDetail || updated.detail.View.Quote.ID != "quote-a" {
		t.Fatalf("detail not applied")
	}
	if !strings.Contains(updated.View(), "calculating...") {
		t.Fatalf("view should show calculating quote")
	}
}

func TestQuoteDetailLoadedIgnoresStaleSelection(t *testing.T) {
	model := newTestModel(&fakeSource{})
	model.dashboard = offer.Dashboard{Quotes: []ports.QuoteView{
		quoteView("quote-a", domainoffer.QuoteStatusPending, domainoffer.Calculating{}, 0),
		quoteView("quote-b", domainoffer.QuoteStatusPending, domainoffer.Calculating{}, 0),
	}}
	model.selectedIndex = 1

	model.Update(quoteDetailLoadedMsg{quoteID: "quote-a", detail: offer.QuoteDetail{View: model.dashboard.Quotes[0]}})
	if model.hasDetail {
		t.Fatalf("stale detail should be ignored")
	}
}

func TestRespondOnlyWhenOfferIsReady(t *testing.T) {
	source := &fakeSource{}
	model := newTestModel(source)
	model.dashboard = offer.Dashboard{Quotes: []ports.QuoteView{
		quoteView("quote-a", domainoffer.QuoteStatusAwaitingInspection, domainoffer.Completed{}, 270000),
	}}

	_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("a")})
	if cmd != nil || model.status != "no offer to respond to yet" {
		t.Fatalf("accept before offer: cmd=%v status=%q", cmd != nil, model.status)
	}

	model.dashboard.Quotes[0].Quote.Status = domainoffer.QuoteStatusAwaitingCustomerReview
	_, cmd = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")})
	if cmd == nil {
		t.Fatalf("expected decline command")
	}
	done, ok := cmd().(actionDoneMsg)
	if !ok || done.err != nil || done.result != string(domainoffer.QuoteStatusDeclined) {
		t.Fatalf("decline result = %#v", done)
	}
	model.Update(done)
	if len(source.responded) != 1 || len(model.auditLogs) != 1 {
		t.Fatalf("responded=%v audit=%v", source.responded, model.auditLogs)
	}
}

func TestClosedUpdatesStopListening(t *testing.T) {
	updates := make(chan ports.QuoteEvent)
	close(updates)
	model := NewDashboardModel(context.Background(), &fakeSource{}, Options{Updates: updates}).(*dashboardModel)

	msg := model.waitForEventCmd()()
	next, cmd := model.Update(msg)
	if cmd != nil || next.(*dashboardModel).updates != nil {
		t.Fatalf("closed updates should stop the listener")
	}
}

func TestMarkReadSkipsWhenNothingUnread(t *testing.T) {
	source := &fakeSource{}
	model := newTestModel(source)
	if cmd := model.markReadCmd(); cmd != nil {
		t.Fatalf("markReadCmd() should be nil without unread notifications")
	}
	model.dashboard.Stats.UnreadNotifications = 2
	done := model.markReadCmd()().(actionDoneMsg)
	if done.result != "2" || source.marked != 1 {
		t.Fatalf("mark read = %#v marked=%d", done, source.marked)
	}
}
