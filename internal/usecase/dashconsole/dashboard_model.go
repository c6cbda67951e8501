package dashconsole

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"cashoffer/internal/bootstrap/logging"
	domainoffer "cashoffer/internal/domain/offer"
	"cashoffer/internal/ports"
	"cashoffer/internal/usecase/offer"
)

const maxShownNotifications = 5
const maxAuditLines = 8

// Source is the slice of the quote service the dashboard reads and acts through.
type Source interface {
	Dashboard(ctx context.Context, session *ports.Session) (offer.Dashboard, error)
	GetQuote(ctx context.Context, session *ports.Session, quoteID string) (offer.QuoteDetail, error)
	RespondToQuote(ctx context.Context, session *ports.Session, quoteID string, decision domainoffer.QuoteStatus) (ports.QuoteRecord, error)
	MarkNotificationsRead(ctx context.Context, session *ports.Session, ids []string) (int64, error)
}

type Options struct {
	Session         *ports.Session
	RefreshInterval time.Duration
	// Updates, when set, triggers a reload on every quote event.
	Updates <-chan ports.QuoteEvent
}

type dashboardModel struct {
	ctx             context.Context
	source          Source
	session         *ports.Session
	refreshInterval time.Duration
	updates         <-chan ports.QuoteEvent

	dashboard     offer.Dashboard
	loaded        bool
	selectedIndex int
	detail        offer.QuoteDetail
	hasDetail     bool
	status        string
	auditLogs     []string
}

type dashboardLoadedMsg struct {
	dashboard offer.Dashboard
	err       error
}

type quoteDetailLoadedMsg struct {
	quoteID string
	detail  offer.QuoteDetail
	err     error
}

type quoteEventMsg struct {
	event ports.QuoteEvent
	open  bool
}

type tickMsg struct{}

type actionDoneMsg struct {
	action  string
	quoteID string
	result  string
	err     error
}

func NewDashboardModel(ctx context.Context, source Source, options Options) tea.Model {
	interval := options.RefreshInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &dashboardModel{
		ctx:             ctx,
		source:          source,
		session:         options.Session,
		refreshInterval: interval,
		updates:         options.Updates,
		status:          "loading",
	}
}

func (m *dashboardModel) Init() tea.Cmd {
	return tea.Batch(m.loadDashboardCmd(), m.tickCmd(), m.waitForEventCmd())
}

func (m *dashboardModel) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := message.(type) {
	case tickMsg:
		return m, tea.Batch(m.loadDashboardCmd(), m.tickCmd())
	case quoteEventMsg:
		if !msg.open {
			m.updates = nil
			return m, nil
		}
		m.status = fmt.Sprintf("quote %s: %s", shortID(msg.event.QuoteID), msg.event.Type)
		return m, tea.Batch(m.loadDashboardCmd(), m.waitForEventCmd())
	case dashboardLoadedMsg:
		if msg.err != nil {
			m.status = "refresh failed: " + msg.err.Error()
			return m, nil
		}
		m.dashboard = msg.dashboard
		m.loaded = true
		quotes := m.dashboard.Quotes
		if len(quotes) == 0 {
			m.selectedIndex = 0
			m.hasDetail = false
			m.status = "no quotes yet"
			return m, nil
		}
		if m.selectedIndex < 0 {
			m.selectedIndex = 0
		}
		if m.selectedIndex >= len(quotes) {
			m.selectedIndex = len(quotes) - 1
		}
		return m, m.loadSelectedDetailCmd()
	case quoteDetailLoadedMsg:
		if !m.isCurrentSelection(msg.quoteID) {
			return m, nil
		}
		if msg.err != nil {
			m.hasDetail = false
			m.status = "detail failed: " + msg.err.Error()
			return m, nil
		}
		m.detail = msg.detail
		m.hasDetail = true
		return m, nil
	case actionDoneMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("%s failed: %v", msg.action, msg.err)
			m.appendAuditLog(msg.action, msg.quoteID, "", msg.err)
		} else {
			m.status = fmt.Sprintf("%s done: %s", msg.action, msg.result)
			m.appendAuditLog(msg.action, msg.quoteID, msg.result, nil)
		}
		return m, m.loadDashboardCmd()
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "g":
			m.status = "refreshing"
			return m, m.loadDashboardCmd()
		case "up", "k":
			if m.selectedIndex > 0 {
				m.selectedIndex--
				return m, m.loadSelectedDetailCmd()
			}
			return m, nil
		case "down", "j":
			if m.selectedIndex < len(m.dashboard.Quotes)-1 {
				m.selectedIndex++
				return m, m.loadSelectedDetailCmd()
			}
			return m, nil
		case "a":
			return m, m.respondCmd(domainoffer.QuoteStatusAccepted)
		case "d":
			return m, m.respondCmd(domainoffer.QuoteStatusDeclined)
		case "n":
			return m, m.markReadCmd()
		}
	}
	return m, nil
}

func (m *dashboardModel) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true)
	sectionStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	selectedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Background(lipgloss.Color("62"))
	offerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))

	var builder strings.Builder
	builder.WriteString(titleStyle.Render("Cash Offer Dashboard"))
	builder.WriteString("\n")
	email := "-"
	if m.session != nil {
		email = m.session.Email
	}
	stats := m.dashboard.Stats
	builder.WriteString(dimStyle.Render(fmt.Sprintf(
		"user=%s active=%d total=%d properties=%d completed=%d unread=%d refresh=%s",
		email,
		stats.ActiveQuotes,
		stats.TotalQuotes,
		stats.Properties,
		stats.CompletedQuotes,
		stats.UnreadNotifications,
		m.refreshInterval,
	)))
	builder.WriteString("\n\n")

	builder.WriteString(sectionStyle.Render("Quotes"))
	builder.WriteString("\n")
	if len(m.dashboard.Quotes) == 0 {
		builder.WriteString(dimStyle.Render("- no quotes"))
		builder.WriteString("\n\n")
	} else {
		for index, view := range m.dashboard.Quotes {
			line := quoteLine(view)
			if index == m.selectedIndex {
				builder.WriteString(selectedStyle.Render("> " + line))
			} else {
				builder.WriteString("  " + line)
			}
			builder.WriteString("\n")
		}
		builder.WriteString("\n")
	}

	builder.WriteString(sectionStyle.Render("Detail"))
	builder.WriteString("\n")
	if !m.hasDetail {
		builder.WriteString(dimStyle.Render("- no detail"))
		builder.WriteString("\n\n")
	} else {
		q := m.detail.View.Quote
		p := m.detail.View.Property
		builder.WriteString(fmt.Sprintf("Quote: %s\n", q.ID))
		builder.WriteString(fmt.Sprintf("Property: %s\n", p.Address))
		builder.WriteString(fmt.Sprintf("Status: %s\n", statusLabel(q.Status)))
		builder.WriteString("Offer: " + offerStyle.Render(offerText(m.detail.View)) + "\n")
		if completed, ok := q.Calculation.(domainoffer.Completed); ok {
			builder.WriteString(fmt.Sprintf("Confidence: %d%%\n", completed.PriceRange.Confidence))
		}
		builder.WriteString(fmt.Sprintf("Expires: %s\n", q.ExpiresAt.Format(time.DateOnly)))
		if len(m.detail.Inspections) == 0 {
			builder.WriteString("Inspection: none\n")
		} else {
			for _, inspection := range m.detail.Inspections {
				builder.WriteString(fmt.Sprintf("Inspection: %s (%s)\n",
					inspection.ScheduledDate.Format("Mon Jan 2 15:04"), inspection.Status))
			}
		}
		builder.WriteString("\n")
	}

	builder.WriteString(sectionStyle.Render("Notifications"))
	builder.WriteString("\n")
	notifications := m.dashboard.Notifications
	if len(notifications) == 0 {
		builder.WriteString(dimStyle.Render("- none"))
		builder.WriteString("\n")
	} else {
		if len(notifications) > maxShownNotifications {
			notifications = notifications[:maxShownNotifications]
		}
		for _, n := range notifications {
			marker := " "
			if !n.IsRead {
				marker = "*"
			}
			builder.WriteString(fmt.Sprintf("%s %s: %s\n", marker, n.Title, n.Message))
		}
	}
	builder.WriteString("\n")

	builder.WriteString(sectionStyle.Render("Status"))
	builder.WriteString("\n")
	builder.WriteString("- " + firstNonEmpty(m.status, "ready"))
	builder.WriteString("\n\n")

	if len(m.auditLogs) > 0 {
		builder.WriteString(sectionStyle.Render("Activity"))
		builder.WriteString("\n")
		for _, line := range m.auditLogs {
			builder.WriteString("- " + line)
			builder.WriteString("\n")
		}
		builder.WriteString("\n")
	}

	builder.WriteString(dimStyle.Render("Keys: ↑/k ↓/j move  g refresh  a accept  d decline  n mark read  q quit"))
	return builder.String()
}

func (m *dashboardModel) tickCmd() tea.Cmd {
	return tea.Tick(m.refreshInterval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

func (m *dashboardModel) waitForEventCmd() tea.Cmd {
	if m.updates == nil {
		return nil
	}
	updates := m.updates
	return func() tea.Msg {
		event, ok := <-updates
		return quoteEventMsg{event: event, open: ok}
	}
}

func (m *dashboardModel) loadDashboardCmd() tea.Cmd {
	return func() tea.Msg {
		dashboard, err := m.source.Dashboard(m.ctx, m.session)
		return dashboardLoadedMsg{dashboard: dashboard, err: err}
	}
}

func (m *dashboardModel) loadSelectedDetailCmd() tea.Cmd {
	view, ok := m.selectedQuote()
	if !ok {
		return nil
	}
	quoteID := view.Quote.ID
	return func() tea.Msg {
		detail, err := m.source.GetQuote(m.ctx, m.session, quoteID)
		return quoteDetailLoadedMsg{quoteID: quoteID, detail: detail, err: err}
	}
}

func (m *dashboardModel) respondCmd(decision domainoffer.QuoteStatus) tea.Cmd {
	view, ok := m.selectedQuote()
	if !ok {
		m.status = "no quote selected"
		return nil
	}
	if view.Quote.Status != domainoffer.QuoteStatusAwaitingCustomerReview {
		m.status = "no offer to respond to yet"
		return nil
	}
	action := "accept"
	if decision == domainoffer.QuoteStatusDeclined {
		action = "decline"
	}
	quoteID := view.Quote.ID
	m.status = action + " in progress"
	return func() tea.Msg {
		quote, err := m.source.RespondToQuote(m.ctx, m.session, quoteID, decision)
		if err != nil {
			return actionDoneMsg{action: action, quoteID: quoteID, err: err}
		}
		return actionDoneMsg{action: action, quoteID: quoteID, result: string(quote.Status)}
	}
}

func (m *dashboardModel) markReadCmd() tea.Cmd {
	if m.dashboard.Stats.UnreadNotifications == 0 {
		m.status = "no unread notifications"
		return nil
	}
	return func() tea.Msg {
		marked, err := m.source.MarkNotificationsRead(m.ctx, m.session, nil)
		if err != nil {
			return actionDoneMsg{action: "mark read", err: err}
		}
		return actionDoneMsg{action: "mark read", result: strconv.FormatInt(marked, 10)}
	}
}

func (m *dashboardModel) selectedQuote() (ports.QuoteView, bool) {
	quotes := m.dashboard.Quotes
	if m.selectedIndex < 0 || m.selectedIndex >= len(quotes) {
		return ports.QuoteView{}, false
	}
	return quotes[m.selectedIndex], true
}

func (m *dashboardModel) isCurrentSelection(quoteID string) bool {
	selected, ok := m.selectedQuote()
	if !ok {
		return false
	}
	return selected.Quote.ID == quoteID
}

func (m *dashboardModel) appendAuditLog(action string, quoteID string, result string, opErr error) {
	outcome := strings.TrimSpace(result)
	if opErr != nil {
		outcome = "error: " + opErr.Error()
	}
	if outcome == "" {
		outcome = "ok"
	}

	timestamp := time.Now().UTC().Format(time.RFC3339)
	line := fmt.Sprintf("%s quote=%s action=%s result=%s", timestamp, firstNonEmpty(shortID(quoteID), "-"), action, outcome)
	m.auditLogs = append([]string{line}, m.auditLogs...)
	if len(m.auditLogs) > maxAuditLines {
		m.auditLogs = m.auditLogs[:maxAuditLines]
	}

	userID := ""
	if m.session != nil {
		userID = m.session.UserID
	}
	logging.Info(m.ctx, "dashboard action",
		slog.String("user_id", userID),
		slog.String("quote_id", quoteID),
		slog.String("action", action),
		slog.String("result", outcome),
	)
}

func quoteLine(view ports.QuoteView) string {
	return fmt.Sprintf("%s [%s] %s %s",
		shortID(view.Quote.ID),
		statusLabel(view.Quote.Status),
		view.Property.Address,
		offerText(view),
	)
}

// offerText shows the range of a completed valuation, or a placeholder while it runs.
func offerText(view ports.QuoteView) string {
	if view.Quote.Calculating() {
		return "calculating..."
	}
	if completed, ok := view.Quote.Calculation.(domainoffer.Completed); ok &&
		view.Quote.Status == domainoffer.QuoteStatusAwaitingInspection {
		return fmt.Sprintf("%s - %s", dollars(completed.PriceRange.Low), dollars(completed.PriceRange.High))
	}
	amount, _ := view.DisplayAmount()
	return dollars(amount)
}

func statusLabel(status domainoffer.QuoteStatus) string {
	switch status {
	case domainoffer.QuoteStatusPending:
		return "pending"
	case domainoffer.QuoteStatusAwaitingInspection:
		return "awaiting inspection"
	case domainoffer.QuoteStatusAwaitingFormalOffer:
		return "awaiting formal offer"
	case domainoffer.QuoteStatusAwaitingCustomerReview:
		return "offer ready"
	case domainoffer.QuoteStatusAccepted:
		return "accepted"
	case domainoffer.QuoteStatusDeclined:
		return "declined"
	case domainoffer.QuoteStatusClosed:
		return "closed"
	}
	return string(status)
}

func dollars(amount int) string {
	raw := strconv.Itoa(amount)
	var out strings.Builder
	out.WriteByte('$')
	for i := range raw {
		if i > 0 && (len(raw)-i)%3 == 0 {
			out.WriteByte(',')
		}
		out.WriteByte(raw[i])
	}
	return out.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		normalized := strings.TrimSpace(value)
		if normalized != "" {
			return normalized
		}
	}
	return ""
}
