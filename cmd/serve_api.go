package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"cashoffer/internal/bootstrap/logging"
	domainoffer "cashoffer/internal/domain/offer"
	"cashoffer/internal/errs"
	"cashoffer/internal/infrastructure/identity"
	"cashoffer/internal/ports"
	"cashoffer/internal/usecase/offer"
)

type quoteAPIService interface {
	offer.Submitter
	ValidateStep(data domainoffer.StepData) domainoffer.FieldErrors
	ListQuotes(ctx context.Context, session *ports.Session) ([]ports.QuoteView, error)
	GetQuote(ctx context.Context, session *ports.Session, quoteID string) (offer.QuoteDetail, error)
	StartValuation(ctx context.Context, quoteID string) (time.Time, error)
	ScheduleInspection(ctx context.Context, session *ports.Session, input offer.ScheduleInspectionInput) (ports.InspectionRecord, error)
	RespondToQuote(ctx context.Context, session *ports.Session, quoteID string, decision domainoffer.QuoteStatus) (ports.QuoteRecord, error)
	Dashboard(ctx context.Context, session *ports.Session) (offer.Dashboard, error)
	ListNotifications(ctx context.Context, session *ports.Session, unreadOnly bool, limit int) ([]ports.NotificationRecord, error)
	MarkNotificationsRead(ctx context.Context, session *ports.Session, ids []string) (int64, error)
}

type quoteEventSubscriber interface {
	Subscribe(userID string) (<-chan ports.QuoteEvent, func())
}

type apiConfig struct {
	AuthRatePerSecond    float64
	AuthBurst            int
	RequireVerifiedEmail bool
	HeartbeatInterval    time.Duration
}

type apiHandler struct {
	quotes   quoteAPIService
	identity ports.Identity
	events   quoteEventSubscriber
	cfg      apiConfig
}

type sessionCtxKey struct{}

func newAPIHandler(quotes quoteAPIService, ident ports.Identity, events quoteEventSubscriber, cfg apiConfig) http.Handler {
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 25 * time.Second
	}
	h := &apiHandler{
		quotes:   quotes,
		identity: ident,
		events:   events,
		cfg:      cfg,
	}
	limiter := newIPRateLimiter(rate.Limit(cfg.AuthRatePerSecond), cfg.AuthBurst)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(h.authenticate)

		r.Route("/auth", func(r chi.Router) {
			r.Use(limiter.Middleware)
			r.Post("/signup", h.handleSignUp)
			r.Post("/signin", h.handleSignIn)
			r.Post("/signout", h.handleSignOut)
			r.Post("/resend-verification", h.handleResendVerification)
			r.Post("/verify", h.handleVerify)
		})
		r.Post("/intake/validate/{step}", h.handleValidateStep)

		r.Group(func(r chi.Router) {
			r.Use(h.requireSession(false))
			r.Get("/session", h.handleSession)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.requireSession(cfg.RequireVerifiedEmail))
			r.Post("/quotes", h.handleSubmitQuote)
			r.Get("/quotes", h.handleListQuotes)
			r.Get("/quotes/{quoteID}", h.handleGetQuote)
			r.Patch("/quotes/{quoteID}", h.handleRespond)
			r.Post("/quotes/{quoteID}/valuation", h.handleStartValuation)
			r.Post("/quotes/{quoteID}/inspection", h.handleScheduleInspection)
			r.Get("/dashboard", h.handleDashboard)
			r.Get("/notifications", h.handleListNotifications)
			r.Post("/notifications/read", h.handleMarkRead)
			r.Get("/events", h.handleEvents)
		})
	})
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.WithRequestID(r.Context(), middleware.GetReqID(r.Context()))
		ctx = logging.WithAttrs(
			ctx,
			slog.String("component", "http.api"),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()
		next.ServeHTTP(ww, r.WithContext(ctx))
		logging.Info(
			ctx,
			"http request served",
			slog.Int("status", ww.Status()),
			slog.Duration("elapsed", time.Since(started)),
		)
	})
}

// authenticate attaches the bearer token session when one is presented.
func (h *apiHandler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		session, err := h.identity.CurrentSession(r.Context(), token)
		if err != nil {
			writeAPIError(r.Context(), w, err)
			return
		}
		ctx := r.Context()
		if session != nil {
			ctx = context.WithValue(ctx, sessionCtxKey{}, session)
			ctx = logging.WithAttrs(ctx, slog.String("user_id", session.UserID))
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *apiHandler) requireSession(verified bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := sessionFrom(r.Context())
			if session == nil {
				writeAPIError(r.Context(), w, &domainoffer.PreconditionError{Missing: domainoffer.MissingSession})
				return
			}
			if verified && !session.EmailVerified() {
				writeAPIError(r.Context(), w, &domainoffer.PreconditionError{Missing: domainoffer.MissingEmailVerification})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func sessionFrom(ctx context.Context) *ports.Session {
	session, _ := ctx.Value(sessionCtxKey{}).(*ports.Session)
	return session
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

type signUpRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verifyRequest struct {
	Token string `json:"token"`
}

type accountResponse struct {
	UserID          string     `json:"user_id"`
	Email           string     `json:"email"`
	FirstName       string     `json:"first_name"`
	LastName        string     `json:"last_name"`
	Phone           string     `json:"phone,omitempty"`
	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

type sessionResponse struct {
	UserID        string `json:"user_id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
}

type tokenResponse struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Session   sessionResponse `json:"session"`
}

func toSessionResponse(s ports.Session) sessionResponse {
	return sessionResponse{UserID: s.UserID, Email: s.Email, EmailVerified: s.EmailVerified()}
}

func (h *apiHandler) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	account, err := h.identity.SignUp(r.Context(), ports.SignUpInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	})
	if err != nil {
		writeAPIError(r.Context(), w, err)
		return
	}
	writeAPIJSON(w, http.StatusCreated, accountResponse{
		UserID:          account.UserID,
		Email:           account.Email,
		FirstName:       account.FirstName,
		LastName:        account.LastName,
		Phone:           account.Phone,
		EmailVerifiedAt: account.EmailVerifiedAt,
		CreatedAt:       account.CreatedAt,
	})
}

func (h *apiHandler) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	token, err := h.identity.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeAPIError(r.Context(), w, err)
		return
	}
	writeAPIJSON(w, http.StatusOK, tokenResponse{
		Token:     token.Token,
		ExpiresAt: token.ExpiresAt,
		Session:   toSessionResponse(token.Session),
	})
}

func (h *apiHandler) handleSignOut(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeAPIError(r.Context(), w, &domainoffer.PreconditionError{Missing: domainoffer.MissingSession})
		return
	}
	if err := h.identity.SignOut(r.Context(), token); err != nil {
		writeAPIError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *apiHandler) handleResendVerification(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.identity.ResendVerification(r.Context(), req.Email); err != nil {
		writeAPIError(r.Context(), w, err)
		return
	}
	writeAPIJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

func (h *apiHandler) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	session, err := h.identity.VerifyEmail(r.Context(), req.Token)
	if err != nil {
		writeAPIError(r.Context(), w, err)
		return
	}
	writeAPIJSON(w, http.StatusOK, toSessionResponse(session))
}

func (h *apiHandler) handleSession(w http.ResponseWriter, r *http.Request) {
	writeAPIJSON(w, http.StatusOK, toSessionResponse(*sessionFrom(r.Context())))
}

type validateStepResponse struct {
	Step   string                  `json:"step"`
	Valid  bool                    `json:"valid"`
	Errors domainoffer.FieldErrors `json:"errors"`
}

func (h *apiHandler) handleValidateStep(w http.ResponseWriter, r *http.Request) {
	step, ok := domainoffer.ParseStep(chi.URLParam(r, "step"))
	if !ok {
		writeAPIErrorStatus(w, http.StatusNotFound, "unknown step")
		return
	}

	var data domainoffer.StepData
	switch step {
	case domainoffer.StepAddress:
		var in domainoffer.AddressStep
		if !decodeJSON(w, r, &in) {
			return
		}
		data = in
	case domainoffer.StepDetails:
		var in domainoffer.DetailsStep
		if !decodeJSON(w, r, &in) {
			return
		}
		data = in
	case domainoffer.StepCondition:
		var in domainoffer.ConditionStep
		if !decodeJSON(w, r, &in) {
			return
		}
		data = in
	default:
		var in domainoffer.ContactStep
		if !decodeJSON(w, r, &in) {
			return
		}
		data = in
	}

	fields := h.quotes.ValidateStep(data)
	if fields == nil {
		fields = domainoffer.FieldErrors{}
	}
	writeAPIJSON(w, http.StatusOK, validateStepResponse{
		Step:   step.String(),
		Valid:  fields.Valid(),
		Errors: fields,
	})
}

func (h *apiHandler) handleSubmitQuote(w http.ResponseWriter, r *http.Request) {
	var form domainoffer.IntakeForm
	if !decodeJSON(w, r, &form) {
		return
	}

	wizard := offer.NewWizard(h.quotes, h.cfg.RequireVerifiedEmail)
	for _, step := range form.Steps() {
		if err := wizard.Advance(step); err != nil {
			writeAPIError(r.Context(), w, err)
			return
		}
	}
	quoteID, err := wizard.Submit(r.Context(), sessionFrom(r.Context()))
	if err != nil {
		writeAPIError(r.Context(), w, err)
		return
	}
	writeAPIJSON(w, http.StatusCreated, map[string]string{"quote_id": quoteID})
}

func (h *apiHandler) handleListQuotes(w http.ResponseWriter, r *http.Request) {
	views, err := h.quotes.ListQuotes(r.Context(), sessionFrom(r.Context()))
	if err != nil {
		writeAPIError(r.Context(), w, err)
		return
	}
	writeAPIJSON(w, http.StatusOK, map[string]any{"quotes": toQuoteResponses(views)})
}

type quoteDetailResponse struct {
	Quote       quoteResponse        `json:"quote"`
	Inspections []inspectionResponse `json:"inspections"`
}

func (h *apiHandler) handleGetQuote(w http.ResponseWriter, r *http.Request) {
	detail, err := h.quotes.GetQuote(r.Context(), sessionFrom(r.Context()), chi.URLParam(r, "quoteID"))
	if err != nil {
		writeAPIError(r.Context(), w, err)
		return
	}
	inspections := make([]inspectionResponse, 0, len(detail.Inspections))
	for _, in := range detail.Inspections {
		inspections = append(inspections, toInspectionResponse(in))
	}
	writeAPIJSON(w, http.StatusOK, quoteDetailResponse{
		Quote:       toQuoteResponse(detail.View),
		Inspections: inspections,
	})
}

func (h *apiHandler) handleStartValuation(w http.ResponseWriter, r *http.Request) {
	quoteID := chi.URLParam(r, "quoteID")
	if _, err := h.quotes.GetQuote(r.Context(), sessionFrom(r.Context()), quoteID); err != nil {
		writeAPIError(r.Context(), w, err)
		return
	}
	readyAt, err := h.quotes.StartValuation(r.Context(), quoteID)
	if err != nil {
		writeAPIError(r.Context(), w, err)
		return
	}
	writeAPIJSON(w, http.StatusAccepted, map[string]any{"quote_id": quoteID, "ready_at": readyAt})
}

type scheduleInspectionRequest struct {
	PropertyID string `json:"property_id"`
	Date       string `json:"date"`
	Slot       string `json:"slot"`
	Notes      string `json:"notes"`
}

func (h *apiHandler) handleScheduleInspection(w http.ResponseWriter, r *http.Request) {
	var req scheduleInspectionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	day, err := time.Parse(time.DateOnly, strings.TrimSpace(req.Date))
	if err != nil {
		writeAPIErrorStatus(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	inspection, err := h.quotes.ScheduleInspection(r.Context(), sessionFrom(r.Context()), offer.ScheduleInspectionInput{
		QuoteID:    chi.URLParam(r, "quoteID"),
		PropertyID: req.PropertyID,
		Date:       day,
		Slot:       req.Slot,
		Notes:      req.Notes,
	})
	if err != nil {
		writeAPIError(r.Context(), w, err)
		return
	}
	writeAPIJSON(w, http.StatusCreated, toInspectionResponse(inspection))
}

type respondRequest struct {
	Status string `json:"status"`
}

func (h *apiHandler) handleRespond(w http.ResponseWriter, r *http.Request) {
	var req respondRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	decision, err := domainoffer.ParseQuoteStatus(req.Status)
	if err != nil {
		writeAPIError(r.Context(), w, err)
		return
	}
	quote, err := h.quotes.RespondToQuote(r.Context(), sessionFrom(r.Context()), chi.URLParam(r, "quoteID"), decision)
	if err != nil {
		writeAPIError(r.Context(), w, err)
		return
	}
	writeAPIJSON(w, http.StatusOK, map[string]any{
		"quote_id": quote.ID,
		"status":   quote.Status,
		"amount":   quote.Amount,
	})
}

type dashboardResponse struct {
	Quotes        []quoteResponse        `json:"quotes"`
	Stats         offer.DashboardStats   `json:"stats"`
	Notifications []notificationResponse `json:"notifications"`
}

func (h *apiHandler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := h.quotes.Dashboard(r.Context(), sessionFrom(r.Context()))
	if err != nil {
		writeAPIError(r.Context(), w, err)
		return
	}
	writeAPIJSON(w, http.StatusOK, dashboardResponse{
		Quotes:        toQuoteResponses(dash.Quotes),
		Stats:         dash.Stats,
		Notifications: toNotificationResponses(dash.Notifications),
	})
}

func (h *apiHandler) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	unreadOnly, _ := strconv.ParseBool(r.URL.Query().Get("unread"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	items, err := h.quotes.ListNotifications(r.Context(), sessionFrom(r.Context()), unreadOnly, limit)
	if err != nil {
		writeAPIError(r.Context(), w, err)
		return
	}
	writeAPIJSON(w, http.StatusOK, map[string]any{"notifications": toNotificationResponses(items)})
}

type markReadRequest struct {
	IDs []string `json:"ids"`
}

func (h *apiHandler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	var req markReadRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	updated, err := h.quotes.MarkNotificationsRead(r.Context(), sessionFrom(r.Context()), req.IDs)
	if err != nil {
		writeAPIError(r.Context(), w, err)
		return
	}
	writeAPIJSON(w, http.StatusOK, map[string]int64{"updated": updated})
}

// handleEvents streams the caller's quote events as server-sent events until the client goes away.
func (h *apiHandler) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok || h.events == nil {
		writeAPIErrorStatus(w, http.StatusNotImplemented, "streaming is not supported")
		return
	}
	session := sessionFrom(r.Context())
	updates, cancel := h.events.Subscribe(session.UserID)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(h.cfg.HeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case event, open := <-updates:
			if !open {
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				logging.Warn(r.Context(), "encode quote event failed", slog.Any("err", errs.Loggable(err)))
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, payload); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

type propertyResponse struct {
	ID           string                   `json:"id"`
	Address      string                   `json:"address"`
	City         string                   `json:"city"`
	State        string                   `json:"state"`
	ZipCode      string                   `json:"zip_code"`
	Bedrooms     float64                  `json:"bedrooms"`
	Bathrooms    float64                  `json:"bathrooms"`
	SquareFeet   *int                     `json:"square_feet,omitempty"`
	YearBuilt    *int                     `json:"year_built,omitempty"`
	PropertyType domainoffer.PropertyType `json:"property_type"`
	LotSize      string                   `json:"lot_size,omitempty"`
	Condition    domainoffer.Condition    `json:"condition"`
	Description  *string                  `json:"description,omitempty"`
}

type quoteResponse struct {
	ID          string                  `json:"id"`
	PropertyID  string                  `json:"property_id"`
	Status      domainoffer.QuoteStatus `json:"status"`
	Calculating bool                    `json:"calculating"`
	// Amount is omitted while the valuation runs.
	Amount     *int                    `json:"amount,omitempty"`
	PriceRange *domainoffer.PriceRange `json:"price_range,omitempty"`
	ReadyAt    *time.Time              `json:"ready_at,omitempty"`
	Timeline   domainoffer.Timeline    `json:"timeline"`
	Motivation string                  `json:"motivation,omitempty"`
	ExpiresAt  time.Time               `json:"expires_at"`
	CreatedAt  time.Time               `json:"created_at"`
	UpdatedAt  time.Time               `json:"updated_at"`
	Property   propertyResponse        `json:"property"`
}

func toQuoteResponse(view ports.QuoteView) quoteResponse {
	q := view.Quote
	p := view.Property
	out := quoteResponse{
		ID:          q.ID,
		PropertyID:  q.PropertyID,
		Status:      q.Status,
		Calculating: q.Calculating(),
		Timeline:    q.Timeline,
		Motivation:  q.Motivation,
		ExpiresAt:   q.ExpiresAt,
		CreatedAt:   q.CreatedAt,
		UpdatedAt:   q.UpdatedAt,
		Property: propertyResponse{
			ID:           p.ID,
			Address:      p.Address,
			City:         p.City,
			State:        p.State,
			ZipCode:      p.ZipCode,
			Bedrooms:     p.Bedrooms,
			Bathrooms:    p.Bathrooms,
			SquareFeet:   p.SquareFeet,
			YearBuilt:    p.YearBuilt,
			PropertyType: p.PropertyType,
			LotSize:      p.LotSize,
			Condition:    p.Condition,
			Description:  p.Description,
		},
	}
	if amount, ok := view.DisplayAmount(); ok {
		out.Amount = &amount
	}
	switch calc := q.Calculation.(type) {
	case domainoffer.Calculating:
		if readyAt := calc.ReadyAt(); !readyAt.IsZero() {
			out.ReadyAt = &readyAt
		}
	case domainoffer.Completed:
		priceRange := calc.PriceRange
		out.PriceRange = &priceRange
	}
	return out
}

func toQuoteResponses(views []ports.QuoteView) []quoteResponse {
	out := make([]quoteResponse, 0, len(views))
	for _, view := range views {
		out = append(out, toQuoteResponse(view))
	}
	return out
}

type inspectionResponse struct {
	ID            string                       `json:"id"`
	QuoteID       string                       `json:"quote_id"`
	PropertyID    string                       `json:"property_id"`
	ScheduledDate time.Time                    `json:"scheduled_date"`
	Status        domainoffer.InspectionStatus `json:"status"`
	Notes         *string                      `json:"notes,omitempty"`
}

func toInspectionResponse(in ports.InspectionRecord) inspectionResponse {
	return inspectionResponse{
		ID:            in.ID,
		QuoteID:       in.QuoteID,
		PropertyID:    in.PropertyID,
		ScheduledDate: in.ScheduledDate,
		Status:        in.Status,
		Notes:         in.Notes,
	}
}

type notificationResponse struct {
	ID        string                       `json:"id"`
	Title     string                       `json:"title"`
	Message   string                       `json:"message"`
	Type      domainoffer.NotificationType `json:"type"`
	QuoteID   *string                      `json:"quote_id,omitempty"`
	IsRead    bool                         `json:"is_read"`
	CreatedAt time.Time                    `json:"created_at"`
}

func toNotificationResponses(items []ports.NotificationRecord) []notificationResponse {
	out := make([]notificationResponse, 0, len(items))
	for _, n := range items {
		out = append(out, notificationResponse{
			ID:        n.ID,
			Title:     n.Title,
			Message:   n.Message,
			Type:      n.Type,
			QuoteID:   n.RelatedQuoteID,
			IsRead:    n.IsRead,
			CreatedAt: n.CreatedAt,
		})
	}
	return out
}

type apiErrorResponse struct {
	Error  string                  `json:"error"`
	Fields domainoffer.FieldErrors `json:"fields,omitempty"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeAPIErrorStatus(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// apiErrorStatus maps the domain and identity error taxonomy onto HTTP status codes.
func apiErrorStatus(err error) int {
	var validation *domainoffer.ValidationError
	var precondition *domainoffer.PreconditionError
	switch {
	case errors.As(err, &validation):
		return http.StatusUnprocessableEntity
	case errors.As(err, &precondition):
		if precondition.Missing == domainoffer.MissingEmailVerification {
			return http.StatusForbidden
		}
		if precondition.Missing == domainoffer.MissingSession {
			return http.StatusUnauthorized
		}
		return http.StatusUnprocessableEntity
	case errors.Is(err, ports.ErrInvalidCredentials), errors.Is(err, ports.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, domainoffer.ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, domainoffer.ErrQuoteNotFound),
		errors.Is(err, domainoffer.ErrPropertyNotFound),
		errors.Is(err, ports.ErrAccountNotFound):
		return http.StatusNotFound
	case errors.Is(err, domainoffer.ErrInvalidTransition),
		errors.Is(err, domainoffer.ErrCalculationCompleted),
		errors.Is(err, ports.ErrEmailAlreadyRegistered),
		errors.Is(err, domainoffer.ErrAlreadySubmitted),
		errors.Is(err, domainoffer.ErrSubmitting):
		return http.StatusConflict
	case errors.Is(err, domainoffer.ErrInvalidQuoteStatus),
		errors.Is(err, domainoffer.ErrOutsideSchedulingWindow),
		errors.Is(err, domainoffer.ErrUnknownSlot),
		errors.Is(err, domainoffer.ErrPropertyMismatch),
		errors.Is(err, domainoffer.ErrAttachmentLimit),
		errors.Is(err, domainoffer.ErrWrongStep),
		errors.Is(err, domainoffer.ErrInvalidAmount),
		errors.Is(err, identity.ErrWeakPassword),
		errors.Is(err, identity.ErrInvalidEmail):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeAPIError(ctx context.Context, w http.ResponseWriter, err error) {
	status := apiErrorStatus(err)
	fallback := err.Error()
	if status == http.StatusInternalServerError {
		logging.Error(ctx, "api request failed", slog.Any("err", errs.Loggable(errs.WithStack(err))))
		fallback = "internal server error"
	}

	resp := apiErrorResponse{Error: errs.UserMessage(err, fallback)}
	var validation *domainoffer.ValidationError
	if errors.As(err, &validation) {
		resp.Fields = validation.Fields
	}
	writeAPIJSON(w, status, resp)
}

func writeAPIErrorStatus(w http.ResponseWriter, status int, message string) {
	writeAPIJSON(w, status, apiErrorResponse{Error: message})
}

func writeAPIJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// ipRateLimiter keeps one token bucket per client address.
type ipRateLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	limit     rate.Limit
	burst     int
	idleTTL   time.Duration
	lastSweep time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newIPRateLimiter(limit rate.Limit, burst int) *ipRateLimiter {
	if limit <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	return &ipRateLimiter{
		visitors:  make(map[string]*visitor),
		limit:     limit,
		burst:     burst,
		idleTTL:   3 * time.Minute,
		lastSweep: time.Now(),
	}
}

func (l *ipRateLimiter) limiterFor(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.lastSweep) > time.Minute {
		for key, v := range l.visitors {
			if now.Sub(v.lastSeen) > l.idleTTL {
				delete(l.visitors, key)
			}
		}
		l.lastSweep = now
	}

	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter
}

func (l *ipRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = strings.Trim(r.RemoteAddr, "[]")
		}
		if !l.limiterFor(ip).Allow() {
			w.Header().Set("Retry-After", "1")
			writeAPIErrorStatus(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}
