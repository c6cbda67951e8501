package offer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	domainoffer "cashoffer/internal/domain/offer"
	"cashoffer/internal/ports"
)

type recordingSubmitter struct {
	mu      sync.Mutex
	calls   int
	forms   []domainoffer.IntakeForm
	release chan struct{}
	err     error
}

func (r *recordingSubmitter) SubmitQuote(_ context.Context, _ *ports.Session, form domainoffer.IntakeForm) (string, error) {
	if r.release != nil {
		<-r.release
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.forms = append(r.forms, form)
	if r.err != nil {
		return "", r.err
	}
	return "quote-1", nil
}

func (r *recordingSubmitter) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func newTestWizard(sub Submitter) *Wizard {
	w := NewWizard(sub, true)
	w.now = func() time.Time { return time.Date(2026, time.March, 10, 15, 30, 0, 0, time.UTC) }
	return w
}

func fillWizard(t *testing.T, w *Wizard) {
	t.Helper()
	for _, step := range sampleForm().Steps() {
		if err := w.Advance(step); err != nil {
			t.Fatalf("Advance(%s) error = %v", step.Step(), err)
		}
	}
}

func TestWizardSubmitsExactlyOnce(t *testing.T) {
	sub := &recordingSubmitter{}
	w := newTestWizard(sub)
	fillWizard(t, w)

	if w.Step() != domainoffer.StepContact {
		t.Fatalf("Step() = %v, want contact", w.Step())
	}
	quoteID, err := w.Submit(context.Background(), verifiedSession("user-1"))
	if err != nil || quoteID != "quote-1" {
		t.Fatalf("Submit() = %q, %v", quoteID, err)
	}
	if _, err := w.Submit(context.Background(), verifiedSession("user-1")); !errors.Is(err, domainoffer.ErrAlreadySubmitted) {
		t.Fatalf("second Submit() error = %v", err)
	}
	if err := w.Advance(sampleForm().Contact); !errors.Is(err, domainoffer.ErrAlreadySubmitted) {
		t.Fatalf("Advance() after submit error = %v", err)
	}
	if sub.Calls() != 1 || w.QuoteID() != "quote-1" {
		t.Fatalf("submitter calls = %d quote = %q", sub.Calls(), w.QuoteID())
	}
	want := sampleForm()
	got := sub.forms[0]
	if got.Address != want.Address || got.Details != want.Details || got.Contact != want.Contact ||
		got.Condition.Condition != want.Condition.Condition {
		t.Fatalf("submitted form = %+v", got)
	}
}

func TestWizardRejectsConcurrentSubmit(t *testing.T) {
	sub := &recordingSubmitter{release: make(chan struct{})}
	w := newTestWizard(sub)
	fillWizard(t, w)

	done := make(chan error, 1)
	go func() {
		_, err := w.Submit(context.Background(), verifiedSession("user-1"))
		done <- err
	}()

	deadline := time.Now().Add(2 * time.Second)
	for !w.Submitting() {
		if time.Now().After(deadline) {
			t.Fatalf("first Submit() never started")
		}
		time.Sleep(time.Millisecond)
	}
	if _, err := w.Submit(context.Background(), verifiedSession("user-1")); !errors.Is(err, domainoffer.ErrSubmitting) {
		t.Fatalf("concurrent Submit() error = %v", err)
	}
	if err := w.Advance(sampleForm().Contact); !errors.Is(err, domainoffer.ErrSubmitting) {
		t.Fatalf("Advance() while submitting error = %v", err)
	}

	close(sub.release)
	if err := <-done; err != nil {
		t.Fatalf("first Submit() error = %v", err)
	}
	if sub.Calls() != 1 {
		t.Fatalf("submitter calls = %d", sub.Calls())
	}
}

func TestWizardAllowsRetryAfterFailure(t *testing.T) {
	sub := &recordingSubmitter{err: &domainoffer.QuoteCreationError{Err: errors.New("insert failed")}}
	w := newTestWizard(sub)
	fillWizard(t, w)

	if _, err := w.Submit(context.Background(), verifiedSession("user-1")); err == nil {
		t.Fatalf("Submit() expected error")
	}
	if w.Submitting() || w.QuoteID() != "" {
		t.Fatalf("failed submit left submitting=%v quote=%q", w.Submitting(), w.QuoteID())
	}

	sub.mu.Lock()
	sub.err = nil
	sub.mu.Unlock()
	if _, err := w.Submit(context.Background(), verifiedSession("user-1")); err != nil {
		t.Fatalf("retry Submit() error = %v", err)
	}
	if sub.Calls() != 2 {
		t.Fatalf("submitter calls = %d", sub.Calls())
	}
}

func TestWizardStepGuards(t *testing.T) {
	w := newTestWizard(&recordingSubmitter{})
	form := sampleForm()

	if err := w.Advance(form.Details); !errors.Is(err, domainoffer.ErrWrongStep) {
		t.Fatalf("Advance(details at address) error = %v", err)
	}

	bad := form.Address
	bad.ZipCode = "ABCDE"
	err := w.Advance(bad)
	var validation *domainoffer.ValidationError
	if !errors.As(err, &validation) || validation.Step != domainoffer.StepAddress {
		t.Fatalf("Advance(bad zip) error = %v", err)
	}
	if w.Step() != domainoffer.StepAddress {
		t.Fatalf("invalid step advanced to %v", w.Step())
	}
	if _, ok := w.Draft(domainoffer.StepAddress); ok {
		t.Fatalf("invalid step data was stored")
	}

	if err := w.Advance(form.Address); err != nil {
		t.Fatalf("Advance(address) error = %v", err)
	}
	if err := w.Advance(form.Details); err != nil {
		t.Fatalf("Advance(details) error = %v", err)
	}
	w.Retreat()
	if w.Step() != domainoffer.StepDetails {
		t.Fatalf("Retreat() step = %v", w.Step())
	}
	draft, ok := w.Draft(domainoffer.StepDetails)
	if !ok || draft.(domainoffer.DetailsStep) != form.Details {
		t.Fatalf("Draft(details) = %+v, %v", draft, ok)
	}
	w.Retreat()
	w.Retreat()
	if w.Step() != domainoffer.StepAddress {
		t.Fatalf("Retreat() below first step = %v", w.Step())
	}
}

func TestWizardSubmitPreconditions(t *testing.T) {
	ctx := context.Background()
	form := sampleForm()

	w := newTestWizard(&recordingSubmitter{})
	_, err := w.Submit(ctx, verifiedSession("user-1"))
	var pre *domainoffer.PreconditionError
	if !errors.As(err, &pre) || pre.Missing != "address" {
		t.Fatalf("Submit(empty) error = %v", err)
	}

	if err := w.Advance(form.Address); err != nil {
		t.Fatalf("Advance(address) error = %v", err)
	}
	if err := w.Advance(form.Details); err != nil {
		t.Fatalf("Advance(details) error = %v", err)
	}
	_, err = w.Submit(ctx, verifiedSession("user-1"))
	if !errors.As(err, &pre) || pre.Missing != "condition" {
		t.Fatalf("Submit(partial) error = %v", err)
	}

	w = newTestWizard(&recordingSubmitter{})
	fillWizard(t, w)
	_, err = w.Submit(ctx, nil)
	if !errors.As(err, &pre) || pre.Missing != domainoffer.MissingSession {
		t.Fatalf("Submit(nil session) error = %v", err)
	}
	_, err = w.Submit(ctx, &ports.Session{UserID: "user-1"})
	if !errors.As(err, &pre) || pre.Missing != domainoffer.MissingEmailVerification {
		t.Fatalf("Submit(unverified) error = %v", err)
	}
}

func TestWizardAttachmentsSurviveConditionStep(t *testing.T) {
	w := newTestWizard(&recordingSubmitter{})
	form := sampleForm()
	if err := w.Advance(form.Address); err != nil {
		t.Fatalf("Advance(address) error = %v", err)
	}
	if err := w.Advance(form.Details); err != nil {
		t.Fatalf("Advance(details) error = %v", err)
	}

	photo := domainoffer.Attachment{Kind: domainoffer.AttachmentPhoto, Name: "front.jpg", SizeBytes: 1 << 20}
	if err := w.AddAttachments(photo); err != nil {
		t.Fatalf("AddAttachments() error = %v", err)
	}
	if err := w.Advance(form.Condition); err != nil {
		t.Fatalf("Advance(condition) error = %v", err)
	}
	draft, _ := w.Draft(domainoffer.StepCondition)
	cond := draft.(domainoffer.ConditionStep)
	if len(cond.Attachments) != 1 || cond.Attachments[0] != photo || cond.Condition != "good" {
		t.Fatalf("condition draft = %+v", cond)
	}
}

func TestServiceWizardSubmitsThroughService(t *testing.T) {
	env := setupEnv(t, nil)
	w := env.svc.NewWizard()
	fillWizard(t, w)

	quoteID, err := w.Submit(context.Background(), verifiedSession("user-1"))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	view, err := env.repos.Quotes.GetQuoteView(context.Background(), quoteID)
	if err != nil {
		t.Fatalf("GetQuoteView() error = %v", err)
	}
	if view.Quote.Status != domainoffer.QuoteStatusPending || view.Property.ZipCode != "62704" {
		t.Fatalf("view = %+v", view)
	}
}
