package offer

import (
	"context"
	"errors"
	"testing"
	"time"

	domainoffer "cashoffer/internal/domain/offer"
	"cashoffer/internal/ports"
)

func submitSample(t *testing.T, env *testEnv, userID string) string {
	t.Helper()
	quoteID, err := env.svc.SubmitQuote(context.Background(), verifiedSession(userID), sampleForm())
	if err != nil {
		t.Fatalf("SubmitQuote() error = %v", err)
	}
	return quoteID
}

// valuate submits a quote and drives its valuation to completion.
func valuate(t *testing.T, env *testEnv, userID string) string {
	t.Helper()
	quoteID := submitSample(t, env, userID)
	if _, err := env.svc.CompleteValuation(context.Background(), quoteID); err != nil {
		t.Fatalf("CompleteValuation() error = %v", err)
	}
	return quoteID
}

func TestValuationCompletesOnceAfterDelay(t *testing.T) {
	env := setupEnv(t, nil)
	ctx := context.Background()
	quoteID := submitSample(t, env, "user-1")

	dueAt, err := env.svc.StartValuation(ctx, quoteID)
	if err != nil {
		t.Fatalf("StartValuation() error = %v", err)
	}
	wait := dueAt.Sub(env.clock.now)
	if wait < 60*time.Second || wait > 120*time.Second {
		t.Fatalf("valuation due in %v, want 60s..120s", wait)
	}
	again, err := env.svc.StartValuation(ctx, quoteID)
	if err != nil {
		t.Fatalf("StartValuation() second call error = %v", err)
	}
	if !again.Equal(dueAt) {
		t.Fatalf("second StartValuation() due = %v, want %v", again, dueAt)
	}

	completed, err := env.svc.RunDueValuations(ctx, 10)
	if err != nil || completed != 0 {
		t.Fatalf("RunDueValuations() before due = %d, %v", completed, err)
	}
	quote, err := env.repos.Quotes.GetQuote(ctx, quoteID)
	if err != nil {
		t.Fatalf("GetQuote() error = %v", err)
	}
	if !quote.Calculating() {
		t.Fatalf("quote should still be calculating, got %#v", quote.Calculation)
	}

	env.clock.Advance(wait + time.Second)
	completed, err = env.svc.RunDueValuations(ctx, 10)
	if err != nil || completed != 1 {
		t.Fatalf("RunDueValuations() after due = %d, %v", completed, err)
	}

	quote, err = env.repos.Quotes.GetQuote(ctx, quoteID)
	if err != nil {
		t.Fatalf("GetQuote() error = %v", err)
	}
	if quote.Status != domainoffer.QuoteStatusAwaitingInspection {
		t.Fatalf("status = %s", quote.Status)
	}
	done, ok := quote.Calculation.(domainoffer.Completed)
	if !ok {
		t.Fatalf("calculation = %#v, want Completed", quote.Calculation)
	}
	r := done.PriceRange
	if r.Low < 211140 || r.High > 335340 || r.Low >= r.High {
		t.Fatalf("price range = %+v", r)
	}
	if r.Confidence < domainoffer.MinConfidence || r.Confidence > domainoffer.MaxConfidence {
		t.Fatalf("confidence = %d", r.Confidence)
	}
	if quote.Amount != r.Midpoint() {
		t.Fatalf("amount = %d, want midpoint %d", quote.Amount, r.Midpoint())
	}

	notes, err := env.repos.Notifications.ListNotifications(ctx, "user-1", true, 10)
	if err != nil {
		t.Fatalf("ListNotifications() error = %v", err)
	}
	if len(notes) != 1 || notes[0].Title != "Your cash offer is ready!" || notes[0].Type != domainoffer.NotificationQuoteReady {
		t.Fatalf("notifications = %+v", notes)
	}

	job, found, err := env.repos.Jobs.GetJob(ctx, quoteID)
	if err != nil || !found || job.Status != ports.ValuationJobDone {
		t.Fatalf("job = %+v found=%v err=%v", job, found, err)
	}

	if _, err := env.svc.CompleteValuation(ctx, quoteID); !errors.Is(err, domainoffer.ErrCalculationCompleted) {
		t.Fatalf("second CompleteValuation() error = %v", err)
	}
	if _, err := env.svc.StartValuation(ctx, quoteID); !errors.Is(err, domainoffer.ErrCalculationCompleted) {
		t.Fatalf("StartValuation() after completion error = %v", err)
	}
	notes, _ = env.repos.Notifications.ListNotifications(ctx, "user-1", false, 10)
	if len(notes) != 1 {
		t.Fatalf("notifications after repeat = %d, want 1", len(notes))
	}
}

func TestRunDueValuationsRecordsFailures(t *testing.T) {
	env := setupEnv(t, func(_ *Options, repos *Repositories) {
		repos.Properties = &brokenPropertyReads{PropertyRepository: repos.Properties}
	})
	ctx := context.Background()
	quoteID := submitSample(t, env, "user-1")

	if _, err := env.svc.StartValuation(ctx, quoteID); err != nil {
		t.Fatalf("StartValuation() error = %v", err)
	}
	env.clock.Advance(3 * time.Minute)

	completed, err := env.svc.RunDueValuations(ctx, 10)
	if err != nil || completed != 0 {
		t.Fatalf("RunDueValuations() = %d, %v", completed, err)
	}
	job, _, err := env.repos.Jobs.GetJob(ctx, quoteID)
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if job.Status != ports.ValuationJobPending || job.Attempts != 1 || job.LastError == "" {
		t.Fatalf("job = %+v", job)
	}
	if want := env.clock.now.Add(DefaultOptions().RetryBackoff); !job.DueAt.Equal(want) {
		t.Fatalf("job due_at = %v, want retry at %v", job.DueAt, want)
	}
	quote, _ := env.repos.Quotes.GetQuote(ctx, quoteID)
	if !quote.Calculating() || quote.Status != domainoffer.QuoteStatusPending {
		t.Fatalf("failed valuation changed quote: %+v", quote)
	}
}

func TestResumeStaleValuationsArmsMissingTimers(t *testing.T) {
	env := setupEnv(t, nil)
	ctx := context.Background()
	session := verifiedSession("user-1")

	armed := submitSample(t, env, "user-1")
	orphan := submitSample(t, env, "user-1")
	submitSample(t, env, "user-2")
	if _, err := env.svc.StartValuation(ctx, armed); err != nil {
		t.Fatalf("StartValuation() error = %v", err)
	}

	resumed, err := env.svc.ResumeStaleValuations(ctx, session)
	if err != nil || resumed != 1 {
		t.Fatalf("ResumeStaleValuations() = %d, %v", resumed, err)
	}
	if _, found, _ := env.repos.Jobs.GetJob(ctx, orphan); !found {
		t.Fatalf("orphan quote has no valuation job")
	}
	resumed, err = env.svc.ResumeStaleValuations(ctx, session)
	if err != nil || resumed != 0 {
		t.Fatalf("second ResumeStaleValuations() = %d, %v", resumed, err)
	}
}

func TestDetectStaleValuations(t *testing.T) {
	env := setupEnv(t, nil)
	ctx := context.Background()

	stuck := submitSample(t, env, "user-1")
	armed := submitSample(t, env, "user-1")
	if _, err := env.svc.StartValuation(ctx, armed); err != nil {
		t.Fatalf("StartValuation() error = %v", err)
	}

	env.clock.Advance(5 * time.Minute)
	stale, err := env.svc.DetectStaleValuations(ctx)
	if err != nil || len(stale) != 0 {
		t.Fatalf("DetectStaleValuations() early = %v, %v", stale, err)
	}

	env.clock.Advance(5*time.Minute + 30*time.Second)
	stale, err = env.svc.DetectStaleValuations(ctx)
	if err != nil {
		t.Fatalf("DetectStaleValuations() error = %v", err)
	}
	if len(stale) != 1 || stale[0].QuoteID != stuck {
		t.Fatalf("stale = %v, want only %s", stale, stuck)
	}
	if stale[0].Age != 10*time.Minute+30*time.Second {
		t.Fatalf("stale age = %v", stale[0].Age)
	}

	env.clock.Advance(2 * time.Minute)
	stale, _ = env.svc.DetectStaleValuations(ctx)
	if len(stale) != 2 {
		t.Fatalf("stale after timer deadline = %d, want 2", len(stale))
	}
}

func TestFormatDollars(t *testing.T) {
	cases := map[int]string{
		0:       "$0",
		950:     "$950",
		270000:  "$270,000",
		1234567: "$1,234,567",
		-4200:   "-$4,200",
	}
	for in, want := range cases {
		if got := formatDollars(in); got != want {
			t.Fatalf("formatDollars(%d) = %q, want %q", in, got, want)
		}
	}
}

// brokenPropertyReads fails reads of the listed properties, or of every property when only is empty.
type brokenPropertyReads struct {
	ports.PropertyRepository
	only map[string]bool
}

func (b *brokenPropertyReads) GetProperty(ctx context.Context, propertyID string) (ports.PropertyRecord, error) {
	if len(b.only) == 0 || b.only[propertyID] {
		return ports.PropertyRecord{}, errors.New("property store offline")
	}
	return b.PropertyRepository.GetProperty(ctx, propertyID)
}

func TestRunDueValuationsFailingJobDoesNotBlockQueue(t *testing.T) {
	broken := &brokenPropertyReads{only: map[string]bool{}}
	env := setupEnv(t, func(opts *Options, repos *Repositories) {
		opts.MaxAttempts = 3
		opts.RetryBackoff = time.Minute
		broken.PropertyRepository = repos.Properties
		repos.Properties = broken
	})
	ctx := context.Background()

	badID := submitSample(t, env, "user-1")
	bad, err := env.repos.Quotes.GetQuote(ctx, badID)
	if err != nil {
		t.Fatalf("GetQuote() error = %v", err)
	}
	broken.only[bad.PropertyID] = true
	if _, err := env.svc.StartValuation(ctx, badID); err != nil {
		t.Fatalf("StartValuation(bad) error = %v", err)
	}

	env.clock.Advance(3 * time.Minute)
	goodID := submitSample(t, env, "user-2")
	if _, err := env.svc.StartValuation(ctx, goodID); err != nil {
		t.Fatalf("StartValuation(good) error = %v", err)
	}
	env.clock.Advance(3 * time.Minute)

	completed, err := env.svc.RunDueValuations(ctx, 1)
	if err != nil || completed != 0 {
		t.Fatalf("first tick = %d, %v", completed, err)
	}
	completed, err = env.svc.RunDueValuations(ctx, 1)
	if err != nil || completed != 1 {
		t.Fatalf("second tick = %d, %v", completed, err)
	}
	good, _ := env.repos.Quotes.GetQuote(ctx, goodID)
	if good.Status != domainoffer.QuoteStatusAwaitingInspection {
		t.Fatalf("good quote status = %s, want awaiting_inspection", good.Status)
	}

	// Retries at +1m and +2m, then the third attempt gives up.
	env.clock.Advance(time.Minute)
	if _, err := env.svc.RunDueValuations(ctx, 1); err != nil {
		t.Fatalf("retry tick error = %v", err)
	}
	env.clock.Advance(2 * time.Minute)
	if _, err := env.svc.RunDueValuations(ctx, 1); err != nil {
		t.Fatalf("final tick error = %v", err)
	}

	job, _, err := env.repos.Jobs.GetJob(ctx, badID)
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if job.Status != ports.ValuationJobFailed || job.Attempts != 3 {
		t.Fatalf("bad job = %+v, want failed after 3 attempts", job)
	}
	env.clock.Advance(time.Hour)
	due, err := env.repos.Jobs.ListDueJobs(ctx, env.clock.now, 10)
	if err != nil || len(due) != 0 {
		t.Fatalf("ListDueJobs() after give up = %+v, %v", due, err)
	}
}
