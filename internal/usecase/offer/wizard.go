package offer

import (
	"context"
	"sync"
	"time"

	domainoffer "cashoffer/internal/domain/offer"
	"cashoffer/internal/ports"
)

// Submitter persists a completed intake form.
type Submitter interface {
	SubmitQuote(ctx context.Context, session *ports.Session, form domainoffer.IntakeForm) (string, error)
}

// Wizard walks a seller through the four intake steps and submits once.
type Wizard struct {
	mu sync.Mutex

	submitter       Submitter
	requireVerified bool
	now             func() time.Time

	step       domainoffer.Step
	address    *domainoffer.AddressStep
	details    *domainoffer.DetailsStep
	condition  *domainoffer.ConditionStep
	contact    *domainoffer.ContactStep
	submitting bool
	quoteID    string
}

func NewWizard(submitter Submitter, requireVerifiedEmail bool) *Wizard {
	return &Wizard{
		submitter:       submitter,
		requireVerified: requireVerifiedEmail,
		now:             time.Now,
		step:            domainoffer.StepAddress,
	}
}

// NewWizard starts a wizard that submits through s.
func (s *Service) NewWizard() *Wizard {
	w := NewWizard(s, s.opts.RequireVerifiedEmail)
	w.now = s.clock
	return w
}

func (w *Wizard) Step() domainoffer.Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

// Advance validates the data of the current step, stores it and moves forward.
// The last step stays current after it is stored.
func (w *Wizard) Advance(data domainoffer.StepData) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.quoteID != "" {
		return domainoffer.ErrAlreadySubmitted
	}
	if w.submitting {
		return domainoffer.ErrSubmitting
	}
	if data == nil || data.Step() != w.step {
		return domainoffer.ErrWrongStep
	}
	if fields := domainoffer.ValidateStep(data, w.now()); !fields.Valid() {
		return &domainoffer.ValidationError{Step: w.step, Fields: fields}
	}

	switch v := data.(type) {
	case domainoffer.AddressStep:
		w.address = &v
	case domainoffer.DetailsStep:
		w.details = &v
	case domainoffer.ConditionStep:
		if len(v.Attachments) == 0 && w.condition != nil {
			v.Attachments = w.condition.Attachments
		} else if err := domainoffer.ValidateAttachments(nil, v.Attachments); err != nil {
			return err
		}
		w.condition = &v
	case domainoffer.ContactStep:
		w.contact = &v
	}

	if w.step < domainoffer.StepContact {
		w.step++
	}
	return nil
}

// Retreat moves one step back and keeps everything entered so far.
func (w *Wizard) Retreat() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.step > domainoffer.StepAddress && !w.submitting && w.quoteID == "" {
		w.step--
	}
}

// Draft returns the stored data of a step for re-display.
func (w *Wizard) Draft(step domainoffer.Step) (domainoffer.StepData, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch step {
	case domainoffer.StepAddress:
		if w.address != nil {
			return *w.address, true
		}
	case domainoffer.StepDetails:
		if w.details != nil {
			return *w.details, true
		}
	case domainoffer.StepCondition:
		if w.condition != nil {
			return *w.condition, true
		}
	case domainoffer.StepContact:
		if w.contact != nil {
			return *w.contact, true
		}
	}
	return nil, false
}

// AddAttachments applies the selection-time caps before files join the condition step.
func (w *Wizard) AddAttachments(added ...domainoffer.Attachment) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var existing []domainoffer.Attachment
	if w.condition != nil {
		existing = w.condition.Attachments
	}
	if err := domainoffer.ValidateAttachments(existing, added); err != nil {
		return err
	}

	next := domainoffer.ConditionStep{}
	if w.condition != nil {
		next = *w.condition
	}
	next.Attachments = append(append([]domainoffer.Attachment(nil), existing...), added...)
	w.condition = &next
	return nil
}

// Submitting reports whether a submission is in flight.
func (w *Wizard) Submitting() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.submitting
}

// QuoteID is the id of the submitted quote, empty before success.
func (w *Wizard) QuoteID() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.quoteID
}

// Submit hands the completed form to the submitter exactly once.
func (w *Wizard) Submit(ctx context.Context, session *ports.Session) (string, error) {
	w.mu.Lock()
	if w.quoteID != "" {
		w.mu.Unlock()
		return "", domainoffer.ErrAlreadySubmitted
	}
	if w.submitting {
		w.mu.Unlock()
		return "", domainoffer.ErrSubmitting
	}
	form, err := w.completeForm(session)
	if err != nil {
		w.mu.Unlock()
		return "", err
	}
	w.submitting = true
	w.mu.Unlock()

	quoteID, err := w.submitter.SubmitQuote(ctx, session, form)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.submitting = false
	if err != nil {
		return "", err
	}
	w.quoteID = quoteID
	return quoteID, nil
}

// completeForm checks every precondition of Submit. Callers hold w.mu.
func (w *Wizard) completeForm(session *ports.Session) (domainoffer.IntakeForm, error) {
	switch {
	case w.address == nil:
		return domainoffer.IntakeForm{}, &domainoffer.PreconditionError{Missing: domainoffer.StepAddress.String()}
	case w.details == nil:
		return domainoffer.IntakeForm{}, &domainoffer.PreconditionError{Missing: domainoffer.StepDetails.String()}
	case w.condition == nil || w.condition.Condition == "":
		return domainoffer.IntakeForm{}, &domainoffer.PreconditionError{Missing: domainoffer.StepCondition.String()}
	case w.contact == nil:
		return domainoffer.IntakeForm{}, &domainoffer.PreconditionError{Missing: domainoffer.StepContact.String()}
	}

	form := domainoffer.IntakeForm{
		Address:   *w.address,
		Details:   *w.details,
		Condition: *w.condition,
		Contact:   *w.contact,
	}
	now := w.now()
	for _, step := range form.Steps() {
		if fields := domainoffer.ValidateStep(step, now); !fields.Valid() {
			return domainoffer.IntakeForm{}, &domainoffer.ValidationError{Step: step.Step(), Fields: fields}
		}
	}

	if session == nil || session.UserID == "" {
		return domainoffer.IntakeForm{}, &domainoffer.PreconditionError{Missing: domainoffer.MissingSession}
	}
	if w.requireVerified && !session.EmailVerified() {
		return domainoffer.IntakeForm{}, &domainoffer.PreconditionError{Missing: domainoffer.MissingEmailVerification}
	}
	return form, nil
}
