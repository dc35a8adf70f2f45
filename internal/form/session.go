package form

import (
	"context"
	"errors"
	"fmt"

	"github.com/sakif/briefme/internal/apperror"
	"github.com/sakif/briefme/internal/model"
)

// ErrAlreadySubmitted is returned by a session that has already been accepted.
var ErrAlreadySubmitted = &apperror.AppError{
	Err:     apperror.ErrConflict,
	Message: "this form has already been submitted",
}

// MsgFixErrors is the message of the error Submit returns on rejection.
const MsgFixErrors = "please fix the highlighted fields"

// Submitter receives an accepted submission. The briefing store implements it.
type Submitter interface {
	SubmitResponse(ctx context.Context, briefingID string, answers map[string]string, submittedBy string) (model.BriefingResponse, error)
}

// State of a render instance.
type State int

const (
	Editing State = iota
	Submitted
)

func (s State) String() string {
	switch s {
	case Editing:
		return "editing"
	case Submitted:
		return "submitted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Session is one render of a briefing's public form: the answers typed so
// far, the errors of the last submit attempt, and whether it was accepted.
// Once accepted it no longer takes input.
type Session struct {
	briefing    model.Briefing
	answers     map[string]string
	submittedBy string
	errs        Errors
	state       State
	response    model.BriefingResponse
}

// NewSession starts an empty render of b.
func NewSession(b model.Briefing) *Session {
	return &Session{
		briefing: b.Clone(),
		answers:  map[string]string{},
		errs:     Errors{},
	}
}

// Set records the answer for a field and clears that field's error only.
func (s *Session) Set(fieldID, value string) error {
	if s.state == Submitted {
		return ErrAlreadySubmitted
	}
	s.answers[fieldID] = value
	delete(s.errs, fieldID)
	return nil
}

// SetSubmitter records the optional submitter email.
func (s *Session) SetSubmitter(email string) error {
	if s.state == Submitted {
		return ErrAlreadySubmitted
	}
	s.submittedBy = email
	delete(s.errs, SubmitterKey)
	return nil
}

// Submit validates the answers once. On rejection the errors are kept on the
// session and returned as a validation error; nothing is handed to sink. On
// acceptance sink receives the sparse answers and the session is closed.
func (s *Session) Submit(ctx context.Context, sink Submitter) (model.BriefingResponse, error) {
	if s.state == Submitted {
		return model.BriefingResponse{}, ErrAlreadySubmitted
	}

	errs := Validate(s.briefing.Fields, s.answers, s.submittedBy)
	s.errs = errs
	if len(errs) > 0 {
		return model.BriefingResponse{}, apperror.InvalidFields(MsgFixErrors, errs)
	}

	resp, err := sink.SubmitResponse(ctx, s.briefing.ID, Sparse(s.briefing.Fields, s.answers, false), s.submittedBy)
	if err != nil {
		return model.BriefingResponse{}, fmt.Errorf("form: submitting %s: %w", s.briefing.ID, err)
	}

	s.state = Submitted
	s.response = resp
	return resp, nil
}

// State reports whether the session still takes input.
func (s *Session) State() State { return s.state }

// Errors returns a copy of the current field errors.
func (s *Session) Errors() Errors {
	out := make(Errors, len(s.errs))
	for k, v := range s.errs {
		out[k] = v
	}
	return out
}

// Answers returns a copy of the answers typed so far.
func (s *Session) Answers() map[string]string {
	out := make(map[string]string, len(s.answers))
	for k, v := range s.answers {
		out[k] = v
	}
	return out
}

// SubmittedBy returns the submitter email typed so far.
func (s *Session) SubmittedBy() string { return s.submittedBy }

// Response returns the accepted response; it is zero until Submit succeeds.
func (s *Session) Response() model.BriefingResponse { return s.response }

// Controls renders the session's briefing with its current values and errors.
func (s *Session) Controls() []Control {
	return Controls(s.briefing.Fields, s.answers, s.errs)
}

// Briefing returns the briefing being rendered.
func (s *Session) Briefing() model.Briefing { return s.briefing }

// IsRejection reports whether err is a validation rejection from Submit.
func IsRejection(err error) bool {
	return errors.Is(err, apperror.ErrValidation)
}
