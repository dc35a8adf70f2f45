// Package form renders a briefing's schema as input controls and validates a
// submitted answer map against it.
package form

import (
	"regexp"
	"strings"

	"github.com/sakif/briefme/internal/model"
	"github.com/sakif/briefme/internal/schema"
)

// SubmitterKey is the error key used for the optional submitter email.
const SubmitterKey = "submittedBy"

// Validation messages shown next to a field.
const (
	MsgRequired     = "This field is required"
	MsgInvalidEmail = "Invalid email"
)

var emailRx = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// IsValidEmail reports whether s looks like local@domain.tld.
func IsValidEmail(s string) bool {
	return emailRx.MatchString(s)
}

// Errors maps a field id (or SubmitterKey) to its message.
type Errors map[string]string

// Validate checks answers against the briefing's fields and the optional
// submitter email. An empty result means the submission is acceptable.
//
// For an email field both checks run and the email check is applied last, so
// a required email field with a malformed value reports "Invalid email".
func Validate(fields []model.BriefingField, answers map[string]string, submittedBy string) Errors {
	errs := Errors{}
	for _, f := range fields {
		v := answers[f.ID]
		if f.Required && strings.TrimSpace(v) == "" {
			errs[f.ID] = MsgRequired
		}
		if tr, ok := schema.TraitsOf(f.Type); ok && tr.ValidatesEmail && v != "" && !IsValidEmail(v) {
			errs[f.ID] = MsgInvalidEmail
		}
	}
	if submittedBy != "" && !IsValidEmail(submittedBy) {
		errs[SubmitterKey] = MsgInvalidEmail
	}
	return errs
}

// Sparse keeps only the answers that belong to one of the fields. When
// dropEmpty is set, blank values are dropped too; HTML form posts send every
// input, touched or not.
func Sparse(fields []model.BriefingField, answers map[string]string, dropEmpty bool) map[string]string {
	out := make(map[string]string, len(answers))
	for _, f := range fields {
		v, ok := answers[f.ID]
		if !ok || (dropEmpty && v == "") {
			continue
		}
		out[f.ID] = v
	}
	return out
}
